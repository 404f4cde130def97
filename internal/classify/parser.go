package classify

import (
	"regexp"
	"strings"
)

// Parsed はモデル応答から取り出した各フィールド。該当ラベルがなければnil。
type Parsed struct {
	Category  *string
	Summary   *string
	Sentiment *string
}

// labelPattern はラベルにマッチする。
// "**Category:**" や "Category**:" のようなmarkdown装飾も許容する。
var labelPattern = regexp.MustCompile(`(?i)\b(category|summary|sentiment)\b[\s*_]*:`)

// labelMatch は応答中のラベル1件の位置。
type labelMatch struct {
	label      string
	start, end int
}

// ParseResponse はモデルの自由記述応答を解析する。全域関数でありpanicしない。
//
// ラベルは大文字小文字を区別せず、フィールドごとに独立して探し、最初に現れたものを採用する。
// 1行に複数のラベルが並ぶ応答も解析できる。
// カテゴリと感情はラベル以降から行末または次のラベルまで、
// 要約はラベル以降から次のラベルまたは末尾までを値とする。
// 値の前後の空白とmarkdown強調記号は除去し、カテゴリと感情の値が空の場合は未設定として扱う。
func ParseResponse(text string) Parsed {
	text = strings.ReplaceAll(text, "\r\n", "\n")

	var matches []labelMatch
	for _, loc := range labelPattern.FindAllStringSubmatchIndex(text, -1) {
		matches = append(matches, labelMatch{
			label: strings.ToLower(text[loc[2]:loc[3]]),
			start: loc[0],
			end:   loc[1],
		})
	}

	var p Parsed
	for i, m := range matches {
		stop := len(text)
		if i+1 < len(matches) {
			stop = matches[i+1].start
		}
		value := text[m.end:stop]

		switch m.label {
		case "category":
			if p.Category == nil {
				p.Category = nonEmpty(cleanValue(firstLine(value)))
			}
		case "sentiment":
			if p.Sentiment == nil {
				p.Sentiment = nonEmpty(cleanValue(firstLine(value)))
			}
		case "summary":
			if p.Summary == nil {
				summary := cleanValue(value)
				p.Summary = &summary
			}
		}
	}
	return p
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// cleanValue は値の前後の空白とmarkdown強調記号を除去する。
func cleanValue(s string) string {
	return strings.Trim(s, " \t\n*_")
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
