// Package classify は言語モデルによる記事の分類（カテゴリ・要約・感情）を提供する。
//
// モデルの出力形式は保証されないため、応答は助言的なテキストとして扱い、
// 解析は常に結果を返す。
package classify

import (
	"strings"
	"unicode/utf8"
)

// Categories はプロンプトで提示するカテゴリの語彙。応答はこの語彙に限定されない。
var Categories = []string{
	"Technology", "Politics", "Sports", "Business", "Entertainment", "Health", "Other",
}

// Sentiments はプロンプトで提示する感情の語彙。
var Sentiments = []string{"Positive", "Negative", "Neutral"}

const (
	// DefaultCategory は応答にカテゴリ行がない場合の値。
	DefaultCategory = "Other"
	// DefaultSentiment は応答に感情行がない場合の値。
	DefaultSentiment = "Neutral"
	// DefaultMaxChars はプロンプトに埋め込む本文の最大文字数。
	DefaultMaxChars = 4000
)

// BuildPrompt は固定の指示文の後に本文の先頭maxChars文字を埋め込んだプロンプトを返す。
// 出力行の順序は Category, Summary, Sentiment で固定。
// maxCharsが0以下の場合は DefaultMaxChars を使用する。
func BuildPrompt(text string, maxChars int) string {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}

	var b strings.Builder
	b.WriteString("Analyze this news article and respond in EXACT format:\n\n")
	b.WriteString("Category: <" + strings.Join(Categories, " | ") + ">\n")
	b.WriteString("Summary: <3 sentence summary>\n")
	b.WriteString("Sentiment: <" + strings.Join(Sentiments, " | ") + ">\n\n")
	b.WriteString("Article:\n")
	b.WriteString(truncateRunes(text, maxChars))
	return b.String()
}

// truncateRunes は文字列を先頭n文字（rune単位）に切り詰める。
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
