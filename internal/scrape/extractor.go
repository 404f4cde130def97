package scrape

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// NoTitle はtitle要素が存在しない、または空の場合に使用するタイトル。
const NoTitle = "No title"

// Extracted はHTMLから抽出したタイトルと本文テキスト。
type Extracted struct {
	Title string
	Body  string
}

// Extract はHTMLからタイトルと本文を抽出する。
// タイトルは最初のtitle要素のテキスト、本文は全p要素のテキストを文書順に半角スペースで連結したもの。
// 不正・空の入力でも失敗せず、{NoTitle, ""} を返す。
func Extract(raw []byte) Extracted {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return Extracted{Title: NoTitle}
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		title = NoTitle
	}

	paragraphs := doc.Find("p").Map(func(_ int, s *goquery.Selection) string {
		return s.Text()
	})

	return Extracted{
		Title: title,
		Body:  strings.TrimSpace(strings.Join(paragraphs, " ")),
	}
}
