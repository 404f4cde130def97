// Package security はアプリケーションのセキュリティ機能を提供する。
//
// ContentSanitizerService は外部から取り込んだ文字列からHTMLを除去し、
// 保存・応答に使うプレーンテキストへ正規化する。
// bluemondayのStrictPolicyで全タグを除去したうえで、
// エスケープされた文字参照を元の文字に戻す。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// ContentSanitizerService はプレーンテキスト化のインターフェースを定義する。
// スクレイピング結果、分類結果、手動保存リクエストの各フィールドを保存前に通す。
type ContentSanitizerService interface {
	// Sanitize は入力からすべてのHTMLタグを除去したテキストを返す。
	// script, styleなどの要素は中身ごと除去される。
	// 前後の空白は取り除き、空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(raw string) string
}

// contentSanitizer はContentSanitizerServiceの実装。
// bluemondayのポリシーはスレッドセーフに共有できる。
type contentSanitizer struct {
	policy *bluemonday.Policy
}

// NewContentSanitizer はContentSanitizerServiceの新しいインスタンスを生成する。
func NewContentSanitizer() *contentSanitizer {
	return &contentSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize は入力からすべてのHTMLタグを除去したテキストを返す。
func (s *contentSanitizer) Sanitize(raw string) string {
	if raw == "" {
		return ""
	}
	// StrictPolicyは "&" などを実体参照にエスケープするため、テキストとして戻す
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(raw)))
}
