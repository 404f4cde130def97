// Package model はドメインモデルを定義する。
package model

import (
	"strings"
	"time"
)

// 保存できる最大文字数。テーブルの列定義と一致させる。
const (
	MaxCategoryLength  = 100
	MaxSentimentLength = 50
	MaxUserIDLength    = 255
)

// Article は取り込み済みの記事を表す。
// SourceURLは重複排除の自然キーであり、正規化は行わない。
type Article struct {
	ID        string
	Title     string
	Content   string
	SourceURL string
	Category  *string // 分類結果または呼び出し元指定。未分類の場合はnil
	Summary   *string
	Sentiment *string
	CreatedAt time.Time
}

// ArticleFilter は記事検索の条件を表す。
// 空文字列のフィールドは条件に含めない。すべての条件はAND結合される。
type ArticleFilter struct {
	Query     string // title/contentに対する部分一致
	Category  string
	Sentiment string
}

// IsEmpty は検索条件が1つも指定されていないかを返す。
func (f ArticleFilter) IsEmpty() bool {
	return f.Query == "" && f.Category == "" && f.Sentiment == ""
}

// OutcomeStatus はバッチ取り込みにおけるURLごとの処理結果の種別。
type OutcomeStatus string

const (
	// OutcomeSuccess は記事が保存済みであることを示す（新規作成または既存）。
	OutcomeSuccess OutcomeStatus = "success"
	// OutcomeError はそのURLの処理が失敗したことを示す。
	OutcomeError OutcomeStatus = "error"
)

// ScrapeOutcome はバッチ内の1URLに対する処理結果。
// 永続化はされず、1回のバッチリクエストの間だけ存在する。
type ScrapeOutcome struct {
	URL       string
	Status    OutcomeStatus
	ArticleID string // Status=successの場合のみ
	Created   bool   // 新規作成した場合true、既存記事を返した場合false
	Message   string // Status=errorの場合のエラー内容、または既存記事の通知
}

// Succeeded はOutcomeが成功かどうかを返す。
func (o ScrapeOutcome) Succeeded() bool {
	return o.Status == OutcomeSuccess
}

// StringPtr は空文字列以外の場合にポインタを返す。空文字列の場合はnilを返す。
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// StringValue はnil許容の文字列を値に変換する。nilの場合は空文字列を返す。
func StringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// TruncateRunes はsを最大n文字（rune単位）に切り詰め、末尾の空白を除去する。
func TruncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return strings.TrimRight(s[:i], " \t\n")
		}
		count++
	}
	return s
}
