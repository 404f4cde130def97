// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, article, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeArticleNotFound  = "ARTICLE_NOT_FOUND"
	ErrCodeFavoriteNotFound = "FAVORITE_NOT_FOUND"
	ErrCodeAlreadyFavorited = "ALREADY_FAVORITED"
	ErrCodeInvalidRequest   = "INVALID_REQUEST"
	ErrCodeInvalidLimit     = "INVALID_LIMIT"
	ErrCodeMissingUserID    = "MISSING_USER_ID"
	ErrCodeRateLimited      = "RATE_LIMIT_EXCEEDED"
	ErrCodeInternal         = "INTERNAL_ERROR"
)

// NewArticleNotFoundError は記事未検出エラーを生成する。
func NewArticleNotFoundError(articleID string) *APIError {
	return &APIError{
		Code:     ErrCodeArticleNotFound,
		Message:  fmt.Sprintf("指定された記事が見つかりません: %s", articleID),
		Category: "article",
		Action:   "記事IDを確認してください。",
	}
}

// NewFavoriteNotFoundError はお気に入り未登録エラーを生成する。
func NewFavoriteNotFoundError(articleID string) *APIError {
	return &APIError{
		Code:     ErrCodeFavoriteNotFound,
		Message:  fmt.Sprintf("この記事はお気に入りに登録されていません: %s", articleID),
		Category: "article",
		Action:   "お気に入り一覧を確認してください。",
	}
}

// NewAlreadyFavoritedError はお気に入り重複登録エラーを生成する。
func NewAlreadyFavoritedError() *APIError {
	return &APIError{
		Code:     ErrCodeAlreadyFavorited,
		Message:  "この記事は既にお気に入りに登録されています。",
		Category: "article",
		Action:   "お気に入り一覧から該当記事を確認してください。",
	}
}

// NewInvalidRequestError はリクエスト内容の検証エラーを生成する。
func NewInvalidRequestError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  fmt.Sprintf("リクエストが不正です: %s", reason),
		Category: "validation",
		Action:   "リクエストボディの形式と必須項目を確認してください。",
	}
}

// NewInvalidLimitError は件数指定が範囲外の場合のエラーを生成する。
func NewInvalidLimitError(min, max int) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidLimit,
		Message:  fmt.Sprintf("limitは%dから%dの範囲で指定してください。", min, max),
		Category: "validation",
		Action:   "limitパラメータの値を確認してください。",
	}
}

// NewMissingUserIDError はuser-idヘッダーが指定されていない場合のエラーを生成する。
func NewMissingUserIDError() *APIError {
	return &APIError{
		Code:     ErrCodeMissingUserID,
		Message:  "user-idヘッダーが指定されていません。",
		Category: "auth",
		Action:   "user-idヘッダーにユーザー識別子を指定してください。",
	}
}

// NewRateLimitedError はレート制限超過エラーを生成する。
func NewRateLimitedError() *APIError {
	return &APIError{
		Code:     ErrCodeRateLimited,
		Message:  "リクエストが多すぎます。",
		Category: "system",
		Action:   "Retry-Afterヘッダーの秒数だけ待ってから再試行してください。",
	}
}

// NewInternalError は内部エラーを生成する。詳細はログにのみ記録する。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}
