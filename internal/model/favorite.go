package model

import "time"

// Favorite はユーザーによる記事のお気に入り登録を表す。
// UserIDは呼び出し元が指定した識別子をそのまま使用する。
type Favorite struct {
	ID        string
	UserID    string
	ArticleID string
	CreatedAt time.Time
}

// Preference はユーザーごとの購読カテゴリ設定を表す。
type Preference struct {
	ID         string
	UserID     string
	Categories []string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
