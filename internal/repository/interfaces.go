// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"

	"github.com/hitoshi/articlelens/internal/model"
)

// ErrAlreadyExists は一意制約に違反する登録が行われたことを示す。
var ErrAlreadyExists = errors.New("repository: already exists")

// ErrReferenceNotFound は参照先の行が存在しないことを示す（外部キー違反）。
var ErrReferenceNotFound = errors.New("repository: referenced row not found")

// ArticleRepository は記事データの永続化インターフェース。
// source_url のUNIQUE制約を重複排除の唯一の根拠とする。
type ArticleRepository interface {
	// UpsertByURL はsource_urlで記事を冪等に登録する。
	// 既存行があれば変更せずにそのIDを created=false で返し、
	// なければ新規作成して created=true で返す。
	// 同一URLの同時登録でも行は1件のみ作成される。
	UpsertByURL(ctx context.Context, article *model.Article) (id string, created bool, err error)

	// FindByID は指定IDの記事を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Article, error)

	// FindBySourceURL はsource_urlの完全一致で記事を検索する。見つからない場合はnilを返す。
	FindBySourceURL(ctx context.Context, sourceURL string) (*model.Article, error)

	// List は全記事を作成日時の降順で返す。
	List(ctx context.Context) ([]*model.Article, error)

	// ListRecent は最新limit件の記事を作成日時の降順で返す。
	ListRecent(ctx context.Context, limit int) ([]*model.Article, error)

	// ListCategories はNULLおよび空文字を除いたカテゴリをアルファベット順で返す。
	ListCategories(ctx context.Context) ([]string, error)

	// Search は大文字小文字を区別しない部分一致で記事を検索する。
	// Queryはtitleまたはcontent、Categoryとsentimentはそれぞれの列に適用し、AND結合する。
	// 空のフィールドは条件に含めない。
	Search(ctx context.Context, filter model.ArticleFilter) ([]*model.Article, error)
}

// FavoriteRepository はお気に入りの永続化インターフェース。
type FavoriteRepository interface {
	// Add はお気に入りを登録する。
	// 同一ユーザー・同一記事の組がすでにある場合は ErrAlreadyExists、
	// 記事が存在しない場合は ErrReferenceNotFound を返す。
	Add(ctx context.Context, userID, articleID string) (*model.Favorite, error)

	// Remove はお気に入りを削除する。削除した行があればtrueを返す。
	Remove(ctx context.Context, userID, articleID string) (bool, error)

	// ListArticlesByUser はユーザーのお気に入り記事を登録日時の降順で返す。
	ListArticlesByUser(ctx context.Context, userID string) ([]*model.Article, error)
}

// PreferenceRepository はユーザー設定（関心カテゴリ）の永続化インターフェース。
type PreferenceRepository interface {
	// Upsert はユーザーの関心カテゴリを作成または上書きする。
	Upsert(ctx context.Context, userID string, categories []string) (*model.Preference, error)

	// FindByUser はユーザーの設定を取得する。見つからない場合はnilを返す。
	FindByUser(ctx context.Context, userID string) (*model.Preference, error)
}
