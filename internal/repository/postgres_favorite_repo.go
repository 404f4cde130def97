package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/hitoshi/articlelens/internal/model"
)

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

// PostgresFavoriteRepo はPostgreSQLを使用したお気に入りリポジトリ。
type PostgresFavoriteRepo struct {
	db *sql.DB
}

// NewPostgresFavoriteRepo はPostgresFavoriteRepoを生成する。
func NewPostgresFavoriteRepo(db *sql.DB) *PostgresFavoriteRepo {
	return &PostgresFavoriteRepo{db: db}
}

// Add はお気に入りを登録する。
func (r *PostgresFavoriteRepo) Add(ctx context.Context, userID, articleID string) (*model.Favorite, error) {
	fav := &model.Favorite{
		ID:        uuid.New().String(),
		UserID:    userID,
		ArticleID: articleID,
		CreatedAt: time.Now().UTC(),
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO favorites (id, user_id, article_id, created_at) VALUES ($1, $2, $3, $4)`,
		fav.ID, fav.UserID, fav.ArticleID, fav.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) {
			switch pqErr.Code {
			case pqUniqueViolation:
				return nil, ErrAlreadyExists
			case pqForeignKeyViolation:
				return nil, ErrReferenceNotFound
			}
		}
		return nil, fmt.Errorf("お気に入りの登録に失敗しました: %w", err)
	}

	return fav, nil
}

// Remove はお気に入りを削除する。削除した行があればtrueを返す。
func (r *PostgresFavoriteRepo) Remove(ctx context.Context, userID, articleID string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM favorites WHERE user_id = $1 AND article_id = $2`,
		userID, articleID,
	)
	if err != nil {
		return false, fmt.Errorf("お気に入りの削除に失敗しました: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("削除件数の取得に失敗しました: %w", err)
	}
	return n > 0, nil
}

// ListArticlesByUser はユーザーのお気に入り記事を登録日時の降順で返す。
func (r *PostgresFavoriteRepo) ListArticlesByUser(ctx context.Context, userID string) ([]*model.Article, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT a.id, a.title, a.content, a.source_url, a.category, a.summary, a.sentiment, a.created_at
		 FROM favorites f
		 JOIN articles a ON a.id = f.article_id
		 WHERE f.user_id = $1
		 ORDER BY f.created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("お気に入り記事の取得に失敗しました: %w", err)
	}
	defer rows.Close()
	return scanArticles(rows)
}

var _ FavoriteRepository = (*PostgresFavoriteRepo)(nil)
