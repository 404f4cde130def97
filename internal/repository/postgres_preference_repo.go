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

// PostgresPreferenceRepo はPostgreSQLを使用したユーザー設定リポジトリ。
// 関心カテゴリはTEXT[]として保存する。
type PostgresPreferenceRepo struct {
	db *sql.DB
}

// NewPostgresPreferenceRepo はPostgresPreferenceRepoを生成する。
func NewPostgresPreferenceRepo(db *sql.DB) *PostgresPreferenceRepo {
	return &PostgresPreferenceRepo{db: db}
}

// Upsert はユーザーの関心カテゴリを作成または上書きする。
func (r *PostgresPreferenceRepo) Upsert(ctx context.Context, userID string, categories []string) (*model.Preference, error) {
	if categories == nil {
		categories = []string{}
	}
	now := time.Now().UTC()
	pref := &model.Preference{UserID: userID, Categories: categories}

	err := r.db.QueryRowContext(ctx,
		`INSERT INTO user_preferences (id, user_id, categories, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $4)
		 ON CONFLICT (user_id) DO UPDATE SET
		     categories = EXCLUDED.categories,
		     updated_at = EXCLUDED.updated_at
		 RETURNING id, created_at, updated_at`,
		uuid.New().String(), userID, pq.Array(categories), now,
	).Scan(&pref.ID, &pref.CreatedAt, &pref.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("ユーザー設定の保存に失敗しました: %w", err)
	}

	return pref, nil
}

// FindByUser はユーザーの設定を取得する。見つからない場合はnilを返す。
func (r *PostgresPreferenceRepo) FindByUser(ctx context.Context, userID string) (*model.Preference, error) {
	pref := &model.Preference{}
	var categories pq.StringArray
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, categories, created_at, updated_at
		 FROM user_preferences WHERE user_id = $1`,
		userID,
	).Scan(&pref.ID, &pref.UserID, &categories, &pref.CreatedAt, &pref.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ユーザー設定の取得に失敗しました: %w", err)
	}

	pref.Categories = []string(categories)
	if pref.Categories == nil {
		pref.Categories = []string{}
	}
	return pref, nil
}

var _ PreferenceRepository = (*PostgresPreferenceRepo)(nil)
