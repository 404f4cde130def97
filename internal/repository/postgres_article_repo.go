package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/hitoshi/articlelens/internal/model"
)

var articleColumns = []string{
	"id", "title", "content", "source_url", "category", "summary", "sentiment", "created_at",
}

const articleSelect = `SELECT id, title, content, source_url, category, summary, sentiment, created_at FROM articles`

// PostgresArticleRepo はPostgreSQLを使用した記事リポジトリ。
type PostgresArticleRepo struct {
	db *sql.DB
	// now はテストで差し替え可能な現在時刻関数。
	now func() time.Time
}

// NewPostgresArticleRepo はPostgresArticleRepoを生成する。
func NewPostgresArticleRepo(db *sql.DB) *PostgresArticleRepo {
	return &PostgresArticleRepo{db: db, now: time.Now}
}

// UpsertByURL はsource_urlで記事を冪等に登録する。
// INSERT ... ON CONFLICT DO NOTHING で行が返らなかった場合は、
// 競合した既存行をsource_urlで読み直してそのIDを返す。
func (r *PostgresArticleRepo) UpsertByURL(ctx context.Context, article *model.Article) (string, bool, error) {
	id := uuid.New().String()
	createdAt := article.CreatedAt
	if createdAt.IsZero() {
		createdAt = r.now().UTC()
	}

	var returnedID string
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO articles (id, title, content, source_url, category, summary, sentiment, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (source_url) DO NOTHING
		 RETURNING id`,
		id, article.Title, article.Content, article.SourceURL,
		nullStringPtr(article.Category), nullStringPtr(article.Summary), nullStringPtr(article.Sentiment),
		createdAt,
	).Scan(&returnedID)

	if err == nil {
		article.ID = returnedID
		article.CreatedAt = createdAt
		return returnedID, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", false, fmt.Errorf("記事の登録に失敗しました: %w", err)
	}

	existing, err := r.FindBySourceURL(ctx, article.SourceURL)
	if err != nil {
		return "", false, err
	}
	if existing == nil {
		return "", false, fmt.Errorf("競合した記事の再取得に失敗しました: source_url=%s", article.SourceURL)
	}
	return existing.ID, false, nil
}

// FindByID は指定IDの記事を取得する。見つからない場合はnilを返す。
func (r *PostgresArticleRepo) FindByID(ctx context.Context, id string) (*model.Article, error) {
	row := r.db.QueryRowContext(ctx, articleSelect+` WHERE id = $1`, id)
	article, err := scanArticle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("記事の取得に失敗しました: %w", err)
	}
	return article, nil
}

// FindBySourceURL はsource_urlの完全一致で記事を検索する。見つからない場合はnilを返す。
func (r *PostgresArticleRepo) FindBySourceURL(ctx context.Context, sourceURL string) (*model.Article, error) {
	row := r.db.QueryRowContext(ctx, articleSelect+` WHERE source_url = $1`, sourceURL)
	article, err := scanArticle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("source_url による記事の検索に失敗しました: %w", err)
	}
	return article, nil
}

// List は全記事を作成日時の降順で返す。
func (r *PostgresArticleRepo) List(ctx context.Context) ([]*model.Article, error) {
	rows, err := r.db.QueryContext(ctx, articleSelect+` ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("記事一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()
	return scanArticles(rows)
}

// ListRecent は最新limit件の記事を作成日時の降順で返す。
func (r *PostgresArticleRepo) ListRecent(ctx context.Context, limit int) ([]*model.Article, error) {
	rows, err := r.db.QueryContext(ctx, articleSelect+` ORDER BY created_at DESC, id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("最新記事の取得に失敗しました: %w", err)
	}
	defer rows.Close()
	return scanArticles(rows)
}

// ListCategories はNULLおよび空文字を除いたカテゴリをアルファベット順で返す。
func (r *PostgresArticleRepo) ListCategories(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT category FROM articles
		 WHERE category IS NOT NULL AND category <> ''
		 ORDER BY category`)
	if err != nil {
		return nil, fmt.Errorf("カテゴリ一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	categories := []string{}
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("カテゴリのスキャンに失敗しました: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("カテゴリ一覧の走査に失敗しました: %w", err)
	}
	return categories, nil
}

// Search は大文字小文字を区別しない部分一致で記事を検索する。
func (r *PostgresArticleRepo) Search(ctx context.Context, filter model.ArticleFilter) ([]*model.Article, error) {
	query, args, err := buildSearchQuery(filter)
	if err != nil {
		return nil, fmt.Errorf("検索クエリの組み立てに失敗しました: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("記事の検索に失敗しました: %w", err)
	}
	defer rows.Close()
	return scanArticles(rows)
}

// buildSearchQuery はフィルタからSELECT文とバインド引数を組み立てる。
func buildSearchQuery(filter model.ArticleFilter) (string, []any, error) {
	builder := sq.Select(articleColumns...).
		From("articles").
		PlaceholderFormat(sq.Dollar).
		OrderBy("created_at DESC", "id DESC")

	if q := strings.TrimSpace(filter.Query); q != "" {
		pattern := containsPattern(q)
		builder = builder.Where(sq.Or{
			sq.ILike{"title": pattern},
			sq.ILike{"content": pattern},
		})
	}
	if c := strings.TrimSpace(filter.Category); c != "" {
		builder = builder.Where(sq.ILike{"category": containsPattern(c)})
	}
	if s := strings.TrimSpace(filter.Sentiment); s != "" {
		builder = builder.Where(sq.ILike{"sentiment": containsPattern(s)})
	}

	return builder.ToSql()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern はLIKEのワイルドカードをエスケープした部分一致パターンを返す。
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanArticle(row rowScanner) (*model.Article, error) {
	a := &model.Article{}
	var category, summary, sentiment sql.NullString
	if err := row.Scan(
		&a.ID, &a.Title, &a.Content, &a.SourceURL,
		&category, &summary, &sentiment, &a.CreatedAt,
	); err != nil {
		return nil, err
	}
	a.Category = nullStringToPtr(category)
	a.Summary = nullStringToPtr(summary)
	a.Sentiment = nullStringToPtr(sentiment)
	return a, nil
}

func scanArticles(rows *sql.Rows) ([]*model.Article, error) {
	articles := []*model.Article{}
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("記事のスキャンに失敗しました: %w", err)
		}
		articles = append(articles, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("記事一覧の走査に失敗しました: %w", err)
	}
	return articles, nil
}

// nullStringPtr はnilをNULLに、それ以外（空文字含む）を値として変換する。
func nullStringPtr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// nullStringToPtr はsql.NullStringを*stringに変換する。NULLはnilになる。
func nullStringToPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

var _ ArticleRepository = (*PostgresArticleRepo)(nil)
