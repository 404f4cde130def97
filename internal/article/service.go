// Package article は記事の閲覧・手動保存・お気に入り・関心カテゴリのドメインロジックを提供する。
package article

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/hitoshi/articlelens/internal/model"
	"github.com/hitoshi/articlelens/internal/repository"
)

// 手動保存時の既定値
const (
	DefaultCategory  = "General"
	DefaultSentiment = "Neutral"
)

// 保存結果のメッセージ
const (
	MessageSaved         = "Article saved"
	MessageAlreadyExists = "Article already exists"
)

// トレンド取得件数の範囲
const (
	DefaultTrendingLimit = 5
	MinTrendingLimit     = 1
	MaxTrendingLimit     = 50
)

// Sanitizer は保存前のテキスト正規化インターフェース。
type Sanitizer interface {
	Sanitize(raw string) string
}

// SaveInput は手動保存リクエストの内容。
// TitleとSourceURLは必須、それ以外は省略可能。
type SaveInput struct {
	Title     string
	Content   string
	SourceURL string
	Category  string
	Summary   string
	Sentiment string
}

// SaveResult は手動保存の結果。
type SaveResult struct {
	ID      string
	Created bool
	Message string
}

// Service は記事の閲覧と手動保存のサービス層。
type Service struct {
	repo      repository.ArticleRepository
	sanitizer Sanitizer
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(repo repository.ArticleRepository, sanitizer Sanitizer) *Service {
	return &Service{repo: repo, sanitizer: sanitizer}
}

// Save は呼び出し元が指定した記事を保存する。
// 同じsource_urlの記事が既にあれば変更せずにそのIDを返す。
func (s *Service) Save(ctx context.Context, in SaveInput) (*SaveResult, error) {
	title := s.sanitizer.Sanitize(in.Title)
	sourceURL := strings.TrimSpace(in.SourceURL)
	if title == "" {
		return nil, model.NewInvalidRequestError("titleは必須です")
	}
	if sourceURL == "" {
		return nil, model.NewInvalidRequestError("source_urlは必須です")
	}

	category := model.TruncateRunes(s.sanitizer.Sanitize(in.Category), model.MaxCategoryLength)
	if category == "" {
		category = DefaultCategory
	}
	sentiment := model.TruncateRunes(s.sanitizer.Sanitize(in.Sentiment), model.MaxSentimentLength)
	if sentiment == "" {
		sentiment = DefaultSentiment
	}

	a := &model.Article{
		Title:     title,
		Content:   s.sanitizer.Sanitize(in.Content),
		SourceURL: sourceURL,
		Category:  &category,
		Summary:   model.StringPtr(s.sanitizer.Sanitize(in.Summary)),
		Sentiment: &sentiment,
	}

	id, created, err := s.repo.UpsertByURL(ctx, a)
	if err != nil {
		return nil, fmt.Errorf("記事の保存に失敗しました: %w", err)
	}

	result := &SaveResult{ID: id, Created: created, Message: MessageSaved}
	if !created {
		result.Message = MessageAlreadyExists
	}
	return result, nil
}

// List は全記事を新しい順で返す。
func (s *Service) List(ctx context.Context) ([]*model.Article, error) {
	articles, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("記事一覧の取得に失敗しました: %w", err)
	}
	return articles, nil
}

// Trending は最新limit件の記事を返す。limitは1から50の範囲。
func (s *Service) Trending(ctx context.Context, limit int) ([]*model.Article, error) {
	if limit < MinTrendingLimit || limit > MaxTrendingLimit {
		return nil, model.NewInvalidLimitError(MinTrendingLimit, MaxTrendingLimit)
	}
	articles, err := s.repo.ListRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("最新記事の取得に失敗しました: %w", err)
	}
	return articles, nil
}

// Search は条件に一致する記事を新しい順で返す。
func (s *Service) Search(ctx context.Context, filter model.ArticleFilter) ([]*model.Article, error) {
	filter = model.ArticleFilter{
		Query:     strings.TrimSpace(filter.Query),
		Category:  strings.TrimSpace(filter.Category),
		Sentiment: strings.TrimSpace(filter.Sentiment),
	}
	articles, err := s.repo.Search(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("記事の検索に失敗しました: %w", err)
	}
	return articles, nil
}

// Categories は記事に付与されているカテゴリの一覧を返す。
func (s *Service) Categories(ctx context.Context) ([]string, error) {
	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("カテゴリ一覧の取得に失敗しました: %w", err)
	}
	return categories, nil
}

// Get は指定IDの記事を返す。
// IDがUUID形式でない場合も記事未検出として扱う。
func (s *Service) Get(ctx context.Context, id string) (*model.Article, error) {
	if !isValidID(id) {
		return nil, model.NewArticleNotFoundError(id)
	}
	a, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("記事の取得に失敗しました: %w", err)
	}
	if a == nil {
		return nil, model.NewArticleNotFoundError(id)
	}
	return a, nil
}

func isValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
