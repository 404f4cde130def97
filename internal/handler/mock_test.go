package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/hitoshi/articlelens/internal/article"
	"github.com/hitoshi/articlelens/internal/ingest"
	"github.com/hitoshi/articlelens/internal/model"
)

// --- モック定義 ---

// mockArticleService はArticleServiceInterfaceのモック実装。
type mockArticleService struct {
	saveFn       func(ctx context.Context, in article.SaveInput) (*article.SaveResult, error)
	listFn       func(ctx context.Context) ([]*model.Article, error)
	trendingFn   func(ctx context.Context, limit int) ([]*model.Article, error)
	searchFn     func(ctx context.Context, filter model.ArticleFilter) ([]*model.Article, error)
	categoriesFn func(ctx context.Context) ([]string, error)
	getFn        func(ctx context.Context, id string) (*model.Article, error)
}

func (m *mockArticleService) Save(ctx context.Context, in article.SaveInput) (*article.SaveResult, error) {
	return m.saveFn(ctx, in)
}
func (m *mockArticleService) List(ctx context.Context) ([]*model.Article, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return []*model.Article{}, nil
}
func (m *mockArticleService) Trending(ctx context.Context, limit int) ([]*model.Article, error) {
	return m.trendingFn(ctx, limit)
}
func (m *mockArticleService) Search(ctx context.Context, filter model.ArticleFilter) ([]*model.Article, error) {
	return m.searchFn(ctx, filter)
}
func (m *mockArticleService) Categories(ctx context.Context) ([]string, error) {
	return m.categoriesFn(ctx)
}
func (m *mockArticleService) Get(ctx context.Context, id string) (*model.Article, error) {
	return m.getFn(ctx, id)
}

// mockIngestService はIngestServiceInterfaceのモック実装。
type mockIngestService struct {
	ingestFn func(ctx context.Context, urls []string) ingest.Report
}

func (m *mockIngestService) Ingest(ctx context.Context, urls []string) ingest.Report {
	return m.ingestFn(ctx, urls)
}

// mockFavoriteService はFavoriteServiceInterfaceのモック実装。
type mockFavoriteService struct {
	addFn    func(ctx context.Context, userID, articleID string) (*model.Favorite, error)
	removeFn func(ctx context.Context, userID, articleID string) error
	listFn   func(ctx context.Context, userID string) ([]*model.Article, error)
}

func (m *mockFavoriteService) Add(ctx context.Context, userID, articleID string) (*model.Favorite, error) {
	return m.addFn(ctx, userID, articleID)
}
func (m *mockFavoriteService) Remove(ctx context.Context, userID, articleID string) error {
	return m.removeFn(ctx, userID, articleID)
}
func (m *mockFavoriteService) List(ctx context.Context, userID string) ([]*model.Article, error) {
	return m.listFn(ctx, userID)
}

// mockPreferenceService はPreferenceServiceInterfaceのモック実装。
type mockPreferenceService struct {
	saveFn func(ctx context.Context, userID string, categories []string) ([]string, error)
	getFn  func(ctx context.Context, userID string) ([]string, error)
}

func (m *mockPreferenceService) Save(ctx context.Context, userID string, categories []string) ([]string, error) {
	return m.saveFn(ctx, userID, categories)
}
func (m *mockPreferenceService) Get(ctx context.Context, userID string) ([]string, error) {
	return m.getFn(ctx, userID)
}

// mockHealthChecker はHealthCheckerのモック実装。
type mockHealthChecker struct {
	err error
}

func (m *mockHealthChecker) PingContext(ctx context.Context) error {
	return m.err
}

// newTestRouter はモックを差し込んだルーターを返す。レート制限は無効。
func newTestRouter(deps RouterDeps) http.Handler {
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if deps.CORSAllowedOrigin == "" {
		deps.CORSAllowedOrigin = "*"
	}
	if deps.ArticleService == nil {
		deps.ArticleService = &mockArticleService{}
	}
	if deps.IngestService == nil {
		deps.IngestService = &mockIngestService{}
	}
	if deps.FavoriteService == nil {
		deps.FavoriteService = &mockFavoriteService{}
	}
	if deps.PreferenceService == nil {
		deps.PreferenceService = &mockPreferenceService{}
	}
	return NewRouter(&deps)
}

// doRequest はルーターにリクエストを送り、レスポンスを返す。
func doRequest(h http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

const testArticleID = "6f1c2a8e-3b4d-4e5f-8a9b-0c1d2e3f4a5b"

func strPtr(s string) *string { return &s }
