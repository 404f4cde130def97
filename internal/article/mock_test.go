package article

import (
	"context"

	"github.com/hitoshi/articlelens/internal/model"
)

// --- モック ---

type mockArticleRepo struct {
	upsertByURLFn     func(ctx context.Context, a *model.Article) (string, bool, error)
	findByIDFn        func(ctx context.Context, id string) (*model.Article, error)
	findBySourceURLFn func(ctx context.Context, sourceURL string) (*model.Article, error)
	listFn            func(ctx context.Context) ([]*model.Article, error)
	listRecentFn      func(ctx context.Context, limit int) ([]*model.Article, error)
	listCategoriesFn  func(ctx context.Context) ([]string, error)
	searchFn          func(ctx context.Context, filter model.ArticleFilter) ([]*model.Article, error)
}

func (m *mockArticleRepo) UpsertByURL(ctx context.Context, a *model.Article) (string, bool, error) {
	return m.upsertByURLFn(ctx, a)
}
func (m *mockArticleRepo) FindByID(ctx context.Context, id string) (*model.Article, error) {
	return m.findByIDFn(ctx, id)
}
func (m *mockArticleRepo) FindBySourceURL(ctx context.Context, sourceURL string) (*model.Article, error) {
	if m.findBySourceURLFn != nil {
		return m.findBySourceURLFn(ctx, sourceURL)
	}
	return nil, nil
}
func (m *mockArticleRepo) List(ctx context.Context) ([]*model.Article, error) {
	return m.listFn(ctx)
}
func (m *mockArticleRepo) ListRecent(ctx context.Context, limit int) ([]*model.Article, error) {
	return m.listRecentFn(ctx, limit)
}
func (m *mockArticleRepo) ListCategories(ctx context.Context) ([]string, error) {
	return m.listCategoriesFn(ctx)
}
func (m *mockArticleRepo) Search(ctx context.Context, filter model.ArticleFilter) ([]*model.Article, error) {
	return m.searchFn(ctx, filter)
}

type mockFavoriteRepo struct {
	addFn                func(ctx context.Context, userID, articleID string) (*model.Favorite, error)
	removeFn             func(ctx context.Context, userID, articleID string) (bool, error)
	listArticlesByUserFn func(ctx context.Context, userID string) ([]*model.Article, error)
}

func (m *mockFavoriteRepo) Add(ctx context.Context, userID, articleID string) (*model.Favorite, error) {
	return m.addFn(ctx, userID, articleID)
}
func (m *mockFavoriteRepo) Remove(ctx context.Context, userID, articleID string) (bool, error) {
	return m.removeFn(ctx, userID, articleID)
}
func (m *mockFavoriteRepo) ListArticlesByUser(ctx context.Context, userID string) ([]*model.Article, error) {
	return m.listArticlesByUserFn(ctx, userID)
}

type mockPreferenceRepo struct {
	upsertFn     func(ctx context.Context, userID string, categories []string) (*model.Preference, error)
	findByUserFn func(ctx context.Context, userID string) (*model.Preference, error)
}

func (m *mockPreferenceRepo) Upsert(ctx context.Context, userID string, categories []string) (*model.Preference, error) {
	return m.upsertFn(ctx, userID, categories)
}
func (m *mockPreferenceRepo) FindByUser(ctx context.Context, userID string) (*model.Preference, error) {
	return m.findByUserFn(ctx, userID)
}
