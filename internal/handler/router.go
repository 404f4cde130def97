package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/articlelens/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter

	// 運用エンドポイント
	HealthChecker  HealthChecker
	MetricsHandler http.Handler

	// 記事
	ArticleService ArticleServiceInterface
	IngestService  IngestServiceInterface
	MaxScrapeURLs  int

	// お気に入り・関心カテゴリ
	FavoriteService   FavoriteServiceInterface
	PreferenceService PreferenceServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RequestID → Recovery → SecurityHeaders → Logging → CORS → RateLimit(General)
//
// /health と /metrics はレート制限の外に配置する。
// お気に入りと関心カテゴリのルートはuser-idヘッダーを要求する。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(middleware.NewRequestIDMiddleware())
	r.Use(middleware.NewRecoveryMiddleware(logger))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	articleHandler := NewArticleHandler(deps.ArticleService, deps.IngestService, deps.MaxScrapeURLs)
	favoriteHandler := NewFavoriteHandler(deps.FavoriteService)
	preferenceHandler := NewPreferenceHandler(deps.PreferenceService)
	requireUserID := middleware.NewUserIDMiddleware()

	// --- 運用エンドポイント ---
	r.Get("/health", NewHealthHandler(deps.HealthChecker))
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	// --- API ---
	r.Group(func(r chi.Router) {
		if deps.RateLimiter != nil {
			r.Use(deps.RateLimiter.GeneralMiddleware())
		}

		r.Route("/api/articles", func(r chi.Router) {
			// POST /api/articles/scrape - バッチ取り込み（専用レート制限を追加）
			if deps.RateLimiter != nil {
				r.With(deps.RateLimiter.ScrapeMiddleware()).Post("/scrape", articleHandler.Scrape)
			} else {
				r.Post("/scrape", articleHandler.Scrape)
			}
			r.Post("/save", articleHandler.Save)

			r.Get("/", articleHandler.List)
			r.Get("/trending", articleHandler.Trending)
			r.Get("/search", articleHandler.Search)
			r.Get("/categories", articleHandler.Categories)
			r.With(requireUserID).Get("/favorites", favoriteHandler.List)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", articleHandler.Get)
				r.With(requireUserID).Post("/favorite", favoriteHandler.Add)
				r.With(requireUserID).Delete("/favorite", favoriteHandler.Remove)
			})
		})

		r.Route("/api/preferences", func(r chi.Router) {
			r.Use(requireUserID)
			r.Get("/", preferenceHandler.Get)
			r.Post("/", preferenceHandler.Save)
		})
	})

	return r
}
