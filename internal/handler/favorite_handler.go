package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/articlelens/internal/model"
)

// FavoriteServiceInterface はお気に入りハンドラーが必要とするサービスインターフェース。
type FavoriteServiceInterface interface {
	Add(ctx context.Context, userID, articleID string) (*model.Favorite, error)
	Remove(ctx context.Context, userID, articleID string) error
	List(ctx context.Context, userID string) ([]*model.Article, error)
}

// FavoriteHandler はお気に入りのHTTPハンドラー。
// すべてのエンドポイントでuser-idヘッダーが必要。
type FavoriteHandler struct {
	service FavoriteServiceInterface
}

// NewFavoriteHandler はFavoriteHandlerを生成する。
func NewFavoriteHandler(service FavoriteServiceInterface) *FavoriteHandler {
	return &FavoriteHandler{service: service}
}

// List はユーザーのお気に入り記事を返す。
// GET /api/articles/favorites
func (h *FavoriteHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDOrUnauthorized(w, r)
	if !ok {
		return
	}

	articles, err := h.service.List(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toArticleResponses(articles))
}

// Add は記事をお気に入りに登録する。
// POST /api/articles/{id}/favorite
func (h *FavoriteHandler) Add(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDOrUnauthorized(w, r)
	if !ok {
		return
	}

	if _, err := h.service.Add(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, messageResponse{Message: "Added to favorites"})
}

// Remove は記事をお気に入りから外す。
// DELETE /api/articles/{id}/favorite
func (h *FavoriteHandler) Remove(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDOrUnauthorized(w, r)
	if !ok {
		return
	}

	if err := h.service.Remove(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Removed from favorites"})
}
