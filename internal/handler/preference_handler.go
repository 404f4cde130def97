package handler

import (
	"context"
	"encoding/json"
	"net/http"
)

// PreferenceServiceInterface は関心カテゴリハンドラーが必要とするサービスインターフェース。
type PreferenceServiceInterface interface {
	Save(ctx context.Context, userID string, categories []string) ([]string, error)
	Get(ctx context.Context, userID string) ([]string, error)
}

// PreferenceHandler はユーザーの関心カテゴリのHTTPハンドラー。
type PreferenceHandler struct {
	service PreferenceServiceInterface
}

// NewPreferenceHandler はPreferenceHandlerを生成する。
func NewPreferenceHandler(service PreferenceServiceInterface) *PreferenceHandler {
	return &PreferenceHandler{service: service}
}

// preferenceRequest は関心カテゴリ保存要求のボディ。
type preferenceRequest struct {
	Categories []string `json:"categories"`
}

// preferenceResponse は関心カテゴリ保存のレスポンス。
type preferenceResponse struct {
	Message    string   `json:"message"`
	Categories []string `json:"categories"`
}

// Save はユーザーの関心カテゴリを上書き保存する。
// POST /api/preferences/
func (h *PreferenceHandler) Save(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDOrUnauthorized(w, r)
	if !ok {
		return
	}

	var req preferenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequest(w, "リクエストボディのJSONが不正です")
		return
	}
	if req.Categories == nil {
		writeInvalidRequest(w, "categoriesは必須です")
		return
	}

	saved, err := h.service.Save(r.Context(), userID, req.Categories)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, preferenceResponse{Message: "Preferences saved", Categories: saved})
}

// Get はユーザーの関心カテゴリを返す。未設定の場合は空配列。
// GET /api/preferences/
func (h *PreferenceHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDOrUnauthorized(w, r)
	if !ok {
		return
	}

	categories, err := h.service.Get(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if categories == nil {
		categories = []string{}
	}
	writeJSON(w, http.StatusOK, categories)
}
