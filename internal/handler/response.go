package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/articlelens/internal/middleware"
	"github.com/hitoshi/articlelens/internal/model"
)

// articleResponse は記事のJSONレスポンス。
// 未分類の記事ではcategory/summary/sentimentがnullになる。
type articleResponse struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	SourceURL string    `json:"source_url"`
	Category  *string   `json:"category"`
	Summary   *string   `json:"summary"`
	Sentiment *string   `json:"sentiment"`
	CreatedAt time.Time `json:"created_at"`
}

// messageResponse は処理結果のメッセージのみを返すレスポンス。
type messageResponse struct {
	Message string `json:"message"`
}

func toArticleResponse(a *model.Article) articleResponse {
	return articleResponse{
		ID:        a.ID,
		Title:     a.Title,
		Content:   a.Content,
		SourceURL: a.SourceURL,
		Category:  a.Category,
		Summary:   a.Summary,
		Sentiment: a.Sentiment,
		CreatedAt: a.CreatedAt,
	}
}

// toArticleResponses は記事一覧をレスポンスに変換する。空の場合も空配列を返す。
func toArticleResponses(articles []*model.Article) []articleResponse {
	resp := make([]articleResponse, 0, len(articles))
	for _, a := range articles {
		resp = append(resp, toArticleResponse(a))
	}
	return resp
}

// writeJSON はステータスコードとともにJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		middleware.WriteAPIError(w, apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	middleware.WriteInternalServerError(w)
}

// writeInvalidRequest は422の検証エラーを書き込む。
func writeInvalidRequest(w http.ResponseWriter, reason string) {
	middleware.WriteAPIError(w, model.NewInvalidRequestError(reason))
}

// userIDOrUnauthorized はコンテキストのユーザーIDを返す。
// 取得できない場合は401を書き込んでfalseを返す。
func userIDOrUnauthorized(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteAPIError(w, model.NewMissingUserIDError())
		return "", false
	}
	return userID, true
}
