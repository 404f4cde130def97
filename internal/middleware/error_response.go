package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/hitoshi/articlelens/internal/model"
)

// ErrorResponseBody はエラー時のJSONボディ。
type ErrorResponseBody struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

var statusByCode = map[string]int{
	model.ErrCodeArticleNotFound:  http.StatusNotFound,
	model.ErrCodeFavoriteNotFound: http.StatusNotFound,
	model.ErrCodeAlreadyFavorited: http.StatusConflict,
	model.ErrCodeInvalidRequest:   http.StatusUnprocessableEntity,
	model.ErrCodeInvalidLimit:     http.StatusUnprocessableEntity,
	model.ErrCodeMissingUserID:    http.StatusUnauthorized,
	model.ErrCodeRateLimited:      http.StatusTooManyRequests,
}

// StatusForAPIError はエラーコードに対応するHTTPステータスを返す。
// 未知のコードは500になる。
func StatusForAPIError(apiErr *model.APIError) int {
	if status, ok := statusByCode[apiErr.Code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// WriteAPIError はエラーコードから決まるステータスでapiErrを書き込む。
func WriteAPIError(w http.ResponseWriter, apiErr *model.APIError) {
	WriteErrorResponse(w, StatusForAPIError(apiErr), apiErr)
}

// WriteErrorResponse は任意のステータスでapiErrを書き込む。
func WriteErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	body := ErrorResponseBody{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("エラーレスポンスの書き込みに失敗しました",
			slog.String("code", apiErr.Code),
			slog.String("error", err.Error()),
		)
	}
}

// WriteInternalServerError は詳細を含まない500レスポンスを書き込む。
func WriteInternalServerError(w http.ResponseWriter) {
	WriteAPIError(w, model.NewInternalError())
}
