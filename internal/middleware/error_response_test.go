package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/articlelens/internal/model"
)

func decodeErrorBody(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponseBody {
	t.Helper()
	var body ErrorResponseBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode error body %q: %v", rec.Body.String(), err)
	}
	return body
}

func TestWriteAPIError_StatusFromCode(t *testing.T) {
	tests := []struct {
		apiErr *model.APIError
		want   int
	}{
		{model.NewArticleNotFoundError("a1"), http.StatusNotFound},
		{model.NewFavoriteNotFoundError("a1"), http.StatusNotFound},
		{model.NewAlreadyFavoritedError(), http.StatusConflict},
		{model.NewInvalidRequestError("url is required"), http.StatusUnprocessableEntity},
		{model.NewInvalidLimitError(1, 50), http.StatusUnprocessableEntity},
		{model.NewMissingUserIDError(), http.StatusUnauthorized},
		{model.NewRateLimitedError(), http.StatusTooManyRequests},
		{model.NewInternalError(), http.StatusInternalServerError},
		{&model.APIError{Code: "SOMETHING_NEW"}, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.apiErr.Code, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteAPIError(rec, tt.apiErr)

			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
			if got := StatusForAPIError(tt.apiErr); got != tt.want {
				t.Errorf("StatusForAPIError = %d, want %d", got, tt.want)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %q", ct)
			}
			if body := decodeErrorBody(t, rec); body.Code != tt.apiErr.Code {
				t.Errorf("code = %q, want %q", body.Code, tt.apiErr.Code)
			}
		})
	}
}

func TestWriteErrorResponse_ExplicitStatusWins(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteErrorResponse(rec, http.StatusBadGateway, model.NewInvalidRequestError("upstream"))

	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", rec.Code)
	}
	body := decodeErrorBody(t, rec)
	if body.Category != "validation" || body.Action == "" {
		t.Errorf("body = %+v", body)
	}
}

func TestWriteErrorResponse_JSONFieldNames(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteErrorResponse(rec, http.StatusTeapot, &model.APIError{Code: "C", Message: "M", Category: "K", Action: "A"})

	var raw map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &raw); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := map[string]string{"code": "C", "message": "M", "category": "K", "action": "A"}
	for k, v := range want {
		if raw[k] != v {
			t.Errorf("%s = %q, want %q", k, raw[k], v)
		}
	}
}

func TestWriteInternalServerError_HidesDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteInternalServerError(rec)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	body := decodeErrorBody(t, rec)
	if body.Code != model.ErrCodeInternal || body.Category != "system" {
		t.Errorf("body = %+v", body)
	}
}
