// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/hitoshi/articlelens/internal/model"
)

// UserIDHeader はユーザー識別子を運ぶリクエストヘッダー。
const UserIDHeader = "user-id"

// ErrNoUserID はコンテキストにユーザーIDが無いことを示す。
var ErrNoUserID = errors.New("user ID not found in context")

type contextKey string

var userIDContextKey = contextKey("user_id")

// NewUserIDMiddleware はuser-idヘッダーの値をコンテキストに載せる。
// 値は前後の空白を除くだけで内容は検証しない。
// 空なら401、保存できる長さを超える場合は422で打ち切る。
func NewUserIDMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := userIDFromHeader(r)
			switch {
			case userID == "":
				WriteAPIError(w, model.NewMissingUserIDError())
			case utf8.RuneCountInString(userID) > model.MaxUserIDLength:
				WriteAPIError(w, model.NewInvalidRequestError(
					fmt.Sprintf("user-idヘッダーは%d文字以下で指定してください", model.MaxUserIDLength)))
			default:
				next.ServeHTTP(w, r.WithContext(ContextWithUserID(r.Context(), userID)))
			}
		})
	}
}

func userIDFromHeader(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(UserIDHeader))
}

// UserIDFromContext はNewUserIDMiddlewareが載せたユーザーIDを返す。
func UserIDFromContext(ctx context.Context) (string, error) {
	if userID, ok := ctx.Value(userIDContextKey).(string); ok && userID != "" {
		return userID, nil
	}
	return "", ErrNoUserID
}

// ContextWithUserID はctxにユーザーIDを設定する。
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDContextKey, userID)
}
