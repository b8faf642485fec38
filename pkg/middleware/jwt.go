package middleware

import (
	"context"
	"net/http"
	"strings"

	"offerhub/pkg/jwt"

	"github.com/sirupsen/logrus"
)

type contextKey string

// UserIDKey - ключ контекста, под которым лежит sub из токена
const UserIDKey contextKey = "user_id"

// JWTAuth пропускает запрос дальше только с валидным Bearer токеном
func JWTAuth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := extractBearer(r.Header.Get("Authorization"))
			if raw == "" {
				http.Error(w, "missing bearer token", http.StatusUnauthorized)
				return
			}
			userID, err := jwt.ParseToken(secret, raw)
			if err != nil {
				logrus.WithError(err).WithField("path", r.URL.Path).Debug("token validation failed")
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), UserIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserID достаёт id пользователя, положенный JWTAuth
func UserID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(UserIDKey).(string)
	return id, ok && id != ""
}

// WithUserID нужен хендлерам и тестам, которые собирают контекст без JWTAuth
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

func extractBearer(header string) string {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
