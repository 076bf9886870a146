package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/cloo-solutions/sopbot/internal/api"
	"github.com/cloo-solutions/sopbot/internal/domain"
)

type contextKey string

type AuthValidator interface {
	ValidateToken(ctx context.Context, token string) error
}

// StaticToken accepts exactly one bearer token.
type StaticToken string

func (s StaticToken) ValidateToken(_ context.Context, token string) error {
	if subtle.ConstantTimeCompare([]byte(s), []byte(token)) != 1 {
		return domain.ErrInvalidAPIToken
	}
	return nil
}

// APIKeyAuth rejects requests without a valid bearer token. A nil validator
// disables authentication.
func APIKeyAuth(validator AuthValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if validator == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				api.Error(w, http.StatusUnauthorized, "missing authorization header")
				return
			}

			if !strings.HasPrefix(authHeader, "Bearer ") {
				api.Error(w, http.StatusUnauthorized, "invalid authorization format")
				return
			}

			token := strings.TrimPrefix(authHeader, "Bearer ")

			if err := validator.ValidateToken(r.Context(), token); err != nil {
				api.Error(w, http.StatusUnauthorized, "invalid api token")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
