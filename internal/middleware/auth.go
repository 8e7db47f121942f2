// Package middleware provides HTTP middlewares for authentication and logging.
package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/atinyakov/GophContacts/internal/models"
	"github.com/atinyakov/GophContacts/internal/service"
	"go.uber.org/zap"
)

type ctxKey string

const userKey ctxKey = "user"

// UnauthenticatedDetail is the single message returned for every bearer failure.
const UnauthenticatedDetail = "Could not validate credentials"

// UserResolver resolves an access token to the account it was issued for.
type UserResolver interface {
	CurrentUser(ctx context.Context, accessToken string) (*models.User, error)
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// Unauthorized writes the uniform 401 response with a Bearer challenge.
func Unauthorized(w http.ResponseWriter, detail string) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"detail": detail})
}

// Authenticate rejects requests without a valid access token and stores the
// resolved user in the request context for downstream handlers.
func Authenticate(resolver UserResolver, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := BearerToken(r)
			if !ok {
				Unauthorized(w, UnauthenticatedDetail)
				return
			}

			user, err := resolver.CurrentUser(r.Context(), token)
			if errors.Is(err, service.ErrUnauthenticated) {
				Unauthorized(w, UnauthenticatedDetail)
				return
			}
			if err != nil {
				log.Error("failed to resolve current user", zap.Error(err))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_ = json.NewEncoder(w).Encode(map[string]string{"detail": "Internal server error"})
				return
			}

			ctx := context.WithValue(r.Context(), userKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserFromContext returns the user stored by Authenticate, or nil.
func UserFromContext(ctx context.Context) *models.User {
	u, _ := ctx.Value(userKey).(*models.User)
	return u
}
