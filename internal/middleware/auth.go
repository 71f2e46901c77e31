package middleware

import (
	"context"
	"net/http"
	"strings"

	"offerhub-catalogue-api/internal/model"
	"offerhub-catalogue-api/internal/service"
	"offerhub-catalogue-api/pkg/apierror"
)

// UserKey is the key for storing the authenticated user in request context.
const UserKey contextKey = "user"

// AuthConfig holds configuration for the auth middleware.
type AuthConfig struct {
	Users *service.UserService
}

// NewAuthMiddleware creates the access-token gate for catalogue routes.
// The user service is injected via closure, no global state. A missing or
// unknown token is answered with 403.
func NewAuthMiddleware(cfg AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get("X-Access-Token")
			if token == "" {
				auth := r.Header.Get("Authorization")
				if strings.HasPrefix(auth, "Bearer ") {
					token = strings.TrimPrefix(auth, "Bearer ")
				}
			}

			if token == "" {
				writeError(w, apierror.Forbidden("Access token required. Use Authorization: Bearer or X-Access-Token header."))
				return
			}

			user, err := cfg.Users.Authenticate(r.Context(), token)
			if err != nil {
				writeError(w, apierror.Forbidden("Invalid access token"))
				return
			}

			ctx := context.WithValue(r.Context(), UserKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// writeError writes an API error response.
func writeError(w http.ResponseWriter, err *apierror.Error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.StatusCode)
	w.Write(err.ToJSON())
}

// GetUserFromContext retrieves the authenticated user from request context.
func GetUserFromContext(ctx context.Context) *model.User {
	if user, ok := ctx.Value(UserKey).(*model.User); ok {
		return user
	}
	return nil
}
