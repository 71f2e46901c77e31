package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"offerhub-catalogue-api/internal/model"
	"offerhub-catalogue-api/internal/repository"
	"offerhub-catalogue-api/internal/service"

	"github.com/stretchr/testify/assert"
)

type stubUserRepo struct {
	user *model.User
}

func (s *stubUserRepo) GetOrCreateUser(ctx context.Context, email string) (*model.User, bool, error) {
	return s.user, false, nil
}

func (s *stubUserRepo) GetUserByToken(ctx context.Context, token string) (*model.User, error) {
	if s.user != nil && s.user.AccessToken == token {
		return s.user, nil
	}
	return nil, repository.ErrNotFound
}

func authTestHandler(t *testing.T, wantUser *model.User) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got := GetUserFromContext(r.Context())
		assert.Equal(t, wantUser, got)
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthMiddlewareAcceptsBearerToken(t *testing.T) {
	user := &model.User{Email: "a@example.com", AccessToken: "tok-1"}
	users := service.NewUserService(&stubUserRepo{user: user}, nil)
	mw := NewAuthMiddleware(AuthConfig{Users: users})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
	req.Header.Set("Authorization", "Bearer tok-1")
	rec := httptest.NewRecorder()

	mw(authTestHandler(t, user)).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthMiddlewareAcceptsAccessTokenHeader(t *testing.T) {
	user := &model.User{Email: "a@example.com", AccessToken: "tok-1"}
	users := service.NewUserService(&stubUserRepo{user: user}, nil)
	mw := NewAuthMiddleware(AuthConfig{Users: users})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
	req.Header.Set("X-Access-Token", "tok-1")
	rec := httptest.NewRecorder()

	mw(authTestHandler(t, user)).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthMiddlewareRejectsMissingToken(t *testing.T) {
	users := service.NewUserService(&stubUserRepo{}, nil)
	mw := NewAuthMiddleware(AuthConfig{Users: users})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
	rec := httptest.NewRecorder()

	called := false
	mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, called)
}

func TestAuthMiddlewareRejectsUnknownToken(t *testing.T) {
	user := &model.User{Email: "a@example.com", AccessToken: "tok-1"}
	users := service.NewUserService(&stubUserRepo{user: user}, nil)
	mw := NewAuthMiddleware(AuthConfig{Users: users})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec := httptest.NewRecorder()

	mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
