package service

import (
	"context"
	"encoding/json"
	"time"

	"offerhub-catalogue-api/internal/cache"
	"offerhub-catalogue-api/internal/model"
	"offerhub-catalogue-api/internal/repository"
)

const (
	// tokenCacheKeyPrefix namespaces cached token lookups.
	tokenCacheKeyPrefix = "catalogue:token:"

	// tokenCacheTTL is how long a token lookup stays cached.
	tokenCacheTTL = 5 * time.Minute
)

// UserService manages API users and access token checks. Token lookups go
// through the cache first and fall back to the repository; the cache is
// optional, a nil cache means repository-only.
type UserService struct {
	users  repository.UserRepository
	tokens cache.Cache
}

// NewUserService creates a new user service.
func NewUserService(users repository.UserRepository, tokens cache.Cache) *UserService {
	return &UserService{
		users:  users,
		tokens: tokens,
	}
}

// Register returns the user for the email, creating one with a fresh access
// token on first sight. The bool reports whether the user was created.
func (s *UserService) Register(ctx context.Context, email string) (*model.User, bool, error) {
	user, created, err := s.users.GetOrCreateUser(ctx, email)
	if err != nil {
		return nil, false, err
	}

	s.cacheUser(ctx, user)
	return user, created, nil
}

// Authenticate resolves an access token to a user. Returns
// repository.ErrNotFound for unknown tokens.
func (s *UserService) Authenticate(ctx context.Context, token string) (*model.User, error) {
	if token == "" {
		return nil, repository.ErrNotFound
	}

	if s.tokens != nil {
		if data, err := s.tokens.Get(ctx, tokenCacheKeyPrefix+token); err == nil {
			var user model.User
			if err := json.Unmarshal(data, &user); err == nil {
				return &user, nil
			}
		}
	}

	user, err := s.users.GetUserByToken(ctx, token)
	if err != nil {
		return nil, err
	}

	s.cacheUser(ctx, user)
	return user, nil
}

// cacheUser stores the token-to-user mapping. Cache failures are ignored,
// the repository remains authoritative.
func (s *UserService) cacheUser(ctx context.Context, user *model.User) {
	if s.tokens == nil {
		return
	}
	data, err := json.Marshal(user)
	if err != nil {
		return
	}
	_ = s.tokens.Set(ctx, tokenCacheKeyPrefix+user.AccessToken, data, tokenCacheTTL)
}
