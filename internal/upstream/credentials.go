package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"offerhub-catalogue-api/internal/model"
	"offerhub-catalogue-api/internal/repository"
)

// StaleAfter is how long a cached access token is trusted before a
// transparent refresh.
const StaleAfter = 5 * time.Minute

// CredentialStore owns the single access/refresh token pair for the upstream
// offers API. The row is shared between processes, so it is re-read from the
// repository before every staleness decision (last writer wins).
type CredentialStore struct {
	repo         repository.CredentialsRepository
	baseURL      string
	refreshToken string
	httpClient   *http.Client
}

// NewCredentialStore creates a credential store for the configured refresh
// token. The credentials row is created lazily on first use.
func NewCredentialStore(repo repository.CredentialsRepository, baseURL, refreshToken string, httpClient *http.Client) *CredentialStore {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &CredentialStore{
		repo:         repo,
		baseURL:      baseURL,
		refreshToken: refreshToken,
		httpClient:   httpClient,
	}
}

// AccessToken returns a usable access token, refreshing transparently when
// none is cached or the cached one is older than StaleAfter.
func (s *CredentialStore) AccessToken(ctx context.Context) (string, error) {
	creds, err := s.repo.GetOrCreateCredentials(ctx, s.refreshToken)
	if err != nil {
		return "", fmt.Errorf("failed to load credentials: %w", err)
	}

	if creds.AccessToken == "" || time.Since(creds.UpdatedAt) > StaleAfter {
		if err := s.refresh(ctx, creds); err != nil {
			return "", err
		}
	}

	return creds.AccessToken, nil
}

// ForceRefresh refreshes unconditionally. Used by the retry-once path after
// an authorization-denied response.
func (s *CredentialStore) ForceRefresh(ctx context.Context) (string, error) {
	creds, err := s.repo.GetOrCreateCredentials(ctx, s.refreshToken)
	if err != nil {
		return "", fmt.Errorf("failed to load credentials: %w", err)
	}

	if err := s.refresh(ctx, creds); err != nil {
		return "", err
	}
	return creds.AccessToken, nil
}

// refresh calls the upstream auth endpoint and persists the new access token.
// A 400 means the refresh token itself was rejected; that is swallowed and
// the cached (possibly stale) token stays in place, so callers keep working
// as long as it remains valid.
func (s *CredentialStore) refresh(ctx context.Context, creds *model.OfferCredentials) error {
	url := s.baseURL + "/api/v1/auth"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build auth request: %w", err)
	}
	req.Header.Set("Bearer", s.refreshToken)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("auth request failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusCreated:
		// fall through to store the token
	case http.StatusBadRequest:
		log.Printf("[CredentialStore] Refresh token rejected (400), keeping cached access token")
		return nil
	default:
		return &AuthError{StatusCode: resp.StatusCode}
	}

	var body struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("failed to decode auth response: %w", err)
	}

	creds.AccessToken = body.AccessToken
	creds.UpdatedAt = time.Now().UTC()
	if err := s.repo.SaveCredentials(ctx, creds); err != nil {
		return fmt.Errorf("failed to persist credentials: %w", err)
	}

	log.Printf("[CredentialStore] Access token refreshed")
	return nil
}
