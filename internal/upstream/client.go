package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"offerhub-catalogue-api/internal/model"
)

// DefaultTimeout bounds every upstream request. The provider defines no
// timeout of its own, so calls would otherwise hang on a stuck connection.
const DefaultTimeout = 10 * time.Second

// Client wraps the external offers API. One instance is constructed at
// startup and shared by reference between the HTTP handlers and the sync
// scheduler.
type Client struct {
	baseURL    string
	creds      *CredentialStore
	httpClient *http.Client
}

// Config holds upstream client settings.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// NewClient creates an upstream offers client.
func NewClient(cfg Config, creds *CredentialStore) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		creds:      creds,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// RegisterProduct announces a product to the upstream offers provider so it
// starts producing offers for it.
func (c *Client) RegisterProduct(ctx context.Context, p *model.Product) error {
	payload, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to encode product: %w", err)
	}

	url := c.baseURL + "/api/v1/products/register"
	resp, err := c.doAuthorized(ctx, http.MethodPost, url, payload)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return &RegistrationError{StatusCode: resp.StatusCode}
	}

	log.Printf("[UpstreamClient] Registered product %s", p.ID)
	return nil
}

// FetchOffers returns the current upstream offer snapshot for a product.
func (c *Client) FetchOffers(ctx context.Context, productID string) ([]model.OfferSnapshot, error) {
	url := fmt.Sprintf("%s/api/v1/products/%s/offers", c.baseURL, productID)
	resp, err := c.doAuthorized(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{StatusCode: resp.StatusCode}
	}

	var snapshots []model.OfferSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&snapshots); err != nil {
		return nil, fmt.Errorf("failed to decode offers: %w", err)
	}
	return snapshots, nil
}

// doAuthorized executes the call with the current access token. On a 401 it
// forces exactly one credential refresh and retries exactly once; a second
// 401 is handed back to the caller as a terminal status. This bounds the
// retry loop no matter how the upstream misbehaves.
func (c *Client) doAuthorized(ctx context.Context, method, url string, body []byte) (*http.Response, error) {
	token, err := c.creds.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := c.send(ctx, method, url, body, token)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}
	resp.Body.Close()

	log.Printf("[UpstreamClient] Got 401, refreshing access token and retrying once")
	token, err = c.creds.ForceRefresh(ctx)
	if err != nil {
		return nil, err
	}
	return c.send(ctx, method, url, body, token)
}

func (c *Client) send(ctx context.Context, method, url string, body []byte, token string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	// The provider expects the token in a literal "Bearer" header rather
	// than the usual Authorization scheme.
	req.Header.Set("Bearer", token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upstream request failed: %w", err)
	}
	return resp, nil
}
