package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadyAllDependenciesUp(t *testing.T) {
	h := New("1.0.0",
		ReadyCheck{Name: "database", Check: func(ctx context.Context) error { return nil }},
		ReadyCheck{Name: "cache", Check: func(ctx context.Context) error { return nil }},
	)

	rec := doRequest(t, http.HandlerFunc(h.Ready), http.MethodGet, "/api/v1/ready", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data ReadyResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Data.Ready)
	require.Len(t, body.Data.Checks, 2)
	assert.Equal(t, "ok", body.Data.Checks[0].Status)
	assert.Equal(t, "ok", body.Data.Checks[1].Status)
}

func TestReadyFailingDependencyIs503(t *testing.T) {
	h := New("1.0.0",
		ReadyCheck{Name: "database", Check: func(ctx context.Context) error { return errors.New("connection refused") }},
		ReadyCheck{Name: "cache", Check: func(ctx context.Context) error { return nil }},
	)

	rec := doRequest(t, http.HandlerFunc(h.Ready), http.MethodGet, "/api/v1/ready", "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body struct {
		Data ReadyResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Data.Ready)
	require.Len(t, body.Data.Checks, 2)
	assert.Equal(t, "database", body.Data.Checks[0].Name)
	assert.Equal(t, "connection refused", body.Data.Checks[0].Status)
	assert.Equal(t, "ok", body.Data.Checks[1].Status)
}

func TestHealth(t *testing.T) {
	h := New("1.2.3")

	rec := doRequest(t, http.HandlerFunc(h.Health), http.MethodGet, "/api/v1/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data HealthResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body.Data.Status)
	assert.Equal(t, "1.2.3", body.Data.Version)
}
