package model

import "time"

// OfferCredentials is the single token pair for the upstream offers API.
// The refresh token is provisioned externally via configuration; the access
// token is short-lived and rewritten in place on every successful refresh.
// Multiple processes may share one row (last writer wins).
type OfferCredentials struct {
	RefreshToken string    `json:"refresh_token"`
	AccessToken  string    `json:"access_token"`
	UpdatedAt    time.Time `json:"updated_at"`
}
