package model

// User is an API consumer, keyed by email. The access token is an opaque
// value presented on every catalogue request.
type User struct {
	Email       string `json:"email"`
	AccessToken string `json:"access_token"`
}
