package upstream

import "fmt"

// AuthError indicates the token refresh call failed hard (the refresh token
// was rejected with a non-400 error, or the auth endpoint misbehaved).
type AuthError struct {
	StatusCode int
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("upstream auth failed with status %d", e.StatusCode)
}

// RegistrationError indicates product registration failed after the single
// allowed refresh-and-retry.
type RegistrationError struct {
	StatusCode int
}

func (e *RegistrationError) Error() string {
	return fmt.Sprintf("upstream product registration failed with status %d", e.StatusCode)
}

// FetchError indicates an offers fetch failed after the single allowed
// refresh-and-retry.
type FetchError struct {
	StatusCode int
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("upstream offers fetch failed with status %d", e.StatusCode)
}
