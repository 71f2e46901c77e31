package uid

import "github.com/google/uuid"

// New returns a fresh random identifier in canonical UUID form. Used for
// product ids, user access tokens and offers the upstream feed ships
// without an id.
func New() string {
	return uuid.NewString()
}
