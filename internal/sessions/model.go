// Package sessions implements cookie-backed login sessions: opaque random
// identifiers persisted with an absolute expiry, lazy expiry at lookup, and
// the session cookie contract.
package sessions

import "time"

// Session is one login on one device. A user may hold many concurrent
// sessions. Expiry is absolute: lookups stop matching once ExpiresAt has
// passed, whether or not the row was swept yet.
type Session struct {
	ID        string    `json:"id"`
	UserID    int64     `json:"userId"`
	ExpiresAt time.Time `json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
}
