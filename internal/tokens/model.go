// Package tokens implements opaque API tokens: issued once in plaintext,
// persisted only as a SHA-256 digest, resolved by digest lookup under a
// per-token rate limit.
package tokens

import "time"

// Token is the persisted description of an API token. The plaintext secret
// is never stored: it is returned exactly once at creation and only its
// digest remains.
type Token struct {
	ID         int64      `json:"id"`
	UserID     int64      `json:"-"`
	Name       string     `json:"name"`
	CreatedAt  time.Time  `json:"createdAt"`
	LastUsedAt *time.Time `json:"lastUsedAt,omitempty"`
}

// CreateRequest is the payload for issuing a token.
type CreateRequest struct {
	Name string `json:"name"`
}
