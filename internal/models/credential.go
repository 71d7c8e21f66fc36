package models

import "time"

// Credential is a bearer token issued by the gateway's authentication
// endpoint. At most one credential is active at a time; credentials are
// never mutated after creation, only deactivated.
type Credential struct {
	Token     string    `json:"-"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Active    bool      `json:"active"`
}

// Valid reports whether the credential can still be used at now, keeping a
// safety margin so a token never expires mid-request.
func (c *Credential) Valid(now time.Time, margin time.Duration) bool {
	return c.Active && now.Before(c.ExpiresAt.Add(-margin))
}
