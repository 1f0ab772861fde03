package domain

import "time"

// TokenRevokedEvent is the payload of genzf.token.revoked messages. It is
// published on logout so downstream services can deny the jti locally
// without a round-trip to the identity provider.
type TokenRevokedEvent struct {
	EventID   string    `json:"event_id"`
	JTI       string    `json:"jti"`
	Subject   string    `json:"subject,omitempty"`
	RevokedAt time.Time `json:"revoked_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the revoked token itself has already lapsed, in
// which case the event carries no information a consumer still needs.
func (e TokenRevokedEvent) Expired(at time.Time) bool {
	return !e.ExpiresAt.IsZero() && !e.ExpiresAt.After(at)
}
