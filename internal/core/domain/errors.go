package domain

import "errors"

// Failure taxonomy shared by every service boundary. Each operation surfaces
// exactly one of these kinds per failure; lower-level causes are wrapped
// underneath with %w and never leak past the package that produced them.
var (
	// ErrUnauthenticated covers bad credentials and invalid, expired, or
	// revoked tokens. Callers must not be able to tell those cases apart.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrNotFound indicates the referenced subject or user does not exist.
	ErrNotFound = errors.New("not found")
	// ErrUnavailable indicates a remote dependency is short-circuited or
	// retries against it were exhausted.
	ErrUnavailable = errors.New("unavailable")
	// ErrInvalidRequest indicates malformed input to issuance or verification.
	ErrInvalidRequest = errors.New("invalid request")
)
