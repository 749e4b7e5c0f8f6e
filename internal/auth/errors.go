package auth

import "errors"

var (
	// ErrInvalidCredentials covers unknown accounts, wrong passwords and
	// disabled accounts alike, so login responses do not leak account state.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")

	ErrMalformedToken   = errors.New("auth: malformed token")
	ErrExpiredToken     = errors.New("auth: token expired")
	ErrInvalidSignature = errors.New("auth: invalid token signature")

	// ErrUnauthenticated means no identity evidence could be resolved.
	// ErrForbidden means the identity resolved but lacks the required
	// role or permission. Callers must keep the two distinct.
	ErrUnauthenticated = errors.New("auth: unauthenticated")
	ErrForbidden       = errors.New("auth: forbidden")

	ErrNotFound    = errors.New("auth: identity not found")
	ErrUnknownRole = errors.New("auth: unknown role")
)
