// Package common defines shared constants and sentinel errors used across
// the chat-server components. Callers should use errors.Is to match these
// values; producers wrap them with fmt.Errorf("...: %w", err).
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// Credential hashing: primitive failure or an unparseable stored hash.
	ErrHashing = errors.New("password hash error")

	// Token issuance failed in the signing primitive.
	ErrSigning = errors.New("token signing error")

	// Any token validation failure. Reasons are not distinguished.
	ErrInvalidToken = errors.New("invalid token")

	// Account errors.
	ErrDuplicateEmail = errors.New("email already exists")
	ErrStorage        = errors.New("storage error")

	// Malformed signup or signin input.
	ErrInvalidInput = errors.New("invalid input")
)
