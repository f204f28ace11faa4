package domain

import "errors"

// Sentinel errors used across the gateway. Handlers map these onto HTTP
// statuses; services wrap them with fmt.Errorf("...: %w", Err...) so the
// internal detail stays in logs while the caller sees a generic message.
var (
	// ErrInvalidInput marks missing or malformed caller parameters.
	ErrInvalidInput = errors.New("invalid input")

	// ErrAuthentication marks a failed signature, an expired or reused
	// OAuth state, or an invalid identity token.
	ErrAuthentication = errors.New("authentication failed")

	// ErrUpstream marks a provider token endpoint or network failure.
	ErrUpstream = errors.New("upstream exchange failed")

	// ErrPersistence marks a store read/write failure.
	ErrPersistence = errors.New("persistence failed")

	// ErrNotFound marks an unknown shop, account or record.
	ErrNotFound = errors.New("not found")
)
