package ports

import (
	"context"

	"platform-gateway-core/internal/domain"
)

// StateStore holds issued OAuth states for the duration of an authorization
// flow. Implementations must make Consume atomic so two concurrent callbacks
// presenting the same state resolve to exactly one success.
type StateStore interface {
	// SaveState persists the state with the standard TTL.
	SaveState(ctx context.Context, state *domain.OAuthState) error

	// ConsumeState retrieves and removes the state in one step. A missing,
	// expired or already-consumed state returns domain.ErrAuthentication.
	ConsumeState(ctx context.Context, state string) (*domain.OAuthState, error)
}

// SessionStore holds opaque bearer sessions. Sessions expire passively via
// the store's TTL; Get must reject tokens past their expiry.
type SessionStore interface {
	SaveSession(ctx context.Context, session *domain.Session) error
	GetSession(ctx context.Context, token string) (*domain.Session, error)
}
