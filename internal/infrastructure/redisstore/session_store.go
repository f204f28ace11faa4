package redisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"platform-gateway-core/internal/domain"
	"platform-gateway-core/internal/ports"

	"github.com/redis/go-redis/v9"
)

const sessionPrefix = "session:"

// SessionStore holds opaque bearer sessions in Redis, expiring passively via
// the key TTL.
type SessionStore struct {
	client *redis.Client
}

func NewSessionStore(client *redis.Client) *SessionStore {
	return &SessionStore{client: client}
}

func (s *SessionStore) SaveSession(ctx context.Context, session *domain.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("session already expired: %w", domain.ErrInvalidInput)
	}

	if err := s.client.Set(ctx, sessionPrefix+session.Token, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save session: %w", domain.ErrPersistence)
	}
	return nil
}

func (s *SessionStore) GetSession(ctx context.Context, token string) (*domain.Session, error) {
	data, err := s.client.Get(ctx, sessionPrefix+token).Bytes()
	if err == redis.Nil {
		return nil, fmt.Errorf("session missing or expired: %w", domain.ErrAuthentication)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", domain.ErrPersistence)
	}

	var sess domain.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}

	// TTL is the primary expiry; the explicit check guards clock drift
	// between writers.
	if !sess.ExpiresAt.After(time.Now()) {
		return nil, fmt.Errorf("session expired: %w", domain.ErrAuthentication)
	}

	sess.Token = token
	return &sess, nil
}

var _ ports.SessionStore = (*SessionStore)(nil)
