package redisstore

import (
	"context"
	"encoding/json"
	"fmt"

	"platform-gateway-core/internal/domain"
	"platform-gateway-core/internal/ports"

	"github.com/redis/go-redis/v9"
)

const statePrefix = "oauth_state:"

// StateStore holds issued OAuth states in Redis. TTL handles expiry; GETDEL
// makes consumption atomic, so two concurrent callbacks presenting the same
// state resolve to exactly one success.
type StateStore struct {
	client *redis.Client
}

func NewStateStore(client *redis.Client) *StateStore {
	return &StateStore{client: client}
}

func (s *StateStore) SaveState(ctx context.Context, state *domain.OAuthState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	if err := s.client.Set(ctx, statePrefix+state.State, data, domain.StateTTL).Err(); err != nil {
		return fmt.Errorf("failed to save state: %w", domain.ErrPersistence)
	}
	return nil
}

func (s *StateStore) ConsumeState(ctx context.Context, state string) (*domain.OAuthState, error) {
	data, err := s.client.GetDel(ctx, statePrefix+state).Bytes()
	if err == redis.Nil {
		return nil, fmt.Errorf("state missing, expired or already used: %w", domain.ErrAuthentication)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to consume state: %w", domain.ErrPersistence)
	}

	var st domain.OAuthState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state: %w", err)
	}
	return &st, nil
}

var _ ports.StateStore = (*StateStore)(nil)
