package application

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"platform-gateway-core/internal/domain"
	"platform-gateway-core/internal/ports"

	"github.com/rs/zerolog"
)

// SessionService mints opaque bearer sessions after a verified identity
// exchange and validates them for downstream requests.
type SessionService struct {
	sessions    ports.SessionStore
	credentials ports.CredentialRepository
	logger      zerolog.Logger
}

func NewSessionService(
	sessions ports.SessionStore,
	credentials ports.CredentialRepository,
	logger zerolog.Logger,
) *SessionService {
	return &SessionService{
		sessions:    sessions,
		credentials: credentials,
		logger:      logger,
	}
}

// SaveIdentityInput carries a verified user profile plus the tokens issued
// for it.
type SaveIdentityInput struct {
	UserID       string
	Email        string
	AccessToken  string
	RefreshToken string
	ExpiresIn    int
	Scopes       []string
}

// SaveIdentity persists the user's credential and mints a 24-hour session.
func (s *SessionService) SaveIdentity(ctx context.Context, input SaveIdentityInput) (*domain.Session, error) {
	if input.UserID == "" || input.AccessToken == "" {
		return nil, fmt.Errorf("userId and accessToken are required: %w", domain.ErrInvalidInput)
	}

	now := time.Now()
	expiresAt := now.Add(time.Duration(input.ExpiresIn) * time.Second)
	cred := &domain.ShopCredential{
		Provider:       domain.ProviderGoogle,
		ExternalID:     input.UserID,
		AccessToken:    input.AccessToken,
		RefreshToken:   input.RefreshToken,
		TokenExpiresAt: &expiresAt,
		Scopes:         input.Scopes,
		Status:         domain.CredentialActive,
	}
	if err := s.credentials.SaveCredential(ctx, cred); err != nil {
		return nil, err
	}

	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return nil, fmt.Errorf("failed to generate session token: %w", err)
	}

	session := &domain.Session{
		Token:     base64.RawURLEncoding.EncodeToString(tokenBytes),
		UserID:    input.UserID,
		Email:     input.Email,
		ExpiresAt: now.Add(domain.SessionTTL),
		CreatedAt: now,
	}
	if err := s.sessions.SaveSession(ctx, session); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("user_id", input.UserID).
		Msg("Session created")
	return session, nil
}

// ValidateSession resolves a bearer token; missing or expired tokens fail
// with an authentication error.
func (s *SessionService) ValidateSession(ctx context.Context, token string) (*domain.Session, error) {
	if token == "" {
		return nil, fmt.Errorf("missing session token: %w", domain.ErrAuthentication)
	}
	return s.sessions.GetSession(ctx, token)
}
