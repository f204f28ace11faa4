package application

import (
	"context"
	"strings"
	"time"

	"platform-gateway-core/internal/domain"
	"platform-gateway-core/internal/metrics"
	"platform-gateway-core/internal/ports"

	"github.com/rs/zerolog"
)

// GoogleOAuthService orchestrates code and refresh exchanges against the
// Google token endpoint and persists the resulting credential.
type GoogleOAuthService struct {
	exchanger   ports.GoogleTokenExchanger
	credentials ports.CredentialRepository
	logger      zerolog.Logger
}

func NewGoogleOAuthService(
	exchanger ports.GoogleTokenExchanger,
	credentials ports.CredentialRepository,
	logger zerolog.Logger,
) *GoogleOAuthService {
	return &GoogleOAuthService{
		exchanger:   exchanger,
		credentials: credentials,
		logger:      logger,
	}
}

// ExchangeCode runs the authorization-code + PKCE exchange. When the
// validated ID token identifies the subject, the issued tokens are persisted
// as that user's credential.
func (s *GoogleOAuthService) ExchangeCode(ctx context.Context, code, codeVerifier, redirectURI string) (*ports.GoogleToken, error) {
	token, err := s.exchanger.ExchangeCode(ctx, code, codeVerifier, redirectURI)
	if err != nil {
		metrics.OAuthExchanges.WithLabelValues(domain.ProviderGoogle, outcomeFor(err)).Inc()
		return nil, err
	}

	if token.Subject != "" {
		expiresAt := time.Now().Add(time.Duration(token.ExpiresIn) * time.Second)
		cred := &domain.ShopCredential{
			Provider:       domain.ProviderGoogle,
			ExternalID:     token.Subject,
			AccessToken:    token.AccessToken,
			RefreshToken:   token.RefreshToken,
			TokenExpiresAt: &expiresAt,
			Scopes:         splitScopes(token.Scope),
			Status:         domain.CredentialActive,
		}
		if err := s.credentials.SaveCredential(ctx, cred); err != nil {
			metrics.OAuthExchanges.WithLabelValues(domain.ProviderGoogle, "error").Inc()
			return nil, err
		}
	}

	metrics.OAuthExchanges.WithLabelValues(domain.ProviderGoogle, "success").Inc()
	return token, nil
}

// Refresh exchanges a refresh token for a new access token. The provider
// may omit a new refresh token; the caller's existing one stays valid, so
// the returned result carries it forward rather than discarding it.
func (s *GoogleOAuthService) Refresh(ctx context.Context, refreshToken string) (*ports.GoogleToken, error) {
	token, err := s.exchanger.Refresh(ctx, refreshToken)
	if err != nil {
		metrics.OAuthExchanges.WithLabelValues(domain.ProviderGoogle, outcomeFor(err)).Inc()
		return nil, err
	}

	if token.RefreshToken == "" {
		token.RefreshToken = refreshToken
	}

	metrics.OAuthExchanges.WithLabelValues(domain.ProviderGoogle, "success").Inc()
	return token, nil
}

func outcomeFor(err error) string {
	switch {
	case err == nil:
		return "success"
	default:
		return "error"
	}
}

func splitScopes(scope string) []string {
	if scope == "" {
		return nil
	}
	return strings.Fields(scope)
}
