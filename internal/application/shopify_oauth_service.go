package application

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"platform-gateway-core/internal/domain"
	"platform-gateway-core/internal/infrastructure/shopify"
	"platform-gateway-core/internal/metrics"
	"platform-gateway-core/internal/ports"

	"github.com/rs/zerolog"
)

// defaultWebhookTopics are registered with the shop after installation.
// The compliance topics are mandatory for a public app.
var defaultWebhookTopics = []string{
	"app/uninstalled",
	"orders/create",
	"customers/data_request",
	"customers/redact",
	"shop/redact",
}

// ShopifyOAuthService runs the install handshake: state issuance for the
// authorize redirect, then state consumption and code exchange on the
// callback. The issued state is single-use and bound to the shop it was
// issued for.
type ShopifyOAuthService struct {
	states        ports.StateStore
	credentials   ports.CredentialRepository
	registrations ports.WebhookRegistrationRepository
	client        ports.ShopifyClient
	scopes        []string
	appURL        string
	logger        zerolog.Logger
}

func NewShopifyOAuthService(
	states ports.StateStore,
	credentials ports.CredentialRepository,
	registrations ports.WebhookRegistrationRepository,
	client ports.ShopifyClient,
	scopes []string,
	appURL string,
	logger zerolog.Logger,
) *ShopifyOAuthService {
	return &ShopifyOAuthService{
		states:        states,
		credentials:   credentials,
		registrations: registrations,
		client:        client,
		scopes:        scopes,
		appURL:        appURL,
		logger:        logger,
	}
}

// AuthBegin is the result of starting an authorization flow.
type AuthBegin struct {
	Shop         string `json:"shop"`
	State        string `json:"state"`
	AuthorizeURL string `json:"authorize_url"`
}

// BeginAuth normalizes the shop, issues a fresh state and builds the
// authorize URL embedding it.
func (s *ShopifyOAuthService) BeginAuth(ctx context.Context, shopInput string) (*AuthBegin, error) {
	shop, err := shopify.NormalizeShopDomain(shopInput)
	if err != nil {
		return nil, err
	}

	stateBytes := make([]byte, 16)
	if _, err := rand.Read(stateBytes); err != nil {
		return nil, fmt.Errorf("failed to generate state: %w", err)
	}
	state := hex.EncodeToString(stateBytes)

	if err := s.states.SaveState(ctx, &domain.OAuthState{
		State:     state,
		Shop:      shop,
		CreatedAt: time.Now(),
	}); err != nil {
		return nil, err
	}

	redirectURI := s.appURL + "/auth/shopify/callback"
	authURL, err := s.client.GenerateAuthURL(shop, s.scopes, redirectURI, state)
	if err != nil {
		return nil, err
	}

	return &AuthBegin{Shop: shop, State: state, AuthorizeURL: authURL}, nil
}

// CompleteAuth consumes the callback. The state is checked and spent before
// any token exchange: a missing, expired, reused or shop-mismatched state is
// an authentication failure.
func (s *ShopifyOAuthService) CompleteAuth(ctx context.Context, shop, code, state string) (*domain.ShopCredential, error) {
	if shop == "" || code == "" || state == "" {
		return nil, fmt.Errorf("shop, code and state are required: %w", domain.ErrInvalidInput)
	}

	st, err := s.states.ConsumeState(ctx, state)
	if err != nil {
		metrics.OAuthExchanges.WithLabelValues(domain.ProviderShopify, "rejected").Inc()
		return nil, err
	}
	if st.Shop != shop {
		metrics.OAuthExchanges.WithLabelValues(domain.ProviderShopify, "rejected").Inc()
		return nil, fmt.Errorf("state issued for a different shop: %w", domain.ErrAuthentication)
	}

	accessToken, err := s.client.ExchangeToken(ctx, shop, code)
	if err != nil {
		metrics.OAuthExchanges.WithLabelValues(domain.ProviderShopify, "error").Inc()
		return nil, err
	}

	// Canonicalize the stored record against the platform's own view of
	// the shop.
	externalID := shop
	if info, err := s.client.GetShop(ctx, shop, accessToken); err != nil {
		s.logger.Warn().Err(err).Str("shop", shop).Msg("Shop lookup after exchange failed")
	} else if info.MyshopifyDomain != "" {
		externalID = info.MyshopifyDomain
	}

	cred := &domain.ShopCredential{
		Provider:    domain.ProviderShopify,
		ExternalID:  externalID,
		AccessToken: accessToken,
		Scopes:      s.scopes,
		Status:      domain.CredentialActive,
	}
	if err := s.credentials.SaveCredential(ctx, cred); err != nil {
		metrics.OAuthExchanges.WithLabelValues(domain.ProviderShopify, "error").Inc()
		return nil, err
	}

	metrics.OAuthExchanges.WithLabelValues(domain.ProviderShopify, "success").Inc()
	s.logger.Info().
		Str("shop", externalID).
		Strs("scopes", s.scopes).
		Msg("Shopify install completed")

	s.registerWebhooks(ctx, externalID, accessToken)

	return cred, nil
}

// registerWebhooks subscribes the default topics and records each successful
// subscription locally, giving reconciliation against ListWebhooks a stored
// baseline. Registration failures do not fail the install; the shop is
// connected and missing topics show up as gaps against that baseline.
func (s *ShopifyOAuthService) registerWebhooks(ctx context.Context, shop, accessToken string) {
	address := s.appURL + "/webhooks/shopify"
	for _, topic := range defaultWebhookTopics {
		created, err := s.client.CreateWebhook(ctx, shop, accessToken, topic, address)
		if err != nil {
			s.logger.Warn().
				Err(err).
				Str("shop", shop).
				Str("topic", topic).
				Msg("Webhook registration failed")
			continue
		}

		reg := &domain.WebhookRegistration{
			ShopDomain: shop,
			Topic:      topic,
			Address:    address,
			PlatformID: int64(created.Id),
			CreatedAt:  time.Now(),
		}
		if err := s.registrations.SaveRegistration(ctx, reg); err != nil {
			s.logger.Warn().
				Err(err).
				Str("shop", shop).
				Str("topic", topic).
				Msg("Failed to record webhook registration")
			continue
		}

		s.logger.Info().
			Str("shop", shop).
			Str("topic", topic).
			Msg("Webhook registered")
	}
}
