package webhook_handlers

import (
	"context"
	"encoding/json"
	"fmt"

	"platform-gateway-core/internal/domain"
	"platform-gateway-core/internal/ports"

	"github.com/rs/zerolog"
)

// AppUninstalledHandler marks the owning credential uninstalled and drops
// the shop's recorded webhook registrations when the shop removes the app.
// Tokens are kept on the record for audit; only a shop redaction nulls them.
type AppUninstalledHandler struct {
	logger        zerolog.Logger
	credentials   ports.CredentialRepository
	registrations ports.WebhookRegistrationRepository
}

func NewAppUninstalledHandler(
	logger zerolog.Logger,
	credentials ports.CredentialRepository,
	registrations ports.WebhookRegistrationRepository,
) *AppUninstalledHandler {
	return &AppUninstalledHandler{
		logger:        logger,
		credentials:   credentials,
		registrations: registrations,
	}
}

func (h *AppUninstalledHandler) CanHandle(topic string) bool {
	return topic == "app/uninstalled"
}

func (h *AppUninstalledHandler) Handle(ctx context.Context, event *domain.WebhookEvent) error {
	shopDomain := event.ShopDomain
	if shopDomain == "" {
		var shopData map[string]any
		if err := json.Unmarshal(event.Payload, &shopData); err == nil {
			if d, ok := shopData["domain"].(string); ok {
				shopDomain = d
			} else if d, ok := shopData["myshopify_domain"].(string); ok {
				shopDomain = d
			}
		}
	}
	if shopDomain == "" {
		return fmt.Errorf("app uninstalled event without shop domain: %w", domain.ErrInvalidInput)
	}

	if err := h.credentials.MarkUninstalled(ctx, domain.ProviderShopify, shopDomain); err != nil {
		return err
	}

	// The platform drops its subscriptions on uninstall; the local records
	// would otherwise read as registered topics on a shop without the app.
	if err := h.registrations.DeleteRegistrations(ctx, shopDomain); err != nil {
		h.logger.Warn().
			Err(err).
			Str("shop", shopDomain).
			Msg("Failed to delete webhook registrations")
	}

	h.logger.Info().
		Str("shop", shopDomain).
		Msg("Shop credential marked uninstalled")
	return nil
}
