package ports

import (
	"context"

	shopify "github.com/bold-commerce/go-shopify/v4"
)

// ShopifyClient is the slice of the Shopify Admin API the gateway needs:
// the OAuth handshake, a shop lookup to canonicalize the stored record, and
// webhook subscription management after installation.
type ShopifyClient interface {
	GenerateAuthURL(shop string, scopes []string, redirectURI string, state string) (string, error)
	ExchangeToken(ctx context.Context, shop string, code string) (string, error)

	GetShop(ctx context.Context, shop string, accessToken string) (*shopify.Shop, error)

	CreateWebhook(ctx context.Context, shop string, accessToken string, topic string, address string) (*shopify.Webhook, error)
	ListWebhooks(ctx context.Context, shop string, accessToken string) ([]shopify.Webhook, error)
	DeleteWebhook(ctx context.Context, shop string, accessToken string, webhookID int64) error
}

// GoogleTokenExchanger is the outbound contract for the Google token
// endpoint: authorization-code + PKCE exchange and refresh exchange.
type GoogleTokenExchanger interface {
	ExchangeCode(ctx context.Context, code, codeVerifier, redirectURI string) (*GoogleToken, error)
	Refresh(ctx context.Context, refreshToken string) (*GoogleToken, error)
}

// GoogleToken is the validated result of a token-endpoint exchange. Subject
// and Email are populated from the ID token when one was returned.
type GoogleToken struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int
	TokenType    string
	Scope        string
	Subject      string
	Email        string
}
