package shopify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"platform-gateway-core/internal/domain"
	"platform-gateway-core/internal/ports"

	goshopify "github.com/bold-commerce/go-shopify/v4"
	"github.com/rs/zerolog"
)

type client struct {
	apiKey      string
	apiSecret   string
	app         goshopify.App
	rateLimiter *RateLimiter
	retryConfig RetryConfig
	httpClient  *http.Client
	logger      zerolog.Logger
}

// NewClient creates a Shopify API adapter with the default rate limiter and
// retry policy.
func NewClient(apiKey, apiSecret string, timeout time.Duration, logger zerolog.Logger) ports.ShopifyClient {
	return NewClientWithOptions(apiKey, apiSecret, NewRateLimiter(logger), DefaultRetryConfig(), timeout, logger)
}

// NewClientWithOptions creates a Shopify API adapter. Outbound calls are
// spaced by rateLimiter, retried per retryConfig, bounded by timeout, and
// fail closed as domain.ErrUpstream.
func NewClientWithOptions(
	apiKey, apiSecret string,
	rateLimiter *RateLimiter,
	retryConfig RetryConfig,
	timeout time.Duration,
	logger zerolog.Logger,
) ports.ShopifyClient {
	app := goshopify.App{
		ApiKey:    apiKey,
		ApiSecret: apiSecret,
	}
	return &client{
		apiKey:      apiKey,
		apiSecret:   apiSecret,
		app:         app,
		rateLimiter: rateLimiter,
		retryConfig: retryConfig,
		httpClient:  &http.Client{Timeout: timeout},
		logger:      logger,
	}
}

func (c *client) createClient(shopDomain string, accessToken string) (*goshopify.Client, error) {
	cl, err := goshopify.NewClient(c.app, shopDomain, accessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return cl, nil
}

// withRetry takes the shop's rate-limit slot and runs op, retrying transient
// failures with exponential backoff up to MaxAttempts. Permanent failures
// and context cancellation stop the loop immediately.
func (c *client) withRetry(ctx context.Context, shop string, op func() error) error {
	backoff := c.retryConfig.InitialBackoff
	var err error
	for attempt := 1; ; attempt++ {
		if c.rateLimiter != nil {
			if werr := c.rateLimiter.Wait(ctx, shop); werr != nil {
				return werr
			}
		}

		if err = op(); err == nil {
			return nil
		}

		var perm *permanentError
		if errors.As(err, &perm) {
			return perm.err
		}
		if attempt >= c.retryConfig.MaxAttempts {
			return err
		}

		c.logger.Warn().
			Err(err).
			Str("shop", shop).
			Int("attempt", attempt).
			Msg("Platform call failed, retrying")

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
		if backoff *= 2; backoff > c.retryConfig.MaxBackoff {
			backoff = c.retryConfig.MaxBackoff
		}
	}
}

func (c *client) GenerateAuthURL(shop string, scopes []string, redirectURI string, state string) (string, error) {
	// Shopify expects scopes comma-separated, no spaces.
	scopesStr := strings.Join(scopes, ",")

	authURL := fmt.Sprintf(
		"https://%s/admin/oauth/authorize?client_id=%s&scope=%s&redirect_uri=%s&state=%s",
		shop,
		c.apiKey,
		url.QueryEscape(scopesStr),
		url.QueryEscape(redirectURI),
		url.QueryEscape(state),
	)

	c.logger.Info().
		Str("shop", shop).
		Str("scopes", scopesStr).
		Msg("Generated OAuth authorization URL")

	return authURL, nil
}

func (c *client) ExchangeToken(ctx context.Context, shop string, code string) (string, error) {
	var accessToken string
	err := c.withRetry(ctx, shop, func() error {
		token, err := c.exchangeTokenOnce(ctx, shop, code)
		if err != nil {
			return err
		}
		accessToken = token
		return nil
	})
	return accessToken, err
}

func (c *client) exchangeTokenOnce(ctx context.Context, shop string, code string) (string, error) {
	tokenURL := fmt.Sprintf("https://%s/admin/oauth/access_token", shop)

	values := url.Values{}
	values.Set("client_id", c.apiKey)
	values.Set("client_secret", c.apiSecret)
	values.Set("code", code)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(values.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token exchange request failed: %w", domain.ErrUpstream)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Body is discarded deliberately: it can echo the code and must
		// not reach callers.
		_, _ = io.Copy(io.Discard, resp.Body)
		err := fmt.Errorf("token exchange returned status %d: %w", resp.StatusCode, domain.ErrUpstream)
		// A rejected code stays rejected; only throttling and server
		// failures are worth another attempt.
		if resp.StatusCode != http.StatusTooManyRequests && resp.StatusCode < 500 {
			return "", &permanentError{err: err}
		}
		return "", err
	}

	var tokenResponse struct {
		AccessToken string `json:"access_token"`
		Scope       string `json:"scope"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResponse); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", domain.ErrUpstream)
	}
	if tokenResponse.AccessToken == "" {
		return "", &permanentError{err: fmt.Errorf("token exchange returned empty access_token: %w", domain.ErrUpstream)}
	}

	return tokenResponse.AccessToken, nil
}

func (c *client) GetShop(ctx context.Context, shopDomain string, accessToken string) (*goshopify.Shop, error) {
	cl, err := c.createClient(shopDomain, accessToken)
	if err != nil {
		return nil, err
	}

	var shop *goshopify.Shop
	err = c.withRetry(ctx, shopDomain, func() error {
		s, err := cl.Shop.Get(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to get shop: %w", domain.ErrUpstream)
		}
		shop = s
		return nil
	})
	return shop, err
}

func (c *client) CreateWebhook(ctx context.Context, shopDomain string, accessToken string, topic string, address string) (*goshopify.Webhook, error) {
	cl, err := c.createClient(shopDomain, accessToken)
	if err != nil {
		return nil, err
	}
	webhook := goshopify.Webhook{
		Topic:   topic,
		Address: address,
		Format:  "json",
	}

	var created *goshopify.Webhook
	err = c.withRetry(ctx, shopDomain, func() error {
		w, err := cl.Webhook.Create(ctx, webhook)
		if err != nil {
			return fmt.Errorf("failed to create webhook for topic %s: %w", topic, domain.ErrUpstream)
		}
		created = w
		return nil
	})
	return created, err
}

func (c *client) ListWebhooks(ctx context.Context, shopDomain string, accessToken string) ([]goshopify.Webhook, error) {
	cl, err := c.createClient(shopDomain, accessToken)
	if err != nil {
		return nil, err
	}

	var webhooks []goshopify.Webhook
	err = c.withRetry(ctx, shopDomain, func() error {
		ws, err := cl.Webhook.List(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to list webhooks: %w", domain.ErrUpstream)
		}
		webhooks = ws
		return nil
	})
	return webhooks, err
}

func (c *client) DeleteWebhook(ctx context.Context, shopDomain string, accessToken string, webhookID int64) error {
	cl, err := c.createClient(shopDomain, accessToken)
	if err != nil {
		return err
	}
	return c.withRetry(ctx, shopDomain, func() error {
		if err := cl.Webhook.Delete(ctx, uint64(webhookID)); err != nil {
			return fmt.Errorf("failed to delete webhook: %w", domain.ErrUpstream)
		}
		return nil
	})
}
