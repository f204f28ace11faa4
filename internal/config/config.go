package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the process-wide configuration, loaded once and passed into each
// component at construction. It is never mutated after Load.
type Config struct {
	AppEnv   string
	HTTPAddr string

	// AppURL is the externally reachable base URL of this gateway, used for
	// OAuth redirect URIs and webhook registration addresses.
	AppURL string

	MongoURI      string
	MongoDatabase string

	RedisAddr     string
	RedisPassword string

	Shopify ShopifyConfig
	Google  GoogleConfig

	// WebhookAlwaysAck makes the webhook endpoint return 200 even when
	// persisting the event failed, trading retry storms for the risk of a
	// silently lost delivery. Off by default so the platform retries.
	WebhookAlwaysAck bool

	// UpstreamTimeout bounds outbound calls to provider token endpoints.
	UpstreamTimeout time.Duration
}

type ShopifyConfig struct {
	APIKey        string
	APISecret     string
	WebhookSecret string
	Scopes        []string
}

type GoogleConfig struct {
	ClientID     string
	ClientSecret string

	// TokenURL and Issuer are overridable for tests; defaults point at
	// Google's production endpoints.
	TokenURL string
	Issuer   string
}

func Load() Config {
	// Convenience for local dev: load variables from .env if present.
	// In production, rely on real environment variables.
	_ = godotenv.Load()

	httpAddr := os.Getenv("HTTP_ADDR")
	if httpAddr == "" {
		if port := os.Getenv("PORT"); port != "" {
			httpAddr = ":" + port
		} else {
			httpAddr = ":8080"
		}
	}

	return Config{
		AppEnv:   env("APP_ENV", "dev"),
		HTTPAddr: httpAddr,
		AppURL:   env("APP_URL", "http://localhost:8080"),

		MongoURI:      env("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDatabase: env("MONGODB_DATABASE", "gateway"),

		RedisAddr:     env("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		Shopify: ShopifyConfig{
			APIKey:        os.Getenv("SHOPIFY_API_KEY"),
			APISecret:     os.Getenv("SHOPIFY_API_SECRET"),
			WebhookSecret: os.Getenv("SHOPIFY_WEBHOOK_SECRET"),
			Scopes:        envList("SHOPIFY_SCOPES", "read_products,read_orders,read_customers"),
		},

		Google: GoogleConfig{
			ClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
			ClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
			TokenURL:     env("GOOGLE_TOKEN_URL", "https://oauth2.googleapis.com/token"),
			Issuer:       env("GOOGLE_ISSUER", "https://accounts.google.com"),
		},

		WebhookAlwaysAck: os.Getenv("WEBHOOK_ALWAYS_ACK") == "true",
		UpstreamTimeout:  15 * time.Second,
	}
}

func env(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func envList(key, fallbackCSV string) []string {
	v := os.Getenv(key)
	if v == "" {
		v = fallbackCSV
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
