package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"time"

	"platform-gateway-core/internal/api"
	"platform-gateway-core/internal/application"
	"platform-gateway-core/internal/application/webhook_handlers"
	"platform-gateway-core/internal/config"
	"platform-gateway-core/internal/domain"
	googleinfra "platform-gateway-core/internal/infrastructure/google"
	securitymiddleware "platform-gateway-core/internal/infrastructure/middleware"
	"platform-gateway-core/internal/infrastructure/pubsub"
	"platform-gateway-core/internal/infrastructure/redisstore"
	"platform-gateway-core/internal/infrastructure/repository"
	shopifyinfra "platform-gateway-core/internal/infrastructure/shopify"
	"platform-gateway-core/internal/ports"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg := config.Load()

	// Connect to MongoDB
	mongoCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(mongoCtx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to MongoDB")
	}
	defer client.Disconnect(context.Background())

	db := client.Database(cfg.MongoDatabase)
	if err := repository.EnsureIndexes(mongoCtx, db); err != nil {
		logger.Fatal().Err(err).Msg("Failed to ensure indexes")
	}

	// Connect to Redis (OAuth states, sessions)
	redisClient := goredis.NewClient(&goredis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	defer redisClient.Close()

	// Repositories and stores
	credentialRepo := repository.NewMongoCredentialRepository(db)
	eventRepo := repository.NewMongoWebhookEventRepository(db)
	gdprRepo := repository.NewMongoGdprRequestRepository(db)
	registrationRepo := repository.NewMongoWebhookRegistrationRepository(db)
	shopDataStore := repository.NewMongoShopDataStore(db)
	stateStore := redisstore.NewStateStore(redisClient)
	sessionStore := redisstore.NewSessionStore(redisClient)

	// Outbound clients. Shopify calls go through a per-shop rate limiter
	// and bounded retries.
	rateLimiter := shopifyinfra.NewRateLimiter(logger)
	retryConfig := shopifyinfra.DefaultRetryConfig()
	shopifyClient := shopifyinfra.NewClientWithOptions(cfg.Shopify.APIKey, cfg.Shopify.APISecret, rateLimiter, retryConfig, cfg.UpstreamTimeout, logger)
	googleClient := googleinfra.NewOAuthClient(googleinfra.Config{
		ClientID:     cfg.Google.ClientID,
		ClientSecret: cfg.Google.ClientSecret,
		TokenURL:     cfg.Google.TokenURL,
		Issuer:       cfg.Google.Issuer,
	}, cfg.UpstreamTimeout, logger)

	// Application services
	gdprService := application.NewGdprService(gdprRepo, credentialRepo, registrationRepo, shopDataStore, logger)
	shopifyOAuth := application.NewShopifyOAuthService(stateStore, credentialRepo, registrationRepo, shopifyClient, cfg.Shopify.Scopes, cfg.AppURL, logger)
	googleOAuth := application.NewGoogleOAuthService(googleClient, credentialRepo, logger)
	sessionService := application.NewSessionService(sessionStore, credentialRepo, logger)

	// Webhook dispatch table: adding a topic means registering a handler
	// here, reviewably.
	dispatcher := application.NewWebhookDispatcher(logger)
	dispatcher.RegisterHandler(webhook_handlers.NewAppUninstalledHandler(logger, credentialRepo, registrationRepo))
	dispatcher.RegisterHandler(webhook_handlers.NewGdprHandler(logger, gdprService))
	dispatcher.RegisterHandler(webhook_handlers.NewOrderHandler(logger))

	webhookPubSub := pubsub.NewWebhookPubSub(logger)
	verifier := shopifyinfra.NewWebhookVerifier(cfg.Shopify.WebhookSecret)
	webhookService := application.NewWebhookService(verifier, eventRepo, dispatcher, webhookPubSub, logger)

	// Router
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(securitymiddleware.SecurityHeaders())
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
	r.Get("/swagger/doc.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		http.ServeFile(w, r, "./docs/swagger.json")
	})

	r.Post("/webhooks/shopify", webhookHandler(webhookService, cfg.WebhookAlwaysAck, logger))
	r.Get("/auth/shopify", shopifyAuthStartHandler(shopifyOAuth, logger))
	r.Get("/auth/shopify/callback", shopifyAuthCallbackHandler(shopifyOAuth, logger))
	r.Post("/auth/google/token", googleTokenHandler(googleOAuth, logger))
	r.Post("/auth/google/save", identitySaveHandler(sessionService, logger))
	r.Get("/sessions/validate", sessionValidateHandler(sessionService))

	logger.Info().Str("addr", cfg.HTTPAddr).Msg("Starting API server")
	if err := http.ListenAndServe(cfg.HTTPAddr, r); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start server")
	}
}

// webhookHandler authenticates and ingests one platform delivery. Verified
// deliveries are acknowledged even when a side effect failed; re-delivery is
// the retry mechanism. alwaysAck additionally swallows persistence failures
// to avoid upstream retry storms, at the risk of silently losing a delivery.
func webhookHandler(service *application.WebhookService, alwaysAck bool, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "failed to read request body")
			return
		}
		defer r.Body.Close()

		outcome, err := service.Ingest(r.Context(), application.InboundDelivery{
			WebhookID:  r.Header.Get("X-Shopify-Webhook-Id"),
			Topic:      r.Header.Get("X-Shopify-Topic"),
			ShopDomain: r.Header.Get("X-Shopify-Shop-Domain"),
			Signature:  r.Header.Get("X-Shopify-Hmac-SHA256"),
			Body:       body,
		})
		if err != nil {
			if errors.Is(err, domain.ErrAuthentication) || errors.Is(err, domain.ErrInvalidInput) {
				api.WriteDomainError(w, err)
				return
			}
			if alwaysAck {
				logger.Error().Err(err).Msg("Webhook persistence failed, acknowledging anyway")
				api.WriteJSON(w, http.StatusOK, map[string]string{"received": "true"})
				return
			}
			api.WriteDomainError(w, err)
			return
		}

		api.WriteJSON(w, http.StatusOK, map[string]string{
			"received":  "true",
			"duplicate": boolString(outcome.Duplicate),
		})
	}
}

func shopifyAuthStartHandler(service *application.ShopifyOAuthService, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		shop := r.URL.Query().Get("shop")
		if shop == "" {
			api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "shop parameter is required")
			return
		}

		begin, err := service.BeginAuth(r.Context(), shop)
		if err != nil {
			logger.Error().Err(err).Str("shop", shop).Msg("Failed to begin auth")
			api.WriteDomainError(w, err)
			return
		}

		// mode=json returns the authorize URL for callers that manage
		// their own redirect; the default is a 302.
		if r.URL.Query().Get("mode") == "json" {
			api.WriteJSON(w, http.StatusOK, begin)
			return
		}
		http.Redirect(w, r, begin.AuthorizeURL, http.StatusFound)
	}
}

func shopifyAuthCallbackHandler(service *application.ShopifyOAuthService, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		cred, err := service.CompleteAuth(r.Context(), q.Get("shop"), q.Get("code"), q.Get("state"))
		if err != nil {
			logger.Error().Err(err).Str("shop", q.Get("shop")).Msg("OAuth callback failed")
			api.WriteDomainError(w, err)
			return
		}

		api.WriteJSON(w, http.StatusOK, map[string]any{
			"installed": true,
			"shop":      cred.ExternalID,
			"scopes":    cred.Scopes,
		})
	}
}

// googleTokenRequest accepts either a code + PKCE exchange or a refresh
// exchange, discriminated by which fields are present.
type googleTokenRequest struct {
	Code         string `json:"code"`
	CodeVerifier string `json:"codeVerifier"`
	RedirectURI  string `json:"redirectUri"`
	RefreshToken string `json:"refreshToken"`
}

func googleTokenHandler(service *application.GoogleOAuthService, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req googleTokenRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeTokenError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		var (
			token *googleTokenResult
			err   error
		)
		if req.RefreshToken != "" {
			res, rerr := service.Refresh(r.Context(), req.RefreshToken)
			token, err = wrapTokenResult(res), rerr
		} else {
			res, eerr := service.ExchangeCode(r.Context(), req.Code, req.CodeVerifier, req.RedirectURI)
			token, err = wrapTokenResult(res), eerr
		}

		if err != nil {
			logger.Error().Err(err).Msg("Google token exchange failed")
			switch {
			case errors.Is(err, domain.ErrInvalidInput):
				writeTokenError(w, http.StatusBadRequest, "missing or malformed parameters")
			case errors.Is(err, domain.ErrAuthentication):
				writeTokenError(w, http.StatusUnauthorized, "identity token validation failed")
			default:
				writeTokenError(w, http.StatusInternalServerError, "token exchange failed")
			}
			return
		}

		api.WriteJSON(w, http.StatusOK, token)
	}
}

type googleTokenResult struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int    `json:"expires_in"`
	TokenType    string `json:"token_type"`
	Scope        string `json:"scope"`
}

func wrapTokenResult(t *ports.GoogleToken) *googleTokenResult {
	if t == nil {
		return nil
	}
	return &googleTokenResult{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		ExpiresIn:    t.ExpiresIn,
		TokenType:    t.TokenType,
		Scope:        t.Scope,
	}
}

func writeTokenError(w http.ResponseWriter, status int, message string) {
	api.WriteJSON(w, status, map[string]any{
		"success": false,
		"message": message,
	})
}

type identitySaveRequest struct {
	UserID       string   `json:"user_id"`
	Email        string   `json:"email"`
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	ExpiresIn    int      `json:"expires_in"`
	Scopes       []string `json:"scopes"`
}

func identitySaveHandler(service *application.SessionService, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req identitySaveRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "invalid request body")
			return
		}

		session, err := service.SaveIdentity(r.Context(), application.SaveIdentityInput{
			UserID:       req.UserID,
			Email:        req.Email,
			AccessToken:  req.AccessToken,
			RefreshToken: req.RefreshToken,
			ExpiresIn:    req.ExpiresIn,
			Scopes:       req.Scopes,
		})
		if err != nil {
			logger.Error().Err(err).Msg("Identity save failed")
			api.WriteDomainError(w, err)
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     "session_token",
			Value:    session.Token,
			Path:     "/",
			MaxAge:   int(domain.SessionTTL.Seconds()),
			HttpOnly: true,
			Secure:   true,
			SameSite: http.SameSiteStrictMode,
		})
		api.WriteJSON(w, http.StatusOK, map[string]any{
			"session_token": session.Token,
			"expires_at":    session.ExpiresAt,
		})
	}
}

func sessionValidateHandler(service *application.SessionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			if c, err := r.Cookie("session_token"); err == nil {
				token = c.Value
			}
		}

		session, err := service.ValidateSession(r.Context(), token)
		if err != nil {
			api.WriteDomainError(w, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, session)
	}
}

func bearerToken(r *http.Request) string {
	const prefix = "Bearer "
	h := r.Header.Get("Authorization")
	if len(h) > len(prefix) && h[:len(prefix)] == prefix {
		return h[len(prefix):]
	}
	return ""
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
