package application

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"platform-gateway-core/internal/domain"
	"platform-gateway-core/internal/metrics"
	"platform-gateway-core/internal/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// GdprService owns the compliance request lifecycle:
// pending -> processing -> completed|failed. Requests enter as pending via
// the webhook ingestor and are never deleted; terminal states are final.
type GdprService struct {
	requests      ports.GdprRequestRepository
	credentials   ports.CredentialRepository
	registrations ports.WebhookRegistrationRepository
	shopData      ports.ShopDataStore
	logger        zerolog.Logger
}

func NewGdprService(
	requests ports.GdprRequestRepository,
	credentials ports.CredentialRepository,
	registrations ports.WebhookRegistrationRepository,
	shopData ports.ShopDataStore,
	logger zerolog.Logger,
) *GdprService {
	return &GdprService{
		requests:      requests,
		credentials:   credentials,
		registrations: registrations,
		shopData:      shopData,
		logger:        logger,
	}
}

// gdprPayload is the shape Shopify sends for the three compliance topics.
type gdprPayload struct {
	ShopDomain string `json:"shop_domain"`
	Customer   struct {
		ID    json.Number `json:"id"`
		Email string      `json:"email"`
	} `json:"customer"`
}

// Accept records a new pending request from a verified delivery.
func (s *GdprService) Accept(ctx context.Context, kind domain.GdprKind, shopDomain string, payload json.RawMessage) (*domain.GdprRequest, error) {
	var p gdprPayload
	// Payload fields are best-effort; the headers already carry the shop.
	_ = json.Unmarshal(payload, &p)

	if p.ShopDomain != "" {
		shopDomain = p.ShopDomain
	}
	if shopDomain == "" {
		return nil, fmt.Errorf("gdpr payload missing shop domain: %w", domain.ErrInvalidInput)
	}

	req := &domain.GdprRequest{
		ID:             uuid.NewString(),
		Kind:           kind,
		ShopDomain:     shopDomain,
		CustomerID:     p.Customer.ID.String(),
		CustomerEmail:  p.Customer.Email,
		Status:         domain.GdprPending,
		RequestPayload: payload,
		CreatedAt:      time.Now(),
	}

	if err := s.requests.CreateRequest(ctx, req); err != nil {
		return nil, err
	}

	metrics.GdprTransitions.WithLabelValues(string(kind), string(domain.GdprPending)).Inc()
	s.logger.Info().
		Str("request_id", req.ID).
		Str("kind", string(kind)).
		Str("shop", shopDomain).
		Msg("GDPR request accepted")

	return req, nil
}

// Process drives one request through processing to a terminal state. A
// request that is no longer pending is left untouched: terminal states are
// never revisited, and re-processing happens only through a fresh inbound
// event, which creates a new request.
func (s *GdprService) Process(ctx context.Context, id string) error {
	req, err := s.requests.GetRequest(ctx, id)
	if err != nil {
		return err
	}
	if req.Status != domain.GdprPending {
		s.logger.Debug().
			Str("request_id", id).
			Str("status", string(req.Status)).
			Msg("GDPR request not pending, skipping")
		return nil
	}

	if err := s.transition(ctx, req, domain.GdprProcessing, ""); err != nil {
		return err
	}

	var procErr error
	switch req.Kind {
	case domain.GdprDataRequest:
		procErr = s.processDataRequest(ctx, req)
	case domain.GdprCustomerRedact:
		procErr = s.processCustomerRedact(ctx, req)
	case domain.GdprShopRedact:
		procErr = s.processShopRedact(ctx, req)
	default:
		procErr = fmt.Errorf("unknown gdpr kind %q", req.Kind)
	}

	if procErr != nil {
		// Failed requests are not retried automatically; a fresh delivery
		// or operator action re-runs the idempotent steps.
		s.logger.Error().
			Err(procErr).
			Str("request_id", req.ID).
			Str("kind", string(req.Kind)).
			Msg("GDPR request processing failed")
		if err := s.transition(ctx, req, domain.GdprFailed, procErr.Error()); err != nil {
			return err
		}
		return procErr
	}

	return s.transition(ctx, req, domain.GdprCompleted, "")
}

// processDataRequest marshals everything stored for the subject so it can be
// returned through the platform within the mandated window.
func (s *GdprService) processDataRequest(ctx context.Context, req *domain.GdprRequest) error {
	if req.CustomerID == "" {
		return fmt.Errorf("data request without customer id: %w", domain.ErrInvalidInput)
	}

	data, err := s.shopData.CollectCustomerData(ctx, req.ShopDomain, req.CustomerID)
	if err != nil {
		return err
	}

	s.logger.Info().
		Str("request_id", req.ID).
		Str("shop", req.ShopDomain).
		Str("customer_id", req.CustomerID).
		Int("bytes", len(data)).
		Msg("Customer data prepared for return")
	return nil
}

func (s *GdprService) processCustomerRedact(ctx context.Context, req *domain.GdprRequest) error {
	if req.CustomerID == "" {
		return fmt.Errorf("customer redact without customer id: %w", domain.ErrInvalidInput)
	}
	return s.shopData.DeleteCustomerData(ctx, req.ShopDomain, req.CustomerID)
}

// processShopRedact is the highest-blast-radius transition: it purges every
// record for the shop and nulls the stored credential. Each step is
// idempotent, so a partial failure moves the request to failed and a later
// delivery safely re-runs the purge.
func (s *GdprService) processShopRedact(ctx context.Context, req *domain.GdprRequest) error {
	if err := s.shopData.PurgeShopData(ctx, req.ShopDomain); err != nil {
		return err
	}
	if err := s.registrations.DeleteRegistrations(ctx, req.ShopDomain); err != nil {
		return err
	}
	if err := s.credentials.Redact(ctx, domain.ProviderShopify, req.ShopDomain); err != nil {
		return err
	}

	s.logger.Info().
		Str("request_id", req.ID).
		Str("shop", req.ShopDomain).
		Msg("Shop data purged and credential redacted")
	return nil
}

func (s *GdprService) transition(ctx context.Context, req *domain.GdprRequest, status domain.GdprStatus, failureReason string) error {
	if err := s.requests.UpdateStatus(ctx, req.ID, status, failureReason); err != nil {
		return err
	}
	req.Status = status
	metrics.GdprTransitions.WithLabelValues(string(req.Kind), string(status)).Inc()
	return nil
}
