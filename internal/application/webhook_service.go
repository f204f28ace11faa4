package application

import (
	"context"
	"fmt"
	"time"

	"platform-gateway-core/internal/domain"
	"platform-gateway-core/internal/metrics"
	"platform-gateway-core/internal/ports"

	"github.com/rs/zerolog"
)

// Verifier checks a raw webhook body against its signature header.
type Verifier interface {
	Verify(body []byte, providedBase64 string) error
}

// EventPublisher receives accepted events for in-process streaming.
type EventPublisher interface {
	Publish(event *domain.WebhookEvent)
}

// InboundDelivery is one webhook request as received at the boundary: raw
// body plus the platform headers. Body must be the bytes as read from the
// wire, captured before any parsing.
type InboundDelivery struct {
	WebhookID  string
	Topic      string
	ShopDomain string
	Signature  string
	Body       []byte
}

// IngestOutcome reports what happened to a delivery. HandlerErr carries a
// side-effect failure that occurred after the event was durably recorded;
// such deliveries are still acknowledged and retried by re-delivery.
type IngestOutcome struct {
	Event      *domain.WebhookEvent
	Duplicate  bool
	HandlerErr error
}

// WebhookService is the ingest state machine:
// received -> verify -> persisted (idempotent) -> dispatched -> processed.
type WebhookService struct {
	verifier   Verifier
	events     ports.WebhookEventRepository
	dispatcher *WebhookDispatcher
	publisher  EventPublisher
	logger     zerolog.Logger
}

func NewWebhookService(
	verifier Verifier,
	events ports.WebhookEventRepository,
	dispatcher *WebhookDispatcher,
	publisher EventPublisher,
	logger zerolog.Logger,
) *WebhookService {
	return &WebhookService{
		verifier:   verifier,
		events:     events,
		dispatcher: dispatcher,
		publisher:  publisher,
		logger:     logger,
	}
}

// Ingest verifies, records and dispatches one delivery. Unverified
// deliveries are rejected before any persistence. Persistence failures are
// returned as errors; side-effect failures after a successful persist are
// recorded on the event and surfaced in the outcome instead.
func (s *WebhookService) Ingest(ctx context.Context, d InboundDelivery) (*IngestOutcome, error) {
	if d.Topic == "" {
		return nil, fmt.Errorf("missing topic header: %w", domain.ErrInvalidInput)
	}

	if err := s.verifier.Verify(d.Body, d.Signature); err != nil {
		metrics.WebhooksRejected.Inc()
		s.logger.Warn().
			Str("topic", d.Topic).
			Str("shop", d.ShopDomain).
			Msg("Webhook signature verification failed")
		return nil, err
	}

	webhookID := d.WebhookID
	if webhookID == "" {
		// Deterministic fallback key; a random id here would make every
		// retry look like a new delivery.
		webhookID = domain.FallbackWebhookID(d.Topic, d.ShopDomain, d.Body)
	}

	event := &domain.WebhookEvent{
		WebhookID:      webhookID,
		ShopDomain:     d.ShopDomain,
		Topic:          d.Topic,
		Payload:        d.Body,
		SignatureValid: true,
		ReceivedAt:     time.Now(),
	}

	inserted, err := s.events.UpsertEvent(ctx, event)
	if err != nil {
		return nil, err
	}

	outcome := &IngestOutcome{Event: event, Duplicate: !inserted}

	if inserted {
		// Counted and streamed once, on first sight; re-deliveries of the
		// same webhook id are not new events to operational consumers.
		metrics.WebhooksReceived.WithLabelValues(d.Topic).Inc()
		s.publisher.Publish(event)
	} else {
		metrics.WebhooksDuplicate.Inc()
		stored, err := s.events.GetEvent(ctx, webhookID)
		if err == nil && stored.Processed && stored.ProcessingNote == "" {
			// First delivery completed cleanly; nothing left to do.
			s.logger.Debug().
				Str("webhook_id", webhookID).
				Str("topic", d.Topic).
				Msg("Duplicate delivery, already processed")
			return outcome, nil
		}
		// Re-delivery after a side-effect failure: run the handlers again.
		// Every built-in effect is idempotent.
	}

	note := ""
	if err := s.dispatcher.Dispatch(ctx, event); err != nil {
		// Recorded against the event for reconciliation; the delivery is
		// still acknowledged and the platform's re-delivery retries it.
		note = err.Error()
		outcome.HandlerErr = err
		s.logger.Error().
			Err(err).
			Str("webhook_id", webhookID).
			Str("topic", d.Topic).
			Msg("Webhook side effect failed")
	}

	if err := s.events.MarkProcessed(ctx, webhookID, note); err != nil {
		s.logger.Error().
			Err(err).
			Str("webhook_id", webhookID).
			Msg("Failed to record processing outcome")
	}

	return outcome, nil
}
