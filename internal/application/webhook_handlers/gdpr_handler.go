package webhook_handlers

import (
	"context"

	"platform-gateway-core/internal/application"
	"platform-gateway-core/internal/domain"

	"github.com/rs/zerolog"
)

// GdprHandler forwards the three compliance topics into the request state
// machine: a new pending request is recorded, then processed synchronously.
type GdprHandler struct {
	logger zerolog.Logger
	gdpr   *application.GdprService
}

func NewGdprHandler(logger zerolog.Logger, gdpr *application.GdprService) *GdprHandler {
	return &GdprHandler{
		logger: logger,
		gdpr:   gdpr,
	}
}

func (h *GdprHandler) CanHandle(topic string) bool {
	_, ok := domain.KindForTopic(topic)
	return ok
}

func (h *GdprHandler) Handle(ctx context.Context, event *domain.WebhookEvent) error {
	kind, _ := domain.KindForTopic(event.Topic)

	req, err := h.gdpr.Accept(ctx, kind, event.ShopDomain, event.Payload)
	if err != nil {
		return err
	}

	// Processing failure moves the request to failed and is recorded on
	// the event; the request record itself is the retry surface.
	return h.gdpr.Process(ctx, req.ID)
}
