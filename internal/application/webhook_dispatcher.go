package application

import (
	"context"
	"fmt"

	"platform-gateway-core/internal/domain"

	"github.com/rs/zerolog"
)

// TopicHandler processes webhook events for the topics it declares. The
// dispatch table is closed: new topics require registering a handler here,
// not reflection.
type TopicHandler interface {
	CanHandle(topic string) bool
	Handle(ctx context.Context, event *domain.WebhookEvent) error
}

// WebhookDispatcher routes an accepted event to the first handler that
// claims its topic. Unclaimed topics are a no-op: the event is already
// persisted for audit.
type WebhookDispatcher struct {
	handlers []TopicHandler
	logger   zerolog.Logger
}

func NewWebhookDispatcher(logger zerolog.Logger) *WebhookDispatcher {
	return &WebhookDispatcher{logger: logger}
}

func (d *WebhookDispatcher) RegisterHandler(h TopicHandler) {
	d.handlers = append(d.handlers, h)
}

func (d *WebhookDispatcher) Dispatch(ctx context.Context, event *domain.WebhookEvent) error {
	for _, h := range d.handlers {
		if !h.CanHandle(event.Topic) {
			continue
		}
		if err := h.Handle(ctx, event); err != nil {
			return fmt.Errorf("handler for topic %s: %w", event.Topic, err)
		}
		return nil
	}

	d.logger.Debug().
		Str("topic", event.Topic).
		Str("shop", event.ShopDomain).
		Msg("No handler registered for topic, event recorded only")
	return nil
}
