package webhook_handlers

import (
	"context"
	"encoding/json"

	"platform-gateway-core/internal/domain"

	"github.com/rs/zerolog"
)

// OrderHandler observes order topics. Orders have no built-in side effect
// in the gateway; events are persisted upstream and logged here so
// operational consumers can follow the stream.
type OrderHandler struct {
	logger zerolog.Logger
}

func NewOrderHandler(logger zerolog.Logger) *OrderHandler {
	return &OrderHandler{logger: logger}
}

func (h *OrderHandler) CanHandle(topic string) bool {
	return topic == "orders/create" ||
		topic == "orders/updated" ||
		topic == "orders/paid" ||
		topic == "orders/cancelled"
}

func (h *OrderHandler) Handle(ctx context.Context, event *domain.WebhookEvent) error {
	var order struct {
		ID          json.Number `json:"id"`
		Email       string      `json:"email"`
		TotalPrice  string      `json:"total_price"`
		Currency    string      `json:"currency"`
		OrderNumber json.Number `json:"order_number"`
	}
	if err := json.Unmarshal(event.Payload, &order); err != nil {
		h.logger.Warn().
			Str("topic", event.Topic).
			Str("shop", event.ShopDomain).
			Msg("Order payload did not parse, event recorded only")
		return nil
	}

	h.logger.Info().
		Str("topic", event.Topic).
		Str("shop", event.ShopDomain).
		Str("order_id", order.ID.String()).
		Str("total_price", order.TotalPrice).
		Str("currency", order.Currency).
		Msg("Order event received")
	return nil
}
