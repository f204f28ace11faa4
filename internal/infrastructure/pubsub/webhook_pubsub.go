package pubsub

import (
	"context"
	"fmt"
	"sync"

	"platform-gateway-core/internal/domain"

	"github.com/rs/zerolog"
)

// Subscription is a live channel of accepted webhook events.
type Subscription struct {
	ID     string
	Filter *EventFilter
	Events chan *domain.WebhookEvent
	ctx    context.Context
	cancel context.CancelFunc
}

// EventFilter narrows a subscription to particular topics or one shop.
type EventFilter struct {
	Topics []string
	Shop   string
}

// WebhookPubSub fans accepted webhook events out to in-process subscribers
// (operational streaming, reconciliation tooling). Publishing never blocks
// the ingest path: a full subscriber buffer drops the event for that
// subscriber only.
type WebhookPubSub struct {
	mu     sync.RWMutex
	subs   map[string]*Subscription
	nextID int64
	logger zerolog.Logger
}

func NewWebhookPubSub(logger zerolog.Logger) *WebhookPubSub {
	return &WebhookPubSub{
		subs:   make(map[string]*Subscription),
		logger: logger,
	}
}

func (ps *WebhookPubSub) Subscribe(ctx context.Context, filter *EventFilter) *Subscription {
	subCtx, cancel := context.WithCancel(ctx)

	ps.mu.Lock()
	ps.nextID++
	sub := &Subscription{
		ID:     fmt.Sprintf("sub-%d", ps.nextID),
		Filter: filter,
		Events: make(chan *domain.WebhookEvent, 16),
		ctx:    subCtx,
		cancel: cancel,
	}
	ps.subs[sub.ID] = sub
	ps.mu.Unlock()

	ps.logger.Debug().Str("subscription", sub.ID).Msg("Webhook subscription created")

	go func() {
		<-subCtx.Done()
		ps.Unsubscribe(sub.ID)
	}()

	return sub
}

func (ps *WebhookPubSub) Unsubscribe(id string) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	sub, ok := ps.subs[id]
	if !ok {
		return
	}

	close(sub.Events)
	sub.cancel()
	delete(ps.subs, id)

	ps.logger.Debug().Str("subscription", id).Msg("Webhook subscription removed")
}

func (ps *WebhookPubSub) Publish(event *domain.WebhookEvent) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	for _, sub := range ps.subs {
		if !matches(event, sub.Filter) {
			continue
		}
		select {
		case sub.Events <- event:
		case <-sub.ctx.Done():
		default:
			ps.logger.Warn().
				Str("subscription", sub.ID).
				Str("topic", event.Topic).
				Msg("Subscriber buffer full, dropping event")
		}
	}
}

func matches(event *domain.WebhookEvent, filter *EventFilter) bool {
	if filter == nil {
		return true
	}
	if len(filter.Topics) > 0 {
		found := false
		for _, t := range filter.Topics {
			if event.Topic == t {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if filter.Shop != "" && event.ShopDomain != filter.Shop {
		return false
	}
	return true
}
