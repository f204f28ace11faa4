package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WebhooksReceived counts verified inbound deliveries by topic.
	WebhooksReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_webhooks_received_total",
		Help: "Verified webhook deliveries accepted for processing.",
	}, []string{"topic"})

	// WebhooksRejected counts deliveries that failed signature verification.
	WebhooksRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gateway_webhooks_rejected_total",
		Help: "Webhook deliveries rejected for an invalid signature.",
	})

	// WebhooksDuplicate counts re-deliveries collapsed by the idempotency key.
	WebhooksDuplicate = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gateway_webhooks_duplicate_total",
		Help: "Webhook re-deliveries deduplicated by webhook id.",
	})

	// GdprTransitions counts compliance request state transitions.
	GdprTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_gdpr_transitions_total",
		Help: "GDPR request state transitions by kind and resulting status.",
	}, []string{"kind", "status"})

	// OAuthExchanges counts provider token exchanges by provider and outcome.
	OAuthExchanges = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_oauth_exchanges_total",
		Help: "OAuth token exchanges by provider and outcome.",
	}, []string{"provider", "outcome"})
)
