package domain

import (
	"encoding/json"
	"time"
)

// GdprKind identifies which compliance obligation a request carries.
type GdprKind string

const (
	GdprDataRequest    GdprKind = "data_request"
	GdprCustomerRedact GdprKind = "customer_redact"
	GdprShopRedact     GdprKind = "shop_redact"
)

// GdprStatus is the request lifecycle state. Pending is the only valid
// initial state; Completed and Failed are terminal and never revisited.
type GdprStatus string

const (
	GdprPending    GdprStatus = "pending"
	GdprProcessing GdprStatus = "processing"
	GdprCompleted  GdprStatus = "completed"
	GdprFailed     GdprStatus = "failed"
)

// GdprRequest is a regulator-mandated data request or redaction, created by
// the webhook ingestor from a verified delivery. Requests are never deleted;
// CreatedAt supports the platform's mandated response window.
type GdprRequest struct {
	ID             string          `json:"id" bson:"_id"`
	Kind           GdprKind        `json:"kind" bson:"kind"`
	ShopDomain     string          `json:"shop_domain" bson:"shop_domain"`
	CustomerID     string          `json:"customer_id,omitempty" bson:"customer_id,omitempty"`
	CustomerEmail  string          `json:"customer_email,omitempty" bson:"customer_email,omitempty"`
	Status         GdprStatus      `json:"status" bson:"status"`
	RequestPayload json.RawMessage `json:"request_payload" bson:"request_payload"`
	FailureReason  string          `json:"failure_reason,omitempty" bson:"failure_reason,omitempty"`
	CreatedAt      time.Time       `json:"created_at" bson:"created_at"`
	ProcessedAt    *time.Time      `json:"processed_at,omitempty" bson:"processed_at,omitempty"`
}

// KindForTopic maps a webhook topic onto a GDPR request kind.
func KindForTopic(topic string) (GdprKind, bool) {
	switch topic {
	case "customers/data_request":
		return GdprDataRequest, true
	case "customers/redact":
		return GdprCustomerRedact, true
	case "shop/redact":
		return GdprShopRedact, true
	}
	return "", false
}
