package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

// WebhookEvent represents one inbound platform delivery. WebhookID is the
// idempotency key: the same delivery may arrive multiple times and must
// resolve to exactly one stored record. Payload and SignatureValid are fixed
// at first sight; retries may only touch Processed and the timestamps.
type WebhookEvent struct {
	WebhookID      string          `json:"webhook_id" bson:"webhook_id"`
	ShopDomain     string          `json:"shop_domain" bson:"shop_domain"`
	Topic          string          `json:"topic" bson:"topic"`
	Payload        json.RawMessage `json:"payload" bson:"payload"`
	SignatureValid bool            `json:"signature_valid" bson:"signature_valid"`
	Processed      bool            `json:"processed" bson:"processed"`
	ProcessingNote string          `json:"processing_note,omitempty" bson:"processing_note,omitempty"`
	ReceivedAt     time.Time       `json:"received_at" bson:"received_at"`
	ProcessedAt    *time.Time      `json:"processed_at,omitempty" bson:"processed_at,omitempty"`
}

// FallbackWebhookID derives a deterministic idempotency key for deliveries
// that arrive without a webhook id header. It must be stable across retries
// of the same delivery, so it is a digest of topic, shop and raw body,
// never a random value.
func FallbackWebhookID(topic, shopDomain string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(topic))
	h.Write([]byte{0})
	h.Write([]byte(shopDomain))
	h.Write([]byte{0})
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}
