package domain

import "time"

// WebhookRegistration records a webhook subscription this gateway created on
// the platform for a shop. It is the stored baseline that reconciliation
// against the platform's ListWebhooks compares with, and it is what uninstall
// and shop redaction clean up.
type WebhookRegistration struct {
	ShopDomain string    `json:"shop_domain" bson:"shop_domain"`
	Topic      string    `json:"topic" bson:"topic"`
	Address    string    `json:"address" bson:"address"`
	PlatformID int64     `json:"platform_id" bson:"platform_id"`
	CreatedAt  time.Time `json:"created_at" bson:"created_at"`
}
