package ports

import (
	"context"
	"encoding/json"

	"platform-gateway-core/internal/domain"
)

// CredentialRepository persists platform credentials. It is the sole owner of
// credential state; services mutate credentials only through it.
type CredentialRepository interface {
	SaveCredential(ctx context.Context, cred *domain.ShopCredential) error
	GetCredential(ctx context.Context, provider, externalID string) (*domain.ShopCredential, error)

	// MarkUninstalled sets status=uninstalled, keeping tokens for audit.
	MarkUninstalled(ctx context.Context, provider, externalID string) error

	// Redact nulls the stored tokens and sets status=redacted. Redacting an
	// already-redacted credential is a no-op.
	Redact(ctx context.Context, provider, externalID string) error
}

// WebhookEventRepository persists inbound deliveries idempotently.
type WebhookEventRepository interface {
	// UpsertEvent inserts the event keyed on WebhookID. On conflict only
	// Processed, ProcessingNote and ProcessedAt are updated; the original
	// payload and signature verdict are never overwritten. Returns true
	// when this call inserted the record (first delivery).
	UpsertEvent(ctx context.Context, event *domain.WebhookEvent) (bool, error)

	// MarkProcessed records the outcome of side-effect application against
	// the stored event. A non-empty note records a partial failure for
	// later reconciliation.
	MarkProcessed(ctx context.Context, webhookID string, note string) error

	GetEvent(ctx context.Context, webhookID string) (*domain.WebhookEvent, error)
}

// WebhookRegistrationRepository persists the webhook subscriptions the
// gateway registered on the platform, keyed by shop and topic.
type WebhookRegistrationRepository interface {
	SaveRegistration(ctx context.Context, reg *domain.WebhookRegistration) error
	ListRegistrations(ctx context.Context, shopDomain string) ([]*domain.WebhookRegistration, error)

	// DeleteRegistrations removes every registration recorded for the shop.
	// A shop with no registrations is a no-op.
	DeleteRegistrations(ctx context.Context, shopDomain string) error
}

// GdprRequestRepository persists compliance requests. Requests are an audit
// trail and are never deleted.
type GdprRequestRepository interface {
	CreateRequest(ctx context.Context, req *domain.GdprRequest) error
	GetRequest(ctx context.Context, id string) (*domain.GdprRequest, error)

	// UpdateStatus transitions a request, recording ProcessedAt for
	// terminal states and FailureReason for failures.
	UpdateStatus(ctx context.Context, id string, status domain.GdprStatus, failureReason string) error
}

// ShopDataStore is the read/purge surface over the shop-scoped data the GDPR
// state machine acts on. Every destructive operation is idempotent:
// deleting rows that are already gone is a no-op, so a failed purge is safe
// to retry from a fresh delivery.
type ShopDataStore interface {
	// CollectCustomerData marshals everything stored for one customer, for
	// return to the requester.
	CollectCustomerData(ctx context.Context, shopDomain, customerID string) (json.RawMessage, error)

	// DeleteCustomerData removes records keyed by the customer identifier.
	DeleteCustomerData(ctx context.Context, shopDomain, customerID string) error

	// PurgeShopData removes all orders, customers and products stored for
	// the shop.
	PurgeShopData(ctx context.Context, shopDomain string) error
}
