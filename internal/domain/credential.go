package domain

import "time"

// CredentialStatus tracks the lifecycle of a stored platform credential.
type CredentialStatus string

const (
	CredentialActive      CredentialStatus = "active"
	CredentialUninstalled CredentialStatus = "uninstalled"
	CredentialRedacted    CredentialStatus = "redacted"
)

// ShopCredential holds the tokens issued for a connected Shopify shop or a
// Google user. ExternalID is the shop domain for Shopify and the subject id
// for Google. Secrets are nulled (never deleted) when the credential is
// redacted so the record keeps its audit value.
type ShopCredential struct {
	ID             string           `json:"id" bson:"_id,omitempty"`
	Provider       string           `json:"provider" bson:"provider"` // "shopify" | "google"
	ExternalID     string           `json:"external_id" bson:"external_id"`
	AccessToken    string           `json:"-" bson:"access_token"`
	RefreshToken   string           `json:"-" bson:"refresh_token,omitempty"`
	TokenExpiresAt *time.Time       `json:"token_expires_at,omitempty" bson:"token_expires_at,omitempty"`
	Scopes         []string         `json:"scopes" bson:"scopes"`
	Status         CredentialStatus `json:"status" bson:"status"`
	CreatedAt      time.Time        `json:"created_at" bson:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at" bson:"updated_at"`
}

const (
	ProviderShopify = "shopify"
	ProviderGoogle  = "google"
)
