package shopify

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	"platform-gateway-core/internal/domain"
)

// WebhookVerifier checks the X-Shopify-Hmac-SHA256 header against the raw
// request body. Verification must run on the bytes as received, before any
// JSON parsing: re-serializing a parsed payload can change the byte layout
// and silently break the signature.
type WebhookVerifier struct {
	secret []byte
}

func NewWebhookVerifier(secret string) *WebhookVerifier {
	return &WebhookVerifier{secret: []byte(secret)}
}

// Verify returns nil when providedBase64 is a valid HMAC-SHA256 of body
// under the shared secret, domain.ErrAuthentication otherwise. The byte
// comparison is constant-time.
func (v *WebhookVerifier) Verify(body []byte, providedBase64 string) error {
	if len(v.secret) == 0 || providedBase64 == "" {
		return fmt.Errorf("missing signature: %w", domain.ErrAuthentication)
	}

	provided, err := base64.StdEncoding.DecodeString(providedBase64)
	if err != nil {
		return fmt.Errorf("malformed signature: %w", domain.ErrAuthentication)
	}

	mac := hmac.New(sha256.New, v.secret)
	mac.Write(body)
	if !hmac.Equal(mac.Sum(nil), provided) {
		return fmt.Errorf("signature mismatch: %w", domain.ErrAuthentication)
	}
	return nil
}
