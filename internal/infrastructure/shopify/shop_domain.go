package shopify

import (
	"fmt"
	"regexp"
	"strings"

	"platform-gateway-core/internal/domain"
)

// shopNameRe matches the store-name half of a myshopify domain.
var shopNameRe = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9-]*$`)

// NormalizeShopDomain canonicalizes user-supplied shop input into
// "{name}.myshopify.com". Accepts a bare store name, a full myshopify
// domain, or either with an https:// prefix. Anything outside that grammar
// is rejected.
func NormalizeShopDomain(input string) (string, error) {
	s := strings.ToLower(strings.TrimSpace(input))
	s = strings.TrimPrefix(s, "https://")
	s = strings.TrimPrefix(s, "http://")
	s = strings.TrimSuffix(s, "/")

	if s == "" {
		return "", fmt.Errorf("empty shop: %w", domain.ErrInvalidInput)
	}

	name := strings.TrimSuffix(s, ".myshopify.com")
	if strings.Contains(name, ".") || !shopNameRe.MatchString(name) {
		return "", fmt.Errorf("shop %q does not match the myshopify domain grammar: %w", input, domain.ErrInvalidInput)
	}

	return name + ".myshopify.com", nil
}
