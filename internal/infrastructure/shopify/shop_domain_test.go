package shopify

import (
	"errors"
	"testing"

	"platform-gateway-core/internal/domain"
)

func TestNormalizeShopDomain(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"bare name", "example", "example.myshopify.com"},
		{"full domain", "example.myshopify.com", "example.myshopify.com"},
		{"https prefix", "https://example.myshopify.com", "example.myshopify.com"},
		{"trailing slash", "https://example.myshopify.com/", "example.myshopify.com"},
		{"uppercase", "EXAMPLE.MyShopify.com", "example.myshopify.com"},
		{"surrounding whitespace", "  example  ", "example.myshopify.com"},
		{"hyphenated name", "my-store-2", "my-store-2.myshopify.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeShopDomain(tt.input)
			if err != nil {
				t.Fatalf("NormalizeShopDomain(%q): %v", tt.input, err)
			}
			if got != tt.want {
				t.Fatalf("NormalizeShopDomain(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeShopDomainRejectsBadInput(t *testing.T) {
	inputs := []string{
		"",
		"   ",
		"https://",
		"example.com",
		"evil.example.com/example.myshopify.com",
		"example.myshopify.com.evil.com",
		"-leading-hyphen",
		"spaces in name",
		"store;drop",
	}

	for _, input := range inputs {
		if _, err := NormalizeShopDomain(input); !errors.Is(err, domain.ErrInvalidInput) {
			t.Errorf("NormalizeShopDomain(%q): got %v, want ErrInvalidInput", input, err)
		}
	}
}
