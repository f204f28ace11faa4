package domain

import "testing"

func TestFallbackWebhookIDIsDeterministic(t *testing.T) {
	body := []byte(`{"id":1}`)

	a := FallbackWebhookID("orders/create", "example.myshopify.com", body)
	b := FallbackWebhookID("orders/create", "example.myshopify.com", body)
	if a != b {
		t.Errorf("same delivery produced different ids: %q vs %q", a, b)
	}

	if FallbackWebhookID("orders/updated", "example.myshopify.com", body) == a {
		t.Error("different topic produced the same id")
	}
	if FallbackWebhookID("orders/create", "other.myshopify.com", body) == a {
		t.Error("different shop produced the same id")
	}
	if FallbackWebhookID("orders/create", "example.myshopify.com", []byte(`{"id":2}`)) == a {
		t.Error("different body produced the same id")
	}
}

func TestFallbackWebhookIDFieldBoundaries(t *testing.T) {
	// The separator keeps ("ab","c") and ("a","bc") from colliding.
	if FallbackWebhookID("ab", "c", nil) == FallbackWebhookID("a", "bc", nil) {
		t.Error("field boundary collision")
	}
}

func TestKindForTopic(t *testing.T) {
	tests := []struct {
		topic string
		want  GdprKind
		ok    bool
	}{
		{"customers/data_request", GdprDataRequest, true},
		{"customers/redact", GdprCustomerRedact, true},
		{"shop/redact", GdprShopRedact, true},
		{"orders/create", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		kind, ok := KindForTopic(tt.topic)
		if kind != tt.want || ok != tt.ok {
			t.Errorf("KindForTopic(%q) = (%q, %v), want (%q, %v)", tt.topic, kind, ok, tt.want, tt.ok)
		}
	}
}
