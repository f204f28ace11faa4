package application

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"platform-gateway-core/internal/domain"

	"github.com/rs/zerolog"
)

type gdprFixture struct {
	service       *GdprService
	requests      *fakeGdprRepo
	creds         *fakeCredentialRepo
	registrations *fakeRegistrationRepo
	shopData      *fakeShopDataStore
}

func newGdprFixture() *gdprFixture {
	requests := newFakeGdprRepo()
	creds := newFakeCredentialRepo()
	registrations := newFakeRegistrationRepo()
	shopData := newFakeShopDataStore()
	return &gdprFixture{
		service:       NewGdprService(requests, creds, registrations, shopData, zerolog.Nop()),
		requests:      requests,
		creds:         creds,
		registrations: registrations,
		shopData:      shopData,
	}
}

func TestAcceptRecordsPendingRequest(t *testing.T) {
	f := newGdprFixture()
	payload := json.RawMessage(`{"shop_domain":"example.myshopify.com","customer":{"id":42,"email":"c@example.com"}}`)

	req, err := f.service.Accept(context.Background(), domain.GdprDataRequest, "header.myshopify.com", payload)
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}

	if req.Status != domain.GdprPending {
		t.Errorf("status = %q, want pending", req.Status)
	}
	// The payload's shop wins over the header value.
	if req.ShopDomain != "example.myshopify.com" {
		t.Errorf("shop = %q", req.ShopDomain)
	}
	if req.CustomerID != "42" || req.CustomerEmail != "c@example.com" {
		t.Errorf("customer = (%q, %q)", req.CustomerID, req.CustomerEmail)
	}
}

func TestAcceptFallsBackToHeaderShop(t *testing.T) {
	f := newGdprFixture()

	req, err := f.service.Accept(context.Background(), domain.GdprShopRedact, "header.myshopify.com", json.RawMessage(`{}`))
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if req.ShopDomain != "header.myshopify.com" {
		t.Errorf("shop = %q", req.ShopDomain)
	}
}

func TestAcceptRejectsMissingShop(t *testing.T) {
	f := newGdprFixture()

	_, err := f.service.Accept(context.Background(), domain.GdprShopRedact, "", json.RawMessage(`{}`))
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("got %v, want ErrInvalidInput", err)
	}
}

func TestProcessDataRequest(t *testing.T) {
	f := newGdprFixture()
	payload := json.RawMessage(`{"shop_domain":"example.myshopify.com","customer":{"id":42}}`)
	req, _ := f.service.Accept(context.Background(), domain.GdprDataRequest, "", payload)

	if err := f.service.Process(context.Background(), req.ID); err != nil {
		t.Fatalf("Process: %v", err)
	}

	stored, _ := f.requests.GetRequest(context.Background(), req.ID)
	if stored.Status != domain.GdprCompleted {
		t.Errorf("status = %q, want completed", stored.Status)
	}
	if stored.ProcessedAt == nil {
		t.Error("ProcessedAt not set on terminal state")
	}
	if len(f.shopData.collected) != 1 || f.shopData.collected[0] != "example.myshopify.com/42" {
		t.Errorf("collected = %v", f.shopData.collected)
	}
}

func TestProcessDataRequestWithoutCustomerFails(t *testing.T) {
	f := newGdprFixture()
	req, _ := f.service.Accept(context.Background(), domain.GdprDataRequest, "example.myshopify.com", json.RawMessage(`{}`))

	err := f.service.Process(context.Background(), req.ID)
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("got %v, want ErrInvalidInput", err)
	}

	stored, _ := f.requests.GetRequest(context.Background(), req.ID)
	if stored.Status != domain.GdprFailed {
		t.Errorf("status = %q, want failed", stored.Status)
	}
	if stored.FailureReason == "" {
		t.Error("failure reason not recorded")
	}
}

func TestProcessShopRedactPurgesAndRedacts(t *testing.T) {
	f := newGdprFixture()
	f.creds.SaveCredential(context.Background(), &domain.ShopCredential{
		Provider:    domain.ProviderShopify,
		ExternalID:  "example.myshopify.com",
		AccessToken: "shpat_secret",
		Status:      domain.CredentialActive,
	})

	f.registrations.SaveRegistration(context.Background(), &domain.WebhookRegistration{
		ShopDomain: "example.myshopify.com",
		Topic:      "orders/create",
	})

	req, _ := f.service.Accept(context.Background(), domain.GdprShopRedact, "example.myshopify.com", json.RawMessage(`{}`))
	if err := f.service.Process(context.Background(), req.ID); err != nil {
		t.Fatalf("Process: %v", err)
	}

	if len(f.shopData.purgedShops) != 1 || f.shopData.purgedShops[0] != "example.myshopify.com" {
		t.Errorf("purged = %v", f.shopData.purgedShops)
	}
	cred, err := f.creds.GetCredential(context.Background(), domain.ProviderShopify, "example.myshopify.com")
	if err != nil {
		t.Fatalf("GetCredential: %v", err)
	}
	if cred.AccessToken != "" || cred.Status != domain.CredentialRedacted {
		t.Errorf("credential after redact = %+v", cred)
	}
	regs, _ := f.registrations.ListRegistrations(context.Background(), "example.myshopify.com")
	if len(regs) != 0 {
		t.Errorf("registrations after redact = %v", regs)
	}
}

func TestProcessShopRedactOnRedactedShopCompletes(t *testing.T) {
	f := newGdprFixture()
	f.creds.SaveCredential(context.Background(), &domain.ShopCredential{
		Provider:    domain.ProviderShopify,
		ExternalID:  "example.myshopify.com",
		AccessToken: "shpat_secret",
		Status:      domain.CredentialActive,
	})

	first, _ := f.service.Accept(context.Background(), domain.GdprShopRedact, "example.myshopify.com", json.RawMessage(`{}`))
	if err := f.service.Process(context.Background(), first.ID); err != nil {
		t.Fatalf("first Process: %v", err)
	}

	// A fresh delivery for a shop that is already fully redacted must still
	// complete: every purge step is a no-op the second time.
	second, err := f.service.Accept(context.Background(), domain.GdprShopRedact, "example.myshopify.com", json.RawMessage(`{}`))
	if err != nil {
		t.Fatalf("second Accept: %v", err)
	}
	if err := f.service.Process(context.Background(), second.ID); err != nil {
		t.Fatalf("second Process: %v", err)
	}

	stored, _ := f.requests.GetRequest(context.Background(), second.ID)
	if stored.Status != domain.GdprCompleted {
		t.Errorf("status = %q, want completed", stored.Status)
	}
	cred, _ := f.creds.GetCredential(context.Background(), domain.ProviderShopify, "example.myshopify.com")
	if cred.Status != domain.CredentialRedacted {
		t.Errorf("credential status = %q, want redacted", cred.Status)
	}
}

func TestProcessShopRedactPartialFailure(t *testing.T) {
	f := newGdprFixture()
	f.shopData.purgeErr = errors.New("datastore unavailable")

	req, _ := f.service.Accept(context.Background(), domain.GdprShopRedact, "example.myshopify.com", json.RawMessage(`{}`))
	if err := f.service.Process(context.Background(), req.ID); err == nil {
		t.Fatal("expected purge failure to surface")
	}

	stored, _ := f.requests.GetRequest(context.Background(), req.ID)
	if stored.Status != domain.GdprFailed {
		t.Errorf("status = %q, want failed", stored.Status)
	}
}

func TestProcessSkipsNonPendingRequests(t *testing.T) {
	f := newGdprFixture()
	payload := json.RawMessage(`{"shop_domain":"example.myshopify.com","customer":{"id":42}}`)
	req, _ := f.service.Accept(context.Background(), domain.GdprCustomerRedact, "", payload)

	if err := f.service.Process(context.Background(), req.ID); err != nil {
		t.Fatalf("first Process: %v", err)
	}
	if err := f.service.Process(context.Background(), req.ID); err != nil {
		t.Fatalf("second Process: %v", err)
	}

	// Terminal state is never revisited; the side effect ran once.
	if len(f.shopData.deletedByCust) != 1 {
		t.Errorf("deletions = %d, want 1", len(f.shopData.deletedByCust))
	}
}

func TestProcessUnknownRequest(t *testing.T) {
	f := newGdprFixture()
	if err := f.service.Process(context.Background(), "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}
