package application

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"platform-gateway-core/internal/domain"

	goshopify "github.com/bold-commerce/go-shopify/v4"
)

// In-memory fakes for the outbound ports. They mimic the idempotency
// contracts of the real adapters: upsert keyed on webhook id, single-use
// state consumption, idempotent purges.

type fakeCredentialRepo struct {
	mu    sync.Mutex
	creds map[string]*domain.ShopCredential

	saveErr   error
	redactErr error
}

func newFakeCredentialRepo() *fakeCredentialRepo {
	return &fakeCredentialRepo{creds: map[string]*domain.ShopCredential{}}
}

func credKey(provider, externalID string) string {
	return provider + "/" + externalID
}

func (f *fakeCredentialRepo) SaveCredential(ctx context.Context, cred *domain.ShopCredential) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *cred
	f.creds[credKey(cred.Provider, cred.ExternalID)] = &cp
	return nil
}

func (f *fakeCredentialRepo) GetCredential(ctx context.Context, provider, externalID string) (*domain.ShopCredential, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cred, ok := f.creds[credKey(provider, externalID)]
	if !ok {
		return nil, fmt.Errorf("credential not found: %w", domain.ErrNotFound)
	}
	cp := *cred
	return &cp, nil
}

func (f *fakeCredentialRepo) MarkUninstalled(ctx context.Context, provider, externalID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if cred, ok := f.creds[credKey(provider, externalID)]; ok {
		cred.Status = domain.CredentialUninstalled
	}
	return nil
}

func (f *fakeCredentialRepo) Redact(ctx context.Context, provider, externalID string) error {
	if f.redactErr != nil {
		return f.redactErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if cred, ok := f.creds[credKey(provider, externalID)]; ok {
		cred.AccessToken = ""
		cred.RefreshToken = ""
		cred.Status = domain.CredentialRedacted
	}
	return nil
}

type fakeEventRepo struct {
	mu     sync.Mutex
	events map[string]*domain.WebhookEvent

	upsertErr error
}

func newFakeEventRepo() *fakeEventRepo {
	return &fakeEventRepo{events: map[string]*domain.WebhookEvent{}}
}

func (f *fakeEventRepo) UpsertEvent(ctx context.Context, event *domain.WebhookEvent) (bool, error) {
	if f.upsertErr != nil {
		return false, f.upsertErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.events[event.WebhookID]; ok {
		return false, nil
	}
	cp := *event
	f.events[event.WebhookID] = &cp
	return true, nil
}

func (f *fakeEventRepo) MarkProcessed(ctx context.Context, webhookID string, note string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	event, ok := f.events[webhookID]
	if !ok {
		return fmt.Errorf("event not found: %w", domain.ErrNotFound)
	}
	now := time.Now()
	event.Processed = true
	event.ProcessingNote = note
	event.ProcessedAt = &now
	return nil
}

func (f *fakeEventRepo) GetEvent(ctx context.Context, webhookID string) (*domain.WebhookEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	event, ok := f.events[webhookID]
	if !ok {
		return nil, fmt.Errorf("event not found: %w", domain.ErrNotFound)
	}
	cp := *event
	return &cp, nil
}

type fakeGdprRepo struct {
	mu       sync.Mutex
	requests map[string]*domain.GdprRequest
}

func newFakeGdprRepo() *fakeGdprRepo {
	return &fakeGdprRepo{requests: map[string]*domain.GdprRequest{}}
}

func (f *fakeGdprRepo) CreateRequest(ctx context.Context, req *domain.GdprRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *req
	f.requests[req.ID] = &cp
	return nil
}

func (f *fakeGdprRepo) GetRequest(ctx context.Context, id string) (*domain.GdprRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	req, ok := f.requests[id]
	if !ok {
		return nil, fmt.Errorf("request not found: %w", domain.ErrNotFound)
	}
	cp := *req
	return &cp, nil
}

func (f *fakeGdprRepo) UpdateStatus(ctx context.Context, id string, status domain.GdprStatus, failureReason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	req, ok := f.requests[id]
	if !ok {
		return fmt.Errorf("request not found: %w", domain.ErrNotFound)
	}
	req.Status = status
	req.FailureReason = failureReason
	if status == domain.GdprCompleted || status == domain.GdprFailed {
		now := time.Now()
		req.ProcessedAt = &now
	}
	return nil
}

func (f *fakeGdprRepo) single() *domain.GdprRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, req := range f.requests {
		cp := *req
		return &cp
	}
	return nil
}

type fakeShopDataStore struct {
	mu sync.Mutex

	collected      []string
	deletedByCust  []string
	purgedShops    []string
	collectPayload json.RawMessage

	collectErr error
	deleteErr  error
	purgeErr   error
}

func newFakeShopDataStore() *fakeShopDataStore {
	return &fakeShopDataStore{collectPayload: json.RawMessage(`{"orders":[]}`)}
}

func (f *fakeShopDataStore) CollectCustomerData(ctx context.Context, shopDomain, customerID string) (json.RawMessage, error) {
	if f.collectErr != nil {
		return nil, f.collectErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.collected = append(f.collected, shopDomain+"/"+customerID)
	return f.collectPayload, nil
}

func (f *fakeShopDataStore) DeleteCustomerData(ctx context.Context, shopDomain, customerID string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletedByCust = append(f.deletedByCust, shopDomain+"/"+customerID)
	return nil
}

func (f *fakeShopDataStore) PurgeShopData(ctx context.Context, shopDomain string) error {
	if f.purgeErr != nil {
		return f.purgeErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.purgedShops = append(f.purgedShops, shopDomain)
	return nil
}

type fakeRegistrationRepo struct {
	mu   sync.Mutex
	regs map[string][]*domain.WebhookRegistration

	deleteErr error
}

func newFakeRegistrationRepo() *fakeRegistrationRepo {
	return &fakeRegistrationRepo{regs: map[string][]*domain.WebhookRegistration{}}
}

func (f *fakeRegistrationRepo) SaveRegistration(ctx context.Context, reg *domain.WebhookRegistration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *reg
	for i, existing := range f.regs[reg.ShopDomain] {
		if existing.Topic == reg.Topic {
			f.regs[reg.ShopDomain][i] = &cp
			return nil
		}
	}
	f.regs[reg.ShopDomain] = append(f.regs[reg.ShopDomain], &cp)
	return nil
}

func (f *fakeRegistrationRepo) ListRegistrations(ctx context.Context, shopDomain string) ([]*domain.WebhookRegistration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*domain.WebhookRegistration, len(f.regs[shopDomain]))
	for i, reg := range f.regs[shopDomain] {
		cp := *reg
		out[i] = &cp
	}
	return out, nil
}

func (f *fakeRegistrationRepo) DeleteRegistrations(ctx context.Context, shopDomain string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.regs, shopDomain)
	return nil
}

type fakeStateStore struct {
	mu     sync.Mutex
	states map[string]*domain.OAuthState
}

func newFakeStateStore() *fakeStateStore {
	return &fakeStateStore{states: map[string]*domain.OAuthState{}}
}

func (f *fakeStateStore) SaveState(ctx context.Context, state *domain.OAuthState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *state
	f.states[state.State] = &cp
	return nil
}

func (f *fakeStateStore) ConsumeState(ctx context.Context, state string) (*domain.OAuthState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	st, ok := f.states[state]
	if !ok {
		return nil, fmt.Errorf("unknown or expired state: %w", domain.ErrAuthentication)
	}
	delete(f.states, state)
	return st, nil
}

type fakeSessionStore struct {
	mu       sync.Mutex
	sessions map[string]*domain.Session
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{sessions: map[string]*domain.Session{}}
}

func (f *fakeSessionStore) SaveSession(ctx context.Context, session *domain.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *session
	f.sessions[session.Token] = &cp
	return nil
}

func (f *fakeSessionStore) GetSession(ctx context.Context, token string) (*domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	session, ok := f.sessions[token]
	if !ok {
		return nil, fmt.Errorf("unknown session: %w", domain.ErrAuthentication)
	}
	if !session.ExpiresAt.After(time.Now()) {
		return nil, fmt.Errorf("session expired: %w", domain.ErrAuthentication)
	}
	cp := *session
	return &cp, nil
}

type fakeShopifyClient struct {
	exchangeErr     error
	exchangedCodes  []string
	createdWebhooks []string
	shopDomain      string
}

func (f *fakeShopifyClient) GenerateAuthURL(shop string, scopes []string, redirectURI string, state string) (string, error) {
	return "https://" + shop + "/admin/oauth/authorize?state=" + state, nil
}

func (f *fakeShopifyClient) ExchangeToken(ctx context.Context, shop string, code string) (string, error) {
	if f.exchangeErr != nil {
		return "", f.exchangeErr
	}
	f.exchangedCodes = append(f.exchangedCodes, code)
	return "shpat_test_token", nil
}

func (f *fakeShopifyClient) GetShop(ctx context.Context, shop string, accessToken string) (*goshopify.Shop, error) {
	d := f.shopDomain
	if d == "" {
		d = shop
	}
	return &goshopify.Shop{MyshopifyDomain: d}, nil
}

func (f *fakeShopifyClient) CreateWebhook(ctx context.Context, shop string, accessToken string, topic string, address string) (*goshopify.Webhook, error) {
	f.createdWebhooks = append(f.createdWebhooks, topic)
	return &goshopify.Webhook{Id: uint64(len(f.createdWebhooks)), Topic: topic, Address: address}, nil
}

func (f *fakeShopifyClient) ListWebhooks(ctx context.Context, shop string, accessToken string) ([]goshopify.Webhook, error) {
	return nil, nil
}

func (f *fakeShopifyClient) DeleteWebhook(ctx context.Context, shop string, accessToken string, webhookID int64) error {
	return nil
}

// passVerifier accepts a fixed signature and rejects everything else.
type passVerifier struct {
	accept string
}

func (v *passVerifier) Verify(body []byte, providedBase64 string) error {
	if providedBase64 != v.accept {
		return fmt.Errorf("signature mismatch: %w", domain.ErrAuthentication)
	}
	return nil
}

type nopPublisher struct {
	published []*domain.WebhookEvent
}

func (p *nopPublisher) Publish(event *domain.WebhookEvent) {
	p.published = append(p.published, event)
}
