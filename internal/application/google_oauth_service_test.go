package application

import (
	"context"
	"errors"
	"testing"

	"platform-gateway-core/internal/domain"
	"platform-gateway-core/internal/ports"

	"github.com/rs/zerolog"
)

type fakeExchanger struct {
	exchangeToken *ports.GoogleToken
	exchangeErr   error
	refreshToken  *ports.GoogleToken
	refreshErr    error
}

func (f *fakeExchanger) ExchangeCode(ctx context.Context, code, codeVerifier, redirectURI string) (*ports.GoogleToken, error) {
	if f.exchangeErr != nil {
		return nil, f.exchangeErr
	}
	cp := *f.exchangeToken
	return &cp, nil
}

func (f *fakeExchanger) Refresh(ctx context.Context, refreshToken string) (*ports.GoogleToken, error) {
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	cp := *f.refreshToken
	return &cp, nil
}

func TestExchangeCodePersistsCredential(t *testing.T) {
	creds := newFakeCredentialRepo()
	exchanger := &fakeExchanger{exchangeToken: &ports.GoogleToken{
		AccessToken:  "access-abc",
		RefreshToken: "refresh-def",
		ExpiresIn:    3600,
		TokenType:    "Bearer",
		Scope:        "openid email",
		Subject:      "user-42",
		Email:        "user@example.com",
	}}
	service := NewGoogleOAuthService(exchanger, creds, zerolog.Nop())

	token, err := service.ExchangeCode(context.Background(), "code", "verifier", "https://app/cb")
	if err != nil {
		t.Fatalf("ExchangeCode: %v", err)
	}
	if token.AccessToken != "access-abc" {
		t.Errorf("AccessToken = %q", token.AccessToken)
	}

	cred, err := creds.GetCredential(context.Background(), domain.ProviderGoogle, "user-42")
	if err != nil {
		t.Fatalf("credential not stored: %v", err)
	}
	if cred.RefreshToken != "refresh-def" {
		t.Errorf("RefreshToken = %q", cred.RefreshToken)
	}
	if len(cred.Scopes) != 2 {
		t.Errorf("Scopes = %v", cred.Scopes)
	}
}

func TestExchangeCodeWithoutSubjectSkipsPersistence(t *testing.T) {
	creds := newFakeCredentialRepo()
	exchanger := &fakeExchanger{exchangeToken: &ports.GoogleToken{
		AccessToken: "access-abc",
		ExpiresIn:   3600,
	}}
	service := NewGoogleOAuthService(exchanger, creds, zerolog.Nop())

	if _, err := service.ExchangeCode(context.Background(), "code", "verifier", "https://app/cb"); err != nil {
		t.Fatalf("ExchangeCode: %v", err)
	}
	if len(creds.creds) != 0 {
		t.Error("credential stored without a validated subject")
	}
}

func TestExchangeCodePropagatesErrors(t *testing.T) {
	service := NewGoogleOAuthService(&fakeExchanger{exchangeErr: domain.ErrAuthentication}, newFakeCredentialRepo(), zerolog.Nop())

	if _, err := service.ExchangeCode(context.Background(), "code", "verifier", "https://app/cb"); !errors.Is(err, domain.ErrAuthentication) {
		t.Fatalf("got %v, want ErrAuthentication", err)
	}
}

func TestRefreshCarriesForwardRefreshToken(t *testing.T) {
	exchanger := &fakeExchanger{refreshToken: &ports.GoogleToken{
		AccessToken: "fresh-access",
		ExpiresIn:   3600,
	}}
	service := NewGoogleOAuthService(exchanger, newFakeCredentialRepo(), zerolog.Nop())

	token, err := service.Refresh(context.Background(), "refresh-old")
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if token.RefreshToken != "refresh-old" {
		t.Errorf("RefreshToken = %q, want the caller's token carried forward", token.RefreshToken)
	}
}

func TestRefreshPrefersNewRefreshToken(t *testing.T) {
	exchanger := &fakeExchanger{refreshToken: &ports.GoogleToken{
		AccessToken:  "fresh-access",
		RefreshToken: "refresh-new",
	}}
	service := NewGoogleOAuthService(exchanger, newFakeCredentialRepo(), zerolog.Nop())

	token, err := service.Refresh(context.Background(), "refresh-old")
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if token.RefreshToken != "refresh-new" {
		t.Errorf("RefreshToken = %q, want the newly issued token", token.RefreshToken)
	}
}
