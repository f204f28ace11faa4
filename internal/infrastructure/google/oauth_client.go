package google

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"platform-gateway-core/internal/domain"
	"platform-gateway-core/internal/ports"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
)

const defaultTokenURL = "https://oauth2.googleapis.com/token"
const defaultIssuer = "https://accounts.google.com"

// Config holds the server-side client credentials. ClientSecret never leaves
// this package. TokenURL and Issuer are overridable for tests.
type Config struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
	Issuer       string
}

// OAuthClient performs authorization-code + PKCE and refresh-token exchanges
// against the Google token endpoint.
type OAuthClient struct {
	config     Config
	httpClient *http.Client
	logger     zerolog.Logger
	now        func() time.Time
}

func NewOAuthClient(config Config, timeout time.Duration, logger zerolog.Logger) *OAuthClient {
	if config.TokenURL == "" {
		config.TokenURL = defaultTokenURL
	}
	if config.Issuer == "" {
		config.Issuer = defaultIssuer
	}
	return &OAuthClient{
		config:     config,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
		now:        time.Now,
	}
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	TokenType    string `json:"token_type"`
	Scope        string `json:"scope"`
	IDToken      string `json:"id_token"`
}

// ExchangeCode exchanges an authorization code for tokens. code, codeVerifier
// and redirectURI are all required. When the response carries an id_token its
// audience, issuer and expiry claims are validated; any claim failure fails
// the whole exchange even though the token endpoint returned success.
func (c *OAuthClient) ExchangeCode(ctx context.Context, code, codeVerifier, redirectURI string) (*ports.GoogleToken, error) {
	if code == "" || codeVerifier == "" || redirectURI == "" {
		return nil, fmt.Errorf("code, codeVerifier and redirectUri are required: %w", domain.ErrInvalidInput)
	}

	data := url.Values{
		"code":          {code},
		"code_verifier": {codeVerifier},
		"client_id":     {c.config.ClientID},
		"client_secret": {c.config.ClientSecret},
		"redirect_uri":  {redirectURI},
		"grant_type":    {"authorization_code"},
	}

	resp, err := c.postToken(ctx, data)
	if err != nil {
		return nil, err
	}

	token := &ports.GoogleToken{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		ExpiresIn:    resp.ExpiresIn,
		TokenType:    resp.TokenType,
		Scope:        resp.Scope,
	}

	if resp.IDToken != "" {
		subject, email, err := c.validateIDToken(resp.IDToken)
		if err != nil {
			return nil, err
		}
		token.Subject = subject
		token.Email = email
	}

	return token, nil
}

// Refresh exchanges a refresh token for a new access token. Google may omit
// a new refresh token, in which case the returned RefreshToken is empty and
// the caller must keep the one it already holds.
func (c *OAuthClient) Refresh(ctx context.Context, refreshToken string) (*ports.GoogleToken, error) {
	if refreshToken == "" {
		return nil, fmt.Errorf("refreshToken is required: %w", domain.ErrInvalidInput)
	}

	data := url.Values{
		"refresh_token": {refreshToken},
		"client_id":     {c.config.ClientID},
		"client_secret": {c.config.ClientSecret},
		"grant_type":    {"refresh_token"},
	}

	resp, err := c.postToken(ctx, data)
	if err != nil {
		return nil, err
	}

	return &ports.GoogleToken{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		ExpiresIn:    resp.ExpiresIn,
		TokenType:    resp.TokenType,
		Scope:        resp.Scope,
	}, nil
}

func (c *OAuthClient) postToken(ctx context.Context, data url.Values) (*tokenResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.TokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error().Err(err).Msg("Token endpoint request failed")
		return nil, fmt.Errorf("token endpoint unreachable: %w", domain.ErrUpstream)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read token response: %w", domain.ErrUpstream)
	}

	if resp.StatusCode != http.StatusOK {
		// Error bodies can quote request parameters; log status only.
		c.logger.Warn().Int("status", resp.StatusCode).Msg("Token endpoint returned non-OK status")
		return nil, fmt.Errorf("token endpoint returned status %d: %w", resp.StatusCode, domain.ErrUpstream)
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, fmt.Errorf("failed to parse token response: %w", domain.ErrUpstream)
	}
	if tr.AccessToken == "" {
		return nil, fmt.Errorf("empty access token in response: %w", domain.ErrUpstream)
	}

	return &tr, nil
}

// validateIDToken checks the aud, iss and exp claims of an ID token. The
// token arrives over TLS directly from the token endpoint in a
// confidential-client exchange, so claim validation is the contract here;
// the signature is not re-verified against JWKS.
func (c *OAuthClient) validateIDToken(idToken string) (subject, email string, err error) {
	parser := jwt.NewParser()

	claims := struct {
		jwt.RegisteredClaims
		Email string `json:"email,omitempty"`
	}{}

	if _, _, err := parser.ParseUnverified(idToken, &claims); err != nil {
		return "", "", fmt.Errorf("malformed id token: %w", domain.ErrAuthentication)
	}

	if !audContains(claims.Audience, c.config.ClientID) {
		return "", "", fmt.Errorf("id token audience mismatch: %w", domain.ErrAuthentication)
	}
	if claims.Issuer != c.config.Issuer {
		return "", "", fmt.Errorf("id token issuer mismatch: %w", domain.ErrAuthentication)
	}
	if claims.ExpiresAt == nil || !claims.ExpiresAt.Time.After(c.now()) {
		return "", "", fmt.Errorf("id token expired: %w", domain.ErrAuthentication)
	}

	return claims.Subject, claims.Email, nil
}

func audContains(aud jwt.ClaimStrings, want string) bool {
	for _, a := range aud {
		if a == want {
			return true
		}
	}
	return false
}

var _ ports.GoogleTokenExchanger = (*OAuthClient)(nil)
