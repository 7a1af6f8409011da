// Package obo swaps a caller's inbound credential for a short-lived delegated
// credential via the OAuth2 On-Behalf-Of grant, a form POST against the
// tenant's token endpoint.
package obo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/spaarke-dev/spaarke-sub016/internal/apperrors"
	"github.com/spaarke-dev/spaarke-sub016/internal/domain/identity"
	"github.com/spaarke-dev/spaarke-sub016/internal/ports"
)

const (
	grantTypeJWTBearer = "urn:ietf:params:oauth:grant-type:jwt-bearer"
	tokenUseOnBehalfOf = "on_behalf_of"

	defaultTimeout = 8 * time.Second
	maxTimeout     = 10 * time.Second

	// Error bodies from the token endpoint are small JSON documents; anything
	// beyond this is noise.
	maxErrorBodyBytes = 8 << 10
)

// ExchangerConfig holds configuration for the OBO exchanger.
type ExchangerConfig struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scopes       []string

	// Timeout bounds each exchange call. Defaults to 8s, clamped to 10s.
	Timeout time.Duration

	HTTPClient *http.Client // Optional, defaults to http.DefaultClient
}

// Exchanger implements ports.CredentialExchanger against an OAuth2 token
// endpoint.
type Exchanger struct {
	tokenURL     string
	clientID     string
	clientSecret string
	scope        string
	timeout      time.Duration
	client       *http.Client
}

var _ ports.CredentialExchanger = (*Exchanger)(nil)

// NewExchanger creates an OBO exchanger from config.
func NewExchanger(config ExchangerConfig) (*Exchanger, error) {
	if config.TokenURL == "" {
		return nil, errors.New("token URL is required")
	}
	if config.ClientID == "" {
		return nil, errors.New("client ID is required")
	}
	if config.ClientSecret == "" {
		return nil, errors.New("client secret is required")
	}

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if timeout > maxTimeout {
		timeout = maxTimeout
	}

	client := config.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	return &Exchanger{
		tokenURL:     config.TokenURL,
		clientID:     config.ClientID,
		clientSecret: config.ClientSecret,
		scope:        strings.Join(config.Scopes, " "),
		timeout:      timeout,
		client:       client,
	}, nil
}

// tokenResponse is the token endpoint's success body.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// Exchange performs the On-Behalf-Of grant for the caller's credential. Every
// failure wraps apperrors.ErrExchangeFailed except cancellation of the
// caller's own context, which passes through; the per-call timeout expiring
// is an exchange failure, not a caller cancel.
func (e *Exchanger) Exchange(ctx context.Context, rawCredential string) (identity.DelegatedCredential, error) {
	if rawCredential == "" {
		return identity.DelegatedCredential{}, fmt.Errorf("empty assertion: %w", apperrors.ErrExchangeFailed)
	}

	parent := ctx
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	form := url.Values{
		"grant_type":          {grantTypeJWTBearer},
		"requested_token_use": {tokenUseOnBehalfOf},
		"client_id":           {e.clientID},
		"client_secret":       {e.clientSecret},
		"assertion":           {rawCredential},
	}
	if e.scope != "" {
		form.Set("scope", e.scope)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return identity.DelegatedCredential{}, fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := e.client.Do(req)
	if err != nil {
		if parent.Err() != nil {
			return identity.DelegatedCredential{}, parent.Err()
		}
		return identity.DelegatedCredential{}, fmt.Errorf("call token endpoint: %w: %w", apperrors.ErrExchangeFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode/100 != 2 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return identity.DelegatedCredential{}, fmt.Errorf("token endpoint status %d: %s: %w",
			resp.StatusCode, strings.TrimSpace(string(body)), apperrors.ErrExchangeFailed)
	}

	var body tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return identity.DelegatedCredential{}, fmt.Errorf("decode token response: %w: %w", apperrors.ErrExchangeFailed, err)
	}
	if body.AccessToken == "" || body.ExpiresIn <= 0 {
		return identity.DelegatedCredential{}, fmt.Errorf("malformed token response: %w", apperrors.ErrExchangeFailed)
	}

	return identity.DelegatedCredential{
		Token:     body.AccessToken,
		ExpiresAt: time.Now().Add(time.Duration(body.ExpiresIn) * time.Second),
	}, nil
}
