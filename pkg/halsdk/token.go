package halsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// DefaultTokenRoute is the conventional token endpoint path.
const DefaultTokenRoute = "security/token"

var errMalformedGrant = errors.New("halsdk: token response missing access_token")

// TokenClient executes OAuth2 grants against a single token endpoint. All
// grants POST a JSON body with HTTP Basic authentication derived from the
// credential store.
//
// Token-endpoint calls pass through Limiter so a misbehaving caller cannot
// hammer the authorization server; set Limiter to nil to disable.
type TokenClient struct {
	Endpoint   string
	Route      string
	Identities *Identities
	HTTPClient *http.Client
	Limiter    *rate.Limiter
	Logger     *slog.Logger
}

// NewTokenClient creates a token client for the given API endpoint.
func NewTokenClient(endpoint string, identities *Identities) *TokenClient {
	return &TokenClient{
		Endpoint:   strings.TrimSuffix(endpoint, "/"),
		Route:      DefaultTokenRoute,
		Identities: identities,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		Limiter: rate.NewLimiter(rate.Limit(10), 10),
	}
}

// ClientCredentials requests an access token using the client_credentials
// grant. This is for service-to-service calls with no user context and does
// not normally yield a refresh token.
func (tc *TokenClient) ClientCredentials(ctx context.Context, clientID, scope string) (*Grant, error) {
	return tc.exchange(ctx, clientID, map[string]any{
		"grant_type": "client_credentials",
		"scope":      scope,
	})
}

// Password requests an access token using the resource-owner-password grant.
// This is the interactive login path.
func (tc *TokenClient) Password(ctx context.Context, clientID, username, password, scope string) (*Grant, error) {
	return tc.exchange(ctx, clientID, map[string]any{
		"grant_type": "password",
		"username":   username,
		"password":   password,
		"scope":      scope,
	})
}

// Refresh exchanges a refresh token for a new grant.
func (tc *TokenClient) Refresh(ctx context.Context, clientID, refreshToken, scope string) (*Grant, error) {
	return tc.exchange(ctx, clientID, map[string]any{
		"grant_type":    "refresh_token",
		"refresh_token": refreshToken,
		"scope":         scope,
	})
}

// exchange performs one token-endpoint POST. A non-2xx response is translated
// into a *Failure by the normalizer and propagated, never swallowed: callers
// decide fallback behavior. Absence of any response surfaces as a
// *TransportError instead.
func (tc *TokenClient) exchange(ctx context.Context, clientID string, body map[string]any) (*Grant, error) {
	secret, err := tc.Identities.SecretKey(clientID)
	if err != nil {
		return nil, err
	}

	if tc.Limiter != nil {
		if err := tc.Limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("halsdk: failed to encode grant request: %w", err)
	}

	url := tc.Endpoint + "/" + strings.TrimPrefix(tc.tokenRoute(), "/")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("halsdk: failed to create request: %w", err)
	}
	req.SetBasicAuth(clientID, secret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := tc.HTTPClient.Do(req)
	if err != nil {
		return nil, &TransportError{Op: "token", URL: url, Err: err}
	}

	normalized, err := Normalize(resp)
	if err != nil {
		return nil, err
	}

	grant, err := grantFromResource(normalized.Resource())
	if err != nil {
		return nil, err
	}

	// Never log the secret, password or any token material.
	tc.logger().DebugContext(ctx, "token_exchange",
		"client_id", clientID,
		"grant_type", body["grant_type"],
		"expires_in", grant.ExpiresIn,
		"scope", grant.Scope,
	)

	return grant, nil
}

func (tc *TokenClient) tokenRoute() string {
	if tc.Route == "" {
		return DefaultTokenRoute
	}
	return tc.Route
}

func (tc *TokenClient) logger() *slog.Logger {
	if tc.Logger != nil {
		return tc.Logger
	}
	return slog.Default()
}
