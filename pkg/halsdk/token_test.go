package halsdk

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

// grantBody is the canonical successful token response used across tests.
func grantBody(accessToken, refreshToken, scope string, expiresIn int) map[string]any {
	body := map[string]any{
		"access_token": accessToken,
		"token_type":   "Bearer",
		"expires_in":   expiresIn,
		"scope":        scope,
	}
	if refreshToken != "" {
		body["refresh_token"] = refreshToken
	}
	return body
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestTokenClientWireContract(t *testing.T) {
	t.Parallel()

	var captured struct {
		user, pass, contentType string
		body                    map[string]any
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/security/token", r.URL.Path)

		var ok bool
		captured.user, captured.pass, ok = r.BasicAuth()
		require.True(t, ok)
		captured.contentType = r.Header.Get("Content-Type")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured.body))

		writeJSON(w, 200, grantBody("T1", "R1", "public user", 3600))
	}))
	defer srv.Close()

	tc := NewTokenClient(srv.URL, writeIdentities(t))

	grant, err := tc.Password(context.Background(), "test-client", "alice", "hunter2", "public user")
	require.NoError(t, err)

	require.Equal(t, "test-client", captured.user)
	require.Equal(t, "s3cret", captured.pass)
	require.Equal(t, "application/json", captured.contentType)
	require.Equal(t, "password", captured.body["grant_type"])
	require.Equal(t, "alice", captured.body["username"])
	require.Equal(t, "hunter2", captured.body["password"])
	require.Equal(t, "public user", captured.body["scope"])

	require.Equal(t, "T1", grant.AccessToken)
	require.Equal(t, "R1", grant.RefreshToken)
	require.Equal(t, 3600, grant.ExpiresIn)
	require.Equal(t, "public user", grant.Scope)
	require.Equal(t, "Bearer", grant.TokenType)
}

func TestTokenClientGrantTypes(t *testing.T) {
	t.Parallel()

	var lastBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&lastBody))
		writeJSON(w, 200, grantBody("T", "", "public", 60))
	}))
	defer srv.Close()

	tc := NewTokenClient(srv.URL, writeIdentities(t))

	_, err := tc.ClientCredentials(context.Background(), "test-client", "public")
	require.NoError(t, err)
	require.Equal(t, "client_credentials", lastBody["grant_type"])
	require.Equal(t, "public", lastBody["scope"])

	_, err = tc.Refresh(context.Background(), "test-client", "refresh-1", "public user")
	require.NoError(t, err)
	require.Equal(t, "refresh_token", lastBody["grant_type"])
	require.Equal(t, "refresh-1", lastBody["refresh_token"])
	require.Equal(t, "public user", lastBody["scope"])
}

func TestTokenClientCustomRoute(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/oauth/v2/token", r.URL.Path)
		writeJSON(w, 200, grantBody("T", "", "public", 60))
	}))
	defer srv.Close()

	tc := NewTokenClient(srv.URL, writeIdentities(t))
	tc.Route = "oauth/v2/token"

	_, err := tc.ClientCredentials(context.Background(), "test-client", "public")
	require.NoError(t, err)
}

func TestTokenClientProtocolFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 400, map[string]any{
			"error":             "invalid_grant",
			"error_description": "bad password",
		})
	}))
	defer srv.Close()

	tc := NewTokenClient(srv.URL, writeIdentities(t))

	_, err := tc.Password(context.Background(), "test-client", "alice", "wrong", "public user")

	var failure *Failure
	require.ErrorAs(t, err, &failure)
	require.Equal(t, "invalid_grant", failure.Message)
	require.Equal(t, "bad password", failure.Description)
	require.Equal(t, 400, failure.Status)
}

func TestTokenClientTransportUnavailable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // refuse all connections

	tc := NewTokenClient(srv.URL, writeIdentities(t))

	_, err := tc.ClientCredentials(context.Background(), "test-client", "public")

	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
	var failure *Failure
	require.False(t, errors.As(err, &failure), "transport failure must not masquerade as a protocol failure")
}

func TestTokenClientMissingAccessToken(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, map[string]any{"expires_in": 60, "scope": "public"})
	}))
	defer srv.Close()

	tc := NewTokenClient(srv.URL, writeIdentities(t))

	_, err := tc.ClientCredentials(context.Background(), "test-client", "public")
	require.ErrorIs(t, err, errMalformedGrant)
}

func TestTokenClientUnknownIdentity(t *testing.T) {
	t.Parallel()

	tc := NewTokenClient("http://127.0.0.1:0", writeIdentities(t))

	_, err := tc.ClientCredentials(context.Background(), "who-dis", "public")
	require.ErrorIs(t, err, ErrIdentityNotFound)
}
