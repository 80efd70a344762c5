/*
Package halsdk is a client SDK for OAuth2-protected HAL-style REST APIs.

# Overview

The package manages the full access-token lifecycle against a single
downstream API: it acquires tokens via the client_credentials and password
grants, caches them, refreshes them on expiry, and invalidates them on
failure. On top of that it exposes a typed request surface that attaches the
current bearer token to every call and normalizes success and error
responses.

# Registry and Client

A Registry hands out one Client per endpoint. Constructing a client for the
same endpoint twice returns the same instance, so in-flight token caching and
connection reuse are shared:

	ids := halsdk.NewIdentities("identities.json")
	reg := halsdk.NewRegistry("my-client-id", ids)
	api := reg.Client("https://api.example.com")

	resp, err := api.Get(ctx, "contacts")

Without a user session, clients authenticate service-to-service: a
client_credentials token is fetched once and reused for the life of the
client.

# Sessions

Interactive logins go through a Manager, one per logical session, backed by
a SessionStore (see the sessions package for in-memory, signed-token and
SQLite-backed implementations):

	mgr := halsdk.NewManager(store, api.Tokens(), api, "my-client-id")
	api.UseBearerSource(mgr)

	principal, err := mgr.Authenticate(ctx, username, password)

	// later, on another request for the same session
	if p := mgr.Instance(ctx); p != nil && p.IsAuthorized("public user") {
		user := p.User(ctx)
		_ = user
	}

Instance transparently refreshes an expired grant when a refresh token is
present; a failed refresh terminates the session and yields no principal
rather than surfacing a protocol error.

# Errors

Protocol failures (any 4xx/5xx response) surface as *Failure values carrying
the normalized error resource, message, description and HTTP status;
IsClientError/IsServerError give the classification most callers branch on.
Transport-level failures with no response at all surface as *TransportError
from the token client, and are folded into the Failure shape by the facade
verbs. Misconfiguration (an unreadable identities location) is a fatal
*ConfigError and is never retried.
*/
package halsdk
