package halsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/halcyonhq/halcyon/pkg/idx"
	"github.com/halcyonhq/halcyon/pkg/slogx"
)

// DefaultClientCredentialsScope is the scope requested when a client falls
// back to a service-to-service token because no user principal is active.
const DefaultClientCredentialsScope = "public"

// BearerSource yields the bearer token to attach to an outgoing request.
// A Manager is a BearerSource: it yields the active principal's token.
type BearerSource interface {
	BearerToken(ctx context.Context) (token string, ok bool)
}

// Registry hands out one Client per distinct endpoint. Repeated requests for
// the same endpoint return the same instance so that the cached
// client-credentials token and the underlying connections are shared.
//
// The registry is an explicit object passed to callers by reference, not a
// hidden process global, so tests can construct isolated instances.
type Registry struct {
	identities *Identities
	clientID   string
	httpClient *http.Client
	tokenRoute string
	ccScope    string

	mu      sync.Mutex
	clients map[string]*Client
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithHTTPClient sets the http.Client shared by all clients the registry
// creates. Cancellation and timeouts are whatever this client is configured
// with; the SDK imposes no policy of its own.
func WithHTTPClient(hc *http.Client) RegistryOption {
	return func(r *Registry) { r.httpClient = hc }
}

// WithTokenRoute overrides the token endpoint path for all clients.
func WithTokenRoute(route string) RegistryOption {
	return func(r *Registry) { r.tokenRoute = route }
}

// WithClientCredentialsScope overrides the scope requested for
// service-to-service tokens.
func WithClientCredentialsScope(scope string) RegistryOption {
	return func(r *Registry) { r.ccScope = scope }
}

// NewRegistry creates a client registry for the given client identity.
func NewRegistry(clientID string, identities *Identities, opts ...RegistryOption) *Registry {
	r := &Registry{
		identities: identities,
		clientID:   clientID,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		tokenRoute: DefaultTokenRoute,
		ccScope:    DefaultClientCredentialsScope,
		clients:    make(map[string]*Client),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Client returns the client for the given endpoint, creating it on first
// use. Endpoints are canonicalized by stripping a trailing slash, so
// "https://api.example.com" and "https://api.example.com/" share a client.
func (r *Registry) Client(endpoint string) *Client {
	key := strings.TrimSuffix(endpoint, "/")

	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.clients[key]; ok {
		return c
	}

	tokens := NewTokenClient(key, r.identities)
	tokens.Route = r.tokenRoute
	tokens.HTTPClient = r.httpClient

	c := &Client{
		endpoint:   key,
		httpClient: r.httpClient,
		tokens:     tokens,
		clientID:   r.clientID,
		ccScope:    r.ccScope,
	}
	r.clients[key] = c
	return c
}

// Client is the per-endpoint API facade. Every outgoing request resolves a
// bearer token: the attached BearerSource is preferred (an active user
// principal), otherwise a client-credentials token is obtained once and
// reused for the life of the client.
type Client struct {
	endpoint   string
	httpClient *http.Client
	tokens     *TokenClient
	clientID   string
	ccScope    string

	bearerMu sync.RWMutex
	bearer   BearerSource

	mu      sync.Mutex
	ccToken string
}

// Endpoint returns the canonicalized base URL this client is bound to.
func (c *Client) Endpoint() string { return c.endpoint }

// Tokens returns the token client bound to this endpoint.
func (c *Client) Tokens() *TokenClient { return c.tokens }

// UseBearerSource attaches a bearer source, typically a session Manager, to
// be preferred over the client-credentials fallback.
func (c *Client) UseBearerSource(src BearerSource) {
	c.bearerMu.Lock()
	defer c.bearerMu.Unlock()
	c.bearer = src
}

// RequestOption configures a single request.
type RequestOption func(*requestOptions)

type requestOptions struct {
	headers map[string]string
	body    any
	rawBody []byte
	bearer  string
}

// WithHeader sets a request header.
func WithHeader(key, value string) RequestOption {
	return func(o *requestOptions) {
		if o.headers == nil {
			o.headers = make(map[string]string)
		}
		o.headers[key] = value
	}
}

// WithBody attaches a JSON-encoded request body.
func WithBody(v any) RequestOption {
	return func(o *requestOptions) { o.body = v }
}

// WithRawBody attaches a request body verbatim. Set the Content-Type with
// WithHeader.
func WithRawBody(b []byte) RequestOption {
	return func(o *requestOptions) { o.rawBody = b }
}

// WithBearer overrides bearer resolution for this request with an explicit
// token. Used by the session manager's identity lookup, which must present
// the session's own current access token.
func WithBearer(token string) RequestOption {
	return func(o *requestOptions) { o.bearer = token }
}

// Get issues a GET and normalizes the result.
func (c *Client) Get(ctx context.Context, uri string, opts ...RequestOption) (*Response, error) {
	return c.do(ctx, http.MethodGet, uri, opts...)
}

// Head issues a HEAD and normalizes the result.
func (c *Client) Head(ctx context.Context, uri string, opts ...RequestOption) (*Response, error) {
	return c.do(ctx, http.MethodHead, uri, opts...)
}

// Put issues a PUT and normalizes the result.
func (c *Client) Put(ctx context.Context, uri string, opts ...RequestOption) (*Response, error) {
	return c.do(ctx, http.MethodPut, uri, opts...)
}

// Patch issues a PATCH and normalizes the result.
func (c *Client) Patch(ctx context.Context, uri string, opts ...RequestOption) (*Response, error) {
	return c.do(ctx, http.MethodPatch, uri, opts...)
}

// Post issues a POST and normalizes the result.
func (c *Client) Post(ctx context.Context, uri string, opts ...RequestOption) (*Response, error) {
	return c.do(ctx, http.MethodPost, uri, opts...)
}

// Delete issues a DELETE and normalizes the result.
func (c *Client) Delete(ctx context.Context, uri string, opts ...RequestOption) (*Response, error) {
	return c.do(ctx, http.MethodDelete, uri, opts...)
}

// Options issues an OPTIONS and normalizes the result.
func (c *Client) Options(ctx context.Context, uri string, opts ...RequestOption) (*Response, error) {
	return c.do(ctx, http.MethodOptions, uri, opts...)
}

func (c *Client) do(ctx context.Context, method, uri string, opts ...RequestOption) (*Response, error) {
	var o requestOptions
	for _, opt := range opts {
		opt(&o)
	}

	var body io.Reader
	contentType := ""
	switch {
	case o.body != nil:
		payload, err := json.Marshal(o.body)
		if err != nil {
			return nil, fmt.Errorf("halsdk: failed to encode request body: %w", err)
		}
		body = bytes.NewReader(payload)
		contentType = "application/json"
	case o.rawBody != nil:
		body = bytes.NewReader(o.rawBody)
	}

	url := c.endpoint + "/" + strings.TrimPrefix(uri, "/")
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("halsdk: failed to create request: %w", err)
	}

	token, err := c.bearerToken(ctx, &o)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for k, v := range o.headers {
		req.Header.Set(k, v)
	}

	reqID := idx.New()
	req.Header.Set("X-Request-ID", reqID.String())
	log := slogx.FromContext(ctx).With("req_id", reqID.String(), "method", method, "url", url)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.WarnContext(ctx, "api_request_failed", "error", err)
		return nil, transportFailure(&TransportError{Op: method, URL: url, Err: err})
	}

	log.DebugContext(ctx, "api_request",
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return Normalize(resp)
}

// bearerToken resolves the token for an outgoing request: an explicit
// per-request override first, then the attached bearer source, then the
// cached client-credentials token. The cache is filled only when empty and
// is never proactively expired; it persists for the life of the client.
func (c *Client) bearerToken(ctx context.Context, o *requestOptions) (string, error) {
	if o.bearer != "" {
		return o.bearer, nil
	}

	c.bearerMu.RLock()
	src := c.bearer
	c.bearerMu.RUnlock()
	if src != nil {
		if token, ok := src.BearerToken(ctx); ok {
			return token, nil
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ccToken != "" {
		return c.ccToken, nil
	}

	grant, err := c.tokens.ClientCredentials(ctx, c.clientID, c.ccScope)
	if err != nil {
		return "", err
	}
	c.ccToken = grant.AccessToken
	return c.ccToken, nil
}
