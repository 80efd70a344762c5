package halsdk

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// Default routes and scopes for the user-facing session flow.
const (
	// DefaultIdentityRoute is the conventional identity-lookup path used to
	// hydrate the principal's user record.
	DefaultIdentityRoute = "security/token/ident"

	// DefaultSessionScope is the scope requested when authenticating a user
	// session and when refreshing it.
	DefaultSessionScope = "public user"
)

// SessionStore persists opaque session data for a single logical session.
// Load returns (nil, nil) when no session data exists. Implementations whose
// mechanism can be administratively disabled should report that condition
// through Unavailable (see sessions.Disabled) or by returning
// ErrSessionUnavailable from their operations.
type SessionStore interface {
	Load(ctx context.Context) (map[string]any, error)
	Save(ctx context.Context, data map[string]any) error
	Clear(ctx context.Context) error
}

// unavailability is an optional SessionStore extension probed before
// authentication so a disabled mechanism fails fast, without a wasted token
// exchange.
type unavailability interface {
	Unavailable() bool
}

// Manager owns the principal lifecycle for a single session: it
// authenticates, restores, refreshes and terminates the session's principal.
// One Manager must be used per logical session; its internal mutex is the
// critical section that keeps Instance's read-refresh-write from racing a
// concurrent Authenticate or EndSession for the same session, and collapses
// concurrent refreshes to a single in-flight call.
type Manager struct {
	Store    SessionStore
	Tokens   *TokenClient
	API      *Client
	ClientID string

	// IdentityRoute overrides the identity-lookup path. Defaults to
	// DefaultIdentityRoute.
	IdentityRoute string

	// Scope is the scope requested on authenticate and refresh. Defaults to
	// DefaultSessionScope.
	Scope string

	Logger *slog.Logger

	// Now is the clock; overridable in tests. Defaults to time.Now.
	Now func() time.Time

	mu sync.Mutex
}

// NewManager creates a session manager bound to the given store. The api
// client is used for the identity lookup that hydrates the user record.
func NewManager(store SessionStore, tokens *TokenClient, api *Client, clientID string) *Manager {
	return &Manager{
		Store:    store,
		Tokens:   tokens,
		API:      api,
		ClientID: clientID,
	}
}

// Authenticate performs the resource-owner-password grant and starts a new
// session holding the resulting grant. Token-exchange failures propagate
// unmodified as *Failure values for the caller to render; no session is
// created on failure. When the session mechanism is disabled it fails with
// ErrSessionUnavailable before exchanging credentials.
func (m *Manager) Authenticate(ctx context.Context, username, password string) (*Principal, error) {
	if m.Store == nil {
		return nil, ErrSessionUnavailable
	}
	if u, ok := m.Store.(unavailability); ok && u.Unavailable() {
		return nil, ErrSessionUnavailable
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	grant, err := m.Tokens.Password(ctx, m.ClientID, username, password, m.scope())
	if err != nil {
		return nil, err
	}

	data := grant.Raw()
	data[sessionKeyExpires] = m.now().Unix() + int64(grant.ExpiresIn)

	if err := m.Store.Save(ctx, data); err != nil {
		return nil, err
	}
	return m.principalFromData(data), nil
}

// Instance restores the principal from the session store. It returns nil
// when no session exists, and transparently refreshes an expired grant when
// a refresh token is present. Failures during that implicit refresh are
// absorbed: they terminate the session and yield nil, never a raw protocol
// error. Persisted data lacking an expires field is treated as expired an
// hour ago, forcing the refresh-or-invalidate path rather than trusting a
// stale unmarked token.
func (m *Manager) Instance(ctx context.Context) *Principal {
	if m.Store == nil {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := m.Store.Load(ctx)
	if err != nil {
		m.logger().WarnContext(ctx, "session_load_failed", "error", err)
		return nil
	}
	if data == nil {
		return nil
	}

	now := m.now()
	dirty := false

	expires, ok := numericValue(data[sessionKeyExpires])
	if !ok {
		expires = now.Add(-time.Hour).Unix()
		data[sessionKeyExpires] = expires
		dirty = true
	}

	if now.Unix() > expires {
		refreshToken, _ := data[sessionKeyRefreshToken].(string)
		if refreshToken == "" {
			m.logger().InfoContext(ctx, "session_expired_no_refresh")
			m.endSessionLocked(ctx)
			return nil
		}

		grant, err := m.Tokens.Refresh(ctx, m.ClientID, refreshToken, m.scope())
		if err != nil {
			m.logger().WarnContext(ctx, "session_refresh_failed", "error", err)
			m.endSessionLocked(ctx)
			return nil
		}

		// New grant fields override; fields absent from the refresh
		// response, such as the hydrated user record, survive.
		for k, v := range grant.Raw() {
			data[k] = v
		}
		data[sessionKeyExpires] = now.Unix() + int64(grant.ExpiresIn)
		dirty = true
	}

	if dirty {
		if err := m.Store.Save(ctx, data); err != nil {
			m.logger().WarnContext(ctx, "session_save_failed", "error", err)
			m.endSessionLocked(ctx)
			return nil
		}
	}

	return m.principalFromData(data)
}

// EndSession clears the session store. It is idempotent and safe to call
// when no session exists.
func (m *Manager) EndSession(ctx context.Context) error {
	if m.Store == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.endSessionLocked(ctx)
}

func (m *Manager) endSessionLocked(ctx context.Context) error {
	return m.Store.Clear(ctx)
}

// BearerToken implements the facade's bearer-source hook: it yields the
// current principal's access token when an active session exists.
func (m *Manager) BearerToken(ctx context.Context) (string, bool) {
	p := m.Instance(ctx)
	if p == nil || p.AccessToken() == "" {
		return "", false
	}
	return p.AccessToken(), true
}

// hydrateUser resolves the user record through the API's identity-lookup
// endpoint using the session's current access token, and persists the
// enrichment. Any failure ends the session: a principal whose identity
// cannot be confirmed is not allowed to linger half-authenticated.
func (m *Manager) hydrateUser(ctx context.Context, data map[string]any) (map[string]any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	token, _ := data[sessionKeyAccessToken].(string)
	resp, err := m.API.Get(ctx, m.identityRoute(), WithBearer(token))
	if err != nil {
		m.logger().WarnContext(ctx, "identity_lookup_failed", "error", err)
		m.endSessionLocked(ctx)
		return nil, err
	}

	user, _ := resp.Resource().(map[string]any)
	data[sessionKeyUser] = user
	if err := m.Store.Save(ctx, data); err != nil {
		m.logger().WarnContext(ctx, "session_save_failed", "error", err)
	}
	return user, nil
}

func (m *Manager) principalFromData(data map[string]any) *Principal {
	p := &Principal{now: m.now}

	p.accessToken, _ = data[sessionKeyAccessToken].(string)
	p.refreshToken, _ = data[sessionKeyRefreshToken].(string)
	p.scope, _ = data[sessionKeyScope].(string)
	p.authorized, _ = data[sessionKeyAuthorized].(bool)
	if expires, ok := numericValue(data[sessionKeyExpires]); ok {
		p.expires = time.Unix(expires, 0)
	}
	if user, ok := data[sessionKeyUser].(map[string]any); ok {
		p.user = user
		p.hydrated = true
	}
	p.hydrate = func(ctx context.Context) (map[string]any, error) {
		return m.hydrateUser(ctx, data)
	}
	return p
}

func (m *Manager) scope() string {
	if m.Scope == "" {
		return DefaultSessionScope
	}
	return m.Scope
}

func (m *Manager) identityRoute() string {
	if m.IdentityRoute == "" {
		return DefaultIdentityRoute
	}
	return m.IdentityRoute
}

func (m *Manager) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

func (m *Manager) logger() *slog.Logger {
	if m.Logger != nil {
		return m.Logger
	}
	return slog.Default()
}

// Principal is the authenticated session identity and its token state. It is
// reconstructed from persisted session data on each access; mutations such
// as refresh or user hydration are re-persisted by the Manager that built it.
type Principal struct {
	accessToken  string
	refreshToken string
	expires      time.Time
	scope        string
	authorized   bool

	now func() time.Time

	mu       sync.Mutex
	user     map[string]any
	hydrated bool
	hydrate  func(ctx context.Context) (map[string]any, error)
}

// AccessToken returns the current bearer token.
func (p *Principal) AccessToken() string { return p.accessToken }

// RefreshToken returns the refresh token, or "" when the grant carried none.
func (p *Principal) RefreshToken() string { return p.refreshToken }

// HasRefreshToken reports whether the principal can be refreshed.
func (p *Principal) HasRefreshToken() bool { return p.refreshToken != "" }

// Scope returns the space-delimited granted scope.
func (p *Principal) Scope() string { return p.scope }

// Expires returns the absolute instant the access token expires.
func (p *Principal) Expires() time.Time { return p.expires }

// IsExpired reports whether the access token is past its expiry.
func (p *Principal) IsExpired() bool {
	return p.now().After(p.expires)
}

// User returns the principal's user record, resolving it through the
// identity-lookup endpoint on first access. A lookup failure returns nil and
// terminates the session; the outcome, success or failure, is cached so the
// lookup happens at most once per Principal.
func (p *Principal) User(ctx context.Context) map[string]any {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.hydrated {
		return p.user
	}
	p.hydrated = true
	if p.hydrate == nil {
		return nil
	}

	user, err := p.hydrate(ctx)
	if err != nil {
		return nil
	}
	p.user = user
	return p.user
}

// IsAuthorized reports whether the requested scope set, split on whitespace,
// is a subset of the granted scope set. When the requested set includes
// "user" or "admin", authorization additionally requires the principal's
// explicit authorized flag: having the scope is not the same as being
// administratively cleared.
func (p *Principal) IsAuthorized(scope string) bool {
	granted := scopeSet(p.scope)
	requested := strings.Fields(scope)

	for _, s := range requested {
		if !granted[s] {
			return false
		}
	}
	for _, s := range requested {
		if s == "user" || s == "admin" {
			return p.authorized
		}
	}
	return true
}

func scopeSet(scope string) map[string]bool {
	fields := strings.Fields(scope)
	set := make(map[string]bool, len(fields))
	for _, s := range fields {
		set[s] = true
	}
	return set
}
