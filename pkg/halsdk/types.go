package halsdk

// Session data keys used by the principal lifecycle. The persisted session
// blob is the raw grant payload plus the keys written by this package.
const (
	sessionKeyAccessToken  = "access_token"
	sessionKeyRefreshToken = "refresh_token"
	sessionKeyScope        = "scope"
	sessionKeyExpires      = "expires"
	sessionKeyUser         = "user"
	sessionKeyAuthorized   = "authorized"
)

// Grant is the raw result of an OAuth2 token exchange. It is transient:
// produced by the token client and consumed immediately to build a principal
// or to populate the client-credentials token cache.
type Grant struct {
	// AccessToken is the bearer token granted by the exchange. Always
	// present; the token client rejects payloads without one.
	AccessToken string

	// RefreshToken is the long-lived credential for obtaining a new access
	// token, when the grant type yields one.
	RefreshToken string

	// TokenType is the token scheme, normally "Bearer".
	TokenType string

	// ExpiresIn is the access token lifetime in seconds.
	ExpiresIn int

	// Scope is the space-delimited set of granted permission tokens.
	Scope string

	raw map[string]any
}

// Raw returns a copy of the decoded grant payload as received from the token
// endpoint, including any fields beyond the standard ones. The refresh merge
// applies this over prior session data so that new grant fields override and
// absent fields inherit.
func (g *Grant) Raw() map[string]any {
	out := make(map[string]any, len(g.raw))
	for k, v := range g.raw {
		out[k] = v
	}
	return out
}

// grantFromResource interprets a normalized token-endpoint response body as a
// Grant. The wire contract requires access_token, expires_in and scope on
// success.
func grantFromResource(resource any) (*Grant, error) {
	raw, ok := resource.(map[string]any)
	if !ok {
		return nil, errMalformedGrant
	}

	g := &Grant{raw: raw}
	g.AccessToken, _ = raw[sessionKeyAccessToken].(string)
	if g.AccessToken == "" {
		return nil, errMalformedGrant
	}
	g.RefreshToken, _ = raw[sessionKeyRefreshToken].(string)
	g.TokenType, _ = raw["token_type"].(string)
	g.Scope, _ = raw[sessionKeyScope].(string)
	if n, ok := numericValue(raw["expires_in"]); ok {
		g.ExpiresIn = int(n)
	}
	return g, nil
}
