package sessions

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrBadToken reports a session token that failed signature or structural
// validation.
var ErrBadToken = errors.New("sessions: invalid session token")

// Codec signs session data into a compact HS256 token suitable for a cookie
// value, and verifies it on the way back in. A tampered or foreign token
// decodes to nothing, never to attacker-controlled session data.
type Codec struct {
	key []byte

	// Now is the clock used for the issued-at claim; overridable in tests.
	Now func() time.Time
}

// NewCodec creates a codec signing with the given HMAC key. The key must be
// kept secret and stable across the processes that share sessions.
func NewCodec(key []byte) *Codec {
	return &Codec{key: key}
}

// Encode signs the session data into a compact token.
func (c *Codec) Encode(data map[string]any) (string, error) {
	now := time.Now()
	if c.Now != nil {
		now = c.Now()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"dat": data,
		"iat": now.Unix(),
	})
	signed, err := token.SignedString(c.key)
	if err != nil {
		return "", fmt.Errorf("sessions: failed to sign session token: %w", err)
	}
	return signed, nil
}

// Decode verifies the token and returns the session data it carries.
func (c *Codec) Decode(blob string) (map[string]any, error) {
	token, err := jwt.Parse(blob,
		func(*jwt.Token) (any, error) { return c.key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil || !token.Valid {
		return nil, ErrBadToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrBadToken
	}
	data, ok := claims["dat"].(map[string]any)
	if !ok {
		return nil, ErrBadToken
	}
	return data, nil
}
