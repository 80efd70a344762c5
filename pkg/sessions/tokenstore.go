package sessions

import (
	"context"
	"errors"
)

// TokenStore is a stateless SessionStore that keeps the whole session inside
// a signed token. The caller binds it to its own carrier, typically a
// session cookie, through the Read/Write/Delete hooks.
type TokenStore struct {
	Codec *Codec

	// Read returns the current token value, or ok=false when absent.
	Read func(ctx context.Context) (value string, ok bool)

	// Write stores a new token value.
	Write func(ctx context.Context, value string) error

	// Delete removes the token value. Must be idempotent.
	Delete func(ctx context.Context) error
}

func (s *TokenStore) Load(ctx context.Context) (map[string]any, error) {
	value, ok := s.Read(ctx)
	if !ok || value == "" {
		return nil, nil
	}

	data, err := s.Codec.Decode(value)
	if err != nil {
		// A tampered or undecodable blob is treated as no session at all.
		if errors.Is(err, ErrBadToken) {
			return nil, nil
		}
		return nil, err
	}
	return data, nil
}

func (s *TokenStore) Save(ctx context.Context, data map[string]any) error {
	value, err := s.Codec.Encode(data)
	if err != nil {
		return err
	}
	return s.Write(ctx, value)
}

func (s *TokenStore) Clear(ctx context.Context) error {
	return s.Delete(ctx)
}
