package cryptox

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateToken(t *testing.T) {
	t.Parallel()

	t.Run("length follows the requested entropy", func(t *testing.T) {
		token, err := GenerateToken(TokenSize128)
		require.NoError(t, err)
		require.Len(t, token, 22)

		token, err = GenerateToken(TokenSize256)
		require.NoError(t, err)
		require.Len(t, token, 43)
	})

	t.Run("tokens are url safe", func(t *testing.T) {
		token, err := GenerateToken(TokenSize256)
		require.NoError(t, err)

		_, err = base64.RawURLEncoding.DecodeString(token)
		require.NoError(t, err)
	})

	t.Run("tokens are unique", func(t *testing.T) {
		seen := make(map[string]bool)
		for i := 0; i < 100; i++ {
			token, err := GenerateToken(TokenSize128)
			require.NoError(t, err)
			require.False(t, seen[token])
			seen[token] = true
		}
	})

	t.Run("rejects non positive sizes", func(t *testing.T) {
		_, err := GenerateToken(0)
		require.Error(t, err)
		_, err = GenerateToken(-1)
		require.Error(t, err)
	})
}

func TestMustGenerateToken(t *testing.T) {
	t.Parallel()

	require.NotEmpty(t, MustGenerateToken(TokenSize128))
	require.Panics(t, func() { MustGenerateToken(0) })
}

func TestFingerprintToken(t *testing.T) {
	t.Parallel()

	t.Run("deterministic", func(t *testing.T) {
		require.Equal(t, FingerprintToken("abc"), FingerprintToken("abc"))
	})

	t.Run("distinct inputs give distinct fingerprints", func(t *testing.T) {
		require.NotEqual(t, FingerprintToken("abc"), FingerprintToken("abd"))
	})

	t.Run("fingerprint does not reveal the token", func(t *testing.T) {
		token := MustGenerateToken(TokenSize256)
		fp := FingerprintToken(token)
		require.NotEqual(t, token, fp)
		require.Len(t, fp, 43)
	})
}
