package idx

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("canonical form", func(t *testing.T) {
		id := New()
		require.Len(t, id.String(), 26)
		require.False(t, id.IsZero())
	})

	t.Run("monotonic within the same instant", func(t *testing.T) {
		at := time.Unix(1700000000, 0)
		a := NewAt(at)
		b := NewAt(at)
		require.Less(t, a.String(), b.String())
	})

	t.Run("embedded time round trips", func(t *testing.T) {
		at := time.Unix(1700000000, 0).UTC()
		id := NewAt(at)
		require.Equal(t, at, id.Time())
	})
}

func TestParse(t *testing.T) {
	t.Parallel()

	t.Run("valid", func(t *testing.T) {
		id := New()
		parsed, err := Parse(id.String())
		require.NoError(t, err)
		require.Equal(t, id, parsed)
	})

	t.Run("surrounding whitespace is trimmed", func(t *testing.T) {
		id := New()
		parsed, err := Parse("  " + id.String() + "\n")
		require.NoError(t, err)
		require.Equal(t, id, parsed)
	})

	t.Run("invalid", func(t *testing.T) {
		for _, input := range []string{"", "   ", "not-a-ulid", "0000000000000000000000000"} {
			_, err := Parse(input)
			require.ErrorIs(t, err, ErrInvalid, "input %q", input)
		}
	})
}

func TestZero(t *testing.T) {
	t.Parallel()

	require.True(t, Zero.IsZero())
	require.True(t, Zero.Time().IsZero())
}
