package idx

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Parallel()

	a := New()
	b := New()
	require.NotEqual(t, a, b)
	require.False(t, a.IsZero())
	require.Len(t, a.String(), 26)
}

func TestOrdering(t *testing.T) {
	t.Parallel()

	earlier := NewAt(time.Unix(1_700_000_000, 0))
	later := NewAt(time.Unix(1_700_000_100, 0))
	require.Less(t, earlier.String(), later.String())
}

func TestParse(t *testing.T) {
	t.Parallel()

	t.Run("round trip", func(t *testing.T) {
		id := New()
		parsed, err := Parse(id.String())
		require.NoError(t, err)
		require.Equal(t, id, parsed)
	})

	t.Run("rejects empty", func(t *testing.T) {
		_, err := Parse("  ")
		require.ErrorIs(t, err, ErrInvalid)
	})

	t.Run("rejects invalid", func(t *testing.T) {
		_, err := Parse("not-a-ulid")
		require.ErrorIs(t, err, ErrInvalid)
	})
}

func TestTime(t *testing.T) {
	t.Parallel()

	at := time.Unix(1_700_000_000, 0).UTC()
	id := NewAt(at)
	require.WithinDuration(t, at, id.Time(), time.Second)
	require.True(t, Zero.Time().IsZero())
}
