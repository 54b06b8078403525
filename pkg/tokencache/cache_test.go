package tokencache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/BalaSeethaRamanjaneyulu/IntelliAttend-sub000/pkg/qrtoken"
)

var codec = qrtoken.NewCodec([]byte("cache-test-secret"))

// mint returns a well-formed signed token issued at the given epoch
// second.
func mint(t *testing.T, seq, issuedAt int64) qrtoken.Minted {
	t.Helper()
	m, err := codec.Generate(
		qrtoken.Claims{SessionID: "sess-1", Sequence: seq},
		time.Unix(issuedAt, 0),
	)
	require.NoError(t, err)
	return m
}

// fakeClock lets tests move the holder's local time.
type fakeClock struct{ now int64 }

func (f *fakeClock) Now() time.Time { return time.Unix(f.now, 0) }

func newTestCache(clock *fakeClock) *Cache {
	c := New()
	c.now = clock.Now
	return c
}

func updateFor(m qrtoken.Minted, status string) Update {
	return Update{
		SessionID:        "sess-1",
		CurrentToken:     m.Token,
		CurrentTimestamp: m.Timestamp,
		CurrentExpiry:    m.Expiry,
		Sequence:         m.Sequence,
		Status:           status,
	}
}

func TestValidateBeforeFirstUpdate(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: 1000}
	c := newTestCache(clock)
	tok := mint(t, 1, 1000)

	ok, reason := c.Validate(tok.Token)
	require.False(t, ok)
	require.Equal(t, ReasonNotInitialized, reason)
}

func TestValidateMalformedSkipsCache(t *testing.T) {
	t.Parallel()

	c := newTestCache(&fakeClock{now: 1000})

	// Never initialized, but malformed input must win over the
	// cache-not-initialized reason.
	ok, reason := c.Validate("garbage")
	require.False(t, ok)
	require.Equal(t, ReasonMalformed, reason)
}

func TestValidateInactiveSession(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: 1000}
	c := newTestCache(clock)
	tok := mint(t, 1, 1000)
	require.True(t, c.OnUpdate(updateFor(tok, StatusCompleted)))

	ok, reason := c.Validate(tok.Token)
	require.False(t, ok)
	require.Equal(t, ReasonNotActive, reason)
}

func TestTerminalStatusEndsSession(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: 1000}
	c := newTestCache(clock)
	tok := mint(t, 7, 1000)
	require.True(t, c.OnUpdate(updateFor(tok, StatusActive)))

	// The final push carries only the session id and status; it must
	// apply even though it does not advance the sequence.
	require.True(t, c.OnUpdate(Update{SessionID: "sess-1", Status: StatusExpired}))

	ok, reason := c.Validate(tok.Token)
	require.False(t, ok)
	require.Equal(t, ReasonNotActive, reason)

	// The token pair survives the status flip.
	u, ok := c.Current()
	require.True(t, ok)
	require.Equal(t, tok.Token, u.CurrentToken)
	require.Equal(t, StatusExpired, u.Status)
}

func TestValidateMatchWindow(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: 1000}
	c := newTestCache(clock)

	current := mint(t, 2, 1000)
	previous := mint(t, 1, 995)
	u := updateFor(current, StatusActive)
	u.PreviousToken = previous.Token
	u.PreviousTimestamp = previous.Timestamp
	u.PreviousExpiry = previous.Expiry
	require.True(t, c.OnUpdate(u))

	t.Run("current accepted", func(t *testing.T) {
		ok, reason := c.Validate(current.Token)
		require.True(t, ok)
		require.Equal(t, ReasonNone, reason)
	})

	t.Run("previous accepted inside grace", func(t *testing.T) {
		clock.now = 1001 // previous is 6s old, max age is 7s
		ok, reason := c.Validate(previous.Token)
		require.True(t, ok)
		require.Equal(t, ReasonNone, reason)
	})

	t.Run("unknown token mismatches", func(t *testing.T) {
		other := mint(t, 99, 1000)
		ok, reason := c.Validate(other.Token)
		require.False(t, ok)
		require.Equal(t, ReasonMismatch, reason)
	})
}

func TestValidateExpiry(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: 1000}
	c := newTestCache(clock)
	tok := mint(t, 10, 1000)
	require.True(t, c.OnUpdate(updateFor(tok, StatusActive)))

	t.Run("accepted at max age", func(t *testing.T) {
		clock.now = 1007
		ok, _ := c.Validate(tok.Token)
		require.True(t, ok)
	})

	t.Run("expired beyond window", func(t *testing.T) {
		clock.now = 1009 // 9s old: past 5s validity + 2s grace
		ok, reason := c.Validate(tok.Token)
		require.False(t, ok)
		require.Equal(t, ReasonExpired, reason)
	})
}

func TestValidateClockSkew(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: 1000}
	c := newTestCache(clock)
	tok := mint(t, 1, 1000)
	require.True(t, c.OnUpdate(updateFor(tok, StatusActive)))

	// Local clock jumps backwards past the learned offset; the token now
	// appears to come from the future.
	clock.now = 995
	ok, reason := c.Validate(tok.Token)
	require.False(t, ok)
	require.Equal(t, ReasonClockSkew, reason)
}

func TestClockOffsetCorrection(t *testing.T) {
	t.Parallel()

	// Host issues at 1000 while the holder's clock reads 990: the cache
	// learns offset +10, so a scan at local 994 has adjusted age 4s.
	clock := &fakeClock{now: 990}
	c := newTestCache(clock)
	tok := mint(t, 1, 1000)
	require.True(t, c.OnUpdate(updateFor(tok, StatusActive)))
	require.Equal(t, int64(10), c.Offset())

	clock.now = 994
	ok, reason := c.Validate(tok.Token)
	require.True(t, ok)
	require.Equal(t, ReasonNone, reason)
}

func TestSequenceMonotonicity(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: 1000}
	c := newTestCache(clock)

	first := mint(t, 5, 1000)
	require.True(t, c.OnUpdate(updateFor(first, StatusActive)))

	t.Run("equal sequence discarded", func(t *testing.T) {
		stale := updateFor(mint(t, 5, 1001), StatusActive)
		require.False(t, c.OnUpdate(stale))
	})

	t.Run("lower sequence discarded", func(t *testing.T) {
		stale := updateFor(mint(t, 4, 1001), StatusActive)
		require.False(t, c.OnUpdate(stale))

		got, ok := c.Current()
		require.True(t, ok)
		require.Equal(t, int64(5), got.Sequence)
		require.Equal(t, first.Token, got.CurrentToken)
	})

	t.Run("higher sequence applied", func(t *testing.T) {
		next := updateFor(mint(t, 6, 1005), StatusActive)
		require.True(t, c.OnUpdate(next))
	})
}

func TestRotationAgesTokensOut(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: 0}
	c := newTestCache(clock)

	seq10 := mint(t, 10, 0)
	require.True(t, c.OnUpdate(updateFor(seq10, StatusActive)))

	// One interval later seq 10 rolls to previous.
	clock.now = 5
	seq11 := mint(t, 11, 5)
	u := updateFor(seq11, StatusActive)
	u.PreviousToken = seq10.Token
	u.PreviousTimestamp = seq10.Timestamp
	u.PreviousExpiry = seq10.Expiry
	require.True(t, c.OnUpdate(u))

	t.Run("retired token accepted at rotation boundary", func(t *testing.T) {
		// Scan of seq 10 arriving at t=6: 6s old, inside the 7s window.
		clock.now = 6
		ok, reason := c.Validate(seq10.Token)
		require.True(t, ok)
		require.Equal(t, ReasonNone, reason)
	})

	t.Run("gone after two intervals", func(t *testing.T) {
		clock.now = 10
		seq12 := mint(t, 12, 10)
		u := updateFor(seq12, StatusActive)
		u.PreviousToken = seq11.Token
		u.PreviousTimestamp = seq11.Timestamp
		u.PreviousExpiry = seq11.Expiry
		require.True(t, c.OnUpdate(u))

		ok, reason := c.Validate(seq10.Token)
		require.False(t, ok)
		require.Equal(t, ReasonMismatch, reason)
	})
}

func TestReplayBeyondWindow(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: 0}
	c := newTestCache(clock)

	seq10 := mint(t, 10, 0)
	require.True(t, c.OnUpdate(updateFor(seq10, StatusActive)))

	clock.now = 9
	ok, reason := c.Validate(seq10.Token)
	require.False(t, ok)
	require.Equal(t, ReasonExpired, reason)
}

func TestClear(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: 990}
	c := newTestCache(clock)
	tok := mint(t, 1, 1000)
	require.True(t, c.OnUpdate(updateFor(tok, StatusActive)))
	require.Equal(t, int64(10), c.Offset())

	c.Clear()
	require.Equal(t, int64(0), c.Offset())
	_, ok := c.Current()
	require.False(t, ok)

	valid, reason := c.Validate(tok.Token)
	require.False(t, valid)
	require.Equal(t, ReasonNotInitialized, reason)
}
