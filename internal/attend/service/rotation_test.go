package service

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/BalaSeethaRamanjaneyulu/IntelliAttend-sub000/internal/attend/domain"
	"github.com/BalaSeethaRamanjaneyulu/IntelliAttend-sub000/internal/attend/store/drivers/sqlite"
	"github.com/BalaSeethaRamanjaneyulu/IntelliAttend-sub000/internal/attend/store/seq"
	"github.com/BalaSeethaRamanjaneyulu/IntelliAttend-sub000/pkg/qrtoken"
	"github.com/BalaSeethaRamanjaneyulu/IntelliAttend-sub000/pkg/relayclient"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()

	s, err := sqlite.NewStore(filepath.Join(t.TempDir(), "attend.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.ApplyMigrations())
	return s
}

func seedSession(t *testing.T, st *sqlite.Store, sessionID string) domain.Session {
	t.Helper()
	ctx := context.Background()

	host := domain.Account{ID: "host-" + sessionID, Username: "host-" + sessionID, PasswordHash: "x", Role: domain.RoleHost, CreatedAt: time.Now().UTC()}
	require.NoError(t, st.Accounts().CreateAccount(ctx, host))

	sess := domain.Session{
		ID:        sessionID,
		HostID:    host.ID,
		ClassID:   "class-1",
		RoomID:    "room-1",
		SubjectID: "subj-1",
		Status:    domain.SessionActive,
		StartedAt: time.Now().UTC(),
	}
	require.NoError(t, st.Sessions().CreateSession(ctx, sess))
	return sess
}

func newTestRotation(t *testing.T, st *sqlite.Store, interval time.Duration) (*RotationService, *Relay) {
	t.Helper()

	logger := slog.Default()
	relay := NewRelay(logger)
	t.Cleanup(func() { _ = relay.Close() })

	codec := qrtoken.NewCodec([]byte("rotation-test-secret"))
	svc := NewRotationService(st, seq.NewMemoryStore(), codec, relay, logger, interval)
	t.Cleanup(svc.StopAll)
	return svc, relay
}

func TestRotation_FirstTokenAvailableImmediately(t *testing.T) {
	t.Parallel()

	st := newTestStore(t)
	sess := seedSession(t, st, "sess-1")
	svc, _ := newTestRotation(t, st, time.Hour)

	ctx := context.Background()
	require.NoError(t, svc.Start(ctx, sess))

	state, ok := svc.State("sess-1")
	require.True(t, ok)
	require.NotEmpty(t, state.Current.Token)
	require.Equal(t, int64(1), state.Current.Sequence)
	require.Empty(t, state.Previous.Token, "no previous before the second mint")

	// The mint is persisted before Start returns.
	got, err := st.Sessions().GetSessionByID(ctx, "sess-1")
	require.NoError(t, err)
	require.Equal(t, int64(1), got.Sequence)
	require.Equal(t, state.Current.Token, got.CurrentToken)

	require.ErrorIs(t, svc.Start(ctx, sess), ErrSessionAlreadyRotating)
}

func TestRotation_TicksShiftThePairForward(t *testing.T) {
	t.Parallel()

	st := newTestStore(t)
	sess := seedSession(t, st, "sess-1")
	svc, relay := newTestRotation(t, st, 30*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	msgs, err := relay.Subscribe(ctx, "sess-1")
	require.NoError(t, err)

	require.NoError(t, svc.Start(ctx, sess))

	// Collect updates until three distinct sequences have been seen.
	seen := make(map[int64]relayclient.Message)
	deadline := time.After(5 * time.Second)
	for len(seen) < 3 {
		select {
		case m := <-msgs:
			if m.Type == relayclient.TypeQRUpdate {
				seen[m.SequenceNumber] = m
			}
		case <-deadline:
			t.Fatal("timed out waiting for rotations")
		}
	}

	second, third := seen[2], seen[3]
	require.Equal(t, second.QRToken, third.PreviousToken, "each tick demotes the current token")
	require.Equal(t, second.Timestamp, third.PreviousTimestamp)
	require.NotEqual(t, second.QRToken, third.QRToken)
	require.Equal(t, domain.SessionActive, third.Status)
}

func TestRotation_StopPublishesTerminalStatus(t *testing.T) {
	t.Parallel()

	st := newTestStore(t)
	sess := seedSession(t, st, "sess-1")
	svc, relay := newTestRotation(t, st, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, svc.Start(ctx, sess))

	msgs, err := relay.Subscribe(ctx, "sess-1")
	require.NoError(t, err)

	require.NoError(t, svc.Stop(ctx, "sess-1", domain.SessionCompleted))
	require.ErrorIs(t, svc.Stop(ctx, "sess-1", domain.SessionCompleted), ErrSessionNotRotating)

	_, ok := svc.State("sess-1")
	require.False(t, ok)

	deadline := time.After(5 * time.Second)
	for {
		select {
		case m := <-msgs:
			if m.Status == domain.SessionCompleted {
				require.Equal(t, relayclient.TypeSessionStatus, m.Type)
				return
			}
		case <-deadline:
			t.Fatal("terminal update never arrived")
		}
	}
}

func TestRotation_ResumesPastPersistedSequence(t *testing.T) {
	t.Parallel()

	st := newTestStore(t)
	sess := seedSession(t, st, "sess-1")
	sess.Sequence = 41 // as if a previous run had already minted 41 tokens
	svc, _ := newTestRotation(t, st, time.Hour)

	require.NoError(t, svc.Start(context.Background(), sess))

	state, ok := svc.State("sess-1")
	require.True(t, ok)
	require.Equal(t, int64(42), state.Current.Sequence)
}
