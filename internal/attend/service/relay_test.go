package service

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/BalaSeethaRamanjaneyulu/IntelliAttend-sub000/pkg/relayclient"
	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, msgs <-chan relayclient.Message, n int) []relayclient.Message {
	t.Helper()

	out := make([]relayclient.Message, 0, n)
	deadline := time.After(5 * time.Second)
	for len(out) < n {
		select {
		case m, ok := <-msgs:
			require.True(t, ok, "channel closed early")
			out = append(out, m)
		case <-deadline:
			t.Fatalf("timed out after %d of %d messages", len(out), n)
		}
	}
	return out
}

func TestRelay_DeliversInPublishOrder(t *testing.T) {
	t.Parallel()

	r := NewRelay(slog.Default())
	t.Cleanup(func() { _ = r.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	msgs, err := r.Subscribe(ctx, "sess-1")
	require.NoError(t, err)

	for i := 1; i <= 5; i++ {
		require.NoError(t, r.Publish(ctx, relayclient.Message{
			Type:           relayclient.TypeQRUpdate,
			SessionID:      "sess-1",
			QRToken:        fmt.Sprintf("tok-%d", i),
			SequenceNumber: int64(i),
		}))
	}

	got := collect(t, msgs, 5)
	for i, m := range got {
		require.Equal(t, int64(i+1), m.SequenceNumber, "updates must arrive in publish order")
	}
}

func TestRelay_LateSubscriberGetsSnapshotNotBacklog(t *testing.T) {
	t.Parallel()

	r := NewRelay(slog.Default())
	t.Cleanup(func() { _ = r.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for i := 1; i <= 3; i++ {
		require.NoError(t, r.Publish(ctx, relayclient.Message{
			Type:           relayclient.TypeQRUpdate,
			SessionID:      "sess-1",
			QRToken:        fmt.Sprintf("tok-%d", i),
			SequenceNumber: int64(i),
		}))
	}
	require.NoError(t, r.Publish(ctx, relayclient.Message{
		Type:         relayclient.TypeAttendanceUpdate,
		SessionID:    "sess-1",
		TotalPresent: 7,
		Total:        20,
	}))

	msgs, err := r.Subscribe(ctx, "sess-1")
	require.NoError(t, err)

	got := collect(t, msgs, 2)
	require.Equal(t, relayclient.TypeQRUpdate, got[0].Type)
	require.Equal(t, int64(3), got[0].SequenceNumber, "only the latest update is replayed")
	require.Equal(t, relayclient.TypeAttendanceUpdate, got[1].Type)
	require.Equal(t, 7, got[1].TotalPresent)
}

func TestRelay_SessionsAreIsolated(t *testing.T) {
	t.Parallel()

	r := NewRelay(slog.Default())
	t.Cleanup(func() { _ = r.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := r.Subscribe(ctx, "sess-a")
	require.NoError(t, err)
	b, err := r.Subscribe(ctx, "sess-b")
	require.NoError(t, err)

	require.NoError(t, r.Publish(ctx, relayclient.Message{
		Type: relayclient.TypeQRUpdate, SessionID: "sess-a", QRToken: "tok-a", SequenceNumber: 1,
	}))
	require.NoError(t, r.Publish(ctx, relayclient.Message{
		Type: relayclient.TypeQRUpdate, SessionID: "sess-b", QRToken: "tok-b", SequenceNumber: 1,
	}))

	gotA := collect(t, a, 1)
	require.Equal(t, "tok-a", gotA[0].QRToken)
	gotB := collect(t, b, 1)
	require.Equal(t, "tok-b", gotB[0].QRToken)

	select {
	case m := <-a:
		t.Fatalf("sess-a subscriber received stray message %+v", m)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestRelay_ForgetDropsSnapshots(t *testing.T) {
	t.Parallel()

	r := NewRelay(slog.Default())
	t.Cleanup(func() { _ = r.Close() })

	ctx := context.Background()
	require.NoError(t, r.Publish(ctx, relayclient.Message{
		Type: relayclient.TypeQRUpdate, SessionID: "sess-1", QRToken: "tok", SequenceNumber: 1,
	}))

	_, ok := r.Snapshot("sess-1")
	require.True(t, ok)

	r.Forget("sess-1")
	_, ok = r.Snapshot("sess-1")
	require.False(t, ok)
}
