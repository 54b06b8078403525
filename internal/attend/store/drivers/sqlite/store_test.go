package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/BalaSeethaRamanjaneyulu/IntelliAttend-sub000/internal/attend/domain"
	"github.com/BalaSeethaRamanjaneyulu/IntelliAttend-sub000/internal/attend/store"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	// A file-backed database: ":memory:" gives every pooled connection its
	// own empty database.
	s, err := NewStore(filepath.Join(t.TempDir(), "attend.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.ApplyMigrations())
	return s
}

func TestAccounts_CreateAndLookup(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	empty, err := s.Accounts().IsEmpty(ctx)
	require.NoError(t, err)
	require.True(t, empty)

	acc := domain.Account{
		ID:           "acc-1",
		Username:     "host@example.edu",
		PasswordHash: "$argon2id$v=19$m=65536,t=3,p=2$c2FsdA$aGFzaA",
		Role:         domain.RoleHost,
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(t, s.Accounts().CreateAccount(ctx, acc))

	got, err := s.Accounts().GetAccountByUsername(ctx, "host@example.edu")
	require.NoError(t, err)
	require.Equal(t, acc.ID, got.ID)
	require.Equal(t, domain.RoleHost, got.Role)

	err = s.Accounts().CreateAccount(ctx, acc)
	require.ErrorIs(t, err, store.ErrAlreadyExists)

	_, err = s.Accounts().GetAccountByID(ctx, "nope")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestRooms_RoundTripBeaconList(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	room := domain.RoomProfile{
		ID:             "room-1",
		Name:           "Lecture Hall B",
		WifiSSID:       "campus-net",
		WifiBSSID:      "aa:bb:cc:dd:ee:ff",
		Beacons:        []string{"11:22:33:44:55:66", "22:33:44:55:66:77"},
		Latitude:       -27.4975,
		Longitude:      153.0137,
		GeofenceRadius: 30,
	}
	require.NoError(t, s.Rooms().CreateRoom(ctx, room))

	got, err := s.Rooms().GetRoomByID(ctx, "room-1")
	require.NoError(t, err)
	require.Equal(t, room.Beacons, got.Beacons)
	require.Equal(t, room.GeofenceRadius, got.GeofenceRadius)

	room.Beacons = nil
	room.Name = "Lecture Hall B (renamed)"
	require.NoError(t, s.Rooms().UpdateRoom(ctx, room))

	got, err = s.Rooms().GetRoomByID(ctx, "room-1")
	require.NoError(t, err)
	require.Empty(t, got.Beacons)
	require.Equal(t, "Lecture Hall B (renamed)", got.Name)
}

func TestSessions_RotationAndExpiry(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	host := domain.Account{ID: "acc-1", Username: "host", PasswordHash: "x", Role: domain.RoleHost, CreatedAt: time.Now().UTC()}
	require.NoError(t, s.Accounts().CreateAccount(ctx, host))

	sess := domain.Session{
		ID:        "sess-1",
		HostID:    host.ID,
		ClassID:   "class-1",
		RoomID:    "room-1",
		SubjectID: "subj-1",
		Status:    domain.SessionActive,
		StartedAt: time.Now().UTC(),
	}
	require.NoError(t, s.Sessions().CreateSession(ctx, sess))

	require.NoError(t, s.Sessions().UpdateRotation(ctx, "sess-1", 7, "IATT_payload_sig"))

	got, err := s.Sessions().GetSessionByID(ctx, "sess-1")
	require.NoError(t, err)
	require.Equal(t, int64(7), got.Sequence)
	require.Equal(t, "IATT_payload_sig", got.CurrentToken)
	require.NotNil(t, got.RotatedAt)
	require.Nil(t, got.EndedAt)

	active, err := s.Sessions().ListActiveSessions(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)

	ended := time.Now().UTC()
	require.NoError(t, s.Sessions().UpdateStatus(ctx, "sess-1", domain.SessionCompleted, ended))

	got, err = s.Sessions().GetSessionByID(ctx, "sess-1")
	require.NoError(t, err)
	require.Equal(t, domain.SessionCompleted, got.Status)
	require.NotNil(t, got.EndedAt)

	active, err = s.Sessions().ListActiveSessions(ctx)
	require.NoError(t, err)
	require.Empty(t, active)
}

func TestSessions_ExpireOrphans(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	host := domain.Account{ID: "acc-1", Username: "host", PasswordHash: "x", Role: domain.RoleHost, CreatedAt: time.Now().UTC()}
	require.NoError(t, s.Accounts().CreateAccount(ctx, host))

	for _, id := range []string{"sess-1", "sess-2"} {
		require.NoError(t, s.Sessions().CreateSession(ctx, domain.Session{
			ID: id, HostID: host.ID, ClassID: "c", RoomID: "r", SubjectID: "s",
			Status: domain.SessionActive, StartedAt: time.Now().UTC(),
		}))
	}

	n, err := s.Sessions().ExpireOrphans(ctx, time.Now().UTC())
	require.NoError(t, err)
	require.Equal(t, int64(2), n)

	got, err := s.Sessions().GetSessionByID(ctx, "sess-1")
	require.NoError(t, err)
	require.Equal(t, domain.SessionExpired, got.Status)
}

func TestAttendance_OneVerdictPerHolder(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	host := domain.Account{ID: "acc-1", Username: "host", PasswordHash: "x", Role: domain.RoleHost, CreatedAt: time.Now().UTC()}
	require.NoError(t, s.Accounts().CreateAccount(ctx, host))
	require.NoError(t, s.Sessions().CreateSession(ctx, domain.Session{
		ID: "sess-1", HostID: host.ID, ClassID: "c", RoomID: "r", SubjectID: "s",
		Status: domain.SessionActive, StartedAt: time.Now().UTC(),
	}))

	rec := domain.AttendanceRecord{
		ID:          "att-1",
		SessionID:   "sess-1",
		HolderID:    "holder-1",
		Status:      domain.AttendancePresent,
		Confidence:  0.87,
		TokenValid:  true,
		RadioScore:  0.9,
		WifiScore:   1,
		GPSScore:    0.6,
		SubmittedAt: time.Now().UTC(),
	}
	require.NoError(t, s.Attendance().CreateAttendance(ctx, rec))

	// Second verdict for the same holder must be rejected by the schema.
	rec.ID = "att-2"
	err := s.Attendance().CreateAttendance(ctx, rec)
	require.ErrorIs(t, err, store.ErrAlreadyExists)

	got, err := s.Attendance().GetAttendance(ctx, "sess-1", "holder-1")
	require.NoError(t, err)
	require.Equal(t, "att-1", got.ID)
	require.InDelta(t, 0.87, got.Confidence, 1e-9)

	count, err := s.Attendance().CountByStatus(ctx, "sess-1", domain.AttendancePresent)
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestScanLogs_HousekeepingCutoff(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC()
	old := domain.ScanLog{
		ID: "log-1", SessionID: "sess-1", HolderID: "holder-1",
		TokenFingerprint: "fp-old", ScannedAt: now.Add(-48 * time.Hour),
	}
	fresh := domain.ScanLog{
		ID: "log-2", SessionID: "sess-1", HolderID: "holder-1",
		TokenFingerprint: "fp-new", ScannedAt: now,
	}
	require.NoError(t, s.ScanLogs().CreateScanLog(ctx, old))
	require.NoError(t, s.ScanLogs().CreateScanLog(ctx, fresh))

	require.NoError(t, s.ScanLogs().DeleteOlderThan(ctx, now.Add(-24*time.Hour)))

	logs, err := s.ScanLogs().ListBySession(ctx, "sess-1")
	require.NoError(t, err)
	require.Len(t, logs, 1)
	require.Equal(t, "fp-new", logs[0].TokenFingerprint)
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	errBoom := store.ErrAlreadyExists
	err := s.WithTx(ctx, func(tx store.Tx) error {
		acc := domain.Account{ID: "acc-1", Username: "host", PasswordHash: "x", Role: domain.RoleHost, CreatedAt: time.Now().UTC()}
		if err := tx.Accounts().CreateAccount(ctx, acc); err != nil {
			return err
		}
		return errBoom
	})
	require.ErrorIs(t, err, errBoom)

	_, err = s.Accounts().GetAccountByID(ctx, "acc-1")
	require.ErrorIs(t, err, store.ErrNotFound)
}
