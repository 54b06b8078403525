package store

import (
	"context"
	"errors"
	"time"

	"github.com/BalaSeethaRamanjaneyulu/IntelliAttend-sub000/internal/attend/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite for now)
// implement this. It exposes sub-repositories to keep concerns tidy and
// testable, and to actively stop callers from accidentally nesting
// transactions.
type Store interface {
	Accounts() Accounts
	Rooms() Rooms
	Sessions() Sessions
	Attendance() Attendance
	ScanLogs() ScanLogs

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back, otherwise it is committed. This is the
	// recommended way to handle multi-step writes (e.g. recording a verdict
	// plus its scan log).
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Accounts interface {
	// GetAccountByID returns an account by id.
	GetAccountByID(ctx context.Context, id string) (domain.Account, error)

	// GetAccountByUsername is used during login.
	GetAccountByUsername(ctx context.Context, username string) (domain.Account, error)

	// CreateAccount inserts a new account (id is provided by app via ULID).
	CreateAccount(ctx context.Context, a domain.Account) error

	// UpdatePasswordHash sets the password_hash (argon2).
	UpdatePasswordHash(ctx context.Context, accountID string, newHash string) error

	// DeleteAccount removes an account.
	DeleteAccount(ctx context.Context, accountID string) error

	// IsEmpty returns true if there are no accounts (bootstrap check).
	IsEmpty(ctx context.Context) (bool, error)
}

type Rooms interface {
	// GetRoomByID returns a room profile with its registered beacons.
	GetRoomByID(ctx context.Context, id string) (domain.RoomProfile, error)

	// ListRooms returns all rooms ordered by name.
	ListRooms(ctx context.Context) ([]domain.RoomProfile, error)

	// CreateRoom inserts a new room profile.
	CreateRoom(ctx context.Context, r domain.RoomProfile) error

	// UpdateRoom replaces the mutable fields of a room profile.
	UpdateRoom(ctx context.Context, r domain.RoomProfile) error

	// DeleteRoom removes a room. Sessions keep their room_id for audit.
	DeleteRoom(ctx context.Context, roomID string) error
}

type Sessions interface {
	// GetSessionByID returns a session by id.
	GetSessionByID(ctx context.Context, id string) (domain.Session, error)

	// CreateSession inserts a new session in the active state.
	CreateSession(ctx context.Context, s domain.Session) error

	// UpdateRotation records the latest minted token and sequence for a
	// session. Called on every rotation tick so a restarted publisher can
	// resume past the highest issued sequence.
	UpdateRotation(ctx context.Context, sessionID string, sequence int64, currentToken string) error

	// UpdateStatus transitions a session to expired or completed and stamps
	// ended_at.
	UpdateStatus(ctx context.Context, sessionID string, status string, endedAt time.Time) error

	// ListActiveSessions returns all sessions still in the active state.
	ListActiveSessions(ctx context.Context) ([]domain.Session, error)

	// ExpireOrphans marks every active session as expired. Run at startup to
	// clean up sessions left behind by an unclean shutdown. Returns rows
	// affected.
	ExpireOrphans(ctx context.Context, endedAt time.Time) (int64, error)

	// ExpireStale marks active sessions whose last rotation is older than
	// cutoff as expired. Returns rows affected.
	ExpireStale(ctx context.Context, cutoff time.Time, endedAt time.Time) (int64, error)
}

type Attendance interface {
	// CreateAttendance inserts a holder's verdict for a session.
	CreateAttendance(ctx context.Context, rec domain.AttendanceRecord) error

	// GetAttendance returns the recorded verdict for a holder in a session,
	// or ErrNotFound if the holder has not been marked yet.
	GetAttendance(ctx context.Context, sessionID, holderID string) (domain.AttendanceRecord, error)

	// ListBySession returns all attendance records for a session ordered by
	// submission time.
	ListBySession(ctx context.Context, sessionID string) ([]domain.AttendanceRecord, error)

	// CountByStatus returns the number of records in a session with the
	// given status.
	CountByStatus(ctx context.Context, sessionID, status string) (int, error)
}

type ScanLogs interface {
	// CreateScanLog appends an audit record for one verification attempt.
	CreateScanLog(ctx context.Context, log domain.ScanLog) error

	// ListBySession returns all scan logs for a session ordered by scan time.
	ListBySession(ctx context.Context, sessionID string) ([]domain.ScanLog, error)

	// DeleteOlderThan removes scan logs older than cutoff (housekeeping).
	DeleteOlderThan(ctx context.Context, cutoff time.Time) error
}
