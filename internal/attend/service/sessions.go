package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/BalaSeethaRamanjaneyulu/IntelliAttend-sub000/internal/attend/domain"
	"github.com/BalaSeethaRamanjaneyulu/IntelliAttend-sub000/internal/attend/store"
	"github.com/BalaSeethaRamanjaneyulu/IntelliAttend-sub000/pkg/idx"
	"github.com/BalaSeethaRamanjaneyulu/IntelliAttend-sub000/pkg/slogx"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionNotOwned = errors.New("session belongs to another host")
	ErrSessionEnded    = errors.New("session already ended")
	ErrRoomNotFound    = errors.New("room not found")
)

// SessionService owns the session lifecycle: hosts open sessions, the
// rotation publisher keeps them alive, and hosts (or housekeeping) end them.
type SessionService struct {
	Store      store.Store
	Rotation   *RotationService
	Relay      *Relay
	Aggregator *Aggregator
	Logger     *slog.Logger
}

type StartSessionRequest struct {
	HostID            string
	ClassID           string
	RoomID            string
	SubjectID         string
	ExpectedAttendees int
}

// Start opens a session against a known room and begins token rotation.
func (s *SessionService) Start(ctx context.Context, req StartSessionRequest) (domain.Session, error) {
	l := slogx.FromContext(ctx)

	if _, err := s.Store.Rooms().GetRoomByID(ctx, req.RoomID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Session{}, ErrRoomNotFound
		}
		return domain.Session{}, err
	}

	sess := domain.Session{
		ID:                idx.New().String(),
		HostID:            req.HostID,
		ClassID:           req.ClassID,
		RoomID:            req.RoomID,
		SubjectID:         req.SubjectID,
		Status:            domain.SessionActive,
		ExpectedAttendees: req.ExpectedAttendees,
		StartedAt:         time.Now().UTC(),
	}
	if err := s.Store.Sessions().CreateSession(ctx, sess); err != nil {
		return domain.Session{}, err
	}

	s.Aggregator.Open(sess.ID, sess.ExpectedAttendees)

	if err := s.Rotation.Start(ctx, sess); err != nil {
		// The session row exists but has no publisher; mark it expired
		// rather than leave a dead active session behind.
		_ = s.Store.Sessions().UpdateStatus(ctx, sess.ID, domain.SessionExpired, time.Now().UTC())
		s.Aggregator.Close(sess.ID)
		return domain.Session{}, err
	}

	l.Info("session started",
		slog.String("session_id", sess.ID),
		slog.String("host_id", sess.HostID),
		slog.String("room_id", sess.RoomID))
	return sess, nil
}

// End transitions a session to a terminal status. Only the owning host may
// end it. Verdicts already recorded stay as they are.
func (s *SessionService) End(ctx context.Context, sessionID, hostID, status string) (domain.Session, error) {
	l := slogx.FromContext(ctx)

	sess, err := s.Store.Sessions().GetSessionByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Session{}, ErrSessionNotFound
		}
		return domain.Session{}, err
	}
	if hostID != "" && sess.HostID != hostID {
		return domain.Session{}, ErrSessionNotOwned
	}
	if sess.Status != domain.SessionActive {
		return domain.Session{}, ErrSessionEnded
	}

	ended := time.Now().UTC()
	if err := s.Store.Sessions().UpdateStatus(ctx, sessionID, status, ended); err != nil {
		return domain.Session{}, err
	}

	if err := s.Rotation.Stop(ctx, sessionID, status); err != nil && !errors.Is(err, ErrSessionNotRotating) {
		l.Error("failed to stop rotation", slog.String("session_id", sessionID), slog.Any("error", err))
	}

	sess.Status = status
	sess.EndedAt = &ended
	l.Info("session ended",
		slog.String("session_id", sessionID),
		slog.String("status", status))
	return sess, nil
}

// Status returns a session with its live tally. For ended sessions the
// tally is rebuilt from the attendance ledger.
func (s *SessionService) Status(ctx context.Context, sessionID string) (domain.Session, Tally, error) {
	sess, err := s.Store.Sessions().GetSessionByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Session{}, Tally{}, ErrSessionNotFound
		}
		return domain.Session{}, Tally{}, err
	}

	if tally, ok := s.Aggregator.Snapshot(sessionID); ok {
		return sess, tally, nil
	}

	present, err := s.Store.Attendance().CountByStatus(ctx, sessionID, domain.AttendancePresent)
	if err != nil {
		return domain.Session{}, Tally{}, err
	}
	failed, err := s.Store.Attendance().CountByStatus(ctx, sessionID, domain.AttendanceFailed)
	if err != nil {
		return domain.Session{}, Tally{}, err
	}

	tally := Tally{Present: present, Failed: failed, Total: sess.ExpectedAttendees}
	counted := present + failed
	if sess.ExpectedAttendees > counted {
		tally.Pending = sess.ExpectedAttendees - counted
	}
	if counted > sess.ExpectedAttendees {
		tally.Total = counted
	}
	return sess, tally, nil
}

// ExpireOrphans marks every active session expired. Run at startup: any
// session still active at boot lost its publisher in the previous run.
func (s *SessionService) ExpireOrphans(ctx context.Context) error {
	n, err := s.Store.Sessions().ExpireOrphans(ctx, time.Now().UTC())
	if err != nil {
		return err
	}
	if n > 0 {
		s.Logger.Warn("expired orphaned sessions from previous run", slog.Int64("count", n))
	}
	return nil
}
