package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/BalaSeethaRamanjaneyulu/IntelliAttend-sub000/internal/attend/domain"
	"github.com/BalaSeethaRamanjaneyulu/IntelliAttend-sub000/internal/attend/store"
)

type sessionsRepo struct {
	db dbtx
}

const sessionColumns = `id, host_id, class_id, room_id, subject_id, status, sequence,
	current_token, expected_attendees, started_at, rotated_at, ended_at`

func scanSession(row interface{ Scan(...any) error }) (domain.Session, error) {
	var s domain.Session
	var rotatedAt, endedAt sql.NullTime
	err := row.Scan(&s.ID, &s.HostID, &s.ClassID, &s.RoomID, &s.SubjectID, &s.Status,
		&s.Sequence, &s.CurrentToken, &s.ExpectedAttendees, &s.StartedAt, &rotatedAt, &endedAt)
	if err != nil {
		return domain.Session{}, err
	}
	s.RotatedAt = mapNullTimePtr(rotatedAt)
	s.EndedAt = mapNullTimePtr(endedAt)
	return s, nil
}

func (r *sessionsRepo) GetSessionByID(ctx context.Context, id string) (domain.Session, error) {
	s, err := scanSession(r.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id))
	if err != nil {
		return domain.Session{}, mapNotFound(err)
	}
	return s, nil
}

func (r *sessionsRepo) CreateSession(ctx context.Context, s domain.Session) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (id, host_id, class_id, room_id, subject_id, status, sequence,
		 current_token, expected_attendees, started_at, rotated_at, ended_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.HostID, s.ClassID, s.RoomID, s.SubjectID, s.Status, s.Sequence,
		s.CurrentToken, s.ExpectedAttendees, s.StartedAt,
		mapOptionalTime(s.RotatedAt), mapOptionalTime(s.EndedAt))
	if isUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	return err
}

func (r *sessionsRepo) UpdateRotation(ctx context.Context, sessionID string, sequence int64, currentToken string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET sequence = ?, current_token = ?, rotated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		sequence, currentToken, sessionID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *sessionsRepo) UpdateStatus(ctx context.Context, sessionID string, status string, endedAt time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET status = ?, ended_at = ? WHERE id = ?`,
		status, endedAt, sessionID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *sessionsRepo) ListActiveSessions(ctx context.Context) ([]domain.Session, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE status = ? ORDER BY started_at`,
		domain.SessionActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []domain.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

func (r *sessionsRepo) ExpireOrphans(ctx context.Context, endedAt time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET status = ?, ended_at = ? WHERE status = ?`,
		domain.SessionExpired, endedAt, domain.SessionActive)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *sessionsRepo) ExpireStale(ctx context.Context, cutoff time.Time, endedAt time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET status = ?, ended_at = ?
		 WHERE status = ? AND rotated_at IS NOT NULL AND rotated_at < ?`,
		domain.SessionExpired, endedAt, domain.SessionActive, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
