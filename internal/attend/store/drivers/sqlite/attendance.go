package sqlite

import (
	"context"
	"time"

	"github.com/BalaSeethaRamanjaneyulu/IntelliAttend-sub000/internal/attend/domain"
	"github.com/BalaSeethaRamanjaneyulu/IntelliAttend-sub000/internal/attend/store"
)

type attendanceRepo struct {
	db dbtx
}

const attendanceColumns = `id, session_id, holder_id, status, confidence, token_valid,
	radio_score, wifi_score, gps_score, submitted_at`

func scanAttendance(row interface{ Scan(...any) error }) (domain.AttendanceRecord, error) {
	var rec domain.AttendanceRecord
	err := row.Scan(&rec.ID, &rec.SessionID, &rec.HolderID, &rec.Status, &rec.Confidence,
		&rec.TokenValid, &rec.RadioScore, &rec.WifiScore, &rec.GPSScore, &rec.SubmittedAt)
	if err != nil {
		return domain.AttendanceRecord{}, err
	}
	return rec, nil
}

func (r *attendanceRepo) CreateAttendance(ctx context.Context, rec domain.AttendanceRecord) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO attendance (id, session_id, holder_id, status, confidence, token_valid,
		 radio_score, wifi_score, gps_score, submitted_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.SessionID, rec.HolderID, rec.Status, rec.Confidence, rec.TokenValid,
		rec.RadioScore, rec.WifiScore, rec.GPSScore, rec.SubmittedAt)
	if isUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	return err
}

func (r *attendanceRepo) GetAttendance(ctx context.Context, sessionID, holderID string) (domain.AttendanceRecord, error) {
	rec, err := scanAttendance(r.db.QueryRowContext(ctx,
		`SELECT `+attendanceColumns+` FROM attendance WHERE session_id = ? AND holder_id = ?`,
		sessionID, holderID))
	if err != nil {
		return domain.AttendanceRecord{}, mapNotFound(err)
	}
	return rec, nil
}

func (r *attendanceRepo) ListBySession(ctx context.Context, sessionID string) ([]domain.AttendanceRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+attendanceColumns+` FROM attendance WHERE session_id = ? ORDER BY submitted_at`,
		sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []domain.AttendanceRecord
	for rows.Next() {
		rec, err := scanAttendance(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

func (r *attendanceRepo) CountByStatus(ctx context.Context, sessionID, status string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM attendance WHERE session_id = ? AND status = ?`,
		sessionID, status).Scan(&count)
	return count, err
}

type scanLogsRepo struct {
	db dbtx
}

func (r *scanLogsRepo) CreateScanLog(ctx context.Context, l domain.ScanLog) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO scan_logs (id, session_id, holder_id, token_fingerprint, device_id,
		 wifi_ssid, wifi_bssid, gps_latitude, gps_longitude, gps_accuracy, beacon_count,
		 notes, scanned_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.SessionID, l.HolderID, l.TokenFingerprint, l.DeviceID,
		l.WifiSSID, l.WifiBSSID, l.GPSLatitude, l.GPSLongitude, l.GPSAccuracy, l.BeaconCount,
		l.Notes, l.ScannedAt)
	return err
}

func (r *scanLogsRepo) ListBySession(ctx context.Context, sessionID string) ([]domain.ScanLog, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, session_id, holder_id, token_fingerprint, device_id, wifi_ssid, wifi_bssid,
		 gps_latitude, gps_longitude, gps_accuracy, beacon_count, notes, scanned_at
		 FROM scan_logs WHERE session_id = ? ORDER BY scanned_at`,
		sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []domain.ScanLog
	for rows.Next() {
		var l domain.ScanLog
		err := rows.Scan(&l.ID, &l.SessionID, &l.HolderID, &l.TokenFingerprint, &l.DeviceID,
			&l.WifiSSID, &l.WifiBSSID, &l.GPSLatitude, &l.GPSLongitude, &l.GPSAccuracy,
			&l.BeaconCount, &l.Notes, &l.ScannedAt)
		if err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

func (r *scanLogsRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM scan_logs WHERE scanned_at < ?`, cutoff)
	return err
}
