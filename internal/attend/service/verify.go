package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/BalaSeethaRamanjaneyulu/IntelliAttend-sub000/internal/attend/domain"
	"github.com/BalaSeethaRamanjaneyulu/IntelliAttend-sub000/internal/attend/store"
	"github.com/BalaSeethaRamanjaneyulu/IntelliAttend-sub000/pkg/cryptox"
	"github.com/BalaSeethaRamanjaneyulu/IntelliAttend-sub000/pkg/idx"
	"github.com/BalaSeethaRamanjaneyulu/IntelliAttend-sub000/pkg/qrtoken"
	"github.com/BalaSeethaRamanjaneyulu/IntelliAttend-sub000/pkg/relayclient"
	"github.com/BalaSeethaRamanjaneyulu/IntelliAttend-sub000/pkg/slogx"
)

// VerifyService runs the full verification flow for one scan: token checks,
// sensor scoring, verdict persistence, and the live tally push. Every
// attempt leaves a scan log row whatever its outcome.
type VerifyService struct {
	Store      store.Store
	Codec      *qrtoken.Codec
	Rotation   *RotationService
	Scorer     *Scorer
	Aggregator *Aggregator
	Relay      *Relay
	Logger     *slog.Logger
}

type VerifyRequest struct {
	SessionID string
	HolderID  string
	Token     string
	Sensors   domain.SensorSnapshot
}

// Verify decides one attempt. Token failures other than a dead session are
// retryable: the holder can rescan a fresh code, so no verdict is written
// for them. A matched token always produces a final verdict, present or
// failed by the confidence threshold.
func (s *VerifyService) Verify(ctx context.Context, req VerifyRequest) (domain.Verdict, error) {
	l := slogx.FromContext(ctx)

	sess, err := s.Store.Sessions().GetSessionByID(ctx, req.SessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return s.reject(ctx, req, domain.ReasonSessionNotFound), nil
		}
		return domain.Verdict{}, err
	}

	// One counted verdict per holder per session, ever.
	if _, err := s.Store.Attendance().GetAttendance(ctx, req.SessionID, req.HolderID); err == nil {
		return s.reject(ctx, req, domain.ReasonAlreadyMarked), nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return domain.Verdict{}, err
	}

	if sess.Status != domain.SessionActive {
		return s.reject(ctx, req, domain.ReasonNotActive), nil
	}

	if !qrtoken.IsWellFormed(req.Token) {
		return s.reject(ctx, req, domain.ReasonMalformed), nil
	}

	claims, err := s.Codec.Verify(req.Token)
	if err != nil {
		if errors.Is(err, qrtoken.ErrMalformed) {
			return s.reject(ctx, req, domain.ReasonMalformed), nil
		}
		return s.reject(ctx, req, domain.ReasonBadSignature), nil
	}
	if claims.SessionID != req.SessionID {
		return s.reject(ctx, req, domain.ReasonMismatch), nil
	}

	state, ok := s.Rotation.State(req.SessionID)
	if !ok {
		return s.reject(ctx, req, domain.ReasonNotActive), nil
	}
	if req.Token != state.Current.Token && req.Token != state.Previous.Token {
		return s.reject(ctx, req, domain.ReasonMismatch), nil
	}

	// Server clock is authoritative for freshness.
	age := time.Now().Unix() - claims.IssuedAt
	if age < 0 {
		return s.reject(ctx, req, domain.ReasonClockSkew), nil
	}
	if float64(age) > s.Codec.MaxAge().Seconds() {
		return s.reject(ctx, req, domain.ReasonExpired), nil
	}

	room, err := s.Store.Rooms().GetRoomByID(ctx, sess.RoomID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return domain.Verdict{}, err
	}

	scores := s.Scorer.Score(true, req.Sensors, room)
	confidence := s.Scorer.Confidence(scores)

	verdict := domain.Verdict{
		Matched:    confidence >= s.Scorer.Threshold(),
		Confidence: confidence,
		Scores:     scores,
	}
	status := domain.AttendancePresent
	if !verdict.Matched {
		status = domain.AttendanceFailed
		verdict.Reason = domain.ReasonLowConfidence
	}

	rec := domain.AttendanceRecord{
		ID:          idx.New().String(),
		SessionID:   req.SessionID,
		HolderID:    req.HolderID,
		Status:      status,
		Confidence:  confidence,
		TokenValid:  true,
		RadioScore:  scores.Radio,
		WifiScore:   scores.Network,
		GPSScore:    scores.Position,
		SubmittedAt: time.Now().UTC(),
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Attendance().CreateAttendance(ctx, rec); err != nil {
			return err
		}
		return tx.ScanLogs().CreateScanLog(ctx, s.scanLog(req, string(verdict.Reason)))
	})
	if err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			// Lost a race with a concurrent submission from the same holder.
			return s.reject(ctx, req, domain.ReasonAlreadyMarked), nil
		}
		return domain.Verdict{}, err
	}

	s.Aggregator.Record(req.SessionID, req.HolderID, status)
	s.pushTally(ctx, req.SessionID)

	l.Info("verification decided",
		slog.String("session_id", req.SessionID),
		slog.String("holder_id", req.HolderID),
		slog.String("status", status),
		slog.Float64("confidence", confidence))
	return verdict, nil
}

// reject logs the attempt and returns a negative verdict without touching
// the attendance ledger.
func (s *VerifyService) reject(ctx context.Context, req VerifyRequest, reason domain.Reason) domain.Verdict {
	if err := s.Store.ScanLogs().CreateScanLog(ctx, s.scanLog(req, string(reason))); err != nil {
		s.Logger.Error("failed to write scan log",
			slog.String("session_id", req.SessionID), slog.Any("error", err))
	}
	return domain.Verdict{Matched: false, Reason: reason}
}

func (s *VerifyService) scanLog(req VerifyRequest, notes string) domain.ScanLog {
	l := domain.ScanLog{
		ID:               idx.New().String(),
		SessionID:        req.SessionID,
		HolderID:         req.HolderID,
		TokenFingerprint: cryptox.FingerprintToken(req.Token),
		DeviceID:         req.Sensors.DeviceID,
		BeaconCount:      len(req.Sensors.Beacons),
		Notes:            notes,
		ScannedAt:        time.Now().UTC(),
	}
	if net := req.Sensors.Network; net != nil {
		l.WifiSSID = net.SSID
		l.WifiBSSID = net.BSSID
	}
	if pos := req.Sensors.Position; pos != nil {
		l.GPSLatitude = pos.Latitude
		l.GPSLongitude = pos.Longitude
		l.GPSAccuracy = pos.AccuracyMeters
	}
	return l
}

// pushTally broadcasts the session's current counts to watchers.
func (s *VerifyService) pushTally(ctx context.Context, sessionID string) {
	tally, ok := s.Aggregator.Snapshot(sessionID)
	if !ok {
		return
	}
	err := s.Relay.Publish(ctx, relayclient.Message{
		Type:         relayclient.TypeAttendanceUpdate,
		SessionID:    sessionID,
		TotalPresent: tally.Present,
		TotalFailed:  tally.Failed,
		TotalPending: tally.Pending,
		Total:        tally.Total,
	})
	if err != nil {
		s.Logger.Error("failed to push attendance tally",
			slog.String("session_id", sessionID), slog.Any("error", err))
	}
}
