package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/BalaSeethaRamanjaneyulu/IntelliAttend-sub000/internal/attend/domain"
	"github.com/BalaSeethaRamanjaneyulu/IntelliAttend-sub000/internal/attend/store"
)

// HousekeepingService periodically expires stale sessions and prunes old
// scan logs so neither grows without bound.
type HousekeepingService struct {
	Store    store.Store
	Rotation *RotationService
	Logger   *slog.Logger
	Interval time.Duration

	// StaleAfter is how long a session may go without a rotation tick
	// before housekeeping declares it dead.
	StaleAfter time.Duration

	// ScanLogRetention is how long scan log rows are kept.
	ScanLogRetention time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a housekeeping service with the given
// interval. Zero or negative durations fall back to defaults.
func NewHousekeepingService(st store.Store, rotation *RotationService, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = 1 * time.Minute
	}

	return &HousekeepingService{
		Store:            st,
		Rotation:         rotation,
		Logger:           logger,
		Interval:         interval,
		StaleAfter:       5 * time.Minute,
		ScanLogRetention: 30 * 24 * time.Hour,
		stopCh:           make(chan struct{}),
		doneCh:           make(chan struct{}),
	}
}

// Start begins the background worker. Non-blocking; call Stop() to
// gracefully shut the worker down.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop blocks until the worker has finished any in-progress cleanup.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.stopCh:
			return
		}
	}
}

// cleanup performs the actual work. Each step is independent; failures in
// one won't stop the others.
func (s *HousekeepingService) cleanup() {
	ctx := context.Background()
	now := time.Now().UTC()

	n, err := s.Store.Sessions().ExpireStale(ctx, now.Add(-s.StaleAfter), now)
	if err != nil {
		s.Logger.Error("failed to expire stale sessions", "error", err)
	} else if n > 0 {
		s.Logger.Warn("expired stale sessions", "count", n)
		s.stopDeadPublishers(ctx)
	}

	if err := s.Store.ScanLogs().DeleteOlderThan(ctx, now.Add(-s.ScanLogRetention)); err != nil {
		s.Logger.Error("failed to prune scan logs", "error", err)
	}
}

// stopDeadPublishers halts rotation for any session the database no longer
// considers active.
func (s *HousekeepingService) stopDeadPublishers(ctx context.Context) {
	active, err := s.Store.Sessions().ListActiveSessions(ctx)
	if err != nil {
		s.Logger.Error("failed to list active sessions", "error", err)
		return
	}
	alive := make(map[string]bool, len(active))
	for _, sess := range active {
		alive[sess.ID] = true
	}
	for _, sessionID := range s.Rotation.RotatingSessions() {
		if !alive[sessionID] {
			if err := s.Rotation.Stop(ctx, sessionID, domain.SessionExpired); err != nil {
				s.Logger.Error("failed to stop dead publisher",
					"session_id", sessionID, "error", err)
			}
		}
	}
}
