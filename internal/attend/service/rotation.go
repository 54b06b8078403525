package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/BalaSeethaRamanjaneyulu/IntelliAttend-sub000/internal/attend/domain"
	"github.com/BalaSeethaRamanjaneyulu/IntelliAttend-sub000/internal/attend/store"
	"github.com/BalaSeethaRamanjaneyulu/IntelliAttend-sub000/internal/attend/store/seq"
	"github.com/BalaSeethaRamanjaneyulu/IntelliAttend-sub000/pkg/qrtoken"
	"github.com/BalaSeethaRamanjaneyulu/IntelliAttend-sub000/pkg/relayclient"
)

var (
	ErrSessionAlreadyRotating = errors.New("session already has a rotation publisher")
	ErrSessionNotRotating     = errors.New("session has no rotation publisher")
)

// RotationState is the publisher's view of a session's valid tokens: the
// freshly minted one plus the one it replaced. Exactly these two are
// accepted by verification.
type RotationState struct {
	Current  qrtoken.Minted
	Previous qrtoken.Minted // zero until the second mint
}

// RotationService runs one publisher goroutine per active session. Each
// publisher mints a token every interval, persists the rotation, and pushes
// a qr_update through the relay. All updates for a session come from its
// single goroutine, which is what keeps sequence numbers in push order.
type RotationService struct {
	Store    store.Store
	Seq      seq.Store
	Codec    *qrtoken.Codec
	Relay    *Relay
	Logger   *slog.Logger
	Interval time.Duration

	mu     sync.Mutex
	actors map[string]*rotationActor
}

func NewRotationService(st store.Store, sq seq.Store, codec *qrtoken.Codec, relay *Relay, logger *slog.Logger, interval time.Duration) *RotationService {
	if interval <= 0 {
		interval = codec.Validity()
	}
	return &RotationService{
		Store:    st,
		Seq:      sq,
		Codec:    codec,
		Relay:    relay,
		Logger:   logger,
		Interval: interval,
		actors:   make(map[string]*rotationActor),
	}
}

// Start begins rotation for a session. The first token is minted before
// Start returns so there is never an active session without a current token.
func (s *RotationService) Start(ctx context.Context, sess domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.actors[sess.ID]; ok {
		return ErrSessionAlreadyRotating
	}

	// Never re-issue a sequence already persisted for this session.
	if err := s.Seq.Ensure(ctx, sess.ID, sess.Sequence); err != nil {
		return err
	}

	a := &rotationActor{
		svc:     s,
		session: sess,
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
	if err := a.mint(ctx); err != nil {
		return err
	}

	s.actors[sess.ID] = a
	go a.run()

	s.Logger.Info("rotation started",
		slog.String("session_id", sess.ID),
		slog.Duration("interval", s.Interval))
	return nil
}

// Stop halts rotation for a session and pushes a final update carrying the
// terminal status so every connected holder invalidates its cache.
func (s *RotationService) Stop(ctx context.Context, sessionID string, status string) error {
	s.mu.Lock()
	a, ok := s.actors[sessionID]
	if ok {
		delete(s.actors, sessionID)
	}
	s.mu.Unlock()

	if !ok {
		return ErrSessionNotRotating
	}

	close(a.stopCh)
	<-a.doneCh

	final := relayclient.Message{
		Type:      relayclient.TypeSessionStatus,
		SessionID: sessionID,
		Status:    status,
	}
	if err := s.Relay.Publish(ctx, final); err != nil {
		s.Logger.Error("failed to publish final session update",
			slog.String("session_id", sessionID), slog.Any("error", err))
	}

	if err := s.Seq.Forget(ctx, sessionID); err != nil {
		s.Logger.Warn("failed to drop sequence counter",
			slog.String("session_id", sessionID), slog.Any("error", err))
	}

	s.Logger.Info("rotation stopped",
		slog.String("session_id", sessionID),
		slog.String("status", status))
	return nil
}

// State returns the currently accepted token pair for a session.
func (s *RotationService) State(sessionID string) (RotationState, bool) {
	s.mu.Lock()
	a, ok := s.actors[sessionID]
	s.mu.Unlock()
	if !ok {
		return RotationState{}, false
	}
	return a.state(), true
}

// RotatingSessions lists the sessions that currently have a publisher.
func (s *RotationService) RotatingSessions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.actors))
	for id := range s.actors {
		ids = append(ids, id)
	}
	return ids
}

// StopAll halts every publisher without emitting terminal updates. Used
// during shutdown; orphan cleanup squares the database away on next boot.
func (s *RotationService) StopAll() {
	s.mu.Lock()
	actors := s.actors
	s.actors = make(map[string]*rotationActor)
	s.mu.Unlock()

	for _, a := range actors {
		close(a.stopCh)
		<-a.doneCh
	}
}

type rotationActor struct {
	svc     *RotationService
	session domain.Session
	stopCh  chan struct{}
	doneCh  chan struct{}

	mu       sync.Mutex
	current  qrtoken.Minted
	previous qrtoken.Minted
}

func (a *rotationActor) run() {
	defer close(a.doneCh)

	ticker := time.NewTicker(a.svc.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			// A failed mint keeps the previous pair live; holders keep
			// validating against it until the next successful tick.
			if err := a.mint(context.Background()); err != nil {
				a.svc.Logger.Error("rotation tick failed",
					slog.String("session_id", a.session.ID),
					slog.Any("error", err))
			}
		case <-a.stopCh:
			return
		}
	}
}

// mint issues the next token, persists it, publishes it, and shifts the
// token pair forward.
func (a *rotationActor) mint(ctx context.Context) error {
	seqNum, err := a.svc.Seq.Next(ctx, a.session.ID)
	if err != nil {
		return err
	}

	minted, err := a.svc.Codec.Generate(qrtoken.Claims{
		SessionID: a.session.ID,
		ClassID:   a.session.ClassID,
		RoomID:    a.session.RoomID,
		SubjectID: a.session.SubjectID,
		Sequence:  seqNum,
	}, time.Now())
	if err != nil {
		return err
	}

	if err := a.svc.Store.Sessions().UpdateRotation(ctx, a.session.ID, seqNum, minted.Token); err != nil {
		return err
	}

	a.mu.Lock()
	a.previous = a.current
	a.current = minted
	a.mu.Unlock()

	return a.svc.Relay.Publish(ctx, a.update())
}

func (a *rotationActor) state() RotationState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return RotationState{Current: a.current, Previous: a.previous}
}

func (a *rotationActor) update() relayclient.Message {
	a.mu.Lock()
	defer a.mu.Unlock()
	return relayclient.Message{
		Type:              relayclient.TypeQRUpdate,
		SessionID:         a.session.ID,
		QRToken:           a.current.Token,
		PreviousToken:     a.previous.Token,
		SequenceNumber:    a.current.Sequence,
		Timestamp:         a.current.Timestamp,
		PreviousTimestamp: a.previous.Timestamp,
		Expiry:            a.current.Expiry,
		PreviousExpiry:    a.previous.Expiry,
		Status:            domain.SessionActive,
	}
}
