package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/BalaSeethaRamanjaneyulu/IntelliAttend-sub000/pkg/relayclient"
)

// Relay fans session updates out to watchers. Delivery is at-least-once:
// a subscriber that connects mid-session gets the latest snapshot first,
// then live pushes in publish order. There is no backlog replay.
type Relay struct {
	pubsub *gochannel.GoChannel
	logger *slog.Logger

	mu        sync.RWMutex
	lastToken map[string]relayclient.Message // latest qr_update per session
	lastTally map[string]relayclient.Message // latest attendance_update per session
}

func NewRelay(logger *slog.Logger) *Relay {
	pubsub := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: 64,
	}, watermill.NewSlogLogger(logger))

	return &Relay{
		pubsub:    pubsub,
		logger:    logger,
		lastToken: make(map[string]relayclient.Message),
		lastTally: make(map[string]relayclient.Message),
	}
}

func sessionTopic(sessionID string) string {
	return "attend.session." + sessionID
}

// Publish pushes one message to every subscriber of its session and records
// it as the session's snapshot for later subscribers.
func (r *Relay) Publish(ctx context.Context, msg relayclient.Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal relay message: %w", err)
	}

	r.mu.Lock()
	switch msg.Type {
	case relayclient.TypeQRUpdate, relayclient.TypeSessionStatus:
		r.lastToken[msg.SessionID] = msg
	case relayclient.TypeAttendanceUpdate:
		r.lastTally[msg.SessionID] = msg
	}
	r.mu.Unlock()

	wm := message.NewMessage(watermill.NewUUID(), payload)
	if err := r.pubsub.Publish(sessionTopic(msg.SessionID), wm); err != nil {
		return fmt.Errorf("failed to publish relay message: %w", err)
	}
	return nil
}

// Subscribe returns a channel of updates for one session. The current
// snapshot (if any) is delivered first; the channel closes when ctx is
// cancelled. A snapshot may duplicate the first live push.
func (r *Relay) Subscribe(ctx context.Context, sessionID string) (<-chan relayclient.Message, error) {
	msgs, err := r.pubsub.Subscribe(ctx, sessionTopic(sessionID))
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to session: %w", err)
	}

	r.mu.RLock()
	snapshot := make([]relayclient.Message, 0, 2)
	if m, ok := r.lastToken[sessionID]; ok {
		snapshot = append(snapshot, m)
	}
	if m, ok := r.lastTally[sessionID]; ok {
		snapshot = append(snapshot, m)
	}
	r.mu.RUnlock()

	out := make(chan relayclient.Message, 16)
	go func() {
		defer close(out)

		for _, m := range snapshot {
			select {
			case out <- m:
			case <-ctx.Done():
				return
			}
		}

		for wm := range msgs {
			var m relayclient.Message
			if err := json.Unmarshal(wm.Payload, &m); err != nil {
				r.logger.Error("dropping undecodable relay message",
					slog.String("session_id", sessionID), slog.Any("error", err))
				wm.Ack()
				continue
			}
			wm.Ack()

			select {
			case out <- m:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

// Snapshot returns the latest token update for a session, if one exists.
func (r *Relay) Snapshot(sessionID string) (relayclient.Message, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.lastToken[sessionID]
	return m, ok
}

// Forget drops the snapshots for a session once it no longer matters.
func (r *Relay) Forget(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.lastToken, sessionID)
	delete(r.lastTally, sessionID)
}

// Close shuts the underlying pub/sub down, closing all subscriber channels.
func (r *Relay) Close() error {
	return r.pubsub.Close()
}
