// Package seq provides the rotation sequence counter. Sequence numbers must
// only ever move forward for a session, even across publisher restarts, so
// the counter lives behind a small interface with an in-process driver for
// single-node deployments and a redis driver for multi-node ones.
package seq

import "context"

// Store hands out monotonically increasing sequence numbers per session.
type Store interface {
	// Next atomically increments and returns the sequence for a session.
	Next(ctx context.Context, sessionID string) (int64, error)

	// Ensure raises the counter to at least floor. Used after a restart so
	// the next mint never repeats a sequence already persisted.
	Ensure(ctx context.Context, sessionID string, floor int64) error

	// Forget drops the counter for a session once it has ended.
	Forget(ctx context.Context, sessionID string) error
}
