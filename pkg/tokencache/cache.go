// Package tokencache holds the holder-device copy of the session's
// rotating token state and decides locally whether a scanned code is
// legitimate. No server round-trip happens at scan time; the cache is
// kept current by the relay subscription and the comparison is pure.
package tokencache

import (
	"sync"
	"time"

	"github.com/BalaSeethaRamanjaneyulu/IntelliAttend-sub000/pkg/qrtoken"
)

// Session status values as pushed by the relay.
const (
	StatusActive    = "active"
	StatusExpired   = "expired"
	StatusCompleted = "completed"
)

// Reason classifies why a scan was rejected. Empty means accepted.
type Reason string

const (
	ReasonNone           Reason = ""
	ReasonMalformed      Reason = "malformed"
	ReasonNotInitialized Reason = "cache_not_initialized"
	ReasonNotActive      Reason = "session_not_active"
	ReasonMismatch       Reason = "token_mismatch"
	ReasonClockSkew      Reason = "clock_skew"
	ReasonExpired        Reason = "expired"
)

// Update is the holder's copy of one relay push: the two live tokens of
// the rotation overlap window plus their timing. Previous* fields are
// zero outside the overlap window.
type Update struct {
	SessionID         string
	CurrentToken      string
	PreviousToken     string
	CurrentTimestamp  int64
	PreviousTimestamp int64
	CurrentExpiry     int64
	PreviousExpiry    int64
	Sequence          int64
	Status            string
}

// Cache is the single holder-side token store. One relay subscription
// writes it; scans read it. Updates replace the snapshot wholesale so
// readers never observe a half-applied rotation.
type Cache struct {
	mu       sync.RWMutex
	update   *Update
	offset   int64 // host clock minus local clock, seconds
	validity time.Duration
	grace    time.Duration

	now func() time.Time
}

// New returns a Cache using the protocol default 5s validity / 2s grace
// windows.
func New() *Cache {
	return NewWithWindows(qrtoken.DefaultValidity, qrtoken.DefaultGrace)
}

// NewWithWindows returns a Cache with explicit validity and grace
// windows.
func NewWithWindows(validity, grace time.Duration) *Cache {
	return &Cache{
		validity: validity,
		grace:    grace,
		now:      time.Now,
	}
}

// OnUpdate applies a relay push. An active update whose sequence does
// not exceed the cached one is discarded; the relay guarantees
// per-session ordering, so a regression means redelivery or a retried
// send. Terminal statuses always apply. Returns whether the update was
// applied.
//
// Applying an update recomputes the clock offset from the current
// token's host timestamp against the local clock. The most recent
// observation wins; there is no smoothing.
func (c *Cache) OnUpdate(u Update) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	// A terminal status ends the session regardless of sequence. The
	// final push carries no tokens, so the cached pair and offset stay
	// in place; Validate rejects on the status before touching them.
	if u.Status != StatusActive && u.Status != "" {
		if c.update == nil {
			c.update = &u
			return true
		}
		c.update.Status = u.Status
		return true
	}

	if c.update != nil && u.Sequence <= c.update.Sequence {
		return false
	}

	c.update = &u
	c.offset = u.CurrentTimestamp - c.now().Unix()
	return true
}

// Validate decides whether a scanned string is a live token for the
// cached session. Malformed input is rejected before the cache is
// consulted at all.
func (c *Cache) Validate(scanned string) (bool, Reason) {
	if !qrtoken.IsWellFormed(scanned) {
		return false, ReasonMalformed
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.update == nil {
		return false, ReasonNotInitialized
	}
	if c.update.Status != StatusActive {
		return false, ReasonNotActive
	}

	var issuedAt int64
	switch {
	case scanned == c.update.CurrentToken:
		issuedAt = c.update.CurrentTimestamp
	case c.update.PreviousToken != "" && scanned == c.update.PreviousToken:
		issuedAt = c.update.PreviousTimestamp
	default:
		return false, ReasonMismatch
	}

	age := c.now().Unix() + c.offset - issuedAt
	maxAge := int64((c.validity + c.grace) / time.Second)
	switch {
	case age < 0:
		return false, ReasonClockSkew
	case age > maxAge:
		return false, ReasonExpired
	}
	return true, ReasonNone
}

// Current returns a copy of the cached update, if any.
func (c *Cache) Current() (Update, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.update == nil {
		return Update{}, false
	}
	return *c.update, true
}

// Offset returns the last computed clock offset in seconds.
func (c *Cache) Offset() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.offset
}

// SessionID returns the session the cache is tracking, or empty.
func (c *Cache) SessionID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.update == nil {
		return ""
	}
	return c.update.SessionID
}

// Clear resets the cache to its initial state, offset included. Called
// when the holder leaves the verification flow.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.update = nil
	c.offset = 0
}
