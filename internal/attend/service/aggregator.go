package service

import (
	"sync"

	"github.com/BalaSeethaRamanjaneyulu/IntelliAttend-sub000/internal/attend/domain"
)

// Tally is a point-in-time roll-up of one session's verdicts.
type Tally struct {
	Present int `json:"total_present"`
	Failed  int `json:"total_failed"`
	Pending int `json:"total_pending"`
	Total   int `json:"total"`
}

// Aggregator keeps live per-session attendance counts. Each holder counts
// exactly once per session no matter how many times their verdict is
// reported, so replayed updates cannot inflate the tally.
type Aggregator struct {
	mu       sync.RWMutex
	sessions map[string]*sessionTally
}

type sessionTally struct {
	expected int
	verdicts map[string]string // holder -> status
}

func NewAggregator() *Aggregator {
	return &Aggregator{sessions: make(map[string]*sessionTally)}
}

// Open registers a session with its expected headcount. Re-opening an
// existing session is a no-op.
func (a *Aggregator) Open(sessionID string, expected int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.sessions[sessionID]; ok {
		return
	}
	a.sessions[sessionID] = &sessionTally{
		expected: expected,
		verdicts: make(map[string]string),
	}
}

// Record notes a holder's verdict. The first status for a holder wins;
// later reports for the same holder leave the tally unchanged. Returns
// false if the holder was already counted or the session is unknown.
func (a *Aggregator) Record(sessionID, holderID, status string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	t, ok := a.sessions[sessionID]
	if !ok {
		return false
	}
	if _, seen := t.verdicts[holderID]; seen {
		return false
	}
	t.verdicts[holderID] = status
	return true
}

// Snapshot returns the current tally. Pending is the expected headcount
// minus everyone already counted, floored at zero since walk-ins can push
// the counted total past the expectation.
func (a *Aggregator) Snapshot(sessionID string) (Tally, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	t, ok := a.sessions[sessionID]
	if !ok {
		return Tally{}, false
	}

	var tally Tally
	for _, status := range t.verdicts {
		switch status {
		case domain.AttendancePresent:
			tally.Present++
		case domain.AttendanceFailed:
			tally.Failed++
		}
	}
	counted := tally.Present + tally.Failed
	if t.expected > counted {
		tally.Pending = t.expected - counted
	}
	tally.Total = t.expected
	if counted > t.expected {
		tally.Total = counted
	}
	return tally, true
}

// Close drops a session's tally.
func (a *Aggregator) Close(sessionID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.sessions, sessionID)
}
