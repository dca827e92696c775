package adsb

import (
	"sync"
	"time"
)

// Snapshot is the last-known-good aircraft list plus the latest poll status.
type Snapshot struct {
	// Aircraft from the last successful poll
	Aircraft []Aircraft

	// UpdatedAt is when Aircraft was fetched; zero before the first success
	UpdatedAt time.Time

	// Seq of the last applied poll, successful or not
	Seq uint64

	// Err from the last applied poll; nil when it succeeded
	Err error
}

// Connected reports whether the most recent poll succeeded.
func (s Snapshot) Connected() bool {
	return s.Err == nil && !s.UpdatedAt.IsZero()
}

// Tracker keeps the latest poll outcome for readers outside the poll sink,
// such as the status server. A failed poll keeps the previous list.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

// Apply records a poll result.
func (t *Tracker) Apply(r PollResult) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if r.Seq != 0 && r.Seq < t.snap.Seq {
		return
	}
	t.snap.Seq = r.Seq
	t.snap.Err = r.Err
	if r.Err == nil {
		t.snap.Aircraft = r.Aircraft
		t.snap.UpdatedAt = r.FetchedAt
	}
}

// Snapshot returns the current state. The Aircraft slice is shared and must
// not be modified.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.snap
}
