// Package history keeps the two most recently foregrounded applications.
package history

import (
	"sync"

	"github.com/actionsum/lastapp/pkg/shell"
)

// Record is the ordered pair of tracked applications.
// Current and Previous are never equal while both are set.
type Record struct {
	Current  shell.AppID `json:"current"`
	Previous shell.AppID `json:"previous"`
}

// Empty reports whether nothing has been activated yet
func (r Record) Empty() bool {
	return r.Current.IsZero()
}

// PreviousApplication lets a staged Record stand in for the tracker
func (r Record) PreviousApplication() (shell.AppID, bool) {
	return r.Previous, !r.Previous.IsZero()
}

// Reconciled returns the record Resync(id) would produce, without storing it.
// The bool is true when it differs from r.
func (r Record) Reconciled(id shell.AppID) (Record, bool) {
	if id.IsZero() || id == r.Current {
		return r, false
	}
	return Record{Current: id, Previous: r.Current}, true
}

// Tracker owns the Record. It is rebuilt from the event feed on every start.
type Tracker struct {
	mu  sync.RWMutex
	rec Record
}

func NewTracker() *Tracker {
	return &Tracker{}
}

// OnActivation shifts current into previous unless id is already current.
func (t *Tracker) OnActivation(id shell.AppID) {
	t.shift(id)
}

// OnDeactivation is informational; the next activation is authoritative.
func (t *Tracker) OnDeactivation(shell.AppID) {}

// Resync treats id as the authoritative current application.
// It returns true when the record had to change.
func (t *Tracker) Resync(id shell.AppID) bool {
	return t.shift(id)
}

func (t *Tracker) shift(id shell.AppID) bool {
	if id.IsZero() {
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if id == t.rec.Current {
		return false
	}

	t.rec.Previous = t.rec.Current
	t.rec.Current = id
	return true
}

// PreviousApplication returns the most recently displaced application
func (t *Tracker) PreviousApplication() (shell.AppID, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.rec.Previous, !t.rec.Previous.IsZero()
}

// CurrentApplication returns the application last seen in the foreground
func (t *Tracker) CurrentApplication() (shell.AppID, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.rec.Current, !t.rec.Current.IsZero()
}

// Snapshot returns a copy of the record
func (t *Tracker) Snapshot() Record {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.rec
}
