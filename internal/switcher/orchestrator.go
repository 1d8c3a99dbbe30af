// Package switcher implements the "switch to last app" action.
package switcher

import (
	"context"
	"sync"
	"time"

	"github.com/actionsum/lastapp/internal/eligibility"
	"github.com/actionsum/lastapp/internal/history"
	"github.com/actionsum/lastapp/pkg/shell"
)

// Attempt describes one switch request after it was decided
type Attempt struct {
	Timestamp time.Time
	Verdict   eligibility.Verdict
	Target    shell.AppID
	Resynced  bool
	Err       error
}

// Observer is told about every attempt. It never influences the outcome.
type Observer interface {
	SwitchAttempted(ctx context.Context, a Attempt)
}

// Orchestrator runs resync, evaluate and activate as one step
type Orchestrator struct {
	probe     shell.StateProbe
	history   *history.Tracker
	activator shell.Activator
	observer  Observer
	now       func() time.Time

	mu sync.Mutex
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithObserver registers an attempt observer
func WithObserver(o Observer) Option {
	return func(s *Orchestrator) {
		s.observer = o
	}
}

func New(probe shell.StateProbe, tracker *history.Tracker, activator shell.Activator, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		probe:     probe,
		history:   tracker,
		activator: activator,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// SwitchToLastApp foregrounds the previously active application when it is
// safe to do so. A denied verdict is not an error and has no side effects,
// not even a resync of the history.
// The only error returned is the activator's, which is not retried.
//
// Success leaves the history untouched: the shell's own activation event for
// the target completes the swap.
func (o *Orchestrator) SwitchToLastApp(ctx context.Context) (eligibility.Verdict, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	attempt := Attempt{Timestamp: o.now()}

	// an activation event may have been missed; the probe wins, but the
	// reconciled record is only stored once the switch is allowed
	staged, changed := o.history.Snapshot(), false
	if fg, ok := o.probe.CurrentForegroundApplication(); ok {
		staged, changed = staged.Reconciled(fg)
	}

	attempt.Verdict = eligibility.Evaluate(o.probe, staged)
	if !attempt.Verdict.Allowed {
		o.notify(ctx, attempt)
		return attempt.Verdict, nil
	}

	if changed {
		attempt.Resynced = o.history.Resync(staged.Current)
	}
	attempt.Target = staged.Previous
	attempt.Err = o.activator.Activate(ctx, attempt.Target)
	o.notify(ctx, attempt)

	return attempt.Verdict, attempt.Err
}

func (o *Orchestrator) notify(ctx context.Context, a Attempt) {
	if o.observer != nil {
		o.observer.SwitchAttempted(ctx, a)
	}
}
