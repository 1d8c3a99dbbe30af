// Package watch turns raw focus observations into the activation and
// deactivation event feed.
package watch

import (
	"context"
	"time"

	"github.com/actionsum/lastapp/pkg/probe"
	"github.com/actionsum/lastapp/pkg/shell"
)

// Source emits the focused application whenever it may have changed.
// Repeats are allowed; the Feed drops them.
type Source interface {
	Name() string
	Watch(ctx context.Context, out chan<- shell.AppID) error
}

// Feed normalizes a Source into shell events
type Feed struct {
	source Source
	ignore map[shell.AppID]struct{}
	now    func() time.Time
	last   shell.AppID
}

func NewFeed(source Source, ignore []string) *Feed {
	return &Feed{
		source: source,
		ignore: probe.IgnoreSet(ignore),
		now:    time.Now,
	}
}

// SourceName names the underlying source
func (f *Feed) SourceName() string {
	return f.source.Name()
}

// Run forwards events to out until ctx is done or the source stops.
// Focus moving to an ignored shell component produces no event.
func (f *Feed) Run(ctx context.Context, out chan<- shell.Event) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	raw := make(chan shell.AppID)
	errCh := make(chan error, 1)
	go func() {
		errCh <- f.source.Watch(ctx, raw)
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-errCh:
			return err
		case id := <-raw:
			for _, ev := range f.translate(id) {
				select {
				case out <- ev:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}
	}
}

func (f *Feed) translate(id shell.AppID) []shell.Event {
	if id.IsZero() || id == f.last {
		return nil
	}
	if _, skip := f.ignore[id]; skip {
		return nil
	}

	ts := f.now()
	events := make([]shell.Event, 0, 2)
	if !f.last.IsZero() {
		events = append(events, shell.Event{Kind: shell.Deactivation, ID: f.last, Timestamp: ts})
	}
	events = append(events, shell.Event{Kind: shell.Activation, ID: id, Timestamp: ts})
	f.last = id
	return events
}
