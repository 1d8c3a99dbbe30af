package watch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/actionsum/lastapp/pkg/shell"
)

// sliceSource replays a fixed list of observations then stops
type sliceSource struct {
	ids []shell.AppID
}

func (s sliceSource) Name() string { return "slice" }

func (s sliceSource) Watch(ctx context.Context, out chan<- shell.AppID) error {
	for _, id := range s.ids {
		select {
		case out <- id:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return errors.New("source exhausted")
}

func collect(t *testing.T, f *Feed) []shell.Event {
	t.Helper()

	out := make(chan shell.Event, 32)
	err := f.Run(context.Background(), out)
	require.EqualError(t, err, "source exhausted")
	close(out)

	var events []shell.Event
	for ev := range out {
		events = append(events, ev)
	}
	return events
}

func TestFeedTranslatesFocusChanges(t *testing.T) {
	f := NewFeed(sliceSource{ids: []shell.AppID{"a", "a", "b", "", "b", "a"}}, nil)
	assert.Equal(t, "slice", f.SourceName())

	events := collect(t, f)

	want := []struct {
		kind shell.EventKind
		id   shell.AppID
	}{
		{shell.Activation, "a"},
		{shell.Deactivation, "a"},
		{shell.Activation, "b"},
		{shell.Deactivation, "b"},
		{shell.Activation, "a"},
	}
	require.Len(t, events, len(want))
	for i, w := range want {
		assert.Equal(t, w.kind, events[i].Kind, "event %d", i)
		assert.Equal(t, w.id, events[i].ID, "event %d", i)
		assert.False(t, events[i].Timestamp.IsZero())
	}
}

func TestFeedSkipsIgnoredComponents(t *testing.T) {
	f := NewFeed(sliceSource{ids: []shell.AppID{"a", "xfdesktop", "a", "b"}}, []string{"XfDesktop"})

	events := collect(t, f)

	var activations []shell.AppID
	for _, ev := range events {
		if ev.Kind == shell.Activation {
			activations = append(activations, ev.ID)
		}
	}
	assert.Equal(t, []shell.AppID{"a", "b"}, activations)
}

type countingSource struct {
	mu    sync.Mutex
	calls int
	ids   []shell.AppID
}

func (c *countingSource) ForegroundApp() (shell.AppID, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.ids[c.calls%len(c.ids)]
	c.calls++
	if id == "" {
		return "", errors.New("no window")
	}
	return id, nil
}

func TestPollerEmitsSamples(t *testing.T) {
	src := &countingSource{ids: []shell.AppID{"a", "", "b"}}
	p := NewPoller("test", src, time.Millisecond)
	assert.Equal(t, "poll:test", p.Name())

	ctx, cancel := context.WithCancel(context.Background())
	out := make(chan shell.AppID)
	done := make(chan error, 1)
	go func() { done <- p.Watch(ctx, out) }()

	assert.Equal(t, shell.AppID("a"), <-out)
	assert.Equal(t, shell.AppID("b"), <-out)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}
