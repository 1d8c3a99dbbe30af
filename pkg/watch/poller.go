package watch

import (
	"context"
	"time"

	"github.com/actionsum/lastapp/pkg/probe"
	"github.com/actionsum/lastapp/pkg/shell"
)

// Poller samples a foreground source on a fixed interval, for sessions that
// offer no focus-change notifications.
type Poller struct {
	name     string
	src      probe.ForegroundSource
	interval time.Duration
}

func NewPoller(name string, src probe.ForegroundSource, interval time.Duration) *Poller {
	return &Poller{name: name, src: src, interval: interval}
}

func (p *Poller) Name() string {
	return "poll:" + p.name
}

func (p *Poller) Watch(ctx context.Context, out chan<- shell.AppID) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		if id, err := p.src.ForegroundApp(); err == nil && !id.IsZero() {
			select {
			case out <- id:
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
