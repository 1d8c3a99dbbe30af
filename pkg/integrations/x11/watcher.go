package x11

import (
	"context"
	"fmt"

	"github.com/jezek/xgb/xproto"

	"github.com/actionsum/lastapp/pkg/shell"
)

// EventWatcher reports focus changes from PropertyNotify events on the root
// window. It owns its own connection so Close can unblock the event loop.
type EventWatcher struct {
	client *Client
}

func NewEventWatcher() (*EventWatcher, error) {
	client, err := NewClient()
	if err != nil {
		return nil, err
	}

	err = xproto.ChangeWindowAttributesChecked(client.conn, client.root,
		xproto.CwEventMask, []uint32{xproto.EventMaskPropertyChange}).Check()
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to subscribe to root window events: %w", err)
	}

	return &EventWatcher{client: client}, nil
}

func (w *EventWatcher) Name() string {
	return "x11-events"
}

// Watch sends the focused application on every _NET_ACTIVE_WINDOW change
// until ctx is done or the connection closes. Duplicates are left to the
// consumer.
func (w *EventWatcher) Watch(ctx context.Context, out chan<- shell.AppID) error {
	go func() {
		<-ctx.Done()
		w.client.Close()
	}()

	if id, err := w.client.ForegroundApp(); err == nil {
		send(ctx, out, id)
	}

	active := w.client.atoms["_NET_ACTIVE_WINDOW"]
	for {
		ev, xerr := w.client.conn.WaitForEvent()
		if ev == nil && xerr == nil {
			// connection closed
			return ctx.Err()
		}
		if xerr != nil {
			continue
		}

		notify, ok := ev.(xproto.PropertyNotifyEvent)
		if !ok || notify.Atom != active {
			continue
		}

		id, err := w.client.ForegroundApp()
		if err != nil {
			continue
		}
		if !send(ctx, out, id) {
			return ctx.Err()
		}
	}
}

func send(ctx context.Context, out chan<- shell.AppID, id shell.AppID) bool {
	select {
	case out <- id:
		return true
	case <-ctx.Done():
		return false
	}
}

func (w *EventWatcher) Close() error {
	return w.client.Close()
}
