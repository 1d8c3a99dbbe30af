// Package activation issues "bring this application to the front" requests
// through whichever protocol the running session supports.
package activation

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/pkg/errors"

	"github.com/actionsum/lastapp/pkg/shell"
	"github.com/actionsum/lastapp/pkg/utils"
)

var (
	// ErrUnknownApp means the shell has no window for the identifier
	ErrUnknownApp = errors.New("application not known to shell")
	// ErrRejected means the shell refused or failed the request
	ErrRejected = errors.New("activation rejected by shell")
)

// ActivationError is the only error kind that leaves the switching core
type ActivationError struct {
	ID       shell.AppID
	Protocol Protocol
	Err      error
}

func (e *ActivationError) Error() string {
	return fmt.Sprintf("activate %q via %s: %v", e.ID, e.Protocol, e.Err)
}

func (e *ActivationError) Unwrap() error {
	return e.Err
}

// ClassActivator activates the top-level window whose class matches id.
// found is false when no such window exists.
type ClassActivator interface {
	ActivateClass(id shell.AppID) (found bool, err error)
}

// Options supplies the host collaborators strategies may need
type Options struct {
	Runner utils.Runner
	X      ClassActivator
}

type strategy interface {
	activate(ctx context.Context, id shell.AppID) error
}

// Requester forwards every request to the strategy chosen at construction
type Requester struct {
	protocol Protocol
	strategy strategy
}

// New binds the requester to one protocol. ProtocolAuto must be resolved
// with Detect beforehand.
func New(protocol Protocol, opts Options) (*Requester, error) {
	run := opts.Runner
	if run == nil {
		run = utils.RunCommand
	}

	var s strategy
	switch protocol {
	case ProtocolEWMH:
		if opts.X == nil {
			return nil, errors.New("x11-ewmh activation requires an X connection")
		}
		s = ewmhStrategy{x: opts.X}
	case ProtocolXdotool:
		s = xdotoolStrategy{run: run}
	case ProtocolWmctrl:
		s = wmctrlStrategy{run: run}
	case ProtocolSway:
		s = swayStrategy{run: run}
	case ProtocolHyprland:
		s = hyprlandStrategy{run: run}
	case ProtocolNone:
		s = noneStrategy{}
	default:
		return nil, fmt.Errorf("unsupported activation protocol: %s", protocol)
	}

	return &Requester{protocol: protocol, strategy: s}, nil
}

// Protocol returns the protocol selected at startup
func (r *Requester) Protocol() Protocol {
	return r.protocol
}

// Activate asks the shell to foreground id. The request is not retried.
func (r *Requester) Activate(ctx context.Context, id shell.AppID) error {
	if id.IsZero() {
		return &ActivationError{ID: id, Protocol: r.protocol, Err: ErrUnknownApp}
	}
	if err := r.strategy.activate(ctx, id); err != nil {
		return &ActivationError{ID: id, Protocol: r.protocol, Err: err}
	}
	return nil
}

// exactClass builds a case-insensitive anchored pattern for tools that take
// regular expressions.
func exactClass(id shell.AppID) string {
	return "(?i)^" + regexp.QuoteMeta(string(id)) + "$"
}

type ewmhStrategy struct {
	x ClassActivator
}

func (s ewmhStrategy) activate(_ context.Context, id shell.AppID) error {
	found, err := s.x.ActivateClass(id)
	if err != nil {
		return errors.Wrap(ErrRejected, err.Error())
	}
	if !found {
		return ErrUnknownApp
	}
	return nil
}

type xdotoolStrategy struct {
	run utils.Runner
}

func (s xdotoolStrategy) activate(ctx context.Context, id shell.AppID) error {
	out, err := s.run(ctx, "xdotool", "search", "--onlyvisible", "--class", "^"+regexp.QuoteMeta(string(id))+"$")
	windows := strings.Fields(string(out))
	if err != nil || len(windows) == 0 {
		return ErrUnknownApp
	}

	// xdotool lists windows in stacking order; the last one is topmost
	target := windows[len(windows)-1]
	if out, err := s.run(ctx, "xdotool", "windowactivate", target); err != nil {
		return errors.Wrap(ErrRejected, utils.CommandMessage(out, err))
	}
	return nil
}

type wmctrlStrategy struct {
	run utils.Runner
}

func (s wmctrlStrategy) activate(ctx context.Context, id shell.AppID) error {
	out, err := s.run(ctx, "wmctrl", "-l", "-x")
	if err != nil {
		return errors.Wrap(ErrRejected, utils.CommandMessage(out, err))
	}
	if !wmctrlHasClass(string(out), id) {
		return ErrUnknownApp
	}

	if out, err := s.run(ctx, "wmctrl", "-x", "-a", string(id)); err != nil {
		return errors.Wrap(ErrRejected, utils.CommandMessage(out, err))
	}
	return nil
}

// wmctrlHasClass scans `wmctrl -l -x` output, whose third column is
// "instance.Class".
func wmctrlHasClass(listing string, id shell.AppID) bool {
	for _, line := range strings.Split(listing, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 3 {
			continue
		}
		for _, part := range strings.SplitN(fields[2], ".", 2) {
			if shell.NormalizeAppID(part) == id {
				return true
			}
		}
	}
	return false
}

type swayStrategy struct {
	run utils.Runner
}

func (s swayStrategy) activate(ctx context.Context, id shell.AppID) error {
	// native wayland clients match app_id, XWayland clients match class
	var lastMsg string
	for _, key := range []string{"app_id", "class"} {
		criteria := fmt.Sprintf(`[%s="%s"]`, key, exactClass(id))
		out, err := s.run(ctx, "swaymsg", criteria, "focus")
		if err == nil {
			return nil
		}
		lastMsg = utils.CommandMessage(out, err)
		if !strings.Contains(lastMsg, "no matching") {
			return errors.Wrap(ErrRejected, lastMsg)
		}
	}
	return ErrUnknownApp
}

type hyprlandStrategy struct {
	run utils.Runner
}

func (s hyprlandStrategy) activate(ctx context.Context, id shell.AppID) error {
	out, err := s.run(ctx, "hyprctl", "dispatch", "focuswindow", "class:"+exactClass(id))
	msg := utils.CommandMessage(out, err)
	if err == nil && msg == "ok" {
		return nil
	}
	if strings.Contains(msg, "no such window") || strings.Contains(msg, "not found") {
		return ErrUnknownApp
	}
	return errors.Wrap(ErrRejected, msg)
}

type noneStrategy struct{}

func (noneStrategy) activate(context.Context, shell.AppID) error {
	return errors.Wrap(ErrRejected, "no activation protocol available")
}
