// Package detector inspects the session once at startup and assembles the
// probe, event feed and activation requester that fit it.
package detector

import (
	"errors"
	"fmt"
	"os"

	"github.com/actionsum/lastapp/internal/config"
	"github.com/actionsum/lastapp/pkg/activation"
	"github.com/actionsum/lastapp/pkg/integrations/process"
	"github.com/actionsum/lastapp/pkg/integrations/session"
	"github.com/actionsum/lastapp/pkg/integrations/wayland"
	"github.com/actionsum/lastapp/pkg/integrations/x11"
	"github.com/actionsum/lastapp/pkg/probe"
	"github.com/actionsum/lastapp/pkg/shell"
	"github.com/actionsum/lastapp/pkg/utils"
	"github.com/actionsum/lastapp/pkg/watch"
)

// Watch modes after resolution
const (
	WatchEvents = "events"
	WatchPoll   = "poll"
	WatchNone   = "none"
)

func DetectDisplayServer() string {
	sessionType := os.Getenv("XDG_SESSION_TYPE")
	waylandDisplay := os.Getenv("WAYLAND_DISPLAY")
	x11Display := os.Getenv("DISPLAY")

	if sessionType == "wayland" || waylandDisplay != "" {
		return "wayland"
	}

	if sessionType == "x11" || x11Display != "" {
		return "x11"
	}

	return "unknown"
}

// Session is everything assembled for the running desktop session
type Session struct {
	DisplayServer string
	Compositor    string
	Capabilities  activation.Capabilities
	Protocol      activation.Protocol
	WatchMode     string

	Probe     *probe.Probe
	Feed      *watch.Feed // nil when no foreground source exists
	Requester *activation.Requester

	closers []func() error
}

// Close releases X connections held by the session
func (s *Session) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ChooseProtocol honours a forced protocol, otherwise classifies caps
func ChooseProtocol(forced string, caps activation.Capabilities) (activation.Protocol, error) {
	p, err := activation.ParseProtocol(forced)
	if err != nil {
		return "", err
	}
	if p == activation.ProtocolAuto {
		return activation.Detect(caps), nil
	}
	return p, nil
}

// ChooseWatchMode resolves the configured mode. Events need a direct X
// connection; everything else polls when there is something to poll.
func ChooseWatchMode(mode string, caps activation.Capabilities, haveForeground bool) (string, error) {
	switch mode {
	case WatchEvents:
		if !caps.XConnection {
			return "", fmt.Errorf("event watch mode requires an X11 connection")
		}
		return WatchEvents, nil
	case WatchPoll:
		if !haveForeground {
			return WatchNone, nil
		}
		return WatchPoll, nil
	default:
		if caps.XConnection {
			return WatchEvents, nil
		}
		if haveForeground {
			return WatchPoll, nil
		}
		return WatchNone, nil
	}
}

// Build inspects the session and wires every host adapter. It runs once.
func Build(cfg *config.Config) (*Session, error) {
	s := &Session{DisplayServer: DetectDisplayServer()}

	var xclient *x11.Client
	if s.DisplayServer == "x11" {
		if c, err := x11.NewClient(); err == nil {
			xclient = c
			s.closers = append(s.closers, c.Close)
		}
	}
	if s.DisplayServer == "wayland" {
		s.Compositor = wayland.DetectCompositor()
	}

	s.Capabilities = activation.Capabilities{
		DisplayServer: s.DisplayServer,
		Compositor:    s.Compositor,
		XConnection:   xclient != nil,
		HasXdotool:    utils.CommandExists("xdotool"),
		HasWmctrl:     utils.CommandExists("wmctrl"),
		HasSwaymsg:    utils.CommandExists("swaymsg"),
		HasHyprctl:    utils.CommandExists("hyprctl"),
	}

	foreground, names := foregroundSources(s.DisplayServer, s.Compositor, xclient)
	s.Probe = probe.New(probeSources(cfg, foreground))

	var err error
	if s.Protocol, err = ChooseProtocol(cfg.Activation.Protocol, s.Capabilities); err != nil {
		_ = s.Close()
		return nil, err
	}

	opts := activation.Options{Runner: utils.RunCommand}
	if xclient != nil {
		opts.X = xclient
	}
	if s.Requester, err = activation.New(s.Protocol, opts); err != nil {
		_ = s.Close()
		return nil, err
	}

	if s.WatchMode, err = ChooseWatchMode(cfg.Watcher.Mode, s.Capabilities, len(foreground) > 0); err != nil {
		_ = s.Close()
		return nil, err
	}

	switch s.WatchMode {
	case WatchEvents:
		w, err := x11.NewEventWatcher()
		if err != nil {
			if cfg.Watcher.Mode == WatchEvents || len(foreground) == 0 {
				_ = s.Close()
				return nil, fmt.Errorf("failed to watch X11 events: %w", err)
			}
			s.WatchMode = WatchPoll
			break
		}
		s.closers = append(s.closers, w.Close)
		s.Feed = watch.NewFeed(w, cfg.Watcher.Ignore)
	}
	if s.WatchMode == WatchPoll {
		poller := watch.NewPoller(names[0], probeForeground{s.Probe}, cfg.Watcher.PollInterval)
		s.Feed = watch.NewFeed(poller, cfg.Watcher.Ignore)
	}

	return s, nil
}

type namedSource interface {
	probe.ForegroundSource
	Name() string
}

func foregroundSources(displayServer, compositor string, xclient *x11.Client) ([]probe.ForegroundSource, []string) {
	var candidates []namedSource

	switch displayServer {
	case "wayland":
		if det := wayland.NewDetector(compositor); det.IsAvailable() {
			candidates = append(candidates, det)
		}
	case "x11":
		if xclient != nil {
			candidates = append(candidates, xclient)
		}
		if det := x11.NewDetector(); det.IsAvailable() {
			candidates = append(candidates, det)
		}
	}

	sources := make([]probe.ForegroundSource, 0, len(candidates))
	names := make([]string, 0, len(candidates))
	for _, c := range candidates {
		sources = append(sources, c)
		names = append(names, c.Name())
	}
	return sources, names
}

func probeSources(cfg *config.Config, foreground []probe.ForegroundSource) probe.Sources {
	lock := probe.AnyOf{process.NewMarkers("lock-screen", cfg.Probe.LockProcesses)}
	if cfg.Probe.UseSessionLockHint && session.Available() {
		lock = append(lock, session.NewLockedHint(os.Getenv("XDG_SESSION_ID")))
	}

	return probe.Sources{
		Lock:           lock,
		EmergencyCall:  markers("emergency-call", cfg.Probe.EmergencyCallProcesses),
		PowerDownAlert: markers("power-down-alert", cfg.Probe.PowerDownProcesses),
		IconEditing:    markers("icon-editing", cfg.Probe.IconEditingProcesses),
		Foreground:     foreground,
		Ignore:         cfg.Watcher.Ignore,
	}
}

// markers returns nil for an empty list so the capability reads as absent
func markers(name string, exes []string) probe.Condition {
	m := process.NewMarkers(name, exes)
	if m.Empty() {
		return nil
	}
	return m
}

// probeForeground polls through the probe so the preference order and
// fallbacks are shared with switch-time reads
type probeForeground struct {
	p shell.StateProbe
}

func (f probeForeground) ForegroundApp() (shell.AppID, error) {
	id, _ := f.p.CurrentForegroundApplication()
	return id, nil
}
