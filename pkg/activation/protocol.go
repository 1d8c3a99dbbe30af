package activation

import (
	"fmt"
	"strings"
)

// Protocol tags the activation mechanism the running session supports.
// It is chosen once per process and never re-probed.
type Protocol string

const (
	ProtocolAuto     Protocol = "auto"
	ProtocolEWMH     Protocol = "x11-ewmh"
	ProtocolXdotool  Protocol = "xdotool"
	ProtocolWmctrl   Protocol = "wmctrl"
	ProtocolSway     Protocol = "sway"
	ProtocolHyprland Protocol = "hyprland"
	ProtocolNone     Protocol = "none"
)

var knownProtocols = []Protocol{
	ProtocolAuto,
	ProtocolEWMH,
	ProtocolXdotool,
	ProtocolWmctrl,
	ProtocolSway,
	ProtocolHyprland,
	ProtocolNone,
}

// ParseProtocol validates a protocol name from configuration
func ParseProtocol(s string) (Protocol, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ProtocolAuto, nil
	}
	for _, p := range knownProtocols {
		if string(p) == s {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown activation protocol: %s", s)
}

// Capabilities describes what the session offers, gathered once at startup
type Capabilities struct {
	DisplayServer string // "x11", "wayland" or "unknown"
	Compositor    string // wayland compositor, empty on x11
	XConnection   bool
	HasXdotool    bool
	HasWmctrl     bool
	HasSwaymsg    bool
	HasHyprctl    bool
}

// Detect picks the preferred protocol for the given capabilities.
// Compositor IPC wins on Wayland; X11 falls back from a direct connection to
// xdotool and then wmctrl.
func Detect(c Capabilities) Protocol {
	if c.DisplayServer == "wayland" {
		switch {
		case c.Compositor == "sway" && c.HasSwaymsg:
			return ProtocolSway
		case c.Compositor == "hyprland" && c.HasHyprctl:
			return ProtocolHyprland
		}
	}

	switch {
	case c.XConnection:
		return ProtocolEWMH
	case c.HasXdotool:
		return ProtocolXdotool
	case c.HasWmctrl:
		return ProtocolWmctrl
	}

	return ProtocolNone
}
