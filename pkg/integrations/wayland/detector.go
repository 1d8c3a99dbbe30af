package wayland

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/actionsum/lastapp/pkg/integrations/process"
	"github.com/actionsum/lastapp/pkg/shell"
	"github.com/actionsum/lastapp/pkg/utils"
)

// compositorOrder lists compositor executables in detection order
var compositorOrder = []string{"sway", "Hyprland", "gnome-shell", "kwin_wayland", "wayfire", "river"}

var compositors = map[string]string{
	"sway":         "sway",
	"Hyprland":     "hyprland",
	"gnome-shell":  "gnome",
	"kwin_wayland": "kde",
	"wayfire":      "wayfire",
	"river":        "river",
}

// DetectCompositor names the running Wayland compositor, or "unknown"
func DetectCompositor() string {
	if name, ok := process.FindRunning(compositorOrder, compositors); ok {
		return name
	}
	return "unknown"
}

// Detector reads the focused application from compositor IPC
type Detector struct {
	compositor string
	hasSwaymsg bool
	hasHyprctl bool
	run        utils.Runner
}

// NewDetector creates a detector for the given compositor
func NewDetector(compositor string) *Detector {
	return &Detector{
		compositor: compositor,
		hasSwaymsg: utils.CommandExists("swaymsg"),
		hasHyprctl: utils.CommandExists("hyprctl"),
		run:        utils.RunCommand,
	}
}

// Compositor returns the compositor this detector was built for
func (d *Detector) Compositor() string {
	return d.compositor
}

// IsAvailable checks if the compositor's IPC tool is installed
func (d *Detector) IsAvailable() bool {
	switch d.compositor {
	case "sway":
		return d.hasSwaymsg
	case "hyprland":
		return d.hasHyprctl
	default:
		return false
	}
}

func (d *Detector) Name() string {
	return "wayland-" + d.compositor
}

// ForegroundApp returns the app_id (or XWayland class) of the focused window
func (d *Detector) ForegroundApp() (shell.AppID, error) {
	ctx, cancel := context.WithTimeout(context.Background(), utils.ProbeTimeout)
	defer cancel()

	switch d.compositor {
	case "sway":
		out, err := d.run(ctx, "swaymsg", "-t", "get_tree")
		if err != nil {
			return "", fmt.Errorf("failed to execute swaymsg: %w", err)
		}
		return parseSwayTree(out)
	case "hyprland":
		out, err := d.run(ctx, "hyprctl", "activewindow", "-j")
		if err != nil {
			return "", fmt.Errorf("failed to execute hyprctl: %w", err)
		}
		return parseHyprlandWindow(out)
	default:
		return "", fmt.Errorf("unsupported wayland compositor: %s", d.compositor)
	}
}

type swayNode struct {
	Focused          bool       `json:"focused"`
	AppID            *string    `json:"app_id"`
	WindowProperties *struct {
		Class string `json:"class"`
	} `json:"window_properties"`
	Nodes         []swayNode `json:"nodes"`
	FloatingNodes []swayNode `json:"floating_nodes"`
}

func (n *swayNode) findFocused() *swayNode {
	if n.Focused {
		return n
	}
	for i := range n.Nodes {
		if f := n.Nodes[i].findFocused(); f != nil {
			return f
		}
	}
	for i := range n.FloatingNodes {
		if f := n.FloatingNodes[i].findFocused(); f != nil {
			return f
		}
	}
	return nil
}

// parseSwayTree walks `swaymsg -t get_tree` output to the focused node
func parseSwayTree(data []byte) (shell.AppID, error) {
	var root swayNode
	if err := json.Unmarshal(data, &root); err != nil {
		return "", fmt.Errorf("failed to parse sway tree: %w", err)
	}

	focused := root.findFocused()
	if focused == nil {
		return "", fmt.Errorf("no focused sway node")
	}

	if focused.AppID != nil {
		if id := shell.NormalizeAppID(*focused.AppID); !id.IsZero() {
			return id, nil
		}
	}
	if focused.WindowProperties != nil {
		if id := shell.NormalizeAppID(focused.WindowProperties.Class); !id.IsZero() {
			return id, nil
		}
	}
	// a focused workspace or output has neither
	return "", fmt.Errorf("focused sway node is not a window")
}

// parseHyprlandWindow reads `hyprctl activewindow -j` output
func parseHyprlandWindow(data []byte) (shell.AppID, error) {
	var win struct {
		Class        string `json:"class"`
		InitialClass string `json:"initialClass"`
	}
	if err := json.Unmarshal(data, &win); err != nil {
		return "", fmt.Errorf("failed to parse hyprland window: %w", err)
	}

	if id := shell.NormalizeAppID(win.Class); !id.IsZero() {
		return id, nil
	}
	if id := shell.NormalizeAppID(win.InitialClass); !id.IsZero() {
		return id, nil
	}
	return "", fmt.Errorf("no active hyprland window")
}
