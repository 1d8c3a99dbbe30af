package x11

import (
	"context"
	"fmt"
	"strings"

	"github.com/actionsum/lastapp/pkg/shell"
	"github.com/actionsum/lastapp/pkg/utils"
)

// Detector reads the focused application through the xdotool/xprop tools
// when no direct X connection can be made.
type Detector struct {
	hasXdotool bool
	hasXprop   bool
	run        utils.Runner
}

// NewDetector creates a new X11 detector
func NewDetector() *Detector {
	return &Detector{
		hasXdotool: utils.CommandExists("xdotool"),
		hasXprop:   utils.CommandExists("xprop"),
		run:        utils.RunCommand,
	}
}

// IsAvailable checks if X11 detection is available
func (d *Detector) IsAvailable() bool {
	return d.hasXprop
}

func (d *Detector) Name() string {
	return "x11-tools"
}

// ForegroundApp returns the WM_CLASS of the focused window
func (d *Detector) ForegroundApp() (shell.AppID, error) {
	if !d.hasXprop {
		return "", fmt.Errorf("no X11 detection tool available (xprop required)")
	}

	ctx, cancel := context.WithTimeout(context.Background(), utils.ProbeTimeout)
	defer cancel()
	windowID, err := d.activeWindowID(ctx)
	if err != nil {
		return "", err
	}

	classOutput, err := d.run(ctx, "xprop", "-id", windowID, "WM_CLASS")
	if err != nil {
		return "", fmt.Errorf("failed to read WM_CLASS: %w", err)
	}

	id := shell.NormalizeAppID(parseWMClass(string(classOutput)))
	if id.IsZero() {
		return "", fmt.Errorf("window %s has no WM_CLASS", windowID)
	}
	return id, nil
}

func (d *Detector) activeWindowID(ctx context.Context) (string, error) {
	if d.hasXdotool {
		out, err := d.run(ctx, "xdotool", "getactivewindow")
		if err == nil {
			if id := strings.TrimSpace(string(out)); id != "" {
				return id, nil
			}
		}
	}

	out, err := d.run(ctx, "xprop", "-root", "_NET_ACTIVE_WINDOW")
	if err != nil {
		return "", fmt.Errorf("failed to get active x11 window ID: %w", err)
	}

	id := parseRootActiveWindow(string(out))
	if id == "" {
		return "", errNoActiveWindow
	}
	return id, nil
}

// parseRootActiveWindow extracts the id from
// "_NET_ACTIVE_WINDOW(WINDOW): window id # 0x80032b"
func parseRootActiveWindow(output string) string {
	parts := strings.Split(output, "# ")
	if len(parts) < 2 {
		return ""
	}

	id := strings.TrimSpace(strings.Split(parts[1], ",")[0])
	if id == "0x0" {
		return ""
	}
	return id
}

// parseWMClass extracts the class name from WM_CLASS property
func parseWMClass(output string) string {
	parts := strings.Split(output, "=")
	if len(parts) < 2 {
		return ""
	}

	classInfo := strings.TrimSpace(parts[1])
	classInfo = strings.Trim(classInfo, "\"")

	classes := strings.Split(classInfo, ",")
	if len(classes) > 0 {
		className := strings.TrimSpace(classes[len(classes)-1])
		className = strings.Trim(className, "\" ")
		return className
	}

	return ""
}
