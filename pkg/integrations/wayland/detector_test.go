package wayland

import (
	"context"
	"errors"
	"testing"

	"github.com/actionsum/lastapp/pkg/shell"
)

const swayTree = `{
  "type": "root",
  "focused": false,
  "nodes": [
    {
      "type": "output",
      "focused": false,
      "nodes": [
        {
          "type": "workspace",
          "focused": false,
          "nodes": [
            {"type": "con", "focused": false, "app_id": "foot", "nodes": []}
          ],
          "floating_nodes": [
            {"type": "con", "focused": true, "app_id": null,
             "window_properties": {"class": "Steam"}, "nodes": []}
          ]
        }
      ]
    }
  ]
}`

func TestParseSwayTree(t *testing.T) {
	id, err := parseSwayTree([]byte(swayTree))
	if err != nil {
		t.Fatalf("parseSwayTree() error: %v", err)
	}
	if id != shell.AppID("steam") {
		t.Errorf("parseSwayTree() = %s, want steam", id)
	}
}

func TestParseSwayTreeNativeApp(t *testing.T) {
	tree := `{"focused": false, "nodes": [{"focused": true, "app_id": "org.gnome.Nautilus", "nodes": []}]}`
	id, err := parseSwayTree([]byte(tree))
	if err != nil {
		t.Fatalf("parseSwayTree() error: %v", err)
	}
	if id != "org.gnome.nautilus" {
		t.Errorf("parseSwayTree() = %s, want org.gnome.nautilus", id)
	}
}

func TestParseSwayTreeFocusedWorkspace(t *testing.T) {
	tree := `{"focused": false, "nodes": [{"type": "workspace", "focused": true, "nodes": []}]}`
	if _, err := parseSwayTree([]byte(tree)); err == nil {
		t.Error("parseSwayTree() expected error for focused workspace")
	}
	if _, err := parseSwayTree([]byte("not json")); err == nil {
		t.Error("parseSwayTree() expected error for invalid json")
	}
}

func TestParseHyprlandWindow(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    shell.AppID
		wantErr bool
	}{
		{name: "class", input: `{"class": "kitty", "initialClass": "kitty", "title": "~"}`, want: "kitty"},
		{name: "initial class", input: `{"class": "", "initialClass": "Code"}`, want: "code"},
		{name: "empty", input: `{}`, wantErr: true},
		{name: "invalid", input: `Invalid`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseHyprlandWindow([]byte(tt.input))
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseHyprlandWindow() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("parseHyprlandWindow() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestForegroundAppDispatch(t *testing.T) {
	d := &Detector{
		compositor: "hyprland",
		hasHyprctl: true,
		run: func(_ context.Context, name string, args ...string) ([]byte, error) {
			if name != "hyprctl" {
				return nil, errors.New("unexpected command")
			}
			return []byte(`{"class": "firefox"}`), nil
		},
	}

	if !d.IsAvailable() {
		t.Error("IsAvailable() = false, want true")
	}
	id, err := d.ForegroundApp()
	if err != nil {
		t.Fatalf("ForegroundApp() error: %v", err)
	}
	if id != "firefox" {
		t.Errorf("ForegroundApp() = %s, want firefox", id)
	}

	d.compositor = "gnome"
	if d.IsAvailable() {
		t.Error("IsAvailable() = true for gnome")
	}
	if _, err := d.ForegroundApp(); err == nil {
		t.Error("ForegroundApp() expected error for unsupported compositor")
	}
}

func TestDetectCompositor(t *testing.T) {
	valid := map[string]bool{"sway": true, "hyprland": true, "gnome": true, "kde": true, "wayfire": true, "river": true, "unknown": true}
	if c := DetectCompositor(); !valid[c] {
		t.Errorf("DetectCompositor() = %s", c)
	}
}
