package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/actionsum/lastapp/pkg/activation"
)

// Config holds all application configuration
type Config struct {
	Database   DatabaseConfig   `yaml:"database"`
	Watcher    WatcherConfig    `yaml:"watcher"`
	Probe      ProbeConfig      `yaml:"probe"`
	Activation ActivationConfig `yaml:"activation"`
	Daemon     DaemonConfig     `yaml:"daemon"`
	Web        WebConfig        `yaml:"web"`
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Path      string        `yaml:"path"`      // Path to SQLite database file
	Retention time.Duration `yaml:"retention"` // How long observed events are kept
}

// WatcherConfig controls how focus changes are observed
type WatcherConfig struct {
	Mode            string        `yaml:"mode"` // "auto", "events" or "poll"
	PollInterval    time.Duration `yaml:"poll_interval"`
	MinPollInterval time.Duration `yaml:"-"`
	MaxPollInterval time.Duration `yaml:"-"`
	// Ignore lists shell components (desktops, panels, lock screens) whose
	// focus never counts as an application activation
	Ignore []string `yaml:"ignore"`
}

// ProbeConfig names the processes whose presence signals each blocking state
type ProbeConfig struct {
	LockProcesses          []string `yaml:"lock_processes"`
	EmergencyCallProcesses []string `yaml:"emergency_call_processes"`
	PowerDownProcesses     []string `yaml:"power_down_processes"`
	IconEditingProcesses   []string `yaml:"icon_editing_processes"`
	UseSessionLockHint     bool     `yaml:"use_session_lock_hint"`
}

// ActivationConfig pins the activation protocol; "auto" detects it
type ActivationConfig struct {
	Protocol string `yaml:"protocol"`
}

// DaemonConfig holds daemon process configuration
type DaemonConfig struct {
	PIDFile  string `yaml:"pid_file"`
	LogFile  string `yaml:"log_file"`
	LogLevel string `yaml:"log_level"`
}

// WebConfig holds the local API configuration
type WebConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

var watcherModes = map[string]bool{"auto": true, "events": true, "poll": true}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:      "", // Empty means use default ~/.config/lastapp/lastapp.db
			Retention: 7 * 24 * time.Hour,
		},
		Watcher: WatcherConfig{
			Mode:            "auto",
			PollInterval:    500 * time.Millisecond,
			MinPollInterval: 100 * time.Millisecond,
			MaxPollInterval: 10 * time.Second,
			Ignore: []string{
				"plasmashell", "xfdesktop", "xfce4-panel", "nautilus-desktop",
				"desktop_window", "polybar", "waybar", "rofi", "wofi", "dmenu",
			},
		},
		Probe: ProbeConfig{
			LockProcesses: []string{
				"gnome-screensaver-dialog", "kscreenlocker_greet", "i3lock",
				"slock", "xscreensaver-auth", "xsecurelock", "swaylock", "hyprlock",
			},
			PowerDownProcesses: []string{
				"wlogout", "gnome-session-quit", "xfce4-session-logout",
				"lxqt-leave", "oblogout", "ksmserver-logout-greeter",
			},
			UseSessionLockHint: true,
		},
		Activation: ActivationConfig{
			Protocol: string(activation.ProtocolAuto),
		},
		Daemon: DaemonConfig{
			PIDFile:  fmt.Sprintf("/tmp/lastapp-%d.pid", os.Getuid()),
			LogFile:  fmt.Sprintf("/tmp/lastapp-%d.log", os.Getuid()),
			LogLevel: "info",
		},
		Web: WebConfig{
			Host: "localhost",
			Port: 20000 + os.Getuid()%10000,
		},
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Watcher.PollInterval < c.Watcher.MinPollInterval {
		return fmt.Errorf("poll interval (%v) cannot be less than minimum (%v)",
			c.Watcher.PollInterval, c.Watcher.MinPollInterval)
	}

	if c.Watcher.PollInterval > c.Watcher.MaxPollInterval {
		return fmt.Errorf("poll interval (%v) cannot be greater than maximum (%v)",
			c.Watcher.PollInterval, c.Watcher.MaxPollInterval)
	}

	if !watcherModes[c.Watcher.Mode] {
		return fmt.Errorf("watcher mode must be auto, events or poll, got %q", c.Watcher.Mode)
	}

	if c.Database.Retention < 0 {
		return fmt.Errorf("retention cannot be negative")
	}

	if _, err := activation.ParseProtocol(c.Activation.Protocol); err != nil {
		return err
	}

	if c.Web.Port < 1 || c.Web.Port > 65535 {
		return fmt.Errorf("web port must be between 1 and 65535, got %d", c.Web.Port)
	}

	if c.Web.Host == "" {
		return fmt.Errorf("web host cannot be empty")
	}

	if c.Daemon.PIDFile == "" {
		return fmt.Errorf("PID file path cannot be empty")
	}

	return nil
}

// SetPollInterval sets the poll interval with validation
func (c *Config) SetPollInterval(interval time.Duration) error {
	if interval < c.Watcher.MinPollInterval {
		return fmt.Errorf("poll interval cannot be less than %v", c.Watcher.MinPollInterval)
	}
	if interval > c.Watcher.MaxPollInterval {
		return fmt.Errorf("poll interval cannot be greater than %v", c.Watcher.MaxPollInterval)
	}
	c.Watcher.PollInterval = interval
	return nil
}

// SetWebPort sets the web server port with validation
func (c *Config) SetWebPort(port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", port)
	}
	c.Web.Port = port
	return nil
}

// APIAddress returns the base URL of the local API
func (c *Config) APIAddress() string {
	return fmt.Sprintf("http://%s:%d", c.Web.Host, c.Web.Port)
}

// String returns a string representation of the config
func (c *Config) String() string {
	return fmt.Sprintf(`Configuration:
  Database:
    Path: %s
    Retention: %v
  Watcher:
    Mode: %s
    Poll Interval: %v
    Ignore: %s
  Probe:
    Lock Processes: %s
    Emergency Call Processes: %s
    Power Down Processes: %s
    Icon Editing Processes: %s
    Session Lock Hint: %v
  Activation:
    Protocol: %s
  Daemon:
    PID File: %s
    Log File: %s
    Log Level: %s
  Web:
    Host: %s
    Port: %d`,
		c.Database.Path,
		c.Database.Retention,
		c.Watcher.Mode,
		c.Watcher.PollInterval,
		strings.Join(c.Watcher.Ignore, ", "),
		strings.Join(c.Probe.LockProcesses, ", "),
		strings.Join(c.Probe.EmergencyCallProcesses, ", "),
		strings.Join(c.Probe.PowerDownProcesses, ", "),
		strings.Join(c.Probe.IconEditingProcesses, ", "),
		c.Probe.UseSessionLockHint,
		c.Activation.Protocol,
		c.Daemon.PIDFile,
		c.Daemon.LogFile,
		c.Daemon.LogLevel,
		c.Web.Host,
		c.Web.Port,
	)
}
