package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// LoadFromEnv loads configuration from environment variables
// Environment variables override default and file values
func LoadFromEnv(cfg *Config) {
	if dbPath := os.Getenv("LASTAPP_DB_PATH"); dbPath != "" {
		cfg.Database.Path = dbPath
	}

	if retention := os.Getenv("LASTAPP_RETENTION_HOURS"); retention != "" {
		if hours, err := strconv.Atoi(retention); err == nil && hours >= 0 {
			cfg.Database.Retention = time.Duration(hours) * time.Hour
		}
	}

	if mode := os.Getenv("LASTAPP_WATCH_MODE"); mode != "" {
		cfg.Watcher.Mode = strings.ToLower(mode)
	}

	if pollInterval := os.Getenv("LASTAPP_POLL_INTERVAL_MS"); pollInterval != "" {
		if ms, err := strconv.Atoi(pollInterval); err == nil && ms > 0 {
			interval := time.Duration(ms) * time.Millisecond
			if interval >= cfg.Watcher.MinPollInterval && interval <= cfg.Watcher.MaxPollInterval {
				cfg.Watcher.PollInterval = interval
			}
		}
	}

	if ignore := os.Getenv("LASTAPP_IGNORE"); ignore != "" {
		cfg.Watcher.Ignore = splitList(ignore)
	}

	if v := os.Getenv("LASTAPP_LOCK_PROCESSES"); v != "" {
		cfg.Probe.LockProcesses = splitList(v)
	}
	if v := os.Getenv("LASTAPP_EMERGENCY_CALL_PROCESSES"); v != "" {
		cfg.Probe.EmergencyCallProcesses = splitList(v)
	}
	if v := os.Getenv("LASTAPP_POWER_DOWN_PROCESSES"); v != "" {
		cfg.Probe.PowerDownProcesses = splitList(v)
	}
	if v := os.Getenv("LASTAPP_ICON_EDITING_PROCESSES"); v != "" {
		cfg.Probe.IconEditingProcesses = splitList(v)
	}

	if v := os.Getenv("LASTAPP_SESSION_LOCK_HINT"); v != "" {
		if val, err := strconv.ParseBool(v); err == nil {
			cfg.Probe.UseSessionLockHint = val
		}
	}

	if protocol := os.Getenv("LASTAPP_ACTIVATION_PROTOCOL"); protocol != "" {
		cfg.Activation.Protocol = protocol
	}

	if pidFile := os.Getenv("LASTAPP_PID_FILE"); pidFile != "" {
		cfg.Daemon.PIDFile = pidFile
	}

	if logFile := os.Getenv("LASTAPP_LOG_FILE"); logFile != "" {
		cfg.Daemon.LogFile = logFile
	}

	if level := os.Getenv("LASTAPP_LOG_LEVEL"); level != "" {
		cfg.Daemon.LogLevel = level
	}

	if webHost := os.Getenv("LASTAPP_WEB_HOST"); webHost != "" {
		cfg.Web.Host = webHost
	}

	if webPort := os.Getenv("LASTAPP_WEB_PORT"); webPort != "" {
		if port, err := strconv.Atoi(webPort); err == nil && port > 0 && port <= 65535 {
			cfg.Web.Port = port
		}
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// New creates a Config from defaults, the optional YAML file at path, and
// the environment, in that order of precedence (lowest first).
func New(path string) (*Config, error) {
	cfg := Default()
	if err := LoadFile(path, cfg); err != nil {
		return nil, err
	}
	LoadFromEnv(cfg)
	return cfg, nil
}
