// Package session reads the login session's lock state from systemd-logind
// and the GNOME screensaver.
package session

import (
	"context"
	"strings"
	"time"

	"github.com/actionsum/lastapp/pkg/utils"
)

// LockedHint is a condition backed by `loginctl show-session` and the
// org.gnome.ScreenSaver D-Bus interface.
type LockedHint struct {
	sessionID string
	run       utils.Runner
	timeout   time.Duration
}

// NewLockedHint queries the session named by XDG_SESSION_ID, or the caller's
// session when empty.
func NewLockedHint(sessionID string) *LockedHint {
	return &LockedHint{sessionID: sessionID, run: utils.RunCommand, timeout: utils.ProbeTimeout}
}

// Available reports whether either backing tool is installed
func Available() bool {
	return utils.CommandExists("loginctl") || utils.CommandExists("gdbus")
}

func (l *LockedHint) Name() string {
	return "session-locked-hint"
}

// Active reports whether the session is locked. Tool failures and timeouts
// read as unlocked.
func (l *LockedHint) Active() (bool, error) {
	args := []string{"show-session"}
	if l.sessionID != "" {
		args = append(args, l.sessionID)
	}
	args = append(args, "-p", "LockedHint")

	if out, err := l.query("loginctl", args...); err == nil {
		if strings.Contains(string(out), "LockedHint=yes") {
			return true, nil
		}
	}

	out, err := l.query("gdbus", "call", "--session",
		"--dest", "org.gnome.ScreenSaver",
		"--object-path", "/org/gnome/ScreenSaver",
		"--method", "org.gnome.ScreenSaver.GetActive")
	if err == nil && strings.Contains(string(out), "true") {
		return true, nil
	}

	return false, nil
}

func (l *LockedHint) query(name string, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	defer cancel()
	return l.run(ctx, name, args...)
}
