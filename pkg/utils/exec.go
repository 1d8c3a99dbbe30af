package utils

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"time"
)

// ProbeTimeout bounds a single state query against a desktop tool
const ProbeTimeout = 500 * time.Millisecond

// Runner executes an external command and returns its standard output.
// Tests substitute it to avoid depending on host tools.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// RunCommand is the Runner backed by os/exec
func RunCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// CommandExists checks if a command is available in PATH
func CommandExists(cmd string) bool {
	_, err := exec.LookPath(cmd)
	return err == nil
}

// CommandMessage joins stdout with the stderr captured in an exit error,
// lower-cased, for matching tool diagnostics.
func CommandMessage(out []byte, err error) string {
	msg := string(out)
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		msg += " " + string(exitErr.Stderr)
	}
	return strings.ToLower(strings.TrimSpace(msg))
}
