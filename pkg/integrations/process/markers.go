// Package process answers "is one of these programs running" questions from
// the process table.
package process

import (
	"path/filepath"
	"strings"

	ps "github.com/mitchellh/go-ps"
)

// Lister snapshots the process table
type Lister func() ([]ps.Process, error)

// Markers is a condition that holds while any of a set of executables runs.
// Lock screens, logout dialogs and similar overlays run as their own
// processes, so their presence stands in for the overlay being shown.
type Markers struct {
	name  string
	names map[string]struct{}
	list  Lister
}

// NewMarkers builds a condition over executable names (compared without case)
func NewMarkers(name string, executables []string) *Markers {
	return newMarkers(name, executables, ps.Processes)
}

func newMarkers(name string, executables []string, list Lister) *Markers {
	names := make(map[string]struct{}, len(executables))
	for _, exe := range executables {
		exe = normalize(exe)
		if exe != "" {
			names[exe] = struct{}{}
		}
	}
	return &Markers{name: name, names: names, list: list}
}

func normalize(exe string) string {
	return strings.ToLower(strings.TrimSpace(filepath.Base(exe)))
}

// Name identifies the condition in logs
func (m *Markers) Name() string {
	return m.name
}

// Empty reports whether no executables were configured
func (m *Markers) Empty() bool {
	return len(m.names) == 0
}

// Active reports whether any marker executable is running
func (m *Markers) Active() (bool, error) {
	if m.Empty() {
		return false, nil
	}

	processes, err := m.list()
	if err != nil {
		return false, err
	}

	for _, p := range processes {
		if _, ok := m.names[normalize(p.Executable())]; ok {
			return true, nil
		}
	}
	return false, nil
}

// FindRunning returns the label of the first running executable from
// candidates (executable -> label), checked in the given order.
func FindRunning(order []string, candidates map[string]string) (string, bool) {
	return findRunning(ps.Processes, order, candidates)
}

func findRunning(list Lister, order []string, candidates map[string]string) (string, bool) {
	processes, err := list()
	if err != nil {
		return "", false
	}

	running := make(map[string]struct{}, len(processes))
	for _, p := range processes {
		running[normalize(p.Executable())] = struct{}{}
	}

	for _, exe := range order {
		if _, ok := running[normalize(exe)]; ok {
			return candidates[exe], true
		}
	}
	return "", false
}
