// Package probe unifies the session's optional state sources behind
// shell.StateProbe. Missing or failing sources read as the safe default.
package probe

import (
	"github.com/actionsum/lastapp/pkg/shell"
)

// Condition is a boolean session state that may fail to read
type Condition interface {
	Active() (bool, error)
}

// ForegroundSource reports the topmost application
type ForegroundSource interface {
	ForegroundApp() (shell.AppID, error)
}

// Sources holds whatever the running session exposes. A nil field means the
// capability does not exist here.
type Sources struct {
	Lock           Condition
	EmergencyCall  Condition
	PowerDownAlert Condition
	IconEditing    Condition
	// Foreground sources in order of preference
	Foreground []ForegroundSource
	// Ignore lists shell components that never count as applications
	Ignore []string
}

// Probe implements shell.StateProbe over Sources
type Probe struct {
	src    Sources
	ignore map[shell.AppID]struct{}
}

var _ shell.StateProbe = (*Probe)(nil)

func New(src Sources) *Probe {
	return &Probe{src: src, ignore: IgnoreSet(src.Ignore)}
}

// IgnoreSet normalizes a list of shell component identifiers
func IgnoreSet(ids []string) map[shell.AppID]struct{} {
	set := make(map[shell.AppID]struct{}, len(ids))
	for _, raw := range ids {
		if id := shell.NormalizeAppID(raw); !id.IsZero() {
			set[id] = struct{}{}
		}
	}
	return set
}

func check(c Condition) bool {
	if c == nil {
		return false
	}
	active, err := c.Active()
	return err == nil && active
}

func (p *Probe) IsDeviceLocked() bool {
	return check(p.src.Lock)
}

func (p *Probe) IsEmergencyCallActive() bool {
	return check(p.src.EmergencyCall)
}

func (p *Probe) IsPowerDownAlertVisible() bool {
	return check(p.src.PowerDownAlert)
}

func (p *Probe) IsIconEditingModeActive() bool {
	return check(p.src.IconEditing)
}

// CurrentForegroundApplication asks each source in turn and returns the first
// answer. Shell components on the ignore list read as absent.
func (p *Probe) CurrentForegroundApplication() (shell.AppID, bool) {
	for _, src := range p.src.Foreground {
		id, err := src.ForegroundApp()
		if err != nil || id.IsZero() {
			continue
		}
		if _, skip := p.ignore[id]; skip {
			return "", false
		}
		return id, true
	}
	return "", false
}

// State is a point-in-time reading of every query, for status reports
type State struct {
	Locked         bool        `json:"locked"`
	EmergencyCall  bool        `json:"emergency_call"`
	PowerDownAlert bool        `json:"power_down_alert"`
	IconEditing    bool        `json:"icon_editing"`
	Foreground     shell.AppID `json:"foreground,omitempty"`
}

// Read takes one reading of every query on probe
func Read(probe shell.StateProbe) State {
	fg, _ := probe.CurrentForegroundApplication()
	return State{
		Locked:         probe.IsDeviceLocked(),
		EmergencyCall:  probe.IsEmergencyCallActive(),
		PowerDownAlert: probe.IsPowerDownAlertVisible(),
		IconEditing:    probe.IsIconEditingModeActive(),
		Foreground:     fg,
	}
}

// AnyOf is active when any of its conditions is active. Nil entries are skipped.
type AnyOf []Condition

func (a AnyOf) Active() (bool, error) {
	var firstErr error
	for _, c := range a {
		if c == nil {
			continue
		}
		active, err := c.Active()
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if active {
			return true, nil
		}
	}
	return false, firstErr
}
