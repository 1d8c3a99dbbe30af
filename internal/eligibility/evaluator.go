// Package eligibility decides whether switching to the previous application
// is safe right now.
package eligibility

import (
	"fmt"

	"github.com/actionsum/lastapp/pkg/shell"
)

// Reason names the first condition that decided a verdict
type Reason int

const (
	Allowed Reason = iota
	Locked
	EmergencyCall
	PowerDownAlertVisible
	IconsEditing
	NoPreviousApp
)

var reasonNames = map[Reason]string{
	Allowed:               "allowed",
	Locked:                "locked",
	EmergencyCall:         "emergency_call",
	PowerDownAlertVisible: "power_down_alert_visible",
	IconsEditing:          "icons_editing",
	NoPreviousApp:         "no_previous_app",
}

func (r Reason) String() string {
	if name, ok := reasonNames[r]; ok {
		return name
	}
	return "unknown"
}

// MarshalText lets verdicts travel as JSON strings
func (r Reason) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *Reason) UnmarshalText(text []byte) error {
	for reason, name := range reasonNames {
		if name == string(text) {
			*r = reason
			return nil
		}
	}
	return fmt.Errorf("unknown verdict reason: %q", text)
}

// Verdict is computed fresh for every switch request
type Verdict struct {
	Allowed bool   `json:"allowed"`
	Reason  Reason `json:"reason"`
}

// PreviousAppSource exposes the switch target candidate
type PreviousAppSource interface {
	PreviousApplication() (shell.AppID, bool)
}

func deny(r Reason) Verdict {
	return Verdict{Allowed: false, Reason: r}
}

// Evaluate checks the blocking conditions in priority order; the first one
// that holds wins. A lock screen that is hosting an emergency call reports
// EmergencyCall rather than Locked.
func Evaluate(probe shell.StateProbe, history PreviousAppSource) Verdict {
	emergency := probe.IsEmergencyCallActive()

	if probe.IsDeviceLocked() && !emergency {
		return deny(Locked)
	}
	if emergency {
		return deny(EmergencyCall)
	}
	if probe.IsPowerDownAlertVisible() {
		return deny(PowerDownAlertVisible)
	}
	if probe.IsIconEditingModeActive() {
		return deny(IconsEditing)
	}
	if _, ok := history.PreviousApplication(); !ok {
		return deny(NoPreviousApp)
	}

	return Verdict{Allowed: true, Reason: Allowed}
}
