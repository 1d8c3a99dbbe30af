package shell

import (
	"context"
	"strings"
	"time"
)

// AppID identifies one installed application. The zero value means "absent".
type AppID string

// NormalizeAppID returns the canonical form of a raw window class or app id
func NormalizeAppID(raw string) AppID {
	return AppID(strings.ToLower(strings.TrimSpace(raw)))
}

// IsZero reports whether the identifier is absent
func (id AppID) IsZero() bool {
	return id == ""
}

func (id AppID) String() string {
	return string(id)
}

// EventKind distinguishes the two notifications the host delivers
type EventKind string

const (
	Activation   EventKind = "activation"
	Deactivation EventKind = "deactivation"
)

// Event is one item on the inbound event feed
type Event struct {
	Kind      EventKind
	ID        AppID
	Timestamp time.Time
}

// ActivationEvent is produced on every successful foreground transition
type ActivationEvent struct {
	ID        AppID
	Timestamp time.Time
}

// StateProbe answers read-only questions about the current session state
type StateProbe interface {
	// IsDeviceLocked reports whether the session is behind a lock screen
	IsDeviceLocked() bool

	// IsEmergencyCallActive reports whether an emergency call is in progress
	IsEmergencyCallActive() bool

	// IsPowerDownAlertVisible reports whether a power-off/logout prompt is showing
	IsPowerDownAlertVisible() bool

	// IsIconEditingModeActive reports whether launcher icons are being rearranged
	IsIconEditingModeActive() bool

	// CurrentForegroundApplication returns the topmost application, if known
	CurrentForegroundApplication() (AppID, bool)
}

// Activator asks the host to foreground an application
type Activator interface {
	Activate(ctx context.Context, id AppID) error
}

// EventHandler receives normalized activation notifications from the host
type EventHandler interface {
	OnActivation(id AppID)
	OnDeactivation(id AppID)
}

// Dispatch routes a feed event to the matching handler method
func Dispatch(h EventHandler, ev Event) {
	switch ev.Kind {
	case Activation:
		h.OnActivation(ev.ID)
	case Deactivation:
		h.OnDeactivation(ev.ID)
	}
}
