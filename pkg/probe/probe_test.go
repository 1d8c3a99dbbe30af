package probe

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/actionsum/lastapp/pkg/shell"
)

type condition struct {
	active bool
	err    error
}

func (c condition) Active() (bool, error) { return c.active, c.err }

type foreground struct {
	id  shell.AppID
	err error
}

func (f foreground) ForegroundApp() (shell.AppID, error) { return f.id, f.err }

func TestMissingCapabilitiesReadAsSafeDefaults(t *testing.T) {
	p := New(Sources{})

	assert.False(t, p.IsDeviceLocked())
	assert.False(t, p.IsEmergencyCallActive())
	assert.False(t, p.IsPowerDownAlertVisible())
	assert.False(t, p.IsIconEditingModeActive())

	_, ok := p.CurrentForegroundApplication()
	assert.False(t, ok)
}

func TestFailingCapabilitiesReadAsFalse(t *testing.T) {
	broken := condition{active: true, err: errors.New("dbus unavailable")}
	p := New(Sources{Lock: broken, EmergencyCall: broken, PowerDownAlert: broken, IconEditing: broken})

	assert.False(t, p.IsDeviceLocked())
	assert.False(t, p.IsEmergencyCallActive())
	assert.False(t, p.IsPowerDownAlertVisible())
	assert.False(t, p.IsIconEditingModeActive())
}

func TestConditionsAreReported(t *testing.T) {
	on := condition{active: true}
	p := New(Sources{Lock: on, PowerDownAlert: on})

	state := Read(p)
	assert.Equal(t, State{Locked: true, PowerDownAlert: true}, state)
}

func TestForegroundUsesBestAvailableSource(t *testing.T) {
	p := New(Sources{
		Foreground: []ForegroundSource{
			foreground{err: errors.New("no X connection")},
			foreground{id: ""},
			foreground{id: "firefox"},
			foreground{id: "never-reached"},
		},
	})

	id, ok := p.CurrentForegroundApplication()
	assert.True(t, ok)
	assert.Equal(t, shell.AppID("firefox"), id)
}

func TestForegroundIgnoresShellComponents(t *testing.T) {
	p := New(Sources{
		Foreground: []ForegroundSource{foreground{id: "plasmashell"}, foreground{id: "firefox"}},
		Ignore:     []string{"PlasmaShell", " "},
	})

	_, ok := p.CurrentForegroundApplication()
	assert.False(t, ok)
}

func TestAnyOf(t *testing.T) {
	active, err := AnyOf{nil, condition{err: errors.New("boom")}, condition{active: true}}.Active()
	assert.NoError(t, err)
	assert.True(t, active)

	active, err = AnyOf{condition{err: errors.New("boom")}, condition{}}.Active()
	assert.Error(t, err)
	assert.False(t, active)

	active, err = AnyOf{}.Active()
	assert.NoError(t, err)
	assert.False(t, active)
}
