package daemon

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDaemon(t *testing.T) *Daemon {
	t.Helper()
	return New(filepath.Join(t.TempDir(), "lastapp.pid"))
}

func TestReadPIDMissingFile(t *testing.T) {
	d := newTestDaemon(t)

	pid, err := d.ReadPID()
	require.NoError(t, err)
	assert.Zero(t, pid)
}

func TestWriteReadRemovePID(t *testing.T) {
	d := newTestDaemon(t)

	require.NoError(t, d.WritePID())
	pid, err := d.ReadPID()
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)

	require.NoError(t, d.RemovePID())
	require.NoError(t, d.RemovePID())
	_, err = os.Stat(d.PIDFile())
	assert.True(t, os.IsNotExist(err))
}

func TestReadPIDToleratesTrailingNewline(t *testing.T) {
	d := newTestDaemon(t)
	require.NoError(t, os.WriteFile(d.PIDFile(), []byte("1234\n"), 0o644))

	pid, err := d.ReadPID()
	require.NoError(t, err)
	assert.Equal(t, 1234, pid)
}

func TestReadPIDInvalid(t *testing.T) {
	d := newTestDaemon(t)
	require.NoError(t, os.WriteFile(d.PIDFile(), []byte("not-a-pid"), 0o644))

	_, err := d.ReadPID()
	assert.Error(t, err)
}

func TestIsRunningForCurrentProcess(t *testing.T) {
	d := newTestDaemon(t)
	require.NoError(t, d.WritePID())

	running, pid, err := d.IsRunning()
	require.NoError(t, err)
	assert.True(t, running)
	assert.Equal(t, os.Getpid(), pid)
}

func TestIsRunningWithoutPIDFile(t *testing.T) {
	d := newTestDaemon(t)

	running, _, err := d.IsRunning()
	require.NoError(t, err)
	assert.False(t, running)
}

func TestStopWhenNotRunning(t *testing.T) {
	d := newTestDaemon(t)
	assert.Error(t, d.Stop())
}

func TestSpawnRejectsEmptyArgs(t *testing.T) {
	_, err := Spawn(nil)
	assert.Error(t, err)
}

func TestIsChild(t *testing.T) {
	t.Setenv(ChildEnv, "")
	assert.False(t, IsChild())
	t.Setenv(ChildEnv, "1")
	assert.True(t, IsChild())
}
