package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/actionsum/lastapp/pkg/utils"
)

func hint(sessionID string, outputs map[string]string) (*LockedHint, *[]string) {
	var seen []string
	return &LockedHint{
		sessionID: sessionID,
		timeout:   utils.ProbeTimeout,
		run: func(_ context.Context, name string, args ...string) ([]byte, error) {
			seen = append(seen, name)
			out, ok := outputs[name]
			if !ok {
				return nil, errors.New("not installed")
			}
			return []byte(out), nil
		},
	}, &seen
}

func TestLockedHintFromLoginctl(t *testing.T) {
	l, seen := hint("c2", map[string]string{"loginctl": "LockedHint=yes\n"})

	locked, err := l.Active()
	require.NoError(t, err)
	assert.True(t, locked)
	assert.Equal(t, []string{"loginctl"}, *seen)
}

func TestLockedHintFromScreensaver(t *testing.T) {
	l, _ := hint("", map[string]string{
		"loginctl": "LockedHint=no\n",
		"gdbus":    "(true,)\n",
	})

	locked, err := l.Active()
	require.NoError(t, err)
	assert.True(t, locked)
}

func TestLockedHintDefaultsToUnlocked(t *testing.T) {
	l, seen := hint("", map[string]string{})

	locked, err := l.Active()
	require.NoError(t, err)
	assert.False(t, locked)
	assert.Len(t, *seen, 2)
	assert.Equal(t, "session-locked-hint", l.Name())
}

func TestLockedHintBoundsHungTools(t *testing.T) {
	l := &LockedHint{
		timeout: 20 * time.Millisecond,
		run: func(ctx context.Context, _ string, _ ...string) ([]byte, error) {
			_, ok := ctx.Deadline()
			require.True(t, ok)
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}

	start := time.Now()
	locked, err := l.Active()
	require.NoError(t, err)
	assert.False(t, locked)
	assert.Less(t, time.Since(start), 2*time.Second)
}
