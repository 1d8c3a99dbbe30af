package logger

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

// TestParseLogLevel verifies mapping from strings to zapcore.Level and handling of unknown values.
func TestParseLogLevel(t *testing.T) {
	t.Parallel()

	cases := map[string]zapcore.Level{
		"debug":  zapcore.DebugLevel,
		"info":   zapcore.InfoLevel,
		" WARN ": zapcore.WarnLevel,
		"error":  zapcore.ErrorLevel,
		"fatal":  zapcore.FatalLevel,
	}
	for s, lvl := range cases {
		got, ok := ParseLogLevel(s)
		require.True(t, ok)
		require.Equal(t, lvl, got)
	}

	_, ok := ParseLogLevel("unknown")
	require.False(t, ok)
}

// TestContextLogger verifies that a logger placed in a context is used by the helpers.
func TestContextLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l := New(zapcore.DebugLevel, &buf)
	ctx := WithKV(ToContext(context.Background(), l), "app", "firefox")

	InfoKV(ctx, "activation observed", "kind", "activation")
	Debugf(ctx, "probe foreground %s", "kitty")

	out := buf.String()
	require.Contains(t, out, "activation observed")
	require.Contains(t, out, "firefox")
	require.Contains(t, out, "probe foreground kitty")
}

// TestFromContextFallsBackToGlobal ensures a bare context yields the global logger.
func TestFromContextFallsBackToGlobal(t *testing.T) {
	t.Parallel()

	require.Same(t, Logger(), FromContext(context.Background()))
}
