package logging

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	require.Equal(t, slog.LevelDebug, Level())
	t.Setenv("LOG_LEVEL", "warning")
	require.Equal(t, slog.LevelWarn, Level())
	t.Setenv("LOG_LEVEL", "bogus")
	require.Equal(t, slog.LevelError, Level())
}

func TestForTagsComponent(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	t.Setenv("LOG_LEVEL", "info")
	var buf bytes.Buffer
	InitTo(&buf)
	For("relay").Info("room opened", "room", "r1")
	require.Contains(t, buf.String(), "component=relay")
	require.Contains(t, buf.String(), "room=r1")
}
