package logger

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/require"
)

func captureLogger(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := Default()
	prevLevel := GetLogLevel()
	SetDefault(NewDairosLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: level}))))
	t.Cleanup(func() {
		SetDefault(prev)
		SetLogLevel(prevLevel)
	})
	return &buf
}

func TestHCLogAdapter(t *testing.T) {
	buf := captureLogger(t)
	SetLogLevel(slog.LevelInfo)

	l := NewHCLogAdapter().Named("dai_ros_plugins").With("pid", 42)
	l.Info("plugin started", "version", "1.0.0")
	l.Debug("hidden")
	l.Log(hclog.Warn, "careful")

	out := buf.String()
	require.Contains(t, out, "plugin started")
	require.Contains(t, out, "logger=plugin.dai_ros_plugins")
	require.Contains(t, out, "pid=42")
	require.Contains(t, out, "version=1.0.0")
	require.Contains(t, out, "careful")
	require.NotContains(t, out, "hidden")
	require.Equal(t, hclog.Info, l.GetLevel())
	require.False(t, l.IsDebug())
}

func TestLevels(t *testing.T) {
	buf := captureLogger(t)
	SetLogLevel(slog.LevelDebug)

	Debug("debug line")
	Default().Warningf("badger says %d", 3)

	require.Contains(t, buf.String(), "debug line")
	require.Contains(t, buf.String(), "badger says 3")
	require.True(t, NewHCLogAdapter().IsDebug())
}

func TestGenericPairs(t *testing.T) {
	pairs := genericPairs("a", 1, 2, "b", "dangling")
	require.Len(t, pairs, 2)
	require.Equal(t, slog.Any("a", 1), pairs[0])
	require.Equal(t, slog.Any("non_string_key_2", "b"), pairs[1])
}
