package logging

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLevels(t *testing.T) {
	for _, tc := range []struct {
		level, format string
		debug         bool
	}{
		{"debug", "json", true},
		{"info", "console", false},
		{"bogus", "", false},
	} {
		logger, err := New(tc.level, tc.format, "zenstay")
		require.NoError(t, err)
		require.Equal(t, tc.debug, logger.Core().Enabled(zap.DebugLevel), tc.level)
		_ = logger.Sync()
	}
}

func TestCoreAdapterWritesFields(t *testing.T) {
	obs, logs := observer.New(zap.DebugLevel)
	l := Core(zap.New(obs))
	l.Debug("span", "operation", "add_booking")
	l.Info("notification", "kind", "booking")
	l.Warn("bucket fell back to seed", "bucket", "ZENSTAY_ROOMS_DATA")
	l.Error("persist snapshot failed", "error", "disk full")

	entries := logs.All()
	require.Len(t, entries, 4)
	require.Equal(t, "booking", entries[1].ContextMap()["kind"])
	require.Equal(t, zap.ErrorLevel, entries[3].Level)

	Core(nil).Info("dropped")
}
