package logging

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewLogger(t *testing.T) {
	for _, tc := range []struct {
		format, level string
		wantErr       string
	}{
		{format: "text", level: "info"},
		{format: "json", level: "debug"},
		{format: "text", level: "none"},
		{format: "text", level: "loud", wantErr: "unknown log level"},
		{format: "xml", level: "info", wantErr: "unknown log format"},
	} {
		t.Run(tc.format+"/"+tc.level, func(t *testing.T) {
			logger, err := NewLogger(tc.format, tc.level)
			if tc.wantErr != "" {
				require.ErrorContains(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, logger)
		})
	}
}

func TestMustNewLoggerPanics(t *testing.T) {
	assert.Panics(t, func() { MustNewLogger("text", "loud") })
}

func TestRecentCapturesFields(t *testing.T) {
	recent := NewRecent(zap.DebugLevel, 10)
	logger := zap.New(recent).With(zap.String("component", "pager"))

	logger.Info("page loaded", zap.Int("page", 2))
	logger.Debug("bare")

	entries := recent.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "page loaded", entries[0].Message)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, map[string]any{"component": "pager", "page": int64(2)}, entries[0].Context)
	assert.Equal(t, map[string]any{"component": "pager"}, entries[1].Context)
}

func TestRecentKeepsOnlyNewest(t *testing.T) {
	recent := NewRecent(zap.InfoLevel, 3)
	logger := zap.New(recent)

	for _, msg := range []string{"a", "b", "c", "d", "e"} {
		logger.Info(msg)
	}
	logger.Debug("filtered")

	var got []string
	for _, e := range recent.Entries() {
		got = append(got, e.Message)
	}
	assert.Equal(t, []string{"c", "d", "e"}, got)
	assert.Equal(t, Stats{Total: 3, Info: 3, MaxEntries: 3}, recent.Stats())
}

func TestRecentTriggersOnWarnings(t *testing.T) {
	recent := NewRecent(zap.DebugLevel, 0)
	var triggered []string
	recent.SetTriggerFunc(func(e Entry) { triggered = append(triggered, e.Message) })

	logger := zap.New(recent)
	logger.Info("fine")
	logger.Warn("careful")
	logger.Error("broken", zap.Error(errors.New("boom")))

	assert.Equal(t, []string{"careful", "broken"}, triggered)

	last, ok := recent.Last(zapcore.WarnLevel)
	require.True(t, ok)
	assert.Equal(t, "broken", last.Message)
	assert.Equal(t, "boom", last.Context["error"])

	s := recent.Stats()
	assert.Equal(t, 1, s.Errors)
	assert.Equal(t, 1, s.Warnings)
	assert.Equal(t, defaultMaxEntries, s.MaxEntries)
}
