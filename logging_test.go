package eventloop

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogLevel_String(t *testing.T) {
	assert.Equal(t, "debug", LevelDebug.String())
	assert.Equal(t, "info", LevelInfo.String())
	assert.Equal(t, "warn", LevelWarn.String())
	assert.Equal(t, "error", LevelError.String())
	assert.Equal(t, "unknown(99)", LogLevel(99).String())
}

func TestNoopLogger_DiscardsEverything(t *testing.T) {
	var l Logger = noopLogger{}
	assert.False(t, l.IsEnabled(LevelError))
	assert.NotPanics(t, func() {
		l.Log(Entry{Level: LevelError, Message: "should be dropped silently"})
	})
}

func TestDefaultLogger_IsEnabled(t *testing.T) {
	l := NewDefaultLogger(LevelWarn)
	assert.False(t, l.IsEnabled(LevelInfo))
	assert.True(t, l.IsEnabled(LevelWarn))
	assert.True(t, l.IsEnabled(LevelError))
}

func TestDefaultLogger_FiltersBelowMinLevel(t *testing.T) {
	// NewDefaultLogger writes to stderr; this only exercises that
	// construction and filtering don't panic across every level.
	l := NewDefaultLogger(LevelInfo)
	assert.NotPanics(t, func() {
		l.Log(Entry{Level: LevelDebug, Message: "filtered out"})
		l.Log(Entry{Level: LevelInfo, Message: "kept", Fields: map[string]any{"k": "v"}})
		l.Log(Entry{Level: LevelError, Message: "kept too"})
	})
}
