package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewKnownModes(t *testing.T) {
	for _, mode := range []string{"", "development", "production"} {
		log, err := New(mode)
		require.NoError(t, err, "mode %q", mode)
		assert.NotNil(t, log.With("service", "test"))
	}
}

func TestNewUnknownMode(t *testing.T) {
	_, err := New("verbose")
	require.Error(t, err)
}

func TestNilLoggerIsSafe(t *testing.T) {
	var log *Logger
	assert.NotPanics(t, func() {
		log.Info("dropped", "key", "value")
		log.With("a", 1).Warn("still dropped")
	})
}
