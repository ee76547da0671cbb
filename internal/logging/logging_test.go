package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew(t *testing.T) {
	logger, err := New("debug", "console")
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zap.DebugLevel))

	logger, err = New("WARN", "json")
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zap.InfoLevel))
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New("loud", "json")
	assert.Error(t, err)
}
