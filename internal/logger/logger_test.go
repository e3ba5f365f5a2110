package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew_Production(t *testing.T) {
	log, err := New(EnvProduction, "")
	require.NoError(t, err)

	assert.False(t, log.Core().Enabled(zapcore.DebugLevel))
	assert.True(t, log.Core().Enabled(zapcore.InfoLevel))
}

func TestNew_Development(t *testing.T) {
	for _, env := range []string{"", "development", "test"} {
		log, err := New(env, "")
		require.NoError(t, err)
		assert.True(t, log.Core().Enabled(zapcore.DebugLevel), "env %q", env)
	}
}

func TestNew_LevelOverride(t *testing.T) {
	log, err := New(EnvProduction, "debug")
	require.NoError(t, err)
	assert.True(t, log.Core().Enabled(zapcore.DebugLevel))

	log, err = New("development", "WARN")
	require.NoError(t, err)
	assert.False(t, log.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, log.Core().Enabled(zapcore.WarnLevel))
}

func TestNew_InvalidLevel(t *testing.T) {
	_, err := New("development", "loud")
	assert.Error(t, err)
}
