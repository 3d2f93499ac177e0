package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestNew_Level(t *testing.T) {
	l := New(Config{Level: "debug", Format: "console"})
	assert.True(t, l.Core().Enabled(zapcore.DebugLevel))

	l = New(Config{Level: "nonsense"})
	assert.False(t, l.Core().Enabled(zapcore.DebugLevel))
	assert.True(t, l.Core().Enabled(zapcore.InfoLevel))
}
