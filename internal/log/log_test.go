package log

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{in: "debug", want: LevelDebug},
		{in: " ERROR ", want: LevelError},
		{in: "info", want: LevelInfo},
		{in: "verbose", want: LevelInfo},
		{in: "", want: LevelInfo},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.want, ParseLevel(tc.in), tc.in)
	}
}

func TestSetLevel(t *testing.T) {
	SetLevel(LevelError)
	assert.Equal(t, zapcore.ErrorLevel, atomLevel.Level())

	SetLevel(LevelDebug)
	assert.Equal(t, zapcore.DebugLevel, atomLevel.Level())

	SetLevel(LevelInfo)
	assert.Equal(t, zapcore.InfoLevel, atomLevel.Level())
}
