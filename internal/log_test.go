package internal

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLogLevel(t *testing.T) {
	tests := map[string]LogLevel{
		"ERROR": LogLevelError,
		"warn":  LogLevelWarn,
		"":      LogLevelInfo,
		"bogus": LogLevelInfo,
		"DEBUG": LogLevelDebug,
		"TRACE": LogLevelTrace,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLogLevel(in), "input %q", in)
	}
}

func TestLoggerFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, LogLevelWarn)

	logger.Info("hidden %d", 1)
	logger.Debug("hidden %d", 2)
	logger.Warn("shown %d", 3)
	logger.Error("shown %d", 4)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "[WARN] shown 3")
	assert.Contains(t, out, "[ERROR] shown 4")
}
