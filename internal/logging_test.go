package internal

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestNewLoggerLevel(t *testing.T) {
	var buf bytes.Buffer
	l := newLogger(&buf, "warn")
	assert.Equal(t, zerolog.WarnLevel, l.GetLevel())
	l.Info().Msg("hidden")
	l.Warn().Msg("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")

	assert.Equal(t, zerolog.InfoLevel, newLogger(&buf, "").GetLevel())
	assert.Equal(t, zerolog.InfoLevel, newLogger(&buf, "chatty").GetLevel())
	assert.Equal(t, zerolog.DebugLevel, NewLogger("debug").GetLevel())
}
