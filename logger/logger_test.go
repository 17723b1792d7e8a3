package logger

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
)

func TestSetupLevel(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.GlobalLevel())
	defer func(l zerolog.Logger) { log.Logger = l }(log.Logger)

	tests := []struct {
		name  string
		input string
		want  zerolog.Level
	}{
		{"info", "info", zerolog.InfoLevel},
		{"debug", "debug", zerolog.DebugLevel},
		{"trace", "trace", zerolog.TraceLevel},
		{"unknown defaults to info", "loud", zerolog.InfoLevel},
		{"empty defaults to info", "", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			Setup(&buf, tt.input)
			assert.Equal(t, tt.want, zerolog.GlobalLevel())
		})
	}
}

func TestSetupOutput(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.GlobalLevel())
	defer func(l zerolog.Logger) { log.Logger = l }(log.Logger)

	var buf bytes.Buffer
	Setup(&buf, "info")
	buf.Reset()

	l := Get()
	l.Debug().Msg("hidden")
	sl := For("swarm")
	sl.Info().Int("agents", 3).Msg("visible")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "visible")
	assert.Contains(t, out, "swarm")
	assert.Contains(t, out, "agents")
}
