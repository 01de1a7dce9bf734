package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Protocol-Lattice/research-agent/pkg/config"
)

func TestJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(config.LoggingConfig{Level: "warn"}, &buf)
	log.Info().Msg("hidden")
	log.Warn().Str("tool", "serper_search").Msg("tool failed")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "warn", rec["level"])
	assert.Equal(t, "serper_search", rec["tool"])
	assert.Equal(t, "research-agent", rec["service"])
	assert.NotContains(t, buf.String(), "hidden")
}

func TestConsoleLogger(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(config.LoggingConfig{Level: "debug", Format: "console"}, &buf)
	log.Debug().Msg("stage reasoning")
	assert.Contains(t, buf.String(), "stage reasoning")
	assert.NotContains(t, buf.String(), "{")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel(""))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("loud"))
	assert.Equal(t, zerolog.ErrorLevel, ParseLevel("error"))
}
