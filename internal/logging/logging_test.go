package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJSONRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, "WARN", "json")
	require.NoError(t, err)

	logger.Info().Msg("hidden")
	logger.Warn().Str("email", "bs.a@pdhealth.com").Msg("login failed")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "login failed", entry["message"])
	assert.Equal(t, "bs.a@pdhealth.com", entry["email"])
}

func TestNewConsoleFormat(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, "debug", "console")
	require.NoError(t, err)

	logger.Debug().Msg("request")
	assert.Contains(t, buf.String(), "DBG")
	assert.Contains(t, buf.String(), "request")
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(&bytes.Buffer{}, "loud", "json")
	require.Error(t, err)
}
