package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]log.Level{
		"debug":   log.DebugLevel,
		" WARN ":  log.WarnLevel,
		"error":   log.ErrorLevel,
		"":        log.InfoLevel,
		"verbose": log.InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), "level %q", in)
	}
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "warn", "json").WithPrefix("pool")

	logger.Info("hidden")
	logger.Warn("release of instance not in use", "in_use", 3)

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "release of instance not in use", entry["msg"])
	assert.Contains(t, entry["prefix"], "pool")
	assert.EqualValues(t, 3, entry["in_use"])
}

func TestNew_Logfmt(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, "info", "logfmt").Info("tick", "active", 12)

	assert.Contains(t, buf.String(), "msg=tick")
	assert.Contains(t, buf.String(), "active=12")
}

func TestNew_UnknownFormatIsText(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, "info", "xml").Info("hello", "k", "v")

	assert.Contains(t, buf.String(), "hello")
	assert.Contains(t, buf.String(), "k=v")
	assert.NotContains(t, buf.String(), "{")
}
