package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrettyHandlerRedactsCredentials(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "text", "info")

	log.Info("login", "username", "alice", "password", "hunter2", "refresh_token", "eyJ.abc.def")

	out := buf.String()
	assert.Contains(t, out, "alice")
	assert.NotContains(t, out, "hunter2")
	assert.NotContains(t, out, "eyJ.abc.def")
	assert.Contains(t, out, redacted)
}

func TestJSONHandlerRedactsCredentials(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "json", "debug")

	log.Debug("token check", "token", "eyJ.abc.def", "user_idx", 7)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, redacted, entry["token"])
	assert.EqualValues(t, 7, entry["user_idx"])
}

func TestPrettyHandlerLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "text", "warn")

	log.Info("hidden")
	assert.Empty(t, buf.String())

	log.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestPrettyHandlerGroupsAndAttrs(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewPrettyHandler(&buf, nil)).With("component", "auth").WithGroup("req")

	log.Info("hello", "path", "/api/login")

	out := buf.String()
	assert.Contains(t, out, "component")
	assert.Contains(t, out, "req.path")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("nonsense"))
}
