package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNew_JSON(t *testing.T) {
	req := require.New(t)
	var buf bytes.Buffer

	logger := New("info", "json", &buf)
	logger.Debug("hidden")
	logger.Info("poll created", "poll_id", "p1")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	req.Len(lines, 1)

	var entry map[string]interface{}
	req.NoError(json.Unmarshal([]byte(lines[0]), &entry))
	req.Equal("poll created", entry["msg"])
	req.Equal("p1", entry["poll_id"])
	req.Equal("pollroom", entry["service"])
}

func TestNew_Text(t *testing.T) {
	var buf bytes.Buffer

	New("debug", "text", &buf).Debug("student joined", "student", "Alice")

	require.Contains(t, buf.String(), "student=Alice")
}

func TestParseLevel(t *testing.T) {
	req := require.New(t)

	req.Equal(slog.LevelDebug, ParseLevel("DEBUG"))
	req.Equal(slog.LevelWarn, ParseLevel("warning"))
	req.Equal(slog.LevelError, ParseLevel("error"))
	req.Equal(slog.LevelInfo, ParseLevel("nonsense"))
}
