// Package integration drives a full pollroom over real sockets.
package integration

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"pollroom/internal/app"
	"pollroom/internal/config"
)

type frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type testRoom struct {
	t    *testing.T
	app  *app.Application
	base string
}

// startRoom runs an application on an ephemeral port with the archive in a
// temp dir. tweak may adjust the config before start.
func startRoom(t *testing.T, tweak func(*config.Config)) *testRoom {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.HTTP.Host = "127.0.0.1"
	cfg.HTTP.Port = freePort(t)
	cfg.Archive.Enabled = true
	cfg.Archive.Path = filepath.Join(t.TempDir(), "pollroom.db")
	if tweak != nil {
		tweak(cfg)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	application, err := app.NewApplication(cfg, logger)
	require.NoError(t, err)
	require.NoError(t, application.Start(context.Background()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = application.Stop(ctx)
	})

	return &testRoom{t: t, app: application, base: application.Addr()}
}

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())
	return port
}

func (r *testRoom) dial() *websocket.Conn {
	r.t.Helper()
	ws, _, err := websocket.DefaultDialer.Dial("ws://"+r.base+"/ws", nil)
	require.NoError(r.t, err)
	r.t.Cleanup(func() { _ = ws.Close() })
	return ws
}

func (r *testRoom) getJSON(path string, v interface{}) int {
	r.t.Helper()
	resp, err := http.Get("http://" + r.base + path)
	require.NoError(r.t, err)
	defer resp.Body.Close()
	if v != nil {
		require.NoError(r.t, json.NewDecoder(resp.Body).Decode(v))
	}
	return resp.StatusCode
}

func send(t *testing.T, ws *websocket.Conn, eventType string, payload interface{}) {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	require.NoError(t, ws.WriteJSON(frame{Type: eventType, Payload: raw}))
}

// expect reads frames until one of the wanted type arrives and decodes it.
func expect(t *testing.T, ws *websocket.Conn, eventType string, v interface{}) {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		var f frame
		require.NoError(t, ws.ReadJSON(&f))
		if f.Type != eventType {
			continue
		}
		if v != nil {
			require.NoError(t, json.Unmarshal(f.Payload, v))
		}
		return
	}
}
