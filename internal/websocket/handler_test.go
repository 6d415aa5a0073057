package websocket

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"pollroom/internal/hub"
	"pollroom/pkg/types"
)

type frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T, opts Options) (*httptest.Server, *hub.Hub) {
	t.Helper()
	h := hub.New(hub.Config{Logger: discardLogger()})
	require.NoError(t, h.Start(context.Background()))

	srv := httptest.NewServer(NewHandler(h, opts, discardLogger()))
	t.Cleanup(func() {
		srv.Close()
		_ = h.Stop()
	})
	return srv, h
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })
	return ws
}

func sendFrame(t *testing.T, ws *websocket.Conn, eventType string, payload interface{}) {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	require.NoError(t, ws.WriteJSON(frame{Type: eventType, Payload: raw}))
}

// readUntil reads frames until one of the wanted type arrives.
func readUntil(t *testing.T, ws *websocket.Conn, eventType string) frame {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		var f frame
		require.NoError(t, ws.ReadJSON(&f))
		if f.Type == eventType {
			return f
		}
	}
}

func TestHandler_CheckOrigin(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		origin  string
		want    bool
	}{
		{"no list", nil, "http://evil.test", true},
		{"no origin header", []string{"http://class.test"}, "", true},
		{"wildcard", []string{"*"}, "http://any.test", true},
		{"listed", []string{"http://class.test"}, "http://class.test", true},
		{"trailing slash", []string{"http://class.test/"}, "http://class.test", true},
		{"not listed", []string{"http://class.test"}, "http://evil.test", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(nil, Options{AllowedOrigins: tt.allowed}, discardLogger())
			r := httptest.NewRequest(http.MethodGet, "/ws", nil)
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			require.Equal(t, tt.want, h.checkOrigin(r))
		})
	}
}

func TestHandler_RejectsDisallowedOrigin(t *testing.T) {
	srv, _ := newTestServer(t, Options{AllowedOrigins: []string{"http://class.test"}})
	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	header := http.Header{}
	header.Set("Origin", "http://evil.test")
	_, resp, err := websocket.DefaultDialer.Dial(url, header)

	require.Error(t, err)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestHandler_PollRoundTrip(t *testing.T) {
	req := require.New(t)
	srv, _ := newTestServer(t, Options{})

	// Given two students connected and joined
	a := dial(t, srv)
	connected := readUntil(t, a, types.EventConnected)
	var greeting types.Connected
	req.NoError(json.Unmarshal(connected.Payload, &greeting))
	req.NotEmpty(greeting.ConnectionID)

	sendFrame(t, a, types.EventJoin, types.JoinRequest{Name: "A"})
	readUntil(t, a, types.EventJoinSuccess)

	b := dial(t, srv)
	sendFrame(t, b, types.EventJoin, types.JoinRequest{Name: "B"})
	readUntil(t, b, types.EventJoinSuccess)

	// When a poll is created and both answer
	sendFrame(t, a, types.EventCreatePoll, types.CreatePollRequest{Question: "Color?", Options: []string{"Red", "Blue"}})
	readUntil(t, a, types.EventNewPoll)
	readUntil(t, b, types.EventNewPoll)

	sendFrame(t, a, types.EventSubmitAnswer, map[string]int{"answer": 0})
	readUntil(t, a, types.EventAnswerReceived)
	sendFrame(t, b, types.EventSubmitAnswer, map[string]string{"answer": "1"})

	// Then both see the quorum close
	for _, ws := range []*websocket.Conn{a, b} {
		ended := readUntil(t, ws, types.EventPollEnded)
		var payload types.PollEnded
		req.NoError(json.Unmarshal(ended.Payload, &payload))
		req.Equal([]int{1, 1}, payload.Results)
		req.Equal(2, payload.TotalResponses)
		req.Equal(2, payload.TotalStudents)
		req.Equal("quorum", payload.Reason)
	}
}

func TestHandler_MalformedFrame(t *testing.T) {
	srv, _ := newTestServer(t, Options{})
	ws := dial(t, srv)
	readUntil(t, ws, types.EventConnected)

	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte("{not json")))

	f := readUntil(t, ws, types.EventPollError)
	var payload types.ErrorPayload
	require.NoError(t, json.Unmarshal(f.Payload, &payload))
	require.Equal(t, "invalid_payload", payload.Code)
}

func TestHandler_DisconnectUpdatesRoster(t *testing.T) {
	req := require.New(t)
	srv, h := newTestServer(t, Options{})

	a := dial(t, srv)
	sendFrame(t, a, types.EventJoin, types.JoinRequest{Name: "A"})
	readUntil(t, a, types.EventJoinSuccess)

	b := dial(t, srv)
	sendFrame(t, b, types.EventJoin, types.JoinRequest{Name: "B"})
	readUntil(t, b, types.EventJoinSuccess)

	req.NoError(a.Close())

	f := readUntil(t, b, types.EventRosterUpdate)
	for {
		var roster types.Roster
		req.NoError(json.Unmarshal(f.Payload, &roster))
		if len(roster.Names) == 1 {
			req.Equal([]string{"B"}, roster.Names)
			break
		}
		f = readUntil(t, b, types.EventRosterUpdate)
	}

	snap, err := h.Snapshot(context.Background())
	req.NoError(err)
	req.Equal([]string{"B"}, snap.Participants)
}

func TestConnection_SendAfterClose(t *testing.T) {
	req := require.New(t)
	accepted := make(chan *Connection, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upgrader := websocket.Upgrader{}
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		accepted <- NewConnection(ws, Options{}, discardLogger())
	}))
	defer srv.Close()

	client := dial(t, srv)
	conn := <-accepted

	req.True(conn.IsAlive())
	req.NoError(conn.Send(types.Outbound{Type: types.EventKicked, Payload: types.Notice{Message: "bye"}}))
	f := readUntil(t, client, types.EventKicked)
	req.JSONEq(`{"message":"bye"}`, string(f.Payload))

	req.NoError(conn.Close())
	req.NoError(conn.Close())
	req.False(conn.IsAlive())
	req.ErrorIs(conn.Send(types.Outbound{Type: types.EventKicked}), ErrConnectionClosed)
}
