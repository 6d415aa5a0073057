package websocket

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/samber/lo"

	"pollroom/pkg/interfaces"
	"pollroom/pkg/types"
)

// Dispatcher receives connection lifecycle and inbound messages.
type Dispatcher interface {
	Attach(conn interfaces.Connection) error
	Detach(connID string) error
	Deliver(connID string, env types.Envelope) error
}

// Handler upgrades HTTP requests and pumps frames into a Dispatcher.
type Handler struct {
	dispatcher Dispatcher
	opts       Options
	upgrader   websocket.Upgrader
	logger     *slog.Logger
}

func NewHandler(dispatcher Dispatcher, opts Options, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	opts = opts.withDefaults()
	h := &Handler{
		dispatcher: dispatcher,
		opts:       opts,
		logger:     logger.With("component", "websocket"),
	}
	h.upgrader = websocket.Upgrader{
		CheckOrigin:      h.checkOrigin,
		HandshakeTimeout: 10 * time.Second,
	}
	return h
}

// checkOrigin accepts requests without an Origin header, and any origin when
// the list is empty or contains "*".
func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(h.opts.AllowedOrigins) == 0 {
		return true
	}
	if lo.Contains(h.opts.AllowedOrigins, "*") {
		return true
	}
	return lo.ContainsBy(h.opts.AllowedOrigins, func(allowed string) bool {
		return strings.EqualFold(strings.TrimRight(allowed, "/"), origin)
	})
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "remote_addr", r.RemoteAddr, "error", err)
		return
	}

	wsConn := NewConnection(conn, h.opts, h.logger)
	if err := h.dispatcher.Attach(wsConn); err != nil {
		h.logger.Warn("attach failed", "conn_id", wsConn.ID(), "error", err)
		_ = wsConn.Close()
		return
	}

	go h.readLoop(wsConn)
}

// readLoop is the only reader of the socket, so one connection's messages
// reach the dispatcher in arrival order.
func (h *Handler) readLoop(conn *Connection) {
	defer func() {
		if err := h.dispatcher.Detach(conn.ID()); err != nil {
			h.logger.Debug("detach failed", "conn_id", conn.ID(), "error", err)
		}
		_ = conn.Close()
	}()

	ws := conn.conn
	ws.SetReadLimit(h.opts.MaxMessageSize)
	if err := ws.SetReadDeadline(time.Now().Add(h.opts.ReadTimeout)); err != nil {
		return
	}
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(h.opts.ReadTimeout))
	})

	for {
		messageType, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				h.logger.Info("websocket closed unexpectedly", "conn_id", conn.ID(), "error", err)
			}
			return
		}
		if err := ws.SetReadDeadline(time.Now().Add(h.opts.ReadTimeout)); err != nil {
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		var env types.Envelope
		if err := json.Unmarshal(data, &env); err != nil || env.Type == "" {
			h.reject(conn, types.ErrInvalidPayload)
			continue
		}

		if err := h.dispatcher.Deliver(conn.ID(), env); err != nil {
			h.logger.Debug("dispatcher refused message", "conn_id", conn.ID(), "event", env.Type, "error", err)
			return
		}
	}
}

func (h *Handler) reject(conn *Connection, err error) {
	msg := types.Outbound{Type: types.EventPollError, Payload: types.ErrorPayloadFor(err)}
	if sendErr := conn.Send(msg); sendErr != nil {
		h.logger.Debug("sending rejection failed", "conn_id", conn.ID(), "error", sendErr)
	}
}
