package hub

import (
	"github.com/samber/lo"

	"pollroom/internal/gateway"
	"pollroom/pkg/interfaces"
	"pollroom/pkg/types"
)

// event is anything the hub goroutine applies. Every state change goes
// through one queue so per-connection arrival order is kept.
type event interface {
	apply(h *Hub)
}

type attachEvent struct {
	conn interfaces.Connection
}

func (e attachEvent) apply(h *Hub) {
	id := e.conn.ID()
	if _, exists := h.conns[id]; exists {
		return
	}
	h.conns[id] = e.conn
	h.order = append(h.order, id)
	h.logger.Debug("connection attached", "conn_id", id, "connections", len(h.conns))
	h.dispatch(gateway.Connected(id))
}

type detachEvent struct {
	connID string
}

func (e detachEvent) apply(h *Hub) {
	if _, exists := h.conns[e.connID]; !exists {
		return
	}
	delete(h.conns, e.connID)
	h.order = lo.Without(h.order, e.connID)
	h.relay.Forget(e.connID)

	name, registered := h.registry.RemoveConnection(e.connID)
	h.logger.Debug("connection detached", "conn_id", e.connID, "student", name, "students", h.registry.Len())
	if registered {
		h.dispatch(gateway.RosterChanged(h.registry.Roster()))
	}
}

type inboundEvent struct {
	connID   string
	envelope types.Envelope
}

func (e inboundEvent) apply(h *Hub) {
	if _, attached := h.conns[e.connID]; !attached {
		h.logger.Debug("dropping message from detached connection", "conn_id", e.connID, "event", e.envelope.Type)
		return
	}
	h.handleInbound(e.connID, e.envelope)
}

type expiryEvent struct {
	pollID string
}

func (e expiryEvent) apply(h *Hub) {
	final, closed := h.session.Expire(e.pollID, h.registry.Roster())
	if !closed {
		h.logger.Debug("ignoring stale poll timer", "poll_id", e.pollID)
		return
	}
	h.finish(final)
}

type queryEvent struct {
	fn   func(h *Hub)
	done chan struct{}
}

func (e queryEvent) apply(h *Hub) {
	e.fn(h)
	close(e.done)
}
