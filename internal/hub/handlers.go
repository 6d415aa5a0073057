package hub

import (
	"bytes"
	"encoding/json"
	"strings"

	"pollroom/internal/chat"
	"pollroom/internal/gateway"
	"pollroom/pkg/types"
)

func decode(raw json.RawMessage, v interface{}) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return types.ErrInvalidPayload
	}
	return nil
}

func (h *Hub) handleInbound(connID string, env types.Envelope) {
	var err error
	switch env.Type {
	case types.EventJoin:
		h.handleJoin(connID, env.Payload)
		return
	case types.EventCreatePoll:
		err = h.handleCreatePoll(connID, env.Payload)
	case types.EventSubmitAnswer:
		err = h.handleSubmit(connID, env.Payload)
	case types.EventGetResults:
		err = h.handleGetResults(connID)
	case types.EventGetParticipants:
		h.dispatch(gateway.ParticipantsFetched(connID, h.registry.Roster()))
	case types.EventChat:
		err = h.handleChat(connID, env.Payload)
	case types.EventRemoveParticipant:
		err = h.handleRemoveParticipant(connID, env.Payload)
	default:
		err = types.ErrUnknownEvent
	}

	if err != nil {
		kind, _ := types.KindOf(err)
		h.logger.Debug("request rejected", "conn_id", connID, "event", env.Type, "kind", kind, "error", err)
		h.dispatch(gateway.PollError(connID, err))
	}
}

func (h *Hub) handleJoin(connID string, payload json.RawMessage) {
	var req types.JoinRequest
	if err := decode(payload, &req); err != nil {
		h.dispatch(gateway.JoinRejected(connID, err))
		return
	}

	id, err := h.registry.Join(req.Name, h.conns[connID])
	if err != nil {
		h.logger.Debug("join rejected", "conn_id", connID, "error", err)
		h.dispatch(gateway.JoinRejected(connID, err))
		return
	}
	if id.Displaced != nil {
		h.logger.Info("name reclaimed from dead connection", "student", id.Name, "conn_id", connID, "previous_conn_id", id.Displaced.ID())
	}
	h.logger.Info("student joined", "student", id.Name, "conn_id", connID, "renamed_from", id.Previous, "students", h.registry.Len())

	roster := h.registry.Roster()
	var late gateway.LateJoin
	if view, ok := h.session.CurrentView(id.Name); ok {
		late.View = view
		if h.session.HasAnswered(id.Name) || h.session.PastDeadline() {
			if results, err := h.session.Results(id.Name, roster); err == nil {
				late.Results = &results
			}
		}
	}
	h.dispatch(gateway.JoinAccepted(connID, id.Name, late, roster))
}

func (h *Hub) handleCreatePoll(connID string, payload json.RawMessage) error {
	var req types.CreatePollRequest
	if err := decode(payload, &req); err != nil {
		return err
	}

	createdBy, ok := h.registry.Resolve(connID)
	if !ok {
		createdBy = chat.ModeratorName
	}

	p, err := h.session.Create(req, createdBy)
	if err != nil {
		return err
	}
	h.logger.Info("poll created", "poll_id", p.ID, "created_by", createdBy, "options", len(p.Options), "time_limit", p.TimeLimit)

	view, _ := h.session.CurrentView("")
	h.dispatch(gateway.PollCreated(view))
	return nil
}

func (h *Hub) handleSubmit(connID string, payload json.RawMessage) error {
	var req types.SubmitAnswerRequest
	if err := decode(payload, &req); err != nil {
		return err
	}

	name, _ := h.registry.Resolve(connID)
	result, err := h.session.Submit(name, string(req.Answer), h.registry.Roster())
	if err != nil {
		return err
	}

	h.dispatch(gateway.AnswerAccepted(connID, result.Answer, result.Tally))
	if result.Closed != nil {
		h.finish(result.Closed)
	}
	return nil
}

func (h *Hub) handleGetResults(connID string) error {
	name, ok := h.registry.Resolve(connID)
	if !ok {
		return types.ErrNotRegistered
	}
	results, err := h.session.Results(name, h.registry.Roster())
	if err != nil {
		return err
	}
	h.dispatch(gateway.Results(connID, results))
	return nil
}

func (h *Hub) handleChat(connID string, payload json.RawMessage) error {
	var req types.ChatRequest
	if err := decode(payload, &req); err != nil {
		return err
	}

	name, _ := h.registry.Resolve(connID)
	msg, err := h.relay.Relay(connID, name, req.Text)
	if err != nil {
		return err
	}
	h.dispatch(gateway.ChatMessage(msg))
	return nil
}

func (h *Hub) handleRemoveParticipant(connID string, payload json.RawMessage) error {
	var req types.RemoveParticipantRequest
	if err := decode(payload, &req); err != nil {
		return err
	}

	removed, ok := h.registry.Remove(strings.TrimSpace(req.Name))
	if !ok {
		return types.ErrParticipantNotFound
	}
	h.logger.Info("participant removed", "student", req.Name, "conn_id", removed.ID(), "by", connID)
	h.dispatch(gateway.Kicked(removed.ID(), h.registry.Roster()))
	return nil
}
