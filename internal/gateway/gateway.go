// Package gateway decides who receives each outbound event. It does no I/O;
// the hub delivers the returned dispatches in order.
package gateway

import (
	"pollroom/internal/poll"
	"pollroom/pkg/types"
)

// Target selects the recipients of a dispatch.
type Target int

const (
	// TargetOne is the connection named by ConnID.
	TargetOne Target = iota
	// TargetAll is every attached connection.
	TargetAll
	// TargetAllExcept is every attached connection but ConnID.
	TargetAllExcept
)

// Dispatch is one event addressed to a set of connections.
type Dispatch struct {
	Target  Target
	ConnID  string
	Message types.Outbound
}

func toOne(connID, event string, payload interface{}) Dispatch {
	return Dispatch{Target: TargetOne, ConnID: connID, Message: types.Outbound{Type: event, Payload: payload}}
}

func toAll(event string, payload interface{}) Dispatch {
	return Dispatch{Target: TargetAll, Message: types.Outbound{Type: event, Payload: payload}}
}

func toAllExcept(connID, event string, payload interface{}) Dispatch {
	return Dispatch{Target: TargetAllExcept, ConnID: connID, Message: types.Outbound{Type: event, Payload: payload}}
}

func roster(names []string) types.Roster {
	if names == nil {
		names = []string{}
	}
	return types.Roster{Names: names}
}

// Connected greets a freshly attached connection.
func Connected(connID string) []Dispatch {
	return []Dispatch{toOne(connID, types.EventConnected, types.Connected{
		ConnectionID: connID,
		Message:      "Connected to poll room",
	})}
}

// LateJoin carries what a student joining mid-poll must see.
type LateJoin struct {
	View    *types.PollView
	Results *types.PollResults
}

// JoinAccepted answers a successful join. When a poll is running the student
// also gets new-poll, and poll-results if they already answered or the
// deadline passed. Everyone gets the new roster.
func JoinAccepted(connID, name string, late LateJoin, names []string) []Dispatch {
	out := []Dispatch{toOne(connID, types.EventJoinSuccess, types.JoinSuccess{
		Message:     "Welcome, " + name,
		CurrentPoll: late.View,
	})}
	if late.View != nil {
		out = append(out, toOne(connID, types.EventNewPoll, late.View))
		if late.Results != nil {
			out = append(out, toOne(connID, types.EventPollResults, *late.Results))
		}
	}
	return append(out, RosterChanged(names)...)
}

// JoinRejected reports a failed join to the requester only.
func JoinRejected(connID string, err error) []Dispatch {
	return []Dispatch{toOne(connID, types.EventJoinError, types.ErrorPayloadFor(err))}
}

// PollError reports any other rejected request to the requester only.
func PollError(connID string, err error) []Dispatch {
	return []Dispatch{toOne(connID, types.EventPollError, types.ErrorPayloadFor(err))}
}

// PollCreated announces a new poll to everyone.
func PollCreated(view *types.PollView) []Dispatch {
	return []Dispatch{toAll(types.EventNewPoll, view)}
}

// AnswerAccepted confirms an answer to the submitter with their live results.
func AnswerAccepted(connID string, answer int, tally types.Tally) []Dispatch {
	return []Dispatch{
		toOne(connID, types.EventAnswerReceived, types.Notice{Message: "Answer recorded"}),
		toOne(connID, types.EventPollResults, types.PollResults{Tally: tally, StudentAnswer: &answer}),
	}
}

// Results answers a get-results request.
func Results(connID string, results types.PollResults) []Dispatch {
	return []Dispatch{toOne(connID, types.EventPollResults, results)}
}

// PollEnded broadcasts the final tally of a closed poll.
func PollEnded(final *poll.FinalResults) []Dispatch {
	return []Dispatch{toAll(types.EventPollEnded, final.Ended())}
}

// RosterChanged broadcasts the registered names.
func RosterChanged(names []string) []Dispatch {
	return []Dispatch{toAll(types.EventRosterUpdate, roster(names))}
}

// ParticipantsFetched answers a get-participants request.
func ParticipantsFetched(connID string, names []string) []Dispatch {
	return []Dispatch{toOne(connID, types.EventParticipantsFetched, roster(names))}
}

// Kicked tells the removed connection, then updates everyone else's roster.
func Kicked(removedConnID string, names []string) []Dispatch {
	return []Dispatch{
		toOne(removedConnID, types.EventKicked, types.Notice{Message: "You have been removed from the session"}),
		toAllExcept(removedConnID, types.EventRosterUpdate, roster(names)),
	}
}

// ChatMessage broadcasts a relayed chat line.
func ChatMessage(msg types.ChatBroadcast) []Dispatch {
	return []Dispatch{toAll(types.EventBroadcast, msg)}
}
