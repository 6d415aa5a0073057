package types

import (
	"encoding/json"
	"time"
)

// Inbound event names sent by clients.
const (
	EventJoin              = "join"
	EventCreatePoll        = "create-poll"
	EventSubmitAnswer      = "submit-answer"
	EventGetResults        = "get-results"
	EventGetParticipants   = "get-participants"
	EventChat              = "chat"
	EventRemoveParticipant = "remove-participant"
)

// Outbound event names produced by the server.
const (
	EventConnected           = "connected"
	EventJoinSuccess         = "join-success"
	EventJoinError           = "join-error"
	EventNewPoll             = "new-poll"
	EventPollError           = "poll-error"
	EventAnswerReceived      = "answer-received"
	EventPollResults         = "poll-results"
	EventPollEnded           = "poll-ended"
	EventRosterUpdate        = "roster-update"
	EventParticipantsFetched = "participants-fetched"
	EventBroadcast           = "broadcast"
	EventKicked              = "kicked"
)

// Envelope is the wire frame for every inbound message.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Outbound is an event ready to be encoded and written to a connection.
type Outbound struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// JoinRequest is the payload of a join event.
type JoinRequest struct {
	Name string `json:"name"`
}

// CreatePollRequest is the payload of a create-poll event. TimeLimit is in
// seconds; zero means "use the default".
type CreatePollRequest struct {
	Question  string   `json:"question"`
	Options   []string `json:"options"`
	TimeLimit int      `json:"timeLimit"`
}

// SubmitAnswerRequest is the payload of a submit-answer event.
type SubmitAnswerRequest struct {
	Answer AnswerValue `json:"answer"`
}

// ChatRequest is the payload of a chat event.
type ChatRequest struct {
	Text string `json:"text"`
}

// RemoveParticipantRequest is the payload of a remove-participant event.
type RemoveParticipantRequest struct {
	Name string `json:"name"`
}

// PollView is the client-facing rendering of the active poll.
type PollView struct {
	ID               string    `json:"id"`
	Question         string    `json:"question"`
	Options          []string  `json:"options"`
	CreatedBy        string    `json:"createdBy"`
	CreatedAt        time.Time `json:"createdAt"`
	ExpiresAt        time.Time `json:"expiresAt"`
	TimeLimit        int       `json:"timeLimit"`
	RemainingSeconds int       `json:"remainingSeconds"`
	IsActive         bool      `json:"isActive"`
	HasAnswered      *bool     `json:"hasAnswered,omitempty"`
}

// Tally holds per-option counts aligned with the poll options.
type Tally struct {
	Results        []int `json:"results"`
	TotalResponses int   `json:"totalResponses"`
	TotalStudents  int   `json:"totalStudents"`
}

// PollResults is sent to a single student. StudentAnswer is omitted when the
// student has not answered.
type PollResults struct {
	Tally
	StudentAnswer *int `json:"studentAnswer,omitempty"`
}

// PollEnded is broadcast once per closed poll.
type PollEnded struct {
	PollID string `json:"pollId"`
	Tally
	Reason string `json:"reason"`
}

type JoinSuccess struct {
	Message     string    `json:"message"`
	CurrentPoll *PollView `json:"currentPoll"`
}

type Connected struct {
	ConnectionID string `json:"connectionId"`
	Message      string `json:"message"`
}

type Notice struct {
	Message string `json:"message"`
}

type ErrorPayload struct {
	Reason string `json:"reason"`
	Code   string `json:"code"`
}

type Roster struct {
	Names []string `json:"names"`
}

// ChatBroadcast is a relayed chat line.
type ChatBroadcast struct {
	Text               string `json:"text"`
	SenderName         string `json:"senderName"`
	SenderConnectionID string `json:"senderConnectionId"`
}

// PollRecord is the archived form of a closed poll.
type PollRecord struct {
	ID             string           `json:"id"`
	Question       string           `json:"question"`
	Options        []string         `json:"options"`
	CreatedBy      string           `json:"createdBy"`
	CreatedAt      time.Time        `json:"createdAt"`
	ExpiresAt      time.Time        `json:"expiresAt"`
	ClosedAt       time.Time        `json:"closedAt"`
	IsActive       bool             `json:"isActive"`
	CloseReason    string           `json:"closeReason"`
	BannedStudents []string         `json:"bannedStudents"`
	Tally          Tally            `json:"tally"`
	Responses      []ResponseRecord `json:"responses,omitempty"`
}

// ResponseRecord is one archived answer.
type ResponseRecord struct {
	PollID      string    `json:"pollId"`
	StudentName string    `json:"studentName"`
	Answer      int       `json:"answer"`
	SubmittedAt time.Time `json:"submittedAt"`
	IsValid     bool      `json:"isValid"`
}
