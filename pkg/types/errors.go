package types

import "errors"

// ErrorKind groups domain errors by how a client can react to them.
type ErrorKind string

const (
	KindValidation    ErrorKind = "validation"
	KindStateConflict ErrorKind = "state_conflict"
	KindExpiry        ErrorKind = "expiry"
	KindIdentity      ErrorKind = "identity"
	KindInternal      ErrorKind = "internal"
)

// Error is a user-facing domain error. Values are compared by identity, so
// the sentinels below work with errors.Is.
type Error struct {
	Kind    ErrorKind
	Code    string
	Message string
}

func NewError(kind ErrorKind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func (e *Error) Error() string {
	return e.Message
}

// Validation errors
var (
	ErrInvalidPoll    = NewError(KindValidation, "invalid_poll", "Invalid poll data")
	ErrInvalidOption  = NewError(KindValidation, "invalid_option", "Invalid answer")
	ErrNameTooLong    = NewError(KindValidation, "name_too_long", "Student name must be at most 50 characters")
	ErrEmptyMessage   = NewError(KindValidation, "empty_message", "Message text is required")
	ErrMessageTooLong = NewError(KindValidation, "message_too_long", "Message is too long")
	ErrInvalidPayload = NewError(KindValidation, "invalid_payload", "Malformed event payload")
	ErrUnknownEvent   = NewError(KindValidation, "unknown_event", "Unknown event type")
)

// State conflict errors
var (
	ErrAlreadyActive       = NewError(KindStateConflict, "poll_already_active", "A poll is already in progress")
	ErrAlreadyAnswered     = NewError(KindStateConflict, "already_answered", "You have already answered this poll")
	ErrNotRegistered       = NewError(KindStateConflict, "not_registered", "You are not registered as a student")
	ErrNoActivePoll        = NewError(KindStateConflict, "no_active_poll", "No active poll")
	ErrNotAnswered         = NewError(KindStateConflict, "not_answered", "You have not answered this poll yet")
	ErrParticipantNotFound = NewError(KindStateConflict, "participant_not_found", "Participant not found")
	ErrRateLimited         = NewError(KindStateConflict, "rate_limited", "Too many messages, slow down")
)

// Expiry errors
var (
	ErrExpired = NewError(KindExpiry, "poll_expired", "Poll has expired")
)

// Identity errors
var (
	ErrNameRequired = NewError(KindIdentity, "name_required", "Student name is required")
	ErrNameTaken    = NewError(KindIdentity, "name_taken", "This name is already taken")
	ErrBanned       = NewError(KindIdentity, "banned", "You are not allowed to take part in this session")
)

var errInternal = NewError(KindInternal, "internal", "Something went wrong")

// KindOf reports the kind of a domain error.
func KindOf(err error) (ErrorKind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// ErrorPayloadFor converts any error into the payload sent to clients.
// Non-domain errors are masked.
func ErrorPayloadFor(err error) ErrorPayload {
	var e *Error
	if !errors.As(err, &e) {
		e = errInternal
	}
	return ErrorPayload{Reason: e.Message, Code: e.Code}
}
