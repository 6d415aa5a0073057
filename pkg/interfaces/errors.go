package interfaces

import "errors"

// Common interface errors used across components
var (
	ErrPollNotFound    = errors.New("poll not found")
	ErrArchiveDisabled = errors.New("poll archive is disabled")

	ErrConnectionClosed = errors.New("connection closed")
	ErrSendBufferFull   = errors.New("send buffer full")
)
