package websocket

import (
	"errors"

	"pollroom/pkg/interfaces"
)

// Connection-related errors
var (
	ErrConnectionClosed = interfaces.ErrConnectionClosed
	ErrSendBufferFull   = interfaces.ErrSendBufferFull
	ErrInvalidJSON      = errors.New("invalid JSON data")
)
