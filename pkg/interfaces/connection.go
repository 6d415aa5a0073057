package interfaces

import "pollroom/pkg/types"

//go:generate mockgen -source=connection.go -destination=mocks/mock_connection.go -package=mocks

// Connection is one live client channel as seen by the hub.
type Connection interface {
	// ID returns the server-assigned connection id.
	ID() string

	// IsAlive reports whether the underlying channel is still open.
	IsAlive() bool

	// Send queues an event for delivery. It must not block; implementations
	// return an error when the event cannot be queued.
	Send(msg types.Outbound) error

	// Close closes the channel. Safe to call more than once.
	Close() error
}
