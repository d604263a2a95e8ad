package chat

import "errors"

var (
	// ErrDuplicateConnection is returned when a connection id is already
	// registered. The transport must close the new connection.
	ErrDuplicateConnection = errors.New("chat: connection id already connected")

	// ErrUnknownEvent is returned by Dispatch for event names with no handler.
	ErrUnknownEvent = errors.New("chat: unknown event")

	// ErrInvalidPayload is returned by Dispatch when an event payload cannot
	// be decoded.
	ErrInvalidPayload = errors.New("chat: invalid event payload")

	// ErrNotConnected is returned by Dispatch for events from ids that are
	// not registered.
	ErrNotConnected = errors.New("chat: connection id not connected")
)
