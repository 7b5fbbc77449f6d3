package service

import "errors"

// Common service errors surfaced to the UI layer.
var (
	// ErrSendQueueFull is returned when a send or retry is refused
	// because the outbound queue has reached its capacity bound. The UI
	// surfaces this to the user instead of buffering indefinitely.
	ErrSendQueueFull = errors.New("send queue is full")
)
