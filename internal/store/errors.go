package store

import "errors"

// Common store errors used across all store implementations.
var (
	// ErrMessageNotFound is returned when a message lookup by conversation
	// and ID finds nothing, typically because a worker holds a stale ID.
	ErrMessageNotFound = errors.New("message not found")

	// ErrConversationNotFound is returned when a conversation has no
	// entry in the store.
	ErrConversationNotFound = errors.New("conversation not found")

	// ErrInvalidEntity is returned when an entity fails domain validation
	// before being stored. Check the wrapped error for details.
	ErrInvalidEntity = errors.New("invalid entity")
)
