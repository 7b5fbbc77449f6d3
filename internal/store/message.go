package store

import (
	"github.com/google/uuid"

	"github.com/finchmsg/finch-core/internal/domain"
)

// MessageStore defines the interface for the shared conversation message
// store. One implementation-wide mutex mediates every access: the polling
// thread appends optimistically and snapshots for rendering, worker
// goroutines resolve delivery statuses by stable message ID. The lock is
// held for the minimum necessary duration and never across blocking work,
// so all methods are cheap enough to call every frame.
//
// Status writes go through domain.Message.TransitionStatus, so the
// exactly-once delivery lifecycle holds no matter which goroutine writes.
// Version: 1.0
type MessageStore interface {
	// Append adds a message to the tail of its conversation, creating
	// the conversation if needed. Insertion order is chronological
	// order; nothing is ever removed or reordered mid-conversation.
	// Returns validation errors from the domain Message if data is invalid.
	Append(msg *domain.Message) error

	// Snapshot returns a copy of the conversation's messages in
	// insertion order. The copy outlives the lock and is safe to hand
	// to rendering. Returns an empty slice for unknown conversations.
	Snapshot(conversationID string) []domain.Message

	// Get retrieves a copy of a single message by conversation and ID.
	// Returns ErrMessageNotFound if it does not exist.
	Get(conversationID string, id uuid.UUID) (domain.Message, error)

	// MarkSent resolves a pending send attempt as delivered.
	// Returns ErrMessageNotFound if the message does not exist, or the
	// domain transition error if the attempt was already resolved.
	MarkSent(conversationID string, id uuid.UUID) error

	// MarkFailed resolves a pending send attempt as failed.
	// Returns ErrMessageNotFound if the message does not exist, or the
	// domain transition error if the attempt was already resolved.
	MarkFailed(conversationID string, id uuid.UUID) error

	// ResetForRetry moves a failed message back to pending so it can be
	// re-enqueued. Returns ErrMessageNotFound or the domain transition
	// error if the message is not currently failed.
	ResetForRetry(conversationID string, id uuid.UUID) error

	// Replace swaps the entire contents of a conversation, used by the
	// polling thread when applying a completed background load. Messages
	// are copied in; the caller's slice is not retained.
	Replace(conversationID string, msgs []domain.Message)

	// Conversations returns the known conversation IDs in no particular
	// order.
	Conversations() []string
}
