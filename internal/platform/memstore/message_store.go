// Package memstore implements the store interfaces with mutex-guarded
// in-memory structures. The message store is exclusively owned by the
// application state object; the polling thread and worker goroutines
// hold only this guarded reference and short-lived snapshot copies.
package memstore

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/finchmsg/finch-core/internal/domain"
	"github.com/finchmsg/finch-core/internal/store"
)

// MessageStore is the in-memory implementation of store.MessageStore.
// One mutex guards the whole structure; it is held only for appends,
// status flips, and snapshot copies, never across blocking work.
type MessageStore struct {
	mu       sync.Mutex
	messages map[string][]*domain.Message
}

// Statically verify the interface contract.
var _ store.MessageStore = (*MessageStore)(nil)

// NewMessageStore creates an empty message store.
func NewMessageStore() *MessageStore {
	return &MessageStore{
		messages: make(map[string][]*domain.Message),
	}
}

// Append adds a message to the tail of its conversation.
func (s *MessageStore) Append(msg *domain.Message) error {
	if err := msg.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	cp := *msg

	s.mu.Lock()
	s.messages[cp.ConversationID] = append(s.messages[cp.ConversationID], &cp)
	s.mu.Unlock()

	return nil
}

// Snapshot returns a copy of the conversation's messages in insertion
// order. The lock is released before the caller does anything with the
// copy.
func (s *MessageStore) Snapshot(conversationID string) []domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs := s.messages[conversationID]
	out := make([]domain.Message, len(msgs))
	for i, m := range msgs {
		out[i] = *m
	}
	return out
}

// Get retrieves a copy of a single message by conversation and ID.
func (s *MessageStore) Get(conversationID string, id uuid.UUID) (domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := s.lookup(conversationID, id)
	if m == nil {
		return domain.Message{}, store.ErrMessageNotFound
	}
	return *m, nil
}

// MarkSent resolves a pending send attempt as delivered.
func (s *MessageStore) MarkSent(conversationID string, id uuid.UUID) error {
	return s.transition(conversationID, id, domain.DeliveryStatusSent)
}

// MarkFailed resolves a pending send attempt as failed.
func (s *MessageStore) MarkFailed(conversationID string, id uuid.UUID) error {
	return s.transition(conversationID, id, domain.DeliveryStatusFailed)
}

// ResetForRetry moves a failed message back to pending.
func (s *MessageStore) ResetForRetry(conversationID string, id uuid.UUID) error {
	return s.transition(conversationID, id, domain.DeliveryStatusPending)
}

// Replace swaps the entire contents of a conversation.
func (s *MessageStore) Replace(conversationID string, msgs []domain.Message) {
	copied := make([]*domain.Message, len(msgs))
	for i := range msgs {
		cp := msgs[i]
		copied[i] = &cp
	}

	s.mu.Lock()
	s.messages[conversationID] = copied
	s.mu.Unlock()
}

// Conversations returns the known conversation IDs.
func (s *MessageStore) Conversations() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, 0, len(s.messages))
	for id := range s.messages {
		out = append(out, id)
	}
	return out
}

// transition applies a status change under the lock, routed through the
// domain lifecycle rule so stale or duplicate writes are rejected.
func (s *MessageStore) transition(
	conversationID string,
	id uuid.UUID,
	next domain.DeliveryStatus,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := s.lookup(conversationID, id)
	if m == nil {
		return store.ErrMessageNotFound
	}
	return m.TransitionStatus(next)
}

// lookup finds a message by ID within a conversation. Caller holds the
// lock. Conversations stay short-lived lists in practice; the scan is
// from the tail because status writes target recent messages.
func (s *MessageStore) lookup(conversationID string, id uuid.UUID) *domain.Message {
	msgs := s.messages[conversationID]
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].ID == id {
			return msgs[i]
		}
	}
	return nil
}
