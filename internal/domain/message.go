package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DeliveryStatus represents the delivery state of an outgoing message.
type DeliveryStatus string

// Possible delivery status values. A message is created Pending by the
// optimistic insert on the polling thread, moves to Sent or Failed
// exactly once (written by the worker that owns that send attempt), and
// may return from Failed to Pending when the user retries.
const (
	DeliveryStatusPending DeliveryStatus = "pending"
	DeliveryStatusSent    DeliveryStatus = "sent"
	DeliveryStatusFailed  DeliveryStatus = "failed"
)

// Direction indicates whether a message was received or authored locally.
type Direction string

// Possible message directions.
const (
	DirectionIncoming Direction = "incoming"
	DirectionOutgoing Direction = "outgoing"
)

// Message-specific validation errors
var (
	// ErrMessageIDEmpty is returned when a message ID is empty or nil.
	ErrMessageIDEmpty = errors.New("message ID cannot be empty")

	// ErrMessageConversationEmpty is returned when the conversation ID is empty.
	ErrMessageConversationEmpty = errors.New("message conversation ID cannot be empty")

	// ErrMessageContentEmpty is returned when a message's content is empty.
	ErrMessageContentEmpty = errors.New("message content cannot be empty")

	// ErrInvalidDirection is returned when a message direction is not valid.
	ErrInvalidDirection = errors.New("invalid message direction")

	// ErrInvalidDeliveryStatus is returned when a delivery status is not valid.
	ErrInvalidDeliveryStatus = errors.New("invalid delivery status")

	// ErrInvalidStatusTransition is returned when a status write would
	// violate the exactly-once delivery lifecycle.
	ErrInvalidStatusTransition = errors.New("invalid delivery status transition")
)

// Message represents one entry in a conversation. The ID is a stable
// per-message identifier generated at insert time; workers correlate a
// completed send attempt back to its message by this ID, never by
// position in the conversation list.
type Message struct {
	ID             uuid.UUID      `json:"id"`
	ConversationID string         `json:"conversation_id"`
	Sender         string         `json:"sender"`
	Content        string         `json:"content"`
	Timestamp      time.Time      `json:"timestamp"`
	Direction      Direction      `json:"direction"`
	Status         DeliveryStatus `json:"status"`
}

// NewOutgoingMessage creates a new outgoing message in the Pending state,
// ready for optimistic insertion before the send attempt starts.
// Returns an error if validation fails.
func NewOutgoingMessage(conversationID, sender, content string) (*Message, error) {
	msg := &Message{
		ID:             uuid.New(),
		ConversationID: conversationID,
		Sender:         sender,
		Content:        content,
		Timestamp:      time.Now().UTC(),
		Direction:      DirectionOutgoing,
		Status:         DeliveryStatusPending,
	}

	if err := msg.Validate(); err != nil {
		return nil, err
	}

	return msg, nil
}

// NewIncomingMessage creates a message received from a remote peer.
// Incoming messages carry no meaningful delivery status; Sent is used as
// the terminal value so the status field is never ambiguous.
func NewIncomingMessage(
	conversationID, sender, content string,
	receivedAt time.Time,
) (*Message, error) {
	msg := &Message{
		ID:             uuid.New(),
		ConversationID: conversationID,
		Sender:         sender,
		Content:        content,
		Timestamp:      receivedAt.UTC(),
		Direction:      DirectionIncoming,
		Status:         DeliveryStatusSent,
	}

	if err := msg.Validate(); err != nil {
		return nil, err
	}

	return msg, nil
}

// Validate checks if the Message has valid data.
// Returns an error if any field fails validation.
func (m *Message) Validate() error {
	if m.ID == uuid.Nil {
		return ErrMessageIDEmpty
	}

	if m.ConversationID == "" {
		return ErrMessageConversationEmpty
	}

	if m.Content == "" {
		return ErrMessageContentEmpty
	}

	if !isValidDirection(m.Direction) {
		return ErrInvalidDirection
	}

	if !isValidDeliveryStatus(m.Status) {
		return ErrInvalidDeliveryStatus
	}

	return nil
}

// TransitionStatus moves the message to the given delivery status,
// enforcing the exactly-once lifecycle: Pending may become Sent or
// Failed, Failed may return to Pending on a retry, and everything else
// is rejected. Every store implementation routes status writes through
// this method so the rule holds regardless of which worker writes.
func (m *Message) TransitionStatus(next DeliveryStatus) error {
	if !isValidDeliveryStatus(next) {
		return ErrInvalidDeliveryStatus
	}

	allowed := false
	switch m.Status {
	case DeliveryStatusPending:
		allowed = next == DeliveryStatusSent || next == DeliveryStatusFailed
	case DeliveryStatusFailed:
		allowed = next == DeliveryStatusPending
	case DeliveryStatusSent:
		// Terminal.
	}

	if !allowed {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, m.Status, next)
	}

	m.Status = next
	return nil
}

// isValidDirection checks if the given direction is a valid Direction.
func isValidDirection(d Direction) bool {
	switch d {
	case DirectionIncoming, DirectionOutgoing:
		return true
	default:
		return false
	}
}

// isValidDeliveryStatus checks if the given status is a valid DeliveryStatus.
func isValidDeliveryStatus(s DeliveryStatus) bool {
	switch s {
	case DeliveryStatusPending, DeliveryStatusSent, DeliveryStatusFailed:
		return true
	default:
		return false
	}
}
