package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOutgoingMessage(t *testing.T) {
	msg, err := NewOutgoingMessage("conv-1", "alice", "hello")
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, msg.ID)
	assert.Equal(t, "conv-1", msg.ConversationID)
	assert.Equal(t, DirectionOutgoing, msg.Direction)
	assert.Equal(t, DeliveryStatusPending, msg.Status)
	assert.WithinDuration(t, time.Now().UTC(), msg.Timestamp, time.Minute)
}

func TestNewOutgoingMessageValidation(t *testing.T) {
	_, err := NewOutgoingMessage("", "alice", "hello")
	assert.ErrorIs(t, err, ErrMessageConversationEmpty)

	_, err = NewOutgoingMessage("conv-1", "alice", "")
	assert.ErrorIs(t, err, ErrMessageContentEmpty)
}

func TestNewIncomingMessage(t *testing.T) {
	receivedAt := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	msg, err := NewIncomingMessage("conv-1", "bob", "hi there", receivedAt)
	require.NoError(t, err)

	assert.Equal(t, DirectionIncoming, msg.Direction)
	assert.Equal(t, DeliveryStatusSent, msg.Status)
	assert.Equal(t, receivedAt, msg.Timestamp)
}

func TestTransitionStatus(t *testing.T) {
	tests := []struct {
		name    string
		from    DeliveryStatus
		to      DeliveryStatus
		wantErr error
	}{
		{"pending to sent", DeliveryStatusPending, DeliveryStatusSent, nil},
		{"pending to failed", DeliveryStatusPending, DeliveryStatusFailed, nil},
		{"failed to pending (retry)", DeliveryStatusFailed, DeliveryStatusPending, nil},
		{"sent is terminal", DeliveryStatusSent, DeliveryStatusFailed, ErrInvalidStatusTransition},
		{"sent cannot revert", DeliveryStatusSent, DeliveryStatusPending, ErrInvalidStatusTransition},
		{"pending cannot self-loop", DeliveryStatusPending, DeliveryStatusPending, ErrInvalidStatusTransition},
		{"failed cannot jump to sent", DeliveryStatusFailed, DeliveryStatusSent, ErrInvalidStatusTransition},
		{"unknown status rejected", DeliveryStatusPending, DeliveryStatus("bogus"), ErrInvalidDeliveryStatus},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := NewOutgoingMessage("conv-1", "alice", "hello")
			require.NoError(t, err)
			msg.Status = tt.from

			err = msg.TransitionStatus(tt.to)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, tt.from, msg.Status, "status must be unchanged on rejection")
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.to, msg.Status)
			}
		})
	}
}

func TestStatusWriteIsExactlyOncePerAttempt(t *testing.T) {
	msg, err := NewOutgoingMessage("conv-1", "alice", "hello")
	require.NoError(t, err)

	// The owning worker resolves the attempt.
	require.NoError(t, msg.TransitionStatus(DeliveryStatusSent))

	// A stale or unrelated worker can no longer flip the outcome.
	assert.ErrorIs(t, msg.TransitionStatus(DeliveryStatusFailed), ErrInvalidStatusTransition)
	assert.Equal(t, DeliveryStatusSent, msg.Status)
}
