package service

import (
	"context"
	"time"
)

// The interfaces below are the narrow call contracts to the external
// cryptographic/networking backend. Implementations may block for an
// arbitrary duration and are only ever invoked from inside work units,
// never from the polling thread. The handles are created once at login
// on the polling thread, passed in by pointer, and owned by the caller;
// this layer never frees them. Their internal thread-safety is the
// backend's responsibility.

// Transport delivers an outbound message to a conversation's endpoint.
type Transport interface {
	// Send blocks until the message is handed to the network layer or
	// the attempt fails.
	Send(ctx context.Context, conversationID, content string) error
}

// Directory resolves a peer address to a human-readable display name
// via the key server.
type Directory interface {
	Resolve(ctx context.Context, address string) (string, error)
}

// Identity manages the local cryptographic identity. The report
// callback receives human-readable progress lines for the UI.
type Identity interface {
	// Create generates a fresh identity.
	Create(ctx context.Context, report func(string)) error

	// Restore rebuilds an identity from a seed phrase.
	Restore(ctx context.Context, seed string, report func(string)) error

	// Publish announces the identity to the key server.
	Publish(ctx context.Context, report func(string)) error
}

// BackendMessage is the transport-neutral form of a message crossing
// the collaborator boundary. The backend has no knowledge of store IDs
// or delivery lifecycles; the service translates.
type BackendMessage struct {
	ConversationID string
	Sender         string
	Content        string
	Timestamp      time.Time
	Outgoing       bool
	Delivered      bool // meaningful for outgoing history entries
}

// Mailbox fetches messages from the backend.
type Mailbox interface {
	// Fetch returns messages received since the previous Fetch.
	Fetch(ctx context.Context, conversationID string) ([]BackendMessage, error)

	// History returns the full stored conversation.
	History(ctx context.Context, conversationID string) ([]BackendMessage, error)
}

// ContactBook synchronizes the contact list with the backend.
type ContactBook interface {
	// Sync returns the current set of contact addresses. The report
	// callback receives progress lines for the UI.
	Sync(ctx context.Context, report func(string)) ([]string, error)
}

// Backends bundles the collaborator handles the messenger needs.
type Backends struct {
	Transport Transport
	Directory Directory
	Identity  Identity
	Mailbox   Mailbox
	Contacts  ContactBook
}
