// Package simbackend provides an in-process simulation of the external
// messenger backend. It implements every collaborator interface the
// service layer consumes, with configurable latency and failure
// injection, and is used by the headless harness as a stand-in for the
// real cryptographic/networking stack.
package simbackend

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/finchmsg/finch-core/internal/service"
)

// Compile-time checks that the simulation satisfies every collaborator
// contract.
var (
	_ service.Transport   = (*Backend)(nil)
	_ service.Directory   = (*Backend)(nil)
	_ service.Identity    = (*Backend)(nil)
	_ service.Mailbox     = (*Backend)(nil)
	_ service.ContactBook = (*Backend)(nil)
)

// Config tunes the simulation.
type Config struct {
	// Latency is slept before every backend call returns, to mimic
	// network round trips. Zero means instant.
	Latency time.Duration

	// FailEvery makes every Nth Send attempt fail. Zero disables
	// failure injection.
	FailEvery int

	// EchoReplies makes every delivered message produce an incoming
	// reply from the peer, picked up by the next Fetch.
	EchoReplies bool
}

// Backend is a simulated Transport, Directory, Identity, Mailbox and
// ContactBook rolled into one. Safe for concurrent use.
type Backend struct {
	logger *slog.Logger
	cfg    Config

	mu        sync.Mutex
	sends     int
	directory map[string]string
	contacts  []string
	inbox     map[string][]service.BackendMessage
	history   map[string][]service.BackendMessage
}

// New creates a simulated backend.
func New(cfg Config, logger *slog.Logger) *Backend {
	return &Backend{
		logger:    logger.With("component", "simbackend"),
		cfg:       cfg,
		directory: make(map[string]string),
		inbox:     make(map[string][]service.BackendMessage),
		history:   make(map[string][]service.BackendMessage),
	}
}

// Backends bundles the backend into the handle set the service layer
// expects.
func (b *Backend) Backends() service.Backends {
	return service.Backends{
		Transport: b,
		Directory: b,
		Identity:  b,
		Mailbox:   b,
		Contacts:  b,
	}
}

// Register adds an address/name pair to the simulated key server and
// the contact list.
func (b *Backend) Register(address, name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.directory[address] = name
	b.contacts = append(b.contacts, address)
}

// InjectIncoming places a message in a conversation's inbox, to be
// returned by the next Fetch.
func (b *Backend) InjectIncoming(conversationID, sender, content string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.inbox[conversationID] = append(b.inbox[conversationID], service.BackendMessage{
		ConversationID: conversationID,
		Sender:         sender,
		Content:        content,
		Timestamp:      time.Now().UTC(),
	})
}

// SeedHistory installs a canned stored conversation.
func (b *Backend) SeedHistory(conversationID string, msgs []service.BackendMessage) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.history[conversationID] = msgs
}

// sleep waits out the configured latency, or returns early when the
// context is cancelled.
func (b *Backend) sleep(ctx context.Context) error {
	if b.cfg.Latency <= 0 {
		return nil
	}
	t := time.NewTimer(b.cfg.Latency)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Send simulates delivering an outbound message. Every FailEvery-th
// attempt fails when failure injection is enabled.
func (b *Backend) Send(ctx context.Context, conversationID, content string) error {
	if err := b.sleep(ctx); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.sends++
	if b.cfg.FailEvery > 0 && b.sends%b.cfg.FailEvery == 0 {
		b.logger.Debug("injecting delivery failure", "attempt", b.sends)
		return fmt.Errorf("simulated delivery failure (attempt %d)", b.sends)
	}

	b.history[conversationID] = append(b.history[conversationID], service.BackendMessage{
		ConversationID: conversationID,
		Sender:         "self",
		Content:        content,
		Timestamp:      time.Now().UTC(),
		Outgoing:       true,
		Delivered:      true,
	})

	if b.cfg.EchoReplies {
		b.inbox[conversationID] = append(b.inbox[conversationID], service.BackendMessage{
			ConversationID: conversationID,
			Sender:         conversationID,
			Content:        "echo: " + content,
			Timestamp:      time.Now().UTC(),
		})
	}

	return nil
}

// Resolve looks up a display name on the simulated key server.
func (b *Backend) Resolve(ctx context.Context, address string) (string, error) {
	if err := b.sleep(ctx); err != nil {
		return "", err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	name, ok := b.directory[address]
	if !ok {
		return "", fmt.Errorf("address %q not published", address)
	}
	return name, nil
}

// Create simulates generating a fresh identity.
func (b *Backend) Create(ctx context.Context, report func(string)) error {
	report("generating key pair")
	if err := b.sleep(ctx); err != nil {
		return err
	}
	report("deriving address")
	report("identity ready")
	return nil
}

// Restore simulates rebuilding an identity from a seed phrase.
func (b *Backend) Restore(ctx context.Context, seed string, report func(string)) error {
	report("validating seed phrase")
	if err := b.sleep(ctx); err != nil {
		return err
	}
	if seed == "" {
		return fmt.Errorf("empty seed phrase")
	}
	report("deriving keys")
	report("identity restored")
	return nil
}

// Publish simulates announcing the identity to the key server.
func (b *Backend) Publish(ctx context.Context, report func(string)) error {
	report("connecting to key server")
	if err := b.sleep(ctx); err != nil {
		return err
	}
	report("identity published")
	return nil
}

// Fetch drains and returns the messages received since the last Fetch.
func (b *Backend) Fetch(ctx context.Context, conversationID string) ([]service.BackendMessage, error) {
	if err := b.sleep(ctx); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	msgs := b.inbox[conversationID]
	b.inbox[conversationID] = nil
	return msgs, nil
}

// History returns the full stored conversation.
func (b *Backend) History(ctx context.Context, conversationID string) ([]service.BackendMessage, error) {
	if err := b.sleep(ctx); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	msgs := b.history[conversationID]
	out := make([]service.BackendMessage, len(msgs))
	copy(out, msgs)
	return out, nil
}

// Sync returns the current contact addresses.
func (b *Backend) Sync(ctx context.Context, report func(string)) ([]string, error) {
	report("fetching contact list")
	if err := b.sleep(ctx); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]string, len(b.contacts))
	copy(out, b.contacts)
	report(fmt.Sprintf("%d contacts", len(out)))
	return out, nil
}
