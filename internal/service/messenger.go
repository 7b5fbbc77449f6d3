package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/finchmsg/finch-core/internal/domain"
	"github.com/finchmsg/finch-core/internal/platform/namecache"
	"github.com/finchmsg/finch-core/internal/store"
	"github.com/finchmsg/finch-core/internal/task"
)

// Task slot names, used in logs and the diagnostics endpoints.
const (
	SlotIdentity    = "identity"
	SlotPublish     = "dht_publish"
	SlotLoad        = "conversation_load"
	SlotPoll        = "message_poll"
	SlotContactSync = "contact_sync"
	SlotLookup      = "contact_lookup"
)

// Messenger orchestrates the shared conversation state, the outbound
// send queue, and the background task slots. The polling (UI) thread
// calls the Start*/Send/Retry methods and Tick once per frame; worker
// goroutines only touch the mutex-guarded store, the name cache, and
// the staged-result fields below. Workers never decide what the UI
// shows: every visible state transition happens inside Tick, on the
// polling thread, exactly once per completed run.
type Messenger struct {
	logger *slog.Logger
	self   string

	store store.MessageStore
	names *namecache.Cache

	backends  Backends
	sendQueue *task.WorkQueue

	identityTask *task.AsyncTask
	publishTask  *task.AsyncTask
	loadTask     *task.AsyncTask
	pollTask     *task.AsyncTask
	syncTask     *task.AsyncTask
	lookupTask   *task.AsyncTask

	// mu guards the staged results written by workers and applied by
	// Tick, plus the small bits of application state the UI reads.
	mu             sync.Mutex
	stagedLoadConv string
	stagedLoad     []domain.Message
	stagedIncoming []domain.Message
	stagedContacts []string
	identityOK     bool
	identityReady  bool
	contacts       []string
	lastError      string
}

// NewMessenger wires a messenger around the given shared state and
// backend handles. self is the local address used as the sender of
// outgoing messages; queueCapacity bounds the outbound send queue.
func NewMessenger(
	self string,
	msgStore store.MessageStore,
	names *namecache.Cache,
	backends Backends,
	queueCapacity int,
	logger *slog.Logger,
) *Messenger {
	return &Messenger{
		logger:       logger.With("component", "messenger"),
		self:         self,
		store:        msgStore,
		names:        names,
		backends:     backends,
		sendQueue:    task.NewWorkQueue(queueCapacity, logger),
		identityTask: task.NewAsyncTask(SlotIdentity, logger),
		publishTask:  task.NewAsyncTask(SlotPublish, logger),
		loadTask:     task.NewAsyncTask(SlotLoad, logger),
		pollTask:     task.NewAsyncTask(SlotPoll, logger),
		syncTask:     task.NewAsyncTask(SlotContactSync, logger),
		lookupTask:   task.NewAsyncTask(SlotLookup, logger),
	}
}

// Close drains and stops the send queue. Running task slots finish on
// their own; none of them support cancellation.
func (m *Messenger) Close() {
	m.sendQueue.Close()
}

// Send optimistically inserts an outgoing message as Pending, clears
// the way for the UI to reset its input field, and enqueues the actual
// network send. Returns ErrSendQueueFull without touching the store
// when the outbound queue is at capacity. The returned ID is the
// message's stable identifier.
func (m *Messenger) Send(conversationID, content string) (uuid.UUID, error) {
	if m.sendQueue.Size() >= m.sendQueue.Capacity() {
		return uuid.Nil, ErrSendQueueFull
	}

	msg, err := domain.NewOutgoingMessage(conversationID, m.self, content)
	if err != nil {
		return uuid.Nil, err
	}

	if err := m.store.Append(msg); err != nil {
		return uuid.Nil, err
	}

	// Sends originate only from the polling thread, so the size check
	// above makes this reject effectively unreachable; handle it anyway
	// so the optimistic insert cannot strand a forever-Pending message.
	if err := m.sendQueue.Enqueue(msg.ID, m.sendItem(conversationID, msg.ID, content)); err != nil {
		if markErr := m.store.MarkFailed(conversationID, msg.ID); markErr != nil {
			m.logger.Error("failed to fail rejected send",
				"message_id", msg.ID, "error", markErr)
		}
		return msg.ID, err
	}

	return msg.ID, nil
}

// Retry re-submits a failed message: its status returns to Pending
// immediately and one new work item joins the back of the queue, so a
// manual retry never starves other pending sends. Returns
// ErrSendQueueFull when the queue is at capacity, or the domain
// transition error when the message is not currently Failed.
func (m *Messenger) Retry(conversationID string, id uuid.UUID) error {
	if m.sendQueue.Size() >= m.sendQueue.Capacity() {
		return ErrSendQueueFull
	}

	msg, err := m.store.Get(conversationID, id)
	if err != nil {
		return err
	}

	if err := m.store.ResetForRetry(conversationID, id); err != nil {
		return err
	}

	return m.sendQueue.Enqueue(id, m.sendItem(conversationID, id, msg.Content))
}

// sendItem builds the work item for one send attempt. Everything the
// item needs crosses into the worker by value; the item resolves
// exactly the message identified by the captured ID, however much the
// conversation grows in the meantime.
func (m *Messenger) sendItem(conversationID string, id uuid.UUID, content string) task.Item {
	return func(ctx context.Context) error {
		if err := m.backends.Transport.Send(ctx, conversationID, content); err != nil {
			m.setLastError(fmt.Sprintf("send failed: %v", err))
			if markErr := m.store.MarkFailed(conversationID, id); markErr != nil {
				return fmt.Errorf("marking message failed: %w", markErr)
			}
			return err
		}
		return m.store.MarkSent(conversationID, id)
	}
}

// QueueSize returns the number of outstanding send items.
func (m *Messenger) QueueSize() int {
	return m.sendQueue.Size()
}

// QueueCapacity returns the send queue's capacity bound.
func (m *Messenger) QueueCapacity() int {
	return m.sendQueue.Capacity()
}

// Messages returns a rendering snapshot of a conversation.
func (m *Messenger) Messages(conversationID string) []domain.Message {
	return m.store.Snapshot(conversationID)
}

// StartIdentityCreate launches identity generation on the identity
// slot. Returns false if an identity job is already running.
func (m *Messenger) StartIdentityCreate() bool {
	return m.identityTask.Start(func(t *task.AsyncTask) {
		m.runIdentity(t, func(ctx context.Context) error {
			return m.backends.Identity.Create(ctx, t.AddMessage)
		})
	})
}

// StartIdentityRestore launches identity restoration from a seed
// phrase. Returns false if an identity job is already running.
func (m *Messenger) StartIdentityRestore(seed string) bool {
	return m.identityTask.Start(func(t *task.AsyncTask) {
		m.runIdentity(t, func(ctx context.Context) error {
			return m.backends.Identity.Restore(ctx, seed, t.AddMessage)
		})
	})
}

// runIdentity executes an identity job and stages its outcome for Tick.
func (m *Messenger) runIdentity(t *task.AsyncTask, job func(context.Context) error) {
	err := job(context.Background())

	m.mu.Lock()
	m.identityOK = err == nil
	m.mu.Unlock()

	if err != nil {
		m.setLastError(fmt.Sprintf("identity operation failed: %v", err))
		t.AddMessage("operation failed")
	}
}

// StartIdentityPublish announces the identity to the key server on its
// own slot. Returns false if a publish is already running.
func (m *Messenger) StartIdentityPublish() bool {
	return m.publishTask.Start(func(t *task.AsyncTask) {
		if err := m.backends.Identity.Publish(context.Background(), t.AddMessage); err != nil {
			m.setLastError(fmt.Sprintf("identity publish failed: %v", err))
		}
	})
}

// StartConversationLoad fetches a conversation's stored history in the
// background. The result is staged and swapped in by Tick; nothing
// changes on screen until the polling thread decides so. Returns false
// if a load is already running.
func (m *Messenger) StartConversationLoad(conversationID string) bool {
	return m.loadTask.Start(func(t *task.AsyncTask) {
		history, err := m.backends.Mailbox.History(context.Background(), conversationID)
		if err != nil {
			m.setLastError(fmt.Sprintf("conversation load failed: %v", err))
			return
		}

		msgs := make([]domain.Message, 0, len(history))
		for _, bm := range history {
			msgs = append(msgs, fromBackend(bm))
		}

		m.mu.Lock()
		m.stagedLoadConv = conversationID
		m.stagedLoad = msgs
		m.mu.Unlock()
	})
}

// StartMessagePoll fetches newly received messages for a conversation.
// Returns false if a poll is already running.
func (m *Messenger) StartMessagePoll(conversationID string) bool {
	return m.pollTask.Start(func(t *task.AsyncTask) {
		fetched, err := m.backends.Mailbox.Fetch(context.Background(), conversationID)
		if err != nil {
			m.setLastError(fmt.Sprintf("message poll failed: %v", err))
			return
		}

		msgs := make([]domain.Message, 0, len(fetched))
		for _, bm := range fetched {
			msgs = append(msgs, fromBackend(bm))
		}

		m.mu.Lock()
		m.stagedIncoming = append(m.stagedIncoming, msgs...)
		m.mu.Unlock()
	})
}

// StartContactSync refreshes the contact list and warms the name cache.
// Returns false if a sync is already running.
func (m *Messenger) StartContactSync() bool {
	return m.syncTask.Start(func(t *task.AsyncTask) {
		addrs, err := m.backends.Contacts.Sync(context.Background(), t.AddMessage)
		if err != nil {
			m.setLastError(fmt.Sprintf("contact sync failed: %v", err))
			return
		}

		for _, addr := range addrs {
			if _, ok := m.names.Get(addr); ok {
				continue
			}
			name, err := m.backends.Directory.Resolve(context.Background(), addr)
			if err != nil {
				m.logger.Debug("name resolution failed during sync",
					"address", addr, "error", err)
				continue
			}
			m.names.Set(addr, name)
		}

		m.mu.Lock()
		m.stagedContacts = addrs
		m.mu.Unlock()
	})
}

// Tick is the per-frame integration point, called by the GUI loop on
// the polling thread. It drains each slot's one-shot completion and
// applies the staged result as a visible state transition. Cheap and
// non-blocking; calling it on frames with nothing completed is a no-op.
func (m *Messenger) Tick() {
	if m.identityTask.PollCompleted() {
		m.mu.Lock()
		m.identityReady = m.identityOK
		m.mu.Unlock()
		m.logger.Debug("identity job applied", "ready", m.IdentityReady())
	}

	if m.publishTask.PollCompleted() {
		m.logger.Debug("identity publish finished")
	}

	if m.loadTask.PollCompleted() {
		m.mu.Lock()
		conv, msgs := m.stagedLoadConv, m.stagedLoad
		m.stagedLoadConv, m.stagedLoad = "", nil
		m.mu.Unlock()

		if conv != "" {
			m.store.Replace(conv, msgs)
			m.logger.Debug("conversation load applied",
				"conversation", conv, "messages", len(msgs))
		}
	}

	if m.pollTask.PollCompleted() {
		m.mu.Lock()
		msgs := m.stagedIncoming
		m.stagedIncoming = nil
		m.mu.Unlock()

		for i := range msgs {
			if err := m.store.Append(&msgs[i]); err != nil {
				m.logger.Error("failed to apply polled message", "error", err)
			}
		}
	}

	if m.syncTask.PollCompleted() {
		m.mu.Lock()
		if m.stagedContacts != nil {
			m.contacts = m.stagedContacts
			m.stagedContacts = nil
		}
		m.mu.Unlock()
	}

	// Lookup results land directly in the thread-safe name cache.
	m.lookupTask.PollCompleted()
}

// DisplayName returns the cached display name for an address, or the
// address itself while a background resolution is pending. Safe to call
// for every visible message every frame.
func (m *Messenger) DisplayName(address string) string {
	if name, ok := m.names.Get(address); ok {
		return name
	}

	// One lookup at a time; further misses reschedule on later frames.
	if !m.lookupTask.IsRunning() {
		m.lookupTask.Start(func(t *task.AsyncTask) {
			name, err := m.backends.Directory.Resolve(context.Background(), address)
			if err != nil {
				m.logger.Debug("name resolution failed",
					"address", address, "error", err)
				return
			}
			m.names.Set(address, name)
		})
	}

	return address
}

// IdentityReady reports whether an identity job has completed
// successfully and been applied by Tick.
func (m *Messenger) IdentityReady() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.identityReady
}

// IdentityProgress returns a snapshot of the identity slot's progress
// log for rendering.
func (m *Messenger) IdentityProgress() []string {
	return m.identityTask.Messages()
}

// Contacts returns the contact addresses applied by the last completed
// sync.
func (m *Messenger) Contacts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.contacts))
	copy(out, m.contacts)
	return out
}

// LastError returns the most recent job failure written by a worker,
// or the empty string. The UI decides how to render it.
func (m *Messenger) LastError() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastError
}

// TaskStates reports each slot's lifecycle state for diagnostics.
func (m *Messenger) TaskStates() map[string]task.State {
	return map[string]task.State{
		SlotIdentity:    m.identityTask.State(),
		SlotPublish:     m.publishTask.State(),
		SlotLoad:        m.loadTask.State(),
		SlotPoll:        m.pollTask.State(),
		SlotContactSync: m.syncTask.State(),
		SlotLookup:      m.lookupTask.State(),
	}
}

// setLastError stages a job failure for the UI.
func (m *Messenger) setLastError(msg string) {
	m.mu.Lock()
	m.lastError = msg
	m.mu.Unlock()
}

// fromBackend translates a backend message into a domain message with a
// fresh stable ID. Outgoing history entries keep their recorded
// outcome; incoming messages are terminal by definition.
func fromBackend(bm BackendMessage) domain.Message {
	status := domain.DeliveryStatusSent
	direction := domain.DirectionIncoming
	if bm.Outgoing {
		direction = domain.DirectionOutgoing
		if !bm.Delivered {
			status = domain.DeliveryStatusFailed
		}
	}

	return domain.Message{
		ID:             uuid.New(),
		ConversationID: bm.ConversationID,
		Sender:         bm.Sender,
		Content:        bm.Content,
		Timestamp:      bm.Timestamp.UTC(),
		Direction:      direction,
		Status:         status,
	}
}
