package task

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
)

// State represents the lifecycle position of an AsyncTask slot
type State string

// Possible async task states. The lifecycle is strictly linear:
// Idle -> Running -> Completed, and back to Idle only via a new Start.
const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateCompleted State = "completed"
)

// Work is the unit of work executed by an AsyncTask. It receives the
// owning task so it can report progress with AddMessage. Anything else
// it needs (backend handles, strings) must be captured by value before
// the goroutine starts; never capture references to UI-owned state.
type Work func(t *AsyncTask)

// AsyncTask is a single-slot background job runner. At most one work
// unit runs per slot at any time. The polling thread observes the slot
// every frame with IsRunning/IsCompleted/PollCompleted; the worker
// goroutine reports progress through AddMessage. The slot has no notion
// of success or failure: the work unit writes its outcome into whatever
// shared state it owns, and the polling thread decides what a completed
// run means.
type AsyncTask struct {
	name   string
	logger *slog.Logger

	mu       sync.Mutex
	state    State
	consumed bool // completion already handed out by PollCompleted
	progress []string
}

// NewAsyncTask creates an idle task slot. The name identifies the slot
// in logs (e.g. "identity", "message_poll").
func NewAsyncTask(name string, logger *slog.Logger) *AsyncTask {
	return &AsyncTask{
		name:   name,
		logger: logger.With("task", name),
		state:  StateIdle,
	}
}

// Start launches work on a new goroutine and moves the slot to Running.
// If a work unit is already running, Start is a no-op and returns false;
// callers are expected to check IsRunning first, so this is a guard, not
// an error path. Starting from Completed is allowed and begins a fresh
// run with an empty progress log.
func (t *AsyncTask) Start(work Work) bool {
	t.mu.Lock()
	if t.state == StateRunning {
		t.mu.Unlock()
		t.logger.Debug("start ignored, task already running")
		return false
	}
	t.state = StateRunning
	t.consumed = false
	t.progress = nil
	t.mu.Unlock()

	t.logger.Debug("task started")

	go t.run(work)
	return true
}

// run executes the work unit and always leaves the slot in Completed,
// even if the work unit panics. A panic must not wedge the slot or
// cross into the polling thread.
func (t *AsyncTask) run(work Work) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("work unit panicked",
				"panic", fmt.Sprintf("%v", r),
				"stack", string(debug.Stack()))
		}

		t.mu.Lock()
		t.state = StateCompleted
		t.mu.Unlock()

		t.logger.Debug("task completed")
	}()

	work(t)
}

// IsRunning reports whether a work unit is currently executing.
// Safe to call every frame from the polling thread.
func (t *AsyncTask) IsRunning() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state == StateRunning
}

// IsCompleted reports whether the most recent run has finished.
// Safe to call every frame from the polling thread.
func (t *AsyncTask) IsCompleted() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state == StateCompleted
}

// State returns the current lifecycle state.
func (t *AsyncTask) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// PollCompleted returns true exactly once per completed run. The polling
// thread calls it each frame and performs the run's follow-up (hide a
// spinner, swap in loaded data) on the single frame it returns true.
// The slot stays Completed afterwards and accepts the next Start.
func (t *AsyncTask) PollCompleted() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != StateCompleted || t.consumed {
		return false
	}
	t.consumed = true
	return true
}

// AddMessage appends a line to the progress log. Only the running work
// unit writes here; the log is append-only, so a concurrent Messages
// snapshot always sees a consistent prefix.
func (t *AsyncTask) AddMessage(text string) {
	t.mu.Lock()
	t.progress = append(t.progress, text)
	t.mu.Unlock()
}

// Messages returns a snapshot copy of the progress log. The lock is held
// only for the duration of the copy, never across rendering or I/O.
func (t *AsyncTask) Messages() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, len(t.progress))
	copy(out, t.progress)
	return out
}
