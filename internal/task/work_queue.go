package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"

	"github.com/google/uuid"
)

// Common errors returned by the WorkQueue
var (
	ErrQueueClosed = errors.New("work queue is closed")
	ErrQueueFull   = errors.New("work queue is full")
)

// Item is the unit of work executed by a WorkQueue. The context is the
// queue's lifetime context. An item reports its own outcome by writing
// into shared state under that state's lock; the returned error is only
// logged by the queue, never retried.
type Item func(ctx context.Context) error

// workItem pairs an item with its correlation tag.
type workItem struct {
	tag  uuid.UUID
	work Item
}

// WorkQueue is an ordered, bounded, single-consumer job queue. Items
// execute strictly in submission order on one background goroutine, one
// at a time; a retried item is re-enqueued at the back. Once Size has
// reached capacity, Enqueue rejects new work (backpressure instead of
// unbounded buffering). Callers check Size before enqueueing and surface
// a "queue full" condition to the user; the ErrQueueFull return is a
// backstop for that check, not a replacement.
type WorkQueue struct {
	items  chan workItem
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu          sync.Mutex
	outstanding int // queued + currently executing
	closed      bool
}

// NewWorkQueue creates a work queue with the given capacity and starts
// its single worker goroutine. Capacity bounds the number of items not
// yet fully executed, as seen by the submitter.
func NewWorkQueue(capacity int, logger *slog.Logger) *WorkQueue {
	if capacity <= 0 {
		logger.Warn("invalid work queue capacity, using minimum",
			"specified_capacity", capacity,
			"minimum_capacity", 1)
		capacity = 1
	}

	ctx, cancel := context.WithCancel(context.Background())

	q := &WorkQueue{
		items:  make(chan workItem, capacity),
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}

	q.wg.Add(1)
	go q.worker()

	return q
}

// Enqueue appends a work item tagged with an opaque identifier the
// caller uses to correlate a later status update back to the item's
// origin (a message ID). Returns ErrQueueFull when the capacity bound is
// reached and ErrQueueClosed after Close.
func (q *WorkQueue) Enqueue(tag uuid.UUID, work Item) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}
	if q.outstanding >= cap(q.items) {
		return fmt.Errorf("%w: capacity %d reached", ErrQueueFull, cap(q.items))
	}

	// outstanding >= len(items) always holds, so the send cannot block.
	q.outstanding++
	q.items <- workItem{tag: tag, work: work}

	q.logger.Debug("work item enqueued",
		"tag", tag,
		"queue_size", q.outstanding,
		"queue_cap", cap(q.items))
	return nil
}

// Size returns the number of items not yet fully executed: queued plus
// the one currently executing. O(1) and safe to call every frame.
func (q *WorkQueue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.outstanding
}

// Capacity returns the fixed upper bound on outstanding items.
func (q *WorkQueue) Capacity() int {
	return cap(q.items)
}

// Close stops accepting new work, lets the worker drain the pending
// items, and waits for it to exit. The in-flight item always runs to
// completion; the queue has no cancellation for started work.
func (q *WorkQueue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.items)
	q.mu.Unlock()

	q.wg.Wait()
	q.cancel()
	q.logger.Debug("work queue closed")
}

// worker drains the queue strictly FIFO, executing one item to
// completion before dequeuing the next. There is deliberately no
// parallelism across items: submission order must be preserved toward
// the destination, and the backend transport is not assumed reentrant.
func (q *WorkQueue) worker() {
	defer q.wg.Done()

	for item := range q.items {
		q.execute(item)

		q.mu.Lock()
		q.outstanding--
		q.mu.Unlock()
	}
}

// execute runs a single item, containing panics so one bad item cannot
// kill the worker and strand everything behind it.
func (q *WorkQueue) execute(item workItem) {
	defer func() {
		if r := recover(); r != nil {
			q.logger.Error("work item panicked",
				"tag", item.tag,
				"panic", fmt.Sprintf("%v", r),
				"stack", string(debug.Stack()))
		}
	}()

	if err := item.work(q.ctx); err != nil {
		// The item has already written its failure into shared state;
		// this is observability only.
		q.logger.Error("work item failed", "tag", item.tag, "error", err)
	}
}
