package task

import (
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

func waitCompleted(t *testing.T, at *AsyncTask) {
	t.Helper()
	require.Eventually(t, func() bool {
		return at.IsCompleted() && !at.IsRunning()
	}, 2*time.Second, 5*time.Millisecond, "task did not complete")
}

func TestAsyncTaskLifecycle(t *testing.T) {
	at := NewAsyncTask("lifecycle", setupTestLogger())

	assert.Equal(t, StateIdle, at.State())
	assert.False(t, at.IsRunning())
	assert.False(t, at.IsCompleted())

	release := make(chan struct{})
	ok := at.Start(func(task *AsyncTask) {
		<-release
	})
	assert.True(t, ok)
	assert.True(t, at.IsRunning())
	assert.False(t, at.IsCompleted())

	close(release)
	waitCompleted(t, at)
	assert.Equal(t, StateCompleted, at.State())

	// A completed slot accepts the next run.
	ok = at.Start(func(task *AsyncTask) {})
	assert.True(t, ok)
	waitCompleted(t, at)
}

func TestAsyncTaskStartWhileRunningIsNoOp(t *testing.T) {
	at := NewAsyncTask("busy", setupTestLogger())

	var active atomic.Int32
	var maxActive atomic.Int32
	release := make(chan struct{})

	body := func(task *AsyncTask) {
		n := active.Add(1)
		for {
			prev := maxActive.Load()
			if n <= prev || maxActive.CompareAndSwap(prev, n) {
				break
			}
		}
		<-release
		active.Add(-1)
	}

	require.True(t, at.Start(body))

	// Repeated starts while running must not spawn a second worker.
	for i := 0; i < 10; i++ {
		assert.False(t, at.Start(body))
	}
	assert.True(t, at.IsRunning())

	close(release)
	waitCompleted(t, at)
	assert.Equal(t, int32(1), maxActive.Load(), "at most one worker may be active")
}

func TestAsyncTaskPollCompletedFiresOnce(t *testing.T) {
	at := NewAsyncTask("once", setupTestLogger())

	assert.False(t, at.PollCompleted(), "idle slot has nothing to hand out")

	require.True(t, at.Start(func(task *AsyncTask) {}))
	waitCompleted(t, at)

	assert.True(t, at.PollCompleted())
	for i := 0; i < 5; i++ {
		assert.False(t, at.PollCompleted(), "completion must be observed exactly once")
	}

	// A fresh run arms PollCompleted again.
	require.True(t, at.Start(func(task *AsyncTask) {}))
	waitCompleted(t, at)
	assert.True(t, at.PollCompleted())
	assert.False(t, at.PollCompleted())
}

func TestAsyncTaskProgressLogSnapshotIsConsistentPrefix(t *testing.T) {
	at := NewAsyncTask("progress", setupTestLogger())

	const lines = 200
	expected := make([]string, lines)
	for i := range expected {
		expected[i] = fmt.Sprintf("step %03d", i)
	}

	require.True(t, at.Start(func(task *AsyncTask) {
		for _, line := range expected {
			task.AddMessage(line)
		}
	}))

	// Snapshot concurrently with the appends: every snapshot must be a
	// prefix of the final log, never torn, never shrinking.
	prevLen := 0
	for !at.IsCompleted() {
		snap := at.Messages()
		require.GreaterOrEqual(t, len(snap), prevLen, "log must be append-only")
		for i, line := range snap {
			require.Equal(t, expected[i], line)
		}
		prevLen = len(snap)
	}

	waitCompleted(t, at)
	assert.Equal(t, expected, at.Messages())
}

func TestAsyncTaskProgressLogResetsPerRun(t *testing.T) {
	at := NewAsyncTask("reset", setupTestLogger())

	require.True(t, at.Start(func(task *AsyncTask) {
		task.AddMessage("first run")
	}))
	waitCompleted(t, at)
	assert.Equal(t, []string{"first run"}, at.Messages())

	require.True(t, at.Start(func(task *AsyncTask) {
		task.AddMessage("second run")
	}))
	waitCompleted(t, at)
	assert.Equal(t, []string{"second run"}, at.Messages())
}

func TestAsyncTaskPanicStillCompletes(t *testing.T) {
	at := NewAsyncTask("panic", setupTestLogger())

	require.True(t, at.Start(func(task *AsyncTask) {
		panic("work unit blew up")
	}))

	waitCompleted(t, at)
	assert.True(t, at.PollCompleted(), "a panicked run still completes")

	// The slot is not wedged.
	require.True(t, at.Start(func(task *AsyncTask) {
		task.AddMessage("recovered")
	}))
	waitCompleted(t, at)
	assert.Equal(t, []string{"recovered"}, at.Messages())
}
