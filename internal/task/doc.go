// Package task provides the two background-execution primitives the
// rest of the application is built on: AsyncTask, a single-slot runner
// polled from the frame loop, and WorkQueue, a bounded FIFO queue with
// one consumer used for outbound message sends and retries. Both keep
// blocking work (network, disk, signing) off the polling thread, which
// observes their state with cheap non-blocking queries every frame.
package task
