// Package service contains the messenger orchestration layer: the glue
// between the polling (UI) thread, the background task primitives, and
// the shared conversation state. It owns the optimistic-insert /
// worker-correction protocol for outbound sends and the per-frame Tick
// contract through which completed background work becomes visible
// state.
package service
