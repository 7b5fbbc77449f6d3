// Package store defines interfaces for the application's shared mutable
// state. These interfaces abstract the storage mechanism from the core
// logic, keeping the polling loop and worker goroutines independent of
// how conversations are actually held in memory.
package store
