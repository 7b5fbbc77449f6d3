package shared

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
)

// ContextKey is the key type for values this package stores in a
// request context.
type ContextKey string

const (
	// TraceIDKey is the key for the trace ID in the request context.
	TraceIDKey ContextKey = "traceID"

	// TraceIDLength is the number of random bytes in a trace ID.
	TraceIDLength = 8 // 16 hex characters
)

// SetTraceID adds a fresh trace ID to the context, for correlating log
// lines and error responses belonging to one request.
func SetTraceID(ctx context.Context) context.Context {
	return context.WithValue(ctx, TraceIDKey, generateTraceID())
}

// GetTraceID retrieves the trace ID from the context, or the empty
// string when none was set.
func GetTraceID(ctx context.Context) string {
	traceID, ok := ctx.Value(TraceIDKey).(string)
	if !ok {
		return ""
	}
	return traceID
}

func generateTraceID() string {
	b := make([]byte, TraceIDLength)
	if _, err := rand.Read(b); err != nil {
		// The diagnostics surface keeps working without trace IDs.
		slog.Error("failed to generate trace ID", "error", err)
		return ""
	}
	return hex.EncodeToString(b)
}
