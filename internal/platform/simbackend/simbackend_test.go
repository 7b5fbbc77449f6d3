package simbackend

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

func TestSendFailureInjection(t *testing.T) {
	b := New(Config{FailEvery: 3}, testLogger())
	ctx := context.Background()

	assert.NoError(t, b.Send(ctx, "conv", "one"))
	assert.NoError(t, b.Send(ctx, "conv", "two"))
	assert.Error(t, b.Send(ctx, "conv", "three"))
	assert.NoError(t, b.Send(ctx, "conv", "four"))
}

func TestEchoRepliesDrainedOnce(t *testing.T) {
	b := New(Config{EchoReplies: true}, testLogger())
	ctx := context.Background()

	require.NoError(t, b.Send(ctx, "peer-1", "hello"))

	msgs, err := b.Fetch(ctx, "peer-1")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "echo: hello", msgs[0].Content)
	assert.False(t, msgs[0].Outgoing)

	msgs, err = b.Fetch(ctx, "peer-1")
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestHistoryRecordsDeliveredSends(t *testing.T) {
	b := New(Config{}, testLogger())
	ctx := context.Background()

	require.NoError(t, b.Send(ctx, "peer-1", "first"))
	require.NoError(t, b.Send(ctx, "peer-1", "second"))

	history, err := b.History(ctx, "peer-1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.True(t, history[0].Outgoing)
	assert.True(t, history[0].Delivered)
	assert.Equal(t, "first", history[0].Content)
}

func TestResolveUnknownAddress(t *testing.T) {
	b := New(Config{}, testLogger())

	b.Register("addr-1", "Alice")

	name, err := b.Resolve(context.Background(), "addr-1")
	require.NoError(t, err)
	assert.Equal(t, "Alice", name)

	_, err = b.Resolve(context.Background(), "addr-unknown")
	assert.Error(t, err)
}

func TestContactSyncReportsProgress(t *testing.T) {
	b := New(Config{}, testLogger())
	b.Register("addr-1", "Alice")
	b.Register("addr-2", "Bob")

	var lines []string
	addrs, err := b.Sync(context.Background(), func(s string) { lines = append(lines, s) })
	require.NoError(t, err)
	assert.Equal(t, []string{"addr-1", "addr-2"}, addrs)
	assert.NotEmpty(t, lines)
}
