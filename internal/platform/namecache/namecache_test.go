package namecache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetGetDelete(t *testing.T) {
	c, err := New(1<<20, time.Minute)
	require.NoError(t, err)
	defer c.Close()

	_, ok := c.Get("addr-1")
	assert.False(t, ok)

	c.Set("addr-1", "Alice")
	// Ristretto applies writes asynchronously.
	assert.Eventually(t, func() bool {
		name, ok := c.Get("addr-1")
		return ok && name == "Alice"
	}, time.Second, 5*time.Millisecond)

	c.Delete("addr-1")
	assert.Eventually(t, func() bool {
		_, ok := c.Get("addr-1")
		return !ok
	}, time.Second, 5*time.Millisecond)
}
