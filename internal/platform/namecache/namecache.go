// Package namecache implements a small in-process cache for resolved
// contact display names, backed by dgraph-io/ristretto. Lookups against
// the key server are slow and the same addresses are rendered every
// frame, so resolved names are kept hot with a TTL bound.
package namecache

import (
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// Cache maps peer addresses to resolved display names. Safe for
// concurrent use by the polling thread and worker goroutines.
type Cache struct {
	c   *ristretto.Cache[string, string]
	ttl time.Duration
}

// New creates a name cache. maxCostBytes is the maximum total size of
// cached names in bytes; ttl bounds how long a resolution is trusted
// before the directory is consulted again.
func New(maxCostBytes int64, ttl time.Duration) (*Cache, error) {
	c, err := ristretto.NewCache(&ristretto.Config[string, string]{
		NumCounters: maxCostBytes / 100 * 10, // ~10x expected items
		MaxCost:     maxCostBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &Cache{c: c, ttl: ttl}, nil
}

// Get retrieves a resolved display name for an address.
func (c *Cache) Get(address string) (name string, ok bool) {
	return c.c.Get(address)
}

// Set stores a resolved display name.
func (c *Cache) Set(address, name string) {
	c.c.SetWithTTL(address, name, int64(len(address)+len(name)), c.ttl)
}

// Delete removes an address from the cache, forcing the next lookup to
// resolve again (used when a contact is renamed).
func (c *Cache) Delete(address string) {
	c.c.Del(address)
}

// Close shuts down the cache and releases resources.
func (c *Cache) Close() {
	c.c.Close()
}
