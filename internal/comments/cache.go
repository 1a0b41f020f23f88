package comments

import (
	"context"
	"strconv"
	"sync"

	"golang.org/x/sync/singleflight"
)

// ReplyCache remembers which parent comments have had their replies fetched
// and collapses concurrent fetches for the same parent into one call.
//
// A parent is marked only after its fetch succeeded, so a failed fetch can be
// retried by the next caller.
type ReplyCache struct {
	mu      sync.Mutex
	gen     uint64 // bumped by Reset
	fetched map[string]struct{}
	group   singleflight.Group
}

// NewReplyCache returns an empty cache.
func NewReplyCache() *ReplyCache {
	return &ReplyCache{fetched: make(map[string]struct{})}
}

// Has reports whether replies of parentID were already fetched.
func (c *ReplyCache) Has(parentID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.fetched[parentID]
	return ok
}

// Len returns the number of parents marked as fetched.
func (c *ReplyCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.fetched)
}

// Reset forgets every fetched parent. Loads already in flight still complete
// but no longer mark their parent, and later callers do not join them.
func (c *ReplyCache) Reset() {
	c.mu.Lock()
	c.gen++
	c.fetched = make(map[string]struct{})
	c.mu.Unlock()
}

func (c *ReplyCache) generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

// mark records parentID as fetched unless the cache was reset since gen.
func (c *ReplyCache) mark(gen uint64, parentID string) {
	c.mu.Lock()
	if gen == c.gen {
		c.fetched[parentID] = struct{}{}
	}
	c.mu.Unlock()
}

// Load runs fetch for parentID unless it is already cached. Callers arriving
// while a fetch for the same parent is running wait for it and share its
// result. The parent is marked only when fetch returns nil.
//
// The shared call runs under the context of the caller that started it.
func (c *ReplyCache) Load(ctx context.Context, parentID string, fetch func(ctx context.Context, parentID string) error) error {
	if c.Has(parentID) {
		return nil
	}

	gen := c.generation()
	key := strconv.FormatUint(gen, 10) + "/" + parentID
	_, err, _ := c.group.Do(key, func() (any, error) {
		if c.Has(parentID) {
			return nil, nil
		}
		if err := fetch(ctx, parentID); err != nil {
			return nil, err
		}
		c.mark(gen, parentID)
		return nil, nil
	})
	return err
}
