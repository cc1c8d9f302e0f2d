/*
	This file holds the bounded decode cache for blocks read from a container.
*/

package datastore

import (
	"github.com/DmitriyVTitov/size"
	"github.com/golang/groupcache/lru"
)

// DefaultCacheBlocks is the number of decoded blocks kept if no capacity is
// configured.
const DefaultCacheBlocks = 64

// blockCache keeps decoded blocks in a fixed arena of slots.  An LRU index maps
// Morton codes to slots, and evicting a code returns its slot to the free list,
// so the cache never holds more than its capacity of blocks and reuses their
// buffers instead of allocating per read.
type blockCache struct {
	blockBytes int
	slots      [][]byte // allocated on first use, up to capacity
	free       []int
	index      *lru.Cache

	hits      uint64
	misses    uint64
	evictions uint64
}

func newBlockCache(capacity, blockBytes int) *blockCache {
	if capacity < 1 {
		capacity = DefaultCacheBlocks
	}
	c := &blockCache{
		blockBytes: blockBytes,
		slots:      make([][]byte, 0, capacity),
		index:      lru.New(capacity),
	}
	c.index.OnEvicted = func(key lru.Key, value interface{}) {
		c.free = append(c.free, value.(int))
		c.evictions++
	}
	return c
}

// get returns the cached block.  The slice is owned by the cache and is only
// valid until the next put.
func (c *blockCache) get(code uint64) ([]byte, bool) {
	v, found := c.index.Get(code)
	if !found {
		c.misses++
		return nil, false
	}
	c.hits++
	return c.slots[v.(int)], true
}

// put copies a block into the cache, evicting the least recently used block if
// the arena is full, and returns the cached copy.
func (c *blockCache) put(code uint64, data []byte) []byte {
	if v, found := c.index.Get(code); found {
		slot := c.slots[v.(int)]
		copy(slot, data)
		return slot
	}
	var slot int
	switch {
	case len(c.free) > 0:
		slot = c.free[len(c.free)-1]
		c.free = c.free[:len(c.free)-1]
	case len(c.slots) < cap(c.slots):
		slot = len(c.slots)
		c.slots = append(c.slots, make([]byte, c.blockBytes))
	default:
		c.index.RemoveOldest()
		slot = c.free[len(c.free)-1]
		c.free = c.free[:len(c.free)-1]
	}
	copy(c.slots[slot], data)
	c.index.Add(code, slot)
	return c.slots[slot]
}

func (c *blockCache) len() int {
	return c.index.Len()
}

// bytes approximates the memory held by the arena.
func (c *blockCache) bytes() int {
	return size.Of(c.slots)
}
