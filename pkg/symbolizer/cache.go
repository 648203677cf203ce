// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package symbolizer

import (
	"sync"
)

// Cache caches frames of already resolved PCs in a thread-safe way.
// Fault dumps tend to repeat the same addresses (epc1 and the top of the stack).
// Cached slices are shared, callers must not modify them.
type Cache struct {
	mu     sync.RWMutex
	frames map[uint64][]Frame
	hits   int
}

func (c *Cache) Frames(inner func(uint64) []Frame, pc uint64) []Frame {
	c.mu.RLock()
	frames, ok := c.frames[pc]
	c.mu.RUnlock()
	if ok {
		c.mu.Lock()
		c.hits++
		c.mu.Unlock()
		return frames
	}
	frames = inner(pc)
	c.mu.Lock()
	if c.frames == nil {
		c.frames = make(map[uint64][]Frame)
	}
	c.frames[pc] = frames
	c.mu.Unlock()
	return frames
}

// Hits returns the number of lookups served from the cache.
func (c *Cache) Hits() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits
}
