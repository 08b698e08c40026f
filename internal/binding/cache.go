// Package binding caches the per-entity descriptor sets that point the
// pipeline at uniform blocks.
package binding

import (
	"github.com/google/uuid"

	"github.com/vkngwrapper/incipisphere/internal/uniform"
)

// Set is an opaque backend binding handle.
type Set any

// Allocator builds sets over a transform block and a color block.
type Allocator interface {
	Allocate(transform, color uniform.Block) (Set, error)
	Free(sets []Set)
}

// Key identifies a set: the pipeline generation it was built for and the
// entity it serves.
type Key struct {
	Generation uint64
	Entity     uuid.UUID
}

type entry struct {
	set       Set
	transform uniform.Block
	color     uniform.Block
	used      bool
}

// Cache reuses sets across frames. Sets that stop being used are retired
// and freed only through the release function from Sweep, so a frame still
// in flight never loses its bindings.
type Cache struct {
	alloc   Allocator
	entries map[Key]*entry
	retired []Set
}

func NewCache(alloc Allocator) *Cache {
	return &Cache{
		alloc:   alloc,
		entries: make(map[Key]*entry),
	}
}

// Get returns the set for key, rebuilding it when the slots moved to other blocks.
func (c *Cache) Get(key Key, transform, color uniform.Block) (Set, error) {
	e, ok := c.entries[key]
	if ok && e.transform == transform && e.color == color {
		e.used = true
		return e.set, nil
	}

	set, err := c.alloc.Allocate(transform, color)
	if err != nil {
		return nil, err
	}
	if ok {
		c.retired = append(c.retired, e.set)
	}
	c.entries[key] = &entry{set: set, transform: transform, color: color, used: true}
	return set, nil
}

// Sweep retires every entry not used since the last sweep and returns a
// function that frees all retired sets. Run it after the frame's fence.
func (c *Cache) Sweep() func() {
	for key, e := range c.entries {
		if !e.used {
			c.retired = append(c.retired, e.set)
			delete(c.entries, key)
			continue
		}
		e.used = false
	}

	retired := c.retired
	c.retired = nil
	if len(retired) == 0 {
		return func() {}
	}
	return func() {
		c.alloc.Free(retired)
	}
}

// Invalidate retires every cached set.
func (c *Cache) Invalidate() {
	for key, e := range c.entries {
		c.retired = append(c.retired, e.set)
		delete(c.entries, key)
	}
}

func (c *Cache) Len() int {
	return len(c.entries)
}

// Destroy frees everything at once. The device must be idle.
func (c *Cache) Destroy() {
	c.Invalidate()
	if len(c.retired) > 0 {
		c.alloc.Free(c.retired)
	}
	c.retired = nil
}
