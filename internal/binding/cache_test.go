package binding

import (
	"testing"

	"github.com/google/uuid"

	"github.com/vkngwrapper/incipisphere/internal/uniform"
)

type fakeBlock struct{ name string }

func (*fakeBlock) Write(int, []byte) error { return nil }
func (*fakeBlock) Destroy()                {}

type fakeAllocator struct {
	next  int
	live  map[int]bool
	freed []int
}

func newFakeAllocator() *fakeAllocator {
	return &fakeAllocator{live: map[int]bool{}}
}

func (a *fakeAllocator) Allocate(transform, color uniform.Block) (Set, error) {
	a.next++
	a.live[a.next] = true
	return a.next, nil
}

func (a *fakeAllocator) Free(sets []Set) {
	for _, s := range sets {
		id := s.(int)
		delete(a.live, id)
		a.freed = append(a.freed, id)
	}
}

func TestGetReusesSet(t *testing.T) {
	alloc := newFakeAllocator()
	c := NewCache(alloc)
	key := Key{Generation: 1, Entity: uuid.New()}
	tb, cb := &fakeBlock{"t"}, &fakeBlock{"c"}

	first, err := c.Get(key, tb, cb)
	if err != nil {
		t.Fatal(err)
	}
	c.Sweep()()

	second, err := c.Get(key, tb, cb)
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Errorf("Get() = %v, want cached %v", second, first)
	}
	if alloc.next != 1 {
		t.Errorf("allocations = %d, want 1", alloc.next)
	}
}

func TestGetRebuildsWhenBlockChanges(t *testing.T) {
	alloc := newFakeAllocator()
	c := NewCache(alloc)
	key := Key{Generation: 1, Entity: uuid.New()}
	cb := &fakeBlock{"c"}

	old, _ := c.Get(key, &fakeBlock{"t1"}, cb)
	fresh, _ := c.Get(key, &fakeBlock{"t2"}, cb)
	if old == fresh {
		t.Fatal("Get() reused a set bound to a different block")
	}
	if !alloc.live[old.(int)] {
		t.Fatal("old set freed before its frame completed")
	}

	release := c.Sweep()
	if !alloc.live[old.(int)] {
		t.Fatal("Sweep() freed the old set immediately")
	}
	release()
	if alloc.live[old.(int)] {
		t.Error("old set still live after release")
	}
	if !alloc.live[fresh.(int)] {
		t.Error("current set freed")
	}
}

func TestSweepRetiresUnused(t *testing.T) {
	alloc := newFakeAllocator()
	c := NewCache(alloc)
	tb, cb := &fakeBlock{"t"}, &fakeBlock{"c"}
	a, b := uuid.New(), uuid.New()

	c.Get(Key{1, a}, tb, cb)
	c.Get(Key{1, b}, tb, cb)
	c.Sweep()()

	// new generation: both old keys go unused this frame
	c.Get(Key{2, a}, tb, cb)
	c.Sweep()()

	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
	if len(alloc.freed) != 2 {
		t.Errorf("freed = %v, want 2 sets", alloc.freed)
	}
}

func TestInvalidateAndDestroy(t *testing.T) {
	alloc := newFakeAllocator()
	c := NewCache(alloc)
	c.Get(Key{1, uuid.New()}, &fakeBlock{}, &fakeBlock{})
	c.Get(Key{1, uuid.New()}, &fakeBlock{}, &fakeBlock{})

	c.Invalidate()
	if c.Len() != 0 {
		t.Errorf("Len() = %d after Invalidate, want 0", c.Len())
	}
	if len(alloc.live) != 2 {
		t.Errorf("live sets = %d, want retired sets kept until release", len(alloc.live))
	}

	c.Destroy()
	if len(alloc.live) != 0 {
		t.Errorf("live sets = %d after Destroy, want 0", len(alloc.live))
	}
}
