package future

import (
	"testing"

	"github.com/cockroachdb/errors"
)

type fakeFence struct {
	signaled bool
	waits    int
	err      error
}

func (f *fakeFence) Signaled() (bool, error) {
	return f.signaled, f.err
}

func (f *fakeFence) Wait() error {
	if f.err != nil {
		return f.err
	}
	f.waits++
	f.signaled = true
	return nil
}

func counter(n *int) func() {
	return func() { *n++ }
}

func TestThenConsumesWaits(t *testing.T) {
	var semaphoreReleased, frameReleased int

	tok := Now().Join(Acquired("image-available", counter(&semaphoreReleased)))
	if got := len(tok.Semaphores()); got != 1 {
		t.Fatalf("len(Semaphores()) = %d, want 1", got)
	}

	fence := &fakeFence{}
	tok.Then(fence, counter(&frameReleased))
	if got := len(tok.Semaphores()); got != 0 {
		t.Errorf("len(Semaphores()) after Then = %d, want 0", got)
	}
	if tok.Pending() != 1 {
		t.Errorf("Pending() = %d, want 1", tok.Pending())
	}

	if err := tok.CleanupFinished(); err != nil {
		t.Fatal(err)
	}
	if semaphoreReleased != 0 || frameReleased != 0 {
		t.Fatalf("hooks ran before the fence signaled")
	}

	fence.signaled = true
	if err := tok.CleanupFinished(); err != nil {
		t.Fatal(err)
	}
	if semaphoreReleased != 1 || frameReleased != 1 {
		t.Errorf("released = (%d, %d), want (1, 1)", semaphoreReleased, frameReleased)
	}
	if tok.Pending() != 0 {
		t.Errorf("Pending() = %d, want 0", tok.Pending())
	}

	// hooks run exactly once
	if err := tok.Wait(); err != nil {
		t.Fatal(err)
	}
	if semaphoreReleased != 1 || frameReleased != 1 {
		t.Errorf("released = (%d, %d) after Wait, want (1, 1)", semaphoreReleased, frameReleased)
	}
}

func TestJoinEmptiesOther(t *testing.T) {
	a, b := Now(), Now()
	b.Then(&fakeFence{})
	b.Join(Acquired("s"))

	a.Join(b)
	if a.Pending() != 1 || len(a.Semaphores()) != 1 {
		t.Errorf("joined token = (%d pending, %d waits), want (1, 1)", a.Pending(), len(a.Semaphores()))
	}
	if b.Pending() != 0 || len(b.Semaphores()) != 0 {
		t.Errorf("source token not emptied: (%d pending, %d waits)", b.Pending(), len(b.Semaphores()))
	}

	// joining with itself or nil is a no-op
	a.Join(a).Join(nil)
	if a.Pending() != 1 {
		t.Errorf("Pending() = %d after self join, want 1", a.Pending())
	}
}

func TestDrainOldestFirst(t *testing.T) {
	var order []int
	fences := []*fakeFence{{}, {}, {}}
	tok := Now()
	for i, f := range fences {
		i := i
		tok.Then(f, func() { order = append(order, i) })
	}

	if err := tok.Drain(1); err != nil {
		t.Fatal(err)
	}
	if tok.Pending() != 1 {
		t.Errorf("Pending() = %d, want 1", tok.Pending())
	}
	if len(order) != 2 || order[0] != 0 || order[1] != 1 {
		t.Errorf("release order = %v, want [0 1]", order)
	}
	if fences[2].waits != 0 {
		t.Errorf("newest fence waited on %d times, want 0", fences[2].waits)
	}

	if err := tok.Wait(); err != nil {
		t.Fatal(err)
	}
	if len(order) != 3 || order[2] != 2 {
		t.Errorf("release order = %v, want [0 1 2]", order)
	}
}

func TestCleanupFinishedKeepsUnsignaled(t *testing.T) {
	var released []int
	done, busy := &fakeFence{signaled: true}, &fakeFence{}
	tok := Now()
	tok.Then(busy, func() { released = append(released, 0) })
	tok.Then(done, func() { released = append(released, 1) })

	if err := tok.CleanupFinished(); err != nil {
		t.Fatal(err)
	}
	if tok.Pending() != 1 {
		t.Errorf("Pending() = %d, want 1", tok.Pending())
	}
	if len(released) != 1 || released[0] != 1 {
		t.Errorf("released = %v, want [1]", released)
	}
}

func TestFenceErrors(t *testing.T) {
	lost := errors.New("device lost")
	tok := Now()
	tok.Then(&fakeFence{err: lost})

	if err := tok.CleanupFinished(); !errors.Is(err, lost) {
		t.Errorf("CleanupFinished() error = %v, want %v", err, lost)
	}
	if err := tok.Wait(); !errors.Is(err, lost) {
		t.Errorf("Wait() error = %v, want %v", err, lost)
	}
	if tok.Pending() != 1 {
		t.Errorf("Pending() = %d, want failed fence kept", tok.Pending())
	}
}
