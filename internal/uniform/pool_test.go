package uniform

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
)

type fakeBlock struct {
	data      []byte
	destroyed bool
}

func (b *fakeBlock) Write(offset int, data []byte) error {
	if offset+len(data) > len(b.data) {
		return errors.Newf("write [%d,%d) past block of %d", offset, offset+len(data), len(b.data))
	}
	copy(b.data[offset:], data)
	return nil
}

func (b *fakeBlock) Destroy() { b.destroyed = true }

type fakeAllocator struct {
	align  int
	blocks []*fakeBlock
}

func (a *fakeAllocator) Allocate(size int) (Block, error) {
	b := &fakeBlock{data: make([]byte, size)}
	a.blocks = append(a.blocks, b)
	return b, nil
}

func (a *fakeAllocator) Alignment() int { return a.align }

func TestSlotAlignment(t *testing.T) {
	tests := []struct {
		align int
		want  int
	}{
		{0, 16},
		{1, 16},
		{16, 16},
		{64, 64},
		{256, 256},
	}
	for _, tt := range tests {
		p, err := NewPool[mgl32.Vec4](&fakeAllocator{align: tt.align}, 4)
		if err != nil {
			t.Fatal(err)
		}
		if got := p.SlotSize(); got != tt.want {
			t.Errorf("SlotSize() with align %d = %d, want %d", tt.align, got, tt.want)
		}
	}
}

func TestNextWritesValue(t *testing.T) {
	alloc := &fakeAllocator{align: 64}
	p, err := NewPool[mgl32.Vec4](alloc, 2)
	if err != nil {
		t.Fatal(err)
	}

	slot, err := p.Next(mgl32.Vec4{0.2, 0.5, 1, 1})
	if err != nil {
		t.Fatal(err)
	}
	if slot.Size != 16 {
		t.Errorf("Slot.Size = %d, want 16", slot.Size)
	}
	if slot.Offset%64 != 0 {
		t.Errorf("Slot.Offset = %d, not aligned to 64", slot.Offset)
	}

	data := alloc.blocks[0].data[slot.Offset:]
	got := math.Float32frombits(binary.NativeEndian.Uint32(data[4:8]))
	if got != 0.5 {
		t.Errorf("second component = %v, want 0.5", got)
	}
}

func TestSlotsReturnOnlyAfterRelease(t *testing.T) {
	alloc := &fakeAllocator{align: 16}
	p, err := NewPool[mgl32.Mat4](alloc, 2)
	if err != nil {
		t.Fatal(err)
	}

	seen := map[int]bool{}
	for i := 0; i < 2; i++ {
		slot, err := p.Next(mgl32.Ident4())
		if err != nil {
			t.Fatal(err)
		}
		if seen[slot.Offset] {
			t.Fatalf("slot at offset %d handed out twice in one frame", slot.Offset)
		}
		seen[slot.Offset] = true
	}
	release := p.Seal()

	// next frame before the first completes: must grow instead of reusing
	if _, err := p.Next(mgl32.Ident4()); err != nil {
		t.Fatal(err)
	}
	if p.Blocks() != 2 {
		t.Errorf("Blocks() = %d, want 2", p.Blocks())
	}
	p.Discard()

	release()
	if p.Free() != 4 {
		t.Errorf("Free() = %d, want 4", p.Free())
	}
}

func TestDestroy(t *testing.T) {
	alloc := &fakeAllocator{align: 16}
	p, err := NewPool[mgl32.Vec4](alloc, 1)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if _, err := p.Next(mgl32.Vec4{}); err != nil {
			t.Fatal(err)
		}
	}
	p.Destroy()

	for i, b := range alloc.blocks {
		if !b.destroyed {
			t.Errorf("block %d not destroyed", i)
		}
	}
}
