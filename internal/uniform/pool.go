// Package uniform hands out per-frame uniform data slots carved from
// host-visible GPU blocks.
package uniform

import (
	"bytes"
	"encoding/binary"

	"github.com/cockroachdb/errors"
)

// Allocator creates host-visible blocks usable as dynamic uniform buffers.
type Allocator interface {
	Allocate(size int) (Block, error)
	// Alignment is the minimum offset alignment for dynamic uniform bindings.
	Alignment() int
}

// Block is one host-visible buffer.
type Block interface {
	Write(offset int, data []byte) error
	Destroy()
}

// Slot is a claimed region of a block.
type Slot struct {
	Block  Block
	Offset int
	Size   int
}

// Pool is a free list of fixed-size slots for values of type T. Slots
// claimed for a frame go back to the free list only when the release
// function returned by Seal runs, which the renderer ties to the frame's fence.
type Pool[T any] struct {
	alloc    Allocator
	dataSize int
	slotSize int
	perBlock int

	blocks  []Block
	free    []Slot
	claimed []Slot
	buf     bytes.Buffer
}

func NewPool[T any](alloc Allocator, slotsPerBlock int) (*Pool[T], error) {
	var zero T
	size := binary.Size(zero)
	if size <= 0 {
		return nil, errors.Newf("uniform type %T has no fixed size", zero)
	}
	if slotsPerBlock < 1 {
		return nil, errors.Newf("slots per block must be positive, got %d", slotsPerBlock)
	}

	align := alloc.Alignment()
	if align < 1 {
		align = 1
	}
	return &Pool[T]{
		alloc:    alloc,
		dataSize: size,
		slotSize: (size + align - 1) / align * align,
		perBlock: slotsPerBlock,
	}, nil
}

// Next claims a slot and writes v into it.
func (p *Pool[T]) Next(v T) (Slot, error) {
	if len(p.free) == 0 {
		if err := p.grow(); err != nil {
			return Slot{}, err
		}
	}

	slot := p.free[len(p.free)-1]
	p.free = p.free[:len(p.free)-1]

	p.buf.Reset()
	if err := binary.Write(&p.buf, binary.NativeEndian, v); err != nil {
		p.free = append(p.free, slot)
		return Slot{}, errors.Wrap(err, "encode uniform")
	}
	if err := slot.Block.Write(slot.Offset, p.buf.Bytes()); err != nil {
		p.free = append(p.free, slot)
		return Slot{}, errors.Wrap(err, "write uniform")
	}

	p.claimed = append(p.claimed, slot)
	return slot, nil
}

func (p *Pool[T]) grow() error {
	block, err := p.alloc.Allocate(p.slotSize * p.perBlock)
	if err != nil {
		return errors.Wrap(err, "allocate uniform block")
	}
	p.blocks = append(p.blocks, block)
	for i := p.perBlock - 1; i >= 0; i-- {
		p.free = append(p.free, Slot{Block: block, Offset: i * p.slotSize, Size: p.dataSize})
	}
	return nil
}

// Seal closes the current frame's claims. The returned function returns
// them to the free list and must run only after the GPU is done reading.
func (p *Pool[T]) Seal() func() {
	claimed := p.claimed
	p.claimed = nil
	return func() {
		p.free = append(p.free, claimed...)
	}
}

// Discard returns the current frame's claims right away. Only valid when
// nothing referencing them was submitted.
func (p *Pool[T]) Discard() {
	p.free = append(p.free, p.claimed...)
	p.claimed = p.claimed[:0]
}

func (p *Pool[T]) SlotSize() int { return p.slotSize }
func (p *Pool[T]) Blocks() int   { return len(p.blocks) }
func (p *Pool[T]) Free() int     { return len(p.free) }

// Destroy frees every block. Callers wait for the device to go idle first.
func (p *Pool[T]) Destroy() {
	for _, b := range p.blocks {
		b.Destroy()
	}
	p.blocks = nil
	p.free = nil
	p.claimed = nil
}
