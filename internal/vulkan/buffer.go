package vulkan

import (
	"bytes"
	"encoding/binary"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/common"
	"github.com/vkngwrapper/core/core1_0"

	"github.com/vkngwrapper/incipisphere/internal/mesh"
	"github.com/vkngwrapper/incipisphere/internal/uniform"
)

func (d *Device) createBuffer(size int, usage core1_0.BufferUsageFlags, properties core1_0.MemoryPropertyFlags) (core1_0.Buffer, core1_0.DeviceMemory, error) {
	buffer, _, err := d.device.CreateBuffer(nil, core1_0.BufferCreateInfo{
		Size:        size,
		Usage:       usage,
		SharingMode: core1_0.SharingModeExclusive,
	})
	if err != nil {
		return nil, nil, err
	}

	memRequirements := buffer.MemoryRequirements()
	memoryTypeIndex, err := d.findMemoryType(memRequirements.MemoryTypeBits, properties)
	if err != nil {
		buffer.Destroy(nil)
		return nil, nil, err
	}

	memory, _, err := d.device.AllocateMemory(nil, core1_0.MemoryAllocateInfo{
		AllocationSize:  memRequirements.Size,
		MemoryTypeIndex: memoryTypeIndex,
	})
	if err != nil {
		buffer.Destroy(nil)
		return nil, nil, err
	}

	if _, err = buffer.BindBufferMemory(memory, 0); err != nil {
		buffer.Destroy(nil)
		memory.Free(nil)
		return nil, nil, err
	}
	return buffer, memory, nil
}

// writeData encodes data into memory through a temporary mapping.
func writeData(memory core1_0.DeviceMemory, offset int, data any) error {
	bufferSize := binary.Size(data)

	memoryPtr, _, err := memory.Map(offset, bufferSize, 0)
	if err != nil {
		return err
	}
	defer memory.Unmap()

	dataBuffer := unsafe.Slice((*byte)(memoryPtr), bufferSize)

	buf := &bytes.Buffer{}
	if err := binary.Write(buf, common.ByteOrder, data); err != nil {
		return err
	}

	copy(dataBuffer, buf.Bytes())
	return nil
}

// vertexBuffer is the device-local sphere mesh every entity draws.
type vertexBuffer struct {
	buffer core1_0.Buffer
	memory core1_0.DeviceMemory
	count  int
}

// uploadVertices stages vertices through a host-visible buffer into
// device-local memory.
func (d *Device) uploadVertices(vertices []mesh.Vertex) (*vertexBuffer, error) {
	if len(vertices) == 0 {
		return nil, errors.New("mesh has no vertices")
	}
	bufferSize := binary.Size(vertices)

	stagingBuffer, stagingMemory, err := d.createBuffer(bufferSize, core1_0.BufferUsageTransferSrc, core1_0.MemoryPropertyHostVisible|core1_0.MemoryPropertyHostCoherent)
	if err != nil {
		return nil, errors.Wrap(err, "create staging buffer")
	}
	defer stagingBuffer.Destroy(nil)
	defer stagingMemory.Free(nil)

	if err := writeData(stagingMemory, 0, vertices); err != nil {
		return nil, errors.Wrap(err, "write staging buffer")
	}

	buffer, memory, err := d.createBuffer(bufferSize, core1_0.BufferUsageTransferDst|core1_0.BufferUsageVertexBuffer, core1_0.MemoryPropertyDeviceLocal)
	if err != nil {
		return nil, errors.Wrap(err, "create vertex buffer")
	}

	if err := d.copyBuffer(stagingBuffer, buffer, bufferSize); err != nil {
		buffer.Destroy(nil)
		memory.Free(nil)
		return nil, errors.Wrap(err, "copy vertex buffer")
	}
	return &vertexBuffer{buffer: buffer, memory: memory, count: len(vertices)}, nil
}

func (v *vertexBuffer) destroy() {
	if v == nil {
		return
	}
	v.buffer.Destroy(nil)
	v.memory.Free(nil)
}

// uniformBlock is a host-visible uniform buffer mapped for its whole life.
type uniformBlock struct {
	buffer core1_0.Buffer
	memory core1_0.DeviceMemory
	mapped []byte
}

func (b *uniformBlock) Write(offset int, data []byte) error {
	if offset < 0 || offset+len(data) > len(b.mapped) {
		return errors.Newf("uniform write [%d,%d) outside block of %d bytes", offset, offset+len(data), len(b.mapped))
	}
	copy(b.mapped[offset:], data)
	return nil
}

func (b *uniformBlock) Destroy() {
	b.memory.Unmap()
	b.mapped = nil
	b.buffer.Destroy(nil)
	b.memory.Free(nil)
}

// uniformAllocator creates coherent blocks so writes need no flush.
type uniformAllocator struct {
	dev *Device
}

func (a *uniformAllocator) Allocate(size int) (uniform.Block, error) {
	buffer, memory, err := a.dev.createBuffer(size, core1_0.BufferUsageUniformBuffer, core1_0.MemoryPropertyHostVisible|core1_0.MemoryPropertyHostCoherent)
	if err != nil {
		return nil, err
	}

	ptr, _, err := memory.Map(0, size, 0)
	if err != nil {
		buffer.Destroy(nil)
		memory.Free(nil)
		return nil, errors.Wrap(err, "map uniform block")
	}
	return &uniformBlock{
		buffer: buffer,
		memory: memory,
		mapped: unsafe.Slice((*byte)(ptr), size),
	}, nil
}

func (a *uniformAllocator) Alignment() int {
	return a.dev.uniformAlignment
}
