package vulkan

import (
	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/vkngwrapper/core/core1_0"

	"github.com/vkngwrapper/incipisphere/internal/binding"
	"github.com/vkngwrapper/incipisphere/internal/render"
)

func (d *Device) allocateCommandBuffer() (core1_0.CommandBuffer, error) {
	buffers, _, err := d.device.AllocateCommandBuffers(core1_0.CommandBufferAllocateInfo{
		CommandPool:        d.commandPool,
		Level:              core1_0.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	})
	if err != nil {
		return nil, err
	}
	return buffers[0], nil
}

func (d *Device) beginSingleTimeCommands() (core1_0.CommandBuffer, error) {
	buffer, err := d.allocateCommandBuffer()
	if err != nil {
		return nil, err
	}

	_, err = buffer.Begin(core1_0.CommandBufferBeginInfo{
		Flags: core1_0.CommandBufferUsageOneTimeSubmit,
	})
	return buffer, err
}

func (d *Device) endSingleTimeCommands(buffer core1_0.CommandBuffer) error {
	defer d.device.FreeCommandBuffers([]core1_0.CommandBuffer{buffer})

	if _, err := buffer.End(); err != nil {
		return err
	}

	_, err := d.queue.Submit(nil, []core1_0.SubmitInfo{
		{
			CommandBuffers: []core1_0.CommandBuffer{buffer},
		},
	})
	if err != nil {
		return err
	}

	_, err = d.queue.WaitIdle()
	return err
}

func (d *Device) copyBuffer(srcBuffer core1_0.Buffer, dstBuffer core1_0.Buffer, size int) error {
	buffer, err := d.beginSingleTimeCommands()
	if err != nil {
		return err
	}

	err = buffer.CmdCopyBuffer(srcBuffer, dstBuffer, []core1_0.BufferCopy{
		{
			SrcOffset: 0,
			DstOffset: 0,
			Size:      size,
		},
	})
	if err != nil {
		d.device.FreeCommandBuffers([]core1_0.CommandBuffer{buffer})
		return err
	}

	return d.endSingleTimeCommands(buffer)
}

// recorder records one frame into a fresh one-time command buffer.
type recorder struct {
	dev      *Device
	chain    *Swapchain
	layout   *pipelineLayout
	vertices *vertexBuffer
	buffer   core1_0.CommandBuffer
}

func (r *recorder) BeginRenderPass(imageIndex int, clear mgl32.Vec4, depth float32) error {
	if imageIndex < 0 || imageIndex >= len(r.chain.framebuffers) {
		return errors.Newf("image index %d outside %d framebuffers", imageIndex, len(r.chain.framebuffers))
	}

	return r.buffer.CmdBeginRenderPass(core1_0.SubpassContentsInline,
		core1_0.RenderPassBeginInfo{
			RenderPass:  r.chain.renderPass,
			Framebuffer: r.chain.framebuffers[imageIndex],
			RenderArea: core1_0.Rect2D{
				Offset: core1_0.Offset2D{X: 0, Y: 0},
				Extent: r.chain.extent,
			},
			ClearValues: []core1_0.ClearValue{
				core1_0.ClearValueFloat{clear[0], clear[1], clear[2], clear[3]},
				core1_0.ClearValueDepthStencil{Depth: depth, Stencil: 0},
			},
		})
}

func (r *recorder) BindPipeline(p render.Pipeline) {
	r.buffer.CmdBindPipeline(core1_0.PipelineBindPointGraphics, p.(*Pipeline).pipeline)
	r.buffer.CmdBindVertexBuffers(0, []core1_0.Buffer{r.vertices.buffer}, []int{0})
}

func (r *recorder) SetViewport(extent render.Extent) {
	r.buffer.CmdSetViewport([]core1_0.Viewport{
		fullViewport(core1_0.Extent2D{Width: extent.Width, Height: extent.Height}),
	})
}

func (r *recorder) BindUniforms(set binding.Set, transformOffset, colorOffset int) {
	r.buffer.CmdBindDescriptorSets(core1_0.PipelineBindPointGraphics, r.layout.layout,
		[]core1_0.DescriptorSet{set.(*descriptorSet).set},
		[]int{transformOffset, colorOffset})
}

func (r *recorder) Draw() {
	r.buffer.CmdDraw(r.vertices.count, 1, 0, 0)
}

func (r *recorder) EndRenderPass() {
	r.buffer.CmdEndRenderPass()
}

func (r *recorder) End() error {
	_, err := r.buffer.End()
	return err
}

func (r *recorder) free() {
	r.dev.device.FreeCommandBuffers([]core1_0.CommandBuffer{r.buffer})
}
