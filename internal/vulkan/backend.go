package vulkan

import (
	"github.com/charmbracelet/log"
	"github.com/cockroachdb/errors"
	"github.com/veandco/go-sdl2/sdl"
	"github.com/vkngwrapper/core/core1_0"
	"github.com/vkngwrapper/extensions/khr_swapchain"

	"github.com/vkngwrapper/incipisphere/internal/binding"
	"github.com/vkngwrapper/incipisphere/internal/future"
	"github.com/vkngwrapper/incipisphere/internal/mesh"
	"github.com/vkngwrapper/incipisphere/internal/render"
	"github.com/vkngwrapper/incipisphere/internal/uniform"
)

const (
	transformSize = 64 // mat4
	colorSize     = 16 // vec4
)

type Options struct {
	AppName        string
	Validation     bool
	VertexShader   string
	FragmentShader string
	// Fallback is used when the surface leaves the extent to us and the
	// window reports a zero drawable size.
	Fallback render.Extent
	Logger   *log.Logger
}

// Backend drives a Device for the renderer.
type Backend struct {
	opts Options
	log  *log.Logger

	dev        *Device
	layout     *pipelineLayout
	vertices   *vertexBuffer
	semaphores *semaphorePool
	fences     *fencePool
	uniforms   *uniformAllocator
	bindings   *bindingAllocator
}

var _ render.Backend = (*Backend)(nil)

// NewBackend creates the device and uploads vertices. The same vertices are
// drawn once per entity.
func NewBackend(window *sdl.Window, vertices []mesh.Vertex, opts Options) (*Backend, error) {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	b := &Backend{opts: opts, log: opts.Logger}

	var err error
	b.dev, err = NewDevice(window, opts.AppName, opts.Validation, opts.Logger)
	if err != nil {
		return nil, err
	}

	b.semaphores = &semaphorePool{device: b.dev.device}
	b.fences = &fencePool{device: b.dev.device}
	b.uniforms = &uniformAllocator{dev: b.dev}

	b.layout, err = b.dev.createPipelineLayout()
	if err != nil {
		b.Close()
		return nil, err
	}
	b.bindings = &bindingAllocator{
		dev:           b.dev,
		layout:        b.layout,
		transformSize: transformSize,
		colorSize:     colorSize,
	}

	b.vertices, err = b.dev.uploadVertices(vertices)
	if err != nil {
		b.Close()
		return nil, err
	}
	b.log.Debug("vertex buffer uploaded", "vertices", len(vertices))
	return b, nil
}

// DrawableExtent is zero while the window is minimized.
func (b *Backend) DrawableExtent() render.Extent {
	if (b.dev.window.GetFlags() & sdl.WINDOW_MINIMIZED) != 0 {
		return render.Extent{}
	}
	w, h := b.dev.window.VulkanGetDrawableSize()
	return render.Extent{Width: int(w), Height: int(h)}
}

func (b *Backend) CreateChain(extent render.Extent, old render.Chain) (render.Chain, error) {
	var oldChain *Swapchain
	if old != nil {
		oldChain = old.(*Swapchain)
	}
	chain, err := newSwapchain(b.dev, b.semaphores, extent, b.opts.Fallback, oldChain)
	if err != nil {
		return nil, err
	}
	return chain, nil
}

// DestroyChain waits for the device first, since presents queued against the
// chain are not covered by any fence.
func (b *Backend) DestroyChain(c render.Chain) {
	if c == nil {
		return
	}
	if err := b.dev.WaitIdle(); err != nil {
		b.log.Error("wait for device idle", "err", err)
	}
	c.(*Swapchain).destroy()
}

// LoadShaders reads the SPIR-V pair from the configured paths.
func (b *Backend) LoadShaders() (render.Shaders, error) {
	code, err := loadShaderCode(b.opts.VertexShader, b.opts.FragmentShader)
	if err != nil {
		return nil, err
	}
	return code, nil
}

func (b *Backend) BuildPipeline(c render.Chain, shaders render.Shaders, wireframe bool) (render.Pipeline, error) {
	code, ok := shaders.(*shaderCode)
	if !ok {
		return nil, errors.Newf("shaders %T were not loaded by this backend", shaders)
	}
	p, err := b.dev.createPipeline(c.(*Swapchain), b.layout, code, wireframe)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (b *Backend) DestroyPipeline(p render.Pipeline) {
	if p == nil {
		return
	}
	p.(*Pipeline).destroy()
}

func (b *Backend) BeginCommands(c render.Chain) (render.Recorder, error) {
	buffer, err := b.dev.allocateCommandBuffer()
	if err != nil {
		return nil, errors.Wrap(err, "allocate command buffer")
	}
	rec := &recorder{
		dev:      b.dev,
		chain:    c.(*Swapchain),
		layout:   b.layout,
		vertices: b.vertices,
		buffer:   buffer,
	}

	_, err = buffer.Begin(core1_0.CommandBufferBeginInfo{
		Flags: core1_0.CommandBufferUsageOneTimeSubmit,
	})
	if err != nil {
		rec.free()
		return nil, err
	}
	return rec, nil
}

func (b *Backend) Submit(c render.Chain, rec render.Recorder, imageIndex int, token *future.Token, release ...func()) (bool, error) {
	chain := c.(*Swapchain)
	r := rec.(*recorder)

	waits := token.Semaphores()
	waitSemaphores := make([]core1_0.Semaphore, 0, len(waits))
	waitStages := make([]core1_0.PipelineStageFlags, 0, len(waits))
	for _, s := range waits {
		waitSemaphores = append(waitSemaphores, s.(core1_0.Semaphore))
		waitStages = append(waitStages, core1_0.PipelineStageColorAttachmentOutput)
	}

	renderFinished, err := chain.presentSemaphore(imageIndex)
	if err != nil {
		r.free()
		return false, err
	}
	inFlight, err := b.fences.get()
	if err != nil {
		r.free()
		return false, err
	}

	_, err = b.dev.queue.Submit(inFlight.fence, []core1_0.SubmitInfo{
		{
			WaitSemaphores:   waitSemaphores,
			WaitDstStageMask: waitStages,
			CommandBuffers:   []core1_0.CommandBuffer{r.buffer},
			SignalSemaphores: []core1_0.Semaphore{renderFinished},
		},
	})
	if err != nil {
		b.fences.discard(inFlight)
		r.free()
		return false, errors.Wrap(err, "submit draw command buffer")
	}

	hooks := append(append([]func(){}, release...),
		r.free,
		func() {
			if err := b.fences.put(inFlight); err != nil {
				b.log.Error("recycle fence", "err", err)
			}
		},
	)
	token.Then(inFlight, hooks...)

	res, err := b.dev.swapchainExtension.QueuePresent(b.dev.queue, khr_swapchain.PresentInfo{
		WaitSemaphores: []core1_0.Semaphore{renderFinished},
		Swapchains:     []khr_swapchain.Swapchain{chain.swapchain},
		ImageIndices:   []int{imageIndex},
	})
	if res == khr_swapchain.VKErrorOutOfDate {
		return false, render.MarkOutOfDate(errors.New("present: swapchain out of date"))
	} else if err != nil {
		return false, errors.Wrap(err, "present")
	}
	return res == khr_swapchain.VKSuboptimal, nil
}

func (b *Backend) Uniforms() uniform.Allocator { return b.uniforms }

func (b *Backend) Bindings() binding.Allocator { return b.bindings }

func (b *Backend) WaitIdle() error {
	return b.dev.WaitIdle()
}

// Close releases everything the backend created. The renderer must already
// be closed so no chain, pipeline, set or block is still alive.
func (b *Backend) Close() {
	if b.dev == nil {
		return
	}
	if err := b.dev.WaitIdle(); err != nil {
		b.log.Error("wait for device idle", "err", err)
	}
	if b.bindings != nil {
		b.bindings.destroy()
	}
	b.vertices.destroy()
	b.layout.destroy()
	if b.fences != nil {
		b.fences.destroy()
	}
	if b.semaphores != nil {
		b.semaphores.destroy()
	}
	b.dev.Destroy()
	b.dev = nil
}
