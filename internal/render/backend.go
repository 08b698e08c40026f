package render

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/vkngwrapper/incipisphere/internal/binding"
	"github.com/vkngwrapper/incipisphere/internal/future"
	"github.com/vkngwrapper/incipisphere/internal/scene"
	"github.com/vkngwrapper/incipisphere/internal/uniform"
)

type Extent struct {
	Width  int
	Height int
}

// IsZero is true for a minimized window. Nothing can be built at that size.
func (e Extent) IsZero() bool {
	return e.Width <= 0 || e.Height <= 0
}

func (e Extent) Aspect() float32 {
	if e.Height == 0 {
		return 1
	}
	return float32(e.Width) / float32(e.Height)
}

// Pipeline is an opaque backend pipeline handle.
type Pipeline any

// Shaders is opaque loaded shader code. The backend keeps no reference to
// it, so a candidate that fails to build can be dropped.
type Shaders any

// PipelineSet holds one pipeline per render mode, built against the same chain.
type PipelineSet struct {
	Standard  Pipeline
	Wireframe Pipeline
}

func (p PipelineSet) Select(mode scene.RenderMode) Pipeline {
	if mode == scene.Wireframe {
		return p.Wireframe
	}
	return p.Standard
}

// Chain is a swapchain together with everything sized to it: image views,
// the depth attachment and one framebuffer per image.
type Chain interface {
	Extent() Extent
	ImageCount() int
	FramebufferCount() int
	// AcquireNextImage blocks without timeout. The token carries the signal
	// that the image is ready. A stale chain fails with ErrOutOfDate.
	AcquireNextImage() (int, *future.Token, error)
}

// Recorder records one frame's commands.
type Recorder interface {
	BeginRenderPass(imageIndex int, clear mgl32.Vec4, depth float32) error
	// BindPipeline binds the pipeline and the sphere vertex buffer.
	BindPipeline(p Pipeline)
	SetViewport(extent Extent)
	// BindUniforms binds a set with the transform and color dynamic offsets.
	BindUniforms(set binding.Set, transformOffset, colorOffset int)
	Draw()
	EndRenderPass()
	End() error
}

// Backend is the GPU API the renderer drives.
type Backend interface {
	DrawableExtent() Extent

	// CreateChain builds a chain for extent, retiring old when non-nil. old
	// stays valid until DestroyChain.
	CreateChain(extent Extent, old Chain) (Chain, error)
	DestroyChain(c Chain)

	LoadShaders() (Shaders, error)
	BuildPipeline(c Chain, shaders Shaders, wireframe bool) (Pipeline, error)
	DestroyPipeline(p Pipeline)

	BeginCommands(c Chain) (Recorder, error)
	// Submit waits on token's semaphores, records the submission on token
	// with the release hooks and presents imageIndex. suboptimal reports a
	// successful present to a chain that should be rebuilt. A stale present
	// fails with ErrOutOfDate after the submission has been recorded.
	Submit(c Chain, rec Recorder, imageIndex int, token *future.Token, release ...func()) (suboptimal bool, err error)

	Uniforms() uniform.Allocator
	Bindings() binding.Allocator

	WaitIdle() error
}
