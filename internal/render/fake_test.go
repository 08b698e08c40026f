package render

import (
	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/vkngwrapper/incipisphere/internal/binding"
	"github.com/vkngwrapper/incipisphere/internal/future"
	"github.com/vkngwrapper/incipisphere/internal/uniform"
)

type fakeFence struct {
	signaled bool
}

func (f *fakeFence) Signaled() (bool, error) { return f.signaled, nil }

func (f *fakeFence) Wait() error {
	f.signaled = true
	return nil
}

type fakeChain struct {
	id           int
	extent       Extent
	images       int
	framebuffers int
	backend      *fakeBackend
	destroyed    bool
}

func (c *fakeChain) Extent() Extent        { return c.extent }
func (c *fakeChain) ImageCount() int       { return c.images }
func (c *fakeChain) FramebufferCount() int { return c.framebuffers }

func (c *fakeChain) AcquireNextImage() (int, *future.Token, error) {
	b := c.backend
	b.acquires++
	if b.staleAcquires > 0 {
		b.staleAcquires--
		return 0, nil, MarkOutOfDate(errors.New("acquire: out of date"))
	}
	idx := b.nextImage % c.images
	b.nextImage++
	return idx, future.Acquired(idx, func() { b.acquireReleases++ }), nil
}

type fakeShaders struct {
	version int
	broken  bool
}

type fakePipeline struct {
	wireframe bool
	chain     int
	shaders   int
}

type fakeRecorder struct {
	bound     []Pipeline
	draws     int
	viewports []Extent
	offsets   [][2]int
	ended     bool
}

func (r *fakeRecorder) BeginRenderPass(int, mgl32.Vec4, float32) error { return nil }
func (r *fakeRecorder) BindPipeline(p Pipeline)                        { r.bound = append(r.bound, p) }
func (r *fakeRecorder) SetViewport(e Extent)                           { r.viewports = append(r.viewports, e) }
func (r *fakeRecorder) BindUniforms(_ binding.Set, t, c int) {
	r.offsets = append(r.offsets, [2]int{t, c})
}
func (r *fakeRecorder) Draw()          { r.draws++ }
func (r *fakeRecorder) EndRenderPass() {}
func (r *fakeRecorder) End() error {
	r.ended = true
	return nil
}

type fakeBlock struct{ data []byte }

func (b *fakeBlock) Write(offset int, data []byte) error {
	copy(b.data[offset:], data)
	return nil
}
func (b *fakeBlock) Destroy() {}

type fakeUniforms struct{}

func (fakeUniforms) Allocate(size int) (uniform.Block, error) {
	return &fakeBlock{data: make([]byte, size)}, nil
}
func (fakeUniforms) Alignment() int { return 256 }

type fakeBindings struct{ live int }

func (b *fakeBindings) Allocate(uniform.Block, uniform.Block) (binding.Set, error) {
	b.live++
	return b.live, nil
}
func (b *fakeBindings) Free(sets []binding.Set) { b.live -= len(sets) }

// fakeBackend derives image counts from the extent so that rebuilds at
// different sizes produce different chains.
type fakeBackend struct {
	drawable Extent

	chains         []*fakeChain
	pipelineBuilds int
	pipelinesLive  int
	recorders      []*fakeRecorder
	submits        int
	fences         []*fakeFence
	holdFences     bool

	acquires        int
	acquireReleases int
	nextImage       int
	staleAcquires   int
	stalePresents   int
	suboptimal      int
	beginErr        error
	lastWaits       int

	shaderLoads   int
	loadErr       error
	brokenShaders bool

	bindings *fakeBindings
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		drawable: Extent{Width: 1024, Height: 768},
		bindings: &fakeBindings{},
	}
}

func (b *fakeBackend) DrawableExtent() Extent { return b.drawable }

func (b *fakeBackend) CreateChain(extent Extent, old Chain) (Chain, error) {
	images := 2 + extent.Width%3
	c := &fakeChain{
		id:           len(b.chains),
		extent:       extent,
		images:       images,
		framebuffers: images,
		backend:      b,
	}
	b.chains = append(b.chains, c)
	return c, nil
}

func (b *fakeBackend) DestroyChain(c Chain) { c.(*fakeChain).destroyed = true }

// LoadShaders hands out a new version per call. brokenShaders marks the
// loaded code as unbuildable.
func (b *fakeBackend) LoadShaders() (Shaders, error) {
	if b.loadErr != nil {
		return nil, b.loadErr
	}
	b.shaderLoads++
	return &fakeShaders{version: b.shaderLoads, broken: b.brokenShaders}, nil
}

func (b *fakeBackend) BuildPipeline(c Chain, shaders Shaders, wireframe bool) (Pipeline, error) {
	code := shaders.(*fakeShaders)
	if code.broken {
		return nil, errors.Newf("pipeline rejects shader version %d", code.version)
	}
	b.pipelineBuilds++
	b.pipelinesLive++
	return &fakePipeline{wireframe: wireframe, chain: c.(*fakeChain).id, shaders: code.version}, nil
}

func (b *fakeBackend) DestroyPipeline(Pipeline) { b.pipelinesLive-- }

func (b *fakeBackend) BeginCommands(Chain) (Recorder, error) {
	if err := b.beginErr; err != nil {
		b.beginErr = nil
		return nil, err
	}
	rec := &fakeRecorder{}
	b.recorders = append(b.recorders, rec)
	return rec, nil
}

func (b *fakeBackend) Submit(c Chain, rec Recorder, imageIndex int, token *future.Token, release ...func()) (bool, error) {
	b.submits++
	b.lastWaits = len(token.Semaphores())
	fence := &fakeFence{signaled: !b.holdFences}
	b.fences = append(b.fences, fence)
	token.Then(fence, release...)

	if b.stalePresents > 0 {
		b.stalePresents--
		return false, MarkOutOfDate(errors.New("present: out of date"))
	}
	if b.suboptimal > 0 {
		b.suboptimal--
		return true, nil
	}
	return false, nil
}

func (b *fakeBackend) Uniforms() uniform.Allocator { return fakeUniforms{} }
func (b *fakeBackend) Bindings() binding.Allocator { return b.bindings }

func (b *fakeBackend) WaitIdle() error { return nil }

func (b *fakeBackend) lastRecorder() *fakeRecorder {
	if len(b.recorders) == 0 {
		return nil
	}
	return b.recorders[len(b.recorders)-1]
}
