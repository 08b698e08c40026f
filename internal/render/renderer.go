// Package render draws scene snapshots through a Backend, rebuilding the
// swapchain whenever the surface goes stale.
package render

import (
	"time"

	"github.com/charmbracelet/log"
	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/loov/hrtime"

	"github.com/vkngwrapper/incipisphere/internal/binding"
	"github.com/vkngwrapper/incipisphere/internal/future"
	"github.com/vkngwrapper/incipisphere/internal/logging"
	"github.com/vkngwrapper/incipisphere/internal/scene"
	"github.com/vkngwrapper/incipisphere/internal/uniform"
)

var clearColor = mgl32.Vec4{0, 0, 0, 1}

const clearDepth = 1.0

type Options struct {
	// FramesInFlight of 1 waits for each frame to finish before Draw returns.
	FramesInFlight  int
	MaxStaleRetries int
	SlotsPerBlock   int
	StatsInterval   time.Duration
	Logger          *log.Logger
}

func (o Options) withDefaults() Options {
	if o.FramesInFlight < 1 {
		o.FramesInFlight = 1
	}
	if o.MaxStaleRetries < 1 {
		o.MaxStaleRetries = 8
	}
	if o.SlotsPerBlock < 1 {
		o.SlotsPerBlock = 256
	}
	if o.Logger == nil {
		o.Logger = logging.Component("renderer")
	}
	return o
}

type Renderer struct {
	backend Backend
	opts    Options
	log     *log.Logger

	shaders    Shaders
	chain      Chain
	pipelines  PipelineSet
	generation uint64

	transforms *uniform.Pool[mgl32.Mat4]
	colors     *uniform.Pool[mgl32.Vec4]
	bindings   *binding.Cache

	previous       *future.Token
	state          State
	rebuildPending bool

	stats Stats
	timer *frameTimer
}

// New builds the first chain and pipelines. The drawable must not be empty.
func New(backend Backend, opts Options) (*Renderer, error) {
	opts = opts.withDefaults()
	r := &Renderer{
		backend:  backend,
		opts:     opts,
		log:      opts.Logger,
		bindings: binding.NewCache(backend.Bindings()),
		previous: future.Now(),
		timer:    newFrameTimer(opts.StatsInterval),
	}

	var err error
	r.transforms, err = uniform.NewPool[mgl32.Mat4](backend.Uniforms(), opts.SlotsPerBlock)
	if err != nil {
		return nil, errors.Wrap(err, "transform pool")
	}
	r.colors, err = uniform.NewPool[mgl32.Vec4](backend.Uniforms(), opts.SlotsPerBlock)
	if err != nil {
		return nil, errors.Wrap(err, "color pool")
	}

	r.shaders, err = backend.LoadShaders()
	if err != nil {
		return nil, errors.Wrap(err, "load shaders")
	}

	extent := backend.DrawableExtent()
	r.chain, err = backend.CreateChain(extent, nil)
	if err != nil {
		return nil, errors.Wrap(err, "create swapchain")
	}
	r.pipelines, err = r.buildPipelines(r.chain, r.shaders)
	if err != nil {
		backend.DestroyChain(r.chain)
		return nil, err
	}
	r.generation = 1

	r.log.Info("renderer ready",
		"extent", r.chain.Extent(),
		"images", r.chain.ImageCount(),
		"frames_in_flight", opts.FramesInFlight)
	return r, nil
}

func (r *Renderer) buildPipelines(c Chain, shaders Shaders) (PipelineSet, error) {
	standard, err := r.backend.BuildPipeline(c, shaders, false)
	if err != nil {
		return PipelineSet{}, errors.Wrap(err, "build standard pipeline")
	}
	wireframe, err := r.backend.BuildPipeline(c, shaders, true)
	if err != nil {
		r.backend.DestroyPipeline(standard)
		return PipelineSet{}, errors.Wrap(err, "build wireframe pipeline")
	}
	return PipelineSet{Standard: standard, Wireframe: wireframe}, nil
}

func (r *Renderer) destroyPipelines(p PipelineSet) {
	if p.Standard != nil {
		r.backend.DestroyPipeline(p.Standard)
	}
	if p.Wireframe != nil {
		r.backend.DestroyPipeline(p.Wireframe)
	}
}

// Recreate rebuilds the chain and both pipelines at the current drawable
// size. It reports false without touching anything when the drawable is
// empty. The old chain and pipelines survive until the new ones are built.
func (r *Renderer) Recreate() (bool, error) {
	extent := r.backend.DrawableExtent()
	if extent.IsZero() {
		r.log.Debug("skipping swapchain rebuild for empty drawable", "extent", extent)
		return false, nil
	}

	if err := r.previous.Wait(); err != nil {
		return false, errors.Wrap(err, "wait for in-flight frames")
	}

	chain, err := r.backend.CreateChain(extent, r.chain)
	if err != nil {
		return false, errors.Wrap(err, "create swapchain")
	}
	pipelines, err := r.buildPipelines(chain, r.shaders)
	if err != nil {
		r.backend.DestroyChain(chain)
		return false, err
	}

	r.destroyPipelines(r.pipelines)
	r.backend.DestroyChain(r.chain)
	r.chain = chain
	r.pipelines = pipelines
	r.generation++
	r.bindings.Invalidate()
	r.rebuildPending = false
	r.stats.Recreations++

	r.log.Debug("swapchain rebuilt",
		"extent", chain.Extent(),
		"images", chain.ImageCount(),
		"generation", r.generation)
	return true, nil
}

// ReloadShaders rebuilds both pipelines from freshly loaded shader code.
// The new code replaces the current one only once both pipelines built, so
// after a failure the current shaders and pipelines stay in use, including
// for later rebuilds.
func (r *Renderer) ReloadShaders() error {
	candidate, err := r.backend.LoadShaders()
	if err != nil {
		return errors.Wrap(err, "reload shaders")
	}
	if err := r.previous.Wait(); err != nil {
		return errors.Wrap(err, "wait for in-flight frames")
	}
	pipelines, err := r.buildPipelines(r.chain, candidate)
	if err != nil {
		return err
	}

	r.destroyPipelines(r.pipelines)
	r.shaders = candidate
	r.pipelines = pipelines
	r.generation++
	r.bindings.Invalidate()
	r.log.Info("shaders reloaded", "generation", r.generation)
	return nil
}

// Draw renders one snapshot, rebuilding the chain and retrying while the
// surface reports it stale. Up to MaxStaleRetries rebuilds are absorbed per
// frame. A frame that cannot be drawn because the window is minimized is
// dropped without error.
func (r *Renderer) Draw(snap scene.Snapshot) error {
	start := hrtime.Now()

	// an empty drawable leaves the current chain in place; drawing on it
	// either works or reports it stale below
	if snap.WindowResized || r.rebuildPending {
		if _, err := r.Recreate(); err != nil {
			return err
		}
	}

	stale := 0
	for {
		err := r.drawInner(snap)
		if err == nil {
			break
		}
		if !errors.Is(err, ErrOutOfDate) {
			return err
		}

		stale++
		if stale > r.opts.MaxStaleRetries {
			return errors.Wrapf(ErrStaleSurface, "%d consecutive out of date frames", stale)
		}
		r.stats.StaleRetries++
		r.log.Debug("swapchain out of date, rebuilding", "attempt", stale)

		rebuilt, err := r.Recreate()
		if err != nil {
			return err
		}
		if !rebuilt {
			r.stats.DroppedFrames++
			r.state = Idle
			return nil
		}
		r.state = Idle
	}

	r.timer.record(hrtime.Since(start))
	r.timer.report(r.log, r.stats)
	return nil
}

func (r *Renderer) drawInner(snap scene.Snapshot) error {
	r.state = Idle
	if err := r.previous.CleanupFinished(); err != nil {
		return errors.Wrap(err, "clean up finished frames")
	}
	if r.opts.FramesInFlight > 1 {
		if err := r.previous.Drain(r.opts.FramesInFlight - 1); err != nil {
			return errors.Wrap(err, "drain frames in flight")
		}
	}

	target, err := snap.Camera.ResolveTarget(snap.Entities)
	if err != nil {
		return err
	}

	r.state = Acquiring
	imageIndex, acquired, err := r.chain.AcquireNextImage()
	if err != nil {
		if errors.Is(err, ErrOutOfDate) {
			r.state = OutOfDate
		}
		return err
	}

	r.state = Recording
	rec, err := r.record(snap, target, imageIndex)
	if err != nil {
		r.transforms.Discard()
		r.colors.Discard()
		// the acquire still signals; the next submission has to consume it
		r.previous.Join(acquired)
		return err
	}

	r.state = Submitting
	token := r.previous.Join(acquired)
	suboptimal, err := r.backend.Submit(r.chain, rec, imageIndex, token,
		r.transforms.Seal(),
		r.colors.Seal(),
		r.bindings.Sweep(),
	)
	if err != nil {
		if errors.Is(err, ErrOutOfDate) {
			r.state = OutOfDate
			return err
		}
		return errors.Wrap(err, "submit frame")
	}

	r.state = Presented
	r.stats.Frames++
	if suboptimal {
		r.rebuildPending = true
	}

	if r.opts.FramesInFlight == 1 {
		if err := r.previous.Wait(); err != nil {
			return errors.Wrap(err, "wait for frame")
		}
	}
	return nil
}

func (r *Renderer) record(snap scene.Snapshot, target mgl32.Vec3, imageIndex int) (Recorder, error) {
	rec, err := r.backend.BeginCommands(r.chain)
	if err != nil {
		return nil, errors.Wrap(err, "begin commands")
	}

	extent := r.chain.Extent()
	viewProjection := scene.ViewProjection(extent.Aspect(), snap.Camera.View(target))

	if err := rec.BeginRenderPass(imageIndex, clearColor, clearDepth); err != nil {
		return nil, errors.Wrap(err, "begin render pass")
	}
	rec.BindPipeline(r.pipelines.Select(snap.RenderMode))
	rec.SetViewport(extent)

	for _, e := range snap.Entities {
		transform, err := r.transforms.Next(scene.MVP(viewProjection, e.Location))
		if err != nil {
			return nil, err
		}
		color, err := r.colors.Next(e.Color())
		if err != nil {
			return nil, err
		}
		set, err := r.bindings.Get(binding.Key{Generation: r.generation, Entity: e.ID}, transform.Block, color.Block)
		if err != nil {
			return nil, errors.Wrapf(err, "bind entity %s", e.ID)
		}
		rec.BindUniforms(set, transform.Offset, color.Offset)
		rec.Draw()
	}

	rec.EndRenderPass()
	if err := rec.End(); err != nil {
		return nil, errors.Wrap(err, "end commands")
	}
	return rec, nil
}

// Close waits for the GPU and releases everything the renderer built.
func (r *Renderer) Close() error {
	err := r.backend.WaitIdle()
	if werr := r.previous.Wait(); err == nil {
		err = werr
	}

	r.bindings.Destroy()
	r.transforms.Destroy()
	r.colors.Destroy()
	r.destroyPipelines(r.pipelines)
	r.pipelines = PipelineSet{}
	if r.chain != nil {
		r.backend.DestroyChain(r.chain)
		r.chain = nil
	}
	return err
}

func (r *Renderer) State() State { return r.state }

func (r *Renderer) Chain() Chain { return r.chain }

func (r *Renderer) Pipelines() PipelineSet { return r.pipelines }

// Generation increases every time the pipelines are rebuilt.
func (r *Renderer) Generation() uint64 { return r.generation }

func (r *Renderer) Stats() Stats { return r.stats }

// InFlight is the number of submitted frames not yet known to be complete.
func (r *Renderer) InFlight() int { return r.previous.Pending() }
