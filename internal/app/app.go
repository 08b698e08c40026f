// Package app owns the SDL window and runs the poll, update and draw loop.
package app

import (
	"github.com/charmbracelet/log"
	"github.com/cockroachdb/errors"
	"github.com/veandco/go-sdl2/sdl"

	"github.com/vkngwrapper/incipisphere/internal/assets"
	"github.com/vkngwrapper/incipisphere/internal/config"
	"github.com/vkngwrapper/incipisphere/internal/logging"
	"github.com/vkngwrapper/incipisphere/internal/mesh"
	"github.com/vkngwrapper/incipisphere/internal/mesh/objmesh"
	"github.com/vkngwrapper/incipisphere/internal/render"
	"github.com/vkngwrapper/incipisphere/internal/scene"
	"github.com/vkngwrapper/incipisphere/internal/vulkan"
)

type App struct {
	cfg *config.Config
	log *log.Logger

	window   *sdl.Window
	backend  *vulkan.Backend
	renderer *render.Renderer
	watcher  *assets.Watcher
	state    *scene.State
	input    inputState
}

// Run blocks until the window is closed or drawing fails.
func Run(cfg *config.Config) error {
	app := &App{cfg: cfg, log: logging.Component("app")}

	err := app.init()
	defer app.cleanup()
	if err != nil {
		return err
	}

	return app.mainLoop()
}

func (app *App) init() error {
	tracking, err := parseTracking(app.cfg.Camera.Tracking)
	if err != nil {
		return err
	}
	app.state = scene.NewState(tracking)

	vertices, err := loadMesh(app.cfg.Mesh)
	if err != nil {
		return err
	}
	app.log.Info("mesh loaded", "vertices", len(vertices))

	if err := sdl.Init(sdl.INIT_VIDEO); err != nil {
		return errors.Wrap(err, "init sdl")
	}

	app.window, err = sdl.CreateWindow(app.cfg.Window.Title, sdl.WINDOWPOS_UNDEFINED, sdl.WINDOWPOS_UNDEFINED,
		int32(app.cfg.Window.Width), int32(app.cfg.Window.Height),
		sdl.WINDOW_SHOWN|sdl.WINDOW_VULKAN|sdl.WINDOW_RESIZABLE)
	if err != nil {
		return errors.Wrap(err, "create window")
	}

	app.backend, err = vulkan.NewBackend(app.window, vertices, vulkan.Options{
		AppName:        app.cfg.Window.Title,
		Validation:     app.cfg.Renderer.Validation,
		VertexShader:   app.cfg.Shaders.Vertex,
		FragmentShader: app.cfg.Shaders.Fragment,
		Fallback: render.Extent{
			Width:  app.cfg.Renderer.FallbackWidth,
			Height: app.cfg.Renderer.FallbackHeight,
		},
		Logger: logging.Component("vulkan"),
	})
	if err != nil {
		return errors.Wrap(err, "create vulkan backend")
	}

	app.renderer, err = render.New(app.backend, render.Options{
		FramesInFlight:  app.cfg.Renderer.FramesInFlight,
		MaxStaleRetries: app.cfg.Renderer.MaxStaleRetries,
		SlotsPerBlock:   app.cfg.Renderer.SlotsPerBlock,
		StatsInterval:   app.cfg.Log.StatsInterval.Duration,
		Logger:          logging.Component("renderer"),
	})
	if err != nil {
		return errors.Wrap(err, "create renderer")
	}

	if app.cfg.Shaders.Watch {
		app.watcher, err = assets.NewWatcher(logging.Component("assets"), app.cfg.Shaders.Vertex, app.cfg.Shaders.Fragment)
		if err != nil {
			// reload is a convenience; keep running without it
			app.log.Warn("shader watching disabled", "err", err)
			app.watcher = nil
		}
	}
	return nil
}

func (app *App) mainLoop() error {
	for {
		in := app.input.poll()
		if in.Quit {
			break
		}
		app.state.Update(in)

		err := app.renderer.Draw(app.state.Snapshot())
		var targetErr *scene.CameraTargetError
		if errors.As(err, &targetErr) {
			app.log.Warn("frame skipped", "err", err)
		} else if err != nil {
			return err
		}

		if app.watcher != nil && app.watcher.Changed() {
			if err := app.renderer.ReloadShaders(); err != nil {
				app.log.Error("shader reload failed, keeping previous pipelines", "err", err)
			}
		}
	}

	stats := app.renderer.Stats()
	app.log.Info("exiting",
		"frames", stats.Frames,
		"recreations", stats.Recreations,
		"stale_retries", stats.StaleRetries,
		"dropped", stats.DroppedFrames)
	return nil
}

// cleanup tears down in reverse order and tolerates a partial init.
func (app *App) cleanup() {
	if app.watcher != nil {
		if err := app.watcher.Close(); err != nil {
			app.log.Error("close shader watcher", "err", err)
		}
	}
	if app.renderer != nil {
		if err := app.renderer.Close(); err != nil {
			app.log.Error("close renderer", "err", err)
		}
	}
	if app.backend != nil {
		app.backend.Close()
	}
	if app.window != nil {
		app.window.Destroy()
	}
	sdl.Quit()
}

func parseTracking(name string) (scene.Tracking, error) {
	switch name {
	case config.TrackingTrack:
		return scene.TrackEntity, nil
	case config.TrackingSnapshot:
		return scene.SnapshotEntity, nil
	}
	return 0, errors.Newf("unknown camera tracking %q", name)
}

func loadMesh(cfg config.Mesh) ([]mesh.Vertex, error) {
	if cfg.Path != "" {
		vertices, err := objmesh.Load(cfg.Path)
		if err != nil {
			return nil, errors.Wrapf(err, "load mesh %s", cfg.Path)
		}
		return vertices, nil
	}
	return mesh.IcoSphere(cfg.Subdivisions), nil
}
