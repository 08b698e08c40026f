package app

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/veandco/go-sdl2/sdl"

	"github.com/vkngwrapper/incipisphere/internal/scene"
)

// inputState turns a tick's SDL events into a scene.Input. dragging
// survives across ticks.
type inputState struct {
	dragging bool
}

func (s *inputState) handle(event sdl.Event, in *scene.Input) {
	switch e := event.(type) {
	case *sdl.QuitEvent:
		in.Quit = true

	case *sdl.WindowEvent:
		switch e.Event {
		case sdl.WINDOWEVENT_RESIZED, sdl.WINDOWEVENT_SIZE_CHANGED, sdl.WINDOWEVENT_RESTORED:
			in.Resized = true
		}

	case *sdl.KeyboardEvent:
		if e.Type != sdl.KEYDOWN || e.Repeat != 0 {
			return
		}
		switch e.Keysym.Sym {
		case sdl.K_z:
			in.ToggleRenderMode = true
		case sdl.K_TAB:
			in.CycleFocus = true
		case sdl.K_ESCAPE:
			in.Quit = true
		}

	case *sdl.MouseButtonEvent:
		switch e.Button {
		case sdl.BUTTON_LEFT:
			s.dragging = e.State == sdl.PRESSED
		case sdl.BUTTON_RIGHT:
			if e.State == sdl.PRESSED {
				in.CycleFocus = true
			}
		}

	case *sdl.MouseMotionEvent:
		if s.dragging {
			in.Drag = in.Drag.Add(mgl32.Vec2{float32(e.XRel), float32(e.YRel)})
		}

	case *sdl.MouseWheelEvent:
		in.Scroll += float32(e.Y)
	}
}

// moveAxes reads WASD out of a keyboard state array indexed by scancode.
func moveAxes(keys []uint8) mgl32.Vec2 {
	pressed := func(code sdl.Scancode) float32 {
		if int(code) < len(keys) && keys[code] != 0 {
			return 1
		}
		return 0
	}
	return mgl32.Vec2{
		pressed(sdl.SCANCODE_D) - pressed(sdl.SCANCODE_A),
		pressed(sdl.SCANCODE_W) - pressed(sdl.SCANCODE_S),
	}
}

// poll drains the SDL event queue.
func (s *inputState) poll() scene.Input {
	var in scene.Input
	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		s.handle(event, &in)
	}
	in.Move = moveAxes(sdl.GetKeyboardState())
	return in
}
