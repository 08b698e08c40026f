package app

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/veandco/go-sdl2/sdl"

	"github.com/vkngwrapper/incipisphere/internal/config"
	"github.com/vkngwrapper/incipisphere/internal/scene"
)

func key(sym sdl.Keycode) *sdl.KeyboardEvent {
	return &sdl.KeyboardEvent{Type: sdl.KEYDOWN, Keysym: sdl.Keysym{Sym: sym}}
}

func TestInputHandle(t *testing.T) {
	tests := []struct {
		name   string
		events []sdl.Event
		want   scene.Input
	}{
		{"quit", []sdl.Event{&sdl.QuitEvent{}}, scene.Input{Quit: true}},
		{"escape", []sdl.Event{key(sdl.K_ESCAPE)}, scene.Input{Quit: true}},
		{"resize", []sdl.Event{&sdl.WindowEvent{Event: sdl.WINDOWEVENT_RESIZED}}, scene.Input{Resized: true}},
		{"size changed", []sdl.Event{&sdl.WindowEvent{Event: sdl.WINDOWEVENT_SIZE_CHANGED}}, scene.Input{Resized: true}},
		{"toggle", []sdl.Event{key(sdl.K_z)}, scene.Input{ToggleRenderMode: true}},
		{"tab focus", []sdl.Event{key(sdl.K_TAB)}, scene.Input{CycleFocus: true}},
		{"right click focus", []sdl.Event{&sdl.MouseButtonEvent{Button: sdl.BUTTON_RIGHT, State: sdl.PRESSED}}, scene.Input{CycleFocus: true}},
		{"key repeat ignored", []sdl.Event{&sdl.KeyboardEvent{Type: sdl.KEYDOWN, Repeat: 1, Keysym: sdl.Keysym{Sym: sdl.K_z}}}, scene.Input{}},
		{"key up ignored", []sdl.Event{&sdl.KeyboardEvent{Type: sdl.KEYUP, Keysym: sdl.Keysym{Sym: sdl.K_z}}}, scene.Input{}},
		{"motion without drag", []sdl.Event{&sdl.MouseMotionEvent{XRel: 5, YRel: 3}}, scene.Input{}},
		{
			"drag accumulates",
			[]sdl.Event{
				&sdl.MouseButtonEvent{Button: sdl.BUTTON_LEFT, State: sdl.PRESSED},
				&sdl.MouseMotionEvent{XRel: 5, YRel: 3},
				&sdl.MouseMotionEvent{XRel: -1, YRel: 1},
				&sdl.MouseButtonEvent{Button: sdl.BUTTON_LEFT, State: sdl.RELEASED},
				&sdl.MouseMotionEvent{XRel: 100, YRel: 100},
			},
			scene.Input{Drag: mgl32.Vec2{4, 4}},
		},
		{"wheel", []sdl.Event{&sdl.MouseWheelEvent{Y: 1}, &sdl.MouseWheelEvent{Y: 2}}, scene.Input{Scroll: 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s inputState
			var got scene.Input
			for _, e := range tt.events {
				s.handle(e, &got)
			}
			if got != tt.want {
				t.Errorf("input = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestMoveAxes(t *testing.T) {
	keys := make([]uint8, sdl.NUM_SCANCODES)
	if got := moveAxes(keys); got != (mgl32.Vec2{}) {
		t.Errorf("no keys = %v, want zero", got)
	}

	keys[sdl.SCANCODE_W] = 1
	keys[sdl.SCANCODE_D] = 1
	if got, want := moveAxes(keys), (mgl32.Vec2{1, 1}); got != want {
		t.Errorf("W+D = %v, want %v", got, want)
	}

	keys[sdl.SCANCODE_A] = 1
	keys[sdl.SCANCODE_S] = 1
	if got := moveAxes(keys); got != (mgl32.Vec2{}) {
		t.Errorf("all keys = %v, want zero", got)
	}

	if got := moveAxes(nil); got != (mgl32.Vec2{}) {
		t.Errorf("nil state = %v, want zero", got)
	}
}

func TestParseTracking(t *testing.T) {
	tests := []struct {
		in      string
		want    scene.Tracking
		wantErr bool
	}{
		{config.TrackingTrack, scene.TrackEntity, false},
		{config.TrackingSnapshot, scene.SnapshotEntity, false},
		{"orbit", 0, true},
	}
	for _, tt := range tests {
		got, err := parseTracking(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("parseTracking(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("parseTracking(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLoadMeshIcoSphere(t *testing.T) {
	vertices, err := loadMesh(config.Mesh{Subdivisions: 1})
	if err != nil {
		t.Fatalf("loadMesh() error = %v", err)
	}
	if got, want := len(vertices), 240; got != want {
		t.Errorf("vertices = %d, want %d", got, want)
	}

	if _, err := loadMesh(config.Mesh{Path: "does-not-exist.obj"}); err == nil {
		t.Error("loadMesh() with missing file succeeded")
	}
}
