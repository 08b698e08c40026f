package scene

import "github.com/go-gl/mathgl/mgl32"

// Tracking decides what happens to the camera when it focuses an entity.
type Tracking int

const (
	// TrackEntity keeps an EntityIndex target and re-resolves it every frame.
	TrackEntity Tracking = iota
	// SnapshotEntity converts the focused entity into a fixed direction once.
	SnapshotEntity
)

const (
	moveStep     = 0.1
	dragScale    = 40.0
	minFocusDist = 0.5
)

// Input is everything the host gathered from the window in one tick.
type Input struct {
	Quit             bool
	Resized          bool
	ToggleRenderMode bool
	CycleFocus       bool
	// Move holds the held movement keys, each axis in -1..1.
	Move mgl32.Vec2
	// Drag is mouse motion in pixels while the left button is held.
	Drag   mgl32.Vec2
	Scroll float32
}

// State owns the mutable scene and hands out one Snapshot per tick.
type State struct {
	camera   Camera
	mode     RenderMode
	entities []Entity
	resized  bool

	tracking Tracking
	focus    int
	freeLook mgl32.Vec3
}

func NewState(tracking Tracking) *State {
	return &State{
		camera: Camera{
			Eye:    mgl32.Vec3{0, 0, -8},
			Up:     mgl32.Vec3{0, -1, 0},
			LookAt: Direction{Vec: mgl32.Vec3{0, 0, 1}},
		},
		mode:     Standard,
		entities: Planets(),
		tracking: tracking,
		focus:    -1,
	}
}

func (s *State) Update(in Input) {
	s.resized = in.Resized

	if in.ToggleRenderMode {
		s.mode = s.mode.Toggle()
	}
	if in.CycleFocus {
		s.cycleFocus()
	}

	switch t := s.camera.LookAt.(type) {
	case Direction:
		t.Vec[0] += in.Drag.X() / dragScale
		t.Vec[1] -= in.Drag.Y() / dragScale
		s.camera.LookAt = t
		s.camera.Eye = s.camera.Eye.Add(mgl32.Vec3{in.Move.X() * moveStep, in.Move.Y() * moveStep, in.Scroll})
	case EntityIndex:
		if in.Scroll != 0 && int(t) < len(s.entities) {
			s.dolly(s.entities[t].Location, in.Scroll)
		}
	}
}

// dolly moves the eye along the line to target without passing through it.
func (s *State) dolly(target mgl32.Vec3, amount float32) {
	toward := target.Sub(s.camera.Eye)
	dist := toward.Len()
	if dist < 1e-6 {
		return
	}
	if dist-amount < minFocusDist {
		amount = dist - minFocusDist
	}
	s.camera.Eye = s.camera.Eye.Add(toward.Mul(amount / dist))
}

func (s *State) cycleFocus() {
	if s.focus < 0 {
		if d, ok := s.camera.LookAt.(Direction); ok {
			s.freeLook = d.Vec
		}
	}

	s.focus++
	if s.focus >= len(s.entities) {
		s.focus = -1
		s.camera.LookAt = Direction{Vec: s.freeLook}
		return
	}

	switch s.tracking {
	case SnapshotEntity:
		s.camera.LookAt = Direction{Vec: s.entities[s.focus].Location.Sub(s.camera.Eye)}
	default:
		s.camera.LookAt = EntityIndex(s.focus)
	}
}

// Snapshot copies the current state. The renderer may keep it for the whole frame.
func (s *State) Snapshot() Snapshot {
	entities := make([]Entity, len(s.entities))
	copy(entities, s.entities)
	return Snapshot{
		Camera:        s.camera,
		RenderMode:    s.mode,
		Entities:      entities,
		WindowResized: s.resized,
	}
}
