package scene

import "github.com/go-gl/mathgl/mgl32"

type RenderMode int

const (
	Standard RenderMode = iota
	Wireframe
)

func (m RenderMode) String() string {
	switch m {
	case Standard:
		return "standard"
	case Wireframe:
		return "wireframe"
	}
	return "unknown"
}

func (m RenderMode) Toggle() RenderMode {
	if m == Wireframe {
		return Standard
	}
	return Wireframe
}

// Snapshot is the read-only view of the scene the renderer draws in one tick.
type Snapshot struct {
	Camera        Camera
	RenderMode    RenderMode
	Entities      []Entity
	WindowResized bool
}

const (
	FieldOfView = 90.0
	NearPlane   = 0.01
	FarPlane    = 100.0
)

// Projection is the perspective used for every frame.
func Projection(aspect float32) mgl32.Mat4 {
	return mgl32.Perspective(mgl32.DegToRad(FieldOfView), aspect, NearPlane, FarPlane)
}

// ViewProjection combines the projection and the camera view for one frame.
func ViewProjection(aspect float32, view mgl32.Mat4) mgl32.Mat4 {
	return Projection(aspect).Mul4(view)
}

// MVP places an entity in clip space.
func MVP(viewProjection mgl32.Mat4, location mgl32.Vec3) mgl32.Mat4 {
	return viewProjection.Mul4(mgl32.Translate3D(location.X(), location.Y(), location.Z()))
}
