package scene

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
)

// Target is what the camera looks at: a Direction or an EntityIndex.
type Target interface {
	isTarget()
}

// Direction looks along a vector relative to the eye.
type Direction struct {
	Vec mgl32.Vec3
}

func (Direction) isTarget() {}

// EntityIndex looks at the entity at that position in the snapshot.
type EntityIndex int

func (EntityIndex) isTarget() {}

type Camera struct {
	Eye    mgl32.Vec3
	Up     mgl32.Vec3
	LookAt Target
}

// CameraTargetError reports an EntityIndex outside the entity list.
type CameraTargetError struct {
	Index int
	Count int
}

func (e *CameraTargetError) Error() string {
	return fmt.Sprintf("camera target index %d out of range for %d entities", e.Index, e.Count)
}

// ResolveTarget returns the world-space point the camera looks at.
func (c Camera) ResolveTarget(entities []Entity) (mgl32.Vec3, error) {
	switch t := c.LookAt.(type) {
	case Direction:
		return c.Eye.Add(t.Vec), nil
	case EntityIndex:
		i := int(t)
		if i < 0 || i >= len(entities) {
			return mgl32.Vec3{}, &CameraTargetError{Index: i, Count: len(entities)}
		}
		return entities[i].Location, nil
	case nil:
		return mgl32.Vec3{}, errors.New("camera has no target")
	}
	return mgl32.Vec3{}, errors.Newf("unknown camera target %T", c.LookAt)
}

// View builds the look-at matrix towards target.
func (c Camera) View(target mgl32.Vec3) mgl32.Mat4 {
	return mgl32.LookAtV(c.Eye, target, c.Up)
}
