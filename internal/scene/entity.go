package scene

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

// Kind is the closed set of things an entity can be.
type Kind interface {
	isKind()
}

// BasicPlanet is drawn as the shared sphere mesh in a flat color.
type BasicPlanet struct {
	Color mgl32.Vec4
}

func (BasicPlanet) isKind() {}

type Entity struct {
	// ID is stable for the entity's lifetime and keys its GPU bindings.
	ID       uuid.UUID
	Location mgl32.Vec3
	Kind     Kind
}

func NewEntity(location mgl32.Vec3, kind Kind) Entity {
	return Entity{
		ID:       uuid.New(),
		Location: location,
		Kind:     kind,
	}
}

// Color returns the flat color the entity is drawn with.
func (e Entity) Color() mgl32.Vec4 {
	switch k := e.Kind.(type) {
	case BasicPlanet:
		return k.Color
	}
	return mgl32.Vec4{1, 1, 1, 1}
}

// Planets is the scene the renderer starts with.
func Planets() []Entity {
	return []Entity{
		NewEntity(mgl32.Vec3{0, 0, 0}, BasicPlanet{Color: mgl32.Vec4{1, 1, 1, 1}}),
		NewEntity(mgl32.Vec3{-5, 0, 0}, BasicPlanet{Color: mgl32.Vec4{0.2, 0.5, 1, 1}}),
		NewEntity(mgl32.Vec3{5, 0, 0}, BasicPlanet{Color: mgl32.Vec4{0.1, 0.7, 0.1, 1}}),
		NewEntity(mgl32.Vec3{0, 0, -5}, BasicPlanet{Color: mgl32.Vec4{0, 0, 0.4, 1}}),
		NewEntity(mgl32.Vec3{0, 0, 5}, BasicPlanet{Color: mgl32.Vec4{1, 0, 0, 1}}),
	}
}
