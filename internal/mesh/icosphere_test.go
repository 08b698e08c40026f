package mesh

import (
	"math"
	"testing"
)

func TestIcoSphereVertexCount(t *testing.T) {
	tests := []struct {
		subdivisions int
		want         int
	}{
		{0, 60},
		{1, 240},
		{2, 960},
		{4, 15360},
	}
	for _, tt := range tests {
		got := len(IcoSphere(tt.subdivisions))
		if got != tt.want {
			t.Errorf("len(IcoSphere(%d)) = %d, want %d", tt.subdivisions, got, tt.want)
		}
	}
}

func TestIcoSphereOnUnitSphere(t *testing.T) {
	for i, v := range IcoSphere(3) {
		if l := v.Position.Len(); math.Abs(float64(l)-1) > 1e-5 {
			t.Fatalf("vertex %d length = %v, want 1", i, l)
		}
	}
}

func TestIcoSphereWindingFacesOutward(t *testing.T) {
	vertices := IcoSphere(2)
	for i := 0; i < len(vertices); i += 3 {
		a, b, c := vertices[i].Position, vertices[i+1].Position, vertices[i+2].Position
		normal := b.Sub(a).Cross(c.Sub(a))
		center := a.Add(b).Add(c)
		if normal.Dot(center) <= 0 {
			t.Fatalf("triangle %d winds inward", i/3)
		}
	}
}
