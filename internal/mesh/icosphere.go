package mesh

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Vertex is the only vertex attribute the planet pipeline consumes.
type Vertex struct {
	Position mgl32.Vec3
}

type face [3]int

// IcoSphere returns a unit sphere as a flat triangle list. Each subdivision
// splits every triangle into four.
func IcoSphere(subdivisions int) []Vertex {
	t := float32((1 + math.Sqrt(5)) / 2)
	points := []mgl32.Vec3{
		{-1, t, 0}, {1, t, 0}, {-1, -t, 0}, {1, -t, 0},
		{0, -1, t}, {0, 1, t}, {0, -1, -t}, {0, 1, -t},
		{t, 0, -1}, {t, 0, 1}, {-t, 0, -1}, {-t, 0, 1},
	}
	for i := range points {
		points[i] = points[i].Normalize()
	}

	faces := []face{
		{0, 11, 5}, {0, 5, 1}, {0, 1, 7}, {0, 7, 10}, {0, 10, 11},
		{1, 5, 9}, {5, 11, 4}, {11, 10, 2}, {10, 7, 6}, {7, 1, 8},
		{3, 9, 4}, {3, 4, 2}, {3, 2, 6}, {3, 6, 8}, {3, 8, 9},
		{4, 9, 5}, {2, 4, 11}, {6, 2, 10}, {8, 6, 7}, {9, 8, 1},
	}

	for s := 0; s < subdivisions; s++ {
		midpoints := make(map[[2]int]int)
		midpoint := func(a, b int) int {
			key := [2]int{a, b}
			if a > b {
				key = [2]int{b, a}
			}
			if idx, ok := midpoints[key]; ok {
				return idx
			}
			points = append(points, points[a].Add(points[b]).Normalize())
			idx := len(points) - 1
			midpoints[key] = idx
			return idx
		}

		next := make([]face, 0, len(faces)*4)
		for _, f := range faces {
			ab := midpoint(f[0], f[1])
			bc := midpoint(f[1], f[2])
			ca := midpoint(f[2], f[0])
			next = append(next,
				face{f[0], ab, ca},
				face{f[1], bc, ab},
				face{f[2], ca, bc},
				face{ab, bc, ca},
			)
		}
		faces = next
	}

	vertices := make([]Vertex, 0, len(faces)*3)
	for _, f := range faces {
		for _, idx := range f {
			vertices = append(vertices, Vertex{Position: points[idx]})
		}
	}
	return vertices
}
