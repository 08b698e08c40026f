// Package objmesh loads a Wavefront OBJ file as a planet mesh.
package objmesh

import (
	"io"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/g3n/engine/loader/obj"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/vkngwrapper/incipisphere/internal/mesh"
)

// Load reads path and, when it exists, the .mtl file next to it.
func Load(path string) ([]mesh.Vertex, error) {
	meshFile, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open mesh %s", path)
	}
	defer meshFile.Close()

	var matFile io.Reader = strings.NewReader("")
	mtlPath := strings.TrimSuffix(path, ".obj") + ".mtl"
	if f, err := os.Open(mtlPath); err == nil {
		defer f.Close()
		matFile = f
	}

	return Decode(meshFile, matFile)
}

// Decode flattens every face of every object into a triangle list.
func Decode(meshFile, matFile io.Reader) ([]mesh.Vertex, error) {
	decoder, err := obj.DecodeReader(meshFile, matFile)
	if err != nil {
		return nil, errors.Wrap(err, "decode obj")
	}

	var vertices []mesh.Vertex
	for _, decodedObj := range decoder.Objects {
		for _, face := range decodedObj.Faces {
			// fan-triangulate polygons
			for i := 2; i < len(face.Vertices); i++ {
				for _, corner := range [3]int{0, i - 1, i} {
					vertices = append(vertices, position(decoder, face.Vertices[corner]))
				}
			}
		}
	}
	if len(vertices) == 0 {
		return nil, errors.New("obj contains no faces")
	}
	return vertices, nil
}

func position(decoder *obj.Decoder, index int) mesh.Vertex {
	return mesh.Vertex{Position: mgl32.Vec3{
		decoder.Vertices[index*3],
		decoder.Vertices[index*3+1],
		decoder.Vertices[index*3+2],
	}}
}
