// Package shaders holds the GLSL sources for the planet pipelines. The
// renderer loads the compiled SPIR-V from disk by path.
package shaders

//go:generate glslangValidator -V shader.vert -o vert.spv
//go:generate glslangValidator -V shader.frag -o frag.spv
