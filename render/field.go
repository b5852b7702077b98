package render

import "github.com/go-gl/mathgl/mgl32"

// Field is the sampled scalar volume the raymarch stage reads: normalized
// [0,1]^3 coordinates, values in [0,1], with a fractional mip level.
// Coordinates outside the volume clamp to the edge. Implementations must be
// safe for concurrent reads.
type Field interface {
	Sample(uvw mgl32.Vec3, lod float32) float32
}

// FieldFunc adapts a plain function, mostly for tests.
type FieldFunc func(uvw mgl32.Vec3, lod float32) float32

func (f FieldFunc) Sample(uvw mgl32.Vec3, lod float32) float32 { return f(uvw, lod) }
