package volume

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Procedural fields for demos and tests. Distances are evaluated at voxel
// centers in world units and stored with EncodeDistance.

func (f *Field) worldAt(x, y, z uint32) mgl32.Vec3 {
	return f.BoxMin.Add(mgl32.Vec3{
		(float32(x) + 0.5) * f.Dx,
		(float32(y) + 0.5) * f.Dx,
		(float32(z) + 0.5) * f.Dx,
	})
}

func (f *Field) fill(dist func(mgl32.Vec3) float32) {
	for z := uint32(0); z < f.Dim[2]; z++ {
		for y := uint32(0); y < f.Dim[1]; y++ {
			for x := uint32(0); x < f.Dim[0]; x++ {
				f.Set(x, y, z, f.EncodeDistance(dist(f.worldAt(x, y, z))))
			}
		}
	}
}

func (f *Field) FillSphere(center mgl32.Vec3, radius float32) {
	f.fill(func(p mgl32.Vec3) float32 {
		return p.Sub(center).Len() - radius
	})
}

func (f *Field) FillBox(center, halfExtent mgl32.Vec3) {
	f.fill(func(p mgl32.Vec3) float32 {
		d := p.Sub(center)
		q := mgl32.Vec3{
			float32(math.Abs(float64(d.X()))) - halfExtent.X(),
			float32(math.Abs(float64(d.Y()))) - halfExtent.Y(),
			float32(math.Abs(float64(d.Z()))) - halfExtent.Z(),
		}
		outside := mgl32.Vec3{
			float32(math.Max(float64(q.X()), 0)),
			float32(math.Max(float64(q.Y()), 0)),
			float32(math.Max(float64(q.Z()), 0)),
		}.Len()
		inside := float32(math.Min(math.Max(float64(q.X()), math.Max(float64(q.Y()), float64(q.Z()))), 0))
		return outside + inside
	})
}

// FillTorus lays the torus flat in the XZ plane.
func (f *Field) FillTorus(center mgl32.Vec3, major, minor float32) {
	f.fill(func(p mgl32.Vec3) float32 {
		d := p.Sub(center)
		ring := float32(math.Hypot(float64(d.X()), float64(d.Z()))) - major
		return float32(math.Hypot(float64(ring), float64(d.Y()))) - minor
	})
}

// FillGyroid writes a gyroid shell with the given number of cells across the
// field. The distance is approximate, which is enough for marching.
func (f *Field) FillGyroid(cells, thickness float32) {
	extent := float32(f.Dim[0]) * f.Dx
	k := 2 * float32(math.Pi) * cells / extent
	f.fill(func(p mgl32.Vec3) float32 {
		q := p.Sub(f.BoxMin).Mul(k)
		g := float32(math.Sin(float64(q.X()))*math.Cos(float64(q.Y())) +
			math.Sin(float64(q.Y()))*math.Cos(float64(q.Z())) +
			math.Sin(float64(q.Z()))*math.Cos(float64(q.X())))
		return (float32(math.Abs(float64(g))) - thickness) / k
	})
}

// MakeDemoField builds one of the named procedural fields on a cubic grid
// spanning the unit cube.
func MakeDemoField(name string, dim uint32) (*Field, error) {
	if dim == 0 {
		return nil, fmt.Errorf("demo field dimension must be positive")
	}
	f := NewField([3]uint32{dim, dim, dim}, mgl32.Vec3{}, 1/float32(dim))
	center := mgl32.Vec3{0.5, 0.5, 0.5}
	switch name {
	case "sphere":
		f.FillSphere(center, 0.35)
	case "box":
		f.FillBox(center, mgl32.Vec3{0.28, 0.2, 0.28})
	case "torus":
		f.FillTorus(center, 0.3, 0.12)
	case "gyroid":
		f.FillGyroid(3, 0.08)
	default:
		return nil, fmt.Errorf("unknown demo field %q", name)
	}
	return f, nil
}
