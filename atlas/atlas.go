// Package atlas packs octree bricks into one dense 3d texture and samples
// it the way the GPU sampler would: trilinear within a level, nearest mip,
// clamp to edge.
package atlas

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/svomarch/svomarch/volume"
)

// Levels reports the depth of the mip chain, including level 0.
func (a *Atlas) Levels() int { return len(a.levels) }

// Level exposes one mip for texture upload.
func (a *Atlas) Level(i int) (size int, voxels []uint16) {
	l := a.levels[i]
	return l.size, l.voxels
}

// TexelScale is the uvw footprint of one level-0 texel per axis.
func (a *Atlas) TexelScale() mgl32.Vec3 {
	s := 1.0 / float32(a.Size)
	return mgl32.Vec3{s, s, s}
}

// VolumeScale converts signed samples into uvw-space step lengths. The
// encoded distance range spans DistanceSpreadVoxels texels on each side of
// the surface.
func (a *Atlas) VolumeScale() mgl32.Vec3 {
	return a.TexelScale().Mul(volume.DistanceSpreadVoxels)
}

// Sample filters the packed field at uvw. Lod snaps to the nearest level
// and coordinates clamp to the edge texels.
func (a *Atlas) Sample(uvw mgl32.Vec3, lod float32) float32 {
	maxLevel := float32(len(a.levels) - 1)
	li := int(math.Round(float64(mgl32.Clamp(lod, 0, maxLevel))))
	return a.levels[li].trilinear(uvw)
}

func clampIndex(i, size int) int {
	if i < 0 {
		return 0
	}
	if i >= size {
		return size - 1
	}
	return i
}

func (l mipLevel) at(x, y, z int) float32 {
	x = clampIndex(x, l.size)
	y = clampIndex(y, l.size)
	z = clampIndex(z, l.size)
	return float32(l.voxels[(z*l.size+y)*l.size+x]) / 65535.0
}

// trilinear blends the eight texels around uvw with texel centers at
// half-coordinates.
func (l mipLevel) trilinear(uvw mgl32.Vec3) float32 {
	fs := float32(l.size)
	tx := uvw.X()*fs - 0.5
	ty := uvw.Y()*fs - 0.5
	tz := uvw.Z()*fs - 0.5

	x0 := int(math.Floor(float64(tx)))
	y0 := int(math.Floor(float64(ty)))
	z0 := int(math.Floor(float64(tz)))
	fx := tx - float32(x0)
	fy := ty - float32(y0)
	fz := tz - float32(z0)

	c00 := lerp(l.at(x0, y0, z0), l.at(x0+1, y0, z0), fx)
	c10 := lerp(l.at(x0, y0+1, z0), l.at(x0+1, y0+1, z0), fx)
	c01 := lerp(l.at(x0, y0, z0+1), l.at(x0+1, y0, z0+1), fx)
	c11 := lerp(l.at(x0, y0+1, z0+1), l.at(x0+1, y0+1, z0+1), fx)

	c0 := lerp(c00, c10, fy)
	c1 := lerp(c01, c11, fy)
	return lerp(c0, c1, fz)
}

func lerp(a, b, t float32) float32 {
	return a + (b-a)*t
}
