package render

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/svomarch/svomarch/core"
)

const (
	// surfaceEpsilon is the remapped-sample threshold that counts as a hit.
	surfaceEpsilon = 0.00025
	// maxMarchSteps bounds the march; running out yields an approximate hit,
	// never a discard.
	maxMarchSteps = 256
)

// sampleSigned reads the field and remaps [0,1] to [-1,1], putting the
// surface at zero.
func sampleSigned(field Field, p mgl32.Vec3, lod float32) float32 {
	return field.Sample(p, lod)*2 - 1
}

// insideUnitCube keeps points whose distance from the cube center stays
// within the half extent on every axis; exactly on the boundary is inside.
func insideUnitCube(p mgl32.Vec3) bool {
	for i := 0; i < 3; i++ {
		d := p[i] - 0.5
		if d < -0.5 || d > 0.5 {
			return false
		}
	}
	return true
}

// brickTint hashes a brick index into a stable debug tint.
func brickTint(index uint32) mgl32.Vec3 {
	return mgl32.Vec3{
		float32(index * 73 % 255),
		float32(index * 151 % 255),
		float32(index * 211 % 255),
	}.Mul(1.0 / 255)
}

// fieldNormal estimates the surface normal from six samples half a texel out
// along each axis at the current LOD.
func fieldNormal(field Field, p mgl32.Vec3, lod float32, params *core.FrameParams) mgl32.Vec3 {
	h := params.TexelScale.Mul(exp2(mgl32.Clamp(lod, 0, maxFieldLOD)) * 0.5)
	grad := mgl32.Vec3{
		field.Sample(p.Add(mgl32.Vec3{h.X(), 0, 0}), lod) - field.Sample(p.Sub(mgl32.Vec3{h.X(), 0, 0}), lod),
		field.Sample(p.Add(mgl32.Vec3{0, h.Y(), 0}), lod) - field.Sample(p.Sub(mgl32.Vec3{0, h.Y(), 0}), lod),
		field.Sample(p.Add(mgl32.Vec3{0, 0, h.Z()}), lod) - field.Sample(p.Sub(mgl32.Vec3{0, 0, h.Z()}), lod),
	}
	return grad.Normalize()
}

// marchFragment is the per-pixel stage. It walks the field from the
// interpolated entry point and shades the hit; ok is false when the ray
// leaves the unit cube, which discards the pixel entirely.
func marchFragment(v Varyings, brickIndex uint32, params *core.FrameParams, field Field) (rgba mgl32.Vec4, ok bool) {
	lod := v.LocalCameraPosLOD.W()
	localCam := v.LocalCameraPosLOD.Vec3()

	dir := v.LocalPos.Sub(localCam).Normalize()
	dir = mgl32.Vec3{
		dir.X() * params.VolumeScale.X(),
		dir.Y() * params.VolumeScale.Y(),
		dir.Z() * params.VolumeScale.Z(),
	}

	entry := v.UVW
	s := sampleSigned(field, entry, lod)
	d := s

	// An entry sample at or below the threshold already shades; otherwise
	// march until the field crosses it or the budget runs out. Running out
	// shades the approximate position reached.
	if s > surfaceEpsilon {
		for i := 0; i < maxMarchSteps; i++ {
			p := entry.Add(dir.Mul(d))
			if !insideUnitCube(p) {
				return mgl32.Vec4{}, false
			}
			s = sampleSigned(field, p, lod)
			d += s
			if s < surfaceEpsilon {
				break
			}
		}
	}

	hit := entry.Add(dir.Mul(d))
	normal := fieldNormal(field, hit, lod, params)
	tint := brickTint(brickIndex)
	shaded := normal.Mul(0.7).Add(tint.Mul(0.3))
	return shaded.Vec4(1), true
}
