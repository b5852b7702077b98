package render

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/svomarch/svomarch/core"
)

const (
	cornersPerCube = 8
	trisPerCube    = 6

	// lodBias shifts the distance LOD so bricks near the camera sample the
	// finest level.
	lodBias = 6.0
	// maxFieldLOD caps the texel inset; the sampler clamps to its own mip
	// count independently.
	maxFieldLOD = 5.0
)

// Three front faces are enough: with culling disabled they cover the cube
// silhouette from any view direction.
var cubeIndices = [18]uint32{
	0, 2, 1, 2, 3, 1,
	5, 4, 1, 1, 4, 0,
	0, 4, 6, 0, 6, 2,
}

// Varyings are the expansion outputs the rasterizer interpolates per pixel.
// LocalCameraPosLOD packs the camera offset from the instance center in xyz
// and the unclamped LOD in w.
type Varyings struct {
	UVW               mgl32.Vec3
	LocalCameraPosLOD mgl32.Vec4
	LocalPos          mgl32.Vec3
}

// vertexOut is one expanded cube corner.
type vertexOut struct {
	clip mgl32.Vec4
	v    Varyings
}

// triangle is one primitive with its flat, non-interpolated brick index.
type triangle struct {
	clip       [3]mgl32.Vec4
	v          [3]Varyings
	brickIndex uint32
}

// cornerOffset decodes a corner invocation index into a signed unit offset:
// bit 0 drives x, bit 1 drives z, bit 2 drives y.
func cornerOffset(corner uint32) mgl32.Vec3 {
	x := float32(corner & 1)
	z := float32(corner >> 1 & 1)
	y := float32(corner >> 2 & 1)
	return mgl32.Vec3{x*2 - 1, y*2 - 1, z*2 - 1}
}

// expandCorner is the per-invocation expansion stage for (instance, corner).
func expandCorner(inst core.InstanceData, corner uint32, params *core.FrameParams) vertexOut {
	c := cornerOffset(corner)
	localPos := c.Mul(inst.Radius * 0.5)

	localCam := params.CameraPosition.Sub(inst.Position)
	lod := 0.5*log2(localCam.Dot(localCam)) - lodBias

	scale := exp2(mgl32.Clamp(lod, 0, maxFieldLOD))
	ts := params.TexelScale.Mul(scale)
	uvw := mgl32.Vec3{
		(c.X()*0.5+0.5)*(1-ts.X()) + ts.X()*0.5,
		(c.Y()*0.5+0.5)*(1-ts.Y()) + ts.Y()*0.5,
		(c.Z()*0.5+0.5)*(1-ts.Z()) + ts.Z()*0.5,
	}

	clip := params.WorldToScreen.Mul4x1(localPos.Add(inst.Position).Vec4(1))
	return vertexOut{
		clip: clip,
		v: Varyings{
			UVW:               uvw,
			LocalCameraPosLOD: localCam.Vec4(lod),
			LocalPos:          localPos,
		},
	}
}

// expandCube expands all corners of one instance and assembles its six
// triangles into dst.
func expandCube(inst core.InstanceData, params *core.FrameParams, dst []triangle) {
	var corners [cornersPerCube]vertexOut
	for c := uint32(0); c < cornersPerCube; c++ {
		corners[c] = expandCorner(inst, c, params)
	}
	for t := 0; t < trisPerCube; t++ {
		a, b, c := cubeIndices[t*3], cubeIndices[t*3+1], cubeIndices[t*3+2]
		dst[t] = triangle{
			clip:       [3]mgl32.Vec4{corners[a].clip, corners[b].clip, corners[c].clip},
			v:          [3]Varyings{corners[a].v, corners[b].v, corners[c].v},
			brickIndex: inst.BrickIndex,
		}
	}
}

func log2(v float32) float32 {
	return float32(math.Log2(float64(v)))
}

func exp2(v float32) float32 {
	return float32(math.Exp2(float64(v)))
}
