package core

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// SphereInFrustum reports whether a sphere touches the frustum. Planes come
// from ExtractFrustum with inward-pointing normals.
func SphereInFrustum(planes [6]mgl32.Vec4, center mgl32.Vec3, radius float32) bool {
	for i := 0; i < 6; i++ {
		plane := planes[i]
		dist := plane.X()*center.X() + plane.Y()*center.Y() + plane.Z()*center.Z() + plane.W()
		if dist < -radius {
			return false
		}
	}
	return true
}

// CullInstances builds the visibility list for one frame: the indices of all
// instances whose bounding sphere touches the frustum, in instance order.
// The sphere wraps the brick cube, so the radius is edge*sqrt(3)/2.
func CullInstances(instances []InstanceData, planes [6]mgl32.Vec4) []VisibilityData {
	halfDiag := float32(math.Sqrt(3)) * 0.5
	vis := make([]VisibilityData, 0, len(instances))
	for i, inst := range instances {
		if SphereInFrustum(planes, inst.Position, inst.Radius*halfDiag) {
			vis = append(vis, VisibilityData{Index: uint32(i)})
		}
	}
	return vis
}
