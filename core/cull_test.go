package core

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func testPlanes() [6]mgl32.Vec4 {
	c := CameraState{Position: mgl32.Vec3{0, 0, 0}}
	vp := PerspectiveReverseZ(mgl32.DegToRad(90), 1, 0.1).Mul4(c.GetViewMatrix())
	return ExtractFrustum(vp)
}

func TestSphereInFrustum(t *testing.T) {
	planes := testPlanes()

	tests := []struct {
		name     string
		center   mgl32.Vec3
		radius   float32
		expected bool
	}{
		{"ahead of camera", mgl32.Vec3{0, 0, -10}, 1, true},
		{"behind camera", mgl32.Vec3{0, 0, 10}, 1, false},
		{"far outside left plane", mgl32.Vec3{-100, 0, -10}, 1, false},
		{"straddling left plane", mgl32.Vec3{-10.5, 0, -10}, 1.74, true},
		{"fully past left plane", mgl32.Vec3{-15, 0, -10}, 1.74, false},
		{"large sphere enclosing camera", mgl32.Vec3{0, 0, 5}, 20, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SphereInFrustum(planes, tt.center, tt.radius); got != tt.expected {
				t.Errorf("SphereInFrustum(%v, r=%g) = %v, want %v", tt.center, tt.radius, got, tt.expected)
			}
		})
	}
}

func TestCullInstancesKeepsOrder(t *testing.T) {
	planes := testPlanes()
	instances := []InstanceData{
		{Position: mgl32.Vec3{-2, 0, -10}, Radius: 1},
		{Position: mgl32.Vec3{0, 0, 50}, Radius: 1}, // behind the camera
		{Position: mgl32.Vec3{2, 0, -10}, Radius: 1},
		{Position: mgl32.Vec3{0, 2, -20}, Radius: 1},
	}

	vis := CullInstances(instances, planes)
	want := []uint32{0, 2, 3}
	if len(vis) != len(want) {
		t.Fatalf("culled to %d instances, want %d", len(vis), len(want))
	}
	for i, w := range want {
		if vis[i].Index != w {
			t.Errorf("visibility[%d] = %d, want %d", i, vis[i].Index, w)
		}
	}
}

func TestCullInstancesEmptyScene(t *testing.T) {
	vis := CullInstances(nil, testPlanes())
	if len(vis) != 0 {
		t.Errorf("expected empty visibility list, got %d entries", len(vis))
	}
}
