package volume

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestBuildInstancesPlacesBrickCenters(t *testing.T) {
	o := &Octree{
		Bricks: []Brick{
			{Size: 8, Position: [3]uint32{0, 0, 0}},
			{Size: 8, Position: [3]uint32{8, 16, 0}},
		},
		BrickSize: 8,
		BoxMin:    mgl32.Vec3{1, 1, 1},
		Dx:        0.5,
	}

	instances := o.BuildInstances()
	if len(instances) != 2 {
		t.Fatalf("built %d instances, want 2", len(instances))
	}

	first := instances[0]
	if first.Position != (mgl32.Vec3{3, 3, 3}) {
		t.Errorf("instance 0 center = %v, want (3,3,3)", first.Position)
	}
	if first.Radius != 4 {
		t.Errorf("instance 0 radius = %g, want 4", first.Radius)
	}

	second := instances[1]
	if second.Position != (mgl32.Vec3{7, 11, 3}) {
		t.Errorf("instance 1 center = %v, want (7,11,3)", second.Position)
	}

	for i, inst := range instances {
		if inst.BrickIndex != uint32(i) {
			t.Errorf("instance %d points at brick %d", i, inst.BrickIndex)
		}
		if inst.BrickSize != 8 {
			t.Errorf("instance %d brick size = %d, want 8", i, inst.BrickSize)
		}
	}
}

// Every brick center must sit inside the grid box and every cube inside it.
func TestBuildInstancesStayInGrid(t *testing.T) {
	f, err := MakeDemoField("gyroid", 32)
	if err != nil {
		t.Fatalf("MakeDemoField: %v", err)
	}
	o := BuildOctree(f, DefaultBuildOptions())

	extent := float32(32) * o.Dx
	for i, inst := range o.BuildInstances() {
		half := inst.Radius * 0.5
		for a := 0; a < 3; a++ {
			lo := inst.Position[a] - half - o.BoxMin[a]
			hi := inst.Position[a] + half - o.BoxMin[a]
			if lo < -1e-4 || hi > extent+1e-4 {
				t.Errorf("instance %d spills out of the grid on axis %d: [%g,%g]", i, a, lo, hi)
			}
		}
		if math.IsNaN(float64(inst.Radius)) || inst.Radius <= 0 {
			t.Errorf("instance %d radius = %g", i, inst.Radius)
		}
	}
}
