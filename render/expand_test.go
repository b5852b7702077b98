package render

import (
	"context"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/svomarch/svomarch/core"
)

func TestCornerOffsetsCoverAllOctants(t *testing.T) {
	seen := map[mgl32.Vec3]uint32{}
	for c := uint32(0); c < cornersPerCube; c++ {
		off := cornerOffset(c)
		for i := 0; i < 3; i++ {
			if off[i] != 1 && off[i] != -1 {
				t.Errorf("corner %d component %d = %g, want +-1", c, i, off[i])
			}
		}
		if prev, dup := seen[off]; dup {
			t.Errorf("corners %d and %d decode to the same offset %v", prev, c, off)
		}
		seen[off] = c
	}
	if len(seen) != 8 {
		t.Errorf("corners cover %d octants, want 8", len(seen))
	}
}

func TestCornerOffsetBitLanes(t *testing.T) {
	base := cornerOffset(0)
	tests := []struct {
		bit  uint32
		axis int
	}{
		{1, 0}, // bit 0 flips x
		{2, 2}, // bit 1 flips z
		{4, 1}, // bit 2 flips y
	}
	for _, tt := range tests {
		got := cornerOffset(tt.bit)
		for i := 0; i < 3; i++ {
			if i == tt.axis {
				if got[i] == base[i] {
					t.Errorf("bit %d should flip axis %d", tt.bit, tt.axis)
				}
			} else if got[i] != base[i] {
				t.Errorf("bit %d changed axis %d", tt.bit, i)
			}
		}
	}
}

func identityParams() core.FrameParams {
	return core.FrameParams{
		WorldToScreen: mgl32.Ident4(),
		VolumeScale:   mgl32.Vec3{1, 1, 1},
		TexelScale:    mgl32.Vec3{1.0 / 64, 1.0 / 64, 1.0 / 64},
	}
}

func TestExpandCornerLocalPosBound(t *testing.T) {
	inst := core.InstanceData{Position: mgl32.Vec3{5, -2, 1}, Radius: 3}
	params := identityParams()
	params.CameraPosition = mgl32.Vec3{9, 0, 1}

	want := inst.Radius * float32(math.Sqrt(3)) / 2
	for c := uint32(0); c < cornersPerCube; c++ {
		out := expandCorner(inst, c, &params)
		if got := out.v.LocalPos.Len(); math.Abs(float64(got-want)) > 1e-5 {
			t.Errorf("corner %d |local pos| = %g, want %g", c, got, want)
		}
		for i := 0; i < 3; i++ {
			if a := float32(math.Abs(float64(out.v.LocalPos[i]))); math.Abs(float64(a-inst.Radius*0.5)) > 1e-5 {
				t.Errorf("corner %d local pos component %d = %g, want +-%g", c, i, out.v.LocalPos[i], inst.Radius*0.5)
			}
		}
	}
}

func TestExpandCornerLODAndInset(t *testing.T) {
	inst := core.InstanceData{Position: mgl32.Vec3{}, Radius: 2}
	params := identityParams()

	tests := []struct {
		name     string
		distance float32
		lod      float32
		scale    float32
	}{
		{"at bias distance", 64, 0, 1},          // log2(64) = 6
		{"two levels out", 256, 2, 4},           // log2(256) = 8
		{"clamped to coarsest", 1 << 14, 8, 32}, // lod 8 clamps to 5
		{"closer than bias", 8, -3, 1},          // negative lod clamps to 0
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params.CameraPosition = mgl32.Vec3{tt.distance, 0, 0}

			near := expandCorner(inst, 0, &params)
			far := expandCorner(inst, 7, &params)

			if got := near.v.LocalCameraPosLOD.W(); math.Abs(float64(got-tt.lod)) > 1e-4 {
				t.Errorf("packed lod = %g, want %g", got, tt.lod)
			}
			ts := params.TexelScale.X() * tt.scale
			if got := near.v.UVW.X(); math.Abs(float64(got-ts*0.5)) > 1e-6 {
				t.Errorf("min corner uvw.x = %g, want %g", got, ts*0.5)
			}
			if got := far.v.UVW.X(); math.Abs(float64(got-(1-ts*0.5))) > 1e-6 {
				t.Errorf("max corner uvw.x = %g, want %g", got, 1-ts*0.5)
			}
		})
	}
}

func TestExpandCornerCameraOffset(t *testing.T) {
	inst := core.InstanceData{Position: mgl32.Vec3{1, 2, 3}, Radius: 2}
	params := identityParams()
	params.CameraPosition = mgl32.Vec3{4, 2, 3}

	out := expandCorner(inst, 0, &params)
	if got := out.v.LocalCameraPosLOD.Vec3(); got != (mgl32.Vec3{3, 0, 0}) {
		t.Errorf("local camera pos = %v, want (3,0,0)", got)
	}
}

func TestExpandCornerClipPosition(t *testing.T) {
	inst := core.InstanceData{Position: mgl32.Vec3{1, 2, 3}, Radius: 2}
	params := identityParams()
	params.CameraPosition = mgl32.Vec3{10, 0, 0}

	// Identity world-to-screen: clip equals corner world position.
	out := expandCorner(inst, 7, &params)
	want := mgl32.Vec4{2, 3, 4, 1}
	if out.clip.Sub(want).Len() > 1e-6 {
		t.Errorf("clip = %v, want %v", out.clip, want)
	}
}

// The indexing variant is fixed at pipeline construction. With a visibility
// list bound, invocation k expands instance visibility[k].
func TestExpandIndexingVariants(t *testing.T) {
	instances := []core.InstanceData{
		{Position: mgl32.Vec3{-4, 0, 0}, Radius: 2, BrickIndex: 10},
		{Position: mgl32.Vec3{0, 0, 0}, Radius: 2, BrickIndex: 11},
		{Position: mgl32.Vec3{4, 0, 0}, Radius: 2, BrickIndex: 12},
	}
	visibility := []core.VisibilityData{{Index: 2}, {Index: 0}, {Index: 1}}
	field := FieldFunc(func(mgl32.Vec3, float32) float32 { return 0.5 })
	params := identityParams()
	params.CameraPosition = mgl32.Vec3{0, 0, 64}

	direct, err := NewPipeline(Stores{Instances: instances, Field: field}, Options{Indexing: IndexDirect})
	if err != nil {
		t.Fatalf("NewPipeline direct: %v", err)
	}
	indirect, err := NewPipeline(
		Stores{Instances: instances, Visibility: visibility, Field: field},
		Options{Indexing: IndexVisibility},
	)
	if err != nil {
		t.Fatalf("NewPipeline indirect: %v", err)
	}

	directTris, err := direct.expandAll(context.Background(), &params)
	if err != nil {
		t.Fatalf("expand direct: %v", err)
	}
	indirectTris, err := indirect.expandAll(context.Background(), &params)
	if err != nil {
		t.Fatalf("expand indirect: %v", err)
	}

	wantDirect := []uint32{10, 11, 12}
	wantIndirect := []uint32{12, 10, 11}
	for k := 0; k < 3; k++ {
		for tr := 0; tr < trisPerCube; tr++ {
			if got := directTris[k*trisPerCube+tr].brickIndex; got != wantDirect[k] {
				t.Fatalf("direct slot %d brick = %d, want %d", k, got, wantDirect[k])
			}
			if got := indirectTris[k*trisPerCube+tr].brickIndex; got != wantIndirect[k] {
				t.Fatalf("indirect slot %d brick = %d, want %d", k, got, wantIndirect[k])
			}
		}
	}
	if direct.DrawCount() != 3 || indirect.DrawCount() != 3 {
		t.Errorf("draw counts %d/%d, want 3/3", direct.DrawCount(), indirect.DrawCount())
	}
}
