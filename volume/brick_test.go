package volume

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestExtractBrickCopiesRegion(t *testing.T) {
	f := NewField([3]uint32{16, 16, 16}, mgl32.Vec3{}, 1)
	f.Set(4, 5, 6, 100)
	f.Set(11, 12, 13, 200)

	b := ExtractBrick(f, [3]uint32{4, 5, 6}, 8)
	if got := b.Data[0]; got != 100 {
		t.Errorf("brick origin sample = %d, want 100", got)
	}
	// (11,12,13) lands at local (7,7,7).
	if got := b.Data[7+7*8+7*8*8]; got != 200 {
		t.Errorf("brick far sample = %d, want 200", got)
	}
}

func TestExtractBrickPadsPastEdge(t *testing.T) {
	f := NewField([3]uint32{4, 4, 4}, mgl32.Vec3{}, 1)
	for i := range f.Voxels {
		f.Voxels[i] = 7
	}

	b := ExtractBrick(f, [3]uint32{2, 2, 2}, 8)
	if got := b.Data[0]; got != 7 {
		t.Errorf("in-grid sample = %d, want 7", got)
	}
	// local (4,0,0) maps to grid x=6, past the edge.
	if got := b.Data[4]; got != LevelZero {
		t.Errorf("out-of-grid sample = %d, want %d", got, LevelZero)
	}
}

func TestBrickClassification(t *testing.T) {
	thr := float32(0.01)
	band := uint16(thr * 65535.0)

	tests := []struct {
		name       string
		samples    []uint16
		hasSurface bool
		isUniform  bool
	}{
		{"all level zero", []uint16{LevelZero, LevelZero, LevelZero}, false, true},
		{"both sides", []uint16{LevelZero - 2*band, LevelZero + 2*band}, true, false},
		{"inside only", []uint16{LevelZero - 2*band, LevelZero - 2*band}, false, true},
		{"within band", []uint16{LevelZero - band, LevelZero + band}, false, false},
		{"gradient outside", []uint16{40000, 45000, 50000}, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := Brick{Data: tt.samples, Size: 1}
			if got := b.HasSurface(thr); got != tt.hasSurface {
				t.Errorf("HasSurface = %v, want %v", got, tt.hasSurface)
			}
			if got := b.IsUniform(thr); got != tt.isUniform {
				t.Errorf("IsUniform = %v, want %v", got, tt.isUniform)
			}
		})
	}
}

func TestEmptyBrickIsUniform(t *testing.T) {
	b := Brick{}
	if !b.IsUniform(0.01) {
		t.Error("empty brick should be uniform")
	}
}
