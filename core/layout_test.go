package core

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestInstanceDataBytes(t *testing.T) {
	inst := InstanceData{
		Position:   mgl32.Vec3{1.5, -2, 0.25},
		Radius:     4,
		BrickIndex: 7,
		BrickSize:  8,
	}
	buf := inst.ToBytes()
	if len(buf) != InstanceDataSize {
		t.Fatalf("instance record is %d bytes, want %d", len(buf), InstanceDataSize)
	}
	if got := binary.LittleEndian.Uint32(buf[16:]); got != 7 {
		t.Errorf("brick index at offset 16 = %d, want 7", got)
	}
	if got := binary.LittleEndian.Uint32(buf[20:]); got != 8 {
		t.Errorf("brick size at offset 20 = %d, want 8", got)
	}
	if !bytes.Equal(buf[24:], make([]byte, 8)) {
		t.Errorf("padding bytes 24..31 not zero: %v", buf[24:])
	}

	back, err := DecodeInstances(buf)
	if err != nil {
		t.Fatalf("DecodeInstances: %v", err)
	}
	if len(back) != 1 || back[0] != inst {
		t.Errorf("roundtrip mismatch: %+v", back)
	}
}

func TestDecodeInstancesRejectsPartialRecord(t *testing.T) {
	if _, err := DecodeInstances(make([]byte, InstanceDataSize+1)); err == nil {
		t.Error("expected error for a partial instance record")
	}
}

func TestVisibilityEncodePreservesOrder(t *testing.T) {
	vis := []VisibilityData{{2}, {0}, {1}}
	buf := EncodeVisibility(vis)
	if len(buf) != 3*VisibilityDataSize {
		t.Fatalf("visibility buffer is %d bytes, want %d", len(buf), 3*VisibilityDataSize)
	}
	back, err := DecodeVisibility(buf)
	if err != nil {
		t.Fatalf("DecodeVisibility: %v", err)
	}
	for i, want := range []uint32{2, 0, 1} {
		if back[i].Index != want {
			t.Errorf("entry %d = %d, want %d", i, back[i].Index, want)
		}
	}
}

func TestNodeRecordBytes(t *testing.T) {
	tests := []struct {
		name string
		node NodeRecord
	}{
		{"leaf with brick", NodeRecord{
			BoundsMin:  [3]uint32{0, 0, 0},
			BoundsMax:  [3]uint32{8, 8, 8},
			BrickIndex: 3,
			IsLeaf:     1,
		}},
		{"interior without brick", NodeRecord{
			BoundsMin:      [3]uint32{0, 64, 0},
			BoundsMax:      [3]uint32{64, 128, 64},
			BrickIndex:     NoBrick,
			ChildMask:      0b10100101,
			ChildrenOffset: 17,
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := tt.node.ToBytes()
			if len(buf) != NodeRecordSize {
				t.Fatalf("node record is %d bytes, want %d", len(buf), NodeRecordSize)
			}
			if got := binary.LittleEndian.Uint32(buf[24:]); got != tt.node.BrickIndex {
				t.Errorf("brick index at offset 24 = %#x, want %#x", got, tt.node.BrickIndex)
			}
			if got := binary.LittleEndian.Uint32(buf[36:]); got != tt.node.IsLeaf {
				t.Errorf("leaf flag at offset 36 = %d, want %d", got, tt.node.IsLeaf)
			}
			if !bytes.Equal(buf[40:], make([]byte, 8)) {
				t.Errorf("padding bytes 40..47 not zero: %v", buf[40:])
			}
			back, err := DecodeNodes(buf)
			if err != nil {
				t.Fatalf("DecodeNodes: %v", err)
			}
			if back[0] != tt.node {
				t.Errorf("roundtrip mismatch: %+v != %+v", back[0], tt.node)
			}
		})
	}
}

func TestFrameParamsBytes(t *testing.T) {
	p := FrameParams{
		WorldToScreen:  mgl32.Translate3D(1, 2, 3),
		Color:          mgl32.Vec4{1, 0.5, 0.25, 1},
		CameraPosition: mgl32.Vec3{10, 20, 30},
		VolumeScale:    mgl32.Vec3{0.5, 0.5, 0.5},
		CenterToEdge:   mgl32.Vec3{4, 4, 4},
		TexelScale:     mgl32.Vec3{1.0 / 64, 1.0 / 64, 1.0 / 64},
		BrickSize:      8,
	}
	buf := p.ToBytes()
	if len(buf) != FrameParamsSize {
		t.Fatalf("frame params are %d bytes, want %d", len(buf), FrameParamsSize)
	}
	if got := binary.LittleEndian.Uint32(buf[144:]); got != 8 {
		t.Errorf("brick size at offset 144 = %d, want 8", got)
	}
	if !bytes.Equal(buf[148:], make([]byte, 12)) {
		t.Errorf("tail padding not zero: %v", buf[148:])
	}

	back, err := DecodeFrameParams(buf)
	if err != nil {
		t.Fatalf("DecodeFrameParams: %v", err)
	}
	if back.WorldToScreen != p.WorldToScreen {
		t.Errorf("matrix roundtrip mismatch")
	}
	if back.CameraPosition != p.CameraPosition || back.TexelScale != p.TexelScale {
		t.Errorf("vector roundtrip mismatch: %+v", back)
	}
	if back.BrickSize != 8 {
		t.Errorf("brick size roundtrip = %d", back.BrickSize)
	}
}

func TestDecodeFrameParamsShortBuffer(t *testing.T) {
	if _, err := DecodeFrameParams(make([]byte, FrameParamsSize-4)); err == nil {
		t.Error("expected error for short frame params buffer")
	}
}
