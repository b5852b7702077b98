package core

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Binary record layouts shared by the stores and the render stages. All
// fields are little-endian. Sizes match what the GPU pipeline consumed, so
// files written by the builder stay bit-compatible with the shader-era
// buffers.
const (
	InstanceDataSize   = 32
	VisibilityDataSize = 4
	NodeRecordSize     = 48
	FrameParamsSize    = 160
)

// NoBrick marks an octree node that stores no brick payload.
const NoBrick uint32 = 0xFFFFFFFF

// InstanceData places one brick in the world. Position is the world-space
// center of the brick region and Radius its world edge length. BrickIndex
// selects the brick in the atlas; BrickSize is the nominal brick resolution.
type InstanceData struct {
	Position   mgl32.Vec3
	Radius     float32
	BrickIndex uint32
	BrickSize  uint32
}

func (d InstanceData) ToBytes() []byte {
	buf := make([]byte, InstanceDataSize)
	putF32(buf, 0, d.Position.X())
	putF32(buf, 4, d.Position.Y())
	putF32(buf, 8, d.Position.Z())
	putF32(buf, 12, d.Radius)
	binary.LittleEndian.PutUint32(buf[16:], d.BrickIndex)
	binary.LittleEndian.PutUint32(buf[20:], d.BrickSize)
	// bytes 24..31 stay zero
	return buf
}

func instanceFromBytes(buf []byte) InstanceData {
	return InstanceData{
		Position:   mgl32.Vec3{getF32(buf, 0), getF32(buf, 4), getF32(buf, 8)},
		Radius:     getF32(buf, 12),
		BrickIndex: binary.LittleEndian.Uint32(buf[16:]),
		BrickSize:  binary.LittleEndian.Uint32(buf[20:]),
	}
}

func EncodeInstances(instances []InstanceData) []byte {
	buf := make([]byte, 0, len(instances)*InstanceDataSize)
	for _, inst := range instances {
		buf = append(buf, inst.ToBytes()...)
	}
	return buf
}

func DecodeInstances(buf []byte) ([]InstanceData, error) {
	if len(buf)%InstanceDataSize != 0 {
		return nil, fmt.Errorf("instance buffer length %d is not a multiple of %d", len(buf), InstanceDataSize)
	}
	out := make([]InstanceData, len(buf)/InstanceDataSize)
	for i := range out {
		out[i] = instanceFromBytes(buf[i*InstanceDataSize:])
	}
	return out, nil
}

// VisibilityData is one entry of the visibility list: the index of a
// surviving instance.
type VisibilityData struct {
	Index uint32
}

func EncodeVisibility(vis []VisibilityData) []byte {
	buf := make([]byte, len(vis)*VisibilityDataSize)
	for i, v := range vis {
		binary.LittleEndian.PutUint32(buf[i*VisibilityDataSize:], v.Index)
	}
	return buf
}

func DecodeVisibility(buf []byte) ([]VisibilityData, error) {
	if len(buf)%VisibilityDataSize != 0 {
		return nil, fmt.Errorf("visibility buffer length %d is not a multiple of %d", len(buf), VisibilityDataSize)
	}
	out := make([]VisibilityData, len(buf)/VisibilityDataSize)
	for i := range out {
		out[i].Index = binary.LittleEndian.Uint32(buf[i*VisibilityDataSize:])
	}
	return out, nil
}

// NodeRecord is the flattened octree node as the pipeline binds it. Bounds
// are in voxel coordinates of the source grid. ChildrenOffset is the record
// index of the first child (0 for leaves); ChildMask has bit i set when
// octant i is present (bit0 +x, bit1 +y, bit2 +z).
type NodeRecord struct {
	BoundsMin      [3]uint32
	BoundsMax      [3]uint32
	BrickIndex     uint32
	ChildMask      uint32
	ChildrenOffset uint32
	IsLeaf         uint32
}

func (n NodeRecord) ToBytes() []byte {
	buf := make([]byte, NodeRecordSize)
	for i := 0; i < 3; i++ {
		binary.LittleEndian.PutUint32(buf[i*4:], n.BoundsMin[i])
		binary.LittleEndian.PutUint32(buf[12+i*4:], n.BoundsMax[i])
	}
	binary.LittleEndian.PutUint32(buf[24:], n.BrickIndex)
	binary.LittleEndian.PutUint32(buf[28:], n.ChildMask)
	binary.LittleEndian.PutUint32(buf[32:], n.ChildrenOffset)
	binary.LittleEndian.PutUint32(buf[36:], n.IsLeaf)
	// bytes 40..47 stay zero
	return buf
}

func nodeFromBytes(buf []byte) NodeRecord {
	var n NodeRecord
	for i := 0; i < 3; i++ {
		n.BoundsMin[i] = binary.LittleEndian.Uint32(buf[i*4:])
		n.BoundsMax[i] = binary.LittleEndian.Uint32(buf[12+i*4:])
	}
	n.BrickIndex = binary.LittleEndian.Uint32(buf[24:])
	n.ChildMask = binary.LittleEndian.Uint32(buf[28:])
	n.ChildrenOffset = binary.LittleEndian.Uint32(buf[32:])
	n.IsLeaf = binary.LittleEndian.Uint32(buf[36:])
	return n
}

func EncodeNodes(nodes []NodeRecord) []byte {
	buf := make([]byte, 0, len(nodes)*NodeRecordSize)
	for _, n := range nodes {
		buf = append(buf, n.ToBytes()...)
	}
	return buf
}

func DecodeNodes(buf []byte) ([]NodeRecord, error) {
	if len(buf)%NodeRecordSize != 0 {
		return nil, fmt.Errorf("node buffer length %d is not a multiple of %d", len(buf), NodeRecordSize)
	}
	out := make([]NodeRecord, len(buf)/NodeRecordSize)
	for i := range out {
		out[i] = nodeFromBytes(buf[i*NodeRecordSize:])
	}
	return out, nil
}

// FrameParams is the per-frame uniform block of the render stages.
//
// CenterToEdge is bound for layout compatibility; the stages derive the cube
// half extent from the instance radius instead. VolumeScale converts a unit
// world-space direction into normalized field steps.
type FrameParams struct {
	WorldToScreen  mgl32.Mat4
	Color          mgl32.Vec4
	CameraPosition mgl32.Vec3
	VolumeScale    mgl32.Vec3
	CenterToEdge   mgl32.Vec3
	TexelScale     mgl32.Vec3
	BrickSize      uint32
}

func (p FrameParams) ToBytes() []byte {
	buf := make([]byte, FrameParamsSize)
	for i := 0; i < 16; i++ {
		putF32(buf, i*4, p.WorldToScreen[i])
	}
	putVec4(buf, 64, p.Color)
	putVec4(buf, 80, p.CameraPosition.Vec4(1))
	putVec4(buf, 96, p.VolumeScale.Vec4(0))
	putVec4(buf, 112, p.CenterToEdge.Vec4(0))
	putVec4(buf, 128, p.TexelScale.Vec4(0))
	binary.LittleEndian.PutUint32(buf[144:], p.BrickSize)
	// bytes 148..159 stay zero
	return buf
}

func DecodeFrameParams(buf []byte) (FrameParams, error) {
	if len(buf) < FrameParamsSize {
		return FrameParams{}, fmt.Errorf("frame params buffer length %d, want %d", len(buf), FrameParamsSize)
	}
	var p FrameParams
	for i := 0; i < 16; i++ {
		p.WorldToScreen[i] = getF32(buf, i*4)
	}
	p.Color = getVec4(buf, 64)
	p.CameraPosition = getVec4(buf, 80).Vec3()
	p.VolumeScale = getVec4(buf, 96).Vec3()
	p.CenterToEdge = getVec4(buf, 112).Vec3()
	p.TexelScale = getVec4(buf, 128).Vec3()
	p.BrickSize = binary.LittleEndian.Uint32(buf[144:])
	return p, nil
}

func putF32(buf []byte, off int, v float32) {
	binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(v))
}

func getF32(buf []byte, off int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(buf[off:]))
}

func putVec4(buf []byte, off int, v mgl32.Vec4) {
	for i := 0; i < 4; i++ {
		putF32(buf, off+i*4, v[i])
	}
}

func getVec4(buf []byte, off int) mgl32.Vec4 {
	return mgl32.Vec4{getF32(buf, off), getF32(buf, off+4), getF32(buf, off+8), getF32(buf, off+12)}
}
