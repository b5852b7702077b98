package volume

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"os"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"

	"github.com/svomarch/svomarch/core"
)

// Svo is the renderable container: brick payloads, the flattened octree, and
// the prebuilt instance store, plus the grid placement they came from. This
// is exactly the set of stores the pipeline binds.
//
// File layout, little-endian:
//
//	magic "SVO1", version u32, build id 16 bytes
//	dim 3xu32, box min 3xf32, dx f32, brick size u32
//	brick count u32; per brick: size u32, position 3xu32, size^3 u16 samples
//	node count u32; 48-byte node records
//	instance count u32; 32-byte instance records
type Svo struct {
	BuildID   uuid.UUID
	Dim       [3]uint32
	BoxMin    mgl32.Vec3
	Dx        float32
	BrickSize uint32
	Bricks    []Brick
	Nodes     []core.NodeRecord
	Instances []core.InstanceData
}

const (
	svoMagic   = "SVO1"
	svoVersion = 1
)

// NewSvo freezes an octree into its renderable form.
func NewSvo(o *Octree) *Svo {
	return &Svo{
		BuildID:   uuid.New(),
		Dim:       o.Dim,
		BoxMin:    o.BoxMin,
		Dx:        o.Dx,
		BrickSize: o.BrickSize,
		Bricks:    o.Bricks,
		Nodes:     o.Flatten(),
		Instances: o.BuildInstances(),
	}
}

// PayloadBytes reports the encoded size of each store section.
func (s *Svo) PayloadBytes() (bricks, nodes, instances int) {
	for _, b := range s.Bricks {
		bricks += 16 + 2*len(b.Data)
	}
	return bricks, len(s.Nodes) * core.NodeRecordSize, len(s.Instances) * core.InstanceDataSize
}

// DenseBytes reports the size of the source grid the container replaced.
func (s *Svo) DenseBytes() int {
	return 2 * int(s.Dim[0]) * int(s.Dim[1]) * int(s.Dim[2])
}

func (s *Svo) Save(path string) error {
	var buf bytes.Buffer
	buf.WriteString(svoMagic)
	writeU32(&buf, svoVersion)
	buf.Write(s.BuildID[:])

	for i := 0; i < 3; i++ {
		writeU32(&buf, s.Dim[i])
	}
	for i := 0; i < 3; i++ {
		writeU32(&buf, math.Float32bits(s.BoxMin[i]))
	}
	writeU32(&buf, math.Float32bits(s.Dx))
	writeU32(&buf, s.BrickSize)

	writeU32(&buf, uint32(len(s.Bricks)))
	for _, b := range s.Bricks {
		writeU32(&buf, b.Size)
		for i := 0; i < 3; i++ {
			writeU32(&buf, b.Position[i])
		}
		var scratch [2]byte
		for _, v := range b.Data {
			binary.LittleEndian.PutUint16(scratch[:], v)
			buf.Write(scratch[:])
		}
	}

	writeU32(&buf, uint32(len(s.Nodes)))
	buf.Write(core.EncodeNodes(s.Nodes))

	writeU32(&buf, uint32(len(s.Instances)))
	buf.Write(core.EncodeInstances(s.Instances))

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write svo: %w", err)
	}
	return nil
}

func LoadSvo(path string) (*Svo, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read svo: %w", err)
	}
	r := reader{buf: raw, path: path}

	if string(r.bytes(4)) != svoMagic {
		return nil, fmt.Errorf("svo %s: bad magic", path)
	}
	if v := r.u32(); v != svoVersion {
		return nil, fmt.Errorf("svo %s: unsupported version %d", path, v)
	}

	var s Svo
	copy(s.BuildID[:], r.bytes(16))
	for i := 0; i < 3; i++ {
		s.Dim[i] = r.u32()
	}
	for i := 0; i < 3; i++ {
		s.BoxMin[i] = math.Float32frombits(r.u32())
	}
	s.Dx = math.Float32frombits(r.u32())
	s.BrickSize = r.u32()

	brickCount := int(r.u32())
	s.Bricks = make([]Brick, 0, brickCount)
	for i := 0; i < brickCount; i++ {
		size := r.u32()
		var pos [3]uint32
		for a := 0; a < 3; a++ {
			pos[a] = r.u32()
		}
		n := int(size) * int(size) * int(size)
		payload := r.bytes(2 * n)
		if r.err != nil {
			break
		}
		b := Brick{Data: make([]uint16, n), Size: size, Position: pos}
		for j := range b.Data {
			b.Data[j] = binary.LittleEndian.Uint16(payload[j*2:])
		}
		s.Bricks = append(s.Bricks, b)
	}

	nodeCount := int(r.u32())
	s.Nodes, err = core.DecodeNodes(r.bytes(nodeCount * core.NodeRecordSize))
	if err == nil {
		instCount := int(r.u32())
		s.Instances, err = core.DecodeInstances(r.bytes(instCount * core.InstanceDataSize))
	}
	if r.err != nil {
		return nil, fmt.Errorf("svo %s: %w", path, r.err)
	}
	if err != nil {
		return nil, fmt.Errorf("svo %s: %w", path, err)
	}
	return &s, nil
}

func writeU32(buf *bytes.Buffer, v uint32) {
	var scratch [4]byte
	binary.LittleEndian.PutUint32(scratch[:], v)
	buf.Write(scratch[:])
}

// reader is a cursor over the file image that records the first failure
// instead of panicking on truncated input.
type reader struct {
	buf  []byte
	off  int
	path string
	err  error
}

func (r *reader) bytes(n int) []byte {
	if r.err != nil || n < 0 || r.off+n > len(r.buf) {
		if r.err == nil {
			r.err = fmt.Errorf("truncated at offset %d (want %d more bytes)", r.off, n)
		}
		// Short zero slice; callers bail out on r.err before trusting it.
		return make([]byte, 4)
	}
	out := r.buf[r.off : r.off+n]
	r.off += n
	return out
}

func (r *reader) u32() uint32 {
	return binary.LittleEndian.Uint32(r.bytes(4))
}
