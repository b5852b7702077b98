package volume

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/klauspost/compress/zlib"
)

// LevelZero is the unsigned encoding of distance zero. Values below it are
// inside the surface, values above are outside.
const LevelZero uint16 = 32768

// DistanceSpreadVoxels is the half range of the distance encoding: a sample
// of 0 or 65535 sits this many voxels away from the surface. Consumers use
// it to turn remapped samples back into step lengths.
const DistanceSpreadVoxels = 8

// Field is a dense scalar grid with the surface at LevelZero. The grid is
// placed in the world at BoxMin with Dx world units per voxel.
type Field struct {
	Dim    [3]uint32
	BoxMin mgl32.Vec3
	Dx     float32
	Voxels []uint16
}

func NewField(dim [3]uint32, boxMin mgl32.Vec3, dx float32) *Field {
	voxels := make([]uint16, int(dim[0])*int(dim[1])*int(dim[2]))
	for i := range voxels {
		voxels[i] = LevelZero
	}
	return &Field{Dim: dim, BoxMin: boxMin, Dx: dx, Voxels: voxels}
}

func (f *Field) index(x, y, z uint32) int {
	return int(x) + int(y)*int(f.Dim[0]) + int(z)*int(f.Dim[0])*int(f.Dim[1])
}

func (f *Field) At(x, y, z uint32) uint16 {
	return f.Voxels[f.index(x, y, z)]
}

func (f *Field) Set(x, y, z uint32, v uint16) {
	f.Voxels[f.index(x, y, z)] = v
}

// EncodeDistance converts a signed world-space distance into the unsigned
// sample encoding, saturating at DistanceSpreadVoxels voxels on either side.
func (f *Field) EncodeDistance(d float32) uint16 {
	half := DistanceSpreadVoxels * f.Dx
	t := mgl32.Clamp(0.5+0.5*d/half, 0, 1)
	return uint16(t * 65535)
}

const sdfHeaderSize = 28 // dim 3xu32, box min 3xf32, dx f32

// LoadSDF reads a zlib-compressed dense field: a 28-byte header (dimensions,
// box min, voxel spacing) followed by dimX*dimY*dimZ uint16 samples, all
// little-endian.
func LoadSDF(path string) (*Field, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open sdf: %w", err)
	}
	defer fh.Close()

	zr, err := zlib.NewReader(fh)
	if err != nil {
		return nil, fmt.Errorf("sdf %s: %w", path, err)
	}
	defer zr.Close()

	raw, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("decompress sdf %s: %w", path, err)
	}
	if len(raw) < sdfHeaderSize {
		return nil, fmt.Errorf("sdf %s: header truncated (%d bytes)", path, len(raw))
	}

	var f Field
	for i := 0; i < 3; i++ {
		f.Dim[i] = binary.LittleEndian.Uint32(raw[i*4:])
		f.BoxMin[i] = f32frombytes(raw[12+i*4:])
	}
	f.Dx = f32frombytes(raw[24:])

	n := int(f.Dim[0]) * int(f.Dim[1]) * int(f.Dim[2])
	if n <= 0 {
		return nil, fmt.Errorf("sdf %s: degenerate dimensions %v", path, f.Dim)
	}
	payload := raw[sdfHeaderSize:]
	if len(payload) != 2*n {
		return nil, fmt.Errorf("sdf %s: payload is %d bytes, want %d", path, len(payload), 2*n)
	}
	f.Voxels = make([]uint16, n)
	for i := range f.Voxels {
		f.Voxels[i] = binary.LittleEndian.Uint16(payload[i*2:])
	}
	return &f, nil
}

// SaveSDF writes the field in the format LoadSDF reads.
func (f *Field) SaveSDF(path string) error {
	var buf bytes.Buffer
	var scratch [4]byte
	for i := 0; i < 3; i++ {
		binary.LittleEndian.PutUint32(scratch[:], f.Dim[i])
		buf.Write(scratch[:])
	}
	for i := 0; i < 3; i++ {
		binary.LittleEndian.PutUint32(scratch[:], math.Float32bits(f.BoxMin[i]))
		buf.Write(scratch[:])
	}
	binary.LittleEndian.PutUint32(scratch[:], math.Float32bits(f.Dx))
	buf.Write(scratch[:])
	for _, v := range f.Voxels {
		binary.LittleEndian.PutUint16(scratch[:2], v)
		buf.Write(scratch[:2])
	}

	fh, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create sdf: %w", err)
	}
	zw := zlib.NewWriter(fh)
	if _, err := zw.Write(buf.Bytes()); err != nil {
		fh.Close()
		return fmt.Errorf("compress sdf %s: %w", path, err)
	}
	if err := zw.Close(); err != nil {
		fh.Close()
		return fmt.Errorf("flush sdf %s: %w", path, err)
	}
	return fh.Close()
}

func f32frombytes(b []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b))
}
