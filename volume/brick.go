package volume

// Brick is a small cube of samples cut from a field. Position is the min
// corner in voxel coordinates of the source grid.
type Brick struct {
	Data     []uint16
	Size     uint32
	Position [3]uint32
}

func NewBrick(size uint32, position [3]uint32) Brick {
	data := make([]uint16, int(size)*int(size)*int(size))
	for i := range data {
		data[i] = LevelZero
	}
	return Brick{Data: data, Size: size, Position: position}
}

// ExtractBrick copies a size^3 region starting at position. Voxels past the
// grid edge keep LevelZero.
func ExtractBrick(f *Field, position [3]uint32, size uint32) Brick {
	brick := NewBrick(size, position)
	px, py, pz := position[0], position[1], position[2]

	strideY := f.Dim[0]
	strideZ := f.Dim[0] * f.Dim[1]

	for z := uint32(0); z < size; z++ {
		for y := uint32(0); y < size; y++ {
			for x := uint32(0); x < size; x++ {
				srcX, srcY, srcZ := px+x, py+y, pz+z
				if srcX < f.Dim[0] && srcY < f.Dim[1] && srcZ < f.Dim[2] {
					src := srcX + srcY*strideY + srcZ*strideZ
					dst := x + y*size + z*size*size
					brick.Data[dst] = f.Voxels[src]
				}
			}
		}
	}
	return brick
}

// HasSurface reports whether the brick holds samples on both sides of the
// surface, beyond the threshold band.
func (b *Brick) HasSurface(threshold float32) bool {
	thr := uint16(threshold * 65535.0)
	hasInside := false
	hasOutside := false

	for _, v := range b.Data {
		if v < LevelZero-thr {
			hasInside = true
		}
		if v > LevelZero+thr {
			hasOutside = true
		}
		if hasInside && hasOutside {
			return true
		}
	}
	return false
}

// IsUniform reports whether every sample stays within the threshold band of
// the first one.
func (b *Brick) IsUniform(threshold float32) bool {
	if len(b.Data) == 0 {
		return true
	}
	thr := int32(uint16(threshold * 65535.0))
	first := int32(b.Data[0])

	for _, v := range b.Data {
		d := int32(v) - first
		if d < 0 {
			d = -d
		}
		if d > thr {
			return false
		}
	}
	return true
}
