package atlas

import (
	"math"

	"github.com/svomarch/svomarch/volume"
)

// maxMipLevels matches the lod clamp in the raymarcher.
const maxMipLevels = 6

// Region records where a brick landed in the packed texture, in level-0
// voxels. The render stages address the field through uvw alone; regions
// exist for tools that inspect the layout.
type Region struct {
	BrickIndex uint32
	Origin     [3]int
}

// Atlas is a dense 3d scalar texture with a mip chain. Level 0 is a cubic
// grid of bricks; each following level halves the edge with a box filter.
type Atlas struct {
	Size         int // level-0 voxels per edge
	BrickSize    int
	BricksPerRow int
	Regions      []Region

	levels []mipLevel
}

type mipLevel struct {
	size   int
	voxels []uint16
}

// bricksPerRow picks the smallest cubic grid whose volume holds every
// brick voxel.
func bricksPerRow(numBricks, brickSize int) int {
	if numBricks == 0 {
		return 1
	}
	total := float64(numBricks) * float64(brickSize*brickSize*brickSize)
	return int(math.Ceil(math.Cbrt(total) / float64(brickSize)))
}

// Pack copies bricks into a freshly allocated atlas. Bricks smaller than
// brickSize keep their stored extent; the rest of their cell stays at the
// zero level, as does every unused cell.
func Pack(bricks []volume.Brick, brickSize uint32) *Atlas {
	bs := int(brickSize)
	n := bricksPerRow(len(bricks), bs)
	size := n * bs

	base := mipLevel{size: size, voxels: make([]uint16, size*size*size)}
	for i := range base.voxels {
		base.voxels[i] = volume.LevelZero
	}

	a := &Atlas{
		Size:         size,
		BrickSize:    bs,
		BricksPerRow: n,
		Regions:      make([]Region, 0, len(bricks)),
		levels:       []mipLevel{base},
	}
	for i := range bricks {
		origin := a.brickOrigin(i)
		a.blit(&bricks[i], origin)
		a.Regions = append(a.Regions, Region{BrickIndex: uint32(i), Origin: origin})
	}
	a.buildMips()
	return a
}

// brickOrigin lays bricks out row-major through the grid.
func (a *Atlas) brickOrigin(i int) [3]int {
	n := a.BricksPerRow
	return [3]int{
		(i % n) * a.BrickSize,
		(i / n % n) * a.BrickSize,
		(i / (n * n)) * a.BrickSize,
	}
}

func (a *Atlas) blit(b *volume.Brick, origin [3]int) {
	dst := a.levels[0]
	bs := int(b.Size)
	for z := 0; z < bs; z++ {
		for y := 0; y < bs; y++ {
			row := b.Data[(z*bs+y)*bs:]
			di := ((origin[2]+z)*dst.size+origin[1]+y)*dst.size + origin[0]
			copy(dst.voxels[di:di+bs], row[:bs])
		}
	}
}

func (a *Atlas) buildMips() {
	for len(a.levels) < maxMipLevels && a.levels[len(a.levels)-1].size > 1 {
		src := a.levels[len(a.levels)-1]
		half := max(src.size/2, 1)
		dst := mipLevel{size: half, voxels: make([]uint16, half*half*half)}
		for z := 0; z < half; z++ {
			for y := 0; y < half; y++ {
				for x := 0; x < half; x++ {
					dst.voxels[(z*half+y)*half+x] = src.boxSample(x, y, z)
				}
			}
		}
		a.levels = append(a.levels, dst)
	}
}

// boxSample averages the 2x2x2 source block behind one destination texel,
// clamping at odd edges.
func (l mipLevel) boxSample(x, y, z int) uint16 {
	var sum uint32
	for dz := 0; dz < 2; dz++ {
		for dy := 0; dy < 2; dy++ {
			for dx := 0; dx < 2; dx++ {
				sx := min(2*x+dx, l.size-1)
				sy := min(2*y+dy, l.size-1)
				sz := min(2*z+dz, l.size-1)
				sum += uint32(l.voxels[(sz*l.size+sy)*l.size+sx])
			}
		}
	}
	return uint16(sum / 8)
}
