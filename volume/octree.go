package volume

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/svomarch/svomarch/core"
)

// Box is an axis-aligned region in voxel coordinates, min inclusive, max
// exclusive.
type Box struct {
	Min [3]uint32
	Max [3]uint32
}

func (b Box) Size() [3]uint32 {
	return [3]uint32{b.Max[0] - b.Min[0], b.Max[1] - b.Min[1], b.Max[2] - b.Min[2]}
}

func (b Box) Center() [3]uint32 {
	return [3]uint32{(b.Min[0] + b.Max[0]) / 2, (b.Min[1] + b.Max[1]) / 2, (b.Min[2] + b.Max[2]) / 2}
}

// Child returns octant i of the box: bit0 picks +x, bit1 +y, bit2 +z.
func (b Box) Child(i int) Box {
	c := b.Center()
	var child Box
	for axis := 0; axis < 3; axis++ {
		if i>>uint(axis)&1 == 1 {
			child.Min[axis], child.Max[axis] = c[axis], b.Max[axis]
		} else {
			child.Min[axis], child.Max[axis] = b.Min[axis], c[axis]
		}
	}
	return child
}

// Node is one octree cell. BrickIndex is core.NoBrick when the cell stores
// no samples.
type Node struct {
	Children   [8]*Node
	BrickIndex uint32
	IsLeaf     bool
	Bounds     Box
}

func newNode(bounds Box) *Node {
	return &Node{BrickIndex: core.NoBrick, Bounds: bounds}
}

// Empty reports whether the node carries no brick and no children. Empty
// nodes are dropped by their parent during the build.
func (n *Node) Empty() bool {
	if n.BrickIndex != core.NoBrick {
		return false
	}
	for _, c := range n.Children {
		if c != nil {
			return false
		}
	}
	return true
}

// Octree is the sparse brick tree built from a field, together with the grid
// placement needed to instance the bricks in the world.
type Octree struct {
	Root      *Node
	Bricks    []Brick
	BrickSize uint32
	Dim       [3]uint32
	BoxMin    mgl32.Vec3
	Dx        float32
}

type BuildOptions struct {
	BrickSize uint32
	MaxDepth  uint32
	Threshold float32
}

func DefaultBuildOptions() BuildOptions {
	return BuildOptions{BrickSize: 8, MaxDepth: 8, Threshold: 0.01}
}

// BuildOctree subdivides the field into a sparse brick tree. Regions that
// are uniform and surface-free are pruned; leaves keep a brick only when it
// holds surface data or varies.
func BuildOctree(f *Field, opts BuildOptions) *Octree {
	o := &Octree{
		Root:      newNode(Box{Max: f.Dim}),
		BrickSize: opts.BrickSize,
		Dim:       f.Dim,
		BoxMin:    f.BoxMin,
		Dx:        f.Dx,
	}
	o.build(f, o.Root, 0, opts.MaxDepth, opts.Threshold)
	return o
}

func (o *Octree) build(f *Field, node *Node, depth, maxDepth uint32, threshold float32) {
	size := node.Bounds.Size()
	minSize := o.BrickSize

	if depth >= maxDepth || (size[0] <= minSize && size[1] <= minSize && size[2] <= minSize) {
		brickSize := min(o.BrickSize, max(size[0], max(size[1], size[2])))
		brick := ExtractBrick(f, node.Bounds.Min, brickSize)

		// Keep the brick only when it holds surface data or varies.
		if brick.HasSurface(threshold) || !brick.IsUniform(threshold) {
			node.BrickIndex = uint32(len(o.Bricks))
			o.Bricks = append(o.Bricks, brick)
		}
		node.IsLeaf = true
		return
	}

	// Cheap interior probe: a uniform region without surface is skipped
	// without subdividing.
	probe := ExtractBrick(f, node.Bounds.Min, min(size[0], min(size[1], size[2])))
	if !probe.HasSurface(threshold) && probe.IsUniform(threshold) {
		return
	}

	for i := 0; i < 8; i++ {
		child := newNode(node.Bounds.Child(i))
		o.build(f, child, depth+1, maxDepth, threshold)
		if !child.Empty() {
			node.Children[i] = child
		}
	}
}

// CountNodes walks the tree and counts every node, the root included.
func (o *Octree) CountNodes() int {
	return countNodes(o.Root)
}

func countNodes(n *Node) int {
	count := 1
	for _, c := range n.Children {
		if c != nil {
			count += countNodes(c)
		}
	}
	return count
}
