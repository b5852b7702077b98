package volume

import (
	"testing"

	"github.com/svomarch/svomarch/core"
)

func leafNode(bounds Box, brick uint32) *Node {
	n := newNode(bounds)
	n.IsLeaf = true
	n.BrickIndex = brick
	return n
}

func TestFlattenTwoLeaves(t *testing.T) {
	root := newNode(Box{Max: [3]uint32{16, 16, 16}})
	root.Children[0] = leafNode(root.Bounds.Child(0), 0)
	root.Children[7] = leafNode(root.Bounds.Child(7), 1)
	o := &Octree{Root: root, Bricks: make([]Brick, 2)}

	nodes := o.Flatten()
	if len(nodes) != 3 {
		t.Fatalf("flattened to %d records, want 3", len(nodes))
	}

	r := nodes[0]
	if r.BrickIndex != core.NoBrick {
		t.Errorf("root brick index = %#x, want sentinel", r.BrickIndex)
	}
	if r.ChildMask != 0b10000001 {
		t.Errorf("root child mask = %#b, want 0b10000001", r.ChildMask)
	}
	if r.ChildrenOffset != 1 {
		t.Errorf("root children offset = %d, want 1", r.ChildrenOffset)
	}
	if r.IsLeaf != 0 {
		t.Errorf("root leaf flag = %d, want 0", r.IsLeaf)
	}

	if nodes[1].BrickIndex != 0 || nodes[1].IsLeaf != 1 || nodes[1].ChildrenOffset != 0 {
		t.Errorf("first leaf record = %+v", nodes[1])
	}
	if nodes[2].BrickIndex != 1 || nodes[2].BoundsMin != [3]uint32{8, 8, 8} {
		t.Errorf("second leaf record = %+v", nodes[2])
	}
}

// Records are laid out depth-first, so an interior child's offset points past
// the subtrees flattened before it.
func TestFlattenDepthFirstOffsets(t *testing.T) {
	root := newNode(Box{Max: [3]uint32{32, 32, 32}})
	root.Children[0] = leafNode(root.Bounds.Child(0), 0)

	inner := newNode(root.Bounds.Child(1))
	inner.Children[3] = leafNode(inner.Bounds.Child(3), 1)
	root.Children[1] = inner
	o := &Octree{Root: root, Bricks: make([]Brick, 2)}

	nodes := o.Flatten()
	if len(nodes) != 4 {
		t.Fatalf("flattened to %d records, want 4", len(nodes))
	}
	if nodes[0].ChildrenOffset != 1 {
		t.Errorf("root children offset = %d, want 1", nodes[0].ChildrenOffset)
	}
	// record 1 is the first leaf, record 2 the interior child.
	if nodes[2].IsLeaf != 0 || nodes[2].ChildrenOffset != 3 {
		t.Errorf("interior record = %+v, want children offset 3", nodes[2])
	}
	if nodes[3].BrickIndex != 1 {
		t.Errorf("nested leaf brick = %d, want 1", nodes[3].BrickIndex)
	}
}

func TestFlattenBuiltOctree(t *testing.T) {
	f, err := MakeDemoField("sphere", 32)
	if err != nil {
		t.Fatalf("MakeDemoField: %v", err)
	}
	o := BuildOctree(f, DefaultBuildOptions())

	nodes := o.Flatten()
	if len(nodes) != o.CountNodes() {
		t.Fatalf("flattened %d records for %d nodes", len(nodes), o.CountNodes())
	}
	if nodes[0].BoundsMin != [3]uint32{0, 0, 0} || nodes[0].BoundsMax != o.Dim {
		t.Errorf("root record bounds %v..%v, want grid bounds", nodes[0].BoundsMin, nodes[0].BoundsMax)
	}

	withBrick := 0
	for i, n := range nodes {
		if n.BrickIndex != core.NoBrick {
			withBrick++
			if n.BrickIndex >= uint32(len(o.Bricks)) {
				t.Errorf("record %d points at brick %d of %d", i, n.BrickIndex, len(o.Bricks))
			}
		}
		if n.IsLeaf == 1 && n.ChildrenOffset != 0 {
			t.Errorf("leaf record %d has children offset %d", i, n.ChildrenOffset)
		}
		if n.IsLeaf == 0 && n.ChildMask == 0 {
			t.Errorf("interior record %d has no children", i)
		}
	}
	if withBrick != len(o.Bricks) {
		t.Errorf("%d records carry bricks, octree stores %d", withBrick, len(o.Bricks))
	}
}
