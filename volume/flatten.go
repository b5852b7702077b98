package volume

import (
	"github.com/svomarch/svomarch/core"
)

// Flatten serializes the tree depth-first into the node records the pipeline
// binds. A node's children follow it in the buffer; ChildrenOffset is the
// record index of the first child and 0 for leaves.
func (o *Octree) Flatten() []core.NodeRecord {
	nodes := make([]core.NodeRecord, 0, o.CountNodes())
	index := uint32(0)
	flattenNode(o.Root, &nodes, &index)
	return nodes
}

func flattenNode(n *Node, nodes *[]core.NodeRecord, index *uint32) {
	*index++

	var childMask uint32
	for i, c := range n.Children {
		if c != nil {
			childMask |= 1 << uint(i)
		}
	}

	childrenOffset := uint32(0)
	if !n.IsLeaf {
		childrenOffset = *index
	}

	isLeaf := uint32(0)
	if n.IsLeaf {
		isLeaf = 1
	}

	*nodes = append(*nodes, core.NodeRecord{
		BoundsMin:      n.Bounds.Min,
		BoundsMax:      n.Bounds.Max,
		BrickIndex:     n.BrickIndex,
		ChildMask:      childMask,
		ChildrenOffset: childrenOffset,
		IsLeaf:         isLeaf,
	})

	if !n.IsLeaf {
		for _, c := range n.Children {
			if c != nil {
				flattenNode(c, nodes, index)
			}
		}
	}
}
