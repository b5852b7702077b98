package volume

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/svomarch/svomarch/core"
)

// BuildInstances derives the instance store from the stored bricks: one
// record per brick, positioned at the world-space center of its region, with
// the world edge length as the radius. Record i points at brick i, matching
// the atlas packing order.
func (o *Octree) BuildInstances() []core.InstanceData {
	instances := make([]core.InstanceData, len(o.Bricks))
	for i, b := range o.Bricks {
		edge := float32(b.Size) * o.Dx
		center := o.BoxMin.Add(mgl32.Vec3{
			(float32(b.Position[0]) + float32(b.Size)*0.5) * o.Dx,
			(float32(b.Position[1]) + float32(b.Size)*0.5) * o.Dx,
			(float32(b.Position[2]) + float32(b.Size)*0.5) * o.Dx,
		})
		instances[i] = core.InstanceData{
			Position:   center,
			Radius:     edge,
			BrickIndex: uint32(i),
			BrickSize:  o.BrickSize,
		}
	}
	return instances
}
