package render

import (
	"context"
	"fmt"
	"image"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/svomarch/svomarch/core"
)

// IndexingMode selects how expansion invocations find their instance. The
// choice is resolved when the pipeline is built, never per invocation.
type IndexingMode int

const (
	// IndexDirect draws every record of the instance store.
	IndexDirect IndexingMode = iota
	// IndexVisibility draws the instances named by the visibility list.
	IndexVisibility
)

// Stores are the read-only inputs a pipeline binds. Nodes carries the
// flattened octree; it is part of the binding contract but the stages never
// read it while marching.
type Stores struct {
	Instances  []core.InstanceData
	Visibility []core.VisibilityData
	Nodes      []core.NodeRecord
	Field      Field
}

type Options struct {
	Indexing IndexingMode
	TileSize int
	Workers  int
}

// Pipeline runs the two stages over bound stores: cube expansion per
// instance corner, then a raymarch per covered pixel. Stores stay untouched
// for the pipeline's lifetime; all mutation lands in the target framebuffer.
type Pipeline struct {
	stores   Stores
	tileSize int
	workers  int

	// fetch and drawCount are the resolved indexing variant.
	fetch     func(uint32) uint32
	drawCount int
}

func NewPipeline(stores Stores, opts Options) (*Pipeline, error) {
	if stores.Field == nil {
		return nil, fmt.Errorf("pipeline needs a sampled field")
	}
	p := &Pipeline{
		stores:   stores,
		tileSize: opts.TileSize,
		workers:  opts.Workers,
	}
	if p.tileSize <= 0 {
		p.tileSize = 64
	}
	if p.workers <= 0 {
		p.workers = runtime.NumCPU()
	}

	switch opts.Indexing {
	case IndexDirect:
		p.fetch = func(i uint32) uint32 { return i }
		p.drawCount = len(stores.Instances)
	case IndexVisibility:
		vis := stores.Visibility
		p.fetch = func(i uint32) uint32 { return vis[i].Index }
		p.drawCount = len(vis)
	default:
		return nil, fmt.Errorf("unknown indexing mode %d", opts.Indexing)
	}
	return p, nil
}

// DrawCount reports how many instances a Draw call expands.
func (p *Pipeline) DrawCount() int { return p.drawCount }

// Draw renders the bound instances into fb. The framebuffer must be cleared
// by the caller; Draw only adds coverage.
func (p *Pipeline) Draw(ctx context.Context, fb *Framebuffer, params core.FrameParams) error {
	if p.drawCount == 0 {
		return nil
	}

	tris, err := p.expandAll(ctx, &params)
	if err != nil {
		return err
	}
	return p.rasterize(ctx, fb, &params, tris)
}

// expandAll runs the expansion stage: a parallel map over instances, eight
// corner invocations each, writing disjoint triangle ranges.
func (p *Pipeline) expandAll(ctx context.Context, params *core.FrameParams) ([]triangle, error) {
	tris := make([]triangle, p.drawCount*trisPerCube)

	g, ctx := errgroup.WithContext(ctx)
	chunk := (p.drawCount + p.workers - 1) / p.workers
	for start := 0; start < p.drawCount; start += chunk {
		start := start // pin the iteration's value for the closure; go.mod targets pre-1.22 loop semantics
		end := min(start+chunk, p.drawCount)
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			for i := start; i < end; i++ {
				inst := p.stores.Instances[p.fetch(uint32(i))]
				expandCube(inst, params, tris[i*trisPerCube:(i+1)*trisPerCube])
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return tris, nil
}

// rasterize clips, bins, and shades triangles tile by tile. Every tile owns
// a disjoint framebuffer region and walks its triangles in submission order,
// so output does not depend on the worker count.
func (p *Pipeline) rasterize(ctx context.Context, fb *Framebuffer, params *core.FrameParams, tris []triangle) error {
	screen := make([]screenTri, 0, len(tris))
	var poly, scratch []clipVert
	for i := range tris {
		poly, scratch = clipNear(&tris[i], poly, scratch)
		for k := 1; k+1 < len(poly); k++ {
			if st, ok := setupScreenTri(poly[0], poly[k], poly[k+1], tris[i].brickIndex, fb.Width, fb.Height); ok {
				screen = append(screen, st)
			}
		}
	}
	if len(screen) == 0 {
		return nil
	}

	tilesX := (fb.Width + p.tileSize - 1) / p.tileSize
	tilesY := (fb.Height + p.tileSize - 1) / p.tileSize
	bins := make([][]int32, tilesX*tilesY)
	for ti := range screen {
		b := screen[ti].bbox
		for ty := b.Min.Y / p.tileSize; ty <= (b.Max.Y-1)/p.tileSize; ty++ {
			for tx := b.Min.X / p.tileSize; tx <= (b.Max.X-1)/p.tileSize; tx++ {
				bin := ty*tilesX + tx
				bins[bin] = append(bins[bin], int32(ti))
			}
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for ty := 0; ty < tilesY; ty++ {
		for tx := 0; tx < tilesX; tx++ {
			bin := bins[ty*tilesX+tx]
			if len(bin) == 0 {
				continue
			}
			tile := image.Rect(tx*p.tileSize, ty*p.tileSize, (tx+1)*p.tileSize, (ty+1)*p.tileSize).
				Intersect(image.Rect(0, 0, fb.Width, fb.Height))
			g.Go(func() error {
				if err := ctx.Err(); err != nil {
					return err
				}
				for _, ti := range bin {
					shadeTriangle(fb, &screen[ti], params, p.stores.Field, tile)
				}
				return nil
			})
		}
	}
	return g.Wait()
}
