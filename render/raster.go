package render

import (
	"image"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/svomarch/svomarch/core"
)

// wEpsilon keeps the perspective divide away from w = 0.
const wEpsilon = 1e-6

type clipVert struct {
	clip mgl32.Vec4
	v    Varyings
}

func lerpVary(a, b Varyings, t float32) Varyings {
	return Varyings{
		UVW:               a.UVW.Add(b.UVW.Sub(a.UVW).Mul(t)),
		LocalCameraPosLOD: a.LocalCameraPosLOD.Add(b.LocalCameraPosLOD.Sub(a.LocalCameraPosLOD).Mul(t)),
		LocalPos:          a.LocalPos.Add(b.LocalPos.Sub(a.LocalPos).Mul(t)),
	}
}

// clipPlane runs one Sutherland-Hodgman pass, keeping the region where
// dist(v) >= 0. Attributes interpolate linearly in clip space.
func clipPlane(in []clipVert, dist func(mgl32.Vec4) float32, out []clipVert) []clipVert {
	n := len(in)
	for i := 0; i < n; i++ {
		cur, next := in[i], in[(i+1)%n]
		dc, dn := dist(cur.clip), dist(next.clip)

		if dc >= 0 {
			out = append(out, cur)
		}
		if (dc >= 0) != (dn >= 0) {
			t := dc / (dc - dn)
			out = append(out, clipVert{
				clip: cur.clip.Add(next.clip.Sub(cur.clip).Mul(t)),
				v:    lerpVary(cur.v, next.v, t),
			})
		}
	}
	return out
}

// clipNear clips a triangle to the renderable side of the near plane
// (z <= w) and keeps w positive. Returns the clipped polygon, 0 to 4
// vertices, plus the spare buffer so callers can recycle both.
func clipNear(tri *triangle, bufA, bufB []clipVert) (poly, spare []clipVert) {
	bufA = bufA[:0]
	for i := 0; i < 3; i++ {
		bufA = append(bufA, clipVert{clip: tri.clip[i], v: tri.v[i]})
	}
	bufB = clipPlane(bufA, func(c mgl32.Vec4) float32 { return c.W() - c.Z() }, bufB[:0])
	bufA = clipPlane(bufB, func(c mgl32.Vec4) float32 { return c.W() - wEpsilon }, bufA[:0])
	return bufA, bufB
}

// screenTri is a clipped triangle mapped to pixel space. Varyings are
// premultiplied by 1/w so interpolation stays perspective-correct.
type screenTri struct {
	x, y, z, invW [3]float32
	attr          [3]Varyings
	brickIndex    uint32
	bbox          image.Rectangle // inclusive pixel bounds
}

func scaleVary(v Varyings, s float32) Varyings {
	return Varyings{
		UVW:               v.UVW.Mul(s),
		LocalCameraPosLOD: v.LocalCameraPosLOD.Mul(s),
		LocalPos:          v.LocalPos.Mul(s),
	}
}

// setupScreenTri maps one clipped triangle into pixel space. ok is false for
// triangles with no area or no covered pixels.
func setupScreenTri(a, b, c clipVert, brickIndex uint32, width, height int) (screenTri, bool) {
	st := screenTri{brickIndex: brickIndex}
	for k, cv := range [3]clipVert{a, b, c} {
		invW := 1 / cv.clip.W()
		st.x[k] = (cv.clip.X()*invW*0.5 + 0.5) * float32(width)
		st.y[k] = (1 - (cv.clip.Y()*invW*0.5 + 0.5)) * float32(height)
		st.z[k] = cv.clip.Z() * invW
		st.invW[k] = invW
		st.attr[k] = scaleVary(cv.v, invW)
	}

	area := edgeFn(st.x[0], st.y[0], st.x[1], st.y[1], st.x[2], st.y[2])
	if area == 0 {
		return st, false
	}

	minX := int(math.Floor(float64(min(st.x[0], st.x[1], st.x[2]))))
	maxX := int(math.Ceil(float64(max(st.x[0], st.x[1], st.x[2]))))
	minY := int(math.Floor(float64(min(st.y[0], st.y[1], st.y[2]))))
	maxY := int(math.Ceil(float64(max(st.y[0], st.y[1], st.y[2]))))
	// Built as a literal: image.Rect would swap the corners of a fully
	// off-screen box into a non-empty rectangle.
	st.bbox = image.Rectangle{
		Min: image.Pt(max(minX, 0), max(minY, 0)),
		Max: image.Pt(min(maxX+1, width), min(maxY+1, height)),
	}
	if st.bbox.Empty() {
		return st, false
	}
	return st, true
}

func edgeFn(ax, ay, bx, by, px, py float32) float32 {
	return (bx-ax)*(py-ay) - (by-ay)*(px-ax)
}

// shadeTriangle rasterizes one triangle inside a tile rectangle, runs the
// raymarch stage per covered pixel, and resolves depth with a
// greater-or-equal test. Discarded fragments leave color and depth alone.
func shadeTriangle(fb *Framebuffer, st *screenTri, params *core.FrameParams, field Field, tile image.Rectangle) {
	bounds := st.bbox.Intersect(tile)
	if bounds.Empty() {
		return
	}

	area := edgeFn(st.x[0], st.y[0], st.x[1], st.y[1], st.x[2], st.y[2])
	sign := float32(1)
	if area < 0 {
		sign = -1
	}
	invArea := 1 / area

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		py := float32(y) + 0.5
		row := y * fb.Width
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			px := float32(x) + 0.5

			e0 := edgeFn(st.x[1], st.y[1], st.x[2], st.y[2], px, py)
			e1 := edgeFn(st.x[2], st.y[2], st.x[0], st.y[0], px, py)
			e2 := edgeFn(st.x[0], st.y[0], st.x[1], st.y[1], px, py)
			if e0*sign < 0 || e1*sign < 0 || e2*sign < 0 {
				continue
			}

			l0, l1, l2 := e0*invArea, e1*invArea, e2*invArea
			depth := l0*st.z[0] + l1*st.z[1] + l2*st.z[2]
			idx := row + x
			if depth < fb.Depth[idx] {
				continue
			}

			invW := l0*st.invW[0] + l1*st.invW[1] + l2*st.invW[2]
			w := 1 / invW
			v := Varyings{
				UVW:               st.attr[0].UVW.Mul(l0).Add(st.attr[1].UVW.Mul(l1)).Add(st.attr[2].UVW.Mul(l2)).Mul(w),
				LocalCameraPosLOD: st.attr[0].LocalCameraPosLOD.Mul(l0).Add(st.attr[1].LocalCameraPosLOD.Mul(l1)).Add(st.attr[2].LocalCameraPosLOD.Mul(l2)).Mul(w),
				LocalPos:          st.attr[0].LocalPos.Mul(l0).Add(st.attr[1].LocalPos.Mul(l1)).Add(st.attr[2].LocalPos.Mul(l2)).Mul(w),
			}

			rgba, ok := marchFragment(v, st.brickIndex, params, field)
			if !ok {
				continue
			}
			fb.Color[idx] = rgba
			fb.Depth[idx] = depth
		}
	}
}

