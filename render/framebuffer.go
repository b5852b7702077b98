package render

import (
	"image"
	"image/color"

	"github.com/go-gl/mathgl/mgl32"
)

// Framebuffer is the render target: an RGBA color plane and a float depth
// plane. Depth follows the reversed convention, 0 is the far clear value and
// larger is closer; the depth test passes on greater-or-equal.
type Framebuffer struct {
	Width  int
	Height int
	Color  []mgl32.Vec4
	Depth  []float32
}

func NewFramebuffer(width, height int) *Framebuffer {
	return &Framebuffer{
		Width:  width,
		Height: height,
		Color:  make([]mgl32.Vec4, width*height),
		Depth:  make([]float32, width*height),
	}
}

// Clear fills the color plane and resets depth to the far value 0.
func (fb *Framebuffer) Clear(c mgl32.Vec4) {
	for i := range fb.Color {
		fb.Color[i] = c
	}
	for i := range fb.Depth {
		fb.Depth[i] = 0
	}
}

func (fb *Framebuffer) At(x, y int) mgl32.Vec4 {
	return fb.Color[y*fb.Width+x]
}

func (fb *Framebuffer) DepthAt(x, y int) float32 {
	return fb.Depth[y*fb.Width+x]
}

// Image converts the color plane to an 8-bit image, clamping to [0,1].
func (fb *Framebuffer) Image() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, fb.Width, fb.Height))
	for i, c := range fb.Color {
		img.Pix[i*4+0] = toByte(c.X())
		img.Pix[i*4+1] = toByte(c.Y())
		img.Pix[i*4+2] = toByte(c.Z())
		img.Pix[i*4+3] = toByte(c.W())
	}
	return img
}

// RGBA returns one pixel as 8-bit color, mostly for tests.
func (fb *Framebuffer) RGBA(x, y int) color.RGBA {
	c := fb.At(x, y)
	return color.RGBA{toByte(c.X()), toByte(c.Y()), toByte(c.Z()), toByte(c.W())}
}

func toByte(v float32) uint8 {
	if !(v > 0) { // catches NaN as well
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}
