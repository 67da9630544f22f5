// Package render provides the 2D raster canvas and the paint-synchronized
// render scheduler for PuppetCam.
package render

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/vector"
)

// circleKappa approximates a quarter circle with one cubic Bézier.
const circleKappa = 0.5522847498

// Segment is one stroked line from A to B in canvas pixels.
type Segment struct {
	AX, AY float64
	BX, BY float64
}

// Canvas is a fixed-size RGBA raster surface with the primitive draw
// operations the compositor needs.
type Canvas struct {
	img *image.RGBA
	w   int
	h   int
}

// NewCanvas allocates a canvas of the given size.
func NewCanvas(w, h int) *Canvas {
	return &Canvas{
		img: image.NewRGBA(image.Rect(0, 0, w, h)),
		w:   w,
		h:   h,
	}
}

// Size returns the canvas dimensions in pixels.
func (c *Canvas) Size() (int, int) {
	return c.w, c.h
}

// Image exposes the backing pixels for presentation.
func (c *Canvas) Image() *image.RGBA {
	return c.img
}

// Clear fills the whole surface with a flat color.
func (c *Canvas) Clear(col color.NRGBA) {
	draw.Draw(c.img, c.img.Bounds(), image.NewUniform(col), image.Point{}, draw.Src)
}

// FillRect fills an axis-aligned rectangle.
func (c *Canvas) FillRect(x, y, w, h float64, col color.NRGBA) {
	ras := vector.NewRasterizer(c.w, c.h)
	ras.MoveTo(float32(x), float32(y))
	ras.LineTo(float32(x+w), float32(y))
	ras.LineTo(float32(x+w), float32(y+h))
	ras.LineTo(float32(x), float32(y+h))
	ras.ClosePath()
	ras.Draw(c.img, c.img.Bounds(), image.NewUniform(col), image.Point{})
}

// FillCircle fills a circle centered at (cx, cy).
func (c *Canvas) FillCircle(cx, cy, r float64, col color.NRGBA) {
	if r <= 0 {
		return
	}
	ras := vector.NewRasterizer(c.w, c.h)
	addCirclePath(ras, cx, cy, r)
	ras.Draw(c.img, c.img.Bounds(), image.NewUniform(col), image.Point{})
}

func addCirclePath(ras *vector.Rasterizer, cx, cy, r float64) {
	k := circleKappa * r
	x, y := float32(cx), float32(cy)
	fr, fk := float32(r), float32(k)

	ras.MoveTo(x+fr, y)
	ras.CubeTo(x+fr, y+fk, x+fk, y+fr, x, y+fr)
	ras.CubeTo(x-fk, y+fr, x-fr, y+fk, x-fr, y)
	ras.CubeTo(x-fr, y-fk, x-fk, y-fr, x, y-fr)
	ras.CubeTo(x+fk, y-fr, x+fr, y-fk, x+fr, y)
	ras.ClosePath()
}

// FillRoundedRect fills a rectangle with rounded corners of radius r.
func (c *Canvas) FillRoundedRect(x, y, w, h, r float64, col color.NRGBA) {
	if w <= 0 || h <= 0 {
		return
	}
	if max := math.Min(w, h) / 2; r > max {
		r = max
	}
	if r <= 0 {
		c.FillRect(x, y, w, h, col)
		return
	}

	k := circleKappa * r
	x0, y0 := float32(x), float32(y)
	x1, y1 := float32(x+w), float32(y+h)
	fr, fk := float32(r), float32(k)

	ras := vector.NewRasterizer(c.w, c.h)
	ras.MoveTo(x0+fr, y0)
	ras.LineTo(x1-fr, y0)
	ras.CubeTo(x1-fr+fk, y0, x1, y0+fr-fk, x1, y0+fr)
	ras.LineTo(x1, y1-fr)
	ras.CubeTo(x1, y1-fr+fk, x1-fr+fk, y1, x1-fr, y1)
	ras.LineTo(x0+fr, y1)
	ras.CubeTo(x0+fr-fk, y1, x0, y1-fr+fk, x0, y1-fr)
	ras.LineTo(x0, y0+fr)
	ras.CubeTo(x0, y0+fr-fk, x0+fr-fk, y0, x0+fr, y0)
	ras.ClosePath()
	ras.Draw(c.img, c.img.Bounds(), image.NewUniform(col), image.Point{})
}

// StrokeSegments strokes all segments as a single rasterizer pass with a
// fixed width, so the whole skeleton costs one fill.
func (c *Canvas) StrokeSegments(segs []Segment, width float64, col color.NRGBA) {
	if len(segs) == 0 || width <= 0 {
		return
	}
	half := width / 2

	ras := vector.NewRasterizer(c.w, c.h)
	for _, s := range segs {
		dx := s.BX - s.AX
		dy := s.BY - s.AY
		length := math.Hypot(dx, dy)
		if length == 0 {
			addCirclePath(ras, s.AX, s.AY, half)
			continue
		}
		// Perpendicular unit vector scaled to half the stroke width.
		nx := -dy / length * half
		ny := dx / length * half

		ras.MoveTo(float32(s.AX+nx), float32(s.AY+ny))
		ras.LineTo(float32(s.BX+nx), float32(s.BY+ny))
		ras.LineTo(float32(s.BX-nx), float32(s.BY-ny))
		ras.LineTo(float32(s.AX-nx), float32(s.AY-ny))
		ras.ClosePath()

		// Round caps keep joints from looking chipped.
		addCirclePath(ras, s.AX, s.AY, half)
		addCirclePath(ras, s.BX, s.BY, half)
	}
	ras.Draw(c.img, c.img.Bounds(), image.NewUniform(col), image.Point{})
}

// DrawImage scales src into dst and composites it with the given opacity.
func (c *Canvas) DrawImage(src image.Image, dst image.Rectangle, opacity float64) {
	if src == nil || dst.Empty() {
		return
	}
	if opacity <= 0 {
		return
	}
	if opacity > 1 {
		opacity = 1
	}

	scaled := image.NewRGBA(image.Rect(0, 0, dst.Dx(), dst.Dy()))
	xdraw.ApproxBiLinear.Scale(scaled, scaled.Bounds(), src, src.Bounds(), xdraw.Src, nil)

	mask := image.NewUniform(color.Alpha{A: uint8(opacity*255 + 0.5)})
	draw.DrawMask(c.img, dst, scaled, image.Point{}, mask, image.Point{}, draw.Over)
}
