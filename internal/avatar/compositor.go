package avatar

import (
	"image"
	"image/color"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/normanking/puppetcam/internal/pose"
	"github.com/normanking/puppetcam/internal/render"
)

// Palette. Flat colors, no theming.
var (
	backgroundColor = color.NRGBA{R: 0x10, G: 0x12, B: 0x18, A: 0xFF}
	skeletonColor   = color.NRGBA{R: 0x4A, G: 0xDE, B: 0x80, A: 0xB3}
	headColor       = color.NRGBA{R: 0xFC, G: 0xD3, B: 0x4D, A: 0xFF}
	eyeColor        = color.NRGBA{R: 0x1A, G: 0x1A, B: 0x1A, A: 0xFF}
	mouthColor      = color.NRGBA{R: 0xC0, G: 0x30, B: 0x30, A: 0xFF}
)

// Preview thumbnail placement. Fixed corner, fixed size, reduced opacity so
// the avatar stays the primary subject.
const (
	previewWidthPx  = 240
	previewHeightPx = 135
	previewMarginPx = 16
	previewOpacity  = 0.75
)

// Compositor draws one complete avatar frame from whatever data is
// available right now. Missing landmarks degrade to an idle face, never to
// a blank or stale frame.
type Compositor struct{}

// NewCompositor returns a stateless compositor.
func NewCompositor() *Compositor {
	return &Compositor{}
}

// DrawFrame paints the full scene: background, skeleton, face, and the
// optional camera preview. snapshot may be nil, preview may be nil.
func (comp *Compositor) DrawFrame(c *render.Canvas, snapshot *pose.Snapshot, envelope float64, preview image.Image) {
	w, h := c.Size()
	c.Clear(backgroundColor)

	if snapshot != nil && snapshot.Has(pose.LeftShoulder) && snapshot.Has(pose.RightShoulder) {
		comp.drawSkeleton(c, snapshot, w, h)
		left := toPixel(snapshot.Points[pose.LeftShoulder], w, h)
		right := toPixel(snapshot.Points[pose.RightShoulder], w, h)

		center := HeadCenter(left, right)
		radius := HeadRadius(left, right)
		comp.drawFace(c, center, radius, MouthHeight(radius, envelope))
	} else {
		// No tracked body yet. Keep the mouth moving so audio capture is
		// visibly alive before the first detection lands.
		center := mgl64.Vec2{float64(w) / 2, float64(h) * idleHeadYFraction}
		comp.drawFace(c, center, idleHeadRadiusPx, IdleMouthHeight(envelope))
	}

	if preview != nil {
		x0 := w - previewWidthPx - previewMarginPx
		y0 := h - previewHeightPx - previewMarginPx
		c.DrawImage(preview, image.Rect(x0, y0, x0+previewWidthPx, y0+previewHeightPx), previewOpacity)
	}
}

// drawSkeleton strokes every bone whose endpoints are present, in one pass.
func (comp *Compositor) drawSkeleton(c *render.Canvas, snapshot *pose.Snapshot, w, h int) {
	segs := make([]render.Segment, 0, len(pose.Connections))
	for _, conn := range pose.Connections {
		if !snapshot.Has(conn.A) || !snapshot.Has(conn.B) {
			continue
		}
		a := toPixel(snapshot.Points[conn.A], w, h)
		b := toPixel(snapshot.Points[conn.B], w, h)
		segs = append(segs, render.Segment{AX: a.X(), AY: a.Y(), BX: b.X(), BY: b.Y()})
	}
	c.StrokeSegments(segs, skeletonStrokePx, skeletonColor)
}

// drawFace paints the head circle, both eyes, and the mouth capsule.
func (comp *Compositor) drawFace(c *render.Canvas, center mgl64.Vec2, radius, mouthHeight float64) {
	c.FillCircle(center.X(), center.Y(), radius, headColor)

	leftEye, rightEye := EyeCenters(center, radius)
	eyeR := EyeRadius(radius)
	c.FillCircle(leftEye.X(), leftEye.Y(), eyeR, eyeColor)
	c.FillCircle(rightEye.X(), rightEye.Y(), eyeR, eyeColor)

	mouthW := MouthWidth(radius)
	mouthCY := center.Y() + radius*mouthDropScale
	c.FillRoundedRect(
		center.X()-mouthW/2,
		mouthCY-mouthHeight/2,
		mouthW,
		mouthHeight,
		mouthHeight/2,
		mouthColor,
	)
}

// toPixel maps a normalized keypoint onto the surface.
func toPixel(kp pose.Keypoint, w, h int) mgl64.Vec2 {
	return mgl64.Vec2{kp.X * float64(w), kp.Y * float64(h)}
}
