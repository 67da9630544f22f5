// Package avatar composes the stick-figure avatar onto the drawing surface
// from the latest landmark snapshot and audio envelope.
package avatar

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Face geometry constants. The avatar shape is fixed: circle head, two
// eyes, one mouth, skeletal stick-figure body.
const (
	// The body model carries no usable head keypoint, so the head floats
	// above the shoulder line by a fixed amount.
	headLiftPx = 40.0

	headRadiusScale = 0.35
	headRadiusMin   = 24.0
	headRadiusMax   = 80.0

	eyeOffsetXScale = 0.35
	eyeOffsetYScale = -0.1
	eyeRadiusScale  = 0.08
	eyeRadiusMin    = 3.0

	mouthWidthScale  = 0.9
	mouthFloorScale  = 0.08
	mouthGainScale   = 0.6
	mouthDropScale   = 0.45
	skeletonStrokePx = 6.0

	// Idle face, drawn when no landmarks are cached.
	idleHeadRadiusPx  = 56.0
	idleMouthFloorPx  = 6.0
	idleMouthGainPx   = 30.0
	idleHeadYFraction = 0.38
)

// HeadCenter is the midpoint of the two shoulders, lifted by a fixed pixel
// amount. Inputs are surface-space shoulder positions.
func HeadCenter(leftShoulder, rightShoulder mgl64.Vec2) mgl64.Vec2 {
	mid := leftShoulder.Add(rightShoulder).Mul(0.5)
	return mgl64.Vec2{mid.X(), mid.Y() - headLiftPx}
}

// HeadRadius derives the head size from shoulder-to-shoulder distance,
// clamped so degenerate poses stay drawable.
func HeadRadius(leftShoulder, rightShoulder mgl64.Vec2) float64 {
	d := rightShoulder.Sub(leftShoulder).Len()
	r := d * headRadiusScale
	if r < headRadiusMin {
		return headRadiusMin
	}
	if r > headRadiusMax {
		return headRadiusMax
	}
	return r
}

// EyeCenters returns the two eye positions for a head.
func EyeCenters(center mgl64.Vec2, radius float64) (left, right mgl64.Vec2) {
	dx := radius * eyeOffsetXScale
	dy := radius * eyeOffsetYScale
	left = mgl64.Vec2{center.X() - dx, center.Y() + dy}
	right = mgl64.Vec2{center.X() + dx, center.Y() + dy}
	return left, right
}

// EyeRadius returns the eye size for a head, floored so eyes stay visible.
func EyeRadius(headRadius float64) float64 {
	return math.Max(eyeRadiusMin, headRadius*eyeRadiusScale)
}

// MouthWidth returns the mouth width for a head.
func MouthWidth(headRadius float64) float64 {
	return headRadius * mouthWidthScale
}

// MouthHeight grows linearly with the envelope; the floor keeps the mouth
// visible at silence.
func MouthHeight(headRadius, envelope float64) float64 {
	return math.Max(headRadius*mouthFloorScale, envelope*headRadius*mouthGainScale)
}

// IdleMouthHeight is the fixed-geometry variant used when landmarks are
// absent, so lipsync stays visible before body tracking kicks in.
func IdleMouthHeight(envelope float64) float64 {
	return math.Max(idleMouthFloorPx, envelope*idleMouthGainPx)
}
