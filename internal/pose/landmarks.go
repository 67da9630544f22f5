// Package pose provides body keypoint types, the landmark cache, and the
// external pose detector client for PuppetCam.
package pose

import (
	"fmt"
	"time"
)

// LandmarkIndex addresses one keypoint in the detector's fixed body model.
// The layout mirrors the 33-point layout the detector documents; the
// indices are a closed constant table validated at startup.
type LandmarkIndex int

const (
	Nose LandmarkIndex = iota
	LeftEyeInner
	LeftEye
	LeftEyeOuter
	RightEyeInner
	RightEye
	RightEyeOuter
	LeftEar
	RightEar
	MouthLeft
	MouthRight
	LeftShoulder
	RightShoulder
	LeftElbow
	RightElbow
	LeftWrist
	RightWrist
	LeftPinky
	RightPinky
	LeftIndex
	RightIndex
	LeftThumb
	RightThumb
	LeftHip
	RightHip
	LeftKnee
	RightKnee
	LeftAnkle
	RightAnkle
	LeftHeel
	RightHeel
	LeftFootIndex
	RightFootIndex

	// LandmarkCount is the size of a complete snapshot.
	LandmarkCount
)

// Keypoint is one tracked body location with normalized planar coordinates
// in [0,1] relative to frame width/height, optional depth, and optional
// visibility/confidence.
type Keypoint struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z,omitempty"`
	Visibility float64 `json:"visibility,omitempty"`
}

// Snapshot is one complete, internally consistent set of keypoints produced
// by a single detector invocation. It is written wholesale and never
// partially mutated.
type Snapshot struct {
	Points []Keypoint
	Taken  time.Time
}

// Connection joins two keypoints with a drawn bone.
type Connection struct {
	A LandmarkIndex
	B LandmarkIndex
}

// Connections is the fixed skeleton topology. Static configuration,
// immutable, defined once.
var Connections = []Connection{
	{LeftShoulder, RightShoulder},
	{LeftShoulder, LeftElbow},
	{LeftElbow, LeftWrist},
	{RightShoulder, RightElbow},
	{RightElbow, RightWrist},
	{LeftShoulder, LeftHip},
	{RightShoulder, RightHip},
	{LeftHip, RightHip},
	{LeftHip, LeftKnee},
	{LeftKnee, LeftAnkle},
	{RightHip, RightKnee},
	{RightKnee, RightAnkle},
}

// ValidateTopology checks the connection table against the body model once
// at startup.
func ValidateTopology() error {
	if LandmarkCount != 33 {
		return fmt.Errorf("landmark table has %d entries, detector body model defines 33", LandmarkCount)
	}
	for _, c := range Connections {
		if c.A < 0 || c.A >= LandmarkCount {
			return fmt.Errorf("connection endpoint %d out of range", c.A)
		}
		if c.B < 0 || c.B >= LandmarkCount {
			return fmt.Errorf("connection endpoint %d out of range", c.B)
		}
		if c.A == c.B {
			return fmt.Errorf("connection joins landmark %d to itself", c.A)
		}
	}
	return nil
}

// Has reports whether the snapshot carries the given keypoint.
func (s *Snapshot) Has(idx LandmarkIndex) bool {
	return s != nil && int(idx) < len(s.Points)
}
