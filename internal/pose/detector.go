package pose

import (
	"errors"
)

// Common errors
var (
	ErrInitFailed = errors.New("pose detector init failed")
	ErrBusy       = errors.New("pose detector busy")
	ErrClosed     = errors.New("pose detector closed")
)

// Config holds the detector knobs forwarded at initialization.
type Config struct {
	ModelComplexity        int     `json:"model_complexity"` // 0=lite, 1=full, 2=heavy
	SmoothLandmarks        bool    `json:"smooth_landmarks"`
	MinDetectionConfidence float64 `json:"min_detection_confidence"`
	MinTrackingConfidence  float64 `json:"min_tracking_confidence"`
	AssetVersion           string  `json:"asset_version"`
}

// ResultFunc receives each detector result. A nil snapshot means the frame
// contained no detectable body.
type ResultFunc func(snap *Snapshot)

// Detector accepts one image frame at a time and reports results through a
// registered callback, asynchronously. Implementations accept a single
// in-flight frame; Submit returns ErrBusy while one is outstanding.
type Detector interface {
	SetResultCallback(fn ResultFunc)
	Submit(jpeg []byte, width, height int) error
	Close() error
}
