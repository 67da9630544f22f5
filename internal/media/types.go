// Package media provides camera and microphone access through the local
// capture helper, plus the frame pump feeding the pose detector.
package media

import (
	"errors"
	"image"
	"time"
)

// Common errors
var (
	ErrAccessDenied = errors.New("media access denied")
	ErrUnavailable  = errors.New("no compatible media device available")
)

// Constraints are forwarded with the device access request.
type Constraints struct {
	Width  int  `json:"width"`
	Height int  `json:"height"`
	Audio  bool `json:"audio"`
}

// Frame is one captured camera frame.
type Frame struct {
	JPEG      []byte
	Width     int
	Height    int
	Timestamp time.Time
}

// Stream is a combined camera+microphone stream. Video frames arrive
// through a registered callback at roughly the source frame rate; audio
// samples are pushed into the registered sink.
type Stream interface {
	// OnVideoFrame registers the per-frame callback (the frame pump).
	OnVideoFrame(fn func(*Frame))

	// SetAudioSink registers the consumer of raw PCM16 audio bytes.
	SetAudioSink(fn func(pcm []byte))

	// LatestImage returns the most recent decoded frame for preview
	// drawing, or nil before any frame has buffered.
	LatestImage() image.Image

	// StopTracks releases the underlying devices.
	StopTracks() error
}
