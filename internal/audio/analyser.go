// Package audio provides the audio analysis graph and loudness envelope
// extraction for PuppetCam.
package audio

import (
	"errors"
	"sync"
)

// Common errors
var (
	ErrBufferSize = errors.New("buffer length must equal the transform size")
	ErrNoSamples  = errors.New("no audio samples received yet")
)

const (
	// TransformSize is the number of samples analyzed per envelope query.
	TransformSize = 1024

	// SmoothingConstant exponentially blends successive reads to avoid
	// frame-to-frame flicker in the envelope.
	SmoothingConstant = 0.6
)

// Analyser is the analysis node of the audio graph. The microphone source
// pushes PCM samples in; the render loop pulls a smoothed time-domain
// window out. Reads blend against the previous read with SmoothingConstant.
type Analyser struct {
	mu sync.Mutex

	// ring holds the most recent TransformSize samples.
	ring   [TransformSize]float64
	head   int
	filled int

	smoothed [TransformSize]float64
	primed   bool
}

// NewAnalyser creates an analysis node with the fixed transform size.
func NewAnalyser() *Analyser {
	return &Analyser{}
}

// Push appends captured samples, normalized to [-1,1]. Older samples fall
// out of the window.
func (a *Analyser) Push(samples []float64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, s := range samples {
		a.ring[a.head] = s
		a.head = (a.head + 1) % TransformSize
		if a.filled < TransformSize {
			a.filled++
		}
	}
}

// PushPCM16 appends little-endian 16-bit signed PCM bytes.
func (a *Analyser) PushPCM16(data []byte) {
	samples := make([]float64, 0, len(data)/2)
	for i := 0; i+1 < len(data); i += 2 {
		sample := int16(data[i]) | int16(data[i+1])<<8
		samples = append(samples, float64(sample)/32768.0)
	}
	a.Push(samples)
}

// ReadTimeDomain fills buf with the current waveform window, blended
// against the previous read by the smoothing constant. buf must be exactly
// TransformSize long. Returns ErrNoSamples before the first Push.
func (a *Analyser) ReadTimeDomain(buf []float64) error {
	if len(buf) != TransformSize {
		return ErrBufferSize
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.filled == 0 {
		return ErrNoSamples
	}

	// Oldest-first copy of the ring.
	start := a.head
	if a.filled < TransformSize {
		start = 0
	}
	for i := 0; i < TransformSize; i++ {
		cur := a.ring[(start+i)%TransformSize]
		if a.primed {
			cur = a.smoothed[i]*SmoothingConstant + cur*(1-SmoothingConstant)
		}
		a.smoothed[i] = cur
		buf[i] = cur
	}
	a.primed = true

	return nil
}

// Reset discards all buffered and smoothed samples.
func (a *Analyser) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.head = 0
	a.filled = 0
	a.primed = false
	for i := range a.ring {
		a.ring[i] = 0
		a.smoothed[i] = 0
	}
}
