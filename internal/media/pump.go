package media

import (
	"errors"
	"sync"

	"github.com/normanking/puppetcam/internal/pose"
	"github.com/rs/zerolog"
)

// Pump forwards camera frames from a Stream to the pose detector at the
// source frame rate. The detector accepts one in-flight frame; frames that
// arrive while it is busy are dropped, never queued, bounding memory and
// detector backlog.
type Pump struct {
	stream   Stream
	detector pose.Detector
	logger   zerolog.Logger

	mu      sync.Mutex
	running bool

	forwarded int64
	dropped   int64

	onForwarded func()
	onDropped   func()
}

// NewPump wires a stream to a detector.
func NewPump(stream Stream, detector pose.Detector, logger zerolog.Logger) *Pump {
	return &Pump{
		stream:   stream,
		detector: detector,
		logger:   logger.With().Str("component", "frame-pump").Logger(),
	}
}

// SetForwardedCallback registers a hook invoked on every forwarded frame.
func (p *Pump) SetForwardedCallback(fn func()) {
	p.mu.Lock()
	p.onForwarded = fn
	p.mu.Unlock()
}

// SetDroppedCallback registers a hook invoked on every dropped frame.
func (p *Pump) SetDroppedCallback(fn func()) {
	p.mu.Lock()
	p.onDropped = fn
	p.mu.Unlock()
}

// Start registers the per-frame callback on the stream.
func (p *Pump) Start() {
	p.mu.Lock()
	p.running = true
	p.mu.Unlock()

	p.stream.OnVideoFrame(p.handleFrame)
	p.logger.Info().Msg("Frame pump started")
}

func (p *Pump) handleFrame(frame *Frame) {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()

	err := p.detector.Submit(frame.JPEG, frame.Width, frame.Height)
	switch {
	case err == nil:
		p.mu.Lock()
		p.forwarded++
		hook := p.onForwarded
		p.mu.Unlock()
		if hook != nil {
			hook()
		}

	case errors.Is(err, pose.ErrBusy):
		// Drop-latest policy: the detector is still chewing on the
		// previous frame.
		p.mu.Lock()
		p.dropped++
		hook := p.onDropped
		p.mu.Unlock()
		if hook != nil {
			hook()
		}

	case errors.Is(err, pose.ErrClosed):
		p.mu.Lock()
		p.running = false
		p.mu.Unlock()

	default:
		// One failed submission must not kill the pump.
		p.logger.Warn().Err(err).Msg("Frame submission failed")
	}
}

// Stop detaches the pump from the stream.
func (p *Pump) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	forwarded, dropped := p.forwarded, p.dropped
	p.mu.Unlock()

	p.logger.Info().
		Int64("forwarded", forwarded).
		Int64("dropped", dropped).
		Msg("Frame pump stopped")
}

// Stats returns forwarded and dropped frame counts.
func (p *Pump) Stats() (forwarded, dropped int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.forwarded, p.dropped
}
