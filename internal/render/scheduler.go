package render

import (
	"errors"
	"image"
	"sync"

	"github.com/rs/zerolog"
)

// ErrSurfaceUnavailable signals that the drawing target is gone; the
// scheduler stops rescheduling instead of erroring.
var ErrSurfaceUnavailable = errors.New("render surface unavailable")

// Surface presents completed frames. Present blocks until the frame has
// been shown, so the loop runs at the display's refresh cadence.
type Surface interface {
	Size() (int, int)
	Present(img *image.RGBA) error
}

// DrawFunc renders one complete frame onto the canvas.
type DrawFunc func(*Canvas)

// Scheduler drives the compositor continuously while a session is running:
// draw, present, repeat, capped at display refresh rate. Cancellation is
// synchronous: once Cancel returns, no further draw begins.
type Scheduler struct {
	surface Surface
	draw    DrawFunc
	logger  zerolog.Logger

	mu        sync.Mutex
	cancelled bool

	done chan struct{}
}

// NewScheduler builds a scheduler for a surface and a draw callback.
func NewScheduler(surface Surface, draw DrawFunc, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		surface: surface,
		draw:    draw,
		logger:  logger.With().Str("component", "render-loop").Logger(),
		done:    make(chan struct{}),
	}
}

// Run executes the render loop until cancelled or the surface disappears.
// Call it on its own goroutine.
func (s *Scheduler) Run() {
	defer close(s.done)

	w, h := s.surface.Size()
	canvas := NewCanvas(w, h)

	for {
		// Draw happens under the lock so Cancel cannot return while a
		// frame is still being composed.
		s.mu.Lock()
		if s.cancelled {
			s.mu.Unlock()
			return
		}
		s.safeDraw(canvas)
		s.mu.Unlock()

		if err := s.surface.Present(canvas.Image()); err != nil {
			if errors.Is(err, ErrSurfaceUnavailable) {
				s.logger.Info().Msg("Render surface gone, loop stopping")
				return
			}
			s.logger.Warn().Err(err).Msg("Frame present failed")
		}
	}
}

// safeDraw isolates a single bad frame; the loop keeps scheduling with the
// last-good cached data.
func (s *Scheduler) safeDraw(canvas *Canvas) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().Interface("panic", r).Msg("Frame draw failed")
		}
	}()
	s.draw(canvas)
}

// Cancel stops the loop. When Cancel returns, no draw is in progress and
// none will start.
func (s *Scheduler) Cancel() {
	s.mu.Lock()
	s.cancelled = true
	s.mu.Unlock()
}

// Done is closed when the loop has fully exited.
func (s *Scheduler) Done() <-chan struct{} {
	return s.done
}
