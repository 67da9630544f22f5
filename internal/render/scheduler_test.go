package render

import (
	"image"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSurface counts presented frames, with an optional error script.
type fakeSurface struct {
	mu        sync.Mutex
	presented int
	failAfter int
	failWith  error
}

func (s *fakeSurface) Size() (int, int) { return 64, 48 }

func (s *fakeSurface) Present(img *image.RGBA) error {
	// A real surface blocks until the display refreshes.
	time.Sleep(time.Millisecond)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.presented++
	if s.failWith != nil && s.presented > s.failAfter {
		return s.failWith
	}
	return nil
}

func (s *fakeSurface) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.presented
}

func TestScheduler_DrawsRepeatedly(t *testing.T) {
	surface := &fakeSurface{}

	var mu sync.Mutex
	draws := 0
	sched := NewScheduler(surface, func(c *Canvas) {
		mu.Lock()
		draws++
		mu.Unlock()
	}, zerolog.Nop())

	go sched.Run()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return draws >= 5
	}, 2*time.Second, 5*time.Millisecond)

	sched.Cancel()
	<-sched.Done()

	assert.GreaterOrEqual(t, surface.count(), 5)
}

func TestScheduler_CancelIsSynchronous(t *testing.T) {
	surface := &fakeSurface{}

	var mu sync.Mutex
	draws := 0
	sched := NewScheduler(surface, func(c *Canvas) {
		mu.Lock()
		draws++
		mu.Unlock()
		time.Sleep(2 * time.Millisecond)
	}, zerolog.Nop())

	go sched.Run()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return draws >= 2
	}, 2*time.Second, time.Millisecond)

	sched.Cancel()

	// Once Cancel returns no draw is in progress and none will start.
	mu.Lock()
	atCancel := draws
	mu.Unlock()

	time.Sleep(20 * time.Millisecond)

	mu.Lock()
	after := draws
	mu.Unlock()
	assert.Equal(t, atCancel, after)

	<-sched.Done()
}

func TestScheduler_StopsWhenSurfaceGone(t *testing.T) {
	surface := &fakeSurface{failAfter: 3, failWith: ErrSurfaceUnavailable}

	sched := NewScheduler(surface, func(c *Canvas) {}, zerolog.Nop())
	go sched.Run()

	select {
	case <-sched.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler kept running after the surface disappeared")
	}

	assert.Equal(t, 4, surface.count())
}

func TestScheduler_DrawPanicDoesNotKillLoop(t *testing.T) {
	surface := &fakeSurface{}

	var mu sync.Mutex
	draws := 0
	sched := NewScheduler(surface, func(c *Canvas) {
		mu.Lock()
		draws++
		n := draws
		mu.Unlock()
		if n == 1 {
			panic("bad frame")
		}
	}, zerolog.Nop())

	go sched.Run()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return draws >= 3
	}, 2*time.Second, time.Millisecond)

	sched.Cancel()
	<-sched.Done()
}

func TestScheduler_CanvasMatchesSurfaceSize(t *testing.T) {
	surface := &fakeSurface{}

	sizes := make(chan [2]int, 1)
	var once sync.Once
	sched := NewScheduler(surface, func(c *Canvas) {
		once.Do(func() {
			w, h := c.Size()
			sizes <- [2]int{w, h}
		})
	}, zerolog.Nop())

	go sched.Run()
	defer func() {
		sched.Cancel()
		<-sched.Done()
	}()

	select {
	case got := <-sizes:
		assert.Equal(t, [2]int{64, 48}, got)
	case <-time.After(2 * time.Second):
		t.Fatal("no frame drawn")
	}
}
