// Package session owns the capture session lifecycle: device acquisition,
// detector startup, frame pumping, and the render loop, with total teardown.
package session

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/normanking/puppetcam/internal/audio"
	"github.com/normanking/puppetcam/internal/avatar"
	"github.com/normanking/puppetcam/internal/bus"
	"github.com/normanking/puppetcam/internal/config"
	"github.com/normanking/puppetcam/internal/media"
	"github.com/normanking/puppetcam/internal/metrics"
	"github.com/normanking/puppetcam/internal/pose"
	"github.com/normanking/puppetcam/internal/render"
)

// State is the session lifecycle state.
type State string

const (
	StateIdle    State = "idle"
	StateRunning State = "running"
)

// StreamOpener acquires camera and microphone access.
type StreamOpener func(ctx context.Context, c media.Constraints) (media.Stream, error)

// DetectorFactory starts the pose detector.
type DetectorFactory func(ctx context.Context) (pose.Detector, error)

// Manager serializes Start and Stop under one mutex so overlapping calls
// can never interleave acquisition and teardown. A failed Start releases
// everything acquired so far; Stop releases everything and is a no-op when
// nothing is running.
type Manager struct {
	cfg     *config.Config
	surface render.Surface
	bus     *bus.EventBus
	logger  zerolog.Logger

	openStream  StreamOpener
	newDetector DetectorFactory

	mu        sync.Mutex
	state     State
	sessionID string

	stream    media.Stream
	detector  pose.Detector
	pump      *media.Pump
	analyser  *audio.Analyser
	cache     *pose.Cache
	scheduler *render.Scheduler
}

// NewManager builds a manager using the real WebSocket collaborators.
func NewManager(cfg *config.Config, surface render.Surface, eventBus *bus.EventBus, logger zerolog.Logger) *Manager {
	m := &Manager{
		cfg:     cfg,
		surface: surface,
		bus:     eventBus,
		logger:  logger.With().Str("component", "session").Logger(),
		state:   StateIdle,
	}
	// The factories read m.cfg at call time, under the lifecycle mutex, so
	// a hot-reloaded config takes effect on the next Start.
	m.openStream = func(ctx context.Context, c media.Constraints) (media.Stream, error) {
		return media.OpenStream(ctx, m.cfg.Capture.HelperURL, c, logger)
	}
	m.newDetector = func(ctx context.Context) (pose.Detector, error) {
		return pose.NewWSDetector(ctx, m.cfg.Detector.URL, pose.Config{
			ModelComplexity:        m.cfg.Detector.ModelComplexity,
			SmoothLandmarks:        m.cfg.Detector.SmoothLandmarks,
			MinDetectionConfidence: m.cfg.Detector.MinDetectionConfidence,
			MinTrackingConfidence:  m.cfg.Detector.MinTrackingConfidence,
			AssetVersion:           m.cfg.Detector.AssetVersion,
		}, logger)
	}
	return m
}

// UpdateConfig swaps in a reloaded configuration. The running session keeps
// the config it started with; the new one applies from the next Start.
func (m *Manager) UpdateConfig(cfg *config.Config) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cfg = cfg
}

// SetCollaborators swaps in alternative stream and detector factories.
func (m *Manager) SetCollaborators(open StreamOpener, detect DetectorFactory) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.openStream = open
	m.newDetector = detect
}

// Start acquires media, starts the detector, and begins rendering. Returns
// the new session ID. When a session is already running it returns the
// existing ID without touching anything.
func (m *Manager) Start(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == StateRunning {
		m.logger.Debug().Str("session_id", m.sessionID).Msg("Session already running")
		return m.sessionID, nil
	}

	id := uuid.NewString()
	log := m.logger.With().Str("session_id", id).Logger()
	log.Info().Msg("Starting capture session")

	// Acquisition order: media, audio graph, detector, pump, render loop.
	// Any failure rolls back everything acquired so far.

	mediaCtx, cancelMedia := context.WithTimeout(ctx, m.cfg.Capture.Timeout)
	stream, err := m.openStream(mediaCtx, media.Constraints{
		Width:  m.cfg.Capture.Width,
		Height: m.cfg.Capture.Height,
		Audio:  m.cfg.Capture.Audio,
	})
	cancelMedia()
	if err != nil {
		m.failStart(log, id, err)
		switch {
		case errors.Is(err, media.ErrAccessDenied):
			m.bus.Publish(bus.Event{Type: bus.EventTypeMediaDenied, Data: map[string]any{"error": err.Error()}})
		default:
			m.bus.Publish(bus.Event{Type: bus.EventTypeMediaUnavailable, Data: map[string]any{"error": err.Error()}})
		}
		return "", err
	}
	m.bus.Publish(bus.Event{Type: bus.EventTypeMediaGranted, Data: map[string]any{"session_id": id}})

	analyser := audio.NewAnalyser()
	stream.SetAudioSink(analyser.PushPCM16)

	detectorCtx, cancelDetector := context.WithTimeout(ctx, m.cfg.Detector.InitTimeout)
	detector, err := m.newDetector(detectorCtx)
	cancelDetector()
	if err != nil {
		_ = stream.StopTracks()
		m.failStart(log, id, err)
		m.bus.Publish(bus.Event{Type: bus.EventTypeDetectorError, Data: map[string]any{"error": err.Error()}})
		return "", err
	}
	m.bus.Publish(bus.Event{Type: bus.EventTypeDetectorReady, Data: map[string]any{"session_id": id}})

	cache := pose.NewCache()
	detector.SetResultCallback(func(snap *pose.Snapshot) {
		metrics.DetectorResults.Inc()
		detected := snap != nil
		if detected {
			cache.Set(snap)
		} else {
			cache.Clear()
		}
		m.bus.Publish(bus.Event{Type: bus.EventTypeDetectorResult, Data: map[string]any{
			"session_id": id,
			"detected":   detected,
		}})
	})

	pump := media.NewPump(stream, detector, m.logger)
	pump.SetForwardedCallback(func() {
		m.bus.Publish(bus.Event{Type: bus.EventTypeFrameForwarded, Data: map[string]any{"session_id": id}})
	})
	pump.SetDroppedCallback(func() {
		metrics.FramesDropped.Inc()
		m.bus.Publish(bus.Event{Type: bus.EventTypeFrameDropped, Data: map[string]any{"session_id": id}})
	})

	scheduler := render.NewScheduler(m.surface, m.makeDrawFunc(stream, cache, analyser), m.logger)

	m.stream = stream
	m.detector = detector
	m.pump = pump
	m.analyser = analyser
	m.cache = cache
	m.scheduler = scheduler
	m.sessionID = id
	m.state = StateRunning

	pump.Start()
	go scheduler.Run()
	go m.watchSurface(scheduler)

	metrics.SessionsStarted.Inc()
	m.bus.Publish(bus.Event{Type: bus.EventTypeSessionStarted, Data: map[string]any{"session_id": id}})
	log.Info().Msg("Capture session running")

	return id, nil
}

func (m *Manager) failStart(log zerolog.Logger, id string, err error) {
	log.Error().Err(err).Msg("Session start failed")
	metrics.SessionStartFailures.Inc()
	m.bus.Publish(bus.Event{Type: bus.EventTypeSessionStartFailed, Data: map[string]any{
		"session_id": id,
		"error":      err.Error(),
	}})
}

// makeDrawFunc builds the per-frame compositor callback. It reads whatever
// snapshot and envelope are current; absence degrades, it never blocks on
// the detector.
func (m *Manager) makeDrawFunc(stream media.Stream, cache *pose.Cache, analyser *audio.Analyser) render.DrawFunc {
	compositor := avatar.NewCompositor()
	sampleBuf := make([]float64, audio.TransformSize)

	return func(c *render.Canvas) {
		envelope, err := audio.Sample(analyser, sampleBuf)
		if err != nil {
			envelope = 0
		}
		metrics.AudioEnvelope.Set(envelope)

		compositor.DrawFrame(c, cache.Get(), envelope, stream.LatestImage())
		metrics.FramesRendered.Inc()
	}
}

// watchSurface reports a render loop that died on its own, which happens
// when the surface disappears out from under a running session.
func (m *Manager) watchSurface(scheduler *render.Scheduler) {
	<-scheduler.Done()

	m.mu.Lock()
	lost := m.state == StateRunning && m.scheduler == scheduler
	id := m.sessionID
	m.mu.Unlock()

	if lost {
		m.bus.Publish(bus.Event{Type: bus.EventTypeSurfaceLost, Data: map[string]any{"session_id": id}})
	}
}

// Stop tears the session down in reverse acquisition order. Teardown is
// total: a failing step is logged and the rest still runs. Calling Stop
// with no session running is a no-op.
func (m *Manager) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateRunning {
		m.logger.Debug().Msg("Stop with no running session")
		return nil
	}

	log := m.logger.With().Str("session_id", m.sessionID).Logger()
	log.Info().Msg("Stopping capture session")

	var firstErr error

	// Render loop first so nothing draws against released resources.
	m.scheduler.Cancel()
	m.pump.Stop()
	m.detector.SetResultCallback(nil)

	if err := m.detector.Close(); err != nil {
		log.Warn().Err(err).Msg("Detector close failed")
		firstErr = err
	}
	if err := m.stream.StopTracks(); err != nil {
		log.Warn().Err(err).Msg("Media stop failed")
		if firstErr == nil {
			firstErr = err
		}
	}

	m.analyser.Reset()
	m.cache.Clear()

	m.stream = nil
	m.detector = nil
	m.pump = nil
	m.analyser = nil
	m.cache = nil
	m.scheduler = nil
	id := m.sessionID
	m.sessionID = ""
	m.state = StateIdle

	m.bus.Publish(bus.Event{Type: bus.EventTypeSessionStopped, Data: map[string]any{"session_id": id}})
	log.Info().Msg("Capture session stopped")

	return firstErr
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// SessionID returns the running session's ID, or empty when idle.
func (m *Manager) SessionID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessionID
}
