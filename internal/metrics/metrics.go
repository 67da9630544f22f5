// Package metrics exposes Prometheus counters for the capture and render
// pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	SessionsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "puppetcam_sessions_started_total",
		Help: "Capture sessions started",
	})

	SessionStartFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "puppetcam_session_start_failures_total",
		Help: "Capture sessions that failed to start",
	})

	FramesRendered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "puppetcam_frames_rendered_total",
		Help: "Avatar frames composed and presented",
	})

	FramesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "puppetcam_pump_frames_dropped_total",
		Help: "Camera frames dropped while the pose detector was busy",
	})

	DetectorResults = promauto.NewCounter(prometheus.CounterOpts{
		Name: "puppetcam_detector_results_total",
		Help: "Pose detector results received, including no-detection",
	})

	DetectorErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "puppetcam_detector_errors_total",
		Help: "Pose detector failures",
	})

	AudioEnvelope = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "puppetcam_audio_envelope",
		Help: "Latest audio loudness envelope in [0,1]",
	})
)

// Serve exposes /metrics on addr until the server fails. Run it on its own
// goroutine.
func Serve(addr string, logger zerolog.Logger) {
	log := logger.With().Str("component", "metrics").Logger()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	log.Info().Str("addr", addr).Msg("Metrics server listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Warn().Err(err).Msg("Metrics server stopped")
	}
}
