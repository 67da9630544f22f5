package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "http://localhost:8790", cfg.Capture.HelperURL)
	assert.Equal(t, 1280, cfg.Capture.Width)
	assert.Equal(t, 720, cfg.Capture.Height)
	assert.True(t, cfg.Capture.Audio)
	assert.Equal(t, 10*time.Second, cfg.Capture.Timeout)

	assert.Equal(t, 48000, cfg.Audio.SampleRate)

	assert.Equal(t, "http://localhost:8791", cfg.Detector.URL)
	// 1 is "full" on the detector's lite/full/heavy scale.
	assert.Equal(t, 1, cfg.Detector.ModelComplexity)
	assert.True(t, cfg.Detector.SmoothLandmarks)
	assert.InDelta(t, 0.5, cfg.Detector.MinDetectionConfidence, 1e-9)
	assert.InDelta(t, 0.5, cfg.Detector.MinTrackingConfidence, 1e-9)
	assert.Equal(t, "0.5", cfg.Detector.AssetVersion)
	assert.Equal(t, 15*time.Second, cfg.Detector.InitTimeout)

	assert.Equal(t, "PuppetCam", cfg.Window.Title)
	assert.Equal(t, 1280, cfg.Window.Width)
	assert.Equal(t, 720, cfg.Window.Height)
	assert.True(t, cfg.Window.VSync)

	assert.False(t, cfg.Metrics.Enabled)
	assert.Equal(t, "localhost:9290", cfg.Metrics.Addr)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Console)
}

func TestGetConfigDir(t *testing.T) {
	dir, err := GetConfigDir()
	assert.NoError(t, err)
	assert.Contains(t, dir, ".puppetcam")
}
