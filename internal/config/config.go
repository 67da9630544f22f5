// Package config provides configuration management for PuppetCam
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Capture  CaptureConfig  `mapstructure:"capture"`
	Audio    AudioConfig    `mapstructure:"audio"`
	Detector DetectorConfig `mapstructure:"detector"`
	Window   WindowConfig   `mapstructure:"window"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// CaptureConfig configures the capture helper connection and constraints
type CaptureConfig struct {
	HelperURL string        `mapstructure:"helper_url"` // WebSocket URL of the local capture helper
	Width     int           `mapstructure:"width"`
	Height    int           `mapstructure:"height"`
	Audio     bool          `mapstructure:"audio"`
	Timeout   time.Duration `mapstructure:"timeout"` // Device acquisition timeout
}

// AudioConfig configures the audio analysis graph
type AudioConfig struct {
	SampleRate int `mapstructure:"sample_rate"`
}

// DetectorConfig configures the external pose detector
type DetectorConfig struct {
	URL                    string        `mapstructure:"url"` // WebSocket URL of the pose detector sidecar
	ModelComplexity        int           `mapstructure:"model_complexity"`
	SmoothLandmarks        bool          `mapstructure:"smooth_landmarks"`
	MinDetectionConfidence float64       `mapstructure:"min_detection_confidence"`
	MinTrackingConfidence  float64       `mapstructure:"min_tracking_confidence"`
	AssetVersion           string        `mapstructure:"asset_version"` // Model asset version the sidecar should serve
	InitTimeout            time.Duration `mapstructure:"init_timeout"`
}

// WindowConfig configures the display window
type WindowConfig struct {
	Title  string `mapstructure:"title"`
	Width  int    `mapstructure:"width"`
	Height int    `mapstructure:"height"`
	VSync  bool   `mapstructure:"vsync"`
}

// MetricsConfig configures the Prometheus endpoint
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// LoggingConfig configures logging output
type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	Console bool   `mapstructure:"console"`
}

// DefaultConfig returns sensible default configuration
func DefaultConfig() *Config {
	return &Config{
		Capture: CaptureConfig{
			HelperURL: "http://localhost:8790",
			Width:     1280,
			Height:    720,
			Audio:     true,
			Timeout:   10 * time.Second,
		},
		Audio: AudioConfig{
			SampleRate: 48000,
		},
		Detector: DetectorConfig{
			URL:                    "http://localhost:8791",
			ModelComplexity:        1, // full
			SmoothLandmarks:        true,
			MinDetectionConfidence: 0.5,
			MinTrackingConfidence:  0.5,
			AssetVersion:           "0.5",
			InitTimeout:            15 * time.Second,
		},
		Window: WindowConfig{
			Title:  "PuppetCam",
			Width:  1280,
			Height: 720,
			VSync:  true,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Addr:    "localhost:9290",
		},
		Logging: LoggingConfig{
			Level:   "info",
			Console: true,
		},
	}
}

// Load reads configuration from file and environment
func Load() (*Config, error) {
	cfg := DefaultConfig()

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return cfg, err
	}

	configDir := filepath.Join(homeDir, ".puppetcam")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return cfg, err
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".")

	// Environment variable overrides
	viper.SetEnvPrefix("PUPPETCAM")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return cfg, err
		}
		// Config file not found, use defaults and create one
		if err := Save(cfg); err != nil {
			return cfg, err
		}
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// Save writes the configuration to file
func Save(cfg *Config) error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return err
	}

	configDir := filepath.Join(homeDir, ".puppetcam")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return err
	}

	viper.Set("capture", cfg.Capture)
	viper.Set("audio", cfg.Audio)
	viper.Set("detector", cfg.Detector)
	viper.Set("window", cfg.Window)
	viper.Set("metrics", cfg.Metrics)
	viper.Set("logging", cfg.Logging)

	configPath := filepath.Join(configDir, "config.yaml")
	return viper.WriteConfigAs(configPath)
}

// GetConfigDir returns the configuration directory path
func GetConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".puppetcam"), nil
}
