package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/normanking/puppetcam/internal/bus"
	"github.com/normanking/puppetcam/internal/config"
	"github.com/normanking/puppetcam/internal/display"
	"github.com/normanking/puppetcam/internal/logging"
	"github.com/normanking/puppetcam/internal/metrics"
	"github.com/normanking/puppetcam/internal/pose"
	"github.com/normanking/puppetcam/internal/session"
)

func init() {
	// GLFW requires the main thread.
	runtime.LockOSThread()
}

func main() {
	helperURL := flag.String("helper", "", "Capture helper URL (overrides config)")
	detectorURL := flag.String("detector", "", "Pose detector URL (overrides config)")
	metricsAddr := flag.String("metrics", "", "Prometheus listen address (overrides config)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *helperURL != "" {
		cfg.Capture.HelperURL = *helperURL
	}
	if *detectorURL != "" {
		cfg.Detector.URL = *detectorURL
	}
	if *metricsAddr != "" {
		cfg.Metrics.Enabled = true
		cfg.Metrics.Addr = *metricsAddr
	}

	logCfg := logging.DefaultConfig()
	logCfg.Level = logging.LogLevel(cfg.Logging.Level)
	logCfg.Console = cfg.Logging.Console
	logger, err := logging.New(logCfg)
	if err != nil {
		log.Fatalf("Failed to initialize logging: %v", err)
	}
	defer logger.Close()

	mainLog := logger.Component("main")

	if err := pose.ValidateTopology(); err != nil {
		mainLog.Fatal().Err(err).Msg("Skeleton topology invalid")
	}

	if cfg.Metrics.Enabled {
		go metrics.Serve(cfg.Metrics.Addr, logger.Zerolog())
	}

	if err := glfw.Init(); err != nil {
		mainLog.Fatal().Err(err).Msg("Failed to initialize GLFW")
	}
	defer glfw.Terminate()

	window, err := display.NewWindow(display.Config{
		Width:  cfg.Window.Width,
		Height: cfg.Window.Height,
		Title:  cfg.Window.Title,
		VSync:  cfg.Window.VSync,
	}, logger.Zerolog())
	if err != nil {
		mainLog.Fatal().Err(err).Msg("Failed to create window")
	}
	defer window.Destroy()

	eventBus := bus.NewEventBus()
	eventBus.Subscribe(bus.EventTypeSurfaceLost, func(e bus.Event) {
		mainLog.Info().Msg("Render surface lost")
	})

	manager := session.NewManager(cfg, window, eventBus, logger.Zerolog())

	watcher, err := config.NewWatcher(func(updated *config.Config) {
		logging.SetLevel(logging.LogLevel(updated.Logging.Level))
		manager.UpdateConfig(updated)
		mainLog.Info().Str("level", updated.Logging.Level).Msg("Configuration reloaded")
	})
	if err != nil {
		mainLog.Warn().Err(err).Msg("Config watcher unavailable")
	} else {
		defer watcher.Close()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		mainLog.Info().Msg("Shutdown signal received")
		window.Close()
	}()

	// Session startup dials the collaborators; keep it off the main thread
	// so the window comes up immediately.
	go func() {
		id, err := manager.Start(context.Background())
		if err != nil {
			mainLog.Error().Err(err).Msg("Could not start capture session")
			return
		}
		mainLog.Info().Str("session_id", id).Msg("Session started")
	}()

	window.RunEventLoop()

	if err := manager.Stop(); err != nil {
		mainLog.Warn().Err(err).Msg("Session teardown reported errors")
	}
	mainLog.Info().Msg("PuppetCam exited")
}
