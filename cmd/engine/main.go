package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/zeusync/engine/internal/config"
	"github.com/zeusync/engine/internal/core/observability/log"
	"github.com/zeusync/engine/internal/descriptor"
	"github.com/zeusync/engine/internal/injector"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Default()
	cfgPath := os.Getenv("ZEUSYNC_CONFIG")
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}
	if cfgPath != "" {
		var err error
		if cfg, err = config.Load(cfgPath); err != nil {
			return err
		}
	}

	eng, cleanup, err := injector.InitializeEngine(cfg)
	if err != nil {
		return fmt.Errorf("init engine: %w", err)
	}
	defer cleanup()
	defer func() { _ = eng.Logger.Sync() }()

	logger := eng.Logger
	if cfg.Scene.Path != "" {
		scene, err := descriptor.LoadFile(cfg.Scene.Path)
		if err != nil {
			return err
		}
		if _, err := scene.Instantiate(eng.Registry, eng.World.PersistentMap(), logger); err != nil {
			return err
		}
	}
	if eng.Editor != nil {
		logger.Info("editor link ready", log.String("addr", eng.Editor.Addr().String()))
		defer func() {
			st := eng.Editor.Stats()
			logger.Info("editor link stats",
				log.Uint64("published", st.Published),
				log.Uint64("forwarded", st.Forwarded),
				log.Uint64("dropped_slow", st.DroppedSlow),
				log.Duration("slowest_delivery", st.SlowestDelivery),
				log.Uint64("bus_published", st.Bus.Published),
				log.Uint64("bus_errors", st.Bus.Errors))
		}()
	}

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	frameTime := time.Duration(cfg.World.DeltaTime * float64(time.Second))
	ticker := time.NewTicker(frameTime)
	defer ticker.Stop()

	logger.Info("frame loop started",
		log.Duration("frame_time", frameTime),
		log.Uint64("max_frames", cfg.World.MaxFrames))

	var updated uint64
	for {
		select {
		case <-ticker.C:
			ran, err := eng.World.Update(cfg.World.DeltaTime)
			if err != nil {
				return err
			}
			if !ran {
				continue
			}
			updated++
			if cfg.World.MaxFrames > 0 && updated >= cfg.World.MaxFrames {
				logger.Info("frame limit reached",
					log.Uint64("frames", eng.World.Frame()),
					log.Int("draw_items", len(eng.Renderer.DrawList())))
				return nil
			}
		case sig := <-shutdownCh:
			logger.Info("shutdown signal received", log.String("signal", sig.String()))
			return nil
		}
	}
}
