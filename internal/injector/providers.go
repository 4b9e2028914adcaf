package injector

import (
	"context"
	"fmt"
	"time"

	"github.com/google/wire"
	"github.com/zeusync/engine/internal/config"
	"github.com/zeusync/engine/internal/core/components"
	"github.com/zeusync/engine/internal/core/events/bus"
	"github.com/zeusync/engine/internal/core/observability/log"
	"github.com/zeusync/engine/internal/core/resource"
	"github.com/zeusync/engine/internal/core/script"
	"github.com/zeusync/engine/internal/core/systems/motion"
	"github.com/zeusync/engine/internal/core/systems/render"
	"github.com/zeusync/engine/internal/core/typeregistry"
	"github.com/zeusync/engine/internal/core/world"
	"github.com/zeusync/engine/internal/editorlink"
)

// Engine is the fully wired runtime handed to the driver.
type Engine struct {
	Config   *config.Config
	Logger   log.Log
	Bus      bus.EventBus
	Loader   *resource.Loader
	Registry *typeregistry.Registry
	Renderer *render.System
	World    *world.World
	// Editor is nil unless editor.enabled is set.
	Editor *editorlink.Link
}

var ProviderSet = wire.NewSet(
	ProvideLogger,
	ProvideEventBus,
	ProvideLoader,
	ProvideRegistry,
	ProvideRenderer,
	ProvideWorld,
	ProvideEditorLink,
	wire.Struct(new(Engine), "*"),
)

func ProvideLogger(cfg *config.Config) (log.Log, error) {
	return cfg.NewLogger()
}

func ProvideEventBus() bus.EventBus {
	return bus.New()
}

func ProvideLoader(cfg *config.Config, logger log.Log) (*resource.Loader, func(), error) {
	l := resource.NewLoader(resource.FileSource(cfg.Loader.Root), cfg.Loader.Workers, logger)
	cleanup := func() {
		if err := l.Close(); err != nil {
			logger.Warn("resource loader close failed", log.Error(err))
		}
	}
	return l, cleanup, nil
}

// ProvideRegistry registers every built-in component and system type.
func ProvideRegistry(logger log.Log) (*typeregistry.Registry, error) {
	reg := typeregistry.New()
	if err := components.Register(reg); err != nil {
		return nil, err
	}
	if err := motion.Register(reg); err != nil {
		return nil, err
	}
	if err := script.Register(reg, logger); err != nil {
		return nil, err
	}
	return reg, nil
}

func ProvideRenderer() *render.System {
	return render.New()
}

// ProvideWorld builds and initializes the world. The cleanup shuts it down.
func ProvideWorld(loader *resource.Loader, eventBus bus.EventBus, renderer *render.System, logger log.Log) (*world.World, func(), error) {
	w := world.New(
		world.WithResources(loader),
		world.WithEventBus(eventBus),
		world.WithLogger(logger),
	)
	if err := w.RegisterWorldSystem(renderer); err != nil {
		return nil, nil, err
	}
	if err := w.Initialize(); err != nil {
		return nil, nil, fmt.Errorf("initialize world: %w", err)
	}
	return w, w.Shutdown, nil
}

func ProvideEditorLink(cfg *config.Config, eventBus bus.EventBus, logger log.Log) (*editorlink.Link, func(), error) {
	if !cfg.Editor.Enabled {
		return nil, func() {}, nil
	}
	link, err := editorlink.New(eventBus, logger)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := link.Close(ctx); err != nil {
			logger.Warn("editor link close failed", log.Error(err))
		}
	}
	if err := link.Start(cfg.Editor.ListenAddr); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("start editor link: %w", err)
	}
	return link, cleanup, nil
}
