package entities

import "github.com/zeusync/engine/internal/core/resource"

// Resources is the part of the asset subsystem components talk to while loading.
type Resources interface {
	Request(path string) (*resource.Resource, error)
	Release(r *resource.Resource)
}

// LoadingContext is implemented by the world driver and handed to every
// lifecycle step that may touch world-level state.
type LoadingContext interface {
	Resources() Resources

	RegisterWithWorldSystems(e *Entity, c Component)
	UnregisterWithWorldSystems(e *Entity, c Component)

	RegisterEntityUpdate(e *Entity)
	UnregisterEntityUpdate(e *Entity)
}

// StateObserver is told whenever an entity queues a deferred action and so
// needs another pass through its loading step.
type StateObserver interface {
	OnEntityStateUpdated(e *Entity)
}

type StateObserverFunc func(e *Entity)

func (f StateObserverFunc) OnEntityStateUpdated(e *Entity) { f(e) }
