package world

import "github.com/zeusync/engine/internal/core/entities"

// System is world-level logic (rendering, physics, audio...). It sees every
// registered component of every activated entity across all maps.
type System interface {
	Kind() entities.SystemKind
	RequiredUpdatePriorities() entities.UpdatePriorities

	Initialize(w *World) error
	Shutdown()

	RegisterComponent(e *entities.Entity, c entities.Component)
	UnregisterComponent(e *entities.Entity, c entities.Component)

	Update(ctx entities.UpdateContext)
}
