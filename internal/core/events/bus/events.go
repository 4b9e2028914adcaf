package bus

import "github.com/google/uuid"

// Engine event types.
const (
	// EntityStateUpdated fires when an entity queues a structural change and
	// needs another loading pass.
	EntityStateUpdated = "entity.state_updated"
	EntityActivated    = "entity.activated"
	EntityDeactivated  = "entity.deactivated"
	MapLoaded          = "map.loaded"
	MapUnloaded        = "map.unloaded"
)

// EntityEvent is the payload of entity events.
type EntityEvent struct {
	MapID    uuid.UUID
	EntityID uuid.UUID
	Name     string
}

// MapEvent is the payload of map events.
type MapEvent struct {
	MapID    uuid.UUID
	Name     string
	Entities int
}
