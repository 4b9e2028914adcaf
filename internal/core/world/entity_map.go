package world

import (
	"slices"

	"github.com/google/uuid"
	"github.com/zeusync/engine/internal/core/entities"
	"github.com/zeusync/engine/internal/core/events/bus"
	"github.com/zeusync/engine/internal/core/observability/log"
)

// EntityMap is a collection of entities that load and activate together.
//
// Adding and removing entities is queued and applied at the top of the next
// UpdateLoading, like an entity's own deferred actions. The map observes its
// entities: any entity that queues a structural change re-enters the loading
// set until its queue has been drained.
type EntityMap struct {
	id   uuid.UUID
	name string

	entities []*entities.Entity
	loading  []*entities.Entity
	toAdd    []*entities.Entity
	toRemove []entities.EntityID

	activated bool

	bus    bus.EventBus
	logger log.Log
}

func NewEntityMap(name string, eventBus bus.EventBus, logger log.Log) *EntityMap {
	if logger == nil {
		logger = log.Provide()
	}
	id := uuid.New()
	return &EntityMap{
		id:     id,
		name:   name,
		bus:    eventBus,
		logger: logger.With(log.String("map", name), log.Stringer("map_id", id)),
	}
}

func (m *EntityMap) ID() uuid.UUID     { return m.id }
func (m *EntityMap) Name() string      { return m.name }
func (m *EntityMap) IsActivated() bool { return m.activated }

// IsLoading reports whether any entity still needs a loading pass or any
// add/remove is queued.
func (m *EntityMap) IsLoading() bool {
	return len(m.loading) > 0 || len(m.toAdd) > 0 || len(m.toRemove) > 0
}

func (m *EntityMap) Entities() []*entities.Entity { return slices.Clone(m.entities) }
func (m *EntityMap) EntityCount() int             { return len(m.entities) }

func (m *EntityMap) FindEntity(id entities.EntityID) *entities.Entity {
	for _, e := range m.entities {
		if e.ID() == id {
			return e
		}
	}
	return nil
}

func (m *EntityMap) FindEntityByName(name string) *entities.Entity {
	for _, e := range m.entities {
		if e.Name() == name {
			return e
		}
	}
	return nil
}

// AddEntity queues an unloaded entity for addition.
func (m *EntityMap) AddEntity(e *entities.Entity) {
	mustf(e != nil, "add entity to map %q: nil entity", m.name)
	mustf(e.IsUnloaded(), "add entity %s to map %q: status is %s", e, m.name, e.Status())
	mustf(m.FindEntity(e.ID()) == nil && !slices.Contains(m.toAdd, e), "add entity %s to map %q: already added", e, m.name)
	e.SetMapID(m.id)
	m.toAdd = append(m.toAdd, e)
}

// RemoveEntity queues the entity for removal. The entity is deactivated,
// unloaded and unlinked from its spatial parent and children.
func (m *EntityMap) RemoveEntity(id entities.EntityID) {
	if i := slices.IndexFunc(m.toAdd, func(e *entities.Entity) bool { return e.ID() == id }); i >= 0 {
		m.toAdd = slices.Delete(m.toAdd, i, i+1)
		return
	}
	mustf(m.FindEntity(id) != nil, "remove entity %s from map %q: not found", id, m.name)
	if !slices.Contains(m.toRemove, id) {
		m.toRemove = append(m.toRemove, id)
	}
}

// OnEntityStateUpdated implements entities.StateObserver.
func (m *EntityMap) OnEntityStateUpdated(e *entities.Entity) {
	if !slices.Contains(m.loading, e) && m.FindEntity(e.ID()) != nil {
		m.loading = append(m.loading, e)
	}
	m.publish(bus.EntityStateUpdated, e)
}

// UpdateLoading applies queued additions and removals, then gives every
// loading entity one pass. It reports true once nothing in the map is loading.
// An activated map activates entities as soon as they finish loading.
func (m *EntityMap) UpdateLoading(ctx entities.LoadingContext) bool {
	m.processRemovals(ctx)
	m.processAdditions(ctx)

	for _, e := range slices.Clone(m.loading) {
		if !e.UpdateLoadingAndEntityState(ctx) || e.HasPendingActions() {
			continue
		}
		m.loading = slices.DeleteFunc(m.loading, func(x *entities.Entity) bool { return x == e })
		if m.activated && !e.IsActivated() {
			m.activateEntity(ctx, e)
		}
	}
	return len(m.loading) == 0
}

func (m *EntityMap) processAdditions(ctx entities.LoadingContext) {
	if len(m.toAdd) == 0 {
		return
	}
	added := m.toAdd
	m.toAdd = nil
	for _, e := range added {
		e.SetStateObserver(m)
		m.entities = append(m.entities, e)
		e.LoadComponents(ctx)
		m.loading = append(m.loading, e)
		m.logger.Debug("entity added", log.String("entity", e.Name()), log.Stringer("entity_id", e.ID()))
	}
}

func (m *EntityMap) processRemovals(ctx entities.LoadingContext) {
	if len(m.toRemove) == 0 {
		return
	}
	removed := m.toRemove
	m.toRemove = nil
	for _, id := range removed {
		e := m.FindEntity(id)
		if e == nil {
			continue
		}
		m.teardownEntity(ctx, e)
		e.ClearSpatialLinks()
		e.SetStateObserver(nil)
		m.entities = slices.DeleteFunc(m.entities, func(x *entities.Entity) bool { return x == e })
		m.loading = slices.DeleteFunc(m.loading, func(x *entities.Entity) bool { return x == e })
		m.logger.Debug("entity removed", log.String("entity", e.Name()), log.Stringer("entity_id", e.ID()))
	}
}

func (m *EntityMap) teardownEntity(ctx entities.LoadingContext, e *entities.Entity) {
	if e.IsActivated() {
		m.deactivateEntity(ctx, e)
	}
	if e.IsLoaded() {
		e.UnloadComponents(ctx)
	}
}

// Activate activates every loaded entity. Entities still loading are activated
// by UpdateLoading once they finish.
func (m *EntityMap) Activate(ctx entities.LoadingContext) {
	mustf(!m.activated, "activate map %q: already activated", m.name)
	m.activated = true
	for _, e := range m.entities {
		if e.IsLoaded() && !slices.Contains(m.loading, e) {
			m.activateEntity(ctx, e)
		}
	}
	m.logger.Info("map activated", log.Int("entities", len(m.entities)))
	m.publishMap(bus.MapLoaded)
}

// Deactivate deactivates entities in reverse order.
func (m *EntityMap) Deactivate(ctx entities.LoadingContext) {
	mustf(m.activated, "deactivate map %q: not activated", m.name)
	for i := len(m.entities) - 1; i >= 0; i-- {
		if e := m.entities[i]; e.IsActivated() {
			m.deactivateEntity(ctx, e)
		}
	}
	m.activated = false
	m.logger.Info("map deactivated")
}

// Unload tears every entity down to Unloaded and drops them from the map.
// The map must be deactivated first.
func (m *EntityMap) Unload(ctx entities.LoadingContext) {
	mustf(!m.activated, "unload map %q: still activated", m.name)
	for i := len(m.entities) - 1; i >= 0; i-- {
		e := m.entities[i]
		m.teardownEntity(ctx, e)
		e.ClearSpatialLinks()
		e.SetStateObserver(nil)
	}
	count := len(m.entities)
	m.entities, m.loading, m.toAdd, m.toRemove = nil, nil, nil, nil
	m.logger.Info("map unloaded", log.Int("entities", count))
	m.publishMap(bus.MapUnloaded)
}

func (m *EntityMap) activateEntity(ctx entities.LoadingContext, e *entities.Entity) {
	e.Activate(ctx)
	m.publish(bus.EntityActivated, e)
}

func (m *EntityMap) deactivateEntity(ctx entities.LoadingContext, e *entities.Entity) {
	e.Deactivate(ctx)
	m.publish(bus.EntityDeactivated, e)
}

func (m *EntityMap) publish(eventType string, e *entities.Entity) {
	if m.bus == nil {
		return
	}
	ev := bus.EntityEvent{MapID: m.id, EntityID: e.ID().UUID(), Name: e.Name()}
	if err := m.bus.Publish(bus.NewEvent(eventType, m.name, ev)); err != nil {
		m.logger.Warn("event handler failed", log.String("event", eventType), log.Error(err))
	}
}

func (m *EntityMap) publishMap(eventType string) {
	if m.bus == nil {
		return
	}
	ev := bus.MapEvent{MapID: m.id, Name: m.name, Entities: len(m.entities)}
	if err := m.bus.Publish(bus.NewEvent(eventType, m.name, ev)); err != nil {
		m.logger.Warn("event handler failed", log.String("event", eventType), log.Error(err))
	}
}
