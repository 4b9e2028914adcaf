package entities

import (
	"fmt"
	"slices"
	"sort"

	"github.com/google/uuid"
	"github.com/zeusync/engine/internal/core/observability/log"
	"github.com/zeusync/engine/internal/core/stringid"
)

// Entity owns an ordered list of components and a set of systems, and drives
// their lifecycles.
//
// Structural mutations (AddComponent, DestroyComponent, CreateSystem,
// DestroySystem) apply immediately while the entity is Unloaded. In any other
// state they are queued and applied, in submission order, at the top of the
// next UpdateLoadingAndEntityState.
//
// Entities are driven from a single goroutine and are not safe for concurrent use.
type Entity struct {
	id     EntityID
	name   string
	mapID  uuid.UUID
	status EntityStatus

	components        []Component
	systems           []System
	systemUpdateLists [StageCount][]System

	rootSpatial        *SpatialComponent
	spatialParent      *Entity
	parentSocket       stringid.ID
	attachedEntities   []*Entity
	isAttachedToParent bool

	deferred []deferredAction
	observer StateObserver
	logger   log.Log
}

type Option func(*Entity)

func WithID(id EntityID) Option {
	return func(e *Entity) { e.id = id }
}

func WithLogger(l log.Log) Option {
	return func(e *Entity) { e.logger = l }
}

func WithStateObserver(o StateObserver) Option {
	return func(e *Entity) { e.observer = o }
}

func NewEntity(name string, opts ...Option) *Entity {
	e := &Entity{
		id:   NewEntityID(),
		name: name,
	}
	for _, opt := range opts {
		opt(e)
	}
	if !e.id.IsValid() {
		e.id = NewEntityID()
	}
	if e.logger == nil {
		e.logger = log.Provide()
	}
	e.logger = e.logger.With(log.String("entity", name), log.Stringer("entity_id", e.id))
	return e
}

func (e *Entity) ID() EntityID         { return e.id }
func (e *Entity) Name() string         { return e.name }
func (e *Entity) Status() EntityStatus { return e.status }
func (e *Entity) IsUnloaded() bool     { return e.status == EntityUnloaded }
func (e *Entity) IsLoaded() bool       { return e.status == EntityLoaded }
func (e *Entity) IsActivated() bool    { return e.status == EntityActivated }

func (e *Entity) String() string { return fmt.Sprintf("%s(%s)", e.name, e.id) }

// MapID is the map that owns this entity, or uuid.Nil.
func (e *Entity) MapID() uuid.UUID { return e.mapID }

// SetMapID is called by the owning map when the entity is added to it.
func (e *Entity) SetMapID(id uuid.UUID) {
	mustf(e.mapID == uuid.Nil || e.mapID == id, "entity %s already belongs to map %s", e, e.mapID)
	e.mapID = id
}

func (e *Entity) SetStateObserver(o StateObserver) { e.observer = o }

// Components returns the components in registration order.
func (e *Entity) Components() []Component { return slices.Clone(e.components) }
func (e *Entity) ComponentCount() int     { return len(e.components) }

func (e *Entity) Systems() []System { return slices.Clone(e.systems) }

// SystemUpdateList is the priority-sorted list of systems run in stage.
func (e *Entity) SystemUpdateList(stage UpdateStage) []System {
	return slices.Clone(e.systemUpdateLists[stage])
}

func (e *Entity) FindComponent(id ComponentID) Component {
	for _, c := range e.components {
		if c.ID() == id {
			return c
		}
	}
	return nil
}

func (e *Entity) FindComponentByName(name string) Component {
	for _, c := range e.components {
		if c.Name() == name {
			return c
		}
	}
	return nil
}

func (e *Entity) FindComponentByKind(kind ComponentKind) Component {
	for _, c := range e.components {
		if c.Kind() == kind {
			return c
		}
	}
	return nil
}

func (e *Entity) FindSystem(kind SystemKind) System {
	if i := e.systemIndex(kind); i >= 0 {
		return e.systems[i]
	}
	return nil
}

func (e *Entity) systemIndex(kind SystemKind) int {
	return slices.IndexFunc(e.systems, func(s System) bool { return s.Kind() == kind })
}

// Spatial queries

func (e *Entity) IsSpatial() bool                         { return e.rootSpatial != nil }
func (e *Entity) RootSpatialComponent() *SpatialComponent { return e.rootSpatial }
func (e *Entity) SpatialParent() *Entity                  { return e.spatialParent }
func (e *Entity) ParentAttachmentSocket() stringid.ID     { return e.parentSocket }
func (e *Entity) IsAttachedToParent() bool                { return e.isAttachedToParent }
func (e *Entity) AttachedEntities() []*Entity             { return slices.Clone(e.attachedEntities) }

// GetSpatialComponentWithSocket searches the spatial tree depth-first from the
// root and returns the first component exposing socket.
func (e *Entity) GetSpatialComponentWithSocket(socket stringid.ID) *SpatialComponent {
	if e.rootSpatial == nil || !socket.IsValid() {
		return nil
	}
	return e.rootSpatial.findSocket(socket)
}

//-------------------------------------------------------------------------
// Structural mutation
//-------------------------------------------------------------------------

// AddComponent adds c as a root-level spatial component (or plain component).
func (e *Entity) AddComponent(c Component) {
	e.AddComponentWithParent(c, ComponentID{})
}

// AddComponentWithParent adds c, attaching it under the spatial component
// parentID when c is spatial and parentID is valid.
func (e *Entity) AddComponentWithParent(c Component, parentID ComponentID) {
	mustf(c != nil, "add component to %s: nil component", e)
	if b := c.base(); !b.id.IsValid() {
		b.id = NewComponentID()
	}
	if e.status == EntityUnloaded {
		e.addComponentImmediate(c, parentID)
		return
	}
	e.validateNewComponent(c)
	e.enqueue(addComponentAction{component: c, parentID: parentID})
}

// DestroyComponent removes and tears down the component. Requests for a
// component that is already queued for destruction are ignored.
func (e *Entity) DestroyComponent(id ComponentID) {
	if e.status == EntityUnloaded {
		c := e.FindComponent(id)
		mustf(c != nil, "destroy component %s on %s: not found", id, e)
		e.suspendSpatialAttachments()
		e.destroyComponentImmediate(c)
		e.restoreSpatialAttachments()
		return
	}
	if e.isDestroyPending(id) {
		return
	}
	mustf(e.FindComponent(id) != nil || e.pendingAddComponent(id) != nil,
		"destroy component %s on %s: not found", id, e)
	e.enqueue(destroyComponentAction{componentID: id})
}

// ReloadComponent tears the component back to Unloaded and loads it again.
// This is how a LoadingFailed component is retried.
func (e *Entity) ReloadComponent(id ComponentID) {
	mustf(e.FindComponent(id) != nil || e.pendingAddComponent(id) != nil,
		"reload component %s on %s: not found", id, e)
	if e.status == EntityUnloaded || e.isDestroyPending(id) {
		// an unloaded entity reloads everything on LoadComponents; a pending destroy wins
		return
	}
	e.enqueue(reloadComponentAction{componentID: id})
}

// CreateSystem adds s to the entity. A second system of the same kind is
// rejected with ErrDuplicateSystem.
func (e *Entity) CreateSystem(s System) error {
	mustf(s != nil, "create system on %s: nil system", e)
	if e.status == EntityUnloaded {
		return e.createSystemImmediate(s)
	}

	exists := e.systemIndex(s.Kind()) >= 0
	switch e.pendingSystemDelta(s.Kind()) {
	case 1:
		exists = true
	case -1:
		exists = false
	}
	if exists {
		return fmt.Errorf("%w: %s on %s", ErrDuplicateSystem, s.Kind(), e)
	}
	e.enqueue(createSystemAction{system: s})
	return nil
}

// DestroySystem removes the system of the given kind. Destroying a system the
// entity does not have is a programmer error.
func (e *Entity) DestroySystem(kind SystemKind) {
	if e.status == EntityUnloaded {
		e.destroySystemImmediate(kind)
		return
	}

	exists := e.systemIndex(kind) >= 0
	switch e.pendingSystemDelta(kind) {
	case 1:
		exists = true
	case -1:
		exists = false
	}
	mustf(exists, "destroy system %s on %s: %v", kind, e, ErrSystemNotFound)
	e.enqueue(destroySystemAction{systemKind: kind})
}

func (e *Entity) validateNewComponent(c Component) {
	b := c.base()
	mustf(b.id.IsValid(), "add component %q to %s: invalid component id", b.name, e)
	mustf(!b.entityID.IsValid(), "add component %q to %s: already owned by %s", b.name, e, b.entityID)
	mustf(b.status == ComponentUnloaded, "add component %q to %s: status is %s", b.name, e, b.status)
	mustf(e.FindComponent(b.id) == nil && e.pendingAddComponent(b.id) == nil,
		"add component %q to %s: duplicate component id", b.name, e)

	mustf(e.CheckSingleton(c) == nil, "add component %q to %s: singleton kind %s already present", b.name, e, c.Kind())
}

// CheckSingleton reports ErrSingletonExists when c is a singleton and the
// entity already has, or has queued, a component of the same kind. Callers
// adding components from data should check it before AddComponent.
func (e *Entity) CheckSingleton(c Component) error {
	if !c.IsSingleton() {
		return nil
	}
	clash := e.FindComponentByKind(c.Kind()) != nil
	for _, a := range e.deferred {
		if add, ok := a.(addComponentAction); ok && add.component.Kind() == c.Kind() {
			clash = true
		}
	}
	if clash {
		return fmt.Errorf("%w: %s on %s", ErrSingletonExists, c.Kind(), e)
	}
	return nil
}

func (e *Entity) addComponentImmediate(c Component, parentID ComponentID) {
	e.validateNewComponent(c)

	if sc, ok := AsSpatial(c); ok {
		sc.owner = c
		sc.ensureTransforms()

		switch {
		case parentID.IsValid():
			parent, isSpatial := AsSpatial(e.FindComponent(parentID))
			mustf(isSpatial && parent != nil, "add component %q to %s: parent %s is not a spatial component of this entity",
				c.Name(), e, parentID)
			sc.attachKeepingLocal(parent, stringid.Invalid)
		case e.rootSpatial == nil:
			sc.calculateWorldTransform(true)
			e.rootSpatial = sc
		default:
			sc.attachKeepingLocal(e.rootSpatial, stringid.Invalid)
		}
	}

	c.base().entityID = e.id
	e.components = append(e.components, c)
}

func (e *Entity) destroyComponentImmediate(c Component) {
	b := c.base()
	mustf(b.status == ComponentUnloaded, "destroy component %q on %s: status is %s", b.name, e, b.status)
	mustf(!b.registeredWithLocalSystems && !b.registeredWithWorldSystems,
		"destroy component %q on %s: still registered with systems", b.name, e)

	if sc, ok := AsSpatial(c); ok {
		e.removeFromSpatialHierarchy(sc)
		sc.owner = nil
	}

	i := slices.Index(e.components, c)
	e.components = slices.Delete(e.components, i, i+1)
}

// removeFromSpatialHierarchy unlinks sc while keeping every other component's
// world transform. Children of a removed non-root are re-parented to its
// parent; a removed root is replaced by its first child.
func (e *Entity) removeFromSpatialHierarchy(sc *SpatialComponent) {
	children := sc.Children()
	for _, child := range children {
		child.Detach()
	}

	if sc == e.rootSpatial {
		mustf(!sc.HasParent(), "destroy root component %q on %s: still attached to a parent entity", sc.name, e)
		if len(children) == 0 {
			e.rootSpatial = nil
			return
		}
		newRoot := children[0]
		e.rootSpatial = newRoot
		for _, child := range children[1:] {
			child.AttachTo(newRoot, stringid.Invalid)
		}
		return
	}

	parent := sc.parent
	sc.Detach()
	for _, child := range children {
		child.AttachTo(parent, stringid.Invalid)
	}
}

func (e *Entity) createSystemImmediate(s System) error {
	if e.systemIndex(s.Kind()) >= 0 {
		return fmt.Errorf("%w: %s on %s", ErrDuplicateSystem, s.Kind(), e)
	}
	e.systems = append(e.systems, s)
	return nil
}

func (e *Entity) destroySystemImmediate(kind SystemKind) System {
	i := e.systemIndex(kind)
	mustf(i >= 0, "destroy system %s on %s: %v", kind, e, ErrSystemNotFound)
	s := e.systems[i]
	e.systems = slices.Delete(e.systems, i, i+1)
	return s
}

//-------------------------------------------------------------------------
// Deferred variants, applied while draining the queue
//-------------------------------------------------------------------------

func (e *Entity) addComponentDeferred(ctx LoadingContext, c Component, parentID ComponentID) {
	_, spatial := AsSpatial(c)
	if spatial {
		e.suspendSpatialAttachments()
	}

	e.addComponentImmediate(c, parentID)
	loadComponent(c, ctx)

	if spatial {
		e.restoreSpatialAttachments()
	}
	e.logger.Debug("component added", log.String("component", c.Name()), log.Stringer("kind", c.Kind()))
}

func (e *Entity) destroyComponentDeferred(ctx LoadingContext, id ComponentID) {
	c := e.FindComponent(id)
	if c == nil {
		e.logger.Warn("deferred destroy of unknown component", log.Stringer("component_id", id))
		return
	}

	_, spatial := AsSpatial(c)
	if spatial {
		e.suspendSpatialAttachments()
	}

	e.unregisterComponent(ctx, c)
	teardownComponent(c, ctx)
	e.destroyComponentImmediate(c)

	if spatial {
		e.restoreSpatialAttachments()
	}
	e.logger.Debug("component destroyed", log.String("component", c.Name()))
}

func (e *Entity) reloadComponentDeferred(ctx LoadingContext, id ComponentID) {
	c := e.FindComponent(id)
	if c == nil {
		e.logger.Warn("deferred reload of unknown component", log.Stringer("component_id", id))
		return
	}

	e.unregisterComponent(ctx, c)
	teardownComponent(c, ctx)
	loadComponent(c, ctx)
	e.logger.Debug("component reloading", log.String("component", c.Name()))
}

func (e *Entity) createSystemDeferred(ctx LoadingContext, s System) {
	if err := e.createSystemImmediate(s); err != nil {
		e.logger.Error("dropping deferred system creation", log.Error(err))
		return
	}

	for _, c := range e.components {
		if c.base().registeredWithLocalSystems {
			s.RegisterComponent(c)
		}
	}
	e.refreshSystemUpdateRegistration(ctx)
	e.logger.Debug("system created", log.Stringer("system", s.Kind()))
}

func (e *Entity) destroySystemDeferred(ctx LoadingContext, kind SystemKind) {
	i := e.systemIndex(kind)
	if i < 0 {
		e.logger.Warn("deferred destroy of unknown system", log.Stringer("system", kind))
		return
	}
	s := e.systems[i]

	for _, c := range e.components {
		if c.base().registeredWithLocalSystems {
			s.UnregisterComponent(c)
		}
	}
	e.destroySystemImmediate(kind)
	e.refreshSystemUpdateRegistration(ctx)
	e.logger.Debug("system destroyed", log.Stringer("system", kind))
}

// refreshSystemUpdateRegistration rebuilds the stage lists of an activated
// entity and re-registers its update so schedule changes take effect.
func (e *Entity) refreshSystemUpdateRegistration(ctx LoadingContext) {
	if e.status != EntityActivated {
		return
	}
	e.generateSystemUpdateList()
	ctx.UnregisterEntityUpdate(e)
	ctx.RegisterEntityUpdate(e)
}

//-------------------------------------------------------------------------
// Lifecycle
//-------------------------------------------------------------------------

// LoadComponents starts loading every unloaded component. Loaded at the entity
// level means loading was initiated, not that it finished.
func (e *Entity) LoadComponents(ctx LoadingContext) {
	mustf(e.status == EntityUnloaded, "load components of %s: status is %s", e, e.status)
	for _, c := range e.components {
		if c.Status() == ComponentUnloaded {
			loadComponent(c, ctx)
		}
	}
	e.status = EntityLoaded
	e.logger.Debug("entity loading", log.Int("components", len(e.components)))
}

// UnloadComponents applies any queued actions, then tears every component
// down to Unloaded.
func (e *Entity) UnloadComponents(ctx LoadingContext) {
	mustf(e.status == EntityLoaded, "unload components of %s: status is %s", e, e.status)
	e.flushDeferredActions(ctx)
	for i := len(e.components) - 1; i >= 0; i-- {
		teardownComponent(e.components[i], ctx)
	}
	e.status = EntityUnloaded
	e.logger.Debug("entity unloaded")
}

// UpdateLoadingAndEntityState is the per-frame loading step. It drains the
// deferred queue, then walks components in order: starting loads, polling
// pending ones and initializing loaded ones. It returns false as soon as one
// component is still pending; later components are left untouched.
func (e *Entity) UpdateLoadingAndEntityState(ctx LoadingContext) bool {
	mustf(e.status != EntityUnloaded, "update loading of %s: entity is unloaded", e)

	e.processDeferredActions(ctx)

	for _, c := range e.components {
		if c.Status() == ComponentUnloaded {
			loadComponent(c, ctx)
		}

		if c.Status() == ComponentLoading {
			if !updateLoadingStatus(c) {
				return false
			}
			if c.Status() == ComponentLoadingFailed {
				e.logger.Warn("component failed to load", log.String("component", c.Name()))
			}
		}

		if c.Status() == ComponentLoaded {
			initializeComponent(c)
			if e.status == EntityActivated {
				e.registerComponentWithLocalSystems(c)
				e.registerComponentWithWorldSystems(ctx, c)
			}
		}
	}
	return true
}

// Activate brings a loaded entity into the running world.
func (e *Entity) Activate(ctx LoadingContext) {
	mustf(e.status == EntityLoaded, "activate %s: status is %s", e, e.status)
	e.status = EntityActivated

	if e.rootSpatial != nil {
		e.rootSpatial.calculateWorldTransform(false)
	}

	for _, c := range e.components {
		if c.Status() == ComponentInitialized {
			e.registerComponentWithLocalSystems(c)
			e.registerComponentWithWorldSystems(ctx, c)
		}
	}

	e.generateSystemUpdateList()

	if e.rootSpatial != nil {
		if e.spatialParent != nil {
			e.attachToParent()
		}
		e.refreshChildEntityAttachments()
	}

	ctx.RegisterEntityUpdate(e)
	e.logger.Debug("entity activated")
}

// Deactivate is the exact inverse of Activate.
func (e *Entity) Deactivate(ctx LoadingContext) {
	mustf(e.status == EntityActivated, "deactivate %s: status is %s", e, e.status)

	ctx.UnregisterEntityUpdate(e)

	if e.isAttachedToParent {
		e.detachFromParent()
	}

	for i := range e.systemUpdateLists {
		e.systemUpdateLists[i] = nil
	}

	for i := len(e.components) - 1; i >= 0; i-- {
		e.unregisterComponent(ctx, e.components[i])
	}

	e.status = EntityLoaded
	e.logger.Debug("entity deactivated")
}

// UpdateSystems runs this entity's systems for ctx.Stage in priority order.
func (e *Entity) UpdateSystems(ctx UpdateContext) {
	ctx.Entity = e
	for _, s := range e.systemUpdateLists[ctx.Stage] {
		s.Update(ctx)
	}
}

// generateSystemUpdateList sorts, per stage, the systems that run in it by
// descending priority. Ties keep registration order.
func (e *Entity) generateSystemUpdateList() {
	for stage := UpdateStage(0); stage < StageCount; stage++ {
		list := make([]System, 0, len(e.systems))
		for _, s := range e.systems {
			if s.RequiredUpdatePriorities().IsStageEnabled(stage) {
				list = append(list, s)
			}
		}
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].RequiredUpdatePriorities().Priority(stage) > list[j].RequiredUpdatePriorities().Priority(stage)
		})
		e.systemUpdateLists[stage] = list
	}
}

//-------------------------------------------------------------------------
// Registration
//-------------------------------------------------------------------------

func (e *Entity) registerComponentWithLocalSystems(c Component) {
	b := c.base()
	mustf(!b.registeredWithLocalSystems, "component %q on %s already registered with local systems", b.name, e)
	for _, s := range e.systems {
		s.RegisterComponent(c)
	}
	b.registeredWithLocalSystems = true
}

func (e *Entity) unregisterComponentFromLocalSystems(c Component) {
	b := c.base()
	mustf(b.registeredWithLocalSystems, "component %q on %s not registered with local systems", b.name, e)
	for _, s := range e.systems {
		s.UnregisterComponent(c)
	}
	b.registeredWithLocalSystems = false
}

func (e *Entity) registerComponentWithWorldSystems(ctx LoadingContext, c Component) {
	b := c.base()
	mustf(!b.registeredWithWorldSystems, "component %q on %s already registered with world systems", b.name, e)
	ctx.RegisterWithWorldSystems(e, c)
	b.registeredWithWorldSystems = true
}

func (e *Entity) unregisterComponentFromWorldSystems(ctx LoadingContext, c Component) {
	b := c.base()
	mustf(b.registeredWithWorldSystems, "component %q on %s not registered with world systems", b.name, e)
	ctx.UnregisterWithWorldSystems(e, c)
	b.registeredWithWorldSystems = false
}

// unregisterComponent drops whatever registrations c currently holds.
func (e *Entity) unregisterComponent(ctx LoadingContext, c Component) {
	b := c.base()
	if b.registeredWithLocalSystems {
		e.unregisterComponentFromLocalSystems(c)
	}
	if b.registeredWithWorldSystems {
		e.unregisterComponentFromWorldSystems(ctx, c)
	}
}

func logAction(a deferredAction) log.Field {
	return log.String("action", a.kind().String())
}
