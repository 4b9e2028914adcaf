package entities

import "github.com/zeusync/engine/internal/core/observability/log"

// ActionKind tags a queued structural mutation.
type ActionKind uint8

const (
	ActionAddComponent ActionKind = iota
	ActionDestroyComponent
	ActionReloadComponent
	ActionCreateSystem
	ActionDestroySystem
)

func (k ActionKind) String() string {
	switch k {
	case ActionAddComponent:
		return "add_component"
	case ActionDestroyComponent:
		return "destroy_component"
	case ActionReloadComponent:
		return "reload_component"
	case ActionCreateSystem:
		return "create_system"
	case ActionDestroySystem:
		return "destroy_system"
	default:
		return "unknown"
	}
}

// deferredAction is one queued mutation. Exactly one variant below implements it.
type deferredAction interface {
	kind() ActionKind
}

type addComponentAction struct {
	component Component
	parentID  ComponentID
}

type destroyComponentAction struct {
	componentID ComponentID
}

type reloadComponentAction struct {
	componentID ComponentID
}

type createSystemAction struct {
	system System
}

type destroySystemAction struct {
	systemKind SystemKind
}

func (addComponentAction) kind() ActionKind     { return ActionAddComponent }
func (destroyComponentAction) kind() ActionKind { return ActionDestroyComponent }
func (reloadComponentAction) kind() ActionKind  { return ActionReloadComponent }
func (createSystemAction) kind() ActionKind     { return ActionCreateSystem }
func (destroySystemAction) kind() ActionKind    { return ActionDestroySystem }

func (e *Entity) enqueue(a deferredAction) {
	e.deferred = append(e.deferred, a)
	e.logger.Debug("deferred action queued", logAction(a))
	if e.observer != nil {
		e.observer.OnEntityStateUpdated(e)
	}
}

// PendingActions lists the kinds of the queued actions in submission order.
func (e *Entity) PendingActions() []ActionKind {
	out := make([]ActionKind, len(e.deferred))
	for i, a := range e.deferred {
		out[i] = a.kind()
	}
	return out
}

func (e *Entity) HasPendingActions() bool { return len(e.deferred) > 0 }

func (e *Entity) isDestroyPending(id ComponentID) bool {
	for _, a := range e.deferred {
		if d, ok := a.(destroyComponentAction); ok && d.componentID == id {
			return true
		}
	}
	return false
}

func (e *Entity) pendingAddComponent(id ComponentID) Component {
	for _, a := range e.deferred {
		if add, ok := a.(addComponentAction); ok && add.component.ID() == id {
			return add.component
		}
	}
	return nil
}

// pendingSystemDelta reports the net effect of queued create/destroy actions on
// a system kind: +1 created, -1 destroyed, 0 untouched.
func (e *Entity) pendingSystemDelta(kind SystemKind) int {
	delta := 0
	for _, a := range e.deferred {
		switch act := a.(type) {
		case createSystemAction:
			if act.system.Kind() == kind {
				delta = 1
			}
		case destroySystemAction:
			if act.systemKind == kind {
				delta = -1
			}
		}
	}
	return delta
}

// processDeferredActions drains the queue once, in submission order. Actions
// queued while draining wait for the next visit.
func (e *Entity) processDeferredActions(ctx LoadingContext) {
	if len(e.deferred) == 0 {
		return
	}
	actions := e.deferred
	e.deferred = nil

	for _, a := range actions {
		switch act := a.(type) {
		case addComponentAction:
			e.addComponentDeferred(ctx, act.component, act.parentID)
		case destroyComponentAction:
			e.destroyComponentDeferred(ctx, act.componentID)
		case reloadComponentAction:
			e.reloadComponentDeferred(ctx, act.componentID)
		case createSystemAction:
			e.createSystemDeferred(ctx, act.system)
		case destroySystemAction:
			e.destroySystemDeferred(ctx, act.systemKind)
		}
	}
}

// flushDeferredActions applies the queue through the immediate variants when
// the entity is being torn down. Reloads are dropped: every component ends
// Unloaded anyway.
func (e *Entity) flushDeferredActions(ctx LoadingContext) {
	if len(e.deferred) == 0 {
		return
	}
	actions := e.deferred
	e.deferred = nil

	for _, a := range actions {
		switch act := a.(type) {
		case addComponentAction:
			e.addComponentImmediate(act.component, act.parentID)
		case destroyComponentAction:
			c := e.FindComponent(act.componentID)
			if c == nil {
				continue
			}
			e.unregisterComponent(ctx, c)
			teardownComponent(c, ctx)
			e.suspendSpatialAttachments()
			e.destroyComponentImmediate(c)
			e.restoreSpatialAttachments()
		case createSystemAction:
			if err := e.createSystemImmediate(act.system); err != nil {
				e.logger.Error("dropping deferred system creation", log.Error(err))
			}
		case destroySystemAction:
			if e.systemIndex(act.systemKind) >= 0 {
				e.destroySystemImmediate(act.systemKind)
			}
		}
	}
	e.logger.Debug("deferred actions flushed on unload", log.Int("actions", len(actions)))
}
