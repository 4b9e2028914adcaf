package entities

import (
	"slices"

	"github.com/zeusync/engine/internal/core/observability/log"
	"github.com/zeusync/engine/internal/core/stringid"
)

// SetSpatialParent records that this entity's root should hang off parent, at
// socket if parent exposes it (otherwise at parent's root). The attachment is
// realised when the entity activates.
func (e *Entity) SetSpatialParent(parent *Entity, socket stringid.ID) {
	mustf(parent != nil, "set spatial parent of %s: nil parent", e)
	mustf(e.status != EntityActivated, "set spatial parent of %s: entity is activated", e)
	mustf(e.spatialParent == nil, "set spatial parent of %s: already parented to %s", e, e.spatialParent)
	for p := parent; p != nil; p = p.spatialParent {
		mustf(p != e, "set spatial parent of %s: would create a cycle", e)
	}

	e.spatialParent = parent
	e.parentSocket = socket
	parent.attachedEntities = append(parent.attachedEntities, e)
}

// ClearSpatialParent breaks the link to the parent entity, detaching first if
// the attachment is live.
func (e *Entity) ClearSpatialParent() {
	mustf(e.spatialParent != nil, "clear spatial parent of %s: no parent", e)
	if e.isAttachedToParent {
		e.detachFromParent()
	}
	parent := e.spatialParent
	if i := slices.Index(parent.attachedEntities, e); i >= 0 {
		parent.attachedEntities = slices.Delete(parent.attachedEntities, i, i+1)
	}
	e.spatialParent = nil
	e.parentSocket = stringid.Invalid
}

// ClearSpatialLinks severs the entity from its parent and from every entity
// attached to it. Called before the entity is destroyed.
func (e *Entity) ClearSpatialLinks() {
	if e.spatialParent != nil {
		e.ClearSpatialParent()
	}
	for _, child := range slices.Clone(e.attachedEntities) {
		child.ClearSpatialParent()
	}
}

func (e *Entity) attachToParent() {
	mustf(e.spatialParent != nil, "attach %s: no spatial parent", e)
	mustf(!e.isAttachedToParent, "attach %s: already attached", e)
	mustf(e.rootSpatial != nil, "attach %s: entity is not spatial", e)

	parent := e.spatialParent
	if parent.rootSpatial == nil {
		e.logger.Warn("spatial parent has no spatial components, attachment skipped",
			log.Stringer("parent", parent.id))
		return
	}

	target := parent.GetSpatialComponentWithSocket(e.parentSocket)
	if target == nil {
		if e.parentSocket.IsValid() {
			e.logger.Warn("attachment socket not found, attaching to parent root",
				log.Stringer("socket", e.parentSocket), log.Stringer("parent", parent.id))
		}
		target = parent.rootSpatial
	}

	e.rootSpatial.AttachTo(target, e.parentSocket)
	e.isAttachedToParent = true
}

func (e *Entity) detachFromParent() {
	mustf(e.isAttachedToParent, "detach %s: not attached", e)
	e.rootSpatial.Detach()
	e.isAttachedToParent = false
}

// refreshChildEntityAttachments re-resolves the attachment point of every
// activated child entity against the current component tree.
func (e *Entity) refreshChildEntityAttachments() {
	for _, child := range e.attachedEntities {
		if child.isAttachedToParent {
			child.detachFromParent()
		}
	}
	e.attachChildEntities()
}

func (e *Entity) attachChildEntities() {
	if e.rootSpatial == nil {
		return
	}
	for _, child := range e.attachedEntities {
		if child.status == EntityActivated && child.rootSpatial != nil && !child.isAttachedToParent {
			child.attachToParent()
		}
	}
}

// suspendSpatialAttachments undoes live entity-to-entity attachments around a
// structural change of this entity's spatial tree.
func (e *Entity) suspendSpatialAttachments() {
	if e.isAttachedToParent {
		e.detachFromParent()
	}
	for _, child := range e.attachedEntities {
		if child.isAttachedToParent {
			child.detachFromParent()
		}
	}
}

func (e *Entity) restoreSpatialAttachments() {
	if e.rootSpatial == nil {
		return
	}
	if e.status == EntityActivated && e.spatialParent != nil && !e.isAttachedToParent {
		e.attachToParent()
	}
	e.attachChildEntities()
}
