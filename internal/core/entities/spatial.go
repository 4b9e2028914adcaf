package entities

import (
	"slices"

	"github.com/zeusync/engine/internal/core/stringid"
	"github.com/zeusync/engine/internal/core/transform"
)

// WorldTransformListener is an optional hook for spatial components that need
// to react when their world transform is recomputed.
type WorldTransformListener interface {
	OnWorldTransformUpdated()
}

type spatialNode interface {
	spatial() *SpatialComponent
}

// AsSpatial returns the spatial part of c, if it has one.
func AsSpatial(c Component) (*SpatialComponent, bool) {
	if n, ok := c.(spatialNode); ok {
		return n.spatial(), true
	}
	return nil, false
}

// SpatialComponent is a component with a place in a transform tree.
//
// The local transform is authoritative; the world transform is always
// Compose(parent.world, local), or local for a root. Every mutation propagates
// synchronously to all descendants.
type SpatialComponent struct {
	ComponentBase

	// outer component embedding this one, set when added to an entity
	owner Component

	local transform.Transform
	world transform.Transform

	parent       *SpatialComponent
	parentSocket stringid.ID
	children     []*SpatialComponent
	sockets      []stringid.ID
}

func NewSpatialComponent(name string) SpatialComponent {
	return SpatialComponent{
		ComponentBase: NewComponentBase(name),
		local:         transform.Identity(),
		world:         transform.Identity(),
	}
}

func (s *SpatialComponent) spatial() *SpatialComponent { return s }

// ensureTransforms fixes up zero-value transforms (zero quaternion, zero scale).
func (s *SpatialComponent) ensureTransforms() {
	var zero transform.Transform
	if s.local == zero {
		s.local = transform.Identity()
	}
	if s.world == zero {
		s.world = s.local
	}
}

func (s *SpatialComponent) LocalTransform() transform.Transform { return s.local }
func (s *SpatialComponent) WorldTransform() transform.Transform { return s.world }
func (s *SpatialComponent) LocalPosition() transform.Vec3       { return s.local.Translation }
func (s *SpatialComponent) WorldPosition() transform.Vec3       { return s.world.Translation }

func (s *SpatialComponent) Parent() *SpatialComponent { return s.parent }
func (s *SpatialComponent) HasParent() bool           { return s.parent != nil }
func (s *SpatialComponent) ParentSocketID() stringid.ID {
	return s.parentSocket
}

func (s *SpatialComponent) Children() []*SpatialComponent { return slices.Clone(s.children) }
func (s *SpatialComponent) ChildCount() int               { return len(s.children) }

// Sockets

func (s *SpatialComponent) Sockets() []stringid.ID { return slices.Clone(s.sockets) }

func (s *SpatialComponent) AddSocket(id stringid.ID) {
	mustf(id.IsValid(), "add socket to %q: invalid socket id", s.name)
	if !s.HasSocket(id) {
		s.sockets = append(s.sockets, id)
	}
}

func (s *SpatialComponent) HasSocket(id stringid.ID) bool {
	return slices.Contains(s.sockets, id)
}

// findSocket searches this subtree depth-first, self before children.
func (s *SpatialComponent) findSocket(id stringid.ID) *SpatialComponent {
	if s.HasSocket(id) {
		return s
	}
	for _, child := range s.children {
		if found := child.findSocket(id); found != nil {
			return found
		}
	}
	return nil
}

func (s *SpatialComponent) isDescendantOf(other *SpatialComponent) bool {
	for p := s.parent; p != nil; p = p.parent {
		if p == other {
			return true
		}
	}
	return false
}

// Attachment

// AttachTo parents s under parent while keeping its current world transform.
func (s *SpatialComponent) AttachTo(parent *SpatialComponent, socket stringid.ID) {
	mustf(parent != nil, "attach %q: nil parent", s.name)
	mustf(s.parent == nil, "attach %q: already attached to %q", s.name, nameOf(s.parent))
	mustf(parent != s && !parent.isDescendantOf(s), "attach %q: would create a cycle", s.name)

	s.parent = parent
	s.parentSocket = socket
	s.local = transform.Delta(parent.world, s.world)
	parent.children = append(parent.children, s)
	s.calculateWorldTransform(true)
}

// attachKeepingLocal parents s under parent and keeps the authored local
// transform. Used when assembling an entity's own component tree.
func (s *SpatialComponent) attachKeepingLocal(parent *SpatialComponent, socket stringid.ID) {
	mustf(s.parent == nil, "attach %q: already attached to %q", s.name, nameOf(s.parent))
	mustf(parent != s && !parent.isDescendantOf(s), "attach %q: would create a cycle", s.name)

	s.parent = parent
	s.parentSocket = socket
	parent.children = append(parent.children, s)
	s.calculateWorldTransform(true)
}

// Detach removes s from its parent. The local transform becomes the current
// world transform, so the absolute placement is unaffected.
func (s *SpatialComponent) Detach() {
	mustf(s.parent != nil, "detach %q: not attached", s.name)

	if i := slices.Index(s.parent.children, s); i >= 0 {
		s.parent.children = slices.Delete(s.parent.children, i, i+1)
	}
	s.parent = nil
	s.parentSocket = stringid.Invalid
	s.local = s.world
}

// Local transform setters

func (s *SpatialComponent) SetLocalTransform(t transform.Transform) {
	s.local = t
	s.calculateWorldTransform(true)
}

func (s *SpatialComponent) SetLocalPosition(p transform.Vec3) {
	s.local.Translation = p
	s.calculateWorldTransform(true)
}

func (s *SpatialComponent) SetLocalRotation(q transform.Quat) {
	s.local.Rotation = q.Normalize()
	s.calculateWorldTransform(true)
}

// SetLocalRotationEuler takes XYZ angles in radians.
func (s *SpatialComponent) SetLocalRotationEuler(euler transform.Vec3) {
	s.SetLocalRotation(transform.EulerToQuat(euler))
}

func (s *SpatialComponent) SetLocalScale(scale transform.Vec3) {
	s.local.Scale = scale
	s.calculateWorldTransform(true)
}

// MoveLocal offsets the local position.
func (s *SpatialComponent) MoveLocal(delta transform.Vec3) {
	s.SetLocalPosition(s.local.Translation.Add(delta))
}

// RotateLocal pre-multiplies the local rotation by delta.
func (s *SpatialComponent) RotateLocal(delta transform.Quat) {
	s.SetLocalRotation(delta.Mul(s.local.Rotation))
}

func (s *SpatialComponent) RotateLocalEuler(euler transform.Vec3) {
	s.RotateLocal(transform.EulerToQuat(euler))
}

// ScaleLocal multiplies the local scale component-wise.
func (s *SpatialComponent) ScaleLocal(factor transform.Vec3) {
	cur := s.local.Scale
	s.SetLocalScale(transform.Vec3{cur.X() * factor.X(), cur.Y() * factor.Y(), cur.Z() * factor.Z()})
}

// World transform setters solve for the local transform.

func (s *SpatialComponent) SetWorldTransform(t transform.Transform) {
	if s.parent != nil {
		s.local = transform.Delta(s.parent.world, t)
	} else {
		s.local = t
	}
	s.calculateWorldTransform(true)
}

func (s *SpatialComponent) SetWorldPosition(p transform.Vec3) {
	s.SetWorldTransform(s.world.WithTranslation(p))
}

func (s *SpatialComponent) calculateWorldTransform(notify bool) {
	if s.parent != nil {
		s.world = transform.Compose(s.parent.world, s.local)
	} else {
		s.world = s.local
	}

	if notify && s.owner != nil {
		if l, ok := s.owner.(WorldTransformListener); ok {
			l.OnWorldTransformUpdated()
		}
	}

	for _, child := range s.children {
		child.calculateWorldTransform(notify)
	}
}

func nameOf(s *SpatialComponent) string {
	if s == nil {
		return "<nil>"
	}
	return s.name
}
