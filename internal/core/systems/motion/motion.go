package motion

import (
	"github.com/zeusync/engine/internal/core/entities"
	"github.com/zeusync/engine/internal/core/transform"
	"github.com/zeusync/engine/internal/core/typeregistry"
)

var Kind = entities.NewSystemKind("systems.motion")

const TypeName = "motion"

// System moves and spins one spatial component of its entity at a constant
// rate. It drives the first spatial component it is given, or the one named
// Target.
type System struct {
	Velocity        transform.Vec3 `yaml:"velocity"`
	AngularVelocity transform.Vec3 `yaml:"angular_velocity"` // degrees per second
	Target          string         `yaml:"target"`
	Priority        int            `yaml:"priority"`

	target   *entities.SpatialComponent
	targetID entities.ComponentID
}

func New() *System { return &System{} }

func Register(r *typeregistry.Registry) error {
	return r.RegisterSystem(TypeName, typeregistry.DecodedSystem(New))
}

func (s *System) Kind() entities.SystemKind { return Kind }

func (s *System) RequiredUpdatePriorities() entities.UpdatePriorities {
	return entities.Priorities(entities.At(entities.StagePrePhysics, s.Priority))
}

func (s *System) RegisterComponent(c entities.Component) {
	if s.target != nil {
		return
	}
	sc, ok := entities.AsSpatial(c)
	if !ok || (s.Target != "" && c.Name() != s.Target) {
		return
	}
	s.target, s.targetID = sc, c.ID()
}

func (s *System) UnregisterComponent(c entities.Component) {
	if s.target != nil && c.ID() == s.targetID {
		s.target, s.targetID = nil, entities.ComponentID{}
	}
}

// Driving reports whether a target component is currently registered.
func (s *System) Driving() bool { return s.target != nil }

func (s *System) Update(ctx entities.UpdateContext) {
	if s.target == nil || ctx.DeltaTime <= 0 {
		return
	}
	if s.Velocity != (transform.Vec3{}) {
		s.target.MoveLocal(s.Velocity.Mul(ctx.DeltaTime))
	}
	if s.AngularVelocity != (transform.Vec3{}) {
		s.target.RotateLocal(transform.EulerDegreesToQuat(s.AngularVelocity.Mul(ctx.DeltaTime)))
	}
}
