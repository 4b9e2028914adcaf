package render

import (
	"slices"

	"github.com/zeusync/engine/internal/core/components"
	"github.com/zeusync/engine/internal/core/entities"
	"github.com/zeusync/engine/internal/core/observability/log"
	"github.com/zeusync/engine/internal/core/transform"
	"github.com/zeusync/engine/internal/core/world"
)

var Kind = entities.NewSystemKind("systems.render")

// DrawItem is one visible mesh at its world placement.
type DrawItem struct {
	Entity    entities.EntityID
	Component string
	Mesh      string
	World     transform.Transform
	Bounds    components.Bounds
}

// LightItem is one light at its world placement.
type LightItem struct {
	Entity    entities.EntityID
	Type      components.LightType
	Position  transform.Vec3
	Direction transform.Vec3
	Color     transform.Vec3
	Intensity float64
}

type trackedMesh struct {
	entity *entities.Entity
	mesh   *components.MeshComponent
}

type trackedLight struct {
	entity *entities.Entity
	light  *components.LightComponent
}

// System tracks every mesh and light in the world and rebuilds a draw list at
// the end of each frame. It stands in for a real renderer backend.
type System struct {
	logger log.Log

	meshes []trackedMesh
	lights []trackedLight

	drawList  []DrawItem
	lightList []LightItem
	frames    uint64
}

func New() *System {
	return &System{logger: log.NewNop()}
}

func (s *System) Kind() entities.SystemKind { return Kind }

func (s *System) RequiredUpdatePriorities() entities.UpdatePriorities {
	return entities.Priorities(entities.At(entities.StageFrameEnd, 0))
}

func (s *System) Initialize(w *world.World) error {
	s.logger = w.Logger().Named("render")
	return nil
}

func (s *System) Shutdown() {
	s.logger.Info("render shut down", log.Uint64("frames", s.frames), log.Int("meshes", len(s.meshes)))
	s.meshes, s.lights = nil, nil
	s.drawList, s.lightList = nil, nil
}

func (s *System) RegisterComponent(e *entities.Entity, c entities.Component) {
	switch c.Kind() {
	case components.KindMesh:
		if m, ok := c.(*components.MeshComponent); ok {
			s.meshes = append(s.meshes, trackedMesh{entity: e, mesh: m})
		}
	case components.KindLight:
		if l, ok := c.(*components.LightComponent); ok {
			s.lights = append(s.lights, trackedLight{entity: e, light: l})
		}
	}
}

func (s *System) UnregisterComponent(_ *entities.Entity, c entities.Component) {
	switch c.Kind() {
	case components.KindMesh:
		s.meshes = slices.DeleteFunc(s.meshes, func(t trackedMesh) bool { return t.mesh.ID() == c.ID() })
	case components.KindLight:
		s.lights = slices.DeleteFunc(s.lights, func(t trackedLight) bool { return t.light.ID() == c.ID() })
	}
}

func (s *System) Update(ctx entities.UpdateContext) {
	s.frames++
	s.drawList = s.drawList[:0]
	for _, t := range s.meshes {
		if !t.mesh.Visible || t.mesh.Data() == nil {
			continue
		}
		s.drawList = append(s.drawList, DrawItem{
			Entity:    t.entity.ID(),
			Component: t.mesh.Name(),
			Mesh:      t.mesh.Mesh,
			World:     t.mesh.WorldTransform(),
			Bounds:    t.mesh.WorldBounds(),
		})
	}

	s.lightList = s.lightList[:0]
	for _, t := range s.lights {
		if t.light.Intensity == 0 {
			continue
		}
		s.lightList = append(s.lightList, LightItem{
			Entity:    t.entity.ID(),
			Type:      t.light.Type,
			Position:  t.light.WorldPosition(),
			Direction: t.light.Direction(),
			Color:     t.light.Color,
			Intensity: t.light.Intensity,
		})
	}
}

func (s *System) DrawList() []DrawItem   { return slices.Clone(s.drawList) }
func (s *System) Lights() []LightItem    { return slices.Clone(s.lightList) }
func (s *System) TrackedMeshes() int     { return len(s.meshes) }
func (s *System) TrackedLights() int     { return len(s.lights) }
func (s *System) FramesRendered() uint64 { return s.frames }

var _ world.System = (*System)(nil)
