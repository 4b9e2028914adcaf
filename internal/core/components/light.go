package components

import (
	"fmt"

	"github.com/zeusync/engine/internal/core/entities"
	"github.com/zeusync/engine/internal/core/transform"
)

type LightType string

const (
	LightPoint       LightType = "point"
	LightDirectional LightType = "directional"
	LightSpot        LightType = "spot"
)

// LightComponent is a spatial light source. It has no asset to load.
type LightComponent struct {
	entities.SpatialComponent

	Type      LightType      `yaml:"type"`
	Color     transform.Vec3 `yaml:"color"`
	Intensity float64        `yaml:"intensity"`
	Range     float64        `yaml:"range"`
}

func NewLightComponent(name string) *LightComponent {
	return &LightComponent{
		SpatialComponent: entities.NewSpatialComponent(name),
		Type:             LightPoint,
		Color:            transform.Vec3{1, 1, 1},
		Intensity:        1,
		Range:            10,
	}
}

func (l *LightComponent) Kind() entities.ComponentKind { return KindLight }

func (l *LightComponent) Validate() error {
	switch l.Type {
	case LightPoint, LightDirectional, LightSpot:
	default:
		return fmt.Errorf("unknown light type %q", l.Type)
	}
	if l.Intensity < 0 {
		return fmt.Errorf("negative intensity %g", l.Intensity)
	}
	if l.Type != LightDirectional && l.Range <= 0 {
		return fmt.Errorf("range must be positive, got %g", l.Range)
	}
	return nil
}

// Direction is the world-space forward (-Z) axis of the light.
func (l *LightComponent) Direction() transform.Vec3 {
	return l.WorldTransform().Rotation.Rotate(transform.Vec3{0, 0, -1})
}
