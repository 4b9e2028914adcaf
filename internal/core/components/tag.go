package components

import (
	"slices"

	"github.com/zeusync/engine/internal/core/entities"
)

// TagComponent labels an entity. An entity has at most one.
type TagComponent struct {
	entities.ComponentBase

	Tags []string `yaml:"tags"`
}

func NewTagComponent(name string) *TagComponent {
	return &TagComponent{ComponentBase: entities.NewComponentBase(name)}
}

func (t *TagComponent) Kind() entities.ComponentKind { return KindTag }
func (t *TagComponent) IsSingleton() bool            { return true }

func (t *TagComponent) HasTag(tag string) bool { return slices.Contains(t.Tags, tag) }

// EntityHasTag looks for a TagComponent on e carrying tag.
func EntityHasTag(e *entities.Entity, tag string) bool {
	if c, ok := e.FindComponentByKind(KindTag).(*TagComponent); ok {
		return c.HasTag(tag)
	}
	return false
}
