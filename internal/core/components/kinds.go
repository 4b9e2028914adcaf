package components

import (
	"github.com/zeusync/engine/internal/core/entities"
	"github.com/zeusync/engine/internal/core/typeregistry"
)

var (
	KindMesh  = entities.NewComponentKind("components.mesh")
	KindLight = entities.NewComponentKind("components.light")
	KindTag   = entities.NewComponentKind("components.tag")
)

// Type names used by scene descriptors and scripts.
const (
	TypeMesh  = "mesh"
	TypeLight = "light"
	TypeTag   = "tag"
)

// Register adds the reference component types to r.
func Register(r *typeregistry.Registry) error {
	factories := map[string]typeregistry.ComponentFactory{
		TypeMesh:  typeregistry.Decoded(NewMeshComponent),
		TypeLight: typeregistry.Decoded(NewLightComponent),
		TypeTag:   typeregistry.Decoded(NewTagComponent),
	}
	for _, name := range []string{TypeMesh, TypeLight, TypeTag} {
		if err := r.RegisterComponent(name, factories[name]); err != nil {
			return err
		}
	}
	return nil
}
