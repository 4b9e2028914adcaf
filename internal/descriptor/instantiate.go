package descriptor

import (
	"fmt"

	"github.com/zeusync/engine/internal/core/entities"
	"github.com/zeusync/engine/internal/core/observability/log"
	"github.com/zeusync/engine/internal/core/stringid"
	"github.com/zeusync/engine/internal/core/typeregistry"
	"github.com/zeusync/engine/internal/core/world"
	"gopkg.in/yaml.v3"
)

// Instantiate builds every entity of the scene, links spatial parents and
// queues the entities on m. Nothing is added to m if any part fails.
func (s *Scene) Instantiate(reg *typeregistry.Registry, m *world.EntityMap, logger log.Log) ([]*entities.Entity, error) {
	if logger == nil {
		logger = log.Provide()
	}
	built := make([]*entities.Entity, 0, len(s.Entities))
	byName := make(map[string]*entities.Entity, len(s.Entities))

	for _, desc := range s.Entities {
		e, err := desc.build(reg, logger)
		if err != nil {
			return nil, fmt.Errorf("scene %q: %w", s.Name, err)
		}
		built = append(built, e)
		byName[desc.Name] = e
	}

	for i, desc := range s.Entities {
		if desc.Parent != "" {
			built[i].SetSpatialParent(byName[desc.Parent], stringid.New(desc.Socket))
		}
	}

	for _, e := range built {
		m.AddEntity(e)
	}
	logger.Info("scene instantiated", log.String("scene", s.Name), log.Int("entities", len(built)))
	return built, nil
}

func (d *Entity) build(reg *typeregistry.Registry, logger log.Log) (*entities.Entity, error) {
	e := entities.NewEntity(d.Name, entities.WithLogger(logger))
	ids := make(map[string]entities.ComponentID, len(d.Components))

	for _, cd := range d.Components {
		c, err := reg.CreateComponent(cd.Type, cd.Name, params(&cd.Params))
		if err != nil {
			return nil, fmt.Errorf("entity %q: %w", d.Name, err)
		}

		if err := e.CheckSingleton(c); err != nil {
			return nil, fmt.Errorf("%w: entity %q: component %q: %v", ErrInvalidScene, d.Name, c.Name(), err)
		}

		sc, spatial := entities.AsSpatial(c)
		if !spatial && (cd.Parent != "" || cd.Transform != nil || len(cd.Sockets) > 0) {
			return nil, fmt.Errorf("entity %q: component %q of type %s is not spatial", d.Name, c.Name(), cd.Type)
		}

		var parentID entities.ComponentID
		if spatial {
			sc.SetLocalTransform(cd.Transform.Build())
			for _, socket := range cd.Sockets {
				sc.AddSocket(stringid.New(socket))
			}
			if cd.Parent != "" {
				parentID = ids[cd.Parent]
				if _, ok := entities.AsSpatial(e.FindComponent(parentID)); !ok {
					return nil, fmt.Errorf("entity %q: component %q: parent %q is not spatial", d.Name, c.Name(), cd.Parent)
				}
			}
		}

		e.AddComponentWithParent(c, parentID)
		ids[c.Name()] = c.ID()
	}

	for _, sd := range d.Systems {
		sys, err := reg.CreateSystem(sd.Type, params(&sd.Params))
		if err != nil {
			return nil, fmt.Errorf("entity %q: %w", d.Name, err)
		}
		if err := e.CreateSystem(sys); err != nil {
			return nil, fmt.Errorf("entity %q: %w", d.Name, err)
		}
	}
	return e, nil
}

func params(n *yaml.Node) typeregistry.Params {
	if n.Kind == 0 {
		return typeregistry.NoParams{}
	}
	return n
}
