// Package descriptor reads YAML scene files and instantiates their entities
// through the type registry.
package descriptor

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/zeusync/engine/internal/core/transform"
	"gopkg.in/yaml.v3"
)

var ErrInvalidScene = errors.New("invalid scene")

// Scene is the root of a scene file.
type Scene struct {
	Name     string   `yaml:"name"`
	Entities []Entity `yaml:"entities"`
}

type Entity struct {
	Name string `yaml:"name"`
	// Parent names another entity in the same scene to attach to, at Socket if
	// that entity exposes it.
	Parent     string      `yaml:"parent,omitempty"`
	Socket     string      `yaml:"socket,omitempty"`
	Components []Component `yaml:"components"`
	Systems    []System    `yaml:"systems,omitempty"`
}

type Component struct {
	Type string `yaml:"type"`
	Name string `yaml:"name"`
	// Parent names a spatial component of the same entity.
	Parent    string     `yaml:"parent,omitempty"`
	Sockets   []string   `yaml:"sockets,omitempty"`
	Transform *Transform `yaml:"transform,omitempty"`
	Params    yaml.Node  `yaml:"params,omitempty"`
}

type System struct {
	Type   string    `yaml:"type"`
	Params yaml.Node `yaml:"params,omitempty"`
}

// Transform is authored with Euler rotation in degrees.
type Transform struct {
	Position *transform.Vec3 `yaml:"position,omitempty"`
	Rotation *transform.Vec3 `yaml:"rotation,omitempty"`
	Scale    *transform.Vec3 `yaml:"scale,omitempty"`
}

func (t *Transform) Build() transform.Transform {
	out := transform.Identity()
	if t == nil {
		return out
	}
	if t.Position != nil {
		out.Translation = *t.Position
	}
	if t.Rotation != nil {
		out.Rotation = transform.EulerDegreesToQuat(*t.Rotation)
	}
	if t.Scale != nil {
		out.Scale = *t.Scale
	}
	return out
}

func Load(r io.Reader) (*Scene, error) {
	var s Scene
	if err := yaml.NewDecoder(r).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode scene: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func LoadFile(path string) (*Scene, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	s, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Validate checks names and references. Types and params are checked when
// the scene is instantiated.
func (s *Scene) Validate() error {
	entities := make(map[string]*Entity, len(s.Entities))
	for i := range s.Entities {
		e := &s.Entities[i]
		if e.Name == "" {
			return fmt.Errorf("%w: entity %d has no name", ErrInvalidScene, i)
		}
		if _, dup := entities[e.Name]; dup {
			return fmt.Errorf("%w: duplicate entity %q", ErrInvalidScene, e.Name)
		}
		entities[e.Name] = e
		if err := e.validateComponents(); err != nil {
			return err
		}
	}

	for _, e := range s.Entities {
		if e.Parent == "" {
			if e.Socket != "" {
				return fmt.Errorf("%w: entity %q has a socket but no parent", ErrInvalidScene, e.Name)
			}
			continue
		}
		if _, ok := entities[e.Parent]; !ok {
			return fmt.Errorf("%w: entity %q: unknown parent %q", ErrInvalidScene, e.Name, e.Parent)
		}
		// walk up to detect cycles
		seen := map[string]bool{e.Name: true}
		for p := entities[e.Parent]; p != nil; p = entities[p.Parent] {
			if seen[p.Name] {
				return fmt.Errorf("%w: entity %q: parent cycle", ErrInvalidScene, e.Name)
			}
			seen[p.Name] = true
		}
	}
	return nil
}

func (e *Entity) validateComponents() error {
	names := make(map[string]bool, len(e.Components))
	for i, c := range e.Components {
		if c.Type == "" {
			return fmt.Errorf("%w: entity %q: component %d has no type", ErrInvalidScene, e.Name, i)
		}
		if c.Name != "" {
			if names[c.Name] {
				return fmt.Errorf("%w: entity %q: duplicate component %q", ErrInvalidScene, e.Name, c.Name)
			}
			names[c.Name] = true
		}
		// parents must be declared first
		if c.Parent != "" && !names[c.Parent] {
			return fmt.Errorf("%w: entity %q: component %q: parent %q must be declared before it",
				ErrInvalidScene, e.Name, c.Name, c.Parent)
		}
	}
	for i, s := range e.Systems {
		if s.Type == "" {
			return fmt.Errorf("%w: entity %q: system %d has no type", ErrInvalidScene, e.Name, i)
		}
	}
	return nil
}
