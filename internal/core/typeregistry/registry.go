package typeregistry

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"
	"sync"

	"github.com/zeusync/engine/internal/core/entities"
	"gopkg.in/yaml.v3"
)

var (
	ErrUnknownType   = errors.New("unknown type")
	ErrDuplicateType = errors.New("type already registered")
)

// Params carries the authored parameters of a new instance. *yaml.Node
// satisfies it directly.
type Params interface {
	Decode(v any) error
}

// NoParams decodes nothing and leaves v at its defaults.
type NoParams struct{}

func (NoParams) Decode(any) error { return nil }

// MapParams decodes a loosely typed map (e.g. a script table) by round-tripping
// it through YAML.
type MapParams map[string]any

func (p MapParams) Decode(v any) error {
	if len(p) == 0 {
		return nil
	}
	raw, err := yaml.Marshal(map[string]any(p))
	if err != nil {
		return err
	}
	return yaml.Unmarshal(raw, v)
}

type (
	ComponentFactory func(name string, params Params) (entities.Component, error)
	SystemFactory    func(params Params) (entities.System, error)
)

// Validator is implemented by instances that check their decoded params.
type Validator interface {
	Validate() error
}

// Decoded builds a ComponentFactory that decodes the params straight into the
// new instance, so a component's authored fields are its exported yaml-tagged
// fields.
func Decoded[C entities.Component](build func(name string) C) ComponentFactory {
	return func(name string, params Params) (entities.Component, error) {
		c := build(name)
		if err := decodeInto(c, params); err != nil {
			return nil, fmt.Errorf("component %q: %w", name, err)
		}
		return c, nil
	}
}

// DecodedSystem is the SystemFactory counterpart of Decoded.
func DecodedSystem[S entities.System](build func() S) SystemFactory {
	return func(params Params) (entities.System, error) {
		s := build()
		if err := decodeInto(s, params); err != nil {
			return nil, fmt.Errorf("system %s: %w", s.Kind(), err)
		}
		return s, nil
	}
}

func decodeInto(v any, params Params) error {
	if params != nil {
		if err := params.Decode(v); err != nil {
			return fmt.Errorf("decode params: %w", err)
		}
	}
	if val, ok := v.(Validator); ok {
		return val.Validate()
	}
	return nil
}

// Registry instantiates components and systems by type name.
type Registry struct {
	mu         sync.RWMutex
	components map[string]ComponentFactory
	systems    map[string]SystemFactory
}

func New() *Registry {
	return &Registry{
		components: make(map[string]ComponentFactory),
		systems:    make(map[string]SystemFactory),
	}
}

func (r *Registry) RegisterComponent(typeName string, factory ComponentFactory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.components[typeName]; ok {
		return fmt.Errorf("%w: component %s", ErrDuplicateType, typeName)
	}
	r.components[typeName] = factory
	return nil
}

func (r *Registry) RegisterSystem(typeName string, factory SystemFactory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.systems[typeName]; ok {
		return fmt.Errorf("%w: system %s", ErrDuplicateType, typeName)
	}
	r.systems[typeName] = factory
	return nil
}

// CreateComponent builds a new, unowned component of typeName.
func (r *Registry) CreateComponent(typeName, name string, params Params) (entities.Component, error) {
	r.mu.RLock()
	f := r.components[typeName]
	r.mu.RUnlock()
	if f == nil {
		return nil, fmt.Errorf("%w: component %s", ErrUnknownType, typeName)
	}
	if name == "" {
		name = typeName
	}
	return f(name, params)
}

func (r *Registry) CreateSystem(typeName string, params Params) (entities.System, error) {
	r.mu.RLock()
	f := r.systems[typeName]
	r.mu.RUnlock()
	if f == nil {
		return nil, fmt.Errorf("%w: system %s", ErrUnknownType, typeName)
	}
	return f(params)
}

func (r *Registry) ComponentTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.components)
}

func (r *Registry) SystemTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.systems)
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// FieldInfo describes one authored member of a registered type.
type FieldInfo struct {
	Name string
	Key  string
	Type string
}

type TypeInfo struct {
	Name   string
	GoType string
	Fields []FieldInfo
}

// DescribeComponent lists the yaml-tagged exported fields of a component type,
// found by building a default instance. Embedded bases are skipped.
func (r *Registry) DescribeComponent(typeName string) (TypeInfo, error) {
	c, err := r.CreateComponent(typeName, "", NoParams{})
	if err != nil {
		return TypeInfo{}, err
	}
	return describe(typeName, c), nil
}

func (r *Registry) DescribeSystem(typeName string) (TypeInfo, error) {
	s, err := r.CreateSystem(typeName, NoParams{})
	if err != nil {
		return TypeInfo{}, err
	}
	return describe(typeName, s), nil
}

func describe(typeName string, v any) TypeInfo {
	t := reflect.TypeOf(v)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	info := TypeInfo{Name: typeName, GoType: t.String()}
	if t.Kind() != reflect.Struct {
		return info
	}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.Anonymous || !f.IsExported() {
			continue
		}
		key, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if key == "-" {
			continue
		}
		if key == "" {
			key = strings.ToLower(f.Name)
		}
		info.Fields = append(info.Fields, FieldInfo{Name: f.Name, Key: key, Type: f.Type.String()})
	}
	return info
}
