package components

import (
	"errors"
	"fmt"
	"math"

	"github.com/zeusync/engine/internal/core/entities"
	"github.com/zeusync/engine/internal/core/resource"
	"github.com/zeusync/engine/internal/core/transform"
	"gopkg.in/yaml.v3"
)

var ErrNoResources = errors.New("loading context has no resource loader")

// MeshData is the decoded mesh asset.
type MeshData struct {
	Vertices []transform.Vec3 `yaml:"vertices"`
	Indices  []uint32         `yaml:"indices"`
}

// Bounds is an axis-aligned box.
type Bounds struct {
	Min, Max transform.Vec3
}

func (b Bounds) Center() transform.Vec3 { return b.Min.Add(b.Max).Mul(0.5) }

// MeshComponent places a mesh asset in the world. The asset is requested on
// Load and decoded when the loader reports it ready; a missing or malformed
// asset fails the load.
type MeshComponent struct {
	entities.SpatialComponent

	Mesh    string `yaml:"mesh"`
	Visible bool   `yaml:"visible"`

	handle    *resource.Resource
	resources entities.Resources
	data      *MeshData
	loadErr   error

	fitted      bool
	localBounds Bounds
	worldBounds Bounds
}

func NewMeshComponent(name string) *MeshComponent {
	return &MeshComponent{SpatialComponent: entities.NewSpatialComponent(name), Visible: true}
}

func (m *MeshComponent) Kind() entities.ComponentKind { return KindMesh }

func (m *MeshComponent) Data() *MeshData     { return m.data }
func (m *MeshComponent) LoadErr() error      { return m.loadErr }
func (m *MeshComponent) LocalBounds() Bounds { return m.localBounds }
func (m *MeshComponent) WorldBounds() Bounds { return m.worldBounds }

func (m *MeshComponent) Load(ctx entities.LoadingContext) {
	m.loadErr = nil
	m.resources = ctx.Resources()
	if m.resources == nil {
		m.loadErr = ErrNoResources
		return
	}
	h, err := m.resources.Request(m.Mesh)
	if err != nil {
		m.loadErr = err
		return
	}
	m.handle = h
}

func (m *MeshComponent) PollLoading() entities.LoadResult {
	switch {
	case m.loadErr != nil || m.handle == nil:
		return entities.LoadFailed
	case m.handle.HasFailedLoading():
		m.loadErr = m.handle.Err()
		return entities.LoadFailed
	case !m.handle.IsLoaded():
		return entities.LoadPending
	}

	var data MeshData
	if err := yaml.Unmarshal(m.handle.Data(), &data); err != nil {
		m.loadErr = fmt.Errorf("decode mesh %s: %w", m.Mesh, err)
		return entities.LoadFailed
	}
	if err := data.validate(); err != nil {
		m.loadErr = fmt.Errorf("mesh %s: %w", m.Mesh, err)
		return entities.LoadFailed
	}
	m.data = &data
	return entities.LoadSucceeded
}

func (m *MeshComponent) Unload(entities.LoadingContext) {
	if m.handle != nil && m.resources != nil {
		m.resources.Release(m.handle)
	}
	m.handle, m.resources, m.data = nil, nil, nil
}

func (m *MeshComponent) Initialize() {
	m.localBounds = boundsOf(m.data.Vertices)
	m.fitted = true
	m.OnWorldTransformUpdated()
}

func (m *MeshComponent) Shutdown() {
	m.fitted = false
	m.localBounds, m.worldBounds = Bounds{}, Bounds{}
}

// OnWorldTransformUpdated refits the world-space bounds.
func (m *MeshComponent) OnWorldTransformUpdated() {
	if !m.fitted {
		return
	}
	world := m.WorldTransform()
	lo, hi := m.localBounds.Min, m.localBounds.Max
	corners := make([]transform.Vec3, 0, 8)
	for _, x := range []float64{lo.X(), hi.X()} {
		for _, y := range []float64{lo.Y(), hi.Y()} {
			for _, z := range []float64{lo.Z(), hi.Z()} {
				corners = append(corners, world.TransformPoint(transform.Vec3{x, y, z}))
			}
		}
	}
	m.worldBounds = boundsOf(corners)
}

func (d *MeshData) validate() error {
	if len(d.Vertices) == 0 {
		return errors.New("no vertices")
	}
	if len(d.Indices)%3 != 0 {
		return fmt.Errorf("index count %d is not a multiple of 3", len(d.Indices))
	}
	for _, i := range d.Indices {
		if int(i) >= len(d.Vertices) {
			return fmt.Errorf("index %d out of range", i)
		}
	}
	return nil
}

func boundsOf(points []transform.Vec3) Bounds {
	if len(points) == 0 {
		return Bounds{}
	}
	lo := transform.Vec3{math.Inf(1), math.Inf(1), math.Inf(1)}
	hi := transform.Vec3{math.Inf(-1), math.Inf(-1), math.Inf(-1)}
	for _, p := range points {
		for i := 0; i < 3; i++ {
			lo[i] = math.Min(lo[i], p[i])
			hi[i] = math.Max(hi[i], p[i])
		}
	}
	return Bounds{Min: lo, Max: hi}
}
