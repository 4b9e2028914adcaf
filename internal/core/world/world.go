package world

import (
	"fmt"
	"slices"
	"sort"

	"github.com/google/uuid"
	"github.com/zeusync/engine/internal/core/entities"
	"github.com/zeusync/engine/internal/core/events/bus"
	"github.com/zeusync/engine/internal/core/observability/log"
)

// World drives the frame loop: a loading phase over every map followed, once
// nothing is loading, by one update pass per stage.
//
// It is the entities.LoadingContext handed to every entity lifecycle step.
// Like entities, a World is driven from a single goroutine.
type World struct {
	resources entities.Resources
	bus       bus.EventBus
	logger    log.Log

	systems      []System
	stageSystems [entities.StageCount][]System
	initialized  bool

	persistent *EntityMap
	maps       []*EntityMap

	updating []*entities.Entity
	frame    uint64
}

type Option func(*World)

func WithResources(r entities.Resources) Option {
	return func(w *World) { w.resources = r }
}

func WithEventBus(b bus.EventBus) Option {
	return func(w *World) { w.bus = b }
}

func WithLogger(l log.Log) Option {
	return func(w *World) { w.logger = l }
}

func New(opts ...Option) *World {
	w := &World{}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = log.Provide()
	}
	if w.bus == nil {
		w.bus = bus.New()
	}
	w.logger = w.logger.Named("world")
	w.persistent = NewEntityMap("persistent", w.bus, w.logger)
	w.maps = []*EntityMap{w.persistent}
	return w
}

func (w *World) EventBus() bus.EventBus { return w.bus }
func (w *World) Logger() log.Log        { return w.logger }
func (w *World) Frame() uint64          { return w.frame }

// PersistentMap always exists and cannot be unloaded.
func (w *World) PersistentMap() *EntityMap { return w.persistent }

func (w *World) Maps() []*EntityMap { return slices.Clone(w.maps) }

func (w *World) FindMap(id uuid.UUID) *EntityMap {
	for _, m := range w.maps {
		if m.ID() == id {
			return m
		}
	}
	return nil
}

// CreateMap adds an empty map. It loads and activates on the following frames.
func (w *World) CreateMap(name string) *EntityMap {
	m := NewEntityMap(name, w.bus, w.logger)
	w.maps = append(w.maps, m)
	w.logger.Info("map created", log.String("map", name), log.Stringer("map_id", m.ID()))
	return m
}

// UnloadMap deactivates and unloads the map, then forgets it.
func (w *World) UnloadMap(id uuid.UUID) error {
	if id == w.persistent.ID() {
		return ErrPersistentMap
	}
	i := slices.IndexFunc(w.maps, func(m *EntityMap) bool { return m.ID() == id })
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrMapNotFound, id)
	}
	m := w.maps[i]
	if m.IsActivated() {
		m.Deactivate(w)
	}
	m.Unload(w)
	w.maps = slices.Delete(w.maps, i, i+1)
	return nil
}

//-------------------------------------------------------------------------
// World systems
//-------------------------------------------------------------------------

// RegisterWorldSystem adds s. It must be called before Initialize.
func (w *World) RegisterWorldSystem(s System) error {
	if w.initialized {
		return ErrAlreadyInitialized
	}
	if w.FindWorldSystem(s.Kind()) != nil {
		return fmt.Errorf("%w: %s", ErrDuplicateWorldSystem, s.Kind())
	}
	w.systems = append(w.systems, s)
	return nil
}

func (w *World) FindWorldSystem(kind entities.SystemKind) System {
	for _, s := range w.systems {
		if s.Kind() == kind {
			return s
		}
	}
	return nil
}

func (w *World) WorldSystems() []System { return slices.Clone(w.systems) }

// Initialize initializes the world systems in registration order. A failing
// system aborts startup; systems already initialized are shut down again.
func (w *World) Initialize() error {
	if w.initialized {
		return ErrAlreadyInitialized
	}
	for i, s := range w.systems {
		if err := s.Initialize(w); err != nil {
			for j := i - 1; j >= 0; j-- {
				w.systems[j].Shutdown()
			}
			return fmt.Errorf("initialize world system %s: %w", s.Kind(), err)
		}
	}
	w.buildStageSystems()
	w.initialized = true
	w.logger.Info("world initialized", log.Int("systems", len(w.systems)))
	return nil
}

func (w *World) buildStageSystems() {
	for _, stage := range entities.Stages() {
		list := make([]System, 0, len(w.systems))
		for _, s := range w.systems {
			if s.RequiredUpdatePriorities().IsStageEnabled(stage) {
				list = append(list, s)
			}
		}
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].RequiredUpdatePriorities().Priority(stage) > list[j].RequiredUpdatePriorities().Priority(stage)
		})
		w.stageSystems[stage] = list
	}
}

// Shutdown deactivates and unloads every map, then shuts the world systems
// down in reverse order.
func (w *World) Shutdown() {
	if !w.initialized {
		return
	}
	for i := len(w.maps) - 1; i >= 0; i-- {
		m := w.maps[i]
		if m.IsActivated() {
			m.Deactivate(w)
		}
		m.Unload(w)
	}
	for i := len(w.systems) - 1; i >= 0; i-- {
		w.systems[i].Shutdown()
	}
	w.initialized = false
	w.logger.Info("world shut down", log.Uint64("frames", w.frame))
}

//-------------------------------------------------------------------------
// Frame
//-------------------------------------------------------------------------

// Update runs one frame and reports whether the update phase ran. While any
// map is loading the update phase is skipped; maps that finished loading are
// still activated.
func (w *World) Update(deltaTime float64) (bool, error) {
	if !w.initialized {
		return false, ErrNotInitialized
	}
	w.frame++

	ready := true
	for _, m := range w.maps {
		if !m.UpdateLoading(w) {
			ready = false
			continue
		}
		if !m.IsActivated() {
			m.Activate(w)
		}
	}
	if !ready {
		return false, nil
	}

	for _, stage := range entities.Stages() {
		ctx := entities.UpdateContext{Stage: stage, DeltaTime: deltaTime, Frame: w.frame}
		for _, s := range w.stageSystems[stage] {
			s.Update(ctx)
		}
		for _, e := range slices.Clone(w.updating) {
			e.UpdateSystems(ctx)
		}
	}
	return true, nil
}

// UpdatingEntities lists the entities whose systems run in the update phase,
// in registration order.
func (w *World) UpdatingEntities() []*entities.Entity { return slices.Clone(w.updating) }

//-------------------------------------------------------------------------
// entities.LoadingContext
//-------------------------------------------------------------------------

func (w *World) Resources() entities.Resources { return w.resources }

func (w *World) RegisterWithWorldSystems(e *entities.Entity, c entities.Component) {
	for _, s := range w.systems {
		s.RegisterComponent(e, c)
	}
}

func (w *World) UnregisterWithWorldSystems(e *entities.Entity, c entities.Component) {
	for _, s := range w.systems {
		s.UnregisterComponent(e, c)
	}
}

func (w *World) RegisterEntityUpdate(e *entities.Entity) {
	mustf(!slices.Contains(w.updating, e), "register update of %s: already registered", e)
	w.updating = append(w.updating, e)
}

func (w *World) UnregisterEntityUpdate(e *entities.Entity) {
	i := slices.Index(w.updating, e)
	mustf(i >= 0, "unregister update of %s: not registered", e)
	w.updating = slices.Delete(w.updating, i, i+1)
}

var _ entities.LoadingContext = (*World)(nil)
