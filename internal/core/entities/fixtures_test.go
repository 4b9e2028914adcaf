package entities

import "slices"

var (
	kindStub    = NewComponentKind("test.stub")
	kindSpatial = NewComponentKind("test.spatial")
	kindUnique  = NewComponentKind("test.unique")
)

// fakeContext records every world-level call an entity makes.
type fakeContext struct {
	worldRegistered   map[ComponentID]int
	worldUnregistered map[ComponentID]int
	updating          []*Entity
	updateRegisters   int
}

func newFakeContext() *fakeContext {
	return &fakeContext{
		worldRegistered:   map[ComponentID]int{},
		worldUnregistered: map[ComponentID]int{},
	}
}

func (f *fakeContext) Resources() Resources { return nil }

func (f *fakeContext) RegisterWithWorldSystems(_ *Entity, c Component) {
	f.worldRegistered[c.ID()]++
}

func (f *fakeContext) UnregisterWithWorldSystems(_ *Entity, c Component) {
	f.worldUnregistered[c.ID()]++
}

func (f *fakeContext) RegisterEntityUpdate(e *Entity) {
	f.updating = append(f.updating, e)
	f.updateRegisters++
}

func (f *fakeContext) UnregisterEntityUpdate(e *Entity) {
	if i := slices.Index(f.updating, e); i >= 0 {
		f.updating = slices.Delete(f.updating, i, i+1)
	}
}

var _ LoadingContext = (*fakeContext)(nil)

// stubComponent reports whatever result is set and counts hook calls.
type stubComponent struct {
	ComponentBase

	result LoadResult
	kind   ComponentKind
	single bool

	loads, unloads, inits, shutdowns int
}

func newStub(name string) *stubComponent {
	return &stubComponent{ComponentBase: NewComponentBase(name), result: LoadSucceeded, kind: kindStub}
}

func (p *stubComponent) Kind() ComponentKind     { return p.kind }
func (p *stubComponent) IsSingleton() bool       { return p.single }
func (p *stubComponent) Load(LoadingContext)     { p.loads++ }
func (p *stubComponent) PollLoading() LoadResult { return p.result }
func (p *stubComponent) Unload(LoadingContext)   { p.unloads++ }
func (p *stubComponent) Initialize()             { p.inits++ }
func (p *stubComponent) Shutdown()               { p.shutdowns++ }

type spatialStub struct {
	SpatialComponent

	worldUpdates int
}

func newSpatialStub(name string) *spatialStub {
	return &spatialStub{SpatialComponent: NewSpatialComponent(name)}
}

func (s *spatialStub) Kind() ComponentKind      { return kindSpatial }
func (s *spatialStub) OnWorldTransformUpdated() { s.worldUpdates++ }

// recordingSystem tracks the components it was handed and the updates it ran.
type recordingSystem struct {
	kind       SystemKind
	priorities UpdatePriorities

	registered   map[ComponentID]int
	unregistered map[ComponentID]int
	log          *[]SystemKind
}

func newRecordingSystem(name string, p UpdatePriorities, log *[]SystemKind) *recordingSystem {
	return &recordingSystem{
		kind:         NewSystemKind(name),
		priorities:   p,
		registered:   map[ComponentID]int{},
		unregistered: map[ComponentID]int{},
		log:          log,
	}
}

func (s *recordingSystem) Kind() SystemKind                           { return s.kind }
func (s *recordingSystem) RequiredUpdatePriorities() UpdatePriorities { return s.priorities }
func (s *recordingSystem) RegisterComponent(c Component)              { s.registered[c.ID()]++ }
func (s *recordingSystem) UnregisterComponent(c Component)            { s.unregistered[c.ID()]++ }

func (s *recordingSystem) Update(UpdateContext) {
	if s.log != nil {
		*s.log = append(*s.log, s.kind)
	}
}
