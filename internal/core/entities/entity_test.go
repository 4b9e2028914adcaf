package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeusync/engine/internal/core/observability/log"
)

func newTestEntity(name string) *Entity {
	return NewEntity(name, WithLogger(log.NewNop()))
}

func loadAndActivate(t *testing.T, e *Entity, ctx LoadingContext) {
	t.Helper()
	e.LoadComponents(ctx)
	require.True(t, e.UpdateLoadingAndEntityState(ctx))
	e.Activate(ctx)
}

func TestComponentLifecycle(t *testing.T) {
	ctx := newFakeContext()
	e := newTestEntity("crate")
	c := newStub("body")
	e.AddComponent(c)

	assert.Equal(t, e.ID(), c.EntityID())
	assert.Equal(t, ComponentUnloaded, c.Status())

	e.LoadComponents(ctx)
	assert.Equal(t, EntityLoaded, e.Status())
	assert.Equal(t, ComponentLoading, c.Status())
	assert.Equal(t, 1, c.loads)

	require.True(t, e.UpdateLoadingAndEntityState(ctx))
	assert.Equal(t, ComponentInitialized, c.Status())
	assert.Equal(t, 1, c.inits)

	e.UnloadComponents(ctx)
	assert.Equal(t, EntityUnloaded, e.Status())
	assert.Equal(t, ComponentUnloaded, c.Status())
	assert.Equal(t, 1, c.shutdowns)
	assert.Equal(t, 1, c.unloads)
}

func TestPendingComponentBlocksLaterOnes(t *testing.T) {
	ctx := newFakeContext()
	e := newTestEntity("npc")
	first := newStub("first")
	slow := newStub("slow")
	slow.result = LoadPending
	last := newStub("last")
	e.AddComponent(first)
	e.AddComponent(slow)
	e.AddComponent(last)

	e.LoadComponents(ctx)
	assert.False(t, e.UpdateLoadingAndEntityState(ctx))
	assert.Equal(t, ComponentInitialized, first.Status())
	assert.Equal(t, ComponentLoading, slow.Status())
	assert.Equal(t, ComponentLoading, last.Status())
	assert.Zero(t, last.inits)

	slow.result = LoadSucceeded
	assert.True(t, e.UpdateLoadingAndEntityState(ctx))
	assert.Equal(t, ComponentInitialized, slow.Status())
	assert.Equal(t, ComponentInitialized, last.Status())
}

func TestFailedComponentDoesNotBlockSiblings(t *testing.T) {
	ctx := newFakeContext()
	e := newTestEntity("npc")
	broken := newStub("broken")
	broken.result = LoadFailed
	ok := newStub("ok")
	e.AddComponent(broken)
	e.AddComponent(ok)

	e.LoadComponents(ctx)
	assert.True(t, e.UpdateLoadingAndEntityState(ctx))
	assert.Equal(t, ComponentLoadingFailed, broken.Status())
	assert.Equal(t, ComponentInitialized, ok.Status())
	assert.Zero(t, broken.inits)

	// retry through reload
	broken.result = LoadSucceeded
	e.ReloadComponent(broken.ID())
	assert.Equal(t, []ActionKind{ActionReloadComponent}, e.PendingActions())
	assert.True(t, e.UpdateLoadingAndEntityState(ctx))
	assert.Equal(t, ComponentInitialized, broken.Status())
	assert.Equal(t, 1, broken.unloads)
	assert.Equal(t, 2, broken.loads)
}

func TestStatusNeverRegressesWithinPass(t *testing.T) {
	ctx := newFakeContext()
	e := newTestEntity("npc")
	results := []LoadResult{LoadSucceeded, LoadPending, LoadFailed, LoadSucceeded}
	stubs := make([]*stubComponent, len(results))
	for i, r := range results {
		stubs[i] = newStub("p")
		stubs[i].result = r
		e.AddComponent(stubs[i])
	}
	e.LoadComponents(ctx)

	for pass := 0; pass < 3; pass++ {
		before := make([]ComponentStatus, len(stubs))
		for i, p := range stubs {
			before[i] = p.Status()
		}
		e.UpdateLoadingAndEntityState(ctx)
		for i, p := range stubs {
			assert.True(t, forwardTransition(before[i], p.Status()), "pass %d component %d: %s -> %s", pass, i, before[i], p.Status())
		}
		stubs[1].result = LoadSucceeded
	}
}

func forwardTransition(from, to ComponentStatus) bool {
	if from == to {
		return true
	}
	switch from {
	case ComponentUnloaded:
		return to == ComponentLoading || to == ComponentLoaded || to == ComponentInitialized || to == ComponentLoadingFailed
	case ComponentLoading:
		return to == ComponentLoaded || to == ComponentInitialized || to == ComponentLoadingFailed
	case ComponentLoaded:
		return to == ComponentInitialized
	}
	return false
}

func TestStructuralChangesAreDeferredOnceLoaded(t *testing.T) {
	ctx := newFakeContext()
	e := newTestEntity("door")
	e.LoadComponents(ctx)

	c := newStub("hinge")
	e.AddComponent(c)
	assert.Zero(t, e.ComponentCount())
	assert.True(t, e.HasPendingActions())

	sys := newRecordingSystem("test.door", Priorities(At(StagePhysics, 1)), nil)
	require.NoError(t, e.CreateSystem(sys))
	assert.Nil(t, e.FindSystem(sys.Kind()))
	assert.Equal(t, []ActionKind{ActionAddComponent, ActionCreateSystem}, e.PendingActions())

	require.True(t, e.UpdateLoadingAndEntityState(ctx))
	assert.False(t, e.HasPendingActions())
	assert.Same(t, c, e.FindComponent(c.ID()))
	assert.Same(t, sys, e.FindSystem(sys.Kind()))
	assert.Equal(t, ComponentInitialized, c.Status())
}

func TestDeferredQueueMatchesImmediateApplication(t *testing.T) {
	type step func(e *Entity, stubs []*stubComponent, systems []*recordingSystem)

	steps := []step{
		func(e *Entity, p []*stubComponent, _ []*recordingSystem) { e.AddComponent(p[0]) },
		func(e *Entity, p []*stubComponent, _ []*recordingSystem) { e.AddComponent(p[1]) },
		func(e *Entity, _ []*stubComponent, s []*recordingSystem) { _ = e.CreateSystem(s[0]) },
		func(e *Entity, p []*stubComponent, _ []*recordingSystem) { e.DestroyComponent(p[0].ID()) },
		func(e *Entity, _ []*stubComponent, s []*recordingSystem) { _ = e.CreateSystem(s[1]) },
		func(e *Entity, p []*stubComponent, _ []*recordingSystem) { e.AddComponent(p[2]) },
		func(e *Entity, _ []*stubComponent, s []*recordingSystem) { e.DestroySystem(s[0].Kind()) },
	}

	build := func() ([]*stubComponent, []*recordingSystem) {
		return []*stubComponent{newStub("a"), newStub("b"), newStub("c")},
			[]*recordingSystem{
				newRecordingSystem("test.one", Priorities(At(StagePhysics, 0)), nil),
				newRecordingSystem("test.two", Priorities(At(StagePhysics, 0)), nil),
			}
	}

	immediate := newTestEntity("immediate")
	ip, is := build()
	for _, s := range steps {
		s(immediate, ip, is)
	}

	ctx := newFakeContext()
	deferred := newTestEntity("deferred")
	deferred.LoadComponents(ctx)
	dp, ds := build()
	for _, s := range steps {
		s(deferred, dp, ds)
	}
	require.Len(t, deferred.PendingActions(), len(steps))
	deferred.UpdateLoadingAndEntityState(ctx)

	names := func(e *Entity) []string {
		var out []string
		for _, c := range e.Components() {
			out = append(out, c.Name())
		}
		return out
	}
	kinds := func(e *Entity) []SystemKind {
		var out []SystemKind
		for _, s := range e.Systems() {
			out = append(out, s.Kind())
		}
		return out
	}

	assert.Equal(t, names(immediate), names(deferred))
	assert.Equal(t, []string{"b", "c"}, names(deferred))
	assert.Equal(t, kinds(immediate), kinds(deferred))
	assert.Equal(t, []SystemKind{ds[1].Kind()}, kinds(deferred))
}

func TestDuplicateSystem(t *testing.T) {
	e := newTestEntity("e")
	require.NoError(t, e.CreateSystem(newRecordingSystem("test.dup", Priorities(), nil)))
	err := e.CreateSystem(newRecordingSystem("test.dup", Priorities(), nil))
	require.ErrorIs(t, err, ErrDuplicateSystem)

	ctx := newFakeContext()
	e.LoadComponents(ctx)
	require.ErrorIs(t, e.CreateSystem(newRecordingSystem("test.dup", Priorities(), nil)), ErrDuplicateSystem)

	// destroy then create in the same frame is allowed
	e.DestroySystem(NewSystemKind("test.dup"))
	require.NoError(t, e.CreateSystem(newRecordingSystem("test.dup", Priorities(), nil)))
	e.UpdateLoadingAndEntityState(ctx)
	assert.Len(t, e.Systems(), 1)
}

func TestDestroyMissingSystemPanics(t *testing.T) {
	e := newTestEntity("e")
	assert.Panics(t, func() { e.DestroySystem(NewSystemKind("test.missing")) })
}

func TestSingletonComponentKind(t *testing.T) {
	e := newTestEntity("e")
	a := newStub("a")
	a.kind, a.single = kindUnique, true
	b := newStub("b")
	b.kind, b.single = kindUnique, true

	e.AddComponent(a)
	assert.Panics(t, func() { e.AddComponent(b) })

	// non-singletons of the same kind are fine
	e.AddComponent(newStub("c"))
	e.AddComponent(newStub("d"))
	assert.Equal(t, 3, e.ComponentCount())
}

func TestPreconditionViolationsPanic(t *testing.T) {
	ctx := newFakeContext()
	e := newTestEntity("e")

	assert.Panics(t, func() { e.Activate(ctx) }, "activate while unloaded")
	assert.Panics(t, func() { e.UpdateLoadingAndEntityState(ctx) }, "update while unloaded")

	e.LoadComponents(ctx)
	assert.Panics(t, func() { e.LoadComponents(ctx) }, "double load")

	c := newStub("c")
	e.AddComponent(c)
	assert.Panics(t, func() { e.AddComponent(c) }, "same component twice")
}

func TestSystemUpdateOrdering(t *testing.T) {
	ctx := newFakeContext()
	e := newTestEntity("e")
	var ran []SystemKind

	a := newRecordingSystem("test.a", Priorities(At(StagePhysics, 5)), &ran)
	b := newRecordingSystem("test.b", Priorities(At(StagePhysics, 1)), &ran)
	c := newRecordingSystem("test.c", Priorities(At(StagePhysics, 5), At(StageFrameEnd, 0)), &ran)
	d := newRecordingSystem("test.d", Priorities(At(StagePhysics, 3)), &ran)
	for _, s := range []System{a, b, c, d} {
		require.NoError(t, e.CreateSystem(s))
	}

	loadAndActivate(t, e, ctx)

	e.UpdateSystems(UpdateContext{Stage: StagePhysics})
	assert.Equal(t, []SystemKind{a.Kind(), c.Kind(), d.Kind(), b.Kind()}, ran)

	ran = nil
	e.UpdateSystems(UpdateContext{Stage: StageFrameEnd})
	assert.Equal(t, []SystemKind{c.Kind()}, ran)

	assert.Empty(t, e.SystemUpdateList(StageFrameStart))
}

func TestActivateDeactivateRoundTrip(t *testing.T) {
	ctx := newFakeContext()
	e := newTestEntity("e")
	c := newStub("c")
	s := newRecordingSystem("test.sys", Priorities(At(StagePrePhysics, 0)), nil)
	e.AddComponent(c)
	require.NoError(t, e.CreateSystem(s))

	loadAndActivate(t, e, ctx)
	assert.True(t, c.IsRegisteredWithLocalSystems())
	assert.True(t, c.IsRegisteredWithWorldSystems())
	assert.Equal(t, 1, s.registered[c.ID()])
	assert.Equal(t, 1, ctx.worldRegistered[c.ID()])
	assert.Equal(t, []*Entity{e}, ctx.updating)
	assert.Len(t, e.SystemUpdateList(StagePrePhysics), 1)

	e.Deactivate(ctx)
	assert.Equal(t, EntityLoaded, e.Status())
	assert.False(t, c.IsRegisteredWithLocalSystems())
	assert.False(t, c.IsRegisteredWithWorldSystems())
	assert.Equal(t, 1, s.unregistered[c.ID()])
	assert.Equal(t, 1, ctx.worldUnregistered[c.ID()])
	assert.Empty(t, ctx.updating)
	for _, stage := range Stages() {
		assert.Empty(t, e.SystemUpdateList(stage), stage.String())
	}
	assert.Equal(t, ComponentInitialized, c.Status())

	e.Activate(ctx)
	assert.Equal(t, 2, s.registered[c.ID()])
}

func TestDeferredDestroyUnregistersOnce(t *testing.T) {
	ctx := newFakeContext()
	e := newTestEntity("e")
	c := newStub("doomed")
	keep := newStub("keep")
	s := newRecordingSystem("test.sys", Priorities(At(StagePhysics, 0)), nil)
	e.AddComponent(c)
	e.AddComponent(keep)
	require.NoError(t, e.CreateSystem(s))
	loadAndActivate(t, e, ctx)

	e.DestroyComponent(c.ID())
	e.DestroyComponent(c.ID())
	assert.NotNil(t, e.FindComponent(c.ID()))
	assert.Len(t, e.PendingActions(), 1)

	require.True(t, e.UpdateLoadingAndEntityState(ctx))
	assert.Nil(t, e.FindComponent(c.ID()))
	assert.Equal(t, 1, s.unregistered[c.ID()])
	assert.Equal(t, 1, ctx.worldUnregistered[c.ID()])
	assert.Zero(t, s.unregistered[keep.ID()])
	assert.Equal(t, ComponentUnloaded, c.Status())
	assert.Equal(t, 1, c.shutdowns)
	assert.Equal(t, 1, c.unloads)
}

func TestComponentAddedWhileActivatedIsRegistered(t *testing.T) {
	ctx := newFakeContext()
	e := newTestEntity("e")
	s := newRecordingSystem("test.sys", Priorities(At(StagePhysics, 0)), nil)
	require.NoError(t, e.CreateSystem(s))
	loadAndActivate(t, e, ctx)

	c := newStub("late")
	e.AddComponent(c)
	require.True(t, e.UpdateLoadingAndEntityState(ctx))
	assert.Equal(t, 1, s.registered[c.ID()])
	assert.Equal(t, 1, ctx.worldRegistered[c.ID()])
}

func TestSystemCreatedWhileActivatedRefreshesUpdate(t *testing.T) {
	ctx := newFakeContext()
	e := newTestEntity("e")
	c := newStub("c")
	e.AddComponent(c)
	loadAndActivate(t, e, ctx)
	require.Equal(t, 1, ctx.updateRegisters)

	s := newRecordingSystem("test.late", Priorities(At(StageFrameStart, 0)), nil)
	require.NoError(t, e.CreateSystem(s))
	require.True(t, e.UpdateLoadingAndEntityState(ctx))

	assert.Equal(t, 1, s.registered[c.ID()])
	assert.Len(t, e.SystemUpdateList(StageFrameStart), 1)
	assert.Equal(t, 2, ctx.updateRegisters)
	assert.Equal(t, []*Entity{e}, ctx.updating)

	e.DestroySystem(s.Kind())
	require.True(t, e.UpdateLoadingAndEntityState(ctx))
	assert.Equal(t, 1, s.unregistered[c.ID()])
	assert.Empty(t, e.SystemUpdateList(StageFrameStart))
}

func TestObserverNotifiedOnEnqueue(t *testing.T) {
	var notified []*Entity
	e := NewEntity("e", WithLogger(log.NewNop()), WithStateObserver(StateObserverFunc(func(e *Entity) {
		notified = append(notified, e)
	})))
	e.LoadComponents(newFakeContext())

	e.AddComponent(newStub("c"))
	assert.Equal(t, []*Entity{e}, notified)
}

func componentNames(e *Entity) []string {
	var out []string
	for _, c := range e.Components() {
		out = append(out, c.Name())
	}
	return out
}

func TestUnloadAppliesQueuedActionsInOrder(t *testing.T) {
	ctx := newFakeContext()
	e := newTestEntity("e")
	keep := newStub("keep")
	doomed := newStub("doomed")
	e.AddComponent(keep)
	e.AddComponent(doomed)
	loadAndActivate(t, e, ctx)

	first := newStub("first")
	s := newRecordingSystem("test.late", Priorities(At(StagePhysics, 0)), nil)
	e.AddComponent(first)
	e.DestroyComponent(doomed.ID())
	require.NoError(t, e.CreateSystem(s))
	e.ReloadComponent(keep.ID())
	require.Len(t, e.PendingActions(), 4)

	e.Deactivate(ctx)
	e.UnloadComponents(ctx)
	assert.False(t, e.HasPendingActions())
	assert.Equal(t, []string{"keep", "first"}, componentNames(e))
	assert.NotNil(t, e.FindSystem(s.Kind()))
	assert.Equal(t, 1, doomed.unloads)
	assert.Equal(t, 1, keep.loads)
	assert.Equal(t, ComponentUnloaded, first.Status())

	// a later immediate add lands after the flushed ones
	e.AddComponent(newStub("second"))
	assert.Equal(t, []string{"keep", "first", "second"}, componentNames(e))
}

func TestAddAssignsMissingComponentID(t *testing.T) {
	bare := func(name string) *stubComponent {
		return &stubComponent{ComponentBase: ComponentBase{name: name}, result: LoadSucceeded, kind: kindStub}
	}

	e := newTestEntity("e")
	now := bare("now")
	require.False(t, now.ID().IsValid())
	e.AddComponent(now)
	require.True(t, now.ID().IsValid())
	assert.Same(t, now, e.FindComponent(now.ID()))

	// a queued add carries its id before the queue is drained
	ctx := newFakeContext()
	e.LoadComponents(ctx)
	later := bare("later")
	e.AddComponent(later)
	require.True(t, later.ID().IsValid())
	assert.Nil(t, e.FindComponent(later.ID()))

	id := later.ID()
	e.UpdateLoadingAndEntityState(ctx)
	assert.Equal(t, id, later.ID())
	assert.Same(t, later, e.FindComponent(id))
}
