package script

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeusync/engine/internal/core/components"
	"github.com/zeusync/engine/internal/core/entities"
	"github.com/zeusync/engine/internal/core/observability/log"
	"github.com/zeusync/engine/internal/core/resource"
	"github.com/zeusync/engine/internal/core/typeregistry"
	"github.com/zeusync/engine/internal/core/world"
)

const mover = `
local frames = 0

function on_start()
  engine.log("starting " .. entity.name())
end

function on_update(dt)
  frames = frames + 1
  entity.move(dt, 0, 0)
  if frames == 2 then
    assert(entity.add_component("tag", "tags", { tags = { "spawned" } }))
    assert(entity.destroy_component("lamp"))
    assert(not entity.destroy_component("nothing"))
  end
end
`

func newRegistry(t *testing.T) *typeregistry.Registry {
	t.Helper()
	reg := typeregistry.New()
	require.NoError(t, components.Register(reg))
	require.NoError(t, Register(reg, log.NewNop()))
	return reg
}

func newScriptedEntity(t *testing.T, reg *typeregistry.Registry, script *Component, extra ...entities.Component) (*entities.Entity, *System) {
	t.Helper()
	e := entities.NewEntity("scripted", entities.WithLogger(log.NewNop()))
	for _, c := range extra {
		e.AddComponent(c)
	}
	e.AddComponent(script)
	sys, err := reg.CreateSystem(TypeSystem, nil)
	require.NoError(t, err)
	require.NoError(t, e.CreateSystem(sys))
	return e, sys.(*System)
}

func newWorld(t *testing.T, loader *resource.Loader) *world.World {
	t.Helper()
	opts := []world.Option{world.WithLogger(log.NewNop())}
	if loader != nil {
		opts = append(opts, world.WithResources(loader))
	}
	w := world.New(opts...)
	require.NoError(t, w.Initialize())
	return w
}

func TestScriptMutatesEntityThroughDeferredQueue(t *testing.T) {
	reg := newRegistry(t)
	w := newWorld(t, nil)

	body := components.NewLightComponent("body")
	lamp := components.NewLightComponent("lamp")
	script := NewComponent("brain")
	script.Source = mover
	e, sys := newScriptedEntity(t, reg, script, body, lamp)
	w.PersistentMap().AddEntity(e)

	for i := 0; i < 2; i++ {
		ok, err := w.Update(0.5)
		require.NoError(t, err)
		require.True(t, ok)
	}
	require.Equal(t, 1, sys.Running())
	assert.InDelta(t, 1.0, body.WorldPosition().X(), 1e-9)
	// requested during frame 2, applied on frame 3's loading pass
	assert.NotNil(t, e.FindComponentByName("lamp"))
	assert.Len(t, e.PendingActions(), 2)

	ok, err := w.Update(0.5)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Nil(t, e.FindComponentByName("lamp"))
	assert.True(t, components.EntityHasTag(e, "spawned"))
	assert.InDelta(t, 1.5, body.WorldPosition().X(), 1e-9)
}

func TestScriptFromResource(t *testing.T) {
	loader := resource.NewLoader(resource.MapSource(map[string][]byte{
		"scripts/spin.lua": []byte(`function on_update(dt) entity.rotate(0, 90 * dt, 0) end`),
	}), 1, log.NewNop())
	t.Cleanup(func() { _ = loader.Close() })

	reg := newRegistry(t)
	w := newWorld(t, loader)

	c, err := reg.CreateComponent(TypeComponent, "spin", typeregistry.MapParams{"script": "scripts/spin.lua"})
	require.NoError(t, err)
	script := c.(*Component)
	e, sys := newScriptedEntity(t, reg, script, components.NewLightComponent("body"))
	w.PersistentMap().AddEntity(e)

	require.Eventually(t, func() bool {
		ok, err := w.Update(1)
		return err == nil && ok
	}, time.Second, time.Millisecond)
	assert.Equal(t, entities.ComponentInitialized, script.Status())
	assert.Equal(t, 1, sys.Running())
	assert.NotEqual(t, 1.0, e.RootSpatialComponent().LocalTransform().Rotation.W)
}

const doubleTag = `
function on_start()
  assert(entity.add_component("tag", "first", { tags = { "a" } }))
  local ok, err = entity.add_component("tag", "second", { tags = { "b" } })
  assert(not ok, "second tag accepted")
  assert(string.find(err, "singleton"), err)
end
`

func TestScriptSingletonClashIsReturned(t *testing.T) {
	reg := newRegistry(t)
	w := newWorld(t, nil)

	script := NewComponent("tagger")
	script.Source = doubleTag
	e, sys := newScriptedEntity(t, reg, script)
	w.PersistentMap().AddEntity(e)

	for i := 0; i < 3; i++ {
		ok, err := w.Update(0.1)
		require.NoError(t, err)
		require.True(t, ok)
	}
	assert.Equal(t, 1, sys.Running())
	assert.True(t, components.EntityHasTag(e, "a"))
	assert.Nil(t, e.FindComponentByName("second"))
}

func TestBrokenScripts(t *testing.T) {
	reg := newRegistry(t)
	w := newWorld(t, nil)

	syntax := NewComponent("syntax")
	syntax.Source = "function on_update(dt"
	runtime := NewComponent("runtime")
	runtime.Source = "function on_update(dt) error('boom') end"
	empty := NewComponent("empty")

	e, sys := newScriptedEntity(t, reg, runtime, syntax, empty)
	w.PersistentMap().AddEntity(e)

	ok, err := w.Update(0.1)
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, entities.ComponentLoadingFailed, syntax.Status())
	assert.Error(t, syntax.LoadErr())
	assert.ErrorIs(t, empty.LoadErr(), ErrNoSource)
	assert.Equal(t, entities.ComponentInitialized, runtime.Status())
	assert.Zero(t, sys.Running())
}

func TestToGo(t *testing.T) {
	L := newState()
	defer L.Close()
	require.NoError(t, L.DoString(`value = { name = "x", list = { 1, 2, 3 }, flag = true }`))

	got := toGo(L.GetGlobal("value"))
	assert.Equal(t, map[string]any{
		"name": "x",
		"list": []any{1.0, 2.0, 3.0},
		"flag": true,
	}, got)
}
