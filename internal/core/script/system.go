package script

import (
	"fmt"
	"slices"

	lua "github.com/yuin/gopher-lua"
	"github.com/zeusync/engine/internal/core/entities"
	"github.com/zeusync/engine/internal/core/observability/log"
	"github.com/zeusync/engine/internal/core/typeregistry"
)

var Kind = entities.NewSystemKind("script.system")

const (
	TypeComponent = "script"
	TypeSystem    = "script"
)

// Register adds the script component and system types. Scripts create
// components through r.
func Register(r *typeregistry.Registry, logger log.Log) error {
	if err := r.RegisterComponent(TypeComponent, typeregistry.Decoded(NewComponent)); err != nil {
		return err
	}
	return r.RegisterSystem(TypeSystem, typeregistry.DecodedSystem(func() *System {
		return NewSystem(r, logger)
	}))
}

// System runs the script components of one entity. Each script gets its own
// Lua state; the chunk runs once, then on_start() is called on the first
// update and on_update(dt) on every update after that.
//
// Scripts only mutate their entity through the deferred queue, so structural
// changes they request land on the next loading pass.
type System struct {
	Priority int `yaml:"priority"`

	registry  *typeregistry.Registry
	logger    log.Log
	instances []*instance
}

func NewSystem(registry *typeregistry.Registry, logger log.Log) *System {
	if logger == nil {
		logger = log.NewNop()
	}
	return &System{Priority: 100, registry: registry, logger: logger.Named("script")}
}

func (s *System) Kind() entities.SystemKind { return Kind }

func (s *System) RequiredUpdatePriorities() entities.UpdatePriorities {
	return entities.Priorities(entities.At(entities.StagePrePhysics, s.Priority))
}

func (s *System) RegisterComponent(c entities.Component) {
	if c.Kind() != KindScript {
		return
	}
	sc, ok := c.(*Component)
	if !ok || sc.Proto() == nil {
		return
	}
	s.instances = append(s.instances, &instance{system: s, component: sc})
}

func (s *System) UnregisterComponent(c entities.Component) {
	i := slices.IndexFunc(s.instances, func(in *instance) bool { return in.component.ID() == c.ID() })
	if i < 0 {
		return
	}
	s.instances[i].close()
	s.instances = slices.Delete(s.instances, i, i+1)
}

// Running reports how many scripts are registered and not failed.
func (s *System) Running() int {
	n := 0
	for _, in := range s.instances {
		if !in.failed {
			n++
		}
	}
	return n
}

func (s *System) Update(ctx entities.UpdateContext) {
	for _, in := range slices.Clone(s.instances) {
		in.update(ctx)
	}
}

type instance struct {
	system    *System
	component *Component

	state   *lua.LState
	entity  *entities.Entity
	ctx     entities.UpdateContext
	started bool
	failed  bool
}

func (in *instance) update(ctx entities.UpdateContext) {
	if in.failed {
		return
	}
	in.entity, in.ctx = ctx.Entity, ctx

	if in.state == nil {
		if err := in.boot(); err != nil {
			in.fail(err)
			return
		}
	}
	if !in.started {
		in.started = true
		if err := in.call("on_start"); err != nil {
			in.fail(err)
			return
		}
	}
	if err := in.call("on_update", lua.LNumber(ctx.DeltaTime)); err != nil {
		in.fail(err)
	}
}

func (in *instance) boot() error {
	L := newState()
	in.state = L
	L.SetGlobal("entity", in.entityModule())
	L.SetGlobal("engine", in.engineModule())

	L.Push(L.NewFunctionFromProto(in.component.Proto()))
	if err := L.PCall(0, lua.MultRet, nil); err != nil {
		return fmt.Errorf("run %s: %w", in.component.chunkName(), err)
	}
	return nil
}

func (in *instance) call(name string, args ...lua.LValue) error {
	fn := in.state.GetGlobal(name)
	if fn.Type() != lua.LTFunction {
		return nil
	}
	if err := in.state.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}, args...); err != nil {
		return fmt.Errorf("%s in %s: %w", name, in.component.chunkName(), err)
	}
	return nil
}

func (in *instance) fail(err error) {
	in.failed = true
	in.system.logger.Error("script stopped", log.String("component", in.component.Name()), log.Error(err))
}

func (in *instance) close() {
	if in.state != nil {
		in.state.Close()
		in.state = nil
	}
}

// newState opens only the libraries scripts are allowed to use.
func newState() *lua.LState {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	for _, lib := range []struct {
		name string
		open lua.LGFunction
	}{
		{lua.LoadLibName, lua.OpenPackage},
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		L.Push(L.NewFunction(lib.open))
		L.Push(lua.LString(lib.name))
		L.Call(1, 0)
	}
	return L
}
