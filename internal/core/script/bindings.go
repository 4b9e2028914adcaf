package script

import (
	"errors"

	lua "github.com/yuin/gopher-lua"
	"github.com/zeusync/engine/internal/core/observability/log"
	"github.com/zeusync/engine/internal/core/transform"
	"github.com/zeusync/engine/internal/core/typeregistry"
)

var errNoRegistry = errors.New("no type registry")

func (in *instance) entityModule() *lua.LTable {
	L := in.state
	return L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"name": func(L *lua.LState) int {
			L.Push(lua.LString(in.entity.Name()))
			return 1
		},
		"id": func(L *lua.LState) int {
			L.Push(lua.LString(in.entity.ID().String()))
			return 1
		},
		"position": func(L *lua.LState) int {
			root := in.entity.RootSpatialComponent()
			if root == nil {
				return 0
			}
			p := root.WorldPosition()
			L.Push(lua.LNumber(p.X()))
			L.Push(lua.LNumber(p.Y()))
			L.Push(lua.LNumber(p.Z()))
			return 3
		},
		"set_position": func(L *lua.LState) int {
			if root := in.entity.RootSpatialComponent(); root != nil {
				root.SetLocalPosition(checkVec3(L, 1))
			}
			return 0
		},
		"move": func(L *lua.LState) int {
			if root := in.entity.RootSpatialComponent(); root != nil {
				root.MoveLocal(checkVec3(L, 1))
			}
			return 0
		},
		"rotate": func(L *lua.LState) int {
			if root := in.entity.RootSpatialComponent(); root != nil {
				root.RotateLocal(transform.EulerDegreesToQuat(checkVec3(L, 1)))
			}
			return 0
		},
		"has_component": func(L *lua.LState) int {
			L.Push(lua.LBool(in.entity.FindComponentByName(L.CheckString(1)) != nil))
			return 1
		},
		"add_component": func(L *lua.LState) int {
			typeName, name := L.CheckString(1), L.CheckString(2)
			params := typeregistry.MapParams{}
			if t := L.OptTable(3, nil); t != nil {
				if m, ok := toGo(t).(map[string]any); ok {
					params = m
				}
			}
			if in.system.registry == nil {
				return pushError(L, errNoRegistry)
			}
			c, err := in.system.registry.CreateComponent(typeName, name, params)
			if err != nil {
				return pushError(L, err)
			}
			if err := in.entity.CheckSingleton(c); err != nil {
				return pushError(L, err)
			}
			in.entity.AddComponent(c)
			L.Push(lua.LTrue)
			return 1
		},
		"destroy_component": func(L *lua.LState) int {
			c := in.entity.FindComponentByName(L.CheckString(1))
			if c == nil {
				L.Push(lua.LFalse)
				return 1
			}
			in.entity.DestroyComponent(c.ID())
			L.Push(lua.LTrue)
			return 1
		},
	})
}

func (in *instance) engineModule() *lua.LTable {
	L := in.state
	return L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"log": func(L *lua.LState) int {
			in.system.logger.Info(L.CheckString(1),
				log.String("component", in.component.Name()),
				log.String("entity", in.entity.Name()))
			return 0
		},
		"frame": func(L *lua.LState) int {
			L.Push(lua.LNumber(in.ctx.Frame))
			return 1
		},
		"stage": func(L *lua.LState) int {
			L.Push(lua.LString(in.ctx.Stage.String()))
			return 1
		},
	})
}

func checkVec3(L *lua.LState, n int) transform.Vec3 {
	return transform.Vec3{float64(L.CheckNumber(n)), float64(L.CheckNumber(n + 1)), float64(L.CheckNumber(n + 2))}
}

func pushError(L *lua.LState, err error) int {
	L.Push(lua.LFalse)
	L.Push(lua.LString(err.Error()))
	return 2
}

// toGo converts a Lua value into plain Go values. Tables with a sequence part
// become slices; other tables become string-keyed maps.
func toGo(v lua.LValue) any {
	switch v := v.(type) {
	case lua.LBool:
		return bool(v)
	case lua.LNumber:
		return float64(v)
	case lua.LString:
		return string(v)
	case *lua.LTable:
		if n := v.MaxN(); n > 0 {
			out := make([]any, 0, n)
			for i := 1; i <= n; i++ {
				out = append(out, toGo(v.RawGetInt(i)))
			}
			return out
		}
		out := map[string]any{}
		v.ForEach(func(k, val lua.LValue) {
			out[k.String()] = toGo(val)
		})
		return out
	default:
		return nil
	}
}
