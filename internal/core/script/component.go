package script

import (
	"errors"
	"fmt"
	"strings"

	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"
	"github.com/zeusync/engine/internal/core/entities"
	"github.com/zeusync/engine/internal/core/resource"
)

var KindScript = entities.NewComponentKind("script.component")

var ErrNoSource = errors.New("script has neither source nor path")

// Component holds one compiled Lua chunk. Source is used verbatim when set;
// otherwise the file at Script is requested from the resource loader.
type Component struct {
	entities.ComponentBase

	Script string `yaml:"script"`
	Source string `yaml:"source"`

	handle    *resource.Resource
	resources entities.Resources
	proto     *lua.FunctionProto
	loadErr   error
}

func NewComponent(name string) *Component {
	return &Component{ComponentBase: entities.NewComponentBase(name)}
}

func (c *Component) Kind() entities.ComponentKind { return KindScript }

func (c *Component) Proto() *lua.FunctionProto { return c.proto }
func (c *Component) LoadErr() error            { return c.loadErr }

func (c *Component) Load(ctx entities.LoadingContext) {
	c.loadErr = nil
	if c.Source != "" {
		return
	}
	if c.Script == "" {
		c.loadErr = ErrNoSource
		return
	}
	c.resources = ctx.Resources()
	if c.resources == nil {
		c.loadErr = fmt.Errorf("load script %s: no resource loader", c.Script)
		return
	}
	c.handle, c.loadErr = c.resources.Request(c.Script)
}

func (c *Component) PollLoading() entities.LoadResult {
	if c.loadErr != nil {
		return entities.LoadFailed
	}

	src := c.Source
	if src == "" {
		switch {
		case c.handle.HasFailedLoading():
			c.loadErr = c.handle.Err()
			return entities.LoadFailed
		case !c.handle.IsLoaded():
			return entities.LoadPending
		}
		src = string(c.handle.Data())
	}

	proto, err := compile(src, c.chunkName())
	if err != nil {
		c.loadErr = err
		return entities.LoadFailed
	}
	c.proto = proto
	return entities.LoadSucceeded
}

func (c *Component) Unload(entities.LoadingContext) {
	if c.handle != nil && c.resources != nil {
		c.resources.Release(c.handle)
	}
	c.handle, c.resources, c.proto = nil, nil, nil
}

func (c *Component) chunkName() string {
	if c.Script != "" {
		return c.Script
	}
	return c.Name()
}

func compile(src, name string) (*lua.FunctionProto, error) {
	chunk, err := parse.Parse(strings.NewReader(src), name)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	proto, err := lua.Compile(chunk, name)
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", name, err)
	}
	return proto, nil
}
