package world

import (
	"errors"
	"fmt"
)

var (
	ErrDuplicateWorldSystem = errors.New("world already has a system of this kind")
	ErrAlreadyInitialized   = errors.New("world is already initialized")
	ErrNotInitialized       = errors.New("world is not initialized")
	ErrMapNotFound          = errors.New("map not found")
	ErrPersistentMap        = errors.New("the persistent map cannot be unloaded")
)

func mustf(cond bool, format string, args ...any) {
	if !cond {
		panic(fmt.Sprintf("world: "+format, args...))
	}
}
