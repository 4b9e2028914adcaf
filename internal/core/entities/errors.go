package entities

import (
	"errors"
	"fmt"
)

var (
	ErrDuplicateSystem = errors.New("entity already has a system of this kind")
	ErrSystemNotFound  = errors.New("entity has no system of this kind")
	ErrSingletonExists = errors.New("entity already has a component of this singleton kind")
)

// mustf panics when an internal precondition does not hold. These are
// programmer errors and are not meant to be recovered from.
func mustf(cond bool, format string, args ...any) {
	if !cond {
		panic(fmt.Sprintf("entities: "+format, args...))
	}
}
