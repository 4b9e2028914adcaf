package resource

import (
	"sync/atomic"

	"github.com/zeusync/engine/internal/core/stringid"
)

// Handle is what components poll while their status is Loading.
// Implementations must never block.
type Handle interface {
	IsValid() bool
	IsLoaded() bool
	HasFailedLoading() bool
}

type State int32

const (
	StatePending State = iota
	StateLoaded
	StateFailed
	StateReleased
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateLoaded:
		return "loaded"
	case StateFailed:
		return "failed"
	case StateReleased:
		return "released"
	default:
		return "unknown"
	}
}

var _ Handle = (*Resource)(nil)

// Resource is a ref-counted, asynchronously loaded blob owned by a Loader.
type Resource struct {
	id    stringid.ID
	path  string
	state atomic.Int32

	// written by the worker before state is published
	data []byte
	err  error

	refs int // guarded by Loader.mu
}

func (r *Resource) ID() stringid.ID { return r.id }
func (r *Resource) Path() string    { return r.path }
func (r *Resource) State() State    { return State(r.state.Load()) }

func (r *Resource) IsValid() bool {
	return r != nil && r.id.IsValid() && r.State() != StateReleased
}

func (r *Resource) IsLoaded() bool {
	return r != nil && r.State() == StateLoaded
}

func (r *Resource) HasFailedLoading() bool {
	return r != nil && r.State() == StateFailed
}

// Data is only meaningful once IsLoaded reports true.
func (r *Resource) Data() []byte {
	if !r.IsLoaded() {
		return nil
	}
	return r.data
}

// Err is only meaningful once HasFailedLoading reports true.
func (r *Resource) Err() error {
	if !r.HasFailedLoading() {
		return nil
	}
	return r.err
}

func (r *Resource) complete(data []byte, err error) {
	if err != nil {
		r.err = err
		r.state.CompareAndSwap(int32(StatePending), int32(StateFailed))
		return
	}
	r.data = data
	r.state.CompareAndSwap(int32(StatePending), int32(StateLoaded))
}
