package entities

type ComponentStatus uint8

const (
	ComponentUnloaded ComponentStatus = iota
	ComponentLoading
	ComponentLoaded
	ComponentLoadingFailed
	ComponentInitialized
)

func (s ComponentStatus) String() string {
	switch s {
	case ComponentUnloaded:
		return "unloaded"
	case ComponentLoading:
		return "loading"
	case ComponentLoaded:
		return "loaded"
	case ComponentLoadingFailed:
		return "loading_failed"
	case ComponentInitialized:
		return "initialized"
	default:
		return "unknown"
	}
}

type EntityStatus uint8

const (
	EntityUnloaded EntityStatus = iota
	EntityLoaded
	EntityActivated
)

func (s EntityStatus) String() string {
	switch s {
	case EntityUnloaded:
		return "unloaded"
	case EntityLoaded:
		return "loaded"
	case EntityActivated:
		return "activated"
	default:
		return "unknown"
	}
}

// LoadResult is what a component reports when polled during loading.
type LoadResult uint8

const (
	LoadPending LoadResult = iota
	LoadSucceeded
	LoadFailed
)
