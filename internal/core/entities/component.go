package entities

// Component is a unit of data/behaviour owned by exactly one entity.
//
// Concrete types embed ComponentBase (or SpatialComponent) and override the
// lifecycle hooks they need: Load, PollLoading, Unload, Initialize, Shutdown.
// The hooks are only ever invoked by the owning Entity; status transitions are
// performed by the entity, never by the component itself.
type Component interface {
	ID() ComponentID
	EntityID() EntityID
	Name() string
	Kind() ComponentKind
	IsSingleton() bool
	Status() ComponentStatus

	// Load starts loading. It may kick off asynchronous work that PollLoading
	// later reports on.
	Load(ctx LoadingContext)
	// PollLoading must not block.
	PollLoading() LoadResult
	Unload(ctx LoadingContext)
	Initialize()
	Shutdown()

	base() *ComponentBase
}

// ComponentBase carries identity and lifecycle state. Its hooks are no-ops and
// it reports LoadSucceeded on the first poll.
type ComponentBase struct {
	id       ComponentID
	entityID EntityID
	name     string
	status   ComponentStatus

	registeredWithLocalSystems bool
	registeredWithWorldSystems bool
}

func NewComponentBase(name string) ComponentBase {
	return ComponentBase{id: NewComponentID(), name: name}
}

func (c *ComponentBase) ID() ComponentID         { return c.id }
func (c *ComponentBase) EntityID() EntityID      { return c.entityID }
func (c *ComponentBase) Name() string            { return c.name }
func (c *ComponentBase) IsSingleton() bool       { return false }
func (c *ComponentBase) Status() ComponentStatus { return c.status }

func (c *ComponentBase) IsUnloaded() bool       { return c.status == ComponentUnloaded }
func (c *ComponentBase) IsLoading() bool        { return c.status == ComponentLoading }
func (c *ComponentBase) IsLoaded() bool         { return c.status == ComponentLoaded }
func (c *ComponentBase) HasLoadingFailed() bool { return c.status == ComponentLoadingFailed }
func (c *ComponentBase) IsInitialized() bool    { return c.status == ComponentInitialized }

func (c *ComponentBase) IsRegisteredWithLocalSystems() bool { return c.registeredWithLocalSystems }
func (c *ComponentBase) IsRegisteredWithWorldSystems() bool { return c.registeredWithWorldSystems }

// SetName may only be called before the component is added to an entity.
func (c *ComponentBase) SetName(name string) {
	mustf(!c.entityID.IsValid(), "cannot rename component %q after it was added to an entity", c.name)
	c.name = name
}

func (c *ComponentBase) Load(LoadingContext)     {}
func (c *ComponentBase) PollLoading() LoadResult { return LoadSucceeded }
func (c *ComponentBase) Unload(LoadingContext)   {}
func (c *ComponentBase) Initialize()             {}
func (c *ComponentBase) Shutdown()               {}
func (c *ComponentBase) base() *ComponentBase    { return c }

// Lifecycle transitions. Only Entity calls these.

func loadComponent(c Component, ctx LoadingContext) {
	b := c.base()
	mustf(b.status == ComponentUnloaded, "load %q: status is %s, want unloaded", b.name, b.status)
	b.status = ComponentLoading
	c.Load(ctx)
}

// updateLoadingStatus reports whether the component reached a terminal
// loading outcome.
func updateLoadingStatus(c Component) bool {
	b := c.base()
	mustf(b.status == ComponentLoading, "poll %q: status is %s, want loading", b.name, b.status)
	switch c.PollLoading() {
	case LoadSucceeded:
		b.status = ComponentLoaded
		return true
	case LoadFailed:
		b.status = ComponentLoadingFailed
		return true
	default:
		return false
	}
}

func initializeComponent(c Component) {
	b := c.base()
	mustf(b.status == ComponentLoaded, "initialize %q: status is %s, want loaded", b.name, b.status)
	c.Initialize()
	b.status = ComponentInitialized
}

func shutdownComponent(c Component) {
	b := c.base()
	mustf(b.status == ComponentInitialized, "shutdown %q: status is %s, want initialized", b.name, b.status)
	c.Shutdown()
	b.status = ComponentLoaded
}

// unloadComponent also accepts Loading: an in-flight load is abandoned and its
// result discarded.
func unloadComponent(c Component, ctx LoadingContext) {
	b := c.base()
	mustf(b.status == ComponentLoaded || b.status == ComponentLoadingFailed || b.status == ComponentLoading,
		"unload %q: status is %s", b.name, b.status)
	c.Unload(ctx)
	b.status = ComponentUnloaded
}

// teardownComponent walks a component back to Unloaded from any state.
func teardownComponent(c Component, ctx LoadingContext) {
	b := c.base()
	if b.status == ComponentInitialized {
		shutdownComponent(c)
	}
	if b.status != ComponentUnloaded {
		unloadComponent(c, ctx)
	}
}
