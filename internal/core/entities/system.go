package entities

// UpdateStage is one of the fixed, ordered per-frame phases.
type UpdateStage uint8

const (
	StageFrameStart UpdateStage = iota
	StagePrePhysics
	StagePhysics
	StagePostPhysics
	StageFrameEnd

	StageCount
)

var stageNames = [StageCount]string{"frame_start", "pre_physics", "physics", "post_physics", "frame_end"}

func (s UpdateStage) String() string {
	if s < StageCount {
		return stageNames[s]
	}
	return "unknown"
}

// Stages lists every stage in execution order.
func Stages() []UpdateStage {
	out := make([]UpdateStage, StageCount)
	for i := range out {
		out[i] = UpdateStage(i)
	}
	return out
}

// StagePriority enables a stage at a priority. Higher priorities run earlier.
type StagePriority struct {
	Stage    UpdateStage
	Priority int
}

func At(stage UpdateStage, priority int) StagePriority {
	return StagePriority{Stage: stage, Priority: priority}
}

// UpdatePriorities is the per-stage schedule a system declares at construction.
type UpdatePriorities struct {
	enabled  [StageCount]bool
	priority [StageCount]int
}

func Priorities(entries ...StagePriority) UpdatePriorities {
	var p UpdatePriorities
	for _, e := range entries {
		p = p.With(e.Stage, e.Priority)
	}
	return p
}

func (p UpdatePriorities) With(stage UpdateStage, priority int) UpdatePriorities {
	mustf(stage < StageCount, "invalid update stage %d", stage)
	p.enabled[stage] = true
	p.priority[stage] = priority
	return p
}

func (p UpdatePriorities) IsStageEnabled(stage UpdateStage) bool {
	return stage < StageCount && p.enabled[stage]
}

func (p UpdatePriorities) Priority(stage UpdateStage) int {
	if stage >= StageCount {
		return 0
	}
	return p.priority[stage]
}

func (p UpdatePriorities) IsEmpty() bool {
	for _, e := range p.enabled {
		if e {
			return false
		}
	}
	return true
}

// UpdateContext is passed to every system update. Entity is set for
// entity-local systems and nil for world systems.
type UpdateContext struct {
	Stage     UpdateStage
	DeltaTime float64
	Frame     uint64
	Entity    *Entity
}

// System is per-entity logic. Components are matched by Kind in
// RegisterComponent/UnregisterComponent; kinds the system does not consume are
// ignored.
type System interface {
	Kind() SystemKind
	RequiredUpdatePriorities() UpdatePriorities

	RegisterComponent(c Component)
	UnregisterComponent(c Component)

	Update(ctx UpdateContext)
}
