package trace

// Level controls how much the collector records.
type Level string

const (
	// LevelNone disables recording (zero overhead).
	LevelNone Level = "none"
	// LevelTransitions records every state transition.
	LevelTransitions Level = "transitions"
)

var validLevels = map[Level]bool{
	LevelNone:        true,
	LevelTransitions: true,
	"":               true, // empty defaults to transitions
}

// IsValidLevel reports whether the given level string is recognized.
func IsValidLevel(level string) bool {
	return validLevels[Level(level)]
}

// Config controls trace collection behavior.
type Config struct {
	Level Level
}

// SimulationTrace collects timestamped state-transition records during one
// simulation run.
type SimulationTrace struct {
	Config    Config
	Positions []PositionRecord
	Resources []ResourceRecord
	PlanSteps []PlanStepRecord
	Statuses  []RequestStatusRecord
}

// NewSimulationTrace creates a collector ready for recording.
func NewSimulationTrace(config Config) *SimulationTrace {
	if config.Level == "" {
		config.Level = LevelTransitions
	}
	return &SimulationTrace{Config: config}
}

func (st *SimulationTrace) enabled() bool {
	return st.Config.Level != LevelNone
}

// RecordPosition appends a position-change record.
func (st *SimulationTrace) RecordPosition(r PositionRecord) {
	if st.enabled() {
		st.Positions = append(st.Positions, r)
	}
}

// RecordResource appends a resource-interaction record.
func (st *SimulationTrace) RecordResource(r ResourceRecord) {
	if st.enabled() {
		st.Resources = append(st.Resources, r)
	}
}

// RecordPlanStep appends a committed plan-step record.
func (st *SimulationTrace) RecordPlanStep(r PlanStepRecord) {
	if st.enabled() {
		st.PlanSteps = append(st.PlanSteps, r)
	}
}

// RecordRequestStatus appends a request status transition record.
func (st *SimulationTrace) RecordRequestStatus(r RequestStatusRecord) {
	if st.enabled() {
		st.Statuses = append(st.Statuses, r)
	}
}
