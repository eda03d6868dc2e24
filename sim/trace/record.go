// Package trace provides state-transition recording for simulation runs.
// It stores pure data types and has no dependency on sim/ — the output
// collaborator persists these records independently of the kernel.
package trace

// ResourceOutcome tags what happened to a resource interaction.
type ResourceOutcome string

const (
	ResourceGranted  ResourceOutcome = "granted"
	ResourceDenied   ResourceOutcome = "denied"
	ResourceTimedOut ResourceOutcome = "timed-out"
	ResourceReleased ResourceOutcome = "released"
)

// PositionRecord captures an agent's position change at a leg boundary.
type PositionRecord struct {
	Clock    int64
	AgentID  string
	From     int
	To       int
	Mode     string
	Duration int64
}

// ResourceRecord captures a grant, denial, timeout or release on a
// capacity-bounded resource.
type ResourceRecord struct {
	Clock    int64
	AgentID  string
	Resource string
	Amount   int
	Outcome  ResourceOutcome
}

// PlanStepRecord captures a committed plan step (pickup, dropoff, move,
// reposition) executed by a vehicle.
type PlanStepRecord struct {
	Clock     int64
	AgentID   string
	Kind      string
	RequestID string
	Location  int
}

// RequestStatusRecord captures a trip request status transition. Direct is
// the no-detour ride duration, carried on the submission record only.
type RequestStatusRecord struct {
	Clock     int64
	RequestID string
	Status    string
	Reason    string
	Direct    int64
}
