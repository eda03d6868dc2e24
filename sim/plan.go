package sim

// StepKind is the action type of a plan step.
type StepKind string

const (
	// StepMove drives to Location with no service obligation.
	StepMove StepKind = "move"
	// StepPickup boards the rider of RequestID at Location.
	StepPickup StepKind = "pickup"
	// StepDropoff alights the rider of RequestID at Location.
	StepDropoff StepKind = "dropoff"
	// StepWait holds position until Earliest.
	StepWait StepKind = "wait"
	// StepReposition relocates idle capacity to Location.
	StepReposition StepKind = "reposition"
)

// Step is one committed future action in a plan.
type Step struct {
	Kind      StepKind
	Location  int
	Earliest  int64
	Latest    int64
	RequestID string
}

// Plan is the ordered sequence of actions an agent has committed to.
// It is owned exclusively by the executing agent except for the supersede
// flag, which the dispatcher sets through ReplacePlan; the agent observes
// the flag only at suspension-resume boundaries.
type Plan struct {
	Steps      []Step
	cursor     int
	superseded bool
}

// NewPlan creates a plan over the given steps.
func NewPlan(steps []Step) *Plan {
	return &Plan{Steps: steps}
}

// Current returns the step under execution, or false when exhausted.
func (p *Plan) Current() (Step, bool) {
	if p == nil || p.cursor >= len(p.Steps) {
		return Step{}, false
	}
	return p.Steps[p.cursor], true
}

// Advance commits the current step and moves to the next.
func (p *Plan) Advance() {
	if p.cursor < len(p.Steps) {
		p.cursor++
	}
}

// Remaining returns the number of uncommitted steps.
func (p *Plan) Remaining() int {
	if p == nil {
		return 0
	}
	return len(p.Steps) - p.cursor
}

// Superseded reports whether the dispatcher revoked this plan.
func (p *Plan) Superseded() bool {
	return p != nil && p.superseded
}

// ReplacePlan atomically swaps in a new plan for the agent. The old plan is
// flagged superseded and the replacement stashed on the process; the agent
// adopts it at its next suspension-resume boundary. An agent in a long
// suspension (idle, dwelling, waiting on a resource) is woken immediately;
// a moving agent first completes the leg it has already departed on.
func (s *Simulator) ReplacePlan(ag Agent, newPlan *Plan) {
	proc := ag.Process()
	if proc.State == StateDone {
		return
	}
	if proc.Plan != nil {
		proc.Plan.superseded = true
	}
	proc.nextPlan = newPlan
	if proc.State == StateMoving {
		// The arrival wake-up is already scheduled; the flag is observed
		// there. A departed leg cannot be re-routed before its end node.
		return
	}
	s.cancelPending(proc)
	if proc.ticket != nil {
		proc.ticket.resource.Cancel(proc.ticket)
		proc.ticket = nil
	}
	s.WakeAt(s.Clock, ag, Outcome{Kind: OutcomeSuperseded})
}

// adoptReplacement installs a stashed replacement plan, if any. Returns true
// when the active plan changed.
func (p *Process) adoptReplacement() bool {
	if p.nextPlan != nil {
		p.Plan = p.nextPlan
		p.nextPlan = nil
		return true
	}
	if p.Plan.Superseded() {
		p.Plan = nil
		return true
	}
	return false
}
