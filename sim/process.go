package sim

// ProcessState tags where an agent's state machine currently is.
// The tag plus the resumption payload on Process replace the implicit
// "where was I" of a stackful coroutine.
type ProcessState string

const (
	StateIdle          ProcessState = "idle"
	StateMoving        ProcessState = "moving"
	StateWaiting       ProcessState = "waiting"
	StateExecutingStep ProcessState = "executing-step"
	StateDone          ProcessState = "done"
)

// OutcomeKind discriminates how a suspension ended.
type OutcomeKind string

const (
	// OutcomeStart is the first activation after introduction.
	OutcomeStart OutcomeKind = "start"
	// OutcomeElapsed means the timed delay completed normally.
	OutcomeElapsed OutcomeKind = "elapsed"
	// OutcomeGranted means a resource acquisition succeeded; Grant is set.
	OutcomeGranted OutcomeKind = "granted"
	// OutcomeDenied means a resource wait was withdrawn at its deadline.
	OutcomeDenied OutcomeKind = "denied"
	// OutcomeSuperseded means the agent's plan was revoked mid-suspension.
	OutcomeSuperseded OutcomeKind = "superseded"
	// OutcomeSignal is a directed wake-up from another process,
	// e.g. a rider resumed by the vehicle serving its pickup.
	OutcomeSignal OutcomeKind = "signal"
)

// Outcome is the tagged result delivered to Resume. Failure outcomes are
// ordinary values here: each agent defines a recovery transition for them,
// they are never propagated as errors to the run loop.
type Outcome struct {
	Kind  OutcomeKind
	Grant *Grant // set for OutcomeGranted
}

// Agent is the contract every simulated entity implements on top of the
// scheduler and resource primitives. Resume is the single entry point of the
// agent's state machine; it runs to the next suspension and returns.
type Agent interface {
	ID() string
	Process() *Process
	Resume(sim *Simulator, out Outcome)
}

// Process is one agent's execution context: identity, state tag, the pending
// wake-up if suspended, held resource grants, and the committed plan. The
// kernel reaches agents only through this record.
type Process struct {
	ID    string
	State ProcessState

	// pending is the outstanding timer or wake-up, cancelled on termination
	// and on plan interruption of a long suspension.
	pending *EventHandle

	// ticket is the outstanding queued resource request, if any.
	ticket *Ticket

	// grants are the reservation tokens currently held.
	grants []*Grant

	// Plan is the committed action sequence, nil for planless agents.
	Plan *Plan

	// nextPlan holds a replacement pushed by the dispatcher until the agent
	// reaches its next resume boundary.
	nextPlan *Plan
}

// NewProcess creates a process record in the idle state.
func NewProcess(id string) *Process {
	return &Process{ID: id, State: StateIdle}
}

// Holds reports the total amount currently granted to this process.
func (p *Process) Holds() int {
	total := 0
	for _, g := range p.grants {
		total += g.amount
	}
	return total
}

func (p *Process) addGrant(g *Grant) {
	p.grants = append(p.grants, g)
}

func (p *Process) dropGrant(g *Grant) {
	for i, held := range p.grants {
		if held == g {
			p.grants = append(p.grants[:i], p.grants[i+1:]...)
			return
		}
	}
}
