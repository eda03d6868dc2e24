package sim

// Event is a scheduled wake-up in the simulation timeline.
// Events are created when a process schedules a delay, a timeout or a
// resumption; each is consumed exactly once and never mutated after creation.
type Event interface {
	Timestamp() int64
	Seq() uint64
	Execute(sim *Simulator)
}

// BaseEvent provides the common timestamp and insertion-sequence fields.
// The sequence is assigned by the simulator at schedule time and is the
// tie-breaker for equal timestamps, which makes replay deterministic.
type BaseEvent struct {
	timestamp int64
	seq       uint64
}

func (e *BaseEvent) Timestamp() int64 { return e.timestamp }
func (e *BaseEvent) Seq() uint64      { return e.seq }

// EventHandle allows a scheduled event to be cancelled before it fires.
// Cancelling an already-fired or already-cancelled event is a no-op.
type EventHandle struct {
	event    Event
	canceled bool
	fired    bool
}

// Cancel marks the event so the run loop discards it without executing.
func (h *EventHandle) Cancel() {
	if h == nil || h.fired {
		return
	}
	h.canceled = true
}

// Pending reports whether the event is still scheduled and live.
func (h *EventHandle) Pending() bool {
	return h != nil && !h.fired && !h.canceled
}

// WakeupEvent resumes an agent's state machine with the given outcome.
// All timed delays, resource grants, denials and supersede notifications
// are delivered through wake-ups.
type WakeupEvent struct {
	BaseEvent
	Agent   Agent
	Outcome Outcome
}

func (e *WakeupEvent) Execute(sim *Simulator) {
	proc := e.Agent.Process()
	proc.pending = nil
	if proc.State == StateDone {
		// A stale wake-up for a terminated process is discarded.
		return
	}
	e.Agent.Resume(sim, e.Outcome)
}

// IntroductionEvent activates an agent at its origin time.
// The demand input stream is replayed by scheduling one of these per agent.
type IntroductionEvent struct {
	BaseEvent
	Agent Agent
}

func (e *IntroductionEvent) Execute(sim *Simulator) {
	sim.register(e.Agent)
	e.Agent.Resume(sim, Outcome{Kind: OutcomeStart})
}

// resourceTimeoutEvent withdraws a queued resource request at its deadline
// and resumes the requester with a denied outcome.
type resourceTimeoutEvent struct {
	BaseEvent
	ticket *Ticket
}

func (e *resourceTimeoutEvent) Execute(sim *Simulator) {
	e.ticket.resource.timeout(sim, e.ticket)
}
