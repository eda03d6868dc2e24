package sim

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/mobility-sim/mobility-sim/sim/trace"
)

// Simulator owns all shared simulation state: the clock, the event queue,
// the agent registry, the routing oracle and the trace collector. It is
// passed explicitly to every component so that several independent
// simulations can run in one process.
type Simulator struct {
	Clock   int64
	Horizon int64

	events  *EventHeap
	nextSeq uint64

	agents map[string]Agent
	// order keeps registration order for deterministic iteration.
	order []string

	// Planner is the shortest-path oracle, synchronous and non-suspending
	// from the kernel's viewpoint.
	Planner RoutePlanner

	RNG   *PartitionedRNG
	Trace *trace.SimulationTrace

	// Requests indexes every trip request ever submitted, by ID.
	Requests     map[string]*TripRequest
	requestOrder []string
}

// NewSimulator creates a simulator with the given horizon, routing oracle
// and master seed.
func NewSimulator(horizon int64, planner RoutePlanner, seed int64) *Simulator {
	return &Simulator{
		Horizon:  horizon,
		events:   NewEventHeap(),
		agents:   make(map[string]Agent),
		Planner:  planner,
		RNG:      NewPartitionedRNG(seed),
		Trace:    trace.NewSimulationTrace(trace.Config{Level: trace.LevelTransitions}),
		Requests: make(map[string]*TripRequest),
	}
}

// Schedule adds an event to the queue with the next insertion sequence and
// returns its cancellation handle. Scheduling in the past panics: it means a
// kernel bug, and continuing would corrupt the timeline.
func (s *Simulator) Schedule(e Event) *EventHandle {
	if e.Timestamp() < s.Clock {
		panic(fmt.Sprintf("sim: scheduling event at %d before clock %d", e.Timestamp(), s.Clock))
	}
	return s.events.Schedule(e)
}

// newBase stamps an event with its trigger time and insertion sequence.
func (s *Simulator) newBase(at int64) BaseEvent {
	s.nextSeq++
	return BaseEvent{timestamp: at, seq: s.nextSeq}
}

// WakeAt schedules a wake-up for the agent at an absolute time and records
// it as the agent's pending suspension.
func (s *Simulator) WakeAt(at int64, ag Agent, out Outcome) *EventHandle {
	h := s.Schedule(&WakeupEvent{BaseEvent: s.newBase(at), Agent: ag, Outcome: out})
	ag.Process().pending = h
	return h
}

// Delay suspends the agent for the given duration. Negative durations panic.
func (s *Simulator) Delay(d int64, ag Agent) *EventHandle {
	if d < 0 {
		panic(fmt.Sprintf("sim: negative delay %d for %s", d, ag.ID()))
	}
	return s.WakeAt(s.Clock+d, ag, Outcome{Kind: OutcomeElapsed})
}

// Introduce schedules the agent's activation at the given origin time.
func (s *Simulator) Introduce(at int64, ag Agent) {
	s.Schedule(&IntroductionEvent{BaseEvent: s.newBase(at), Agent: ag})
}

func (s *Simulator) register(ag Agent) {
	id := ag.ID()
	if _, dup := s.agents[id]; dup {
		panic(fmt.Sprintf("sim: duplicate agent id %q", id))
	}
	s.agents[id] = ag
	s.order = append(s.order, id)
}

// GetAgent looks an agent up by identity. Returns nil before introduction.
func (s *Simulator) GetAgent(id string) Agent {
	return s.agents[id]
}

// AgentIDs returns all introduced agent IDs in introduction order.
func (s *Simulator) AgentIDs() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// SubmitRequest registers a trip request with the simulation.
func (s *Simulator) SubmitRequest(req *TripRequest) {
	if _, dup := s.Requests[req.ID]; dup {
		panic(fmt.Sprintf("sim: duplicate request id %q", req.ID))
	}
	s.Requests[req.ID] = req
	s.requestOrder = append(s.requestOrder, req.ID)
	s.Trace.RecordRequestStatus(trace.RequestStatusRecord{
		Clock: s.Clock, RequestID: req.ID, Status: string(req.Status),
		Direct: req.DirectTravelTime,
	})
}

// RequestIDs returns all request IDs in submission order.
func (s *Simulator) RequestIDs() []string {
	out := make([]string, len(s.requestOrder))
	copy(out, s.requestOrder)
	return out
}

// SignalAgent delivers an immediate directed notification, cancelling any
// timer the target armed: the signal replaces whatever the agent was waiting
// for. No-op on finished agents.
func (s *Simulator) SignalAgent(ag Agent) {
	proc := ag.Process()
	if proc.State == StateDone {
		return
	}
	s.cancelPending(proc)
	s.WakeAt(s.Clock, ag, Outcome{Kind: OutcomeSignal})
}

// cancelPending discards the process's outstanding wake-up. A wake-up that
// already carries a granted reservation cannot be dropped silently: the grant
// is registered on the resource, so it is released here and the queue drains
// to the next waiter.
func (s *Simulator) cancelPending(proc *Process) {
	if proc.pending == nil {
		return
	}
	if w, ok := proc.pending.event.(*WakeupEvent); ok && proc.pending.Pending() && w.Outcome.Grant != nil {
		g := w.Outcome.Grant
		g.resource.Release(s, g)
	}
	proc.pending.Cancel()
	proc.pending = nil
}

// Terminate ends an agent's process: cancels its outstanding timer and
// queued resource request, releases every grant it still holds, and marks
// it done. Stale wake-ups for the agent are discarded by the run loop.
func (s *Simulator) Terminate(ag Agent) {
	proc := ag.Process()
	if proc.State == StateDone {
		return
	}
	if proc.pending != nil {
		proc.pending.Cancel()
		proc.pending = nil
	}
	if proc.ticket != nil {
		proc.ticket.resource.Cancel(proc.ticket)
		proc.ticket = nil
	}
	for len(proc.grants) > 0 {
		g := proc.grants[0]
		g.resource.Release(s, g)
	}
	proc.State = StateDone
	logrus.Debugf("[t=%07d] %s terminated", s.Clock, ag.ID())
}

// Run executes the event loop until the queue drains or the horizon passes.
// Equal-timestamp events fire in submission order; the clock never moves
// backwards — a regression panics because it indicates a corrupted queue.
func (s *Simulator) Run() {
	for {
		ev := s.events.PopNext()
		if ev == nil {
			break
		}
		if ev.Timestamp() > s.Horizon {
			break
		}
		if ev.Timestamp() < s.Clock {
			panic(fmt.Sprintf("sim: clock went backwards: %d < %d", ev.Timestamp(), s.Clock))
		}
		s.Clock = ev.Timestamp()
		logrus.Debugf("[t=%07d] %T", s.Clock, ev)
		ev.Execute(s)
	}
	logrus.Infof("[t=%07d] simulation ended", s.Clock)
}
