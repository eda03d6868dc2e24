package sim

import (
	"github.com/sirupsen/logrus"

	"github.com/mobility-sim/mobility-sim/sim/trace"
)

// Vehicle is a service vehicle executing dispatcher-issued plans: it moves
// leg by leg, dwells at stops, boards and alights riders against its seat
// resource, and docks into station slots when repositioned. All failure
// outcomes (no route, full seats, denied slot) have recovery transitions;
// none abort the run.
type Vehicle struct {
	proc *Process

	Position int
	Mode     Mode
	Seats    *Resource

	// DwellTime is the halt spent when serving a stop.
	DwellTime int64
	// DockPatience bounds how long the vehicle queues for a station slot.
	DockPatience int64

	operator *Operator

	// onboard maps request ID to the seat grant of the rider on board;
	// onboardOrder keeps boarding order for deterministic iteration.
	onboard      map[string]*Grant
	onboardOrder []string

	// leg bookkeeping while moving.
	legs       []int
	legTimes   []int64
	legArrival int64

	slotGrant *Grant
}

// NewVehicle creates an idle vehicle with the given seat capacity.
func NewVehicle(id string, position, seats int, dwell int64) *Vehicle {
	return &Vehicle{
		proc:         NewProcess(id),
		Position:     position,
		Mode:         ModeDrive,
		Seats:        NewResource(id+"/seats", seats),
		DwellTime:    dwell,
		DockPatience: 300,
		onboard:      make(map[string]*Grant),
	}
}

func (v *Vehicle) ID() string        { return v.proc.ID }
func (v *Vehicle) Process() *Process { return v.proc }

// Onboard returns the requests currently riding, in boarding order.
func (v *Vehicle) Onboard() []*TripRequest {
	out := make([]*TripRequest, 0, len(v.onboardOrder))
	if v.operator == nil {
		return out
	}
	for _, id := range v.onboardOrder {
		if req, ok := v.operator.requests[id]; ok {
			out = append(out, req)
		}
	}
	return out
}

// Snapshot captures the vehicle state the optimizer plans against: where and
// when the vehicle is next available, and whose dropoffs are still owed.
func (v *Vehicle) Snapshot() VehicleSnapshot {
	snap := VehicleSnapshot{
		ID:          v.ID(),
		Seats:       v.Seats.Capacity(),
		Position:    v.Position,
		AvailableAt: v.legArrival,
		Onboard:     v.Onboard(),
	}
	if v.proc.State == StateMoving && len(v.legs) > 0 {
		// Committed to the current leg; available at its end node.
		snap.Position = v.legs[0]
	}
	return snap
}

// Resume advances the vehicle's state machine. The tag on the process says
// where the vehicle suspended; the outcome says how the suspension ended.
func (v *Vehicle) Resume(s *Simulator, out Outcome) {
	switch v.proc.State {
	case StateIdle:
		v.continuePlan(s)
	case StateMoving:
		v.arrive(s)
	case StateExecutingStep:
		v.finishStep(s, out)
	case StateWaiting:
		v.finishDocking(s, out)
	}
}

// continuePlan is the resume boundary: adopt any replacement plan, then
// execute the current step or go idle.
func (v *Vehicle) continuePlan(s *Simulator) {
	if v.proc.Plan.Superseded() || v.proc.nextPlan != nil {
		v.proc.adoptReplacement()
	}
	step, ok := v.proc.Plan.Current()
	if !ok {
		v.becomeIdle(s)
		return
	}
	if v.Position != step.Location {
		v.startMove(s, step.Location)
		return
	}
	switch step.Kind {
	case StepMove:
		v.proc.Plan.Advance()
		v.continuePlan(s)
	case StepReposition:
		v.dock(s, step)
	case StepWait:
		wake := step.Earliest
		if wake <= s.Clock {
			v.proc.Plan.Advance()
			v.continuePlan(s)
			return
		}
		v.proc.State = StateExecutingStep
		s.WakeAt(wake, v, Outcome{Kind: OutcomeElapsed})
	case StepPickup, StepDropoff:
		// Serve no earlier than the window opens, and never without dwell.
		wake := s.Clock + v.DwellTime
		if step.Earliest > wake {
			wake = step.Earliest
		}
		v.proc.State = StateExecutingStep
		s.WakeAt(wake, v, Outcome{Kind: OutcomeElapsed})
	}
}

// startMove asks the routing oracle for a path and departs on its first leg.
// No feasible route is a recoverable outcome: the step is skipped.
func (v *Vehicle) startMove(s *Simulator, destination int) {
	route, err := s.Planner.ShortestPath(v.Position, destination, s.Clock, v.Mode)
	if err != nil {
		logrus.Warnf("[t=%07d] %s: no route %d->%d, skipping step", s.Clock, v.ID(), v.Position, destination)
		v.proc.Plan.Advance()
		v.continuePlan(s)
		return
	}
	if v.slotGrant != nil {
		// Departing frees the dock.
		v.slotGrant.resource.Release(s, v.slotGrant)
		v.slotGrant = nil
	}
	v.legs = route.Geometry[1:]
	v.legTimes = route.LegTimes
	v.nextLeg(s)
}

// nextLeg departs on the next committed leg. A leg, once departed, always
// completes: supersession is observed only at the arrival node.
func (v *Vehicle) nextLeg(s *Simulator) {
	dur := v.legTimes[0]
	v.legArrival = s.Clock + dur
	v.proc.State = StateMoving
	s.WakeAt(v.legArrival, v, Outcome{Kind: OutcomeElapsed})
}

func (v *Vehicle) arrive(s *Simulator) {
	from := v.Position
	v.Position = v.legs[0]
	dur := v.legTimes[0]
	v.legs = v.legs[1:]
	v.legTimes = v.legTimes[1:]
	s.Trace.RecordPosition(trace.PositionRecord{
		Clock: s.Clock, AgentID: v.ID(), From: from, To: v.Position,
		Mode: string(v.Mode), Duration: dur,
	})
	if v.proc.Plan.Superseded() || v.proc.nextPlan != nil {
		// Resume boundary: abandon the rest of the route here.
		v.legs = nil
		v.legTimes = nil
		v.continuePlan(s)
		return
	}
	if len(v.legs) > 0 {
		v.nextLeg(s)
		return
	}
	v.continuePlan(s)
}

// finishStep commits the current service step, unless the plan was revoked
// during the dwell — the supersede flag is checked before any side effect.
func (v *Vehicle) finishStep(s *Simulator, out Outcome) {
	if out.Kind == OutcomeSuperseded || v.proc.Plan.Superseded() || v.proc.nextPlan != nil {
		v.continuePlan(s)
		return
	}
	step, ok := v.proc.Plan.Current()
	if !ok {
		v.becomeIdle(s)
		return
	}
	switch step.Kind {
	case StepPickup:
		v.commitPickup(s, step)
	case StepDropoff:
		v.commitDropoff(s, step)
	}
	v.proc.Plan.Advance()
	v.continuePlan(s)
}

func (v *Vehicle) commitPickup(s *Simulator, step Step) {
	req := s.Requests[step.RequestID]
	if req == nil || req.Terminal() {
		// Withdrawn or rejected while we drove here; nothing to board.
		logrus.Debugf("[t=%07d] %s: pickup %s dismissed", s.Clock, v.ID(), step.RequestID)
		return
	}
	rider := s.GetAgent(req.Rider)
	if rider == nil || rider.Process().State == StateDone {
		return
	}
	seat := v.Seats.TryAcquire(s, v, 1)
	if seat == nil {
		// Capacity denial: hand the request back for re-dispatch.
		req.MarkPending(s, "vehicle full")
		return
	}
	v.onboard[req.ID] = seat
	v.onboardOrder = append(v.onboardOrder, req.ID)
	req.Boarded = true
	req.PickupTime = s.Clock
	s.Trace.RecordPlanStep(trace.PlanStepRecord{
		Clock: s.Clock, AgentID: v.ID(), Kind: string(StepPickup),
		RequestID: req.ID, Location: step.Location,
	})
	s.SignalAgent(rider)
}

func (v *Vehicle) commitDropoff(s *Simulator, step Step) {
	seat, ok := v.onboard[step.RequestID]
	if !ok {
		// Rider never boarded (or already alighted); serving twice is
		// impossible by construction.
		return
	}
	delete(v.onboard, step.RequestID)
	for i, id := range v.onboardOrder {
		if id == step.RequestID {
			v.onboardOrder = append(v.onboardOrder[:i], v.onboardOrder[i+1:]...)
			break
		}
	}
	v.Seats.Release(s, seat)
	req := s.Requests[step.RequestID]
	req.MarkServed(s)
	s.Trace.RecordPlanStep(trace.PlanStepRecord{
		Clock: s.Clock, AgentID: v.ID(), Kind: string(StepDropoff),
		RequestID: req.ID, Location: step.Location,
	})
	if rider := s.GetAgent(req.Rider); rider != nil {
		s.SignalAgent(rider)
	}
}

// dock acquires a slot at the station on this location, with bounded
// patience. Without a station the reposition degrades to a plain move.
func (v *Vehicle) dock(s *Simulator, step Step) {
	var station *Station
	if v.operator != nil {
		station = v.operator.StationAt(step.Location)
	}
	if station == nil || v.slotGrant != nil {
		v.proc.Plan.Advance()
		v.continuePlan(s)
		return
	}
	v.proc.State = StateWaiting
	if g := station.Slots.AcquireWithin(s, v, 1, s.Clock+v.DockPatience); g != nil {
		v.slotGrant = g
		v.recordDocked(s, step)
		v.proc.Plan.Advance()
		v.continuePlan(s)
	}
}

func (v *Vehicle) finishDocking(s *Simulator, out Outcome) {
	switch out.Kind {
	case OutcomeGranted:
		v.slotGrant = out.Grant
		if step, ok := v.proc.Plan.Current(); ok {
			v.recordDocked(s, step)
		}
		v.proc.Plan.Advance()
		v.continuePlan(s)
	case OutcomeDenied:
		// Station full past patience: stay undocked and move on.
		v.proc.Plan.Advance()
		v.continuePlan(s)
	default:
		v.continuePlan(s)
	}
}

func (v *Vehicle) recordDocked(s *Simulator, step Step) {
	s.Trace.RecordPlanStep(trace.PlanStepRecord{
		Clock: s.Clock, AgentID: v.ID(), Kind: string(StepReposition),
		Location: step.Location,
	})
}

func (v *Vehicle) becomeIdle(s *Simulator) {
	v.proc.Plan = nil
	v.proc.State = StateIdle
	logrus.Debugf("[t=%07d] %s idle at %d", s.Clock, v.ID(), v.Position)
}
