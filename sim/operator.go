package sim

import (
	"math/rand"

	"github.com/sirupsen/logrus"
)

// Problem is the dispatch snapshot handed to the optimizer: the open
// requests, the fleet state, and the routing oracle to cost insertions with.
// The optimizer must treat it as read-only.
type Problem struct {
	Now      int64
	Requests []*TripRequest
	Vehicles []VehicleSnapshot
	Planner  RoutePlanner
	RNG      *rand.Rand
}

// VehicleSnapshot is the frozen view of one vehicle at dispatch time.
// Onboard riders constrain any new route: their dropoffs must stay on it.
type VehicleSnapshot struct {
	ID          string
	Seats       int
	Position    int
	AvailableAt int64
	Onboard     []*TripRequest
}

// Assignment is the optimizer's answer: replacement routes per vehicle plus
// the request split. A vehicle absent from Routes keeps its current plan.
type Assignment struct {
	Routes     map[string][]Step
	Assigned   []string
	Unassigned []string
}

// Optimizer turns a dispatch problem into an assignment. Implementations are
// pure with respect to simulation state: they suspend nothing and touch only
// the snapshot.
type Optimizer interface {
	Name() string
	Solve(p Problem) Assignment
}

// Operator runs the dispatch loop of a fleet: it collects submitted requests,
// periodically snapshots the world, solves the assignment problem, and pushes
// the resulting routes onto its vehicles through plan replacement.
type Operator struct {
	proc *Process

	// Period is the dispatch cadence in simulation seconds.
	Period int64
	// RetryBudget is how many dispatch rounds may fail to place a request
	// before it is terminally rejected.
	RetryBudget int
	// DepotNode is where idle empty vehicles reposition to; -1 disables.
	DepotNode int

	optimizer Optimizer

	fleet     []*Vehicle
	stations  []*Station
	stationAt map[int]*Station

	requests     map[string]*TripRequest
	requestOrder []string
}

// NewOperator creates an operator dispatching with the given optimizer every
// period seconds.
func NewOperator(id string, period int64, opt Optimizer) *Operator {
	return &Operator{
		proc:        NewProcess(id),
		Period:      period,
		RetryBudget: 3,
		DepotNode:   -1,
		optimizer:   opt,
		stationAt:   make(map[int]*Station),
		requests:    make(map[string]*TripRequest),
	}
}

func (o *Operator) ID() string        { return o.proc.ID }
func (o *Operator) Process() *Process { return o.proc }

// AddVehicle puts a vehicle under this operator's dispatch.
func (o *Operator) AddVehicle(v *Vehicle) {
	v.operator = o
	o.fleet = append(o.fleet, v)
}

// AddStation registers a docking station with the operator's network.
func (o *Operator) AddStation(st *Station) {
	o.stations = append(o.stations, st)
	o.stationAt[st.Position] = st
}

// AttachTraveler routes the traveler's submissions to this operator.
func (o *Operator) AttachTraveler(t *Traveler) {
	t.operator = o
}

// StationAt returns the station on the given node, nil when there is none.
func (o *Operator) StationAt(location int) *Station {
	return o.stationAt[location]
}

// Fleet returns the operator's vehicles in registration order.
func (o *Operator) Fleet() []*Vehicle {
	out := make([]*Vehicle, len(o.fleet))
	copy(out, o.fleet)
	return out
}

// Submit files a request for the next dispatch round. Requests are never
// dispatched synchronously; batching them onto the periodic tick keeps the
// assignment problem worth optimizing.
func (o *Operator) Submit(s *Simulator, req *TripRequest) {
	if _, dup := o.requests[req.ID]; dup {
		return
	}
	req.SubmitTime = s.Clock
	o.requests[req.ID] = req
	o.requestOrder = append(o.requestOrder, req.ID)
	logrus.Debugf("[t=%07d] %s: request %s submitted (%d->%d)",
		s.Clock, o.ID(), req.ID, req.Origin, req.Destination)
}

// Resume drives the periodic dispatch tick.
func (o *Operator) Resume(s *Simulator, out Outcome) {
	switch out.Kind {
	case OutcomeStart:
		o.proc.State = StateWaiting
		s.Delay(o.Period, o)
	case OutcomeElapsed:
		o.dispatch(s)
		s.Delay(o.Period, o)
	}
}

// dispatch runs one optimization round: snapshot, solve, apply. Iteration is
// over registration-ordered slices throughout so identical inputs yield an
// identical event sequence.
func (o *Operator) dispatch(s *Simulator) {
	open := o.openRequests()
	if len(open) == 0 && o.DepotNode < 0 {
		return
	}
	problem := Problem{
		Now:      s.Clock,
		Requests: open,
		Planner:  s.Planner,
		RNG:      s.RNG.ForSubsystem(SubsystemDispatch),
	}
	for _, v := range o.fleet {
		problem.Vehicles = append(problem.Vehicles, v.Snapshot())
	}

	var asg Assignment
	if len(open) > 0 {
		asg = o.optimizer.Solve(problem)
		logrus.Debugf("[t=%07d] %s: %s placed %d/%d requests",
			s.Clock, o.ID(), o.optimizer.Name(), len(asg.Assigned), len(open))
	}

	for _, v := range o.fleet {
		steps, ok := asg.Routes[v.ID()]
		if !ok {
			continue
		}
		if len(steps) == 0 && v.Process().State == StateIdle && v.Process().Plan == nil {
			// Already idle with nothing to revoke.
			continue
		}
		s.ReplacePlan(v, NewPlan(steps))
	}
	for _, id := range asg.Assigned {
		if req := o.requests[id]; req != nil && req.Status == RequestPending {
			req.MarkAssigned(s)
		}
	}
	for _, id := range asg.Unassigned {
		o.placementFailed(s, o.requests[id])
	}
	o.repositionIdle(s, asg.Routes)
}

// openRequests returns the requests still subject to dispatch, in submission
// order. Boarded riders are pinned to their vehicle and excluded.
func (o *Operator) openRequests() []*TripRequest {
	var open []*TripRequest
	for _, id := range o.requestOrder {
		req := o.requests[id]
		if req.Terminal() || req.Boarded {
			continue
		}
		open = append(open, req)
	}
	return open
}

// placementFailed charges one failed round against the request's retry
// budget, rejecting it terminally once the budget is spent.
func (o *Operator) placementFailed(s *Simulator, req *TripRequest) {
	if req == nil || req.Terminal() || req.Boarded {
		return
	}
	if req.Status == RequestAssigned {
		req.MarkPending(s, "displaced by re-dispatch")
	}
	req.Attempts++
	if req.Attempts <= o.RetryBudget {
		return
	}
	req.MarkRejected(s, "no feasible assignment")
	if rider := s.GetAgent(req.Rider); rider != nil {
		s.SignalAgent(rider)
	}
}

// repositionIdle sends idle empty vehicles that did not receive a route this
// round back toward the depot.
func (o *Operator) repositionIdle(s *Simulator, routed map[string][]Step) {
	if o.DepotNode < 0 {
		return
	}
	for _, v := range o.fleet {
		if steps, ok := routed[v.ID()]; ok && len(steps) > 0 {
			continue
		}
		if v.Process().State != StateIdle || len(v.onboard) > 0 {
			continue
		}
		if v.Position == o.DepotNode || v.slotGrant != nil {
			continue
		}
		s.ReplacePlan(v, NewPlan([]Step{{Kind: StepReposition, Location: o.DepotNode}}))
	}
}
