package dispatch

import (
	"math"

	"github.com/mobility-sim/mobility-sim/sim"
)

// penaltyUnassigned dominates any feasible route cost, so the search always
// prefers serving one more request over any routing saving.
const penaltyUnassigned = 1e7

// stop is one service visit on a tentative route.
type stop struct {
	kind sim.StepKind // StepPickup or StepDropoff
	req  *sim.TripRequest
}

func (st stop) location() int {
	if st.kind == sim.StepPickup {
		return st.req.Origin
	}
	return st.req.Destination
}

func (st stop) earliest() int64 {
	if st.kind == sim.StepPickup {
		return st.req.EarliestPickup
	}
	return st.req.EarliestDropoff
}

func (st stop) latest() int64 {
	if st.kind == sim.StepPickup {
		return st.req.LatestPickup
	}
	return st.req.LatestDropoff
}

// route is a tentative stop sequence for one vehicle.
type route struct {
	vehicle sim.VehicleSnapshot
	stops   []stop
	cost    float64
}

// evaluate simulates the route forward and returns its cost, or false when a
// time window, seat capacity, or reachability constraint breaks. Cost is the
// route's working duration plus the accumulated pickup waits, so both fleet
// mileage and rider waiting pull on the search.
func (r *route) evaluate(p *sim.Problem) (float64, bool) {
	t := r.vehicle.AvailableAt
	if t < p.Now {
		t = p.Now
	}
	start := t
	pos := r.vehicle.Position
	load := len(r.vehicle.Onboard)
	wait := 0.0
	for _, st := range r.stops {
		dur, ok := sim.TravelTime(p.Planner, pos, st.location(), t, sim.ModeDrive)
		if !ok {
			return 0, false
		}
		t += dur
		pos = st.location()
		if e := st.earliest(); t < e {
			t = e
		}
		if l := st.latest(); l > 0 && t > l {
			return 0, false
		}
		switch st.kind {
		case sim.StepPickup:
			load++
			if load > r.vehicle.Seats {
				return 0, false
			}
			wait += float64(t - st.req.EarliestPickup)
		case sim.StepDropoff:
			load--
		}
	}
	return float64(t-start) + wait, true
}

// solution is a complete tentative assignment: one route per fleet vehicle
// plus the requests nothing could serve.
type solution struct {
	problem    *sim.Problem
	routes     []*route
	unassigned []*sim.TripRequest
}

// newSolution seeds routes with the dropoffs owed to riders already on
// board — those visits are immovable obligations — and leaves every open
// request unassigned.
func newSolution(p *sim.Problem) *solution {
	s := &solution{problem: p}
	for _, v := range p.Vehicles {
		r := &route{vehicle: v}
		for _, req := range v.Onboard {
			r.stops = append(r.stops, stop{kind: sim.StepDropoff, req: req})
		}
		r.cost, _ = r.evaluate(p)
		s.routes = append(s.routes, r)
	}
	s.unassigned = append(s.unassigned, p.Requests...)
	return s
}

func (s *solution) clone() *solution {
	c := &solution{problem: s.problem}
	c.routes = make([]*route, len(s.routes))
	for i, r := range s.routes {
		cr := &route{vehicle: r.vehicle, cost: r.cost}
		cr.stops = append([]stop(nil), r.stops...)
		c.routes[i] = cr
	}
	c.unassigned = append([]*sim.TripRequest(nil), s.unassigned...)
	return c
}

func (s *solution) totalCost() float64 {
	total := penaltyUnassigned * float64(len(s.unassigned))
	for _, r := range s.routes {
		total += r.cost
	}
	return total
}

// tryInsert evaluates inserting req's pickup before position i and its
// dropoff before position j (pickup already counted) of the route.
func (s *solution) tryInsert(r *route, req *sim.TripRequest, i, j int) (float64, bool) {
	stops := make([]stop, 0, len(r.stops)+2)
	stops = append(stops, r.stops[:i]...)
	stops = append(stops, stop{kind: sim.StepPickup, req: req})
	stops = append(stops, r.stops[i:j]...)
	stops = append(stops, stop{kind: sim.StepDropoff, req: req})
	stops = append(stops, r.stops[j:]...)
	trial := &route{vehicle: r.vehicle, stops: stops}
	cost, ok := trial.evaluate(s.problem)
	if !ok {
		return 0, false
	}
	return cost - r.cost, true
}

type insertion struct {
	routeIdx int
	i, j     int
	delta    float64
}

// bestInsertion scans every pickup/dropoff position pair on every route and
// returns the cheapest feasible one. Ties break toward the first candidate
// scanned, which is deterministic because routes follow fleet order.
func (s *solution) bestInsertion(req *sim.TripRequest, skip func() bool) (insertion, bool) {
	best := insertion{delta: math.Inf(1)}
	found := false
	for ri, r := range s.routes {
		for i := 0; i <= len(r.stops); i++ {
			for j := i; j <= len(r.stops); j++ {
				if skip != nil && skip() {
					continue
				}
				delta, ok := s.tryInsert(r, req, i, j)
				if !ok || delta >= best.delta {
					continue
				}
				best = insertion{routeIdx: ri, i: i, j: j, delta: delta}
				found = true
			}
		}
	}
	return best, found
}

// applyInsertion commits a previously evaluated insertion.
func (s *solution) applyInsertion(req *sim.TripRequest, ins insertion) {
	r := s.routes[ins.routeIdx]
	stops := make([]stop, 0, len(r.stops)+2)
	stops = append(stops, r.stops[:ins.i]...)
	stops = append(stops, stop{kind: sim.StepPickup, req: req})
	stops = append(stops, r.stops[ins.i:ins.j]...)
	stops = append(stops, stop{kind: sim.StepDropoff, req: req})
	stops = append(stops, r.stops[ins.j:]...)
	r.stops = stops
	r.cost, _ = r.evaluate(s.problem)
}

// removable lists the requests the destroy phase may take out: those with a
// pickup stop on some route. Onboard riders only have a dropoff and stay.
func (s *solution) removable() []*sim.TripRequest {
	var out []*sim.TripRequest
	for _, r := range s.routes {
		for _, st := range r.stops {
			if st.kind == sim.StepPickup {
				out = append(out, st.req)
			}
		}
	}
	return out
}

// remove takes a request off its route and back into the unassigned pool.
func (s *solution) remove(req *sim.TripRequest) {
	for _, r := range s.routes {
		kept := r.stops[:0]
		removed := false
		for _, st := range r.stops {
			if st.req == req && (st.kind == sim.StepPickup || st.kind == sim.StepDropoff) {
				removed = true
				continue
			}
			kept = append(kept, st)
		}
		if removed {
			r.stops = kept
			r.cost, _ = r.evaluate(s.problem)
			s.unassigned = append(s.unassigned, req)
			return
		}
	}
}

// toAssignment flattens the solution into the kernel's assignment form.
// Every vehicle gets a route, possibly empty: an empty route clears a stale
// plan whose requests were reassigned elsewhere.
func (s *solution) toAssignment() sim.Assignment {
	asg := sim.Assignment{Routes: make(map[string][]sim.Step)}
	for _, r := range s.routes {
		steps := make([]sim.Step, 0, len(r.stops))
		for _, st := range r.stops {
			steps = append(steps, sim.Step{
				Kind:      st.kind,
				Location:  st.location(),
				Earliest:  st.earliest(),
				Latest:    st.latest(),
				RequestID: st.req.ID,
			})
			if st.kind == sim.StepPickup {
				asg.Assigned = append(asg.Assigned, st.req.ID)
			}
		}
		asg.Routes[r.vehicle.ID] = steps
	}
	for _, req := range s.unassigned {
		asg.Unassigned = append(asg.Unassigned, req.ID)
	}
	return asg
}
