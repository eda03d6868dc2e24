package dispatch

import (
	"github.com/mobility-sim/mobility-sim/sim"
)

// Greedy is the baseline optimizer: cheapest-insertion construction, no
// improvement phase. Deterministic for a given problem.
type Greedy struct{}

// NewGreedy returns the greedy insertion optimizer.
func NewGreedy() *Greedy { return &Greedy{} }

func (g *Greedy) Name() string { return "greedy" }

// Solve inserts requests one by one at their cheapest feasible position,
// in submission order.
func (g *Greedy) Solve(p sim.Problem) sim.Assignment {
	s := construct(&p)
	return s.toAssignment()
}

// construct builds a solution by greedy cheapest insertion, taking requests
// in submission order; urgency ordering is left to the repair operators.
// Shared with ALNS as its initial solution.
func construct(p *sim.Problem) *solution {
	s := newSolution(p)
	pending := append([]*sim.TripRequest(nil), s.unassigned...)
	s.unassigned = s.unassigned[:0]
	for _, req := range pending {
		ins, ok := s.bestInsertion(req, nil)
		if !ok {
			s.unassigned = append(s.unassigned, req)
			continue
		}
		s.applyInsertion(req, ins)
	}
	return s
}
