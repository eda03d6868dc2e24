package dispatch

import (
	"math/rand"
	"sort"

	"github.com/mobility-sim/mobility-sim/sim"
)

// repairOp reinserts unassigned requests into the solution's routes.
type repairOp struct {
	name  string
	apply func(s *solution, rng *rand.Rand)
}

func repairOperators(names []string, blinkRate float64) []repairOp {
	ops := make([]repairOp, 0, len(names))
	for _, name := range names {
		switch name {
		case "greedy":
			ops = append(ops, repairOp{name: name, apply: greedyRepair})
		case "blink":
			rate := blinkRate
			ops = append(ops, repairOp{name: name, apply: func(s *solution, rng *rand.Rand) {
				blinkRepair(s, rng, rate)
			}})
		}
	}
	return ops
}

// greedyRepair is cheapest insertion over the unassigned pool, most urgent
// first. Requests that fit nowhere stay unassigned.
func greedyRepair(s *solution, rng *rand.Rand) {
	repairWith(s, nil)
}

// blinkRepair is greedy insertion that randomly overlooks candidate
// positions ("blinks"), trading a little insertion quality for escape from
// the deterministic greedy trajectory.
func blinkRepair(s *solution, rng *rand.Rand, rate float64) {
	repairWith(s, func() bool { return rng.Float64() < rate })
}

func repairWith(s *solution, skip func() bool) {
	pending := append([]*sim.TripRequest(nil), s.unassigned...)
	sort.SliceStable(pending, func(i, j int) bool {
		return pending[i].LatestPickup < pending[j].LatestPickup
	})
	s.unassigned = s.unassigned[:0]
	for _, req := range pending {
		ins, ok := s.bestInsertion(req, skip)
		if !ok {
			s.unassigned = append(s.unassigned, req)
			continue
		}
		s.applyInsertion(req, ins)
	}
}
