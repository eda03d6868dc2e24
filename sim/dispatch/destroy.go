package dispatch

import (
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/mobility-sim/mobility-sim/sim"
)

// destroyOp removes up to n assigned requests from the solution, returning
// them to the unassigned pool for the repair phase.
type destroyOp struct {
	name  string
	apply func(s *solution, rng *rand.Rand, n int)
}

func destroyOperators(names []string) []destroyOp {
	ops := make([]destroyOp, 0, len(names))
	for _, name := range names {
		switch name {
		case "random":
			ops = append(ops, destroyOp{name: name, apply: randomDestroy})
		case "related":
			ops = append(ops, destroyOp{name: name, apply: relatedDestroy})
		case "slack":
			ops = append(ops, destroyOp{name: name, apply: slackDestroy})
		}
	}
	return ops
}

// randomDestroy removes n uniformly drawn requests. The diversification
// workhorse: no structure, pure shake.
func randomDestroy(s *solution, rng *rand.Rand, n int) {
	pool := s.removable()
	for i := 0; i < n && len(pool) > 0; i++ {
		k := rng.Intn(len(pool))
		s.remove(pool[k])
		pool = append(pool[:k], pool[k+1:]...)
	}
}

// relatedDestroy removes a seed request and its n-1 most related neighbors,
// relatedness being spatio-temporal proximity: close origins, close
// destinations, close pickup windows. Removing related requests together
// gives the repair phase room to actually exchange them.
func relatedDestroy(s *solution, rng *rand.Rand, n int) {
	pool := s.removable()
	if len(pool) == 0 {
		return
	}
	seed := pool[rng.Intn(len(pool))]
	scores := make([]float64, len(pool))
	for i, req := range pool {
		scores[i] = relatedness(s.problem, seed, req)
	}
	// Normalize so the spatial and temporal terms are on one scale.
	if norm := floats.Norm(scores, 2); norm > 0 {
		floats.Scale(1/norm, scores)
	}
	idx := make([]int, len(pool))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return scores[idx[a]] < scores[idx[b]] })
	for i := 0; i < n && i < len(idx); i++ {
		s.remove(pool[idx[i]])
	}
}

// relatedness is lower for closer request pairs. Travel times proxy spatial
// distance; unreachable pairs score as maximally unrelated.
func relatedness(p *sim.Problem, a, b *sim.TripRequest) float64 {
	const unreachable = 1e9
	score := 0.0
	if d, ok := sim.TravelTime(p.Planner, a.Origin, b.Origin, p.Now, sim.ModeDrive); ok {
		score += float64(d)
	} else {
		score += unreachable
	}
	if d, ok := sim.TravelTime(p.Planner, a.Destination, b.Destination, p.Now, sim.ModeDrive); ok {
		score += float64(d)
	} else {
		score += unreachable
	}
	dt := a.EarliestPickup - b.EarliestPickup
	if dt < 0 {
		dt = -dt
	}
	return score + float64(dt)
}

// slackDestroy removes the requests whose removal frees the most route cost,
// i.e. the worst-placed ones. Targeted intensification.
func slackDestroy(s *solution, rng *rand.Rand, n int) {
	type gain struct {
		req   *sim.TripRequest
		saved float64
	}
	pool := s.removable()
	gains := make([]gain, 0, len(pool))
	for _, req := range pool {
		trial := s.clone()
		before := trial.totalCost()
		trial.remove(req)
		// remove() charges the unassigned penalty; look at route cost only.
		saved := before - (trial.totalCost() - penaltyUnassigned)
		gains = append(gains, gain{req: req, saved: saved})
	}
	sort.SliceStable(gains, func(a, b int) bool { return gains[a].saved > gains[b].saved })
	for i := 0; i < n && i < len(gains); i++ {
		s.remove(gains[i].req)
	}
}
