package dispatch

import (
	"math/rand"

	"github.com/sirupsen/logrus"

	"github.com/mobility-sim/mobility-sim/sim"
)

// ALNS improves a greedy construction with adaptive large neighborhood
// search: each iteration destroys part of the solution with one operator,
// repairs it with another, and rewards the operator pair by how good the
// candidate turned out. Operator selection is roulette over the adapted
// weights, drawn from the problem's dispatch RNG stream so runs replay
// exactly under one seed.
type ALNS struct {
	cfg     ALNSConfig
	destroy []destroyOp
	repair  []repairOp
	accept  acceptCriterion
}

// NewALNS builds the search from a validated configuration.
func NewALNS(cfg ALNSConfig) *ALNS {
	a := &ALNS{
		cfg:     cfg,
		destroy: destroyOperators(cfg.DestroyOperators),
		repair:  repairOperators(cfg.RepairOperators, cfg.BlinkRate),
	}
	switch cfg.Acceptance {
	case "improving":
		a.accept = improvingOnly
	default:
		a.accept = decayingThreshold(cfg.InitialThreshold)
	}
	return a
}

func (a *ALNS) Name() string { return "alns" }

// Solve runs the fixed iteration budget and returns the best solution seen.
// The result is never worse than the greedy construction it started from.
func (a *ALNS) Solve(p sim.Problem) sim.Assignment {
	rng := p.RNG
	if rng == nil {
		rng = rand.New(rand.NewSource(0))
	}

	current := construct(&p)
	best := current.clone()
	bestCost := best.totalCost()
	currentCost := bestCost

	dw := newAdaptiveWeights(len(a.destroy), a.cfg)
	rw := newAdaptiveWeights(len(a.repair), a.cfg)

	for it := 0; it < a.cfg.Iterations; it++ {
		di := dw.pick(rng)
		ri := rw.pick(rng)

		cand := current.clone()
		n := int(a.cfg.DestroyFraction * float64(len(cand.removable())))
		if n < 1 {
			n = 1
		}
		a.destroy[di].apply(cand, rng, n)
		a.repair[ri].apply(cand, rng)
		candCost := cand.totalCost()

		score := a.cfg.ScoreRejected
		switch {
		case candCost < bestCost:
			best = cand.clone()
			bestCost = candCost
			score = a.cfg.ScoreNewBest
		case candCost < currentCost:
			score = a.cfg.ScoreImproved
		case a.accept(candCost, currentCost, it, a.cfg.Iterations):
			score = a.cfg.ScoreAccepted
		}
		if a.accept(candCost, currentCost, it, a.cfg.Iterations) {
			current = cand
			currentCost = candCost
		}
		dw.reward(di, score)
		rw.reward(ri, score)
	}

	logrus.Debugf("alns: best cost %.1f, %d unassigned after %d iterations",
		bestCost, len(best.unassigned), a.cfg.Iterations)
	return best.toAssignment()
}

// adaptiveWeights is exponentially smoothed operator scoring with roulette
// selection.
type adaptiveWeights struct {
	w      []float64
	lambda float64
}

func newAdaptiveWeights(n int, cfg ALNSConfig) *adaptiveWeights {
	w := make([]float64, n)
	for i := range w {
		w[i] = 1
	}
	return &adaptiveWeights{w: w, lambda: cfg.DecayLambda}
}

func (aw *adaptiveWeights) pick(rng *rand.Rand) int {
	total := 0.0
	for _, w := range aw.w {
		total += w
	}
	x := rng.Float64() * total
	for i, w := range aw.w {
		x -= w
		if x < 0 {
			return i
		}
	}
	return len(aw.w) - 1
}

func (aw *adaptiveWeights) reward(i int, score float64) {
	aw.w[i] = aw.lambda*aw.w[i] + (1-aw.lambda)*score
}
