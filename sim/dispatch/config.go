// Package dispatch implements the assignment optimizers an operator can run:
// a periodic greedy insertion baseline and an ALNS (adaptive large
// neighborhood search) improver layered on top of it. Both consume the
// kernel's dispatch snapshot and produce vehicle routes; neither touches
// simulation state.
package dispatch

import (
	"fmt"

	"github.com/mobility-sim/mobility-sim/sim"
)

// ValidOptimizers enumerates selectable optimizer names.
var ValidOptimizers = map[string]bool{
	"greedy": true,
	"alns":   true,
}

// ValidDestroyOperators enumerates ALNS destroy operator names.
var ValidDestroyOperators = map[string]bool{
	"random":  true,
	"related": true,
	"slack":   true,
}

// ValidRepairOperators enumerates ALNS repair operator names.
var ValidRepairOperators = map[string]bool{
	"greedy": true,
	"blink":  true,
}

// ValidAcceptanceCriteria enumerates ALNS acceptance criterion names.
var ValidAcceptanceCriteria = map[string]bool{
	"improving": true,
	"threshold": true,
}

// Config selects and parameterizes the dispatch optimizer.
type Config struct {
	Optimizer string     `yaml:"optimizer" json:"optimizer"`
	ALNS      ALNSConfig `yaml:"alns" json:"alns"`
}

// ALNSConfig tunes the adaptive large neighborhood search.
type ALNSConfig struct {
	// Iterations is the fixed destroy/repair budget per dispatch round.
	Iterations int `yaml:"iterations" json:"iterations"`
	// DestroyFraction is the share of assigned requests removed per
	// iteration, in (0, 1].
	DestroyFraction float64 `yaml:"destroy_fraction" json:"destroy_fraction"`
	// BlinkRate is the probability the blink repair skips a candidate
	// insertion position.
	BlinkRate float64 `yaml:"blink_rate" json:"blink_rate"`

	// DecayLambda smooths adaptive operator weights: weight = lambda*old +
	// (1-lambda)*score.
	DecayLambda float64 `yaml:"decay_lambda" json:"decay_lambda"`
	// Operator scores by iteration outcome.
	ScoreNewBest  float64 `yaml:"score_new_best" json:"score_new_best"`
	ScoreImproved float64 `yaml:"score_improved" json:"score_improved"`
	ScoreAccepted float64 `yaml:"score_accepted" json:"score_accepted"`
	ScoreRejected float64 `yaml:"score_rejected" json:"score_rejected"`

	// InitialThreshold is the starting acceptance slack of the threshold
	// criterion, as a fraction of current cost; it decays linearly to zero
	// over the iteration budget.
	InitialThreshold float64 `yaml:"initial_threshold" json:"initial_threshold"`

	DestroyOperators []string `yaml:"destroy_operators" json:"destroy_operators"`
	RepairOperators  []string `yaml:"repair_operators" json:"repair_operators"`
	Acceptance       string   `yaml:"acceptance" json:"acceptance"`
}

// DefaultConfig returns the greedy baseline with an ALNS parameterization
// ready to switch on.
func DefaultConfig() Config {
	return Config{
		Optimizer: "greedy",
		ALNS: ALNSConfig{
			Iterations:       200,
			DestroyFraction:  0.3,
			BlinkRate:        0.1,
			DecayLambda:      0.8,
			ScoreNewBest:     9,
			ScoreImproved:    5,
			ScoreAccepted:    3,
			ScoreRejected:    1,
			InitialThreshold: 0.05,
			DestroyOperators: []string{"random", "related", "slack"},
			RepairOperators:  []string{"greedy", "blink"},
			Acceptance:       "threshold",
		},
	}
}

// Validate rejects unknown policy names and out-of-range parameters. Called
// once at load time so a typo fails the run before any event executes.
func (c Config) Validate() error {
	if !ValidOptimizers[c.Optimizer] {
		return fmt.Errorf("invalid optimizer %q", c.Optimizer)
	}
	if c.Optimizer != "alns" {
		return nil
	}
	a := c.ALNS
	if a.Iterations <= 0 {
		return fmt.Errorf("alns iterations must be positive, got %d", a.Iterations)
	}
	if a.DestroyFraction <= 0 || a.DestroyFraction > 1 {
		return fmt.Errorf("alns destroy_fraction must be in (0,1], got %f", a.DestroyFraction)
	}
	if a.BlinkRate < 0 || a.BlinkRate >= 1 {
		return fmt.Errorf("alns blink_rate must be in [0,1), got %f", a.BlinkRate)
	}
	if a.DecayLambda < 0 || a.DecayLambda > 1 {
		return fmt.Errorf("alns decay_lambda must be in [0,1], got %f", a.DecayLambda)
	}
	if len(a.DestroyOperators) == 0 {
		return fmt.Errorf("alns needs at least one destroy operator")
	}
	for _, name := range a.DestroyOperators {
		if !ValidDestroyOperators[name] {
			return fmt.Errorf("invalid destroy operator %q", name)
		}
	}
	if len(a.RepairOperators) == 0 {
		return fmt.Errorf("alns needs at least one repair operator")
	}
	for _, name := range a.RepairOperators {
		if !ValidRepairOperators[name] {
			return fmt.Errorf("invalid repair operator %q", name)
		}
	}
	if !ValidAcceptanceCriteria[a.Acceptance] {
		return fmt.Errorf("invalid acceptance criterion %q", a.Acceptance)
	}
	return nil
}

// New builds the configured optimizer.
func New(c Config) (sim.Optimizer, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	switch c.Optimizer {
	case "alns":
		return NewALNS(c.ALNS), nil
	default:
		return NewGreedy(), nil
	}
}
