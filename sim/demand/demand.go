// Package demand produces the rider arrival stream a scenario runs against:
// either synthetic Poisson demand drawn from a seeded stream, or a replay of
// a recorded demand file.
package demand

import (
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Introduction is one rider entering the simulation: when, where from, where
// to, and how patient.
type Introduction struct {
	Time        int64  `yaml:"time" json:"time"`
	RequestID   string `yaml:"request_id" json:"request_id"`
	Origin      int    `yaml:"origin" json:"origin"`
	Destination int    `yaml:"destination" json:"destination"`

	// Patience and MaxTries override scenario defaults when positive.
	Patience int64 `yaml:"patience,omitempty" json:"patience,omitempty"`
	MaxTries int   `yaml:"max_tries,omitempty" json:"max_tries,omitempty"`
}

// Generator draws synthetic demand: Poisson arrivals at a constant hourly
// rate with origin and destination uniform over the network nodes. All draws
// come from the injected stream, so one seed gives one demand pattern.
type Generator struct {
	// RatePerHour is the arrival intensity.
	RatePerHour float64
	// Nodes is the network size; origins and destinations are drawn in
	// [0, Nodes).
	Nodes int

	rng *rand.Rand
}

// NewGenerator creates a demand generator over the given node count.
func NewGenerator(ratePerHour float64, nodes int, rng *rand.Rand) (*Generator, error) {
	if ratePerHour <= 0 {
		return nil, fmt.Errorf("demand rate must be positive, got %f", ratePerHour)
	}
	if nodes < 2 {
		return nil, fmt.Errorf("demand needs at least 2 nodes, got %d", nodes)
	}
	return &Generator{RatePerHour: ratePerHour, Nodes: nodes, rng: rng}, nil
}

// Generate draws the arrival stream over [0, horizon). Interarrival times are
// exponential; a rider's destination always differs from their origin.
func (g *Generator) Generate(horizon int64) []Introduction {
	ratePerSec := g.RatePerHour / 3600
	var out []Introduction
	t := 0.0
	for {
		t += -math.Log(1-g.rng.Float64()) / ratePerSec
		at := int64(t)
		if at >= horizon {
			return out
		}
		origin := g.rng.Intn(g.Nodes)
		destination := g.rng.Intn(g.Nodes - 1)
		if destination >= origin {
			destination++
		}
		id, err := uuid.NewRandomFromReader(g.rng)
		if err != nil {
			// math/rand.Read cannot fail.
			panic(err)
		}
		out = append(out, Introduction{
			Time:        at,
			RequestID:   id.String(),
			Origin:      origin,
			Destination: destination,
		})
	}
}

// Load replays a recorded demand file (YAML, or JSON as a YAML subset).
// Introductions come back sorted by time so the caller can schedule them
// directly.
func Load(path string) ([]Introduction, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading demand file: %w", err)
	}
	var intros []Introduction
	if err := yaml.Unmarshal(raw, &intros); err != nil {
		return nil, fmt.Errorf("parsing demand file %s: %w", filepath.Base(path), err)
	}
	seen := make(map[string]bool, len(intros))
	for i, in := range intros {
		if in.Time < 0 {
			return nil, fmt.Errorf("introduction %d has negative time %d", i, in.Time)
		}
		if in.RequestID == "" {
			return nil, fmt.Errorf("introduction %d has no request id", i)
		}
		if seen[in.RequestID] {
			return nil, fmt.Errorf("duplicate request id %q", in.RequestID)
		}
		seen[in.RequestID] = true
		if in.Origin == in.Destination {
			return nil, fmt.Errorf("request %s has origin == destination (%d)", in.RequestID, in.Origin)
		}
	}
	sort.SliceStable(intros, func(i, j int) bool { return intros[i].Time < intros[j].Time })
	return intros, nil
}
