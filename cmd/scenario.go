package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"gonum.org/v1/gonum/mat"

	"github.com/mobility-sim/mobility-sim/sim"
	"github.com/mobility-sim/mobility-sim/sim/demand"
	"github.com/mobility-sim/mobility-sim/sim/dispatch"
	"github.com/mobility-sim/mobility-sim/sim/trace"
)

// envPrefix namespaces the environment overrides, e.g. MOBSIM_SEED=7 or
// MOBSIM_DISPATCH_OPTIMIZER=alns.
const envPrefix = "MOBSIM_"

// Scenario is the complete run description: network, fleet, stations,
// operator policy, demand, and output settings.
type Scenario struct {
	Name    string `yaml:"name"`
	Seed    int64  `yaml:"seed"`
	Horizon int64  `yaml:"horizon"`

	Network  NetworkConfig   `yaml:"network"`
	Fleet    FleetConfig     `yaml:"fleet"`
	Stations []StationConfig `yaml:"stations"`
	Operator OperatorConfig  `yaml:"operator"`
	Dispatch dispatch.Config `yaml:"dispatch"`
	Demand   DemandConfig    `yaml:"demand"`
	Riders   RiderConfig     `yaml:"riders"`

	TraceLevel string `yaml:"trace_level"`
}

// NetworkConfig is the routing input: a square node-to-node drive-time
// matrix in seconds. Use .inf for unreachable pairs.
type NetworkConfig struct {
	TravelTimes [][]float64 `yaml:"travel_times"`
	WalkFactor  float64     `yaml:"walk_factor"`
}

// FleetConfig sizes the vehicle fleet.
type FleetConfig struct {
	Vehicles     int   `yaml:"vehicles"`
	Seats        int   `yaml:"seats"`
	StartNode    int   `yaml:"start_node"`
	DwellTime    int64 `yaml:"dwell_time"`
	DockPatience int64 `yaml:"dock_patience"`
}

// StationConfig places one docking station. Docked adds that many extra
// vehicles starting at the station node, on top of the fleet count.
type StationConfig struct {
	ID     string `yaml:"id"`
	Node   int    `yaml:"node"`
	Slots  int    `yaml:"slots"`
	Docked int    `yaml:"docked"`
}

// OperatorConfig tunes the dispatch loop.
type OperatorConfig struct {
	Period      int64 `yaml:"period"`
	RetryBudget int   `yaml:"retry_budget"`
	// Depot is the idle-repositioning node, -1 to disable.
	Depot int `yaml:"depot"`
}

// DemandConfig selects recorded or synthetic demand. A file wins over a
// rate.
type DemandConfig struct {
	File        string  `yaml:"file"`
	RatePerHour float64 `yaml:"rate_per_hour"`
}

// RiderConfig sets traveler defaults; per-introduction values override.
type RiderConfig struct {
	Patience     int64 `yaml:"patience"`
	MaxTries     int   `yaml:"max_tries"`
	FailTimeout  int64 `yaml:"fail_timeout"`
	WalkFallback bool  `yaml:"walk_fallback"`
}

// DefaultScenario returns the baseline every loaded file overlays.
func DefaultScenario() Scenario {
	return Scenario{
		Seed:    42,
		Horizon: 14400,
		Network: NetworkConfig{WalkFactor: 5},
		Fleet: FleetConfig{
			Vehicles:     2,
			Seats:        4,
			DwellTime:    30,
			DockPatience: 300,
		},
		Operator: OperatorConfig{
			Period:      120,
			RetryBudget: 3,
			Depot:       -1,
		},
		Dispatch: dispatch.DefaultConfig(),
		Riders: RiderConfig{
			Patience:     1800,
			MaxTries:     2,
			FailTimeout:  120,
			WalkFallback: true,
		},
		TraceLevel: string(trace.LevelTransitions),
	}
}

// LoadScenario reads a YAML or JSON scenario file, overlays MOBSIM_*
// environment variables, and validates the result.
func LoadScenario(path string) (Scenario, error) {
	sc := DefaultScenario()
	k := koanf.New(".")

	var parser koanf.Parser
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		parser = json.Parser()
	case ".yaml", ".yml":
		parser = yaml.Parser()
	default:
		return sc, fmt.Errorf("unsupported scenario format %q", filepath.Ext(path))
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return sc, fmt.Errorf("loading scenario %s: %w", path, err)
	}
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "_", ".")
	}), nil); err != nil {
		return sc, fmt.Errorf("loading environment overrides: %w", err)
	}
	if err := k.UnmarshalWithConf("", &sc, koanf.UnmarshalConf{Tag: "yaml"}); err != nil {
		return sc, fmt.Errorf("decoding scenario: %w", err)
	}
	if err := sc.Validate(); err != nil {
		return sc, err
	}
	return sc, nil
}

// Validate rejects scenarios that cannot build a consistent simulation.
func (sc Scenario) Validate() error {
	if sc.Horizon <= 0 {
		return fmt.Errorf("horizon must be positive, got %d", sc.Horizon)
	}
	n := len(sc.Network.TravelTimes)
	if n == 0 {
		return fmt.Errorf("network travel_times matrix is required")
	}
	for i, row := range sc.Network.TravelTimes {
		if len(row) != n {
			return fmt.Errorf("travel_times row %d has %d entries, want %d", i, len(row), n)
		}
	}
	if sc.Fleet.Vehicles <= 0 {
		return fmt.Errorf("fleet needs at least one vehicle")
	}
	if sc.Fleet.Seats <= 0 {
		return fmt.Errorf("vehicle seats must be positive, got %d", sc.Fleet.Seats)
	}
	if sc.Fleet.StartNode < 0 || sc.Fleet.StartNode >= n {
		return fmt.Errorf("fleet start_node %d outside network of %d nodes", sc.Fleet.StartNode, n)
	}
	for _, st := range sc.Stations {
		if st.ID == "" {
			return fmt.Errorf("station on node %d has no id", st.Node)
		}
		if st.Node < 0 || st.Node >= n {
			return fmt.Errorf("station %s node %d outside network of %d nodes", st.ID, st.Node, n)
		}
		if st.Slots <= 0 {
			return fmt.Errorf("station %s slots must be positive, got %d", st.ID, st.Slots)
		}
		if st.Docked < 0 || st.Docked > st.Slots {
			return fmt.Errorf("station %s docked %d exceeds its %d slots", st.ID, st.Docked, st.Slots)
		}
	}
	if sc.Operator.Period <= 0 {
		return fmt.Errorf("operator period must be positive, got %d", sc.Operator.Period)
	}
	if sc.Operator.Depot >= n {
		return fmt.Errorf("operator depot %d outside network of %d nodes", sc.Operator.Depot, n)
	}
	if sc.Demand.File == "" && sc.Demand.RatePerHour <= 0 {
		return fmt.Errorf("demand needs a file or a positive rate_per_hour")
	}
	if !trace.IsValidLevel(sc.TraceLevel) {
		return fmt.Errorf("invalid trace_level %q", sc.TraceLevel)
	}
	return sc.Dispatch.Validate()
}

// Build assembles a ready-to-run simulator from the scenario.
func (sc Scenario) Build() (*sim.Simulator, error) {
	n := len(sc.Network.TravelTimes)
	data := make([]float64, 0, n*n)
	for _, row := range sc.Network.TravelTimes {
		data = append(data, row...)
	}
	planner, err := sim.NewMatrixPlanner(mat.NewDense(n, n, data), sc.Network.WalkFactor)
	if err != nil {
		return nil, err
	}

	s := sim.NewSimulator(sc.Horizon, planner, sc.Seed)
	s.Trace = trace.NewSimulationTrace(trace.Config{Level: trace.Level(sc.TraceLevel)})

	optimizer, err := dispatch.New(sc.Dispatch)
	if err != nil {
		return nil, err
	}
	op := sim.NewOperator("operator-0", sc.Operator.Period, optimizer)
	op.RetryBudget = sc.Operator.RetryBudget
	op.DepotNode = sc.Operator.Depot
	s.Introduce(0, op)

	addVehicle := func(index, position int) {
		v := sim.NewVehicle(fmt.Sprintf("vehicle-%d", index), position, sc.Fleet.Seats, sc.Fleet.DwellTime)
		if sc.Fleet.DockPatience > 0 {
			v.DockPatience = sc.Fleet.DockPatience
		}
		op.AddVehicle(v)
		s.Introduce(0, v)
	}
	next := 0
	for ; next < sc.Fleet.Vehicles; next++ {
		addVehicle(next, sc.Fleet.StartNode)
	}
	for _, st := range sc.Stations {
		station := sim.NewStation(st.ID, st.Node, st.Slots)
		op.AddStation(station)
		s.Introduce(0, station)
		// Initial stock: pre-positioned vehicles that dock on first dispatch.
		for i := 0; i < st.Docked; i++ {
			addVehicle(next, st.Node)
			next++
		}
	}

	intros, err := sc.demandStream(s, n)
	if err != nil {
		return nil, err
	}
	for i, in := range intros {
		if in.Origin < 0 || in.Origin >= n || in.Destination < 0 || in.Destination >= n {
			return nil, fmt.Errorf("request %s references nodes outside the network", in.RequestID)
		}
		t := sim.NewTraveler(fmt.Sprintf("rider-%d", i), in.RequestID, in.Origin, in.Destination)
		t.Patience = sc.Riders.Patience
		t.MaxTries = sc.Riders.MaxTries
		t.FailTimeout = sc.Riders.FailTimeout
		t.WalkFallback = sc.Riders.WalkFallback
		if in.Patience > 0 {
			t.Patience = in.Patience
		}
		if in.MaxTries > 0 {
			t.MaxTries = in.MaxTries
		}
		op.AttachTraveler(t)
		s.Introduce(in.Time, t)
	}
	return s, nil
}

func (sc Scenario) demandStream(s *sim.Simulator, nodes int) ([]demand.Introduction, error) {
	if sc.Demand.File != "" {
		return demand.Load(sc.Demand.File)
	}
	gen, err := demand.NewGenerator(sc.Demand.RatePerHour, nodes, s.RNG.ForSubsystem(sim.SubsystemDemand))
	if err != nil {
		return nil, err
	}
	return gen.Generate(sc.Horizon), nil
}
