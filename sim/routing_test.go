package sim

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestMatrixPlanner_ShortestPath_ReturnsMatrixEntry(t *testing.T) {
	// GIVEN a 3-node matrix with a 42s hop from 0 to 2
	m := mat.NewDense(3, 3, nil)
	m.Set(0, 2, 42)
	p, err := NewMatrixPlanner(m, 5)
	if err != nil {
		t.Fatalf("NewMatrixPlanner: %v", err)
	}

	// WHEN the drive route is queried with departure 100
	route, err := p.ShortestPath(0, 2, 100, ModeDrive)

	// THEN arrival, geometry and leg times reflect the entry
	if err != nil {
		t.Fatalf("ShortestPath: %v", err)
	}
	if route.ArrivalTime != 142 {
		t.Errorf("arrival: got %d, want 142", route.ArrivalTime)
	}
	if len(route.Geometry) != 2 || route.Geometry[0] != 0 || route.Geometry[1] != 2 {
		t.Errorf("geometry: got %v, want [0 2]", route.Geometry)
	}
	if len(route.LegTimes) != 1 || route.LegTimes[0] != 42 {
		t.Errorf("leg times: got %v, want [42]", route.LegTimes)
	}
}

func TestMatrixPlanner_ShortestPath_WalkScalesByFactor(t *testing.T) {
	// GIVEN a walk factor of 5 over a 100s drive
	p, err := NewMatrixPlanner(uniformMatrix(3, 100), 5)
	if err != nil {
		t.Fatalf("NewMatrixPlanner: %v", err)
	}

	// WHEN the walk route is queried
	route, err := p.ShortestPath(0, 1, 0, ModeWalk)

	// THEN the duration is 500s
	if err != nil {
		t.Fatalf("ShortestPath: %v", err)
	}
	if route.ArrivalTime != 500 {
		t.Errorf("walk arrival: got %d, want 500", route.ArrivalTime)
	}
}

func TestMatrixPlanner_ShortestPath_InfiniteEntry_IsNoRoute(t *testing.T) {
	// GIVEN an unreachable pair
	m := uniformMatrix(3, 100)
	m.Set(0, 1, math.Inf(1))
	p, _ := NewMatrixPlanner(m, 5)

	// WHEN the route is queried
	_, err := p.ShortestPath(0, 1, 0, ModeDrive)

	// THEN the no-route sentinel comes back
	if !errors.Is(err, ErrNoRoute) {
		t.Errorf("error: got %v, want ErrNoRoute", err)
	}
}

func TestMatrixPlanner_ShortestPath_SameNode_ArrivesImmediately(t *testing.T) {
	// GIVEN any planner
	p, _ := NewMatrixPlanner(uniformMatrix(3, 100), 5)

	// WHEN origin equals destination
	route, err := p.ShortestPath(1, 1, 250, ModeDrive)

	// THEN the route is empty and arrival is the departure
	if err != nil {
		t.Fatalf("ShortestPath: %v", err)
	}
	if route.ArrivalTime != 250 {
		t.Errorf("arrival: got %d, want 250", route.ArrivalTime)
	}
	if len(route.LegTimes) != 0 {
		t.Errorf("leg times: got %v, want none", route.LegTimes)
	}
}

func TestMatrixPlanner_ShortestPath_NodeOutOfRange_IsNoRoute(t *testing.T) {
	// GIVEN a 3-node planner
	p, _ := NewMatrixPlanner(uniformMatrix(3, 100), 5)

	// WHEN a node beyond the matrix is queried
	_, err := p.ShortestPath(0, 7, 0, ModeDrive)

	// THEN the no-route sentinel comes back
	if !errors.Is(err, ErrNoRoute) {
		t.Errorf("error: got %v, want ErrNoRoute", err)
	}
}

func TestNewMatrixPlanner_RejectsBadInputs(t *testing.T) {
	// GIVEN a non-square matrix
	if _, err := NewMatrixPlanner(mat.NewDense(2, 3, nil), 5); err == nil {
		// THEN construction fails
		t.Error("non-square matrix accepted")
	}
	// GIVEN a walk factor below 1
	if _, err := NewMatrixPlanner(uniformMatrix(2, 100), 0.5); err == nil {
		t.Error("walk factor below 1 accepted")
	}
}

func TestTravelTime_UnreachablePair_ReportsFalse(t *testing.T) {
	// GIVEN an unreachable pair
	m := uniformMatrix(3, 100)
	m.Set(2, 0, math.Inf(1))
	p, _ := NewMatrixPlanner(m, 5)

	// WHEN the duration helper is asked
	_, ok := TravelTime(p, 2, 0, 0, ModeDrive)

	// THEN it reports no route
	if ok {
		t.Error("unreachable pair reported a travel time")
	}
}
