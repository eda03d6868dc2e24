package sim

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Mode selects the network a move uses.
type Mode string

const (
	ModeWalk  Mode = "walk"
	ModeDrive Mode = "drive"
)

// Route is the answer of the shortest-path oracle: arrival time for the
// given departure, generalized cost, and the node geometry of the path.
type Route struct {
	ArrivalTime int64
	Cost        float64
	Geometry    []int
	// LegTimes[i] is the travel time of the leg ending at Geometry[i+1].
	LegTimes []int64
}

// ErrNoRoute is returned when the destination is unreachable.
var ErrNoRoute = errors.New("no feasible route")

// RoutePlanner is the routing collaborator consumed by the kernel. It is
// synchronous and non-suspending: from the kernel's viewpoint a call is pure
// computation at the current clock.
type RoutePlanner interface {
	ShortestPath(origin, destination int, departure int64, mode Mode) (Route, error)
}

// MatrixPlanner answers shortest-path queries from a precomputed node-to-node
// drive-time matrix, the form dispatch studies usually feed the kernel.
// Walk times are drive times scaled by a constant factor. An infinite entry
// means unreachable.
type MatrixPlanner struct {
	times      *mat.Dense
	walkFactor float64
}

// NewMatrixPlanner wraps a square drive-time matrix. walkFactor scales drive
// times into walk times and must be >= 1.
func NewMatrixPlanner(times *mat.Dense, walkFactor float64) (*MatrixPlanner, error) {
	r, c := times.Dims()
	if r != c {
		return nil, fmt.Errorf("travel-time matrix must be square, got %dx%d", r, c)
	}
	if walkFactor < 1 {
		return nil, fmt.Errorf("walk factor must be >= 1, got %f", walkFactor)
	}
	return &MatrixPlanner{times: times, walkFactor: walkFactor}, nil
}

// Nodes returns the number of nodes the matrix covers.
func (p *MatrixPlanner) Nodes() int {
	n, _ := p.times.Dims()
	return n
}

// ShortestPath implements RoutePlanner over the matrix. The geometry is the
// single origin-destination leg; matrix entries already encode the path.
func (p *MatrixPlanner) ShortestPath(origin, destination int, departure int64, mode Mode) (Route, error) {
	n := p.Nodes()
	if origin < 0 || origin >= n || destination < 0 || destination >= n {
		return Route{}, fmt.Errorf("node out of range (origin=%d destination=%d n=%d): %w",
			origin, destination, n, ErrNoRoute)
	}
	if origin == destination {
		return Route{ArrivalTime: departure, Geometry: []int{origin}}, nil
	}
	t := p.times.At(origin, destination)
	if math.IsInf(t, 1) || t < 0 {
		return Route{}, fmt.Errorf("unreachable %d->%d: %w", origin, destination, ErrNoRoute)
	}
	if mode == ModeWalk {
		t *= p.walkFactor
	}
	dur := int64(t)
	return Route{
		ArrivalTime: departure + dur,
		Cost:        t,
		Geometry:    []int{origin, destination},
		LegTimes:    []int64{dur},
	}, nil
}

// TravelTime is a convenience for cost queries that only need the duration.
// The boolean is false when no route exists.
func TravelTime(p RoutePlanner, origin, destination int, departure int64, mode Mode) (int64, bool) {
	route, err := p.ShortestPath(origin, destination, departure, mode)
	if err != nil {
		return 0, false
	}
	return route.ArrivalTime - departure, true
}
