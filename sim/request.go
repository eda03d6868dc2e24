package sim

import (
	"fmt"

	"github.com/mobility-sim/mobility-sim/sim/trace"
)

// RequestStatus is the lifecycle state of a trip request. rejected and
// served are terminal; further transitions panic because only a kernel bug
// can attempt them.
type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestAssigned RequestStatus = "assigned"
	RequestRejected RequestStatus = "rejected"
	RequestServed   RequestStatus = "served"
)

// TripRequest is a trip demand submitted to an operator. Status transitions
// are driven exclusively by the dispatch optimizer (pending <-> assigned,
// rejected) and the serving vehicle (served).
type TripRequest struct {
	ID    string
	Rider string // requesting agent identity

	Origin      int
	Destination int

	// Service time windows, in simulation seconds.
	EarliestPickup  int64
	LatestPickup    int64
	EarliestDropoff int64
	LatestDropoff   int64

	Status     RequestStatus
	SubmitTime int64

	// Attempts counts dispatch rounds that failed to place the request;
	// past the operator's retry budget the request is rejected.
	Attempts int

	// DirectTravelTime is the no-detour ride duration, set at submission
	// for detour reporting.
	DirectTravelTime int64

	// Boarded flips when the rider takes a seat; an assigned-but-boarded
	// request is pinned to its vehicle and excluded from re-dispatch.
	Boarded bool

	PickupTime  int64
	DropoffTime int64
}

// Terminal reports whether the request reached a final status.
func (r *TripRequest) Terminal() bool {
	return r.Status == RequestRejected || r.Status == RequestServed
}

func (r *TripRequest) transition(s *Simulator, status RequestStatus, reason string) {
	if r.Terminal() {
		panic(fmt.Sprintf("sim: request %s is terminal (%s), cannot become %s", r.ID, r.Status, status))
	}
	r.Status = status
	s.Trace.RecordRequestStatus(trace.RequestStatusRecord{
		Clock: s.Clock, RequestID: r.ID, Status: string(status), Reason: reason,
	})
}

// MarkAssigned records that the optimizer placed the request on a route.
func (r *TripRequest) MarkAssigned(s *Simulator) {
	r.transition(s, RequestAssigned, "")
}

// MarkPending returns the request to the pool, e.g. after its route was
// destroyed or its vehicle's plan superseded before pickup.
func (r *TripRequest) MarkPending(s *Simulator, reason string) {
	r.transition(s, RequestPending, reason)
}

// MarkRejected terminally rejects the request.
func (r *TripRequest) MarkRejected(s *Simulator, reason string) {
	r.transition(s, RequestRejected, reason)
}

// MarkServed terminally completes the request at dropoff.
func (r *TripRequest) MarkServed(s *Simulator) {
	r.DropoffTime = s.Clock
	r.transition(s, RequestServed, "")
}
