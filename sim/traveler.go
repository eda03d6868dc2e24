package sim

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/mobility-sim/mobility-sim/sim/trace"
)

type travelerPhase int

const (
	phaseWaiting travelerPhase = iota
	phaseRiding
	phaseRetrying
	phaseWalking
)

// Traveler is a rider: it submits a trip request to its operator, waits with
// bounded patience, rides when picked up, and on failure retries up to a
// budget before falling back to walking. The traveler never drives the
// vehicle's plan; it only reacts to pickup/dropoff signals and to its own
// timers.
type Traveler struct {
	proc *Process

	Position    int
	Origin      int
	Destination int

	// Patience bounds the wait for a pickup before the request is withdrawn.
	Patience int64
	// MaxTries is the total number of submission attempts.
	MaxTries int
	// FailTimeout is the pause between a failed attempt and the next one.
	FailTimeout int64
	// WalkFallback walks the trip when every attempt failed.
	WalkFallback bool

	operator *Operator
	baseID   string
	request  *TripRequest
	tries    int
	phase    travelerPhase

	// time windows copied onto each attempt, relative to submission.
	PickupWindow  int64
	DropoffWindow int64
}

// NewTraveler creates a rider for a single origin-destination trip. requestID
// seeds the IDs of its submission attempts.
func NewTraveler(id, requestID string, origin, destination int) *Traveler {
	return &Traveler{
		proc:         NewProcess(id),
		Position:     origin,
		Origin:       origin,
		Destination:  destination,
		Patience:     1800,
		MaxTries:     1,
		FailTimeout:  120,
		WalkFallback: true,
		baseID:       requestID,
		// Windows wide enough that patience, not the window, is usually
		// the binding constraint.
		PickupWindow:  1800,
		DropoffWindow: 7200,
	}
}

func (t *Traveler) ID() string        { return t.proc.ID }
func (t *Traveler) Process() *Process { return t.proc }

// Request returns the attempt currently in flight, nil before activation.
func (t *Traveler) Request() *TripRequest { return t.request }

// Resume advances the rider through its trip.
func (t *Traveler) Resume(s *Simulator, out Outcome) {
	switch out.Kind {
	case OutcomeStart:
		t.proc.State = StateWaiting
		t.submitAttempt(s)
	case OutcomeSignal:
		t.onSignal(s)
	case OutcomeElapsed:
		t.onTimer(s)
	}
}

// submitAttempt files a fresh request with the operator and arms the
// patience timer. Each attempt gets a derived ID so the trace keeps them
// apart.
func (t *Traveler) submitAttempt(s *Simulator) {
	t.tries++
	id := t.baseID
	if t.tries > 1 {
		id = fmt.Sprintf("%s#%d", t.baseID, t.tries)
	}
	req := &TripRequest{
		ID:             id,
		Rider:          t.ID(),
		Origin:         t.Origin,
		Destination:    t.Destination,
		EarliestPickup: s.Clock,
		LatestPickup:   s.Clock + t.PickupWindow,
		LatestDropoff:  s.Clock + t.DropoffWindow,
		Status:         RequestPending,
	}
	if dur, ok := TravelTime(s.Planner, t.Origin, t.Destination, s.Clock, ModeDrive); ok {
		req.DirectTravelTime = dur
	}
	t.request = req
	t.phase = phaseWaiting
	s.SubmitRequest(req)
	if t.operator != nil {
		t.operator.Submit(s, req)
	}
	s.WakeAt(s.Clock+t.Patience, t, Outcome{Kind: OutcomeElapsed})
}

// onSignal handles a vehicle or operator notification: boarding, arrival, or
// rejection. Which one is read off the request state, not the signal.
func (t *Traveler) onSignal(s *Simulator) {
	switch {
	case t.phase == phaseWaiting && t.request.Boarded:
		// Picked up; the seat grant lives on the vehicle, the rider just
		// waits for the dropoff signal.
		t.phase = phaseRiding
	case t.phase == phaseRiding && t.request.Status == RequestServed:
		t.Position = t.request.Destination
		t.finish(s)
	case t.phase == phaseWaiting && t.request.Terminal():
		t.attemptFailed(s)
	}
}

// onTimer fires for patience expiry while waiting or for the backoff before
// a retry.
func (t *Traveler) onTimer(s *Simulator) {
	switch t.phase {
	case phaseWaiting:
		// Patience exhausted: withdraw the request. A vehicle already en
		// route sees the terminal status at its pickup commit and skips.
		if !t.request.Terminal() {
			t.request.MarkRejected(s, "patience exhausted")
		}
		t.attemptFailed(s)
	case phaseRetrying:
		t.proc.State = StateWaiting
		t.submitAttempt(s)
	case phaseWalking:
		t.Position = t.Destination
		t.finish(s)
	}
}

// attemptFailed retries after a backoff while tries remain, then walks if a
// walk route exists, otherwise ends the trip unserved.
func (t *Traveler) attemptFailed(s *Simulator) {
	if t.tries < t.MaxTries {
		t.phase = phaseRetrying
		s.WakeAt(s.Clock+t.FailTimeout, t, Outcome{Kind: OutcomeElapsed})
		return
	}
	if t.WalkFallback {
		if route, err := s.Planner.ShortestPath(t.Position, t.Destination, s.Clock, ModeWalk); err == nil {
			dur := route.ArrivalTime - s.Clock
			t.phase = phaseWalking
			t.proc.State = StateMoving
			s.Trace.RecordPosition(trace.PositionRecord{
				Clock: s.Clock, AgentID: t.ID(), From: t.Position,
				To: t.Destination, Mode: string(ModeWalk), Duration: dur,
			})
			s.WakeAt(route.ArrivalTime, t, Outcome{Kind: OutcomeElapsed})
			return
		}
	}
	logrus.Debugf("[t=%07d] %s: trip abandoned after %d tries", s.Clock, t.ID(), t.tries)
	t.finish(s)
}

func (t *Traveler) finish(s *Simulator) {
	s.Terminate(t)
}
