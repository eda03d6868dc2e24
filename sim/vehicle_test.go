package sim

import "testing"

// dispatcherStub schedules plan replacements from inside the event loop.
type dispatcherStub struct {
	proc *Process
	do   func(s *Simulator)
}

func newDispatcherStub(do func(s *Simulator)) *dispatcherStub {
	return &dispatcherStub{proc: NewProcess("dispatcher"), do: do}
}

func (d *dispatcherStub) ID() string        { return d.proc.ID }
func (d *dispatcherStub) Process() *Process { return d.proc }
func (d *dispatcherStub) Resume(s *Simulator, out Outcome) {
	if d.do != nil {
		d.do(s)
	}
}

func TestVehicle_ReplacePlan_MidMove_CompletesCommittedLegFirst(t *testing.T) {
	// GIVEN a vehicle sent to node 3 (100s away)
	s := newTestSim(1000)
	v := NewVehicle("veh-0", 0, 4, 30)
	s.Introduce(0, v)
	starter := newDispatcherStub(func(sm *Simulator) {
		sm.ReplacePlan(v, NewPlan([]Step{{Kind: StepMove, Location: 3}}))
	})
	s.Introduce(0, starter)

	// WHEN its plan is replaced mid-move at t=50 with a trip to node 1
	replacer := newDispatcherStub(func(sm *Simulator) {
		sm.ReplacePlan(v, NewPlan([]Step{{Kind: StepMove, Location: 1}}))
	})
	replacer.proc.ID = "replacer"
	s.WakeAt(50, replacer, Outcome{Kind: OutcomeElapsed})
	s.Run()

	// THEN the departed leg completed before the new plan took effect
	if len(s.Trace.Positions) != 2 {
		t.Fatalf("position records: got %d, want 2", len(s.Trace.Positions))
	}
	first, second := s.Trace.Positions[0], s.Trace.Positions[1]
	if first.Clock != 100 || first.From != 0 || first.To != 3 {
		t.Errorf("first leg: got t=%d %d->%d, want t=100 0->3", first.Clock, first.From, first.To)
	}
	if second.Clock != 200 || second.From != 3 || second.To != 1 {
		t.Errorf("second leg: got t=%d %d->%d, want t=200 3->1", second.Clock, second.From, second.To)
	}
	if v.Position != 1 {
		t.Errorf("final position: got %d, want 1", v.Position)
	}
	if v.proc.State != StateIdle {
		t.Errorf("final state: got %s, want %s", v.proc.State, StateIdle)
	}
}

func TestVehicle_ReplacePlan_DuringDwell_AbortsPickupWithoutSideEffects(t *testing.T) {
	// GIVEN a vehicle dwelling before a pickup at its own node
	s := newTestSim(1000)
	v := NewVehicle("veh-0", 0, 4, 30)
	rider := newScriptAgent("rider-0", nil)
	req := &TripRequest{ID: "r1", Rider: "rider-0", Origin: 0, Destination: 2, Status: RequestPending}
	s.SubmitRequest(req)
	s.Introduce(0, rider)
	s.Introduce(0, v)
	starter := newDispatcherStub(func(sm *Simulator) {
		sm.ReplacePlan(v, NewPlan([]Step{
			{Kind: StepPickup, Location: 0, RequestID: "r1"},
			{Kind: StepDropoff, Location: 2, RequestID: "r1"},
		}))
	})
	s.Introduce(0, starter)

	// WHEN the plan is revoked at t=10, inside the 30s dwell
	replacer := newDispatcherStub(func(sm *Simulator) {
		sm.ReplacePlan(v, NewPlan(nil))
	})
	replacer.proc.ID = "replacer"
	s.WakeAt(10, replacer, Outcome{Kind: OutcomeElapsed})
	s.Run()

	// THEN the boarding never happened
	if req.Boarded {
		t.Error("rider boarded from a revoked plan")
	}
	if v.Seats.Held() != 0 {
		t.Errorf("seats held: got %d, want 0", v.Seats.Held())
	}
	if v.proc.State != StateIdle {
		t.Errorf("state: got %s, want %s", v.proc.State, StateIdle)
	}
	if len(rider.log) != 0 {
		t.Errorf("rider signalled: log %v", rider.log)
	}
}

func TestVehicle_ReplacePlan_SameTickAsSlotGrant_ReleasesTheGrant(t *testing.T) {
	// GIVEN a one-slot station whose slot is held and a vehicle queued for it
	s := newTestSim(2000)
	op := NewOperator("op-0", 100000, nil)
	station := NewStation("station-1", 1, 1)
	op.AddStation(station)
	v := NewVehicle("veh-0", 1, 4, 30)
	op.AddVehicle(v)
	s.Introduce(0, station)
	s.Introduce(0, v)
	holder := newScriptAgent("holder", nil)
	s.Introduce(0, holder)
	var held *Grant
	starter := newDispatcherStub(func(sm *Simulator) {
		held = station.Slots.Acquire(sm, holder, 1)
		sm.ReplacePlan(v, NewPlan([]Step{{Kind: StepReposition, Location: 1}}))
	})
	s.Introduce(0, starter)

	// WHEN the slot frees at t=100 and the plan is revoked later in the
	// same tick, after the grant wake-up was already scheduled
	freer := newDispatcherStub(func(sm *Simulator) {
		station.Slots.Release(sm, held)
	})
	freer.proc.ID = "freer"
	s.WakeAt(100, freer, Outcome{Kind: OutcomeElapsed})
	replacer := newDispatcherStub(func(sm *Simulator) {
		sm.ReplacePlan(v, NewPlan(nil))
	})
	replacer.proc.ID = "replacer"
	s.WakeAt(100, replacer, Outcome{Kind: OutcomeElapsed})
	s.Run()

	// THEN the undelivered grant was returned, not leaked
	if station.Slots.Held() != 0 {
		t.Errorf("slots held: got %d, want 0", station.Slots.Held())
	}
	if v.slotGrant != nil {
		t.Error("revoked vehicle kept a slot grant")
	}
	if v.proc.Holds() != 0 {
		t.Errorf("process holds: got %d, want 0", v.proc.Holds())
	}
	if v.proc.State != StateIdle {
		t.Errorf("state: got %s, want %s", v.proc.State, StateIdle)
	}
}

func TestVehicle_ExecutePlan_PickupThenDropoff_ServesRequest(t *testing.T) {
	// GIVEN a vehicle at node 0 and a request from node 1 to node 2
	s := newTestSim(1000)
	v := NewVehicle("veh-0", 0, 4, 30)
	rider := newScriptAgent("rider-0", nil)
	req := &TripRequest{ID: "r1", Rider: "rider-0", Origin: 1, Destination: 2, Status: RequestPending}
	s.SubmitRequest(req)
	s.Introduce(0, rider)
	s.Introduce(0, v)
	starter := newDispatcherStub(func(sm *Simulator) {
		sm.ReplacePlan(v, NewPlan([]Step{
			{Kind: StepPickup, Location: 1, RequestID: "r1"},
			{Kind: StepDropoff, Location: 2, RequestID: "r1"},
		}))
	})
	s.Introduce(0, starter)

	// WHEN the plan runs to completion
	s.Run()

	// THEN pickup at 130 (100 travel + 30 dwell), dropoff at 260
	if req.Status != RequestServed {
		t.Fatalf("status: got %s, want %s", req.Status, RequestServed)
	}
	if req.PickupTime != 130 {
		t.Errorf("pickup time: got %d, want 130", req.PickupTime)
	}
	if req.DropoffTime != 260 {
		t.Errorf("dropoff time: got %d, want 260", req.DropoffTime)
	}
	if v.Seats.Held() != 0 {
		t.Errorf("seats held after dropoff: got %d, want 0", v.Seats.Held())
	}
	if !equalLogs(rider.log, []string{"130:signal", "260:signal"}) {
		t.Errorf("rider log: got %v, want pickup and dropoff signals", rider.log)
	}
}

func TestVehicle_CommitPickup_TerminalRequest_SkippedWithoutBoarding(t *testing.T) {
	// GIVEN a pickup plan for a request withdrawn before arrival
	s := newTestSim(1000)
	v := NewVehicle("veh-0", 0, 4, 30)
	rider := newScriptAgent("rider-0", nil)
	req := &TripRequest{ID: "r1", Rider: "rider-0", Origin: 1, Destination: 2, Status: RequestPending}
	s.SubmitRequest(req)
	s.Introduce(0, rider)
	s.Introduce(0, v)
	starter := newDispatcherStub(func(sm *Simulator) {
		sm.ReplacePlan(v, NewPlan([]Step{
			{Kind: StepPickup, Location: 1, RequestID: "r1"},
			{Kind: StepDropoff, Location: 2, RequestID: "r1"},
		}))
	})
	s.Introduce(0, starter)
	canceller := newDispatcherStub(func(sm *Simulator) {
		req.MarkRejected(sm, "withdrawn")
	})
	canceller.proc.ID = "canceller"
	s.WakeAt(50, canceller, Outcome{Kind: OutcomeElapsed})

	// WHEN the vehicle arrives and commits the pickup step
	s.Run()

	// THEN nothing boarded and the dropoff was a no-op
	if req.Boarded {
		t.Error("terminal request boarded")
	}
	if v.Seats.Held() != 0 {
		t.Errorf("seats held: got %d, want 0", v.Seats.Held())
	}
	if len(rider.log) != 0 {
		t.Errorf("rider signalled: log %v", rider.log)
	}
}

func TestVehicle_CommitPickup_FullSeats_RequestBackToPending(t *testing.T) {
	// GIVEN a single-seat vehicle already carrying a rider
	s := newTestSim(1000)
	v := NewVehicle("veh-0", 0, 1, 30)
	riderA := newScriptAgent("rider-a", nil)
	riderB := newScriptAgent("rider-b", nil)
	reqA := &TripRequest{ID: "ra", Rider: "rider-a", Origin: 1, Destination: 3, Status: RequestPending}
	reqB := &TripRequest{ID: "rb", Rider: "rider-b", Origin: 2, Destination: 3, Status: RequestAssigned}
	s.SubmitRequest(reqA)
	s.SubmitRequest(reqB)
	s.Introduce(0, riderA)
	s.Introduce(0, riderB)
	s.Introduce(0, v)
	starter := newDispatcherStub(func(sm *Simulator) {
		sm.ReplacePlan(v, NewPlan([]Step{
			{Kind: StepPickup, Location: 1, RequestID: "ra"},
			{Kind: StepPickup, Location: 2, RequestID: "rb"},
			{Kind: StepDropoff, Location: 3, RequestID: "ra"},
			{Kind: StepDropoff, Location: 3, RequestID: "rb"},
		}))
	})
	s.Introduce(0, starter)

	// WHEN the second pickup hits the seat limit
	s.Run()

	// THEN the displaced request went back to pending, the first was served
	if reqA.Status != RequestServed {
		t.Errorf("reqA status: got %s, want %s", reqA.Status, RequestServed)
	}
	if reqB.Status != RequestPending {
		t.Errorf("reqB status: got %s, want %s", reqB.Status, RequestPending)
	}
	if reqB.Boarded {
		t.Error("reqB boarded a full vehicle")
	}
}

func TestVehicle_Dock_StationFull_DeniedAfterPatienceAndMovesOn(t *testing.T) {
	// GIVEN a one-slot station at node 1 and two repositioning vehicles
	s := newTestSim(2000)
	op := NewOperator("op-0", 100000, nil)
	station := NewStation("station-1", 1, 1)
	op.AddStation(station)
	v1 := NewVehicle("veh-0", 0, 4, 30)
	v2 := NewVehicle("veh-1", 0, 4, 30)
	op.AddVehicle(v1)
	op.AddVehicle(v2)
	s.Introduce(0, station)
	s.Introduce(0, v1)
	s.Introduce(0, v2)
	starter := newDispatcherStub(func(sm *Simulator) {
		sm.ReplacePlan(v1, NewPlan([]Step{{Kind: StepReposition, Location: 1}}))
		sm.ReplacePlan(v2, NewPlan([]Step{{Kind: StepReposition, Location: 1}}))
	})
	s.Introduce(0, starter)

	// WHEN both arrive at t=100 and only one slot exists
	s.Run()

	// THEN the first docked, the second was denied at its patience deadline
	if station.Slots.Held() != 1 {
		t.Errorf("slots held: got %d, want 1", station.Slots.Held())
	}
	if v1.slotGrant == nil {
		t.Error("first vehicle did not dock")
	}
	if v2.slotGrant != nil {
		t.Error("second vehicle docked into a full station")
	}
	if v2.proc.State != StateIdle {
		t.Errorf("second vehicle state: got %s, want %s", v2.proc.State, StateIdle)
	}
	timedOut := 0
	for _, rec := range s.Trace.Resources {
		if rec.Outcome == "timed-out" && rec.AgentID == "veh-1" {
			timedOut++
		}
	}
	if timedOut != 1 {
		t.Errorf("timed-out records for veh-1: got %d, want 1", timedOut)
	}
}
