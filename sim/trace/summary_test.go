package trace

import "testing"

func TestSummarize_FoldsRequestOutcomesAndTimes(t *testing.T) {
	// GIVEN a trace with one served, one rejected and one open request
	st := NewSimulationTrace(Config{})
	st.RecordRequestStatus(RequestStatusRecord{Clock: 0, RequestID: "a", Status: "pending", Direct: 100})
	st.RecordRequestStatus(RequestStatusRecord{Clock: 100, RequestID: "a", Status: "assigned"})
	st.RecordRequestStatus(RequestStatusRecord{Clock: 400, RequestID: "a", Status: "served"})
	st.RecordRequestStatus(RequestStatusRecord{Clock: 50, RequestID: "b", Status: "pending"})
	st.RecordRequestStatus(RequestStatusRecord{Clock: 950, RequestID: "b", Status: "rejected"})
	st.RecordRequestStatus(RequestStatusRecord{Clock: 60, RequestID: "c", Status: "pending"})
	st.RecordPlanStep(PlanStepRecord{Clock: 200, AgentID: "veh-0", Kind: "pickup", RequestID: "a"})
	st.RecordPlanStep(PlanStepRecord{Clock: 400, AgentID: "veh-0", Kind: "dropoff", RequestID: "a"})
	st.RecordResource(ResourceRecord{Clock: 10, Outcome: ResourceDenied})
	st.RecordResource(ResourceRecord{Clock: 20, Outcome: ResourceTimedOut})
	st.RecordResource(ResourceRecord{Clock: 30, Outcome: ResourceGranted})
	st.RecordPosition(PositionRecord{Clock: 200, AgentID: "veh-0", Duration: 120})
	st.RecordPosition(PositionRecord{Clock: 400, AgentID: "veh-0", Duration: 80})

	// WHEN the trace is summarized
	s := Summarize(st)

	// THEN counts, means and totals match the records
	if s.ServedRequests != 1 || s.RejectedRequests != 1 || s.OpenRequests != 1 {
		t.Errorf("outcome counts: got %d/%d/%d, want 1/1/1",
			s.ServedRequests, s.RejectedRequests, s.OpenRequests)
	}
	if s.MeanWaitTime != 200 {
		t.Errorf("mean wait: got %f, want 200 (submit 0, pickup 200)", s.MeanWaitTime)
	}
	if s.MeanRideTime != 200 {
		t.Errorf("mean ride: got %f, want 200 (pickup 200, dropoff 400)", s.MeanRideTime)
	}
	if s.MeanDetourRatio != 2 {
		t.Errorf("detour ratio: got %f, want 2 (ride 200, direct 100)", s.MeanDetourRatio)
	}
	if s.TotalRideTime != 200 {
		t.Errorf("total ride time: got %d, want 200", s.TotalRideTime)
	}
	if s.ResourceDenials != 1 || s.ResourceTimeouts != 1 {
		t.Errorf("resource counts: got %d/%d, want 1/1", s.ResourceDenials, s.ResourceTimeouts)
	}
	if s.TravelTime["veh-0"] != 200 {
		t.Errorf("travel time: got %d, want 200", s.TravelTime["veh-0"])
	}
}

func TestSimulationTrace_LevelNone_RecordsNothing(t *testing.T) {
	// GIVEN a collector with tracing disabled
	st := NewSimulationTrace(Config{Level: LevelNone})

	// WHEN records arrive
	st.RecordPosition(PositionRecord{Clock: 1})
	st.RecordResource(ResourceRecord{Clock: 2})
	st.RecordPlanStep(PlanStepRecord{Clock: 3})
	st.RecordRequestStatus(RequestStatusRecord{Clock: 4})

	// THEN nothing is kept
	if len(st.Positions)+len(st.Resources)+len(st.PlanSteps)+len(st.Statuses) != 0 {
		t.Error("disabled trace retained records")
	}
}

func TestIsValidLevel_RejectsUnknownNames(t *testing.T) {
	// GIVEN the recognized levels
	for _, level := range []string{"none", "transitions", ""} {
		if !IsValidLevel(level) {
			t.Errorf("level %q rejected", level)
		}
	}
	// WHEN an unknown name is checked THEN it is rejected
	if IsValidLevel("verbose") {
		t.Error("unknown level accepted")
	}
}
