package sim

import (
	"testing"
)

func TestSimulator_Schedule_InThePast_Panics(t *testing.T) {
	// GIVEN a simulator whose clock advanced to t=10
	s := newTestSim(1000)
	a := newScriptAgent("A", nil)
	s.WakeAt(10, a, Outcome{Kind: OutcomeElapsed})
	s.Run()
	if s.Clock != 10 {
		t.Fatalf("clock: got %d, want 10", s.Clock)
	}

	// WHEN an event is scheduled before the clock
	defer func() {
		// THEN the kernel panics instead of corrupting the timeline
		if recover() == nil {
			t.Error("scheduling in the past did not panic")
		}
	}()
	s.Schedule(&WakeupEvent{BaseEvent: s.newBase(5), Agent: a})
}

func TestSimulator_Delay_Negative_Panics(t *testing.T) {
	// GIVEN a simulator and an agent
	s := newTestSim(1000)
	a := newScriptAgent("A", nil)

	// WHEN a negative delay is requested
	defer func() {
		// THEN it panics
		if recover() == nil {
			t.Error("negative delay did not panic")
		}
	}()
	s.Delay(-1, a)
}

func TestSimulator_Run_StopsAtHorizon(t *testing.T) {
	// GIVEN wake-ups inside and beyond the horizon
	s := newTestSim(100)
	a := newScriptAgent("A", nil)
	s.WakeAt(50, a, Outcome{Kind: OutcomeElapsed})
	s.WakeAt(150, a, Outcome{Kind: OutcomeElapsed})

	// WHEN the simulation runs
	s.Run()

	// THEN only the in-horizon event fired
	if !equalLogs(a.log, []string{"50:elapsed"}) {
		t.Errorf("log: got %v, want [50:elapsed]", a.log)
	}
}

func TestSimulator_Introduce_RegistersAndStartsAgent(t *testing.T) {
	// GIVEN an agent introduced at t=25
	s := newTestSim(1000)
	a := newScriptAgent("A", nil)
	s.Introduce(25, a)
	if s.GetAgent("A") != nil {
		t.Fatal("agent registered before its introduction time")
	}

	// WHEN the simulation runs
	s.Run()

	// THEN the agent is registered and received the start outcome at t=25
	if s.GetAgent("A") != a {
		t.Error("agent not registered after introduction")
	}
	if !equalLogs(a.log, []string{"25:start"}) {
		t.Errorf("log: got %v, want [25:start]", a.log)
	}
}

func TestSimulator_Introduce_DuplicateID_Panics(t *testing.T) {
	// GIVEN two agents sharing one identity, both introduced
	s := newTestSim(1000)
	s.Introduce(0, newScriptAgent("A", nil))
	s.Introduce(1, newScriptAgent("A", nil))

	// WHEN the simulation runs
	defer func() {
		// THEN registration of the duplicate panics
		if recover() == nil {
			t.Error("duplicate agent id did not panic")
		}
	}()
	s.Run()
}

func TestSimulator_Terminate_DiscardsStaleWakeupAndReleasesGrants(t *testing.T) {
	// GIVEN an agent holding a grant with a pending timer
	s := newTestSim(1000)
	res := NewResource("slots", 2)
	a := newScriptAgent("A", nil)
	res.Acquire(s, a, 2)
	s.WakeAt(40, a, Outcome{Kind: OutcomeElapsed})

	// WHEN the agent is terminated and the simulation runs on
	s.Terminate(a)
	s.Run()

	// THEN the timer never fired and the capacity was returned
	for _, entry := range a.log {
		if entry == "40:elapsed" {
			t.Error("stale wake-up fired after termination")
		}
	}
	if res.Held() != 0 {
		t.Errorf("held after termination: got %d, want 0", res.Held())
	}
	if a.proc.State != StateDone {
		t.Errorf("state: got %s, want %s", a.proc.State, StateDone)
	}
}

func TestSimulator_SignalAgent_ReplacesPendingTimer(t *testing.T) {
	// GIVEN an agent sleeping until t=500
	s := newTestSim(1000)
	a := newScriptAgent("A", nil)
	s.WakeAt(500, a, Outcome{Kind: OutcomeElapsed})
	signaler := newScriptAgent("B", func(sm *Simulator, out Outcome) {
		if out.Kind == OutcomeElapsed {
			sm.SignalAgent(a)
		}
	})
	s.WakeAt(100, signaler, Outcome{Kind: OutcomeElapsed})

	// WHEN another process signals it at t=100
	s.Run()

	// THEN the agent woke once, with the signal, and the timer was dropped
	if !equalLogs(a.log, []string{"100:signal"}) {
		t.Errorf("log: got %v, want [100:signal]", a.log)
	}
}

func TestSimulator_Run_IsDeterministic(t *testing.T) {
	// GIVEN a scenario with interleaved timers and resource waits
	run := func() []string {
		s := newTestSim(1000)
		res := NewResource("slots", 1)
		var agentA, agentB *scriptAgent
		agentA = newScriptAgent("A", func(sm *Simulator, out Outcome) {
			switch out.Kind {
			case OutcomeStart:
				res.Acquire(sm, agentA, 1)
				sm.Delay(30, agentA)
			case OutcomeElapsed:
				sm.Terminate(agentA)
			}
		})
		agentB = newScriptAgent("B", func(sm *Simulator, out Outcome) {
			if out.Kind == OutcomeStart {
				res.Acquire(sm, agentB, 1)
			}
		})
		s.Introduce(0, agentA)
		s.Introduce(0, agentB)
		s.Run()
		return append(append([]string{}, agentA.log...), agentB.log...)
	}

	// WHEN the same scenario runs twice
	first := run()
	second := run()

	// THEN the observable event sequences are identical
	if !equalLogs(first, second) {
		t.Errorf("runs diverged:\n first=%v\nsecond=%v", first, second)
	}
}
