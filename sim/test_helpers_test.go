package sim

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// uniformMatrix builds an n-node travel-time matrix where every distinct
// pair takes base seconds.
func uniformMatrix(n int, base float64) *mat.Dense {
	m := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i != j {
				m.Set(i, j, base)
			}
		}
	}
	return m
}

// newTestSim creates a simulator over a 4-node network with 100s hops.
func newTestSim(horizon int64) *Simulator {
	planner, err := NewMatrixPlanner(uniformMatrix(4, 100), 5)
	if err != nil {
		panic(err)
	}
	return NewSimulator(horizon, planner, 42)
}

// scriptAgent is a minimal agent for kernel tests: it logs every resumption
// as "clock:kind" and runs an optional callback.
type scriptAgent struct {
	proc *Process
	log  []string
	do   func(s *Simulator, out Outcome)
}

func newScriptAgent(id string, do func(s *Simulator, out Outcome)) *scriptAgent {
	return &scriptAgent{proc: NewProcess(id), do: do}
}

func (a *scriptAgent) ID() string        { return a.proc.ID }
func (a *scriptAgent) Process() *Process { return a.proc }

func (a *scriptAgent) Resume(s *Simulator, out Outcome) {
	a.log = append(a.log, fmt.Sprintf("%d:%s", s.Clock, out.Kind))
	if a.do != nil {
		a.do(s, out)
	}
}

func equalLogs(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}
