package sim

import (
	"fmt"

	"github.com/mobility-sim/mobility-sim/sim/trace"
)

// Resource is a capacity-bounded shared facility (station parking slots,
// vehicle seats) with a strict-FIFO wait queue. held never exceeds capacity,
// and the sum of outstanding grant amounts always equals held; violations
// panic because they indicate a kernel bug.
type Resource struct {
	name     string
	capacity int
	held     int
	queue    []*Ticket
}

// Ticket is a pending acquisition waiting in a resource queue.
type Ticket struct {
	resource *Resource
	agent    Agent
	amount   int
	// deadline is the withdrawal timeout, nil for unbounded patience.
	deadline  *EventHandle
	granted   bool
	withdrawn bool
}

// Grant is the reservation token returned by a successful acquisition.
// Releasing it frees the amount and immediately retries the queue head.
type Grant struct {
	resource *Resource
	agent    Agent
	amount   int
	released bool
}

// Amount returns the granted amount.
func (g *Grant) Amount() int { return g.amount }

// NewResource creates a resource with the given capacity.
func NewResource(name string, capacity int) *Resource {
	if capacity < 0 {
		panic(fmt.Sprintf("sim: resource %q with negative capacity %d", name, capacity))
	}
	return &Resource{name: name, capacity: capacity}
}

func (r *Resource) Name() string  { return r.name }
func (r *Resource) Capacity() int { return r.capacity }
func (r *Resource) Held() int     { return r.held }
func (r *Resource) QueueLen() int { return len(r.queue) }

// Acquire requests n units. If they fit, the grant is returned immediately
// and the caller continues without suspending. Otherwise the request joins
// the FIFO queue, nil is returned, and the caller must suspend; it will be
// resumed with OutcomeGranted when capacity frees.
//
// A request larger than the total capacity can never be satisfied; the
// caller is resumed with OutcomeDenied at the current tick instead of
// starving the queue forever.
func (r *Resource) Acquire(s *Simulator, ag Agent, n int) *Grant {
	return r.acquire(s, ag, n, nil)
}

// AcquireWithin is Acquire with bounded patience: if the request is still
// queued at the deadline it is withdrawn and the caller is resumed with
// OutcomeDenied. A withdrawn request is never granted afterwards.
func (r *Resource) AcquireWithin(s *Simulator, ag Agent, n int, deadline int64) *Grant {
	return r.acquire(s, ag, n, &deadline)
}

func (r *Resource) acquire(s *Simulator, ag Agent, n int, deadline *int64) *Grant {
	if n <= 0 {
		panic(fmt.Sprintf("sim: acquire of %d units from %q", n, r.name))
	}
	if n > r.capacity {
		s.Trace.RecordResource(trace.ResourceRecord{
			Clock: s.Clock, AgentID: ag.ID(), Resource: r.name,
			Amount: n, Outcome: trace.ResourceDenied,
		})
		s.WakeAt(s.Clock, ag, Outcome{Kind: OutcomeDenied})
		return nil
	}
	if r.held+n <= r.capacity && len(r.queue) == 0 {
		return r.grantTo(s, ag, n)
	}
	ticket := &Ticket{resource: r, agent: ag, amount: n}
	if deadline != nil {
		ticket.deadline = s.Schedule(&resourceTimeoutEvent{
			BaseEvent: s.newBase(*deadline),
			ticket:    ticket,
		})
	}
	r.queue = append(r.queue, ticket)
	ag.Process().ticket = ticket
	return nil
}

// TryAcquire grants n units only if they fit right now and nobody is queued
// ahead; it never enqueues. Used at commit points that must not suspend,
// e.g. a vehicle boarding a rider during a stop.
func (r *Resource) TryAcquire(s *Simulator, ag Agent, n int) *Grant {
	if n <= 0 {
		panic(fmt.Sprintf("sim: acquire of %d units from %q", n, r.name))
	}
	if r.held+n > r.capacity || len(r.queue) > 0 {
		s.Trace.RecordResource(trace.ResourceRecord{
			Clock: s.Clock, AgentID: ag.ID(), Resource: r.name,
			Amount: n, Outcome: trace.ResourceDenied,
		})
		return nil
	}
	return r.grantTo(s, ag, n)
}

// grantTo increments held and hands out a token; the capacity check is the
// load-bearing invariant.
func (r *Resource) grantTo(s *Simulator, ag Agent, n int) *Grant {
	if r.held+n > r.capacity {
		panic(fmt.Sprintf("sim: resource %q would hold %d of %d", r.name, r.held+n, r.capacity))
	}
	r.held += n
	g := &Grant{resource: r, agent: ag, amount: n}
	ag.Process().addGrant(g)
	s.Trace.RecordResource(trace.ResourceRecord{
		Clock: s.Clock, AgentID: ag.ID(), Resource: r.name,
		Amount: n, Outcome: trace.ResourceGranted,
	})
	return g
}

// Release returns a grant's units and then repeatedly examines the queue
// head: the head is granted iff it fits in the freed capacity. Strict FIFO —
// the queue is never reordered to pack smaller later requests ahead of an
// unsatisfiable head. Releasing twice is a no-op, so supersede cleanup can
// release unconditionally.
func (r *Resource) Release(s *Simulator, g *Grant) {
	if g.released {
		return
	}
	g.released = true
	r.held -= g.amount
	if r.held < 0 {
		panic(fmt.Sprintf("sim: resource %q held went negative", r.name))
	}
	g.agent.Process().dropGrant(g)
	s.Trace.RecordResource(trace.ResourceRecord{
		Clock: s.Clock, AgentID: g.agent.ID(), Resource: r.name,
		Amount: g.amount, Outcome: trace.ResourceReleased,
	})
	r.drain(s)
}

// drain grants from the queue head while the head fits.
func (r *Resource) drain(s *Simulator) {
	for len(r.queue) > 0 {
		head := r.queue[0]
		if r.held+head.amount > r.capacity {
			return
		}
		r.queue = r.queue[1:]
		head.granted = true
		if head.deadline != nil {
			head.deadline.Cancel()
			head.deadline = nil
		}
		head.agent.Process().ticket = nil
		g := r.grantTo(s, head.agent, head.amount)
		s.WakeAt(s.Clock, head.agent, Outcome{Kind: OutcomeGranted, Grant: g})
	}
}

// Cancel withdraws a queued request before grant. Error-free: cancelling a
// granted or already-withdrawn ticket is a no-op.
func (r *Resource) Cancel(t *Ticket) {
	if t == nil || t.granted || t.withdrawn {
		return
	}
	t.withdrawn = true
	if t.deadline != nil {
		t.deadline.Cancel()
		t.deadline = nil
	}
	t.agent.Process().ticket = nil
	for i, queued := range r.queue {
		if queued == t {
			r.queue = append(r.queue[:i], r.queue[i+1:]...)
			break
		}
	}
}

// timeout withdraws a still-queued ticket at its deadline and resumes the
// requester with a denied outcome.
func (r *Resource) timeout(s *Simulator, t *Ticket) {
	if t.granted || t.withdrawn {
		return
	}
	t.withdrawn = true
	t.deadline = nil
	t.agent.Process().ticket = nil
	for i, queued := range r.queue {
		if queued == t {
			r.queue = append(r.queue[:i], r.queue[i+1:]...)
			break
		}
	}
	s.Trace.RecordResource(trace.ResourceRecord{
		Clock: s.Clock, AgentID: t.agent.ID(), Resource: r.name,
		Amount: t.amount, Outcome: trace.ResourceTimedOut,
	})
	t.agent.Resume(s, Outcome{Kind: OutcomeDenied})
}
