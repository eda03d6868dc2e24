// Package sim provides the core discrete-event simulation kernel for
// mobility-sim.
//
// # Reading Guide
//
// Start with these three files to understand the kernel:
//   - event.go: events, handles and cancellation
//   - simulator.go: the clock, the event loop and process resumption
//   - process.go: the agent state-machine contract (Outcome, Process)
//
// # Architecture
//
// Agents (travelers, vehicles, stations, operators) are cooperative state
// machines. They never block: every suspension (timed delay, resource wait,
// plan step) is an event scheduled on the simulator, and every resumption is
// delivered as a tagged Outcome to the agent's Resume method. At most one
// agent executes at a time, so no locks guard simulation state.
//
// Sub-packages:
//   - sim/dispatch/: request-to-route optimizers (periodic greedy, destroy/repair)
//   - sim/demand/: agent introduction streams and demand generation
//   - sim/trace/: state-transition records and KPI summaries
//
// # Key Interfaces
//
//   - Agent: an agent's state machine, resumed with tagged Outcomes
//   - RoutePlanner: the shortest-path oracle (origin, destination, departure -> route)
//   - Optimizer: assigns pending trip requests to vehicle routes
package sim
