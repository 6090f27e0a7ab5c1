// Package agent contains the agent variants that live inside a biosphere.
// The package focuses on three concerns:
//
//  1. Shared identity + perception log + emission watermark (BaseAgent)
//  2. Agent variants behind the one core.Agent interface: ModelAgent
//     (LLM conversational), FuncAgent (programmatic) and DistressObserver
//     (built-in helper trigger)
//  3. The Emit stream plumbing (Stream, Collect)
//
// Agents never talk to each other directly. The engine delivers signals via
// Perceive and drains Emit once per tick; routing, learning and convergence
// stay in the engine, synapse and equilibrium packages.
package agent
