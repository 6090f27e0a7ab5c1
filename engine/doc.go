// Package engine implements the router of a biosphere.
//
// The Engine coordinates a dynamic population of agents that communicate
// only through natural-language signals routed by meaning. Neither the
// topology nor the roster is fixed: synapses form between moderately aligned
// pairs, bridge agents appear between weakly aligned ones and helpers are
// spawned when somebody is stuck.
//
// # Tick loop
//
// Live seeds the population once (distress observer, goal seeding, opening
// scenario signal) and then runs ticks until equilibrium or MaxTicks:
//
//  1. Environment feedback is ingested as "environment" signals.
//  2. Every live agent emits concurrently; each thought is routed before the
//     agent produces its next one.
//  3. Routing embeds the thought, appends it to the history, checks for
//     spawn intent and otherwise resolves and couples recipients.
//  4. The equilibrium detector scores the run.
//  5. On stagnation a system intervention is broadcast and the tick
//     advances; at equilibrium the run stops.
//
// # Coupling
//
// For each recipient the similarity between the pheromone and the cached
// receptor embedding selects one of four tiers:
//
//	┌──────────────┬─────────────────────────────────────────┐
//	│ > 0.8        │ direct delivery                          │
//	│ (0.5, 0.8]   │ delivery through the (from,to) synapse   │
//	│ (0.3, 0.5]   │ no delivery, bridge agent spawn attempt  │
//	│ ≤ 0.3        │ dropped                                  │
//	└──────────────┴─────────────────────────────────────────┘
//
// Signals from the sentinels "external" and "system" are delivered to every
// live agent; "environment" signals go straight to resonant recipients.
//
// # Usage
//
//	eng := engine.New(backend, func(o *engine.Options) {
//	    o.Scenario = "Should the city ban cars from the old town?"
//	    o.Spawner = spawner.New(backend)
//	})
//
//	snapshots, errs := eng.Live(ctx)
//	for snap := range snapshots {
//	    fmt.Println(snap.Tick, snap.Status, len(snap.Signals))
//	}
//	if err := <-errs; err != nil {
//	    return err
//	}
package engine
