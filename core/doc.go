// Package core provides the foundational domain types and collaborator
// contracts of a biosphere:
//
//   - Signals (immutable natural-language utterances plus their pheromone vector)
//   - Receptor fields (what an agent listens for)
//   - Agents (perceive / emit units addressed by stable id)
//   - Backends (embedding + chat language-model collaborators)
//   - Spawner operations, blueprints and environments
//
// The package keeps routing, learning and convergence logic out of scope so
// collaborators can be implemented without importing the engine.
package core
