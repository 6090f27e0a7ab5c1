// Package logging provides a minimal logging interface and adapters for the biosphere.
//
// The Logger interface defines the standard logging methods (Debug, Info, Warn, Error)
// that the engine, synapses, detector and agents use for observability. This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter and BiosphereLogger over Go's structured logging
//   - ZapAdapter for applications already configured with zap
//   - NoOpLogger for silent operation (testing, minimal setups)
//
// Usage:
//
//	logger := logging.NewSlogLogger(logging.LogLevelInfo, "json", false)
//	eng := engine.New(backend, func(o *engine.Options) { o.Logger = logger })
//
// Messages are dotted event names ("engine.tick.start") followed by key/value
// pairs.
package logging
