// Package logging provides a minimal logging interface and adapters for Jarvis.
//
// The Logger interface defines the standard logging methods (Debug, Info,
// Warn, Error) that the engine, agents and commands use for observability.
// This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - JarvisLogger with contextual helpers (session, dispatch, component)
//   - NoOpLogger for silent operation (testing, minimal setups)
//
// Usage:
//
//	logger := logging.NewSlogLogger(logging.LogLevelInfo, "json", false)
//	eng := engine.New(sessionStore, artifactStore, memoryStore, engine.WithLogger(logger))
//
// The design intentionally keeps the interface minimal to avoid vendor lock-in
// while supporting structured logging where available.
package logging
