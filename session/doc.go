// Package session provides SessionStore implementations for persisting
// conversational sessions (state plus ordered event history).
//
// Two stores are included:
//
//   - InMemoryStore: volatile, process-local, suited for tests and demos
//   - SQLiteStore: durable single-file store using WAL journaling, suited
//     for a long-lived assistant daemon surviving restarts
//
// Both implement core.SessionStore and return cloned sessions so callers
// can never mutate internal state by accident.
package session
