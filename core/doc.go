// Package core provides the foundational domain types, interfaces and execution
// contexts used by Jarvis. It defines the core abstractions for:
//
//   - Agents (responders that turn an utterance into reply events)
//   - Sessions (stateful conversational containers with event history)
//   - Events (immutable communication + side-effect records)
//   - RunContext / CommandContext (scoped execution & command sandboxing)
//   - Pluggable stores for session state, artifacts and memory recall/search
//
// The package intentionally keeps implementation concerns (persistence, engine
// orchestration, concrete agents, command handlers) out of scope, exposing
// small interfaces so backends and extensions can be swapped at wiring time.
package core
