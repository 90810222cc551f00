// Package engine implements the orchestration layer of Jarvis.
//
// The Engine is the central coordinator of the command-dispatch loop. It
// owns the agent registry, gates incoming utterances behind the configured
// wake word, spawns bounded concurrent dispatches, persists every
// non-partial event to the session store, applies event side-effects
// (state deltas, artifact deltas, session termination) and records the
// final user/assistant exchange into short-term and long-term memory after
// each turn.
//
// Event flow per dispatch:
//  1. The recognized utterance is persisted as a user event
//  2. Agent execution produces a stream of events
//  3. Event actions are applied to the backing stores
//  4. Events are persisted, forwarded to the client and acknowledged via
//     the resume channel so agents can coordinate multi-step turns
//  5. The completed exchange is written to memory unless skipped
//
// Errors during agent execution surface on the dedicated error channel;
// store failures while processing events terminate the dispatch to avoid
// partial state corruption.
package engine
