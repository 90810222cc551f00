// Package memory contains concrete MemoryStore implementations plus the
// short-term exchange buffer. The store interface and SearchResult type
// reside in the core package. Import github.com/oppositecube/jarvis/core and
// depend on core.MemoryStore in your code; select an implementation (the
// in-memory store or the JSON file store below) at wiring time.
//
// Rationale: keeps domain contracts centralized while allowing pluggable
// backends (vector databases, embeddings indexes, etc.) to be added without
// introducing dependency cycles.
package memory
