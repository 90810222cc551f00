package core

// Agent defines the interface all Jarvis responders must implement.
//
// Agents are the processing units that turn a dispatched utterance into reply
// events. They receive input through a RunContext, process it asynchronously,
// and emit events to communicate results and state changes back to the
// engine.
//
// Implementations must:
//   - Respect context cancellation for graceful shutdown
//   - Emit events through the provided RunContext
//   - Handle the async resume mechanism properly
//   - Manage their lifecycle through Start/Stop methods
type Agent interface {
	Name() string
	Description() string
	Start(runCtx *RunContext) error
	Stop(runCtx *RunContext) error
	Run(runCtx *RunContext) error
}

// AgentInfo carries identifying details about an agent used in contexts &
// events. Name is the external identifier; Type categorizes implementation
// (e.g. "assistant", "responder").
type AgentInfo struct{ Name, Type string }
