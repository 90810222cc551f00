// Package flow provides the dispatch pipeline for Jarvis agents.
//
// A flow orchestrates the generative part of a dispatch: request processors
// assemble the model request (instructions, history window, recalled
// memories), then the model turn runs with a command-execution loop — the
// model emits command calls, the flow executes them through a CommandContext
// and feeds the results back for another turn until a final reply is reached.
package flow

import (
	"github.com/oppositecube/jarvis/command"
	"github.com/oppositecube/jarvis/core"
	"github.com/oppositecube/jarvis/model"
)

// Flow defines the interface for agent execution flows.
type Flow interface {
	// Execute runs the flow with the given context and request.
	// It returns a channel of events that represent the execution progress.
	Execute(runCtx *core.RunContext) (<-chan core.Event, error)
}

// FlowAgent defines the interface that agents must implement to work with flows.
//
// This interface provides flows with access to agent capabilities without
// exposing the full agent implementation details.
type FlowAgent interface {
	// GetName returns the agent's display name.
	GetName() string

	// GetModel returns the generative model instance.
	GetModel() model.Model

	// ResolveInstructions produces the system prompt for this dispatch.
	ResolveInstructions(runCtx *core.RunContext) (string, error)

	// Commands returns the registered commands exposed to the model as tools.
	Commands() []command.Command

	// IsStreamingEnabled returns whether streaming responses are enabled.
	IsStreamingEnabled() bool

	// GetOutputKey returns the session state key for saving the final reply.
	GetOutputKey() string

	// MaxHistoryMessages returns the maximum number of conversation history messages to keep.
	MaxHistoryMessages() int

	// RecallLimit returns the maximum number of recalled memories to inject.
	RecallLimit() int

	// ExecuteCommand executes a named command with serialized JSON arguments.
	ExecuteCommand(cmdCtx *core.CommandContext, name, args string) (interface{}, error)
}

// RequestProcessor processes the request before sending it to the model.
type RequestProcessor interface {
	// Name returns the processor's identifier.
	Name() string
	// ProcessRequest modifies the model request before generation.
	ProcessRequest(runCtx *core.RunContext, req *model.Request, agent FlowAgent) error
}

// ResponseProcessor processes the response after receiving it from the model.
type ResponseProcessor interface {
	// Name returns the processor's identifier.
	Name() string
	// ProcessResponse handles the model response and may generate additional events.
	ProcessResponse(runCtx *core.RunContext, resp *model.Response, agent FlowAgent) error
}
