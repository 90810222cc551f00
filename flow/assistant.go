package flow

// AssistantFlow implements the standard execution flow for a standalone
// assistant (no delegation). It wires default processors for instruction
// resolution, memory recall and history assembly, then relays model
// streaming events directly.
type AssistantFlow struct{ *BaseFlow }

// NewAssistantFlow creates a new assistant flow with the default processors.
func NewAssistantFlow(agent FlowAgent) *AssistantFlow {
	baseFlow := NewBaseFlow(agent)

	baseFlow.AddRequestProcessor(NewInstructionsProcessor())
	baseFlow.AddRequestProcessor(NewRecallProcessor())
	baseFlow.AddRequestProcessor(NewContentsProcessor())

	return &AssistantFlow{BaseFlow: baseFlow}
}
