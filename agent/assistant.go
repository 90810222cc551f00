package agent

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/oppositecube/jarvis/command"
	"github.com/oppositecube/jarvis/core"
	"github.com/oppositecube/jarvis/flow"
	"github.com/oppositecube/jarvis/model"
)

// AssistantOptions configures an Assistant instance.
//
// Use functional options with NewAssistant to override defaults.
type AssistantOptions struct {
	Instruction        Instruction
	EnableStreaming    bool
	OutputKey          string
	MaxHistoryMessages int
	RecallLimit        int
	Registry           *command.Registry
}

// Assistant is the model-backed conversational agent. An utterance matching a
// registered command pattern executes that command directly without a model
// call; everything else goes through the flow pipeline where the registered
// commands are exposed to the model as callable tools.
//
// Assistant embeds BaseAgent to inherit standard lifecycle management.
type Assistant struct {
	BaseAgent
	llm                model.Model
	instruction        Instruction
	registry           *command.Registry
	enableStreaming    bool
	outputKey          string
	maxHistoryMessages int
	recallLimit        int
}

// NewAssistant creates a new model-backed assistant with sensible defaults:
// streaming enabled, a 20-message history window, three recalled memories per
// turn and an empty command registry.
func NewAssistant(name string, llm model.Model, optFns ...func(o *AssistantOptions)) *Assistant {
	opts := AssistantOptions{
		Instruction: NewInstructionFromText(
			fmt.Sprintf("You are %s, a concise voice assistant. Reply in short spoken sentences.", name),
		),
		EnableStreaming:    true,
		MaxHistoryMessages: 20,
		RecallLimit:        3,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Registry == nil {
		opts.Registry = command.NewRegistry()
	}

	return &Assistant{
		BaseAgent:          NewBaseAgent(name),
		llm:                llm,
		instruction:        opts.Instruction,
		registry:           opts.Registry,
		enableStreaming:    opts.EnableStreaming,
		outputKey:          opts.OutputKey,
		maxHistoryMessages: opts.MaxHistoryMessages,
		recallLimit:        opts.RecallLimit,
	}
}

// RegisterCommand adds a command to the assistant's registry.
func (a *Assistant) RegisterCommand(c command.Command) error { return a.registry.Register(c) }

// MustRegisterCommand registers a command and panics on error. Intended for
// static wiring at startup.
func (a *Assistant) MustRegisterCommand(c command.Command) { a.registry.MustRegister(c) }

// Registry returns the assistant's command registry.
func (a *Assistant) Registry() *command.Registry { return a.registry }

// GetName returns the agent's display name.
func (a *Assistant) GetName() string { return a.Name() }

// GetModel returns the generative model instance.
func (a *Assistant) GetModel() model.Model { return a.llm }

// Commands returns the registered commands in registration order.
func (a *Assistant) Commands() []command.Command { return a.registry.All() }

// IsStreamingEnabled returns whether streaming responses are enabled.
func (a *Assistant) IsStreamingEnabled() bool { return a.enableStreaming }

// GetOutputKey returns the session state key for saving the final reply.
func (a *Assistant) GetOutputKey() string { return a.outputKey }

// MaxHistoryMessages returns the maximum number of conversation history messages to keep.
func (a *Assistant) MaxHistoryMessages() int { return a.maxHistoryMessages }

// RecallLimit returns the maximum number of recalled memories per turn.
func (a *Assistant) RecallLimit() int { return a.recallLimit }

// ResolveInstructions produces the final instruction string (system prompt)
// by resolving static or dynamic instruction sources.
func (a *Assistant) ResolveInstructions(runCtx *core.RunContext) (string, error) {
	return a.instruction.Resolve(runCtx)
}

// ExecuteCommand deserializes JSON arguments and invokes the named command,
// returning its result or an error if the command is unknown or fails.
func (a *Assistant) ExecuteCommand(cmdCtx *core.CommandContext, name, args string) (interface{}, error) {
	cmd, exists := a.registry.Get(name)
	if !exists {
		return nil, fmt.Errorf("command %s not found", name)
	}

	argsMap := make(map[string]interface{})
	if args != "" {
		if err := json.Unmarshal([]byte(args), &argsMap); err != nil {
			return nil, fmt.Errorf("failed to unmarshal args: %w", err)
		}
	}

	return cmd.Call(cmdCtx, argsMap)
}

// Run implements core.Agent. It resolves the utterance against the command
// registry first; unmatched utterances fall through to the model flow.
func (a *Assistant) Run(runCtx *core.RunContext) error {
	utterance := strings.TrimSpace(runCtx.Utterance.Text())

	runCtx.LogDebug(
		"assistant.run.start",
		"agent", a.Name(),
		"dispatch", runCtx.DispatchID,
	)

	if cmd, args, ok := a.registry.Resolve(utterance); ok {
		runCtx.LogDebug("assistant.command.matched", "agent", a.Name(), "command", cmd.Name())
		return a.runCommand(runCtx, cmd, args)
	}

	return a.runFlow(runCtx)
}

// runCommand executes a pattern-matched command and emits the call, result
// and final reply events for the turn.
func (a *Assistant) runCommand(runCtx *core.RunContext, cmd command.Command, args map[string]any) error {
	callID := core.NewID()

	argsJSON, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("failed to marshal command args: %w", err)
	}

	callEv := core.NewEvent(runCtx.DispatchID, a.Name())
	callEv.Content = &core.Content{
		Role: "assistant",
		Parts: []core.Part{core.CommandCallPart{CommandCall: core.CommandCall{
			ID:        callID,
			Name:      cmd.Name(),
			Arguments: string(argsJSON),
		}}},
	}

	if err := runCtx.EmitEvent(callEv); err != nil {
		return err
	}
	if err := runCtx.WaitForResume(); err != nil {
		return err
	}

	cmdCtx := core.NewCommandContext(runCtx, callID)
	result, callErr := cmd.Call(cmdCtx, args)

	resEv := core.NewCommandResultEvent(a.Name(), callID, cmd.Name(), result, callErr)
	resEv.DispatchID = runCtx.DispatchID
	cmdCtx.InternalApplyActions(&resEv)

	if err := runCtx.EmitEvent(resEv); err != nil {
		return err
	}
	if err := runCtx.WaitForResume(); err != nil {
		return err
	}

	reply := commandReply(result, callErr)

	final := core.NewEvent(runCtx.DispatchID, a.Name())
	final.Content = &core.Content{Role: "assistant", Parts: []core.Part{core.TextPart{Text: reply}}}
	complete := true
	final.TurnComplete = &complete

	if a.outputKey != "" {
		final.Actions.StateDelta = map[string]any{a.outputKey: reply}
	}

	return runCtx.EmitEvent(final)
}

// commandReply renders a command outcome as spoken reply text.
func commandReply(result interface{}, err error) string {
	if err != nil {
		return fmt.Sprintf("Sorry, I couldn't do that: %s", err.Error())
	}

	if s, ok := result.(string); ok {
		return s
	}

	return fmt.Sprintf("%v", result)
}

// runFlow executes the model flow and forwards its events to the engine.
func (a *Assistant) runFlow(runCtx *core.RunContext) error {
	fl := flow.NewAssistantFlow(a)

	eventChan, err := fl.Execute(runCtx)
	if err != nil {
		runCtx.LogError("assistant.flow.execute.error", "agent", a.Name(), "error", err.Error())
		return fmt.Errorf("flow execution failed: %w", err)
	}

	for event := range eventChan {
		select {
		case runCtx.Emit <- event:
			role := ""
			if event.Content != nil {
				role = event.Content.Role
			}

			runCtx.LogDebug(
				"assistant.event.forward",
				"agent", a.Name(),
				"event_id", event.ID,
				"role", role,
				"cmd_calls", len(event.GetCommandCalls()),
			)
		case <-runCtx.Context.Done():
			runCtx.LogWarn("assistant.run.context_done", "agent", a.Name(), "error", runCtx.Context.Err())
			return runCtx.Context.Err()
		}
	}

	return nil
}
