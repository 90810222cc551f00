package core

import (
	"context"
	"fmt"

	"github.com/oppositecube/jarvis/logging"
)

// CommandContext provides a constrained, auditable surface for command
// handlers invoked during a dispatch. It accumulates EventActions (state
// deltas, memory skips, session termination signals, artifact diffs) without
// directly mutating the underlying session until applied.
type CommandContext struct {
	runCtx        *RunContext
	commandCallID string
	agentInfo     AgentInfo
	eventActions  EventActions
	valid         bool

	*loggerAdapter
}

// NewCommandContext constructs a command context bound to a parent RunContext
// and unique commandCallID.
func NewCommandContext(runCtx *RunContext, commandCallID string) *CommandContext {
	return &CommandContext{
		runCtx:        runCtx,
		commandCallID: commandCallID,
		agentInfo:     runCtx.Agent,
		eventActions:  EventActions{},
		valid:         true,
		loggerAdapter: newLoggerAdapter(runCtx.Logger()),
	}
}

// Context returns the context associated with the command invocation.
func (cc *CommandContext) Context() context.Context { return cc.runCtx.Context }

// SessionID returns the session ID associated with the command invocation.
func (cc *CommandContext) SessionID() string { return cc.runCtx.SessionID }

// DispatchID returns the dispatch ID associated with the command invocation.
func (cc *CommandContext) DispatchID() string { return cc.runCtx.DispatchID }

// Logger returns the logger associated with the command invocation.
func (cc *CommandContext) Logger() logging.Logger { return cc.loggerAdapter.Logger() }

// CommandCallID returns the command call ID associated with the invocation.
func (cc *CommandContext) CommandCallID() string { return cc.commandCallID }

// AgentName returns the agent name associated with the command invocation.
func (cc *CommandContext) AgentName() string { return cc.agentInfo.Name }

// GetState retrieves the state associated with the given key.
func (cc *CommandContext) GetState(k string) (any, bool) {
	return cc.runCtx.GetState(k)
}

// SetState records a state mutation both on the underlying run context (for
// immediate visibility) and in the local EventActions delta for emission.
func (cc *CommandContext) SetState(k string, v any) {
	cc.runCtx.SetState(k, v)
	if cc.eventActions.StateDelta == nil {
		cc.eventActions.StateDelta = map[string]any{}
	}

	cc.eventActions.StateDelta[k] = v
}

// Actions returns the event actions accumulated in the command context.
func (cc *CommandContext) Actions() *EventActions { return &cc.eventActions }

// SkipMemory requests that the post-turn long-term memory write be bypassed
// for the originating exchange.
func (cc *CommandContext) SkipMemory() {
	b := true
	if cc.eventActions.SkipMemory == nil {
		cc.eventActions.SkipMemory = &b
	}
}

// EndSession signals orchestration that the session should go back to sleep
// (wake word required again) after this dispatch completes.
func (cc *CommandContext) EndSession() {
	b := true
	if cc.eventActions.EndSession == nil {
		cc.eventActions.EndSession = &b
	}

	cc.LogInfo("command.end_session.request", "agent", cc.AgentName(), "command_call_id", cc.commandCallID)
}

// SaveArtifact persists artifact bytes and records the delta size for emission.
func (cc *CommandContext) SaveArtifact(id string, data []byte) error {
	if cc.runCtx.ArtifactStore == nil {
		return fmt.Errorf("artifact store not configured")
	}

	if err := cc.runCtx.ArtifactStore.Save(cc.SessionID(), id, data); err != nil {
		return err
	}

	if cc.eventActions.ArtifactDelta == nil {
		cc.eventActions.ArtifactDelta = map[string]int{}
	}

	cc.eventActions.ArtifactDelta[id] = len(data)

	return nil
}

// LoadArtifact retrieves a persisted artifact by id.
func (cc *CommandContext) LoadArtifact(id string) ([]byte, error) {
	if cc.runCtx.ArtifactStore == nil {
		return nil, fmt.Errorf("artifact store not configured")
	}

	return cc.runCtx.ArtifactStore.Get(cc.SessionID(), id)
}

// ListArtifacts returns artifact IDs stored for the session.
func (cc *CommandContext) ListArtifacts() ([]string, error) {
	if cc.runCtx.ArtifactStore == nil {
		return nil, fmt.Errorf("artifact store not configured")
	}

	return cc.runCtx.ArtifactStore.List(cc.SessionID())
}

// SearchMemory performs a recall query against the configured MemoryStore.
func (cc *CommandContext) SearchMemory(q string, limit int) ([]SearchResult, error) {
	if cc.runCtx.MemoryStore == nil {
		return nil, fmt.Errorf("memory store not configured")
	}

	return cc.runCtx.MemoryStore.Search(cc.SessionID(), q, limit)
}

// StoreMemory appends new content to the session's memory store with metadata.
func (cc *CommandContext) StoreMemory(content string, md map[string]any) error {
	if cc.runCtx.MemoryStore == nil {
		return fmt.Errorf("memory store not configured")
	}

	return cc.runCtx.MemoryStore.Store(cc.SessionID(), content, md)
}

// GetPreferences returns the session-scoped key/value memory map.
func (cc *CommandContext) GetPreferences() (map[string]any, error) {
	if cc.runCtx.MemoryStore == nil {
		return nil, fmt.Errorf("memory store not configured")
	}

	return cc.runCtx.MemoryStore.Get(cc.SessionID())
}

// PutPreferences merges the delta into the session-scoped key/value memory.
func (cc *CommandContext) PutPreferences(delta map[string]any) error {
	if cc.runCtx.MemoryStore == nil {
		return fmt.Errorf("memory store not configured")
	}

	return cc.runCtx.MemoryStore.Put(cc.SessionID(), delta)
}

// GetSessionHistory returns conversation history (filtered) for context.
func (cc *CommandContext) GetSessionHistory() []Event {
	if cc.runCtx.Session == nil {
		return nil
	}

	return cc.runCtx.Session.GetConversationHistory()
}

// EmitEvent sends an event directly without merging accumulated actions.
func (cc *CommandContext) EmitEvent(ev Event) error {
	if cc.runCtx.Emit == nil {
		return fmt.Errorf("emit channel not configured")
	}

	select {
	case <-cc.runCtx.Context.Done():
		return cc.runCtx.Context.Err()
	case cc.runCtx.Emit <- ev:
	}

	return nil
}

// Validate performs a structural sanity check of the context.
func (cc *CommandContext) Validate() error {
	if !cc.valid || cc.runCtx == nil || cc.runCtx.SessionID == "" || cc.commandCallID == "" {
		return fmt.Errorf("invalid CommandContext")
	}

	return nil
}

// IsValid reports whether Validate would succeed (fast path).
func (cc *CommandContext) IsValid() bool {
	return cc.valid && cc.runCtx != nil && cc.runCtx.SessionID != "" && cc.commandCallID != ""
}

// InternalRunContext returns the internal run context.
func (cc *CommandContext) InternalRunContext() *RunContext { return cc.runCtx }

// InternalApplyActions merges accumulated EventActions into the provided
// event. Used internally when finalizing command invocation events.
func (cc *CommandContext) InternalApplyActions(ev *Event) {
	if len(cc.eventActions.StateDelta) > 0 {
		if ev.Actions.StateDelta == nil {
			ev.Actions.StateDelta = map[string]any{}
		}
		for k, v := range cc.eventActions.StateDelta {
			ev.Actions.StateDelta[k] = v
		}
	}

	if cc.eventActions.SkipMemory != nil {
		ev.Actions.SkipMemory = cc.eventActions.SkipMemory
	}

	if cc.eventActions.EndSession != nil {
		ev.Actions.EndSession = cc.eventActions.EndSession

		cc.LogInfo("command.end_session.applied", "agent", cc.AgentName(), "command_call_id", cc.commandCallID)
	}

	if len(cc.eventActions.ArtifactDelta) > 0 {
		if ev.Actions.ArtifactDelta == nil {
			ev.Actions.ArtifactDelta = map[string]int{}
		}
		for k, v := range cc.eventActions.ArtifactDelta {
			ev.Actions.ArtifactDelta[k] = v
		}
	}
}
