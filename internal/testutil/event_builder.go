package testutil

import (
	"github.com/oppositecube/jarvis/core"
)

// EventBuilder provides a fluent helper for constructing events in tests.
// Example:
//
//	ev := NewEventBuilder().Author("assistant").Dispatch("d-1").AssistantText("hello").Build()
//
// Chain only the parts you need; sensible defaults are applied.
type EventBuilder struct {
	author         string
	dispatchID     string
	id             string
	role           string
	textParts      []string
	commandCalls   []core.CommandCall
	commandResults []core.CommandResult
	partial        *bool
	turnComplete   *bool
	customParts    []core.Part
	actions        core.EventActions
}

// NewEventBuilder creates a builder with default author "assistant".
func NewEventBuilder() *EventBuilder { return &EventBuilder{author: "assistant"} }

// Author sets the author name for the event (chainable).
func (b *EventBuilder) Author(a string) *EventBuilder { b.author = a; return b }

// Dispatch sets the dispatch ID associated with the event (chainable).
func (b *EventBuilder) Dispatch(id string) *EventBuilder { b.dispatchID = id; return b }

// ID overrides the auto-generated event ID (chainable). Use mainly in tests where determinism matters.
func (b *EventBuilder) ID(id string) *EventBuilder { b.id = id; return b }

// Partial marks the event as a streaming / partial chunk (chainable).
func (b *EventBuilder) Partial(p bool) *EventBuilder { b.partial = &p; return b }

// TurnComplete sets the TurnComplete flag indicating model turn completion (chainable).
func (b *EventBuilder) TurnComplete(c bool) *EventBuilder { b.turnComplete = &c; return b }

// UserText appends a user role text part and sets role to user (chainable).
func (b *EventBuilder) UserText(t string) *EventBuilder {
	b.role = "user"
	b.textParts = append(b.textParts, t)
	return b
}

// AssistantText appends an assistant role text part and sets role to assistant (chainable).
func (b *EventBuilder) AssistantText(t string) *EventBuilder {
	b.role = "assistant"
	b.textParts = append(b.textParts, t)
	return b
}

// CommandText appends a command role text part and sets role to command (chainable).
func (b *EventBuilder) CommandText(t string) *EventBuilder {
	b.role = "command"
	b.textParts = append(b.textParts, t)
	return b
}

// AddPart appends a custom content part (chainable).
func (b *EventBuilder) AddPart(p core.Part) *EventBuilder {
	b.customParts = append(b.customParts, p)
	return b
}

// CommandCall adds a command call part with the provided name and JSON argument string (chainable).
func (b *EventBuilder) CommandCall(name, args string) *EventBuilder {
	b.commandCalls = append(b.commandCalls, core.CommandCall{Name: name, Arguments: args})
	return b
}

// CommandResult adds a command result part representing command execution output (chainable).
func (b *EventBuilder) CommandResult(id, name string, result interface{}, err error) *EventBuilder {
	cr := core.CommandResult{ID: id, Name: name, Result: result}
	if err != nil {
		cr.Error = err.Error()
	}
	b.commandResults = append(b.commandResults, cr)
	return b
}

// SkipMemory sets the SkipMemory action flag (chainable).
func (b *EventBuilder) SkipMemory() *EventBuilder {
	t := true
	b.actions.SkipMemory = &t
	return b
}

// EndSession sets the EndSession action flag (chainable).
func (b *EventBuilder) EndSession() *EventBuilder { t := true; b.actions.EndSession = &t; return b }

// StateDelta sets a state delta entry on the event actions (chainable).
func (b *EventBuilder) StateDelta(key string, val any) *EventBuilder {
	if b.actions.StateDelta == nil {
		b.actions.StateDelta = map[string]any{}
	}
	b.actions.StateDelta[key] = val
	return b
}

// Build constructs the core.Event value.
func (b *EventBuilder) Build() core.Event {
	ev := core.NewEvent(b.dispatchID, b.author)
	if b.id != "" {
		ev.ID = b.id
	}
	if b.partial != nil {
		ev.Partial = b.partial
	}
	if b.turnComplete != nil {
		ev.TurnComplete = b.turnComplete
	}
	ev.Actions = b.actions

	estimatedParts := len(b.textParts) + len(b.commandCalls) + len(b.commandResults) + len(b.customParts)
	parts := make([]core.Part, 0, estimatedParts)
	for _, t := range b.textParts {
		parts = append(parts, core.TextPart{Text: t})
	}
	for _, cc := range b.commandCalls {
		parts = append(parts, core.CommandCallPart{CommandCall: cc})
	}
	for _, cr := range b.commandResults {
		parts = append(parts, core.CommandResultPart{CommandResult: cr})
	}
	parts = append(parts, b.customParts...)
	if len(parts) > 0 {
		role := b.role
		if role == "" {
			role = "assistant"
		}
		ev.Content = &core.Content{Role: role, Parts: parts}
	}
	return ev
}
