package core

import (
	"time"

	"github.com/google/uuid"
)

// EventActions encodes side-effects or orchestration signals attached to an
// Event. All fields are optional pointers / maps so absence can be
// distinguished from zero values. The engine interprets these after
// persistence (see engine.applyEventActions).
type EventActions struct {
	StateDelta    map[string]any `json:"state_delta,omitempty"`
	ArtifactDelta map[string]int `json:"artifact_delta,omitempty"`
	SkipMemory    *bool          `json:"skip_memory,omitempty"`
	EndSession    *bool          `json:"end_session,omitempty"`
}

// Event is the primary unit of communication between the engine, agents,
// command handlers and external clients. After emission it should be treated
// as immutable. It captures:
//
//   - Correlation (DispatchID, ID, Author)
//   - Conversational content (optional role-based Parts)
//   - Side-effect directives (Actions)
//   - Error / interruption metadata
//   - High precision UTC timestamp
//
// Content may be nil for control or error-only events.
type Event struct {
	ID             string            `json:"id"`
	DispatchID     string            `json:"dispatch_id"`
	Author         string            `json:"author"`
	Actions        EventActions      `json:"actions"`
	Timestamp      time.Time         `json:"timestamp"`
	Content        *Content          `json:"content,omitempty"`
	Partial        *bool             `json:"partial,omitempty"`
	TurnComplete   *bool             `json:"turn_complete,omitempty"`
	ErrorCode      *string           `json:"error_code,omitempty"`
	ErrorMessage   *string           `json:"error_message,omitempty"`
	CustomMetadata map[string]string `json:"custom_metadata,omitempty"`
}

// NewEvent creates a bare event authored by 'author' bound to a dispatch.
// Prefer helper constructors for common semantic categories.
func NewEvent(dispatchID, author string) Event {
	return Event{
		ID:         NewID(),
		DispatchID: dispatchID,
		Author:     author,
		Timestamp:  time.Now().UTC(),
		Actions:    EventActions{},
	}
}

// NewMessageEvent creates an assistant message event with a single text part.
func NewMessageEvent(author, message string) Event {
	e := NewEvent("", author)
	e.Content = &Content{Role: "assistant", Parts: []Part{TextPart{Text: message}}}
	return e
}

// NewUserUtteranceEvent creates a user-authored event carrying a recognized
// utterance as text.
func NewUserUtteranceEvent(dispatchID, utterance string) Event {
	e := NewEvent(dispatchID, "user")
	e.Content = &Content{Role: "user", Parts: []Part{TextPart{Text: utterance}}}
	return e
}

// NewUserContentEvent creates a user-authored event with arbitrary Content.
func NewUserContentEvent(dispatchID string, content *Content) Event {
	e := NewEvent(dispatchID, "user")
	e.Content = content
	return e
}

// NewCommandCallEvent represents a request to execute a named command.
func NewCommandCallEvent(author, commandName, args string) Event {
	e := NewEvent("", author)
	e.Content = &Content{
		Role: "assistant",
		Parts: []Part{
			CommandCallPart{
				CommandCall: CommandCall{
					Name:      commandName,
					Arguments: args,
				},
			},
		},
	}
	return e
}

// NewCommandResultEvent records the completion result (or error) of a command
// call. If err is non-nil its message is copied into the result's Error field.
func NewCommandResultEvent(author, id, commandName string, result interface{}, err error) Event {
	e := NewEvent("", author)
	cr := CommandResult{ID: id, Name: commandName, Result: result}
	if err != nil {
		cr.Error = err.Error()
	}
	e.Content = &Content{Role: "command", Parts: []Part{CommandResultPart{CommandResult: cr}}}
	return e
}

// NewID generates a new unique identifier for events and dispatches.
func NewID() string { return uuid.NewString() }

// IsPartial reports whether this event represents a streaming / incomplete
// fragment that will be followed by additional events composing the final
// assistant turn.
func (e Event) IsPartial() bool { return e.Partial != nil && *e.Partial }

// GetCommandCalls returns any CommandCall parts contained within the event
// content preserving their original order.
func (e Event) GetCommandCalls() []CommandCall {
	if e.Content == nil {
		return nil
	}
	var calls []CommandCall
	for _, p := range e.Content.Parts {
		if cc, ok := p.(CommandCallPart); ok {
			calls = append(calls, cc.CommandCall)
		}
	}
	return calls
}

// GetCommandResults returns any CommandResult parts contained within the
// event content preserving their original order.
func (e Event) GetCommandResults() []CommandResult {
	if e.Content == nil {
		return nil
	}
	var results []CommandResult
	for _, p := range e.Content.Parts {
		if cr, ok := p.(CommandResultPart); ok {
			results = append(results, cr.CommandResult)
		}
	}
	return results
}

// IsFinalReply implements the heuristic used by higher layers to decide when
// an assistant turn is complete: no pending command calls or results and not a
// partial streaming fragment.
func (e Event) IsFinalReply() bool {
	return len(e.GetCommandCalls()) == 0 &&
		len(e.GetCommandResults()) == 0 &&
		!e.IsPartial()
}

// UnixSeconds returns the timestamp as fractional seconds since Unix epoch.
// Useful for metrics & numeric serialization paths.
func (e Event) UnixSeconds() float64 { return float64(e.Timestamp.UnixNano()) / 1e9 }
