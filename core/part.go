package core

// Part represents a polymorphic segment of role-based content. Concrete part
// types implement the unexported isPart marker enabling a closed set.
type Part interface{ isPart() }

// TextPart is a plain text content segment.
type TextPart struct {
	Text     string         // Plain UTF-8 text
	Metadata map[string]any // Optional producer-provided metadata
}

// isPart implements the Part interface for TextPart.
func (TextPart) isPart() {}

// DataPart is a structured data segment (e.g., JSON object map).
type DataPart struct {
	Data     map[string]any // Structured key/value payload
	Metadata map[string]any
}

// isPart implements the Part interface for DataPart.
func (DataPart) isPart() {}

// CommandCall describes a request to execute a named command, either resolved
// directly from an utterance pattern or emitted by a model as a tool call.
type CommandCall struct {
	ID        string `json:"id,omitempty"`        // Optional stable id (can be supplied later)
	Name      string `json:"name"`                // Command name
	Arguments string `json:"arguments,omitempty"` // Serialized argument payload (JSON)
}

// CommandCallPart wraps a CommandCall as a content part.
type CommandCallPart struct {
	CommandCall CommandCall
	Metadata    map[string]any
}

// isPart implements the Part interface for CommandCallPart.
func (CommandCallPart) isPart() {}

// CommandResult describes the outcome of a command call.
type CommandResult struct {
	ID     string      `json:"id,omitempty"`     // Matches originating CommandCall ID
	Name   string      `json:"name"`             // Command name
	Result interface{} `json:"result,omitempty"` // Successful result (any shape)
	Error  string      `json:"error,omitempty"`  // Populated on failure
}

// CommandResultPart wraps a CommandResult as a content part.
type CommandResultPart struct {
	CommandResult CommandResult
	Metadata      map[string]any
}

// isPart implements the Part interface for CommandResultPart.
func (CommandResultPart) isPart() {}

// Content holds role + ordered parts.
type Content struct {
	Role  string `json:"role,omitempty"` // Conversation role (user, assistant, command, system)
	Parts []Part `json:"parts"`          // Ordered heterogeneous parts
}

// NewUserText builds user content from a single recognized utterance.
func NewUserText(text string) Content {
	return Content{Role: "user", Parts: []Part{TextPart{Text: text}}}
}

// Text concatenates all TextPart segments in order. Non-text parts are skipped.
func (c Content) Text() string {
	var out string
	for _, p := range c.Parts {
		if tp, ok := p.(TextPart); ok {
			out += tp.Text
		}
	}
	return out
}
