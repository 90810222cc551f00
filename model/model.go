package model

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/oppositecube/jarvis/core"
)

// CommandCall represents a command invocation request surfaced by a model
// provider. Unified across vendors so downstream logic does not need
// per-provider branching.
type CommandCall struct {
	ID       string              `json:"id"`
	Type     string              `json:"type"` // "function"
	Function CommandCallFunction `json:"function"`
}

// CommandCallFunction describes the concrete command target of a call.
type CommandCallFunction struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"` // JSON string of arguments
}

// CommandDefinition declaratively exposes a callable command to the model.
type CommandDefinition struct {
	Type     string             `json:"type"` // "function"
	Function FunctionDefinition `json:"function"`
}

// FunctionDefinition describes an individual command exposed to the model.
// Parameters is a JSON Schema object (draft agnostic, minimal subset expected).
type FunctionDefinition struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"` // JSON Schema
}

// Request captures the normalized model input produced by flows.
type Request struct {
	Instructions string              `json:"instructions"` // Instructions for the model
	Contents     []core.Content      `json:"contents"`     // Higher-level content converted to provider messages
	Commands     []CommandDefinition `json:"commands,omitempty"`
	Stream       bool                `json:"stream,omitempty"`
}

// TokenUsage captures token usage statistics for a response.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is a (partial or final) chunk emitted by a streaming model.
type Response struct {
	ID           string       `json:"id"`
	Partial      bool         `json:"partial"` // Indicates if this is a partial response
	Content      core.Content `json:"content"`
	FinishReason string       `json:"finish_reason"` // "stop", "length", "tool_calls", etc.
	Usage        *TokenUsage  `json:"usage,omitempty"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name            string `json:"name"`
	Provider        string `json:"provider"` // "openai", "anthropic", "mock", etc.
	SupportsCommand bool   `json:"supports_command"`
}

// Model is the minimal interface required by flows & agents to drive generation.
type Model interface {
	Generate(ctx context.Context, req Request) (<-chan Response, <-chan error)

	// Info returns information about the model implementation.
	Info() Info
}

// MockModel is a lightweight in-memory Model useful for tests & examples.
type MockModel struct {
	info         Info
	responses    map[string]string
	commandCalls map[string]core.CommandCall
}

// NewMockModel constructs a MockModel with basic command support enabled.
func NewMockModel(name, provider string) *MockModel {
	return &MockModel{
		info: Info{
			Name:            name,
			Provider:        provider,
			SupportsCommand: true,
		},
		responses:    make(map[string]string),
		commandCalls: make(map[string]core.CommandCall),
	}
}

// AddResponse registers a deterministic canned completion for an input prompt.
func (m *MockModel) AddResponse(prompt, response string) { m.responses[prompt] = response }

// AddCommandCall registers a canned command call emitted for an input prompt.
func (m *MockModel) AddCommandCall(prompt string, call core.CommandCall) {
	m.commandCalls[prompt] = call
}

// Generate implements Model; emits optional streaming char chunks then final response.
func (m *MockModel) Generate(ctx context.Context, req Request) (<-chan Response, <-chan error) {
	respCh := make(chan Response, 16)
	errCh := make(chan error, 1)

	go func() {
		defer close(respCh)
		defer close(errCh)
		if len(req.Contents) == 0 {
			errCh <- fmt.Errorf("no contents provided")
			return
		}
		last := req.Contents[len(req.Contents)-1]
		var inputText string
		for _, p := range last.Parts {
			if tp, ok := p.(core.TextPart); ok {
				inputText += tp.Text
			}
		}

		if call, ok := m.commandCalls[inputText]; ok {
			if call.ID == "" {
				call.ID = core.NewID()
			}
			respCh <- Response{
				Partial: false,
				Content: core.Content{
					Role:  "assistant",
					Parts: []core.Part{core.CommandCallPart{CommandCall: call}},
				},
				FinishReason: "tool_calls",
			}
			return
		}

		// After command execution the transcript ends with a result part;
		// surface it as the final assistant text so loops terminate.
		for _, p := range last.Parts {
			if crp, ok := p.(core.CommandResultPart); ok {
				text := fmt.Sprintf("%v", crp.CommandResult.Result)
				if crp.CommandResult.Error != "" {
					text = crp.CommandResult.Error
				}
				respCh <- Response{
					Partial: false,
					Content: core.Content{
						Role:  "assistant",
						Parts: []core.Part{core.TextPart{Text: text}},
					},
					FinishReason: "stop",
				}
				return
			}
		}

		full := m.responses[inputText]
		if full == "" {
			full = fmt.Sprintf("Mock response to: %s", inputText)
		}
		if req.Stream {
			for _, r := range full {
				select {
				case <-ctx.Done():
					errCh <- ctx.Err()
					return
				case respCh <- Response{
					Partial: true,
					Content: core.Content{
						Role:  "assistant",
						Parts: []core.Part{core.TextPart{Text: string(r)}},
					},
				}:
				}
			}
		}
		respCh <- Response{
			Partial: false,
			Content: core.Content{
				Role:  "assistant",
				Parts: []core.Part{core.TextPart{Text: full}},
			},
			FinishReason: "stop",
		}
	}()
	return respCh, errCh
}

// Info implements Model interface.
func (m *MockModel) Info() Info { return m.info }
