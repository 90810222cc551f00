// Package command implements the command calling subsystem that lets the
// assistant invoke structured capabilities (websites, music playback, clock,
// memory) with schema validated arguments, consistent error handling and
// utterance patterns for direct dispatch without a model round-trip.
package command

import (
	"fmt"

	"github.com/oppositecube/jarvis/core"
	"github.com/oppositecube/jarvis/internal/util"
)

// Command defines the interface for extending the assistant with executable
// capabilities.
//
// Commands can be registered with an agent to enable function calling, and
// additionally expose utterance patterns so recognized speech like "open
// youtube" resolves straight to a command call without a model round-trip.
//
// All commands have access to CommandContext for session state, memory,
// artifact management and orchestration signals (SkipMemory, EndSession).
//
// Command implementations should:
//   - Provide clear, descriptive names and descriptions
//   - Define proper JSON schema for parameters
//   - Handle errors gracefully
//   - Be thread-safe if used concurrently
//   - Follow consistent naming conventions
type Command interface {
	// Name returns the unique identifier for this command.
	// Names should be descriptive and follow function naming conventions (snake_case recommended).
	Name() string

	// Description returns a human-readable description of what this command does.
	// This description is provided to the model to help it understand when and how to use the command.
	Description() string

	// Parameters returns a JSON schema describing the expected input format.
	// This schema is used for parameter validation and model function calling.
	Parameters() map[string]interface{}

	// Patterns returns regular expressions matched against recognized
	// utterances for direct dispatch. Named capture groups become arguments.
	// An empty slice means the command is only reachable via model calls.
	Patterns() []string

	// Call executes the command with structured arguments and CommandContext.
	// Arguments are parsed from JSON (or pattern captures) and validated
	// against the command's schema.
	Call(cmdCtx *core.CommandContext, args map[string]interface{}) (interface{}, error)
}

// ValidationError represents parameter validation errors with detailed information.
type ValidationError = util.ValidationError

// CommandError represents errors that occur during command execution.
type CommandError struct {
	Command string      `json:"command"`           // Name of the command that failed
	Message string      `json:"message"`           // Error message
	Code    string      `json:"code"`              // Error code for categorization
	Details interface{} `json:"details,omitempty"` // Additional error details
}

func (e *CommandError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("command error [%s] in %s: %s", e.Code, e.Command, e.Message)
	}
	return fmt.Sprintf("command error in %s: %s", e.Command, e.Message)
}

// NewCommandError creates a new CommandError with the specified details.
func NewCommandError(command, message, code string) *CommandError {
	return &CommandError{
		Command: command,
		Message: message,
		Code:    code,
	}
}
