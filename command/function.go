package command

import (
	"fmt"
	"time"

	"github.com/oppositecube/jarvis/core"
	"github.com/oppositecube/jarvis/internal/util"
)

// FunctionCommand is a generic adapter that exposes a plain Go function as a
// Jarvis command.
//
// Responsibilities:
//   - Holds a lightweight JSON-Schema-like parameter specification (parameters)
//   - Validates user / model supplied arguments against that schema before execution
//   - Invokes the wrapped function with a *core.CommandContext giving access to
//     session state, logging, command call IDs, memory and artifact helpers
//   - Normalizes error handling so callers receive *CommandError with consistent codes:
//     VALIDATION_ERROR  -> schema / argument mismatch
//     EXECUTION_ERROR   -> underlying function returned an error (non-CommandError)
//     (custom codes preserved if the function returns *CommandError directly)
//
// Concurrency:
//
//	A FunctionCommand has no internal mutable state after construction and is
//	safe for concurrent use by multiple goroutines.
//
// Returned result:
//
//	The returned value can be any Go type that is JSON-serializable by the
//	higher layer. If more structure or streaming is required, create a custom
//	Command implementation instead.
type FunctionCommand struct {
	// Command identifier (snake_case recommended)
	name string
	// Human-readable description shown to models
	description string
	// JSON schema describing accepted arguments
	parameters map[string]any
	// Utterance regexes for direct dispatch (may be empty)
	patterns []string
	// User supplied implementation
	fn func(cmdCtx *core.CommandContext, args map[string]any) (any, error)
}

// FunctionCommandOptions configures optional FunctionCommand behavior.
type FunctionCommandOptions struct {
	// Patterns are regular expressions (case-insensitive match applied by the
	// registry) whose named capture groups become call arguments.
	Patterns []string
}

// NewFunctionCommand constructs a FunctionCommand from explicit schema and function.
//
// Example:
//
//	clock := NewFunctionCommand(
//	  "current_time",
//	  "Tell the current time",
//	  map[string]any{"type": "object", "properties": map[string]any{}},
//	  func(cc *core.CommandContext, args map[string]any) (any, error) {
//	    return time.Now().Format("3:04 PM"), nil
//	  },
//	  func(o *FunctionCommandOptions) {
//	    o.Patterns = []string{`\bwhat time is it\b`}
//	  },
//	)
func NewFunctionCommand(
	name, description string,
	parameters map[string]any,
	fn func(cmdCtx *core.CommandContext, args map[string]any) (any, error),
	optFns ...func(o *FunctionCommandOptions),
) *FunctionCommand {
	opts := FunctionCommandOptions{}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &FunctionCommand{
		name:        name,
		description: description,
		parameters:  parameters,
		patterns:    opts.Patterns,
		fn:          fn,
	}
}

// NewFunctionCommandFromStruct derives the parameter schema from a struct using
// reflection. It is a convenience for simple argument containers and produces a
// schema equivalent to util.CreateSchema(structType).
func NewFunctionCommandFromStruct(
	name, description string,
	structType any,
	fn func(cmdCtx *core.CommandContext, args map[string]any) (any, error),
	optFns ...func(o *FunctionCommandOptions),
) *FunctionCommand {
	schema := util.CreateSchema(structType)
	return NewFunctionCommand(name, description, schema, fn, optFns...)
}

// Name returns the unique command name used in call declarations and routing.
func (c *FunctionCommand) Name() string { return c.name }

// Description returns the short natural language description exposed to models.
func (c *FunctionCommand) Description() string { return c.description }

// Parameters returns the (minimal) JSON schema describing expected arguments.
func (c *FunctionCommand) Parameters() map[string]any { return c.parameters }

// Patterns returns the utterance regexes for direct dispatch.
func (c *FunctionCommand) Patterns() []string { return c.patterns }

// Call validates the provided args against the declared schema then invokes the
// underlying function. Validation or execution failures are wrapped (or passed
// through) as *CommandError for uniform downstream handling.
//
// Error Semantics:
//
//	*CommandError (returned directly) -> forwarded unchanged
//	validation failure                -> *CommandError{Code: "VALIDATION_ERROR"}
//	other error                       -> *CommandError{Code: "EXECUTION_ERROR"}
//
// Logging Fields:
//
//	command: command name
//	cc_id: command call identifier (correlates model request & execution)
//	duration_ms: execution time in milliseconds
func (c *FunctionCommand) Call(cmdCtx *core.CommandContext, args map[string]any) (any, error) {
	logger := cmdCtx.Logger()
	start := time.Now()

	logger.Debug("command.call.start", "command", c.name, "cc_id", cmdCtx.CommandCallID())

	if err := util.ValidateParameters(args, c.parameters); err != nil {
		logger.Warn("command.call.validation_failed", "command", c.name, "error", err.Error())

		return nil, &CommandError{
			Command: c.name,
			Message: fmt.Sprintf("parameter validation failed: %v", err),
			Code:    "VALIDATION_ERROR",
			Details: err,
		}
	}

	result, err := c.fn(cmdCtx, args)
	if err != nil {
		if cmdErr, ok := err.(*CommandError); ok { // Already a CommandError -> just log and forward
			logger.Error("command.call.error", "command", c.name, "error", cmdErr.Message)

			return nil, cmdErr
		}

		logger.Error("command.call.error", "command", c.name, "error", err.Error())

		return nil, &CommandError{
			Command: c.name,
			Message: err.Error(),
			Code:    "EXECUTION_ERROR",
		}
	}

	logger.Info("command.call.success", "command", c.name, "duration_ms", time.Since(start).Milliseconds())

	return result, nil
}
