package command

import (
	"time"

	"github.com/oppositecube/jarvis/core"
)

// Clock supplies the current time, injectable for deterministic tests.
type Clock func() time.Time

// NewCurrentTimeCommand builds the current_time command.
func NewCurrentTimeCommand(clock Clock) *FunctionCommand {
	if clock == nil {
		clock = time.Now
	}
	return NewFunctionCommand(
		"current_time",
		"Tell the current time",
		map[string]any{"type": "object", "properties": map[string]any{}},
		func(cmdCtx *core.CommandContext, args map[string]any) (any, error) {
			return clock().Format("3:04 PM"), nil
		},
		func(o *FunctionCommandOptions) {
			o.Patterns = []string{
				`\bwhat(?:'s| is) the time\b`,
				`\bwhat time is it\b`,
			}
		},
	)
}

// NewCurrentDateCommand builds the current_date command.
func NewCurrentDateCommand(clock Clock) *FunctionCommand {
	if clock == nil {
		clock = time.Now
	}
	return NewFunctionCommand(
		"current_date",
		"Tell today's date",
		map[string]any{"type": "object", "properties": map[string]any{}},
		func(cmdCtx *core.CommandContext, args map[string]any) (any, error) {
			return clock().Format("Monday, January 2, 2006"), nil
		},
		func(o *FunctionCommandOptions) {
			o.Patterns = []string{
				`\bwhat(?:'s| is) (?:the date|today'?s date)\b`,
				`\bwhat day is it\b`,
			}
		},
	)
}
