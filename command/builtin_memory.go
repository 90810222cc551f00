package command

import (
	"fmt"
	"strings"

	"github.com/oppositecube/jarvis/core"
)

// NewRememberPreferenceCommand builds the remember_preference command writing
// a key/value pair into the session's learned preferences.
func NewRememberPreferenceCommand() *FunctionCommand {
	return NewFunctionCommand(
		"remember_preference",
		"Remember a user preference as a key/value pair",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"key":   map[string]any{"type": "string", "description": "Preference name"},
				"value": map[string]any{"type": "string", "description": "Preference value"},
			},
			"required": []any{"key", "value"},
		},
		func(cmdCtx *core.CommandContext, args map[string]any) (any, error) {
			key, _ := args["key"].(string)
			value, _ := args["value"].(string)
			key = normalizePreferenceKey(key)
			if key == "" {
				return nil, NewCommandError("remember_preference", "key must not be empty", "VALIDATION_ERROR")
			}

			if err := cmdCtx.PutPreferences(map[string]any{key: value}); err != nil {
				return nil, fmt.Errorf("could not store preference: %w", err)
			}

			return fmt.Sprintf("I'll remember that your %s is %s", strings.ReplaceAll(key, "_", " "), value), nil
		},
		func(o *FunctionCommandOptions) {
			o.Patterns = []string{
				`^remember (?:that )?my (?P<key>.+?) is (?P<value>.+)$`,
			}
		},
	)
}

// NewRecallMemoryCommand builds the recall_memory command searching long-term
// memory (preferences first, then stored conversations).
func NewRecallMemoryCommand() *FunctionCommand {
	return NewFunctionCommand(
		"recall_memory",
		"Recall a remembered preference or past conversation matching a query",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{"type": "string", "description": "What to recall"},
			},
			"required": []any{"query"},
		},
		func(cmdCtx *core.CommandContext, args map[string]any) (any, error) {
			query, _ := args["query"].(string)
			query = strings.TrimSpace(query)
			if query == "" {
				return nil, NewCommandError("recall_memory", "query must not be empty", "VALIDATION_ERROR")
			}

			prefs, err := cmdCtx.GetPreferences()
			if err != nil {
				return nil, fmt.Errorf("could not read preferences: %w", err)
			}
			key := normalizePreferenceKey(query)
			if v, ok := prefs[key]; ok {
				return fmt.Sprintf("Your %s is %v", strings.ReplaceAll(key, "_", " "), v), nil
			}

			results, err := cmdCtx.SearchMemory(query, 3)
			if err != nil {
				return nil, fmt.Errorf("could not search memory: %w", err)
			}
			if len(results) == 0 {
				return fmt.Sprintf("I don't remember anything about %s", query), nil
			}

			snippets := make([]string, 0, len(results))
			for _, r := range results {
				snippets = append(snippets, r.Content)
			}
			return "I remember: " + strings.Join(snippets, "; "), nil
		},
		func(o *FunctionCommandOptions) {
			o.Patterns = []string{
				`^what(?:'s| is) my (?P<query>.+?)\??$`,
				`^(?:do you )?remember (?P<query>.+)$`,
			}
		},
	)
}

// normalizePreferenceKey lowercases and snake_cases a spoken key phrase.
func normalizePreferenceKey(key string) string {
	key = strings.ToLower(strings.TrimSpace(key))
	key = strings.Trim(key, "?.!")
	return strings.Join(strings.Fields(key), "_")
}
