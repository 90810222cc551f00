package command

import (
	"fmt"
	"strings"

	"github.com/oppositecube/jarvis/core"
)

// StateManagerCommand provides operations for managing session state through
// CommandContext.
//
// This command demonstrates how to use CommandContext for state management,
// session flow control (skip_memory, end_session), memory and artifact
// handling. It is model-only (no utterance patterns) so the assistant can
// drive framework integration without exposing internals as speech commands.
type StateManagerCommand struct {
	name        string
	description string
}

// NewStateManagerCommand creates a new state management command.
//
// This command provides operations for:
//   - Reading and writing session state
//   - Session flow control (skip_memory, end_session)
//   - Memory management
//   - Artifact handling
func NewStateManagerCommand() *StateManagerCommand {
	return &StateManagerCommand{
		name: "state_manager",
		description: "Manages session state, session flow control, and framework integration. " +
			"Supports operations: get_state, set_state, save_artifact, load_artifact, " +
			"list_artifacts, search_memory, store_memory, get_session_history, skip_memory, end_session.",
	}
}

// Name returns the command identifier.
func (t *StateManagerCommand) Name() string {
	return t.name
}

// Description returns the command description.
func (t *StateManagerCommand) Description() string {
	return t.description
}

// Patterns returns no utterance patterns; this command is model-only.
func (t *StateManagerCommand) Patterns() []string { return nil }

// Parameters returns the JSON schema for command parameters.
func (t *StateManagerCommand) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"operation": map[string]interface{}{
				"type": "string",
				"enum": []string{
					"get_state", "set_state", "save_artifact", "load_artifact",
					"list_artifacts", "search_memory", "store_memory",
					"get_session_history", "skip_memory", "end_session",
				},
				"description": "The state management operation to perform",
			},
			"key": map[string]interface{}{
				"type":        "string",
				"description": "State key for get_state/set_state operations",
			},
			"value": map[string]interface{}{
				"description": "Value for set_state operations (any type)",
			},
			"artifact_id": map[string]interface{}{
				"type":        "string",
				"description": "Artifact identifier for artifact operations",
			},
			"data": map[string]interface{}{
				"type":        "string",
				"description": "Data for save_artifact operation",
			},
			"query": map[string]interface{}{
				"type":        "string",
				"description": "Search query for memory operations",
			},
			"content": map[string]interface{}{
				"type":        "string",
				"description": "Content to store in memory",
			},
			"metadata": map[string]interface{}{
				"type":        "object",
				"description": "Metadata for memory storage",
			},
			"limit": map[string]interface{}{
				"type":        "integer",
				"description": "Limit for search operations (default: 10)",
				"default":     10,
			},
		},
		"required": []string{"operation"},
	}
}

// Call implements the Command interface with structured arguments.
func (t *StateManagerCommand) Call(cmdCtx *core.CommandContext, args map[string]interface{}) (interface{}, error) {
	operation, ok := args["operation"].(string)
	if !ok {
		return nil, fmt.Errorf("operation parameter is required")
	}

	switch operation {
	case "get_state":
		return t.handleGetState(args, cmdCtx)
	case "set_state":
		return t.handleSetState(args, cmdCtx)
	case "save_artifact":
		return t.handleSaveArtifact(args, cmdCtx)
	case "load_artifact":
		return t.handleLoadArtifact(args, cmdCtx)
	case "search_memory":
		return t.handleSearchMemory(args, cmdCtx)
	case "store_memory":
		return t.handleStoreMemory(args, cmdCtx)
	case "list_artifacts":
		return t.handleListArtifacts(cmdCtx)
	case "get_session_history":
		return t.handleGetSessionHistory(cmdCtx)
	case "skip_memory":
		return t.handleSkipMemory(cmdCtx)
	case "end_session":
		return t.handleEndSession(cmdCtx)
	default:
		return nil, fmt.Errorf("unknown operation: %s", operation)
	}
}

// handleGetState retrieves a value from session state.
func (t *StateManagerCommand) handleGetState(args map[string]interface{}, cmdCtx *core.CommandContext) (interface{}, error) {
	key, ok := args["key"].(string)
	if !ok {
		return nil, fmt.Errorf("key parameter is required for get_state operation")
	}

	value, exists := cmdCtx.GetState(key)
	if !exists {
		return map[string]interface{}{
			"key":    key,
			"exists": false,
			"value":  nil,
		}, nil
	}

	return map[string]interface{}{
		"key":    key,
		"exists": true,
		"value":  value,
	}, nil
}

// handleSetState sets a value in session state.
func (t *StateManagerCommand) handleSetState(args map[string]interface{}, cmdCtx *core.CommandContext) (interface{}, error) {
	key, ok := args["key"].(string)
	if !ok {
		return nil, fmt.Errorf("key parameter is required for set_state operation")
	}

	value := args["value"] // Can be any type

	cmdCtx.SetState(key, value)

	return map[string]interface{}{
		"key":     key,
		"value":   value,
		"success": true,
		"message": fmt.Sprintf("State key '%s' set successfully", key),
	}, nil
}

// handleSaveArtifact saves data as an artifact.
func (t *StateManagerCommand) handleSaveArtifact(args map[string]interface{}, cmdCtx *core.CommandContext) (interface{}, error) {
	artifactID, ok := args["artifact_id"].(string)
	if !ok {
		return nil, fmt.Errorf("artifact_id parameter is required for save_artifact operation")
	}

	dataStr, ok := args["data"].(string)
	if !ok {
		return nil, fmt.Errorf("data parameter is required for save_artifact operation")
	}

	data := []byte(dataStr)

	if err := cmdCtx.SaveArtifact(artifactID, data); err != nil {
		return nil, fmt.Errorf("failed to save artifact: %w", err)
	}

	return map[string]interface{}{
		"artifact_id": artifactID,
		"size":        len(data),
		"success":     true,
		"message":     fmt.Sprintf("Artifact '%s' saved successfully", artifactID),
	}, nil
}

// handleLoadArtifact loads data from an artifact.
func (t *StateManagerCommand) handleLoadArtifact(args map[string]interface{}, cmdCtx *core.CommandContext) (interface{}, error) {
	artifactID, ok := args["artifact_id"].(string)
	if !ok {
		return nil, fmt.Errorf("artifact_id parameter is required for load_artifact operation")
	}

	data, err := cmdCtx.LoadArtifact(artifactID)
	if err != nil {
		return nil, fmt.Errorf("failed to load artifact: %w", err)
	}

	return map[string]interface{}{
		"artifact_id": artifactID,
		"data":        string(data),
		"size":        len(data),
		"success":     true,
	}, nil
}

// handleSearchMemory searches for relevant memories.
func (t *StateManagerCommand) handleSearchMemory(args map[string]interface{}, cmdCtx *core.CommandContext) (interface{}, error) {
	query, ok := args["query"].(string)
	if !ok {
		return nil, fmt.Errorf("query parameter is required for search_memory operation")
	}

	limit := 10
	if l, ok := args["limit"].(float64); ok {
		limit = int(l)
	}

	results, err := cmdCtx.SearchMemory(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search memory: %w", err)
	}

	return map[string]interface{}{
		"query":   query,
		"limit":   limit,
		"count":   len(results),
		"results": results,
		"success": true,
	}, nil
}

// handleStoreMemory stores content in memory.
func (t *StateManagerCommand) handleStoreMemory(args map[string]interface{}, cmdCtx *core.CommandContext) (interface{}, error) {
	content, ok := args["content"].(string)
	if !ok {
		return nil, fmt.Errorf("content parameter is required for store_memory operation")
	}

	metadata := make(map[string]interface{})
	if m, ok := args["metadata"].(map[string]interface{}); ok {
		metadata = m
	}

	if err := cmdCtx.StoreMemory(content, metadata); err != nil {
		return nil, fmt.Errorf("failed to store memory: %w", err)
	}

	return map[string]interface{}{
		"content":  content,
		"metadata": metadata,
		"success":  true,
		"message":  "Memory stored successfully",
	}, nil
}

// handleListArtifacts lists all artifacts in the session.
func (t *StateManagerCommand) handleListArtifacts(cmdCtx *core.CommandContext) (interface{}, error) {
	artifacts, err := cmdCtx.ListArtifacts()
	if err != nil {
		return nil, fmt.Errorf("failed to list artifacts: %w", err)
	}

	return map[string]interface{}{
		"artifacts": artifacts,
		"count":     len(artifacts),
		"success":   true,
	}, nil
}

// handleGetSessionHistory retrieves session history.
func (t *StateManagerCommand) handleGetSessionHistory(cmdCtx *core.CommandContext) (interface{}, error) {
	history := cmdCtx.GetSessionHistory()

	// Convert events to a more readable format
	events := make([]map[string]interface{}, len(history))
	for i, ev := range history {
		events[i] = map[string]interface{}{
			"id":          ev.ID,
			"author":      ev.Author,
			"timestamp":   ev.Timestamp,
			"partial":     ev.Partial,
			"has_content": ev.Content != nil,
		}
		if ev.Content != nil && len(ev.Content.Parts) > 0 {
			var contentSummary []string
			for _, part := range ev.Content.Parts {
				switch p := part.(type) {
				case core.TextPart:
					preview := p.Text
					if len(preview) > 100 {
						preview = preview[:100] + "..."
					}
					contentSummary = append(contentSummary, fmt.Sprintf("text: %s", preview))
				case core.CommandCallPart:
					contentSummary = append(contentSummary, fmt.Sprintf("command_call: %s", p.CommandCall.Name))
				case core.CommandResultPart:
					contentSummary = append(contentSummary, fmt.Sprintf("command_result: %s", p.CommandResult.Name))
				default:
					contentSummary = append(contentSummary, "other")
				}
			}
			events[i]["content_summary"] = strings.Join(contentSummary, ", ")
		}
	}

	return map[string]interface{}{
		"events":  events,
		"count":   len(events),
		"success": true,
	}, nil
}

// handleSkipMemory sets the skip memory flag for this exchange.
func (t *StateManagerCommand) handleSkipMemory(cmdCtx *core.CommandContext) (interface{}, error) {
	cmdCtx.SkipMemory()

	return map[string]interface{}{
		"success": true,
		"message": "Long-term memory write will be skipped for this exchange",
	}, nil
}

// handleEndSession signals that the session should go back to sleep.
func (t *StateManagerCommand) handleEndSession(cmdCtx *core.CommandContext) (interface{}, error) {
	cmdCtx.EndSession()

	return map[string]interface{}{
		"success": true,
		"message": "Session will end after this dispatch",
	}, nil
}
