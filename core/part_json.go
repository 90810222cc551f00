package core

import (
	"encoding/json"
	"fmt"
)

// Wire representation of a Part. Each part is discriminated by a "type" tag so
// heterogeneous part slices survive a JSON round-trip through durable stores.
type wirePart struct {
	Type          string         `json:"type"`
	Text          string         `json:"text,omitempty"`
	Data          map[string]any `json:"data,omitempty"`
	CommandCall   *CommandCall   `json:"command_call,omitempty"`
	CommandResult *CommandResult `json:"command_result,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

const (
	wirePartText          = "text"
	wirePartData          = "data"
	wirePartCommandCall   = "command_call"
	wirePartCommandResult = "command_result"
)

// MarshalJSON encodes Content with type-tagged parts.
func (c Content) MarshalJSON() ([]byte, error) {
	wire := struct {
		Role  string     `json:"role,omitempty"`
		Parts []wirePart `json:"parts"`
	}{Role: c.Role, Parts: make([]wirePart, 0, len(c.Parts))}

	for _, p := range c.Parts {
		switch v := p.(type) {
		case TextPart:
			wire.Parts = append(wire.Parts, wirePart{Type: wirePartText, Text: v.Text, Metadata: v.Metadata})
		case DataPart:
			wire.Parts = append(wire.Parts, wirePart{Type: wirePartData, Data: v.Data, Metadata: v.Metadata})
		case CommandCallPart:
			cc := v.CommandCall
			wire.Parts = append(wire.Parts, wirePart{Type: wirePartCommandCall, CommandCall: &cc, Metadata: v.Metadata})
		case CommandResultPart:
			cr := v.CommandResult
			wire.Parts = append(wire.Parts, wirePart{Type: wirePartCommandResult, CommandResult: &cr, Metadata: v.Metadata})
		default:
			return nil, fmt.Errorf("unknown part type %T", p)
		}
	}

	return json.Marshal(wire)
}

// UnmarshalJSON decodes type-tagged parts back into concrete Part values.
func (c *Content) UnmarshalJSON(data []byte) error {
	var wire struct {
		Role  string     `json:"role,omitempty"`
		Parts []wirePart `json:"parts"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	c.Role = wire.Role
	c.Parts = make([]Part, 0, len(wire.Parts))

	for _, wp := range wire.Parts {
		switch wp.Type {
		case wirePartText:
			c.Parts = append(c.Parts, TextPart{Text: wp.Text, Metadata: wp.Metadata})
		case wirePartData:
			c.Parts = append(c.Parts, DataPart{Data: wp.Data, Metadata: wp.Metadata})
		case wirePartCommandCall:
			var cc CommandCall
			if wp.CommandCall != nil {
				cc = *wp.CommandCall
			}
			c.Parts = append(c.Parts, CommandCallPart{CommandCall: cc, Metadata: wp.Metadata})
		case wirePartCommandResult:
			var cr CommandResult
			if wp.CommandResult != nil {
				cr = *wp.CommandResult
			}
			c.Parts = append(c.Parts, CommandResultPart{CommandResult: cr, Metadata: wp.Metadata})
		default:
			return fmt.Errorf("unknown part type %q", wp.Type)
		}
	}

	return nil
}
