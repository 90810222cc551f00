package command

import (
	"fmt"
	"strings"

	"github.com/oppositecube/jarvis/core"
	"github.com/oppositecube/jarvis/memory"
)

// knownSites maps spoken site names to canonical URLs.
var knownSites = map[string]string{
	"youtube":       "https://www.youtube.com",
	"google":        "https://www.google.com",
	"stackoverflow": "https://stackoverflow.com",
}

// Opener abstracts launching a URL so the command stays testable and the
// actual browser integration is supplied at wiring time.
type Opener interface {
	Open(url string) error
}

// OpenerFunc adapts a plain function to the Opener interface.
type OpenerFunc func(url string) error

// Open implements Opener.
func (f OpenerFunc) Open(url string) error { return f(url) }

// ResolveSiteURL maps a spoken site name to a URL. Unknown names are treated
// as raw targets; a missing scheme gets https:// prefixed.
func ResolveSiteURL(site string) string {
	if url, ok := knownSites[strings.ToLower(strings.TrimSpace(site))]; ok {
		return url
	}
	target := strings.TrimSpace(site)
	if !strings.Contains(target, "://") {
		target = "https://" + target
	}
	return target
}

// NewOpenWebsiteCommand builds the open_website command. Every successful open
// is recorded as a system interaction in long-term memory.
func NewOpenWebsiteCommand(opener Opener) *FunctionCommand {
	return NewFunctionCommand(
		"open_website",
		"Open a website in the browser by name (youtube, google, stackoverflow) or URL",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"site": map[string]any{"type": "string", "description": "Site name or URL to open"},
			},
			"required": []any{"site"},
		},
		func(cmdCtx *core.CommandContext, args map[string]any) (any, error) {
			site, _ := args["site"].(string)
			if strings.TrimSpace(site) == "" {
				return nil, NewCommandError("open_website", "site must not be empty", "VALIDATION_ERROR")
			}

			url := ResolveSiteURL(site)
			if err := opener.Open(url); err != nil {
				return nil, fmt.Errorf("could not open %s: %w", site, err)
			}

			if err := cmdCtx.StoreMemory(fmt.Sprintf("opened %s", url), map[string]any{"kind": memory.KindSystemInteraction, "command": "open_website"}); err != nil {
				cmdCtx.Logger().Warn("command.open_website.memory_failed", "error", err.Error())
			}

			return fmt.Sprintf("Opening %s", url), nil
		},
		func(o *FunctionCommandOptions) {
			o.Patterns = []string{
				`^(?:open|go to|visit)\s+(?P<site>\S+)$`,
			}
		},
	)
}
