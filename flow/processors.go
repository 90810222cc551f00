package flow

import (
	"fmt"
	"strings"

	"github.com/oppositecube/jarvis/core"
	internalutil "github.com/oppositecube/jarvis/internal/util"
	"github.com/oppositecube/jarvis/model"
)

// InstructionsProcessor handles system prompt and instruction processing.
type InstructionsProcessor struct{}

// NewInstructionsProcessor creates a new instructions processor.
func NewInstructionsProcessor() *InstructionsProcessor { return &InstructionsProcessor{} }

// Name returns the processor's identifier.
func (p *InstructionsProcessor) Name() string { return "instructions" }

// ProcessRequest resolves the agent instructions and renders them against
// session state before attaching them to the model request.
func (p *InstructionsProcessor) ProcessRequest(runCtx *core.RunContext, req *model.Request, agent FlowAgent) error {
	instructions, err := agent.ResolveInstructions(runCtx)
	if err != nil {
		return fmt.Errorf("failed to resolve instruction: %w", err)
	}

	runCtx.LogDebug("flow.instruction.resolved", "agent", agent.GetName(), "length", len(instructions))

	if runCtx.Session != nil && runCtx.Session.State != nil {
		var tplErr error
		// Apply template substitution to the system prompt using session state
		req.Instructions, tplErr = internalutil.RenderTemplate(instructions, runCtx.Session.State)
		if tplErr != nil {
			return fmt.Errorf("failed to render template: %w", tplErr)
		}
	} else {
		req.Instructions = instructions
	}

	return nil
}

// ContentsProcessor assembles the windowed conversation history.
type ContentsProcessor struct{}

// NewContentsProcessor creates a new contents processor.
func NewContentsProcessor() *ContentsProcessor { return &ContentsProcessor{} }

// Name returns the processor's identifier.
func (p *ContentsProcessor) Name() string { return "contents" }

// ProcessRequest adds the conversation history window to the model request.
func (p *ContentsProcessor) ProcessRequest(runCtx *core.RunContext, req *model.Request, agent FlowAgent) error {
	var contents []core.Content

	if runCtx.Session != nil {
		events := runCtx.Session.GetConversationHistory()
		if max := agent.MaxHistoryMessages(); max > 0 && len(events) > max {
			events = events[len(events)-max:]
		}

		for _, ev := range events {
			if ev.Content != nil && len(ev.Content.Parts) > 0 {
				contents = append(contents, *ev.Content)
			}
		}
	}

	req.Contents = append(req.Contents, contents...)
	return nil
}

// RecallProcessor injects long-term memories relevant to the current
// utterance as an additional system content block.
type RecallProcessor struct{}

// NewRecallProcessor creates a new recall processor.
func NewRecallProcessor() *RecallProcessor { return &RecallProcessor{} }

// Name returns the processor's identifier.
func (p *RecallProcessor) Name() string { return "recall" }

// ProcessRequest searches the memory store for the utterance text and, when
// hits exist, prepends them to the request contents. Recall failures are
// logged and skipped so a broken memory backend never blocks a reply.
func (p *RecallProcessor) ProcessRequest(runCtx *core.RunContext, req *model.Request, agent FlowAgent) error {
	query := strings.TrimSpace(runCtx.Utterance.Text())
	if query == "" {
		return nil
	}

	limit := agent.RecallLimit()
	if limit <= 0 {
		return nil
	}

	hits, err := runCtx.SearchMemory(query, limit)
	if err != nil {
		runCtx.LogWarn("flow.recall.search_failed", "agent", agent.GetName(), "error", err.Error())
		return nil
	}

	if len(hits) == 0 {
		return nil
	}

	var b strings.Builder
	b.WriteString("Relevant memories from earlier conversations:\n")
	for _, hit := range hits {
		b.WriteString("- ")
		b.WriteString(hit.Content)
		b.WriteString("\n")
	}

	runCtx.LogDebug("flow.recall.injected", "agent", agent.GetName(), "hits", len(hits))

	req.Contents = append(req.Contents, core.Content{
		Role:  "system",
		Parts: []core.Part{core.TextPart{Text: b.String()}},
	})

	return nil
}
