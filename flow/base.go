package flow

import (
	"fmt"
	"time"

	"github.com/oppositecube/jarvis/core"
	"github.com/oppositecube/jarvis/model"
)

// BaseFlow is a minimal single‑agent flow implementation that supports a
// request -> model -> (optional command loop) cycle with pluggable pre/post
// processors.
type BaseFlow struct {
	agent              FlowAgent
	requestProcessors  []RequestProcessor
	responseProcessors []ResponseProcessor
}

// NewBaseFlow creates a new basic single-agent flow.
func NewBaseFlow(agent FlowAgent) *BaseFlow {
	return &BaseFlow{
		agent:              agent,
		requestProcessors:  []RequestProcessor{},
		responseProcessors: []ResponseProcessor{},
	}
}

// AddRequestProcessor appends a request processor; order of registration defines execution order.
func (f *BaseFlow) AddRequestProcessor(processor RequestProcessor) {
	f.requestProcessors = append(f.requestProcessors, processor)
}

// AddResponseProcessor appends a response processor executed after each model chunk.
func (f *BaseFlow) AddResponseProcessor(processor ResponseProcessor) {
	f.responseProcessors = append(f.responseProcessors, processor)
}

// Execute launches the flow asynchronously and returns a channel of Events.
// The channel is closed when a final reply is emitted or an unrecoverable
// error occurs. Callers should range over the returned channel.
func (f *BaseFlow) Execute(runCtx *core.RunContext) (<-chan core.Event, error) {
	eventChan := make(chan core.Event, 100)

	go func() {
		defer close(eventChan)

		for {
			last := f.runOnce(runCtx, eventChan)
			if last == nil {
				break
			}
			// A command result means the model needs another turn
			if len(last.GetCommandResults()) > 0 {
				continue
			}
			if last.IsPartial() {
				runCtx.LogWarn("flow.execute.dangling_partial", "agent", f.agent.GetName())
				break
			}
			if last.IsFinalReply() {
				break
			}
		}
	}()

	return eventChan, nil
}

// emitError converts an internal error to a system Event.
func (f *BaseFlow) emitError(eventChan chan<- core.Event, dispatchID string, err error) {
	ev := core.NewEvent(dispatchID, "system")
	msg := err.Error()
	ev.ErrorMessage = &msg
	eventChan <- ev
}

// runOnce performs one model turn (including any command executions) and
// returns the last emitted Event (final or intermediate). A nil return
// signals termination.
func (f *BaseFlow) runOnce(runCtx *core.RunContext, eventChan chan<- core.Event) *core.Event {
	// Refresh session snapshot so request processors see the latest
	// conversation (including command results appended by the engine)
	if err := runCtx.RefreshSession(); err != nil {
		runCtx.LogWarn("flow.session.refresh_failed", "error", err.Error())
	}

	req := new(model.Request)

	for _, processor := range f.requestProcessors {
		if err := processor.ProcessRequest(runCtx, req, f.agent); err != nil {
			f.emitError(eventChan, runCtx.DispatchID, fmt.Errorf("request processor %s failed: %w", processor.Name(), err))
			return nil
		}
	}

	commands := f.agent.Commands()
	if len(commands) > 0 {
		defs := make([]model.CommandDefinition, 0, len(commands))
		for _, c := range commands {
			defs = append(defs, model.CommandDefinition{
				Type: "function",
				Function: model.FunctionDefinition{
					Name:        c.Name(),
					Description: c.Description(),
					Parameters:  c.Parameters(),
				},
			})
		}

		req.Commands = defs
	}

	req.Stream = f.agent.IsStreamingEnabled()

	if err := runCtx.Limiter.Increment(); err != nil {
		f.emitError(eventChan, runCtx.DispatchID, err)
		return nil
	}

	llm := f.agent.GetModel()

	respCh, errCh := llm.Generate(runCtx.Context, *req)

	var lastEvent *core.Event

loop:
	for {
		select {
		case resp, ok := <-respCh:
			if !ok {
				break loop
			}

			for _, processor := range f.responseProcessors {
				if err := processor.ProcessResponse(runCtx, &resp, f.agent); err != nil {
					f.emitError(eventChan, runCtx.DispatchID, fmt.Errorf("response processor %s failed: %w", processor.Name(), err))
					return nil
				}
			}

			ev := core.NewEvent(runCtx.DispatchID, f.agent.GetName())
			ev.Content = &resp.Content
			ev.Partial = &resp.Partial

			// Mark turn complete on a final assistant reply with no pending command calls
			if !resp.Partial && len(ev.GetCommandCalls()) == 0 {
				complete := true
				ev.TurnComplete = &complete

				if key := f.agent.GetOutputKey(); key != "" {
					if ev.Actions.StateDelta == nil {
						ev.Actions.StateDelta = map[string]any{}
					}
					ev.Actions.StateDelta[key] = resp.Content.Text()
				}
			}

			lastEvent = &ev

			eventChan <- ev

			// Wait for session persistence (engine signals resume after append)
			if !ev.IsPartial() {
				if err := runCtx.WaitForResume(); err != nil {
					return lastEvent
				}
			}

			if calls := ev.GetCommandCalls(); len(calls) > 0 {
				for _, call := range calls {
					cmdCtx := core.NewCommandContext(runCtx, call.ID)

					start := time.Now()
					result, err := f.agent.ExecuteCommand(cmdCtx, call.Name, call.Arguments)
					dur := time.Since(start)

					runCtx.LogInfo(
						"flow.command.executed",
						"agent", f.agent.GetName(),
						"command", call.Name,
						"duration_ms", dur.Milliseconds(),
						"error", err != nil,
					)

					respEv := core.NewCommandResultEvent(f.agent.GetName(), call.ID, call.Name, result, err)
					respEv.DispatchID = runCtx.DispatchID
					cmdCtx.InternalApplyActions(&respEv)

					lastEvent = &respEv

					eventChan <- respEv

					if err := runCtx.WaitForResume(); err != nil {
						return lastEvent
					}
				}
			}
		case err, ok := <-errCh:
			if ok && err != nil {
				runCtx.LogError("flow.model.error", "agent", f.agent.GetName(), "error", err.Error())
				f.emitError(eventChan, runCtx.DispatchID, err)
				return nil
			}
			break loop
		}
	}

	return lastEvent
}
