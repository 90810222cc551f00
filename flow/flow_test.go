package flow

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oppositecube/jarvis/artifact"
	"github.com/oppositecube/jarvis/command"
	"github.com/oppositecube/jarvis/core"
	"github.com/oppositecube/jarvis/internal/testutil"
	"github.com/oppositecube/jarvis/logging"
	"github.com/oppositecube/jarvis/memory"
	"github.com/oppositecube/jarvis/model"
	"github.com/oppositecube/jarvis/session"
)

// fakeAgent is a minimal FlowAgent for exercising the pipeline directly.
type fakeAgent struct {
	name         string
	llm          model.Model
	instructions string
	commands     map[string]command.Command
	outputKey    string
	maxHistory   int
	recallLimit  int
}

func (a *fakeAgent) GetName() string          { return a.name }
func (a *fakeAgent) GetModel() model.Model    { return a.llm }
func (a *fakeAgent) IsStreamingEnabled() bool { return false }
func (a *fakeAgent) GetOutputKey() string     { return a.outputKey }
func (a *fakeAgent) MaxHistoryMessages() int  { return a.maxHistory }
func (a *fakeAgent) RecallLimit() int         { return a.recallLimit }

func (a *fakeAgent) ResolveInstructions(_ *core.RunContext) (string, error) {
	return a.instructions, nil
}

func (a *fakeAgent) Commands() []command.Command {
	var cmds []command.Command
	for _, c := range a.commands {
		cmds = append(cmds, c)
	}
	return cmds
}

func (a *fakeAgent) ExecuteCommand(cmdCtx *core.CommandContext, name, args string) (interface{}, error) {
	c, ok := a.commands[name]
	if !ok {
		return nil, fmt.Errorf("command %s not found", name)
	}
	return c.Call(cmdCtx, map[string]any{})
}

func newFakeAgent(llm model.Model) *fakeAgent {
	return &fakeAgent{
		name:         "jarvis",
		llm:          llm,
		instructions: "You are a voice assistant.",
		commands:     map[string]command.Command{},
		maxHistory:   20,
		recallLimit:  3,
	}
}

func newFlowRunContext(t *testing.T, utterance string, maxModelCalls int, memStore core.MemoryStore) (*core.RunContext, core.SessionStore) {
	t.Helper()

	sessStore := session.NewInMemoryStore()
	sess, err := sessStore.Get("sess-1")
	require.NoError(t, err)

	if memStore == nil {
		memStore = memory.NewInMemoryStore()
	}

	runCtx := core.NewRunContext(
		context.Background(), "sess-1", "d-1",
		core.AgentInfo{Name: "jarvis", Type: "assistant"},
		core.NewUserText(utterance), maxModelCalls, make(chan core.Event, 32), nil, sess,
		sessStore, artifact.NewInMemoryStore(), memStore,
		logging.NoOpLogger{},
	)

	return runCtx, sessStore
}

func collect(t *testing.T, ch <-chan core.Event) []core.Event {
	t.Helper()

	var events []core.Event
	for ev := range ch {
		events = append(events, ev)
	}
	return events
}

func TestAssistantFlow_FinalReply(t *testing.T) {
	mock := model.NewMockModel("mock", "mock")
	mock.AddResponse("status report", "All systems nominal.")

	agent := newFakeAgent(mock)
	agent.outputKey = "last_reply"

	runCtx, sessStore := newFlowRunContext(t, "status report", 3, nil)
	require.NoError(t, sessStore.AppendEvent("sess-1", core.NewUserUtteranceEvent("d-1", "status report")))

	fl := NewAssistantFlow(agent)
	ch, err := fl.Execute(runCtx)
	require.NoError(t, err)

	events := collect(t, ch)
	require.Len(t, events, 1)

	final := events[0]
	require.NotNil(t, final.TurnComplete)
	assert.True(t, *final.TurnComplete)
	assert.Equal(t, "All systems nominal.", final.Content.Text())
	assert.Equal(t, "All systems nominal.", final.Actions.StateDelta["last_reply"])
}

func TestBaseFlow_ModelCallLimit(t *testing.T) {
	mock := model.NewMockModel("mock", "mock")
	mock.AddCommandCall("run diagnostics", core.CommandCall{Name: "diag", Arguments: `{}`})

	agent := newFakeAgent(mock)
	agent.commands["diag"] = command.NewFunctionCommand(
		"diag", "Run diagnostics",
		map[string]any{"type": "object", "properties": map[string]any{}},
		func(_ *core.CommandContext, _ map[string]any) (any, error) {
			return "diagnostics complete", nil
		},
	)

	// Budget of one model call: the command executes, but the follow-up
	// turn trips the limiter. Without engine persistence the mock would
	// otherwise loop on the same command call forever.
	runCtx, sessStore := newFlowRunContext(t, "run diagnostics", 1, nil)
	require.NoError(t, sessStore.AppendEvent("sess-1", core.NewUserUtteranceEvent("d-1", "run diagnostics")))

	fl := NewAssistantFlow(agent)
	ch, err := fl.Execute(runCtx)
	require.NoError(t, err)

	events := collect(t, ch)
	require.Len(t, events, 3)

	require.Len(t, events[0].GetCommandCalls(), 1)
	assert.Equal(t, "diag", events[0].GetCommandCalls()[0].Name)

	results := events[1].GetCommandResults()
	require.Len(t, results, 1)
	assert.Equal(t, "diagnostics complete", results[0].Result)

	require.NotNil(t, events[2].ErrorMessage)
	assert.Contains(t, *events[2].ErrorMessage, "max model calls")
}

func TestInstructionsProcessor_Template(t *testing.T) {
	agent := newFakeAgent(model.NewMockModel("mock", "mock"))
	agent.instructions = "You serve {{.user_name}}."

	runCtx, sessStore := newFlowRunContext(t, "hello", 3, nil)
	require.NoError(t, sessStore.ApplyDelta("sess-1", map[string]any{"user_name": "Tony"}))
	require.NoError(t, runCtx.RefreshSession())

	req := new(model.Request)
	require.NoError(t, NewInstructionsProcessor().ProcessRequest(runCtx, req, agent))
	assert.Equal(t, "You serve Tony.", req.Instructions)
}

func TestContentsProcessor_HistoryWindow(t *testing.T) {
	agent := newFakeAgent(model.NewMockModel("mock", "mock"))
	agent.maxHistory = 2

	runCtx, _ := newFlowRunContext(t, "latest", 3, nil)
	runCtx.Session = testutil.NewSessionBuilder("sess-1").
		Events(
			core.NewUserUtteranceEvent("d-1", "utterance 0"),
			core.NewUserUtteranceEvent("d-1", "utterance 1"),
			core.NewUserUtteranceEvent("d-1", "utterance 2"),
			core.NewUserUtteranceEvent("d-1", "utterance 3"),
		).
		Build()

	req := new(model.Request)
	require.NoError(t, NewContentsProcessor().ProcessRequest(runCtx, req, agent))

	require.Len(t, req.Contents, 2)
	assert.Equal(t, "utterance 2", req.Contents[0].Text())
	assert.Equal(t, "utterance 3", req.Contents[1].Text())
}

func TestRecallProcessor_InjectsMemories(t *testing.T) {
	memStore := memory.NewInMemoryStore()
	require.NoError(t, memStore.Store("sess-1", "User asked about the weather in Malibu", nil))

	agent := newFakeAgent(model.NewMockModel("mock", "mock"))

	runCtx, _ := newFlowRunContext(t, "weather", 3, memStore)

	req := new(model.Request)
	require.NoError(t, NewRecallProcessor().ProcessRequest(runCtx, req, agent))

	require.Len(t, req.Contents, 1)
	assert.Equal(t, "system", req.Contents[0].Role)
	assert.Contains(t, req.Contents[0].Text(), "Malibu")
}
