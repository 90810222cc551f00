package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oppositecube/jarvis/agent"
	"github.com/oppositecube/jarvis/command"
	"github.com/oppositecube/jarvis/core"
	"github.com/oppositecube/jarvis/model"
)

var fixedClock = func() time.Time {
	return time.Date(2025, time.March, 14, 15, 4, 0, 0, time.UTC)
}

// newTestAssistant builds an assistant with a mock model and the clock
// builtins pinned to a fixed time.
func newTestAssistant(t *testing.T, mock *model.MockModel) *agent.Assistant {
	t.Helper()

	a := agent.NewAssistant("jarvis", mock, func(o *agent.AssistantOptions) {
		o.EnableStreaming = false
	})
	a.MustRegisterCommand(command.NewCurrentTimeCommand(fixedClock))
	a.MustRegisterCommand(command.NewCurrentDateCommand(fixedClock))

	return a
}

func finalReply(t *testing.T, events []core.Event) string {
	t.Helper()

	for i := len(events) - 1; i >= 0; i-- {
		ev := events[i]
		if ev.Content != nil && ev.Content.Role == "assistant" && ev.IsFinalReply() {
			return ev.Content.Text()
		}
	}

	t.Fatal("no final reply in events")
	return ""
}

func TestDispatchSync_PatternCommand(t *testing.T) {
	e := New()
	e.Register(newTestAssistant(t, model.NewMockModel("mock", "mock")))

	dispatchID, events, err := e.DispatchSync(context.Background(), "sess-1", "jarvis", core.NewUserText("what time is it"))
	require.NoError(t, err)
	assert.NotEmpty(t, dispatchID)

	assert.Equal(t, "3:04 PM", finalReply(t, events))

	// user event + command call + result + final reply persisted
	sess, err := e.GetSession("sess-1")
	require.NoError(t, err)
	assert.Len(t, sess.GetEvents(), 4)
}

func TestDispatchSync_ModelReply(t *testing.T) {
	mock := model.NewMockModel("mock", "mock")
	mock.AddResponse("tell me a joke", "Why did the robot cross the road?")

	e := New()
	e.Register(newTestAssistant(t, mock))

	_, events, err := e.DispatchSync(context.Background(), "sess-1", "jarvis", core.NewUserText("tell me a joke"))
	require.NoError(t, err)
	assert.Equal(t, "Why did the robot cross the road?", finalReply(t, events))
}

func TestDispatchSync_CommandLoop(t *testing.T) {
	mock := model.NewMockModel("mock", "mock")
	mock.AddCommandCall("add two and three", core.CommandCall{Name: "sum", Arguments: `{"a":2,"b":3}`})

	a := newTestAssistant(t, mock)
	a.MustRegisterCommand(command.NewFunctionCommand(
		"sum", "Add numbers",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"a": map[string]any{"type": "number"},
				"b": map[string]any{"type": "number"},
			},
			"required": []string{"a", "b"},
		},
		func(_ *core.CommandContext, args map[string]any) (any, error) {
			return args["a"].(float64) + args["b"].(float64), nil
		},
	))

	e := New()
	e.Register(a)

	_, events, err := e.DispatchSync(context.Background(), "sess-1", "jarvis", core.NewUserText("add two and three"))
	require.NoError(t, err)

	var sawCall, sawResult bool
	for _, ev := range events {
		if len(ev.GetCommandCalls()) > 0 {
			sawCall = true
		}
		if len(ev.GetCommandResults()) > 0 {
			sawResult = true
		}
	}
	assert.True(t, sawCall)
	assert.True(t, sawResult)
	assert.Equal(t, "5", finalReply(t, events))
}

func TestDispatch_WakeWordGate(t *testing.T) {
	e := New(func(o *Options) {
		o.Config.WakeWord = "jarvis"
		o.Config.AwakeTurns = 1
	})
	e.Register(newTestAssistant(t, model.NewMockModel("mock", "mock")))

	ctx := context.Background()

	// Asleep session ignores plain utterances
	_, _, err := e.DispatchSync(ctx, "sess-1", "jarvis", core.NewUserText("what time is it"))
	assert.ErrorIs(t, err, ErrNotAwake)

	// Wake word wakes the session and is stripped from the utterance
	_, events, err := e.DispatchSync(ctx, "sess-1", "jarvis", core.NewUserText("Jarvis, what time is it"))
	require.NoError(t, err)
	assert.Equal(t, "3:04 PM", finalReply(t, events))

	// One follow-up turn allowed without the wake word
	_, events, err = e.DispatchSync(ctx, "sess-1", "jarvis", core.NewUserText("what's the date"))
	require.NoError(t, err)
	assert.NotEmpty(t, finalReply(t, events))

	// Awake turns exhausted
	_, _, err = e.DispatchSync(ctx, "sess-1", "jarvis", core.NewUserText("what time is it"))
	assert.ErrorIs(t, err, ErrNotAwake)
}

func TestDispatch_RecordsExchange(t *testing.T) {
	e := New()
	e.Register(newTestAssistant(t, model.NewMockModel("mock", "mock")))

	_, _, err := e.DispatchSync(context.Background(), "sess-1", "jarvis", core.NewUserText("what time is it"))
	require.NoError(t, err)

	require.Equal(t, 1, e.ShortTerm().Len())
	ex := e.ShortTerm().Items()[0]
	assert.Equal(t, "what time is it", ex.Utterance)
	assert.Equal(t, "3:04 PM", ex.Response)

	hits, err := e.memoryStore.Search("sess-1", "3:04 PM", 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Contains(t, hits[0].Content, "User: what time is it")
}

func TestDispatch_SkipMemory(t *testing.T) {
	a := newTestAssistant(t, model.NewMockModel("mock", "mock"))
	a.MustRegisterCommand(command.NewFunctionCommand(
		"secret", "Off the record",
		map[string]any{"type": "object", "properties": map[string]any{}},
		func(cmdCtx *core.CommandContext, _ map[string]any) (any, error) {
			cmdCtx.SkipMemory()
			return "This stays between us", nil
		},
		func(o *command.FunctionCommandOptions) { o.Patterns = []string{`^secret`} },
	))

	e := New()
	e.Register(a)

	_, events, err := e.DispatchSync(context.Background(), "sess-1", "jarvis", core.NewUserText("secret briefing"))
	require.NoError(t, err)
	assert.Equal(t, "This stays between us", finalReply(t, events))

	assert.Equal(t, 0, e.ShortTerm().Len())
}

func TestDispatch_EndSession(t *testing.T) {
	a := newTestAssistant(t, model.NewMockModel("mock", "mock"))
	a.MustRegisterCommand(command.NewFunctionCommand(
		"sleep", "Back to standby",
		map[string]any{"type": "object", "properties": map[string]any{}},
		func(cmdCtx *core.CommandContext, _ map[string]any) (any, error) {
			cmdCtx.EndSession()
			return "Going to sleep", nil
		},
		func(o *command.FunctionCommandOptions) { o.Patterns = []string{`^go to sleep`} },
	))

	e := New(func(o *Options) {
		o.Config.WakeWord = "jarvis"
		o.Config.AwakeTurns = 5
	})
	e.Register(a)

	ctx := context.Background()

	_, _, err := e.DispatchSync(ctx, "sess-1", "jarvis", core.NewUserText("jarvis go to sleep"))
	require.NoError(t, err)

	// EndSession reset the awake turns despite the generous budget
	_, _, err = e.DispatchSync(ctx, "sess-1", "jarvis", core.NewUserText("what time is it"))
	assert.ErrorIs(t, err, ErrNotAwake)
}

func TestDispatch_UnknownAgent(t *testing.T) {
	e := New()
	_, _, _, err := e.Dispatch(context.Background(), "sess-1", "ghost", core.NewUserText("hello"))
	assert.Error(t, err)
}

func TestStopDispatch_Unknown(t *testing.T) {
	e := New()
	assert.Error(t, e.StopDispatch("missing"))
}

func TestCallbacks(t *testing.T) {
	var order []string

	cm := NewCallbackManager()
	cm.Register(NewFunctionCallback(CallbackBeforeDispatch, func(_ context.Context, cbCtx *CallbackContext) error {
		order = append(order, "before:"+cbCtx.AgentName)
		return nil
	}))
	cm.Register(NewFunctionCallback(CallbackAfterDispatch, func(_ context.Context, _ *CallbackContext) error {
		order = append(order, "after")
		return nil
	}))

	e := New(func(o *Options) { o.Callbacks = cm })
	e.Register(newTestAssistant(t, model.NewMockModel("mock", "mock")))

	_, _, err := e.DispatchSync(context.Background(), "sess-1", "jarvis", core.NewUserText("what time is it"))
	require.NoError(t, err)

	assert.Equal(t, []string{"before:jarvis", "after"}, order)
}
