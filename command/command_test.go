package command

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oppositecube/jarvis/artifact"
	"github.com/oppositecube/jarvis/core"
	"github.com/oppositecube/jarvis/internal/util"
	"github.com/oppositecube/jarvis/logging"
	"github.com/oppositecube/jarvis/memory"
	"github.com/oppositecube/jarvis/session"
)

// -------------------- Schema & Validation Tests --------------------

type sampleSchema struct {
	A string `json:"a" description:"Field A"`
	B *int   `json:"b" description:"Optional pointer field"`
	C int    `json:"c,omitempty" description:"Omit empty field"`
}

func TestCreateSchema(t *testing.T) {
	schema := util.CreateSchema(sampleSchema{})
	props, ok := schema["properties"].(map[string]any)
	assert.True(t, ok)
	assert.Contains(t, props, "a")
	assert.Contains(t, props, "b")
	assert.Contains(t, props, "c")
	// Required only includes non-pointer, non-omitempty exported fields
	req, _ := schema["required"].([]string)
	if req == nil { // reflection may produce []any
		ifaceReq, _ := schema["required"].([]any)
		for _, v := range ifaceReq {
			req = append(req, v.(string))
		}
	}
	assert.ElementsMatch(t, []string{"a"}, req)
}

func TestValidateParameters(t *testing.T) {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"x": map[string]any{"type": "integer"},
		},
		"required": []any{"x"},
	}

	err := util.ValidateParameters(map[string]any{"x": 5}, schema)
	assert.NoError(t, err)

	err = util.ValidateParameters(map[string]any{}, schema)
	assert.Error(t, err)
	if vErr, ok := err.(*ValidationError); ok {
		assert.Equal(t, "x", vErr.Field)
	} else {
		t.Fatalf("expected ValidationError, got %T", err)
	}

	err = util.ValidateParameters(map[string]any{"x": "not-int"}, schema)
	assert.Error(t, err)
	if vErr, ok := err.(*ValidationError); ok {
		assert.Contains(t, vErr.Message, "expected type integer")
	} else {
		t.Fatalf("expected ValidationError, got %T", err)
	}
}

// -------------------- Test Fixtures --------------------

func dummyRunContext() *core.RunContext {
	sessStore := session.NewInMemoryStore()
	artStore := artifact.NewInMemoryStore()
	memStore := memory.NewInMemoryStore()

	sessionID := "sess-1"
	sess, err := sessStore.Create(sessionID)
	if err != nil {
		panic(err)
	}

	emit := make(chan core.Event, 10)
	resume := make(chan struct{}, 1)

	return core.NewRunContext(
		context.Background(), sessionID, "d-1",
		core.AgentInfo{Name: "jarvis", Type: "assistant"},
		core.Content{}, 0, emit, resume, sess,
		sessStore, artStore, memStore, logging.NoOpLogger{},
	)
}

func dummyCommandContext(callID string) *core.CommandContext {
	return core.NewCommandContext(dummyRunContext(), callID)
}

// -------------------- FunctionCommand Tests --------------------

func TestFunctionCommand_Success(t *testing.T) {
	params := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"a": map[string]any{"type": "number"},
			"b": map[string]any{"type": "number"},
		},
		"required": []string{"a", "b"},
	}

	sum := NewFunctionCommand("sum", "Add numbers", params, func(_ *core.CommandContext, args map[string]any) (any, error) {
		a := args["a"].(float64)
		b := args["b"].(float64)
		return a + b, nil
	})

	result, err := sum.Call(dummyCommandContext("cc1"), map[string]any{"a": 2.0, "b": 3.0})
	assert.NoError(t, err)
	assert.Equal(t, 5.0, result)
}

func TestFunctionCommand_ValidationError(t *testing.T) {
	params := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"a": map[string]any{"type": "number"},
		},
		"required": []any{"a"},
	}
	cmd := NewFunctionCommand("test", "Test", params, func(_ *core.CommandContext, _ map[string]any) (any, error) {
		return 0, nil
	})
	_, err := cmd.Call(dummyCommandContext("cc2"), map[string]any{})
	assert.Error(t, err)
	cmdErr, ok := err.(*CommandError)
	assert.True(t, ok)
	assert.Equal(t, "VALIDATION_ERROR", cmdErr.Code)
}

func TestFunctionCommand_ExecutionError(t *testing.T) {
	params := map[string]any{"type": "object", "properties": map[string]any{}}
	cmd := NewFunctionCommand("fail", "Fails", params, func(_ *core.CommandContext, _ map[string]any) (any, error) {
		return nil, errors.New("boom")
	})
	_, err := cmd.Call(dummyCommandContext("cc3"), map[string]any{})
	assert.Error(t, err)
	cmdErr, ok := err.(*CommandError)
	assert.True(t, ok)
	assert.Equal(t, "EXECUTION_ERROR", cmdErr.Code)
}

// -------------------- Registry Tests --------------------

func TestRegistry_RegisterAndResolve(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, RegisterBuiltins(reg))

	// duplicate registration fails
	err := reg.Register(NewCurrentTimeCommand(nil))
	assert.Error(t, err)

	cmd, args, ok := reg.Resolve("Open YouTube")
	require.True(t, ok)
	assert.Equal(t, "open_website", cmd.Name())
	assert.Equal(t, "YouTube", args["site"])

	cmd, _, ok = reg.Resolve("what time is it")
	require.True(t, ok)
	assert.Equal(t, "current_time", cmd.Name())

	cmd, args, ok = reg.Resolve("remember that my favorite color is blue")
	require.True(t, ok)
	assert.Equal(t, "remember_preference", cmd.Name())
	assert.Equal(t, "favorite color", args["key"])
	assert.Equal(t, "blue", args["value"])

	cmd, args, ok = reg.Resolve("what's my favorite color?")
	require.True(t, ok)
	assert.Equal(t, "recall_memory", cmd.Name())
	assert.Equal(t, "favorite color", args["query"])

	_, _, ok = reg.Resolve("tell me a joke")
	assert.False(t, ok)
}

func TestRegistry_InvalidPattern(t *testing.T) {
	reg := NewRegistry()
	bad := NewFunctionCommand("bad", "Broken pattern", map[string]any{"type": "object", "properties": map[string]any{}},
		func(_ *core.CommandContext, _ map[string]any) (any, error) { return nil, nil },
		func(o *FunctionCommandOptions) { o.Patterns = []string{`(`} },
	)
	assert.Error(t, reg.Register(bad))
}

// -------------------- CommandError Formatting --------------------

func TestCommandErrorFormatting(t *testing.T) {
	err := NewCommandError("demo", "something failed", "E123")
	assert.Contains(t, err.Error(), "E123")
	assert.Contains(t, err.Error(), "demo")
}
