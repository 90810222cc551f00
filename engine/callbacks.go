package engine

import (
	"context"

	"github.com/oppositecube/jarvis/core"
)

// CallbackType identifies the lifecycle point at which a callback runs.
type CallbackType string

const (
	// CallbackBeforeDispatch runs before agent execution begins. A returned
	// error rejects the dispatch.
	CallbackBeforeDispatch CallbackType = "before_dispatch"

	// CallbackAfterDispatch runs after agent execution completes successfully.
	CallbackAfterDispatch CallbackType = "after_dispatch"

	// CallbackOnError runs when agent execution fails.
	CallbackOnError CallbackType = "on_error"

	// CallbackOnStateChange runs when an event applies a session state delta.
	// A returned error terminates the dispatch.
	CallbackOnStateChange CallbackType = "on_state_change"
)

// CallbackContext carries the information available at a callback point.
// Event is nil for callbacks that do not operate on a specific event.
type CallbackContext struct {
	SessionID  string
	DispatchID string
	AgentName  string
	Event      *core.Event
	Type       CallbackType
	Err        error
}

// Callback is a hook into the dispatch lifecycle. Implementations run
// synchronously and should be fast; returning an error terminates the
// associated operation.
type Callback interface {
	// Type returns the callback type this implementation handles.
	Type() CallbackType

	// Execute performs the callback logic with the provided context.
	Execute(ctx context.Context, cbCtx *CallbackContext) error
}

// FunctionCallback wraps a plain function as a Callback.
type FunctionCallback struct {
	callbackType CallbackType
	fn           func(ctx context.Context, cbCtx *CallbackContext) error
}

// NewFunctionCallback creates a function-based callback for the given type.
func NewFunctionCallback(
	callbackType CallbackType,
	fn func(ctx context.Context, cbCtx *CallbackContext) error,
) *FunctionCallback {
	return &FunctionCallback{
		callbackType: callbackType,
		fn:           fn,
	}
}

// Type returns the callback type this function handles.
func (c *FunctionCallback) Type() CallbackType { return c.callbackType }

// Execute calls the wrapped function with the provided context.
func (c *FunctionCallback) Execute(ctx context.Context, cbCtx *CallbackContext) error {
	return c.fn(ctx, cbCtx)
}

// CallbackManager registers callbacks and runs them in registration order.
// Register callbacks during setup; execution is then safe for concurrent use.
type CallbackManager struct {
	callbacks map[CallbackType][]Callback
}

// NewCallbackManager creates an empty callback manager.
func NewCallbackManager() *CallbackManager {
	return &CallbackManager{
		callbacks: make(map[CallbackType][]Callback),
	}
}

// Register adds a callback under its declared type.
func (cm *CallbackManager) Register(callback Callback) {
	callbackType := callback.Type()
	cm.callbacks[callbackType] = append(cm.callbacks[callbackType], callback)
}

// Execute runs all callbacks registered for the given type in order. The
// first error stops execution and is returned.
func (cm *CallbackManager) Execute(
	ctx context.Context,
	callbackType CallbackType,
	cbCtx *CallbackContext,
) error {
	if cm == nil {
		return nil
	}

	callbacks, exists := cm.callbacks[callbackType]
	if !exists {
		return nil
	}

	for _, callback := range callbacks {
		if err := callback.Execute(ctx, cbCtx); err != nil {
			return err
		}
	}

	return nil
}

// StateValidationCallback validates session state deltas before they are
// accepted. The validator receives only the changed keys and can return an
// error to reject the modification and terminate the dispatch.
type StateValidationCallback struct {
	validator func(stateDelta map[string]interface{}) error
}

// NewStateValidationCallback creates a state validation callback.
func NewStateValidationCallback(validator func(stateDelta map[string]interface{}) error) *StateValidationCallback {
	return &StateValidationCallback{validator: validator}
}

// Type returns the callback type (always CallbackOnStateChange).
func (c *StateValidationCallback) Type() CallbackType { return CallbackOnStateChange }

// Execute validates the state delta carried by the event, if any.
func (c *StateValidationCallback) Execute(_ context.Context, cbCtx *CallbackContext) error {
	if c.validator != nil && cbCtx.Event != nil && cbCtx.Event.Actions.StateDelta != nil {
		return c.validator(cbCtx.Event.Actions.StateDelta)
	}
	return nil
}
