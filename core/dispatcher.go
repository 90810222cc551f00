package core

import "context"

// Dispatcher coordinates agent execution and event emission for recognized
// utterances.
//
// A concrete implementation is responsible for:
//   - Registering available agents (by name) via Register
//   - Spawning asynchronous dispatches (Dispatch) returning event + error channels
//   - Synchronous convenience execution (DispatchSync) collecting emitted events
//
// Implementations SHOULD:
//   - Guarantee ordering of events per dispatch where necessary
//   - Propagate context cancellation to underlying agent Run calls
//   - Close returned channels when an async dispatch terminates
//   - Surface terminal errors via the error channel (async) or direct return (sync)
type Dispatcher interface {
	// Register makes an agent available for later dispatch by name.
	Register(a Agent)

	// Dispatch starts an asynchronous dispatch of an utterance returning
	// streaming event and terminal error channels. Channels are closed when
	// execution completes or the context is cancelled.
	//
	// Returns:
	//   - dispatchID: unique identifier for this dispatch (for cancellation / tracking)
	//   - eventsCh: streamed events
	//   - errorsCh: terminal error channel (buffered size 1)
	//   - err: immediate error starting the dispatch
	Dispatch(
		ctx context.Context,
		sessionID, agentName string,
		utterance Content,
	) (string, <-chan Event, <-chan error, error)

	// DispatchSync executes a dispatch to completion, collecting all emitted
	// events into a slice. Convenience wrapper that drains Dispatch.
	// DispatchSync returns collected events and the dispatchID that produced them.
	DispatchSync(ctx context.Context, sessionID, agentName string, utterance Content) (string, []Event, error)
}
