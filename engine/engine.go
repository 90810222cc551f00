package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oppositecube/jarvis/artifact"
	"github.com/oppositecube/jarvis/core"
	"github.com/oppositecube/jarvis/logging"
	"github.com/oppositecube/jarvis/memory"
	"github.com/oppositecube/jarvis/session"
)

// ErrNotAwake is returned by Dispatch when the wake-word gate is active and
// the utterance neither contains the wake word nor belongs to an awake
// session. Callers should treat it as "ignored", not as a failure.
var ErrNotAwake = errors.New("wake word not detected")

// stateKeyAwakeTurns holds the number of remaining turns a session stays
// responsive after hearing the wake word.
const stateKeyAwakeTurns = "awake_turns"

// Config defines tuning parameters for the Engine's operational behavior.
type Config struct {
	// MaxConcurrentDispatches limits the number of dispatches that can
	// execute simultaneously. Set to 0 for unlimited.
	MaxConcurrentDispatches int

	// EventBufferSize sets the channel buffer size for event processing.
	EventBufferSize int

	// MaxModelCalls bounds generative model turns per dispatch. Guards
	// against command-call loops that never converge. 0 means unlimited.
	MaxModelCalls int

	// WakeWord gates dispatches when non-empty: utterances must contain it
	// (case-insensitive) unless the session is already awake.
	WakeWord string

	// AwakeTurns is the number of follow-up turns a session accepts without
	// repeating the wake word.
	AwakeTurns int
}

// DefaultConfig provides production-ready default configuration values.
// The wake-word gate is disabled by default; daemons enable it via config.
var DefaultConfig = Config{
	MaxConcurrentDispatches: 4,
	EventBufferSize:         100,
	MaxModelCalls:           5,
	WakeWord:                "",
	AwakeTurns:              3,
}

// Options configures an Engine instance using the functional options pattern.
// All services have in-memory defaults suitable for development and tests.
type Options struct {
	// Config contains operational parameters for the engine behavior.
	Config Config

	// SessionStore manages session persistence and state.
	SessionStore core.SessionStore

	// ArtifactStore handles binary/blob artifact storage.
	ArtifactStore core.ArtifactStore

	// MemoryStore provides searchable long-term memory.
	MemoryStore core.MemoryStore

	// ShortTerm is the bounded buffer of recent exchanges.
	ShortTerm *memory.ShortTermBuffer

	// Callbacks hooks into the dispatch lifecycle. Optional.
	Callbacks *CallbackManager

	// Logger provides structured logging. Defaults to NoOp if nil.
	Logger logging.Logger
}

// Engine orchestrates agent execution and manages the complete lifecycle of
// dispatched utterances. It implements core.Dispatcher.
type Engine struct {
	sessionStore  core.SessionStore
	artifactStore core.ArtifactStore
	memoryStore   core.MemoryStore
	shortTerm     *memory.ShortTermBuffer
	callbacks     *CallbackManager
	logger        logging.Logger

	config Config

	agents map[string]core.Agent
	mu     sync.RWMutex

	activeDispatches map[string]context.CancelFunc
	dispatchesMu     sync.RWMutex

	sem chan struct{} // bounds concurrent dispatches, nil when unlimited
}

// New creates a new Engine with in-memory defaults and optional configuration.
// The returned Engine is immediately ready for use and safe for concurrent
// access. The Engine does not take ownership of provided stores.
func New(optFns ...func(o *Options)) *Engine {
	opts := Options{
		Config:        DefaultConfig,
		SessionStore:  session.NewInMemoryStore(),
		ArtifactStore: artifact.NewInMemoryStore(),
		MemoryStore:   memory.NewInMemoryStore(),
		ShortTerm:     memory.NewShortTermBuffer(memory.DefaultShortTermCapacity),
		Callbacks:     NewCallbackManager(),
		Logger:        logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	var sem chan struct{}
	if opts.Config.MaxConcurrentDispatches > 0 {
		sem = make(chan struct{}, opts.Config.MaxConcurrentDispatches)
	}

	return &Engine{
		sessionStore:     opts.SessionStore,
		artifactStore:    opts.ArtifactStore,
		memoryStore:      opts.MemoryStore,
		shortTerm:        opts.ShortTerm,
		callbacks:        opts.Callbacks,
		config:           opts.Config,
		agents:           make(map[string]core.Agent),
		activeDispatches: make(map[string]context.CancelFunc),
		logger:           opts.Logger,
		sem:              sem,
	}
}

// Register adds an agent to the engine's registry, making it available for
// dispatch by name. An existing agent with the same name is replaced.
func (e *Engine) Register(a core.Agent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.agents[a.Name()] = a
}

// GetAgent retrieves a registered agent by name.
func (e *Engine) GetAgent(name string) (core.Agent, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	a, ok := e.agents[name]
	return a, ok
}

// ShortTerm returns the bounded buffer of recent exchanges.
func (e *Engine) ShortTerm() *memory.ShortTermBuffer { return e.shortTerm }

// Dispatch starts asynchronous execution of a recognized utterance and
// returns channels for real-time event streaming.
//
// Wake-word gating applies first when configured: utterances containing the
// wake word wake the session for Config.AwakeTurns turns and have the wake
// word stripped; utterances arriving while the session is asleep return
// ErrNotAwake.
//
// The events channel is closed when the agent completes or the dispatch is
// cancelled; terminal errors arrive on the buffered error channel.
func (e *Engine) Dispatch(
	ctx context.Context,
	sessionID string,
	agentName string,
	utterance core.Content,
) (string, <-chan core.Event, <-chan error, error) {
	agent, ok := e.GetAgent(agentName)
	if !ok {
		return "", nil, nil, fmt.Errorf("agent %s not found", agentName)
	}

	utterance, err := e.gateUtterance(sessionID, utterance)
	if err != nil {
		return "", nil, nil, err
	}

	sess, err := e.sessionStore.Get(sessionID)
	if err != nil {
		return "", nil, nil, fmt.Errorf("failed to get session: %w", err)
	}

	dispatchID := uuid.NewString()

	eventsCh := make(chan core.Event, e.config.EventBufferSize)
	errorsCh := make(chan error, 1)
	agentEmit := make(chan core.Event, e.config.EventBufferSize)
	resumeCh := make(chan struct{}, 1)

	dispatchCtx, cancel := context.WithCancel(ctx)

	e.dispatchesMu.Lock()
	e.activeDispatches[dispatchID] = cancel
	e.dispatchesMu.Unlock()

	agentInfo := core.AgentInfo{Name: agent.Name(), Type: "assistant"}

	runCtx := core.NewRunContext(
		dispatchCtx,
		sessionID,
		dispatchID,
		agentInfo,
		utterance,
		e.config.MaxModelCalls,
		agentEmit,
		resumeCh,
		sess,
		e.sessionStore,
		e.artifactStore,
		e.memoryStore,
		e.logger,
	)

	// Persist the utterance as the starting event for this dispatch
	userEvent := core.NewUserContentEvent(dispatchID, &utterance)

	if err := e.sessionStore.AppendEvent(sessionID, userEvent); err != nil {
		cancel()
		e.dispatchesMu.Lock()
		delete(e.activeDispatches, dispatchID)
		e.dispatchesMu.Unlock()
		return "", nil, nil, fmt.Errorf("failed to append user event: %w", err)
	}

	go func() {
		defer func() {
			close(agentEmit)
			e.dispatchesMu.Lock()
			delete(e.activeDispatches, dispatchID)
			e.dispatchesMu.Unlock()
		}()

		if e.sem != nil {
			select {
			case e.sem <- struct{}{}:
				defer func() { <-e.sem }()
			case <-dispatchCtx.Done():
				return
			}
		}

		cbCtx := &CallbackContext{
			SessionID:  sessionID,
			DispatchID: dispatchID,
			AgentName:  agentName,
			Type:       CallbackBeforeDispatch,
		}
		if err := e.callbacks.Execute(dispatchCtx, CallbackBeforeDispatch, cbCtx); err != nil {
			errorsCh <- fmt.Errorf("before_dispatch callback rejected dispatch: %w", err)
			return
		}

		if err := e.runAgent(runCtx, agent); err != nil {
			cbCtx.Type = CallbackOnError
			cbCtx.Err = err
			_ = e.callbacks.Execute(dispatchCtx, CallbackOnError, cbCtx)

			select {
			case <-dispatchCtx.Done():
				return
			case errorsCh <- fmt.Errorf("agent execution failed: %w", err):
			}
			return
		}

		cbCtx.Type = CallbackAfterDispatch
		_ = e.callbacks.Execute(dispatchCtx, CallbackAfterDispatch, cbCtx)
	}()

	go func() {
		defer func() {
			close(eventsCh)
			close(errorsCh)
		}()

		e.processEvents(dispatchCtx, sessionID, utterance.Text(), agentEmit, resumeCh, eventsCh)
	}()

	return dispatchID, eventsCh, errorsCh, nil
}

// DispatchSync executes a dispatch to completion, collecting all emitted
// events. Convenience wrapper for request-response callers.
func (e *Engine) DispatchSync(
	ctx context.Context,
	sessionID string,
	agentName string,
	utterance core.Content,
) (string, []core.Event, error) {
	dispatchID, eventsCh, errorsCh, err := e.Dispatch(ctx, sessionID, agentName, utterance)
	if err != nil {
		return "", nil, err
	}

	var events []core.Event
	for {
		select {
		case <-ctx.Done():
			return dispatchID, events, ctx.Err()

		case event, ok := <-eventsCh:
			if !ok {
				select {
				case err := <-errorsCh:
					return dispatchID, events, err
				default:
					return dispatchID, events, nil
				}
			}
			events = append(events, event)

		case err := <-errorsCh:
			if err != nil {
				return dispatchID, events, err
			}
		}
	}
}

// StopDispatch forcibly terminates a specific dispatch by its ID.
func (e *Engine) StopDispatch(dispatchID string) error {
	e.dispatchesMu.Lock()
	cancel, exists := e.activeDispatches[dispatchID]
	e.dispatchesMu.Unlock()

	if !exists {
		return fmt.Errorf("dispatch %s not found", dispatchID)
	}

	cancel()
	return nil
}

// GetSession retrieves the current session snapshot by ID.
func (e *Engine) GetSession(sessionID string) (*core.Session, error) {
	return e.sessionStore.Get(sessionID)
}

// gateUtterance enforces the wake-word contract. It returns the (possibly
// stripped) utterance to dispatch, or ErrNotAwake when the session is asleep.
func (e *Engine) gateUtterance(sessionID string, utterance core.Content) (core.Content, error) {
	if e.config.WakeWord == "" {
		return utterance, nil
	}

	text := utterance.Text()
	lower := strings.ToLower(text)
	wake := strings.ToLower(e.config.WakeWord)

	if strings.Contains(lower, wake) {
		stripped := stripWakeWord(text, e.config.WakeWord)
		if err := e.sessionStore.ApplyDelta(sessionID, map[string]any{stateKeyAwakeTurns: e.config.AwakeTurns}); err != nil {
			return core.Content{}, fmt.Errorf("failed to wake session: %w", err)
		}

		e.logger.Debug("engine.session.awake", "session_id", sessionID, "turns", e.config.AwakeTurns)

		return core.NewUserText(stripped), nil
	}

	sess, err := e.sessionStore.Get(sessionID)
	if err != nil {
		return core.Content{}, fmt.Errorf("failed to get session: %w", err)
	}

	turns := awakeTurns(sess)
	if turns <= 0 {
		return core.Content{}, ErrNotAwake
	}

	if err := e.sessionStore.ApplyDelta(sessionID, map[string]any{stateKeyAwakeTurns: turns - 1}); err != nil {
		return core.Content{}, fmt.Errorf("failed to decrement awake turns: %w", err)
	}

	return utterance, nil
}

// awakeTurns reads the remaining awake turns from session state, tolerating
// the numeric widening JSON round-trips introduce.
func awakeTurns(sess *core.Session) int {
	v, ok := sess.GetState(stateKeyAwakeTurns)
	if !ok {
		return 0
	}

	switch n := v.(type) {
	case int:
		return n
	case float64:
		return int(n)
	default:
		return 0
	}
}

// stripWakeWord removes the first case-insensitive occurrence of the wake
// word and tidies leftover separators ("hey jarvis, open youtube" ->
// "open youtube").
func stripWakeWord(text, wakeWord string) string {
	lower := strings.ToLower(text)
	idx := strings.Index(lower, strings.ToLower(wakeWord))
	if idx < 0 {
		return strings.TrimSpace(text)
	}

	rest := text[:idx] + text[idx+len(wakeWord):]
	rest = strings.TrimSpace(rest)
	rest = strings.TrimLeft(rest, ",.!? ")
	rest = strings.TrimSpace(rest)

	// Drop a leading "hey"/"ok" that addressed the wake word
	for _, prefix := range []string{"hey", "ok", "okay"} {
		if strings.EqualFold(rest, prefix) {
			return ""
		}
	}

	return rest
}

func (e *Engine) runAgent(runCtx *core.RunContext, agent core.Agent) error {
	if err := agent.Start(runCtx); err != nil {
		return err
	}
	defer func() {
		if err := agent.Stop(runCtx); err != nil {
			e.logger.Warn("engine.agent.stop_failed", "agent", agent.Name(), "error", err.Error())
		}
	}()

	return agent.Run(runCtx)
}

// processEvents runs the event pipeline for one dispatch: apply actions,
// persist, forward, signal resumption, and finally record the completed
// exchange into memory. Store failures terminate the dispatch.
func (e *Engine) processEvents(
	ctx context.Context,
	sessionID string,
	utteranceText string,
	agentEmit <-chan core.Event,
	resumeCh chan<- struct{},
	eventsCh chan<- core.Event,
) {
	var finalReply string
	skipMemory := false

	defer func() {
		if !skipMemory {
			e.recordExchange(sessionID, utteranceText, finalReply)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-agentEmit:
			if !ok {
				// Agent closed emit channel - normal completion
				return
			}

			if err := e.applyEventActions(ctx, sessionID, ev); err != nil {
				e.logger.Error("engine.event.actions_failed", "session_id", sessionID, "event_id", ev.ID, "error", err.Error())
				return
			}

			if ev.Actions.SkipMemory != nil && *ev.Actions.SkipMemory {
				skipMemory = true
			}

			if !ev.IsPartial() {
				if err := e.sessionStore.AppendEvent(sessionID, ev); err != nil {
					e.logger.Error("engine.event.append_failed", "session_id", sessionID, "event_id", ev.ID, "error", err.Error())
					return
				}
			}

			if isFinalAssistantReply(ev) {
				finalReply = ev.Content.Text()
			}

			select {
			case <-ctx.Done():
				return
			case eventsCh <- ev:
				e.logger.Debug("engine.event.delivered", "event_id", ev.ID, "session_id", sessionID)
			}

			// Signal resumption for non-partial events
			if !ev.IsPartial() {
				select {
				case <-ctx.Done():
					return
				case resumeCh <- struct{}{}:
				default:
					// Channel full, skip signal (non-blocking)
				}
			}
		}
	}
}

// isFinalAssistantReply reports whether the event carries the spoken reply
// that closes the turn.
func isFinalAssistantReply(ev core.Event) bool {
	if ev.Content == nil || ev.Content.Role != "assistant" {
		return false
	}

	return ev.IsFinalReply() && ev.Content.Text() != ""
}

// applyEventActions processes the side-effects encoded in an event's Actions field.
func (e *Engine) applyEventActions(ctx context.Context, sessionID string, ev core.Event) error {
	if len(ev.Actions.StateDelta) > 0 {
		if err := e.sessionStore.ApplyDelta(sessionID, ev.Actions.StateDelta); err != nil {
			return fmt.Errorf("failed to apply state delta: %w", err)
		}

		cbCtx := &CallbackContext{
			SessionID:  sessionID,
			DispatchID: ev.DispatchID,
			AgentName:  ev.Author,
			Event:      &ev,
			Type:       CallbackOnStateChange,
		}
		if err := e.callbacks.Execute(ctx, CallbackOnStateChange, cbCtx); err != nil {
			return fmt.Errorf("state change callback rejected delta: %w", err)
		}
	}

	// Artifact deltas carry byte sizes of already-persisted artifacts; no
	// further store work is required here.
	_ = ev.Actions.ArtifactDelta

	if ev.Actions.EndSession != nil && *ev.Actions.EndSession {
		if err := e.sessionStore.ApplyDelta(sessionID, map[string]any{stateKeyAwakeTurns: 0}); err != nil {
			return fmt.Errorf("failed to end session: %w", err)
		}

		e.logger.Info("engine.session.end", "session_id", sessionID)
	}

	return nil
}

// recordExchange writes the completed user/assistant exchange to short-term
// and long-term memory. Failures are logged, not fatal: a broken memory
// backend must not mask an already delivered reply.
func (e *Engine) recordExchange(sessionID, utterance, reply string) {
	if utterance == "" || reply == "" {
		return
	}

	if e.shortTerm != nil {
		e.shortTerm.Add(memory.Exchange{
			Utterance: utterance,
			Response:  reply,
			Timestamp: time.Now().UTC(),
		})
	}

	if e.memoryStore == nil {
		return
	}

	content := fmt.Sprintf("User: %s | Assistant: %s", utterance, reply)
	if err := e.memoryStore.Store(sessionID, content, map[string]any{"kind": "conversation"}); err != nil {
		e.logger.Warn("engine.memory.store_failed", "session_id", sessionID, "error", err.Error())
	}
}
