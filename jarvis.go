// Package jarvis provides a high-level façade over the core Engine and its
// services (sessions, memory, artifacts & logging) for building a voice
// assistant. Most applications interact with this package by:
//  1. Creating a Jarvis via New() (optionally overriding default in-memory services)
//  2. Registering an assistant agent with its commands
//  3. Dispatching utterances asynchronously (Dispatch) or synchronously (DispatchSync)
//
// The façade delegates orchestration to engine.Engine while keeping setup
// concise. All defaults are safe for local development and testing; durable
// deployments supply the SQLite session store, the file memory store and a
// structured logger.
package jarvis

import (
	"context"

	"github.com/oppositecube/jarvis/artifact"
	"github.com/oppositecube/jarvis/core"
	"github.com/oppositecube/jarvis/engine"
	"github.com/oppositecube/jarvis/logging"
	"github.com/oppositecube/jarvis/memory"
	"github.com/oppositecube/jarvis/session"
)

// Options configures the Jarvis instance.
type Options struct {
	// EngineConfig carries concurrency, wake-word and budget settings.
	EngineConfig engine.Config

	// Stores (defaults to in-memory implementations if not provided)
	SessionStore  core.SessionStore
	ArtifactStore core.ArtifactStore
	MemoryStore   core.MemoryStore

	// Callbacks hook into the dispatch lifecycle.
	Callbacks *engine.CallbackManager

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// Jarvis is the high-level façade aggregating the engine and its services.
type Jarvis struct {
	opts   Options
	engine *engine.Engine
}

// New creates a Jarvis instance with optional overrides. Any unset service is
// initialized with an in-memory implementation.
func New(optFns ...func(o *Options)) *Jarvis {
	opts := Options{
		EngineConfig:  engine.DefaultConfig,
		SessionStore:  session.NewInMemoryStore(),
		ArtifactStore: artifact.NewInMemoryStore(),
		MemoryStore:   memory.NewInMemoryStore(),
		Logger:        logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	e := engine.New(func(o *engine.Options) {
		o.Config = opts.EngineConfig
		o.SessionStore = opts.SessionStore
		o.ArtifactStore = opts.ArtifactStore
		o.MemoryStore = opts.MemoryStore
		o.Callbacks = opts.Callbacks
		o.Logger = opts.Logger
	})

	return &Jarvis{opts: opts, engine: e}
}

// Register adds an agent to the underlying engine.
func (j *Jarvis) Register(a core.Agent) { j.engine.Register(a) }

// Engine exposes the underlying engine for advanced wiring (gateways,
// control surfaces).
func (j *Jarvis) Engine() *engine.Engine { return j.engine }

// ShortTerm returns the rolling buffer of recent exchanges.
func (j *Jarvis) ShortTerm() *memory.ShortTermBuffer { return j.engine.ShortTerm() }

// Dispatch starts an asynchronous dispatch returning event & error channels.
func (j *Jarvis) Dispatch(
	ctx context.Context,
	sessionID string,
	agentName string,
	utterance core.Content,
) (string, <-chan core.Event, <-chan error, error) {
	return j.engine.Dispatch(ctx, sessionID, agentName, utterance)
}

// DispatchSync executes a dispatch to completion, collecting all emitted
// events and returning the dispatchID that produced them.
func (j *Jarvis) DispatchSync(
	ctx context.Context,
	sessionID string,
	agentName string,
	utterance core.Content,
) (string, []core.Event, error) {
	return j.engine.DispatchSync(ctx, sessionID, agentName, utterance)
}
