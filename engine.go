package deltecho

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/pipz"
)

// ErrEngineStopped is returned when a stopped engine is asked to process.
var ErrEngineStopped = errors.New("engine stopped")

// Engine is the orchestrator facade: an explicit handle constructed and
// owned by the caller, so multiple independent engines can coexist in one
// process. It owns the session map, the triadic pipeline, the event bus,
// and the generation gateway.
type Engine struct {
	cfg      Config
	sessions *SessionManager
	bus      *Bus
	archive  Archive
	embedder Embedder
	ret      *Retriever

	mu          sync.Mutex
	gateway     *Gateway
	workspace   Workspace
	replyPolicy ReplyPolicy
	reflect     ReflectionPolicy
	rng         *rand.Rand
	pipeline    pipz.Chainable[*Turn]
	stopped     bool
}

// Option configures an Engine at construction.
type Option func(*Engine)

// WithProvider sets the generation provider backing the gateway.
func WithProvider(p Provider) Option {
	return func(e *Engine) {
		e.gateway = NewGateway(p, e.gateway.cfg, e.gateway.persona)
	}
}

// WithGenerationConfig sets the provider request parameters.
func WithGenerationConfig(cfg GenerationConfig) Option {
	return func(e *Engine) {
		e.gateway = NewGateway(e.gateway.provider, cfg, e.gateway.persona)
	}
}

// WithPersona sets the assistant identity.
func WithPersona(p Persona) Option {
	return func(e *Engine) {
		e.gateway = NewGateway(e.gateway.provider, e.gateway.cfg, p)
	}
}

// WithArchive sets the long-term store. Defaults to an in-process
// MemoryArchive.
func WithArchive(a Archive) Option {
	return func(e *Engine) { e.archive = a }
}

// WithEmbedder sets the embedder backing semantic retrieval. Defaults to
// the deterministic hashing embedder.
func WithEmbedder(emb Embedder) Option {
	return func(e *Engine) { e.embedder = emb }
}

// WithWorkspace sets the external relevance-analysis collaborator.
func WithWorkspace(ws Workspace) Option {
	return func(e *Engine) { e.workspace = ws }
}

// WithReplyPolicy replaces the default silent reply policy.
func WithReplyPolicy(p ReplyPolicy) Option {
	return func(e *Engine) { e.replyPolicy = p }
}

// WithReflectionPolicy replaces the default idle reflection policy.
func WithReflectionPolicy(p ReflectionPolicy) Option {
	return func(e *Engine) { e.reflect = p }
}

// WithRandSeed seeds the engine's random source, making policy decisions
// reproducible in tests.
func WithRandSeed(seed int64) Option {
	return func(e *Engine) { e.rng = rand.New(rand.NewSource(seed)) }
}

// NewEngine constructs a running engine with the given configuration.
func NewEngine(cfg Config, opts ...Option) *Engine {
	cfg = cfg.normalize()
	e := &Engine{
		cfg:         cfg,
		sessions:    NewSessionManager(cfg),
		bus:         NewBus(),
		archive:     NewMemoryArchive(),
		gateway:     NewGateway(nil, DefaultGenerationConfig(), DefaultPersona()),
		replyPolicy: DefaultReplyPolicy,
		reflect:     DefaultReflectionPolicy(15 * time.Second),
		rng:         rand.New(rand.NewSource(cfg.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.ret = NewRetriever(e.archive, e.embedder, cfg)
	e.pipeline = e.newPipeline()
	return e
}

// Stop rejects further processing. Sessions and subscriptions survive a
// stop so state can still be exported.
func (e *Engine) Stop() {
	e.mu.Lock()
	e.stopped = true
	e.mu.Unlock()
}

// Start re-enables processing after a Stop. A freshly constructed engine is
// already started.
func (e *Engine) Start() {
	e.mu.Lock()
	e.stopped = false
	e.mu.Unlock()
}

// CreateSession initiates a session for one conversation. baseline, when
// non-nil, seeds the emotional tone from a prior affective snapshot.
func (e *Engine) CreateSession(ctx context.Context, conversationID string, baseline *EmotionalTone) string {
	return e.sessions.Create(ctx, conversationID, baseline)
}

// SessionState returns the cognitive state for a session.
func (e *Engine) SessionState(sessionID string) (*CognitiveState, error) {
	return e.sessions.State(sessionID)
}

// EndSession destroys a session.
func (e *Engine) EndSession(ctx context.Context, sessionID string) error {
	return e.sessions.End(ctx, sessionID)
}

// ClearHistory wipes a session's memory and resets its tone while leaving
// persona and configuration untouched.
func (e *Engine) ClearHistory(ctx context.Context, sessionID string) error {
	return e.sessions.ClearHistory(ctx, sessionID)
}

// Subscribe registers a listener for one event kind and returns its
// unsubscribe function.
func (e *Engine) Subscribe(kind EventKind, fn Listener) func() {
	return e.bus.Subscribe(kind, fn)
}

// SetPersona replaces the assistant identity and notifies subscribers.
func (e *Engine) SetPersona(ctx context.Context, p Persona) {
	e.mu.Lock()
	e.gateway = NewGateway(e.gateway.provider, e.gateway.cfg, p)
	e.mu.Unlock()

	e.bus.Emit(ctx, CognitiveEvent{Kind: EventPersonaChanged, Persona: p.Name})
}

// ProcessMessage runs one inbound message through the triadic pipeline and
// returns the produced response, or nil when the Act phase decides against
// replying. Validation happens before any state mutation; a StateError is
// returned for unknown sessions and is the only error category surfaced
// from a healthy engine.
func (e *Engine) ProcessMessage(ctx context.Context, sessionID string, msg Message) (*Message, error) {
	e.mu.Lock()
	stopped := e.stopped
	e.mu.Unlock()
	if stopped {
		return nil, ErrEngineStopped
	}

	if err := msg.Validate(); err != nil {
		return nil, err
	}

	var resp *Message
	err := e.sessions.withSession(sessionID, "process_message", func(state *CognitiveState) error {
		turn := &Turn{state: state, msg: msg, now: e.cfg.Now()}
		out, err := e.pipeline.Process(ctx, turn)
		if err != nil {
			return fmt.Errorf("pipeline: %w", err)
		}
		resp = out.Response()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// currentGateway returns the gateway under the engine lock; SetPersona and
// option application may swap it.
func (e *Engine) currentGateway() *Gateway {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.gateway
}

func (e *Engine) currentWorkspace() Workspace {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.workspace
}

func (e *Engine) currentReplyPolicy() ReplyPolicy {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.replyPolicy
}

// Tick runs the reflection policy against a session's idle time. The host
// environment owns the scheduler that calls it; the engine never starts
// timers of its own. It returns the produced reflection, if any.
func (e *Engine) Tick(ctx context.Context, sessionID string) (*Reflection, error) {
	var out *Reflection
	err := e.sessions.withSession(sessionID, "tick", func(state *CognitiveState) error {
		now := e.cfg.Now()
		elapsed := now.Sub(state.LastActivity)

		// The random source is guarded by the engine lock; policies must
		// not call back into the engine.
		e.mu.Lock()
		reflection, ok := e.reflect(elapsed, state, e.rng)
		e.mu.Unlock()
		if !ok {
			return nil
		}
		reflection.Timestamp = now
		state.Reflections.Append(reflection)
		out = &reflection

		capitan.Emit(ctx, ReflectionEmitted,
			FieldSessionID.Field(sessionID),
			FieldPhase.Field(int(state.Phase)),
		)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Retrieve searches the session's long-term store with the blended
// keyword/semantic ranking and returns the non-restartable cursor.
func (e *Engine) Retrieve(ctx context.Context, sessionID, query string, maxCount int) (*RecallCursor, error) {
	state, err := e.sessions.State(sessionID)
	if err != nil {
		return nil, err
	}
	return e.ret.Retrieve(ctx, query, state.Session.ConversationID, maxCount), nil
}
