package deltecho

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/zoobzio/capitan"
)

// Phase is the monotonically increasing per-session pipeline counter. It
// increments once per processed message and tags utterances and events.
type Phase uint64

// Stage names the pipeline's position within one invocation.
type Stage string

const (
	StageIdle       Stage = "idle"
	StageSensing    Stage = "sensing"
	StageProcessing Stage = "processing"
	StageActing     Stage = "acting"
)

// Session is the continuity context tying together state across the
// messages of one ongoing exchange. Sessions are destroyed only by an
// explicit EndSession call, never implicitly.
type Session struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// CognitiveState is the per-session tracked state, mutated exclusively by
// the pipeline phases while the session lock is held.
type CognitiveState struct {
	Session Session

	ShortTerm   *ShortTermMemory
	Tone        EmotionalTone
	Topics      *TopicGraph
	Intents     *IntentQueue
	Anchors     *AnchorSet
	Reflections *ReflectionStream

	Phase        Phase
	Stage        Stage
	LastActivity time.Time
}

// newCognitiveState seeds a fresh state. baseline, when non-nil, seeds the
// emotional tone from a previously captured affective snapshot.
func newCognitiveState(sess Session, baseline *EmotionalTone, cfg Config) *CognitiveState {
	tone := NeutralTone()
	if baseline != nil {
		tone = *baseline
	}
	now := cfg.Now()
	return &CognitiveState{
		Session:      sess,
		ShortTerm:    NewShortTermMemory(cfg.ShortTermCapacity),
		Tone:         tone,
		Topics:       NewTopicGraph(cfg.TopicDecayPeriod, cfg.TopicPruneWeight, now),
		Intents:      NewIntentQueue(cfg.IntentCapacity),
		Anchors:      NewAnchorSet(cfg.AnchorCapacity),
		Reflections:  NewReflectionStream(cfg.ReflectionCapacity),
		Stage:        StageIdle,
		LastActivity: now,
	}
}

// sessionEntry pairs a state with its serialization point. The mutex is the
// per-session ordering guarantee: concurrent ProcessMessage calls against
// one session run strictly one after another.
type sessionEntry struct {
	mu    sync.Mutex
	state *CognitiveState
}

// SessionManager owns the session map. Creation and destruction are atomic
// with respect to lookups; state mutation happens under each entry's lock.
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[string]*sessionEntry
	cfg      Config
}

// NewSessionManager creates an empty manager.
func NewSessionManager(cfg Config) *SessionManager {
	return &SessionManager{
		sessions: make(map[string]*sessionEntry),
		cfg:      cfg.normalize(),
	}
}

// Create initiates a session for one conversation and returns its ID.
// baseline optionally seeds the emotional tone.
func (m *SessionManager) Create(ctx context.Context, conversationID string, baseline *EmotionalTone) string {
	now := m.cfg.Now()
	sess := Session{
		ID:             uuid.New().String(),
		ConversationID: conversationID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	m.mu.Lock()
	m.sessions[sess.ID] = &sessionEntry{state: newCognitiveState(sess, baseline, m.cfg)}
	m.mu.Unlock()

	capitan.Emit(ctx, SessionCreated,
		FieldSessionID.Field(sess.ID),
		FieldConversation.Field(conversationID),
	)
	return sess.ID
}

// State returns the cognitive state for a session. The returned state is
// live; callers must not mutate it. Unknown IDs yield a StateError.
func (m *SessionManager) State(sessionID string) (*CognitiveState, error) {
	m.mu.RLock()
	entry, ok := m.sessions[sessionID]
	m.mu.RUnlock()
	if !ok {
		return nil, &StateError{SessionID: sessionID, Op: "state", Err: ErrSessionNotFound}
	}
	return entry.state, nil
}

// End destroys a session. Ending an unknown session yields a StateError.
func (m *SessionManager) End(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	entry, ok := m.sessions[sessionID]
	if ok {
		delete(m.sessions, sessionID)
	}
	m.mu.Unlock()
	if !ok {
		return &StateError{SessionID: sessionID, Op: "end", Err: ErrSessionNotFound}
	}

	// Let any in-flight turn drain before reporting the session gone.
	entry.mu.Lock()
	entry.mu.Unlock() //nolint:staticcheck // immediate unlock is the drain

	capitan.Emit(ctx, SessionEnded, FieldSessionID.Field(sessionID))
	return nil
}

// ClearHistory wipes the session's memory and resets its tone to neutral.
// Persona and configuration are untouched; the session stays active and the
// phase counter keeps its value.
func (m *SessionManager) ClearHistory(ctx context.Context, sessionID string) error {
	return m.withSession(sessionID, "clear_history", func(state *CognitiveState) error {
		state.ShortTerm.Clear()
		state.Anchors.Clear()
		state.Reflections.Clear()
		state.Intents.restore(nil)
		state.Topics.restore(nil, m.cfg.Now())
		state.Tone = NeutralTone()

		capitan.Emit(ctx, HistoryCleared, FieldSessionID.Field(sessionID))
		return nil
	})
}

// Len returns the number of active sessions.
func (m *SessionManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// withSession runs fn with the session's lock held, serializing it against
// concurrent turns on the same session.
func (m *SessionManager) withSession(sessionID, op string, fn func(state *CognitiveState) error) error {
	m.mu.RLock()
	entry, ok := m.sessions[sessionID]
	m.mu.RUnlock()
	if !ok {
		return &StateError{SessionID: sessionID, Op: op, Err: ErrSessionNotFound}
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	return fn(entry.state)
}
