// Package deltecho implements a conversational cognitive orchestration engine.
//
// deltecho takes one inbound conversational message for an active session,
// runs it through a fixed three-phase pipeline, updates tracked
// emotional/topical/memory state, and produces an outgoing response plus a
// stream of lifecycle events.
//
// # Core Types
//
// The package is built around three core concepts:
//
//   - [Engine] - The orchestrator facade owning sessions, pipeline, and bus
//   - [CognitiveState] - Per-session bounded memory, tone, topics, and intents
//   - [CognitiveEvent] - Enum-discriminated lifecycle events with typed payloads
//
// # Processing Messages
//
// Construct an engine, create a session, and feed it messages:
//
//	engine := deltecho.NewEngine(deltecho.DefaultConfig())
//	id := engine.CreateSession(ctx, "chat-42", nil)
//	reply, err := engine.ProcessMessage(ctx, id, msg)
//
// Each call executes the triadic pipeline Sense → Process → Act in strict
// sequence. Concurrent calls against the same session are serialized; calls
// against different sessions are independent.
//
// # Components
//
// Signal extraction and state tracking:
//
//   - [AnalyzeSentiment], [Salience] - Deterministic lexical heuristics
//   - [EmotionalTone] - Valence/arousal/dominance/confidence with blending
//   - [TopicGraph] - Decaying weighted topic collection
//   - [IntentQueue] - Bounded open-intent tracking
//
// Memory:
//
//   - [ShortTermMemory] - Capacity-bounded ring buffer of recent utterances
//   - [AnchorSet] - Importance-bounded long-term memory anchors
//   - [Retriever] - Blended keyword/semantic recall returning a ranked cursor
//   - [Archive] - Pluggable durable storage ([MemoryArchive], [SoyArchive])
//
// Generation:
//
//   - [Gateway] - Wraps a [Provider] with deterministic fallback behavior
//   - [TraceProvider] - Decorator recording provider call traces
//
// # Provider
//
// LLM access uses the zyn provider contract, so any zyn-compatible provider
// plugs into the gateway:
//
//	gw := deltecho.NewGateway(provider, deltecho.DefaultGenerationConfig(), persona)
//
// When no provider is configured the gateway answers from a rule-based local
// responder that always names the configured persona.
//
// # Observability
//
// deltecho emits capitan signals throughout execution; the full list lives
// in signals.go and includes [MessageSensed], [ToneBlended],
// [ResponseProduced], [FallbackUsed], and [ListenerPanicked].
// Session-scoped lifecycle events are
// delivered through the per-engine [Bus] instead, so independent engines
// never share listeners.
package deltecho
