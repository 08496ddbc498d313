package deltecho

import "github.com/zoobzio/capitan"

// Signal definitions for engine telemetry.
// Signals follow the pattern: deltecho.<entity>.<event>.
var (
	// Session lifecycle signals.
	SessionCreated = capitan.NewSignal(
		"deltecho.session.created",
		"New cognitive session initiated",
	)
	SessionEnded = capitan.NewSignal(
		"deltecho.session.ended",
		"Cognitive session destroyed",
	)
	HistoryCleared = capitan.NewSignal(
		"deltecho.session.history_cleared",
		"Session memory wiped and tone reset",
	)

	// Pipeline phase signals.
	MessageSensed = capitan.NewSignal(
		"deltecho.pipeline.sensed",
		"Inbound message appended to short-term memory and archived",
	)
	ToneBlended = capitan.NewSignal(
		"deltecho.pipeline.tone_blended",
		"Sentiment reading blended into running emotional tone",
	)
	TopicsDecayed = capitan.NewSignal(
		"deltecho.pipeline.topics_decayed",
		"Topic graph decay and pruning applied",
	)
	ResponseProduced = capitan.NewSignal(
		"deltecho.pipeline.response_produced",
		"Act phase produced an outgoing response",
	)
	ReplySkipped = capitan.NewSignal(
		"deltecho.pipeline.reply_skipped",
		"Act phase decided against producing a response",
	)

	// Gateway signals.
	FallbackUsed = capitan.NewSignal(
		"deltecho.gateway.fallback",
		"Provider failure converted to deterministic fallback response",
	)
	ProviderCalled = capitan.NewSignal(
		"deltecho.gateway.provider_called",
		"Generation provider invoked",
	)

	// Memory signals.
	AnchorEvicted = capitan.NewSignal(
		"deltecho.memory.anchor_evicted",
		"Least-important anchor evicted past capacity",
	)

	// Autonomy signals.
	ReflectionEmitted = capitan.NewSignal(
		"deltecho.autonomy.reflection",
		"Idle reflection policy produced an autonomous thought",
	)

	// Bus signals.
	ListenerPanicked = capitan.NewSignal(
		"deltecho.bus.listener_panicked",
		"Event listener panicked; emission continued",
	)
)

// Field keys for engine telemetry data.
var (
	FieldSessionID     = capitan.NewStringKey("session_id")
	FieldConversation  = capitan.NewStringKey("conversation_id")
	FieldPhase         = capitan.NewIntKey("phase")
	FieldEventKind     = capitan.NewStringKey("event_kind")
	FieldListenerIndex = capitan.NewIntKey("listener_index")

	FieldValence  = capitan.NewFloat32Key("valence")
	FieldArousal  = capitan.NewFloat32Key("arousal")
	FieldSalience = capitan.NewFloat32Key("salience")

	FieldTopicCount   = capitan.NewIntKey("topic_count")
	FieldPrunedCount  = capitan.NewIntKey("pruned_count")
	FieldSignificance = capitan.NewFloat32Key("significance")

	FieldProvider = capitan.NewStringKey("provider")
	FieldFailure  = capitan.NewStringKey("failure")
	FieldDuration = capitan.NewDurationKey("duration")

	FieldError = capitan.NewErrorKey("error")
)
