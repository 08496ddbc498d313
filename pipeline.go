package deltecho

import (
	"context"
	"time"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/pipz"
)

// Turn carries one message through the triadic pipeline. The three phases
// run strictly Sense → Process → Act with the session lock held, so Turn
// needs no synchronization of its own.
type Turn struct {
	state *CognitiveState
	msg   Message
	now   time.Time

	// Populated by Sense, consumed by Process and Act.
	reading  EmotionalTone
	salience float64

	// Populated by Process.
	relevance RelevanceSummary

	// Populated by Act when a reply is produced.
	response *Message
}

// Response returns the produced reply, if any.
func (t *Turn) Response() *Message {
	return t.response
}

// anchorThreshold is the significance above which a sensed message earns a
// long-term memory anchor.
const anchorThreshold = 1.5

// newPipeline builds the engine's triadic pipz sequence.
func (e *Engine) newPipeline() pipz.Chainable[*Turn] {
	return pipz.NewSequence(pipz.NewIdentity("triadic", ""),
		pipz.Apply(pipz.NewIdentity("sense", ""), e.sense),
		pipz.Apply(pipz.NewIdentity("process", ""), e.process),
		pipz.Apply(pipz.NewIdentity("act", ""), e.act),
	)
}

// sense appends the raw message to short-term memory, tags it with the
// phase marker, and forwards it to durable storage with its computed
// emotional-significance weight. message_received is emitted once intake
// completes.
func (e *Engine) sense(ctx context.Context, t *Turn) (*Turn, error) {
	state := t.state
	state.Stage = StageSensing
	state.Phase++

	// The lexical read happens here because the significance weight needs
	// it; Process reuses the same deterministic reading.
	t.reading = AnalyzeSentiment(t.msg.Content)
	t.salience = Salience(t.msg.Content)
	significance := Significance(t.reading, t.salience)

	state.ShortTerm.Append(Utterance{
		Role:      t.msg.Role,
		Content:   t.msg.Content,
		Timestamp: t.now,
		Phase:     state.Phase,
	})

	if err := e.archive.Store(ctx, ArchivedMemory{
		Scope:        state.Session.ConversationID,
		Author:       string(t.msg.Role),
		Content:      t.msg.Content,
		Timestamp:    t.now,
		Significance: significance,
	}); err != nil {
		// Durable storage is best-effort; surface the failure without
		// aborting the turn.
		e.bus.Emit(ctx, CognitiveEvent{
			Kind:      EventError,
			SessionID: state.Session.ID,
			Phase:     state.Phase,
			Err:       err,
		})
	}

	capitan.Emit(ctx, MessageSensed,
		FieldSessionID.Field(state.Session.ID),
		FieldPhase.Field(int(state.Phase)),
		FieldValence.Field(float32(t.reading.Valence)),
		FieldArousal.Field(float32(t.reading.Arousal)),
		FieldSalience.Field(float32(t.salience)),
		FieldSignificance.Field(float32(significance)),
	)

	e.bus.Emit(ctx, CognitiveEvent{
		Kind:      EventMessageReceived,
		SessionID: state.Session.ID,
		Phase:     state.Phase,
		Message:   t.msg,
	})
	return t, nil
}

// process blends the sentiment reading into the running tone, aggregates
// relevance, and updates the topic graph and intent queue.
func (e *Engine) process(ctx context.Context, t *Turn) (*Turn, error) {
	state := t.state
	state.Stage = StageProcessing

	t.relevance = analyzeRelevance(ctx, e.currentWorkspace(), t.msg, state, e.cfg)

	state.Tone = state.Tone.Blend(t.reading, e.cfg.ToneSmoothing)
	capitan.Emit(ctx, ToneBlended,
		FieldSessionID.Field(state.Session.ID),
		FieldValence.Field(float32(state.Tone.Valence)),
		FieldArousal.Field(float32(state.Tone.Arousal)),
	)

	// Decay before merging so a topic raised in this turn cannot be
	// pruned by the idle gap that preceded it.
	pruned := state.Topics.Decay(t.now)
	state.Topics.Merge(t.msg.Content, t.now)
	capitan.Emit(ctx, TopicsDecayed,
		FieldSessionID.Field(state.Session.ID),
		FieldTopicCount.Field(state.Topics.Len()),
		FieldPrunedCount.Field(pruned),
	)

	intents := DetectIntents(t.msg.Content, t.reading, e.cfg.EmotionMagnitude, t.now)
	state.Intents.Push(intents...)

	if sig := Significance(t.reading, t.salience); sig > anchorThreshold {
		anchor := MemoryAnchor{
			Content:    t.msg.Content,
			Importance: clamp01(sig / 2),
			Timestamp:  t.now,
			Kind:       AnchorEpisodic,
		}
		if evicted, ok := state.Anchors.Add(anchor); ok {
			capitan.Emit(ctx, AnchorEvicted,
				FieldSessionID.Field(state.Session.ID),
				FieldSignificance.Field(float32(evicted.Importance)),
			)
		}
		e.bus.Emit(ctx, CognitiveEvent{
			Kind:      EventMemoryUpdated,
			SessionID: state.Session.ID,
			Phase:     state.Phase,
			Anchor:    anchor,
		})
	}

	state.LastActivity = t.now
	state.Session.UpdatedAt = t.now
	return t, nil
}

// act decides whether to reply, generates the response through the gateway,
// and records it in memory. response_generated follows message_received
// whenever a reply is produced.
func (e *Engine) act(ctx context.Context, t *Turn) (*Turn, error) {
	state := t.state
	state.Stage = StageActing
	defer func() {
		state.Stage = StageIdle
		e.bus.Emit(ctx, CognitiveEvent{
			Kind:      EventReasoningComplete,
			SessionID: state.Session.ID,
			Phase:     state.Phase,
		})
	}()

	reply := false
	switch {
	case state.Intents.HasOpen(IntentQuestion, IntentRequest):
		reply = true
	case state.Tone.Valence < e.cfg.DistressValence:
		reply = true
	case t.relevance.ShouldPrioritize:
		reply = true
	default:
		reply = e.currentReplyPolicy()(state.Phase, state)
	}

	if !reply {
		capitan.Emit(ctx, ReplySkipped,
			FieldSessionID.Field(state.Session.ID),
			FieldPhase.Field(int(state.Phase)),
		)
		return t, nil
	}

	history := state.ShortTerm.Recent(e.cfg.HistoryWindow)
	text, _ := e.currentGateway().Generate(ctx, history)

	resp := newResponse(text, t.now)
	t.response = &resp

	state.ShortTerm.Append(Utterance{
		Role:      RoleAssistant,
		Content:   text,
		Timestamp: t.now,
		Phase:     state.Phase,
	})
	if err := e.archive.Store(ctx, ArchivedMemory{
		Scope:        state.Session.ConversationID,
		Author:       string(RoleAssistant),
		Content:      text,
		Timestamp:    t.now,
		Significance: 1,
	}); err != nil {
		e.bus.Emit(ctx, CognitiveEvent{
			Kind:      EventError,
			SessionID: state.Session.ID,
			Phase:     state.Phase,
			Err:       err,
		})
	}

	// Answering closes the oldest open question or request.
	if !state.Intents.Resolve(IntentQuestion) {
		state.Intents.Resolve(IntentRequest)
	}

	capitan.Emit(ctx, ResponseProduced,
		FieldSessionID.Field(state.Session.ID),
		FieldPhase.Field(int(state.Phase)),
	)
	e.bus.Emit(ctx, CognitiveEvent{
		Kind:      EventResponseGenerated,
		SessionID: state.Session.ID,
		Phase:     state.Phase,
		Message:   resp,
	})
	return t, nil
}
