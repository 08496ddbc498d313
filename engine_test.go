package deltecho

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

func fixedClockConfig() Config {
	cfg := DefaultConfig()
	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	cfg.Now = func() time.Time { return at }
	return cfg
}

func userMessage(content string) Message {
	return Message{
		ID:        uuid.New().String(),
		Content:   content,
		Role:      RoleUser,
		Timestamp: 1700000000000,
	}
}

func TestEngine_QuestionAlwaysAnswered(t *testing.T) {
	e := NewEngine(fixedClockConfig())
	id := e.CreateSession(context.Background(), "conv-1", nil)

	resp, err := e.ProcessMessage(context.Background(), id, userMessage("What is your name?"))
	if err != nil {
		t.Fatalf("ProcessMessage failed: %v", err)
	}
	if resp == nil {
		t.Fatal("open question should force a reply")
	}
	if resp.Role != RoleAssistant {
		t.Errorf("expected assistant role, got %q", resp.Role)
	}
	if resp.Metadata[MetaCognitivePhase] != "act" {
		t.Errorf("expected act-phase marker, got %v", resp.Metadata)
	}
	if resp.ID == "" || resp.Content == "" {
		t.Errorf("incomplete response: %+v", resp)
	}
}

func TestEngine_AnsweringResolvesTheQuestion(t *testing.T) {
	e := NewEngine(fixedClockConfig())
	id := e.CreateSession(context.Background(), "conv-1", nil)

	e.ProcessMessage(context.Background(), id, userMessage("What is your name?"))

	state, _ := e.SessionState(id)
	if state.Intents.HasOpen(IntentQuestion) {
		t.Error("answered question should be resolved")
	}
}

func TestEngine_ShortTermStaysBounded(t *testing.T) {
	e := NewEngine(fixedClockConfig())
	id := e.CreateSession(context.Background(), "conv-1", nil)

	for i := 0; i < 15; i++ {
		_, err := e.ProcessMessage(context.Background(), id, userMessage(fmt.Sprintf("Message %d", i)))
		if err != nil {
			t.Fatalf("message %d failed: %v", i, err)
		}
	}

	state, _ := e.SessionState(id)
	if state.Phase != 15 {
		t.Errorf("expected phase 15 after 15 messages, got %d", state.Phase)
	}

	// With the default silent policy no assistant replies land in the
	// buffer, so it holds exactly the ten newest user messages in order.
	all := state.ShortTerm.All()
	if len(all) != DefaultShortTermCapacity {
		t.Fatalf("expected short-term capped at %d, got %d", DefaultShortTermCapacity, len(all))
	}
	for i, u := range all {
		want := fmt.Sprintf("Message %d", i+5)
		if u.Content != want {
			t.Errorf("slot %d: expected %q, got %q", i, want, u.Content)
		}
		if u.Role != RoleUser {
			t.Errorf("slot %d: expected user utterance, got %q", i, u.Role)
		}
	}
}

func TestEngine_ReplyCadenceOnStatements(t *testing.T) {
	e := NewEngine(fixedClockConfig(), WithReplyPolicy(PhaseCadencePolicy(3)))
	id := e.CreateSession(context.Background(), "conv-1", nil)

	var replies []int
	for i := 1; i <= 6; i++ {
		resp, err := e.ProcessMessage(context.Background(), id, userMessage("the sky stayed clear all afternoon"))
		if err != nil {
			t.Fatalf("message %d failed: %v", i, err)
		}
		if resp != nil {
			replies = append(replies, i)
		}
	}

	if len(replies) != 2 || replies[0] != 3 || replies[1] != 6 {
		t.Errorf("expected replies on phases 3 and 6, got %v", replies)
	}
}

func TestEngine_TopicRaisedAfterLongIdleSurvives(t *testing.T) {
	cfg := DefaultConfig()
	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	cfg.Now = func() time.Time { return at }
	e := NewEngine(cfg)
	id := e.CreateSession(context.Background(), "conv-1", nil)

	e.ProcessMessage(context.Background(), id, userMessage("we planted tomatoes in the garden"))

	// Three full decay periods pass before the next turn.
	at = at.Add(72 * time.Hour)
	e.ProcessMessage(context.Background(), id, userMessage("the weather turned stormy overnight"))

	state, _ := e.SessionState(id)
	node, ok := state.Topics.Node("stormy")
	if !ok {
		t.Fatal("topic raised in the current turn should survive the idle gap")
	}
	if node.Weight != 1 {
		t.Errorf("expected fresh weight 1, got %f", node.Weight)
	}
	if _, ok := state.Topics.Node("tomatoes"); ok {
		t.Error("stale topic should have decayed away")
	}
}

func TestEngine_DistressForcesReply(t *testing.T) {
	never := func(Phase, *CognitiveState) bool { return false }
	e := NewEngine(fixedClockConfig(), WithReplyPolicy(never))
	id := e.CreateSession(context.Background(), "conv-1", nil)

	distress := "hate hate hate terrible awful horrible"
	var responded []bool
	for i := 0; i < 3; i++ {
		resp, err := e.ProcessMessage(context.Background(), id, userMessage(distress))
		if err != nil {
			t.Fatalf("message %d failed: %v", i, err)
		}
		responded = append(responded, resp != nil)
	}

	// The blended valence crosses the distress threshold on the third turn.
	if responded[0] || responded[1] {
		t.Errorf("no reply expected before the threshold, got %v", responded)
	}
	if !responded[2] {
		t.Error("expected a reply once blended valence fell below the distress threshold")
	}
}

func TestEngine_PrioritizedRelevanceForcesReply(t *testing.T) {
	never := func(Phase, *CognitiveState) bool { return false }
	ws := &stubWorkspace{signals: []RelevanceSignal{
		{Kind: RelevanceTemporal, Salience: 0.9, Urgency: 0.9, Source: "deadline"},
	}}
	e := NewEngine(fixedClockConfig(), WithReplyPolicy(never), WithWorkspace(ws))
	id := e.CreateSession(context.Background(), "conv-1", nil)

	resp, err := e.ProcessMessage(context.Background(), id, userMessage("the report went out on schedule"))
	if err != nil {
		t.Fatalf("ProcessMessage failed: %v", err)
	}
	if resp == nil {
		t.Error("prioritized relevance should force a reply")
	}
}

func TestEngine_ValidationBeforeMutation(t *testing.T) {
	e := NewEngine(fixedClockConfig())
	id := e.CreateSession(context.Background(), "conv-1", nil)

	_, err := e.ProcessMessage(context.Background(), id, Message{ID: "x", Role: RoleUser, Timestamp: 1})
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if ve.Field != "content" {
		t.Errorf("expected content field flagged, got %q", ve.Field)
	}

	state, _ := e.SessionState(id)
	if state.ShortTerm.Len() != 0 || state.Phase != 0 {
		t.Error("rejected message must leave no partial state")
	}
}

func TestEngine_UnknownSessionIsStateError(t *testing.T) {
	e := NewEngine(fixedClockConfig())

	_, err := e.ProcessMessage(context.Background(), "missing", userMessage("hello"))
	var se *StateError
	if !errors.As(err, &se) {
		t.Fatalf("expected StateError, got %v", err)
	}
}

func TestEngine_StopAndStart(t *testing.T) {
	e := NewEngine(fixedClockConfig())
	id := e.CreateSession(context.Background(), "conv-1", nil)

	e.Stop()
	if _, err := e.ProcessMessage(context.Background(), id, userMessage("hello?")); !errors.Is(err, ErrEngineStopped) {
		t.Fatalf("expected ErrEngineStopped, got %v", err)
	}

	// Session state survives the stop.
	if _, err := e.SessionState(id); err != nil {
		t.Errorf("sessions should survive a stop: %v", err)
	}

	e.Start()
	if _, err := e.ProcessMessage(context.Background(), id, userMessage("hello?")); err != nil {
		t.Errorf("expected processing to resume, got %v", err)
	}
}

func TestEngine_EventOrderWithinTurn(t *testing.T) {
	e := NewEngine(fixedClockConfig())
	id := e.CreateSession(context.Background(), "conv-1", nil)

	var order []EventKind
	for _, kind := range []EventKind{EventMessageReceived, EventResponseGenerated, EventReasoningComplete} {
		e.Subscribe(kind, func(ev CognitiveEvent) {
			order = append(order, ev.Kind)
		})
	}

	e.ProcessMessage(context.Background(), id, userMessage("What happened today?"))

	want := []EventKind{EventMessageReceived, EventResponseGenerated, EventReasoningComplete}
	if len(order) != len(want) {
		t.Fatalf("expected %v, got %v", want, order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, order)
		}
	}
}

func TestEngine_ListenerRegistrationOrder(t *testing.T) {
	e := NewEngine(fixedClockConfig())
	id := e.CreateSession(context.Background(), "conv-1", nil)

	var order []string
	e.Subscribe(EventResponseGenerated, func(CognitiveEvent) { order = append(order, "A") })
	e.Subscribe(EventResponseGenerated, func(CognitiveEvent) { order = append(order, "B") })

	e.ProcessMessage(context.Background(), id, userMessage("Is anyone there?"))

	if len(order) != 2 || order[0] != "A" || order[1] != "B" {
		t.Errorf("expected listeners in registration order, got %v", order)
	}
}

func TestEngine_SetPersonaTakesEffect(t *testing.T) {
	e := NewEngine(fixedClockConfig())
	id := e.CreateSession(context.Background(), "conv-1", nil)

	var announced string
	e.Subscribe(EventPersonaChanged, func(ev CognitiveEvent) { announced = ev.Persona })

	e.SetPersona(context.Background(), Persona{Name: "Willow", SystemPrompt: "You are Willow."})

	if announced != "Willow" {
		t.Errorf("expected persona_changed with new name, got %q", announced)
	}

	resp, err := e.ProcessMessage(context.Background(), id, userMessage("hello?"))
	if err != nil {
		t.Fatalf("ProcessMessage failed: %v", err)
	}
	if resp == nil || !strings.Contains(resp.Content, "Willow") {
		t.Errorf("greeting should carry the new persona, got %+v", resp)
	}
}

func TestEngine_ConcurrentSameSessionSerialized(t *testing.T) {
	e := NewEngine(fixedClockConfig())
	id := e.CreateSession(context.Background(), "conv-1", nil)

	const turns = 20
	var wg sync.WaitGroup
	for i := 0; i < turns; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := e.ProcessMessage(context.Background(), id, userMessage(fmt.Sprintf("concurrent note %d", i)))
			if err != nil {
				t.Errorf("message %d failed: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	state, _ := e.SessionState(id)
	if state.Phase != turns {
		t.Errorf("expected %d serialized phases, got %d", turns, state.Phase)
	}
	if state.Stage != StageIdle {
		t.Errorf("expected idle stage after all turns, got %q", state.Stage)
	}
}

func TestEngine_StorageFailureSurfacesAsErrorEvent(t *testing.T) {
	failing := &failingArchive{err: errors.New("disk full")}
	e := NewEngine(fixedClockConfig(), WithArchive(failing))
	id := e.CreateSession(context.Background(), "conv-1", nil)

	var errEvents int
	e.Subscribe(EventError, func(ev CognitiveEvent) {
		if ev.Err != nil {
			errEvents++
		}
	})

	resp, err := e.ProcessMessage(context.Background(), id, userMessage("Does storage matter?"))
	if err != nil {
		t.Fatalf("storage failure must not abort the turn: %v", err)
	}
	if resp == nil {
		t.Fatal("expected the turn to complete with a reply")
	}
	if errEvents == 0 {
		t.Error("expected an error event for the failed store")
	}
}

type failingArchive struct {
	err error
}

func (a *failingArchive) Store(context.Context, ArchivedMemory) error { return a.err }

func (a *failingArchive) Scan(context.Context, string) ([]ArchivedMemory, error) {
	return nil, a.err
}

func TestEngine_TickProducesReflection(t *testing.T) {
	always := func(elapsed time.Duration, state *CognitiveState, _ *rand.Rand) (Reflection, bool) {
		return Reflection{Kind: ReflectionThought, Content: "idle musing", Phase: state.Phase}, true
	}
	e := NewEngine(fixedClockConfig(), WithReflectionPolicy(always), WithRandSeed(1))
	id := e.CreateSession(context.Background(), "conv-1", nil)

	r, err := e.Tick(context.Background(), id)
	if err != nil {
		t.Fatalf("Tick failed: %v", err)
	}
	if r == nil || r.Content != "idle musing" {
		t.Fatalf("expected the policy's reflection, got %+v", r)
	}

	state, _ := e.SessionState(id)
	if state.Reflections.Len() != 1 {
		t.Errorf("expected 1 stored reflection, got %d", state.Reflections.Len())
	}
}

func TestEngine_TickSilentPolicy(t *testing.T) {
	e := NewEngine(fixedClockConfig(), WithRandSeed(1))
	id := e.CreateSession(context.Background(), "conv-1", nil)

	// The fixed clock means zero idle time, below the default threshold.
	r, err := e.Tick(context.Background(), id)
	if err != nil {
		t.Fatalf("Tick failed: %v", err)
	}
	if r != nil {
		t.Errorf("expected no reflection below the idle threshold, got %+v", r)
	}
}

func TestEngine_RetrieveFindsArchivedTurns(t *testing.T) {
	e := NewEngine(fixedClockConfig())
	id := e.CreateSession(context.Background(), "conv-1", nil)

	e.ProcessMessage(context.Background(), id, userMessage("we planted tomatoes in the garden"))
	e.ProcessMessage(context.Background(), id, userMessage("the invoice from the electrician arrived"))

	cursor, err := e.Retrieve(context.Background(), id, "garden tomatoes", 5)
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	match, err := cursor.Next()
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if !strings.Contains(match.Memory.Content, "tomatoes") {
		t.Errorf("expected the gardening turn first, got %q", match.Memory.Content)
	}
}

func TestEngine_RetrieveUnknownSession(t *testing.T) {
	e := NewEngine(fixedClockConfig())
	if _, err := e.Retrieve(context.Background(), "missing", "anything", 5); err == nil {
		t.Error("expected error for unknown session")
	}
}

func TestEngine_IndependentEnginesDoNotShareState(t *testing.T) {
	a := NewEngine(fixedClockConfig())
	b := NewEngine(fixedClockConfig())

	idA := a.CreateSession(context.Background(), "conv-a", nil)

	if _, err := b.SessionState(idA); err == nil {
		t.Error("engine b should not know engine a's sessions")
	}

	var bSaw int
	b.Subscribe(EventMessageReceived, func(CognitiveEvent) { bSaw++ })
	a.ProcessMessage(context.Background(), idA, userMessage("only engine a hears this"))
	if bSaw != 0 {
		t.Errorf("engine b's bus received engine a's events %d times", bSaw)
	}
}
