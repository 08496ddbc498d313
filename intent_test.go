package deltecho

import (
	"fmt"
	"testing"
	"time"
)

var intentNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func hasKind(intents []Intent, kind IntentKind) bool {
	for _, in := range intents {
		if in.Kind == kind {
			return true
		}
	}
	return false
}

func TestDetectIntents_QuestionMark(t *testing.T) {
	intents := DetectIntents("the weather looks odd today?", NeutralTone(), DefaultEmotionMagnitude, intentNow)
	if !hasKind(intents, IntentQuestion) {
		t.Errorf("expected question intent, got %v", intents)
	}
}

func TestDetectIntents_InterrogativeOpener(t *testing.T) {
	intents := DetectIntents("what happened to the garden", NeutralTone(), DefaultEmotionMagnitude, intentNow)
	if !hasKind(intents, IntentQuestion) {
		t.Errorf("expected question intent without question mark, got %v", intents)
	}
}

func TestDetectIntents_RequestMarker(t *testing.T) {
	intents := DetectIntents("could you water the plants", NeutralTone(), DefaultEmotionMagnitude, intentNow)
	if !hasKind(intents, IntentRequest) {
		t.Errorf("expected request intent, got %v", intents)
	}
}

func TestDetectIntents_EmotionAboveMagnitude(t *testing.T) {
	tone := EmotionalTone{Valence: -0.6}
	intents := DetectIntents("everything is fine", tone, DefaultEmotionMagnitude, intentNow)
	if !hasKind(intents, IntentEmotion) {
		t.Errorf("expected emotion intent for |valence| > threshold, got %v", intents)
	}
}

func TestDetectIntents_DefaultsToStatement(t *testing.T) {
	intents := DetectIntents("the sky is blue", NeutralTone(), DefaultEmotionMagnitude, intentNow)
	if len(intents) != 1 || intents[0].Kind != IntentStatement {
		t.Errorf("expected single statement intent, got %v", intents)
	}
}

func TestDetectIntents_MultipleKinds(t *testing.T) {
	// Question mark plus a polite request marker yields both intents.
	intents := DetectIntents("can you tell me what time it is?", NeutralTone(), DefaultEmotionMagnitude, intentNow)
	if !hasKind(intents, IntentQuestion) || !hasKind(intents, IntentRequest) {
		t.Errorf("expected question and request intents, got %v", intents)
	}
	if hasKind(intents, IntentStatement) {
		t.Errorf("statement is a fallback only, got %v", intents)
	}
}

func TestIntentQueue_PushAndResolve(t *testing.T) {
	q := NewIntentQueue(DefaultIntentCapacity)
	q.Push(DetectIntents("what is this?", NeutralTone(), DefaultEmotionMagnitude, intentNow)...)

	if !q.HasOpen(IntentQuestion) {
		t.Fatal("expected open question")
	}
	if !q.Resolve(IntentQuestion) {
		t.Fatal("expected resolve to find the question")
	}
	if q.HasOpen(IntentQuestion) {
		t.Error("question should no longer be open")
	}
	if q.Resolve(IntentQuestion) {
		t.Error("second resolve should find nothing")
	}
}

func TestIntentQueue_ResolvedEntriesExpireOnPush(t *testing.T) {
	q := NewIntentQueue(DefaultIntentCapacity)
	q.Push(Intent{Kind: IntentQuestion, Content: "first?", CreatedAt: intentNow})
	q.Resolve(IntentQuestion)

	q.Push(Intent{Kind: IntentStatement, Content: "second", CreatedAt: intentNow})

	if q.Len() != 1 {
		t.Errorf("resolved intent should be dropped on next push, len=%d", q.Len())
	}
	if q.HasOpen(IntentQuestion) {
		t.Error("resolved question should be gone")
	}
}

func TestIntentQueue_CapacityDropsOldest(t *testing.T) {
	q := NewIntentQueue(3)
	for i := 0; i < 5; i++ {
		q.Push(Intent{Kind: IntentStatement, Content: fmt.Sprintf("statement %d", i), CreatedAt: intentNow})
	}

	if q.Len() != 3 {
		t.Fatalf("expected queue bounded at 3, got %d", q.Len())
	}
	all := q.All()
	if all[0].Content != "statement 2" || all[2].Content != "statement 4" {
		t.Errorf("expected oldest dropped, got %v", all)
	}
}

func TestIntentQueue_ResolveOldestFirst(t *testing.T) {
	q := NewIntentQueue(DefaultIntentCapacity)
	q.Push(Intent{Kind: IntentQuestion, Content: "first?", CreatedAt: intentNow})
	q.Push(Intent{Kind: IntentQuestion, Content: "second?", CreatedAt: intentNow.Add(time.Second)})

	q.Resolve(IntentQuestion)

	all := q.All()
	if !all[0].Resolved || all[1].Resolved {
		t.Errorf("expected oldest question resolved first, got %v", all)
	}
}

func TestIntentQueue_RestoreRoundTrip(t *testing.T) {
	q := NewIntentQueue(DefaultIntentCapacity)
	q.Push(Intent{Kind: IntentQuestion, Content: "open?", CreatedAt: intentNow})

	restored := NewIntentQueue(DefaultIntentCapacity)
	restored.restore(q.All())

	if restored.Len() != 1 || !restored.HasOpen(IntentQuestion) {
		t.Errorf("restore lost state: len=%d", restored.Len())
	}
}
