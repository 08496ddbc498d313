package deltecho

import (
	"strings"
	"time"
)

// IntentKind classifies an open conversational intent.
type IntentKind string

const (
	IntentQuestion  IntentKind = "question"
	IntentRequest   IntentKind = "request"
	IntentStatement IntentKind = "statement"
	IntentEmotion   IntentKind = "emotion"
	IntentAction    IntentKind = "action"
)

// Intent is one detected conversational intent. Unresolved intents persist
// across turns until resolved or displaced by newer entries.
type Intent struct {
	Kind      IntentKind `json:"kind"`
	Content   string     `json:"content"`
	Priority  float64    `json:"priority"`
	Resolved  bool       `json:"resolved"`
	CreatedAt time.Time  `json:"created_at"`
}

// interrogatives open a question even without a question mark.
var interrogatives = []string{
	"who", "what", "when", "where", "why", "how", "which",
	"can", "could", "would", "will", "should", "do", "does", "did", "is", "are",
}

// requestMarkers are polite-request phrasings.
var requestMarkers = []string{
	"please", "could you", "would you", "can you", "will you",
	"i need", "i want", "help me",
}

// DetectIntents classifies the utterance into zero or more intents: a "?" or
// interrogative opener marks a question, polite-request phrasing a request,
// and |valence| above emotionMagnitude adds an emotional expression. Anything
// else is a statement.
func DetectIntents(text string, tone EmotionalTone, emotionMagnitude float64, now time.Time) []Intent {
	lower := strings.ToLower(strings.TrimSpace(text))

	var intents []Intent

	question := strings.Contains(text, "?")
	if !question {
		for _, w := range interrogatives {
			if strings.HasPrefix(lower, w+" ") {
				question = true
				break
			}
		}
	}
	if question {
		intents = append(intents, Intent{
			Kind:      IntentQuestion,
			Content:   text,
			Priority:  0.8,
			CreatedAt: now,
		})
	}

	for _, marker := range requestMarkers {
		if strings.Contains(lower, marker) {
			intents = append(intents, Intent{
				Kind:      IntentRequest,
				Content:   text,
				Priority:  0.7,
				CreatedAt: now,
			})
			break
		}
	}

	if tone.Magnitude() > emotionMagnitude {
		intents = append(intents, Intent{
			Kind:      IntentEmotion,
			Content:   text,
			Priority:  clamp01(tone.Magnitude()),
			CreatedAt: now,
		})
	}

	if len(intents) == 0 {
		intents = append(intents, Intent{
			Kind:      IntentStatement,
			Content:   text,
			Priority:  0.3,
			CreatedAt: now,
		})
	}
	return intents
}

// IntentQueue is the bounded ordered set of open intents for one session.
// Not safe for concurrent use; the session lock serializes access.
type IntentQueue struct {
	intents []Intent
	cap     int
}

// NewIntentQueue creates an empty queue bounded at capacity entries.
func NewIntentQueue(capacity int) *IntentQueue {
	return &IntentQueue{cap: capacity}
}

// Push appends newly detected intents, then expires resolved entries and
// drops the oldest overflow so the queue never exceeds its capacity.
func (q *IntentQueue) Push(intents ...Intent) {
	q.intents = append(q.intents, intents...)

	kept := q.intents[:0]
	for _, in := range q.intents {
		if !in.Resolved {
			kept = append(kept, in)
		}
	}
	q.intents = kept

	if len(q.intents) > q.cap {
		q.intents = q.intents[len(q.intents)-q.cap:]
	}
}

// Resolve marks the oldest unresolved intent of the given kind as resolved.
// It reports whether a match was found.
func (q *IntentQueue) Resolve(kind IntentKind) bool {
	for i := range q.intents {
		if q.intents[i].Kind == kind && !q.intents[i].Resolved {
			q.intents[i].Resolved = true
			return true
		}
	}
	return false
}

// HasOpen reports whether any unresolved intent of the given kind exists.
func (q *IntentQueue) HasOpen(kinds ...IntentKind) bool {
	for _, in := range q.intents {
		if in.Resolved {
			continue
		}
		for _, k := range kinds {
			if in.Kind == k {
				return true
			}
		}
	}
	return false
}

// Len returns the number of queued intents.
func (q *IntentQueue) Len() int {
	return len(q.intents)
}

// All returns the queued intents in order, oldest first.
func (q *IntentQueue) All() []Intent {
	out := make([]Intent, len(q.intents))
	copy(out, q.intents)
	return out
}

// restore rehydrates the queue from a snapshot.
func (q *IntentQueue) restore(intents []Intent) {
	q.intents = append(q.intents[:0], intents...)
	if len(q.intents) > q.cap {
		q.intents = q.intents[len(q.intents)-q.cap:]
	}
}
