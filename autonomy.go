package deltecho

import (
	"math/rand"
	"time"
)

// ReflectionKind classifies an autonomous thought.
type ReflectionKind string

const (
	ReflectionThought ReflectionKind = "thought"
	ReflectionDream   ReflectionKind = "dream"
	ReflectionInsight ReflectionKind = "insight"
)

// Reflection is one autonomous thought produced by the idle policy.
type Reflection struct {
	Kind      ReflectionKind `json:"kind"`
	Content   string         `json:"content"`
	Phase     Phase          `json:"phase"`
	Timestamp time.Time      `json:"timestamp"`
}

// ReflectionStream is the bounded log of autonomous thoughts; the oldest
// entries are dropped past capacity.
type ReflectionStream struct {
	entries []Reflection
	cap     int
}

// NewReflectionStream creates an empty stream bounded at capacity entries.
func NewReflectionStream(capacity int) *ReflectionStream {
	return &ReflectionStream{cap: capacity}
}

// Append adds a reflection, dropping the oldest entry past capacity.
func (s *ReflectionStream) Append(r Reflection) {
	s.entries = append(s.entries, r)
	if len(s.entries) > s.cap {
		s.entries = s.entries[len(s.entries)-s.cap:]
	}
}

// Len returns the number of held reflections.
func (s *ReflectionStream) Len() int {
	return len(s.entries)
}

// All returns the reflections oldest first.
func (s *ReflectionStream) All() []Reflection {
	out := make([]Reflection, len(s.entries))
	copy(out, s.entries)
	return out
}

// Clear empties the stream.
func (s *ReflectionStream) Clear() {
	s.entries = s.entries[:0]
}

func (s *ReflectionStream) restore(entries []Reflection) {
	s.entries = append(s.entries[:0], entries...)
	if len(s.entries) > s.cap {
		s.entries = s.entries[len(s.entries)-s.cap:]
	}
}

// ReflectionPolicy decides whether an idle tick produces an autonomous
// thought. It is a pure function of elapsed idle time, session state, and
// the supplied random source, so tests pass a seeded source and a simulated
// clock instead of real timers. The host environment owns the scheduler that
// invokes it (see Engine.Tick).
type ReflectionPolicy func(elapsed time.Duration, state *CognitiveState, r *rand.Rand) (Reflection, bool)

// ReplyPolicy decides whether the Act phase produces a response for a turn
// that carries no open question or request and no distress tone. The default
// stays silent so plain statements never disturb the short-term buffer; a
// seeded policy can add any cadence on top.
type ReplyPolicy func(phase Phase, state *CognitiveState) bool

// DefaultReplyPolicy never volunteers a reply. Questions, requests, distress,
// and prioritized relevance force one regardless of the policy.
func DefaultReplyPolicy(_ Phase, _ *CognitiveState) bool {
	return false
}

// PhaseCadencePolicy replies whenever the phase counter is a multiple of n.
// It gives hosts the original periodic-heartbeat behavior as an opt-in.
func PhaseCadencePolicy(n Phase) ReplyPolicy {
	return func(phase Phase, _ *CognitiveState) bool {
		return n > 0 && phase%n == 0
	}
}

// dreamTemplates and insightTemplates phrase autonomous thoughts. Selection
// is driven entirely by the supplied random source.
var dreamTemplates = []string{
	"A pathway dissolves back into possibility space.",
	"My conceptual framework drifts toward a more recursive perspective.",
	"Distinct concepts converge into a higher-order unity.",
	"Echoes of the conversation settle into quieter patterns.",
}

var insightTemplates = []string{
	"A new bridge forms between recent topics, creating fresh resonance.",
	"I sense redundant pathways that should be released.",
	"The current structure can evolve into more specialized paths.",
	"Something in the last exchange deserves a closer look.",
}

// DefaultReflectionPolicy produces a thought once the session has been idle
// past the threshold: a dream while the tone is calm, an insight while
// arousal runs high. Below the threshold it stays silent.
func DefaultReflectionPolicy(idleThreshold time.Duration) ReflectionPolicy {
	return func(elapsed time.Duration, state *CognitiveState, r *rand.Rand) (Reflection, bool) {
		if elapsed < idleThreshold {
			return Reflection{}, false
		}

		if state.Tone.Arousal > 0.5 {
			return Reflection{
				Kind:    ReflectionInsight,
				Content: insightTemplates[r.Intn(len(insightTemplates))],
				Phase:   state.Phase,
			}, true
		}
		return Reflection{
			Kind:    ReflectionDream,
			Content: dreamTemplates[r.Intn(len(dreamTemplates))],
			Phase:   state.Phase,
		}, true
	}
}
