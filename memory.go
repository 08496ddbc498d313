package deltecho

import (
	"context"
	"sort"
	"time"
)

// Utterance is one raw message held in short-term memory.
type Utterance struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Phase     Phase     `json:"phase"`
}

// ShortTermMemory is the capacity-bounded ring buffer of recent utterances.
// Appending past capacity evicts the oldest entry. Not safe for concurrent
// use; the session lock serializes access.
type ShortTermMemory struct {
	entries []Utterance
	cap     int
}

// NewShortTermMemory creates an empty buffer bounded at capacity entries.
func NewShortTermMemory(capacity int) *ShortTermMemory {
	return &ShortTermMemory{cap: capacity}
}

// Append adds an utterance, evicting the oldest entry past capacity.
func (m *ShortTermMemory) Append(u Utterance) {
	m.entries = append(m.entries, u)
	if len(m.entries) > m.cap {
		m.entries = m.entries[len(m.entries)-m.cap:]
	}
}

// Len returns the number of held utterances.
func (m *ShortTermMemory) Len() int {
	return len(m.entries)
}

// All returns the held utterances oldest first.
func (m *ShortTermMemory) All() []Utterance {
	out := make([]Utterance, len(m.entries))
	copy(out, m.entries)
	return out
}

// Recent returns up to n of the most recent utterances, oldest first.
func (m *ShortTermMemory) Recent(n int) []Utterance {
	if n >= len(m.entries) {
		return m.All()
	}
	out := make([]Utterance, n)
	copy(out, m.entries[len(m.entries)-n:])
	return out
}

// Clear empties the buffer.
func (m *ShortTermMemory) Clear() {
	m.entries = m.entries[:0]
}

// restore rehydrates the buffer from a snapshot, re-applying the bound.
func (m *ShortTermMemory) restore(entries []Utterance) {
	m.entries = append(m.entries[:0], entries...)
	if len(m.entries) > m.cap {
		m.entries = m.entries[len(m.entries)-m.cap:]
	}
}

// AnchorKind classifies a long-term memory anchor.
type AnchorKind string

const (
	AnchorEpisodic   AnchorKind = "episodic"
	AnchorSemantic   AnchorKind = "semantic"
	AnchorProcedural AnchorKind = "procedural"
)

// MemoryAnchor is a durable, importance-weighted record distinct from the
// short-term buffer.
type MemoryAnchor struct {
	ID         string     `json:"id"`
	Content    string     `json:"content"`
	Importance float64    `json:"importance"`
	Timestamp  time.Time  `json:"timestamp"`
	Kind       AnchorKind `json:"kind"`
}

// AnchorSet is the bounded per-session anchor collection. When capacity is
// exceeded the least-important anchor is evicted first, oldest breaking ties.
type AnchorSet struct {
	anchors []MemoryAnchor
	cap     int
}

// NewAnchorSet creates an empty set bounded at capacity anchors.
func NewAnchorSet(capacity int) *AnchorSet {
	return &AnchorSet{cap: capacity}
}

// Add inserts an anchor, evicting the least-important entry past capacity.
// It returns the evicted anchor, if any.
func (s *AnchorSet) Add(a MemoryAnchor) (MemoryAnchor, bool) {
	s.anchors = append(s.anchors, a)
	if len(s.anchors) <= s.cap {
		return MemoryAnchor{}, false
	}

	victim := 0
	for i := 1; i < len(s.anchors); i++ {
		if s.anchors[i].Importance < s.anchors[victim].Importance ||
			(s.anchors[i].Importance == s.anchors[victim].Importance &&
				s.anchors[i].Timestamp.Before(s.anchors[victim].Timestamp)) {
			victim = i
		}
	}
	evicted := s.anchors[victim]
	s.anchors = append(s.anchors[:victim], s.anchors[victim+1:]...)
	return evicted, true
}

// Len returns the number of held anchors.
func (s *AnchorSet) Len() int {
	return len(s.anchors)
}

// All returns the anchors in insertion order.
func (s *AnchorSet) All() []MemoryAnchor {
	out := make([]MemoryAnchor, len(s.anchors))
	copy(out, s.anchors)
	return out
}

// Clear empties the set.
func (s *AnchorSet) Clear() {
	s.anchors = s.anchors[:0]
}

// restore rehydrates the set from a snapshot.
func (s *AnchorSet) restore(anchors []MemoryAnchor) {
	s.anchors = append(s.anchors[:0], anchors...)
}

// Significance computes the emotional-significance weight attached to a
// stored memory: 1 + |valence|*0.3 + arousal*0.3 + salience*0.4, capped at 2.
func Significance(tone EmotionalTone, salience float64) float64 {
	w := 1 + tone.Magnitude()*0.3 + tone.Arousal*0.3 + salience*0.4
	if w > 2 {
		w = 2
	}
	return w
}

// ArchivedMemory is one durable record in the long-term store.
type ArchivedMemory struct {
	ID           string    `db:"id" json:"id"`
	Scope        string    `db:"scope" json:"scope"`
	Author       string    `db:"author" json:"author"`
	Content      string    `db:"content" json:"content"`
	Timestamp    time.Time `db:"timestamp" json:"timestamp"`
	Significance float64   `db:"significance" json:"significance"`
	Embedding    Vector    `db:"embedding" json:"embedding,omitempty"`
}

// Archive is the pluggable long-term retrieval surface. Store never fails on
// valid input beyond infrastructure errors; Scan returns the candidate pool
// for one scope, oldest first.
type Archive interface {
	Store(ctx context.Context, mem ArchivedMemory) error
	Scan(ctx context.Context, scope string) ([]ArchivedMemory, error)
}

// RecallMatch pairs an archived memory with its blended retrieval score.
type RecallMatch struct {
	Memory ArchivedMemory
	Score  float64
}

// RecallCursor is a finite, non-restartable sequence of retrieval matches
// ordered by descending blended score, ties broken by recency. Ranking is
// computed lazily on the first advance.
type RecallCursor struct {
	rank    func() ([]RecallMatch, error)
	matches []RecallMatch
	ranked  bool
	err     error
	pos     int
}

// Next advances the cursor and returns the next match. It returns
// ErrCursorExhausted once the sequence is consumed; the cursor cannot be
// restarted.
func (c *RecallCursor) Next() (RecallMatch, error) {
	if !c.ranked {
		c.ranked = true
		c.matches, c.err = c.rank()
	}
	if c.err != nil {
		return RecallMatch{}, c.err
	}
	if c.pos >= len(c.matches) {
		return RecallMatch{}, ErrCursorExhausted
	}
	m := c.matches[c.pos]
	c.pos++
	return m, nil
}

// Retriever blends keyword-overlap and embedding-similarity retrieval over
// an Archive. Candidates scoring below the floor are discarded.
type Retriever struct {
	archive        Archive
	embedder       Embedder
	keywordWeight  float64
	semanticWeight float64
	floor          float64
}

// NewRetriever creates a blended retriever. embedder may be nil, in which
// case the deterministic hashing embedder backs the semantic strategy.
func NewRetriever(archive Archive, embedder Embedder, cfg Config) *Retriever {
	cfg = cfg.normalize()
	if embedder == nil {
		embedder = NewHashingEmbedder(DefaultHashingDimensions)
	}
	return &Retriever{
		archive:        archive,
		embedder:       embedder,
		keywordWeight:  cfg.KeywordWeight,
		semanticWeight: cfg.SemanticWeight,
		floor:          cfg.RecallFloor,
	}
}

// Retrieve returns a lazily ranked cursor over at most maxCount matches for
// the query within one scope.
func (r *Retriever) Retrieve(ctx context.Context, query, scope string, maxCount int) *RecallCursor {
	return &RecallCursor{rank: func() ([]RecallMatch, error) {
		candidates, err := r.archive.Scan(ctx, scope)
		if err != nil {
			return nil, err
		}

		queryTokens := contentTokens(query)
		queryVec, embErr := r.embedder.Embed(ctx, query)

		var matches []RecallMatch
		for _, cand := range candidates {
			score := r.keywordWeight * keywordOverlap(queryTokens, cand.Content)
			if embErr == nil {
				vec := cand.Embedding
				if vec == nil {
					if v, err := r.embedder.Embed(ctx, cand.Content); err == nil {
						vec = v
					}
				}
				score += r.semanticWeight * clamp01(Cosine(queryVec, vec))
			}
			if score < r.floor {
				continue
			}
			matches = append(matches, RecallMatch{Memory: cand, Score: score})
		}

		sort.SliceStable(matches, func(i, j int) bool {
			if matches[i].Score != matches[j].Score {
				return matches[i].Score > matches[j].Score
			}
			return matches[i].Memory.Timestamp.After(matches[j].Memory.Timestamp)
		})
		if maxCount > 0 && len(matches) > maxCount {
			matches = matches[:maxCount]
		}
		return matches, nil
	}}
}

// keywordOverlap is the fraction of query tokens present in the content.
func keywordOverlap(queryTokens []string, content string) float64 {
	if len(queryTokens) == 0 {
		return 0
	}
	have := make(map[string]struct{})
	for _, tok := range contentTokens(content) {
		have[tok] = struct{}{}
	}
	hits := 0
	for _, tok := range queryTokens {
		if _, ok := have[tok]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(queryTokens))
}
