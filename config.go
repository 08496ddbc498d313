package deltecho

import "time"

// Default configuration for the engine. The reference behavior uses several
// independently tuned bounds and thresholds; each is named here so callers
// can override them without touching the semantics.
const (
	// DefaultShortTermCapacity bounds the per-session utterance ring buffer.
	DefaultShortTermCapacity = 10

	// DefaultAnchorCapacity bounds the long-term anchor set. When exceeded,
	// the least-important anchor is evicted first.
	DefaultAnchorCapacity = 100

	// DefaultIntentCapacity bounds the open-intent queue (oldest dropped).
	DefaultIntentCapacity = 10

	// DefaultReflectionCapacity bounds the autonomous reflection stream.
	DefaultReflectionCapacity = 100

	// DefaultHistoryWindow caps how many recent utterances are forwarded to
	// the generation provider per request.
	DefaultHistoryWindow = 10

	// DefaultToneSmoothing is the blend factor applied to incoming tone:
	// new = old*(1-α) + incoming*α.
	DefaultToneSmoothing = 0.3

	// DefaultTopicPruneWeight drops topic nodes whose decayed weight falls
	// below it.
	DefaultTopicPruneWeight = 0.1

	// DefaultTopicDecayPeriod is the time constant of exponential topic
	// decay: weight *= exp(-elapsed/period).
	DefaultTopicDecayPeriod = 24 * time.Hour

	// DefaultKeywordWeight and DefaultSemanticWeight blend the two retrieval
	// strategies.
	DefaultKeywordWeight  = 0.6
	DefaultSemanticWeight = 0.4

	// DefaultRecallFloor discards retrieval candidates whose blended score
	// falls below it.
	DefaultRecallFloor = 0.15

	// DefaultSalienceCutoff marks a relevance source as a relevant domain.
	DefaultSalienceCutoff = 0.4

	// DefaultPrioritizeSalience and DefaultPrioritizeUrgency trigger the
	// aggregator's shouldPrioritize flag.
	DefaultPrioritizeSalience = 0.7
	DefaultPrioritizeUrgency  = 0.6

	// DefaultDistressValence forces a reply whenever blended valence drops
	// below it.
	DefaultDistressValence = -0.5

	// DefaultEmotionMagnitude classifies an utterance as an emotional
	// expression when |valence| exceeds it.
	DefaultEmotionMagnitude = 0.3

	// DefaultPersonaName is the identity used by the rule-based responder
	// and fallback strings.
	DefaultPersonaName = "Deep Tree Echo"
)

// Config carries every tunable bound and threshold of the engine.
// Zero values are replaced by the package defaults via normalize, so a
// partially populated Config is valid.
type Config struct {
	ShortTermCapacity  int
	AnchorCapacity     int
	IntentCapacity     int
	ReflectionCapacity int
	HistoryWindow      int

	ToneSmoothing    float64
	TopicPruneWeight float64
	TopicDecayPeriod time.Duration

	KeywordWeight  float64
	SemanticWeight float64
	RecallFloor    float64

	SalienceCutoff     float64
	PrioritizeSalience float64
	PrioritizeUrgency  float64
	DistressValence    float64
	EmotionMagnitude   float64

	// Now supplies timestamps for decay and bookkeeping. Tests inject a
	// simulated clock here instead of relying on wall time.
	Now func() time.Time
}

// DefaultConfig returns a Config populated with the package defaults.
func DefaultConfig() Config {
	return Config{
		ShortTermCapacity:  DefaultShortTermCapacity,
		AnchorCapacity:     DefaultAnchorCapacity,
		IntentCapacity:     DefaultIntentCapacity,
		ReflectionCapacity: DefaultReflectionCapacity,
		HistoryWindow:      DefaultHistoryWindow,
		ToneSmoothing:      DefaultToneSmoothing,
		TopicPruneWeight:   DefaultTopicPruneWeight,
		TopicDecayPeriod:   DefaultTopicDecayPeriod,
		KeywordWeight:      DefaultKeywordWeight,
		SemanticWeight:     DefaultSemanticWeight,
		RecallFloor:        DefaultRecallFloor,
		SalienceCutoff:     DefaultSalienceCutoff,
		PrioritizeSalience: DefaultPrioritizeSalience,
		PrioritizeUrgency:  DefaultPrioritizeUrgency,
		DistressValence:    DefaultDistressValence,
		EmotionMagnitude:   DefaultEmotionMagnitude,
		Now:                time.Now,
	}
}

// normalize fills zero-valued fields with the package defaults.
func (c Config) normalize() Config {
	d := DefaultConfig()
	if c.ShortTermCapacity <= 0 {
		c.ShortTermCapacity = d.ShortTermCapacity
	}
	if c.AnchorCapacity <= 0 {
		c.AnchorCapacity = d.AnchorCapacity
	}
	if c.IntentCapacity <= 0 {
		c.IntentCapacity = d.IntentCapacity
	}
	if c.ReflectionCapacity <= 0 {
		c.ReflectionCapacity = d.ReflectionCapacity
	}
	if c.HistoryWindow <= 0 {
		c.HistoryWindow = d.HistoryWindow
	}
	if c.ToneSmoothing <= 0 {
		c.ToneSmoothing = d.ToneSmoothing
	}
	if c.TopicPruneWeight <= 0 {
		c.TopicPruneWeight = d.TopicPruneWeight
	}
	if c.TopicDecayPeriod <= 0 {
		c.TopicDecayPeriod = d.TopicDecayPeriod
	}
	if c.KeywordWeight <= 0 {
		c.KeywordWeight = d.KeywordWeight
	}
	if c.SemanticWeight <= 0 {
		c.SemanticWeight = d.SemanticWeight
	}
	if c.RecallFloor <= 0 {
		c.RecallFloor = d.RecallFloor
	}
	if c.SalienceCutoff <= 0 {
		c.SalienceCutoff = d.SalienceCutoff
	}
	if c.PrioritizeSalience <= 0 {
		c.PrioritizeSalience = d.PrioritizeSalience
	}
	if c.PrioritizeUrgency <= 0 {
		c.PrioritizeUrgency = d.PrioritizeUrgency
	}
	if c.DistressValence == 0 {
		c.DistressValence = d.DistressValence
	}
	if c.EmotionMagnitude <= 0 {
		c.EmotionMagnitude = d.EmotionMagnitude
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}
