package deltecho

// EmotionalTone is the running affective state of a session. Valence is
// signed polarity in [-1,1]; arousal, dominance, and confidence live in
// [0,1]. Every blend re-clamps all components, so the invariants hold after
// each turn regardless of input.
type EmotionalTone struct {
	Valence    float64 `json:"valence"`
	Arousal    float64 `json:"arousal"`
	Dominance  float64 `json:"dominance"`
	Confidence float64 `json:"confidence"`
}

// NeutralTone is the baseline seeded into new sessions when the caller
// supplies no affective snapshot.
func NeutralTone() EmotionalTone {
	return EmotionalTone{
		Valence:    0,
		Arousal:    0.3,
		Dominance:  0.5,
		Confidence: 0.5,
	}
}

// Blend folds an incoming reading into the tone with exponential smoothing:
// new = old*(1-alpha) + incoming*alpha.
func (t EmotionalTone) Blend(incoming EmotionalTone, alpha float64) EmotionalTone {
	keep := 1 - alpha
	return EmotionalTone{
		Valence:    clampSigned(t.Valence*keep + incoming.Valence*alpha),
		Arousal:    clamp01(t.Arousal*keep + incoming.Arousal*alpha),
		Dominance:  clamp01(t.Dominance*keep + incoming.Dominance*alpha),
		Confidence: clamp01(t.Confidence*keep + incoming.Confidence*alpha),
	}
}

// Magnitude returns |valence|, the emotional-expression intensity used by
// intent detection.
func (t EmotionalTone) Magnitude() float64 {
	if t.Valence < 0 {
		return -t.Valence
	}
	return t.Valence
}
