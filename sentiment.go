package deltecho

import "strings"

// Lexical signal extraction. Sentiment, arousal, and salience are computed
// with deterministic lexical heuristics: identical input always produces
// identical scores, and no model call is involved.

// positiveLexicon and negativeLexicon are the valence vocabularies. Matching
// is per token after normalization.
var positiveLexicon = map[string]struct{}{
	"love": {}, "like": {}, "great": {}, "good": {}, "wonderful": {},
	"amazing": {}, "happy": {}, "glad": {}, "excellent": {}, "awesome": {},
	"fantastic": {}, "nice": {}, "thanks": {}, "thank": {}, "enjoy": {},
	"beautiful": {}, "best": {}, "perfect": {}, "fun": {}, "cool": {},
	"excited": {}, "delighted": {}, "pleased": {}, "brilliant": {},
}

var negativeLexicon = map[string]struct{}{
	"hate": {}, "dislike": {}, "terrible": {}, "bad": {}, "awful": {},
	"horrible": {}, "sad": {}, "angry": {}, "worst": {}, "annoying": {},
	"broken": {}, "useless": {}, "frustrated": {}, "upset": {}, "wrong": {},
	"fail": {}, "failed": {}, "failing": {}, "problem": {}, "worried": {},
	"afraid": {}, "scared": {}, "disappointed": {}, "pain": {}, "hurt": {},
}

// intensifiers raise arousal without carrying valence of their own.
var intensifiers = map[string]struct{}{
	"very": {}, "really": {}, "so": {}, "extremely": {}, "totally": {},
	"absolutely": {}, "incredibly": {}, "completely": {}, "utterly": {},
}

// urgencyLexicon marks attention-demanding content for salience scoring.
var urgencyLexicon = map[string]struct{}{
	"urgent": {}, "now": {}, "immediately": {}, "asap": {}, "emergency": {},
	"help": {}, "important": {}, "critical": {}, "quickly": {}, "deadline": {},
}

var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "and": {}, "or": {}, "but": {}, "if": {},
	"of": {}, "to": {}, "in": {}, "on": {}, "at": {}, "for": {}, "with": {},
	"is": {}, "are": {}, "was": {}, "were": {}, "be": {}, "been": {},
	"it": {}, "its": {}, "this": {}, "that": {}, "these": {}, "those": {},
	"i": {}, "me": {}, "my": {}, "you": {}, "your": {}, "we": {}, "our": {},
	"he": {}, "she": {}, "they": {}, "them": {}, "do": {}, "does": {},
	"did": {}, "have": {}, "has": {}, "had": {}, "not": {}, "no": {},
	"so": {}, "as": {}, "by": {}, "from": {}, "about": {}, "just": {},
}

// tokenize lowercases the text and splits it into alphanumeric tokens.
func tokenize(text string) []string {
	lower := strings.ToLower(text)
	return strings.FieldsFunc(lower, func(r rune) bool {
		switch {
		case r >= 'a' && r <= 'z':
			return false
		case r >= '0' && r <= '9':
			return false
		}
		return true
	})
}

// contentTokens returns tokens with stopwords and very short words removed.
// Used by topic extraction and keyword retrieval.
func contentTokens(text string) []string {
	var out []string
	for _, tok := range tokenize(text) {
		if len(tok) < 3 {
			continue
		}
		if _, skip := stopwords[tok]; skip {
			continue
		}
		out = append(out, tok)
	}
	return out
}

// AnalyzeSentiment scores the text on the valence/arousal tone model.
//
// Valence is (pos-neg)/(pos+neg+1): strictly positive when positive matches
// outnumber negative ones, strictly negative in the symmetric case, and zero
// when counts are equal. Mixed input is dampened by the +1 term so |valence|
// never reaches 1 on finite text.
//
// Arousal grows with intensifiers, sentiment density, and exclamation marks.
// Dominance and confidence are derived from match density: an utterance with
// no sentiment vocabulary yields a neutral, low-confidence tone.
func AnalyzeSentiment(text string) EmotionalTone {
	tokens := tokenize(text)

	var pos, neg, intense int
	for _, tok := range tokens {
		if _, ok := positiveLexicon[tok]; ok {
			pos++
		}
		if _, ok := negativeLexicon[tok]; ok {
			neg++
		}
		if _, ok := intensifiers[tok]; ok {
			intense++
		}
	}

	valence := float64(pos-neg) / float64(pos+neg+1)

	exclaims := strings.Count(text, "!")
	arousal := 0.2 + 0.15*float64(intense) + 0.1*float64(exclaims) + 0.1*float64(pos+neg)
	arousal = clamp01(arousal)

	// Dominance leans assertive for positive content, submissive for
	// negative, anchored at the midpoint.
	dominance := clamp01(0.5 + valence*0.3)

	confidence := 0.3
	if pos+neg > 0 {
		confidence = clamp01(0.5 + 0.15*float64(pos+neg))
	}

	return EmotionalTone{
		Valence:    clampSigned(valence),
		Arousal:    arousal,
		Dominance:  dominance,
		Confidence: confidence,
	}
}

// Salience scores how much attention the text demands, in [0,1].
// Questions, urgency vocabulary, exclamation, and direct address all raise it.
func Salience(text string) float64 {
	tokens := tokenize(text)

	var urgent int
	for _, tok := range tokens {
		if _, ok := urgencyLexicon[tok]; ok {
			urgent++
		}
	}

	score := 0.2
	if strings.Contains(text, "?") {
		score += 0.25
	}
	score += 0.15 * float64(urgent)
	score += 0.1 * float64(strings.Count(text, "!"))
	if len(tokens) > 20 {
		score += 0.1
	}
	return clamp01(score)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func clampSigned(v float64) float64 {
	if v < -1 {
		return -1
	}
	if v > 1 {
		return 1
	}
	return v
}
