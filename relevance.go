package deltecho

import "context"

// RelevanceKind tags why a message matters according to the external
// relevance workspace.
type RelevanceKind string

const (
	RelevanceTopical    RelevanceKind = "topical"
	RelevanceEmotional  RelevanceKind = "emotional"
	RelevanceTemporal   RelevanceKind = "temporal"
	RelevancePersonal   RelevanceKind = "personal"
	RelevanceProcedural RelevanceKind = "procedural"
)

// RelevanceSignal is one unit of "this matters because of X" produced by the
// workspace per processed message. Signals are consumed within the current
// phase and never persisted.
type RelevanceSignal struct {
	Kind     RelevanceKind
	Salience float64
	Urgency  float64
	Source   string
}

// Workspace is the pluggable relevance-analysis collaborator.
type Workspace interface {
	Analyze(ctx context.Context, msg Message, state *CognitiveState) ([]RelevanceSignal, error)
}

// RelevanceSummary is the aggregator's single prioritization decision.
type RelevanceSummary struct {
	OverallSalience  float64
	Urgency          float64
	DominantKind     RelevanceKind
	RelevantDomains  []string
	ShouldPrioritize bool
}

// neutralRelevance is returned for empty input and for workspace failures.
func neutralRelevance() RelevanceSummary {
	return RelevanceSummary{
		OverallSalience:  0.5,
		Urgency:          0.3,
		ShouldPrioritize: false,
	}
}

// AggregateRelevance combines the signals of one turn into a prioritization
// decision: mean salience and urgency, modal kind with first-seen tie-break,
// relevant domains above the salience cutoff, and the prioritize flag from
// the configured thresholds. Empty input yields the fixed neutral default.
func AggregateRelevance(signals []RelevanceSignal, cfg Config) RelevanceSummary {
	if len(signals) == 0 {
		return neutralRelevance()
	}
	cfg = cfg.normalize()

	var salienceSum, urgencySum float64
	counts := make(map[RelevanceKind]int)
	var order []RelevanceKind
	domainSeen := make(map[string]struct{})
	var domains []string

	for _, sig := range signals {
		salienceSum += sig.Salience
		urgencySum += sig.Urgency

		if counts[sig.Kind] == 0 {
			order = append(order, sig.Kind)
		}
		counts[sig.Kind]++

		if sig.Salience > cfg.SalienceCutoff && sig.Source != "" {
			if _, dup := domainSeen[sig.Source]; !dup {
				domainSeen[sig.Source] = struct{}{}
				domains = append(domains, sig.Source)
			}
		}
	}

	n := float64(len(signals))
	salience := salienceSum / n
	urgency := urgencySum / n

	dominant := order[0]
	for _, kind := range order {
		if counts[kind] > counts[dominant] {
			dominant = kind
		}
	}

	return RelevanceSummary{
		OverallSalience:  salience,
		Urgency:          urgency,
		DominantKind:     dominant,
		RelevantDomains:  domains,
		ShouldPrioritize: salience > cfg.PrioritizeSalience || urgency > cfg.PrioritizeUrgency,
	}
}

// analyzeRelevance calls the workspace and aggregates its signals. A nil
// workspace, an error, or a panic all degrade to the neutral default;
// workspace failure is never propagated into the pipeline.
func analyzeRelevance(ctx context.Context, ws Workspace, msg Message, state *CognitiveState, cfg Config) (summary RelevanceSummary) {
	summary = neutralRelevance()
	if ws == nil {
		return summary
	}

	defer func() {
		if recover() != nil {
			summary = neutralRelevance()
		}
	}()

	signals, err := ws.Analyze(ctx, msg, state)
	if err != nil {
		return neutralRelevance()
	}
	return AggregateRelevance(signals, cfg)
}
