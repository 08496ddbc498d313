package deltecho

import (
	"math"
	"sort"
	"time"
)

// TopicNode is one tracked discussion topic. Weight grows by 1 on each
// mention and decays exponentially between processing cycles.
type TopicNode struct {
	Label     string    `json:"label"`
	Weight    float64   `json:"weight"`
	FirstSeen time.Time `json:"first_seen"`
	LastSeen  time.Time `json:"last_seen"`
	Related   []string  `json:"related,omitempty"`
}

// TopicGraph is the decaying, weighted, undirected collection of topics
// extracted from recent message tokens. Tokens mentioned together in one
// utterance become related.
//
// TopicGraph is not safe for concurrent use; the session lock serializes
// access during processing.
type TopicGraph struct {
	nodes       map[string]*TopicNode
	lastDecay   time.Time
	decayPeriod time.Duration
	pruneBelow  float64
}

// NewTopicGraph creates an empty graph with the given decay time constant
// and prune threshold.
func NewTopicGraph(decayPeriod time.Duration, pruneBelow float64, now time.Time) *TopicGraph {
	return &TopicGraph{
		nodes:       make(map[string]*TopicNode),
		lastDecay:   now,
		decayPeriod: decayPeriod,
		pruneBelow:  pruneBelow,
	}
}

// Merge folds the content tokens of one utterance into the graph. A new
// token becomes a node with weight 1; an existing node gains weight 1 and a
// refreshed LastSeen. Tokens sharing the utterance become mutually related.
func (g *TopicGraph) Merge(text string, now time.Time) []string {
	labels := contentTokens(text)
	seen := make(map[string]struct{}, len(labels))

	var merged []string
	for _, label := range labels {
		if _, dup := seen[label]; dup {
			continue
		}
		seen[label] = struct{}{}
		merged = append(merged, label)

		node, ok := g.nodes[label]
		if !ok {
			g.nodes[label] = &TopicNode{
				Label:     label,
				Weight:    1,
				FirstSeen: now,
				LastSeen:  now,
			}
			continue
		}
		node.Weight++
		node.LastSeen = now
	}

	// Co-occurring topics become related.
	for _, label := range merged {
		node := g.nodes[label]
		for _, other := range merged {
			if other == label || relatedContains(node.Related, other) {
				continue
			}
			node.Related = append(node.Related, other)
		}
	}

	return merged
}

func relatedContains(related []string, label string) bool {
	for _, r := range related {
		if r == label {
			return true
		}
	}
	return false
}

// Decay applies exponential weight decay for the time elapsed since the
// previous decay and prunes nodes below the threshold. It runs once per
// processing cycle. Returns the number of pruned nodes.
func (g *TopicGraph) Decay(now time.Time) int {
	elapsed := now.Sub(g.lastDecay)
	g.lastDecay = now
	if elapsed <= 0 {
		return 0
	}

	factor := math.Exp(-elapsed.Seconds() / g.decayPeriod.Seconds())
	pruned := 0
	for label, node := range g.nodes {
		node.Weight *= factor
		if node.Weight < g.pruneBelow {
			delete(g.nodes, label)
			pruned++
		}
	}
	if pruned == 0 {
		return 0
	}

	// Drop dangling references to pruned nodes.
	for _, node := range g.nodes {
		kept := node.Related[:0]
		for _, r := range node.Related {
			if _, ok := g.nodes[r]; ok {
				kept = append(kept, r)
			}
		}
		node.Related = kept
	}
	return pruned
}

// Node returns the tracked node for a label, if present.
func (g *TopicGraph) Node(label string) (TopicNode, bool) {
	node, ok := g.nodes[label]
	if !ok {
		return TopicNode{}, false
	}
	return *node, true
}

// Len returns the number of tracked topics.
func (g *TopicGraph) Len() int {
	return len(g.nodes)
}

// Nodes returns all topics ordered by descending weight, label as tie-break.
func (g *TopicGraph) Nodes() []TopicNode {
	out := make([]TopicNode, 0, len(g.nodes))
	for _, node := range g.nodes {
		out = append(out, *node)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Weight != out[j].Weight {
			return out[i].Weight > out[j].Weight
		}
		return out[i].Label < out[j].Label
	})
	return out
}

// restore rehydrates the graph from a snapshot, preserving node fields.
func (g *TopicGraph) restore(nodes []TopicNode, lastDecay time.Time) {
	g.nodes = make(map[string]*TopicNode, len(nodes))
	for i := range nodes {
		node := nodes[i]
		g.nodes[node.Label] = &node
	}
	g.lastDecay = lastDecay
}
