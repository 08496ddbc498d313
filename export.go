package deltecho

import (
	"encoding/json"
	"fmt"
	"time"
)

// StateSnapshot is the opaque, serializable export of one session's
// cognitive state. Round-tripping through ExportState/ImportState preserves
// the bounded collections' contents and ordering.
type StateSnapshot struct {
	Version int `json:"version"`

	Session     Session        `json:"session"`
	ShortTerm   []Utterance    `json:"short_term"`
	Tone        EmotionalTone  `json:"tone"`
	Topics      []TopicNode    `json:"topics"`
	TopicsDecay time.Time      `json:"topics_decay"`
	Intents     []Intent       `json:"intents"`
	Anchors     []MemoryAnchor `json:"anchors"`
	Reflections []Reflection   `json:"reflections"`
	Phase       Phase          `json:"phase"`
}

// snapshotVersion guards against importing blobs written by an
// incompatible build.
const snapshotVersion = 1

// ExportState captures a session's state as a serializable blob. The
// snapshot is taken under the session lock, so it is internally consistent.
func (e *Engine) ExportState(sessionID string) ([]byte, error) {
	var snap StateSnapshot
	err := e.sessions.withSession(sessionID, "export_state", func(state *CognitiveState) error {
		snap = StateSnapshot{
			Version:     snapshotVersion,
			Session:     state.Session,
			ShortTerm:   state.ShortTerm.All(),
			Tone:        state.Tone,
			Topics:      topicNodesInsertOrder(state.Topics),
			TopicsDecay: state.Topics.lastDecay,
			Intents:     state.Intents.All(),
			Anchors:     state.Anchors.All(),
			Reflections: state.Reflections.All(),
			Phase:       state.Phase,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	blob, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return blob, nil
}

// ImportState restores a previously exported snapshot into an existing
// session, replacing its state wholesale.
func (e *Engine) ImportState(sessionID string, blob []byte) error {
	var snap StateSnapshot
	if err := json.Unmarshal(blob, &snap); err != nil {
		return fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	if snap.Version != snapshotVersion {
		return fmt.Errorf("unsupported snapshot version %d", snap.Version)
	}

	return e.sessions.withSession(sessionID, "import_state", func(state *CognitiveState) error {
		state.ShortTerm.restore(snap.ShortTerm)
		state.Tone = snap.Tone
		state.Topics.restore(snap.Topics, snap.TopicsDecay)
		state.Intents.restore(snap.Intents)
		state.Anchors.restore(snap.Anchors)
		state.Reflections.restore(snap.Reflections)
		state.Phase = snap.Phase
		state.Session.ConversationID = snap.Session.ConversationID
		return nil
	})
}

// topicNodesInsertOrder exports topics ordered deterministically by
// FirstSeen then label, so snapshots of identical state compare equal.
func topicNodesInsertOrder(g *TopicGraph) []TopicNode {
	nodes := g.Nodes()
	// Nodes() orders by weight; re-sort by age for a stable export shape.
	for i := 1; i < len(nodes); i++ {
		for j := i; j > 0; j-- {
			a, b := nodes[j-1], nodes[j]
			if a.FirstSeen.Before(b.FirstSeen) ||
				(a.FirstSeen.Equal(b.FirstSeen) && a.Label <= b.Label) {
				break
			}
			nodes[j-1], nodes[j] = b, a
		}
	}
	return nodes
}
