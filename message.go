package deltecho

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// valid reports whether the role is one of the declared constants.
func (r Role) valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// Message is the wire shape exchanged with the transport collaborator.
// Timestamp is Unix milliseconds, matching the transport's clock.
type Message struct {
	ID        string            `json:"id"`
	Content   string            `json:"content"`
	Role      Role              `json:"role"`
	Timestamp int64             `json:"timestamp"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// MetaCognitivePhase is the metadata key stamped on engine responses.
const MetaCognitivePhase = "cognitivePhase"

// Validate checks the required ingress fields. It returns a ValidationError
// describing the first missing or malformed field.
func (m Message) Validate() error {
	if m.ID == "" {
		return &ValidationError{Field: "id", Reason: "is required"}
	}
	if m.Content == "" {
		return &ValidationError{Field: "content", Reason: "is required"}
	}
	if !m.Role.valid() {
		return &ValidationError{Field: "role", Reason: "must be user, assistant, or system"}
	}
	if m.Timestamp <= 0 {
		return &ValidationError{Field: "timestamp", Reason: "must be positive"}
	}
	return nil
}

// newResponse builds the egress message for generated text: assistant role,
// fresh ID, and the act-phase marker.
func newResponse(content string, at time.Time) Message {
	return Message{
		ID:        uuid.New().String(),
		Content:   content,
		Role:      RoleAssistant,
		Timestamp: at.UnixMilli(),
		Metadata:  map[string]string{MetaCognitivePhase: "act"},
	}
}
