// Package deltechotest provides test utilities for deltecho.
package deltechotest

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/rzonedevops/deltecho"
	"github.com/zoobzio/zyn"
)

// MockArchive implements deltecho.Archive for testing without a database.
type MockArchive struct {
	memories map[string][]deltecho.ArchivedMemory
	failWith error
	mu       sync.RWMutex
}

// NewMockArchive creates a new in-memory mock for deltecho.Archive.
func NewMockArchive() *MockArchive {
	return &MockArchive{
		memories: make(map[string][]deltecho.ArchivedMemory),
	}
}

// FailWith makes every subsequent Store and Scan return err. Pass nil to
// restore normal behavior.
func (m *MockArchive) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWith = err
}

// Store appends a memory under its scope, assigning an ID if missing.
func (m *MockArchive) Store(_ context.Context, mem deltecho.ArchivedMemory) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failWith != nil {
		return m.failWith
	}
	if mem.ID == "" {
		mem.ID = uuid.New().String()
	}
	m.memories[mem.Scope] = append(m.memories[mem.Scope], mem)
	return nil
}

// Scan returns all memories under scope in insertion order.
func (m *MockArchive) Scan(_ context.Context, scope string) ([]deltecho.ArchivedMemory, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.failWith != nil {
		return nil, m.failWith
	}
	out := make([]deltecho.ArchivedMemory, len(m.memories[scope]))
	copy(out, m.memories[scope])
	return out, nil
}

// Len reports how many memories are stored under scope.
func (m *MockArchive) Len(scope string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.memories[scope])
}

// Verify MockArchive implements deltecho.Archive.
var _ deltecho.Archive = (*MockArchive)(nil)

// ScriptedProvider implements deltecho.Provider with canned responses.
// Responses are returned in order; once exhausted, the last one repeats.
// If Err is set it is returned instead.
type ScriptedProvider struct {
	Responses []string
	Err       error

	calls int
	mu    sync.Mutex
}

// Call returns the next scripted response, or Err when set.
func (p *ScriptedProvider) Call(_ context.Context, _ []zyn.Message, _ float32) (*zyn.ProviderResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.Err != nil {
		return nil, p.Err
	}
	if len(p.Responses) == 0 {
		return nil, fmt.Errorf("scripted provider has no responses")
	}
	i := p.calls
	if i >= len(p.Responses) {
		i = len(p.Responses) - 1
	}
	p.calls++
	return &zyn.ProviderResponse{
		Content: p.Responses[i],
		Usage:   zyn.TokenUsage{Prompt: 1, Completion: 1, Total: 2},
	}, nil
}

// Name identifies the provider in telemetry.
func (p *ScriptedProvider) Name() string { return "scripted" }

// CallCount reports how many times Call was invoked.
func (p *ScriptedProvider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// Verify ScriptedProvider implements deltecho.Provider.
var _ deltecho.Provider = (*ScriptedProvider)(nil)

// StaticWorkspace implements deltecho.Workspace, returning the same signals
// for every message. If Err is set it is returned instead.
type StaticWorkspace struct {
	Signals []deltecho.RelevanceSignal
	Err     error
}

// Analyze returns the fixed signal set.
func (w *StaticWorkspace) Analyze(_ context.Context, _ deltecho.Message, _ *deltecho.CognitiveState) ([]deltecho.RelevanceSignal, error) {
	if w.Err != nil {
		return nil, w.Err
	}
	return w.Signals, nil
}

// Verify StaticWorkspace implements deltecho.Workspace.
var _ deltecho.Workspace = (*StaticWorkspace)(nil)

// NewTestEngine builds an engine with a mock archive, a fixed random seed,
// and the given extra options, then opens one session on it.
func NewTestEngine(t *testing.T, opts ...deltecho.Option) (*deltecho.Engine, string) {
	t.Helper()
	base := []deltecho.Option{
		deltecho.WithArchive(NewMockArchive()),
		deltecho.WithRandSeed(1),
	}
	engine := deltecho.NewEngine(deltecho.DefaultConfig(), append(base, opts...)...)
	sessionID := engine.CreateSession(context.Background(), "test-conversation", nil)
	return engine, sessionID
}

// NewUserMessage builds a valid user message for tests.
func NewUserMessage(t *testing.T, content string) deltecho.Message {
	t.Helper()
	return deltecho.Message{
		ID:        uuid.New().String(),
		Content:   content,
		Role:      deltecho.RoleUser,
		Timestamp: 1700000000000,
	}
}

// RequireResponse asserts that processing produced a reply and returns it.
func RequireResponse(t *testing.T, resp *deltecho.Message, err error) *deltecho.Message {
	t.Helper()
	if err != nil {
		t.Fatalf("ProcessMessage failed: %v", err)
	}
	if resp == nil {
		t.Fatal("expected a response, got nil")
	}
	return resp
}
