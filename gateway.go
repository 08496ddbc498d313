package deltecho

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/zyn"
)

// Provider defines the interface for text-generation providers.
// This matches zyn.Provider, so any zyn-compatible provider plugs in.
type Provider interface {
	Call(ctx context.Context, messages []zyn.Message, temperature float32) (*zyn.ProviderResponse, error)
	Name() string
}

// GenerationConfig parameterizes one provider request. Model selection and
// token limits are fixed when the provider itself is constructed, so the
// request carries only the sampling temperature.
type GenerationConfig struct {
	Temperature float32
}

// DefaultGenerationConfig returns the stock request parameters.
func DefaultGenerationConfig() GenerationConfig {
	return GenerationConfig{
		Temperature: 0.7,
	}
}

// Persona is the assistant identity surfaced by generated and fallback
// responses.
type Persona struct {
	Name         string
	SystemPrompt string
}

// DefaultPersona returns the stock identity.
func DefaultPersona() Persona {
	return Persona{
		Name: DefaultPersonaName,
		SystemPrompt: "You are " + DefaultPersonaName + ", a reflective conversational companion. " +
			"Respond warmly and concisely, staying attentive to the emotional tone of the exchange.",
	}
}

// StatusError reports a non-2xx provider response. HTTP-backed providers
// return it so the gateway can name the failure category.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("provider returned status %d", e.Code)
}

// Gateway wraps a generation provider with deterministic degradation.
// Provider failures never escape Generate: every failure category is
// converted into a human-readable fallback string, and a nil provider is
// answered by a rule-based local responder.
type Gateway struct {
	provider Provider
	cfg      GenerationConfig
	persona  Persona
}

// NewGateway creates a gateway. provider may be nil, enabling only the
// local responder.
func NewGateway(provider Provider, cfg GenerationConfig, persona Persona) *Gateway {
	if persona.Name == "" {
		persona = DefaultPersona()
	}
	return &Gateway{provider: provider, cfg: cfg, persona: persona}
}

// Persona returns the gateway's configured identity.
func (g *Gateway) Persona() Persona {
	return g.persona
}

// Generate produces the response text for the given recent history, most
// recent utterance last. The boolean reports whether a fallback (local
// responder or failure template) was used instead of provider output.
// Generate never returns an error to its caller.
func (g *Gateway) Generate(ctx context.Context, history []Utterance) (string, bool) {
	last := ""
	if len(history) > 0 {
		last = history[len(history)-1].Content
	}

	if g.provider == nil {
		return g.localResponse(last), true
	}

	messages := make([]zyn.Message, 0, len(history)+1)
	messages = append(messages, zyn.Message{Role: "system", Content: g.persona.SystemPrompt})
	for _, u := range history {
		messages = append(messages, zyn.Message{Role: string(u.Role), Content: u.Content})
	}

	start := time.Now()
	resp, err := g.provider.Call(ctx, messages, g.cfg.Temperature)
	capitan.Emit(ctx, ProviderCalled,
		FieldProvider.Field(g.provider.Name()),
		FieldDuration.Field(time.Since(start)),
	)

	if err == nil && (resp == nil || strings.TrimSpace(resp.Content) == "") {
		err = &TransportError{Failure: FailureEmptyResult, Err: errors.New("provider returned no choices")}
	}
	if err != nil {
		failure := classifyFailure(err)
		capitan.Error(ctx, FallbackUsed,
			FieldProvider.Field(g.provider.Name()),
			FieldFailure.Field(string(failure)),
			FieldError.Field(&TransportError{Failure: failure, Err: err}),
		)
		return failureResponse(failure), true
	}

	return resp.Content, false
}

// classifyFailure maps a provider error onto the transport failure taxonomy.
func classifyFailure(err error) TransportFailure {
	var te *TransportError
	if errors.As(err, &te) {
		return te.Failure
	}
	var se *StatusError
	if errors.As(err, &se) {
		return FailureStatus
	}
	var syn *json.SyntaxError
	var typ *json.UnmarshalTypeError
	if errors.As(err, &syn) || errors.As(err, &typ) {
		return FailureMalformed
	}
	var ne net.Error
	if errors.As(err, &ne) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return FailureConnection
	}
	return FailureConnection
}

// failureResponse is the deterministic fallback template. It names the
// failure category and always references "an issue".
func failureResponse(failure TransportFailure) string {
	return fmt.Sprintf(
		"I apologize — I ran into an issue reaching my response service (%s failure). Let's try that again in a moment.",
		failure,
	)
}

// localResponse is the rule-based responder used when no provider is
// configured. Responses are fixed per pattern and always carry the persona
// name, so identical input yields identical output.
func (g *Gateway) localResponse(text string) string {
	lower := strings.ToLower(strings.TrimSpace(text))

	switch {
	case lower == "":
		return fmt.Sprintf("%s is listening.", g.persona.Name)
	case hasAnyPrefix(lower, "hello", "hi", "hey", "greetings"):
		return fmt.Sprintf("Hello! I'm %s. It's good to hear from you.", g.persona.Name)
	case strings.Contains(lower, "who are you"):
		return fmt.Sprintf("I'm %s, a reflective companion that listens, remembers, and echoes back what matters.", g.persona.Name)
	case strings.Contains(lower, "how are you"):
		return fmt.Sprintf("I'm steady and attentive, thank you. %s is always glad to talk.", g.persona.Name)
	case strings.Contains(text, "?"):
		return fmt.Sprintf("That's a thoughtful question. %s can only offer deeper answers once a generation provider is configured.", g.persona.Name)
	default:
		return fmt.Sprintf("%s hears you: %q. Tell me more.", g.persona.Name, text)
	}
}

func hasAnyPrefix(s string, prefixes ...string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

// CallRecord is one observed provider invocation.
type CallRecord struct {
	At           time.Time
	MessageCount int
	Temperature  float32
	Duration     time.Duration
	Err          error
}

// TraceProvider decorates a Provider and records every call. Wrap the
// provider once at construction instead of intercepting methods at runtime:
//
//	traced := deltecho.NewTraceProvider(provider)
//	gw := deltecho.NewGateway(traced, cfg, persona)
type TraceProvider struct {
	inner Provider

	mu    sync.Mutex
	calls []CallRecord
}

// NewTraceProvider wraps a provider with call recording.
func NewTraceProvider(inner Provider) *TraceProvider {
	return &TraceProvider{inner: inner}
}

// Call implements Provider.
func (t *TraceProvider) Call(ctx context.Context, messages []zyn.Message, temperature float32) (*zyn.ProviderResponse, error) {
	start := time.Now()
	resp, err := t.inner.Call(ctx, messages, temperature)

	t.mu.Lock()
	t.calls = append(t.calls, CallRecord{
		At:           start,
		MessageCount: len(messages),
		Temperature:  temperature,
		Duration:     time.Since(start),
		Err:          err,
	})
	t.mu.Unlock()

	return resp, err
}

// Name implements Provider.
func (t *TraceProvider) Name() string {
	return t.inner.Name()
}

// Calls returns a copy of the recorded invocations in order.
func (t *TraceProvider) Calls() []CallRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]CallRecord, len(t.calls))
	copy(out, t.calls)
	return out
}

var _ Provider = (*TraceProvider)(nil)
