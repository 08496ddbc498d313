package deltecho

import (
	"context"
	"sync"

	"github.com/zoobzio/capitan"
)

// EventKind discriminates the cognitive event union.
type EventKind string

const (
	EventMessageReceived   EventKind = "message_received"
	EventResponseGenerated EventKind = "response_generated"
	EventMemoryUpdated     EventKind = "memory_updated"
	EventPersonaChanged    EventKind = "persona_changed"
	EventReasoningComplete EventKind = "reasoning_complete"
	EventError             EventKind = "error"
)

// CognitiveEvent is one lifecycle notification. Kind selects which payload
// fields are populated; events are delivered to listeners and never stored.
type CognitiveEvent struct {
	Kind      EventKind
	SessionID string
	Phase     Phase

	// Message carries the inbound message for message_received and the
	// produced response for response_generated.
	Message Message

	// Anchor is set for memory_updated.
	Anchor MemoryAnchor

	// Persona is set for persona_changed.
	Persona string

	// Err is set for error events.
	Err error
}

// Listener receives cognitive events for the kinds it subscribed to.
type Listener func(CognitiveEvent)

// Bus is the per-engine typed publish/subscribe channel. Listeners for one
// kind run in registration order; a panicking listener is caught, reported
// through the ListenerPanicked signal, and does not prevent remaining
// listeners or the pipeline from completing.
type Bus struct {
	mu        sync.RWMutex
	listeners map[EventKind][]*registration
}

type registration struct {
	fn Listener
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{listeners: make(map[EventKind][]*registration)}
}

// Subscribe registers a listener for one event kind and returns a function
// that removes exactly that registration.
func (b *Bus) Subscribe(kind EventKind, fn Listener) (unsubscribe func()) {
	reg := &registration{fn: fn}

	b.mu.Lock()
	b.listeners[kind] = append(b.listeners[kind], reg)
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		regs := b.listeners[kind]
		for i, r := range regs {
			if r == reg {
				b.listeners[kind] = append(regs[:i:i], regs[i+1:]...)
				return
			}
		}
	}
}

// Emit delivers the event to every listener registered for its kind, in
// registration order, synchronously with respect to the caller.
func (b *Bus) Emit(ctx context.Context, ev CognitiveEvent) {
	b.mu.RLock()
	regs := make([]*registration, len(b.listeners[ev.Kind]))
	copy(regs, b.listeners[ev.Kind])
	b.mu.RUnlock()

	for i, reg := range regs {
		b.dispatch(ctx, ev, i, reg.fn)
	}
}

// dispatch runs one listener with panic isolation.
func (b *Bus) dispatch(ctx context.Context, ev CognitiveEvent, index int, fn Listener) {
	defer func() {
		if r := recover(); r != nil {
			herr := &HandlerError{Kind: ev.Kind, Index: index, Panic: r}
			capitan.Error(ctx, ListenerPanicked,
				FieldSessionID.Field(ev.SessionID),
				FieldEventKind.Field(string(ev.Kind)),
				FieldListenerIndex.Field(index),
				FieldError.Field(herr),
			)
		}
	}()
	fn(ev)
}
