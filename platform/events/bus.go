// Package events provides event bus infrastructure for decoupled,
// event-driven communication between modules.
package events

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"time"

	"campaignmerch_backend/platform/logger"
)

// historySize bounds the ring buffer of recent events kept for diagnostics.
const historySize = 100

// RecordedEvent is a diagnostic record of a published event.
type RecordedEvent struct {
	Seq         uint64    `json:"seq"`
	Name        string    `json:"name"`
	PublishedAt time.Time `json:"publishedAt"`
	Handlers    int       `json:"handlers"`
}

// InMemoryBus is a synchronous-await, in-process event bus.
// Publish resolves only after all current subscribers have run, so the
// ordering of dependent side effects is deterministic within one publish.
// It keeps a bounded ring buffer of recent events for diagnostics.
type InMemoryBus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler

	histMu  sync.Mutex
	history []RecordedEvent
	seq     uint64

	log *logger.Logger
}

// NewInMemoryBus creates a new in-memory event bus.
func NewInMemoryBus(log *logger.Logger) *InMemoryBus {
	return &InMemoryBus{
		handlers: make(map[string][]Handler),
		history:  make([]RecordedEvent, 0, historySize),
		log:      log,
	}
}

// Subscribe registers a handler for the given event name.
func (b *InMemoryBus) Subscribe(eventName string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventName] = append(b.handlers[eventName], handler)
}

// Unsubscribe removes a previously registered handler for the given event name.
// The handler is matched by identity (same pointer or same function).
func (b *InMemoryBus) Unsubscribe(eventName string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	existing := b.handlers[eventName]
	kept := existing[:0]
	for _, h := range existing {
		if !sameHandler(h, handler) {
			kept = append(kept, h)
		}
	}
	if len(kept) == 0 {
		delete(b.handlers, eventName)
		return
	}
	b.handlers[eventName] = kept
}

// PublishSync delivers the event to all current subscribers and waits for
// each to finish. A failing or panicking handler is logged and does not stop
// delivery to the remaining handlers.
func (b *InMemoryBus) PublishSync(ctx context.Context, event Event) error {
	name := event.EventName()

	b.mu.RLock()
	subscribers := make([]Handler, len(b.handlers[name]))
	copy(subscribers, b.handlers[name])
	b.mu.RUnlock()

	b.record(name, len(subscribers))

	for _, h := range subscribers {
		b.deliver(ctx, name, h, event)
	}
	return nil
}

// Publish delivers the event asynchronously. Delivery still honors the
// synchronous-await contract among the handlers themselves.
func (b *InMemoryBus) Publish(ctx context.Context, event Event) {
	go func() {
		// The publisher's request may end before handlers run.
		_ = b.PublishSync(context.WithoutCancel(ctx), event)
	}()
}

// RecentEvents returns up to limit most recent published events, newest first.
func (b *InMemoryBus) RecentEvents(limit int) []RecordedEvent {
	b.histMu.Lock()
	defer b.histMu.Unlock()

	if limit <= 0 || limit > len(b.history) {
		limit = len(b.history)
	}
	out := make([]RecordedEvent, 0, limit)
	for i := len(b.history) - 1; i >= len(b.history)-limit; i-- {
		out = append(out, b.history[i])
	}
	return out
}

// HandlerCount returns the number of handlers registered for an event name.
func (b *InMemoryBus) HandlerCount(eventName string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[eventName])
}

func (b *InMemoryBus) deliver(ctx context.Context, name string, h Handler, event Event) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("event handler panicked", "event", name, "panic", fmt.Sprint(r))
		}
	}()

	if err := h.Handle(ctx, event); err != nil {
		b.log.Error("event handler failed", "event", name, "error", err.Error())
	}
}

func (b *InMemoryBus) record(name string, handlers int) {
	b.histMu.Lock()
	defer b.histMu.Unlock()

	b.seq++
	if len(b.history) == historySize {
		copy(b.history, b.history[1:])
		b.history = b.history[:historySize-1]
	}
	b.history = append(b.history, RecordedEvent{
		Seq:         b.seq,
		Name:        name,
		PublishedAt: time.Now(),
		Handlers:    handlers,
	})
}

func sameHandler(a, b Handler) bool {
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if va.Kind() != vb.Kind() {
		return false
	}
	switch va.Kind() {
	case reflect.Func, reflect.Pointer:
		return va.Pointer() == vb.Pointer()
	default:
		return va.Comparable() && vb.Comparable() && a == b
	}
}

// Compile-time check that InMemoryBus implements Bus.
var _ Bus = (*InMemoryBus)(nil)
