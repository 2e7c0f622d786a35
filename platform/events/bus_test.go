package events

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"campaignmerch_backend/platform/logger"
)

type testEvent struct {
	BaseEvent
	name string
}

func (e testEvent) EventName() string { return e.name }

func TestPublishSyncDeliversToAllHandlersInOrder(t *testing.T) {
	bus := NewInMemoryBus(logger.New("development"))

	var order []string
	for _, id := range []string{"first", "second", "third"} {
		id := id
		bus.Subscribe("catalog.product.updated", HandlerFunc(func(context.Context, Event) error {
			order = append(order, id)
			return nil
		}))
	}

	if err := bus.PublishSync(context.Background(), testEvent{NewBaseEvent(), "catalog.product.updated"}); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	if len(order) != 3 {
		t.Fatalf("expected 3 deliveries, got %d", len(order))
	}
	for i, want := range []string{"first", "second", "third"} {
		if order[i] != want {
			t.Fatalf("expected delivery %d to be %q, got %q", i, want, order[i])
		}
	}
}

func TestHandlerErrorDoesNotStopDelivery(t *testing.T) {
	bus := NewInMemoryBus(logger.New("development"))

	secondRan := false
	bus.Subscribe("bundle.integrity.issues_found", HandlerFunc(func(context.Context, Event) error {
		return errors.New("boom")
	}))
	bus.Subscribe("bundle.integrity.issues_found", HandlerFunc(func(context.Context, Event) error {
		secondRan = true
		return nil
	}))

	if err := bus.PublishSync(context.Background(), testEvent{NewBaseEvent(), "bundle.integrity.issues_found"}); err != nil {
		t.Fatalf("publish failed: %v", err)
	}
	if !secondRan {
		t.Fatal("expected second handler to run after first failed")
	}
}

func TestHandlerPanicIsContained(t *testing.T) {
	bus := NewInMemoryBus(logger.New("development"))

	delivered := 0
	bus.Subscribe("catalog.product.deleted", HandlerFunc(func(context.Context, Event) error {
		panic("handler bug")
	}))
	bus.Subscribe("catalog.product.deleted", HandlerFunc(func(context.Context, Event) error {
		delivered++
		return nil
	}))

	if err := bus.PublishSync(context.Background(), testEvent{NewBaseEvent(), "catalog.product.deleted"}); err != nil {
		t.Fatalf("publish failed: %v", err)
	}
	if delivered != 1 {
		t.Fatalf("expected delivery to continue past panicking handler, delivered=%d", delivered)
	}
}

func TestUnsubscribeRemovesHandler(t *testing.T) {
	bus := NewInMemoryBus(logger.New("development"))

	calls := 0
	h := HandlerFunc(func(context.Context, Event) error {
		calls++
		return nil
	})

	bus.Subscribe("catalog.product.deactivated", h)
	if err := bus.PublishSync(context.Background(), testEvent{NewBaseEvent(), "catalog.product.deactivated"}); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	bus.Unsubscribe("catalog.product.deactivated", h)
	if err := bus.PublishSync(context.Background(), testEvent{NewBaseEvent(), "catalog.product.deactivated"}); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	if calls != 1 {
		t.Fatalf("expected 1 call after unsubscribe, got %d", calls)
	}
	if got := bus.HandlerCount("catalog.product.deactivated"); got != 0 {
		t.Fatalf("expected 0 handlers, got %d", got)
	}
}

func TestHistoryIsBoundedAndNewestFirst(t *testing.T) {
	bus := NewInMemoryBus(logger.New("development"))

	for i := 0; i < historySize+20; i++ {
		evt := testEvent{NewBaseEvent(), fmt.Sprintf("event.%d", i)}
		if err := bus.PublishSync(context.Background(), evt); err != nil {
			t.Fatalf("publish failed: %v", err)
		}
	}

	recent := bus.RecentEvents(0)
	if len(recent) != historySize {
		t.Fatalf("expected history capped at %d, got %d", historySize, len(recent))
	}
	if recent[0].Name != fmt.Sprintf("event.%d", historySize+19) {
		t.Fatalf("expected newest event first, got %q", recent[0].Name)
	}

	limited := bus.RecentEvents(5)
	if len(limited) != 5 {
		t.Fatalf("expected 5 events, got %d", len(limited))
	}
}
