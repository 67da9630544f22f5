package bus

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestEventBus_PublishSync(t *testing.T) {
	b := NewEventBus()

	var calls int32
	b.Subscribe(EventTypeSessionStarted, func(e Event) {
		atomic.AddInt32(&calls, 1)
	})
	b.Subscribe(EventTypeSessionStarted, func(e Event) {
		atomic.AddInt32(&calls, 1)
	})

	b.PublishSync(Event{Type: EventTypeSessionStarted, Data: map[string]any{"session_id": "abc"}})

	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("expected 2 handler calls, got %d", got)
	}
}

func TestEventBus_PublishAsync(t *testing.T) {
	b := NewEventBus()

	var wg sync.WaitGroup
	wg.Add(1)
	b.Subscribe(EventTypeFrameDropped, func(e Event) {
		if e.Data["session_id"] != "abc" {
			t.Errorf("unexpected event data: %v", e.Data)
		}
		wg.Done()
	})

	b.Publish(Event{Type: EventTypeFrameDropped, Data: map[string]any{"session_id": "abc"}})

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handler never invoked")
	}
}

func TestEventBus_NoHandlersForType(t *testing.T) {
	b := NewEventBus()

	var calls int32
	b.Subscribe(EventTypeSessionStopped, func(e Event) {
		atomic.AddInt32(&calls, 1)
	})

	// Different type, handler must not fire.
	b.PublishSync(Event{Type: EventTypeSessionStarted})

	if got := atomic.LoadInt32(&calls); got != 0 {
		t.Errorf("expected no handler calls, got %d", got)
	}
}

func TestEventBus_SubscribeMultiple(t *testing.T) {
	b := NewEventBus()

	var calls int32
	b.SubscribeMultiple([]EventType{
		EventTypeMediaDenied,
		EventTypeMediaUnavailable,
	}, func(e Event) {
		atomic.AddInt32(&calls, 1)
	})

	b.PublishSync(Event{Type: EventTypeMediaDenied})
	b.PublishSync(Event{Type: EventTypeMediaUnavailable})

	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("expected 2 handler calls, got %d", got)
	}
}

func TestEventBus_Clear(t *testing.T) {
	b := NewEventBus()

	var calls int32
	b.Subscribe(EventTypeSessionStarted, func(e Event) {
		atomic.AddInt32(&calls, 1)
	})

	b.Clear()
	b.PublishSync(Event{Type: EventTypeSessionStarted})

	if got := atomic.LoadInt32(&calls); got != 0 {
		t.Errorf("expected no handler calls after Clear, got %d", got)
	}
}
