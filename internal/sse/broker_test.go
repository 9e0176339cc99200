package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

func TestSubscribeUnsubscribe(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients")
	}
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}
	b.Unsubscribe(ch)
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after unsub")
	}
}

func TestPublishDelivery(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.Publish(Event{Type: TypeRecordAdded, Data: map[string]string{"city": "Lagos"}})

	select {
	case msg := <-ch:
		s := string(msg)
		if !strings.Contains(s, "event: record.added") {
			t.Errorf("missing event type in %q", s)
		}
		if !strings.HasPrefix(s, "id: ") {
			t.Errorf("missing event id in %q", s)
		}
		if !strings.Contains(s, `"city":"Lagos"`) {
			t.Errorf("missing data in %q", s)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

// drain counts buffered frames by event type.
func drain(ch chan []byte) map[string]int {
	counts := map[string]int{}
	for {
		select {
		case msg := <-ch:
			for _, line := range strings.Split(string(msg), "\n") {
				if typ, ok := strings.CutPrefix(line, "event: "); ok {
					counts[typ]++
				}
			}
		default:
			return counts
		}
	}
}

func TestNotify_AnalysisThrottle(t *testing.T) {
	clock := clockwork.NewFakeClock()
	b := NewBroker(time.Minute, WithClock(clock))
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.Notify(Change{Kind: TypeRecordAdded, City: "A", Count: 1})
	b.Notify(Change{Kind: TypeReloaded, Count: 5})
	b.ClientCount() // waits for the queued notifications

	got := drain(ch)
	if got[TypeRecordAdded] != 1 || got[TypeReloaded] != 1 {
		t.Errorf("change events = %v", got)
	}
	if got[TypeAnalysisUpdated] != 1 {
		t.Errorf("analysis events = %d, want 1 (throttled)", got[TypeAnalysisUpdated])
	}

	clock.Advance(time.Minute)
	b.Notify(Change{Kind: TypeRecordAdded, City: "B", Count: 6})
	b.ClientCount()

	got = drain(ch)
	if got[TypeAnalysisUpdated] != 1 {
		t.Errorf("analysis events after window = %d, want 1", got[TypeAnalysisUpdated])
	}
}

func TestNotify_RecordAddedPayload(t *testing.T) {
	b := NewBroker(time.Minute)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.Notify(Change{Kind: TypeRecordAdded, City: "Lagos", Count: 3})

	select {
	case msg := <-ch:
		if !strings.Contains(string(msg), `data: {"city":"Lagos","count":3}`) {
			t.Errorf("unexpected frame %q", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestNotify_UnknownKindIgnored(t *testing.T) {
	b := NewBroker(time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.Notify(Change{Kind: "record.deleted", City: "A"})
	b.ClientCount()

	select {
	case msg := <-ch:
		t.Errorf("unexpected message %q", msg)
	default:
	}
}

func TestSSEHandler(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()

	// Start handler in background.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req = req.WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()

	// Give handler time to subscribe.
	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client from handler")
	}

	b.Publish(Event{Type: TypeReloaded, Data: map[string]int{"count": 3}})
	time.Sleep(50 * time.Millisecond)

	// Cancel context to disconnect.
	cancel()
	<-done

	body := w.Body.String()
	if !strings.HasPrefix(body, "retry: 3000\n\n") {
		t.Errorf("handler should open with a retry hint: %q", body)
	}
	if !strings.Contains(body, "event: collection.reloaded") || !strings.Contains(body, `"count":3`) {
		t.Errorf("handler output missing event: %q", body)
	}

	// Client should be cleaned up.
	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 0 {
		t.Errorf("client not cleaned up after disconnect")
	}
}

func TestPublishDropsOnFullBuffer(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// Fill buffer (capacity 64) and then one more should not block.
	for i := 0; i < 70; i++ {
		b.Publish(Event{Type: "test", Data: map[string]string{"i": "x"}})
	}
	// If we reach here without deadlock, the test passes.
}

func TestCloseClosesSubscribersAndStopsOperations(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}

	b.Close()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected subscriber channel to be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for channel close")
	}

	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after close")
	}

	// Should be safe no-op after close.
	b.Publish(Event{Type: TypeReloaded, Data: map[string]int{"count": 0}})
	b.Notify(Change{Kind: TypeRecordAdded, City: "A", Count: 1})
}
