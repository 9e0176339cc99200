// Package sse streams collection changes to browsers as Server-Sent Events.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// Event types emitted by the broker.
const (
	TypeRecordAdded     = "record.added"
	TypeReloaded        = "collection.reloaded"
	TypeAnalysisUpdated = "analysis.updated"
)

// Event is one frame sent to every subscriber.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Change is a collection change as reported by the record service.
type Change struct {
	Kind  string
	City  string
	Count int
}

// RecordAdded is the payload of record.added.
type RecordAdded struct {
	City  string `json:"city"`
	Count int    `json:"count"`
}

// Reloaded is the payload of collection.reloaded.
type Reloaded struct {
	Count int `json:"count"`
}

// AnalysisUpdated is the payload of analysis.updated. Clients refetch risk
// zones, trends and the hotspot when they see it.
type AnalysisUpdated struct {
	Count int `json:"count"`
}

// frames maps a change to the events it produces; unknown kinds produce none.
func frames(c Change) []Event {
	switch c.Kind {
	case TypeRecordAdded:
		return []Event{{Type: TypeRecordAdded, Data: RecordAdded{City: c.City, Count: c.Count}}}
	case TypeReloaded:
		return []Event{{Type: TypeReloaded, Data: Reloaded{Count: c.Count}}}
	}
	return nil
}

func encode(e Event) ([]byte, error) {
	payload, err := json.Marshal(e.Data)
	if err != nil {
		return nil, err
	}
	return []byte(fmt.Sprintf("id: %s\nevent: %s\ndata: %s\n\n", uuid.NewString(), e.Type, payload)), nil
}

// hub is the broker state. Only the run goroutine touches it.
type hub struct {
	clients      map[chan []byte]struct{}
	lastAnalysis time.Time
}

func (h *hub) send(e Event) {
	raw, err := encode(e)
	if err != nil {
		return
	}
	for ch := range h.clients {
		select {
		case ch <- raw:
		default:
			// Slow client; drop rather than stall everyone else.
		}
	}
}

// Option configures a Broker.
type Option func(*Broker)

// WithClock sets the clock used to throttle analysis.updated.
func WithClock(c clockwork.Clock) Option {
	return func(b *Broker) { b.clock = c }
}

// Broker fans collection changes out to SSE subscribers. Every operation is
// queued to a single goroutine that owns the hub, so operations apply in the
// order they were issued.
type Broker struct {
	throttle time.Duration
	clock    clockwork.Clock

	ops     chan func(*hub)
	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker starts a broker. analysis.updated follows a change at most once
// per throttle.
func NewBroker(throttle time.Duration, opts ...Option) *Broker {
	if throttle <= 0 {
		throttle = 2 * time.Second
	}
	b := &Broker{
		throttle: throttle,
		clock:    clockwork.NewRealClock(),
		ops:      make(chan func(*hub), 256),
		stopCh:   make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	for _, o := range opts {
		o(b)
	}
	go b.run()
	return b
}

func (b *Broker) run() {
	defer close(b.stopped)
	h := &hub{clients: make(map[chan []byte]struct{})}
	for {
		select {
		case <-b.stopCh:
			for ch := range h.clients {
				close(ch)
			}
			return
		case op := <-b.ops:
			op(h)
		}
	}
}

// enqueue hands op to the run goroutine. It reports false once the broker
// has stopped.
func (b *Broker) enqueue(op func(*hub)) bool {
	if b.closed.Load() {
		return false
	}
	select {
	case b.ops <- op:
		return true
	case <-b.stopped:
		return false
	}
}

// Close stops the broker and closes every subscriber channel.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe registers a client. The channel is closed when the client
// unsubscribes or the broker stops.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, 64)
	if !b.enqueue(func(h *hub) { h.clients[ch] = struct{}{} }) {
		close(ch)
	}
	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	b.enqueue(func(h *hub) {
		if _, ok := h.clients[ch]; ok {
			delete(h.clients, ch)
			close(ch)
		}
	})
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	resp := make(chan int, 1)
	if !b.enqueue(func(h *hub) { resp <- len(h.clients) }) {
		return 0
	}
	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Publish sends e to every client as is.
func (b *Broker) Publish(e Event) {
	b.enqueue(func(h *hub) { h.send(e) })
}

// Notify broadcasts a collection change, then analysis.updated unless one
// went out within the throttle window.
func (b *Broker) Notify(c Change) {
	events := frames(c)
	if len(events) == 0 {
		return
	}
	b.enqueue(func(h *hub) {
		for _, e := range events {
			h.send(e)
		}
		now := b.clock.Now()
		if h.lastAnalysis.IsZero() || now.Sub(h.lastAnalysis) >= b.throttle {
			h.lastAnalysis = now
			h.send(Event{Type: TypeAnalysisUpdated, Data: AnalysisUpdated{Count: c.Count}})
		}
	})
}

const (
	keepAlive  = 15 * time.Second
	retryAfter = 3 * time.Second
)

// ServeHTTP is the SSE endpoint handler (GET /api/events).
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "retry: %d\n\n", retryAfter.Milliseconds())
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	ping := time.NewTicker(keepAlive)
	defer ping.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ping.C:
			_, _ = w.Write([]byte(": ping\n\n"))
			flusher.Flush()
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
