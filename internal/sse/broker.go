// Package sse implements a Server-Sent Events broker for pushing diary
// changes and update-available notices to open application pages.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

// Event represents an SSE event to broadcast.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type measurementEventReq struct {
	kind string
	day  string
}

// Broker manages SSE client connections and broadcasts events.
//
// Concurrency model: a single internal event loop (goroutine) owns mutable
// state (clients + chart throttle timestamp). Public methods communicate
// with this loop through channels, so no mutexes are required.
type Broker struct {
	chartMin time.Duration

	subscribeCh        chan chan []byte
	unsubscribeCh      chan chan []byte
	publishCh          chan Event
	measurementEventCh chan measurementEventReq
	countReqCh         chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates a new SSE broker with the given chart-refresh
// throttle interval.
func NewBroker(chartThrottle time.Duration) *Broker {
	if chartThrottle <= 0 {
		chartThrottle = 2 * time.Second
	}

	b := &Broker{
		chartMin:           chartThrottle,
		subscribeCh:        make(chan chan []byte),
		unsubscribeCh:      make(chan chan []byte),
		publishCh:          make(chan Event, 256),
		measurementEventCh: make(chan measurementEventReq, 256),
		countReqCh:         make(chan chan int),
		stopCh:             make(chan struct{}),
		stopped:            make(chan struct{}),
	}

	go b.run()
	return b
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]struct{})
	var lastChart time.Time

	broadcast := func(event Event) {
		payload, err := json.Marshal(event.Data)
		if err != nil {
			return
		}
		msg := fmt.Sprintf("event: %s\ndata: %s\n\n", event.Type, payload)
		raw := []byte(msg)

		for ch := range clients {
			select {
			case ch <- raw:
			default:
				// Client buffer full; skip to avoid blocking broker loop.
			}
		}
	}

	for {
		select {
		case <-b.stopCh:
			for ch := range clients {
				close(ch)
			}
			return

		case ch := <-b.subscribeCh:
			clients[ch] = struct{}{}

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case event := <-b.publishCh:
			broadcast(event)

		case req := <-b.measurementEventCh:
			data := map[string]string{"day": req.day}
			switch req.kind {
			case "created":
				broadcast(Event{Type: "measurement.created", Data: data})
			case "deleted":
				broadcast(Event{Type: "measurement.deleted", Data: data})
			}

			// Open chart views redraw on this; throttle the bursts an
			// import produces.
			now := time.Now()
			if now.Sub(lastChart) >= b.chartMin {
				lastChart = now
				broadcast(Event{Type: "chart.updated", Data: map[string]string{}})
			}

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

// Close gracefully stops broker loop and closes all client channels.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe adds a new client and returns its channel.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, 64)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case b.subscribeCh <- ch:
	case <-b.stopped:
		close(ch)
	}

	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- ch:
	case <-b.stopped:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}

	resp := make(chan int, 1)
	select {
	case b.countReqCh <- resp:
	case <-b.stopped:
		return 0
	}

	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Publish sends an event to all connected clients.
func (b *Broker) Publish(event Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- event:
	case <-b.stopped:
	}
}

// PublishMeasurementEvent publishes a measurement change on the given day
// and a throttled chart.updated event. kind is "created" or "deleted";
// anything else broadcasts only the chart event.
func (b *Broker) PublishMeasurementEvent(kind, day string) {
	if b.closed.Load() {
		return
	}
	select {
	case b.measurementEventCh <- measurementEventReq{kind: kind, day: day}:
	case <-b.stopped:
	}
}

// PublishUpdateAvailable notifies open pages that a new application
// version is installed and waiting for approval.
func (b *Broker) PublishUpdateAvailable(version string) {
	b.Publish(Event{Type: "worker.update-available", Data: map[string]string{"version": version}})
}

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
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
