package hub

import (
	"encoding/json"
	"log"
	"sync"

	"netsentry/internal/metrics"
	"netsentry/internal/model"
)

// Envelope is the frame pushed on the live subscription channel.
type Envelope struct {
	Type    string      `json:"type"`
	Payload model.Event `json:"payload"`
}

// Hub accepts events from any transport and fans each one out to the live
// subscriber registry. A single broadcast goroutine consumes the ingest
// channel, so events broadcast in arrival order.
type Hub struct {
	registry *Registry
	metrics  *metrics.Metrics

	events chan model.Event
	done   chan struct{}
	wg     sync.WaitGroup
}

// New creates a hub around the given registry.
func New(registry *Registry, m *metrics.Metrics, buffer int) *Hub {
	return &Hub{
		registry: registry,
		metrics:  m,
		events:   make(chan model.Event, buffer),
		done:     make(chan struct{}),
	}
}

// Registry exposes the subscriber registry for attach and detach.
func (h *Hub) Registry() *Registry {
	return h.registry
}

// Start launches the broadcast loop.
func (h *Hub) Start() {
	h.wg.Add(1)
	go h.run()
	log.Println("Hub broadcast loop started.")
}

// Ingest hands one event to the broadcast loop. It does not score and it
// never fails: subscriber-side trouble is invisible to the caller. During
// shutdown the event is silently dropped.
func (h *Hub) Ingest(e model.Event) {
	select {
	case h.events <- e:
		h.metrics.EventsIngested.Inc()
	case <-h.done:
	}
}

// Stop stops accepting new events, drains whatever is queued and waits for
// the loop to exit. In-flight deliveries complete or time out on their own.
func (h *Hub) Stop() {
	close(h.done)
	h.wg.Wait()
	log.Println("Hub broadcast loop stopped.")
}

func (h *Hub) run() {
	defer h.wg.Done()
	for {
		select {
		case e := <-h.events:
			h.broadcast(e)
		case <-h.done:
			for {
				select {
				case e := <-h.events:
					h.broadcast(e)
				default:
					return
				}
			}
		}
	}
}

func (h *Hub) broadcast(e model.Event) {
	frame, err := json.Marshal(Envelope{Type: "event", Payload: e})
	if err != nil {
		log.Printf("Failed to marshal broadcast frame: %v", err)
		return
	}
	delivered, attempted := h.registry.Broadcast(frame)
	h.metrics.FramesDelivered.Add(float64(delivered))
	h.metrics.DeliveryFailures.Add(float64(attempted - delivered))
	h.metrics.Subscribers.Set(float64(h.registry.Len()))
}
