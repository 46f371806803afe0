package hub

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/nats-io/nats.go"

	"netsentry/internal/config"
	"netsentry/internal/model"
)

// Bridge subscribes to the NATS event subject and feeds the hub's broadcast
// path, so NATS-transport agents and HTTP agents share one pipeline.
type Bridge struct {
	hub *Hub
	cfg config.NATSConfig
	nc  *nats.Conn
	sub *nats.Subscription
}

// NewBridge creates a bridge feeding the given hub.
func NewBridge(hub *Hub, cfg config.NATSConfig) *Bridge {
	return &Bridge{hub: hub, cfg: cfg}
}

// Start connects and subscribes. Malformed messages are logged and skipped;
// the bridge keeps running.
func (b *Bridge) Start() error {
	nc, err := nats.Connect(b.cfg.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}
	b.nc = nc
	log.Printf("Connected to NATS server at %s", b.cfg.URL)

	sub, err := nc.Subscribe(b.cfg.Subject, func(msg *nats.Msg) {
		var ev model.Event
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			log.Printf("Error unmarshalling event: %v", err)
			return
		}
		if err := validateEvent(&ev); err != nil {
			log.Printf("Dropping invalid event: %v", err)
			return
		}
		b.hub.Ingest(ev)
	})
	if err != nil {
		nc.Close()
		return fmt.Errorf("failed to subscribe to '%s': %w", b.cfg.Subject, err)
	}
	b.sub = sub
	log.Printf("Subscribed to '%s'. Bridging events into the hub...", b.cfg.Subject)
	return nil
}

// Stop unsubscribes and closes the NATS connection.
func (b *Bridge) Stop() {
	if b.sub != nil {
		b.sub.Unsubscribe()
	}
	if b.nc != nil {
		b.nc.Close()
		log.Println("NATS connection closed.")
	}
}
