package emitter

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/nats-io/nats.go"

	"netsentry/internal/config"
	"netsentry/internal/model"
)

// Publisher publishes events to a NATS subject as JSON, as an alternative to
// the HTTP sender when agents and hub share a NATS deployment.
type Publisher struct {
	nc      *nats.Conn
	subject string
}

// NewPublisher creates a new NATS publisher.
func NewPublisher(cfg config.NATSConfig) (*Publisher, error) {
	nc, err := nats.Connect(cfg.URL)
	if err != nil {
		return nil, err
	}
	log.Printf("Connected to NATS server at %s", cfg.URL)
	return &Publisher{nc: nc, subject: cfg.Subject}, nil
}

// Send serializes one event and publishes it to the configured subject.
func (p *Publisher) Send(e model.Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	return p.nc.Publish(p.subject, data)
}

// Close drains and closes the NATS connection.
func (p *Publisher) Close() {
	if p.nc != nil {
		p.nc.Drain()
		log.Println("NATS connection drained and closed.")
	}
}
