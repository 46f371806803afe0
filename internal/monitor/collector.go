package monitor

import (
	"context"
	"fmt"
	"log"
	"time"

	"netsentry/internal/model"
)

// EmitFunc consumes one polling cycle's snapshot.
type EmitFunc func(model.ConnectionSnapshot)

// Collector drives the periodic enumerate and emit cycle. The loop is
// strictly sequential: enumeration and emission block it for their duration.
type Collector struct {
	interval time.Duration
	emit     EmitFunc
	snapshot func() (model.ConnectionSnapshot, error)
}

// NewCollector creates a collector polling at the given interval.
func NewCollector(interval time.Duration, emit EmitFunc) *Collector {
	return &Collector{
		interval: interval,
		emit:     emit,
		snapshot: Snapshot,
	}
}

// Run blocks until the context is cancelled or an enumeration cycle fails.
// A failed cycle terminates the loop with its error; cancellation returns
// nil. Per-event send failures are the emitter's business and never reach
// this loop.
func (c *Collector) Run(ctx context.Context) error {
	log.Printf("Collector started, polling every %s", c.interval)
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		snap, err := c.snapshot()
		if err != nil {
			return fmt.Errorf("enumeration cycle failed: %w", err)
		}
		c.emit(snap)

		select {
		case <-ctx.Done():
			log.Println("Collector stopped.")
			return nil
		case <-ticker.C:
		}
	}
}
