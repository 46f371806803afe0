package hub

import (
	"testing"
	"time"
)

func TestSubscriber_DeliverBackpressure(t *testing.T) {
	// No pump is draining, so the bounded buffer fills and the subscriber
	// starts refusing frames instead of blocking the broadcaster.
	s := NewSubscriber(nil, 2, time.Second)

	if !s.Deliver([]byte("a")) || !s.Deliver([]byte("b")) {
		t.Fatal("Expected deliveries to succeed while the buffer has room")
	}
	if s.Deliver([]byte("c")) {
		t.Error("Expected delivery to fail once the buffer is full")
	}
}
