package monitor

import (
	"context"
	"errors"
	"testing"
	"time"

	"netsentry/internal/model"
)

func TestCollector_EmitsUntilCancelled(t *testing.T) {
	// 1. Stub out enumeration with a canned snapshot
	cycles := make(chan model.ConnectionSnapshot, 16)
	c := NewCollector(5*time.Millisecond, func(snap model.ConnectionSnapshot) {
		cycles <- snap
	})
	c.snapshot = func() (model.ConnectionSnapshot, error) {
		return model.ConnectionSnapshot{
			Taken:       time.Now().UTC(),
			Connections: []model.Connection{{State: model.StateListen, Local: "0.0.0.0:22", Remote: model.EndpointUnknown, ExePath: "/usr/sbin/sshd"}},
		}, nil
	}

	// 2. Run and wait for a few cycles
	ctx, cancel := context.WithCancel(context.Background())
	errChan := make(chan error, 1)
	go func() {
		errChan <- c.Run(ctx)
	}()

	for i := 0; i < 3; i++ {
		select {
		case snap := <-cycles:
			if len(snap.Connections) != 1 {
				t.Errorf("Cycle %d: expected 1 connection, got %d", i, len(snap.Connections))
			}
		case <-time.After(500 * time.Millisecond):
			t.Fatalf("Timed out waiting for cycle %d", i)
		}
	}

	// 3. Cancellation is a clean exit
	cancel()
	select {
	case err := <-errChan:
		if err != nil {
			t.Errorf("Expected nil error on cancellation, got %v", err)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("Timed out waiting for Run to return")
	}
}

func TestCollector_FailsFastOnEnumerationError(t *testing.T) {
	boom := errors.New("proc table unreadable")
	c := NewCollector(time.Hour, func(model.ConnectionSnapshot) {
		t.Error("Emit must not run when enumeration fails")
	})
	c.snapshot = func() (model.ConnectionSnapshot, error) {
		return model.ConnectionSnapshot{}, boom
	}

	err := c.Run(context.Background())
	if !errors.Is(err, boom) {
		t.Errorf("Expected the enumeration error to surface, got %v", err)
	}
}
