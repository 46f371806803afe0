package hub

import "sync"

// Sink is one attached live subscriber as the registry sees it.
type Sink interface {
	// Deliver hands one serialized frame to the subscriber without blocking.
	// A false return means the subscriber is dead or too slow and must go.
	Deliver(frame []byte) bool
	// Close tears the subscriber down. Safe to call more than once.
	Close()
}

// Registry owns the live subscriber set. Add, Remove and Broadcast are its
// only mutations and all are safe for concurrent use. Nothing of the set
// leaks out, so a subscriber cannot be mutated mid-broadcast from outside.
type Registry struct {
	mu    sync.Mutex
	sinks map[Sink]struct{}
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{sinks: make(map[Sink]struct{})}
}

// Add attaches a subscriber.
func (r *Registry) Add(s Sink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sinks[s] = struct{}{}
}

// Remove detaches a subscriber and closes it. Removing a subscriber that is
// already gone is a no-op apart from the close.
func (r *Registry) Remove(s Sink) {
	r.mu.Lock()
	delete(r.sinks, s)
	r.mu.Unlock()
	s.Close()
}

// Len reports the number of attached subscribers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sinks)
}

// Broadcast delivers one frame to every subscriber attached at call time,
// removing any whose delivery fails. Delivery happens outside the lock, so
// a subscriber detaching concurrently simply fails its send. Returns the
// delivered and attempted counts.
func (r *Registry) Broadcast(frame []byte) (delivered, attempted int) {
	r.mu.Lock()
	targets := make([]Sink, 0, len(r.sinks))
	for s := range r.sinks {
		targets = append(targets, s)
	}
	r.mu.Unlock()

	for _, s := range targets {
		if s.Deliver(frame) {
			delivered++
		} else {
			r.Remove(s)
		}
	}
	return delivered, len(targets)
}
