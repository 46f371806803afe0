package model

// Sender delivers one event to the hub on a best-effort basis.
// A returned error means the event was lost; callers log it and move on.
// Implementations must not retry or buffer.
type Sender interface {
	Send(e Event) error
}
