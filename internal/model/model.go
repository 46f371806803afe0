package model

import (
	"path/filepath"
	"time"
)

// ConnState is the TCP connection state retained by the monitor.
// Only established and listening sockets are reported.
type ConnState string

const (
	StateEstablished ConnState = "ESTABLISHED"
	StateListen      ConnState = "LISTEN"
)

// Label classifies an event as benign or anomalous.
type Label string

const (
	LabelNormal  Label = "Normal"
	LabelAnomaly Label = "Anomaly"
)

// EndpointUnknown is the placeholder for a socket endpoint the OS did not report.
const EndpointUnknown = "N/A"

// ExePathUnknown is the fallback executable path for a connection whose owning
// process could not be resolved.
const ExePathUnknown = "Unknown/System Process"

// Connection is one row of the joined connection/process view.
type Connection struct {
	PID     *int32
	State   ConnState
	Local   string
	Remote  string
	ExePath string
}

// ConnectionSnapshot is the result of a single enumeration cycle. It is a
// transient value, rebuilt from scratch every cycle and never persisted.
type ConnectionSnapshot struct {
	Taken       time.Time
	Connections []Connection
}

// Event is the unit transmitted to the hub and broadcast to subscribers.
// An Event is immutable after construction; Scored returns a new copy.
type Event struct {
	Host      string    `json:"host"`
	Timestamp time.Time `json:"timestamp"`
	Process   string    `json:"process"`
	PID       *int32    `json:"pid,omitempty"`
	Local     string    `json:"local"`
	Remote    string    `json:"remote"`
	Status    ConnState `json:"status"`
	ExePath   string    `json:"exe_path"`
	Label     Label     `json:"label"`
	Score     *float64  `json:"score"`
}

// NewEvent builds the wire record for one observed connection. The timestamp
// is taken once per polling cycle and shared by all of that cycle's events.
func NewEvent(host string, ts time.Time, c Connection) Event {
	name := ""
	if c.ExePath != "" {
		name = filepath.Base(c.ExePath)
	}
	return Event{
		Host:      host,
		Timestamp: ts,
		Process:   name,
		PID:       c.PID,
		Local:     c.Local,
		Remote:    c.Remote,
		Status:    c.State,
		ExePath:   c.ExePath,
		Label:     LabelNormal,
	}
}

// Scored returns a copy of the event carrying the given score and label.
func (e Event) Scored(score float64, label Label) Event {
	e.Score = &score
	e.Label = label
	return e
}

// FeatureVector is the 3-dimensional numeric view of a connection used for
// anomaly scoring: lifetime in seconds, packet size in bytes, TCP port.
type FeatureVector struct {
	Duration float64
	Size     float64
	Port     float64
}

// Values returns the vector in fixed feature order.
func (v FeatureVector) Values() [3]float64 {
	return [3]float64{v.Duration, v.Size, v.Port}
}
