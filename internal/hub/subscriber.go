package hub

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	pongWait     = 60 * time.Second
	pingInterval = 54 * time.Second
	maxFrameSize = 512
)

// Subscriber pumps broadcast frames to one websocket peer. Frames queue in a
// bounded buffer between Deliver and the write pump so one slow peer cannot
// stall the broadcaster.
type Subscriber struct {
	conn         *websocket.Conn
	out          chan []byte
	done         chan struct{}
	once         sync.Once
	writeTimeout time.Duration
}

// NewSubscriber wraps an accepted websocket connection.
func NewSubscriber(conn *websocket.Conn, buffer int, writeTimeout time.Duration) *Subscriber {
	return &Subscriber{
		conn:         conn,
		out:          make(chan []byte, buffer),
		done:         make(chan struct{}),
		writeTimeout: writeTimeout,
	}
}

// Deliver queues one frame without blocking. A full buffer counts as a
// failed delivery: the peer is not keeping up.
func (s *Subscriber) Deliver(frame []byte) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.out <- frame:
		return true
	default:
		return false
	}
}

// Close makes Deliver fail, stops the pumps and closes the connection.
// Safe to call repeatedly from any goroutine.
func (s *Subscriber) Close() {
	s.once.Do(func() {
		close(s.done)
		s.conn.Close()
	})
}

// WritePump drains queued frames to the peer under the per-send write
// deadline and keeps the channel alive with periodic pings. It returns when
// the subscriber closes or a write fails.
func (s *Subscriber) WritePump() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case frame := <-s.out:
			s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
			if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-s.done:
			return
		}
	}
}

// ReadPump discards inbound frames; the read side exists only to answer
// pongs and to notice the peer going away. It returns on the first read
// error, including the peer's close frame.
func (s *Subscriber) ReadPump() {
	s.conn.SetReadLimit(maxFrameSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			return
		}
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
	}
}
