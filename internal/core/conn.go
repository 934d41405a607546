package core

import (
	"errors"
	"sync"

	"github.com/gorilla/websocket"
)

// Frame is a serialized wire message.
type Frame = []byte

var (
	ErrBackpressure = errors.New("backpressure")
	ErrConnClosed   = errors.New("connection closed")
)

// Conn wraps a websocket with a buffered outbound queue. Writes go through
// TrySend so a slow reader fails fast instead of stalling a broadcast pass.
type Conn struct {
	ws   *websocket.Conn
	send chan Frame

	mu     sync.RWMutex
	closed bool
}

func NewConn(ws *websocket.Conn, buffer int) *Conn {
	return &Conn{
		ws:   ws,
		send: make(chan Frame, buffer),
	}
}

func (c *Conn) TrySend(f Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrConnClosed
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *Conn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.ws.Close()
	c.mu.Unlock()
}
