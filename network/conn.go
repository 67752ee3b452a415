// Package network serves REPL sessions over TCP so tooling can drive
// a board-style console remotely.
package network

import (
	"context"
	"net"
	"sync"

	"github.com/drake/quill/internal/buffer"
	"github.com/drake/quill/stream"
)

// Conn adapts one net.Conn to stream.Conn. A reader goroutine feeds
// single bytes to ReadByte so it can honor context cancellation; a
// writer goroutine drains an unbounded buffer so the session never
// blocks on a slow client.
type Conn struct {
	nc    net.Conn
	bytes chan byte
	done  chan struct{}

	sendIn  chan<- []byte
	sendOut <-chan []byte

	mu     sync.Mutex
	closed bool
}

func newConn(nc net.Conn) *Conn {
	sendIn, sendOut := buffer.Unbounded[[]byte](64, 50000)
	c := &Conn{
		nc:      nc,
		bytes:   make(chan byte, 4096),
		done:    make(chan struct{}),
		sendIn:  sendIn,
		sendOut: sendOut,
	}
	go c.readerLoop()
	go c.writerLoop()
	return c
}

func (c *Conn) readerLoop() {
	buf := make([]byte, 4096)
	for {
		n, err := c.nc.Read(buf)
		for i := 0; i < n; i++ {
			select {
			case c.bytes <- buf[i]:
			case <-c.done:
				return
			}
		}
		if err != nil {
			c.Close()
			return
		}
	}
}

func (c *Conn) writerLoop() {
	for p := range c.sendOut {
		if _, err := c.nc.Write(p); err != nil {
			c.Close()
			return
		}
	}
}

// ReadByte returns the next byte from the client.
func (c *Conn) ReadByte(ctx context.Context) (byte, error) {
	// Drain buffered bytes even after the peer hung up, so a final
	// burst (submit + disconnect) is still processed in order.
	select {
	case b := <-c.bytes:
		return b, nil
	default:
	}

	select {
	case b := <-c.bytes:
		return b, nil
	case <-c.done:
		return 0, stream.ErrClosed
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// Write queues bytes for the client. The slice is copied; callers may
// reuse it.
func (c *Conn) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0, stream.ErrClosed
	}
	c.sendIn <- append([]byte(nil), p...)
	return len(p), nil
}

// SetRaw is a no-op: the line discipline lives on the client's side of
// the TCP link.
func (c *Conn) SetRaw(bool) {}

// Close tears the connection down once.
func (c *Conn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.done)
	close(c.sendIn)
	c.mu.Unlock()

	c.nc.Close()
}
