package stream

import (
	"bytes"
	"context"
	"sync"
)

type mockByte struct {
	b   byte
	bad bool
}

// Mock implements Conn for tests: scripted input, recorded output.
// It never closes the input channel implicitly, mirroring a live link
// that simply goes quiet.
type Mock struct {
	input chan mockByte
	done  chan struct{}
	once  sync.Once

	mu     sync.Mutex
	out    bytes.Buffer
	raw    bool
	rawOps []bool
}

// NewMock creates a mock stream with room for scripted input.
func NewMock() *Mock {
	return &Mock{
		input: make(chan mockByte, 4096),
		done:  make(chan struct{}),
	}
}

// Feed queues bytes for the session to read.
func (m *Mock) Feed(p []byte) {
	for _, b := range p {
		m.input <- mockByte{b: b}
	}
}

// FeedString queues a string of input.
func (m *Mock) FeedString(s string) {
	m.Feed([]byte(s))
}

// FeedBad queues one garbage byte; ReadByte reports it as ErrBadByte.
func (m *Mock) FeedBad() {
	m.input <- mockByte{bad: true}
}

// Close ends the stream; pending and future reads return ErrClosed
// once the scripted input is drained.
func (m *Mock) Close() {
	m.once.Do(func() { close(m.done) })
}

// ReadByte pops the next scripted byte.
func (m *Mock) ReadByte(ctx context.Context) (byte, error) {
	// Drain scripted input before honoring Close, so tests can script
	// a full exchange and then hang up.
	select {
	case mb := <-m.input:
		if mb.bad {
			return 0, ErrBadByte
		}
		return mb.b, nil
	default:
	}

	select {
	case mb := <-m.input:
		if mb.bad {
			return 0, ErrBadByte
		}
		return mb.b, nil
	case <-m.done:
		return 0, ErrClosed
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

func (m *Mock) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.out.Write(p)
}

// SetRaw records the transition for assertions.
func (m *Mock) SetRaw(raw bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.raw = raw
	m.rawOps = append(m.rawOps, raw)
}

// Raw reports the current mode.
func (m *Mock) Raw() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.raw
}

// RawOps returns the sequence of SetRaw calls seen so far.
func (m *Mock) RawOps() []bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]bool(nil), m.rawOps...)
}

// Output returns everything the session has written.
func (m *Mock) Output() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.out.Bytes()...)
}

// TakeOutput returns and clears the recorded output.
func (m *Mock) TakeOutput() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := append([]byte(nil), m.out.Bytes()...)
	m.out.Reset()
	return p
}
