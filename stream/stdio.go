package stream

import (
	"context"
	"os"
	"sync"

	"github.com/muesli/cancelreader"
	"golang.org/x/term"
)

// Stdio runs a session over the process's own terminal. A reader
// goroutine owns os.Stdin so ReadByte can honor context cancellation;
// cancelreader lets Close unblock it.
type Stdio struct {
	reader cancelreader.CancelReader
	bytes  chan byte
	done   chan struct{}

	mu       sync.Mutex
	rawState *term.State
	closed   bool
}

// NewStdio wraps stdin/stdout. The terminal starts in cooked mode.
func NewStdio() (*Stdio, error) {
	r, err := cancelreader.NewReader(os.Stdin)
	if err != nil {
		return nil, err
	}

	s := &Stdio{
		reader: r,
		bytes:  make(chan byte, 256),
		done:   make(chan struct{}),
	}
	go s.readerLoop()
	return s, nil
}

func (s *Stdio) readerLoop() {
	buf := make([]byte, 1)
	for {
		n, err := s.reader.Read(buf)
		if err != nil {
			close(s.done)
			return
		}
		if n == 0 {
			continue
		}
		select {
		case s.bytes <- buf[0]:
		case <-s.done:
			return
		}
	}
}

// ReadByte returns the next byte typed on the terminal.
func (s *Stdio) ReadByte(ctx context.Context) (byte, error) {
	select {
	case b := <-s.bytes:
		return b, nil
	case <-s.done:
		return 0, ErrClosed
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

func (s *Stdio) Write(p []byte) (int, error) {
	return os.Stdout.Write(p)
}

// SetRaw toggles the terminal line discipline. Redundant toggles are
// no-ops so nested sessions can flip the mode freely.
func (s *Stdio) SetRaw(raw bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if raw {
		if s.rawState != nil {
			return
		}
		st, err := term.MakeRaw(int(os.Stdin.Fd()))
		if err != nil {
			return
		}
		s.rawState = st
	} else {
		if s.rawState == nil {
			return
		}
		term.Restore(int(os.Stdin.Fd()), s.rawState)
		s.rawState = nil
	}
}

// Close restores the terminal and unblocks any pending read.
func (s *Stdio) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.SetRaw(false)
	s.reader.Cancel()
}
