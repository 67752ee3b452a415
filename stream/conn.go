// Package stream abstracts the byte channel a REPL session runs over.
// The session only needs single-byte reads, writes, and a raw/cooked
// mode toggle; everything below that (UART framing, TCP, a pty) lives
// in the implementations.
package stream

import (
	"context"
	"errors"
)

// Conventional ASCII control codes interpreted by the session protocol.
const (
	CtrlA byte = 1 // enter raw REPL / raw-paste negotiation prefix
	CtrlB byte = 2 // exit raw REPL
	CtrlC byte = 3 // interrupt / cancel
	CtrlD byte = 4 // end of entry / soft-reset signal
	CtrlE byte = 5 // enter paste mode
)

var (
	// ErrClosed is returned once the underlying channel is gone for good.
	ErrClosed = errors.New("stream: closed")

	// ErrBadByte flags a single unusable byte on a live link (e.g. a
	// glitch during USB CDC reconnect). Callers skip it and keep reading.
	ErrBadByte = errors.New("stream: bad byte")
)

// Conn is one byte channel shared by a session.
type Conn interface {
	// ReadByte blocks until a byte arrives, the context is cancelled,
	// or the stream closes.
	ReadByte(ctx context.Context) (byte, error)

	Write(p []byte) (int, error)

	// SetRaw toggles raw (character-at-a-time) mode. Implementations
	// without a terminal discipline treat this as a no-op.
	SetRaw(raw bool)
}
