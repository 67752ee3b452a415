package repl

import (
	"bytes"
	"context"
	"errors"
	"io"

	"github.com/drake/quill/engine"
	"github.com/drake/quill/stream"
)

// rawRepl runs the tool-facing line protocol. It is deliberately a
// plain blocking loop: the session owns the stream exclusively for the
// whole transaction, because any interleaved writer would corrupt the
// framing automated clients depend on.
//
// Per entry: bytes accumulate until Ctrl-D submits them. Ctrl-C clears
// the entry, Ctrl-B exits, and Ctrl-A re-prints the banner (soft
// renegotiation) unless the entry so far is exactly Ctrl-E 'A', which
// invokes the raw-paste transport instead.
func (s *Session) rawRepl(ctx context.Context) error {
	io.WriteString(s.conn, rawHeading)

	for {
		var parts bytes.Buffer
		aborted := false
		io.WriteString(s.conn, ">")

	entry:
		for {
			c, err := s.conn.ReadByte(ctx)
			if err != nil {
				if errors.Is(err, stream.ErrBadByte) {
					continue
				}
				if errors.Is(err, stream.ErrClosed) {
					return nil
				}
				return err
			}

			switch c {
			case stream.CtrlA:
				rline := parts.String()
				parts.Reset()

				if len(rline) == 2 && rline[0] == stream.CtrlE && rline[1] == 'A' {
					data, err := s.rawPaste(ctx, s.opts.RawPasteWindow)
					if err != nil {
						if errors.Is(err, errPasteAborted) {
							// Transfer discarded; back to a fresh
							// entry without leaving raw mode.
							aborted = true
							break entry
						}
						return err
					}
					parts.Write(data)
					break entry
				}

				io.WriteString(s.conn, rawHeading)
				io.WriteString(s.conn, ">")

			case stream.CtrlB:
				io.WriteString(s.conn, "\n")
				return nil

			case stream.CtrlC:
				parts.Reset()

			case stream.CtrlD:
				// Acknowledge reception before executing.
				io.WriteString(s.conn, "OK")
				break entry

			default:
				// 8-bit clean: anything else is entry content.
				parts.WriteByte(c)
			}
		}

		if aborted {
			continue
		}

		line := parts.String()
		if line == "" {
			// Empty submission is the soft-reset request; it unwinds
			// the whole session, not just this loop.
			return ErrResetRequested
		}
		s.execRaw(ctx, line)
	}
}

// execRaw runs one raw-REPL submission with statement semantics and
// emits the completion framing: Ctrl-D delimits the result or the
// diagnostic on both sides so clients can split output unambiguously.
func (s *Session) execRaw(ctx context.Context, line string) {
	s.mu.Lock()
	s.stats.RawSubmissions++
	s.mu.Unlock()

	v, err := s.eng.ExecDirect(ctx, line)
	if err == nil {
		if v != nil {
			io.WriteString(s.conn, engine.Repr(v))
		}
		s.conn.Write([]byte{stream.CtrlD})
	} else {
		io.WriteString(s.conn, line)
		io.WriteString(s.conn, "\n")
		s.conn.Write([]byte{stream.CtrlD})
		io.WriteString(s.conn, err.Error())
		io.WriteString(s.conn, "\n")
	}
	s.conn.Write([]byte{stream.CtrlD})
}
