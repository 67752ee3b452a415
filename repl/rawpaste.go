package repl

import (
	"bytes"
	"context"
	"errors"
	"io"

	"github.com/drake/quill/stream"
)

// rawPaste receives one bulk upload under windowed flow control.
//
// The receiver announces support and its window, then accepts at most
// window bytes between the continuation signals it emits, so its
// buffering stays O(window) no matter how large the payload is. The
// sender budgets purely off those continuation bytes.
//
// Ctrl-D ends the transfer cleanly (acknowledged with Ctrl-D);
// Ctrl-C aborts it (also acknowledged, then errPasteAborted; no
// partial result is usable).
func (s *Session) rawPaste(ctx context.Context, window int) ([]byte, error) {
	// Acceptance header: 'R', capability-supported marker, window as
	// little-endian uint16, trailing 0x01.
	s.conn.Write([]byte{'R', 0x01, byte(window & 0xff), byte(window >> 8), 0x01})

	var chunks bytes.Buffer
	buf := make([]byte, window)
	for {
		idx := 0
		for idx < window {
			c, err := s.conn.ReadByte(ctx)
			if err != nil {
				if errors.Is(err, stream.ErrBadByte) {
					// Skip the garbage byte, retry the same index.
					continue
				}
				return nil, err
			}

			if c == stream.CtrlC || c == stream.CtrlD {
				s.conn.Write([]byte{stream.CtrlD})
				if c == stream.CtrlC {
					return nil, errPasteAborted
				}
				chunks.Write(buf[:idx])
				s.mu.Lock()
				s.stats.RawPasteBytes += uint64(chunks.Len())
				s.mu.Unlock()
				return chunks.Bytes(), nil
			}

			buf[idx] = c
			idx++
		}

		// Window drained: flush and tell the sender it may send
		// another full window.
		chunks.Write(buf)
		io.WriteString(s.conn, "\x01")
	}
}
