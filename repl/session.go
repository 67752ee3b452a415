// Package repl implements the interactive command-session protocol:
// the Normal/paste/raw-REPL state machine over one byte stream, the
// raw-paste flow-control transport, and re-entrant nested sessions.
package repl

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/drake/quill/engine"
	"github.com/drake/quill/readline"
	"github.com/drake/quill/stream"
)

var (
	// ErrResetRequested unwinds the whole session: an automated client
	// submitted an empty raw-REPL entry, asking for a soft reset. The
	// host rebuilds the namespace and starts a fresh session.
	ErrResetRequested = errors.New("repl: soft reset requested")

	// ErrEditorBusy means the editor save-slot was already occupied;
	// a second nested session cannot proceed.
	ErrEditorBusy = errors.New("repl: editor slot busy")

	// errPasteAborted: Ctrl-C during a raw-paste transfer. The
	// transfer is discarded and the raw-REPL loop continues.
	errPasteAborted = errors.New("repl: raw paste aborted")
)

const (
	defaultPrompt     = ">>> "
	defaultContPrompt = "... "
	defaultWindow     = 512

	rawHeading  = "raw REPL; CTRL-B to exit\n"
	pasteBanner = "\r\npaste mode; Ctrl-C to cancel, Ctrl-D to finish\r\n=== "
)

// Options configures one session.
type Options struct {
	Prompt     string
	ContPrompt string

	// StopOnExit marks the top-level REPL: Ctrl-D signals the host
	// scheduler through Stop rather than just returning to a nesting
	// caller.
	StopOnExit bool

	// Stop is invoked on Ctrl-D when StopOnExit is set. Typically the
	// host's root context cancel.
	Stop func()

	// RawPasteWindow bounds receiver-side buffering during raw-paste
	// transfers.
	RawPasteWindow int
}

func (o *Options) applyDefaults() {
	if o.Prompt == "" {
		o.Prompt = defaultPrompt
	}
	if o.ContPrompt == "" {
		o.ContPrompt = defaultContPrompt
	}
	if o.RawPasteWindow <= 0 {
		o.RawPasteWindow = defaultWindow
	}
}

// Stats is a point-in-time snapshot of session activity.
type Stats struct {
	LinesExecuted  uint64
	RawSubmissions uint64
	RawPasteBytes  uint64
	Interrupts     uint64
}

// Session multiplexes one byte stream between line editing, the raw
// REPL protocol, and snippet execution. All fields that were ambient
// globals in older console firmwares (interrupt enable, raw mode, the
// readline save-slot) live on the injected collaborators, so nested
// sessions are testable in isolation.
type Session struct {
	conn stream.Conn
	ed   readline.Editor
	eng  *engine.Engine
	opts Options

	mu    sync.Mutex
	stats Stats
}

// NewSession wires a session. The editor must echo to the same conn.
func NewSession(conn stream.Conn, ed readline.Editor, eng *engine.Engine, opts Options) *Session {
	opts.applyDefaults()
	return &Session{conn: conn, ed: ed, eng: eng, opts: opts}
}

// Stats returns a snapshot of the session counters.
func (s *Session) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Run drives the session until the stream closes, Ctrl-D exits, or a
// soft reset is requested (returned as ErrResetRequested). All other
// effects are side effects on the stream and the namespace. The caller
// is expected to have put the stream in raw mode.
func (s *Session) Run(ctx context.Context) error {
	for {
		line, term, err := s.readLine(ctx)
		if err != nil {
			if errors.Is(err, stream.ErrClosed) {
				return nil
			}
			return err
		}

		switch term {
		case stream.CtrlA:
			s.conn.SetRaw(false)
			err := s.rawRepl(ctx)
			s.conn.SetRaw(true)
			if err != nil {
				return err
			}

		case stream.CtrlB, stream.CtrlC:
			// Swallowed in Normal mode; Ctrl-C only matters inside a
			// running execution.

		case stream.CtrlD:
			io.WriteString(s.conn, "\r\n")
			if s.opts.StopOnExit && s.opts.Stop != nil {
				s.opts.Stop()
			}
			return nil

		case stream.CtrlE:
			if err := s.pasteMode(ctx); err != nil {
				return err
			}

		default: // line complete
			if line == "" {
				continue
			}
			s.conn.SetRaw(false)
			s.execute(ctx, line)
			s.conn.SetRaw(true)
		}
	}
}

// readLine runs one full line-editing pass. Garbage bytes on the link
// are skipped, never fatal.
func (s *Session) readLine(ctx context.Context) (string, byte, error) {
	s.ed.Init(s.opts.Prompt, s.opts.ContPrompt)
	for {
		c, err := s.conn.ReadByte(ctx)
		if err != nil {
			if errors.Is(err, stream.ErrBadByte) {
				continue
			}
			return "", 0, err
		}
		if res, done := s.ed.ProcessChar(c); done {
			return res.Line, res.Term, nil
		}
	}
}

// pasteMode accumulates raw characters until Ctrl-D (execute) or
// Ctrl-C (discard), echoing progress including the === continuation
// marker after each newline.
func (s *Session) pasteMode(ctx context.Context) error {
	io.WriteString(s.conn, pasteBanner)

	var buf []byte
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
		case stream.CtrlC:
			io.WriteString(s.conn, "\r\n")
			return nil

		case stream.CtrlD:
			io.WriteString(s.conn, "\r\n")
			s.conn.SetRaw(false)
			s.execute(ctx, string(buf))
			s.conn.SetRaw(true)
			return nil

		default:
			buf = append(buf, c)
			if c == '\r' || c == '\n' {
				io.WriteString(s.conn, "\r\n=== ")
			} else {
				s.conn.Write([]byte{c})
			}
		}
	}
}

// execute submits one snippet and prints its result or diagnostic.
// Failures never unwind the session.
func (s *Session) execute(ctx context.Context, src string) {
	out := s.eng.Execute(ctx, src, s.conn)

	s.mu.Lock()
	s.stats.LinesExecuted++
	if out.Kind == engine.Cancelled {
		s.stats.Interrupts++
	}
	s.mu.Unlock()

	switch out.Kind {
	case engine.Completed:
		if out.Value != nil {
			io.WriteString(s.conn, engine.Repr(out.Value))
			io.WriteString(s.conn, "\n")
		}
	case engine.Failed:
		io.WriteString(s.conn, out.Err.Error())
		io.WriteString(s.conn, "\r\n")
	case engine.Cancelled:
		// Interrupted: no traceback, session continues.
	}
}

// Breakpoint runs a nested session over the same stream, editor, and
// namespace. The outer session's in-progress line edit is saved to the
// editor slot and restored on every exit path, including errors.
func (s *Session) Breakpoint(ctx context.Context) error {
	intr := s.eng.Interrupt()

	intr.SetEnabled(false)
	if !s.ed.Push() {
		intr.SetEnabled(true)
		return ErrEditorBusy
	}
	s.conn.SetRaw(true)
	defer func() {
		s.conn.SetRaw(false)
		intr.SetEnabled(true)
		s.ed.Pop()
	}()

	opts := s.opts
	opts.StopOnExit = false
	nested := NewSession(s.conn, s.ed, s.eng, opts)
	return nested.Run(ctx)
}
