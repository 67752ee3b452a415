package readline

import (
	"io"
	"strings"

	"github.com/drake/quill/stream"
)

// LineEditor is the production Editor. It echoes what it consumes,
// handles backspace, and detects multi-line continuation: unbalanced
// brackets, a trailing backslash, or an open block (a line ending in
// ':', closed by an empty line).
type LineEditor struct {
	out io.Writer

	ps1, ps2 string
	buf      []byte // accumulated logical line, may span physical lines
	line     []byte // current physical line
	block    bool

	saved *editorState
}

type editorState struct {
	ps1, ps2 string
	buf      []byte
	line     []byte
	block    bool
}

// NewLineEditor echoes to out, normally the session's own stream.
func NewLineEditor(out io.Writer) *LineEditor {
	return &LineEditor{out: out}
}

// Init starts a fresh pass and prints the primary prompt.
func (e *LineEditor) Init(ps1, ps2 string) {
	e.ps1 = ps1
	e.ps2 = ps2
	e.buf = e.buf[:0]
	e.line = e.line[:0]
	e.block = false
	io.WriteString(e.out, ps1)
}

// ProcessChar consumes one byte of input.
func (e *LineEditor) ProcessChar(c byte) (Result, bool) {
	switch c {
	case stream.CtrlC:
		// Always terminates; the partial line is discarded.
		io.WriteString(e.out, "\r\n")
		return Result{Term: stream.CtrlC}, true

	case stream.CtrlA, stream.CtrlB, stream.CtrlD, stream.CtrlE:
		// Mode switches only fire on an empty entry; mid-line they
		// are swallowed.
		if len(e.buf) == 0 && len(e.line) == 0 {
			return Result{Term: c}, true
		}
		return Result{}, false

	case '\r', '\n':
		e.buf = append(e.buf, e.line...)
		if e.needMore() {
			e.buf = append(e.buf, '\n')
			e.line = e.line[:0]
			io.WriteString(e.out, "\r\n")
			io.WriteString(e.out, e.ps2)
			return Result{}, false
		}
		io.WriteString(e.out, "\r\n")
		line := string(e.buf)
		e.buf = e.buf[:0]
		e.line = e.line[:0]
		return Result{Line: line}, true

	case 8, 127: // BS / DEL
		if len(e.line) > 0 {
			e.line = e.line[:len(e.line)-1]
			io.WriteString(e.out, "\b \b")
		}
		return Result{}, false

	default:
		if c == '\t' || c >= 32 {
			e.line = append(e.line, c)
			e.out.Write([]byte{c})
		}
		return Result{}, false
	}
}

// needMore decides whether the just-entered physical line leaves the
// logical line unfinished. Called with e.line already folded into e.buf.
func (e *LineEditor) needMore() bool {
	phys := strings.TrimRight(string(e.line), " \t")

	if e.block {
		if phys == "" {
			e.block = false
		}
		return e.block || e.openBrackets() > 0
	}

	if strings.HasSuffix(phys, "\\") {
		return true
	}
	if strings.HasSuffix(phys, ":") {
		e.block = true
		return true
	}
	return e.openBrackets() > 0
}

// openBrackets counts unclosed ([{ across the whole buffer. It is a
// plain byte scan, the same tolerance-for-error tradeoff the snippet
// classifier makes.
func (e *LineEditor) openBrackets() int {
	depth := 0
	for _, c := range e.buf {
		switch c {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		}
	}
	return depth
}

// Push saves the current editing context into the single slot.
// A second Push without an intervening Pop fails and leaves the first
// saved context untouched.
func (e *LineEditor) Push() bool {
	if e.saved != nil {
		return false
	}
	e.saved = &editorState{
		ps1:   e.ps1,
		ps2:   e.ps2,
		buf:   append([]byte(nil), e.buf...),
		line:  append([]byte(nil), e.line...),
		block: e.block,
	}
	return true
}

// Pop restores the saved context, if any.
func (e *LineEditor) Pop() {
	if e.saved == nil {
		return
	}
	s := e.saved
	e.saved = nil
	e.ps1 = s.ps1
	e.ps2 = s.ps2
	e.buf = append(e.buf[:0], s.buf...)
	e.line = append(e.line[:0], s.line...)
	e.block = s.block
}
