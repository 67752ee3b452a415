// Package readline implements the line editor a session borrows for
// input: prompt/echo handling, continuation detection, and a single
// save-slot so a nested session can reuse the same editor instance.
package readline

// Result is one completed line-editing pass.
type Result struct {
	Line string
	// Term is the control code that ended input, or 0 when the line
	// completed normally (Enter).
	Term byte
}

// Editor is consumed by the session one byte at a time.
type Editor interface {
	// Init starts a fresh pass, printing the primary prompt. ps2 is
	// echoed for continuation lines.
	Init(ps1, ps2 string)

	// ProcessChar consumes one byte. done reports whether the pass
	// finished; until then the result is meaningless.
	ProcessChar(c byte) (res Result, done bool)

	// Push saves the in-progress editing context so a nested session
	// can take over the editor. It reports false, saving nothing, if
	// the slot is already occupied.
	Push() bool

	// Pop restores the previously saved context. No-op if nothing was
	// saved.
	Pop()
}
