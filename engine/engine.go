// Package engine turns one submitted snippet into a runnable unit and
// runs it: directly for plain snippets, or as a concurrent task raced
// against an interrupt watcher for snippets containing await.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/drake/quill/stream"
)

// Value is a snippet result in host terms. nil means "no value"
// (statements, or an expression that produced nothing).
type Value any

// OutcomeKind tags the result of executing one snippet.
type OutcomeKind int

const (
	Completed OutcomeKind = iota
	Cancelled
	Failed
)

// Outcome is the result of executing one snippet.
type Outcome struct {
	Kind  OutcomeKind
	Value Value // Completed only
	Err   error // Failed only
}

// ErrNotExpression is returned by Evaluator.Eval when the snippet does
// not compile as a standalone expression; the engine then falls back
// to statement execution.
var ErrNotExpression = errors.New("engine: not an expression")

// Evaluator is the compile-and-run primitive snippets execute against.
// The namespace snippets mutate belongs to the evaluator; only one
// snippet runs at a time, by construction of the session loop.
type Evaluator interface {
	// Eval evaluates src as a single expression.
	Eval(ctx context.Context, src string) (Value, error)

	// Exec runs src with statement semantics.
	Exec(ctx context.Context, src string) (Value, error)

	// ExecTask runs a classified snippet as a cancellable task body.
	ExecTask(ctx context.Context, req Request) (Value, error)
}

// Engine binds an evaluator to an interrupt controller.
type Engine struct {
	ev   Evaluator
	intr *Interrupt
}

// New creates an engine. intr may be shared with the host so external
// interrupt sources (SIGINT, a control channel) reach running snippets.
func New(ev Evaluator, intr *Interrupt) *Engine {
	if intr == nil {
		intr = &Interrupt{}
	}
	return &Engine{ev: ev, intr: intr}
}

// Execute runs one snippet and reports its outcome. It never panics
// through to the caller; a misbehaving evaluator becomes Failed, so
// one bad snippet cannot terminate the session.
func (e *Engine) Execute(ctx context.Context, src string, conn stream.Conn) (out Outcome) {
	if strings.TrimSpace(src) == "" {
		return Outcome{Kind: Completed}
	}

	defer func() {
		if r := recover(); r != nil {
			out = Outcome{Kind: Failed, Err: fmt.Errorf("engine: evaluator panic: %v", r)}
		}
	}()

	if !strings.Contains(src, "await ") {
		return e.runSync(ctx, src)
	}
	return e.runTask(ctx, Classify(src), conn)
}

// ExecDirect runs src with plain statement semantics and no interrupt
// watcher. The raw REPL uses this: it owns the stream exclusively, so
// there is nothing to race against.
func (e *Engine) ExecDirect(ctx context.Context, src string) (Value, error) {
	return e.ev.Exec(ctx, src)
}

// Interrupt returns the engine's interrupt controller.
func (e *Engine) Interrupt() *Interrupt {
	return e.intr
}

// runSync executes a snippet with no await: expression first, then the
// statement fallback. Interrupt delivery is enabled only while the
// snippet runs and restored on every exit path.
func (e *Engine) runSync(ctx context.Context, src string) Outcome {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	e.intr.arm(cancel)
	e.intr.SetEnabled(true)
	defer func() {
		e.intr.SetEnabled(false)
		e.intr.arm(nil)
	}()

	v, err := e.ev.Eval(runCtx, src)
	if errors.Is(err, ErrNotExpression) {
		v, err = e.ev.Exec(runCtx, src)
	}
	return e.outcome(runCtx, v, err)
}

// runTask executes an await-bearing snippet as a task, concurrently
// with a watcher that reads the stream for Ctrl-C. Both are started
// before either is awaited, so an interrupt byte that arrives before
// the task's first suspension point is still observed. The loser's
// cancellation is awaited before returning; nothing is left running.
func (e *Engine) runTask(ctx context.Context, req Request, conn stream.Conn) Outcome {
	execCtx, cancelExec := context.WithCancel(ctx)
	watchCtx, cancelWatch := context.WithCancel(ctx)
	defer cancelExec()

	done := make(chan Outcome, 1)
	go func() {
		// The recover in Execute cannot reach this goroutine; a panic
		// here must become a Failed outcome the same way.
		defer func() {
			if r := recover(); r != nil {
				done <- Outcome{Kind: Failed, Err: fmt.Errorf("engine: evaluator panic: %v", r)}
			}
		}()
		v, err := e.ev.ExecTask(execCtx, req)
		done <- e.outcome(execCtx, v, err)
	}()

	watchDone := make(chan struct{})
	go func() {
		defer close(watchDone)
		for {
			b, err := conn.ReadByte(watchCtx)
			if err != nil {
				if errors.Is(err, stream.ErrBadByte) {
					continue
				}
				return
			}
			if b == stream.CtrlC {
				cancelExec()
				return
			}
		}
	}()

	out := <-done
	cancelWatch()
	<-watchDone
	return out
}

// outcome maps an evaluator result onto the taxonomy. A cancellation
// surfaced from the snippet itself is Cancelled, not Failed.
func (e *Engine) outcome(runCtx context.Context, v Value, err error) Outcome {
	switch {
	case err == nil:
		return Outcome{Kind: Completed, Value: v}
	case errors.Is(err, context.Canceled) || runCtx.Err() != nil:
		return Outcome{Kind: Cancelled}
	default:
		return Outcome{Kind: Failed, Err: err}
	}
}

// Repr renders a snippet result the way the REPL prints it.
func Repr(v Value) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return strconv.Quote(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}
