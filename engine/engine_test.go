package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/drake/quill/stream"
)

// fakeEvaluator scripts each primitive independently.
type fakeEvaluator struct {
	evalFn func(ctx context.Context, src string) (Value, error)
	execFn func(ctx context.Context, src string) (Value, error)
	taskFn func(ctx context.Context, req Request) (Value, error)
}

func (f *fakeEvaluator) Eval(ctx context.Context, src string) (Value, error) {
	return f.evalFn(ctx, src)
}

func (f *fakeEvaluator) Exec(ctx context.Context, src string) (Value, error) {
	return f.execFn(ctx, src)
}

func (f *fakeEvaluator) ExecTask(ctx context.Context, req Request) (Value, error) {
	return f.taskFn(ctx, req)
}

func TestExecuteBlank(t *testing.T) {
	eng := New(&fakeEvaluator{}, nil)
	out := eng.Execute(context.Background(), "   \t ", stream.NewMock())
	if out.Kind != Completed || out.Value != nil {
		t.Fatalf("blank snippet: got %+v, want empty Completed", out)
	}
}

func TestExecuteExpression(t *testing.T) {
	ev := &fakeEvaluator{
		evalFn: func(ctx context.Context, src string) (Value, error) {
			return 42, nil
		},
	}
	eng := New(ev, nil)

	out := eng.Execute(context.Background(), "6*7", stream.NewMock())
	if out.Kind != Completed {
		t.Fatalf("Kind = %v, want Completed", out.Kind)
	}
	if out.Value != 42 {
		t.Errorf("Value = %v, want 42", out.Value)
	}
}

func TestExecuteStatementFallback(t *testing.T) {
	var calls []string
	ev := &fakeEvaluator{
		evalFn: func(ctx context.Context, src string) (Value, error) {
			calls = append(calls, "eval")
			return nil, fmt.Errorf("%w: near '='", ErrNotExpression)
		},
		execFn: func(ctx context.Context, src string) (Value, error) {
			calls = append(calls, "exec")
			return nil, nil
		},
	}
	eng := New(ev, nil)

	out := eng.Execute(context.Background(), "x = 1", stream.NewMock())
	if out.Kind != Completed || out.Value != nil {
		t.Fatalf("got %+v, want empty Completed", out)
	}
	if len(calls) != 2 || calls[0] != "eval" || calls[1] != "exec" {
		t.Errorf("call order = %v, want [eval exec]", calls)
	}
}

func TestExecuteFailed(t *testing.T) {
	boom := errors.New("boom")
	ev := &fakeEvaluator{
		evalFn: func(ctx context.Context, src string) (Value, error) {
			return nil, boom
		},
	}
	eng := New(ev, nil)

	out := eng.Execute(context.Background(), "explode()", stream.NewMock())
	if out.Kind != Failed {
		t.Fatalf("Kind = %v, want Failed", out.Kind)
	}
	if !errors.Is(out.Err, boom) {
		t.Errorf("Err = %v, want boom", out.Err)
	}
}

func TestExecuteEvaluatorPanic(t *testing.T) {
	ev := &fakeEvaluator{
		evalFn: func(ctx context.Context, src string) (Value, error) {
			panic("evaluator bug")
		},
	}
	eng := New(ev, nil)

	out := eng.Execute(context.Background(), "anything", stream.NewMock())
	if out.Kind != Failed {
		t.Fatalf("Kind = %v, want Failed", out.Kind)
	}
}

// A panicking evaluator on the task path must also become Failed: the
// task runs in its own goroutine, out of reach of Execute's recover,
// and an escaped panic there would take down every session.
func TestExecuteTaskEvaluatorPanic(t *testing.T) {
	ev := &fakeEvaluator{
		taskFn: func(ctx context.Context, req Request) (Value, error) {
			panic("evaluator bug")
		},
	}
	eng := New(ev, nil)

	out := eng.Execute(context.Background(), "await boom()", stream.NewMock())
	if out.Kind != Failed {
		t.Fatalf("Kind = %v, want Failed", out.Kind)
	}
	if out.Err == nil {
		t.Fatal("Err = nil, want panic diagnostic")
	}
}

// An interrupt triggered while a synchronous snippet runs cancels it
// and surfaces as Cancelled, and delivery is switched off again after.
func TestInterruptDuringSync(t *testing.T) {
	intr := &Interrupt{}
	ev := &fakeEvaluator{
		evalFn: func(ctx context.Context, src string) (Value, error) {
			if !intr.Trigger() {
				t.Error("interrupt not deliverable during execution")
			}
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	eng := New(ev, intr)

	out := eng.Execute(context.Background(), "spin()", stream.NewMock())
	if out.Kind != Cancelled {
		t.Fatalf("Kind = %v, want Cancelled", out.Kind)
	}
	if intr.Enabled() {
		t.Error("interrupt delivery still enabled after execution")
	}
}

func TestInterruptOutsideExecutionDropped(t *testing.T) {
	intr := &Interrupt{}
	New(&fakeEvaluator{}, intr)

	if intr.Trigger() {
		t.Error("Trigger() delivered with no snippet running")
	}
}

// The race property of task execution: a Ctrl-C already queued on the
// stream before the task starts must still cancel it.
func TestTaskInterruptQueuedBeforeStart(t *testing.T) {
	ev := &fakeEvaluator{
		taskFn: func(ctx context.Context, req Request) (Value, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	eng := New(ev, nil)

	conn := stream.NewMock()
	conn.Feed([]byte{stream.CtrlC})

	out := eng.Execute(context.Background(), "await forever()", conn)
	if out.Kind != Cancelled {
		t.Fatalf("Kind = %v, want Cancelled", out.Kind)
	}
}

// The watcher skips garbage and non-interrupt bytes.
func TestTaskWatcherIgnoresOtherBytes(t *testing.T) {
	ev := &fakeEvaluator{
		taskFn: func(ctx context.Context, req Request) (Value, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	eng := New(ev, nil)

	conn := stream.NewMock()
	conn.FeedString("zz")
	conn.FeedBad()
	conn.Feed([]byte{stream.CtrlC})

	out := eng.Execute(context.Background(), "await forever()", conn)
	if out.Kind != Cancelled {
		t.Fatalf("Kind = %v, want Cancelled", out.Kind)
	}
}

// When the task wins the race, Execute returns its value and the
// watcher is shut down before returning, leaving nothing reading the
// stream.
func TestTaskCompletionStopsWatcher(t *testing.T) {
	ev := &fakeEvaluator{
		taskFn: func(ctx context.Context, req Request) (Value, error) {
			return "done", nil
		},
	}
	eng := New(ev, nil)

	conn := stream.NewMock()
	out := eng.Execute(context.Background(), "await quick()", conn)
	if out.Kind != Completed || out.Value != "done" {
		t.Fatalf("got %+v, want Completed %q", out, "done")
	}

	// The watcher is gone: a byte fed now is still there for the next
	// reader instead of being consumed.
	conn.Feed([]byte{'q'})
	b, err := conn.ReadByte(context.Background())
	if err != nil || b != 'q' {
		t.Errorf("ReadByte = %q, %v; watcher still consuming the stream?", b, err)
	}
}

func TestTaskClassificationReachesEvaluator(t *testing.T) {
	var got Request
	ev := &fakeEvaluator{
		taskFn: func(ctx context.Context, req Request) (Value, error) {
			got = req
			return nil, nil
		},
	}
	eng := New(ev, nil)

	eng.Execute(context.Background(), "x = await f()", stream.NewMock())
	if got.DeclaredName != "x" || got.WrapReturn {
		t.Errorf("Request = %+v, want DeclaredName x", got)
	}
}

func TestRepr(t *testing.T) {
	tests := []struct {
		v    Value
		want string
	}{
		{nil, ""},
		{"hi", `"hi"`},
		{42, "42"},
		{3.5, "3.5"},
		{true, "true"},
	}
	for _, tt := range tests {
		if got := Repr(tt.v); got != tt.want {
			t.Errorf("Repr(%v) = %q, want %q", tt.v, got, tt.want)
		}
	}
}
