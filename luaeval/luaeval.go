// Package luaeval implements engine.Evaluator on an embedded Lua
// runtime. Expression evaluation compiles `return <src>` and falls
// back to statement execution, the usual Lua REPL idiom; execution is
// cancellable through the LState's context.
package luaeval

import (
	"context"
	"fmt"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"

	"github.com/drake/quill/engine"
)

const chunkName = "<stdin>"

// Evaluator owns one Lua state and its global namespace. Snippets run
// one at a time; the mutex is belt-and-braces against a misused host,
// not a concurrency feature.
type Evaluator struct {
	mu     sync.Mutex
	state  *lua.LState
	protos *lru.Cache[string, *lua.FunctionProto]
}

// New creates an evaluator with a compiled-chunk cache of the given
// size. Interactive sessions resubmit the same lines constantly
// (history replay, tooling retries), so caching pays for itself.
func New(cacheSize int) (*Evaluator, error) {
	if cacheSize <= 0 {
		cacheSize = 64
	}
	protos, err := lru.New[string, *lua.FunctionProto](cacheSize)
	if err != nil {
		return nil, err
	}
	return &Evaluator{
		state:  lua.NewState(),
		protos: protos,
	}, nil
}

// Close tears down the Lua state. The host calls this on soft reset to
// get a pristine namespace.
func (e *Evaluator) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state.Close()
}

// Eval evaluates src as a single expression.
func (e *Evaluator) Eval(ctx context.Context, src string) (engine.Value, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	proto, err := e.compile("return " + src)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", engine.ErrNotExpression, err)
	}
	return e.run(ctx, proto)
}

// Exec runs src with statement semantics. A chunk that happens to
// return a value still surfaces it, so `return x` bodies work.
func (e *Evaluator) Exec(ctx context.Context, src string) (engine.Value, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	proto, err := e.compile(src)
	if err != nil {
		return nil, err
	}
	return e.run(ctx, proto)
}

// ExecTask runs a classified await-bearing snippet. Lua needs no
// global declaration for req.DeclaredName: top-level assignments hit
// the globals table already, so only the return wrapping applies.
func (e *Evaluator) ExecTask(ctx context.Context, req engine.Request) (engine.Value, error) {
	src := req.Source
	if req.WrapReturn {
		src = "return " + src
	}
	return e.Exec(ctx, src)
}

// Global fetches a global by name, for host inspection and tests.
func (e *Evaluator) Global(name string) engine.Value {
	e.mu.Lock()
	defer e.mu.Unlock()
	return fromLua(e.state.GetGlobal(name))
}

func (e *Evaluator) compile(src string) (*lua.FunctionProto, error) {
	if proto, ok := e.protos.Get(src); ok {
		return proto, nil
	}

	chunk, err := parse.Parse(strings.NewReader(src), chunkName)
	if err != nil {
		return nil, err
	}
	proto, err := lua.Compile(chunk, chunkName)
	if err != nil {
		return nil, err
	}

	e.protos.Add(src, proto)
	return proto, nil
}

// run executes a compiled chunk under ctx. Caller holds e.mu.
func (e *Evaluator) run(ctx context.Context, proto *lua.FunctionProto) (engine.Value, error) {
	L := e.state
	if ctx != nil {
		L.SetContext(ctx)
		defer L.RemoveContext()
	}

	base := L.GetTop()
	L.Push(L.NewFunctionFromProto(proto))
	if err := L.PCall(0, lua.MultRet, nil); err != nil {
		L.SetTop(base)
		if ctx != nil && ctx.Err() != nil {
			// Interrupted mid-execution; report the cancellation,
			// not the Lua-level error it provoked.
			return nil, ctx.Err()
		}
		return nil, err
	}

	var v engine.Value
	if L.GetTop() > base {
		v = fromLua(L.Get(base + 1))
	}
	L.SetTop(base)
	return v, nil
}

// fromLua converts a Lua value to host terms. Tables and functions
// keep their printable form; nil means "no value" to the REPL.
func fromLua(v lua.LValue) engine.Value {
	switch v := v.(type) {
	case *lua.LNilType:
		return nil
	case lua.LBool:
		return bool(v)
	case lua.LNumber:
		return float64(v)
	case lua.LString:
		return string(v)
	default:
		return v.String()
	}
}
