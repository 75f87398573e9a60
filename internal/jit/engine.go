package jit

import (
	"fmt"
	"sync"

	"github.com/octofhir/otter-vm/internal/bytecode"
	"github.com/octofhir/otter-vm/internal/logging"
)

// functionLabel gives a compile/bailout event something to name a
// function by without this package needing the constant pool's string
// table (Engine only ever sees a bare *bytecode.Function).
func functionLabel(fn *bytecode.Function) string {
	if fn.Name == bytecode.NoFeedback {
		return fmt.Sprintf("<anonymous@%p>", fn)
	}
	return fmt.Sprintf("fn#%d", fn.Name)
}

// HotnessThreshold is the per-function entry count that triggers
// compilation (default, tunable), the JIT analogue of internal/jsgc's
// heap-byte trigger threshold.
const HotnessThreshold = 1000

// CompiledFunction is one function's compiled entry, or the record of
// a declined compilation attempt. Mirrors the teacher's compiledModule
// entry per function index, narrowed to a single function since this
// package compiles one bytecode.Function at a time rather than a
// whole module up front.
type CompiledFunction struct {
	fn   *bytecode.Function
	code *executableBuffer

	mu        sync.Mutex
	attempted bool
}

// Ready reports whether fn has a native entry point to invoke.
func (cf *CompiledFunction) Ready() bool {
	return cf != nil && cf.code != nil
}

// Invoke calls the compiled entry with ctx, returning the raw NaN-boxed
// (or bailout-sentinel) result.
func (cf *CompiledFunction) Invoke(ctx *JitContext) (uint64, bool) {
	if !cf.Ready() {
		return 0, false
	}
	return cf.invokeNative(ctx)
}

// Engine owns the compiled-function cache for one VmThread, the direct
// analogue of the teacher's cranelift engine owning one vmContext's
// compiledModule set, narrowed from "compile a whole Wasm module ahead
// of time" to "compile individual hot functions on demand".
type Engine struct {
	mu    sync.Mutex
	funcs map[*bytecode.Function]*CompiledFunction

	listener logging.VmListener
}

func NewEngine() *Engine {
	return &Engine{funcs: make(map[*bytecode.Function]*CompiledFunction), listener: logging.NopListener{}}
}

// SetListener installs the VmListener this engine reports compile and
// bailout events to; passing nil restores the no-op default.
func (e *Engine) SetListener(l logging.VmListener) {
	if l == nil {
		l = logging.NopListener{}
	}
	e.mu.Lock()
	e.listener = l
	e.mu.Unlock()
}

// Bailout reports a compiled call falling back to the interpreter at
// pc, called by internal/interp's tryCompiledCall on the
// jit.BailoutSentinel path.
func (e *Engine) Bailout(fn *bytecode.Function, pc int) {
	e.listener.OnBailout(logging.BailoutEvent{FunctionName: functionLabel(fn), AtPC: pc})
}

// Lookup returns fn's CompiledFunction if one has already been
// produced (successfully or not), without attempting compilation.
func (e *Engine) Lookup(fn *bytecode.Function) (*CompiledFunction, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	cf, ok := e.funcs[fn]
	return cf, ok
}

// Compile attempts to produce a native entry for fn, memoizing the
// result (including a declined attempt, so callers never retry a
// function that the translator has already rejected). Safe to call
// repeatedly; only the first call per fn does any work.
func (e *Engine) Compile(fn *bytecode.Function) *CompiledFunction {
	e.mu.Lock()
	if cf, ok := e.funcs[fn]; ok {
		e.mu.Unlock()
		return cf
	}
	cf := &CompiledFunction{fn: fn}
	e.funcs[fn] = cf
	e.mu.Unlock()

	cf.mu.Lock()
	defer cf.mu.Unlock()
	if cf.attempted {
		return cf
	}
	cf.attempted = true

	code, err := translate(fn)
	if err != nil || len(code) == 0 {
		e.listener.OnJITCompile(logging.JITCompileEvent{FunctionName: functionLabel(fn), Compiled: false})
		return cf
	}
	buf, err := allocExecutable(code)
	if err != nil {
		e.listener.OnJITCompile(logging.JITCompileEvent{FunctionName: functionLabel(fn), Compiled: false})
		return cf
	}
	cf.code = buf
	e.listener.OnJITCompile(logging.JITCompileEvent{FunctionName: functionLabel(fn), Compiled: true})
	return cf
}

// Close releases every compiled function's executable mapping. Called
// once the owning VmThread (and therefore every Frame that might still
// reference compiled entries) has gone out of scope.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	var first error
	for _, cf := range e.funcs {
		if cf.code != nil {
			if err := cf.code.release(); err != nil && first == nil {
				first = err
			}
		}
	}
	return first
}
