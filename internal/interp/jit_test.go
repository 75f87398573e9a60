package interp

import (
	"runtime"
	"testing"

	"github.com/octofhir/otter-vm/internal/bytecode"
	"github.com/octofhir/otter-vm/internal/jit"
	"github.com/octofhir/otter-vm/internal/jsvalue"
)

// addFn compiles to r0=2; r1=3; r2=AddInt32(r0,r1); return r2 - a
// JIT-eligible function entirely within the amd64 translator's
// nativeSubset (internal/jit/translator_amd64.go), used to exercise
// spec.md section 4.G's "interpreter delegates to the compiled entry
// point on next call" policy end to end.
func addFn() *bytecode.Function {
	return &bytecode.Function{
		RegisterCount: 3,
		Instructions: []bytecode.Instruction{
			{Op: bytecode.OpLoadInt8, Dst: 0, JumpDelta: 2},
			{Op: bytecode.OpLoadInt8, Dst: 1, JumpDelta: 3},
			{Op: bytecode.OpAddInt32, Dst: 2, Src1: 0, Src2: 1},
			{Op: bytecode.OpReturn, Src1: 2},
		},
	}
}

func TestJITWarmupDelegatesToCompiledEntry(t *testing.T) {
	if runtime.GOARCH != "amd64" {
		t.Skip("native compilation is amd64-only")
	}
	thread := NewThread(nil)
	thread.EnableJIT(jit.NewEngine())
	defer thread.JIT.Close()

	fn := addFn()
	mod := &bytecode.Module{Functions: []*bytecode.Function{fn}}
	closure := thread.Heap.NewClosure(&Closure{Fn: fn, Module: mod})

	for i := 0; i < int(jit.HotnessThreshold)+5; i++ {
		result, err := thread.Call(closure, jsvalue.Undefined, nil, jsvalue.Undefined)
		if err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
		n, ok := result.AsNumber()
		if !ok || n != 5 {
			t.Fatalf("call %d: want 5, got %v (ok=%v)", i, n, ok)
		}
	}

	cf, found := thread.JIT.Lookup(fn)
	if !found || !cf.Ready() {
		t.Fatalf("expected fn to be compiled after warmup, found=%v ready=%v", found, cf.Ready())
	}
}

// addArgsFn compiles to r0=arg0; r1=arg1; r2=AddInt32(r0,r1); return
// r2 - JIT-eligible with its operands supplied by the caller, so the
// compiled entry's type guards and overflow check can be driven from
// outside.
func addArgsFn() *bytecode.Function {
	return &bytecode.Function{
		ParamCount:    2,
		LocalCount:    2,
		RegisterCount: 3,
		Instructions: []bytecode.Instruction{
			{Op: bytecode.OpGetLocal, Dst: 0, Src1: 0},
			{Op: bytecode.OpGetLocal, Dst: 1, Src1: 1},
			{Op: bytecode.OpAddInt32, Dst: 2, Src1: 0, Src2: 1, ICIndex: bytecode.NoFeedback},
			{Op: bytecode.OpReturn, Src1: 2},
		},
	}
}

// TestJITBailoutResumesInterpreter drives the bailout contract: for an
// input where the compiled fast path cannot produce the result (int32
// overflow, or a type-guard miss on a double operand), the sentinel
// path must hand control back to the interpreter at the recorded pc
// and still yield exactly the interpreted result.
func TestJITBailoutResumesInterpreter(t *testing.T) {
	if runtime.GOARCH != "amd64" {
		t.Skip("native compilation is amd64-only")
	}
	thread := NewThread(nil)
	thread.EnableJIT(jit.NewEngine())
	defer thread.JIT.Close()

	fn := addArgsFn()
	mod := &bytecode.Module{Functions: []*bytecode.Function{fn}}
	closure := thread.Heap.NewClosure(&Closure{Fn: fn, Module: mod})

	call := func(a, b jsvalue.Value) float64 {
		t.Helper()
		result, err := thread.Call(closure, jsvalue.Undefined, []jsvalue.Value{a, b}, jsvalue.Undefined)
		if err != nil {
			t.Fatalf("call: %v", err)
		}
		n, ok := result.AsNumber()
		if !ok {
			t.Fatalf("want number result, got kind %v", result.Kind())
		}
		return n
	}

	for i := 0; i < int(jit.HotnessThreshold)+5; i++ {
		if got := call(jsvalue.Int32(2), jsvalue.Int32(3)); got != 5 {
			t.Fatalf("warmup call %d: want 5, got %v", i, got)
		}
	}
	if cf, found := thread.JIT.Lookup(fn); !found || !cf.Ready() {
		t.Fatalf("expected fn compiled after warmup")
	}

	const maxInt32 = 1<<31 - 1
	if got, want := call(jsvalue.Int32(maxInt32), jsvalue.Int32(1)), float64(maxInt32)+1; got != want {
		t.Fatalf("overflow bailout: want %v, got %v", want, got)
	}
	if got := call(jsvalue.Number(2.5), jsvalue.Int32(1)); got != 3.5 {
		t.Fatalf("type-guard bailout: want 3.5, got %v", got)
	}
}

// TestJITCompiledCallDoesNotAllocate pins the no-allocation property:
// a compiled call that never takes the sentinel path leaves
// registry.TotalBytes untouched.
func TestJITCompiledCallDoesNotAllocate(t *testing.T) {
	if runtime.GOARCH != "amd64" {
		t.Skip("native compilation is amd64-only")
	}
	thread := NewThread(nil)
	thread.EnableJIT(jit.NewEngine())
	defer thread.JIT.Close()

	fn := addFn()
	mod := &bytecode.Module{Functions: []*bytecode.Function{fn}}
	closure := thread.Heap.NewClosure(&Closure{Fn: fn, Module: mod})
	for i := 0; i < int(jit.HotnessThreshold)+5; i++ {
		if _, err := thread.Call(closure, jsvalue.Undefined, nil, jsvalue.Undefined); err != nil {
			t.Fatalf("warmup call %d: %v", i, err)
		}
	}
	if cf, found := thread.JIT.Lookup(fn); !found || !cf.Ready() {
		t.Fatalf("expected fn compiled after warmup")
	}

	before := thread.Heap.Registry().TotalBytes()
	for i := 0; i < 100; i++ {
		if _, err := thread.Call(closure, jsvalue.Undefined, nil, jsvalue.Undefined); err != nil {
			t.Fatalf("compiled call %d: %v", i, err)
		}
	}
	if after := thread.Heap.Registry().TotalBytes(); after != before {
		t.Fatalf("compiled calls allocated: %d -> %d bytes", before, after)
	}
}

// TestJITDisabledNeverCompiles confirms a thread with no JIT engine
// attached always interprets, regardless of call count - the default
// posture for deterministic tests elsewhere in this package.
func TestJITDisabledNeverCompiles(t *testing.T) {
	thread := NewThread(nil)
	fn := addFn()
	mod := &bytecode.Module{Functions: []*bytecode.Function{fn}}
	closure := thread.Heap.NewClosure(&Closure{Fn: fn, Module: mod})

	for i := 0; i < int(jit.HotnessThreshold)+5; i++ {
		if _, err := thread.Call(closure, jsvalue.Undefined, nil, jsvalue.Undefined); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}
	if fn.HotnessCounter != 0 {
		t.Fatalf("hotness counter should not advance without a JIT engine attached, got %d", fn.HotnessCounter)
	}
}
