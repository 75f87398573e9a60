package interp

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/octofhir/otter-vm/internal/interp/microtask"
	"github.com/octofhir/otter-vm/internal/jit"
	"github.com/octofhir/otter-vm/internal/jsgc"
	"github.com/octofhir/otter-vm/internal/jsobject"
	"github.com/octofhir/otter-vm/internal/jsvalue"
)

// VmThread is the per-thread execution context: one Heap (and
// therefore one GC registry), one shape graph, the global object, and
// a microtask queue. It is the direct analogue of the teacher's
// callEngine, generalized from a shared uint64 operand stack to a
// frame stack of register files, and extended with the heap/global/
// microtask state a JS engine needs that a Wasm interpreter does not.
// Never shared across goroutines, mirroring spec.md section 5's
// single-writer-per-thread discipline.
type VmThread struct {
	Heap        *Heap
	Graph       *jsobject.Graph
	Global      *jsobject.Object
	GlobalValue jsvalue.Value    // heap-cell Value wrapping Global, used as `this` for sloppy-mode top-level code
	Symbols     *jsobject.Object // not distinct today; placeholder root for well-known symbol registration by internal/intrinsics

	Microtasks *microtask.Queue

	// Intrinsic prototypes, wired by internal/intrinsics' bootstrap
	// (spec.md section 4.F); nil until then, in which case newly
	// created plain objects/arrays/functions simply have a nil
	// [[Prototype]] rather than %Object.prototype% etc.
	ObjectPrototype   *jsobject.Object
	ArrayPrototype    *jsobject.Object
	FunctionPrototype *jsobject.Object

	// ErrorFactory, once internal/intrinsics' bootstrap sets it,
	// replaces newErrorValue's bare-object fallback with real
	// Error-subclass construction (proper prototype chain, a `stack`
	// property, `instanceof TypeError` working, ...).
	ErrorFactory func(name, message string) jsvalue.Value

	// TypedArrayProtoOf/DataViewProto, once internal/intrinsics' bootstrap
	// sets them, resolve a TypedArray/DataView cell's prototype object so
	// getProperty's method fallback and instanceOf's chain walk can reach
	// %TypedArray%.prototype's (or a specific view's) methods without
	// interp importing intrinsics - the same ErrorFactory-style seam just
	// above, repeated for the one other built-in family whose instances
	// aren't CellObject cells with a real [[Prototype]] slot.
	TypedArrayProtoOf func(kind jsobject.TypedArrayKind) *jsobject.Object
	DataViewProto     func() *jsobject.Object

	// PromiseProtoObject is the same seam again for Promise cells, so
	// `p.then(...)` resolves against %Promise.prototype%.
	PromiseProtoObject func() *jsobject.Object

	frames []*Frame

	// pinned holds values reachable only from queued microtask jobs or
	// pending promise reactions - Go closures the tracer cannot see
	// into. Each pin group is released when its job/reaction runs.
	pinned map[uint64][]jsvalue.Value
	pinSeq uint64

	// coroFrames tracks suspended generator/async frames, whose
	// registers and locals live on a parked goroutine's stack rather
	// than on t.frames; they are roots until the coroutine finishes.
	coroFrames map[*Frame]struct{}

	// nativeDepth counts active native (Go-implemented) functions on
	// the call stack. Automatic collection is deferred while nonzero:
	// a native frame may hold cell references in Go locals the root
	// set cannot enumerate.
	nativeDepth int

	// interrupted is the shared atomic flag spec.md section 5's
	// cancellation model names; set from any goroutine via Interrupt,
	// consumed at dispatch safe points.
	interrupted int32

	// nowNanos backs both the GC registry's pause timing and
	// Temporal's clock seam; nil means "use real time" (internal/vm
	// wires this at construction, tests override it for determinism).
	nowNanos func() int64

	// JIT is this thread's baseline-compiler engine (internal/jit),
	// spec.md section 4.G. Nil disables JIT entirely (every call runs
	// interpreted), which is how tests that want deterministic
	// single-path execution construct a thread; internal/vm wires a
	// real *jit.Engine in by default.
	JIT *jit.Engine
}

// EnableJIT attaches e as this thread's baseline-compiler engine.
// Passing nil disables JIT for the thread (every call interprets).
func (t *VmThread) EnableJIT(e *jit.Engine) { t.JIT = e }

// Now returns the thread's clock reading in nanoseconds, the exported
// form of the nowNanos seam Date.now()/Temporal read (see the
// nowNanos field doc above); falls back to wall-clock time when no
// override was configured.
func (t *VmThread) Now() int64 {
	if t.nowNanos != nil {
		return t.nowNanos()
	}
	return time.Now().UnixNano()
}

// NewThread constructs a fresh VM thread with its own heap, shape
// graph and global object. Callers (internal/vm) are responsible for
// running the intrinsics bootstrap (internal/intrinsics) against the
// returned thread before executing user bytecode.
func NewThread(nowNanos func() int64) *VmThread {
	graph := jsobject.NewGraph()
	heap := NewHeap(nowNanos)
	t := &VmThread{
		Heap:       heap,
		Graph:      graph,
		Microtasks: microtask.NewQueue(),
		pinned:     make(map[uint64][]jsvalue.Value),
		coroFrames: make(map[*Frame]struct{}),
		nowNanos:   nowNanos,
	}
	t.GlobalValue = heap.NewObject(graph, nil)
	t.Global, _ = heap.Object(t.GlobalValue)
	t.Global.MarkIntrinsic()
	return t
}

// pin records vals as GC roots until the returned release func runs,
// bridging the gap where a value's only reference is a queued Go
// closure the tracer cannot inspect.
func (t *VmThread) pin(vals ...jsvalue.Value) func() {
	t.pinSeq++
	id := t.pinSeq
	t.pinned[id] = vals
	return func() { delete(t.pinned, id) }
}

// Interrupt requests cancellation from any goroutine (spec.md section
// 5): the dispatch loop observes the flag at back-edges and function
// entries and surfaces ErrInterrupted to the host.
func (t *VmThread) Interrupt() { atomic.StoreInt32(&t.interrupted, 1) }

// safePoint services the two asynchronous demands honored between
// instructions: an injected interrupt, and a GC threshold crossing.
func (t *VmThread) safePoint() {
	if atomic.LoadInt32(&t.interrupted) != 0 {
		atomic.StoreInt32(&t.interrupted, 0)
		panic(ErrInterrupted)
	}
	if t.nativeDepth == 0 && t.Heap.Registry().ShouldCollect() {
		t.CollectGarbage()
	}
}

// CollectGarbage runs a stop-the-world mark/sweep over this thread's
// registry with the root set spec.md section 4.B names: registers and
// locals across all live frames (including suspended coroutine
// frames), each frame's callee/this, the global object, interned
// strings, and values pinned by pending microtask jobs.
func (t *VmThread) CollectGarbage() jsgc.Stats {
	return t.Heap.Registry().Collect(t.rootSet())
}

func (t *VmThread) rootSet() jsgc.RootSet {
	var roots jsgc.RootSet
	add := func(v jsvalue.Value) {
		if id, ok := t.Heap.CellID(v); ok {
			roots = append(roots, id)
		}
	}
	addFrame := func(f *Frame) {
		for _, v := range f.registers {
			add(v)
		}
		for _, v := range f.locals {
			add(v)
		}
		for _, cell := range f.capturedLocals {
			add(cell.Value)
		}
		add(f.this)
		add(f.newTarget)
		if id, ok := t.Heap.closureCellID(f.closure); ok {
			roots = append(roots, id)
		}
	}

	add(t.GlobalValue)
	for _, f := range t.frames {
		addFrame(f)
	}
	for f := range t.coroFrames {
		addFrame(f)
	}
	for _, vals := range t.pinned {
		for _, v := range vals {
			add(v)
		}
	}
	for _, v := range t.Heap.InternedRoots() {
		add(v)
	}
	return roots
}

// pushFrame/popFrame maintain the call stack, enforcing
// callStackCeiling the same way the teacher bounds wasm recursion.
func (t *VmThread) pushFrame(f *Frame) {
	if len(t.frames) >= callStackCeiling {
		throwValue(t.newErrorValue("RangeError", ErrStackOverflow.Error()))
	}
	t.frames = append(t.frames, f)
}

func (t *VmThread) popFrame() {
	t.frames = t.frames[:len(t.frames)-1]
}

func (t *VmThread) currentFrame() *Frame {
	if len(t.frames) == 0 {
		return nil
	}
	return t.frames[len(t.frames)-1]
}

// newErrorValue builds a plain object tagged with name/message,
// standing in for a full Error-constructor intrinsic lookup when the
// interpreter itself needs to throw (stack overflow, TypeError on a
// bad call target, ...). internal/intrinsics overrides this with
// real Error subclass construction once bootstrapped; until then this
// keeps the interpreter self-contained and testable in isolation.
func (t *VmThread) newErrorValue(name, message string) jsvalue.Value {
	if t.ErrorFactory != nil {
		return t.ErrorFactory(name, message)
	}
	v := t.Heap.NewObject(t.Graph, nil)
	obj, _ := t.Heap.Object(v)
	_ = jsobject.DefineProperty(obj, jsobject.StringKey(jsvalue.Intern("name")), jsobject.PropertyDescriptor{
		Value: t.stringValue(name), Writable: true, Configurable: true,
	})
	_ = jsobject.DefineProperty(obj, jsobject.StringKey(jsvalue.Intern("message")), jsobject.PropertyDescriptor{
		Value: t.stringValue(message), Writable: true, Configurable: true,
	})
	return v
}

func (t *VmThread) throwTypeError(format string, args ...interface{}) {
	throwValue(t.newErrorValue("TypeError", fmt.Sprintf(format, args...)))
}

// NewErrorValue and Throw* are the exported seams internal/intrinsics
// (and any other package building native functions) use to construct
// and raise errors without reaching into interp's unexported helpers.
func (t *VmThread) NewErrorValue(name, message string) jsvalue.Value {
	return t.newErrorValue(name, message)
}

func (t *VmThread) Throw(name, message string) {
	throwValue(t.newErrorValue(name, message))
}

func (t *VmThread) ThrowTypeError(format string, args ...interface{}) {
	t.throwTypeError(format, args...)
}

func (t *VmThread) ThrowValue(v jsvalue.Value) { throwValue(v) }

// StringValue interns and boxes s, the exported form of stringValue.
func (t *VmThread) StringValue(s string) jsvalue.Value { return t.stringValue(s) }

// Call invokes callee(this, args), dispatching to a NativeFunc or
// running bytecode, per spec.md section 4.E's call/return contract.
// newTarget is Undefined for a plain call, or the constructor Value
// being new'd for OpConstruct.
func (t *VmThread) Call(callee jsvalue.Value, this jsvalue.Value, args []jsvalue.Value, newTarget jsvalue.Value) (result jsvalue.Value, err error) {
	defer recoverException(&err, &result)

	cl, ok := t.Heap.Closure(callee)
	if !ok {
		t.throwTypeError("value is not callable")
	}
	if cl.Native != nil {
		t.nativeDepth++
		defer func() { t.nativeDepth-- }()
		return cl.Native(t, this, args, newTarget)
	}

	effectiveThis := this
	if cl.IsArrow {
		effectiveThis = cl.This
	}

	if cl.Fn.Flags.Generator {
		return t.startGenerator(cl, effectiveThis, args, newTarget), nil
	}
	if cl.Fn.Flags.Async {
		return t.startAsync(cl, effectiveThis, args, newTarget), nil
	}

	frame := newFrame(cl, args, effectiveThis, newTarget)
	t.pushFrame(frame)
	defer t.popFrame()

	if t.JIT != nil && cl.Fn.JITEligible() {
		if v, done := t.tryCompiledCall(cl.Fn, frame); done {
			return v, nil
		}
	}
	return t.run(frame), nil
}

// callFunc adapts Call to jsobject.CallFunc's signature for property
// accessor invocation (getters/setters) inside internal/jsobject.
func (t *VmThread) callFunc() jsobject.CallFunc {
	return func(callee, this jsvalue.Value, args []jsvalue.Value) (jsvalue.Value, error) {
		return t.Call(callee, this, args, jsvalue.Undefined)
	}
}

// CallFunc exports callFunc for packages outside interp
// (internal/intrinsics) that call into internal/jsobject's Get/Set/
// ProxyGet/ProxySet helpers directly.
func (t *VmThread) CallFunc() jsobject.CallFunc { return t.callFunc() }

func (t *VmThread) stringValue(s string) jsvalue.Value {
	return t.Heap.InternedValue(s)
}
