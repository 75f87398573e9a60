// Package interp implements the bytecode interpreter described in
// spec.md section 4.E: the frame stack, the dispatch loop, implicit
// conversions, call/return, try/catch unwinding, and the suspension
// points generators and async functions hang off of. Grounded on the
// teacher's internal/engine/interpreter: vmThread mirrors callEngine,
// Frame mirrors callFrame, and the panic-based trap propagation in
// dispatch.go mirrors the teacher's own use of Go panics for
// wasmruntime.Error (internal/wasmruntime) instead of threading an
// error return through every opcode case.
package interp

import (
	"github.com/octofhir/otter-vm/internal/jsgc"
	"github.com/octofhir/otter-vm/internal/jsobject"
	"github.com/octofhir/otter-vm/internal/jsvalue"
)

// heapCell is the "cell header" jsvalue.Value's doc comments refer to:
// the out-of-band record a Pointer Value's 48-bit payload indexes into,
// tying a jsgc.CellID to the concrete Go-side payload for that cell.
// Unlike the teacher's functionFromUintptr (which resurrects a Go
// pointer from a raw uintptr via unsafe, because wasm funcrefs really
// are machine addresses), a Value's pointer payload here is an opaque
// VM-internal handle, so an ordinary slice indirection gives the same
// O(1) resolution without unsafe.
type heapCell struct {
	kind jsvalue.CellKind
	gc   jsgc.CellID

	object   *jsobject.Object
	str      *jsvalue.JsString
	closure  *Closure
	promise  *Promise
	bigint   string // decimal digits, sign included
	typedArr *TypedArray
	arrayBuf *ArrayBuffer
	proxy    *jsobject.Proxy

	// symID/symDesc back a CellSymbol cell: spec.md section 4.F's
	// well-known symbols (fixed, process-stable ids) and ordinary
	// user-constructed Symbol() values share this representation, the
	// id alone carrying identity per spec.md's "compared by ID, not by
	// reference" rule.
	symID   uint64
	symDesc string
}

// Heap owns one thread's GC registry plus the handle table mapping
// Value pointer payloads to heapCells. One Heap per VmThread, matching
// spec.md section 4.B's "each thread/VM context owns exactly one GC
// registry".
type Heap struct {
	registry *jsgc.Registry
	cells    []heapCell // index 0 is reserved/unused so payload 0 is never a valid pointer

	// internedCells caches the heap cell for each interned string id,
	// so that two occurrences of the same string content (spec.md
	// section 4.A) share one cell and therefore compare === by
	// pointer, matching jsvalue.StrictEquals's doc comment.
	internedCells map[uint64]jsvalue.Value
}

func NewHeap(nowNanos func() int64) *Heap {
	return &Heap{
		registry:      jsgc.NewRegistry(nowNanos),
		cells:         make([]heapCell, 1, 256),
		internedCells: make(map[uint64]jsvalue.Value),
	}
}

func (h *Heap) Registry() *jsgc.Registry { return h.registry }

func (h *Heap) alloc(kind jsvalue.CellKind, size uintptr, trace func(push func(jsgc.CellID)), drop func()) (jsvalue.Value, *heapCell) {
	handle := uint64(len(h.cells))
	gcID := h.registry.Register(size, trace, func() {
		if drop != nil {
			drop()
		}
		// Clear the handle-table entry so a dangling Value held
		// somewhere in Go code resolves to "not a cell" instead of
		// resurrecting freed payload.
		h.cells[handle] = heapCell{}
	})
	h.cells = append(h.cells, heapCell{kind: kind, gc: gcID})
	return jsvalue.Pointer(handle), &h.cells[handle]
}

// resolve returns the heapCell a Value's pointer payload names, or nil
// if v is not a Pointer Value.
func (h *Heap) resolve(v jsvalue.Value) *heapCell {
	addr, ok := v.AsPointer()
	if !ok || addr == 0 || int(addr) >= len(h.cells) {
		return nil
	}
	return &h.cells[addr]
}

func (h *Heap) Kind(v jsvalue.Value) (jsvalue.CellKind, bool) {
	c := h.resolve(v)
	if c == nil {
		return 0, false
	}
	return c.kind, true
}

// NewObject allocates an ordinary object cell with the given prototype.
func (h *Heap) NewObject(graph *jsobject.Graph, proto *jsobject.Object) jsvalue.Value {
	obj := jsobject.New(graph, proto)
	v, cell := h.alloc(jsvalue.CellObject, unsafeObjectSize, func(push func(jsgc.CellID)) { h.traceObject(obj, push) }, nil)
	cell.object = obj
	return v
}

// AdoptObject wraps an already-constructed *jsobject.Object in a heap
// cell, idempotently: the intrinsics bootstrap builds its prototype
// graph as bare objects first (the two-stage allocate/wire protocol)
// and adopts each one so it has a Value identity and a registry cell.
// An intrinsic-marked object's cell is registered as intrinsic,
// giving it the teardown protection spec.md's invariant I3 requires.
func (h *Heap) AdoptObject(o *jsobject.Object) jsvalue.Value {
	if v := h.valueForObject(o); !v.IsUndefined() {
		return v
	}
	v, cell := h.alloc(jsvalue.CellObject, unsafeObjectSize, func(push func(jsgc.CellID)) { h.traceObject(o, push) }, nil)
	cell.object = o
	if o.IsIntrinsic() {
		h.registry.MarkIntrinsic(cell.gc)
	}
	return v
}

// NewArray allocates an array-exotic object cell.
func (h *Heap) NewArray(graph *jsobject.Graph, proto *jsobject.Object) jsvalue.Value {
	obj := jsobject.New(graph, proto)
	obj.MarkAsArray()
	v, cell := h.alloc(jsvalue.CellArray, unsafeObjectSize, func(push func(jsgc.CellID)) { h.traceObject(obj, push) }, nil)
	cell.object = obj
	return v
}

// NewStringCell boxes a string into a heap cell. Every string Value in
// this engine is such a cell: VmThread.stringValue reaches this through
// InternedValue, which shares one cell per distinct content.
func (h *Heap) NewStringCell(s string) jsvalue.Value {
	js := jsvalue.NewJsString(s)
	v, cell := h.alloc(jsvalue.CellString, uintptr(js.Len()*2), nil, nil)
	cell.str = js
	return v
}

// InternedValue returns the shared heap-cell Value for s's content,
// allocating it on first sight.
func (h *Heap) InternedValue(s string) jsvalue.Value {
	id := jsvalue.Intern(s)
	if v, ok := h.internedCells[id]; ok {
		return v
	}
	v := h.NewStringCell(s)
	h.internedCells[id] = v
	return v
}

func (h *Heap) NewClosure(c *Closure) jsvalue.Value {
	v, cell := h.alloc(jsvalue.CellFunction, unsafeObjectSize, func(push func(jsgc.CellID)) { h.traceClosure(c, push) }, nil)
	cell.closure = c
	return v
}

func (h *Heap) NewPromise(p *Promise) jsvalue.Value {
	// The settled value (or rejection reason) is the promise's one
	// outgoing reference; pending reaction closures are rooted via
	// VmThread's pin mechanism instead.
	v, cell := h.alloc(jsvalue.CellPromise, unsafeObjectSize, func(push func(jsgc.CellID)) { h.traceValue(p.Value, push) }, nil)
	cell.promise = p
	return v
}

func (h *Heap) NewBigInt(digits string) jsvalue.Value {
	v, cell := h.alloc(jsvalue.CellBigInt, uintptr(len(digits)), nil, nil)
	cell.bigint = digits
	return v
}

// NewSymbol allocates a Symbol cell with a fixed id. Callers that need
// a stable well-known-symbol identity (internal/intrinsics) pass the
// same id across every realm; ordinary `Symbol(desc)` calls pass a
// freshly minted id instead (spec.md section 4.F).
func (h *Heap) NewSymbol(id uint64, desc string) jsvalue.Value {
	v, cell := h.alloc(jsvalue.CellSymbol, 16, nil, nil)
	cell.symID, cell.symDesc = id, desc
	return v
}

func (h *Heap) Symbol(v jsvalue.Value) (id uint64, desc string, ok bool) {
	c := h.resolve(v)
	if c == nil || c.kind != jsvalue.CellSymbol {
		return 0, "", false
	}
	return c.symID, c.symDesc, true
}

// NewProxy allocates a Proxy cell wrapping target/handler (spec.md
// section 4.C).
func (h *Heap) NewProxy(p *jsobject.Proxy) jsvalue.Value {
	v, cell := h.alloc(jsvalue.CellProxy, unsafeObjectSize, func(push func(jsgc.CellID)) {
		if p.Target != nil {
			if id, ok := h.objectCellID(p.Target); ok {
				push(id)
			}
		}
		if p.Handler != nil {
			if id, ok := h.objectCellID(p.Handler); ok {
				push(id)
			}
		}
	}, nil)
	cell.proxy = p
	return v
}

func (h *Heap) Proxy(v jsvalue.Value) (*jsobject.Proxy, bool) {
	c := h.resolve(v)
	if c == nil || c.proxy == nil {
		return nil, false
	}
	return c.proxy, true
}

// NewArrayBuffer allocates a raw-bytes cell backing the ArrayBuffer
// intrinsic (spec.md section 9's ArrayBuffer/DataView/TypedArray
// trio).
func (h *Heap) NewArrayBuffer(buf *ArrayBuffer) jsvalue.Value {
	v, cell := h.alloc(jsvalue.CellArrayBuffer, uintptr(len(buf.Bytes)), nil, nil)
	cell.arrayBuf = buf
	return v
}

func (h *Heap) ArrayBuffer(v jsvalue.Value) (*ArrayBuffer, bool) {
	c := h.resolve(v)
	if c == nil || c.arrayBuf == nil {
		return nil, false
	}
	return c.arrayBuf, true
}

// NewTypedArray allocates a view cell over an already-allocated
// ArrayBuffer.
func (h *Heap) NewTypedArray(ta *TypedArray) jsvalue.Value {
	v, cell := h.alloc(jsvalue.CellTypedArray, unsafeObjectSize, nil, nil)
	cell.typedArr = ta
	return v
}

func (h *Heap) TypedArray(v jsvalue.Value) (*TypedArray, bool) {
	c := h.resolve(v)
	if c == nil || c.kind != jsvalue.CellTypedArray || c.typedArr == nil {
		return nil, false
	}
	return c.typedArr, true
}

// NewDataView allocates a DataView cell: the same offset/length-over-
// an-ArrayBuffer shape a TypedArray has, just addressed byte-by-byte
// with an explicit endianness per accessor call instead of a fixed
// element Kind, so it reuses the TypedArray struct (Kind left
// NotTypedArray) rather than a second parallel type.
func (h *Heap) NewDataView(dv *TypedArray) jsvalue.Value {
	v, cell := h.alloc(jsvalue.CellDataView, unsafeObjectSize, nil, nil)
	cell.typedArr = dv
	return v
}

func (h *Heap) DataView(v jsvalue.Value) (*TypedArray, bool) {
	c := h.resolve(v)
	if c == nil || c.kind != jsvalue.CellDataView || c.typedArr == nil {
		return nil, false
	}
	return c.typedArr, true
}

func (h *Heap) Object(v jsvalue.Value) (*jsobject.Object, bool) {
	c := h.resolve(v)
	if c == nil || c.object == nil {
		return nil, false
	}
	return c.object, true
}

func (h *Heap) String(v jsvalue.Value) (*jsvalue.JsString, bool) {
	c := h.resolve(v)
	if c == nil || c.str == nil {
		return nil, false
	}
	return c.str, true
}

func (h *Heap) Closure(v jsvalue.Value) (*Closure, bool) {
	c := h.resolve(v)
	if c == nil || c.closure == nil {
		return nil, false
	}
	return c.closure, true
}

func (h *Heap) Promise(v jsvalue.Value) (*Promise, bool) {
	c := h.resolve(v)
	if c == nil || c.promise == nil {
		return nil, false
	}
	return c.promise, true
}

func (h *Heap) BigInt(v jsvalue.Value) (string, bool) {
	c := h.resolve(v)
	if c == nil || c.bigint == "" {
		return "", false
	}
	return c.bigint, true
}

// unsafeObjectSize is the nominal byte cost charged to the GC
// threshold for a typical object-shaped cell; it need not be exact
// (spec.md section 4.B only requires a reasonable trigger signal).
const unsafeObjectSize = 64

func (h *Heap) traceObject(o *jsobject.Object, push func(jsgc.CellID)) {
	if proto := o.Prototype(); proto != nil {
		if id, ok := h.objectCellID(proto); ok {
			push(id)
		}
	}
	for _, k := range jsobject.Keys(o) {
		d, ok := jsobject.GetOwnPropertyDescriptor(o, k)
		if !ok {
			continue
		}
		if d.IsAccessor {
			h.traceValue(d.Getter, push)
			h.traceValue(d.Setter, push)
		} else {
			h.traceValue(d.Value, push)
		}
	}
}

func (h *Heap) traceClosure(c *Closure, push func(jsgc.CellID)) {
	for _, uv := range c.Upvalues {
		if uv != nil {
			h.traceValue(uv.Value, push)
		}
	}
	h.traceValue(c.This, push)
	h.traceValue(c.ClassPrototype, push)
	if c.HomeObject != nil {
		if id, ok := h.objectCellID(c.HomeObject); ok {
			push(id)
		}
	}
	if c.Statics != nil {
		h.traceObject(c.Statics, push)
	}
}

// CellID maps a Pointer Value to its registry cell, for root-set
// construction (VmThread.rootSet); ok is false for non-pointer
// values.
func (h *Heap) CellID(v jsvalue.Value) (jsgc.CellID, bool) {
	c := h.resolve(v)
	if c == nil {
		return 0, false
	}
	return c.gc, true
}

// closureCellID finds the CellID for an already-known *Closure, the
// same linear walk objectCellID does for objects, used to root each
// live frame's callee.
func (h *Heap) closureCellID(c *Closure) (jsgc.CellID, bool) {
	for i := 1; i < len(h.cells); i++ {
		if h.cells[i].closure == c {
			return h.cells[i].gc, true
		}
	}
	return 0, false
}

// InternedRoots returns the interned-string cells. Interned strings
// are shared by content across the whole thread (and their Values may
// be held in Go-side code between allocations), so they are GC roots
// rather than ordinary traced cells.
func (h *Heap) InternedRoots() []jsvalue.Value {
	out := make([]jsvalue.Value, 0, len(h.internedCells))
	for _, v := range h.internedCells {
		out = append(out, v)
	}
	return out
}

func (h *Heap) traceValue(v jsvalue.Value, push func(jsgc.CellID)) {
	if c := h.resolve(v); c != nil {
		push(c.gc)
	}
}

// ValueForObject is the exported form of valueForObject, for packages
// outside interp (internal/intrinsics) that receive a raw *jsobject.Object
// (e.g. via the prototype chain) and need a Value to hand back into the
// engine.
func (h *Heap) ValueForObject(o *jsobject.Object) jsvalue.Value { return h.valueForObject(o) }

// valueForObject reconstructs the Pointer Value for an already-known
// *jsobject.Object, the inverse of Heap.Object. Used where interp code
// is handed a raw *jsobject.Object by internal/jsobject (e.g. walking
// [[Prototype]]) and needs to hand a Value back to bytecode.
func (h *Heap) valueForObject(o *jsobject.Object) jsvalue.Value {
	for i := 1; i < len(h.cells); i++ {
		if h.cells[i].object == o {
			return jsvalue.Pointer(uint64(i))
		}
	}
	return jsvalue.Undefined
}

// objectCellID finds the CellID for an already-known *jsobject.Object.
// Linear in live cell count; acceptable because it is only used while
// tracing (rare relative to allocation/lookup), exactly as the
// teacher's own mark phase walks reference-holding structures rather
// than maintaining a reverse index.
func (h *Heap) objectCellID(o *jsobject.Object) (jsgc.CellID, bool) {
	for i := 1; i < len(h.cells); i++ {
		if h.cells[i].object == o {
			return h.cells[i].gc, true
		}
	}
	return 0, false
}
