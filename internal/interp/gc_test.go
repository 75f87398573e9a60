package interp

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/octofhir/otter-vm/internal/bytecode"
	"github.com/octofhir/otter-vm/internal/jsobject"
	"github.com/octofhir/otter-vm/internal/jsvalue"
)

// Two objects referencing each other through properties, with no
// frame, global or pin holding either: a collection must reclaim both
// cells despite the cycle.
func TestGCReclaimsUnreachableCycle(t *testing.T) {
	thread := NewThread(nil)
	baseline := thread.Heap.Registry().LiveCount()

	a := thread.Heap.NewObject(thread.Graph, nil)
	b := thread.Heap.NewObject(thread.Graph, nil)
	aObj, _ := thread.Heap.Object(a)
	bObj, _ := thread.Heap.Object(b)
	require.NoError(t, jsobject.DefineProperty(aObj, jsobject.StringKey(jsvalue.Intern("b")), jsobject.PropertyDescriptor{Value: b, Writable: true, Enumerable: true, Configurable: true}))
	require.NoError(t, jsobject.DefineProperty(bObj, jsobject.StringKey(jsvalue.Intern("a")), jsobject.PropertyDescriptor{Value: a, Writable: true, Enumerable: true, Configurable: true}))
	require.Equal(t, baseline+2, thread.Heap.Registry().LiveCount())

	stats := thread.CollectGarbage()
	require.Equal(t, uint64(2), stats.ReclaimedCells)
	require.Equal(t, baseline, thread.Heap.Registry().LiveCount())
}

// A value reachable only through the global object survives; the same
// value becomes garbage once the global property is deleted.
func TestGCRootsGlobalObject(t *testing.T) {
	thread := NewThread(nil)

	v := thread.Heap.NewObject(thread.Graph, nil)
	key := jsobject.StringKey(jsvalue.Intern("keep"))
	require.NoError(t, jsobject.DefineProperty(thread.Global, key, jsobject.PropertyDescriptor{Value: v, Writable: true, Enumerable: true, Configurable: true}))

	before := thread.Heap.Registry().LiveCount()
	thread.CollectGarbage()
	require.Equal(t, before, thread.Heap.Registry().LiveCount())

	_, err := jsobject.Delete(thread.Global, key)
	require.NoError(t, err)
	stats := thread.CollectGarbage()
	require.Equal(t, uint64(1), stats.ReclaimedCells)
}

func TestInterruptSurfacesAsHostError(t *testing.T) {
	thread := NewThread(nil)
	fn := &bytecode.Function{
		RegisterCount: 1,
		Instructions: []bytecode.Instruction{
			{Op: bytecode.OpNop},
			{Op: bytecode.OpJump, JumpDelta: -1},
		},
	}
	mod := &bytecode.Module{Functions: []*bytecode.Function{fn}}
	closure := thread.Heap.NewClosure(&Closure{Fn: fn, Module: mod})

	// The flag is honored at the function-entry safe point, so an
	// otherwise-infinite loop never starts.
	thread.Interrupt()
	_, err := thread.Call(closure, jsvalue.Undefined, nil, jsvalue.Undefined)
	require.ErrorIs(t, err, ErrInterrupted)

	// The flag is one-shot: the next call runs normally.
	ret := &bytecode.Function{Instructions: []bytecode.Instruction{{Op: bytecode.OpReturnUndefined}}}
	retClosure := thread.Heap.NewClosure(&Closure{Fn: ret, Module: &bytecode.Module{Functions: []*bytecode.Function{ret}}})
	_, err = thread.Call(retClosure, jsvalue.Undefined, nil, jsvalue.Undefined)
	require.NoError(t, err)
}

// An interrupt raised at a loop back-edge inside an active try region
// must not be catchable by user-level try/catch.
func TestInterruptSkipsTryHandlers(t *testing.T) {
	thread := NewThread(nil)

	irq := thread.Heap.NewClosure(&Closure{Native: func(t *VmThread, _ jsvalue.Value, _ []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		t.Interrupt()
		return jsvalue.Undefined, nil
	}})
	require.NoError(t, jsobject.DefineProperty(thread.Global, jsobject.StringKey(jsvalue.Intern("irq")), jsobject.PropertyDescriptor{Value: irq, Writable: true, Configurable: true}))

	var pool bytecode.Pool
	irqName := pool.Add(bytecode.Constant{Kind: bytecode.ConstString, String: "irq"})
	fn := &bytecode.Function{
		RegisterCount: 2,
		Instructions: []bytecode.Instruction{
			{Op: bytecode.OpTryStart, JumpDelta: 4}, // catch at pc 5
			{Op: bytecode.OpGetGlobal, Dst: 0, ConstIdx: irqName, ICIndex: bytecode.NoFeedback},
			{Op: bytecode.OpCall, Dst: 1, Src1: 0, Argc: 0},
			{Op: bytecode.OpJump, JumpDelta: -2}, // back-edge: flag observed here
			{Op: bytecode.OpTryEnd},
			{Op: bytecode.OpCatch, Dst: 0},
			{Op: bytecode.OpReturnUndefined},
		},
	}
	mod := &bytecode.Module{Constants: pool, Functions: []*bytecode.Function{fn}}
	closure := thread.Heap.NewClosure(&Closure{Fn: fn, Module: mod})

	_, err := thread.Call(closure, jsvalue.Undefined, nil, jsvalue.Undefined)
	require.ErrorIs(t, err, ErrInterrupted)
}
