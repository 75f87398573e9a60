package intrinsics

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/octofhir/otter-vm/internal/interp"
	"github.com/octofhir/otter-vm/internal/jsobject"
	"github.com/octofhir/otter-vm/internal/jsvalue"
)

func bootstrapped(t *testing.T) (*interp.VmThread, *Realm) {
	t.Helper()
	thread := interp.NewThread(nil)
	return thread, Bootstrap(thread)
}

// The cyclic prototype graph must come out of the two-stage bootstrap
// with the chain roots the design fixes: Object.prototype's proto is
// null and Function.prototype chains to it.
func TestBootstrapWiresPrototypeChain(t *testing.T) {
	_, r := bootstrapped(t)
	require.Nil(t, r.ObjectProto.Prototype())
	require.Same(t, r.ObjectProto, r.FunctionProto.Prototype())
	require.Same(t, r.ObjectProto, r.ArrayProto.Prototype())
	require.Same(t, r.ErrorProto, r.subErrorProtos["TypeError"].Prototype())
	require.Same(t, r.ObjectProto, r.TypedArrayProto.Prototype())
	require.Same(t, r.TypedArrayProto, r.typedArrayProtos[jsobject.Int32Array].Prototype())
}

// Well-known symbols carry fixed stable ids: two realms on two
// threads produce Symbol.iterator handles that are identity-equal by
// id even though the heap cells differ.
func TestWellKnownSymbolIdentityAcrossRealms(t *testing.T) {
	t1, r1 := bootstrapped(t)
	t2, r2 := bootstrapped(t)

	id1, _, ok1 := t1.Heap.Symbol(r1.wk.get(symIterator))
	id2, _, ok2 := t2.Heap.Symbol(r2.wk.get(symIterator))
	require.True(t, ok1)
	require.True(t, ok2)
	require.Equal(t, id1, id2)

	other, _, _ := t1.Heap.Symbol(r1.wk.get(symToStringTag))
	require.NotEqual(t, id1, other)
}

// A fresh handle for the same id is identity-equal to the cached one
// under the engine's === even though the heap cells differ.
func TestWellKnownSymbolFreshHandleSharesID(t *testing.T) {
	thread, r := bootstrapped(t)
	fresh := thread.Heap.NewSymbol(uint64(symIterator), "Symbol.iterator")
	cached := r.wk.get(symIterator)
	require.False(t, jsvalue.StrictEquals(fresh, cached), "distinct cells expected")
	require.True(t, thread.StrictEquals(fresh, cached))

	other := thread.Heap.NewSymbol(uint64(symToStringTag), "Symbol.toStringTag")
	require.False(t, thread.StrictEquals(fresh, other))
}

// Intrinsic objects are marked so a non-process-exit teardown keeps
// the built-in graph alive (spec.md's intrinsic-protection invariant).
func TestIntrinsicsSurviveNonProcessTeardown(t *testing.T) {
	thread, r := bootstrapped(t)
	reg := thread.Heap.Registry()

	before := reg.LiveCount()
	require.Greater(t, before, 0)

	reg.DeallocNonIntrinsic()
	// The prototype graph's cells survive; the realm stays usable for
	// a direct property read.
	v, err := jsobject.Get(r.ObjectProto, jsobject.StringKey(jsvalue.Intern("hasOwnProperty")), thread.Heap.ValueForObject(r.ObjectProto), thread.CallFunc())
	require.NoError(t, err)
	require.NotEqual(t, jsvalue.KindUndefined, v.Kind())
}

// Constructors land on the global object as bindings user bytecode
// reaches through GetGlobal.
func TestGlobalInstallExposesConstructors(t *testing.T) {
	thread, _ := bootstrapped(t)
	for _, name := range []string{"Object", "Function", "Array", "Promise", "Math", "JSON", "Reflect", "Temporal"} {
		v := thread.GetProperty(thread.GlobalValue, jsobject.StringKey(jsvalue.Intern(name)))
		require.NotEqual(t, jsvalue.KindUndefined, v.Kind(), "global %s missing", name)
	}
}
