package jsobject

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/octofhir/otter-vm/internal/jsvalue"
)

func noopCall(callee, this jsvalue.Value, args []jsvalue.Value) (jsvalue.Value, error) {
	return jsvalue.Undefined, nil
}

func TestIdenticalPropertySequenceYieldsIdenticalShape(t *testing.T) {
	g := NewGraph()
	a := New(g, nil)
	b := New(g, nil)

	xKey := StringKey(jsvalue.Intern("x"))
	yKey := StringKey(jsvalue.Intern("y"))

	require.NoError(t, DefineProperty(a, xKey, PropertyDescriptor{Value: jsvalue.Int32(1), Writable: true, Enumerable: true, Configurable: true}))
	require.NoError(t, DefineProperty(a, yKey, PropertyDescriptor{Value: jsvalue.Int32(2), Writable: true, Enumerable: true, Configurable: true}))
	require.NoError(t, DefineProperty(b, xKey, PropertyDescriptor{Value: jsvalue.Int32(10), Writable: true, Enumerable: true, Configurable: true}))
	require.NoError(t, DefineProperty(b, yKey, PropertyDescriptor{Value: jsvalue.Int32(20), Writable: true, Enumerable: true, Configurable: true}))

	require.Equal(t, a.Shape().ID(), b.Shape().ID())
}

func TestDeleteForcesDictionaryModeAndShapeIsNotReused(t *testing.T) {
	g := NewGraph()
	a := New(g, nil)
	xKey := StringKey(jsvalue.Intern("x"))
	require.NoError(t, DefineProperty(a, xKey, PropertyDescriptor{Value: jsvalue.Int32(1), Writable: true, Enumerable: true, Configurable: true}))
	shapeBefore := a.Shape().ID()

	ok, err := Delete(a, xKey)
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, a.IsDictionaryMode())

	require.NoError(t, DefineProperty(a, xKey, PropertyDescriptor{Value: jsvalue.Int32(2), Writable: true, Enumerable: true, Configurable: true}))
	require.True(t, a.IsDictionaryMode())
	_ = shapeBefore
}

func TestPrototypeChainWalkOnMiss(t *testing.T) {
	g := NewGraph()
	proto := New(g, nil)
	key := StringKey(jsvalue.Intern("greeting"))
	require.NoError(t, DefineProperty(proto, key, PropertyDescriptor{Value: jsvalue.Int32(99), Writable: true, Enumerable: true, Configurable: true}))

	child := New(g, proto)
	v, err := Get(child, key, jsvalue.Undefined, noopCall)
	require.NoError(t, err)
	n, ok := v.AsInt32()
	require.True(t, ok)
	require.Equal(t, int32(99), n)
}

func TestProtoEpochInvalidatesStaleIC(t *testing.T) {
	g := NewGraph()
	o := New(g, nil)
	key := StringKey(jsvalue.Intern("x"))
	require.NoError(t, DefineProperty(o, key, PropertyDescriptor{Value: jsvalue.Int32(1), Writable: true, Enumerable: true, Configurable: true}))

	off, _, ok := o.Shape().Offset(key)
	require.True(t, ok)

	var ic IC
	epoch := g.ProtoEpoch()
	ic.Record(o.Shape().ID(), off, epoch)
	_, ok = ic.Lookup(o.Shape().ID(), epoch)
	require.True(t, ok)

	g.BumpProtoEpoch()
	_, ok = ic.Lookup(o.Shape().ID(), g.ProtoEpoch())
	require.False(t, ok, "stale epoch must not serve a cached value")
}

func TestArrayExoticLengthSemantics(t *testing.T) {
	g := NewGraph()
	arr := New(g, nil)
	arr.MarkAsArray()

	require.NoError(t, Set(arr, IndexKey(0), jsvalue.Int32(1), jsvalue.Undefined, true, noopCall))
	require.NoError(t, Set(arr, IndexKey(1), jsvalue.Int32(2), jsvalue.Undefined, true, noopCall))
	require.NoError(t, Set(arr, IndexKey(5), jsvalue.Int32(6), jsvalue.Undefined, true, noopCall))
	require.Len(t, arr.elements, 6)

	v, err := Get(arr, IndexKey(5), jsvalue.Undefined, noopCall)
	require.NoError(t, err)
	n, _ := v.AsInt32()
	require.Equal(t, int32(6), n)

	hole, err := Get(arr, IndexKey(3), jsvalue.Undefined, noopCall)
	require.NoError(t, err)
	require.True(t, hole.IsUndefined())
}

func TestStrictModeRejectsNonWritable(t *testing.T) {
	g := NewGraph()
	o := New(g, nil)
	key := StringKey(jsvalue.Intern("x"))
	require.NoError(t, DefineProperty(o, key, PropertyDescriptor{Value: jsvalue.Int32(1), Writable: false, Enumerable: true, Configurable: true}))

	err := Set(o, key, jsvalue.Int32(2), jsvalue.Undefined, true, noopCall)
	require.ErrorIs(t, err, ErrNotWritable)

	err = Set(o, key, jsvalue.Int32(2), jsvalue.Undefined, false, noopCall)
	require.NoError(t, err, "sloppy mode silently drops the write")
}

func TestICPolymorphicThenMegamorphic(t *testing.T) {
	var ic IC
	ic.Record(1, 0, 0)
	require.Equal(t, ICMonomorphic, ic.State)
	ic.Record(2, 0, 0)
	require.Equal(t, ICPolymorphic, ic.State)
	ic.Record(3, 0, 0)
	ic.Record(4, 0, 0)
	require.Equal(t, ICPolymorphic, ic.State)
	require.Len(t, ic.Entries, 4)
	ic.Record(5, 0, 0)
	require.Equal(t, ICMegamorphic, ic.State)
}

func TestClampOrWrapTypedArray(t *testing.T) {
	require.Equal(t, float64(255), ClampOrWrap(Uint8ClampedArray, 1000))
	require.Equal(t, float64(0), ClampOrWrap(Uint8ClampedArray, -10))
	require.Equal(t, float64(0), ClampOrWrap(Int32Array, 4294967296)) // wraps
	require.Equal(t, float64(-1), ClampOrWrap(Int32Array, 4294967295))
}
