package jsvalue

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInt32RoundTrip(t *testing.T) {
	cases := []int32{math.MinInt32, -1, 0, 1, 42, math.MaxInt32}
	for _, n := range cases {
		v := Int32(n)
		got, ok := v.AsInt32()
		require.True(t, ok)
		require.Equal(t, n, got)

		num, ok := v.AsNumber()
		require.True(t, ok)
		require.Equal(t, float64(n), num)
	}
}

func TestNumberCanonicalizesIntegralDoubles(t *testing.T) {
	v := Number(42.0)
	require.Equal(t, KindInt32, v.Kind())
	n, ok := v.AsInt32()
	require.True(t, ok)
	require.Equal(t, int32(42), n)
}

func TestNegativeZeroStaysDouble(t *testing.T) {
	v := Number(math.Copysign(0, -1))
	require.Equal(t, KindDouble, v.Kind())
	require.True(t, Is(v, Double(math.Copysign(0, -1))))
	require.False(t, Is(v, Number(0)))
}

func TestJitBitsRoundTrip(t *testing.T) {
	values := []Value{
		Undefined, Null, True, False, NaN,
		Int32(-7), Int32(1234567),
		Double(3.5), Double(-0.0), Double(math.Pi),
		Pointer(0xdead_beef),
	}
	for _, v := range values {
		got := FromJitBits(v.ToJitBits())
		require.Equal(t, v.bits, got.bits)
	}
}

// The tag constants live in the sign-set NaN space; the boundary
// patterns around them must keep reporting the right kinds.
func TestBoxedDetectionBoundaries(t *testing.T) {
	require.Equal(t, KindUndefined, Undefined.Kind())
	require.Equal(t, KindNull, Null.Kind())
	require.Equal(t, KindBoolean, True.Kind())
	require.Equal(t, KindBoolean, False.Kind())
	require.Equal(t, KindNaN, NaN.Kind())
	require.Equal(t, KindInt32, Int32(0).Kind())
	require.Equal(t, KindPointer, Pointer(1).Kind())

	b, ok := True.AsBoolean()
	require.True(t, ok)
	require.True(t, b)
	b, ok = False.AsBoolean()
	require.True(t, ok)
	require.False(t, b)

	addr, ok := Pointer(0xdead_beef).AsPointer()
	require.True(t, ok)
	require.Equal(t, uint64(0xdead_beef), addr)

	// Both infinities share the tag prefix's exponent but are plain
	// Doubles: +Inf lacks the sign bit, -Inf has a zero tag nibble.
	for _, inf := range []float64{math.Inf(1), math.Inf(-1)} {
		v := Double(inf)
		require.Equal(t, KindDouble, v.Kind())
		n, ok := v.AsNumber()
		require.True(t, ok)
		require.Equal(t, inf, n)
	}

	// A raw NaN pattern outside the assigned tags (e.g. the hardware
	// quiet NaN with the sign clear) is still numeric, never a boxed
	// singleton or pointer.
	raw := FromJitBits(math.Float64bits(math.NaN()))
	require.True(t, raw.IsNumber())
	require.False(t, raw.IsPointer())
	n, ok := raw.AsNumber()
	require.True(t, ok)
	require.True(t, math.IsNaN(n))
}

func TestStrictEqualsNaN(t *testing.T) {
	require.False(t, StrictEquals(NaN, NaN))
	require.True(t, Is(NaN, NaN))
}

func TestStrictEqualsNumberCrossRepresentation(t *testing.T) {
	require.True(t, StrictEquals(Int32(5), Double(5.0)))
}

func TestInternSharesIdenticalContent(t *testing.T) {
	a := Intern("hello")
	b := Intern("hello")
	require.Equal(t, a, b)

	c := Intern("world")
	require.NotEqual(t, a, c)

	text, ok := InternedText(a)
	require.True(t, ok)
	require.Equal(t, "hello", text)
}

func TestJsStringCharCodeAt(t *testing.T) {
	s := NewJsString("ab")
	c, ok := s.CharCodeAt(0)
	require.True(t, ok)
	require.Equal(t, uint16('a'), c)
	_, ok = s.CharCodeAt(2)
	require.False(t, ok)
}
