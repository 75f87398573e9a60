package interp

import (
	"encoding/binary"
	"math"

	"github.com/octofhir/otter-vm/internal/jsobject"
)

// ArrayBuffer is the raw byte storage a DataView or TypedArray views
// into (spec.md's ArrayBuffer/DataView/TypedArray trio, SPEC_FULL.md
// section 9).
type ArrayBuffer struct {
	Bytes    []byte
	Detached bool
}

// TypedArray is a typed view over an ArrayBuffer: offset/length in
// elements, plus the element kind that drives ClampOrWrap and
// ElementSize (internal/jsobject.TypedArrayKind). DataView cells reuse
// this same struct with Kind left NotTypedArray (see Heap.NewDataView);
// DataView's accessor methods address bytes directly rather than
// through Get/Set's element-index indirection.
type TypedArray struct {
	Buffer     *ArrayBuffer
	Kind       jsobject.TypedArrayKind
	ByteOffset int
	Length     int // element count
}

func (t *TypedArray) elementBytes(i int) []byte {
	size := t.Kind.ElementSize()
	start := t.ByteOffset + i*size
	return t.Buffer.Bytes[start : start+size]
}

// Get reads element i as a float64, per ECMA-262's IntegerIndexedElementGet
// (every typed-array element, including the big-int kinds, surfaces to
// this engine's arithmetic as a Number - BigInt64Array/BigUint64Array
// precision beyond float64's 53-bit mantissa is accepted as a known gap,
// matching spec.md's explicit exclusion of a separate 64-bit-exact
// integer path anywhere but the BigInt bridge itself).
func (t *TypedArray) Get(i int) (float64, bool) {
	if i < 0 || i >= t.Length {
		return 0, false
	}
	b := t.elementBytes(i)
	switch t.Kind {
	case jsobject.Int8Array:
		return float64(int8(b[0])), true
	case jsobject.Uint8Array, jsobject.Uint8ClampedArray:
		return float64(b[0]), true
	case jsobject.Int16Array:
		return float64(int16(binary.LittleEndian.Uint16(b))), true
	case jsobject.Uint16Array:
		return float64(binary.LittleEndian.Uint16(b)), true
	case jsobject.Int32Array:
		return float64(int32(binary.LittleEndian.Uint32(b))), true
	case jsobject.Uint32Array:
		return float64(binary.LittleEndian.Uint32(b)), true
	case jsobject.Float32Array:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(b))), true
	case jsobject.Float64Array:
		return math.Float64frombits(binary.LittleEndian.Uint64(b)), true
	case jsobject.BigInt64Array:
		return float64(int64(binary.LittleEndian.Uint64(b))), true
	case jsobject.BigUint64Array:
		return float64(binary.LittleEndian.Uint64(b)), true
	default:
		return 0, false
	}
}

// Set writes n into element i, applying ClampOrWrap first per
// jsobject's resolution of the typed-array overflow Open Question.
func (t *TypedArray) Set(i int, n float64) bool {
	if i < 0 || i >= t.Length {
		return false
	}
	n = jsobject.ClampOrWrap(t.Kind, n)
	b := t.elementBytes(i)
	switch t.Kind {
	case jsobject.Int8Array, jsobject.Uint8Array, jsobject.Uint8ClampedArray:
		b[0] = byte(int64(n))
	case jsobject.Int16Array, jsobject.Uint16Array:
		binary.LittleEndian.PutUint16(b, uint16(int64(n)))
	case jsobject.Int32Array, jsobject.Uint32Array:
		binary.LittleEndian.PutUint32(b, uint32(int64(n)))
	case jsobject.Float32Array:
		binary.LittleEndian.PutUint32(b, math.Float32bits(float32(n)))
	case jsobject.Float64Array:
		binary.LittleEndian.PutUint64(b, math.Float64bits(n))
	case jsobject.BigInt64Array, jsobject.BigUint64Array:
		binary.LittleEndian.PutUint64(b, uint64(int64(n)))
	default:
		return false
	}
	return true
}
