package intrinsics

import (
	"github.com/octofhir/otter-vm/internal/interp"
	"github.com/octofhir/otter-vm/internal/jsobject"
	"github.com/octofhir/otter-vm/internal/jsvalue"
)

// typedArrayKinds fixes the iteration order allocate(), install() and
// populateTypedArray() walk to build one prototype/constructor pair per view kind, following
// internal/jsobject.TypedArrayKind's declared order.
var typedArrayKinds = []jsobject.TypedArrayKind{
	jsobject.Int8Array, jsobject.Uint8Array, jsobject.Uint8ClampedArray,
	jsobject.Int16Array, jsobject.Uint16Array,
	jsobject.Int32Array, jsobject.Uint32Array,
	jsobject.Float32Array, jsobject.Float64Array,
	jsobject.BigInt64Array, jsobject.BigUint64Array,
}

func typedArrayCtorName(k jsobject.TypedArrayKind) string {
	switch k {
	case jsobject.Int8Array:
		return "Int8Array"
	case jsobject.Uint8Array:
		return "Uint8Array"
	case jsobject.Uint8ClampedArray:
		return "Uint8ClampedArray"
	case jsobject.Int16Array:
		return "Int16Array"
	case jsobject.Uint16Array:
		return "Uint16Array"
	case jsobject.Int32Array:
		return "Int32Array"
	case jsobject.Uint32Array:
		return "Uint32Array"
	case jsobject.Float32Array:
		return "Float32Array"
	case jsobject.Float64Array:
		return "Float64Array"
	case jsobject.BigInt64Array:
		return "BigInt64Array"
	case jsobject.BigUint64Array:
		return "BigUint64Array"
	default:
		return ""
	}
}

// populateTypedArray builds ArrayBuffer, DataView, %TypedArray%
// (the abstract shared prototype every concrete view's prototype
// chains to, per wire()) and each concrete view's constructor, then
// registers the interp-side hooks (VmThread.TypedArrayProtoOf/
// DataViewProto) property_access.go's getProperty/instanceOf consult
// so TypedArray/DataView cells - which aren't *jsobject.Object and so
// carry no [[Prototype]] slot of their own - still resolve methods and
// `instanceof` through a real prototype chain.
func (r *Realm) populateTypedArray() {
	t := r.t

	r.populateArrayBuffer()
	r.populateDataView()

	proto := r.TypedArrayProto
	defineMethod(t, proto, "subarray", 2, taSubarray)
	defineMethod(t, proto, "slice", 2, taSlice)
	defineMethod(t, proto, "fill", 1, taFill)
	defineMethod(t, proto, "set", 1, taSet)
	defineMethod(t, proto, "indexOf", 1, taIndexOf)
	defineMethod(t, proto, "includes", 1, taIncludes)
	defineMethod(t, proto, "join", 1, taJoin)
	defineMethod(t, proto, "forEach", 1, taForEach)
	defineMethod(t, proto, "map", 1, taMap)
	defineMethod(t, proto, "toString", 0, taJoin)

	for _, k := range typedArrayKinds {
		kind := k
		kproto := r.typedArrayProtos[kind]
		defineValue(kproto, strKey("BYTES_PER_ELEMENT"), jsvalue.Number(float64(kind.ElementSize())), false, false, false)
		ctorVal := r.newConstructor(typedArrayCtorName(kind), 1, kproto, r.typedArrayConstructFn(kind, kproto))
		cl, _ := t.Heap.Closure(ctorVal)
		defineValue(cl.Statics, strKey("BYTES_PER_ELEMENT"), jsvalue.Number(float64(kind.ElementSize())), false, false, false)
		r.typedArrayCtors[kind] = ctorVal
	}

	t.TypedArrayProtoOf = func(kind jsobject.TypedArrayKind) *jsobject.Object {
		if p, ok := r.typedArrayProtos[kind]; ok {
			return p
		}
		return r.TypedArrayProto
	}
}

// typedArrayConstructFn builds `new Int8Array(...)` etc. Supports the
// three common overloads: a bare length, an existing ArrayBuffer (with
// optional byteOffset/length), and an Array or another TypedArray of
// initial values; any other argument yields an empty view. Shared TypedArray views over a SharedArrayBuffer are out of
// scope (spec.md's Non-goals exclude SharedArrayBuffer/Atomics).
func (r *Realm) typedArrayConstructFn(kind jsobject.TypedArrayKind, proto *jsobject.Object) interp.NativeFunc {
	return func(t *interp.VmThread, _ jsvalue.Value, args []jsvalue.Value, newTarget jsvalue.Value) (jsvalue.Value, error) {
		if newTarget.IsUndefined() {
			t.ThrowTypeError("constructor %s requires 'new'", typedArrayCtorName(kind))
		}
		size := kind.ElementSize()
		first := arg(args, 0)

		if buf, ok := t.Heap.ArrayBuffer(first); ok {
			byteOffset := int(t.ToIntegerOrInfinity(arg(args, 1)))
			length := (len(buf.Bytes) - byteOffset) / size
			if len(args) > 2 && !arg(args, 2).IsUndefined() {
				length = int(t.ToIntegerOrInfinity(arg(args, 2)))
			}
			ta := &interp.TypedArray{Buffer: buf, Kind: kind, ByteOffset: byteOffset, Length: length}
			return t.Heap.NewTypedArray(ta), nil
		}

		var values []float64
		if first.IsNumber() {
			n := int(t.ToIntegerOrInfinity(first))
			values = make([]float64, n)
		} else if srcObj, ok := t.Heap.Object(first); ok && srcObj.IsArray() {
			for _, el := range srcObj.Elements() {
				values = append(values, t.ToNumber(el))
			}
		} else if srcTA, ok := t.Heap.TypedArray(first); ok {
			for i := 0; i < srcTA.Length; i++ {
				n, _ := srcTA.Get(i)
				values = append(values, n)
			}
		}

		buf := &interp.ArrayBuffer{Bytes: make([]byte, size*len(values))}
		ta := &interp.TypedArray{Buffer: buf, Kind: kind, ByteOffset: 0, Length: len(values)}
		for i, v := range values {
			ta.Set(i, v)
		}
		return t.Heap.NewTypedArray(ta), nil
	}
}

func thisTypedArray(t *interp.VmThread, this jsvalue.Value, method string) *interp.TypedArray {
	ta, ok := t.Heap.TypedArray(this)
	if !ok {
		t.ThrowTypeError("%s called on non-TypedArray", method)
	}
	return ta
}

func taSubarray(t *interp.VmThread, this jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
	ta := thisTypedArray(t, this, "subarray")
	start, end := normalizeRange(t, args, ta.Length)
	size := ta.Kind.ElementSize()
	sub := &interp.TypedArray{
		Buffer:     ta.Buffer,
		Kind:       ta.Kind,
		ByteOffset: ta.ByteOffset + start*size,
		Length:     end - start,
	}
	if sub.Length < 0 {
		sub.Length = 0
	}
	return t.Heap.NewTypedArray(sub), nil
}

func taSlice(t *interp.VmThread, this jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
	ta := thisTypedArray(t, this, "slice")
	start, end := normalizeRange(t, args, ta.Length)
	size := ta.Kind.ElementSize()
	n := end - start
	if n < 0 {
		n = 0
	}
	buf := &interp.ArrayBuffer{Bytes: make([]byte, n*size)}
	out := &interp.TypedArray{Buffer: buf, Kind: ta.Kind, Length: n}
	for i := 0; i < n; i++ {
		v, _ := ta.Get(start + i)
		out.Set(i, v)
	}
	return t.Heap.NewTypedArray(out), nil
}

func taFill(t *interp.VmThread, this jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
	ta := thisTypedArray(t, this, "fill")
	v := t.ToNumber(arg(args, 0))
	rangeArgs := args
	if len(args) > 1 {
		rangeArgs = args[1:]
	} else {
		rangeArgs = nil
	}
	start, end := normalizeRange(t, rangeArgs, ta.Length)
	for i := start; i < end; i++ {
		ta.Set(i, v)
	}
	return this, nil
}

func taSet(t *interp.VmThread, this jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
	ta := thisTypedArray(t, this, "set")
	offset := int(t.ToIntegerOrInfinity(arg(args, 1)))
	src := arg(args, 0)
	if srcTA, ok := t.Heap.TypedArray(src); ok {
		for i := 0; i < srcTA.Length; i++ {
			n, _ := srcTA.Get(i)
			ta.Set(offset+i, n)
		}
		return jsvalue.Undefined, nil
	}
	if srcObj, ok := t.Heap.Object(src); ok {
		for i, el := range srcObj.Elements() {
			ta.Set(offset+i, t.ToNumber(el))
		}
	}
	return jsvalue.Undefined, nil
}

func taIndexOf(t *interp.VmThread, this jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
	ta := thisTypedArray(t, this, "indexOf")
	target := t.ToNumber(arg(args, 0))
	for i := 0; i < ta.Length; i++ {
		n, _ := ta.Get(i)
		if n == target {
			return jsvalue.Number(float64(i)), nil
		}
	}
	return jsvalue.Number(-1), nil
}

func taIncludes(t *interp.VmThread, this jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
	ta := thisTypedArray(t, this, "includes")
	target := t.ToNumber(arg(args, 0))
	for i := 0; i < ta.Length; i++ {
		n, _ := ta.Get(i)
		if n == target || (n != n && target != target) {
			return jsvalue.Boolean(true), nil
		}
	}
	return jsvalue.Boolean(false), nil
}

func taJoin(t *interp.VmThread, this jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
	ta := thisTypedArray(t, this, "join")
	sep := ","
	if len(args) > 0 && !arg(args, 0).IsUndefined() {
		sep = t.ToString(arg(args, 0))
	}
	out := ""
	for i := 0; i < ta.Length; i++ {
		if i > 0 {
			out += sep
		}
		n, _ := ta.Get(i)
		out += t.ToString(jsvalue.Number(n))
	}
	return t.StringValue(out), nil
}

func taForEach(t *interp.VmThread, this jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
	ta := thisTypedArray(t, this, "forEach")
	cb := arg(args, 0)
	for i := 0; i < ta.Length; i++ {
		n, _ := ta.Get(i)
		if _, err := t.Call(cb, arg(args, 1), []jsvalue.Value{jsvalue.Number(n), jsvalue.Number(float64(i)), this}, jsvalue.Undefined); err != nil {
			return jsvalue.Undefined, err
		}
	}
	return jsvalue.Undefined, nil
}

func taMap(t *interp.VmThread, this jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
	ta := thisTypedArray(t, this, "map")
	cb := arg(args, 0)
	buf := &interp.ArrayBuffer{Bytes: make([]byte, len(ta.Buffer.Bytes[ta.ByteOffset:]))}
	out := &interp.TypedArray{Buffer: buf, Kind: ta.Kind, Length: ta.Length}
	for i := 0; i < ta.Length; i++ {
		n, _ := ta.Get(i)
		v, err := t.Call(cb, arg(args, 1), []jsvalue.Value{jsvalue.Number(n), jsvalue.Number(float64(i)), this}, jsvalue.Undefined)
		if err != nil {
			return jsvalue.Undefined, err
		}
		out.Set(i, t.ToNumber(v))
	}
	return t.Heap.NewTypedArray(out), nil
}

func normalizeRange(t *interp.VmThread, args []jsvalue.Value, length int) (int, int) {
	start, end := 0, length
	if len(args) > 0 && !arg(args, 0).IsUndefined() {
		start = clampIndex(int(t.ToIntegerOrInfinity(arg(args, 0))), length)
	}
	if len(args) > 1 && !arg(args, 1).IsUndefined() {
		end = clampIndex(int(t.ToIntegerOrInfinity(arg(args, 1))), length)
	}
	return start, end
}

// populateArrayBuffer builds the ArrayBuffer constructor/prototype:
// `new ArrayBuffer(length)`, `.byteLength`, `.slice`.
func (r *Realm) populateArrayBuffer() {
	t := r.t
	proto := r.ArrayBufferProto

	defineMethod(t, proto, "slice", 2, func(t *interp.VmThread, this jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		buf, ok := t.Heap.ArrayBuffer(this)
		if !ok {
			t.ThrowTypeError("slice called on non-ArrayBuffer")
		}
		start, end := normalizeRange(t, args, len(buf.Bytes))
		if end < start {
			end = start
		}
		out := make([]byte, end-start)
		copy(out, buf.Bytes[start:end])
		return t.Heap.NewArrayBuffer(&interp.ArrayBuffer{Bytes: out}), nil
	})

	r.arrayBufferCtor = r.newConstructor("ArrayBuffer", 1, proto, func(t *interp.VmThread, _ jsvalue.Value, args []jsvalue.Value, newTarget jsvalue.Value) (jsvalue.Value, error) {
		if newTarget.IsUndefined() {
			t.ThrowTypeError("constructor ArrayBuffer requires 'new'")
		}
		n := int(t.ToIntegerOrInfinity(arg(args, 0)))
		if n < 0 {
			n = 0
		}
		return t.Heap.NewArrayBuffer(&interp.ArrayBuffer{Bytes: make([]byte, n)}), nil
	})
}

// populateDataView builds the DataView constructor/prototype: a byte-
// addressed view over an ArrayBuffer with one get/set pair per numeric
// kind. Every get<Kind>/set<Kind> reads and writes little-endian, the
// same byte order as TypedArray element access; a littleEndian
// argument is not read.
func (r *Realm) populateDataView() {
	t := r.t
	proto := r.DataViewProto

	kinds := []struct {
		name string
		kind jsobject.TypedArrayKind
	}{
		{"Int8", jsobject.Int8Array}, {"Uint8", jsobject.Uint8Array},
		{"Int16", jsobject.Int16Array}, {"Uint16", jsobject.Uint16Array},
		{"Int32", jsobject.Int32Array}, {"Uint32", jsobject.Uint32Array},
		{"Float32", jsobject.Float32Array}, {"Float64", jsobject.Float64Array},
		{"BigInt64", jsobject.BigInt64Array}, {"BigUint64", jsobject.BigUint64Array},
	}
	for _, k := range kinds {
		kind := k.kind
		defineMethod(t, proto, "get"+k.name, 1, dvGetter(kind))
		defineMethod(t, proto, "set"+k.name, 2, dvSetter(kind))
	}

	r.dataViewCtor = r.newConstructor("DataView", 1, proto, func(t *interp.VmThread, _ jsvalue.Value, args []jsvalue.Value, newTarget jsvalue.Value) (jsvalue.Value, error) {
		if newTarget.IsUndefined() {
			t.ThrowTypeError("constructor DataView requires 'new'")
		}
		buf, ok := t.Heap.ArrayBuffer(arg(args, 0))
		if !ok {
			t.ThrowTypeError("DataView requires an ArrayBuffer")
		}
		byteOffset := int(t.ToIntegerOrInfinity(arg(args, 1)))
		length := len(buf.Bytes) - byteOffset
		if len(args) > 2 && !arg(args, 2).IsUndefined() {
			length = int(t.ToIntegerOrInfinity(arg(args, 2)))
		}
		dv := &interp.TypedArray{Buffer: buf, Kind: jsobject.NotTypedArray, ByteOffset: byteOffset, Length: length}
		return t.Heap.NewDataView(dv), nil
	})

	t.DataViewProto = func() *jsobject.Object { return r.DataViewProto }
}

// dvGetter/dvSetter build DataView's get<Kind>/set<Kind> methods by
// reusing TypedArray.Get/Set against a single-element view positioned
// at the requested byte offset - the same element-decode logic, just
// addressed per call instead of per index.
func dvGetter(kind jsobject.TypedArrayKind) interp.NativeFunc {
	return func(t *interp.VmThread, this jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		dv, ok := t.Heap.DataView(this)
		if !ok {
			t.ThrowTypeError("getter called on non-DataView")
		}
		byteOffset := int(t.ToIntegerOrInfinity(arg(args, 0)))
		view := &interp.TypedArray{Buffer: dv.Buffer, Kind: kind, ByteOffset: dv.ByteOffset + byteOffset, Length: 1}
		n, ok := view.Get(0)
		if !ok {
			t.Throw("RangeError", "offset is outside the bounds of the DataView")
		}
		return jsvalue.Number(n), nil
	}
}

func dvSetter(kind jsobject.TypedArrayKind) interp.NativeFunc {
	return func(t *interp.VmThread, this jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		dv, ok := t.Heap.DataView(this)
		if !ok {
			t.ThrowTypeError("setter called on non-DataView")
		}
		byteOffset := int(t.ToIntegerOrInfinity(arg(args, 0)))
		view := &interp.TypedArray{Buffer: dv.Buffer, Kind: kind, ByteOffset: dv.ByteOffset + byteOffset, Length: 1}
		if !view.Set(0, t.ToNumber(arg(args, 1))) {
			t.Throw("RangeError", "offset is outside the bounds of the DataView")
		}
		return jsvalue.Undefined, nil
	}
}
