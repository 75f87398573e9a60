package interp

import (
	"math"
	"strconv"

	"github.com/octofhir/otter-vm/internal/jsobject"
	"github.com/octofhir/otter-vm/internal/jsvalue"
)

// ToBoolean implements ECMAScript ToBoolean; it never calls back into
// JS, so it takes no *VmThread.
func ToBoolean(v jsvalue.Value) bool {
	switch v.Kind() {
	case jsvalue.KindUndefined, jsvalue.KindNull:
		return false
	case jsvalue.KindBoolean:
		b, _ := v.AsBoolean()
		return b
	case jsvalue.KindNaN:
		return false
	case jsvalue.KindInt32, jsvalue.KindDouble:
		n, _ := v.AsNumber()
		return n != 0 && !math.IsNaN(n)
	case jsvalue.KindPointer:
		return true
	}
	return false
}

// toPrimitiveHint selects which method order ToPrimitive tries first.
type toPrimitiveHint uint8

const (
	hintDefault toPrimitiveHint = iota
	hintNumber
	hintString
)

// ToPrimitive implements ECMAScript's ToPrimitive abstract operation:
// objects are unwrapped via valueOf/toString (in the order the hint
// picks), primitives pass through unchanged.
func (t *VmThread) ToPrimitive(v jsvalue.Value, hint toPrimitiveHint) jsvalue.Value {
	if v.Kind() != jsvalue.KindPointer {
		return v
	}
	obj, ok := t.Heap.Object(v)
	if !ok {
		// Non-object pointer cells (string/bigint/closure/promise) are
		// already primitive-or-opaque for ToPrimitive's purposes.
		return v
	}
	methods := [2]string{"valueOf", "toString"}
	if hint == hintString {
		methods = [2]string{"toString", "valueOf"}
	}
	for _, name := range methods {
		m, _ := jsobject.Get(obj, jsobject.StringKey(jsvalue.Intern(name)), v, t.callFunc())
		if m.Kind() != jsvalue.KindPointer {
			continue
		}
		if _, callable := t.Heap.Closure(m); !callable {
			continue
		}
		result, err := t.Call(m, v, nil, jsvalue.Undefined)
		if err != nil {
			panic(err)
		}
		if result.Kind() != jsvalue.KindPointer {
			return result
		}
		if _, isObj := t.Heap.Object(result); !isObj {
			return result // string/bigint cell: already primitive
		}
	}
	t.throwTypeError("cannot convert object to primitive value")
	return jsvalue.Undefined
}

// ToNumber implements ECMAScript ToNumber.
func (t *VmThread) ToNumber(v jsvalue.Value) float64 {
	switch v.Kind() {
	case jsvalue.KindInt32, jsvalue.KindDouble:
		n, _ := v.AsNumber()
		return n
	case jsvalue.KindNaN:
		return math.NaN()
	case jsvalue.KindUndefined:
		return math.NaN()
	case jsvalue.KindNull:
		return 0
	case jsvalue.KindBoolean:
		b, _ := v.AsBoolean()
		if b {
			return 1
		}
		return 0
	case jsvalue.KindPointer:
		if s, ok := t.Heap.String(v); ok {
			return stringToNumber(s.String())
		}
		prim := t.ToPrimitive(v, hintNumber)
		if prim.Kind() == jsvalue.KindPointer {
			return math.NaN()
		}
		return t.ToNumber(prim)
	}
	return math.NaN()
}

func stringToNumber(s string) float64 {
	trimmed := trimJSWhitespace(s)
	if trimmed == "" {
		return 0
	}
	n, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return math.NaN()
	}
	return n
}

func trimJSWhitespace(s string) string {
	isSpace := func(r byte) bool {
		switch r {
		case ' ', '\t', '\n', '\r', '\v', '\f':
			return true
		}
		return false
	}
	start, end := 0, len(s)
	for start < end && isSpace(s[start]) {
		start++
	}
	for end > start && isSpace(s[end-1]) {
		end--
	}
	return s[start:end]
}

// Relational exposes the relational-comparison core (ToPrimitive with
// number hint, string-vs-numeric ordering, NaN always false) so
// internal/jithelpers' GenericCompare shares OpLt/OpLe/OpGt/OpGe's
// exact semantics.
func (t *VmThread) Relational(a, b jsvalue.Value, numCmp func(a, b float64) bool, strCmp func(a, b string) bool) jsvalue.Value {
	return t.relational(a, b, numCmp, strCmp)
}

// ToPrimitiveValue is ToPrimitive under the default hint, exported
// for host methods (internal/vm's NativeContext) whose argument
// coercion must match inline bytecode's.
func (t *VmThread) ToPrimitiveValue(v jsvalue.Value) jsvalue.Value {
	return t.ToPrimitive(v, hintDefault)
}

// ToString implements ECMAScript ToString.
func (t *VmThread) ToString(v jsvalue.Value) string {
	switch v.Kind() {
	case jsvalue.KindUndefined:
		return "undefined"
	case jsvalue.KindNull:
		return "null"
	case jsvalue.KindBoolean:
		b, _ := v.AsBoolean()
		if b {
			return "true"
		}
		return "false"
	case jsvalue.KindNaN:
		return "NaN"
	case jsvalue.KindInt32, jsvalue.KindDouble:
		n, _ := v.AsNumber()
		return formatNumber(n)
	case jsvalue.KindPointer:
		if s, ok := t.Heap.String(v); ok {
			return s.String()
		}
		if digits, ok := t.Heap.BigInt(v); ok {
			return digits
		}
		prim := t.ToPrimitive(v, hintString)
		if prim.Kind() == jsvalue.KindPointer {
			t.throwTypeError("cannot convert object to string")
		}
		return t.ToString(prim)
	}
	return ""
}

func formatNumber(n float64) string {
	if math.IsNaN(n) {
		return "NaN"
	}
	if math.IsInf(n, 1) {
		return "Infinity"
	}
	if math.IsInf(n, -1) {
		return "-Infinity"
	}
	if n == 0 {
		if math.Signbit(n) {
			return "0" // ToString(-0) is "0" per ECMA-262
		}
		return "0"
	}
	return strconv.FormatFloat(n, 'g', -1, 64)
}

// ToIntegerOrInfinity implements the ECMAScript abstract operation of
// the same name: NaN becomes 0, infinities pass through, everything
// else truncates toward zero.
func (t *VmThread) ToIntegerOrInfinity(v jsvalue.Value) float64 {
	n := t.ToNumber(v)
	if math.IsNaN(n) {
		return 0
	}
	if math.IsInf(n, 0) {
		return n
	}
	return math.Trunc(n)
}

// ToInt32 implements ECMAScript ToInt32 (modulo 2^32, reinterpreted as
// signed).
func (t *VmThread) ToInt32(v jsvalue.Value) int32 {
	n := t.ToIntegerOrInfinity(v)
	if math.IsInf(n, 0) || math.IsNaN(n) {
		return 0
	}
	mod := math.Mod(n, 4294967296)
	if mod < 0 {
		mod += 4294967296
	}
	u := uint32(mod)
	return int32(u)
}

// ToLength implements ECMAScript ToLength: clamps to [0, 2^53-1].
func (t *VmThread) ToLength(v jsvalue.Value) int {
	n := t.ToIntegerOrInfinity(v)
	if n <= 0 {
		return 0
	}
	const maxLen = 1<<53 - 1
	if n > maxLen {
		return maxLen
	}
	return int(n)
}

// ToPropertyKey implements ECMAScript ToPropertyKey: symbols pass
// through as Symbol keys, everything else goes through ToString and
// becomes a String key (numeric-looking strings are not specially
// folded into Index keys here - that optimization belongs to the
// array-exotic fast paths in OpGetElem/OpSetElem, which check the
// Int32 Value kind before ever reaching ToPropertyKey).
func (t *VmThread) ToPropertyKey(v jsvalue.Value) jsobject.PropertyKey {
	if id, desc, ok := t.Heap.Symbol(v); ok {
		return jsobject.SymbolKey(id, desc)
	}
	s := t.ToString(v)
	return jsobject.StringKey(jsvalue.Intern(s))
}

// LooseEquals implements ECMAScript's abstract equality comparison
// (==), including the Number/String, Number/Boolean and
// Object/primitive coercion steps.
func (t *VmThread) LooseEquals(a, b jsvalue.Value) bool {
	ak, bk := a.Kind(), b.Kind()
	if (ak == jsvalue.KindInt32 || ak == jsvalue.KindDouble || ak == jsvalue.KindNaN) &&
		(bk == jsvalue.KindInt32 || bk == jsvalue.KindDouble || bk == jsvalue.KindNaN) {
		return jsvalue.StrictEquals(a, b)
	}
	if a.IsNullish() && b.IsNullish() {
		return true
	}
	if a.IsNullish() || b.IsNullish() {
		return false
	}
	if ak == bk {
		return t.StrictEquals(a, b)
	}
	// Boolean operand: convert to Number and retry.
	if ak == jsvalue.KindBoolean {
		return t.LooseEquals(jsvalue.Number(t.ToNumber(a)), b)
	}
	if bk == jsvalue.KindBoolean {
		return t.LooseEquals(a, jsvalue.Number(t.ToNumber(b)))
	}
	numeric := func(k jsvalue.Kind) bool {
		return k == jsvalue.KindInt32 || k == jsvalue.KindDouble || k == jsvalue.KindNaN
	}
	aIsStr := ak == jsvalue.KindPointer
	if _, ok := t.Heap.String(a); ak == jsvalue.KindPointer && !ok {
		aIsStr = false
	}
	bIsStr := bk == jsvalue.KindPointer
	if _, ok := t.Heap.String(b); bk == jsvalue.KindPointer && !ok {
		bIsStr = false
	}
	if numeric(ak) && bIsStr {
		return t.LooseEquals(a, jsvalue.Number(stringToNumber(t.ToString(b))))
	}
	if aIsStr && numeric(bk) {
		return t.LooseEquals(jsvalue.Number(stringToNumber(t.ToString(a))), b)
	}
	// One operand an object, the other a primitive: unwrap the object.
	if ak == jsvalue.KindPointer {
		if _, isObj := t.Heap.Object(a); isObj {
			return t.LooseEquals(t.ToPrimitive(a, hintDefault), b)
		}
	}
	if bk == jsvalue.KindPointer {
		if _, isObj := t.Heap.Object(b); isObj {
			return t.LooseEquals(a, t.ToPrimitive(b, hintDefault))
		}
	}
	return false
}

// TypeOf implements the `typeof` operator's string results.
func (t *VmThread) TypeOf(v jsvalue.Value) string {
	switch v.Kind() {
	case jsvalue.KindUndefined:
		return "undefined"
	case jsvalue.KindNull:
		return "object"
	case jsvalue.KindBoolean:
		return "boolean"
	case jsvalue.KindInt32, jsvalue.KindDouble, jsvalue.KindNaN:
		return "number"
	case jsvalue.KindPointer:
		kind, _ := t.Heap.Kind(v)
		switch kind {
		case jsvalue.CellString:
			return "string"
		case jsvalue.CellBigInt:
			return "bigint"
		case jsvalue.CellSymbol:
			return "symbol"
		case jsvalue.CellFunction:
			return "function"
		default:
			return "object"
		}
	}
	return "undefined"
}
