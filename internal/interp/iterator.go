package interp

import (
	"github.com/octofhir/otter-vm/internal/jsobject"
	"github.com/octofhir/otter-vm/internal/jsvalue"
)

// Iterator state is kept in a plain heap object under "@@iter"-prefixed
// string keys (ordinary interned keys, not hidden ones), which avoids
// introducing a new jsgc.CellKind just for this bookkeeping. getIterator
// never calls a target's own [Symbol.iterator](): it walks arrays, typed
// arrays and strings directly, and any other value yields an iterator
// that is done at once.
var (
	iterTargetKey = jsobject.StringKey(jsvalue.Intern("@@iterTarget"))
	iterIndexKey  = jsobject.StringKey(jsvalue.Intern("@@iterIndex"))
)

// GetIteratorValue exports getIterator for internal/jithelpers'
// GetIterator/Spread helpers.
func (t *VmThread) GetIteratorValue(v jsvalue.Value) jsvalue.Value { return t.getIterator(v) }

// IteratorNextValue exports iteratorNext for internal/jithelpers'
// IteratorNext/Spread helpers.
func (t *VmThread) IteratorNextValue(iterVal jsvalue.Value) (jsvalue.Value, bool) {
	return t.iteratorNext(iterVal)
}

func (t *VmThread) getIterator(v jsvalue.Value) jsvalue.Value {
	iterVal := t.Heap.NewObject(t.Graph, nil)
	obj, _ := t.Heap.Object(iterVal)
	_ = jsobject.DefineProperty(obj, iterTargetKey, jsobject.PropertyDescriptor{Value: v, Writable: true})
	_ = jsobject.DefineProperty(obj, iterIndexKey, jsobject.PropertyDescriptor{Value: jsvalue.Number(0), Writable: true})
	return iterVal
}

func (t *VmThread) iteratorNext(iterVal jsvalue.Value) (jsvalue.Value, bool) {
	iterObj, ok := t.Heap.Object(iterVal)
	if !ok {
		return jsvalue.Undefined, true
	}
	target, _ := jsobject.Get(iterObj, iterTargetKey, iterVal, t.callFunc())
	idxVal, _ := jsobject.Get(iterObj, iterIndexKey, iterVal, t.callFunc())
	idx, _ := idxVal.AsNumber()
	i := int(idx)

	advance := func() {
		_ = jsobject.Set(iterObj, iterIndexKey, jsvalue.Number(float64(i+1)), iterVal, false, t.callFunc())
	}

	if targetObj, ok := t.Heap.Object(target); ok && targetObj.IsArray() {
		elems := targetObj.Elements()
		if i >= len(elems) {
			return jsvalue.Undefined, true
		}
		advance()
		return elems[i], false
	}
	if ta, ok := t.Heap.TypedArray(target); ok {
		n, ok := ta.Get(i)
		if !ok {
			return jsvalue.Undefined, true
		}
		advance()
		return jsvalue.Number(n), false
	}
	if s, ok := t.Heap.String(target); ok {
		if i >= s.Len() {
			return jsvalue.Undefined, true
		}
		unit, _ := s.CharCodeAt(i)
		advance()
		return t.stringValue(string(utf16ToRune(unit))), false
	}
	return jsvalue.Undefined, true
}

// forInNext reuses the same iterator-record shape but yields keys
// instead of elements, per for-in's key (not value) enumeration. No
// snapshot is taken at GetIterator time: each step re-reads
// jsobject.Keys(target) and returns its i-th key as a string.
func (t *VmThread) forInNext(iterVal jsvalue.Value) (jsvalue.Value, bool) {
	iterObj, ok := t.Heap.Object(iterVal)
	if !ok {
		return jsvalue.Undefined, true
	}
	target, _ := jsobject.Get(iterObj, iterTargetKey, iterVal, t.callFunc())
	idxVal, _ := jsobject.Get(iterObj, iterIndexKey, iterVal, t.callFunc())
	idx, _ := idxVal.AsNumber()
	i := int(idx)

	targetObj, ok := t.Heap.Object(target)
	if !ok {
		return jsvalue.Undefined, true
	}
	keys := jsobject.Keys(targetObj)
	if i >= len(keys) {
		return jsvalue.Undefined, true
	}
	_ = jsobject.Set(iterObj, iterIndexKey, jsvalue.Number(float64(i+1)), iterVal, false, t.callFunc())
	return t.stringValue(propertyKeyText(keys[i])), false
}

// propertyKeyText renders a PropertyKey the way user code observes it
// (for-in string keys, computed member names), unlike PropertyKey's
// own String() method which is a debug format.
func propertyKeyText(k jsobject.PropertyKey) string {
	switch k.Kind() {
	case jsobject.KeyString:
		s, _ := jsvalue.InternedText(k.StringID())
		return s
	case jsobject.KeyIndex:
		return formatNumber(float64(k.Index()))
	default:
		return ""
	}
}
