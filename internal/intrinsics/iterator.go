package intrinsics

import (
	"github.com/octofhir/otter-vm/internal/interp"
	"github.com/octofhir/otter-vm/internal/jsobject"
	"github.com/octofhir/otter-vm/internal/jsvalue"
)

// populateIterator installs the shared %IteratorPrototype% every
// built-in iterator (Array's, String's, Map's, Set's) chains onto: a
// next() that reads the iterator-record state internal/interp's
// GetIterator/IteratorNext opcodes already maintain (see
// internal/interp/iterator.go), and a [Symbol.iterator] that returns
// the iterator itself, per ECMAScript's "iterators are their own
// iterable" convention.
func (r *Realm) populateIterator() {
	t := r.t
	proto := r.IteratorProto

	defineMethod(t, proto, "next", 0, func(t *interp.VmThread, this jsvalue.Value, _ []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		value, done := t.IteratorNextValue(this)
		return r.iterResult(value, done), nil
	})
	defineValue(proto, jsobject.SymbolKey(uint64(symIterator), "Symbol.iterator"), nativeFunc(t, "[Symbol.iterator]", 0, func(t *interp.VmThread, this jsvalue.Value, _ []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		return this, nil
	}), true, false, true)
}

// wrapIterator builds a user-visible iterator object over v (an array
// or string), backed by internal/interp's iterator-record state and
// chained onto IteratorProto so .next() works when called directly.
func (r *Realm) wrapIterator(v jsvalue.Value) jsvalue.Value {
	t := r.t
	iterVal := t.GetIteratorValue(v)
	obj, ok := t.Heap.Object(iterVal)
	if ok {
		obj.SetPrototype(r.IteratorProto)
	}
	return iterVal
}

// iterResult builds the {value, done} object IteratorProto.next
// returns, per ECMAScript's iterator result shape. Generators build
// theirs with internal/interp's own iterResult (coroutine.go).
func (r *Realm) iterResult(value jsvalue.Value, done bool) jsvalue.Value {
	t := r.t
	v := newPlainObject(t, r.ObjectProto)
	o, _ := t.Heap.Object(v)
	defineValue(o, strKey("value"), value, true, true, true)
	defineValue(o, strKey("done"), jsvalue.Boolean(done), true, true, true)
	return v
}
