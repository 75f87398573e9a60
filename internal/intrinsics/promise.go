package intrinsics

import (
	"github.com/octofhir/otter-vm/internal/interp"
	"github.com/octofhir/otter-vm/internal/jsvalue"
)

// newPromiseValue allocates a fresh pending Promise cell chained onto
// PromiseProto - every populatePromise entry point (constructor,
// resolve/reject statics, .then's derived promise) goes through this
// instead of calling t.Heap.NewPromise directly, so the heap cell
// always carries the right prototype via the object/promise split
// tracked alongside it.
//
// Promises are CellPromise cells, not CellObject ones (see heap.go),
// so they have no property store of their own; PromiseProto methods
// read the *interp.Promise payload straight off the Value via
// t.Heap.Promise rather than through jsobject.Get.
func (r *Realm) newPromiseValue() jsvalue.Value {
	return r.t.Heap.NewPromise(interp.NewPromise())
}

func (r *Realm) populatePromise() {
	t := r.t
	proto := r.PromiseProto

	defineMethod(t, proto, "then", 2, func(t *interp.VmThread, this jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		onFulfilled, onRejected := arg(args, 0), arg(args, 1)
		derived := r.newPromiseValue()
		t.SubscribePromise(this, func(value jsvalue.Value, rejected bool) {
			r.runReaction(derived, value, rejected, onFulfilled, onRejected)
		}, derived, onFulfilled, onRejected)
		return derived, nil
	})
	defineMethod(t, proto, "catch", 1, func(t *interp.VmThread, this jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		onRejected := arg(args, 0)
		derived := r.newPromiseValue()
		t.SubscribePromise(this, func(value jsvalue.Value, rejected bool) {
			r.runReaction(derived, value, rejected, jsvalue.Undefined, onRejected)
		}, derived, onRejected)
		return derived, nil
	})
	defineMethod(t, proto, "finally", 1, func(t *interp.VmThread, this jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		onFinally := arg(args, 0)
		derived := r.newPromiseValue()
		t.SubscribePromise(this, func(value jsvalue.Value, rejected bool) {
			if onFinally.Kind() == jsvalue.KindPointer {
				if _, err := t.Call(onFinally, jsvalue.Undefined, nil, jsvalue.Undefined); err != nil {
					t.SettlePromise(derived, jsvalue.Undefined, true)
					return
				}
			}
			t.SettlePromise(derived, value, rejected)
		}, derived, onFinally)
		return derived, nil
	})

	r.promiseCtor = r.newConstructor("Promise", 1, proto, func(t *interp.VmThread, _ jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		executor := arg(args, 0)
		p := r.newPromiseValue()
		resolve := nativeFunc(t, "resolve", 1, func(t *interp.VmThread, _ jsvalue.Value, rargs []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
			r.resolvePromise(p, arg(rargs, 0))
			return jsvalue.Undefined, nil
		})
		reject := nativeFunc(t, "reject", 1, func(t *interp.VmThread, _ jsvalue.Value, rargs []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
			t.SettlePromise(p, arg(rargs, 0), true)
			return jsvalue.Undefined, nil
		})
		if executor.Kind() == jsvalue.KindPointer {
			if _, err := t.Call(executor, jsvalue.Undefined, []jsvalue.Value{resolve, reject}, jsvalue.Undefined); err != nil {
				if ev, ok := err.(interp.ThrownValue); ok {
					t.SettlePromise(p, ev.Value, true)
				} else {
					t.SettlePromise(p, t.StringValue(err.Error()), true)
				}
			}
		}
		return p, nil
	})
	r.staticMethod(r.promiseCtor, "resolve", 1, func(t *interp.VmThread, _ jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		v := arg(args, 0)
		if _, ok := t.Heap.Promise(v); ok {
			return v, nil
		}
		p := r.newPromiseValue()
		r.resolvePromise(p, v)
		return p, nil
	})
	r.staticMethod(r.promiseCtor, "reject", 1, func(t *interp.VmThread, _ jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		p := r.newPromiseValue()
		t.SettlePromise(p, arg(args, 0), true)
		return p, nil
	})
	r.staticMethod(r.promiseCtor, "all", 1, func(t *interp.VmThread, _ jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		return r.combinator(arg(args, 0), allCombinator), nil
	})
	r.staticMethod(r.promiseCtor, "allSettled", 1, func(t *interp.VmThread, _ jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		return r.combinator(arg(args, 0), allSettledCombinator), nil
	})
	r.staticMethod(r.promiseCtor, "race", 1, func(t *interp.VmThread, _ jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		return r.combinator(arg(args, 0), raceCombinator), nil
	})
	r.staticMethod(r.promiseCtor, "any", 1, func(t *interp.VmThread, _ jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		return r.combinator(arg(args, 0), anyCombinator), nil
	})
}

// resolvePromise implements the executor's resolve(value) callback:
// adopting another promise's eventual state when value is itself a
// promise, settling fulfilled immediately otherwise.
func (r *Realm) resolvePromise(p, value jsvalue.Value) {
	t := r.t
	if _, ok := t.Heap.Promise(value); ok {
		t.SubscribePromise(value, func(v jsvalue.Value, rejected bool) {
			t.SettlePromise(p, v, rejected)
		}, p)
		return
	}
	t.SettlePromise(p, value, false)
}

// runReaction backs .then/.catch: invokes the matching handler (if
// callable) with the settled value/reason, settling derived with the
// handler's return value, or passes the original value/rejection
// through untouched when no handler was given.
func (r *Realm) runReaction(derived, value jsvalue.Value, rejected bool, onFulfilled, onRejected jsvalue.Value) {
	t := r.t
	handler := onFulfilled
	if rejected {
		handler = onRejected
	}
	if handler.Kind() != jsvalue.KindPointer {
		t.SettlePromise(derived, value, rejected)
		return
	}
	if _, callable := t.Heap.Closure(handler); !callable {
		t.SettlePromise(derived, value, rejected)
		return
	}
	result, err := t.Call(handler, jsvalue.Undefined, []jsvalue.Value{value}, jsvalue.Undefined)
	if err != nil {
		if ev, ok := err.(interp.ThrownValue); ok {
			t.SettlePromise(derived, ev.Value, true)
		} else {
			t.SettlePromise(derived, t.StringValue(err.Error()), true)
		}
		return
	}
	r.resolvePromise(derived, result)
}

type combinatorKind uint8

const (
	allCombinator combinatorKind = iota
	allSettledCombinator
	raceCombinator
	anyCombinator
)

// combinator implements Promise.all/allSettled/race/any over an
// iterable (this engine's array-shaped approximation of one: an
// actual Array value, since no other iterable is in scope here).
func (r *Realm) combinator(iterable jsvalue.Value, kind combinatorKind) jsvalue.Value {
	t := r.t
	result := r.newPromiseValue()
	arr, ok := t.Heap.Object(iterable)
	if !ok {
		t.SettlePromise(result, t.NewErrorValue("TypeError", "argument is not iterable"), true)
		return result
	}
	items := arr.Elements()
	n := len(items)
	if n == 0 {
		switch kind {
		case raceCombinator:
			// stays pending forever, matching the spec
		case anyCombinator:
			t.SettlePromise(result, t.NewErrorValue("AggregateError", "All promises were rejected"), true)
		default:
			empty := t.Heap.NewArray(t.Graph, r.ArrayProto)
			t.SettlePromise(result, empty, false)
		}
		return result
	}

	values := make([]jsvalue.Value, n)
	remaining := n
	settled := false

	for i, item := range items {
		i := i
		onSettle := func(value jsvalue.Value, rejected bool) {
			if settled {
				return
			}
			switch kind {
			case raceCombinator:
				settled = true
				t.SettlePromise(result, value, rejected)
			case anyCombinator:
				if !rejected {
					settled = true
					t.SettlePromise(result, value, false)
					return
				}
				remaining--
				if remaining == 0 {
					settled = true
					t.SettlePromise(result, t.NewErrorValue("AggregateError", "All promises were rejected"), true)
				}
			case allCombinator:
				if rejected {
					settled = true
					t.SettlePromise(result, value, true)
					return
				}
				values[i] = value
				remaining--
				if remaining == 0 {
					settled = true
					out := t.Heap.NewArray(t.Graph, r.ArrayProto)
					oo, _ := t.Heap.Object(out)
					for _, v := range values {
						oo.AppendElement(v)
					}
					t.SettlePromise(result, out, false)
				}
			case allSettledCombinator:
				values[i] = r.settledResultObject(value, rejected)
				remaining--
				if remaining == 0 {
					settled = true
					out := t.Heap.NewArray(t.Graph, r.ArrayProto)
					oo, _ := t.Heap.Object(out)
					for _, v := range values {
						oo.AppendElement(v)
					}
					t.SettlePromise(result, out, false)
				}
			}
		}
		if _, ok := t.Heap.Promise(item); ok {
			t.SubscribePromise(item, onSettle, result)
		} else {
			onSettle(item, false)
		}
	}
	return result
}

func (r *Realm) settledResultObject(value jsvalue.Value, rejected bool) jsvalue.Value {
	t := r.t
	v := newPlainObject(t, r.ObjectProto)
	o, _ := t.Heap.Object(v)
	if rejected {
		defineValue(o, strKey("status"), t.StringValue("rejected"), true, true, true)
		defineValue(o, strKey("reason"), value, true, true, true)
	} else {
		defineValue(o, strKey("status"), t.StringValue("fulfilled"), true, true, true)
		defineValue(o, strKey("value"), value, true, true, true)
	}
	return v
}
