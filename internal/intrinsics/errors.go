package intrinsics

import (
	"github.com/octofhir/otter-vm/internal/interp"
	"github.com/octofhir/otter-vm/internal/jsobject"
	"github.com/octofhir/otter-vm/internal/jsvalue"
)

// errorSubclasses are the built-in Error subtypes spec.md's Error
// family names, besides the base Error itself.
var errorSubclasses = []string{"TypeError", "RangeError", "ReferenceError", "SyntaxError", "EvalError", "URIError", "AggregateError"}

// populateErrors builds Error.prototype (name/message/toString, shared
// by every subclass prototype through the chain wire() already set
// up), then Error itself and each subclass's own constructor.
func (r *Realm) populateErrors() {
	t := r.t
	proto := r.ErrorProto

	defineMethod(t, proto, "toString", 0, func(t *interp.VmThread, this jsvalue.Value, _ []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		obj, ok := t.Heap.Object(this)
		if !ok {
			return t.StringValue("Error"), nil
		}
		name := "Error"
		if nv, err := jsobject.Get(obj, strKey("name"), this, t.CallFunc()); err == nil && !nv.IsUndefined() {
			name = t.ToString(nv)
		}
		msg := ""
		if mv, err := jsobject.Get(obj, strKey("message"), this, t.CallFunc()); err == nil && !mv.IsUndefined() {
			msg = t.ToString(mv)
		}
		if msg == "" {
			return t.StringValue(name), nil
		}
		return t.StringValue(name + ": " + msg), nil
	})
	defineValue(proto, strKey("name"), t.StringValue("Error"), true, false, true)
	defineValue(proto, strKey("message"), t.StringValue(""), true, false, true)

	r.errorCtors["Error"] = r.newConstructor("Error", 1, proto, r.errorConstructFn(proto, "Error"))

	for _, name := range errorSubclasses {
		subProto := r.subErrorProtos[name]
		defineValue(subProto, strKey("name"), t.StringValue(name), true, false, true)
		if name == "AggregateError" {
			r.errorCtors[name] = r.newConstructor(name, 2, subProto, r.aggregateErrorConstructFn(subProto))
			continue
		}
		r.errorCtors[name] = r.newConstructor(name, 1, subProto, r.errorConstructFn(subProto, name))
	}
}

// aggregateErrorConstructFn builds AggregateError's constructor, which
// takes an iterable of errors as its first argument (collected eagerly
// into an `errors` own-array) instead of a message first, per
// ECMA-262's AggregateError(errors, message) shape.
func (r *Realm) aggregateErrorConstructFn(proto *jsobject.Object) interp.NativeFunc {
	return func(t *interp.VmThread, _ jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		v := newPlainObject(t, proto)
		obj, _ := t.Heap.Object(v)
		errsVal := t.Heap.NewArray(t.Graph, r.ArrayProto)
		errsObj, _ := t.Heap.Object(errsVal)
		iter := t.GetIteratorValue(arg(args, 0))
		for {
			next, done := t.IteratorNextValue(iter)
			if done {
				break
			}
			errsObj.AppendElement(next)
		}
		_ = jsobject.DefineProperty(obj, strKey("errors"), jsobject.PropertyDescriptor{Value: errsVal, Writable: true, Configurable: true})
		if len(args) > 1 && !arg(args, 1).IsUndefined() {
			msg := t.ToString(arg(args, 1))
			_ = jsobject.DefineProperty(obj, strKey("message"), jsobject.PropertyDescriptor{Value: t.StringValue(msg), Writable: true, Configurable: true})
		}
		_ = jsobject.DefineProperty(obj, strKey("stack"), jsobject.PropertyDescriptor{
			Value: t.StringValue("AggregateError\n    at <anonymous>"), Writable: true, Configurable: true,
		})
		return v, nil
	}
}

// errorConstructFn builds the shared Error/TypeError/... constructor
// body: a fresh object under proto carrying message (from arg 0, if
// given) and a best-effort stack string.
func (r *Realm) errorConstructFn(proto *jsobject.Object, name string) interp.NativeFunc {
	return func(t *interp.VmThread, _ jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		v := newPlainObject(t, proto)
		obj, _ := t.Heap.Object(v)
		if len(args) > 0 && !arg(args, 0).IsUndefined() {
			msg := t.ToString(arg(args, 0))
			_ = jsobject.DefineProperty(obj, strKey("message"), jsobject.PropertyDescriptor{Value: t.StringValue(msg), Writable: true, Configurable: true})
		}
		_ = jsobject.DefineProperty(obj, strKey("stack"), jsobject.PropertyDescriptor{
			Value: t.StringValue(name + "\n    at <anonymous>"), Writable: true, Configurable: true,
		})
		return v, nil
	}
}

// makeError is VmThread.ErrorFactory's implementation once intrinsics
// are installed (see intrinsics.go's install): builds a real
// Error-subclass instance instead of newErrorValue's bare-object
// fallback, so instanceof and .toString work on interpreter-raised
// errors the same as on user-thrown ones.
func (r *Realm) makeError(name, message string) jsvalue.Value {
	ctor, ok := r.errorCtors[name]
	if !ok {
		ctor = r.errorCtors["Error"]
	}
	cl, _ := r.t.Heap.Closure(ctor)
	v, err := r.t.Call(ctor, jsvalue.Undefined, []jsvalue.Value{r.t.StringValue(message)}, ctor)
	if err != nil {
		// The constructor itself never throws; fall back to a bare
		// object rather than recursing into ErrorFactory.
		return r.t.Heap.NewObject(r.t.Graph, cl.Statics)
	}
	return v
}
