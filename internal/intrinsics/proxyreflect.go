package intrinsics

import (
	"github.com/octofhir/otter-vm/internal/interp"
	"github.com/octofhir/otter-vm/internal/jsobject"
	"github.com/octofhir/otter-vm/internal/jsvalue"
)

// populateProxyReflect builds the Proxy constructor (spec.md section
// 4.C's "{ target, handler }" exotic object, always megamorphic to the
// IC) and the Reflect namespace, whose methods are the same
// trap-or-fall-through operations Proxy itself defers to - grounded on
// internal/jsobject/proxy.go's ProxyGet/ProxySet/ProxyHas plus the
// jsobject.Get/Set/Has/Delete/DefineProperty slow path Reflect exposes
// directly to script without going through a receiver object at all.
func (r *Realm) populateProxyReflect() {
	t := r.t

	r.proxyCtor = nativeFunc(t, "Proxy", 2, func(t *interp.VmThread, _ jsvalue.Value, args []jsvalue.Value, newTarget jsvalue.Value) (jsvalue.Value, error) {
		if newTarget.IsUndefined() {
			t.ThrowTypeError("Constructor Proxy requires 'new'")
		}
		target, ok := t.Heap.Object(arg(args, 0))
		if !ok {
			t.ThrowTypeError("Cannot create proxy with a non-object as target")
		}
		handler, ok := t.Heap.Object(arg(args, 1))
		if !ok {
			t.ThrowTypeError("Cannot create proxy with a non-object as handler")
		}
		return t.Heap.NewProxy(&jsobject.Proxy{Target: target, Handler: handler}), nil
	})

	ro := r.ReflectObj
	defineMethod(t, ro, "get", 2, func(t *interp.VmThread, _ jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		target := reflectTarget(t, arg(args, 0), "get")
		key := t.ToPropertyKey(arg(args, 1))
		receiver := arg(args, 0)
		if len(args) > 2 {
			receiver = args[2]
		}
		return jsobject.Get(target, key, receiver, t.CallFunc())
	})
	defineMethod(t, ro, "set", 3, func(t *interp.VmThread, _ jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		target := reflectTarget(t, arg(args, 0), "set")
		key := t.ToPropertyKey(arg(args, 1))
		receiver := arg(args, 0)
		if len(args) > 3 {
			receiver = args[3]
		}
		if err := jsobject.Set(target, key, arg(args, 2), receiver, true, t.CallFunc()); err != nil {
			return jsvalue.Boolean(false), nil
		}
		return jsvalue.Boolean(true), nil
	})
	defineMethod(t, ro, "has", 2, func(t *interp.VmThread, _ jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		target := reflectTarget(t, arg(args, 0), "has")
		return jsvalue.Boolean(jsobject.Has(target, t.ToPropertyKey(arg(args, 1)))), nil
	})
	defineMethod(t, ro, "deleteProperty", 2, func(t *interp.VmThread, _ jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		target := reflectTarget(t, arg(args, 0), "deleteProperty")
		ok, err := jsobject.Delete(target, t.ToPropertyKey(arg(args, 1)))
		if err != nil {
			return jsvalue.Boolean(false), nil
		}
		return jsvalue.Boolean(ok), nil
	})
	defineMethod(t, ro, "ownKeys", 1, func(t *interp.VmThread, _ jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		target := reflectTarget(t, arg(args, 0), "ownKeys")
		out := t.Heap.NewArray(t.Graph, r.ArrayProto)
		oo, _ := t.Heap.Object(out)
		for _, k := range jsobject.Keys(target) {
			if k.Kind() == jsobject.KeySymbol {
				oo.AppendElement(t.Heap.NewSymbol(k.SymbolID(), k.String()))
				continue
			}
			oo.AppendElement(t.StringValue(keyString(t, k)))
		}
		return out, nil
	})
	defineMethod(t, ro, "defineProperty", 3, func(t *interp.VmThread, _ jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		target := reflectTarget(t, arg(args, 0), "defineProperty")
		key := t.ToPropertyKey(arg(args, 1))
		desc := descriptorFromObject(t, arg(args, 2))
		if err := jsobject.DefineProperty(target, key, desc); err != nil {
			return jsvalue.Boolean(false), nil
		}
		return jsvalue.Boolean(true), nil
	})
	defineMethod(t, ro, "getOwnPropertyDescriptor", 2, func(t *interp.VmThread, _ jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		target := reflectTarget(t, arg(args, 0), "getOwnPropertyDescriptor")
		d, ok := jsobject.GetOwnPropertyDescriptor(target, t.ToPropertyKey(arg(args, 1)))
		if !ok {
			return jsvalue.Undefined, nil
		}
		return r.descriptorToObject(d), nil
	})
	defineMethod(t, ro, "getPrototypeOf", 1, func(t *interp.VmThread, _ jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		target := reflectTarget(t, arg(args, 0), "getPrototypeOf")
		if target.Prototype() == nil {
			return jsvalue.Null, nil
		}
		return t.Heap.ValueForObject(target.Prototype()), nil
	})
	defineMethod(t, ro, "setPrototypeOf", 2, func(t *interp.VmThread, _ jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		target := reflectTarget(t, arg(args, 0), "setPrototypeOf")
		proto, _ := t.Heap.Object(arg(args, 1))
		target.SetPrototype(proto)
		return jsvalue.Boolean(true), nil
	})
	defineMethod(t, ro, "isExtensible", 1, func(t *interp.VmThread, _ jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		reflectTarget(t, arg(args, 0), "isExtensible")
		return jsvalue.Boolean(true), nil
	})
	defineMethod(t, ro, "preventExtensions", 1, func(t *interp.VmThread, _ jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		reflectTarget(t, arg(args, 0), "preventExtensions")
		return jsvalue.Boolean(true), nil
	})
	defineMethod(t, ro, "apply", 3, func(t *interp.VmThread, _ jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		callee := arg(args, 0)
		this := arg(args, 1)
		argList := argsArray(t, arg(args, 2))
		return t.Call(callee, this, argList, jsvalue.Undefined)
	})
	defineMethod(t, ro, "construct", 2, func(t *interp.VmThread, _ jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		callee := arg(args, 0)
		argList := argsArray(t, arg(args, 1))
		newTarget := callee
		if len(args) > 2 {
			newTarget = args[2]
		}
		return t.Construct(callee, argList, newTarget)
	})
}

// reflectTarget resolves a Reflect.* first argument to its backing
// *jsobject.Object, throwing TypeError the way every Reflect operation
// must when called with a non-object target (ECMA-262 28.1's shared
// "target is not an Object" failure across the whole namespace).
func reflectTarget(t *interp.VmThread, v jsvalue.Value, method string) *jsobject.Object {
	obj, ok := t.Heap.Object(v)
	if !ok {
		t.ThrowTypeError("Reflect.%s called on non-object", method)
	}
	return obj
}

// argsArray reads a Reflect.apply/construct argument-list value's
// elements into a Go slice; a non-array-like value is treated as an
// empty argument list rather than throwing, matching how this engine
// already tolerates missing arguments elsewhere (see arg()).
func argsArray(t *interp.VmThread, v jsvalue.Value) []jsvalue.Value {
	obj, ok := t.Heap.Object(v)
	if !ok {
		return nil
	}
	return obj.Elements()
}

// descriptorToObject is the inverse of descriptorFromObject: builds
// the plain {value,writable,enumerable,configurable} or
// {get,set,enumerable,configurable} object Object/Reflect's
// getOwnPropertyDescriptor-family operations return.
func (r *Realm) descriptorToObject(d jsobject.PropertyDescriptor) jsvalue.Value {
	t := r.t
	v := newPlainObject(t, r.ObjectProto)
	obj, _ := t.Heap.Object(v)
	if d.IsAccessor {
		defineValue(obj, strKey("get"), d.Getter, true, true, true)
		defineValue(obj, strKey("set"), d.Setter, true, true, true)
	} else {
		defineValue(obj, strKey("value"), d.Value, true, true, true)
		defineValue(obj, strKey("writable"), jsvalue.Boolean(d.Writable), true, true, true)
	}
	defineValue(obj, strKey("enumerable"), jsvalue.Boolean(d.Enumerable), true, true, true)
	defineValue(obj, strKey("configurable"), jsvalue.Boolean(d.Configurable), true, true, true)
	return v
}
