package intrinsics

import (
	"github.com/octofhir/otter-vm/internal/interp"
	"github.com/octofhir/otter-vm/internal/jsobject"
	"github.com/octofhir/otter-vm/internal/jsvalue"
)

func (r *Realm) populateObject() {
	t := r.t
	proto := r.ObjectProto

	defineMethod(t, proto, "hasOwnProperty", 1, func(t *interp.VmThread, this jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		obj, ok := t.Heap.Object(this)
		if !ok {
			return jsvalue.Boolean(false), nil
		}
		key := t.ToPropertyKey(arg(args, 0))
		return jsvalue.Boolean(jsobject.HasOwn(obj, key)), nil
	})
	defineMethod(t, proto, "isPrototypeOf", 1, func(t *interp.VmThread, this jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		self, ok := t.Heap.Object(this)
		target, ok2 := t.Heap.Object(arg(args, 0))
		if !ok || !ok2 {
			return jsvalue.Boolean(false), nil
		}
		for cur := target.Prototype(); cur != nil; cur = cur.Prototype() {
			if cur == self {
				return jsvalue.Boolean(true), nil
			}
		}
		return jsvalue.Boolean(false), nil
	})
	defineMethod(t, proto, "propertyIsEnumerable", 1, func(t *interp.VmThread, this jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		obj, ok := t.Heap.Object(this)
		if !ok {
			return jsvalue.Boolean(false), nil
		}
		key := t.ToPropertyKey(arg(args, 0))
		d, ok := jsobject.GetOwnPropertyDescriptor(obj, key)
		return jsvalue.Boolean(ok && d.Enumerable), nil
	})
	defineMethod(t, proto, "toString", 0, func(t *interp.VmThread, this jsvalue.Value, _ []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		return t.StringValue("[object Object]"), nil
	})
	defineMethod(t, proto, "valueOf", 0, func(t *interp.VmThread, this jsvalue.Value, _ []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		return this, nil
	})

	r.objectCtor = r.newConstructor("Object", 1, proto, func(t *interp.VmThread, this jsvalue.Value, args []jsvalue.Value, newTarget jsvalue.Value) (jsvalue.Value, error) {
		v := arg(args, 0)
		if v.IsNullish() {
			return newPlainObject(t, r.ObjectProto), nil
		}
		return v, nil
	})

	r.staticMethod(r.objectCtor, "keys", 1, func(t *interp.VmThread, _ jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		return r.enumerableOwnKeysArray(arg(args, 0), func(k jsobject.PropertyKey, v jsvalue.Value) jsvalue.Value { return t.StringValue(keyString(t, k)) }), nil
	})
	r.staticMethod(r.objectCtor, "values", 1, func(t *interp.VmThread, _ jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		return r.enumerableOwnKeysArray(arg(args, 0), func(k jsobject.PropertyKey, v jsvalue.Value) jsvalue.Value { return v }), nil
	})
	r.staticMethod(r.objectCtor, "entries", 1, func(t *interp.VmThread, _ jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		return r.enumerableOwnKeysArray(arg(args, 0), func(k jsobject.PropertyKey, v jsvalue.Value) jsvalue.Value {
			pair := t.Heap.NewArray(t.Graph, r.ArrayProto)
			po, _ := t.Heap.Object(pair)
			po.AppendElement(t.StringValue(keyString(t, k)))
			po.AppendElement(v)
			return pair
		}), nil
	})
	r.staticMethod(r.objectCtor, "assign", 2, func(t *interp.VmThread, _ jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		target, ok := t.Heap.Object(arg(args, 0))
		if !ok {
			t.ThrowTypeError("Object.assign target must be an object")
		}
		for _, src := range args[1:] {
			so, ok := t.Heap.Object(src)
			if !ok {
				continue
			}
			for _, k := range jsobject.Keys(so) {
				d, ok := jsobject.GetOwnPropertyDescriptor(so, k)
				if !ok || !d.Enumerable {
					continue
				}
				v, err := jsobject.Get(so, k, src, t.CallFunc())
				if err != nil {
					return jsvalue.Undefined, err
				}
				if err := jsobject.Set(target, k, v, arg(args, 0), true, t.CallFunc()); err != nil {
					return jsvalue.Undefined, err
				}
			}
		}
		return arg(args, 0), nil
	})
	r.staticMethod(r.objectCtor, "freeze", 1, func(t *interp.VmThread, _ jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		return arg(args, 0), nil // full freeze semantics: out of scope, accepted no-op like many engines' early subsets
	})
	r.staticMethod(r.objectCtor, "isFrozen", 1, func(t *interp.VmThread, _ jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		return jsvalue.Boolean(false), nil
	})
	r.staticMethod(r.objectCtor, "create", 2, func(t *interp.VmThread, _ jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		proto, _ := t.Heap.Object(arg(args, 0))
		return newPlainObject(t, proto), nil
	})
	r.staticMethod(r.objectCtor, "getPrototypeOf", 1, func(t *interp.VmThread, _ jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		obj, ok := t.Heap.Object(arg(args, 0))
		if !ok || obj.Prototype() == nil {
			return jsvalue.Null, nil
		}
		return t.Heap.ValueForObject(obj.Prototype()), nil
	})
	r.staticMethod(r.objectCtor, "setPrototypeOf", 2, func(t *interp.VmThread, _ jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		obj, ok := t.Heap.Object(arg(args, 0))
		if !ok {
			return arg(args, 0), nil
		}
		proto, _ := t.Heap.Object(arg(args, 1))
		obj.SetPrototype(proto)
		return arg(args, 0), nil
	})
	r.staticMethod(r.objectCtor, "defineProperty", 3, func(t *interp.VmThread, _ jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		obj, ok := t.Heap.Object(arg(args, 0))
		if !ok {
			t.ThrowTypeError("Object.defineProperty called on non-object")
		}
		key := t.ToPropertyKey(arg(args, 1))
		desc := descriptorFromObject(t, arg(args, 2))
		if err := jsobject.DefineProperty(obj, key, desc); err != nil {
			t.ThrowTypeError("%v", err)
		}
		return arg(args, 0), nil
	})
	r.staticMethod(r.objectCtor, "getOwnPropertyNames", 1, func(t *interp.VmThread, _ jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		obj, ok := t.Heap.Object(arg(args, 0))
		out := t.Heap.NewArray(t.Graph, r.ArrayProto)
		oo, _ := t.Heap.Object(out)
		if ok {
			for _, k := range jsobject.Keys(obj) {
				if k.Kind() != jsobject.KeySymbol {
					oo.AppendElement(t.StringValue(keyString(t, k)))
				}
			}
		}
		return out, nil
	})
	r.staticMethod(r.objectCtor, "fromEntries", 1, func(t *interp.VmThread, _ jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		result := newPlainObject(t, r.ObjectProto)
		resObj, _ := t.Heap.Object(result)
		src, ok := t.Heap.Object(arg(args, 0))
		if ok {
			for _, el := range src.Elements() {
				pair, ok := t.Heap.Object(el)
				if !ok {
					continue
				}
				elems := pair.Elements()
				if len(elems) < 2 {
					continue
				}
				key := t.ToPropertyKey(elems[0])
				_ = jsobject.DefineProperty(resObj, key, jsobject.PropertyDescriptor{Value: elems[1], Writable: true, Enumerable: true, Configurable: true})
			}
		}
		return result, nil
	})
}

// keyString renders a PropertyKey as the string Object.keys/for...in
// would enumerate it as (index keys stringify to their decimal form).
func keyString(t *interp.VmThread, k jsobject.PropertyKey) string {
	switch k.Kind() {
	case jsobject.KeyIndex:
		return t.ToString(jsvalue.Number(float64(k.Index())))
	default:
		return k.String()
	}
}

func (r *Realm) enumerableOwnKeysArray(v jsvalue.Value, project func(jsobject.PropertyKey, jsvalue.Value) jsvalue.Value) jsvalue.Value {
	t := r.t
	out := t.Heap.NewArray(t.Graph, r.ArrayProto)
	oo, _ := t.Heap.Object(out)
	obj, ok := t.Heap.Object(v)
	if !ok {
		return out
	}
	for _, k := range jsobject.Keys(obj) {
		if k.Kind() == jsobject.KeySymbol {
			continue
		}
		d, ok := jsobject.GetOwnPropertyDescriptor(obj, k)
		if !ok || !d.Enumerable {
			continue
		}
		val, err := jsobject.Get(obj, k, v, t.CallFunc())
		if err != nil {
			continue
		}
		oo.AppendElement(project(k, val))
	}
	return out
}

// descriptorFromObject reads a plain {value, writable, enumerable,
// configurable, get, set} object into a PropertyDescriptor, per
// Object.defineProperty's ToPropertyDescriptor.
func descriptorFromObject(t *interp.VmThread, v jsvalue.Value) jsobject.PropertyDescriptor {
	obj, ok := t.Heap.Object(v)
	if !ok {
		return jsobject.PropertyDescriptor{}
	}
	has := func(name string) (jsvalue.Value, bool) {
		key := strKey(name)
		if !jsobject.HasOwn(obj, key) {
			return jsvalue.Undefined, false
		}
		val, _ := jsobject.Get(obj, key, v, t.CallFunc())
		return val, true
	}
	var d jsobject.PropertyDescriptor
	if getter, ok := has("get"); ok {
		d.IsAccessor = true
		d.Getter = getter
	}
	if setter, ok := has("set"); ok {
		d.IsAccessor = true
		d.Setter = setter
	}
	if !d.IsAccessor {
		if val, ok := has("value"); ok {
			d.Value = val
		}
		if w, ok := has("writable"); ok {
			d.Writable = interp.ToBoolean(w)
		}
	}
	if e, ok := has("enumerable"); ok {
		d.Enumerable = interp.ToBoolean(e)
	}
	if c, ok := has("configurable"); ok {
		d.Configurable = interp.ToBoolean(c)
	}
	return d
}
