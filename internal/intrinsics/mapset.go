package intrinsics

import (
	"github.com/octofhir/otter-vm/internal/interp"
	"github.com/octofhir/otter-vm/internal/jsobject"
	"github.com/octofhir/otter-vm/internal/jsvalue"
)

// collectionData backs Map/Set/WeakMap/WeakSet instances. It lives in
// collectionPayloads, a package-level side table keyed by the
// instance's *jsobject.Object, since
// jsobject.Object has no generic extra-payload slot of its own -
// mirroring how Promise/BigInt/Symbol get their own CellKind instead.
// Map/Set stay plain CellObject instances carrying this table so
// `instanceof` and prototype method dispatch work unchanged.
type mapEntry struct {
	key, value jsvalue.Value
}

type collectionData struct {
	entries []mapEntry // Map: key+value; Set: value only (key unused)
	isWeak  bool
}

var collectionPayloads = map[*jsobject.Object]*collectionData{}

func payloadFor(o *jsobject.Object) *collectionData {
	d, ok := collectionPayloads[o]
	if !ok {
		d = &collectionData{}
		collectionPayloads[o] = d
	}
	return d
}

func sameValueZero(t *interp.VmThread, a, b jsvalue.Value) bool {
	if a.IsNumber() && b.IsNumber() {
		an, _ := a.AsNumber()
		bn, _ := b.AsNumber()
		if an != an && bn != bn { // both NaN
			return true
		}
		return an == bn
	}
	return jsvalue.StrictEquals(a, b)
}

func (d *collectionData) find(t *interp.VmThread, key jsvalue.Value) int {
	for i, e := range d.entries {
		if sameValueZero(t, e.key, key) {
			return i
		}
	}
	return -1
}

func (r *Realm) populateMapSet() {
	t := r.t

	// --- Map ---
	mp := r.MapProto
	defineMethod(t, mp, "get", 1, func(t *interp.VmThread, this jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		o := thisObject(t, this, "Map.prototype.get")
		d := payloadFor(o)
		if i := d.find(t, arg(args, 0)); i >= 0 {
			return d.entries[i].value, nil
		}
		return jsvalue.Undefined, nil
	})
	defineMethod(t, mp, "set", 2, func(t *interp.VmThread, this jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		o := thisObject(t, this, "Map.prototype.set")
		d := payloadFor(o)
		k, v := arg(args, 0), arg(args, 1)
		if i := d.find(t, k); i >= 0 {
			d.entries[i].value = v
		} else {
			d.entries = append(d.entries, mapEntry{k, v})
		}
		return this, nil
	})
	defineMethod(t, mp, "has", 1, func(t *interp.VmThread, this jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		o := thisObject(t, this, "Map.prototype.has")
		return jsvalue.Boolean(payloadFor(o).find(t, arg(args, 0)) >= 0), nil
	})
	defineMethod(t, mp, "delete", 1, func(t *interp.VmThread, this jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		o := thisObject(t, this, "Map.prototype.delete")
		d := payloadFor(o)
		if i := d.find(t, arg(args, 0)); i >= 0 {
			d.entries = append(d.entries[:i], d.entries[i+1:]...)
			return jsvalue.Boolean(true), nil
		}
		return jsvalue.Boolean(false), nil
	})
	defineMethod(t, mp, "clear", 0, func(t *interp.VmThread, this jsvalue.Value, _ []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		o := thisObject(t, this, "Map.prototype.clear")
		payloadFor(o).entries = nil
		return jsvalue.Undefined, nil
	})
	defineMethod(t, mp, "forEach", 1, func(t *interp.VmThread, this jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		o := thisObject(t, this, "Map.prototype.forEach")
		cb := arg(args, 0)
		for _, e := range append([]mapEntry(nil), payloadFor(o).entries...) {
			if _, err := t.Call(cb, arg(args, 1), []jsvalue.Value{e.value, e.key, this}, jsvalue.Undefined); err != nil {
				return jsvalue.Undefined, err
			}
		}
		return jsvalue.Undefined, nil
	})
	_ = jsobject.DefineAccessor(mp, strKey("size"), nativeFunc(t, "size", 0, func(t *interp.VmThread, this jsvalue.Value, _ []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		o := thisObject(t, this, "Map.prototype.size")
		return jsvalue.Number(float64(len(payloadFor(o).entries))), nil
	}), jsvalue.Undefined, false, true)
	defineMethod(t, mp, "keys", 0, func(t *interp.VmThread, this jsvalue.Value, _ []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		return r.mapSetIterator(this, func(e mapEntry) jsvalue.Value { return e.key }), nil
	})
	defineMethod(t, mp, "values", 0, func(t *interp.VmThread, this jsvalue.Value, _ []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		return r.mapSetIterator(this, func(e mapEntry) jsvalue.Value { return e.value }), nil
	})
	defineMethod(t, mp, "entries", 0, func(t *interp.VmThread, this jsvalue.Value, _ []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		return r.mapSetIterator(this, func(e mapEntry) jsvalue.Value {
			return r.pairArray(e.key, e.value)
		}), nil
	})

	r.mapCtor = r.newConstructor("Map", 0, mp, func(t *interp.VmThread, _ jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		v := newPlainObject(t, mp)
		o, _ := t.Heap.Object(v)
		d := payloadFor(o)
		r.seedEntries(t, d, arg(args, 0), true)
		return v, nil
	})
	r.weakMapCtor = r.newConstructor("WeakMap", 0, r.WeakMapProto, func(t *interp.VmThread, _ jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		v := newPlainObject(t, r.WeakMapProto)
		o, _ := t.Heap.Object(v)
		d := payloadFor(o)
		d.isWeak = true
		r.seedEntries(t, d, arg(args, 0), true)
		return v, nil
	})
	defineMethod(t, r.WeakMapProto, "get", 1, func(t *interp.VmThread, this jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		o := thisObject(t, this, "WeakMap.prototype.get")
		if i := payloadFor(o).find(t, arg(args, 0)); i >= 0 {
			return payloadFor(o).entries[i].value, nil
		}
		return jsvalue.Undefined, nil
	})
	defineMethod(t, r.WeakMapProto, "set", 2, func(t *interp.VmThread, this jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		o := thisObject(t, this, "WeakMap.prototype.set")
		d := payloadFor(o)
		k, v := arg(args, 0), arg(args, 1)
		if i := d.find(t, k); i >= 0 {
			d.entries[i].value = v
		} else {
			d.entries = append(d.entries, mapEntry{k, v})
		}
		return this, nil
	})
	defineMethod(t, r.WeakMapProto, "has", 1, func(t *interp.VmThread, this jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		o := thisObject(t, this, "WeakMap.prototype.has")
		return jsvalue.Boolean(payloadFor(o).find(t, arg(args, 0)) >= 0), nil
	})
	defineMethod(t, r.WeakMapProto, "delete", 1, func(t *interp.VmThread, this jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		o := thisObject(t, this, "WeakMap.prototype.delete")
		d := payloadFor(o)
		if i := d.find(t, arg(args, 0)); i >= 0 {
			d.entries = append(d.entries[:i], d.entries[i+1:]...)
			return jsvalue.Boolean(true), nil
		}
		return jsvalue.Boolean(false), nil
	})

	// --- Set ---
	sp := r.SetProto
	defineMethod(t, sp, "add", 1, func(t *interp.VmThread, this jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		o := thisObject(t, this, "Set.prototype.add")
		d := payloadFor(o)
		v := arg(args, 0)
		if d.find(t, v) < 0 {
			d.entries = append(d.entries, mapEntry{v, v})
		}
		return this, nil
	})
	defineMethod(t, sp, "has", 1, func(t *interp.VmThread, this jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		o := thisObject(t, this, "Set.prototype.has")
		return jsvalue.Boolean(payloadFor(o).find(t, arg(args, 0)) >= 0), nil
	})
	defineMethod(t, sp, "delete", 1, func(t *interp.VmThread, this jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		o := thisObject(t, this, "Set.prototype.delete")
		d := payloadFor(o)
		if i := d.find(t, arg(args, 0)); i >= 0 {
			d.entries = append(d.entries[:i], d.entries[i+1:]...)
			return jsvalue.Boolean(true), nil
		}
		return jsvalue.Boolean(false), nil
	})
	defineMethod(t, sp, "clear", 0, func(t *interp.VmThread, this jsvalue.Value, _ []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		o := thisObject(t, this, "Set.prototype.clear")
		payloadFor(o).entries = nil
		return jsvalue.Undefined, nil
	})
	defineMethod(t, sp, "forEach", 1, func(t *interp.VmThread, this jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		o := thisObject(t, this, "Set.prototype.forEach")
		cb := arg(args, 0)
		for _, e := range append([]mapEntry(nil), payloadFor(o).entries...) {
			if _, err := t.Call(cb, arg(args, 1), []jsvalue.Value{e.value, e.value, this}, jsvalue.Undefined); err != nil {
				return jsvalue.Undefined, err
			}
		}
		return jsvalue.Undefined, nil
	})
	_ = jsobject.DefineAccessor(sp, strKey("size"), nativeFunc(t, "size", 0, func(t *interp.VmThread, this jsvalue.Value, _ []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		o := thisObject(t, this, "Set.prototype.size")
		return jsvalue.Number(float64(len(payloadFor(o).entries))), nil
	}), jsvalue.Undefined, false, true)
	defineMethod(t, sp, "values", 0, func(t *interp.VmThread, this jsvalue.Value, _ []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		return r.mapSetIterator(this, func(e mapEntry) jsvalue.Value { return e.value }), nil
	})
	defineMethod(t, sp, "keys", 0, func(t *interp.VmThread, this jsvalue.Value, _ []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		return r.mapSetIterator(this, func(e mapEntry) jsvalue.Value { return e.value }), nil
	})

	r.setCtor = r.newConstructor("Set", 0, sp, func(t *interp.VmThread, _ jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		v := newPlainObject(t, sp)
		o, _ := t.Heap.Object(v)
		d := payloadFor(o)
		r.seedEntries(t, d, arg(args, 0), false)
		return v, nil
	})
	r.weakSetCtor = r.newConstructor("WeakSet", 0, r.WeakSetProto, func(t *interp.VmThread, _ jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		v := newPlainObject(t, r.WeakSetProto)
		o, _ := t.Heap.Object(v)
		d := payloadFor(o)
		d.isWeak = true
		r.seedEntries(t, d, arg(args, 0), false)
		return v, nil
	})
	defineMethod(t, r.WeakSetProto, "add", 1, func(t *interp.VmThread, this jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		o := thisObject(t, this, "WeakSet.prototype.add")
		d := payloadFor(o)
		v := arg(args, 0)
		if d.find(t, v) < 0 {
			d.entries = append(d.entries, mapEntry{v, v})
		}
		return this, nil
	})
	defineMethod(t, r.WeakSetProto, "has", 1, func(t *interp.VmThread, this jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		o := thisObject(t, this, "WeakSet.prototype.has")
		return jsvalue.Boolean(payloadFor(o).find(t, arg(args, 0)) >= 0), nil
	})
	defineMethod(t, r.WeakSetProto, "delete", 1, func(t *interp.VmThread, this jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		o := thisObject(t, this, "WeakSet.prototype.delete")
		d := payloadFor(o)
		if i := d.find(t, arg(args, 0)); i >= 0 {
			d.entries = append(d.entries[:i], d.entries[i+1:]...)
			return jsvalue.Boolean(true), nil
		}
		return jsvalue.Boolean(false), nil
	})
}

// seedEntries consumes the constructor's optional iterable argument
// (an Array of [k,v] pairs for Map/WeakMap, an Array of values for
// Set/WeakSet) - this engine's iterables are arrays in practice, so
// element access is enough without going through the full iterator
// protocol.
func (r *Realm) seedEntries(t *interp.VmThread, d *collectionData, iterable jsvalue.Value, pairs bool) {
	if iterable.Kind() != jsvalue.KindPointer {
		return
	}
	o, ok := t.Heap.Object(iterable)
	if !ok {
		return
	}
	for _, e := range o.Elements() {
		if pairs {
			eo, ok := t.Heap.Object(e)
			if !ok {
				continue
			}
			elems := eo.Elements()
			k := arg(elems, 0)
			v := arg(elems, 1)
			if i := d.find(t, k); i >= 0 {
				d.entries[i].value = v
			} else {
				d.entries = append(d.entries, mapEntry{k, v})
			}
		} else {
			if d.find(t, e) < 0 {
				d.entries = append(d.entries, mapEntry{e, e})
			}
		}
	}
}

func (r *Realm) pairArray(k, v jsvalue.Value) jsvalue.Value {
	t := r.t
	arrv := t.Heap.NewArray(t.Graph, r.ArrayProto)
	o, _ := t.Heap.Object(arrv)
	o.AppendElement(k)
	o.AppendElement(v)
	return arrv
}

// mapSetIterator builds a plain array snapshot of the collection
// (via project) and hands it to the same wrapIterator path arrays and
// strings use, rather than maintaining a separate live-iterator state
// machine.
func (r *Realm) mapSetIterator(this jsvalue.Value, project func(mapEntry) jsvalue.Value) jsvalue.Value {
	t := r.t
	o, ok := t.Heap.Object(this)
	if !ok {
		return r.wrapIterator(t.Heap.NewArray(t.Graph, r.ArrayProto))
	}
	d := payloadFor(o)
	arrv := t.Heap.NewArray(t.Graph, r.ArrayProto)
	ao, _ := t.Heap.Object(arrv)
	for _, e := range d.entries {
		ao.AppendElement(project(e))
	}
	return r.wrapIterator(arrv)
}
