package interp

import (
	"github.com/octofhir/otter-vm/internal/bytecode"
	"github.com/octofhir/otter-vm/internal/jsobject"
	"github.com/octofhir/otter-vm/internal/jsvalue"
)

var (
	lengthKey = jsobject.StringKey(jsvalue.Intern("length"))
	nameKey   = jsobject.StringKey(jsvalue.Intern("name"))
)

// getProperty implements the OpGetProp/OpGetElem slow path: object
// property lookup (with the array `length` exotic and string
// index/length reads layered on top), or Undefined for primitives this
// design doesn't auto-box (spec.md's Non-goals leave wrapper-object
// autoboxing for numbers/booleans out of scope; strings get the one
// exception below because indexing/len on string literals is too
// common to omit).
func (t *VmThread) getProperty(v jsvalue.Value, key jsobject.PropertyKey) jsvalue.Value {
	if s, ok := t.Heap.String(v); ok {
		return t.getStringProperty(s, key)
	}
	if p, ok := t.Heap.Proxy(v); ok {
		result, err := jsobject.ProxyGet(p, key, v, t.callFunc())
		if err != nil {
			panic(err)
		}
		return result
	}
	if ta, ok := t.Heap.TypedArray(v); ok {
		if key.Kind() == jsobject.KeyString && key == lengthKey {
			return jsvalue.Number(float64(ta.Length))
		}
		if key.Kind() == jsobject.KeyIndex {
			n, ok := ta.Get(int(key.Index()))
			if !ok {
				return jsvalue.Undefined
			}
			return jsvalue.Number(n)
		}
		if t.TypedArrayProtoOf != nil {
			if proto := t.TypedArrayProtoOf(ta.Kind); proto != nil {
				result, err := jsobject.Get(proto, key, v, t.callFunc())
				if err == nil {
					return result
				}
			}
		}
		return jsvalue.Undefined
	}
	if dv, ok := t.Heap.DataView(v); ok {
		if key.Kind() == jsobject.KeyString && key == lengthKey {
			return jsvalue.Number(float64(dv.Length))
		}
		if t.DataViewProto != nil {
			if proto := t.DataViewProto(); proto != nil {
				result, err := jsobject.Get(proto, key, v, t.callFunc())
				if err == nil {
					return result
				}
			}
		}
		return jsvalue.Undefined
	}
	if _, ok := t.Heap.Promise(v); ok {
		if t.PromiseProtoObject != nil {
			if proto := t.PromiseProtoObject(); proto != nil {
				result, err := jsobject.Get(proto, key, v, t.callFunc())
				if err == nil {
					return result
				}
			}
		}
		return jsvalue.Undefined
	}
	obj, ok := t.Heap.Object(v)
	if !ok {
		if cl, ok := t.Heap.Closure(v); ok {
			return t.getClosureProperty(cl, key)
		}
		return jsvalue.Undefined
	}
	if obj.IsArray() && key.Kind() == jsobject.KeyString && key == lengthKey {
		return jsvalue.Number(float64(obj.Length()))
	}
	result, err := jsobject.Get(obj, key, v, t.callFunc())
	if err != nil {
		panic(err)
	}
	return result
}

// GetProperty exports getProperty for packages outside interp
// (internal/jithelpers, internal/intrinsics) that need the engine's
// full property-read semantics (string/proxy/closure special cases
// included) without duplicating them.
func (t *VmThread) GetProperty(v jsvalue.Value, key jsobject.PropertyKey) jsvalue.Value {
	return t.getProperty(v, key)
}

// SetProperty exports setProperty, the write-side counterpart of
// GetProperty.
func (t *VmThread) SetProperty(v jsvalue.Value, key jsobject.PropertyKey, val jsvalue.Value) {
	t.setProperty(v, key, val)
}

func (t *VmThread) getStringProperty(s *jsvalue.JsString, key jsobject.PropertyKey) jsvalue.Value {
	if key.Kind() == jsobject.KeyString && key == lengthKey {
		return jsvalue.Number(float64(s.Len()))
	}
	if key.Kind() == jsobject.KeyIndex {
		unit, ok := s.CharCodeAt(int(key.Index()))
		if !ok {
			return jsvalue.Undefined
		}
		return t.stringValue(string(utf16ToRune(unit)))
	}
	return jsvalue.Undefined
}

func utf16ToRune(u uint16) rune { return rune(u) }

// getClosureProperty supports reading "length"/"name" off a function
// value, and plain data properties a NativeFunc intrinsic may have
// stashed - functions are CellFunction cells rather than CellObject,
// so they don't go through jsobject.Get at all yet (no installed
// own-property store); internal/intrinsics' Function.prototype
// bootstrap is expected to back this with a real Object once built.
func (t *VmThread) getClosureProperty(cl *Closure, key jsobject.PropertyKey) jsvalue.Value {
	if cl.Statics != nil {
		if d, ok := jsobject.GetOwnPropertyDescriptor(cl.Statics, key); ok {
			if d.IsAccessor {
				if d.Getter.IsUndefined() {
					return jsvalue.Undefined
				}
				v, err := t.Call(d.Getter, jsvalue.Undefined, nil, jsvalue.Undefined)
				if err != nil {
					panic(err)
				}
				return v
			}
			return d.Value
		}
	}
	if key.Kind() != jsobject.KeyString {
		return jsvalue.Undefined
	}
	if key == lengthKey {
		if cl.Fn != nil {
			return jsvalue.Number(float64(cl.Fn.ParamCount))
		}
		if cl.Native != nil {
			return jsvalue.Number(float64(cl.NativeLength))
		}
	}
	if key == nameKey && cl.Native != nil && cl.NativeName != "" {
		return t.stringValue(cl.NativeName)
	}
	if key == prototypeKey && cl.ClassPrototype.Kind() == jsvalue.KindPointer {
		return cl.ClassPrototype
	}
	return jsvalue.Undefined
}

func (t *VmThread) setProperty(v jsvalue.Value, key jsobject.PropertyKey, val jsvalue.Value) {
	if p, ok := t.Heap.Proxy(v); ok {
		if err := jsobject.ProxySet(p, key, val, v, false, t.callFunc()); err != nil {
			t.throwTypeError("%v", err)
		}
		return
	}
	if ta, ok := t.Heap.TypedArray(v); ok {
		if key.Kind() == jsobject.KeyIndex {
			ta.Set(int(key.Index()), t.ToNumber(val))
		}
		return
	}
	if _, ok := t.Heap.DataView(v); ok {
		return // DataView has no indexed own properties; writes go through getInt8/setInt8/etc.
	}
	obj, ok := t.Heap.Object(v)
	if !ok {
		if cl, ok := t.Heap.Closure(v); ok && cl.Statics != nil {
			if err := jsobject.Set(cl.Statics, key, val, v, false, t.callFunc()); err != nil {
				t.throwTypeError("%v", err)
			}
		}
		return // otherwise, assigning a property onto a non-object primitive is a silent no-op in sloppy mode
	}
	if obj.IsArray() && key.Kind() == jsobject.KeyString && key == lengthKey {
		obj.SetLength(int(t.ToNumber(val)))
		return
	}
	if err := jsobject.Set(obj, key, val, v, false, t.callFunc()); err != nil {
		t.throwTypeError("%v", err)
	}
}

// getPropertyIC is OpGetPropConst's path: it updates the site's
// inline-cache feedback via Record/ForceMegamorphic so
// internal/bytecode's quickening and internal/jit's type speculation
// have real data, even though the value itself is still fetched
// through jsobject.Get's always-correct path (Object's slot storage is
// package-private by design; only Shape.Offset is exported, which is
// enough for the cache's bookkeeping but not for a raw slot read from
// outside the package).
func (t *VmThread) getPropertyIC(frame *Frame, ins bytecode.Instruction, v jsvalue.Value, key jsobject.PropertyKey) jsvalue.Value {
	result := t.getProperty(v, key)
	if ins.ICIndex == bytecode.NoFeedback || int(ins.ICIndex) >= len(frame.fn.Feedback) {
		return result
	}
	if _, isProxy := t.Heap.Proxy(v); isProxy {
		frame.fn.Feedback[ins.ICIndex].IC.ForceMegamorphic()
		return result
	}
	obj, ok := t.Heap.Object(v)
	if !ok {
		return result
	}
	slot := &frame.fn.Feedback[ins.ICIndex]
	if off, _, ok := obj.Shape().Offset(key); ok {
		slot.IC.Record(obj.Shape().ID(), off, t.Graph.ProtoEpoch())
	} else {
		slot.IC.ForceMegamorphic()
	}
	return result
}

func (t *VmThread) execDefineAccessor(frame *Frame, mod *bytecode.Module, ins bytecode.Instruction) {
	obj, ok := t.Heap.Object(frame.get(ins.Dst))
	if !ok {
		return
	}
	key := t.constKey(mod, ins.ConstIdx)
	fn := frame.get(ins.Src1)
	existing, _ := jsobject.GetOwnPropertyDescriptor(obj, key)
	getter, setter := existing.Getter, existing.Setter
	if getter.Kind() == jsvalue.KindUndefined {
		getter = jsvalue.Undefined
	}
	if ins.Op == bytecode.OpDefineGetter {
		getter = fn
	} else {
		setter = fn
	}
	_ = jsobject.DefineAccessor(obj, key, getter, setter, true, true)
}

func (t *VmThread) newArrayFromRegisters(frame *Frame, ins bytecode.Instruction) jsvalue.Value {
	v := t.Heap.NewArray(t.Graph, t.ArrayPrototype)
	obj, _ := t.Heap.Object(v)
	for i := uint16(0); i < ins.Argc; i++ {
		obj.AppendElement(frame.get(ins.Src1 + bytecode.Register(i)))
	}
	return v
}

func (t *VmThread) objectPrototype() *jsobject.Object { return t.ObjectPrototype }

// InstanceOf exports instanceOf for internal/jithelpers' InstanceOf
// helper.
func (t *VmThread) InstanceOf(target, ctor jsvalue.Value) bool { return t.instanceOf(target, ctor) }

// instanceOf implements the `instanceof` operator: walk ctor.prototype
// along target's [[Prototype]] chain.
func (t *VmThread) instanceOf(target, ctor jsvalue.Value) bool {
	protoVal := t.getProperty(ctor, jsobject.StringKey(jsvalue.Intern("prototype")))
	proto, ok := t.Heap.Object(protoVal)
	if !ok {
		return false
	}
	var start *jsobject.Object
	if obj, ok := t.Heap.Object(target); ok {
		start = obj.Prototype()
	} else if ta, ok := t.Heap.TypedArray(target); ok && t.TypedArrayProtoOf != nil {
		start = t.TypedArrayProtoOf(ta.Kind)
	} else if _, ok := t.Heap.DataView(target); ok && t.DataViewProto != nil {
		start = t.DataViewProto()
	} else {
		return false
	}
	for cur := start; cur != nil; cur = cur.Prototype() {
		if cur == proto {
			return true
		}
	}
	return false
}

func (t *VmThread) createArguments(frame *Frame) jsvalue.Value {
	v := t.Heap.NewArray(t.Graph, t.ArrayPrototype)
	obj, _ := t.Heap.Object(v)
	for i := 0; i < len(frame.locals) && i < int(frame.fn.ParamCount); i++ {
		obj.AppendElement(frame.getLocal(uint16(i)))
	}
	return v
}
