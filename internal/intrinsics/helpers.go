package intrinsics

import (
	"github.com/octofhir/otter-vm/internal/interp"
	"github.com/octofhir/otter-vm/internal/jsobject"
	"github.com/octofhir/otter-vm/internal/jsvalue"
)

// arg returns args[i], or Undefined if the call was made with fewer
// arguments - every native function below reads its arguments this
// way rather than bounds-checking the slice inline, mirroring how
// ECMAScript parameters default to undefined when omitted.
func arg(args []jsvalue.Value, i int) jsvalue.Value {
	if i < 0 || i >= len(args) {
		return jsvalue.Undefined
	}
	return args[i]
}

// nativeFunc wraps fn as a callable closure Value carrying name/length
// metadata for .name/.length (see interp.Closure.NativeName/NativeLength).
func nativeFunc(t *interp.VmThread, name string, length int, fn interp.NativeFunc) jsvalue.Value {
	cl := &interp.Closure{Native: fn, NativeName: name, NativeLength: length}
	return t.Heap.NewClosure(cl)
}

// defineMethod installs a non-enumerable native method on obj, the
// attribute profile ECMAScript gives every built-in prototype method.
func defineMethod(t *interp.VmThread, obj *jsobject.Object, name string, length int, fn interp.NativeFunc) {
	v := nativeFunc(t, name, length, fn)
	_ = jsobject.DefineProperty(obj, strKey(name), jsobject.PropertyDescriptor{
		Value: v, Writable: true, Configurable: true,
	})
}

// defineValue installs a plain data property (used for namespace
// objects like Math.PI, and for Symbol.iterator-style well-known
// symbol properties on constructors).
func defineValue(obj *jsobject.Object, key jsobject.PropertyKey, v jsvalue.Value, writable, enumerable, configurable bool) {
	_ = jsobject.DefineProperty(obj, key, jsobject.PropertyDescriptor{
		Value: v, Writable: writable, Enumerable: enumerable, Configurable: configurable,
	})
}

// newConstructor builds a native constructor closure, chains its
// .prototype onto proto, sets proto.constructor back to the result,
// and gives the constructor itself a Statics store so static methods
// (Object.keys, Array.isArray, Number.isInteger, ...) have somewhere
// to live - the native equivalent of interp's defineClass
// (classes.go), reused here instead of re-deriving the same steps per
// built-in.
func (r *Realm) newConstructor(name string, length int, proto *jsobject.Object, fn interp.NativeFunc) jsvalue.Value {
	t := r.t
	ctorVal := nativeFunc(t, name, length, fn)
	cl, _ := t.Heap.Closure(ctorVal)
	cl.ClassPrototype = t.Heap.ValueForObject(proto)
	cl.Statics = jsobject.New(t.Graph, r.FunctionProto)
	_ = jsobject.DefineProperty(proto, constructorKey(), jsobject.PropertyDescriptor{
		Value: ctorVal, Writable: true, Configurable: true,
	})
	return ctorVal
}

// staticMethod installs a native method directly on a constructor
// Value's Statics store (Object.keys, Array.from, ...).
func (r *Realm) staticMethod(ctorVal jsvalue.Value, name string, length int, fn interp.NativeFunc) {
	cl, _ := r.t.Heap.Closure(ctorVal)
	defineMethod(r.t, cl.Statics, name, length, fn)
}

func constructorKey() jsobject.PropertyKey { return strKey("constructor") }

// newPlainObject allocates an ordinary object under proto, the
// intrinsics-package counterpart of Heap.NewObject used throughout
// native constructors that return a fresh instance rather than
// mutating `this`.
func newPlainObject(t *interp.VmThread, proto *jsobject.Object) jsvalue.Value {
	return t.Heap.NewObject(t.Graph, proto)
}

// thisObject resolves `this` to its backing *jsobject.Object, throwing
// a TypeError (matching every built-in prototype method's receiver
// check) if it isn't one.
func thisObject(t *interp.VmThread, this jsvalue.Value, method string) *jsobject.Object {
	obj, ok := t.Heap.Object(this)
	if !ok {
		t.ThrowTypeError("%s called on non-object", method)
	}
	return obj
}
