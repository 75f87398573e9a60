package interp

import (
	"github.com/octofhir/otter-vm/internal/bytecode"
	"github.com/octofhir/otter-vm/internal/jsobject"
	"github.com/octofhir/otter-vm/internal/jsvalue"
)

var (
	prototypeKey   = jsobject.StringKey(jsvalue.Intern("prototype"))
	constructorKey = jsobject.StringKey(jsvalue.Intern("constructor"))
)

// defineClass implements OpDefineClass: build a constructor closure
// (ConstIdx names its function, same convention as OpClosure), chain
// its .prototype onto the superclass's .prototype when Argc==1 names
// one in Src1, and set .prototype.constructor back to the class
// itself, mirroring what a desugared `class` declaration does in every
// ECMAScript engine.
func (t *VmThread) defineClass(frame *Frame, mod *bytecode.Module, ins bytecode.Instruction) jsvalue.Value {
	ctor := t.makeClosure(frame, mod, bytecode.Instruction{Op: bytecode.OpClosure, ConstIdx: ins.ConstIdx})
	ctorClosure, _ := t.Heap.Closure(ctor)

	var superProto *jsobject.Object
	if ins.Argc == 1 {
		superVal := frame.get(ins.Src1)
		protoVal := t.getProperty(superVal, prototypeKey)
		superProto, _ = t.Heap.Object(protoVal)
	}

	protoProto := superProto
	if protoProto == nil {
		protoProto = t.ObjectPrototype
	}
	protoVal := t.Heap.NewObject(t.Graph, protoProto)
	protoObj, _ := t.Heap.Object(protoVal)
	_ = jsobject.DefineProperty(protoObj, constructorKey, jsobject.PropertyDescriptor{Value: ctor, Writable: true, Configurable: true})

	ctorClosure.HomeObject = protoObj
	// Functions have no own property store yet (see
	// getClosureProperty's note), so .prototype is tracked directly on
	// the Closure until intrinsics backs functions with real
	// Function.prototype objects.
	ctorClosure.ClassPrototype = protoVal
	return ctor
}

// superPrototype resolves `super` inside the currently executing
// frame's method: the home object's own [[Prototype]], boxed back into
// a Value via the heap's reverse lookup.
func (t *VmThread) superPrototype(frame *Frame) jsvalue.Value {
	if frame.closure.HomeObject == nil {
		t.throwTypeError("'super' keyword is only valid inside a method")
	}
	proto := frame.closure.HomeObject.Prototype()
	if proto == nil {
		return jsvalue.Undefined
	}
	return t.Heap.valueForObject(proto)
}

// callSuperConstructor runs the superclass constructor (found via the
// current method's home object's own prototype's .constructor) against
// the already-allocated `this`, per derived-class construction
// semantics.
func (t *VmThread) callSuperConstructor(frame *Frame, mod *bytecode.Module, ins bytecode.Instruction) {
	if frame.closure.HomeObject == nil {
		t.throwTypeError("'super' keyword is only valid inside a derived constructor")
	}
	superProto := frame.closure.HomeObject.Prototype()
	if superProto == nil {
		t.throwTypeError("class has no superclass to call")
	}
	superCtor, _ := jsobject.Get(superProto, constructorKey, t.Heap.valueForObject(superProto), t.callFunc())
	args := gatherArgs(frame, ins.Src2, ins.Argc)
	if ins.Op == bytecode.OpCallSuperSpread {
		args = t.spreadArgs(args)
	}
	if _, err := t.Call(superCtor, frame.this, args, superCtor); err != nil {
		panic(err)
	}
}
