package interp

import (
	"github.com/octofhir/otter-vm/internal/bytecode"
	"github.com/octofhir/otter-vm/internal/jsobject"
	"github.com/octofhir/otter-vm/internal/jsvalue"
)

// makeClosure builds a Closure cell for OpClosure/OpAsyncClosure/
// OpGeneratorClosure. ConstIdx is repurposed here (as the comment on
// Instruction documents for call opcodes) to index the defining
// module's function table rather than its constant pool.
func (t *VmThread) makeClosure(frame *Frame, mod *bytecode.Module, ins bytecode.Instruction) jsvalue.Value {
	fnIdx := ins.ConstIdx
	if int(fnIdx) >= len(mod.Functions) {
		t.throwTypeError("closure references out-of-range function #%d", fnIdx)
	}
	fn := mod.Functions[fnIdx]
	cl := &Closure{Fn: fn, Module: mod}
	cl.Upvalues = make([]*UpvalueCell, len(fn.Upvalues))
	for i, desc := range fn.Upvalues {
		if desc.FromParentLocal {
			cl.Upvalues[i] = frame.captureLocal(desc.Index)
		} else {
			cl.Upvalues[i] = frame.closure.Upvalues[desc.Index]
		}
	}
	if ins.Op == bytecode.OpAsyncClosure {
		// Async-ness changes how Call's result is produced (wrapped in
		// a Promise) rather than how the closure itself is shaped; see
		// coroutine.go's startAsync.
	}
	return t.Heap.NewClosure(cl)
}

// gatherArgs collects the Argc contiguous registers starting at
// ins.Src2 into a slice, per the calling convention documented on
// bytecode.Instruction.
func gatherArgs(frame *Frame, first bytecode.Register, argc uint16) []jsvalue.Value {
	args := make([]jsvalue.Value, argc)
	for i := uint16(0); i < argc; i++ {
		args[i] = frame.get(first + bytecode.Register(i))
	}
	return args
}

func (t *VmThread) execCall(frame *Frame, mod *bytecode.Module, ins bytecode.Instruction) jsvalue.Value {
	callee := frame.get(ins.Src1)
	args := gatherArgs(frame, ins.Src2, ins.Argc)
	if ins.Op == bytecode.OpCallSpread {
		args = t.spreadArgs(args)
	}
	this := jsvalue.Undefined
	if ins.Op == bytecode.OpCallWithReceiver && ins.Argc > 0 {
		this, args = args[0], args[1:]
	}
	result, err := t.Call(callee, this, args, jsvalue.Undefined)
	if err != nil {
		panic(err)
	}
	return result
}

func (t *VmThread) execCallMethod(frame *Frame, mod *bytecode.Module, ins bytecode.Instruction) jsvalue.Value {
	receiver := frame.get(ins.Src1)
	name := t.constKey(mod, ins.ConstIdx)
	method := t.getProperty(receiver, name)
	args := gatherArgs(frame, ins.Src2, ins.Argc)
	result, err := t.Call(method, receiver, args, jsvalue.Undefined)
	if err != nil {
		panic(err)
	}
	return result
}

func (t *VmThread) execConstruct(frame *Frame, mod *bytecode.Module, ins bytecode.Instruction) jsvalue.Value {
	callee := frame.get(ins.Src1)
	args := gatherArgs(frame, ins.Src2, ins.Argc)
	result, err := t.Construct(callee, args, callee)
	if err != nil {
		panic(err)
	}
	return result
}

// Construct implements `new callee(...args)` with newTarget as the
// constructor `new.target` sees (ordinarily callee itself; Reflect.construct
// and super() calls may pass a different one). Exported so
// internal/intrinsics (Reflect.construct, Proxy's construct trap) and
// internal/jithelpers' Construct runtime helper share this exact
// instance-allocation-then-call sequence instead of re-deriving it.
func (t *VmThread) Construct(callee jsvalue.Value, args []jsvalue.Value, newTarget jsvalue.Value) (jsvalue.Value, error) {
	cl, ok := t.Heap.Closure(callee)
	if !ok {
		t.throwTypeError("value is not a constructor")
	}

	proto := t.ObjectPrototype
	if cl.Native == nil {
		if protoVal := t.getProperty(newTarget, jsobject.StringKey(jsvalue.Intern("prototype"))); protoVal.Kind() == jsvalue.KindPointer {
			if p, ok := t.Heap.Object(protoVal); ok {
				proto = p
			}
		}
	}
	instance := t.Heap.NewObject(t.Graph, proto)

	result, err := t.Call(callee, instance, args, newTarget)
	if err != nil {
		return jsvalue.Undefined, err
	}
	if result.Kind() == jsvalue.KindPointer {
		if _, isObj := t.Heap.Object(result); isObj {
			return result, nil
		}
	}
	return instance, nil
}

// spreadArgs flattens a spread-call argument list: under OpCallSpread
// every argument register holds a spread operand, so each is iterated
// through the same protocol for-of uses (arrays, typed arrays,
// strings) and the results concatenate in order.
func (t *VmThread) spreadArgs(args []jsvalue.Value) []jsvalue.Value {
	var flat []jsvalue.Value
	for _, arg := range args {
		iter := t.getIterator(arg)
		for {
			v, done := t.iteratorNext(iter)
			if done {
				break
			}
			flat = append(flat, v)
		}
	}
	return flat
}
