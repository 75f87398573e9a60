package intrinsics

import (
	"github.com/octofhir/otter-vm/internal/interp"
	"github.com/octofhir/otter-vm/internal/jsvalue"
)

func (r *Realm) populateFunction() {
	t := r.t
	proto := r.FunctionProto

	defineMethod(t, proto, "call", 1, func(t *interp.VmThread, this jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		callThis := arg(args, 0)
		rest := args
		if len(rest) > 0 {
			rest = rest[1:]
		}
		return t.Call(this, callThis, rest, jsvalue.Undefined)
	})
	defineMethod(t, proto, "apply", 2, func(t *interp.VmThread, this jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		callThis := arg(args, 0)
		var callArgs []jsvalue.Value
		if arr, ok := t.Heap.Object(arg(args, 1)); ok {
			callArgs = arr.Elements()
		}
		return t.Call(this, callThis, callArgs, jsvalue.Undefined)
	})
	defineMethod(t, proto, "bind", 1, func(t *interp.VmThread, this jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		boundThis := arg(args, 0)
		bound := append([]jsvalue.Value(nil), args[min(1, len(args)):]...)
		target := this
		return nativeFunc(t, "bound", 0, func(t *interp.VmThread, _ jsvalue.Value, callArgs []jsvalue.Value, newTarget jsvalue.Value) (jsvalue.Value, error) {
			full := append(append([]jsvalue.Value(nil), bound...), callArgs...)
			return t.Call(target, boundThis, full, newTarget)
		}), nil
	})
	defineMethod(t, proto, "toString", 0, func(t *interp.VmThread, this jsvalue.Value, _ []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		return t.StringValue("function () { [native code] }"), nil
	})

	// Function's own constructor is intentionally not dynamic-code
	// capable: compiling a source string at runtime needs the parser
	// seam (internal/jsparser), which this engine never hands a bare
	// constructor access to, matching the fail-closed posture
	// SPEC_FULL.md's extension/host-module sections take toward
	// arbitrary code execution.
	r.functionCtor = r.newConstructor("Function", 1, proto, func(t *interp.VmThread, _ jsvalue.Value, _ []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		t.ThrowTypeError("Function constructor is not supported")
		return jsvalue.Undefined, nil
	})
}
