package interp

import (
	"github.com/octofhir/otter-vm/internal/bytecode"
	"github.com/octofhir/otter-vm/internal/jsobject"
	"github.com/octofhir/otter-vm/internal/jsvalue"
)

// UpvalueCell is a boxed variable shared between a closure and the
// frame (or outer closure) that created it, per spec.md section 9's
// upvalue design note.
type UpvalueCell struct {
	Value jsvalue.Value
}

// Closure pairs a compiled Function with the upvalues captured at
// creation time, plus the module it was compiled from (constants,
// sibling functions for nested closures).
type Closure struct {
	Fn       *bytecode.Function
	Module   *bytecode.Module
	Upvalues []*UpvalueCell
	This     jsvalue.Value // bound `this`, set by bind()/arrow functions; Undefined otherwise
	IsArrow  bool

	// HomeObject is the [[HomeObject]] internal slot ECMAScript gives
	// methods (including class methods) so `super.prop` can resolve
	// against the home object's own [[Prototype]] rather than the
	// receiver's, per spec.md's Classes opcode group.
	HomeObject *jsobject.Object

	// ClassPrototype is the .prototype value OpDefineClass installs;
	// see getClosureProperty's note on functions lacking a real own
	// property store today.
	ClassPrototype jsvalue.Value

	// Native, when non-nil, makes this a host-provided function
	// (intrinsic or extension-registered) instead of bytecode-backed.
	Native NativeFunc

	// NativeName/NativeLength back .name/.length for a Native closure,
	// the counterpart of cl.Fn's name/ParamCount for bytecode-backed
	// ones (internal/intrinsics populates these on every constructor
	// and prototype method it installs).
	NativeName   string
	NativeLength int

	// Statics, when non-nil, backs arbitrary own properties installed
	// directly on a function/constructor Value (Object.keys,
	// Array.isArray, Symbol.iterator, ...) - the real property store
	// getClosureProperty's doc comment says functions lack until
	// internal/intrinsics provides one.
	Statics *jsobject.Object
}

// NativeFunc is the signature host/intrinsic functions implement,
// mirroring CallFunc's shape in internal/jsobject/property.go so both
// seams compose without adapters.
type NativeFunc func(t *VmThread, this jsvalue.Value, args []jsvalue.Value, newTarget jsvalue.Value) (jsvalue.Value, error)
