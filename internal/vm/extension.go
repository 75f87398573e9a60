package vm

import (
	"fmt"
	"sync/atomic"

	"github.com/octofhir/otter-vm/internal/bytecode"
	"github.com/octofhir/otter-vm/internal/interp"
	"github.com/octofhir/otter-vm/internal/interp/microtask"
	"github.com/octofhir/otter-vm/internal/jsobject"
	"github.com/octofhir/otter-vm/internal/jsvalue"
)

// Extension is a host-provided native surface installed into a
// VmContext at construction, before any user bytecode runs. Node's
// built-in modules (internal/hostfs + imports/nodefs' "fs"/"fs/promises")
// are themselves ordinary Extensions, not special-cased engine
// built-ins - matching the teacher's own stance that WASI is "just
// another host module" rather than a runtime intrinsic. Grounded on
// the teacher's HostFunctionBuilder/HostModuleBuilder pairing
// (builder.go, config.go) and imports/wasi_snapshot_preview1's
// package-level Instantiate(ctx, runtime) registration functions.
type Extension interface {
	// Name identifies the extension for diagnostics and for
	// ModuleRegistry's specifier-to-extension lookup.
	Name() string

	// Install wires the extension's globals/functions into rc's
	// realm. Called once, in registration order, before RunModule.
	Install(rc *RegistrationContext) error
}

// ModuleSpecifierExtension is the subset of Extension that also
// exposes one or more importable module specifiers (the "fs"/
// "fs/promises" pairing a single filesystem extension registers under
// two names). Extensions with nothing to import under a bare
// specifier (a pure global-patching extension) need not implement it.
type ModuleSpecifierExtension interface {
	Extension

	// Specifiers lists the bare module names internal/modresolve
	// should route to this extension's LoadModule.
	Specifiers() []string

	// LoadModule returns the module namespace object for one of
	// Specifiers()'s names - e.g. the exports object a `require("fs")`
	// or `import ... from "fs/promises"` resolves to.
	LoadModule(specifier string, rc *RegistrationContext) (jsvalue.Value, error)
}

// RegistrationContext is the JS-engine analogue of the teacher's
// api.Module: the handle an Extension's Install/LoadModule methods use
// to reach the realm they're being installed into, grounded on
// wasm.CallContext's role of carrying the running module's memory and
// function-call surface to host functions.
type RegistrationContext struct {
	vc *VmContext
}

// Thread returns the realm's single execution thread, for extensions
// that need to allocate objects, intern strings, or throw.
func (rc *RegistrationContext) Thread() *interp.VmThread { return rc.vc.Thread }

// Native returns the NativeContext host methods receive, bound to
// this realm.
func (rc *RegistrationContext) Native() *NativeContext {
	return &NativeContext{Thread: rc.vc.Thread, vc: rc.vc}
}

// Global returns the realm's global object, so an extension can define
// properties directly on it (Node's `process`, `Buffer`, and similar
// ambient globals, as opposed to values reached only via `require`).
func (rc *RegistrationContext) Global() *jsobject.Object { return rc.vc.Thread.Global }

// DefineGlobal is a convenience over jsobject.DefineProperty for the
// common case of installing one writable, configurable ambient
// binding directly on the global object.
func (rc *RegistrationContext) DefineGlobal(name string, v jsvalue.Value) {
	key := jsobject.StringKey(jsvalue.Intern(name))
	_ = jsobject.DefineProperty(rc.Global(), key, jsobject.PropertyDescriptor{
		Value: v, Writable: true, Configurable: true,
	})
}

// NativeFunction wraps fn as a callable Value installable via
// DefineGlobal or as a module-namespace export, mirroring
// internal/intrinsics' own nativeFunc helper so extension authors and
// the engine's own bootstrap build functions the same way.
func (rc *RegistrationContext) NativeFunction(name string, length int, fn interp.NativeFunc) jsvalue.Value {
	return rc.vc.Thread.Heap.NewClosure(&interp.Closure{
		Native:       fn,
		NativeName:   name,
		NativeLength: length,
	})
}

// NewModuleNamespace allocates a plain object suitable for returning
// from LoadModule: a namespace object exposing one property per named
// export, matching Node's CommonJS `module.exports` shape rather than
// a live ES binding record (SPEC_FULL.md section 6.2's module loader
// is intentionally a bare-specifier resolver, not a full ES module
// linker).
func (rc *RegistrationContext) NewModuleNamespace(exports map[string]jsvalue.Value) jsvalue.Value {
	nsVal := rc.vc.Thread.Heap.NewObject(rc.vc.Thread.Graph, rc.vc.Thread.ObjectPrototype)
	ns, _ := rc.vc.Thread.Heap.Object(nsVal)
	for name, v := range exports {
		key := jsobject.StringKey(jsvalue.Intern(name))
		_ = jsobject.DefineProperty(ns, key, jsobject.PropertyDescriptor{
			Value: v, Writable: true, Enumerable: true, Configurable: true,
		})
	}
	return nsVal
}

// NativeContext is the narrower handle passed to an individual
// NativeFunc call (as opposed to RegistrationContext's install-time
// scope): the running thread plus the module an extension's call is
// executing against, grounded on wasm.CallContext/the teacher's
// experimental context-value helpers (internal/ctxkey) for carrying
// per-call state without a package-level global.
type NativeContext struct {
	Thread *interp.VmThread
	Module *bytecode.Module

	vc *VmContext
}

// Throw raises an error the way internal/interp's own builtins do, for
// extensions that need to reject with an engine-native error rather
// than returning (Value{}, err) and letting the caller decide the
// exception shape.
func (nc *NativeContext) Throw(format string, args ...any) (jsvalue.Value, error) {
	nc.Thread.Throw("Error", fmt.Sprintf(format, args...))
	return jsvalue.Undefined, nil
}

// Memory exposes the realm's memory manager (heap + GC registry).
func (nc *NativeContext) Memory() *interp.Heap { return nc.Thread.Heap }

// Global returns the realm's global object as a Value.
func (nc *NativeContext) Global() jsvalue.Value { return nc.Thread.GlobalValue }

// CallFunction re-enters the interpreter synchronously, the
// paused-interpreter protocol host methods use to invoke a JS
// callback mid-operation.
func (nc *NativeContext) CallFunction(callee, this jsvalue.Value, args []jsvalue.Value) (jsvalue.Value, error) {
	return nc.Thread.Call(callee, this, args, jsvalue.Undefined)
}

// CallFunctionConstruct is CallFunction's `new` counterpart.
func (nc *NativeContext) CallFunctionConstruct(callee jsvalue.Value, args []jsvalue.Value) (jsvalue.Value, error) {
	return nc.Thread.Construct(callee, args, callee)
}

// ToPrimitive, ToStringValue and ToNumberValue expose the abstract
// conversion operations with the engine's exact coercion order, so a
// host method's argument handling matches what inline bytecode would
// have produced.
func (nc *NativeContext) ToPrimitive(v jsvalue.Value) jsvalue.Value {
	return nc.Thread.ToPrimitiveValue(v)
}

func (nc *NativeContext) ToStringValue(v jsvalue.Value) string { return nc.Thread.ToString(v) }

func (nc *NativeContext) ToNumberValue(v jsvalue.Value) float64 { return nc.Thread.ToNumber(v) }

// Jobs is the realm's Promise reaction queue; host-settled promises
// route reactions through it rather than calling back synchronously.
func (nc *NativeContext) Jobs() *microtask.Queue { return nc.Thread.Microtasks }

// AddAsyncOp/DoneAsyncOp bracket host-side asynchronous work so an
// embedder's event loop can consult PendingAsyncOps before shutting
// down.
func (nc *NativeContext) AddAsyncOp()  { atomic.AddInt64(&nc.vc.pendingAsyncOps, 1) }
func (nc *NativeContext) DoneAsyncOp() { atomic.AddInt64(&nc.vc.pendingAsyncOps, -1) }

func (nc *NativeContext) PendingAsyncOps() int64 {
	return atomic.LoadInt64(&nc.vc.pendingAsyncOps)
}
