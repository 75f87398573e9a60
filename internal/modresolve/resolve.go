// Package modresolve is the minimal module-loader seam SPEC_FULL.md
// section 6.2 calls for: resolving a bare specifier string (`"fs"`,
// `"fs/promises"`, a registered bytecode module's own name) to the
// Value a script's `require`/`import` observes. It does not parse or
// link user-authored ES module graphs - that remains out of scope per
// spec.md's Non-goals - only the specifiers a host Extension or
// pre-registered bytecode module explicitly exposes.
//
// Grounded on internal/wasm's module-name resolution
// (store_module_list_test.go/namespace_test.go): a name is either
// already registered or it is an error, with no filesystem search path
// or version resolution involved.
package modresolve

import (
	"fmt"

	"github.com/octofhir/otter-vm/internal/bytecode"
	"github.com/octofhir/otter-vm/internal/jsvalue"
)

// ErrNotFound is returned when a specifier names neither a registered
// extension module nor a loaded bytecode module.
type ErrNotFound struct {
	Specifier string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("modresolve: no module registered for specifier %q", e.Specifier)
}

// ExtensionResolver is the subset of internal/vm's ModuleRegistry this
// package needs to resolve an extension-backed specifier, kept as an
// interface so this package does not import internal/vm (internal/vm
// imports modresolve, so the dependency stays one-directional and this
// seam is not coupled to VmContext's full surface).
type ExtensionResolver interface {
	// ResolveExtension returns the export Value a specifier resolves
	// to, if any Extension installed in this realm claims it.
	ResolveExtension(specifier string) (jsvalue.Value, bool, error)
}

// BytecodeResolver resolves a specifier against the set of bytecode
// modules already loaded into the realm by name (the embedder's own
// LoadModule calls), for scripts that `require()` one another.
type BytecodeResolver interface {
	Module(name string) (*bytecode.Module, bool)
}

// Resolver resolves specifiers against both an extension namespace and
// a bytecode module registry, in that order - host-provided built-ins
// shadow a same-named user module, matching Node's own built-in-module
// precedence over node_modules resolution.
type Resolver struct {
	extensions ExtensionResolver
	bytecode   BytecodeResolver
}

func New(extensions ExtensionResolver, bytecode BytecodeResolver) *Resolver {
	return &Resolver{extensions: extensions, bytecode: bytecode}
}

// ResolveExport resolves specifier against the installed extensions
// only, returning the export Value an extension claims for it. Any
// other specifier, including the name of a loaded bytecode module,
// yields (Undefined, false, nil); ResolveModule looks those up, and
// running one is the caller's job.
func (r *Resolver) ResolveExport(specifier string) (jsvalue.Value, bool, error) {
	if r.extensions != nil {
		if v, ok, err := r.extensions.ResolveExtension(specifier); ok || err != nil {
			return v, ok, err
		}
	}
	return jsvalue.Undefined, false, nil
}

// ResolveModule resolves specifier to a previously loaded bytecode
// module, for `require()` targets that are user scripts rather than
// host extensions.
func (r *Resolver) ResolveModule(specifier string) (*bytecode.Module, error) {
	if r.bytecode == nil {
		return nil, &ErrNotFound{Specifier: specifier}
	}
	mod, ok := r.bytecode.Module(specifier)
	if !ok {
		return nil, &ErrNotFound{Specifier: specifier}
	}
	return mod, nil
}
