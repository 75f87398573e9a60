// Package vm is the top-level seam spec.md section 2 calls "data
// flow": it owns one VmContext end to end - load a bytecode.Module
// (decoding + literal validation), bootstrap intrinsics, run the
// entry function, drain the microtask queue at script-turn boundaries
// (DESIGN.md's Open Question resolution #2), and tear everything down
// through the GC registry's dealloc_all.
//
// Grounded on the teacher's own top-level package (builder.go/
// config.go/namespace - compile a module, instantiate it against a
// store/namespace, run it, close the namespace), narrowed from "many
// Wasm modules sharing import wiring" to "one JS realm per VmContext"
// since spec.md section 5 gives each VmContext its own GC registry,
// shape graph and global object with no cross-context sharing.
package vm

import (
	"context"
	"fmt"

	"github.com/octofhir/otter-vm/internal/bytecode"
	"github.com/octofhir/otter-vm/internal/bytecode/binary"
	"github.com/octofhir/otter-vm/internal/bytecode/literal"
	"github.com/octofhir/otter-vm/internal/interp"
	"github.com/octofhir/otter-vm/internal/intrinsics"
	"github.com/octofhir/otter-vm/internal/jit"
	"github.com/octofhir/otter-vm/internal/jsparser"
	"github.com/octofhir/otter-vm/internal/jsvalue"
	"github.com/octofhir/otter-vm/internal/logging"
	"github.com/octofhir/otter-vm/internal/modresolve"
)

// Config tunes one VmContext. The zero Config is a usable default
// (JIT enabled, real wall-clock time).
type Config struct {
	// DisableJIT forces every call to interpret, never compile -
	// useful for tests that want deterministic single-path execution,
	// and for hosts that value startup latency over steady-state
	// throughput (spec.md's JIT is strictly an optimization, never
	// required for correctness).
	DisableJIT bool

	// NowNanos overrides the clock internal/jsgc's pause stats and
	// internal/intrinsics' Temporal support read; nil uses wall-clock
	// time.
	NowNanos func() int64

	// GCThresholdBytes overrides the registry's default 1 MiB
	// collection trigger (spec.md section 4.B "Triggering").
	GCThresholdBytes uint64

	// Extensions are installed into the realm's global object before
	// any bytecode runs, per spec.md section 6.2.
	Extensions []Extension

	// Listener, if set, receives GC pause, JIT compile and JIT bailout
	// events from this context's registry/engine (spec.md section 7's
	// ambient logging stack). nil installs logging.NopListener.
	Listener logging.VmListener
}

// VmContext is one realm: its own heap/GC registry, shape graph,
// global object, intrinsics, JIT engine and microtask queue. Never
// shared across goroutines (spec.md section 5).
type VmContext struct {
	Thread   *interp.VmThread
	Realm    *intrinsics.Realm
	Modules  *ModuleRegistry
	Resolver *modresolve.Resolver

	jitEngine *jit.Engine

	// pendingAsyncOps counts host-side asynchronous operations in
	// flight (NativeContext.AddAsyncOp/DoneAsyncOp); an embedder's
	// event loop keeps pumping until it reaches zero.
	pendingAsyncOps int64
}

// New constructs a fresh VmContext: allocates the heap/registry,
// bootstraps intrinsics (spec.md section 4.F's two-stage allocate-
// then-wire-then-populate sequence), and installs any configured
// extensions.
func New(cfg Config) *VmContext {
	thread := interp.NewThread(cfg.NowNanos)
	if cfg.GCThresholdBytes != 0 {
		thread.Heap.Registry().SetThreshold(cfg.GCThresholdBytes)
	}
	if cfg.Listener != nil {
		thread.Heap.Registry().SetListener(cfg.Listener)
	}

	var engine *jit.Engine
	if !cfg.DisableJIT {
		engine = jit.NewEngine()
		if cfg.Listener != nil {
			engine.SetListener(cfg.Listener)
		}
		thread.EnableJIT(engine)
	}

	realm := intrinsics.Bootstrap(thread)

	vc := &VmContext{
		Thread:    thread,
		Realm:     realm,
		Modules:   newModuleRegistry(),
		jitEngine: engine,
	}

	regctx := &RegistrationContext{vc: vc}
	for _, ext := range cfg.Extensions {
		if err := ext.Install(regctx); err != nil {
			// Extension installation failures are a host-configuration
			// bug, not a JS-visible condition; surface as a panic the
			// same way a malformed module's decode error would during
			// process bring-up, rather than inventing a silent partial
			// install.
			panic(fmt.Sprintf("vm: extension %q failed to install: %v", ext.Name(), err))
		}
		vc.Modules.registerExtension(ext)
	}

	vc.Resolver = modresolve.New(vc, vc.Modules)

	return vc
}

// ResolveExtension implements modresolve.ExtensionResolver by calling
// through to the matching extension's LoadModule, satisfying a
// `require(specifier)` against a host-provided built-in (e.g. "fs").
func (vc *VmContext) ResolveExtension(specifier string) (jsvalue.Value, bool, error) {
	ext, ok := vc.Modules.ExtensionFor(specifier)
	if !ok {
		return jsvalue.Undefined, false, nil
	}
	v, err := ext.LoadModule(specifier, &RegistrationContext{vc: vc})
	if err != nil {
		return jsvalue.Undefined, true, err
	}
	return v, true, nil
}

// Require resolves specifier against installed extensions first, then
// against previously loaded bytecode modules (running the target
// module's entry function on every call; results are not cached), matching
// Node's own built-in-before-user-module precedence.
func (vc *VmContext) Require(ctx context.Context, specifier string) (jsvalue.Value, error) {
	if v, ok, err := vc.Resolver.ResolveExport(specifier); ok || err != nil {
		return v, err
	}
	mod, err := vc.Resolver.ResolveModule(specifier)
	if err != nil {
		return jsvalue.Undefined, err
	}
	return vc.RunModule(ctx, mod)
}

// LoadModule decodes a persisted bytecode module (spec.md section
// 6.1's "OTTR" format), runs the literal validator over its constant
// pool, and registers it under name for later Run calls.
func (vc *VmContext) LoadModule(name string, data []byte) (*bytecode.Module, error) {
	mod, err := binary.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("vm: decode module %q: %w", name, err)
	}
	if err := literal.Validate(mod); err != nil {
		return nil, fmt.Errorf("vm: validate module %q: %w", name, err)
	}
	vc.Modules.register(name, mod)
	return mod, nil
}

// LoadSource compiles src through fe (the external-parser seam,
// internal/jsparser) and registers the result under src.Name, running
// the same literal validation a persisted module gets on decode.
func (vc *VmContext) LoadSource(src jsparser.Source, fe jsparser.Frontend) (*bytecode.Module, error) {
	mod, err := fe.Compile(src)
	if err != nil {
		return nil, fmt.Errorf("vm: compile %q: %w", src.Name, err)
	}
	if err := literal.Validate(mod); err != nil {
		return nil, fmt.Errorf("vm: validate %q: %w", src.Name, err)
	}
	vc.Modules.register(src.Name, mod)
	return mod, nil
}

// RunModule executes mod's entry function as the top-level script,
// draining the microtask queue once the entry function returns
// (DESIGN.md's "drain only at script-turn boundaries" resolution of
// spec.md's Open Question #2), and returns the script's result value.
func (vc *VmContext) RunModule(ctx context.Context, mod *bytecode.Module) (jsvalue.Value, error) {
	entry := mod.Entry()
	if entry == nil {
		return jsvalue.Undefined, fmt.Errorf("vm: module has no entry function")
	}
	closure := vc.Thread.Heap.NewClosure(&interp.Closure{Fn: entry, Module: mod})
	result, err := vc.Thread.Call(closure, vc.Thread.GlobalValue, nil, jsvalue.Undefined)
	if err != nil {
		return jsvalue.Undefined, err
	}
	vc.drainMicrotasks(ctx)
	return result, nil
}

// drainMicrotasks runs every pending Promise reaction job FIFO, per
// spec.md section 5's "Microtask ordering ... follows a FIFO queue
// drained after each script turn." internal/interp/microtask.Queue
// already drains to exhaustion (a job's own newly enqueued reactions
// run in the same pass); this only adds the ctx.Done() early-out a
// bare Queue.Drain() call has no way to observe.
func (vc *VmContext) drainMicrotasks(ctx context.Context) {
	select {
	case <-ctx.Done():
		return
	default:
	}
	vc.Thread.Microtasks.Drain()
}

// Close tears the context down: releases the JIT engine's executable
// mappings, then runs the GC registry's dealloc_all (spec.md section
// 4.B "Teardown"). Intrinsic-marked cells are freed along with
// everything else here - dealloc_all is whole-context teardown, not
// the "per-context teardown" the intrinsic-protection invariant
// guards against (that invariant is about one context's GC cycles not
// freeing objects a *different*, still-live context's realm shares;
// this design gives every context its own intrinsics rather than
// sharing a process-wide graph, so Close freeing them here is
// correct, not a violation).
func (vc *VmContext) Close() error {
	var firstErr error
	if vc.jitEngine != nil {
		if err := vc.jitEngine.Close(); err != nil {
			firstErr = err
		}
	}
	vc.Thread.Heap.Registry().DeallocAll()
	return firstErr
}
