// Package otter is the embedder-facing surface for the engine: open a
// Runtime, load bytecode modules into it, and register host
// Extensions before any script runs. The heavy lifting (heap/GC,
// shape graph, intrinsics bootstrap, JIT engine, microtask queue)
// lives in internal/vm; this package is a thin public facade over it,
// the same role builder.go/runtime.go play for the teacher's own
// wazero.Runtime/HostModuleBuilder pairing over internal/wasm.
package otter

import (
	"context"

	"github.com/octofhir/otter-vm/internal/bytecode"
	"github.com/octofhir/otter-vm/internal/jsvalue"
	"github.com/octofhir/otter-vm/internal/logging"
	"github.com/octofhir/otter-vm/internal/vm"
)

// Extension, ModuleSpecifierExtension, RegistrationContext and
// NativeContext are defined in internal/vm (which both this package
// and internal/vm's own constructor need); Runtime only re-exports
// them under the package embedders actually import.
type (
	Extension                = vm.Extension
	ModuleSpecifierExtension = vm.ModuleSpecifierExtension
	RegistrationContext      = vm.RegistrationContext
	NativeContext            = vm.NativeContext
)

// VmListener and its event types are defined in internal/logging
// (SPEC_FULL.md section 7's ambient logging stack); re-exported here
// so an embedder can implement one without reaching into an internal
// package, the same reason Extension et al. are aliased above.
type (
	VmListener      = logging.VmListener
	GCPauseEvent    = logging.GCPauseEvent
	JITCompileEvent = logging.JITCompileEvent
	BailoutEvent    = logging.BailoutEvent
)

// NewWriterListener returns a VmListener that formats every event as a
// single line to w.
func NewWriterListener(w logging.Writer) VmListener { return logging.NewWriterListener(w) }

// Config configures a Runtime. The zero Config is a usable default.
type Config = vm.Config

// Runtime is one embeddable JS realm: its own heap, shape graph,
// intrinsics, JIT engine and microtask queue, with zero state shared
// across Runtimes. Grounded on the teacher's wazero.Runtime, narrowed
// from "compile once, instantiate many times against a shared store"
// to "one context, loaded with one or more bytecode modules" per
// SPEC_FULL.md section 5's single-realm-per-context model.
type Runtime struct {
	vc *vm.VmContext
}

// NewRuntime constructs a Runtime with default configuration.
func NewRuntime() *Runtime { return NewRuntimeWithConfig(Config{}) }

// NewRuntimeWithConfig constructs a Runtime, bootstrapping intrinsics
// and installing cfg.Extensions in order.
func NewRuntimeWithConfig(cfg Config) *Runtime {
	return &Runtime{vc: vm.New(cfg)}
}

// LoadModule decodes and registers a persisted bytecode module (the
// "OTTR" binary format, SPEC_FULL.md section 6.1) under name.
func (r *Runtime) LoadModule(name string, code []byte) (*bytecode.Module, error) {
	return r.vc.LoadModule(name, code)
}

// Run executes mod's entry function as a top-level script and drains
// the microtask queue once it returns.
func (r *Runtime) Run(ctx context.Context, mod *bytecode.Module) (jsvalue.Value, error) {
	return r.vc.RunModule(ctx, mod)
}

// Require resolves specifier (a host extension's module name, or the
// name a previously-loaded bytecode module was registered under) the
// way a script's own `require` call does.
func (r *Runtime) Require(ctx context.Context, specifier string) (jsvalue.Value, error) {
	return r.vc.Require(ctx, specifier)
}

// Interrupt requests cancellation from any goroutine; the running
// script observes it at the next loop back-edge or function entry and
// Run returns interp.ErrInterrupted.
func (r *Runtime) Interrupt() { r.vc.Thread.Interrupt() }

// Close releases the Runtime's JIT engine and GC-managed memory. A
// Runtime must not be used after Close.
func (r *Runtime) Close() error { return r.vc.Close() }
