// Package jsparser is the seam between the engine and its ECMAScript
// front end. Parsing and bytecode generation are external
// collaborators; the engine only consumes the bytecode.Module a
// Frontend produces. This mirrors how the teacher treats the text
// format: the engine proper takes decoded modules, and whatever turns
// source text into one lives behind a narrow interface.
package jsparser

import (
	"errors"
	"fmt"

	"github.com/octofhir/otter-vm/internal/bytecode"
)

// Source is one script or module to compile.
type Source struct {
	// Name identifies the source in diagnostics and module
	// registration, typically a file path or specifier.
	Name string
	// Text is the ECMAScript source text.
	Text string
}

// Frontend turns ECMAScript source into an executable module.
// Implementations live outside this repository; a compile failure is
// the host-level SyntaxError case and maps to the same exit path as a
// malformed persisted module.
type Frontend interface {
	Compile(src Source) (*bytecode.Module, error)
}

// ErrUnknownSource is returned by Precompiled for a name it has no
// module for.
var ErrUnknownSource = errors.New("jsparser: unknown source")

// Precompiled is a Frontend backed by already-built modules keyed by
// source name, ignoring the source text. It stands in for a real
// front end in tests and in hosts that ship bytecode only.
type Precompiled map[string]*bytecode.Module

// Compile implements Frontend.
func (p Precompiled) Compile(src Source) (*bytecode.Module, error) {
	mod, ok := p[src.Name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSource, src.Name)
	}
	return mod, nil
}
