package vm

import (
	"github.com/octofhir/otter-vm/internal/bytecode"
)

// ModuleRegistry tracks the bytecode modules loaded into one
// VmContext by name, plus the specifier-to-extension routing
// SPEC_FULL.md section 6.2's minimal module loader seam needs. It
// plays the same bookkeeping role the teacher's internal/wasm Store
// plays for "which named module instances exist right now", narrowed
// from a shared-across-instantiations store to one realm's own
// bytecode module + extension namespace.
type ModuleRegistry struct {
	modules    map[string]*bytecode.Module
	extensions map[string]Extension
	specifiers map[string]ModuleSpecifierExtension
}

func newModuleRegistry() *ModuleRegistry {
	return &ModuleRegistry{
		modules:    make(map[string]*bytecode.Module),
		extensions: make(map[string]Extension),
		specifiers: make(map[string]ModuleSpecifierExtension),
	}
}

func (m *ModuleRegistry) register(name string, mod *bytecode.Module) {
	m.modules[name] = mod
}

// Module looks up a previously loaded bytecode module by the name it
// was registered under.
func (m *ModuleRegistry) Module(name string) (*bytecode.Module, bool) {
	mod, ok := m.modules[name]
	return mod, ok
}

func (m *ModuleRegistry) registerExtension(ext Extension) {
	m.extensions[ext.Name()] = ext
	if specced, ok := ext.(ModuleSpecifierExtension); ok {
		for _, spec := range specced.Specifiers() {
			m.specifiers[spec] = specced
		}
	}
}

// ExtensionFor resolves a bare module specifier (e.g. "fs") to the
// extension that registered it, for internal/modresolve's loader to
// call LoadModule against.
func (m *ModuleRegistry) ExtensionFor(specifier string) (ModuleSpecifierExtension, bool) {
	ext, ok := m.specifiers[specifier]
	return ext, ok
}
