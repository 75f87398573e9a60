//go:build !((amd64 || arm64) && (darwin || linux))

package jit

// allocExecutable has no portable implementation outside
// linux/darwin amd64/arm64 in this package (Windows would need
// VirtualAlloc/VirtualProtect via golang.org/x/sys/windows, which
// SPEC_FULL.md scopes out - see DESIGN.md); callers fall back to
// interpretation only, the same degrade-to-interpreter path
// config_unsupported.go takes for the teacher's own compiler engine.
func allocExecutable(code []byte) (*executableBuffer, error) {
	return nil, errUnsupportedPlatform
}

func (b *executableBuffer) release() error { return nil }
