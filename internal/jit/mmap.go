package jit

import (
	"errors"
	"unsafe"
)

var (
	errEmptyCode           = errors.New("jit: empty machine code buffer")
	errUnsupportedPlatform = errors.New("jit: native code execution unsupported on this platform")
)

// executableBuffer owns one compiled function's mapped machine code.
// Its backing mmap is released by (*Engine).Close via release(),
// mirroring the teacher's compiledModule.executable lifetime tied to
// the owning engine rather than to any one call.
type executableBuffer struct {
	mem []byte
}

func (b *executableBuffer) entry() uintptr {
	if b == nil || len(b.mem) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&b.mem[0]))
}
