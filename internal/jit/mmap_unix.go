//go:build (amd64 || arm64) && (darwin || linux)

package jit

import "golang.org/x/sys/unix"

// allocExecutable reserves an anonymous, eventually-executable mapping
// and copies code into it, mirroring internal/platform's
// MmapCodeSegment contract (that file's actual source was not present
// in the retrieved reference set - see DESIGN.md - so this is written
// directly against golang.org/x/sys/unix, a dependency the teacher
// already carries for its own platform package).
//
// The mapping starts Read|Write so the copy below is legal, then is
// remapped Read|Exec - never Write+Exec simultaneously - following
// the W^X discipline spec.md section 4.G assumes of any native-code
// buffer.
func allocExecutable(code []byte) (*executableBuffer, error) {
	if len(code) == 0 {
		return nil, errEmptyCode
	}
	mem, err := unix.Mmap(-1, 0, len(code), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, err
	}
	copy(mem, code)
	if err := unix.Mprotect(mem, unix.PROT_READ|unix.PROT_EXEC); err != nil {
		_ = unix.Munmap(mem)
		return nil, err
	}
	return &executableBuffer{mem: mem}, nil
}

func (b *executableBuffer) release() error {
	if b == nil || b.mem == nil {
		return nil
	}
	err := unix.Munmap(b.mem)
	b.mem = nil
	return err
}
