//go:build !amd64

package jit

import "github.com/octofhir/otter-vm/internal/bytecode"

// translate declines every function on architectures without a native
// backend; the engine memoizes the declined attempt and the function
// keeps interpreting.
func translate(fn *bytecode.Function) ([]byte, error) {
	return nil, errUnsupportedPlatform
}
