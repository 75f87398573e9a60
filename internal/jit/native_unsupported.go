//go:build !amd64

package jit

// invokeNative has no real implementation outside amd64: the translator
// itself is amd64-only (see translator_amd64.go/translator_other.go),
// so CompiledFunction.code is always nil on other architectures and
// this is never reached in practice; it exists so Engine.Invoke has
// one code path regardless of GOARCH.
func (cf *CompiledFunction) invokeNative(ctx *JitContext) (uint64, bool) {
	return 0, false
}
