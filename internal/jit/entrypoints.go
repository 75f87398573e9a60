package jit

// BailoutSentinel is the NaN-boxed-looking uint64 a compiled entry
// returns to signal "control returns to the interpreter"; it reuses
// the jsvalue undefined-tag encoding's low bits so a caller that
// forgets to check for it at least fails loudly rather than silently
// treating a bailout as a real Undefined result. internal/interp's
// Call path always checks the sentinel explicitly before ever
// re-interpreting a compiled entry's raw return value as a Value.
var BailoutSentinel uint64 = 0xFFFF_0000_0000_0001

// EntryFunc is the signature every compiled function entry point has:
// one pointer to a fully-populated JitContext in, one raw return slot
// out (either a real NaN-boxed jsvalue.Value, or BailoutSentinel with
// ctx.BailoutReason/BailoutPC set). Mirrors the teacher's
// moduleEngine.NewFunction-produced api.Function closures, narrowed to
// a single fixed-shape ABI since every JS function - regardless of
// arity - is called through the same boxed-args convention.
type EntryFunc func(ctx *JitContext) uint64
