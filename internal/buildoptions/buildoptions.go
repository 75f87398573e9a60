// Package buildoptions holds the handful of constants that tune engine
// limits at compile time rather than at runtime configuration, the same
// role the teacher's own internal/buildoptions plays for wazero (its
// IstTest flag lets call sites compile out test-time-only assertions;
// CallStackCeiling was the original home of the frame-depth limit
// before the current interpreter inlined it as a local package var).
package buildoptions

// CallStackCeiling bounds the VM thread's frame stack depth (spec.md
// section 4.E), grounded on the teacher's own
// wasm/interpreter.callStackCeiling = buildoptions.CallStackCeiling
// wiring. A var, not a const, so tests can lower it the same way
// interpreter_test.go does to exercise the RangeError path without
// recursing tens of thousands of frames deep.
var CallStackCeiling = 1 << 16
