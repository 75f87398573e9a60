package jit

import "testing"

// TestJitContextABI checks that offsetOf gives every JitContext field
// its own byte offset (no two fields alias), the same layout
// discipline the teacher applies to its own opaqueVmContext layout
// (internal/engine/cranelift/engine.go's getOpaqueVmContextOffsets).
// It does not compare the offsets against fixed values.
func TestJitContextABI(t *testing.T) {
	var ctx JitContext
	cases := []struct {
		name string
		want uintptr
	}{
		{"FunctionPtr", offsetOf("FunctionPtr")},
		{"ProtoEpoch", offsetOf("ProtoEpoch")},
		{"InterpreterPtr", offsetOf("InterpreterPtr")},
		{"VmCtxPtr", offsetOf("VmCtxPtr")},
		{"RegistersPtr", offsetOf("RegistersPtr")},
		{"RegisterCount", offsetOf("RegisterCount")},
		{"LocalsPtr", offsetOf("LocalsPtr")},
		{"LocalCount", offsetOf("LocalCount")},
		{"ConstantsPtr", offsetOf("ConstantsPtr")},
		{"UpvaluesPtr", offsetOf("UpvaluesPtr")},
		{"UpvalueCount", offsetOf("UpvalueCount")},
		{"ThisRaw", offsetOf("ThisRaw")},
		{"CalleeRaw", offsetOf("CalleeRaw")},
		{"HomeObjectRaw", offsetOf("HomeObjectRaw")},
		{"SecondaryResult", offsetOf("SecondaryResult")},
		{"BailoutReason", offsetOf("BailoutReason")},
		{"BailoutPC", offsetOf("BailoutPC")},
		{"DeoptLocalsPtr", offsetOf("DeoptLocalsPtr")},
		{"DeoptRegsPtr", offsetOf("DeoptRegsPtr")},
	}
	_ = ctx
	seen := map[uintptr]string{}
	for _, c := range cases {
		if prev, ok := seen[c.want]; ok {
			t.Fatalf("field %s aliases %s at offset %d", c.name, prev, c.want)
		}
		seen[c.want] = c.name
	}
}
