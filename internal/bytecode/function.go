package bytecode

// FunctionFlags mirrors spec.md section 3.4's
// "async/generator/has-rest/uses-arguments/uses-eval" flags, which
// also drive the JIT eligibility gate (spec.md section 4.G).
type FunctionFlags struct {
	Async         bool
	Generator     bool
	HasRest       bool
	UsesArguments bool
	UsesEval      bool
}

// UpvalueDescriptor describes one captured variable a closure needs,
// matching spec.md section 9's upvalue design note: either captured
// directly from the enclosing frame's locals, or forwarded from the
// enclosing closure's own upvalues.
type UpvalueDescriptor struct {
	FromParentLocal bool
	Index           uint16 // local index (FromParentLocal) or parent upvalue index
}

// Function holds one compiled function's metadata, instructions, and
// feedback vector (spec.md section 3.4).
type Function struct {
	Name          uint32 // constant-pool string index, or NoFeedback if anonymous
	ParamCount    uint16
	RegisterCount uint16
	LocalCount    uint16
	Flags         FunctionFlags
	Upvalues      []UpvalueDescriptor
	Instructions  []Instruction
	Feedback      []FeedbackSlot

	// HotnessCounter advances on each entry (spec.md section 4.G); it
	// is mutable per-function state, not immutable metadata, but lives
	// here because the module owns the Function's lifetime.
	HotnessCounter uint32
}

// JITEligible implements spec.md section 4.G's eligibility gate: every
// instruction supported, every jump target in range, and none of the
// disqualifying flags set.
func (f *Function) JITEligible() bool {
	if f.Flags.UsesEval || f.Flags.UsesArguments {
		return false
	}
	for i, ins := range f.Instructions {
		if !ins.Op.SupportedByJIT() {
			return false
		}
		if ins.Op == OpJump || ins.Op == OpJumpIfTrue || ins.Op == OpJumpIfFalse ||
			ins.Op == OpJumpIfNullish || ins.Op == OpJumpIfNotNullish {
			// Jump targets are relative to the jump's own pc.
			target := i + int(ins.JumpDelta)
			if target < 0 || target > len(f.Instructions) {
				return false
			}
		}
	}
	return true
}

// Module is an immutable bundle of a constant pool, a vector of
// functions, and an entry function index (spec.md section 3.4).
type Module struct {
	Constants Pool
	Functions []*Function
	EntryFunc uint32
}

func (m *Module) Entry() *Function {
	if int(m.EntryFunc) >= len(m.Functions) {
		return nil
	}
	return m.Functions[m.EntryFunc]
}
