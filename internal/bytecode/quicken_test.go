package bytecode

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newAddFunction() *Function {
	return &Function{
		Instructions: []Instruction{{Op: OpAdd, Dst: 0, Src1: 1, Src2: 2, ICIndex: 0}},
		Feedback:     make([]FeedbackSlot, 1),
	}
}

func TestQuickenToInt32FastPath(t *testing.T) {
	f := newAddFunction()
	f.Feedback[0].Observe(TypeInt32)
	Quicken(f, 0)
	require.Equal(t, OpAddInt32, f.Instructions[0].Op)
}

func TestQuickenStaysGenericWhenMixed(t *testing.T) {
	f := newAddFunction()
	f.Feedback[0].Observe(TypeInt32)
	f.Feedback[0].Observe(TypeString)
	Quicken(f, 0)
	require.Equal(t, OpAdd, f.Instructions[0].Op)
}

func TestSecondObservedTypeDequickens(t *testing.T) {
	f := newAddFunction()
	f.Feedback[0].Observe(TypeInt32)
	Quicken(f, 0)
	require.Equal(t, OpAddInt32, f.Instructions[0].Op)

	// A second type is observed at the now-quickened site.
	f.Feedback[0].Observe(TypeNumber)
	Quicken(f, 0)
	require.Equal(t, OpAdd, f.Instructions[0].Op, "mixed types de-quicken rather than widen")
}

func TestJITEligibilityGate(t *testing.T) {
	f := &Function{Instructions: []Instruction{{Op: OpAdd}, {Op: OpReturn}}}
	require.True(t, f.JITEligible())

	f2 := &Function{Instructions: []Instruction{{Op: OpAwait}}}
	require.False(t, f2.JITEligible())

	f3 := &Function{Flags: FunctionFlags{UsesEval: true}, Instructions: []Instruction{{Op: OpAdd}}}
	require.False(t, f3.JITEligible())

	f4 := &Function{Instructions: []Instruction{{Op: OpJump, JumpDelta: 100}}}
	require.False(t, f4.JITEligible(), "out-of-range jump target disqualifies")
}
