package asm_amd64

import (
	"testing"

	goasm "github.com/twitchyliquid64/golang-asm"
	"github.com/twitchyliquid64/golang-asm/obj"
	"github.com/twitchyliquid64/golang-asm/obj/x86"
	"github.com/twitchyliquid64/golang-asm/objabi"

	"github.com/stretchr/testify/require"

	"github.com/octofhir/otter-vm/internal/asm"
)

var goasmRegister = map[asm.Register]int16{
	REG_AX: x86.REG_AX, REG_CX: x86.REG_CX, REG_DX: x86.REG_DX, REG_BX: x86.REG_BX,
	REG_SP: x86.REG_SP, REG_BP: x86.REG_BP, REG_SI: x86.REG_SI, REG_DI: x86.REG_DI,
	REG_R8: x86.REG_R8, REG_R9: x86.REG_R9, REG_R10: x86.REG_R10, REG_R11: x86.REG_R11,
	REG_R12: x86.REG_R12, REG_R13: x86.REG_R13, REG_R14: x86.REG_R14, REG_R15: x86.REG_R15,
}

var goasmInstruction = map[asm.Instruction]obj.As{
	RET: obj.ARET, MOVQ: x86.AMOVQ, MOVL: x86.AMOVL, MOVLQSX: x86.AMOVLQSX,
	ADDQ: x86.AADDQ, SUBQ: x86.ASUBQ, ANDQ: x86.AANDQ, ORQ: x86.AORQ,
	XORQ: x86.AXORQ, CMPQ: x86.ACMPQ,
}

// refAssembler mirrors the Compile* calls a test makes onto the Go
// assembler (via the golang-asm fork), so every encoding below is
// checked byte for byte against what the Go toolchain itself would
// produce for the same operation.
type refAssembler struct {
	b *goasm.Builder
}

func newRefAssembler(t *testing.T) *refAssembler {
	// Jump-alignment NOP padding would make golang-asm's output
	// diverge for reasons unrelated to per-instruction encoding.
	objabi.GOAMD64 = "disable"
	b, err := goasm.NewBuilder("amd64", 1024)
	require.NoError(t, err)
	return &refAssembler{b: b}
}

func (r *refAssembler) add(p *obj.Prog) { r.b.AddInstruction(p) }

func (r *refAssembler) standAlone(inst asm.Instruction) {
	p := r.b.NewProg()
	p.As = goasmInstruction[inst]
	r.add(p)
}

func (r *refAssembler) registerToRegister(inst asm.Instruction, from, to asm.Register) {
	p := r.b.NewProg()
	p.As = goasmInstruction[inst]
	if inst == CMPQ {
		// This package's CompileRegisterToRegister(CMPQ, from, to)
		// sets flags for to-from; in Go assembly the first operand is
		// the minuend, so the reference operands swap.
		from, to = to, from
	}
	p.From = obj.Addr{Type: obj.TYPE_REG, Reg: goasmRegister[from]}
	p.To = obj.Addr{Type: obj.TYPE_REG, Reg: goasmRegister[to]}
	r.add(p)
}

func (r *refAssembler) memoryToRegister(inst asm.Instruction, base asm.Register, offset int64, dst asm.Register) {
	p := r.b.NewProg()
	p.As = goasmInstruction[inst]
	p.From = obj.Addr{Type: obj.TYPE_MEM, Reg: goasmRegister[base], Offset: offset}
	p.To = obj.Addr{Type: obj.TYPE_REG, Reg: goasmRegister[dst]}
	r.add(p)
}

func (r *refAssembler) registerToMemory(inst asm.Instruction, src asm.Register, base asm.Register, offset int64) {
	p := r.b.NewProg()
	p.As = goasmInstruction[inst]
	p.From = obj.Addr{Type: obj.TYPE_REG, Reg: goasmRegister[src]}
	p.To = obj.Addr{Type: obj.TYPE_MEM, Reg: goasmRegister[base], Offset: offset}
	r.add(p)
}

func (r *refAssembler) constToRegister(inst asm.Instruction, value int64, dst asm.Register) {
	p := r.b.NewProg()
	p.As = goasmInstruction[inst]
	if inst == CMPQ {
		// In Go assembly CMP takes the register first and the
		// constant second, the reverse of the other ALU ops.
		p.From = obj.Addr{Type: obj.TYPE_REG, Reg: goasmRegister[dst]}
		p.To = obj.Addr{Type: obj.TYPE_CONST, Offset: value}
	} else {
		p.From = obj.Addr{Type: obj.TYPE_CONST, Offset: value}
		p.To = obj.Addr{Type: obj.TYPE_REG, Reg: goasmRegister[dst]}
	}
	r.add(p)
}

func (r *refAssembler) assemble() []byte { return r.b.Assemble() }

func TestAssembler_registerToRegister_matchesGoAssembler(t *testing.T) {
	instructions := []asm.Instruction{MOVQ, ADDQ, SUBQ, ANDQ, ORQ, XORQ, CMPQ, MOVLQSX}
	pairs := [][2]asm.Register{
		{REG_AX, REG_BX}, {REG_CX, REG_DX}, {REG_AX, REG_AX},
		{REG_AX, REG_R15}, {REG_R8, REG_AX}, {REG_R11, REG_R13}, {REG_SI, REG_DI},
	}
	for _, inst := range instructions {
		t.Run(instructionName(inst), func(t *testing.T) {
			a, err := NewAssembler(REG_R11)
			require.NoError(t, err)
			ref := newRefAssembler(t)
			for _, pr := range pairs {
				a.CompileRegisterToRegister(inst, pr[0], pr[1])
				ref.registerToRegister(inst, pr[0], pr[1])
			}
			actual, err := a.Assemble()
			require.NoError(t, err)
			require.Equal(t, ref.assemble(), actual)
		})
	}
}

func TestAssembler_memoryOperands_matchGoAssembler(t *testing.T) {
	bases := []asm.Register{REG_AX, REG_BP, REG_SP, REG_R12, REG_R13, REG_R14, REG_R15}
	offsets := []int64{0, 8, -8, 127, 128, -129, 4096}
	for _, inst := range []asm.Instruction{MOVQ, MOVL} {
		t.Run(instructionName(inst), func(t *testing.T) {
			a, err := NewAssembler(REG_R11)
			require.NoError(t, err)
			ref := newRefAssembler(t)
			for _, base := range bases {
				for _, offset := range offsets {
					a.CompileMemoryToRegister(inst, base, offset, REG_AX)
					ref.memoryToRegister(inst, base, offset, REG_AX)
					a.CompileRegisterToMemory(inst, REG_R9, base, offset)
					ref.registerToMemory(inst, REG_R9, base, offset)
				}
			}
			actual, err := a.Assemble()
			require.NoError(t, err)
			require.Equal(t, ref.assemble(), actual)
		})
	}
}

func TestAssembler_constToRegister_matchesGoAssembler(t *testing.T) {
	t.Run("MOVQ", func(t *testing.T) {
		a, err := NewAssembler(REG_R11)
		require.NoError(t, err)
		ref := newRefAssembler(t)
		for _, v := range []int64{0, 1, -1, 127, 128, 1 << 30, -(1 << 31), 1 << 31, 1 << 62, -(1 << 62)} {
			for _, dst := range []asm.Register{REG_AX, REG_R15} {
				a.CompileConstToRegister(MOVQ, v, dst)
				ref.constToRegister(MOVQ, v, dst)
			}
		}
		actual, err := a.Assemble()
		require.NoError(t, err)
		require.Equal(t, ref.assemble(), actual)
	})
	t.Run("MOVL", func(t *testing.T) {
		a, err := NewAssembler(REG_R11)
		require.NoError(t, err)
		ref := newRefAssembler(t)
		for _, v := range []int64{0, 1, 255, 1 << 20} {
			for _, dst := range []asm.Register{REG_AX, REG_DX, REG_R10} {
				a.CompileConstToRegister(MOVL, v, dst)
				ref.constToRegister(MOVL, v, dst)
			}
		}
		actual, err := a.Assemble()
		require.NoError(t, err)
		require.Equal(t, ref.assemble(), actual)
	})
	t.Run("ALU imm", func(t *testing.T) {
		a, err := NewAssembler(REG_R11)
		require.NoError(t, err)
		ref := newRefAssembler(t)
		for _, inst := range []asm.Instruction{ADDQ, SUBQ, ANDQ, ORQ, XORQ, CMPQ} {
			for _, v := range []int64{1, 127, 128, -128, -129, 1 << 30} {
				a.CompileConstToRegister(inst, v, REG_DX)
				ref.constToRegister(inst, v, REG_DX)
			}
		}
		actual, err := a.Assemble()
		require.NoError(t, err)
		require.Equal(t, ref.assemble(), actual)
	})
}

func TestAssembler_standAlone(t *testing.T) {
	a, err := NewAssembler(REG_R11)
	require.NoError(t, err)
	a.CompileStandAlone(RET)
	actual, err := a.Assemble()
	require.NoError(t, err)
	require.Equal(t, []byte{0xC3}, actual)
}

// Jump encoding stays on the rel32 form regardless of distance, so
// the expectations here are fixed bytes rather than golang-asm output
// (which relaxes short jumps).
func TestAssembler_jumps(t *testing.T) {
	t.Run("forward via SetJumpTargetOnNext", func(t *testing.T) {
		a, err := NewAssembler(REG_R11)
		require.NoError(t, err)
		j := a.CompileJump(JEQ)
		a.CompileStandAlone(RET)
		a.SetJumpTargetOnNext(j)
		a.CompileStandAlone(RET)
		actual, err := a.Assemble()
		require.NoError(t, err)
		// JEQ is 6 bytes, then RET at 6, target RET at 7: rel = 7-6 = 1.
		require.Equal(t, []byte{0x0F, 0x84, 0x01, 0x00, 0x00, 0x00, 0xC3, 0xC3}, actual)
	})
	t.Run("backward via AssignJumpTarget", func(t *testing.T) {
		a, err := NewAssembler(REG_R11)
		require.NoError(t, err)
		target := a.CompileStandAlone(RET)
		j := a.CompileJump(JMP)
		j.AssignJumpTarget(target)
		actual, err := a.Assemble()
		require.NoError(t, err)
		// JMP occupies [1,6); rel = 0 - 6 = -6.
		require.Equal(t, []byte{0xC3, 0xE9, 0xFA, 0xFF, 0xFF, 0xFF}, actual)
	})
	t.Run("unresolved target errors", func(t *testing.T) {
		a, err := NewAssembler(REG_R11)
		require.NoError(t, err)
		a.CompileJump(JMP)
		_, err = a.Assemble()
		require.Error(t, err)
	})
}

func TestAssembler_bigALUConstUsesTemporary(t *testing.T) {
	const big = int64(0x1234_5678_9ABC)
	a, err := NewAssembler(REG_R11)
	require.NoError(t, err)
	a.CompileConstToRegister(ANDQ, big, REG_AX)

	manual, err := NewAssembler(REG_R11)
	require.NoError(t, err)
	manual.CompileConstToRegister(MOVQ, big, REG_R11)
	manual.CompileRegisterToRegister(ANDQ, REG_R11, REG_AX)

	actual, err := a.Assemble()
	require.NoError(t, err)
	expected, err := manual.Assemble()
	require.NoError(t, err)
	require.Equal(t, expected, actual)
}

func TestAssembler_offsetsAndErrors(t *testing.T) {
	t.Run("offsets recorded", func(t *testing.T) {
		a, err := NewAssembler(REG_R11)
		require.NoError(t, err)
		first := a.CompileConstToRegister(MOVQ, 1, REG_AX) // 7 bytes: REX C7 /0 imm32
		second := a.CompileStandAlone(RET)
		_, err = a.Assemble()
		require.NoError(t, err)
		require.Equal(t, asm.NodeOffsetInBinary(0), first.OffsetInBinary())
		require.Equal(t, asm.NodeOffsetInBinary(7), second.OffsetInBinary())
	})
	t.Run("unsupported form", func(t *testing.T) {
		a, err := NewAssembler(REG_R11)
		require.NoError(t, err)
		a.CompileStandAlone(ADDQ)
		_, err = a.Assemble()
		require.Error(t, err)
	})
	t.Run("invalid temporary register", func(t *testing.T) {
		_, err := NewAssembler(asm.NilRegister)
		require.Error(t, err)
	})
	t.Run("temporary clash", func(t *testing.T) {
		a, err := NewAssembler(REG_R11)
		require.NoError(t, err)
		a.CompileConstToRegister(ANDQ, 1<<40, REG_R11)
		_, err = a.Assemble()
		require.Error(t, err)
	})
}
