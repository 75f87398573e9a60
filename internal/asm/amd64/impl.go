// Package asm_amd64 is the amd64 backend of the baseline JIT's
// instruction emitter. It encodes the fixed instruction subset the
// bytecode translator emits (moves between registers, stack-slot
// loads/stores through a base register, 64-bit ALU ops, relative
// jumps and RET) directly to machine code, resolving jump targets in
// a patch pass over the assembled bytes.
//
// Encoding choices follow the Go assembler's: store-form opcodes for
// register-register moves and ALU ops, the smallest displacement mode
// that fits a memory operand, C7 for sign-extendable 64-bit constant
// moves and B8+r for the rest. Jumps always use the rel32 form; the
// translator's blocks are small enough that short-jump relaxation is
// not worth the second sizing pass it would cost.
package asm_amd64

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/octofhir/otter-vm/internal/asm"
)

type operandForm byte

const (
	formStandAlone operandForm = iota
	formRegisterToRegister
	formMemoryToRegister
	formRegisterToMemory
	formConstToRegister
	formJump
)

// node implements asm.Node for amd64.
type node struct {
	instruction asm.Instruction
	form        operandForm

	srcReg, dstReg asm.Register
	baseReg        asm.Register
	disp           int64
	constValue     int64

	jumpTarget *node
	next       *node

	offsetInBinary asm.NodeOffsetInBinary
	length         int
}

// AssignJumpTarget implements asm.Node.AssignJumpTarget.
func (n *node) AssignJumpTarget(target asm.Node) {
	n.jumpTarget = target.(*node)
}

// OffsetInBinary implements asm.Node.OffsetInBinary.
func (n *node) OffsetInBinary() asm.NodeOffsetInBinary {
	return n.offsetInBinary
}

// String implements fmt.Stringer, in roughly AT&T operand order, for
// assembler debugging.
func (n *node) String() string {
	name := instructionName(n.instruction)
	switch n.form {
	case formStandAlone:
		return name
	case formRegisterToRegister:
		return fmt.Sprintf("%s %s, %s", name, registerName(n.srcReg), registerName(n.dstReg))
	case formMemoryToRegister:
		return fmt.Sprintf("%s [%s + 0x%x], %s", name, registerName(n.baseReg), n.disp, registerName(n.dstReg))
	case formRegisterToMemory:
		return fmt.Sprintf("%s %s, [%s + 0x%x]", name, registerName(n.srcReg), registerName(n.baseReg), n.disp)
	case formConstToRegister:
		return fmt.Sprintf("%s $0x%x, %s", name, n.constValue, registerName(n.dstReg))
	case formJump:
		if n.jumpTarget != nil {
			return fmt.Sprintf("%s {%s}", name, n.jumpTarget.String())
		}
		return fmt.Sprintf("%s <unresolved>", name)
	}
	return name
}

// Assembler builds a linked list of nodes and encodes them on
// Assemble. The temporary register passed to NewAssembler is
// clobbered whenever an ALU constant operand does not fit the
// instruction's sign-extended imm32 field; callers must not hold a
// live value in it across Compile calls.
type Assembler struct {
	temporaryRegister asm.Register

	root, tail *node

	// setJumpTargetOnNext holds jump nodes whose destination is the
	// next node to be compiled.
	setJumpTargetOnNext []*node

	err error
}

func NewAssembler(temporaryRegister asm.Register) (*Assembler, error) {
	if temporaryRegister < REG_AX || temporaryRegister > REG_R15 {
		return nil, fmt.Errorf("asm_amd64: invalid temporary register %d", temporaryRegister)
	}
	return &Assembler{temporaryRegister: temporaryRegister}, nil
}

// setErr records the first compile error; Assemble reports it.
func (a *Assembler) setErr(format string, args ...interface{}) {
	if a.err == nil {
		a.err = fmt.Errorf("asm_amd64: "+format, args...)
	}
}

func (a *Assembler) newNode(instruction asm.Instruction, form operandForm) *node {
	n := &node{instruction: instruction, form: form}
	if a.root == nil {
		a.root = n
	} else {
		a.tail.next = n
	}
	a.tail = n
	for _, origin := range a.setJumpTargetOnNext {
		origin.jumpTarget = n
	}
	a.setJumpTargetOnNext = a.setJumpTargetOnNext[:0]
	return n
}

// SetJumpTargetOnNext makes the next compiled node the jump
// destination of every node in nodes.
func (a *Assembler) SetJumpTargetOnNext(nodes ...asm.Node) {
	for _, n := range nodes {
		a.setJumpTargetOnNext = append(a.setJumpTargetOnNext, n.(*node))
	}
}

// CompileStandAlone compiles an operand-less instruction (RET, NOP).
func (a *Assembler) CompileStandAlone(instruction asm.Instruction) asm.Node {
	switch instruction {
	case RET, NOP:
	default:
		a.setErr("%s has no stand-alone form", instructionName(instruction))
	}
	return a.newNode(instruction, formStandAlone)
}

// CompileRegisterToRegister compiles "to = to OP from" (and for CMPQ,
// sets flags for to-from; for MOVQ/MOVLQSX, to = from).
func (a *Assembler) CompileRegisterToRegister(instruction asm.Instruction, from, to asm.Register) asm.Node {
	switch instruction {
	case MOVQ, MOVLQSX, ADDQ, SUBQ, ANDQ, ORQ, XORQ, CMPQ:
	default:
		a.setErr("%s has no register-register form", instructionName(instruction))
	}
	n := a.newNode(instruction, formRegisterToRegister)
	n.srcReg, n.dstReg = from, to
	return n
}

// CompileMemoryToRegister compiles a load of [sourceBase+sourceOffset]
// into dst.
func (a *Assembler) CompileMemoryToRegister(instruction asm.Instruction, sourceBase asm.Register, sourceOffset int64, dst asm.Register) asm.Node {
	switch instruction {
	case MOVQ, MOVL:
	default:
		a.setErr("%s has no memory-register form", instructionName(instruction))
	}
	if sourceOffset < math.MinInt32 || sourceOffset > math.MaxInt32 {
		a.setErr("memory offset %d exceeds disp32", sourceOffset)
	}
	n := a.newNode(instruction, formMemoryToRegister)
	n.baseReg, n.disp, n.dstReg = sourceBase, sourceOffset, dst
	return n
}

// CompileRegisterToMemory compiles a store of src into
// [dstBase+dstOffset].
func (a *Assembler) CompileRegisterToMemory(instruction asm.Instruction, src asm.Register, dstBase asm.Register, dstOffset int64) asm.Node {
	switch instruction {
	case MOVQ, MOVL:
	default:
		a.setErr("%s has no register-memory form", instructionName(instruction))
	}
	if dstOffset < math.MinInt32 || dstOffset > math.MaxInt32 {
		a.setErr("memory offset %d exceeds disp32", dstOffset)
	}
	n := a.newNode(instruction, formRegisterToMemory)
	n.srcReg, n.baseReg, n.disp = src, dstBase, dstOffset
	return n
}

// CompileConstToRegister compiles "dst = value" (MOVQ/MOVL) or
// "dst = dst OP value" (ALU instructions). An ALU constant outside
// the sign-extended imm32 range is first materialized into the
// assembler's temporary register.
func (a *Assembler) CompileConstToRegister(instruction asm.Instruction, value int64, dst asm.Register) asm.Node {
	switch instruction {
	case MOVQ:
	case MOVL:
		if value < math.MinInt32 || value > math.MaxInt32 {
			a.setErr("MOVL constant %d exceeds 32 bits", value)
		}
	case ADDQ, SUBQ, ANDQ, ORQ, XORQ, CMPQ:
		if value < math.MinInt32 || value > math.MaxInt32 {
			if dst == a.temporaryRegister {
				a.setErr("%s destination clashes with the temporary register", instructionName(instruction))
			}
			first := a.CompileConstToRegister(MOVQ, value, a.temporaryRegister)
			a.CompileRegisterToRegister(instruction, a.temporaryRegister, dst)
			return first
		}
	default:
		a.setErr("%s has no constant-register form", instructionName(instruction))
	}
	n := a.newNode(instruction, formConstToRegister)
	n.constValue, n.dstReg = value, dst
	return n
}

// CompileJump compiles an unconditional (JMP) or conditional jump
// whose destination is assigned later via AssignJumpTarget or
// SetJumpTargetOnNext.
func (a *Assembler) CompileJump(instruction asm.Instruction) asm.Node {
	switch instruction {
	case JMP, JEQ, JNE, JLT, JGE, JLE, JGT:
	default:
		a.setErr("%s is not a jump", instructionName(instruction))
	}
	return a.newNode(instruction, formJump)
}

// Assemble encodes the node list, resolves every jump's rel32
// displacement, and returns the machine code.
func (a *Assembler) Assemble() ([]byte, error) {
	if a.err != nil {
		return nil, a.err
	}

	var buf bytes.Buffer
	var jumps []*node
	for n := a.root; n != nil; n = n.next {
		n.offsetInBinary = uint64(buf.Len())
		if err := encode(&buf, n); err != nil {
			return nil, err
		}
		n.length = buf.Len() - int(n.offsetInBinary)
		if n.form == formJump {
			jumps = append(jumps, n)
		}
	}

	code := buf.Bytes()
	for _, j := range jumps {
		if j.jumpTarget == nil {
			return nil, fmt.Errorf("asm_amd64: %s has no jump target", instructionName(j.instruction))
		}
		rel := int64(j.jumpTarget.offsetInBinary) - int64(j.offsetInBinary) - int64(j.length)
		if rel < math.MinInt32 || rel > math.MaxInt32 {
			return nil, fmt.Errorf("asm_amd64: jump displacement %d exceeds rel32", rel)
		}
		// The rel32 field is the trailing four bytes of both the E9
		// and 0F 8x encodings.
		binary.LittleEndian.PutUint32(code[int(j.offsetInBinary)+j.length-4:], uint32(rel))
	}
	return code, nil
}

const (
	rexW = 0x48
	rexR = 0x44
	rexX = 0x42
	rexB = 0x41
)

// appendRex writes a REX prefix if any of its bits are needed.
func appendRex(buf *bytes.Buffer, w bool, regExt, indexExt, baseExt bool) {
	rex := byte(0x40)
	if w {
		rex |= 0x08
	}
	if regExt {
		rex |= 0x04
	}
	if indexExt {
		rex |= 0x02
	}
	if baseExt {
		rex |= 0x01
	}
	if rex != 0x40 {
		buf.WriteByte(rex)
	}
}

// appendModRMMem writes the ModRM byte (and SIB/displacement) for a
// [base+disp] memory operand with regField in the reg slot, choosing
// the smallest displacement mode: no displacement when disp is zero
// (except for BP/R13, whose mod=00 encoding means RIP-relative),
// disp8 when it fits, disp32 otherwise. SP/R12 as base require a SIB
// byte.
func appendModRMMem(buf *bytes.Buffer, regField byte, base asm.Register, disp int64) {
	baseBits := registerBits(base) & 7
	var mod byte
	switch {
	case disp == 0 && baseBits != 5:
		mod = 0x00
	case disp >= math.MinInt8 && disp <= math.MaxInt8:
		mod = 0x40
	default:
		mod = 0x80
	}
	buf.WriteByte(mod | (regField&7)<<3 | baseBits)
	if baseBits == 4 {
		buf.WriteByte(0x24) // SIB: scale=1, no index, base
	}
	switch mod {
	case 0x40:
		buf.WriteByte(byte(disp))
	case 0x80:
		var d [4]byte
		binary.LittleEndian.PutUint32(d[:], uint32(disp))
		buf.Write(d[:])
	}
}

func appendImm32(buf *bytes.Buffer, v int64) {
	var d [4]byte
	binary.LittleEndian.PutUint32(d[:], uint32(v))
	buf.Write(d[:])
}

// aluStoreOpcode is the "r/m64, r64" (store-form) opcode byte per ALU
// instruction, the same form the Go assembler picks for
// register-register operands.
var aluStoreOpcode = map[asm.Instruction]byte{
	MOVQ: 0x89, ADDQ: 0x01, SUBQ: 0x29, ANDQ: 0x21, ORQ: 0x09, XORQ: 0x31, CMPQ: 0x39,
}

// aluExtension is the /digit opcode extension for the 81 imm32 group.
var aluExtension = map[asm.Instruction]byte{
	ADDQ: 0, ORQ: 1, ANDQ: 4, SUBQ: 5, XORQ: 6, CMPQ: 7,
}

var jccOpcode = map[asm.Instruction]byte{
	JEQ: 0x84, JNE: 0x85, JLT: 0x8C, JGE: 0x8D, JLE: 0x8E, JGT: 0x8F,
}

func encode(buf *bytes.Buffer, n *node) error {
	switch n.form {
	case formStandAlone:
		if n.instruction == RET {
			buf.WriteByte(0xC3)
		} else {
			buf.WriteByte(0x90)
		}

	case formRegisterToRegister:
		src, dst := registerBits(n.srcReg), registerBits(n.dstReg)
		if n.instruction == MOVLQSX {
			// 63 /r sign-extends r/m32 into r64; reg names the
			// destination, the reverse of the store-form ALU group.
			appendRex(buf, true, dst > 7, false, src > 7)
			buf.WriteByte(0x63)
			buf.WriteByte(0xC0 | (dst&7)<<3 | src&7)
			break
		}
		appendRex(buf, true, src > 7, false, dst > 7)
		buf.WriteByte(aluStoreOpcode[n.instruction])
		buf.WriteByte(0xC0 | (src&7)<<3 | dst&7)

	case formMemoryToRegister:
		dst, base := registerBits(n.dstReg), registerBits(n.baseReg)
		appendRex(buf, n.instruction == MOVQ, dst > 7, false, base > 7)
		buf.WriteByte(0x8B)
		appendModRMMem(buf, dst, n.baseReg, n.disp)

	case formRegisterToMemory:
		src, base := registerBits(n.srcReg), registerBits(n.baseReg)
		appendRex(buf, n.instruction == MOVQ, src > 7, false, base > 7)
		buf.WriteByte(0x89)
		appendModRMMem(buf, src, n.baseReg, n.disp)

	case formConstToRegister:
		dst := registerBits(n.dstReg)
		switch n.instruction {
		case MOVQ:
			switch {
			case n.constValue >= math.MinInt32 && n.constValue <= math.MaxInt32:
				appendRex(buf, true, false, false, dst > 7)
				buf.WriteByte(0xC7)
				buf.WriteByte(0xC0 | dst&7)
				appendImm32(buf, n.constValue)
			case n.constValue > 0 && n.constValue <= math.MaxUint32:
				// Writing the 32-bit register zero-extends, so an
				// unsigned-32-bit constant takes the short MOVL form,
				// the same rewrite the Go assembler applies.
				appendRex(buf, false, false, false, dst > 7)
				buf.WriteByte(0xB8 | dst&7)
				appendImm32(buf, n.constValue)
			default:
				appendRex(buf, true, false, false, dst > 7)
				buf.WriteByte(0xB8 | dst&7)
				var d [8]byte
				binary.LittleEndian.PutUint64(d[:], uint64(n.constValue))
				buf.Write(d[:])
			}
		case MOVL:
			appendRex(buf, false, false, false, dst > 7)
			buf.WriteByte(0xB8 | dst&7)
			appendImm32(buf, n.constValue)
		default:
			appendRex(buf, true, false, false, dst > 7)
			if n.constValue >= math.MinInt8 && n.constValue <= math.MaxInt8 {
				buf.WriteByte(0x83)
				buf.WriteByte(0xC0 | aluExtension[n.instruction]<<3 | dst&7)
				buf.WriteByte(byte(n.constValue))
			} else {
				buf.WriteByte(0x81)
				buf.WriteByte(0xC0 | aluExtension[n.instruction]<<3 | dst&7)
				appendImm32(buf, n.constValue)
			}
		}

	case formJump:
		if n.instruction == JMP {
			buf.WriteByte(0xE9)
		} else {
			buf.WriteByte(0x0F)
			buf.WriteByte(jccOpcode[n.instruction])
		}
		appendImm32(buf, 0) // patched after offsets are final

	default:
		return fmt.Errorf("asm_amd64: unknown operand form %d", n.form)
	}
	return nil
}
