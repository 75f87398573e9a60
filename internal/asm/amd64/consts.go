package asm_amd64

import "github.com/octofhir/otter-vm/internal/asm"

// AMD64-specific register values. The hardware encoding of a register
// is its distance from REG_AX (AX=0 ... DI=7, R8=8 ... R15=15).
const (
	REG_AX asm.Register = asm.NilRegister + 1 + iota
	REG_CX
	REG_DX
	REG_BX
	REG_SP
	REG_BP
	REG_SI
	REG_DI
	REG_R8
	REG_R9
	REG_R10
	REG_R11
	REG_R12
	REG_R13
	REG_R14
	REG_R15
)

func registerBits(r asm.Register) byte { return byte(r - REG_AX) }

func registerName(r asm.Register) string {
	names := [...]string{"AX", "CX", "DX", "BX", "SP", "BP", "SI", "DI",
		"R8", "R9", "R10", "R11", "R12", "R13", "R14", "R15"}
	if r < REG_AX || r > REG_R15 {
		return "nil"
	}
	return names[registerBits(r)]
}

// AMD64-specific instructions, limited to the set the bytecode
// translator (internal/jit) actually emits plus their natural
// condition-code companions.
const (
	NOP asm.Instruction = iota + 1
	RET
	MOVQ
	MOVL
	MOVLQSX
	ADDQ
	SUBQ
	ANDQ
	ORQ
	XORQ
	CMPQ
	JMP
	JEQ
	JNE
	JLT
	JGE
	JLE
	JGT
)

func instructionName(i asm.Instruction) string {
	names := [...]string{"", "NOP", "RET", "MOVQ", "MOVL", "MOVLQSX",
		"ADDQ", "SUBQ", "ANDQ", "ORQ", "XORQ", "CMPQ",
		"JMP", "JEQ", "JNE", "JLT", "JGE", "JLE", "JGT"}
	if int(i) >= len(names) {
		return "unknown"
	}
	return names[i]
}
