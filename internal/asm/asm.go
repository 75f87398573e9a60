// Package asm holds the architecture-independent surface of the
// baseline JIT's instruction emitter: registers, instruction mnemonics
// and the Node handle jump-patching works through. Architecture
// backends (internal/asm/amd64) define the concrete encodings.
package asm

import "fmt"

// Register represents architecture-specific registers.
type Register byte

// NilRegister is the only architecture-independent register, used to
// indicate that no register is specified.
const NilRegister Register = 0

// Instruction represents architecture-specific instructions.
type Instruction byte

// ConstantValue represents a constant operand.
type ConstantValue = int64

// NodeOffsetInBinary is a node's byte offset in the assembled binary,
// valid only after Assemble.
type NodeOffsetInBinary = uint64

// Node is the handle an emitter returns for each compiled operation.
// Jump instructions resolve their destination through it: either
// directly via AssignJumpTarget, or by the assembler's
// SetJumpTargetOnNext convenience.
type Node interface {
	fmt.Stringer
	// AssignJumpTarget sets target as the destination of this node's
	// jump instruction.
	AssignJumpTarget(target Node)
	// OffsetInBinary returns this node's offset in the assembled
	// binary.
	OffsetInBinary() NodeOffsetInBinary
}
