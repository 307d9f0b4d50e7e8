package lox

import (
	"fmt"
	"io"

	"github.com/alecthomas/repr"
)

// Disassemble writes a human-readable dump of every instruction in chunk to
// w, labelled with name. Adapted from the teacher's dumper.go (address-width
// padding, one line per decoded instruction), generalized from a Forth
// dictionary walk to a linear bytecode scan (spec.md §4.5's "optional
// trace" / SPEC_FULL.md §6.1's `--disassemble` flag).
func Disassemble(chunk *Chunk, name string, w io.Writer) {
	fmt.Fprintf(w, "== %s ==\n", name)
	for offset := 0; offset < len(chunk.Code); {
		offset = DisassembleInstruction(chunk, offset, w)
	}
}

// DisassembleInstruction decodes and prints the instruction at offset,
// returning the offset of the next instruction.
func DisassembleInstruction(chunk *Chunk, offset int, w io.Writer) int {
	fmt.Fprintf(w, "%04d ", offset)

	line := chunk.GetLine(offset)
	if offset > 0 && line == chunk.GetLine(offset-1) {
		fmt.Fprint(w, "   | ")
	} else {
		fmt.Fprintf(w, "%4d ", line)
	}

	op := OpCode(chunk.Code[offset])
	switch op {
	case OpConstant:
		return constantInstruction(chunk, op, offset, w)
	case OpGetLocal, OpSetLocal:
		return byteInstruction(chunk, op, offset, w)
	case OpGetGlobal, OpDefineGlobal, OpSetGlobal:
		return constantInstruction(chunk, op, offset, w)
	case OpJump, OpJumpIfFalse:
		return jumpInstruction(chunk, op, offset, 1, w)
	case OpLoop:
		return jumpInstruction(chunk, op, offset, -1, w)
	case OpNil, OpTrue, OpFalse, OpPop, OpEqual, OpGreater, OpLess, OpAdd,
		OpSubtract, OpMultiply, OpDivide, OpNot, OpNegate, OpPrint, OpReturn:
		return simpleInstruction(op, offset, w)
	default:
		fmt.Fprintf(w, "Unknown opcode %d\n", op)
		return offset + 1
	}
}

func simpleInstruction(op OpCode, offset int, w io.Writer) int {
	fmt.Fprintf(w, "%s\n", op)
	return offset + 1
}

func byteInstruction(chunk *Chunk, op OpCode, offset int, w io.Writer) int {
	slot := chunk.Code[offset+1]
	fmt.Fprintf(w, "%-16s %4d\n", op, slot)
	return offset + 2
}

func constantInstruction(chunk *Chunk, op OpCode, offset int, w io.Writer) int {
	idx := chunk.Code[offset+1]
	fmt.Fprintf(w, "%-16s %4d '%s'\n", op, idx, repr.String(chunk.Constants[idx]))
	return offset + 2
}

func jumpInstruction(chunk *Chunk, op OpCode, offset int, sign int, w io.Writer) int {
	hi, lo := int(chunk.Code[offset+1]), int(chunk.Code[offset+2])
	jump := hi<<8 | lo
	fmt.Fprintf(w, "%-16s %4d -> %d\n", op, offset, offset+3+sign*jump)
	return offset + 3
}
