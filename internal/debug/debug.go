// Package debug implements the disassembler: a human-readable dump of a
// chunk used both by DEBUG_PRINT_CODE after compilation and by
// DEBUG_TRACE_EXECUTION before every instruction the VM runs, per
// spec.md §4.7.
package debug

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/lado-saha/loxvm/internal/chunk"
)

// DisassembleChunk writes every instruction in c to w, headed by name, and
// closes with a humanize-formatted summary line (additive, never changing
// the per-instruction format itself).
func DisassembleChunk(w io.Writer, c *chunk.Chunk, name string) {
	fmt.Fprintf(w, "== %s ==\n", name)
	for offset := 0; offset < len(c.Code); {
		offset = DisassembleInstruction(w, c, offset)
	}
	fmt.Fprintf(w, "-- %s instructions, %s constants --\n",
		humanize.Comma(int64(countInstructions(c))), humanize.Comma(int64(len(c.Constants))))
}

func countInstructions(c *chunk.Chunk) int {
	n := 0
	for offset := 0; offset < len(c.Code); {
		offset = instructionLength(chunk.OpCode(c.Code[offset]), offset)
		n++
	}
	return n
}

func instructionLength(op chunk.OpCode, offset int) int {
	switch op {
	case chunk.OpConstant, chunk.OpGetLocal, chunk.OpSetLocal,
		chunk.OpGetGlobal, chunk.OpDefineGlobal, chunk.OpSetGlobal:
		return offset + 2
	case chunk.OpJump, chunk.OpJumpIfFalse, chunk.OpLoop:
		return offset + 3
	default:
		return offset + 1
	}
}

// DisassembleInstruction writes the instruction at offset and returns the
// offset of the next instruction.
func DisassembleInstruction(w io.Writer, c *chunk.Chunk, offset int) int {
	fmt.Fprintf(w, "%04d ", offset)

	if offset > 0 && c.Lines[offset] == c.Lines[offset-1] {
		fmt.Fprint(w, "   | ")
	} else {
		fmt.Fprintf(w, "%4d ", c.Lines[offset])
	}

	op := chunk.OpCode(c.Code[offset])
	switch op {
	case chunk.OpConstant:
		return constantInstruction(w, op, c, offset)
	case chunk.OpGetLocal, chunk.OpSetLocal:
		return byteInstruction(w, op, c, offset)
	case chunk.OpGetGlobal, chunk.OpDefineGlobal, chunk.OpSetGlobal:
		return constantInstruction(w, op, c, offset)
	case chunk.OpJump, chunk.OpJumpIfFalse:
		return jumpInstruction(w, op, 1, c, offset)
	case chunk.OpLoop:
		return jumpInstruction(w, op, -1, c, offset)
	default:
		return simpleInstruction(w, op, offset)
	}
}

func simpleInstruction(w io.Writer, op chunk.OpCode, offset int) int {
	fmt.Fprintf(w, "%s\n", op)
	return offset + 1
}

func byteInstruction(w io.Writer, op chunk.OpCode, c *chunk.Chunk, offset int) int {
	slot := c.Code[offset+1]
	fmt.Fprintf(w, "%-16s %4d\n", op, slot)
	return offset + 2
}

func constantInstruction(w io.Writer, op chunk.OpCode, c *chunk.Chunk, offset int) int {
	idx := c.Code[offset+1]
	fmt.Fprintf(w, "%-16s %4d '%s'\n", op, idx, c.Constants[idx].String())
	return offset + 2
}

func jumpInstruction(w io.Writer, op chunk.OpCode, sign int, c *chunk.Chunk, offset int) int {
	jump := int(binary.BigEndian.Uint16(c.Code[offset+1 : offset+3]))
	target := offset + 3 + sign*jump
	fmt.Fprintf(w, "%-16s %4d -> %d\n", op, offset, target)
	return offset + 3
}
