package koto

import (
	"fmt"
	"io"
)

// DisassembleChunk writes a readable listing of chunk to w. It only reads the
// chunk, so repeated calls produce identical text.
func DisassembleChunk(w io.Writer, chunk *Chunk, name string) {
	fmt.Fprintf(w, "== %s ==\n", name)
	for offset := 0; offset < len(chunk.Code); {
		offset = DisassembleInstruction(w, chunk, offset)
	}
}

// DisassembleInstruction writes the instruction at offset and returns the
// offset of the next one.
func DisassembleInstruction(w io.Writer, chunk *Chunk, offset int) int {
	fmt.Fprintf(w, "%04d ", offset)
	if offset > 0 && chunk.LineAt(offset) == chunk.LineAt(offset-1) {
		fmt.Fprint(w, "   | ")
	} else {
		fmt.Fprintf(w, "%4d ", chunk.LineAt(offset))
	}

	op := OpCode(chunk.Code[offset])
	if !op.Valid() {
		fmt.Fprintf(w, "Unknown opcode %d\n", byte(op))
		return offset + 1
	}

	switch op.OperandCount() {
	case 1:
		return constantInstruction(w, op, chunk, offset)
	default:
		fmt.Fprintf(w, "%s\n", op)
		return offset + 1
	}
}

func constantInstruction(w io.Writer, op OpCode, chunk *Chunk, offset int) int {
	if offset+1 >= len(chunk.Code) {
		fmt.Fprintf(w, "%-16s (missing operand)\n", op)
		return offset + 1
	}
	idx := int(chunk.Code[offset+1])
	if idx >= len(chunk.Constants) {
		fmt.Fprintf(w, "%-16s %4d <invalid constant>\n", op, idx)
		return offset + 2
	}
	fmt.Fprintf(w, "%-16s %4d '%s'\n", op, idx, chunk.Constants[idx])
	return offset + 2
}
