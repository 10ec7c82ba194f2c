package koto

// MaxConstants is the constant pool capacity addressable by a one-byte operand.
const MaxConstants = 256

// Chunk is a compiled unit: instruction bytes, their source lines, and the
// constant pool. len(Lines) == len(Code) always holds.
type Chunk struct {
	Code      []byte
	Lines     []int
	Constants []Value
}

func NewChunk() *Chunk {
	return &Chunk{
		Code:      make([]byte, 0, 64),
		Lines:     make([]int, 0, 64),
		Constants: make([]Value, 0, 16),
	}
}

// Write appends one instruction byte together with its source line.
func (c *Chunk) Write(b byte, line int) {
	c.Code = append(c.Code, b)
	c.Lines = append(c.Lines, line)
}

func (c *Chunk) WriteOp(op OpCode, line int) {
	c.Write(byte(op), line)
}

// AddConstant appends v to the pool and returns its index. Equal values are
// not deduplicated. Capacity checks are the compiler's job.
func (c *Chunk) AddConstant(v Value) int {
	c.Constants = append(c.Constants, v)
	return len(c.Constants) - 1
}

func (c *Chunk) Len() int {
	return len(c.Code)
}

// LineAt returns the source line of the byte at offset, or 0 when out of range.
func (c *Chunk) LineAt(offset int) int {
	if offset < 0 || offset >= len(c.Lines) {
		return 0
	}
	return c.Lines[offset]
}
