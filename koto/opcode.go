package koto

import "fmt"

// OpCode is a single-byte instruction tag.
type OpCode byte

const (
	OpConstant OpCode = iota
	OpNil
	OpTrue
	OpFalse
	OpPop
	OpGetGlobal
	OpDefineGlobal
	OpSetGlobal
	OpEqual
	OpGreater
	OpLess
	OpAdd
	OpSubtract
	OpMultiply
	OpDivide
	OpNot
	OpNegate
	OpPrint
	OpReturn

	opCodeCount
)

var opNames = [...]string{
	OpConstant:     "OP_CONSTANT",
	OpNil:          "OP_NIL",
	OpTrue:         "OP_TRUE",
	OpFalse:        "OP_FALSE",
	OpPop:          "OP_POP",
	OpGetGlobal:    "OP_GET_GLOBAL",
	OpDefineGlobal: "OP_DEFINE_GLOBAL",
	OpSetGlobal:    "OP_SET_GLOBAL",
	OpEqual:        "OP_EQUAL",
	OpGreater:      "OP_GREATER",
	OpLess:         "OP_LESS",
	OpAdd:          "OP_ADD",
	OpSubtract:     "OP_SUBTRACT",
	OpMultiply:     "OP_MULTIPLY",
	OpDivide:       "OP_DIVIDE",
	OpNot:          "OP_NOT",
	OpNegate:       "OP_NEGATE",
	OpPrint:        "OP_PRINT",
	OpReturn:       "OP_RETURN",
}

func (o OpCode) String() string {
	if o.Valid() {
		return opNames[o]
	}
	return fmt.Sprintf("OP_UNKNOWN_%d", byte(o))
}

// Valid reports whether o names an instruction the VM can execute.
func (o OpCode) Valid() bool {
	return o < opCodeCount
}

// OperandCount is the number of one-byte operands following the opcode.
func (o OpCode) OperandCount() int {
	switch o {
	case OpConstant, OpGetGlobal, OpDefineGlobal, OpSetGlobal:
		return 1
	default:
		return 0
	}
}
