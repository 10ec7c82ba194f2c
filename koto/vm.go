package koto

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/tliron/commonlog"
)

var vmLog = commonlog.GetLogger("koto.vm")

// StackMax bounds the operand stack.
const StackMax = 256

// VM executes one chunk at a time. A VM must not be used from more than one
// goroutine at once.
//
// Execution has no cancellation hook: the instruction set has no jumps, so
// every chunk runs in time linear in its length.
type VM struct {
	chunk   *Chunk
	ip      int
	stack   [StackMax]Value
	sp      int
	globals map[string]Value

	Stdout io.Writer
	Stderr io.Writer

	// TraceExecution logs every instruction and the stack at debug level.
	TraceExecution bool
	// PrintCode logs the disassembly of each compiled chunk at debug level.
	PrintCode bool
	// KeepGlobals carries the global table over to the next Interpret call.
	// When false every call starts with an empty table.
	KeepGlobals bool
}

func NewVM() *VM {
	return &VM{
		globals: make(map[string]Value),
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
	}
}

// Interpret compiles and runs source. Compile errors are reported to Stderr
// before anything runs; runtime errors are reported after whatever the
// program already printed.
func (vm *VM) Interpret(source string) InterpretResult {
	compiler := NewCompiler(source)
	compiler.PrintCode = vm.PrintCode
	chunk, err := compiler.Compile()
	if err != nil {
		fmt.Fprintln(vm.Stderr, err.Error())
		return InterpretCompileError
	}
	return vm.InterpretChunk(chunk)
}

// InterpretChunk runs an already compiled chunk.
func (vm *VM) InterpretChunk(chunk *Chunk) InterpretResult {
	if err := vm.Execute(chunk); err != nil {
		fmt.Fprintln(vm.Stderr, err.Error())
		return InterpretRuntimeError
	}
	return InterpretOK
}

// Execute runs chunk to its RETURN and returns the runtime error that stopped
// it, if any. Global mutations made before the error are kept.
func (vm *VM) Execute(chunk *Chunk) *KotoError {
	vm.chunk = chunk
	vm.ip = 0
	vm.resetStack()
	if !vm.KeepGlobals || vm.globals == nil {
		vm.globals = make(map[string]Value)
	}

	err := vm.run()
	if err != nil {
		vm.resetStack()
	}
	return err
}

// Globals returns a copy of the global table as left by the last run.
func (vm *VM) Globals() map[string]Value {
	globals := make(map[string]Value, len(vm.globals))
	for name, v := range vm.globals {
		globals[name] = v
	}
	return globals
}

func (vm *VM) resetStack() {
	for i := 0; i < vm.sp; i++ {
		vm.stack[i] = nil
	}
	vm.sp = 0
}

func (vm *VM) push(v Value) *KotoError {
	if vm.sp >= StackMax {
		return vm.runtimeError("Stack overflow.")
	}
	vm.stack[vm.sp] = v
	vm.sp++
	return nil
}

func (vm *VM) pop() (Value, *KotoError) {
	if vm.sp == 0 {
		return nil, vm.runtimeError("Stack underflow.")
	}
	vm.sp--
	v := vm.stack[vm.sp]
	vm.stack[vm.sp] = nil
	return v, nil
}

// peek returns the value distance slots below the top without removing it.
func (vm *VM) peek(distance int) Value {
	if distance >= vm.sp {
		return nil
	}
	return vm.stack[vm.sp-1-distance]
}

func (vm *VM) readByte() (byte, *KotoError) {
	if vm.ip >= len(vm.chunk.Code) {
		return 0, vm.runtimeError("Unexpected end of bytecode.")
	}
	b := vm.chunk.Code[vm.ip]
	vm.ip++
	return b, nil
}

func (vm *VM) readConstant() (Value, *KotoError) {
	idx, err := vm.readByte()
	if err != nil {
		return nil, err
	}
	if int(idx) >= len(vm.chunk.Constants) {
		return nil, vm.runtimeError("Constant index %d out of range.", idx)
	}
	v := vm.chunk.Constants[idx]
	if v == nil {
		return nil, vm.runtimeError("Constant %d has no value.", idx)
	}
	return v, nil
}

func (vm *VM) readString() (string, *KotoError) {
	v, err := vm.readConstant()
	if err != nil {
		return "", err
	}
	s, ok := v.(*StringObj)
	if !ok {
		return "", vm.runtimeError("Global name must be a string.")
	}
	return s.Value, nil
}

func (vm *VM) run() *KotoError {
	for {
		if vm.TraceExecution && vm.ip < len(vm.chunk.Code) && vmLog.AllowLevel(commonlog.Debug) {
			vm.traceInstruction()
		}

		instruction, err := vm.readByte()
		if err != nil {
			return err
		}

		switch op := OpCode(instruction); op {
		case OpConstant:
			constant, err := vm.readConstant()
			if err != nil {
				return err
			}
			if err := vm.push(constant); err != nil {
				return err
			}
		case OpNil:
			if err := vm.push(Nil()); err != nil {
				return err
			}
		case OpTrue:
			if err := vm.push(Bool(true)); err != nil {
				return err
			}
		case OpFalse:
			if err := vm.push(Bool(false)); err != nil {
				return err
			}
		case OpPop:
			if _, err := vm.pop(); err != nil {
				return err
			}
		case OpGetGlobal:
			name, err := vm.readString()
			if err != nil {
				return err
			}
			value, ok := vm.globals[name]
			if !ok {
				return vm.runtimeError("Undefined variable '%s'.", name)
			}
			if err := vm.push(value); err != nil {
				return err
			}
		case OpDefineGlobal:
			name, err := vm.readString()
			if err != nil {
				return err
			}
			value, err := vm.pop()
			if err != nil {
				return err
			}
			vm.globals[name] = value
		case OpSetGlobal:
			name, err := vm.readString()
			if err != nil {
				return err
			}
			if _, ok := vm.globals[name]; !ok {
				return vm.runtimeError("Undefined variable '%s'.", name)
			}
			value := vm.peek(0)
			if value == nil {
				return vm.runtimeError("Stack underflow.")
			}
			// Assignment is an expression: the value stays on the stack.
			vm.globals[name] = value
		case OpEqual:
			b, err := vm.pop()
			if err != nil {
				return err
			}
			a, err := vm.pop()
			if err != nil {
				return err
			}
			if err := vm.push(Bool(ValuesEqual(a, b))); err != nil {
				return err
			}
		case OpGreater, OpLess, OpSubtract, OpMultiply, OpDivide:
			if err := vm.binaryOp(op); err != nil {
				return err
			}
		case OpAdd:
			switch {
			case IsString(vm.peek(0)) && IsString(vm.peek(1)):
				if err := vm.concatenate(); err != nil {
					return err
				}
			case IsNumber(vm.peek(0)) && IsNumber(vm.peek(1)):
				if err := vm.binaryOp(op); err != nil {
					return err
				}
			default:
				return vm.runtimeError("Operands must be two numbers or two strings.")
			}
		case OpNot:
			value, err := vm.pop()
			if err != nil {
				return err
			}
			if err := vm.push(Bool(IsFalsey(value))); err != nil {
				return err
			}
		case OpNegate:
			if !IsNumber(vm.peek(0)) {
				return vm.runtimeError("Operand must be a number.")
			}
			value, _ := vm.pop()
			if err := vm.push(Number(-value.(NumberValue).Value)); err != nil {
				return err
			}
		case OpPrint:
			value, err := vm.pop()
			if err != nil {
				return err
			}
			fmt.Fprintln(vm.Stdout, value.String())
		case OpReturn:
			return nil
		default:
			return vm.runtimeError("Unknown opcode %d.", instruction)
		}
	}
}

// binaryOp handles the numeric-only operators. The left operand is the one
// pushed first.
func (vm *VM) binaryOp(op OpCode) *KotoError {
	if !IsNumber(vm.peek(0)) || !IsNumber(vm.peek(1)) {
		return vm.runtimeError("Operands must be numbers.")
	}
	bv, _ := vm.pop()
	av, _ := vm.pop()
	a := av.(NumberValue).Value
	b := bv.(NumberValue).Value

	var result Value
	switch op {
	case OpGreater:
		result = Bool(a > b)
	case OpLess:
		result = Bool(a < b)
	case OpAdd:
		result = Number(a + b)
	case OpSubtract:
		result = Number(a - b)
	case OpMultiply:
		result = Number(a * b)
	case OpDivide:
		result = Number(a / b)
	default:
		return vm.runtimeError("internal VM error: unhandled binary operator %s", op)
	}
	return vm.push(result)
}

func (vm *VM) concatenate() *KotoError {
	b, _ := vm.pop()
	a, _ := vm.pop()
	return vm.push(NewString(a.(*StringObj).Value + b.(*StringObj).Value))
}

// runtimeError reports against the line of the instruction being executed.
func (vm *VM) runtimeError(format string, args ...any) *KotoError {
	line := 0
	if vm.chunk != nil {
		line = vm.chunk.LineAt(vm.instructionStart())
	}
	return NewRuntimeError(fmt.Sprintf(format, args...), line)
}

// instructionStart walks back from ip to the opcode of the current
// instruction. ip points past the opcode and any operand already read.
func (vm *VM) instructionStart() int {
	for offset := 0; offset < len(vm.chunk.Code); {
		next := offset + 1 + OpCode(vm.chunk.Code[offset]).OperandCount()
		if next >= vm.ip {
			return offset
		}
		offset = next
	}
	return vm.ip - 1
}

func (vm *VM) traceInstruction() {
	var b strings.Builder
	b.WriteString("          ")
	for i := 0; i < vm.sp; i++ {
		fmt.Fprintf(&b, "[ %s ]", vm.stack[i])
	}
	b.WriteString("\n")
	DisassembleInstruction(&b, vm.chunk, vm.ip)
	vmLog.Debugf("%s", strings.TrimRight(b.String(), "\n"))
}
