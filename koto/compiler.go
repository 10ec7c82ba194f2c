package koto

import (
	"strconv"
	"strings"

	"github.com/tliron/commonlog"
)

var compilerLog = commonlog.GetLogger("koto.compiler")

type Precedence int

const (
	PrecNone       Precedence = iota
	PrecAssignment            // =
	PrecOr                    // or
	PrecAnd                   // and
	PrecEquality              // == !=
	PrecComparison            // < > <= >=
	PrecTerm                  // + -
	PrecFactor                // * /
	PrecUnary                 // ! -
	PrecCall                  // . ()
	PrecPrimary
)

type parseFn func(c *Compiler, canAssign bool)

type parseRule struct {
	prefix     parseFn
	infix      parseFn
	precedence Precedence
}

var rules [tokenTypeCount]parseRule

func init() {
	rules[TokenLeftParen] = parseRule{(*Compiler).grouping, nil, PrecNone}
	rules[TokenMinus] = parseRule{(*Compiler).unary, (*Compiler).binary, PrecTerm}
	rules[TokenPlus] = parseRule{nil, (*Compiler).binary, PrecTerm}
	rules[TokenSlash] = parseRule{nil, (*Compiler).binary, PrecFactor}
	rules[TokenStar] = parseRule{nil, (*Compiler).binary, PrecFactor}
	rules[TokenBang] = parseRule{(*Compiler).unary, nil, PrecNone}
	rules[TokenBangEqual] = parseRule{nil, (*Compiler).binary, PrecEquality}
	rules[TokenEqualEqual] = parseRule{nil, (*Compiler).binary, PrecEquality}
	rules[TokenGreater] = parseRule{nil, (*Compiler).binary, PrecComparison}
	rules[TokenGreaterEqual] = parseRule{nil, (*Compiler).binary, PrecComparison}
	rules[TokenLess] = parseRule{nil, (*Compiler).binary, PrecComparison}
	rules[TokenLessEqual] = parseRule{nil, (*Compiler).binary, PrecComparison}
	rules[TokenIdentifier] = parseRule{(*Compiler).variable, nil, PrecNone}
	rules[TokenString] = parseRule{(*Compiler).string, nil, PrecNone}
	rules[TokenNumber] = parseRule{(*Compiler).number, nil, PrecNone}
	rules[TokenFalse] = parseRule{(*Compiler).literal, nil, PrecNone}
	rules[TokenNil] = parseRule{(*Compiler).literal, nil, PrecNone}
	rules[TokenTrue] = parseRule{(*Compiler).literal, nil, PrecNone}
}

func getRule(kind TokenType) *parseRule {
	return &rules[kind]
}

// parserMode is the panic-mode state machine. The parser enters
// modeRecovering on the first error of a statement and returns to modeNormal
// only in synchronize.
type parserMode int

const (
	modeNormal parserMode = iota
	modeRecovering
)

// Compiler turns source text directly into a Chunk in a single pass. A
// Compiler is good for one Compile call.
type Compiler struct {
	scanner  *Scanner
	chunk    *Chunk
	previous Token
	current  Token
	mode     parserMode
	hadError bool
	errors   CompileErrors

	// PrintCode logs the disassembled chunk at debug level after a clean compile.
	PrintCode bool
}

func NewCompiler(source string) *Compiler {
	return &Compiler{
		scanner: NewScanner(source),
		chunk:   NewChunk(),
	}
}

// Compile compiles source into a fresh chunk. On failure the error is a
// CompileErrors listing every independent report.
func Compile(source string) (*Chunk, error) {
	return NewCompiler(source).Compile()
}

func (c *Compiler) Compile() (*Chunk, error) {
	c.advance()
	for !c.match(TokenEOF) {
		c.declaration()
	}
	c.endCompiler()

	if c.hadError {
		return nil, c.errors
	}
	return c.chunk, nil
}

func (c *Compiler) endCompiler() {
	c.emitOp(OpReturn)
	if c.hadError || !c.PrintCode {
		return
	}
	if compilerLog.AllowLevel(commonlog.Debug) {
		var b strings.Builder
		DisassembleChunk(&b, c.chunk, "code")
		compilerLog.Debugf("compiled chunk:\n%s", b.String())
	}
}

// Token stream

func (c *Compiler) advance() {
	c.previous = c.current
	for {
		c.current = c.scanner.ScanToken()
		if c.current.Type != TokenError {
			break
		}
		c.errorAtCurrent(c.current.Lexeme)
	}
}

func (c *Compiler) check(kind TokenType) bool {
	return c.current.Type == kind
}

func (c *Compiler) match(kind TokenType) bool {
	if !c.check(kind) {
		return false
	}
	c.advance()
	return true
}

func (c *Compiler) consume(kind TokenType, msg string) {
	if c.check(kind) {
		c.advance()
		return
	}
	c.errorAtCurrent(msg)
}

// Declarations and statements

func (c *Compiler) declaration() {
	if c.match(TokenVar) {
		c.varDeclaration()
	} else {
		c.statement()
	}

	if c.mode == modeRecovering {
		c.synchronize()
	}
}

func (c *Compiler) varDeclaration() {
	global := c.parseVariable("Expected variable name.")

	if c.match(TokenEqual) {
		c.expression()
	} else {
		c.emitOp(OpNil)
	}
	c.consume(TokenSemicolon, "Expected ';' after variable declaration.")

	c.emitOpByte(OpDefineGlobal, global)
}

func (c *Compiler) parseVariable(msg string) byte {
	c.consume(TokenIdentifier, msg)
	return c.identifierConstant(c.previous)
}

func (c *Compiler) identifierConstant(name Token) byte {
	return c.makeConstant(NewString(name.Lexeme))
}

func (c *Compiler) statement() {
	if c.match(TokenPrint) {
		c.printStatement()
	} else {
		c.expressionStatement()
	}
}

func (c *Compiler) printStatement() {
	c.expression()
	c.consume(TokenSemicolon, "Expected ';' after value.")
	c.emitOp(OpPrint)
}

func (c *Compiler) expressionStatement() {
	c.expression()
	c.consume(TokenSemicolon, "Expected ';' after expression.")
	c.emitOp(OpPop)
}

// Expressions

func (c *Compiler) expression() {
	c.parsePrecedence(PrecAssignment)
}

func (c *Compiler) parsePrecedence(prec Precedence) {
	c.advance()
	prefix := getRule(c.previous.Type).prefix
	if prefix == nil {
		c.error("Expected expression.")
		return
	}

	canAssign := prec <= PrecAssignment
	prefix(c, canAssign)

	for prec <= getRule(c.current.Type).precedence {
		c.advance()
		getRule(c.previous.Type).infix(c, canAssign)
	}

	if canAssign && c.match(TokenEqual) {
		c.error("Invalid assignment target.")
		c.expression()
	}
}

func (c *Compiler) grouping(canAssign bool) {
	c.expression()
	c.consume(TokenRightParen, "Expected ')' after expression.")
}

func (c *Compiler) number(canAssign bool) {
	n, err := strconv.ParseFloat(c.previous.Lexeme, 64)
	if err != nil {
		c.error("Invalid number literal.")
		return
	}
	c.emitConstant(Number(n))
}

func (c *Compiler) string(canAssign bool) {
	lexeme := c.previous.Lexeme
	c.emitConstant(String(lexeme[1 : len(lexeme)-1]))
}

func (c *Compiler) literal(canAssign bool) {
	switch c.previous.Type {
	case TokenFalse:
		c.emitOp(OpFalse)
	case TokenTrue:
		c.emitOp(OpTrue)
	case TokenNil:
		c.emitOp(OpNil)
	}
}

func (c *Compiler) variable(canAssign bool) {
	c.namedVariable(c.previous, canAssign)
}

func (c *Compiler) namedVariable(name Token, canAssign bool) {
	arg := c.identifierConstant(name)
	if canAssign && c.match(TokenEqual) {
		c.expression()
		c.emitOpByte(OpSetGlobal, arg)
	} else {
		c.emitOpByte(OpGetGlobal, arg)
	}
}

func (c *Compiler) unary(canAssign bool) {
	operator := c.previous.Type

	c.parsePrecedence(PrecUnary)

	switch operator {
	case TokenBang:
		c.emitOp(OpNot)
	case TokenMinus:
		c.emitOp(OpNegate)
	}
}

func (c *Compiler) binary(canAssign bool) {
	operator := c.previous.Type
	rule := getRule(operator)
	c.parsePrecedence(rule.precedence + 1)

	switch operator {
	case TokenBangEqual:
		c.emitOps(OpEqual, OpNot)
	case TokenEqualEqual:
		c.emitOp(OpEqual)
	case TokenGreater:
		c.emitOp(OpGreater)
	case TokenGreaterEqual:
		c.emitOps(OpLess, OpNot)
	case TokenLess:
		c.emitOp(OpLess)
	case TokenLessEqual:
		c.emitOps(OpGreater, OpNot)
	case TokenPlus:
		c.emitOp(OpAdd)
	case TokenMinus:
		c.emitOp(OpSubtract)
	case TokenStar:
		c.emitOp(OpMultiply)
	case TokenSlash:
		c.emitOp(OpDivide)
	}
}

// Code emission

func (c *Compiler) emitByte(b byte) {
	c.chunk.Write(b, c.previous.Line)
}

func (c *Compiler) emitOp(op OpCode) {
	c.emitByte(byte(op))
}

func (c *Compiler) emitOps(op1, op2 OpCode) {
	c.emitOp(op1)
	c.emitOp(op2)
}

func (c *Compiler) emitOpByte(op OpCode, operand byte) {
	c.emitOp(op)
	c.emitByte(operand)
}

func (c *Compiler) emitConstant(v Value) {
	c.emitOpByte(OpConstant, c.makeConstant(v))
}

// makeConstant adds v to the pool. Index 256 and beyond cannot be encoded in
// the operand byte, so they are reported and replaced by 0.
func (c *Compiler) makeConstant(v Value) byte {
	idx := c.chunk.AddConstant(v)
	if idx >= MaxConstants {
		c.error("Too many constants in one chunk.")
		return 0
	}
	return byte(idx)
}

// Error reporting

func (c *Compiler) errorAtCurrent(msg string) {
	c.errorAt(c.current, msg)
}

func (c *Compiler) error(msg string) {
	c.errorAt(c.previous, msg)
}

func (c *Compiler) errorAt(tok Token, msg string) {
	c.hadError = true
	if c.mode == modeRecovering {
		return
	}
	c.mode = modeRecovering

	err := NewCompileError(msg, tok)
	compilerLog.Debugf("%s", err.Error())
	c.errors = append(c.errors, err)
}

func (c *Compiler) synchronize() {
	c.mode = modeNormal

	for c.current.Type != TokenEOF {
		if c.previous.Type == TokenSemicolon {
			return
		}
		switch c.current.Type {
		case TokenClass, TokenFun, TokenVar, TokenFor, TokenIf, TokenWhile, TokenPrint, TokenReturn:
			return
		}
		c.advance()
	}
}
