package koto

import (
	"fmt"
	"strings"
)

type ErrorKind int

const (
	ErrorCompile ErrorKind = iota
	ErrorScan
	ErrorRuntime
)

func (k ErrorKind) String() string {
	return []string{
		"CompileError",
		"ScanError",
		"RuntimeError",
	}[k]
}

// KotoError is a single diagnostic. Where is the location hint printed after
// "Error": " at 'lexeme'", " at end", or empty for scanner errors.
type KotoError struct {
	Kind   ErrorKind
	Msg    string
	Line   int
	Column int
	Length int
	Where  string
}

func (e *KotoError) Error() string {
	if e.Kind == ErrorRuntime {
		return fmt.Sprintf("%s\n[line %d] in script", e.Msg, e.Line)
	}
	return fmt.Sprintf("[line %d] Error%s: %s", e.Line, e.Where, e.Msg)
}

func NewCompileError(msg string, tok Token) *KotoError {
	e := &KotoError{
		Kind:   ErrorCompile,
		Msg:    msg,
		Line:   tok.Line,
		Column: tok.Column,
		Length: len(tok.Lexeme),
	}
	switch tok.Type {
	case TokenEOF:
		e.Where = " at end"
		e.Length = 0
	case TokenError:
		e.Kind = ErrorScan
		e.Length = 1
	default:
		e.Where = fmt.Sprintf(" at '%s'", tok.Lexeme)
	}
	return e
}

func NewRuntimeError(msg string, line int) *KotoError {
	return &KotoError{Kind: ErrorRuntime, Msg: msg, Line: line}
}

// CompileErrors holds every independent error reported while compiling one
// source text, in report order.
type CompileErrors []*KotoError

func (errs CompileErrors) Error() string {
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "\n")
}

type InterpretResult int

const (
	InterpretOK InterpretResult = iota
	InterpretCompileError
	InterpretRuntimeError
)

func (r InterpretResult) String() string {
	return []string{
		"OK",
		"COMPILE_ERROR",
		"RUNTIME_ERROR",
	}[r]
}
