// Package koto implements the Koto scripting language: a single-pass
// compiler from source text to bytecode and a stack virtual machine that
// runs it.
package koto

import (
	"errors"
	"io"
)

// RunScript compiles source and executes it on vm. The returned error is a
// CompileErrors or a *KotoError of kind ErrorRuntime.
func RunScript(vm *VM, source string) error {
	compiler := NewCompiler(source)
	compiler.PrintCode = vm.PrintCode
	chunk, err := compiler.Compile()
	if err != nil {
		return err
	}
	if rerr := vm.Execute(chunk); rerr != nil {
		return rerr
	}
	return nil
}

// DisassembleSource compiles source and writes its listing to w.
func DisassembleSource(w io.Writer, name, source string) error {
	chunk, err := Compile(source)
	if err != nil {
		return err
	}
	DisassembleChunk(w, chunk, name)
	return nil
}

// ResultOf maps an error from RunScript to the interpreter outcome.
func ResultOf(err error) InterpretResult {
	if err == nil {
		return InterpretOK
	}
	var compileErrs CompileErrors
	if errors.As(err, &compileErrs) {
		return InterpretCompileError
	}
	var kerr *KotoError
	if errors.As(err, &kerr) && kerr.Kind != ErrorRuntime {
		return InterpretCompileError
	}
	return InterpretRuntimeError
}
