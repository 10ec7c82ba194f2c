package koto_test

import (
	"bytes"
	"strings"
	"testing"

	"kotovm/koto"
)

func TestDisassembleChunk(t *testing.T) {
	chunk, err := koto.Compile("var x = 1 + 2;\nprint x;")
	if err != nil {
		t.Fatalf("unexpected compile error: %v", err)
	}

	expected := strings.Join([]string{
		"== test ==",
		"0000    1 OP_CONSTANT         1 '1'",
		"0002    | OP_CONSTANT         2 '2'",
		"0004    | OP_ADD",
		"0005    | OP_DEFINE_GLOBAL    0 'x'",
		"0007    2 OP_GET_GLOBAL       3 'x'",
		"0009    | OP_PRINT",
		"0010    | OP_RETURN",
		"",
	}, "\n")

	var b bytes.Buffer
	koto.DisassembleChunk(&b, chunk, "test")
	if b.String() != expected {
		t.Fatalf("wrong listing.\nwant:\n%s\ngot:\n%s", expected, b.String())
	}

	// Listing is read-only: a second pass gives the same text.
	var again bytes.Buffer
	koto.DisassembleChunk(&again, chunk, "test")
	if again.String() != b.String() {
		t.Errorf("disassembly is not repeatable")
	}
}

func TestDisassembleMalformed(t *testing.T) {
	tests := []struct {
		name      string
		code      []byte
		constants []koto.Value
		expected  string
	}{
		{"unknown opcode", []byte{0xff}, nil, "0000    1 Unknown opcode 255\n"},
		{"missing operand", ops(koto.OpConstant), nil, "0000    1 OP_CONSTANT      (missing operand)\n"},
		{"bad constant", ops(koto.OpConstant, 4), nil, "0000    1 OP_CONSTANT         4 <invalid constant>\n"},
	}

	for _, tt := range tests {
		chunk := &koto.Chunk{Code: tt.code, Lines: make([]int, len(tt.code)), Constants: tt.constants}
		for i := range chunk.Lines {
			chunk.Lines[i] = 1
		}
		var b bytes.Buffer
		next := koto.DisassembleInstruction(&b, chunk, 0)
		if b.String() != tt.expected {
			t.Errorf("%s: expected %q, got %q", tt.name, tt.expected, b.String())
		}
		if next <= 0 {
			t.Errorf("%s: disassembler did not advance", tt.name)
		}
	}
}

func TestDisassembleSource(t *testing.T) {
	var b bytes.Buffer
	if err := koto.DisassembleSource(&b, "src", "print 1;"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(b.String(), "== src ==\n") || !strings.Contains(b.String(), "OP_PRINT") {
		t.Errorf("unexpected listing %q", b.String())
	}

	if err := koto.DisassembleSource(&b, "src", "print ;"); err == nil {
		t.Errorf("expected compile error")
	}
}
