package koto_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fxamacker/cbor/v2"

	"kotovm/koto"
)

func TestChunkImageRunsLikeSource(t *testing.T) {
	source := `var greeting = "hello";
var n = 2.5 * 4;
print greeting + " world";
print n;
print nil == false;
print true;`

	chunk, err := koto.Compile(source)
	if err != nil {
		t.Fatalf("unexpected compile error: %v", err)
	}
	image, err := koto.MarshalChunk(chunk)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	loaded, err := koto.UnmarshalChunk(image)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	var fromSource, fromImage bytes.Buffer
	koto.DisassembleChunk(&fromSource, chunk, "chunk")
	koto.DisassembleChunk(&fromImage, loaded, "chunk")
	if fromSource.String() != fromImage.String() {
		t.Errorf("decoded chunk differs.\nwant:\n%s\ngot:\n%s", fromSource.String(), fromImage.String())
	}

	vm, stdout, stderr := newTestVM()
	if result := vm.InterpretChunk(loaded); result != koto.InterpretOK {
		t.Fatalf("expected OK, got %s (%s)", result, stderr.String())
	}
	if want := "hello world\n10\nfalse\ntrue\n"; stdout.String() != want {
		t.Errorf("expected %q, got %q", want, stdout.String())
	}
}

func TestMarshalChunkIsDeterministic(t *testing.T) {
	chunk, err := koto.Compile("var a = 1; print a + 2;")
	if err != nil {
		t.Fatalf("unexpected compile error: %v", err)
	}
	first, err := koto.MarshalChunk(chunk)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	second, err := koto.MarshalChunk(chunk)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Errorf("images of the same chunk differ")
	}
}

func TestUnmarshalChunkRejectsInvalidImages(t *testing.T) {
	lines := func(n int) []int {
		l := make([]int, n)
		for i := range l {
			l[i] = 1
		}
		return l
	}

	tests := []struct {
		name     string
		chunk    *koto.Chunk
		expected string
	}{
		{
			"line table mismatch",
			&koto.Chunk{Code: ops(koto.OpReturn), Lines: nil},
			"line entries",
		},
		{
			"unknown opcode",
			&koto.Chunk{Code: ops(0xee, koto.OpReturn), Lines: lines(2)},
			"unknown opcode 238",
		},
		{
			"missing operand",
			&koto.Chunk{Code: ops(koto.OpReturn, koto.OpConstant), Lines: lines(2)},
			"missing its operand",
		},
		{
			"constant out of range",
			&koto.Chunk{Code: ops(koto.OpConstant, 1, koto.OpReturn), Lines: lines(3), Constants: []koto.Value{koto.Number(1)}},
			"references constant 1 of 1",
		},
		{
			"non-string global name",
			&koto.Chunk{Code: ops(koto.OpGetGlobal, 0, koto.OpReturn), Lines: lines(3), Constants: []koto.Value{koto.Number(1)}},
			"non-string constant",
		},
		{
			"no final return",
			&koto.Chunk{Code: ops(koto.OpReturn, koto.OpTrue), Lines: lines(2)},
			"does not end with OP_RETURN",
		},
		{
			"operand that looks like return",
			&koto.Chunk{Code: ops(koto.OpConstant, int(koto.OpReturn)), Lines: lines(2), Constants: make([]koto.Value, 20)},
			"does not end with OP_RETURN",
		},
		{
			"empty code",
			&koto.Chunk{},
			"does not end with OP_RETURN",
		},
	}

	for _, tt := range tests {
		if tt.chunk.Constants != nil {
			for i, c := range tt.chunk.Constants {
				if c == nil {
					tt.chunk.Constants[i] = koto.Number(float64(i))
				}
			}
		}
		image, err := koto.MarshalChunk(tt.chunk)
		if err != nil {
			t.Fatalf("%s: marshal: %v", tt.name, err)
		}
		_, err = koto.UnmarshalChunk(image)
		if err == nil {
			t.Errorf("%s: expected error", tt.name)
			continue
		}
		if !strings.Contains(err.Error(), tt.expected) {
			t.Errorf("%s: expected error containing %q, got %q", tt.name, tt.expected, err.Error())
		}
	}
}

func TestUnmarshalChunkRejectsOtherVersions(t *testing.T) {
	image, err := cbor.Marshal(map[int]any{
		1: koto.ImageVersion + 1,
		2: ops(koto.OpReturn),
		3: []int{1},
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if _, err := koto.UnmarshalChunk(image); err == nil || !strings.Contains(err.Error(), "version") {
		t.Fatalf("expected version error, got %v", err)
	}
}

func TestUnmarshalChunkRejectsGarbage(t *testing.T) {
	if _, err := koto.UnmarshalChunk([]byte{0xa1, 0x01}); err == nil {
		t.Fatalf("expected decode error")
	}
}
