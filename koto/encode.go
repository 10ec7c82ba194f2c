package koto

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// ImageVersion is bumped whenever the opcode numbering or the image layout
// changes.
const ImageVersion = 1

type chunkImage struct {
	Version   int             `cbor:"1,keyasint"`
	Code      []byte          `cbor:"2,keyasint"`
	Lines     []int           `cbor:"3,keyasint"`
	Constants []constantImage `cbor:"4,keyasint,omitempty"`
}

type constantImage struct {
	Type   ValueType `cbor:"1,keyasint"`
	Bool   bool      `cbor:"2,keyasint,omitempty"`
	Number float64   `cbor:"3,keyasint,omitempty"`
	Str    string    `cbor:"4,keyasint,omitempty"`
}

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("koto: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// MarshalChunk serializes a chunk to canonical CBOR.
func MarshalChunk(c *Chunk) ([]byte, error) {
	img := chunkImage{
		Version:   ImageVersion,
		Code:      c.Code,
		Lines:     c.Lines,
		Constants: make([]constantImage, len(c.Constants)),
	}
	for i, v := range c.Constants {
		switch val := v.(type) {
		case NilValue:
			img.Constants[i] = constantImage{Type: ValNil}
		case BoolValue:
			img.Constants[i] = constantImage{Type: ValBool, Bool: val.Value}
		case NumberValue:
			img.Constants[i] = constantImage{Type: ValNumber, Number: val.Value}
		case *StringObj:
			img.Constants[i] = constantImage{Type: ValObject, Str: val.Value}
		default:
			return nil, fmt.Errorf("koto: cannot encode constant %d of type %T", i, v)
		}
	}
	return cborEncMode.Marshal(img)
}

// UnmarshalChunk decodes and validates a chunk image. A chunk that passes
// validation can be executed without indexing outside its code or pool.
func UnmarshalChunk(data []byte) (*Chunk, error) {
	var img chunkImage
	if err := cbor.Unmarshal(data, &img); err != nil {
		return nil, fmt.Errorf("koto: unmarshal chunk: %w", err)
	}
	if img.Version != ImageVersion {
		return nil, fmt.Errorf("koto: unsupported chunk image version %d (want %d)", img.Version, ImageVersion)
	}
	if len(img.Lines) != len(img.Code) {
		return nil, fmt.Errorf("koto: chunk has %d code bytes but %d line entries", len(img.Code), len(img.Lines))
	}
	if len(img.Constants) > MaxConstants {
		return nil, fmt.Errorf("koto: chunk has %d constants, limit is %d", len(img.Constants), MaxConstants)
	}

	chunk := &Chunk{
		Code:      img.Code,
		Lines:     img.Lines,
		Constants: make([]Value, len(img.Constants)),
	}
	for i, ci := range img.Constants {
		switch ci.Type {
		case ValNil:
			chunk.Constants[i] = Nil()
		case ValBool:
			chunk.Constants[i] = Bool(ci.Bool)
		case ValNumber:
			chunk.Constants[i] = Number(ci.Number)
		case ValObject:
			chunk.Constants[i] = NewString(ci.Str)
		default:
			return nil, fmt.Errorf("koto: constant %d has unknown type %d", i, ci.Type)
		}
	}
	if err := validateCode(chunk); err != nil {
		return nil, err
	}
	return chunk, nil
}

func validateCode(c *Chunk) error {
	last := OpCode(0xff)
	for offset := 0; offset < len(c.Code); {
		op := OpCode(c.Code[offset])
		last = op
		if !op.Valid() {
			return fmt.Errorf("koto: unknown opcode %d at offset %d", byte(op), offset)
		}
		if op.OperandCount() == 1 {
			if offset+1 >= len(c.Code) {
				return fmt.Errorf("koto: %s at offset %d is missing its operand", op, offset)
			}
			idx := int(c.Code[offset+1])
			if idx >= len(c.Constants) {
				return fmt.Errorf("koto: %s at offset %d references constant %d of %d", op, offset, idx, len(c.Constants))
			}
			if op != OpConstant && !IsString(c.Constants[idx]) {
				return fmt.Errorf("koto: %s at offset %d names a non-string constant", op, offset)
			}
		}
		offset += 1 + op.OperandCount()
	}
	if last != OpReturn {
		return fmt.Errorf("koto: chunk does not end with %s", OpReturn)
	}
	return nil
}
