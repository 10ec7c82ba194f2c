package koto

import "strconv"

type ValueType int

const (
	ValNil ValueType = iota
	ValBool
	ValNumber
	ValObject
)

func (t ValueType) String() string {
	switch t {
	case ValNil:
		return "nil"
	case ValBool:
		return "bool"
	case ValNumber:
		return "number"
	case ValObject:
		return "object"
	}
	return "unknown"
}

// Value is the runtime sum type. Its implementations are NilValue, BoolValue,
// NumberValue and the heap objects (currently only *StringObj).
type Value interface {
	Type() ValueType
	String() string
}

type ObjType int

const (
	ObjString ObjType = iota
)

// Object is a heap-allocated Value. The Go collector keeps it alive for as
// long as the stack, a constant pool or the global table points at it.
type Object interface {
	Value
	ObjType() ObjType
}

type NilValue struct{}

func (NilValue) Type() ValueType { return ValNil }
func (NilValue) String() string  { return "nil" }

type BoolValue struct {
	Value bool
}

func (b BoolValue) Type() ValueType { return ValBool }
func (b BoolValue) String() string  { return strconv.FormatBool(b.Value) }

type NumberValue struct {
	Value float64
}

func (n NumberValue) Type() ValueType { return ValNumber }
func (n NumberValue) String() string  { return strconv.FormatFloat(n.Value, 'g', -1, 64) }

type StringObj struct {
	Value string
}

func NewString(s string) *StringObj {
	return &StringObj{Value: s}
}

func (s *StringObj) Type() ValueType  { return ValObject }
func (s *StringObj) ObjType() ObjType { return ObjString }
func (s *StringObj) String() string   { return s.Value }

func Nil() Value             { return NilValue{} }
func Bool(b bool) Value      { return BoolValue{Value: b} }
func Number(n float64) Value { return NumberValue{Value: n} }
func String(s string) Value  { return NewString(s) }

func IsNumber(v Value) bool {
	_, ok := v.(NumberValue)
	return ok
}

func IsString(v Value) bool {
	_, ok := v.(*StringObj)
	return ok
}

// IsFalsey reports whether v counts as false: only nil and false do.
func IsFalsey(v Value) bool {
	switch val := v.(type) {
	case NilValue:
		return true
	case BoolValue:
		return !val.Value
	default:
		return false
	}
}

// ValuesEqual never equates values of different types. Strings compare by
// content.
func ValuesEqual(a, b Value) bool {
	if a.Type() != b.Type() {
		return false
	}
	switch av := a.(type) {
	case NilValue:
		return true
	case BoolValue:
		return av.Value == b.(BoolValue).Value
	case NumberValue:
		return av.Value == b.(NumberValue).Value
	case *StringObj:
		bs, ok := b.(*StringObj)
		return ok && av.Value == bs.Value
	default:
		return false
	}
}
