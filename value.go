package lox

import "fmt"

// ValueKind tags the variant held by a Value.
type ValueKind uint8

const (
	ValNil ValueKind = iota
	ValBool
	ValNumber
	ValObj
)

// Value is a tagged union over Nil, Boolean, Number (float64) and Object
// (a handle into the VM's object arena, see object.go). It is a plain
// struct rather than NaN-boxing: spec.md §4.4 mandates a tagged-union
// layout, not the packed 16-byte representation of the reference
// implementation.
type Value struct {
	kind ValueKind
	num  float64
	obj  Obj
}

// NilValue is the singleton Nil value.
var NilValue = Value{kind: ValNil}

// BoolValue constructs a Boolean-tagged Value.
func BoolValue(b bool) Value {
	v := Value{kind: ValBool}
	if b {
		v.num = 1
	}
	return v
}

// NumberValue constructs a Number-tagged Value.
func NumberValue(n float64) Value {
	return Value{kind: ValNumber, num: n}
}

// ObjValue constructs an Object-tagged Value from a heap-object handle.
func ObjValue(o Obj) Value {
	return Value{kind: ValObj, obj: o}
}

// IsNil reports whether v holds Nil.
func (v Value) IsNil() bool { return v.kind == ValNil }

// IsBool reports whether v holds a Boolean.
func (v Value) IsBool() bool { return v.kind == ValBool }

// IsNumber reports whether v holds a Number.
func (v Value) IsNumber() bool { return v.kind == ValNumber }

// IsObj reports whether v holds an Object handle.
func (v Value) IsObj() bool { return v.kind == ValObj }

// AsBool returns the Boolean payload; callers must check IsBool first.
func (v Value) AsBool() bool { return v.num != 0 }

// AsNumber returns the Number payload; callers must check IsNumber first.
func (v Value) AsNumber() float64 { return v.num }

// AsObj returns the Object handle payload; callers must check IsObj first.
func (v Value) AsObj() Obj { return v.obj }

// IsFalsey implements lox's falsiness rule: only Nil and Boolean(false) are
// falsey; every other value, including 0 and the empty string, is truthy.
func (v Value) IsFalsey() bool {
	return v.IsNil() || (v.IsBool() && !v.AsBool())
}

// ValuesEqual implements structural, per-tag equality. Cross-tag comparison
// is always false. String comparison is by content (spec.md §4.4); once
// every string is interned (table.go), content comparison coincides with
// Obj handle identity, so that shortcut is taken directly here without
// weakening the content-equality contract.
func ValuesEqual(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case ValNil:
		return true
	case ValBool:
		return a.AsBool() == b.AsBool()
	case ValNumber:
		return a.AsNumber() == b.AsNumber()
	case ValObj:
		return a.obj == b.obj
	default:
		return false
	}
}

// String renders v for OP_PRINT and debug disassembly.
func (v Value) String() string {
	switch v.kind {
	case ValNil:
		return "nil"
	case ValBool:
		if v.AsBool() {
			return "true"
		}
		return "false"
	case ValNumber:
		return formatNumber(v.AsNumber())
	case ValObj:
		return v.obj.String()
	default:
		return "<invalid value>"
	}
}

func formatNumber(n float64) string {
	return fmt.Sprintf("%g", n)
}
