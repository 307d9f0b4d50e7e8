package lox

import "testing"

import "github.com/stretchr/testify/assert"

func TestValuesEqual(t *testing.T) {
	cases := []struct {
		name  string
		a, b  Value
		equal bool
	}{
		{"nil==nil", NilValue, NilValue, true},
		{"true==true", BoolValue(true), BoolValue(true), true},
		{"true!=false", BoolValue(true), BoolValue(false), false},
		{"1==1", NumberValue(1), NumberValue(1), true},
		{"1!=2", NumberValue(1), NumberValue(2), false},
		{"nil!=false", NilValue, BoolValue(false), false},
		{"nil!=0", NilValue, NumberValue(0), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.equal, ValuesEqual(tc.a, tc.b))
		})
	}
}

func TestValuesEqualReflexive(t *testing.T) {
	for _, v := range []Value{NilValue, BoolValue(true), BoolValue(false), NumberValue(3.5), NumberValue(0)} {
		assert.True(t, ValuesEqual(v, v))
	}
}

func TestIsFalsey(t *testing.T) {
	assert.True(t, NilValue.IsFalsey())
	assert.True(t, BoolValue(false).IsFalsey())
	assert.False(t, BoolValue(true).IsFalsey())
	assert.False(t, NumberValue(0).IsFalsey(), "0 is truthy in lox")
}

func TestInternedStringEquality(t *testing.T) {
	arena := &objectArena{}
	strings := newStrings(arena)
	a := strings.Intern("hello")
	b := strings.Intern("hello")
	assert.Same(t, a, b, "equal-content strings must be interned to the same object")
	assert.True(t, ValuesEqual(ObjValue(a), ObjValue(b)))
}
