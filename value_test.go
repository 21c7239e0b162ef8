package lox

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValuesEqual(t *testing.T) {
	vm := NewVM(VMOptions{})
	a := ObjValue(vm.copyString("hi"))
	b := ObjValue(vm.copyString("hi"))
	other := ObjValue(vm.copyString("bye"))

	tests := []struct {
		name     string
		a, b     Value
		expected bool
	}{
		{"nil equals nil", NilValue(), NilValue(), true},
		{"true equals true", BoolValue(true), BoolValue(true), true},
		{"true does not equal false", BoolValue(true), BoolValue(false), false},
		{"equal numbers", NumberValue(3), NumberValue(3), true},
		{"unequal numbers", NumberValue(3), NumberValue(4), false},
		{"NaN is never equal to itself", NumberValue(math.NaN()), NumberValue(math.NaN()), false},
		{"different types are never equal", NumberValue(0), BoolValue(false), false},
		{"interned strings with equal content are equal", a, b, true},
		{"interned strings with different content are not equal", a, other, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ValuesEqual(tt.a, tt.b))
		})
	}
}

func TestValueIsFalsey(t *testing.T) {
	assert.True(t, NilValue().IsFalsey())
	assert.True(t, BoolValue(false).IsFalsey())
	assert.False(t, BoolValue(true).IsFalsey())
	assert.False(t, NumberValue(0).IsFalsey())
}

func TestValueArray(t *testing.T) {
	var arr ValueArray
	assert.Equal(t, 0, arr.Len())

	idx := arr.Write(NumberValue(1))
	assert.Equal(t, 0, idx)
	idx = arr.Write(NumberValue(2))
	assert.Equal(t, 1, idx)

	assert.Equal(t, 2, arr.Len())
	assert.Equal(t, NumberValue(2), arr.Get(1))
}
