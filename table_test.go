package lox

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTable_SetGetDelete(t *testing.T) {
	vm := NewVM(VMOptions{})
	tbl := NewTable()

	key := vm.copyString("answer")
	isNew := tbl.Set(key, NumberValue(42))
	assert.True(t, isNew, "first Set of a key should report a new binding")

	v, ok := tbl.Get(key)
	require.True(t, ok)
	assert.Equal(t, NumberValue(42), v)

	isNew = tbl.Set(key, NumberValue(43))
	assert.False(t, isNew, "overwriting an existing key is not a new binding")

	ok = tbl.Delete(key)
	assert.True(t, ok)

	_, ok = tbl.Get(key)
	assert.False(t, ok, "deleted key should no longer resolve")
}

func TestTable_GetMissingKey(t *testing.T) {
	vm := NewVM(VMOptions{})
	tbl := NewTable()
	_, ok := tbl.Get(vm.copyString("nope"))
	assert.False(t, ok)
}

func TestTable_GrowsAndKeepsAllEntries(t *testing.T) {
	vm := NewVM(VMOptions{})
	tbl := NewTable()

	const n = 200
	for i := 0; i < n; i++ {
		key := vm.copyString(fmt.Sprintf("key%d", i))
		tbl.Set(key, NumberValue(float64(i)))
	}

	for i := 0; i < n; i++ {
		key := vm.copyString(fmt.Sprintf("key%d", i))
		v, ok := tbl.Get(key)
		require.True(t, ok, "key%d should still resolve after growth", i)
		assert.Equal(t, NumberValue(float64(i)), v)
	}
}

func TestTable_DeleteThenReinsertDoesNotLoseEntries(t *testing.T) {
	vm := NewVM(VMOptions{})
	tbl := NewTable()

	a, b, c := vm.copyString("a"), vm.copyString("b"), vm.copyString("c")
	tbl.Set(a, NumberValue(1))
	tbl.Set(b, NumberValue(2))
	tbl.Set(c, NumberValue(3))

	tbl.Delete(b)

	v, ok := tbl.Get(a)
	require.True(t, ok)
	assert.Equal(t, NumberValue(1), v)

	v, ok = tbl.Get(c)
	require.True(t, ok)
	assert.Equal(t, NumberValue(3), v)

	_, ok = tbl.Get(b)
	assert.False(t, ok)
}

func TestTable_FindString(t *testing.T) {
	vm := NewVM(VMOptions{})
	tbl := NewTable()

	str := vm.copyString("hello")
	tbl.Set(str, NilValue())

	found := tbl.findString("hello", hashString("hello"))
	assert.Same(t, str, found)

	assert.Nil(t, tbl.findString("goodbye", hashString("goodbye")))
}

func TestTable_AddAll(t *testing.T) {
	vm := NewVM(VMOptions{})
	src, dst := NewTable(), NewTable()

	src.Set(vm.copyString("x"), NumberValue(1))
	src.Set(vm.copyString("y"), NumberValue(2))

	dst.AddAll(src)

	v, ok := dst.Get(vm.copyString("x"))
	require.True(t, ok)
	assert.Equal(t, NumberValue(1), v)
}
