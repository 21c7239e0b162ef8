package lox

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompile_ValidProgram(t *testing.T) {
	vm := NewVM(VMOptions{})
	fn, err := Compile(vm, `print 1 + 2;`)
	require.NoError(t, err)
	assert.NotNil(t, fn)
	assert.Equal(t, ObjFunction, fn.Type)
}

func TestCompile_ReportsMultipleErrors(t *testing.T) {
	vm := NewVM(VMOptions{})
	_, err := Compile(vm, `
		var a = ;
		var b = ;
	`)
	require.Error(t, err)

	cerr, ok := err.(*CompileError)
	require.True(t, ok)
	assert.GreaterOrEqual(t, len(cerr.Messages), 2, "both bad declarations should be reported, via synchronize recovery")
}

func TestCompile_ReadingLocalInOwnInitializerIsAnError(t *testing.T) {
	vm := NewVM(VMOptions{})
	_, err := Compile(vm, `
		{
			var a = a;
		}
	`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "own initializer")
}

func TestCompile_RedeclaringLocalInSameScopeIsAnError(t *testing.T) {
	vm := NewVM(VMOptions{})
	_, err := Compile(vm, `
		{
			var a = 1;
			var a = 2;
		}
	`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Already a variable")
}

func TestCompile_ReturnAtTopLevelIsAnError(t *testing.T) {
	vm := NewVM(VMOptions{})
	_, err := Compile(vm, `return 1;`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Can't return from top-level code.")
}

func TestCompile_ReturnValueFromInitializerIsAnError(t *testing.T) {
	vm := NewVM(VMOptions{})
	_, err := Compile(vm, `
		class C {
			init() {
				return 1;
			}
		}
	`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Can't return a value from an initializer.")
}

func TestCompile_ThisOutsideClassIsAnError(t *testing.T) {
	vm := NewVM(VMOptions{})
	_, err := Compile(vm, `print this;`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Can't use 'this' outside of a class.")
}

func TestCompile_SuperWithoutSuperclassIsAnError(t *testing.T) {
	vm := NewVM(VMOptions{})
	_, err := Compile(vm, `
		class C {
			m() { super.m(); }
		}
	`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Can't use 'super' in a class with no superclass.")
}

func TestCompile_ClassCannotInheritFromItself(t *testing.T) {
	vm := NewVM(VMOptions{})
	_, err := Compile(vm, `class Oops < Oops {}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "can't inherit from itself")
}
