package lox

import (
	"fmt"
	"time"
)

// defineNatives installs the small set of host-provided functions
// every VM starts with. Native calls bypass the call-frame machinery
// entirely (no chunk, no ip): callValue invokes the Go closure
// directly and pushes whatever it returns.
func (vm *VM) defineNatives() {
	vm.defineNative("clock", nativeClock)
	vm.defineNative("len", nativeLen)
	vm.defineNative("type", vm.nativeType())
}

func (vm *VM) defineNative(name string, fn NativeFn) {
	// Push/pop around both allocations for the same reason makeConstant
	// does: copyString and newNative can each trigger a GC, and neither
	// the string nor the not-yet-stored native is reachable from any
	// root until globals.Set below.
	vm.push(ObjValue(vm.copyString(name)))
	vm.push(ObjValue(vm.newNative(fn)))
	vm.globals.Set(vm.stack[vm.stackTop-2].Obj, vm.stack[vm.stackTop-1])
	vm.pop()
	vm.pop()
}

var processStart = time.Now()

func nativeClock(args []Value) (Value, error) {
	return NumberValue(time.Since(processStart).Seconds()), nil
}

func nativeLen(args []Value) (Value, error) {
	if len(args) != 1 {
		return Value{}, fmt.Errorf("len() takes exactly one argument")
	}
	if !args[0].IsObjType(ObjString) {
		return Value{}, fmt.Errorf("len() only supports strings")
	}
	return NumberValue(float64(len(args[0].Obj.Chars))), nil
}

// nativeType returns a closure over vm because, unlike len and clock,
// it needs to intern a fresh result string through the VM's pool.
func (vm *VM) nativeType() NativeFn {
	return func(args []Value) (Value, error) {
		if len(args) != 1 {
			return Value{}, fmt.Errorf("type() takes exactly one argument")
		}
		return ObjValue(vm.copyString(typeName(args[0]))), nil
	}
}

func typeName(v Value) string {
	switch {
	case v.IsNil():
		return "nil"
	case v.IsBool():
		return "bool"
	case v.IsNumber():
		return "number"
	case v.IsObjType(ObjString):
		return "string"
	case v.IsObjType(ObjFunction), v.IsObjType(ObjClosure):
		return "function"
	case v.IsObjType(ObjNative):
		return "native"
	case v.IsObjType(ObjBoundMethod):
		return "bound method"
	case v.IsObjType(ObjClass):
		return "class"
	case v.IsObjType(ObjInstance):
		return "instance"
	default:
		return "object"
	}
}
