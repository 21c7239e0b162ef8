package lox

import (
	"fmt"
	"os"
)

const (
	framesMax = 64
	stackMax  = framesMax * 256
)

// CallFrame is one function invocation: which closure is running,
// where its instruction pointer is, and where its stack window
// starts. Slot 0 of that window is the callee itself for free
// functions, or the receiver for methods/initializers.
type CallFrame struct {
	closure   *Obj // ObjClosure
	ip        int
	slotsBase int
}

// VM is every piece of mutable interpreter state, held in one value
// instead of package globals: encapsulate, construct explicitly, and
// let a host that wants a single shared instance own that choice
// itself rather than have it forced by the package.
type VM struct {
	frames     [framesMax]CallFrame
	frameCount int

	stack    [stackMax]Value
	stackTop int

	globals *Table
	strings *Table // the weak string-intern pool

	openUpvalues *Obj // intrusive list, sorted by descending stack slot

	objects *Obj // intrusive "all heap objects" list, for sweep

	grayStack []*Obj // GC gray worklist

	bytesAllocated int
	nextGC         int

	initString *Obj // cached interned "init", a GC root

	compilerRoot *Compiler // innermost Compiler currently being built, a GC root

	opts VMOptions
}

func NewVM(opts VMOptions) *VM {
	opts = opts.withDefaults()
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	vm := &VM{
		globals: NewTable(),
		strings: NewTable(),
		opts:    opts,
		nextGC:  opts.InitialGCThreshold,
	}
	vm.initString = vm.copyString("init")
	vm.defineNatives()
	return vm
}

func (vm *VM) resetStack() {
	vm.stackTop = 0
	vm.frameCount = 0
	vm.openUpvalues = nil
}

func (vm *VM) push(v Value) {
	vm.stack[vm.stackTop] = v
	vm.stackTop++
}

func (vm *VM) pop() Value {
	vm.stackTop--
	return vm.stack[vm.stackTop]
}

func (vm *VM) peek(distance int) Value {
	return vm.stack[vm.stackTop-1-distance]
}

// Interpret compiles and runs one program, mirroring the CLI's two
// invocation shapes: a whole file, or one REPL line. A non-nil
// error is always either a *CompileError or a *RuntimeError; both
// have already been written to vm.opts.Stderr by the time they're
// returned, so the caller's only remaining job is picking an exit
// code.
func (vm *VM) Interpret(source string) error {
	fn, err := Compile(vm, source)
	if err != nil {
		if ce, ok := err.(*CompileError); ok {
			for _, m := range ce.Messages {
				fmt.Fprintln(vm.opts.Stderr, m)
			}
		}
		return err
	}

	vm.push(ObjValue(fn))
	closure := vm.newClosure(fn)
	vm.pop()
	vm.push(ObjValue(closure))

	if err := vm.callValue(ObjValue(closure), 0); err != nil {
		return err
	}
	return vm.run()
}

// ---- bytecode stream helpers ----

func (vm *VM) currentFrame() *CallFrame { return &vm.frames[vm.frameCount-1] }

func readByte(f *CallFrame) byte {
	b := f.closure.Function.Chunk.Code[f.ip]
	f.ip++
	return b
}

func readU16(f *CallFrame) uint16 {
	hi := readByte(f)
	lo := readByte(f)
	return uint16(hi)<<8 | uint16(lo)
}

func readConstant(f *CallFrame) Value {
	idx := readByte(f)
	return f.closure.Function.Chunk.Constants.Get(int(idx))
}

func readStringConst(f *CallFrame) *Obj {
	return readConstant(f).Obj
}

// ---- dispatch loop ----

func (vm *VM) run() error {
	frame := vm.currentFrame()

	for {
		if vm.opts.TraceExecution {
			vm.disassembleInstruction(vm.opts.Stderr, frame.closure.Function.Chunk, frame.ip)
		}

		op := OpCode(readByte(frame))
		switch op {
		case OpConstant:
			vm.push(readConstant(frame))

		case OpNil:
			vm.push(NilValue())
		case OpTrue:
			vm.push(BoolValue(true))
		case OpFalse:
			vm.push(BoolValue(false))
		case OpPop:
			vm.pop()

		case OpGetLocal:
			slot := readByte(frame)
			vm.push(vm.stack[frame.slotsBase+int(slot)])
		case OpSetLocal:
			slot := readByte(frame)
			vm.stack[frame.slotsBase+int(slot)] = vm.peek(0)

		case OpGetUpvalue:
			idx := readByte(frame)
			vm.push(frame.closure.Upvalues[idx].upvalueGet())
		case OpSetUpvalue:
			idx := readByte(frame)
			frame.closure.Upvalues[idx].upvalueSet(vm.peek(0))

		case OpGetGlobal:
			name := readStringConst(frame)
			v, ok := vm.globals.Get(name)
			if !ok {
				return vm.runtimeError("Undefined variable '%s'.", name.Chars)
			}
			vm.push(v)

		case OpDefineGlobal:
			name := readStringConst(frame)
			vm.globals.Set(name, vm.peek(0))
			vm.pop()

		case OpSetGlobal:
			name := readStringConst(frame)
			if vm.globals.Set(name, vm.peek(0)) {
				// Set reports isNewKey=true; a real assignment must
				// never create a binding, so undo it.
				vm.globals.Delete(name)
				return vm.runtimeError("Undefined variable '%s'.", name.Chars)
			}

		case OpGetProperty:
			name := readStringConst(frame)
			if !vm.peek(0).IsObjType(ObjInstance) {
				return vm.runtimeError("Only instances have properties.")
			}
			instance := vm.peek(0).Obj
			if v, ok := instance.Fields.Get(name); ok {
				vm.pop()
				vm.push(v)
				break
			}
			if err := vm.bindMethod(instance.Class, name); err != nil {
				return err
			}

		case OpSetProperty:
			name := readStringConst(frame)
			if !vm.peek(1).IsObjType(ObjInstance) {
				return vm.runtimeError("Only instances have fields.")
			}
			instance := vm.peek(1).Obj
			instance.Fields.Set(name, vm.peek(0))
			v := vm.pop()
			vm.pop()
			vm.push(v)

		case OpGetSuper:
			name := readStringConst(frame)
			superclass := vm.pop().Obj
			if err := vm.bindMethod(superclass, name); err != nil {
				return err
			}

		case OpEqual:
			b, a := vm.pop(), vm.pop()
			vm.push(BoolValue(ValuesEqual(a, b)))

		case OpGreater:
			if err := vm.numericBinary(func(a, b float64) Value { return BoolValue(a > b) }); err != nil {
				return err
			}
		case OpLess:
			if err := vm.numericBinary(func(a, b float64) Value { return BoolValue(a < b) }); err != nil {
				return err
			}

		case OpAdd:
			if err := vm.add(); err != nil {
				return err
			}
		case OpSubtract:
			if err := vm.numericBinary(func(a, b float64) Value { return NumberValue(a - b) }); err != nil {
				return err
			}
		case OpMultiply:
			if err := vm.numericBinary(func(a, b float64) Value { return NumberValue(a * b) }); err != nil {
				return err
			}
		case OpDivide:
			if err := vm.numericBinary(func(a, b float64) Value { return NumberValue(a / b) }); err != nil {
				return err
			}

		case OpNot:
			vm.push(BoolValue(vm.pop().IsFalsey()))

		case OpNegate:
			if !vm.peek(0).IsNumber() {
				return vm.runtimeError("Operand must be a number.")
			}
			vm.push(NumberValue(-vm.pop().Num))

		case OpPrint:
			fmt.Fprintln(vm.opts.Stdout, vm.pop().String())

		case OpJump:
			offset := readU16(frame)
			frame.ip += int(offset)
		case OpJumpIfFalse:
			offset := readU16(frame)
			if vm.peek(0).IsFalsey() {
				frame.ip += int(offset)
			}
		case OpLoop:
			offset := readU16(frame)
			frame.ip -= int(offset)

		case OpCall:
			argCount := int(readByte(frame))
			if err := vm.callValue(vm.peek(argCount), argCount); err != nil {
				return err
			}
			frame = vm.currentFrame()

		case OpInvoke:
			name := readStringConst(frame)
			argCount := int(readByte(frame))
			if err := vm.invoke(name, argCount); err != nil {
				return err
			}
			frame = vm.currentFrame()

		case OpSuperInvoke:
			name := readStringConst(frame)
			argCount := int(readByte(frame))
			superclass := vm.pop().Obj
			if err := vm.invokeFromClass(superclass, name, argCount); err != nil {
				return err
			}
			frame = vm.currentFrame()

		case OpClosure:
			fn := readConstant(frame).Obj
			closure := vm.newClosure(fn)
			vm.push(ObjValue(closure))
			for i := 0; i < fn.UpvalueCount; i++ {
				isLocal := readByte(frame)
				index := readByte(frame)
				if isLocal == 1 {
					closure.Upvalues[i] = vm.captureUpvalue(frame.slotsBase + int(index))
				} else {
					closure.Upvalues[i] = frame.closure.Upvalues[index]
				}
			}

		case OpCloseUpvalue:
			vm.closeUpvalues(vm.stackTop - 1)
			vm.pop()

		case OpReturn:
			result := vm.pop()
			vm.closeUpvalues(frame.slotsBase)
			vm.frameCount--
			if vm.frameCount == 0 {
				vm.pop()
				return nil
			}
			vm.stackTop = frame.slotsBase
			vm.push(result)
			frame = vm.currentFrame()

		case OpClass:
			name := readStringConst(frame)
			vm.push(ObjValue(vm.newClass(name)))

		case OpInherit:
			superclassVal := vm.peek(1)
			if !superclassVal.IsObjType(ObjClass) {
				return vm.runtimeError("Superclass must be a class.")
			}
			subclass := vm.peek(0).Obj
			subclass.Methods.AddAll(superclassVal.Obj.Methods)
			vm.pop() // the subclass; the superclass remains as the "super" local

		case OpMethod:
			name := readStringConst(frame)
			method := vm.pop()
			class := vm.peek(0).Obj
			class.Methods.Set(name, method)

		default:
			return vm.runtimeError("Unknown opcode %d.", op)
		}
	}
}

func (vm *VM) numericBinary(op func(a, b float64) Value) error {
	if !vm.peek(0).IsNumber() || !vm.peek(1).IsNumber() {
		return vm.runtimeError("Operands must be numbers.")
	}
	b, a := vm.pop(), vm.pop()
	vm.push(op(a.Num, b.Num))
	return nil
}

func (vm *VM) add() error {
	if vm.peek(0).IsObjType(ObjString) && vm.peek(1).IsObjType(ObjString) {
		b, a := vm.pop(), vm.pop()
		vm.push(ObjValue(vm.takeString(a.Obj.Chars + b.Obj.Chars)))
		return nil
	}
	if vm.peek(0).IsNumber() && vm.peek(1).IsNumber() {
		b, a := vm.pop(), vm.pop()
		vm.push(NumberValue(a.Num + b.Num))
		return nil
	}
	return vm.runtimeError("Operands must be two numbers or two strings.")
}

// ---- calling, binding, upvalues ----

func (vm *VM) callValue(callee Value, argCount int) error {
	if !callee.IsObj() {
		return vm.runtimeError("Can only call functions and classes.")
	}
	switch callee.Obj.Type {
	case ObjClosure:
		return vm.call(callee.Obj, argCount)
	case ObjClass:
		class := callee.Obj
		vm.stack[vm.stackTop-argCount-1] = ObjValue(vm.newInstance(class))
		if initializer, ok := class.Methods.Get(vm.initString); ok {
			return vm.call(initializer.Obj, argCount)
		}
		if argCount != 0 {
			return vm.runtimeError("Expected 0 arguments but got %d.", argCount)
		}
		return nil
	case ObjBoundMethod:
		bound := callee.Obj
		vm.stack[vm.stackTop-argCount-1] = bound.Receiver
		return vm.call(bound.Method, argCount)
	case ObjNative:
		args := vm.stack[vm.stackTop-argCount : vm.stackTop]
		result, err := callee.Obj.Native(args)
		if err != nil {
			return vm.runtimeError("%s", err.Error())
		}
		vm.stackTop -= argCount + 1
		vm.push(result)
		return nil
	default:
		return vm.runtimeError("Can only call functions and classes.")
	}
}

func (vm *VM) call(closure *Obj, argCount int) error {
	if argCount != closure.Function.Arity {
		return vm.runtimeError("Expected %d arguments but got %d.", closure.Function.Arity, argCount)
	}
	if vm.frameCount == framesMax {
		return vm.runtimeError("Stack overflow.")
	}
	vm.frames[vm.frameCount] = CallFrame{
		closure:   closure,
		ip:        0,
		slotsBase: vm.stackTop - argCount - 1,
	}
	vm.frameCount++
	return nil
}

func (vm *VM) invoke(name *Obj, argCount int) error {
	receiver := vm.peek(argCount)
	if !receiver.IsObjType(ObjInstance) {
		return vm.runtimeError("Only instances have methods.")
	}
	instance := receiver.Obj
	if field, ok := instance.Fields.Get(name); ok {
		vm.stack[vm.stackTop-argCount-1] = field
		return vm.callValue(field, argCount)
	}
	return vm.invokeFromClass(instance.Class, name, argCount)
}

func (vm *VM) invokeFromClass(class *Obj, name *Obj, argCount int) error {
	method, ok := class.Methods.Get(name)
	if !ok {
		return vm.runtimeError("Undefined property '%s'.", name.Chars)
	}
	return vm.call(method.Obj, argCount)
}

func (vm *VM) bindMethod(class *Obj, name *Obj) error {
	method, ok := class.Methods.Get(name)
	if !ok {
		return vm.runtimeError("Undefined property '%s'.", name.Chars)
	}
	bound := vm.newBoundMethod(vm.peek(0), method.Obj)
	vm.pop()
	vm.push(ObjValue(bound))
	return nil
}

// captureUpvalue finds or creates the open upvalue over stack slot,
// keeping the list sorted by descending slot so the scan in
// closeUpvalues can stop as soon as it passes the slot in question.
func (vm *VM) captureUpvalue(slot int) *Obj {
	var prev *Obj
	cur := vm.openUpvalues
	for cur != nil && cur.OpenSlot > slot {
		prev = cur
		cur = cur.NextOpen
	}
	if cur != nil && cur.OpenSlot == slot {
		return cur
	}

	created := vm.newUpvalue(&vm.stack[slot])
	created.OpenSlot = slot
	created.NextOpen = cur
	if prev == nil {
		vm.openUpvalues = created
	} else {
		prev.NextOpen = created
	}
	return created
}

// closeUpvalues migrates every open upvalue at or above fromSlot onto
// the heap: copy the live value out of the stack slot into the
// upvalue's own storage, then stop pointing at the stack.
func (vm *VM) closeUpvalues(fromSlot int) {
	for vm.openUpvalues != nil && vm.openUpvalues.OpenSlot >= fromSlot {
		uv := vm.openUpvalues
		uv.Closed = *uv.Location
		uv.Location = nil
		vm.openUpvalues = uv.NextOpen
		uv.NextOpen = nil
	}
}

func (o *Obj) upvalueGet() Value {
	if o.Location != nil {
		return *o.Location
	}
	return o.Closed
}

func (o *Obj) upvalueSet(v Value) {
	if o.Location != nil {
		*o.Location = v
	} else {
		o.Closed = v
	}
}

// ---- runtime errors ----

func (vm *VM) runtimeError(format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(vm.opts.Stderr, msg)

	var trace []string
	for i := vm.frameCount - 1; i >= 0; i-- {
		f := &vm.frames[i]
		fn := f.closure.Function
		instruction := f.ip - 1
		line := 0
		if instruction >= 0 && instruction < len(fn.Chunk.Lines) {
			line = fn.Chunk.Lines[instruction]
		}
		name := "script"
		if fn.Name != nil {
			name = fn.Name.Chars + "()"
		}
		line1 := fmt.Sprintf("[line %d] in %s", line, name)
		trace = append(trace, line1)
		fmt.Fprintln(vm.opts.Stderr, line1)
	}

	vm.resetStack()
	return &RuntimeError{Message: msg, Trace: trace}
}
