package lox

import (
	"bytes"
	"fmt"
	"io"

	"github.com/clarete/lox/ascii"
)

// Disassemble compiles source without running it and renders its
// bytecode, function-by-function, the way disassembleChunk prints a
// single chunk. It's the REPL's `.disasm` meta-command and never
// touches the VM's stack or globals.
func (vm *VM) Disassemble(source string) (string, error) {
	fn, err := Compile(vm, source)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	vm.disassembleFunctionTree(&buf, fn)
	return buf.String(), nil
}

func (vm *VM) disassembleFunctionTree(w io.Writer, fn *Obj) {
	name := "<script>"
	if fn.Name != nil {
		name = fn.Name.Chars
	}
	vm.disassembleChunk(w, fn.Chunk, name)
	for _, v := range fn.Chunk.Constants.values {
		if v.IsObjType(ObjFunction) {
			vm.disassembleFunctionTree(w, v.Obj)
		}
	}
}

// disassembleChunk writes one line per instruction in chunk to w,
// prefixed by name. Reachable from the REPL's `.disasm` meta-command
// through Disassemble; vm.run's TraceExecution path prints single
// instructions with disassembleInstruction instead.
func (vm *VM) disassembleChunk(w io.Writer, chunk *Chunk, name string) {
	fmt.Fprintf(w, "== %s ==\n", name)
	for offset := 0; offset < len(chunk.Code); {
		offset = vm.disassembleInstruction(w, chunk, offset)
	}
}

func (vm *VM) disassembleInstruction(w io.Writer, chunk *Chunk, offset int) int {
	theme := ascii.DefaultTheme

	fmt.Fprintf(w, "%s ", ascii.Format(theme.Offset, fmt.Sprintf("%04d", offset)))
	if offset > 0 && chunk.Lines[offset] == chunk.Lines[offset-1] {
		fmt.Fprint(w, "   | ")
	} else {
		fmt.Fprintf(w, "%s ", ascii.Format(theme.Offset, fmt.Sprintf("%4d", chunk.Lines[offset])))
	}

	op := OpCode(chunk.Code[offset])
	info, ok := opTable[op]
	if !ok {
		fmt.Fprintf(w, "%s\n", ascii.Format(theme.Error, fmt.Sprintf("unknown opcode %d", op)))
		return offset + 1
	}

	name := ascii.Format(theme.Opcode, info.name)

	switch {
	case op == OpClosure:
		return vm.disassembleClosure(w, chunk, offset, name, theme)
	case info.operandLen == 0:
		fmt.Fprintf(w, "%s\n", name)
		return offset + 1
	case info.operandLen == 1:
		operand := chunk.Code[offset+1]
		return vm.disassembleByteOperand(w, chunk, offset, op, name, operand, theme)
	case info.operandLen == 2:
		return vm.disassembleJumpOrWide(w, chunk, offset, op, name, theme)
	default:
		fmt.Fprintf(w, "%s\n", name)
		return offset + 1
	}
}

func (vm *VM) disassembleByteOperand(w io.Writer, chunk *Chunk, offset int, op OpCode, name string, operand byte, theme ascii.Theme) int {
	switch op {
	case OpConstant, OpGetGlobal, OpDefineGlobal, OpSetGlobal, OpGetProperty, OpSetProperty, OpGetSuper, OpClass, OpMethod:
		v := chunk.Constants.Get(int(operand))
		fmt.Fprintf(w, "%-20s %s %s\n", name,
			ascii.Format(theme.Operand, fmt.Sprintf("%4d", operand)),
			ascii.Format(theme.Literal, "'"+v.String()+"'"))
	default:
		fmt.Fprintf(w, "%-20s %s\n", name, ascii.Format(theme.Operand, fmt.Sprintf("%4d", operand)))
	}
	return offset + 2
}

func (vm *VM) disassembleJumpOrWide(w io.Writer, chunk *Chunk, offset int, op OpCode, name string, theme ascii.Theme) int {
	hi, lo := chunk.Code[offset+1], chunk.Code[offset+2]
	operand := uint16(hi)<<8 | uint16(lo)

	switch op {
	case OpJump, OpJumpIfFalse:
		fmt.Fprintf(w, "%-20s %s\n", name, ascii.Format(theme.Operand, fmt.Sprintf("%4d -> %d", offset, offset+3+int(operand))))
	case OpLoop:
		fmt.Fprintf(w, "%-20s %s\n", name, ascii.Format(theme.Operand, fmt.Sprintf("%4d -> %d", offset, offset+3-int(operand))))
	case OpInvoke, OpSuperInvoke:
		name8 := chunk.Constants.Get(int(hi))
		fmt.Fprintf(w, "%-20s %s (%d args)\n", name,
			ascii.Format(theme.Literal, "'"+name8.String()+"'"), lo)
	default:
		fmt.Fprintf(w, "%-20s %s\n", name, ascii.Format(theme.Operand, fmt.Sprintf("%4d", operand)))
	}
	return offset + 3
}

// disassembleClosure is the one variable-length instruction: a
// constant index for the function, followed by one (isLocal, index)
// byte pair per upvalue the function captures.
func (vm *VM) disassembleClosure(w io.Writer, chunk *Chunk, offset int, name string, theme ascii.Theme) int {
	constIdx := chunk.Code[offset+1]
	fnVal := chunk.Constants.Get(int(constIdx))
	fmt.Fprintf(w, "%-20s %s %s\n", name,
		ascii.Format(theme.Operand, fmt.Sprintf("%4d", constIdx)),
		ascii.Format(theme.Literal, fnVal.String()))

	next := offset + 2
	if fnVal.IsObjType(ObjFunction) {
		for i := 0; i < fnVal.Obj.UpvalueCount; i++ {
			isLocal := chunk.Code[next]
			index := chunk.Code[next+1]
			kind := "upvalue"
			if isLocal == 1 {
				kind = "local"
			}
			fmt.Fprintf(w, "%04d      |                     %s %d\n", next, kind, index)
			next += 2
		}
	}
	return next
}
