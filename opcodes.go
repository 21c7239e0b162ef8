package lox

// OpCode is one byte in a Chunk's instruction stream. This file is the
// single source of truth both the compiler (emission) and the VM
// (dispatch) and the disassembler key off of.
type OpCode byte

const (
	OpConstant OpCode = iota
	OpNil
	OpTrue
	OpFalse
	OpPop
	OpGetLocal
	OpSetLocal
	OpGetUpvalue
	OpSetUpvalue
	OpGetGlobal
	OpDefineGlobal
	OpSetGlobal
	OpGetProperty
	OpSetProperty
	OpGetSuper
	OpEqual
	OpGreater
	OpLess
	OpAdd
	OpSubtract
	OpMultiply
	OpDivide
	OpNot
	OpNegate
	OpPrint
	OpJump
	OpJumpIfFalse
	OpLoop
	OpCall
	OpInvoke
	OpSuperInvoke
	OpClosure
	OpCloseUpvalue
	OpReturn
	OpClass
	OpInherit
	OpMethod
)

// opInfo records, for disassembly, how many operand bytes follow the
// opcode and a human name; it does NOT drive the VM's own dispatch
// (vm.go switches on OpCode directly for speed) but keeps the
// disassembler and the ISA table in one place instead of two.
type opInfo struct {
	name       string
	operandLen int // bytes after the opcode; -1 means "variable/special", see debug.go
}

var opTable = map[OpCode]opInfo{
	OpConstant:     {"OP_CONSTANT", 1},
	OpNil:          {"OP_NIL", 0},
	OpTrue:         {"OP_TRUE", 0},
	OpFalse:        {"OP_FALSE", 0},
	OpPop:          {"OP_POP", 0},
	OpGetLocal:     {"OP_GET_LOCAL", 1},
	OpSetLocal:     {"OP_SET_LOCAL", 1},
	OpGetUpvalue:   {"OP_GET_UPVALUE", 1},
	OpSetUpvalue:   {"OP_SET_UPVALUE", 1},
	OpGetGlobal:    {"OP_GET_GLOBAL", 1},
	OpDefineGlobal: {"OP_DEFINE_GLOBAL", 1},
	OpSetGlobal:    {"OP_SET_GLOBAL", 1},
	OpGetProperty:  {"OP_GET_PROPERTY", 1},
	OpSetProperty:  {"OP_SET_PROPERTY", 1},
	OpGetSuper:     {"OP_GET_SUPER", 1},
	OpEqual:        {"OP_EQUAL", 0},
	OpGreater:      {"OP_GREATER", 0},
	OpLess:         {"OP_LESS", 0},
	OpAdd:          {"OP_ADD", 0},
	OpSubtract:     {"OP_SUBTRACT", 0},
	OpMultiply:     {"OP_MULTIPLY", 0},
	OpDivide:       {"OP_DIVIDE", 0},
	OpNot:          {"OP_NOT", 0},
	OpNegate:       {"OP_NEGATE", 0},
	OpPrint:        {"OP_PRINT", 0},
	OpJump:         {"OP_JUMP", 2},
	OpJumpIfFalse:  {"OP_JUMP_IF_FALSE", 2},
	OpLoop:         {"OP_LOOP", 2},
	OpCall:         {"OP_CALL", 1},
	OpInvoke:       {"OP_INVOKE", 2},
	OpSuperInvoke:  {"OP_SUPER_INVOKE", 2},
	OpClosure:      {"OP_CLOSURE", -1},
	OpCloseUpvalue: {"OP_CLOSE_UPVALUE", 0},
	OpReturn:       {"OP_RETURN", 0},
	OpClass:        {"OP_CLASS", 1},
	OpInherit:      {"OP_INHERIT", 0},
	OpMethod:       {"OP_METHOD", 1},
}
