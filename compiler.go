package lox

import (
	"fmt"
	"strconv"
)

// FunctionType distinguishes the four bodies a Compiler can be
// compiling, which changes what slot 0 means and what `return` is
// allowed to do.
type FunctionType int

const (
	TypeFunction FunctionType = iota
	TypeInitializer
	TypeMethod
	TypeScript
)

// Local is one entry in a Compiler's local-variable array. Depth -1 is
// the "declared but not yet initialized" sentinel used to catch
// `var a = a;` at compile time.
type Local struct {
	Name       Token
	Depth      int
	IsCaptured bool
}

// Upvalue records, for the function currently being compiled, how to
// find the value a nested closure over it should capture: either a
// local slot of the *immediately* enclosing function, or an upvalue
// already threaded through it.
type Upvalue struct {
	Index   byte
	IsLocal bool
}

const maxLocals = 256
const maxUpvalues = 256

// Compiler holds everything specific to compiling one function body.
// The chain of Compilers (via enclosing) is itself a GC root: every
// function under construction must stay reachable while it's being
// built, since none of them are stored anywhere else yet.
type Compiler struct {
	enclosing *Compiler
	function  *Obj
	fnType    FunctionType

	locals     []Local
	upvalues   []Upvalue
	scopeDepth int
}

func newCompiler(vm *VM, enclosing *Compiler, fnType FunctionType, name string) *Compiler {
	c := &Compiler{enclosing: enclosing, fnType: fnType, function: vm.newFunction()}
	if name != "" {
		c.function.Name = vm.copyString(name)
	}
	// Slot 0 is reserved: "this" for methods/initializers, empty for
	// free functions and the top-level script.
	slotName := ""
	if fnType != TypeFunction && fnType != TypeScript {
		slotName = "this"
	}
	c.locals = append(c.locals, Local{Name: Token{Lexeme: slotName}, Depth: 0})
	return c
}

// classCompiler tracks the innermost class being compiled, as a
// separate stack from the function-Compiler chain.
type classCompiler struct {
	enclosing     *classCompiler
	hasSuperclass bool
}

// Precedence levels for the Pratt expression parser, lowest to
// highest.
type Precedence int

const (
	PrecNone       Precedence = iota
	PrecAssignment            // =
	PrecOr                    // or
	PrecAnd                   // and
	PrecEquality              // == !=
	PrecComparison            // < > <= >=
	PrecTerm                  // + -
	PrecFactor                // * /
	PrecUnary                 // ! -
	PrecCall                  // . ()
	PrecPrimary
)

type parseFn func(p *Parser, canAssign bool)

type parseRule struct {
	prefix     parseFn
	infix      parseFn
	precedence Precedence
}

// Parser is the single-pass compiler's whole mutable state: the
// token cursor, the current function-Compiler chain, the current
// class-Compiler chain, and the panic-mode error-recovery flags. It
// is a value threaded explicitly through Compile rather than a
// package global (see the Design Notes on the process-wide-VM
// anti-pattern — the same reasoning applies to the compiler).
type Parser struct {
	vm      *VM
	scanner *Scanner

	current  Token
	previous Token

	compiler *Compiler
	class    *classCompiler

	hadError  bool
	panicMode bool
	errors    []string
}

// Compile turns source into a top-level function object ready to be
// wrapped in a closure and run, or returns the accumulated compile
// errors joined into one *CompileError.
func Compile(vm *VM, source string) (*Obj, error) {
	p := &Parser{vm: vm, scanner: NewScanner(source)}
	p.compiler = newCompiler(vm, nil, TypeScript, "")
	vm.compilerRoot = p.compiler

	p.advance()
	for !p.match(TokenEOF) {
		p.declaration()
	}

	fn := p.endCompiler()
	if p.hadError {
		return nil, &CompileError{Messages: p.errors}
	}
	return fn, nil
}

// ---- token stream plumbing ----

func (p *Parser) advance() {
	p.previous = p.current
	for {
		p.current = p.scanner.Next()
		if p.current.Type != TokenError {
			break
		}
		p.errorAtCurrent(p.current.Lexeme)
	}
}

func (p *Parser) check(t TokenType) bool { return p.current.Type == t }

func (p *Parser) match(t TokenType) bool {
	if !p.check(t) {
		return false
	}
	p.advance()
	return true
}

func (p *Parser) consume(t TokenType, message string) {
	if p.current.Type == t {
		p.advance()
		return
	}
	p.errorAtCurrent(message)
}

func (p *Parser) errorAtCurrent(message string) { p.errorAt(p.current, message) }
func (p *Parser) error(message string)          { p.errorAt(p.previous, message) }

func (p *Parser) errorAt(tok Token, message string) {
	if p.panicMode {
		return
	}
	p.panicMode = true

	var where string
	switch tok.Type {
	case TokenEOF:
		where = " at end"
	case TokenError:
		where = ""
	default:
		where = " at '" + tok.Lexeme + "'"
	}
	p.errors = append(p.errors, fmt.Sprintf("[line %d] Error%s: %s", tok.Line, where, message))
	p.hadError = true
}

// synchronize skips tokens until it's past a statement boundary:
// after `;` or just before a statement-starter keyword.
func (p *Parser) synchronize() {
	p.panicMode = false
	for p.current.Type != TokenEOF {
		if p.previous.Type == TokenSemicolon {
			return
		}
		switch p.current.Type {
		case TokenClass, TokenFun, TokenVar, TokenFor, TokenIf, TokenWhile, TokenPrint, TokenReturn:
			return
		}
		p.advance()
	}
}

// ---- chunk emission helpers ----

func (p *Parser) currentChunk() *Chunk { return p.compiler.function.Chunk }

func (p *Parser) emitByte(b byte) {
	p.currentChunk().Write(b, p.previous.Line)
}

func (p *Parser) emitOp(op OpCode) { p.emitByte(byte(op)) }

func (p *Parser) emitOps(a, b OpCode) {
	p.emitOp(a)
	p.emitOp(b)
}

func (p *Parser) emitJump(op OpCode) int {
	p.emitOp(op)
	p.emitByte(0xff)
	p.emitByte(0xff)
	return p.currentChunk().Len() - 2
}

func (p *Parser) patchJump(offset int) {
	jump := p.currentChunk().Len() - offset - 2
	if jump > 65535 {
		p.error("Too much code to jump over.")
	}
	p.currentChunk().PatchU16(offset, uint16(jump))
}

func (p *Parser) emitLoop(loopStart int) {
	p.emitOp(OpLoop)
	offset := p.currentChunk().Len() - loopStart + 2
	if offset > 65535 {
		p.error("Loop body too large.")
	}
	p.currentChunk().WriteU16(uint16(offset), p.previous.Line)
}

func (p *Parser) emitConstant(v Value) {
	p.emitOp(OpConstant)
	p.emitByte(byte(p.makeConstant(v)))
}

// makeConstant appends v to the current chunk's pool, bracketing the
// append with a push/pop of v on the VM stack so a GC triggered while
// the pool's backing array grows can't reclaim a heap value that
// isn't rooted anywhere else yet.
func (p *Parser) makeConstant(v Value) int {
	p.vm.push(v)
	idx := p.currentChunk().AddConstant(v)
	p.vm.pop()
	if idx > 255 {
		p.error("Too many constants in one chunk.")
		return 0
	}
	return idx
}

func (p *Parser) emitReturn() {
	if p.compiler.fnType == TypeInitializer {
		p.emitOp(OpGetLocal)
		p.emitByte(0)
	} else {
		p.emitOp(OpNil)
	}
	p.emitOp(OpReturn)
}

func (p *Parser) endCompiler() *Obj {
	p.emitReturn()
	fn := p.compiler.function
	fn.UpvalueCount = len(p.compiler.upvalues)
	p.compiler = p.compiler.enclosing
	p.vm.compilerRoot = p.compiler
	return fn
}

// ---- scope / local / upvalue management ----

func (p *Parser) beginScope() { p.compiler.scopeDepth++ }

func (p *Parser) endScope() {
	c := p.compiler
	c.scopeDepth--
	for len(c.locals) > 0 && c.locals[len(c.locals)-1].Depth > c.scopeDepth {
		last := c.locals[len(c.locals)-1]
		if last.IsCaptured {
			p.emitOp(OpCloseUpvalue)
		} else {
			p.emitOp(OpPop)
		}
		c.locals = c.locals[:len(c.locals)-1]
	}
}

func (p *Parser) declareVariable() {
	if p.compiler.scopeDepth == 0 {
		return
	}
	name := p.previous
	locals := p.compiler.locals
	for i := len(locals) - 1; i >= 0; i-- {
		l := locals[i]
		if l.Depth != -1 && l.Depth < p.compiler.scopeDepth {
			break
		}
		if l.Name.Lexeme == name.Lexeme {
			p.error("Already a variable with this name in this scope.")
		}
	}
	p.addLocal(name)
}

func (p *Parser) addLocal(name Token) {
	if len(p.compiler.locals) >= maxLocals {
		p.error("Too many local variables in function.")
		return
	}
	p.compiler.locals = append(p.compiler.locals, Local{Name: name, Depth: -1})
}

func (p *Parser) markInitialized() {
	if p.compiler.scopeDepth == 0 {
		return
	}
	p.compiler.locals[len(p.compiler.locals)-1].Depth = p.compiler.scopeDepth
}

func (p *Parser) identifierConstant(name Token) int {
	return p.makeConstant(ObjValue(p.vm.copyString(name.Lexeme)))
}

func resolveLocal(p *Parser, c *Compiler, name Token) int {
	for i := len(c.locals) - 1; i >= 0; i-- {
		if c.locals[i].Name.Lexeme == name.Lexeme {
			if c.locals[i].Depth == -1 {
				p.error("Can't read local variable in its own initializer.")
			}
			return i
		}
	}
	return -1
}

func addUpvalue(p *Parser, c *Compiler, index byte, isLocal bool) int {
	for i, uv := range c.upvalues {
		if uv.Index == index && uv.IsLocal == isLocal {
			return i
		}
	}
	if len(c.upvalues) >= maxUpvalues {
		p.error("Too many closure variables in function.")
		return 0
	}
	c.upvalues = append(c.upvalues, Upvalue{Index: index, IsLocal: isLocal})
	return len(c.upvalues) - 1
}

func resolveUpvalue(p *Parser, c *Compiler, name Token) int {
	if c.enclosing == nil {
		return -1
	}
	if local := resolveLocal(p, c.enclosing, name); local != -1 {
		c.enclosing.locals[local].IsCaptured = true
		return addUpvalue(p, c, byte(local), true)
	}
	if up := resolveUpvalue(p, c.enclosing, name); up != -1 {
		return addUpvalue(p, c, byte(up), false)
	}
	return -1
}

func (p *Parser) parseVariable(errMessage string) int {
	p.consume(TokenIdentifier, errMessage)
	p.declareVariable()
	if p.compiler.scopeDepth > 0 {
		return 0
	}
	return p.identifierConstant(p.previous)
}

func (p *Parser) defineVariable(global int) {
	if p.compiler.scopeDepth > 0 {
		p.markInitialized()
		return
	}
	p.emitOp(OpDefineGlobal)
	p.emitByte(byte(global))
}

func (p *Parser) argumentList() int {
	count := 0
	if !p.check(TokenRightParen) {
		for {
			p.expression()
			if count == 255 {
				p.error("Can't have more than 255 arguments.")
			}
			count++
			if !p.match(TokenComma) {
				break
			}
		}
	}
	p.consume(TokenRightParen, "Expect ')' after arguments.")
	return count
}

// ---- Pratt expression parser ----

func (p *Parser) parsePrecedence(prec Precedence) {
	p.advance()
	prefix := getRule(p.previous.Type).prefix
	if prefix == nil {
		p.error("Expect expression.")
		return
	}
	canAssign := prec <= PrecAssignment
	prefix(p, canAssign)

	for prec <= getRule(p.current.Type).precedence {
		p.advance()
		infix := getRule(p.previous.Type).infix
		infix(p, canAssign)
	}

	if canAssign && p.match(TokenEqual) {
		p.error("Invalid assignment target.")
	}
}

func (p *Parser) expression() { p.parsePrecedence(PrecAssignment) }

func getRule(t TokenType) parseRule {
	if r, ok := rules[t]; ok {
		return r
	}
	return parseRule{precedence: PrecNone}
}

var rules map[TokenType]parseRule

func init() {
	rules = map[TokenType]parseRule{
		TokenLeftParen:    {prefix: grouping, infix: call, precedence: PrecCall},
		TokenDot:          {infix: dot, precedence: PrecCall},
		TokenMinus:        {prefix: unary, infix: binary, precedence: PrecTerm},
		TokenPlus:         {infix: binary, precedence: PrecTerm},
		TokenSlash:        {infix: binary, precedence: PrecFactor},
		TokenStar:         {infix: binary, precedence: PrecFactor},
		TokenBang:         {prefix: unary},
		TokenBangEqual:    {infix: binary, precedence: PrecEquality},
		TokenEqualEqual:   {infix: binary, precedence: PrecEquality},
		TokenGreater:      {infix: binary, precedence: PrecComparison},
		TokenGreaterEqual: {infix: binary, precedence: PrecComparison},
		TokenLess:         {infix: binary, precedence: PrecComparison},
		TokenLessEqual:    {infix: binary, precedence: PrecComparison},
		TokenIdentifier:   {prefix: variable},
		TokenString:       {prefix: stringLiteral},
		TokenNumber:       {prefix: number},
		TokenAnd:          {infix: and_, precedence: PrecAnd},
		TokenOr:           {infix: or_, precedence: PrecOr},
		TokenFalse:        {prefix: literal},
		TokenNil:          {prefix: literal},
		TokenTrue:         {prefix: literal},
		TokenSuper:        {prefix: super_},
		TokenThis:         {prefix: this_},
	}
}

func grouping(p *Parser, _ bool) {
	p.expression()
	p.consume(TokenRightParen, "Expect ')' after expression.")
}

func unary(p *Parser, _ bool) {
	opType := p.previous.Type
	p.parsePrecedence(PrecUnary)
	switch opType {
	case TokenBang:
		p.emitOp(OpNot)
	case TokenMinus:
		p.emitOp(OpNegate)
	}
}

func binary(p *Parser, _ bool) {
	opType := p.previous.Type
	rule := getRule(opType)
	p.parsePrecedence(rule.precedence + 1)
	switch opType {
	case TokenBangEqual:
		p.emitOps(OpEqual, OpNot)
	case TokenEqualEqual:
		p.emitOp(OpEqual)
	case TokenGreater:
		p.emitOp(OpGreater)
	case TokenGreaterEqual:
		p.emitOps(OpLess, OpNot)
	case TokenLess:
		p.emitOp(OpLess)
	case TokenLessEqual:
		p.emitOps(OpGreater, OpNot)
	case TokenPlus:
		p.emitOp(OpAdd)
	case TokenMinus:
		p.emitOp(OpSubtract)
	case TokenStar:
		p.emitOp(OpMultiply)
	case TokenSlash:
		p.emitOp(OpDivide)
	}
}

func call(p *Parser, _ bool) {
	argCount := p.argumentList()
	p.emitOp(OpCall)
	p.emitByte(byte(argCount))
}

func dot(p *Parser, canAssign bool) {
	p.consume(TokenIdentifier, "Expect property name after '.'.")
	name := p.identifierConstant(p.previous)

	switch {
	case canAssign && p.match(TokenEqual):
		p.expression()
		p.emitOp(OpSetProperty)
		p.emitByte(byte(name))
	case p.match(TokenLeftParen):
		argCount := p.argumentList()
		p.emitOp(OpInvoke)
		p.emitByte(byte(name))
		p.emitByte(byte(argCount))
	default:
		p.emitOp(OpGetProperty)
		p.emitByte(byte(name))
	}
}

func literal(p *Parser, _ bool) {
	switch p.previous.Type {
	case TokenFalse:
		p.emitOp(OpFalse)
	case TokenNil:
		p.emitOp(OpNil)
	case TokenTrue:
		p.emitOp(OpTrue)
	}
}

func number(p *Parser, _ bool) {
	v, _ := strconv.ParseFloat(p.previous.Lexeme, 64)
	p.emitConstant(NumberValue(v))
}

func stringLiteral(p *Parser, _ bool) {
	raw := p.previous.Lexeme
	s := raw[1 : len(raw)-1] // strip the surrounding quotes; no escape sequences
	p.emitConstant(ObjValue(p.vm.copyString(s)))
}

func and_(p *Parser, _ bool) {
	endJump := p.emitJump(OpJumpIfFalse)
	p.emitOp(OpPop)
	p.parsePrecedence(PrecAnd)
	p.patchJump(endJump)
}

func or_(p *Parser, _ bool) {
	elseJump := p.emitJump(OpJumpIfFalse)
	endJump := p.emitJump(OpJump)
	p.patchJump(elseJump)
	p.emitOp(OpPop)
	p.parsePrecedence(PrecOr)
	p.patchJump(endJump)
}

func variable(p *Parser, canAssign bool) {
	namedVariable(p, p.previous, canAssign)
}

var syntheticThis = Token{Type: TokenThis, Lexeme: "this"}
var syntheticSuper = Token{Type: TokenSuper, Lexeme: "super"}

func namedVariable(p *Parser, name Token, canAssign bool) {
	var getOp, setOp OpCode
	arg := resolveLocal(p, p.compiler, name)
	if arg != -1 {
		getOp, setOp = OpGetLocal, OpSetLocal
	} else if arg = resolveUpvalue(p, p.compiler, name); arg != -1 {
		getOp, setOp = OpGetUpvalue, OpSetUpvalue
	} else {
		arg = p.identifierConstant(name)
		getOp, setOp = OpGetGlobal, OpSetGlobal
	}

	if canAssign && p.match(TokenEqual) {
		p.expression()
		p.emitOp(setOp)
		p.emitByte(byte(arg))
	} else {
		p.emitOp(getOp)
		p.emitByte(byte(arg))
	}
}

func this_(p *Parser, _ bool) {
	if p.class == nil {
		p.error("Can't use 'this' outside of a class.")
		return
	}
	namedVariable(p, syntheticThis, false)
}

func super_(p *Parser, _ bool) {
	switch {
	case p.class == nil:
		p.error("Can't use 'super' outside of a class.")
	case !p.class.hasSuperclass:
		p.error("Can't use 'super' in a class with no superclass.")
	}

	p.consume(TokenDot, "Expect '.' after 'super'.")
	p.consume(TokenIdentifier, "Expect superclass method name.")
	name := p.identifierConstant(p.previous)

	namedVariable(p, syntheticThis, false)
	if p.match(TokenLeftParen) {
		argCount := p.argumentList()
		namedVariable(p, syntheticSuper, false)
		p.emitOp(OpSuperInvoke)
		p.emitByte(byte(name))
		p.emitByte(byte(argCount))
	} else {
		namedVariable(p, syntheticSuper, false)
		p.emitOp(OpGetSuper)
		p.emitByte(byte(name))
	}
}

// ---- statements & declarations ----

func (p *Parser) declaration() {
	switch {
	case p.match(TokenClass):
		p.classDeclaration()
	case p.match(TokenFun):
		p.funDeclaration()
	case p.match(TokenVar):
		p.varDeclaration()
	default:
		p.statement()
	}
	if p.panicMode {
		p.synchronize()
	}
}

func (p *Parser) classDeclaration() {
	p.consume(TokenIdentifier, "Expect class name.")
	className := p.previous
	nameConstant := p.identifierConstant(className)
	p.declareVariable()

	p.emitOp(OpClass)
	p.emitByte(byte(nameConstant))
	p.defineVariable(nameConstant)

	cc := &classCompiler{enclosing: p.class}
	p.class = cc

	if p.match(TokenLess) {
		p.consume(TokenIdentifier, "Expect superclass name.")
		variable(p, false)
		if className.Lexeme == p.previous.Lexeme {
			p.error("A class can't inherit from itself.")
		}
		p.beginScope()
		p.addLocal(Token{Type: TokenSuper, Lexeme: "super"})
		p.defineVariable(0)

		namedVariable(p, className, false)
		p.emitOp(OpInherit)
		cc.hasSuperclass = true
	}

	namedVariable(p, className, false)
	p.consume(TokenLeftBrace, "Expect '{' before class body.")
	for !p.check(TokenRightBrace) && !p.check(TokenEOF) {
		p.method()
	}
	p.consume(TokenRightBrace, "Expect '}' after class body.")
	p.emitOp(OpPop)

	if cc.hasSuperclass {
		p.endScope()
	}
	p.class = p.class.enclosing
}

func (p *Parser) method() {
	p.consume(TokenIdentifier, "Expect method name.")
	name := p.previous
	nameConstant := p.identifierConstant(name)

	fnType := TypeMethod
	if name.Lexeme == "init" {
		fnType = TypeInitializer
	}
	p.function(fnType, name.Lexeme)
	p.emitOp(OpMethod)
	p.emitByte(byte(nameConstant))
}

func (p *Parser) funDeclaration() {
	global := p.parseVariable("Expect function name.")
	p.markInitialized()
	p.function(TypeFunction, p.previous.Lexeme)
	p.defineVariable(global)
}

func (p *Parser) function(fnType FunctionType, name string) {
	p.compiler = newCompiler(p.vm, p.compiler, fnType, name)
	p.vm.compilerRoot = p.compiler
	p.beginScope()

	p.consume(TokenLeftParen, "Expect '(' after function name.")
	if !p.check(TokenRightParen) {
		for {
			p.compiler.function.Arity++
			if p.compiler.function.Arity > 255 {
				p.errorAtCurrent("Can't have more than 255 parameters.")
			}
			constant := p.parseVariable("Expect parameter name.")
			p.defineVariable(constant)
			if !p.match(TokenComma) {
				break
			}
		}
	}
	p.consume(TokenRightParen, "Expect ')' after parameters.")
	p.consume(TokenLeftBrace, "Expect '{' before function body.")
	p.block()

	upvalues := p.compiler.upvalues
	fn := p.endCompiler() // restores p.compiler to the enclosing Compiler

	p.emitOp(OpClosure)
	p.emitByte(byte(p.makeConstant(ObjValue(fn))))
	for _, uv := range upvalues {
		if uv.IsLocal {
			p.emitByte(1)
		} else {
			p.emitByte(0)
		}
		p.emitByte(uv.Index)
	}
}

func (p *Parser) varDeclaration() {
	global := p.parseVariable("Expect variable name.")
	if p.match(TokenEqual) {
		p.expression()
	} else {
		p.emitOp(OpNil)
	}
	p.consume(TokenSemicolon, "Expect ';' after variable declaration.")
	p.defineVariable(global)
}

func (p *Parser) statement() {
	switch {
	case p.match(TokenPrint):
		p.printStatement()
	case p.match(TokenFor):
		p.forStatement()
	case p.match(TokenIf):
		p.ifStatement()
	case p.match(TokenReturn):
		p.returnStatement()
	case p.match(TokenWhile):
		p.whileStatement()
	case p.match(TokenLeftBrace):
		p.beginScope()
		p.block()
		p.endScope()
	default:
		p.expressionStatement()
	}
}

func (p *Parser) block() {
	for !p.check(TokenRightBrace) && !p.check(TokenEOF) {
		p.declaration()
	}
	p.consume(TokenRightBrace, "Expect '}' after block.")
}

func (p *Parser) expressionStatement() {
	p.expression()
	p.consume(TokenSemicolon, "Expect ';' after expression.")
	p.emitOp(OpPop)
}

func (p *Parser) printStatement() {
	p.expression()
	p.consume(TokenSemicolon, "Expect ';' after value.")
	p.emitOp(OpPrint)
}

func (p *Parser) returnStatement() {
	if p.compiler.fnType == TypeScript {
		p.error("Can't return from top-level code.")
	}
	if p.match(TokenSemicolon) {
		p.emitReturn()
		return
	}
	if p.compiler.fnType == TypeInitializer {
		p.error("Can't return a value from an initializer.")
	}
	p.expression()
	p.consume(TokenSemicolon, "Expect ';' after return value.")
	p.emitOp(OpReturn)
}

func (p *Parser) ifStatement() {
	p.consume(TokenLeftParen, "Expect '(' after 'if'.")
	p.expression()
	p.consume(TokenRightParen, "Expect ')' after condition.")

	thenJump := p.emitJump(OpJumpIfFalse)
	p.emitOp(OpPop)
	p.statement()

	elseJump := p.emitJump(OpJump)
	p.patchJump(thenJump)
	p.emitOp(OpPop)

	if p.match(TokenElse) {
		p.statement()
	}
	p.patchJump(elseJump)
}

func (p *Parser) whileStatement() {
	loopStart := p.currentChunk().Len()
	p.consume(TokenLeftParen, "Expect '(' after 'while'.")
	p.expression()
	p.consume(TokenRightParen, "Expect ')' after condition.")

	exitJump := p.emitJump(OpJumpIfFalse)
	p.emitOp(OpPop)
	p.statement()
	p.emitLoop(loopStart)

	p.patchJump(exitJump)
	p.emitOp(OpPop)
}

func (p *Parser) forStatement() {
	p.beginScope()
	p.consume(TokenLeftParen, "Expect '(' after 'for'.")

	switch {
	case p.match(TokenSemicolon):
		// no initializer
	case p.match(TokenVar):
		p.varDeclaration()
	default:
		p.expressionStatement()
	}

	loopStart := p.currentChunk().Len()
	exitJump := -1
	if !p.match(TokenSemicolon) {
		p.expression()
		p.consume(TokenSemicolon, "Expect ';' after loop condition.")
		exitJump = p.emitJump(OpJumpIfFalse)
		p.emitOp(OpPop)
	}

	if !p.match(TokenRightParen) {
		bodyJump := p.emitJump(OpJump)
		incrementStart := p.currentChunk().Len()
		p.expression()
		p.emitOp(OpPop)
		p.consume(TokenRightParen, "Expect ')' after for clauses.")

		p.emitLoop(loopStart)
		loopStart = incrementStart
		p.patchJump(bodyJump)
	}

	p.statement()
	p.emitLoop(loopStart)

	if exitJump != -1 {
		p.patchJump(exitJump)
		p.emitOp(OpPop)
	}
	p.endScope()
}
