package lox

import (
	"strconv"

	"github.com/hashicorp/go-multierror"
)

// Precedence levels, ascending (spec.md §4.3).
type precedence int

const (
	precNone       precedence = iota
	precAssignment            // =
	precOr                    // or
	precAnd                   // and
	precEquality              // == !=
	precComparison            // < > <= >=
	precTerm                  // + -
	precFactor                // * /
	precUnary                 // ! -
	precCall                  // . ()
	precPrimary
)

type parseFn func(c *Compiler, canAssign bool)

type parseRule struct {
	prefix     parseFn
	infix      parseFn
	precedence precedence
}

// rules is the static Pratt rule table indexed by token kind (spec.md
// §4.3, extended by SPEC_FULL.md §4.3 for statements/control-flow). Encoded
// as an array of small handler functions rather than C's function-pointer
// table, per spec.md §9's redesign note.
var rules [int(TokenEOF) + 1]parseRule

func init() {
	rules[TokenLeftParen] = parseRule{prefix: (*Compiler).grouping}
	rules[TokenMinus] = parseRule{prefix: (*Compiler).unary, infix: (*Compiler).binary, precedence: precTerm}
	rules[TokenPlus] = parseRule{infix: (*Compiler).binary, precedence: precTerm}
	rules[TokenSlash] = parseRule{infix: (*Compiler).binary, precedence: precFactor}
	rules[TokenStar] = parseRule{infix: (*Compiler).binary, precedence: precFactor}
	rules[TokenBang] = parseRule{prefix: (*Compiler).unary}
	rules[TokenBangEqual] = parseRule{infix: (*Compiler).binary, precedence: precEquality}
	rules[TokenEqualEqual] = parseRule{infix: (*Compiler).binary, precedence: precEquality}
	rules[TokenGreater] = parseRule{infix: (*Compiler).binary, precedence: precComparison}
	rules[TokenGreaterEqual] = parseRule{infix: (*Compiler).binary, precedence: precComparison}
	rules[TokenLess] = parseRule{infix: (*Compiler).binary, precedence: precComparison}
	rules[TokenLessEqual] = parseRule{infix: (*Compiler).binary, precedence: precComparison}
	rules[TokenIdentifier] = parseRule{prefix: (*Compiler).variable}
	rules[TokenString] = parseRule{prefix: (*Compiler).string}
	rules[TokenNumber] = parseRule{prefix: (*Compiler).number}
	rules[TokenAnd] = parseRule{infix: (*Compiler).and_, precedence: precAnd}
	rules[TokenOr] = parseRule{infix: (*Compiler).or_, precedence: precOr}
	rules[TokenFalse] = parseRule{prefix: (*Compiler).literal}
	rules[TokenNil] = parseRule{prefix: (*Compiler).literal}
	rules[TokenTrue] = parseRule{prefix: (*Compiler).literal}
}

func getRule(kind TokenKind) parseRule { return rules[kind] }

// local is a compile-time-only record of a block-scoped variable resolved
// to a value-stack slot (SPEC_FULL.md §3). depth -1 marks "declared but not
// yet defined", catching `var a = a;` referencing its own name.
type local struct {
	name  Token
	depth int
}

const uninitializedDepth = -1

// Compiler drives a single-pass Pratt parse directly into a Chunk: no AST
// is ever built (spec.md §1, §4.3). One Compiler is constructed per
// compile, folding what was process-global state in the source into this
// explicit owner struct (spec.md §9).
type Compiler struct {
	scanner *Scanner
	chunk   *Chunk

	current  Token
	previous Token

	hadError  bool
	panicMode bool
	errs      *multierror.Error
	interner  *Strings

	locals     []local
	scopeDepth int
}

// Compile compiles source into a fresh Chunk. On success it returns the
// Chunk and a nil error; on failure it returns the partially emitted Chunk
// (discarded by the caller) and a *CompileError aggregating every
// panic-mode-recovered diagnostic from the pass (SPEC_FULL.md §4.3, §6.3).
func Compile(source string, interner *Strings) (*Chunk, error) {
	c := &Compiler{
		scanner:  NewScanner(source),
		chunk:    &Chunk{},
		interner: interner,
	}
	c.advance()
	for !c.match(TokenEOF) {
		c.declaration()
	}
	c.emitReturn()
	if c.hadError {
		return c.chunk, &CompileError{Errors: c.errs}
	}
	return c.chunk, nil
}

// --- token stream -----------------------------------------------------

func (c *Compiler) advance() {
	c.previous = c.current
	for {
		c.current = c.scanner.ScanToken()
		if c.current.Kind != TokenError {
			break
		}
		c.errorAtCurrent(c.current.Lexeme)
	}
}

func (c *Compiler) check(kind TokenKind) bool { return c.current.Kind == kind }

func (c *Compiler) match(kind TokenKind) bool {
	if !c.check(kind) {
		return false
	}
	c.advance()
	return true
}

func (c *Compiler) consume(kind TokenKind, message string) {
	if c.current.Kind == kind {
		c.advance()
		return
	}
	c.errorAtCurrent(message)
}

// --- error reporting / panic-mode recovery -----------------------------

func (c *Compiler) errorAtCurrent(message string) { c.errorAt(c.current, message) }
func (c *Compiler) error(message string)          { c.errorAt(c.previous, message) }

func (c *Compiler) errorAt(tok Token, message string) {
	if c.panicMode {
		return
	}
	c.panicMode = true
	c.hadError = true
	c.errs = multierror.Append(c.errs, &compileDiagnostic{text: formatCompileError(tok, message)})
}

type compileDiagnostic struct{ text string }

func (d *compileDiagnostic) Error() string { return d.text }

// synchronize discards tokens until a likely statement boundary, resuming
// normal error reporting (spec.md §4.3's forward reference to future
// synchronization points, now needed since statements exist).
func (c *Compiler) synchronize() {
	c.panicMode = false
	for c.current.Kind != TokenEOF {
		if c.previous.Kind == TokenSemicolon {
			return
		}
		switch c.current.Kind {
		case TokenClass, TokenFun, TokenVar, TokenFor, TokenIf, TokenWhile, TokenPrint, TokenReturn:
			return
		}
		c.advance()
	}
}

// --- bytecode emission -------------------------------------------------

func (c *Compiler) emitByte(b byte) { c.chunk.Write(b, c.previous.Line) }

func (c *Compiler) emitOp(op OpCode) { c.emitByte(byte(op)) }

func (c *Compiler) emitBytes(op OpCode, b byte) {
	c.emitOp(op)
	c.emitByte(b)
}

func (c *Compiler) emitReturn() { c.emitOp(OpReturn) }

func (c *Compiler) makeConstant(v Value) byte {
	idx := c.chunk.AddConstant(v)
	if idx >= maxConstants {
		c.error("Too many constants in one chunk.")
		return 0
	}
	return byte(idx)
}

func (c *Compiler) emitConstant(v Value) { c.emitBytes(OpConstant, c.makeConstant(v)) }

// emitJump emits op plus a two-byte placeholder operand, returning the
// offset of the first placeholder byte for later patchJump backfilling
// (SPEC_FULL.md §4.3).
func (c *Compiler) emitJump(op OpCode) int {
	c.emitOp(op)
	c.emitByte(0xff)
	c.emitByte(0xff)
	return len(c.chunk.Code) - 2
}

// patchJump backfills the two-byte placeholder at offset with the distance
// from just after it to the current code length.
func (c *Compiler) patchJump(offset int) {
	jump := len(c.chunk.Code) - offset - 2
	if jump > 0xffff {
		c.error("Too much code to jump over.")
		return
	}
	c.chunk.Code[offset] = byte((jump >> 8) & 0xff)
	c.chunk.Code[offset+1] = byte(jump & 0xff)
}

// emitLoop emits OP_LOOP plus a two-byte back-distance to loopStart.
func (c *Compiler) emitLoop(loopStart int) {
	c.emitOp(OpLoop)
	offset := len(c.chunk.Code) - loopStart + 2
	if offset > 0xffff {
		c.error("Loop body too large.")
		return
	}
	c.emitByte(byte((offset >> 8) & 0xff))
	c.emitByte(byte(offset & 0xff))
}

// --- declarations / statements ------------------------------------------

func (c *Compiler) declaration() {
	switch {
	case c.match(TokenVar):
		c.varDeclaration()
	default:
		c.statement()
	}
	if c.panicMode {
		c.synchronize()
	}
}

func (c *Compiler) varDeclaration() {
	global := c.parseVariable("Expect variable name.")
	if c.match(TokenEqual) {
		c.expression()
	} else {
		c.emitOp(OpNil)
	}
	c.consume(TokenSemicolon, "Expect ';' after variable declaration.")
	c.defineVariable(global)
}

func (c *Compiler) statement() {
	switch {
	case c.match(TokenPrint):
		c.printStatement()
	case c.match(TokenIf):
		c.ifStatement()
	case c.match(TokenWhile):
		c.whileStatement()
	case c.match(TokenFor):
		c.forStatement()
	case c.match(TokenLeftBrace):
		c.beginScope()
		c.block()
		c.endScope()
	default:
		c.expressionStatement()
	}
}

func (c *Compiler) printStatement() {
	c.expression()
	c.consume(TokenSemicolon, "Expect ';' after value.")
	c.emitOp(OpPrint)
}

func (c *Compiler) expressionStatement() {
	c.expression()
	c.consume(TokenSemicolon, "Expect ';' after expression.")
	c.emitOp(OpPop)
}

func (c *Compiler) block() {
	for !c.check(TokenRightBrace) && !c.check(TokenEOF) {
		c.declaration()
	}
	c.consume(TokenRightBrace, "Expect '}' after block.")
}

func (c *Compiler) ifStatement() {
	c.consume(TokenLeftParen, "Expect '(' after 'if'.")
	c.expression()
	c.consume(TokenRightParen, "Expect ')' after condition.")

	thenJump := c.emitJump(OpJumpIfFalse)
	c.emitOp(OpPop)
	c.statement()

	elseJump := c.emitJump(OpJump)
	c.patchJump(thenJump)
	c.emitOp(OpPop)

	if c.match(TokenElse) {
		c.statement()
	}
	c.patchJump(elseJump)
}

func (c *Compiler) whileStatement() {
	loopStart := len(c.chunk.Code)
	c.consume(TokenLeftParen, "Expect '(' after 'while'.")
	c.expression()
	c.consume(TokenRightParen, "Expect ')' after condition.")

	exitJump := c.emitJump(OpJumpIfFalse)
	c.emitOp(OpPop)
	c.statement()
	c.emitLoop(loopStart)

	c.patchJump(exitJump)
	c.emitOp(OpPop)
}

// forStatement desugars entirely to a while loop at compile time (no
// dedicated OP_FOR_* opcodes), per SPEC_FULL.md §1.1.
func (c *Compiler) forStatement() {
	c.beginScope()
	c.consume(TokenLeftParen, "Expect '(' after 'for'.")

	switch {
	case c.match(TokenSemicolon):
		// no initializer
	case c.match(TokenVar):
		c.varDeclaration()
	default:
		c.expressionStatement()
	}

	loopStart := len(c.chunk.Code)
	exitJump := -1
	if !c.match(TokenSemicolon) {
		c.expression()
		c.consume(TokenSemicolon, "Expect ';' after loop condition.")
		exitJump = c.emitJump(OpJumpIfFalse)
		c.emitOp(OpPop)
	}

	if !c.check(TokenRightParen) {
		bodyJump := c.emitJump(OpJump)
		incrementStart := len(c.chunk.Code)
		c.expression()
		c.emitOp(OpPop)
		c.consume(TokenRightParen, "Expect ')' after for clauses.")

		c.emitLoop(loopStart)
		loopStart = incrementStart
		c.patchJump(bodyJump)
	} else {
		c.consume(TokenRightParen, "Expect ')' after for clauses.")
	}

	c.statement()
	c.emitLoop(loopStart)

	if exitJump != -1 {
		c.patchJump(exitJump)
		c.emitOp(OpPop)
	}
	c.endScope()
}

// --- scope / local resolution -------------------------------------------

func (c *Compiler) beginScope() { c.scopeDepth++ }

func (c *Compiler) endScope() {
	c.scopeDepth--
	for len(c.locals) > 0 && c.locals[len(c.locals)-1].depth > c.scopeDepth {
		c.emitOp(OpPop)
		c.locals = c.locals[:len(c.locals)-1]
	}
}

func (c *Compiler) parseVariable(errMessage string) byte {
	c.consume(TokenIdentifier, errMessage)
	c.declareVariable()
	if c.scopeDepth > 0 {
		return 0
	}
	return c.identifierConstant(c.previous)
}

func (c *Compiler) identifierConstant(name Token) byte {
	return c.makeConstant(ObjValue(c.internString(name.Lexeme)))
}

func (c *Compiler) internString(s string) *ObjString {
	return internString(c.interner, s)
}

func (c *Compiler) declareVariable() {
	if c.scopeDepth == 0 {
		return
	}
	name := c.previous
	for i := len(c.locals) - 1; i >= 0; i-- {
		l := c.locals[i]
		if l.depth != uninitializedDepth && l.depth < c.scopeDepth {
			break
		}
		if l.name.Lexeme == name.Lexeme {
			c.error("Already a variable with this name in this scope.")
		}
	}
	c.addLocal(name)
}

func (c *Compiler) addLocal(name Token) {
	c.locals = append(c.locals, local{name: name, depth: uninitializedDepth})
}

func (c *Compiler) defineVariable(global byte) {
	if c.scopeDepth > 0 {
		c.markInitialized()
		return
	}
	c.emitBytes(OpDefineGlobal, global)
}

func (c *Compiler) markInitialized() {
	if len(c.locals) == 0 {
		return
	}
	c.locals[len(c.locals)-1].depth = c.scopeDepth
}

func (c *Compiler) resolveLocal(name Token) int {
	for i := len(c.locals) - 1; i >= 0; i-- {
		l := c.locals[i]
		if l.name.Lexeme == name.Lexeme {
			if l.depth == uninitializedDepth {
				c.error("Can't read local variable in its own initializer.")
			}
			return i
		}
	}
	return -1
}

// --- expressions ---------------------------------------------------------

func (c *Compiler) expression() { c.parsePrecedence(precAssignment) }

func (c *Compiler) parsePrecedence(p precedence) {
	c.advance()
	prefix := getRule(c.previous.Kind).prefix
	if prefix == nil {
		c.error("Expect expression.")
		return
	}
	canAssign := p <= precAssignment
	prefix(c, canAssign)

	for p <= getRule(c.current.Kind).precedence {
		c.advance()
		infix := getRule(c.previous.Kind).infix
		infix(c, canAssign)
	}

	if canAssign && c.match(TokenEqual) {
		c.error("Invalid assignment target.")
	}
}

func (c *Compiler) number(_ bool) {
	n, err := strconv.ParseFloat(c.previous.Lexeme, 64)
	if err != nil {
		c.error("Invalid number literal.")
		return
	}
	c.emitConstant(NumberValue(n))
}

func (c *Compiler) string(_ bool) {
	raw := c.previous.Lexeme
	s := raw[1 : len(raw)-1] // strip the surrounding quotes
	c.emitConstant(ObjValue(c.internString(s)))
}

func (c *Compiler) literal(_ bool) {
	switch c.previous.Kind {
	case TokenFalse:
		c.emitOp(OpFalse)
	case TokenNil:
		c.emitOp(OpNil)
	case TokenTrue:
		c.emitOp(OpTrue)
	}
}

func (c *Compiler) grouping(_ bool) {
	c.expression()
	c.consume(TokenRightParen, "Expect ')' after expression.")
}

func (c *Compiler) unary(_ bool) {
	opKind := c.previous.Kind
	c.parsePrecedence(precUnary)
	switch opKind {
	case TokenMinus:
		c.emitOp(OpNegate)
	case TokenBang:
		c.emitOp(OpNot)
	}
}

func (c *Compiler) binary(_ bool) {
	opKind := c.previous.Kind
	rule := getRule(opKind)
	c.parsePrecedence(rule.precedence + 1)

	switch opKind {
	case TokenBangEqual:
		c.emitOp(OpEqual)
		c.emitOp(OpNot)
	case TokenEqualEqual:
		c.emitOp(OpEqual)
	case TokenGreater:
		c.emitOp(OpGreater)
	case TokenGreaterEqual:
		c.emitOp(OpLess)
		c.emitOp(OpNot)
	case TokenLess:
		c.emitOp(OpLess)
	case TokenLessEqual:
		c.emitOp(OpGreater)
		c.emitOp(OpNot)
	case TokenPlus:
		c.emitOp(OpAdd)
	case TokenMinus:
		c.emitOp(OpSubtract)
	case TokenStar:
		c.emitOp(OpMultiply)
	case TokenSlash:
		c.emitOp(OpDivide)
	}
}

// and_ / or_ short-circuit via conditional jumps rather than a dedicated
// boolean opcode, matching how every other control-flow construct in this
// compiler is realized (SPEC_FULL.md §4.3).
func (c *Compiler) and_(_ bool) {
	endJump := c.emitJump(OpJumpIfFalse)
	c.emitOp(OpPop)
	c.parsePrecedence(precAnd)
	c.patchJump(endJump)
}

func (c *Compiler) or_(_ bool) {
	elseJump := c.emitJump(OpJumpIfFalse)
	endJump := c.emitJump(OpJump)

	c.patchJump(elseJump)
	c.emitOp(OpPop)

	c.parsePrecedence(precOr)
	c.patchJump(endJump)
}

func (c *Compiler) variable(canAssign bool) { c.namedVariable(c.previous, canAssign) }

func (c *Compiler) namedVariable(name Token, canAssign bool) {
	var getOp, setOp OpCode
	arg := c.resolveLocal(name)
	if arg != -1 {
		getOp, setOp = OpGetLocal, OpSetLocal
	} else {
		arg = int(c.identifierConstant(name))
		getOp, setOp = OpGetGlobal, OpSetGlobal
	}

	if canAssign && c.match(TokenEqual) {
		c.expression()
		c.emitBytes(setOp, byte(arg))
	} else {
		c.emitBytes(getOp, byte(arg))
	}
}
