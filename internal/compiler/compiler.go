// Package compiler implements the single-pass Pratt compiler: parsing and
// code generation are fused, a precedence-climbing dispatch table keyed on
// token kind drives every production, and scope depth / local slots are
// tracked in lockstep with the bytecode being emitted. There is no
// intermediate tree — see spec.md §1 and §4.3.
package compiler

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	"github.com/lado-saha/loxvm/internal/chunk"
	"github.com/lado-saha/loxvm/internal/debug"
	"github.com/lado-saha/loxvm/internal/heap"
	"github.com/lado-saha/loxvm/internal/scanner"
	"github.com/lado-saha/loxvm/internal/value"
	"github.com/lado-saha/loxvm/internal/vmlog"
)

// maxLocals bounds the compiler's fixed-capacity local array (spec.md §3).
const maxLocals = 256

// Precedence levels, ascending, exactly as enumerated in spec.md §4.3.
type Precedence int

const (
	PrecNone Precedence = iota
	PrecAssignment       // =
	PrecOr               // or
	PrecAnd              // and
	PrecEquality         // == !=
	PrecComparison        // < > <= >=
	PrecTerm             // + -
	PrecFactor           // * /
	PrecUnary            // ! -
	PrecCall             // . ()
	PrecPrimary
)

type parseFn func(c *Compiler, canAssign bool)

type parseRule struct {
	prefix parseFn
	infix  parseFn
	prec   Precedence
}

var rules [int(scanner.EOF) + 1]parseRule

func init() {
	rules[scanner.LeftParen] = parseRule{prefix: grouping}
	rules[scanner.Minus] = parseRule{prefix: unary, infix: binary, prec: PrecTerm}
	rules[scanner.Plus] = parseRule{infix: binary, prec: PrecTerm}
	rules[scanner.Slash] = parseRule{infix: binary, prec: PrecFactor}
	rules[scanner.Star] = parseRule{infix: binary, prec: PrecFactor}
	rules[scanner.Bang] = parseRule{prefix: unary}
	rules[scanner.BangEqual] = parseRule{infix: binary, prec: PrecEquality}
	rules[scanner.EqualEqual] = parseRule{infix: binary, prec: PrecEquality}
	rules[scanner.Greater] = parseRule{infix: binary, prec: PrecComparison}
	rules[scanner.GreaterEqual] = parseRule{infix: binary, prec: PrecComparison}
	rules[scanner.Less] = parseRule{infix: binary, prec: PrecComparison}
	rules[scanner.LessEqual] = parseRule{infix: binary, prec: PrecComparison}
	rules[scanner.Number] = parseRule{prefix: number}
	rules[scanner.String] = parseRule{prefix: stringLit}
	rules[scanner.Identifier] = parseRule{prefix: variable}
	rules[scanner.False] = parseRule{prefix: literal}
	rules[scanner.True] = parseRule{prefix: literal}
	rules[scanner.Nil] = parseRule{prefix: literal}
}

func getRule(t scanner.Type) parseRule { return rules[t] }

// local mirrors a single slot in the fixed Local array: the lexeme it was
// declared with, and the scope depth it was declared at, or -1 ("declared
// but not yet initialized").
type local struct {
	name  string
	depth int
}

const uninitialized = -1

// Option configures optional compiler behavior (the DEBUG_PRINT_CODE
// switch from spec.md §4.3/§9).
type Option func(*Compiler)

// WithDebugPrintCode invokes the disassembler on the finished chunk when
// compilation succeeds, matching the DEBUG_PRINT_CODE build flag.
func WithDebugPrintCode() Option { return func(c *Compiler) { c.debugPrintCode = true } }

// Compiler is the fused parser/code-generator state: two-token lookahead
// (current/previous), error flags, and the local-variable/scope tracking
// needed to resolve identifiers without an intermediate tree.
type Compiler struct {
	sc       *scanner.Scanner
	current  scanner.Token
	previous scanner.Token

	hadError  bool
	panicMode bool
	errs      *multierror.Error

	chunk *chunk.Chunk
	heap  *heap.Heap
	log   *logrus.Entry

	locals     [maxLocals]local
	localCount int
	scopeDepth int

	debugPrintCode bool
}

// Compile drives the scanner, emits opcodes into chunk, and returns
// whether compilation succeeded. A non-nil error aggregates every
// diagnostic reported (ambient addition over the bare bool spec.md §4.3
// requires); interpret-level callers that only need the bool can ignore
// it.
func Compile(source string, ch *chunk.Chunk, hp *heap.Heap, opts ...Option) (bool, error) {
	c := &Compiler{
		sc:    scanner.New(source),
		chunk: ch,
		heap:  hp,
		log:   vmlog.New("compiler"),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.advance()
	for !c.match(scanner.EOF) {
		c.declaration()
	}
	c.endCompiler()

	return !c.hadError, c.errs.ErrorOrNil()
}

func (c *Compiler) advance() {
	c.previous = c.current
	for {
		c.current = c.sc.ScanToken()
		if c.current.Type != scanner.Error {
			break
		}
		c.errorAtCurrent(c.current.Lexeme)
	}
}

func (c *Compiler) check(t scanner.Type) bool { return c.current.Type == t }

func (c *Compiler) match(t scanner.Type) bool {
	if !c.check(t) {
		return false
	}
	c.advance()
	return true
}

func (c *Compiler) consume(t scanner.Type, message string) {
	if c.current.Type == t {
		c.advance()
		return
	}
	c.errorAtCurrent(message)
}

// errorAt implements the diagnostic template from spec.md §6: "[line N]
// Error at '<lexeme>': <message>", "at end" for EOF, and no "at ..."
// clause for scanner error tokens. Only the first error before the next
// synchronization point is reported; subsequent ones are suppressed by
// panicMode.
func (c *Compiler) errorAt(tok scanner.Token, message string) {
	if c.panicMode {
		return
	}
	c.panicMode = true
	c.hadError = true

	var sb strings.Builder
	fmt.Fprintf(&sb, "[line %d] Error", tok.Line)
	switch tok.Type {
	case scanner.EOF:
		sb.WriteString(" at end")
	case scanner.Error:
		// no "at ..." clause
	default:
		fmt.Fprintf(&sb, " at '%s'", tok.Lexeme)
	}
	fmt.Fprintf(&sb, ": %s", message)

	fmt.Fprintln(os.Stderr, sb.String())
	c.errs = multierror.Append(c.errs, errors.New(sb.String()))
	c.log.WithField("line", tok.Line).Debug(message)
}

func (c *Compiler) errorAtCurrent(message string) { c.errorAt(c.current, message) }
func (c *Compiler) error_(message string)         { c.errorAt(c.previous, message) }

func (c *Compiler) emitByte(b byte) { c.chunk.Write(b, c.previous.Line) }

func (c *Compiler) emitBytes(a, b byte) {
	c.emitByte(a)
	c.emitByte(b)
}

func (c *Compiler) emitReturn() { c.emitByte(byte(chunk.OpReturn)) }

func (c *Compiler) makeConstant(v value.Value) byte {
	idx := c.chunk.AddConstant(v)
	if idx >= chunk.MaxConstants {
		c.error_("Too many constants in one chunk.")
		return 0
	}
	return byte(idx)
}

func (c *Compiler) emitConstant(v value.Value) {
	c.emitBytes(byte(chunk.OpConstant), c.makeConstant(v))
}

func (c *Compiler) endCompiler() {
	c.emitReturn()
	if c.debugPrintCode && !c.hadError {
		debug.DisassembleChunk(os.Stdout, c.chunk, "code")
	}
}

func (c *Compiler) beginScope() { c.scopeDepth++ }

func (c *Compiler) endScope() {
	c.scopeDepth--
	for c.localCount > 0 && c.locals[c.localCount-1].depth > c.scopeDepth {
		c.emitByte(byte(chunk.OpPop))
		c.localCount--
	}
}

// expression parses a full expression at the lowest (assignment)
// precedence.
func (c *Compiler) expression() { c.parsePrecedence(PrecAssignment) }

// parsePrecedence is the precedence-climbing algorithm from spec.md §4.3.
func (c *Compiler) parsePrecedence(p Precedence) {
	c.advance()
	prefix := getRule(c.previous.Type).prefix
	if prefix == nil {
		c.error_("Expect expression.")
		return
	}

	canAssign := p <= PrecAssignment
	prefix(c, canAssign)

	for p <= getRule(c.current.Type).prec {
		c.advance()
		infix := getRule(c.previous.Type).infix
		infix(c, canAssign)
	}

	if canAssign && c.check(scanner.Equal) {
		c.error_("Invalid assignment target.")
	}
}

func grouping(c *Compiler, _ bool) {
	c.expression()
	c.consume(scanner.RightParen, "Expect ')' after expression.")
}

func unary(c *Compiler, _ bool) {
	operatorType := c.previous.Type
	c.parsePrecedence(PrecUnary)

	switch operatorType {
	case scanner.Minus:
		c.emitByte(byte(chunk.OpNegate))
	case scanner.Bang:
		c.emitByte(byte(chunk.OpNot))
	}
}

func binary(c *Compiler, _ bool) {
	operatorType := c.previous.Type
	rule := getRule(operatorType)
	c.parsePrecedence(rule.prec + 1)

	switch operatorType {
	case scanner.BangEqual:
		c.emitBytes(byte(chunk.OpEqual), byte(chunk.OpNot))
	case scanner.EqualEqual:
		c.emitByte(byte(chunk.OpEqual))
	case scanner.Greater:
		c.emitByte(byte(chunk.OpGreater))
	case scanner.GreaterEqual:
		c.emitBytes(byte(chunk.OpLess), byte(chunk.OpNot))
	case scanner.Less:
		c.emitByte(byte(chunk.OpLess))
	case scanner.LessEqual:
		c.emitBytes(byte(chunk.OpGreater), byte(chunk.OpNot))
	case scanner.Plus:
		c.emitByte(byte(chunk.OpAdd))
	case scanner.Minus:
		c.emitByte(byte(chunk.OpSubtract))
	case scanner.Star:
		c.emitByte(byte(chunk.OpMultiply))
	case scanner.Slash:
		c.emitByte(byte(chunk.OpDivide))
	}
}

func number(c *Compiler, _ bool) {
	v, _ := strconv.ParseFloat(c.previous.Lexeme, 64)
	c.emitConstant(value.NewNumber(v))
}

func stringLit(c *Compiler, _ bool) {
	lexeme := c.previous.Lexeme
	unquoted := lexeme[1 : len(lexeme)-1] // strip surrounding quotes
	obj := c.heap.CopyString(unquoted)
	c.emitConstant(value.NewObj(obj))
}

func literal(c *Compiler, _ bool) {
	switch c.previous.Type {
	case scanner.False:
		c.emitByte(byte(chunk.OpFalse))
	case scanner.Nil:
		c.emitByte(byte(chunk.OpNil))
	case scanner.True:
		c.emitByte(byte(chunk.OpTrue))
	}
}

func variable(c *Compiler, canAssign bool) {
	c.namedVariable(c.previous, canAssign)
}

func (c *Compiler) namedVariable(name scanner.Token, canAssign bool) {
	var getOp, setOp chunk.OpCode
	arg := c.resolveLocal(name)
	if arg != -1 {
		getOp, setOp = chunk.OpGetLocal, chunk.OpSetLocal
	} else {
		arg = int(c.identifierConstant(name))
		getOp, setOp = chunk.OpGetGlobal, chunk.OpSetGlobal
	}

	if canAssign && c.match(scanner.Equal) {
		c.expression()
		c.emitBytes(byte(setOp), byte(arg))
	} else {
		c.emitBytes(byte(getOp), byte(arg))
	}
}

// resolveLocal scans the local array top to bottom for the first lexeme
// match. -1 means "not a local" (the caller must treat it as global).
func (c *Compiler) resolveLocal(name scanner.Token) int {
	for i := c.localCount - 1; i >= 0; i-- {
		l := &c.locals[i]
		if l.name == name.Lexeme {
			if l.depth == uninitialized {
				c.error_("Can't read local variable in its own initializer.")
			}
			return i
		}
	}
	return -1
}

func (c *Compiler) identifierConstant(name scanner.Token) byte {
	obj := c.heap.CopyString(name.Lexeme)
	return c.makeConstant(value.NewObj(obj))
}

func (c *Compiler) declaration() {
	if c.match(scanner.Var) {
		c.varDeclaration()
	} else {
		c.statement()
	}

	if c.panicMode {
		c.synchronize()
	}
}

func (c *Compiler) varDeclaration() {
	global := c.parseVariable("Expect variable name.")

	if c.match(scanner.Equal) {
		c.expression()
	} else {
		c.emitByte(byte(chunk.OpNil))
	}
	c.consume(scanner.Semicolon, "Expect ';' after variable declaration.")

	c.defineVariable(global)
}

// parseVariable consumes the identifier, declares it as a local if inside
// a scope, and otherwise materializes it as a string constant, returning
// that constant's index (ignored for locals).
func (c *Compiler) parseVariable(errMessage string) byte {
	c.consume(scanner.Identifier, errMessage)

	c.declareVariable()
	if c.scopeDepth > 0 {
		return 0
	}

	return c.identifierConstant(c.previous)
}

func (c *Compiler) declareVariable() {
	if c.scopeDepth == 0 {
		return
	}

	name := c.previous
	for i := c.localCount - 1; i >= 0; i-- {
		l := &c.locals[i]
		if l.depth != uninitialized && l.depth < c.scopeDepth {
			break
		}
		if l.name == name.Lexeme {
			c.error_("Already a variable with this name in this scope.")
		}
	}

	c.addLocal(name)
}

func (c *Compiler) addLocal(name scanner.Token) {
	if c.localCount == maxLocals {
		c.error_("Too many local variables in function.")
		return
	}
	c.locals[c.localCount] = local{name: name.Lexeme, depth: uninitialized}
	c.localCount++
}

func (c *Compiler) defineVariable(global byte) {
	if c.scopeDepth > 0 {
		c.markInitialized()
		return
	}
	c.emitBytes(byte(chunk.OpDefineGlobal), global)
}

func (c *Compiler) markInitialized() {
	c.locals[c.localCount-1].depth = c.scopeDepth
}

func (c *Compiler) statement() {
	switch {
	case c.match(scanner.Print):
		c.printStatement()
	case c.match(scanner.LeftBrace):
		c.beginScope()
		c.block()
		c.endScope()
	default:
		c.expressionStatement()
	}
}

func (c *Compiler) block() {
	for !c.check(scanner.RightBrace) && !c.check(scanner.EOF) {
		c.declaration()
	}
	c.consume(scanner.RightBrace, "Expect '}' after block.")
}

func (c *Compiler) expressionStatement() {
	c.expression()
	c.consume(scanner.Semicolon, "Expect ';' after expression.")
	c.emitByte(byte(chunk.OpPop))
}

func (c *Compiler) printStatement() {
	c.expression()
	c.consume(scanner.Semicolon, "Expect ';' after value.")
	c.emitByte(byte(chunk.OpPrint))
}

// synchronize discards tokens until it lands just past a semicolon or at
// the start of a token that plausibly begins a new statement, then clears
// panicMode so later errors are reported again.
func (c *Compiler) synchronize() {
	c.panicMode = false

	for c.current.Type != scanner.EOF {
		if c.previous.Type == scanner.Semicolon {
			return
		}
		switch c.current.Type {
		case scanner.Class, scanner.Fun, scanner.Var, scanner.For,
			scanner.If, scanner.While, scanner.Print, scanner.Return:
			return
		}
		c.advance()
	}
}
