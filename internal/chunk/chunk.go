// Package chunk implements the bytecode container: a dynamic byte array of
// opcodes/operands, a parallel per-byte line-number array, and a constant
// pool, matching spec.md §4.1.
package chunk

import (
	"github.com/google/uuid"
	"github.com/lado-saha/loxvm/internal/value"
)

// OpCode enumerates the instruction set defined in spec.md §4.4. Only the
// opcodes the core actually emits or whose VM-side semantics the spec
// fixes are present; there are no opcodes here for the out-of-scope
// functions/closures/classes machinery.
type OpCode byte

const (
	OpConstant OpCode = iota
	OpNil
	OpTrue
	OpFalse
	OpPop
	OpGetLocal
	OpSetLocal
	OpGetGlobal
	OpDefineGlobal
	OpSetGlobal
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
	OpReturn
)

var names = [...]string{
	OpConstant:     "OP_CONSTANT",
	OpNil:          "OP_NIL",
	OpTrue:         "OP_TRUE",
	OpFalse:        "OP_FALSE",
	OpPop:          "OP_POP",
	OpGetLocal:     "OP_GET_LOCAL",
	OpSetLocal:     "OP_SET_LOCAL",
	OpGetGlobal:    "OP_GET_GLOBAL",
	OpDefineGlobal: "OP_DEFINE_GLOBAL",
	OpSetGlobal:    "OP_SET_GLOBAL",
	OpEqual:        "OP_EQUAL",
	OpGreater:      "OP_GREATER",
	OpLess:         "OP_LESS",
	OpAdd:          "OP_ADD",
	OpSubtract:     "OP_SUBTRACT",
	OpMultiply:     "OP_MULTIPLY",
	OpDivide:       "OP_DIVIDE",
	OpNot:          "OP_NOT",
	OpNegate:       "OP_NEGATE",
	OpPrint:        "OP_PRINT",
	OpJump:         "OP_JUMP",
	OpJumpIfFalse:  "OP_JUMP_IF_FALSE",
	OpLoop:         "OP_LOOP",
	OpReturn:       "OP_RETURN",
}

func (op OpCode) String() string {
	if int(op) < len(names) && names[op] != "" {
		return names[op]
	}
	return "OP_UNKNOWN"
}

// MaxConstants is the one-byte operand limit on constant-pool indices.
const MaxConstants = 256

// minCapacity is the starting capacity Code/Lines grow into on first
// write, doubling from there — an explicit invariant from spec.md §3
// rather than whatever growth factor append() would otherwise pick.
const minCapacity = 8

// Chunk holds one compiled unit of bytecode: code, a parallel line table
// (len(Code) == len(Lines) always), and the constant pool opcode operands
// index into.
type Chunk struct {
	// ID is a per-chunk identifier; nothing in this module reads it, and it
	// is not part of the language-observable bytecode format.
	ID uuid.UUID

	Code      []byte
	Lines     []int
	Constants []value.Value
}

func New() *Chunk {
	return &Chunk{ID: uuid.New()}
}

func grow(buf []byte) []byte {
	if cap(buf) == len(buf) {
		newCap := minCapacity
		if cap(buf) > 0 {
			newCap = cap(buf) * 2
		}
		grown := make([]byte, len(buf), newCap)
		copy(grown, buf)
		return grown
	}
	return buf
}

func growLines(buf []int) []int {
	if cap(buf) == len(buf) {
		newCap := minCapacity
		if cap(buf) > 0 {
			newCap = cap(buf) * 2
		}
		grown := make([]int, len(buf), newCap)
		copy(grown, buf)
		return grown
	}
	return buf
}

// Write appends one byte (an opcode or an operand byte) at the given
// source line, growing Code and Lines together so the invariant
// len(Code) == len(Lines) never breaks even transiently.
func (c *Chunk) Write(b byte, line int) {
	c.Code = append(grow(c.Code), b)
	c.Lines = append(growLines(c.Lines), line)
}

// AddConstant appends a value to the constant pool and returns its index.
// Checking that index against MaxConstants before it is used as a
// one-byte operand is the caller's responsibility (the compiler's
// makeConstant), since AddConstant itself has no way to know whether the
// caller intends a one-byte operand.
func (c *Chunk) AddConstant(v value.Value) int {
	c.Constants = append(c.Constants, v)
	return len(c.Constants) - 1
}

// Free releases the three arrays, matching the explicit chunk lifecycle
// the spec describes (init/free) even though Go's GC would reclaim this
// memory regardless once the Chunk is unreachable.
func (c *Chunk) Free() {
	c.Code = nil
	c.Lines = nil
	c.Constants = nil
}
