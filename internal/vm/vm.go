// Package vm implements the stack-based interpreter: a direct switch-based
// dispatch loop over opcodes manipulating a fixed-size operand stack of
// tagged values, with runtime type checks that abort execution cleanly on
// mismatch. See spec.md §4.4.
package vm

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/lado-saha/loxvm/internal/chunk"
	"github.com/lado-saha/loxvm/internal/compiler"
	"github.com/lado-saha/loxvm/internal/debug"
	"github.com/lado-saha/loxvm/internal/heap"
	"github.com/lado-saha/loxvm/internal/value"
	"github.com/lado-saha/loxvm/internal/vmlog"
)

// stackMax is the VM's fixed operand-stack capacity (spec.md §3).
const stackMax = 256

// Result is the outcome of Interpret.
type Result int

const (
	OK Result = iota
	CompileError
	RuntimeError
)

func (r Result) String() string {
	switch r {
	case OK:
		return "OK"
	case CompileError:
		return "COMPILE_ERROR"
	case RuntimeError:
		return "RUNTIME_ERROR"
	default:
		return "UNKNOWN"
	}
}

// VM owns the chunk currently executing, the instruction pointer, the
// operand stack, and — via Heap — the object list, globals table, and
// string interner for the lifetime of one Interpret call.
type VM struct {
	ID uuid.UUID

	chunk *chunk.Chunk
	ip    int

	stack    [stackMax]value.Value
	stackTop int

	heap *heap.Heap

	// Stdout is where PRINT writes; defaults to os.Stdout and is
	// overridable so tests can capture output without touching the real
	// terminal.
	Stdout io.Writer

	log *logrus.Entry

	debugPrintCode      bool
	debugTraceExecution bool
}

// Option configures optional VM behavior.
type Option func(*VM)

// WithDebugPrintCode enables the compiler's DEBUG_PRINT_CODE disassembly
// dump after a successful compile.
func WithDebugPrintCode() Option { return func(vm *VM) { vm.debugPrintCode = true } }

// WithDebugTraceExecution enables per-instruction stack/disassembly
// tracing before each instruction the dispatch loop executes.
func WithDebugTraceExecution() Option { return func(vm *VM) { vm.debugTraceExecution = true } }

// WithStdout overrides where PRINT writes.
func WithStdout(w io.Writer) Option { return func(vm *VM) { vm.Stdout = w } }

func New(opts ...Option) *VM {
	vm := &VM{
		ID:     uuid.New(),
		Stdout: os.Stdout,
		log:    vmlog.New("vm"),
	}
	for _, opt := range opts {
		opt(vm)
	}
	return vm
}

func (vm *VM) resetStack() { vm.stackTop = 0 }

func (vm *VM) push(v value.Value) {
	vm.stack[vm.stackTop] = v
	vm.stackTop++
}

func (vm *VM) pop() value.Value {
	vm.stackTop--
	return vm.stack[vm.stackTop]
}

func (vm *VM) peek(distance int) value.Value {
	return vm.stack[vm.stackTop-1-distance]
}

// Interpret compiles source into a fresh chunk and, if compilation
// succeeds, executes it against a fresh Heap. Each call is fully
// self-contained: chunk, heap and VM state never leak across calls.
func (vm *VM) Interpret(source string) Result {
	ch := chunk.New()
	vm.heap = heap.New()
	vm.log = vm.log.WithField("vm_id", vm.ID.String())

	var copts []compiler.Option
	if vm.debugPrintCode {
		copts = append(copts, compiler.WithDebugPrintCode())
	}

	ok, _ := compiler.Compile(source, ch, vm.heap, copts...)
	if !ok {
		ch.Free()
		return CompileError
	}

	vm.chunk = ch
	vm.ip = 0
	vm.resetStack()
	result := vm.run()
	ch.Free()
	return result
}

func (vm *VM) readByte() byte {
	b := vm.chunk.Code[vm.ip]
	vm.ip++
	return b
}

func (vm *VM) readShort() int {
	hi := vm.chunk.Code[vm.ip]
	lo := vm.chunk.Code[vm.ip+1]
	vm.ip += 2
	return int(binary.BigEndian.Uint16([]byte{hi, lo}))
}

func (vm *VM) readConstant() value.Value {
	return vm.chunk.Constants[vm.readByte()]
}

func (vm *VM) readString() *value.ObjString {
	return vm.readConstant().AsString()
}

// runtimeError formats a one-line message, then prints the fixed
// "[line N] in script" trailer per spec.md §6, resets the stack, and
// returns RuntimeError.
func (vm *VM) runtimeError(format string, args ...interface{}) Result {
	message := fmt.Sprintf(format, args...)
	line := vm.chunk.Lines[vm.ip-1]

	fmt.Fprintln(os.Stderr, message)
	fmt.Fprintf(os.Stderr, "[line %d] in script\n", line)

	vm.log.WithField("line", line).Warn(message)
	vm.resetStack()
	return RuntimeError
}

func (vm *VM) traceInstruction() {
	fmt.Fprint(vm.Stdout, "          ")
	for i := 0; i < vm.stackTop; i++ {
		fmt.Fprintf(vm.Stdout, "[ %s ]", vm.stack[i].String())
	}
	fmt.Fprintln(vm.Stdout)
	debug.DisassembleInstruction(vm.Stdout, vm.chunk, vm.ip)
}

// run is the dispatch loop: for(;;) { switch(read_byte()) { ... } }.
func (vm *VM) run() Result {
	for {
		if vm.debugTraceExecution {
			vm.traceInstruction()
		}

		switch op := chunk.OpCode(vm.readByte()); op {
		case chunk.OpConstant:
			vm.push(vm.readConstant())

		case chunk.OpNil:
			vm.push(value.NewNil())
		case chunk.OpTrue:
			vm.push(value.NewBool(true))
		case chunk.OpFalse:
			vm.push(value.NewBool(false))

		case chunk.OpPop:
			vm.pop()

		case chunk.OpGetLocal:
			slot := vm.readByte()
			vm.push(vm.stack[slot])

		case chunk.OpSetLocal:
			slot := vm.readByte()
			vm.stack[slot] = vm.peek(0)

		case chunk.OpGetGlobal:
			name := vm.readString()
			v, ok := vm.heap.Globals.Get(name)
			if !ok {
				return vm.runtimeError("Undefined variable '%s'.", name.Chars)
			}
			vm.push(v)

		case chunk.OpDefineGlobal:
			name := vm.readString()
			vm.heap.Globals.Set(name, vm.peek(0))
			vm.pop()

		case chunk.OpSetGlobal:
			name := vm.readString()
			if vm.heap.Globals.Set(name, vm.peek(0)) {
				vm.heap.Globals.Delete(name)
				return vm.runtimeError("Undefined variable '%s'.", name.Chars)
			}

		case chunk.OpEqual:
			b := vm.pop()
			a := vm.pop()
			vm.push(value.NewBool(value.Equal(a, b)))

		case chunk.OpGreater:
			if res, ok := vm.binaryNumberOp(func(a, b float64) value.Value { return value.NewBool(a > b) }); ok {
				vm.push(res)
			} else {
				return vm.runtimeError("Operands must be numbers.")
			}

		case chunk.OpLess:
			if res, ok := vm.binaryNumberOp(func(a, b float64) value.Value { return value.NewBool(a < b) }); ok {
				vm.push(res)
			} else {
				return vm.runtimeError("Operands must be numbers.")
			}

		case chunk.OpAdd:
			if !vm.add() {
				return vm.runtimeError("Operands must be two numbers or two strings.")
			}

		case chunk.OpSubtract:
			if res, ok := vm.binaryNumberOp(func(a, b float64) value.Value { return value.NewNumber(a - b) }); ok {
				vm.push(res)
			} else {
				return vm.runtimeError("Operands must be numbers.")
			}

		case chunk.OpMultiply:
			if res, ok := vm.binaryNumberOp(func(a, b float64) value.Value { return value.NewNumber(a * b) }); ok {
				vm.push(res)
			} else {
				return vm.runtimeError("Operands must be numbers.")
			}

		case chunk.OpDivide:
			if res, ok := vm.binaryNumberOp(func(a, b float64) value.Value { return value.NewNumber(a / b) }); ok {
				vm.push(res)
			} else {
				return vm.runtimeError("Operands must be numbers.")
			}

		case chunk.OpNot:
			vm.push(value.NewBool(vm.pop().Falsey()))

		case chunk.OpNegate:
			if !vm.peek(0).IsNumber() {
				return vm.runtimeError("Operand must be a number.")
			}
			vm.push(value.NewNumber(-vm.pop().AsNumber()))

		case chunk.OpPrint:
			fmt.Fprintln(vm.Stdout, vm.pop().String())

		case chunk.OpJump:
			offset := vm.readShort()
			vm.ip += offset

		case chunk.OpJumpIfFalse:
			offset := vm.readShort()
			if vm.peek(0).Falsey() {
				vm.ip += offset
			}

		case chunk.OpLoop:
			offset := vm.readShort()
			vm.ip -= offset

		case chunk.OpReturn:
			return OK

		default:
			return vm.runtimeError("Unknown opcode %d.", op)
		}
	}
}

// binaryNumberOp pops two operands and applies f if both are numbers,
// pushing nothing and reporting failure otherwise so the caller can emit
// the exact "Operands must be numbers." runtime error.
func (vm *VM) binaryNumberOp(f func(a, b float64) value.Value) (value.Value, bool) {
	if !vm.peek(0).IsNumber() || !vm.peek(1).IsNumber() {
		return value.Value{}, false
	}
	b := vm.pop()
	a := vm.pop()
	return f(a.AsNumber(), b.AsNumber()), true
}

// add implements OP_ADD's dual numeric/string semantics: both numbers sum
// numerically, both strings concatenate through the interner, anything
// else is a runtime error.
func (vm *VM) add() bool {
	switch {
	case vm.peek(0).IsNumber() && vm.peek(1).IsNumber():
		b := vm.pop()
		a := vm.pop()
		vm.push(value.NewNumber(a.AsNumber() + b.AsNumber()))
		return true
	case vm.peek(0).IsString() && vm.peek(1).IsString():
		b := vm.pop()
		a := vm.pop()
		concat := a.AsString().Chars + b.AsString().Chars
		vm.push(value.NewObj(vm.heap.TakeString(concat)))
		return true
	default:
		return false
	}
}
