package lox

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// defaultStackMax is the suggested fixed value-stack capacity from spec.md
// §4.5 (256 slots); exceeding it is a runtime error, resolving spec.md §9's
// "overflow behaviour undefined in source" open question.
const defaultStackMax = 256

// VM is the stack-based evaluator: a value stack, an instruction pointer
// into the current Chunk, a shared object arena, an intern set, and a
// globals table (spec.md §3, §4.5). Folded here into one explicit owner
// struct rather than the source's process-global statics (spec.md §9);
// Go's zero value is not meant to be used directly — construct with New.
type VM struct {
	chunk *Chunk
	ip    int

	stack    []Value
	stackMax int

	arena   *objectArena
	strings *Strings
	globals Table

	out   io.Writer
	trace bool
	log   *logrus.Logger
}

// VMOption configures a VM at construction, the functional-options pattern
// adapted from the teacher's api.go/options.go.
type VMOption interface {
	apply(*VM)
}

type vmOptionFunc func(*VM)

func (f vmOptionFunc) apply(vm *VM) { f(vm) }

// WithOutput sets the writer OP_PRINT writes to (default os.Stdout).
func WithOutput(w io.Writer) VMOption {
	return vmOptionFunc(func(vm *VM) { vm.out = w })
}

// WithStackLimit overrides the default 256-slot value stack capacity.
func WithStackLimit(n int) VMOption {
	return vmOptionFunc(func(vm *VM) { vm.stackMax = n })
}

// WithTrace enables the optional per-instruction execution trace from
// spec.md §4.5.
func WithTrace(enabled bool) VMOption {
	return vmOptionFunc(func(vm *VM) { vm.trace = enabled })
}

// WithLogger overrides the VM's logrus.Logger (default logrus.StandardLogger).
func WithLogger(log *logrus.Logger) VMOption {
	return vmOptionFunc(func(vm *VM) { vm.log = log })
}

// New constructs a VM ready for repeated Interpret calls, matching spec.md
// §6's "initVM() before first interpret" lifecycle contract (construction
// here does what initVM did; there is no separate init step).
func New(opts ...VMOption) *VM {
	vm := &VM{
		out:      os.Stdout,
		stackMax: defaultStackMax,
		log:      logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt.apply(vm)
	}
	vm.arena = &objectArena{}
	vm.strings = newStrings(vm.arena)
	vm.stack = make([]Value, 0, vm.stackMax)
	return vm
}

// Interpret compiles source and, on success, runs it to completion
// (spec.md §4.5, §6). Runtime panics raised deep inside run() are recovered
// here exactly once (SPEC_FULL.md §6.3), converting them into a
// RuntimeError and a ResultRuntimeError status rather than unwinding
// through every opcode case.
func (vm *VM) Interpret(source string) (result InterpretResult, err error) {
	chunk, compileErr := Compile(source, vm.strings)
	if compileErr != nil {
		return ResultCompileError, compileErr
	}

	vm.chunk = chunk
	vm.ip = 0
	vm.stack = vm.stack[:0]

	defer func() {
		if r := recover(); r != nil {
			rerr, ok := r.(*RuntimeError)
			if !ok {
				panic(r) // not ours: a genuine programming bug, let it surface
			}
			fmt.Fprintln(vm.out, rerr.Error())
			vm.stack = vm.stack[:0]
			result, err = ResultRuntimeError, rerr
		}
	}()

	vm.run()
	return ResultOK, nil
}

// DumpDisassembly compiles source against this VM's own interner (without
// running it) and writes its disassembly to w, for the CLI's
// `--disassemble` flag (SPEC_FULL.md §6.1). A compile error is returned
// unwritten, matching the same CompileError path Interpret would take.
func (vm *VM) DumpDisassembly(source string, w io.Writer) error {
	chunk, err := Compile(source, vm.strings)
	if err != nil {
		return err
	}
	Disassemble(chunk, "script", w)
	return nil
}

func (vm *VM) push(v Value) {
	if len(vm.stack) >= vm.stackMax {
		vm.runtimeError("Stack overflow.")
	}
	vm.stack = append(vm.stack, v)
}

func (vm *VM) pop() Value {
	n := len(vm.stack)
	if n == 0 {
		vm.runtimeError("Stack underflow.")
	}
	v := vm.stack[n-1]
	vm.stack = vm.stack[:n-1]
	return v
}

func (vm *VM) peek(distance int) Value {
	return vm.stack[len(vm.stack)-1-distance]
}

func (vm *VM) runtimeError(format string, args ...interface{}) {
	line := vm.chunk.GetLine(vm.ip - 1)
	panic(&RuntimeError{Message: fmt.Sprintf(format, args...), Line: line})
}

func (vm *VM) readByte() byte {
	b := vm.chunk.Code[vm.ip]
	vm.ip++
	return b
}

func (vm *VM) readShort() int {
	hi := vm.readByte()
	lo := vm.readByte()
	return int(hi)<<8 | int(lo)
}

func (vm *VM) readConstant() Value {
	return vm.chunk.Constants[vm.readByte()]
}

func (vm *VM) readString() *ObjString {
	return vm.readConstant().AsObj().(*ObjString)
}

// run is the dispatch loop: one opcode fetch per iteration (spec.md §4.5).
func (vm *VM) run() {
	for {
		if vm.trace {
			vm.traceStep()
		}
		op := OpCode(vm.readByte())
		switch op {
		case OpConstant:
			vm.push(vm.readConstant())
		case OpNil:
			vm.push(NilValue)
		case OpTrue:
			vm.push(BoolValue(true))
		case OpFalse:
			vm.push(BoolValue(false))
		case OpPop:
			vm.pop()
		case OpGetLocal:
			slot := vm.readByte()
			vm.push(vm.stack[slot])
		case OpSetLocal:
			slot := vm.readByte()
			vm.stack[slot] = vm.peek(0)
		case OpGetGlobal:
			name := vm.readString()
			v, ok := vm.globals.Get(name)
			if !ok {
				vm.runtimeError("Undefined variable '%s'.", name.chars)
			}
			vm.push(v)
		case OpDefineGlobal:
			name := vm.readString()
			vm.globals.Set(name, vm.pop())
		case OpSetGlobal:
			name := vm.readString()
			if vm.globals.Set(name, vm.peek(0)) {
				vm.globals.Delete(name)
				vm.runtimeError("Undefined variable '%s'.", name.chars)
			}
		case OpEqual:
			b, a := vm.pop(), vm.pop()
			vm.push(BoolValue(ValuesEqual(a, b)))
		case OpGreater:
			vm.binaryNumberOp(func(a, b float64) Value { return BoolValue(a > b) })
		case OpLess:
			vm.binaryNumberOp(func(a, b float64) Value { return BoolValue(a < b) })
		case OpAdd:
			vm.add()
		case OpSubtract:
			vm.binaryNumberOp(func(a, b float64) Value { return NumberValue(a - b) })
		case OpMultiply:
			vm.binaryNumberOp(func(a, b float64) Value { return NumberValue(a * b) })
		case OpDivide:
			vm.binaryNumberOp(func(a, b float64) Value { return NumberValue(a / b) })
		case OpNot:
			vm.push(BoolValue(vm.pop().IsFalsey()))
		case OpNegate:
			if !vm.peek(0).IsNumber() {
				vm.runtimeError("Operand must be a number.")
			}
			vm.push(NumberValue(-vm.pop().AsNumber()))
		case OpPrint:
			fmt.Fprintln(vm.out, vm.pop().String())
		case OpJump:
			offset := vm.readShort()
			vm.ip += offset
		case OpJumpIfFalse:
			offset := vm.readShort()
			if vm.peek(0).IsFalsey() {
				vm.ip += offset
			}
		case OpLoop:
			offset := vm.readShort()
			vm.ip -= offset
		case OpReturn:
			return
		default:
			vm.runtimeError("Unknown opcode %d.", op)
		}
	}
}

func (vm *VM) binaryNumberOp(f func(a, b float64) Value) {
	if !vm.peek(0).IsNumber() || !vm.peek(1).IsNumber() {
		vm.runtimeError("Operands must be numbers.")
	}
	b := vm.pop().AsNumber()
	a := vm.pop().AsNumber()
	vm.push(f(a, b))
}

// add implements OP_ADD's two valid operand pairings: Number+Number, or
// String+String via interned concatenation (spec.md §4.5).
func (vm *VM) add() {
	b, a := vm.peek(0), vm.peek(1)
	switch {
	case a.IsNumber() && b.IsNumber():
		bn, an := vm.pop().AsNumber(), vm.pop().AsNumber()
		vm.push(NumberValue(an + bn))
	case a.IsObj() && b.IsObj():
		bs, aOK := b.AsObj().(*ObjString)
		as, bOK := a.AsObj().(*ObjString)
		if !aOK || !bOK {
			vm.runtimeError("Operands must be two numbers or two strings.")
		}
		vm.pop()
		vm.pop()
		vm.push(ObjValue(vm.strings.Intern(as.chars + bs.chars)))
	default:
		vm.runtimeError("Operands must be two numbers or two strings.")
	}
}

func (vm *VM) traceStep() {
	vm.log.WithFields(logrus.Fields{
		"pc":    vm.ip,
		"op":    OpCode(vm.chunk.Code[vm.ip]).String(),
		"stack": vm.stackSnapshot(),
	}).Debug("trace")
}

func (vm *VM) stackSnapshot() string {
	s := "["
	for i, v := range vm.stack {
		if i > 0 {
			s += ", "
		}
		s += v.String()
	}
	return s + "]"
}
