package lox

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// vmTestCase is the fluent withX/expectX builder adapted from the teacher's
// vm_test.go, generalized from Forth-VM memory assertions to source-program
// interpretation and stdout/error assertions.
type vmTestCase struct {
	t       *testing.T
	source  string
	opts    []VMOption
	out     bytes.Buffer
	result  InterpretResult
	err     error
	timeout time.Duration
}

func newVMTest(t *testing.T) *vmTestCase {
	return &vmTestCase{t: t, timeout: time.Second}
}

func (c *vmTestCase) withSource(src string) *vmTestCase {
	c.source = src
	return c
}

func (c *vmTestCase) withTimeout(d time.Duration) *vmTestCase {
	c.timeout = d
	return c
}

func (c *vmTestCase) run() *vmTestCase {
	c.t.Helper()
	vm := New(append([]VMOption{WithOutput(&c.out)}, c.opts...)...)
	runWithTimeout(c.t, c.timeout, func() {
		c.result, c.err = vm.Interpret(c.source)
	})
	return c
}

func (c *vmTestCase) expectResult(want InterpretResult) *vmTestCase {
	c.t.Helper()
	assert.Equal(c.t, want, c.result)
	return c
}

func (c *vmTestCase) expectOutput(want string) *vmTestCase {
	c.t.Helper()
	assert.Equal(c.t, want, c.out.String())
	return c
}

func (c *vmTestCase) expectOutputContains(want string) *vmTestCase {
	c.t.Helper()
	assert.Contains(c.t, c.out.String(), want)
	return c
}

func (c *vmTestCase) expectErrorContains(want string) *vmTestCase {
	c.t.Helper()
	require.Error(c.t, c.err)
	assert.Contains(c.t, c.err.Error(), want)
	return c
}

// --- spec.md §8 concrete end-to-end scenarios ---------------------------

func TestInterpretArithmetic(t *testing.T) {
	newVMTest(t).withSource(`print 1 + 2;`).run().
		expectResult(ResultOK).
		expectOutput("3\n")
}

func TestInterpretLeftAssociativity(t *testing.T) {
	newVMTest(t).withSource(`print (-1 + 2) * 3 - -4;`).run().
		expectResult(ResultOK).
		expectOutput("7\n")
}

func TestInterpretNotTruthiness(t *testing.T) {
	newVMTest(t).withSource(`print !nil; print !true; print !0;`).run().
		expectResult(ResultOK).
		expectOutput("true\nfalse\nfalse\n")
}

func TestInterpretComparisonChain(t *testing.T) {
	newVMTest(t).withSource(`print 1 < 2 == true;`).run().
		expectResult(ResultOK).
		expectOutput("true\n")
}

func TestInterpretRuntimeTypeError(t *testing.T) {
	newVMTest(t).withSource(`1 + true;`).run().
		expectResult(ResultRuntimeError).
		expectOutputContains("Operands must be two numbers or two strings.").
		expectOutputContains("[line 1] in script")
}

func TestInterpretEmptyProgramIsOK(t *testing.T) {
	// DESIGN.md O3: once declarations exist, an empty source is a valid
	// empty program, not spec.md §8's literal "Expect expression." claim.
	newVMTest(t).withSource(``).run().
		expectResult(ResultOK).
		expectOutput("")
}

func TestInterpretStringConcatenationInterned(t *testing.T) {
	newVMTest(t).withSource(`print "foo" + "bar";`).run().
		expectResult(ResultOK).
		expectOutput("foobar\n")
}

// --- SPEC_FULL.md §9 additions -------------------------------------------

func TestInterpretGlobalVariables(t *testing.T) {
	newVMTest(t).withSource(`var a = 1; var b = 2; print a + b;`).run().
		expectResult(ResultOK).
		expectOutput("3\n")
}

func TestInterpretLocalShadowingDoesNotCorruptOuterSlot(t *testing.T) {
	newVMTest(t).withSource(`{ var a = 1; { var a = 2; } print a; }`).run().
		expectResult(ResultOK).
		expectOutput("1\n")
}

func TestInterpretShortCircuitAndNeverEvaluatesRHS(t *testing.T) {
	// division by a literal zero in this core does not itself trap (no
	// integer division-by-zero error), so this asserts via a runtime error
	// that WOULD fire if the right operand were reached instead: referencing
	// an undefined global.
	newVMTest(t).withSource(`print false and oops;`).run().
		expectResult(ResultOK).
		expectOutput("false\n")
}

func TestInterpretShortCircuitOr(t *testing.T) {
	newVMTest(t).withSource(`print true or oops;`).run().
		expectResult(ResultOK).
		expectOutput("true\n")
}

func TestInterpretWhileLoopTermination(t *testing.T) {
	newVMTest(t).withTimeout(2 * time.Second).
		withSource(`var i = 0; while (i < 3) { print i; i = i + 1; }`).run().
		expectResult(ResultOK).
		expectOutput("0\n1\n2\n")
}

func TestInterpretForLoop(t *testing.T) {
	newVMTest(t).withTimeout(2 * time.Second).
		withSource(`for (var i = 0; i < 3; i = i + 1) print i;`).run().
		expectResult(ResultOK).
		expectOutput("0\n1\n2\n")
}

func TestInterpretIfElse(t *testing.T) {
	newVMTest(t).withSource(`if (1 < 2) print "yes"; else print "no";`).run().
		expectResult(ResultOK).
		expectOutput("yes\n")
}

func TestInterpretUndefinedGlobalGet(t *testing.T) {
	newVMTest(t).withSource(`print missing;`).run().
		expectResult(ResultRuntimeError).
		expectOutputContains("Undefined variable 'missing'.")
}

func TestInterpretUndefinedGlobalSetDoesNotVivify(t *testing.T) {
	newVMTest(t).withSource(`missing = 1;`).run().
		expectResult(ResultRuntimeError).
		expectOutputContains("Undefined variable 'missing'.")
}

func TestInterpretStackOverflow(t *testing.T) {
	// Each block-scoped local occupies its own stack slot for the lifetime
	// of the block (unlike globals, which pop immediately after
	// OP_DEFINE_GLOBAL), so declaring many of them in one scope accumulates
	// live stack slots with no intervening pop: against a stack capacity of
	// 2, this overflows deterministically regardless of constant-folding.
	var src strings.Builder
	src.WriteString("{")
	for i := 0; i < 10; i++ {
		src.WriteString("var v")
		src.WriteString(string(rune('a' + i)))
		src.WriteString(" = 1;")
	}
	src.WriteString("}")

	c := newVMTest(t)
	c.opts = append(c.opts, WithStackLimit(2))
	c.withSource(src.String()).run().
		expectResult(ResultRuntimeError).
		expectOutputContains("Stack overflow.")
}

func TestInterpretPersistsGlobalsAcrossCalls(t *testing.T) {
	var out bytes.Buffer
	vm := New(WithOutput(&out))

	result, err := vm.Interpret(`var counter = 0;`)
	require.NoError(t, err)
	require.Equal(t, ResultOK, result)

	result, err = vm.Interpret(`counter = counter + 1; print counter;`)
	require.NoError(t, err)
	require.Equal(t, ResultOK, result)
	assert.Equal(t, "1\n", out.String())
}

func TestDisassembleDump(t *testing.T) {
	vm := New()
	var buf bytes.Buffer
	err := vm.DumpDisassembly(`print 1 + 2;`, &buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "OP_CONSTANT")
	assert.Contains(t, buf.String(), "OP_ADD")
	assert.Contains(t, buf.String(), "OP_PRINT")
}
