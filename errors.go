package lox

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// InterpretResult is the three-outcome status Interpret returns (spec.md §6).
type InterpretResult int

const (
	ResultOK InterpretResult = iota
	ResultCompileError
	ResultRuntimeError
)

func (r InterpretResult) String() string {
	switch r {
	case ResultOK:
		return "OK"
	case ResultCompileError:
		return "CompileError"
	case ResultRuntimeError:
		return "RuntimeError"
	default:
		return "UnknownResult"
	}
}

// CompileError wraps every error accumulated during one compile pass
// (SPEC_FULL.md §6.3: panic-mode recovery lets multiple independent errors
// surface from a single source, aggregated via go-multierror rather than
// only reporting the first one).
type CompileError struct {
	Errors *multierror.Error
}

func (e *CompileError) Error() string {
	if e.Errors == nil {
		return "compile error"
	}
	return e.Errors.Error()
}

func (e *CompileError) Unwrap() error {
	if e.Errors == nil {
		return nil
	}
	return e.Errors.ErrorOrNil()
}

// formatCompileError formats one compile-time diagnostic per spec.md §7:
// "[line N] Error at 'lexeme': message", with "at end" for EOF tokens and an
// omitted lexeme for ERROR tokens (the lexeme there already IS the message).
func formatCompileError(tok Token, message string) string {
	switch tok.Kind {
	case TokenEOF:
		return fmt.Sprintf("[line %d] Error at end: %s", tok.Line, message)
	case TokenError:
		return fmt.Sprintf("[line %d] Error: %s", tok.Line, message)
	default:
		return fmt.Sprintf("[line %d] Error at '%s': %s", tok.Line, tok.Lexeme, message)
	}
}

// RuntimeError is raised by the VM's dispatch loop (spec.md §4.5, §7): a
// message plus the source line resolved via Chunk.GetLine(ip-1). It is
// carried as a Go panic value from deep inside the dispatch loop up to the
// single recover point in VM.Interpret (SPEC_FULL.md §6.3), never threaded
// through every opcode case as an error return.
type RuntimeError struct {
	Message string
	Line    int
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("%s\n[line %d] in script", e.Message, e.Line)
}
