// Command lox is the CLI driver for the lox compiler/VM: REPL when run with
// no arguments, single-file execution when given a path. It is an external
// collaborator to the core package (spec.md §1) — argument parsing, file
// reading, and process exit codes live here, never in package lox itself.
package main

import (
	"bufio"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/vsharkovski/lox"
	"github.com/vsharkovski/lox/internal/flushio"
	"github.com/vsharkovski/lox/internal/logio"
)

// Exit codes mandated by spec.md §6.
const (
	exitOK           = 0
	exitUsage        = 64
	exitCompileError = 65
	exitRuntimeError = 70
	exitIOError      = 74
)

var (
	trace       bool
	disassemble bool
)

func main() {
	os.Exit(run())
}

func run() int {
	root := &cobra.Command{
		Use:   "lox [script]",
		Short: "lox is a bytecode compiler and virtual machine",
		Args:  cobra.MaximumNArgs(1),
	}
	root.Flags().BoolVarP(&trace, "trace", "t", false, "enable per-instruction execution trace")
	root.Flags().BoolVarP(&disassemble, "disassemble", "d", false, "dump chunk disassembly before running")

	var code int
	root.RunE = func(cmd *cobra.Command, args []string) error {
		log := logrus.StandardLogger()
		if trace {
			log.SetLevel(logrus.DebugLevel)
		}

		out := buildOutput(log)
		defer out.Flush()

		vm := lox.New(lox.WithTrace(trace), lox.WithLogger(log), lox.WithOutput(out))

		switch len(args) {
		case 0:
			code = runREPL(vm)
		case 1:
			code = runFile(vm, args[0])
		}
		return nil
	}

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitUsage
	}
	return code
}

// buildOutput wraps stdout in a flush-capable writer (internal/flushio,
// adapted from the teacher), teed through the structured logger at Debug
// level when tracing is on, so OP_PRINT output is visible in the trace log
// alongside the disassembled instruction stream (SPEC_FULL.md §6.2).
func buildOutput(log *logrus.Logger) flushio.WriteFlusher {
	stdout := flushio.NewWriteFlusher(os.Stdout)
	if !trace {
		return stdout
	}
	logWriter := flushio.NewWriteFlusher(&logio.Writer{Logf: log.Debugf})
	return flushio.WriteFlushers(stdout, logWriter)
}

func runREPL(vm *lox.VM) int {
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return exitOK
		}
		interpretLine(vm, scanner.Text())
	}
}

func interpretLine(vm *lox.VM, line string) {
	if disassemble {
		dumpDisassembly(vm, line)
	}
	result, err := vm.Interpret(line)
	if err != nil && result != lox.ResultRuntimeError {
		// runtime errors already print their own message in vm.Interpret
		fmt.Fprintln(os.Stderr, err)
	}
}

func runFile(vm *lox.VM, path string) int {
	source, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitIOError
	}

	if disassemble {
		dumpDisassembly(vm, string(source))
	}

	result, err := vm.Interpret(string(source))
	switch result {
	case lox.ResultCompileError:
		fmt.Fprintln(os.Stderr, err)
		return exitCompileError
	case lox.ResultRuntimeError:
		return exitRuntimeError
	default:
		return exitOK
	}
}

func dumpDisassembly(vm *lox.VM, source string) {
	_ = vm.DumpDisassembly(source, os.Stderr)
}
