// Package lox implements a single-pass bytecode compiler and stack-based
// virtual machine for a small dynamically-typed scripting language.
//
// The pipeline mirrors a classic tree-walking-free interpreter: source text
// is scanned into tokens (scanner.go), a Pratt precedence-climbing compiler
// consumes those tokens and emits bytecode directly into a Chunk with no
// intermediate AST (compiler.go), and a stack machine executes that Chunk
// (vm.go). Supporting structures are a run-length-encoded line map on Chunk
// (chunk.go), a tagged Value union (value.go), a VM-owned heap-object arena
// (object.go), and an open-addressed hash table used both for string
// interning and as the globals table (table.go).
//
// The language covers expressions (arithmetic, comparison, logical
// short-circuit and/or), print statements, global and block-scoped local
// variables, and if/while/for control flow. Functions, closures, classes,
// inheritance, and a tracing garbage collector are out of scope: the VM's
// object arena is freed in bulk when a VM is discarded, not incrementally
// collected.
package lox
