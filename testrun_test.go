package lox

import (
	"context"
	"testing"
	"time"

	"github.com/vsharkovski/lox/internal/panicerr"
)

// runWithTimeout runs f in a goroutine (via internal/panicerr.Recover, kept
// from the teacher's isolate.go pattern) and fails the test if it doesn't
// return within d. Used to bound tests of programs with `while` loops that
// a compiler bug might turn infinite (SPEC_FULL.md §6.5, §9).
func runWithTimeout(t *testing.T, d time.Duration, f func()) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- panicerr.Recover(t.Name(), func() error { f(); return nil }) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("unexpected panic: %+v", err)
		}
	case <-ctx.Done():
		t.Fatalf("test did not complete within %s", d)
	}
}
