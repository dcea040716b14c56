// Package assert provides a single invariant-checking helper used across the
// storage engine in place of scattered panic() calls. It exists for bugs in
// our own bookkeeping, never for validating caller-supplied input.
package assert

import "fmt"

// Assert panics with a formatted message when cond is false. Reserve it for
// conditions that indicate corrupted internal state (a page missing from the
// page table, a pin count gone negative, a queue entry in an impossible
// state) — never for rejecting bad input from a caller, which should return
// an error instead.
func Assert(cond bool, format string, args ...any) {
	if cond {
		return
	}
	panic(fmt.Sprintf(format, args...))
}
