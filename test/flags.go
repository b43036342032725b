package test

import "testing"

// MarkAsLong skips t when -test.short is set.
// Runs against a fake upstream or real timeouts are long.
func MarkAsLong(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping long test in short mode")
	}
}
