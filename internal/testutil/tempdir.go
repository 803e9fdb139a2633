package testutil

import "testing"

// TempDir wraps t.TempDir so database-backed tests share one setup point.
func TempDir(t testing.TB) string {
	t.Helper()
	return t.TempDir()
}
