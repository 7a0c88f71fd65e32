// Package testutils holds small fixtures shared across this module's
// test files.
package testutils

import (
	"path/filepath"
	"testing"
)

// SetupTestDBPath returns a temporary database path for testing
func SetupTestDBPath(t *testing.T) string {
	tmpDir := t.TempDir()
	return filepath.Join(tmpDir, "test.db")
}

