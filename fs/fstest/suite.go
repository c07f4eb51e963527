// Package fstest provides conformance checks for core.FS providers.
//
// Writable providers (the local-disk adapter) run TestSuite with a factory
// returning a fresh, empty filesystem:
//
//	func TestLocal(t *testing.T) {
//	    fstest.TestSuite(t, func() core.FS { return newEmptyFS(t) }, fstest.Config{})
//	}
//
// Read-only providers (the gitfs router, a mount handle) are checked
// against a tree they already serve with TestReadOnly, which also verifies
// that every mutation is rejected with core.ErrReadOnly and leaves the
// tree intact.
package fstest

import (
	"slices"
	"testing"

	"github.com/jmgilman/gitfs/fs/core"
)

// Config adapts the suite to a provider.
type Config struct {
	// SkipTests lists test groups or subtests to skip, e.g. "WriteFS/Mkdir".
	SkipTests []string
}

func (c Config) skip(t *testing.T, name string) bool {
	t.Helper()
	if slices.Contains(c.SkipTests, name) {
		t.Skip("skipped by provider configuration")
		return true
	}
	return false
}

// TestSuite runs every conformance group against fresh filesystems from newFS.
func TestSuite(t *testing.T, newFS func() core.FS, cfg Config) {
	groups := []struct {
		name string
		run  func(*testing.T, core.FS, Config)
	}{
		{"ReadFS", TestReadFS},
		{"WriteFS", TestWriteFS},
		{"ManageFS", TestManageFS},
		{"WalkFS", TestWalkFS},
		{"ChrootFS", TestChrootFS},
		{"SymlinkFS", TestSymlinkFS},
		{"TempFS", TestTempFS},
	}

	for _, g := range groups {
		t.Run(g.name, func(t *testing.T) {
			if cfg.skip(t, g.name) {
				return
			}
			g.run(t, newFS(), cfg)
		})
	}
}

func mustWrite(t *testing.T, filesystem core.FS, name string, data []byte) {
	t.Helper()
	if err := filesystem.WriteFile(name, data, 0o644); err != nil {
		t.Fatalf("WriteFile(%q): setup failed: %v", name, err)
	}
}

func mustMkdirAll(t *testing.T, filesystem core.FS, name string) {
	t.Helper()
	if err := filesystem.MkdirAll(name, 0o755); err != nil {
		t.Fatalf("MkdirAll(%q): setup failed: %v", name, err)
	}
}
