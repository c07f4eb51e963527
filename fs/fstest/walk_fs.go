package fstest

import (
	"errors"
	"io/fs"
	"testing"

	"github.com/jmgilman/gitfs/fs/core"
)

// TestWalkFS checks lexical ordering, SkipDir and missing roots.
func TestWalkFS(t *testing.T, filesystem core.FS, cfg Config) {
	mustMkdirAll(t, filesystem, "walkroot/b")
	mustMkdirAll(t, filesystem, "walkroot/a")
	mustWrite(t, filesystem, "walkroot/z.txt", []byte("z"))
	mustWrite(t, filesystem, "walkroot/a/1.txt", []byte("1"))
	mustWrite(t, filesystem, "walkroot/b/2.txt", []byte("2"))

	t.Run("Order", func(t *testing.T) {
		if cfg.skip(t, "WalkFS/Order") {
			return
		}
		want := []string{
			"walkroot",
			"walkroot/a",
			"walkroot/a/1.txt",
			"walkroot/b",
			"walkroot/b/2.txt",
			"walkroot/z.txt",
		}
		got := collectWalk(t, filesystem, "walkroot", nil)
		assertPaths(t, got, want)
	})

	t.Run("SkipDir", func(t *testing.T) {
		if cfg.skip(t, "WalkFS/SkipDir") {
			return
		}
		got := collectWalk(t, filesystem, "walkroot", func(p string, d fs.DirEntry) error {
			if d.IsDir() && p == "walkroot/a" {
				return fs.SkipDir
			}
			return nil
		})
		assertPaths(t, got, []string{"walkroot", "walkroot/a", "walkroot/b", "walkroot/b/2.txt", "walkroot/z.txt"})
	})

	t.Run("MissingRoot", func(t *testing.T) {
		if cfg.skip(t, "WalkFS/MissingRoot") {
			return
		}
		var seen error
		err := filesystem.Walk("missing", func(_ string, _ fs.DirEntry, err error) error {
			seen = err
			return err
		})
		if !errors.Is(seen, fs.ErrNotExist) || !errors.Is(err, fs.ErrNotExist) {
			t.Errorf("Walk(%q): got callback error %v and result %v, want fs.ErrNotExist", "missing", seen, err)
		}
	})
}

func collectWalk(t *testing.T, filesystem core.WalkFS, root string, hook func(string, fs.DirEntry) error) []string {
	t.Helper()
	var visited []string
	err := filesystem.Walk(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		visited = append(visited, p)
		if hook != nil {
			return hook(p, d)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Walk(%q): got error %v, want nil", root, err)
	}
	return visited
}

func assertPaths(t *testing.T, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Errorf("visited %v, want %v", got, want)
		return
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("path[%d] = %q, want %q (visited %v)", i, got[i], want[i], got)
		}
	}
}
