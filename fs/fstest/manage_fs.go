package fstest

import (
	"errors"
	"io/fs"
	"testing"

	"github.com/jmgilman/gitfs/fs/core"
)

// TestManageFS checks Remove, RemoveAll and Rename.
func TestManageFS(t *testing.T, filesystem core.FS, cfg Config) {
	t.Run("Remove", func(t *testing.T) {
		if cfg.skip(t, "ManageFS/Remove") {
			return
		}
		mustWrite(t, filesystem, "remove.txt", []byte("x"))
		if err := filesystem.Remove("remove.txt"); err != nil {
			t.Fatalf("Remove(%q): got error %v, want nil", "remove.txt", err)
		}
		if _, err := filesystem.Stat("remove.txt"); !errors.Is(err, fs.ErrNotExist) {
			t.Errorf("Stat(%q) after Remove: got error %v, want fs.ErrNotExist", "remove.txt", err)
		}
		if err := filesystem.Remove("remove.txt"); !errors.Is(err, fs.ErrNotExist) {
			t.Errorf("Remove(%q) again: got error %v, want fs.ErrNotExist", "remove.txt", err)
		}
	})

	t.Run("RemoveAll", func(t *testing.T) {
		if cfg.skip(t, "ManageFS/RemoveAll") {
			return
		}
		mustMkdirAll(t, filesystem, "tree/sub")
		mustWrite(t, filesystem, "tree/sub/leaf.txt", []byte("leaf"))
		mustWrite(t, filesystem, "tree/root.txt", []byte("root"))

		if err := filesystem.RemoveAll("tree"); err != nil {
			t.Fatalf("RemoveAll(%q): got error %v, want nil", "tree", err)
		}
		if exists, _ := filesystem.Exists("tree"); exists {
			t.Errorf("Exists(%q) after RemoveAll: got true, want false", "tree")
		}
		if err := filesystem.RemoveAll("tree"); err != nil {
			t.Errorf("RemoveAll(%q) on missing path: got error %v, want nil", "tree", err)
		}
	})

	t.Run("Rename", func(t *testing.T) {
		if cfg.skip(t, "ManageFS/Rename") {
			return
		}
		mustWrite(t, filesystem, "old.txt", []byte("moved"))
		if err := filesystem.Rename("old.txt", "new.txt"); err != nil {
			t.Fatalf("Rename: got error %v, want nil", err)
		}
		if exists, _ := filesystem.Exists("old.txt"); exists {
			t.Errorf("Exists(%q) after Rename: got true, want false", "old.txt")
		}
		assertContent(t, filesystem, "new.txt", []byte("moved"))
	})
}
