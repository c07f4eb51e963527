package fstest

import (
	"testing"

	"github.com/jmgilman/gitfs/fs/core"
)

// TestChrootFS checks that a chrooted view shares storage with its parent
// and resolves names relative to the new root.
func TestChrootFS(t *testing.T, filesystem core.FS, cfg Config) {
	mustMkdirAll(t, filesystem, "jail/inner")
	mustWrite(t, filesystem, "jail/inner/file.txt", []byte("inside"))
	mustWrite(t, filesystem, "outside.txt", []byte("outside"))

	sub, err := filesystem.Chroot("jail")
	if err != nil {
		t.Fatalf("Chroot(%q): got error %v, want nil", "jail", err)
	}

	t.Run("ReadThrough", func(t *testing.T) {
		if cfg.skip(t, "ChrootFS/ReadThrough") {
			return
		}
		assertContent(t, sub, "inner/file.txt", []byte("inside"))
		if exists, _ := sub.Exists("outside.txt"); exists {
			t.Errorf("Exists(%q) in chroot: got true, want false", "outside.txt")
		}
	})

	t.Run("WriteVisibleInParent", func(t *testing.T) {
		if cfg.skip(t, "ChrootFS/WriteVisibleInParent") {
			return
		}
		mustWrite(t, sub, "new.txt", []byte("from chroot"))
		assertContent(t, filesystem, "jail/new.txt", []byte("from chroot"))
	})

	t.Run("Nested", func(t *testing.T) {
		if cfg.skip(t, "ChrootFS/Nested") {
			return
		}
		nested, err := sub.Chroot("inner")
		if err != nil {
			t.Fatalf("Chroot(%q): got error %v, want nil", "inner", err)
		}
		assertContent(t, nested, "file.txt", []byte("inside"))
	})
}
