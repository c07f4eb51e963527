package fstest

import (
	"io/fs"
	"testing"

	"github.com/jmgilman/gitfs/fs/core"
)

// TestSymlinkFS checks Symlink, Readlink and Lstat. Skips providers that
// do not implement core.SymlinkFS.
func TestSymlinkFS(t *testing.T, filesystem core.FS, cfg Config) {
	sfs, ok := filesystem.(core.SymlinkFS)
	if !ok {
		t.Skip("SymlinkFS not supported")
		return
	}

	mustWrite(t, filesystem, "target.txt", []byte("target content"))
	if err := sfs.Symlink("target.txt", "link.txt"); err != nil {
		t.Fatalf("Symlink(target.txt, link.txt): got error %v, want nil", err)
	}

	t.Run("Readlink", func(t *testing.T) {
		if cfg.skip(t, "SymlinkFS/Readlink") {
			return
		}
		target, err := sfs.Readlink("link.txt")
		if err != nil || target != "target.txt" {
			t.Errorf("Readlink(link.txt): got (%q, %v), want (%q, nil)", target, err, "target.txt")
		}
	})

	t.Run("ReadThrough", func(t *testing.T) {
		if cfg.skip(t, "SymlinkFS/ReadThrough") {
			return
		}
		assertContent(t, filesystem, "link.txt", []byte("target content"))
	})

	t.Run("Lstat", func(t *testing.T) {
		if cfg.skip(t, "SymlinkFS/Lstat") {
			return
		}
		mfs, ok := filesystem.(core.MetadataFS)
		if !ok {
			t.Skip("MetadataFS not supported")
			return
		}
		info, err := mfs.Lstat("link.txt")
		if err != nil {
			t.Fatalf("Lstat(link.txt): got error %v, want nil", err)
		}
		if info.Mode()&fs.ModeSymlink == 0 {
			t.Errorf("Lstat(link.txt): mode %v lacks ModeSymlink", info.Mode())
		}
		info, err = filesystem.Stat("link.txt")
		if err != nil || info.Mode()&fs.ModeSymlink != 0 {
			t.Errorf("Stat(link.txt): got (%v, %v), want the target's info", info, err)
		}
	})
}
