package fstest

import (
	"errors"
	"os"
	"path"
	"testing"

	"github.com/jmgilman/gitfs/fs/core"
)

// TestReadOnly checks a read-only provider that already serves files under
// root. Reads must succeed through CheckTree; every mutation must fail with
// core.ErrReadOnly and leave the served tree unchanged.
func TestReadOnly(t *testing.T, filesystem core.FS, root string, files map[string][]byte) {
	t.Run("Read", func(t *testing.T) {
		CheckTree(t, filesystem, root, files)
	})

	var existing string
	for name := range files {
		existing = path.Join(root, name)
		break
	}
	fresh := path.Join(root, "fresh.txt")

	mutations := []struct {
		name string
		op   func() error
	}{
		{"Create", func() error { _, err := filesystem.Create(fresh); return err }},
		{"OpenFileWrite", func() error {
			_, err := filesystem.OpenFile(existing, os.O_WRONLY|os.O_TRUNC, 0o644)
			return err
		}},
		{"WriteFile", func() error { return filesystem.WriteFile(existing, []byte("clobbered"), 0o644) }},
		{"Mkdir", func() error { return filesystem.Mkdir(path.Join(root, "newdir"), 0o755) }},
		{"MkdirAll", func() error { return filesystem.MkdirAll(path.Join(root, "a/b"), 0o755) }},
		{"Remove", func() error { return filesystem.Remove(existing) }},
		{"RemoveAll", func() error { return filesystem.RemoveAll(root) }},
		{"Rename", func() error { return filesystem.Rename(existing, fresh) }},
	}
	if sfs, ok := filesystem.(core.SymlinkFS); ok {
		mutations = append(mutations, struct {
			name string
			op   func() error
		}{"Symlink", func() error { return sfs.Symlink(existing, fresh) }})
	}

	for _, m := range mutations {
		t.Run("Reject/"+m.name, func(t *testing.T) {
			if err := m.op(); !errors.Is(err, core.ErrReadOnly) {
				t.Errorf("%s: got error %v, want core.ErrReadOnly", m.name, err)
			}
		})
	}

	t.Run("Untouched", func(t *testing.T) {
		if exists, _ := filesystem.Exists(fresh); exists {
			t.Errorf("Exists(%q) after rejected writes: got true, want false", fresh)
		}
		CheckTree(t, filesystem, root, files)
	})
}
