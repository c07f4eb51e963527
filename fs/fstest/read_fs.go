package fstest

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"path"
	"sort"
	"testing"

	"github.com/jmgilman/gitfs/fs/core"
)

// TestReadFS seeds filesystem with a small tree and checks it with CheckTree.
func TestReadFS(t *testing.T, filesystem core.FS, _ Config) {
	files := map[string][]byte{
		"testdir/testfile.txt":      []byte("test file content"),
		"testdir/nested/deeper.txt": []byte("deeper"),
		"top.txt":                   []byte("top"),
	}
	for name, data := range files {
		mustMkdirAll(t, filesystem, path.Dir(name))
		mustWrite(t, filesystem, name, data)
	}

	CheckTree(t, filesystem, ".", files)
}

// CheckTree verifies that filesystem serves files (paths relative to root)
// through every ReadFS method, that each parent directory lists exactly
// the expected children, and that a missing name reports fs.ErrNotExist.
func CheckTree(t *testing.T, filesystem core.ReadFS, root string, files map[string][]byte) {
	t.Helper()

	dirs := map[string]map[string]bool{}
	for name := range files {
		child := name
		for dir := path.Dir(name); ; dir = path.Dir(dir) {
			if dirs[dir] == nil {
				dirs[dir] = map[string]bool{}
			}
			dirs[dir][path.Base(child)] = true
			if dir == "." {
				break
			}
			child = dir
		}
	}

	for name, want := range files {
		full := path.Join(root, name)
		t.Run("File/"+name, func(t *testing.T) {
			checkFile(t, filesystem, full, want)
		})
	}

	for dir, children := range dirs {
		full := path.Join(root, dir)
		t.Run("Dir/"+dir, func(t *testing.T) {
			checkDir(t, filesystem, full, children)
		})
	}

	t.Run("NotExist", func(t *testing.T) {
		missing := path.Join(root, "does-not-exist.txt")
		if _, err := filesystem.Open(missing); !errors.Is(err, fs.ErrNotExist) {
			t.Errorf("Open(%q): got error %v, want fs.ErrNotExist", missing, err)
		}
		if _, err := filesystem.Stat(missing); !errors.Is(err, fs.ErrNotExist) {
			t.Errorf("Stat(%q): got error %v, want fs.ErrNotExist", missing, err)
		}
		exists, err := filesystem.Exists(missing)
		if err != nil || exists {
			t.Errorf("Exists(%q): got (%v, %v), want (false, nil)", missing, exists, err)
		}
	})
}

func checkFile(t *testing.T, filesystem core.ReadFS, name string, want []byte) {
	data, err := filesystem.ReadFile(name)
	if err != nil {
		t.Errorf("ReadFile(%q): got error %v, want nil", name, err)
	} else if !bytes.Equal(data, want) {
		t.Errorf("ReadFile(%q): got %q, want %q", name, data, want)
	}

	f, err := filesystem.Open(name)
	if err != nil {
		t.Errorf("Open(%q): got error %v, want nil", name, err)
		return
	}
	data, err = io.ReadAll(f)
	if closeErr := f.Close(); closeErr != nil {
		t.Errorf("Close(%q): got error %v", name, closeErr)
	}
	if err != nil || !bytes.Equal(data, want) {
		t.Errorf("Open(%q) read: got (%q, %v), want %q", name, data, err, want)
	}

	info, err := filesystem.Stat(name)
	if err != nil {
		t.Errorf("Stat(%q): got error %v, want nil", name, err)
		return
	}
	if info.IsDir() {
		t.Errorf("Stat(%q): IsDir() = true, want false", name)
	}
	if info.Size() != int64(len(want)) {
		t.Errorf("Stat(%q): Size() = %d, want %d", name, info.Size(), len(want))
	}

	exists, err := filesystem.Exists(name)
	if err != nil || !exists {
		t.Errorf("Exists(%q): got (%v, %v), want (true, nil)", name, exists, err)
	}
}

func checkDir(t *testing.T, filesystem core.ReadFS, name string, children map[string]bool) {
	info, err := filesystem.Stat(name)
	if err != nil {
		t.Errorf("Stat(%q): got error %v, want nil", name, err)
		return
	}
	if !info.IsDir() {
		t.Errorf("Stat(%q): IsDir() = false, want true", name)
	}

	entries, err := filesystem.ReadDir(name)
	if err != nil {
		t.Errorf("ReadDir(%q): got error %v, want nil", name, err)
		return
	}

	var got, want []string
	for _, e := range entries {
		got = append(got, e.Name())
	}
	for c := range children {
		want = append(want, c)
	}
	sort.Strings(want)
	if !sort.StringsAreSorted(got) {
		t.Errorf("ReadDir(%q): entries not sorted: %v", name, got)
	}
	sort.Strings(got)
	if len(got) != len(want) {
		t.Errorf("ReadDir(%q): got %v, want %v", name, got, want)
		return
	}
	for i := range got {
		if got[i] != want[i] {
			t.Errorf("ReadDir(%q): got %v, want %v", name, got, want)
			return
		}
	}
}
