package fstest_test

import (
	"io/fs"
	"path"
	"testing"

	"github.com/jmgilman/gitfs/fs/billy"
	"github.com/jmgilman/gitfs/fs/core"
	"github.com/jmgilman/gitfs/fs/fstest"
)

// readOnly rejects every mutation of an underlying filesystem.
type readOnly struct {
	core.FS
}

func reject(op, name string) error {
	return &fs.PathError{Op: op, Path: name, Err: core.ErrReadOnly}
}

func (r readOnly) Create(name string) (core.File, error) { return nil, reject("create", name) }
func (r readOnly) OpenFile(name string, _ int, _ fs.FileMode) (core.File, error) {
	return nil, reject("open", name)
}
func (r readOnly) WriteFile(name string, _ []byte, _ fs.FileMode) error {
	return reject("write", name)
}
func (r readOnly) Mkdir(name string, _ fs.FileMode) error    { return reject("mkdir", name) }
func (r readOnly) MkdirAll(name string, _ fs.FileMode) error { return reject("mkdir", name) }
func (r readOnly) Remove(name string) error                  { return reject("remove", name) }
func (r readOnly) RemoveAll(name string) error               { return reject("remove", name) }
func (r readOnly) Rename(oldpath, _ string) error            { return reject("rename", oldpath) }

func TestReadOnly(t *testing.T) {
	files := map[string][]byte{
		"readme.md":      []byte("# hello"),
		"docs/guide.md":  []byte("guide"),
		"docs/img/a.txt": []byte("a"),
	}

	mem := billy.NewMemory()
	for name, data := range files {
		if err := mem.MkdirAll(path.Join("mnt", path.Dir(name)), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := mem.WriteFile("mnt/"+name, data, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	fstest.TestReadOnly(t, readOnly{FS: mem}, "mnt", files)
}

func TestSuite_Memory(t *testing.T) {
	fstest.TestSuite(t, func() core.FS { return billy.NewMemory() }, fstest.Config{
		SkipTests: []string{"TempFS"},
	})
}
