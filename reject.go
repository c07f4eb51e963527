package gitfs

import (
	"io/fs"
	"os"

	"github.com/jmgilman/gitfs/fs/core"
	"github.com/jmgilman/gitfs/mount"
)

// writeFlags are the OpenFile flags that modify the filesystem.
const writeFlags = os.O_WRONLY | os.O_RDWR | os.O_APPEND | os.O_CREATE | os.O_TRUNC

// Create is rejected.
func (f *FS) Create(name string) (core.File, error) {
	return nil, mount.RejectWrite("create", name)
}

// Append is rejected.
func (f *FS) Append(name string) (core.File, error) {
	return nil, mount.RejectWrite("append", name)
}

// WriteFile is rejected.
func (f *FS) WriteFile(name string, _ []byte, _ fs.FileMode) error {
	return mount.RejectWrite("writefile", name)
}

// Mkdir is rejected.
func (f *FS) Mkdir(name string, _ fs.FileMode) error {
	return mount.RejectWrite("mkdir", name)
}

// MkdirAll is rejected.
func (f *FS) MkdirAll(name string, _ fs.FileMode) error {
	return mount.RejectWrite("mkdirall", name)
}

// Mkdirs is rejected.
func (f *FS) Mkdirs(name string, _ fs.FileMode) error {
	return mount.RejectWrite("mkdirs", name)
}

// Remove is rejected.
func (f *FS) Remove(name string) error {
	return mount.RejectWrite("remove", name)
}

// RemoveAll is rejected.
func (f *FS) RemoveAll(name string) error {
	return mount.RejectWrite("removeall", name)
}

// Delete is rejected.
func (f *FS) Delete(name string, _ bool) error {
	return mount.RejectWrite("delete", name)
}

// Rename is rejected.
func (f *FS) Rename(oldpath, _ string) error {
	return mount.RejectWrite("rename", oldpath)
}

// Symlink is rejected.
func (f *FS) Symlink(_, newname string) error {
	return mount.RejectWrite("symlink", newname)
}

// SetWorkingDirectory is rejected.
func (f *FS) SetWorkingDirectory(dir string) error {
	return mount.RejectWrite("setworkingdirectory", dir)
}

var (
	_ core.FS        = (*FS)(nil)
	_ core.SymlinkFS = (*FS)(nil)
	_ ReadableMount  = (*FS)(nil)
	_ WriteRejecting = (*FS)(nil)
	_ ReadableMount  = (*mount.Handle)(nil)
	_ WriteRejecting = (*mount.Handle)(nil)
)
