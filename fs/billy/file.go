package billy

import (
	"io"
	"io/fs"

	"github.com/go-git/go-billy/v5"

	"github.com/jmgilman/gitfs/fs/core"
)

// File wraps billy.File to implement core.File. It keeps the name it was
// opened with because billy backends disagree on what Name returns.
type File struct {
	file billy.File
	fs   billy.Basic
	name string
}

func (f *File) Read(p []byte) (int, error) {
	return f.file.Read(p)
}

// ReadAt lets FUSE serve random-access reads without seeking.
func (f *File) ReadAt(p []byte, off int64) (int, error) {
	return f.file.ReadAt(p, off)
}

func (f *File) Write(p []byte) (int, error) {
	return f.file.Write(p)
}

func (f *File) Seek(offset int64, whence int) (int64, error) {
	return f.file.Seek(offset, whence)
}

func (f *File) Close() error {
	return f.file.Close()
}

// Stat asks the filesystem, since billy.File has no Stat of its own.
func (f *File) Stat() (fs.FileInfo, error) {
	return f.fs.Stat(f.name)
}

func (f *File) Name() string {
	return f.name
}

var (
	_ core.File   = (*File)(nil)
	_ io.ReaderAt = (*File)(nil)
	_ io.Seeker   = (*File)(nil)
)
