package fuse

import (
	"context"
	"io/fs"
	"log/slog"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/jmgilman/gitfs"
	"github.com/jmgilman/gitfs/errors"
)

// addressesMount reports whether p is inside a repository branch, as
// opposed to a directory level above one.
func addressesMount(fsys *gitfs.FS, p string) bool {
	return fsys.Cache().Resolve(p).Validate() == nil
}

// modeType converts the type bits of an io/fs mode to S_IF bits.
func modeType(m fs.FileMode) uint32 {
	switch {
	case m&fs.ModeDir != 0:
		return syscall.S_IFDIR
	case m&fs.ModeSymlink != 0:
		return syscall.S_IFLNK
	default:
		return syscall.S_IFREG
	}
}

// fillAttr copies info into out with write permission removed.
func fillAttr(info fs.FileInfo, out *fuse.Attr) {
	out.Mode = modeType(info.Mode()) | uint32(info.Mode().Perm())&readOnly
	out.Size = uint64(info.Size())
	out.Blocks = (out.Size + 511) / 512
	mtime := info.ModTime()
	out.SetTimes(&mtime, &mtime, &mtime)
	out.Nlink = 1
	if info.IsDir() {
		out.Nlink = 2
	}
}

// errno maps a filesystem error to the errno reported to the kernel.
func errno(err error) syscall.Errno {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, fs.ErrNotExist):
		return syscall.ENOENT
	case errors.Is(err, fs.ErrPermission) && !errors.IsReadOnly(err):
		return syscall.EACCES
	}

	switch errors.GetCode(err) {
	case errors.CodeReadOnly:
		return syscall.EROFS
	case errors.CodeNotFound:
		return syscall.ENOENT
	case errors.CodeInvalidInput:
		return syscall.EINVAL
	case errors.CodeUnavailable:
		return syscall.EAGAIN
	case errors.CodeTimeout:
		return syscall.ETIMEDOUT
	case errors.CodeUnauthorized:
		return syscall.EACCES
	default:
		return syscall.EIO
	}
}

// toErrno logs unexpected failures and maps err with errno.
func toErrno(options *Options, op, p string, err error) syscall.Errno {
	e := errno(err)
	if e != syscall.ENOENT {
		options.Logger.Log(context.Background(), levelFor(e), "fuse operation failed", "op", op, "path", p, "error", err)
	}
	return e
}

func levelFor(e syscall.Errno) slog.Level {
	if e == syscall.EIO {
		return slog.LevelError
	}
	return slog.LevelWarn
}
