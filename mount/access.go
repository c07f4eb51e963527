package mount

import (
	"io/fs"
	"os"
	"strings"

	"github.com/jmgilman/gitfs/errors"
	"github.com/jmgilman/gitfs/fs/core"
)

// resolve validates name, records the access and returns the in-repository
// path to delegate to.
func (h *Handle) resolve(op, name string) (string, error) {
	rel, ok := h.inRepo(name)
	if !ok {
		return "", &fs.PathError{Op: op, Path: name, Err: fs.ErrNotExist}
	}
	if err := h.Touch(h.base); err != nil {
		return "", err
	}
	return rel, nil
}

// Type returns core.FSTypeMount.
func (h *Handle) Type() core.FSType {
	return core.FSTypeMount
}

// Open opens the named file for reading.
func (h *Handle) Open(name string) (fs.File, error) {
	rel, err := h.resolve("open", name)
	if err != nil {
		return nil, err
	}
	return h.fs.Open(rel)
}

// Stat returns file metadata, following symbolic links.
func (h *Handle) Stat(name string) (fs.FileInfo, error) {
	rel, err := h.resolve("stat", name)
	if err != nil {
		return nil, err
	}
	return h.fs.Stat(rel)
}

// Lstat returns file metadata without following symbolic links.
func (h *Handle) Lstat(name string) (fs.FileInfo, error) {
	rel, err := h.resolve("lstat", name)
	if err != nil {
		return nil, err
	}
	return h.fs.Lstat(rel)
}

// ReadDir lists a directory of the working copy.
func (h *Handle) ReadDir(name string) ([]fs.DirEntry, error) {
	rel, err := h.resolve("readdir", name)
	if err != nil {
		return nil, err
	}
	entries, err := h.fs.ReadDir(rel)
	if err != nil {
		return nil, err
	}
	if rel != "." {
		return entries, nil
	}

	visible := entries[:0:0]
	for _, e := range entries {
		if e.Name() != ".git" {
			visible = append(visible, e)
		}
	}
	return visible, nil
}

// ReadFile reads the named file.
func (h *Handle) ReadFile(name string) ([]byte, error) {
	rel, err := h.resolve("readfile", name)
	if err != nil {
		return nil, err
	}
	return h.fs.ReadFile(rel)
}

// Exists reports whether the named entry exists in the working copy.
func (h *Handle) Exists(name string) (bool, error) {
	rel, ok := h.inRepo(name)
	if !ok {
		return false, nil
	}
	if err := h.Touch(h.base); err != nil {
		return false, err
	}
	return h.fs.Exists(rel)
}

// Readlink returns the raw target of a symbolic link.
func (h *Handle) Readlink(name string) (string, error) {
	rel, err := h.resolve("readlink", name)
	if err != nil {
		return "", err
	}
	return h.fs.Readlink(rel)
}

// Walk walks the working copy below root. Paths passed to walkFn are
// virtual URIs when root is one, and in-repository paths otherwise.
func (h *Handle) Walk(root string, walkFn fs.WalkDirFunc) error {
	rel, err := h.resolve("walk", root)
	if err != nil {
		return walkFn(root, nil, err)
	}

	virtual := strings.Contains(root, "://")
	return h.fs.Walk(rel, func(p string, d fs.DirEntry, err error) error {
		if p == ".git" && d != nil && d.IsDir() {
			return fs.SkipDir
		}
		if virtual {
			p, _ = h.ToVirtual(h.localPath(p))
		}
		return walkFn(p, d, err)
	})
}

// FileStatus describes one entry. Path and Symlink are virtual.
func (h *Handle) FileStatus(name string) (core.FileStatus, error) {
	rel, err := h.resolve("filestatus", name)
	if err != nil {
		return core.FileStatus{}, err
	}
	info, err := h.fs.Lstat(rel)
	if err != nil {
		return core.FileStatus{}, err
	}
	return h.status(rel, info), nil
}

// ListStatus describes the children of a directory, or the entry itself
// when name is not a directory.
func (h *Handle) ListStatus(name string) ([]core.FileStatus, error) {
	rel, err := h.resolve("liststatus", name)
	if err != nil {
		return nil, err
	}

	info, err := h.fs.Stat(rel)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		linfo, err := h.fs.Lstat(rel)
		if err != nil {
			return nil, err
		}
		return []core.FileStatus{h.status(rel, linfo)}, nil
	}

	entries, err := h.fs.ReadDir(rel)
	if err != nil {
		return nil, err
	}
	statuses := make([]core.FileStatus, 0, len(entries))
	for _, e := range entries {
		if rel == "." && e.Name() == ".git" {
			continue
		}
		child := e.Name()
		if rel != "." {
			child = rel + "/" + e.Name()
		}
		cinfo, err := h.fs.Lstat(child)
		if err != nil {
			return nil, err
		}
		statuses = append(statuses, h.status(child, cinfo))
	}
	return statuses, nil
}

func (h *Handle) status(rel string, info fs.FileInfo) core.FileStatus {
	v, _ := h.ToVirtual(h.localPath(rel))
	st := core.StatusOf(v, info)
	if info.Mode()&fs.ModeSymlink != 0 {
		st.Symlink = h.symlinkTarget(rel)
	}
	return st
}

// RejectWrite returns the error every mutating operation of a mount fails
// with. It wraps core.ErrReadOnly and carries CodeReadOnly.
func RejectWrite(op, name string) error {
	return errors.WithContext(
		errors.Wrapf(core.ErrReadOnly, errors.CodeReadOnly, "%s %s", op, name),
		"op", op,
	)
}

// writeFlags are the OpenFile flags that modify the filesystem.
const writeFlags = os.O_WRONLY | os.O_RDWR | os.O_APPEND | os.O_CREATE | os.O_TRUNC

// Create is rejected.
func (h *Handle) Create(name string) (core.File, error) {
	return nil, RejectWrite("create", name)
}

// OpenFile opens name for reading; any flag that writes is rejected.
func (h *Handle) OpenFile(name string, flag int, perm fs.FileMode) (core.File, error) {
	if flag&writeFlags != 0 {
		return nil, RejectWrite("openfile", name)
	}
	rel, err := h.resolve("openfile", name)
	if err != nil {
		return nil, err
	}
	return h.fs.OpenFile(rel, flag, perm)
}

// Append is rejected.
func (h *Handle) Append(name string) (core.File, error) {
	return nil, RejectWrite("append", name)
}

// WriteFile is rejected.
func (h *Handle) WriteFile(name string, _ []byte, _ fs.FileMode) error {
	return RejectWrite("writefile", name)
}

// Mkdir is rejected.
func (h *Handle) Mkdir(name string, _ fs.FileMode) error {
	return RejectWrite("mkdir", name)
}

// MkdirAll is rejected.
func (h *Handle) MkdirAll(name string, _ fs.FileMode) error {
	return RejectWrite("mkdirall", name)
}

// Mkdirs is rejected.
func (h *Handle) Mkdirs(name string, _ fs.FileMode) error {
	return RejectWrite("mkdirs", name)
}

// Remove is rejected.
func (h *Handle) Remove(name string) error {
	return RejectWrite("remove", name)
}

// RemoveAll is rejected.
func (h *Handle) RemoveAll(name string) error {
	return RejectWrite("removeall", name)
}

// Delete is rejected.
func (h *Handle) Delete(name string, _ bool) error {
	return RejectWrite("delete", name)
}

// Rename is rejected.
func (h *Handle) Rename(oldpath, _ string) error {
	return RejectWrite("rename", oldpath)
}

// Symlink is rejected.
func (h *Handle) Symlink(_, newname string) error {
	return RejectWrite("symlink", newname)
}

// SetWorkingDirectory is rejected: a mount is rooted at its virtual base.
func (h *Handle) SetWorkingDirectory(dir string) error {
	return RejectWrite("setworkingdirectory", dir)
}

var (
	_ core.ReadFS     = (*Handle)(nil)
	_ core.WriteFS    = (*Handle)(nil)
	_ core.ManageFS   = (*Handle)(nil)
	_ core.WalkFS     = (*Handle)(nil)
	_ core.MetadataFS = (*Handle)(nil)
	_ core.SymlinkFS  = (*Handle)(nil)
	_ core.StatusFS   = (*Handle)(nil)
)
