package billy

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	securejoin "github.com/cyphar/filepath-securejoin"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"

	"github.com/jmgilman/gitfs/fs/core"
)

// FS implements core.FS and the optional MetadataFS, SymlinkFS and TempFS
// capabilities on top of a billy.Filesystem.
type FS struct {
	bfs    billy.Filesystem
	fsType core.FSType
}

// New wraps an existing billy filesystem.
func New(bfs billy.Filesystem, fsType core.FSType) *FS {
	return &FS{bfs: bfs, fsType: fsType}
}

// NewLocal returns a disk-backed filesystem rooted at root. Paths, and
// symbolic links met while resolving them, cannot leave root: a link whose
// target climbs out is resolved as if root were "/".
func NewLocal(root string) *FS {
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	return New(osfs.New(root, osfs.WithBoundOS()), core.FSTypeLocal)
}

// NewMemory returns an empty in-memory filesystem.
func NewMemory() *FS {
	return New(memfs.New(), core.FSTypeMemory)
}

// Unwrap returns the underlying billy.Filesystem for go-git integration.
func (f *FS) Unwrap() billy.Filesystem {
	return f.bfs
}

// Root returns the absolute location of the filesystem root on its backend.
func (f *FS) Root() string {
	return f.bfs.Root()
}

// Unwrap returns the billy filesystem behind filesystem, or nil when it is
// not backed by this package.
func Unwrap(filesystem core.FS) billy.Filesystem {
	if f, ok := filesystem.(*FS); ok {
		return f.bfs
	}
	return nil
}

// Type returns the filesystem type given at construction.
func (f *FS) Type() core.FSType {
	return f.fsType
}

func normalize(name string) string {
	return filepath.ToSlash(filepath.Clean(name))
}

// relative turns an absolute name under the root, as bound filesystems
// report for temporary files, into a root-relative one.
func (f *FS) relative(name string) string {
	if filepath.IsAbs(name) {
		if rel, err := filepath.Rel(f.bfs.Root(), name); err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			name = rel
		}
	}
	return normalize(name)
}

type dirEntry struct {
	info fs.FileInfo
}

func (d *dirEntry) Name() string               { return d.info.Name() }
func (d *dirEntry) IsDir() bool                { return d.info.IsDir() }
func (d *dirEntry) Type() fs.FileMode          { return d.info.Mode().Type() }
func (d *dirEntry) Info() (fs.FileInfo, error) { return d.info, nil }
func (d *dirEntry) String() string             { return fs.FormatDirEntry(d) }

func (f *FS) wrapFile(bf billy.File, name string) *File {
	return &File{file: bf, fs: f.bfs, name: name}
}

// Open opens the named file for reading.
func (f *FS) Open(name string) (fs.File, error) {
	name = normalize(name)
	bf, err := f.bfs.Open(name)
	if err != nil {
		return nil, err
	}
	return f.wrapFile(bf, name), nil
}

// Stat returns file metadata, following symbolic links.
func (f *FS) Stat(name string) (fs.FileInfo, error) {
	return f.bfs.Stat(normalize(name))
}

// Lstat returns file metadata without following symbolic links.
func (f *FS) Lstat(name string) (fs.FileInfo, error) {
	return f.bfs.Lstat(normalize(name))
}

// ReadDir returns the entries of the named directory sorted by filename.
func (f *FS) ReadDir(name string) ([]fs.DirEntry, error) {
	infos, err := f.bfs.ReadDir(normalize(name))
	if err != nil {
		return nil, err
	}
	entries := make([]fs.DirEntry, len(infos))
	for i, info := range infos {
		entries[i] = &dirEntry{info: info}
	}
	return entries, nil
}

// ReadFile reads the named file and returns its contents.
func (f *FS) ReadFile(name string) ([]byte, error) {
	bf, err := f.bfs.Open(normalize(name))
	if err != nil {
		return nil, err
	}
	defer func() { _ = bf.Close() }()
	return io.ReadAll(bf)
}

// Exists reports whether the named file or directory exists.
func (f *FS) Exists(name string) (bool, error) {
	_, err := f.bfs.Stat(normalize(name))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// Create creates or truncates the named file for writing.
func (f *FS) Create(name string) (core.File, error) {
	name = normalize(name)
	bf, err := f.bfs.Create(name)
	if err != nil {
		return nil, err
	}
	return f.wrapFile(bf, name), nil
}

// OpenFile opens a file with the specified flags and permissions.
func (f *FS) OpenFile(name string, flag int, perm fs.FileMode) (core.File, error) {
	name = normalize(name)
	bf, err := f.bfs.OpenFile(name, flag, perm)
	if err != nil {
		return nil, err
	}
	return f.wrapFile(bf, name), nil
}

// WriteFile writes data to the named file, creating it if necessary.
func (f *FS) WriteFile(name string, data []byte, perm fs.FileMode) error {
	bf, err := f.bfs.OpenFile(normalize(name), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	_, err = bf.Write(data)
	if closeErr := bf.Close(); err == nil {
		err = closeErr
	}
	return err
}

// Mkdir creates a new directory. It fails if the directory exists or its
// parent does not.
func (f *FS) Mkdir(name string, perm fs.FileMode) error {
	name = normalize(name)
	if _, err := f.bfs.Stat(name); err == nil {
		return &fs.PathError{Op: "mkdir", Path: name, Err: fs.ErrExist}
	}
	if parent := path.Dir(name); parent != "." && parent != "/" {
		if _, err := f.bfs.Stat(parent); err != nil {
			return err
		}
	}
	return f.bfs.MkdirAll(name, perm)
}

// MkdirAll creates a directory along with any necessary parents.
func (f *FS) MkdirAll(name string, perm fs.FileMode) error {
	return f.bfs.MkdirAll(normalize(name), perm)
}

// Remove removes the named file or empty directory. A symbolic link is
// removed itself, never its target.
func (f *FS) Remove(name string) error {
	name = normalize(name)
	p, bound, err := f.entryPath(name)
	if !bound {
		return f.bfs.Remove(name)
	}
	if err != nil {
		return err
	}
	return os.Remove(p)
}

// RemoveAll removes name and any children it contains. Symbolic links are
// removed, never followed.
func (f *FS) RemoveAll(name string) error {
	name = normalize(name)
	info, err := f.bfs.Lstat(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	if !info.IsDir() {
		return f.Remove(name)
	}

	entries, err := f.bfs.ReadDir(name)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if err := f.RemoveAll(path.Join(name, entry.Name())); err != nil {
			return err
		}
	}
	return f.Remove(name)
}

// Rename renames (moves) oldpath to newpath, creating the parent of
// newpath. Symbolic links are moved, never their targets.
func (f *FS) Rename(oldpath, newpath string) error {
	oldpath, newpath = normalize(oldpath), normalize(newpath)
	from, bound, err := f.entryPath(oldpath)
	if !bound {
		return f.bfs.Rename(oldpath, newpath)
	}
	if err != nil {
		return err
	}
	to, _, err := f.entryPath(newpath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(to), 0o755); err != nil {
		return err
	}
	return os.Rename(from, to)
}

// entryPath returns the OS path of name on a bound filesystem, with every
// component but the last resolved inside the root. bound is false for
// other filesystems.
func (f *FS) entryPath(name string) (p string, bound bool, err error) {
	if _, ok := f.bfs.(*osfs.BoundOS); !ok {
		return "", false, nil
	}
	parent, err := securejoin.SecureJoin(f.bfs.Root(), path.Dir(name))
	if err != nil {
		return "", true, err
	}
	return filepath.Join(parent, path.Base(name)), true, nil
}

// Symlink creates newname as a symbolic link to oldname.
func (f *FS) Symlink(oldname, newname string) error {
	return f.bfs.Symlink(oldname, normalize(newname))
}

// Readlink returns the destination of the named symbolic link.
func (f *FS) Readlink(name string) (string, error) {
	return f.bfs.Readlink(normalize(name))
}

// TempFile creates a new temporary file in dir.
func (f *FS) TempFile(dir, prefix string) (core.File, error) {
	bf, err := f.bfs.TempFile(normalize(dir), prefix)
	if err != nil {
		return nil, err
	}
	return f.wrapFile(bf, f.relative(bf.Name())), nil
}

// Walk walks the tree rooted at root in lexical order without following
// symbolic links.
func (f *FS) Walk(root string, walkFn fs.WalkDirFunc) error {
	root = normalize(root)
	info, err := f.bfs.Lstat(root)
	if err != nil {
		err = walkFn(root, nil, err)
	} else {
		err = f.walk(root, &dirEntry{info: info}, walkFn)
	}
	if errors.Is(err, fs.SkipDir) || errors.Is(err, fs.SkipAll) {
		return nil
	}
	return err
}

func (f *FS) walk(name string, d fs.DirEntry, walkFn fs.WalkDirFunc) error {
	if err := walkFn(name, d, nil); err != nil || !d.IsDir() {
		if errors.Is(err, fs.SkipDir) && d.IsDir() {
			err = nil
		}
		return err
	}

	entries, err := f.bfs.ReadDir(name)
	if err != nil {
		if err = walkFn(name, d, err); err != nil {
			return err
		}
	}

	for _, entry := range entries {
		if err := f.walk(path.Join(name, entry.Name()), &dirEntry{info: entry}, walkFn); err != nil {
			if errors.Is(err, fs.SkipDir) {
				continue
			}
			return err
		}
	}
	return nil
}

// Chroot returns a view rooted at dir. The directory does not need to
// exist yet.
func (f *FS) Chroot(dir string) (core.FS, error) {
	sub, err := f.bfs.Chroot(normalize(dir))
	if err != nil {
		return nil, err
	}
	// A bound filesystem chroots into an unbound one; bind the view again.
	if _, bound := f.bfs.(*osfs.BoundOS); bound {
		sub = osfs.New(sub.Root(), osfs.WithBoundOS())
	}
	return New(sub, f.fsType), nil
}

var (
	_ core.FS         = (*FS)(nil)
	_ core.MetadataFS = (*FS)(nil)
	_ core.SymlinkFS  = (*FS)(nil)
	_ core.TempFS     = (*FS)(nil)
)
