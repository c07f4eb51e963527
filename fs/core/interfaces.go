package core

import (
	"io"
	"io/fs"
	"time"
)

// FSType identifies what backs a filesystem.
type FSType int

const (
	// FSTypeUnknown indicates the filesystem type is unknown or unspecified.
	FSTypeUnknown FSType = iota
	// FSTypeLocal indicates a disk-backed filesystem.
	FSTypeLocal
	// FSTypeMemory indicates an in-memory filesystem.
	FSTypeMemory
	// FSTypeMount indicates a virtual filesystem routing to mounted working copies.
	FSTypeMount
)

// String returns a string representation of the FSType.
func (t FSType) String() string {
	switch t {
	case FSTypeLocal:
		return "local"
	case FSTypeMemory:
		return "memory"
	case FSTypeMount:
		return "mount"
	default:
		return "unknown"
	}
}

// FS is the full filesystem contract. Read-only providers implement the
// write and manage halves by returning an error wrapping ErrReadOnly.
type FS interface {
	fs.FS
	ReadFS
	WriteFS
	ManageFS
	WalkFS
	ChrootFS

	// Type returns the underlying filesystem type.
	Type() FSType
}

// ReadFS defines read-only filesystem operations.
// All providers MUST support this interface.
type ReadFS interface {
	// Open opens the named file for reading.
	Open(name string) (fs.File, error)

	// Stat returns file metadata, following symbolic links.
	Stat(name string) (fs.FileInfo, error)

	// ReadDir returns the entries of the named directory sorted by filename.
	ReadDir(name string) ([]fs.DirEntry, error)

	// ReadFile reads the named file and returns its contents.
	ReadFile(name string) ([]byte, error)

	// Exists reports whether the named file or directory exists.
	// A false result with a non-nil error means existence could not be determined.
	Exists(name string) (bool, error)
}

// WriteFS defines write operations.
type WriteFS interface {
	// Create creates or truncates the named file for writing.
	Create(name string) (File, error)

	// OpenFile opens a file with the specified flags and permissions.
	OpenFile(name string, flag int, perm fs.FileMode) (File, error)

	// WriteFile writes data to the named file, creating it if necessary.
	WriteFile(name string, data []byte, perm fs.FileMode) error

	// Mkdir creates a new directory.
	Mkdir(name string, perm fs.FileMode) error

	// MkdirAll creates a directory along with any necessary parents.
	MkdirAll(path string, perm fs.FileMode) error
}

// ManageFS defines file and directory management operations.
type ManageFS interface {
	// Remove removes the named file or empty directory.
	Remove(name string) error

	// RemoveAll removes path and any children it contains.
	// A missing path is not an error.
	RemoveAll(path string) error

	// Rename renames (moves) oldpath to newpath.
	Rename(oldpath, newpath string) error
}

// WalkFS defines directory tree traversal operations.
type WalkFS interface {
	// Walk walks the file tree rooted at root in lexical order, calling
	// walkFn for each file or directory including root. Symbolic links
	// are not followed.
	Walk(root string, walkFn fs.WalkDirFunc) error
}

// ChrootFS defines the ability to create scoped filesystem views.
type ChrootFS interface {
	// Chroot returns a filesystem whose operations are relative to dir.
	Chroot(dir string) (FS, error)
}

// File represents an open file handle.
type File interface {
	fs.File
	io.Writer

	// Name returns the name of the file as provided to Open or Create.
	Name() string
}

// MetadataFS exposes metadata without following symbolic links.
//
//	if mfs, ok := filesystem.(core.MetadataFS); ok {
//	    info, err := mfs.Lstat("link")
//	}
type MetadataFS interface {
	// Lstat returns file info describing a symbolic link itself rather
	// than its target.
	Lstat(name string) (fs.FileInfo, error)
}

// SymlinkFS defines symbolic link operations (typically local filesystems only).
type SymlinkFS interface {
	// Symlink creates a symbolic link named newname pointing to oldname.
	Symlink(oldname, newname string) error

	// Readlink returns the destination of the named symbolic link.
	Readlink(name string) (string, error)
}

// TempFS creates temporary files, used for atomic replace-by-rename writes.
type TempFS interface {
	// TempFile creates a new temporary file in dir whose base name starts
	// with prefix.
	TempFile(dir, prefix string) (File, error)
}

// FileStatus describes one entry of a mounted tree in the caller's
// address space. Path and Symlink are virtual paths: a provider that
// translates between address spaces rewrites both before returning.
type FileStatus struct {
	Path    string      `json:"path"`
	Size    int64       `json:"size"`
	Mode    fs.FileMode `json:"mode"`
	ModTime time.Time   `json:"modTime"`
	IsDir   bool        `json:"isDir"`

	// Symlink is the link target, empty when the entry is not a symbolic
	// link or the target lies outside the mounted tree.
	Symlink string `json:"symlink,omitempty"`
}

// StatusFS lists entries as FileStatus values.
type StatusFS interface {
	// FileStatus returns the status of a single entry.
	FileStatus(name string) (FileStatus, error)

	// ListStatus returns the statuses of a directory's children, or of the
	// entry itself when name is a file.
	ListStatus(name string) ([]FileStatus, error)
}

// StatusOf builds a FileStatus for path from fi.
func StatusOf(path string, fi fs.FileInfo) FileStatus {
	return FileStatus{
		Path:    path,
		Size:    fi.Size(),
		Mode:    fi.Mode(),
		ModTime: fi.ModTime(),
		IsDir:   fi.IsDir(),
	}
}
