package fuse

import (
	"context"
	"io"
	"io/fs"
	"sort"
	"sync"
	"syscall"

	gofuse "github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/jmgilman/gitfs/errors"
)

const (
	dirMode  = syscall.S_IFDIR | 0o555
	readOnly = ^uint32(0o222)
)

// childPath joins a node path and an entry name.
func childPath(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "/" + name
}

// dirNode is a directory above any repository branch: the root, a host
// or a repository path prefix. It exists while the kernel holds a lookup
// of it and is dropped on forget.
type dirNode struct {
	gofuse.Inode
	options *Options
	path    string
}

var (
	_ gofuse.InodeEmbedder  = (*dirNode)(nil)
	_ gofuse.NodeLookuper   = (*dirNode)(nil)
	_ gofuse.NodeReaddirer  = (*dirNode)(nil)
	_ gofuse.NodeGetattrer  = (*dirNode)(nil)
	_ gofuse.NodeCreater    = (*dirNode)(nil)
	_ gofuse.NodeMkdirer    = (*dirNode)(nil)
	_ gofuse.NodeRmdirer    = (*dirNode)(nil)
	_ gofuse.NodeUnlinker   = (*dirNode)(nil)
	_ gofuse.NodeRenamer    = (*dirNode)(nil)
	_ gofuse.NodeSymlinker  = (*dirNode)(nil)
	_ gofuse.NodeSetattrer  = (*dirNode)(nil)
	_ gofuse.NodeLinker     = (*dirNode)(nil)
	_ gofuse.NodeMknoder    = (*dirNode)(nil)
	_ gofuse.NodeSetxattrer = (*dirNode)(nil)
)

func (d *dirNode) Getattr(_ context.Context, _ gofuse.FileHandle, out *fuse.AttrOut) syscall.Errno {
	out.Mode = dirMode
	return 0
}

func (d *dirNode) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*gofuse.Inode, syscall.Errno) {
	p := childPath(d.path, name)

	if !addressesMount(d.options.FS, p) {
		out.Mode = dirMode
		child := d.NewInode(ctx, &dirNode{options: d.options, path: p}, gofuse.StableAttr{Mode: syscall.S_IFDIR})
		return child, 0
	}
	return lookupEntry(ctx, &d.Inode, d.options, p, out)
}

func (d *dirNode) Readdir(_ context.Context) (gofuse.DirStream, syscall.Errno) {
	children := d.Children()
	names := make([]string, 0, len(children))
	for name := range children {
		names = append(names, name)
	}
	sort.Strings(names)

	entries := make([]fuse.DirEntry, 0, len(names))
	for _, name := range names {
		entries = append(entries, fuse.DirEntry{Name: name, Mode: children[name].Mode()})
	}
	return gofuse.NewListDirStream(entries), 0
}

func (d *dirNode) Create(context.Context, string, uint32, uint32, *fuse.EntryOut) (*gofuse.Inode, gofuse.FileHandle, uint32, syscall.Errno) {
	return nil, nil, 0, syscall.EROFS
}

func (d *dirNode) Mkdir(context.Context, string, uint32, *fuse.EntryOut) (*gofuse.Inode, syscall.Errno) {
	return nil, syscall.EROFS
}

func (d *dirNode) Rmdir(context.Context, string) syscall.Errno { return syscall.EROFS }

func (d *dirNode) Unlink(context.Context, string) syscall.Errno { return syscall.EROFS }

func (d *dirNode) Rename(context.Context, string, gofuse.InodeEmbedder, string, uint32) syscall.Errno {
	return syscall.EROFS
}

func (d *dirNode) Symlink(context.Context, string, string, *fuse.EntryOut) (*gofuse.Inode, syscall.Errno) {
	return nil, syscall.EROFS
}

func (d *dirNode) Setattr(context.Context, gofuse.FileHandle, *fuse.SetAttrIn, *fuse.AttrOut) syscall.Errno {
	return syscall.EROFS
}

func (d *dirNode) Link(context.Context, gofuse.InodeEmbedder, string, *fuse.EntryOut) (*gofuse.Inode, syscall.Errno) {
	return nil, syscall.EROFS
}

func (d *dirNode) Mknod(context.Context, string, uint32, uint32, *fuse.EntryOut) (*gofuse.Inode, syscall.Errno) {
	return nil, syscall.EROFS
}

func (d *dirNode) Setxattr(context.Context, string, []byte, uint32) syscall.Errno {
	return syscall.EROFS
}

// entryNode is a file, directory or symbolic link inside a mounted
// working copy.
type entryNode struct {
	gofuse.Inode
	options *Options
	path    string
}

var (
	_ gofuse.InodeEmbedder  = (*entryNode)(nil)
	_ gofuse.NodeLookuper   = (*entryNode)(nil)
	_ gofuse.NodeReaddirer  = (*entryNode)(nil)
	_ gofuse.NodeGetattrer  = (*entryNode)(nil)
	_ gofuse.NodeOpener     = (*entryNode)(nil)
	_ gofuse.NodeReader     = (*entryNode)(nil)
	_ gofuse.NodeReadlinker = (*entryNode)(nil)
	_ gofuse.NodeCreater    = (*entryNode)(nil)
	_ gofuse.NodeMkdirer    = (*entryNode)(nil)
	_ gofuse.NodeRmdirer    = (*entryNode)(nil)
	_ gofuse.NodeUnlinker   = (*entryNode)(nil)
	_ gofuse.NodeRenamer    = (*entryNode)(nil)
	_ gofuse.NodeSymlinker  = (*entryNode)(nil)
	_ gofuse.NodeSetattrer  = (*entryNode)(nil)
	_ gofuse.NodeLinker     = (*entryNode)(nil)
	_ gofuse.NodeMknoder    = (*entryNode)(nil)
	_ gofuse.NodeSetxattrer = (*entryNode)(nil)
)

func lookupEntry(ctx context.Context, parent *gofuse.Inode, options *Options, p string, out *fuse.EntryOut) (*gofuse.Inode, syscall.Errno) {
	info, err := options.FS.Lstat(p)
	if err != nil {
		return nil, toErrno(options, "lookup", p, err)
	}
	fillAttr(info, &out.Attr)
	child := parent.NewInode(ctx, &entryNode{options: options, path: p}, gofuse.StableAttr{Mode: out.Mode & syscall.S_IFMT})
	return child, 0
}

func (e *entryNode) Getattr(_ context.Context, _ gofuse.FileHandle, out *fuse.AttrOut) syscall.Errno {
	info, err := e.options.FS.Lstat(e.path)
	if err != nil {
		return toErrno(e.options, "getattr", e.path, err)
	}
	fillAttr(info, &out.Attr)
	return 0
}

func (e *entryNode) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*gofuse.Inode, syscall.Errno) {
	return lookupEntry(ctx, &e.Inode, e.options, childPath(e.path, name), out)
}

func (e *entryNode) Readdir(_ context.Context) (gofuse.DirStream, syscall.Errno) {
	dirEntries, err := e.options.FS.ReadDir(e.path)
	if err != nil {
		return nil, toErrno(e.options, "readdir", e.path, err)
	}
	entries := make([]fuse.DirEntry, 0, len(dirEntries))
	for _, de := range dirEntries {
		entries = append(entries, fuse.DirEntry{Name: de.Name(), Mode: modeType(de.Type())})
	}
	return gofuse.NewListDirStream(entries), 0
}

func (e *entryNode) Open(_ context.Context, flags uint32) (gofuse.FileHandle, uint32, syscall.Errno) {
	if flags&(syscall.O_WRONLY|syscall.O_RDWR|syscall.O_APPEND|syscall.O_TRUNC) != 0 {
		return nil, 0, syscall.EROFS
	}
	f, err := e.options.FS.Open(e.path)
	if err != nil {
		return nil, 0, toErrno(e.options, "open", e.path, err)
	}
	return &fileHandle{file: f}, 0, 0
}

func (e *entryNode) Read(_ context.Context, fh gofuse.FileHandle, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	h, ok := fh.(*fileHandle)
	if !ok {
		return nil, syscall.EBADF
	}
	n, err := h.readAt(dest, off)
	if err != nil && err != io.EOF {
		return nil, toErrno(e.options, "read", e.path, err)
	}
	return fuse.ReadResultData(dest[:n]), 0
}

func (e *entryNode) Readlink(_ context.Context) ([]byte, syscall.Errno) {
	target, err := e.options.FS.Readlink(e.path)
	if err != nil {
		return nil, toErrno(e.options, "readlink", e.path, err)
	}
	return []byte(target), 0
}

func (e *entryNode) Create(context.Context, string, uint32, uint32, *fuse.EntryOut) (*gofuse.Inode, gofuse.FileHandle, uint32, syscall.Errno) {
	return nil, nil, 0, syscall.EROFS
}

func (e *entryNode) Mkdir(context.Context, string, uint32, *fuse.EntryOut) (*gofuse.Inode, syscall.Errno) {
	return nil, syscall.EROFS
}

func (e *entryNode) Rmdir(context.Context, string) syscall.Errno { return syscall.EROFS }

func (e *entryNode) Unlink(context.Context, string) syscall.Errno { return syscall.EROFS }

func (e *entryNode) Rename(context.Context, string, gofuse.InodeEmbedder, string, uint32) syscall.Errno {
	return syscall.EROFS
}

func (e *entryNode) Symlink(context.Context, string, string, *fuse.EntryOut) (*gofuse.Inode, syscall.Errno) {
	return nil, syscall.EROFS
}

func (e *entryNode) Setattr(context.Context, gofuse.FileHandle, *fuse.SetAttrIn, *fuse.AttrOut) syscall.Errno {
	return syscall.EROFS
}

func (e *entryNode) Link(context.Context, gofuse.InodeEmbedder, string, *fuse.EntryOut) (*gofuse.Inode, syscall.Errno) {
	return nil, syscall.EROFS
}

func (e *entryNode) Mknod(context.Context, string, uint32, uint32, *fuse.EntryOut) (*gofuse.Inode, syscall.Errno) {
	return nil, syscall.EROFS
}

func (e *entryNode) Setxattr(context.Context, string, []byte, uint32) syscall.Errno {
	return syscall.EROFS
}

// fileHandle serves reads of one open file.
type fileHandle struct {
	mu   sync.Mutex
	file fs.File
}

var _ gofuse.FileReleaser = (*fileHandle)(nil)

// readAt reads at off, through io.ReaderAt when the file has it and by
// seeking otherwise.
func (h *fileHandle) readAt(dest []byte, off int64) (int, error) {
	if ra, ok := h.file.(io.ReaderAt); ok {
		return ra.ReadAt(dest, off)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.file.(io.Seeker)
	if !ok {
		return 0, errors.New(errors.CodeNotImplemented, "file does not support random access")
	}
	if _, err := s.Seek(off, io.SeekStart); err != nil {
		return 0, err
	}
	return io.ReadFull(h.file, dest)
}

func (h *fileHandle) Release(context.Context) syscall.Errno {
	if err := h.file.Close(); err != nil {
		return syscall.EIO
	}
	return 0
}
