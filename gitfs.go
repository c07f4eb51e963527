package gitfs

import (
	"context"
	"io/fs"
	"path"
	"strings"
	"sync"

	"github.com/chainguard-dev/clog"

	"github.com/jmgilman/gitfs/config"
	"github.com/jmgilman/gitfs/errors"
	fsbilly "github.com/jmgilman/gitfs/fs/billy"
	"github.com/jmgilman/gitfs/fs/core"
	"github.com/jmgilman/gitfs/git"
	"github.com/jmgilman/gitfs/mount"
)

// RootURI is the URI of an unscoped FS.
const RootURI = "git:///"

// ReadableMount is the read surface shared by the router and by a single
// mount.
type ReadableMount interface {
	core.ReadFS
	core.WalkFS
	core.MetadataFS
	core.StatusFS

	Readlink(name string) (string, error)
	URI() string
	WorkingDirectory() string
}

// WriteRejecting is the mutating surface. Every method fails with an error
// wrapping core.ErrReadOnly.
type WriteRejecting interface {
	core.WriteFS
	core.ManageFS

	Append(name string) (core.File, error)
	Delete(name string, recursive bool) error
	Mkdirs(name string, perm fs.FileMode) error
	Symlink(oldname, newname string) error
	SetWorkingDirectory(dir string) error
}

// router is the state shared by an FS and its chroot views.
type router struct {
	cache     *mount.Cache
	refresher *mount.Refresher
	ctx       context.Context

	closeOnce sync.Once
	closeErr  error

	// looked is called with every handle a lookup returns. Tests use it to
	// dismount a handle between lookup and use.
	looked func(*mount.Handle)
}

// FS routes every name to the mount it falls into, mounting on first use.
// Names are virtual URIs such as https://host/org/repo.git/main/a.txt or
// slash paths such as host/org/repo.git/main/a.txt, read with the
// configured scheme. FS is read-only.
type FS struct {
	*router
	prefix string
}

// New creates an FS from settings and starts its refresher. The refresher
// outlives ctx; stop it with Close.
//
// Example:
//
//	settings, err := config.Load(ctx, nil, nil)
//	gfs, err := gitfs.New(ctx, settings)
//	defer gfs.Close(ctx)
//	data, err := gfs.ReadFile("github.com/org/repo.git/main/README.md")
func New(ctx context.Context, settings config.Settings, opts ...Option) (*FS, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	root := o.dataFS
	if root == nil {
		root = fsbilly.NewLocal(settings.DataDir)
		if err := root.MkdirAll(".", 0o755); err != nil {
			return nil, errors.Wrapf(err, errors.CodeIO, "failed to create data directory %s", settings.DataDir)
		}
	}

	backend := o.backend
	if backend == nil {
		backend = newBackend(settings.Backend)
	}

	cacheOpts := []mount.Option{
		mount.WithBackend(backend),
		mount.WithPolicy(settings.Policy()),
		mount.WithDefaultScheme(settings.Scheme),
	}
	if settings.AuthUser != "" {
		cacheOpts = append(cacheOpts, mount.WithAuth(git.BasicAuth(settings.AuthUser, settings.AuthPass)))
	}
	if o.clock != nil {
		cacheOpts = append(cacheOpts, mount.WithClock(o.clock))
	}
	if o.registerer != nil {
		cacheOpts = append(cacheOpts, mount.WithMetrics(mount.NewMetrics(o.registerer)))
	}

	cache, err := mount.NewCache(root, cacheOpts...)
	if err != nil {
		return nil, err
	}

	log := clog.FromContext(ctx)
	if settings.DismountDelete {
		removed, err := cache.Sweep(ctx)
		if err != nil {
			log.Warnf("Failed to sweep stale working copies: %v", err)
		}
		if len(removed) > 0 {
			log.Infof("Swept %d stale working copies", len(removed))
		}
	}

	base := context.WithoutCancel(ctx)
	refresher := mount.NewRefresher(cache, settings.RefreshInterval.Duration())
	refresher.Start(base)

	log.Infof("gitfs ready: data dir %s, backend %s", root.Root(), settings.Backend)
	return &FS{router: &router{cache: cache, refresher: refresher, ctx: base}}, nil
}

func newBackend(name string) git.Backend {
	if name == config.BackendCLI {
		return git.NewCLIBackend(nil)
	}
	return git.NewNativeBackend()
}

// Cache returns the mount cache behind the FS.
func (f *FS) Cache() *mount.Cache {
	return f.cache
}

// Refresher returns the background refresher.
func (f *FS) Refresher() *mount.Refresher {
	return f.refresher
}

// Close stops the refresher and dismounts every mount. Views returned by
// Chroot share the mounts and are closed with it.
func (f *FS) Close(ctx context.Context) error {
	f.closeOnce.Do(func() {
		f.refresher.Stop()
		f.closeErr = f.cache.Close(ctx)
	})
	return f.closeErr
}

// Type returns core.FSType mount.
func (f *FS) Type() core.FSType {
	return core.FSTypeMount
}

// URI returns git:/// for the root, or the prefix of a chroot view.
func (f *FS) URI() string {
	if f.prefix == "" {
		return RootURI
	}
	return f.prefix
}

// WorkingDirectory returns URI(); it cannot be changed.
func (f *FS) WorkingDirectory() string {
	return f.URI()
}

// Chroot returns a view whose names are relative to dir. The view shares
// mounts with f.
func (f *FS) Chroot(dir string) (core.FS, error) {
	return &FS{router: f.router, prefix: f.abs(dir)}, nil
}

// abs joins name onto the view prefix. Names cannot climb above it.
func (f *FS) abs(name string) string {
	if f.prefix == "" {
		return name
	}
	clean := path.Clean("/" + name)
	if clean == "/" {
		return f.prefix
	}
	return strings.TrimSuffix(f.prefix, "/") + clean
}

// handle returns the mount serving name and the in-repository path name
// addresses. Names that address no mount are fs.ErrNotExist.
func (f *FS) handle(op, name string) (*mount.Handle, string, error) {
	full := f.abs(name)
	t := f.cache.Resolve(full)
	if err := t.Validate(); err != nil {
		clog.FromContext(f.ctx).Debugf("%s %s: %v", op, name, err)
		return nil, "", &fs.PathError{Op: op, Path: name, Err: fs.ErrNotExist}
	}

	h, err := f.cache.GetOrCreate(f.ctx, full)
	if err != nil {
		return nil, "", err
	}
	if f.looked != nil {
		f.looked(h)
	}
	rel := t.FilePath
	if rel == "" {
		rel = "."
	}
	return h, rel, nil
}

// do runs fn against the mount serving name. A handle dismounted between
// lookup and use is looked up once more.
func (f *FS) do(op, name string, fn func(h *mount.Handle, rel string) error) error {
	for attempt := 0; ; attempt++ {
		h, rel, err := f.handle(op, name)
		if err != nil {
			return err
		}
		err = fn(h, rel)
		if attempt == 0 && dismounted(h, err) {
			continue
		}
		return err
	}
}

// dismounted reports whether err came from h being dismounted.
func dismounted(h *mount.Handle, err error) bool {
	return errors.HasCode(err, errors.CodeUnavailable) && h.State() == mount.StateDismounted
}

// Open opens the named file for reading.
func (f *FS) Open(name string) (fs.File, error) {
	var file fs.File
	err := f.do("open", name, func(h *mount.Handle, rel string) (err error) {
		file, err = h.Open(rel)
		return err
	})
	return file, err
}

// OpenFile opens the named file for reading. Write flags are rejected.
func (f *FS) OpenFile(name string, flag int, perm fs.FileMode) (core.File, error) {
	if flag&writeFlags != 0 {
		return nil, mount.RejectWrite("openfile", name)
	}
	var file core.File
	err := f.do("openfile", name, func(h *mount.Handle, rel string) (err error) {
		file, err = h.OpenFile(rel, flag, perm)
		return err
	})
	return file, err
}

// Stat returns file metadata, following symbolic links.
func (f *FS) Stat(name string) (fs.FileInfo, error) {
	var info fs.FileInfo
	err := f.do("stat", name, func(h *mount.Handle, rel string) (err error) {
		info, err = h.Stat(rel)
		return err
	})
	return info, err
}

// Lstat returns file metadata without following symbolic links.
func (f *FS) Lstat(name string) (fs.FileInfo, error) {
	var info fs.FileInfo
	err := f.do("lstat", name, func(h *mount.Handle, rel string) (err error) {
		info, err = h.Lstat(rel)
		return err
	})
	return info, err
}

// ReadDir lists a directory of a mount.
func (f *FS) ReadDir(name string) ([]fs.DirEntry, error) {
	var entries []fs.DirEntry
	err := f.do("readdir", name, func(h *mount.Handle, rel string) (err error) {
		entries, err = h.ReadDir(rel)
		return err
	})
	return entries, err
}

// ReadFile reads the named file.
func (f *FS) ReadFile(name string) ([]byte, error) {
	var data []byte
	err := f.do("readfile", name, func(h *mount.Handle, rel string) (err error) {
		data, err = h.ReadFile(rel)
		return err
	})
	return data, err
}

// Exists reports whether name exists. A name that addresses no mount does
// not exist.
func (f *FS) Exists(name string) (bool, error) {
	var ok bool
	err := f.do("exists", name, func(h *mount.Handle, rel string) (err error) {
		ok, err = h.Exists(rel)
		return err
	})
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return ok, err
}

// Readlink returns the raw target of a symbolic link.
func (f *FS) Readlink(name string) (string, error) {
	var target string
	err := f.do("readlink", name, func(h *mount.Handle, rel string) (err error) {
		target, err = h.Readlink(rel)
		return err
	})
	return target, err
}

// FileStatus describes one entry. Path and Symlink are virtual URIs.
func (f *FS) FileStatus(name string) (core.FileStatus, error) {
	var st core.FileStatus
	err := f.do("filestatus", name, func(h *mount.Handle, rel string) (err error) {
		st, err = h.FileStatus(rel)
		return err
	})
	return st, err
}

// ListStatus describes the children of a directory, or the entry itself
// when name is a file. Paths are virtual URIs.
func (f *FS) ListStatus(name string) ([]core.FileStatus, error) {
	var statuses []core.FileStatus
	err := f.do("liststatus", name, func(h *mount.Handle, rel string) (err error) {
		statuses, err = h.ListStatus(rel)
		return err
	})
	return statuses, err
}

// Walk walks the mount below root. Paths passed to walkFn start with root.
// A mount dismounted before the walk starts is looked up once more, like
// every other read.
func (f *FS) Walk(root string, walkFn fs.WalkDirFunc) error {
	started := false
	err := f.do("walk", root, func(h *mount.Handle, rel string) error {
		return h.Walk(rel, func(p string, d fs.DirEntry, err error) error {
			if !started && d == nil && dismounted(h, err) {
				return err
			}
			started = true
			return walkFn(joinName(root, below(rel, p)), d, err)
		})
	})
	if err != nil && !started {
		return walkFn(root, nil, err)
	}
	return err
}

// below returns p relative to dir, both in-repository paths.
func below(dir, p string) string {
	if dir == "." {
		if p == "." {
			return ""
		}
		return p
	}
	return strings.TrimPrefix(strings.TrimPrefix(p, dir), "/")
}

// joinName appends child to base without cleaning, so a scheme's "//"
// survives.
func joinName(base, child string) string {
	if child == "" {
		return base
	}
	return strings.TrimSuffix(base, "/") + "/" + child
}
