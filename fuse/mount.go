package fuse

import (
	"log/slog"
	"os"
	"time"

	gofuse "github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/jmgilman/gitfs"
	"github.com/jmgilman/gitfs/errors"
)

// Options configures the FUSE mount.
type Options struct {
	// Mountpoint is the directory the filesystem is mounted on. It is
	// created if it does not exist.
	Mountpoint string

	// FS serves every lookup.
	FS *gitfs.FS

	// AllowOther permits other users to access the mount. Requires
	// user_allow_other in /etc/fuse.conf.
	AllowOther bool

	// Logger receives diagnostic messages. If nil, errors are logged to
	// stderr.
	Logger *slog.Logger
}

// Mount mounts FS at the configured mountpoint. The caller must call
// Unmount on the returned server when done.
//
// The tree mirrors the slash-path names of FS:
//
//	<mountpoint>/github.com/org/repo.git/main/README.md
//
// Directories above a repository branch do not exist until looked up, so
// "ls <mountpoint>" lists only hosts the kernel still remembers.
func Mount(options Options) (*fuse.Server, error) {
	if options.Mountpoint == "" {
		return nil, errors.New(errors.CodeInvalidInput, "mountpoint is required")
	}
	if options.FS == nil {
		return nil, errors.New(errors.CodeInvalidInput, "filesystem is required")
	}
	if options.Logger == nil {
		options.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelError,
		}))
	}

	if err := os.MkdirAll(options.Mountpoint, 0o755); err != nil {
		return nil, errors.Wrapf(err, errors.CodeIO, "failed to create mountpoint %s", options.Mountpoint)
	}

	root := &dirNode{options: &options}

	entryTimeout := time.Second
	attrTimeout := time.Second
	negativeTimeout := 100 * time.Millisecond

	server, err := gofuse.Mount(options.Mountpoint, root, &gofuse.Options{
		EntryTimeout:    &entryTimeout,
		AttrTimeout:     &attrTimeout,
		NegativeTimeout: &negativeTimeout,
		MountOptions: fuse.MountOptions{
			FsName:     "gitfs",
			Name:       "gitfs",
			AllowOther: options.AllowOther,
			Options:    []string{"ro"},
		},
	})
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeIO, "failed to mount at %s", options.Mountpoint)
	}

	options.Logger.Info("gitfs mounted", "mountpoint", options.Mountpoint)
	return server, nil
}
