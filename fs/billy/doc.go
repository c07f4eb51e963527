// Package billy adapts go-billy filesystems to core.FS.
//
// The working copies of gitfs live on local disk behind an osfs rooted at
// the data directory. Each mount gets a chrooted view whose underlying
// billy.Filesystem (Unwrap) is handed to the git backend, while the same
// view serves reads through core.FS:
//
//	root := billy.NewLocal("/var/lib/gitfs")
//	wc, _ := root.Chroot("example.com/org/repo.git/main")
//	data, err := wc.ReadFile("README.md")
//	repo, err := backend.OpenOrInit(ctx, billy.Unwrap(wc), ".")
//
// NewMemory backs tests that need no disk.
//
// FS values are safe for concurrent use. File handles are not.
package billy
