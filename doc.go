// Package gitfs is a lazy, read-only filesystem over git repositories.
//
// A name such as
//
//	https://github.com/org/repo.git/main/docs/guide.md
//
// or the equivalent slash path github.com/org/repo.git/main/docs/guide.md
// addresses docs/guide.md on branch main of https://github.com/org/repo.git.
// The first access to a repository branch clones it into the data directory;
// later accesses read the working copy directly. A copy older than the lazy
// pull period is pulled before it is read, a background refresher pulls
// copies older than the eager pull period, and copies idle longer than the
// dismount period are dismounted.
//
// FS implements fs/core.FS and io/fs.FS. Every mutating call fails with an
// error wrapping core.ErrReadOnly.
//
//	settings, err := config.Load(ctx, nil, nil)
//	if err != nil {
//	    return err
//	}
//	gfs, err := gitfs.New(ctx, settings)
//	if err != nil {
//	    return err
//	}
//	defer gfs.Close(ctx)
//
//	data, err := gfs.ReadFile("github.com/org/repo.git/main/README.md")
//
// The fuse and httpfs packages serve an FS to other processes.
package gitfs
