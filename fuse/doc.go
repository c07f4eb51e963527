// Package fuse exposes a gitfs.FS as a read-only FUSE filesystem.
//
// Lookups below the mountpoint are routed to the FS by their slash path,
// so reading <mountpoint>/github.com/org/repo.git/main/README.md clones
// the repository on first access. Every mutating request fails with EROFS.
package fuse
