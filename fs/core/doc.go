// Package core defines the filesystem contract shared by the gitfs router,
// the local-disk adapter and the host frontends.
//
// The main FS interface is composed of five sub-interfaces:
//
//   - ReadFS: Open, Stat, ReadDir, ReadFile, Exists
//   - WriteFS: Create, OpenFile, WriteFile, Mkdir, MkdirAll
//   - ManageFS: Remove, RemoveAll, Rename
//   - WalkFS: Walk
//   - ChrootFS: Chroot
//
// Optional capabilities are discovered with type assertions:
//
//   - MetadataFS: Lstat
//   - SymlinkFS: Symlink, Readlink
//   - TempFS: TempFile
//   - StatusFS: FileStatus, ListStatus
//
// A read-only provider still satisfies FS. Its mutating methods return an
// error for which errors.Is(err, ErrReadOnly) holds:
//
//	if err := filesystem.WriteFile("a.txt", nil, 0o644); errors.Is(err, core.ErrReadOnly) {
//	    // rejected without touching storage
//	}
//
// FS embeds fs.FS, so providers work with fs.WalkDir, fs.ReadFile and
// testing/fstest.
package core
