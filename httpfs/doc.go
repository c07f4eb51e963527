// Package httpfs serves a gitfs.FS over HTTP with echo.
//
// Routes:
//
//	GET    /fs/<name>     file contents, or a JSON []core.FileStatus for a directory
//	PUT    /fs/<name>     405, READ_ONLY_FILESYSTEM
//	POST   /fs/<name>     405, READ_ONLY_FILESYSTEM
//	DELETE /fs/<name>     405, READ_ONLY_FILESYSTEM
//	GET    /mounts        JSON []mount.MountStats
//	GET    /metrics       Prometheus exposition
//	GET    /healthz       liveness
//
// <name> is a slash path such as github.com/org/repo.git/main/README.md.
// A full URI can be given instead with ?uri=.
package httpfs
