// Package config resolves gitfs settings.
//
// Every setting has a dotted key and an environment variable:
//
//	pull.lazy          GITFS_PULL_LAZY          5s
//	pull.eager         GITFS_PULL_EAGER         5s
//	dismount.seconds   GITFS_DISMOUNT_SECONDS   60s
//	dismount.delete    GITFS_DISMOUNT_DELETE    false
//	datadir            GITFS_DATADIR            <tmp>/git
//	auth.user          GITFS_AUTH_USER
//	auth.pass          GITFS_AUTH_PASS
//	refresh.interval   GITFS_REFRESH_INTERVAL   1s
//	backend            GITFS_BACKEND            native
//	scheme             GITFS_SCHEME             https
//
// Values come from the environment and from process-level properties (the
// --set flag of the CLI, or a map given by an embedding program). The two
// sources are merged; a key both set to different values is rejected with
// CodeConfigConflict rather than one silently winning.
//
// Durations accept Go syntax ("90s", "1m30s") or a bare number of seconds.
package config
