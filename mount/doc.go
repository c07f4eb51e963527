// Package mount materializes git branches as local working copies and keeps
// them fresh.
//
// # Overview
//
// A virtual path names a file on a branch of a remote repository:
//
//	https://example.com/org/repo.git/main/docs/guide.md
//	└─ scheme://host/<repo-path>.git/<branch>/<file>
//
// Every path sharing host, repository and branch falls into one mount,
// identified by an Identity. The Cache creates a Handle for an identity on
// first use: it opens or initializes a working copy, fetches the branch and
// checks it out. Later paths with the same identity reuse the handle.
//
// # Layout
//
// Working copies live under the data directory, one per identity:
//
//	/var/tmp/git/
//	├── index.json                   # Mount index
//	└── example.com/
//	    └── org/
//	        └── repo.git/
//	            ├── main/            # Working copy of branch main
//	            └── develop/
//
// The index records every working copy ever materialized so that copies
// left behind by a crash can be removed by Cache.Sweep.
//
// # Freshness
//
// A Handle pulls in two ways:
//
//   - Lazily: an access to a copy older than LazyPullPeriod pulls before it
//     is served. A failing fetch is logged and the stale copy is served.
//   - Eagerly: the Refresher pulls every copy older than EagerPullPeriod on
//     each tick, and evicts copies not accessed for DismountPeriod.
//
// A pull never rewrites local modifications: a checkout that would lose
// them fails with CodeConflict.
//
// # Usage
//
//	cache, err := mount.NewCache(billy.NewLocal("/var/tmp/git"))
//	if err != nil {
//	    return err
//	}
//	refresher := mount.NewRefresher(cache, time.Second)
//	refresher.Start(ctx)
//	defer refresher.Stop()
//
//	h, err := cache.GetOrCreate(ctx, "https://example.com/org/repo.git/main/README.md")
//	if err != nil {
//	    return err
//	}
//	data, err := h.ReadFile("README.md")
//
// Handles are read-only. Every mutating operation fails with an error for
// which errors.Is(err, core.ErrReadOnly) holds.
package mount
