// Package git provides the version-control backend gitfs mounts are built on.
//
// A Backend opens or initializes a local working copy inside a billy
// filesystem. A WorkingCopy can then be pointed at a remote, fetch a single
// branch from it, and check out the fetched commit. The package never
// clones: a working copy is created empty and filled by fetches, so the
// first materialization and every later refresh follow the same path.
//
// # Backends
//
// NativeBackend uses go-git and works on any billy filesystem, including
// memfs. CLIBackend runs the git binary through the exec package; it needs
// git in PATH and an OS-backed filesystem, and rejects memory filesystems.
//
//	backend := git.NewNativeBackend()
//	wc, err := backend.OpenOrInit(ctx, osfs.New("/var/tmp/git"), "example.com/org/repo.git/main")
//	if err != nil {
//	    return err
//	}
//	if err := wc.ConfigureRemote(ctx, git.RemoteOptions{URL: "https://example.com/org/repo.git"}); err != nil {
//	    return err
//	}
//	refs, err := wc.FetchBranch(ctx, git.FetchOptions{Branch: "main"})
//	if err != nil {
//	    return err
//	}
//	if ref, ok := git.FindRef(refs, plumbing.NewBranchReferenceName("main")); ok {
//	    _, err = wc.Checkout(ctx, ref)
//	}
//
// # Fetch semantics
//
// FetchBranch lists the remote first and returns every advertised ref, with
// a symbolic HEAD resolved to a hash. If the requested branch exists it is
// fetched into refs/remotes/origin/<branch>; otherwise the branch HEAD points
// to is fetched, so a caller can fall back to the HEAD ref. A remote with no
// refs at all returns no refs and no error.
//
// Checkout detaches HEAD at the ref's commit. It reports false, and leaves
// the tree alone, when the commit is not present locally. Local edits to
// tracked files are never overwritten; such a checkout fails with
// errors.CodeConflict.
//
// # Authentication
//
//	// Basic authentication (HTTPS)
//	auth := git.BasicAuth("username", "token")
//
//	// No authentication (public repositories)
//	auth := git.EmptyAuth()
//
// The CLI backend sends basic credentials as an HTTP header and registers
// them with exec.WithRedact, so they never appear in errors or logs.
//
// # Error Handling
//
// Errors are errors.PlatformError values. go-git errors and git stderr are
// classified into codes (CodeNotFound, CodeUnauthorized, CodeConflict,
// CodeNetwork, ...) while the original error stays in the chain:
//
//	if errors.GetCode(err) == errors.CodeConflict {
//	    // local changes block the checkout
//	}
package git
