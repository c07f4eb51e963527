package git

import (
	"context"
	osexec "os/exec"
	"path/filepath"
	"testing"

	"github.com/jmgilman/gitfs/git/testutil"
)

// isGitAvailable checks if the git CLI is available on the system.
// The file transport runs git-upload-pack, so native fetches need it too.
func isGitAvailable() bool {
	_, err := osexec.LookPath("git")
	return err == nil
}

// requireGit skips the test if git CLI is not available.
func requireGit(t *testing.T) {
	t.Helper()
	if !isGitAvailable() {
		t.Skip("git CLI not available, skipping test")
	}
}

// newSource creates a source repository with the default tree on main.
func newSource(t *testing.T) *testutil.SourceRepo {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "org", "repo.git")
	return testutil.NewSourceRepo(t, dir, testutil.TestBranchMain, testutil.DefaultFiles())
}

// connect configures origin on wc and fetches branch.
func connect(t *testing.T, wc WorkingCopy, url, branch string) []Ref {
	t.Helper()
	ctx := context.Background()
	if err := wc.ConfigureRemote(ctx, RemoteOptions{URL: url}); err != nil {
		t.Fatalf("ConfigureRemote() error = %v", err)
	}
	refs, err := wc.FetchBranch(ctx, FetchOptions{Branch: branch})
	if err != nil {
		t.Fatalf("FetchBranch() error = %v", err)
	}
	return refs
}
