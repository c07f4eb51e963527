package mount

import (
	"context"
	"os"
	osexec "os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fsbilly "github.com/jmgilman/gitfs/fs/billy"
	"github.com/jmgilman/gitfs/git"
	"github.com/jmgilman/gitfs/git/testutil"
)

func requireGit(t *testing.T) {
	t.Helper()
	if _, err := osexec.LookPath("git"); err != nil {
		t.Skip("git CLI not available, skipping test")
	}
}

func TestIntegration_MountSourceRepository(t *testing.T) {
	requireGit(t)

	backends := map[string]func() git.Backend{
		"native": func() git.Backend { return git.NewNativeBackend() },
		"cli":    func() git.Backend { return git.NewCLIBackend(nil) },
	}

	for name, newBackend := range backends {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			src := testutil.NewSourceRepo(t, filepath.Join(t.TempDir(), "org", "repo.git"),
				testutil.TestBranchMain, testutil.DefaultFiles())
			base := "file://" + filepath.ToSlash(src.Path) + "/" + testutil.TestBranchMain + "/"

			clock := clockwork.NewFakeClock()
			cache, err := NewCache(fsbilly.NewLocal(t.TempDir()),
				WithBackend(newBackend()), WithClock(clock))
			require.NoError(t, err)
			defer func() { _ = cache.Close(ctx) }()

			h, err := cache.GetOrCreate(ctx, base+testutil.TestFilePath)
			require.NoError(t, err)
			assert.Equal(t, src.Head(), h.Head())

			data, err := h.ReadFile(base + testutil.TestFilePath)
			require.NoError(t, err)
			assert.Equal(t, testutil.TestFileContent, string(data))

			statuses, err := h.ListStatus(base)
			require.NoError(t, err)
			var paths []string
			for _, st := range statuses {
				paths = append(paths, st.Path)
			}
			assert.ElementsMatch(t, []string{
				base + "README.md",
				base + "docs",
				base + "main.go",
			}, paths)

			// New commits arrive through a lazy pull once the copy is stale.
			src.Commit(map[string]string{"new.txt": "fresh\n"}, testutil.TestFeatureCommit)
			src.Symlink("link.md", testutil.TestFilePath, "Add link")
			clock.Advance(6 * time.Second)

			data, err = h.ReadFile(base + "new.txt")
			require.NoError(t, err)
			assert.Equal(t, "fresh\n", string(data))
			assert.Equal(t, src.Head(), h.Head())

			st, err := h.FileStatus(base + "link.md")
			require.NoError(t, err)
			assert.Equal(t, base+testutil.TestFilePath, st.Symlink)

			// Deleted files disappear on the next pull.
			src.Remove("Remove guide", testutil.TestFilePath2)
			require.NoError(t, h.Pull(ctx))
			ok, err := h.Exists(base + testutil.TestFilePath2)
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestIntegration_MissingBranchFallsBackToHead(t *testing.T) {
	requireGit(t)
	ctx := context.Background()

	src := testutil.NewSourceRepo(t, filepath.Join(t.TempDir(), "org", "repo.git"),
		testutil.TestBranchMain, testutil.DefaultFiles())
	uri := "file://" + filepath.ToSlash(src.Path) + "/no-such-branch/" + testutil.TestFilePath

	cache, err := NewCache(fsbilly.NewLocal(t.TempDir()))
	require.NoError(t, err)
	defer func() { _ = cache.Close(ctx) }()

	h, err := cache.GetOrCreate(ctx, uri)
	require.NoError(t, err)
	assert.Equal(t, src.Head(), h.Head())

	data, err := h.ReadFile(uri)
	require.NoError(t, err)
	assert.Equal(t, testutil.TestFileContent, string(data))
}

func TestIntegration_SymlinksCannotLeaveWorkingCopy(t *testing.T) {
	requireGit(t)
	ctx := context.Background()

	outside := t.TempDir()
	secret := filepath.Join(outside, "secret.txt")
	require.NoError(t, os.WriteFile(secret, []byte("HOST SECRET\n"), 0o600))
	climb := strings.Repeat("../", 16)

	src := testutil.NewSourceRepo(t, filepath.Join(t.TempDir(), "org", "repo.git"),
		testutil.TestBranchMain, testutil.DefaultFiles())
	src.Symlink("leak", climb+strings.TrimPrefix(filepath.ToSlash(secret), "/"), "Add file link")
	src.Symlink("escape", climb+strings.TrimPrefix(filepath.ToSlash(outside), "/"), "Add directory link")
	base := "file://" + filepath.ToSlash(src.Path) + "/" + testutil.TestBranchMain + "/"

	cache, err := NewCache(fsbilly.NewLocal(t.TempDir()), WithBackend(git.NewNativeBackend()))
	require.NoError(t, err)
	defer func() { _ = cache.Close(ctx) }()

	h, err := cache.GetOrCreate(ctx, base)
	require.NoError(t, err)

	for _, name := range []string{"leak", "escape/secret.txt"} {
		t.Run(name, func(t *testing.T) {
			data, err := h.ReadFile(base + name)
			assert.Error(t, err)
			assert.Empty(t, data)

			f, err := h.Open(base + name)
			if err == nil {
				_ = f.Close()
			}
			assert.Error(t, err)
		})
	}

	st, err := h.FileStatus(base + "leak")
	require.NoError(t, err)
	assert.Empty(t, st.Symlink)

	data, err := h.ReadFile(base + testutil.TestFilePath)
	require.NoError(t, err)
	assert.Equal(t, testutil.TestFileContent, string(data))
}
