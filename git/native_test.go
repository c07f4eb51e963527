package git

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/go-git/go-git/v5/plumbing"
	platformerrors "github.com/jmgilman/gitfs/errors"
	"github.com/jmgilman/gitfs/git/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNativeBackend_OpenOrInit(t *testing.T) {
	ctx := context.Background()
	fs := memfs.New()
	backend := NewNativeBackend()

	t.Run("initializes empty repository", func(t *testing.T) {
		wc, err := backend.OpenOrInit(ctx, fs, "example.com/org/repo.git/main")
		require.NoError(t, err)

		head, err := wc.Head(ctx)
		require.NoError(t, err)
		assert.True(t, head.IsZero())

		info, err := fs.Stat("example.com/org/repo.git/main/.git")
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})

	t.Run("reopens existing repository", func(t *testing.T) {
		first, err := backend.OpenOrInit(ctx, fs, "reopen")
		require.NoError(t, err)
		require.NoError(t, first.ConfigureRemote(ctx, RemoteOptions{URL: "https://example.com/org/repo.git"}))

		second, err := backend.OpenOrInit(ctx, fs, "reopen")
		require.NoError(t, err)

		cfg, err := second.(*nativeWorkingCopy).repo.Config()
		require.NoError(t, err)
		require.Contains(t, cfg.Remotes, DefaultRemote)
		assert.Equal(t, []string{"https://example.com/org/repo.git"}, cfg.Remotes[DefaultRemote].URLs)
	})
}

func TestNativeBackend_ConfigureRemote(t *testing.T) {
	ctx := context.Background()
	wc, err := NewNativeBackend().OpenOrInit(ctx, memfs.New(), "wc")
	require.NoError(t, err)

	require.NoError(t, wc.ConfigureRemote(ctx, RemoteOptions{URL: "https://a.example/org/repo.git"}))
	require.NoError(t, wc.ConfigureRemote(ctx, RemoteOptions{Name: DefaultRemote, URL: "https://b.example/org/repo.git"}))

	cfg, err := wc.(*nativeWorkingCopy).repo.Config()
	require.NoError(t, err)
	remote := cfg.Remotes[DefaultRemote]
	require.NotNil(t, remote)
	assert.Equal(t, []string{"https://b.example/org/repo.git"}, remote.URLs)
	require.Len(t, remote.Fetch, 1)
	assert.Equal(t, "+refs/heads/*:refs/remotes/origin/*", remote.Fetch[0].String())
}

func TestNativeBackend_FetchAndCheckout(t *testing.T) {
	requireGit(t)
	ctx := context.Background()
	src := newSource(t)
	fs := memfs.New()

	wc, err := NewNativeBackend().OpenOrInit(ctx, fs, "wc")
	require.NoError(t, err)

	refs := connect(t, wc, src.Path, testutil.TestBranchMain)
	ref, ok := FindRef(refs, plumbing.NewBranchReferenceName(testutil.TestBranchMain))
	require.True(t, ok, "branch ref should be advertised")
	assert.Equal(t, src.Head(), ref.Hash)

	head, ok := FindRef(refs, plumbing.HEAD)
	require.True(t, ok, "HEAD should be advertised")
	assert.Equal(t, src.Head(), head.Hash)

	checkedOut, err := wc.Checkout(ctx, ref)
	require.NoError(t, err)
	assert.True(t, checkedOut)

	content, err := util.ReadFile(fs, "wc/README.md")
	require.NoError(t, err)
	assert.Equal(t, testutil.TestFileContent, string(content))

	got, err := wc.Head(ctx)
	require.NoError(t, err)
	assert.Equal(t, src.Head(), got)

	t.Run("follows new commits", func(t *testing.T) {
		src.Commit(map[string]string{"new.txt": "fresh"}, testutil.TestFeatureCommit)
		src.Remove("drop main.go", testutil.TestGoFilePath)

		refs := connect(t, wc, src.Path, testutil.TestBranchMain)
		ref, ok := FindRef(refs, plumbing.NewBranchReferenceName(testutil.TestBranchMain))
		require.True(t, ok)

		checkedOut, err := wc.Checkout(ctx, ref)
		require.NoError(t, err)
		assert.True(t, checkedOut)

		content, err := util.ReadFile(fs, "wc/new.txt")
		require.NoError(t, err)
		assert.Equal(t, "fresh", string(content))

		_, err = fs.Stat("wc/" + testutil.TestGoFilePath)
		assert.Error(t, err, "removed file should be gone")
	})
}

func TestNativeBackend_FetchFallsBackToHead(t *testing.T) {
	requireGit(t)
	ctx := context.Background()
	src := newSource(t)

	wc, err := NewNativeBackend().OpenOrInit(ctx, memfs.New(), "wc")
	require.NoError(t, err)

	refs := connect(t, wc, src.Path, "does-not-exist")
	_, ok := FindRef(refs, plumbing.NewBranchReferenceName("does-not-exist"))
	assert.False(t, ok)

	head, ok := FindRef(refs, plumbing.HEAD)
	require.True(t, ok)

	checkedOut, err := wc.Checkout(ctx, head)
	require.NoError(t, err)
	assert.True(t, checkedOut, "HEAD's branch should have been fetched")
}

func TestNativeBackend_FetchEmptyRemote(t *testing.T) {
	requireGit(t)
	dir := filepath.Join(t.TempDir(), "empty.git")
	testutil.NewSourceRepo(t, dir, testutil.TestBranchMain, nil)

	wc, err := NewNativeBackend().OpenOrInit(context.Background(), memfs.New(), "wc")
	require.NoError(t, err)

	refs := connect(t, wc, dir, testutil.TestBranchMain)
	assert.Empty(t, refs)
}

func TestNativeBackend_FetchMissingRemote(t *testing.T) {
	requireGit(t)
	ctx := context.Background()
	wc, err := NewNativeBackend().OpenOrInit(ctx, memfs.New(), "wc")
	require.NoError(t, err)
	require.NoError(t, wc.ConfigureRemote(ctx, RemoteOptions{URL: filepath.Join(t.TempDir(), "missing.git")}))

	_, err = wc.FetchBranch(ctx, FetchOptions{Branch: "main"})
	require.Error(t, err)
	assert.NotEqual(t, platformerrors.CodeUnknown, platformerrors.GetCode(err))
}

func TestNativeBackend_CheckoutUnresolved(t *testing.T) {
	ctx := context.Background()
	wc, err := NewNativeBackend().OpenOrInit(ctx, memfs.New(), "wc")
	require.NoError(t, err)

	t.Run("zero hash", func(t *testing.T) {
		ok, err := wc.Checkout(ctx, Ref{Name: plumbing.HEAD})
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("unknown commit", func(t *testing.T) {
		ok, err := wc.Checkout(ctx, Ref{
			Name: plumbing.HEAD,
			Hash: plumbing.NewHash("0123456789abcdef0123456789abcdef01234567"),
		})
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestNativeBackend_CheckoutConflict(t *testing.T) {
	requireGit(t)
	ctx := context.Background()
	src := newSource(t)
	fs := osfs.New(t.TempDir())

	wc, err := NewNativeBackend().OpenOrInit(ctx, fs, "wc")
	require.NoError(t, err)
	refs := connect(t, wc, src.Path, testutil.TestBranchMain)
	ref, _ := FindRef(refs, plumbing.NewBranchReferenceName(testutil.TestBranchMain))
	_, err = wc.Checkout(ctx, ref)
	require.NoError(t, err)
	before := ref.Hash

	// Local edit to a tracked file
	require.NoError(t, util.WriteFile(fs, "wc/README.md", []byte("local edit"), 0o644))

	src.Commit(map[string]string{testutil.TestFilePath: "upstream edit"}, testutil.TestFeatureCommit)
	refs = connect(t, wc, src.Path, testutil.TestBranchMain)
	ref, _ = FindRef(refs, plumbing.NewBranchReferenceName(testutil.TestBranchMain))

	_, err = wc.Checkout(ctx, ref)
	require.Error(t, err)
	assert.Equal(t, platformerrors.CodeConflict, platformerrors.GetCode(err))

	head, err := wc.Head(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, head, "HEAD must not move on conflict")

	content, err := util.ReadFile(fs, "wc/README.md")
	require.NoError(t, err)
	assert.Equal(t, "local edit", string(content))
}

func TestResolveAdvertised(t *testing.T) {
	main := plumbing.NewHash("1111111111111111111111111111111111111111")
	dev := plumbing.NewHash("2222222222222222222222222222222222222222")
	advertised := []*plumbing.Reference{
		plumbing.NewSymbolicReference(plumbing.HEAD, "refs/heads/main"),
		plumbing.NewHashReference("refs/heads/main", main),
		plumbing.NewHashReference("refs/heads/dev", dev),
		plumbing.NewSymbolicReference("refs/heads/dangling", "refs/heads/gone"),
	}

	refs, target := resolveAdvertised(advertised)
	assert.Equal(t, plumbing.ReferenceName("refs/heads/main"), target)
	assert.ElementsMatch(t, []Ref{
		{Name: plumbing.HEAD, Hash: main},
		{Name: "refs/heads/main", Hash: main},
		{Name: "refs/heads/dev", Hash: dev},
	}, refs)
}
