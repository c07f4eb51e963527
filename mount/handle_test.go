package mount

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path"
	"testing"
	"time"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmgilman/gitfs/errors"
	"github.com/jmgilman/gitfs/fs/core"
	"github.com/jmgilman/gitfs/git"
	"github.com/jmgilman/gitfs/mount/mounttest"
)

func mountTestHandle(t *testing.T, opts ...Option) (*Handle, *mounttest.Backend, *Cache) {
	t.Helper()

	backend := mounttest.NewBackend()
	cache, _, _ := newTestCache(t, backend, opts...)
	h, err := cache.GetOrCreate(context.Background(), testURI)
	require.NoError(t, err)
	return h, backend, cache
}

func TestHandle_Initialize(t *testing.T) {
	h, backend, _ := mountTestHandle(t)

	opens, fetches, checkouts := backend.Counts()
	assert.Equal(t, 1, opens)
	assert.Equal(t, 1, fetches)
	assert.Equal(t, 1, checkouts)
	assert.Equal(t, []string{"https://example.com/org/repo.git"}, backend.Remotes())

	assert.Equal(t, StateReady, h.State())
	assert.Equal(t, testIdentity, h.Identity())
	assert.Equal(t, "main", h.Branch())
	assert.Equal(t, testLocalDir, h.LocalDir())
	assert.Equal(t, testBase, h.URI())
	assert.Equal(t, testBase, h.WorkingDirectory())
	assert.Equal(t, commitA, h.Head())
	assert.Equal(t, core.FSTypeMount, h.Type())
}

func TestHandle_Reads(t *testing.T) {
	h, _, _ := mountTestHandle(t)

	t.Run("virtual and relative names", func(t *testing.T) {
		for _, name := range []string{testBase + "readme.md", "readme.md", "/readme.md"} {
			data, err := h.ReadFile(name)
			require.NoError(t, err, name)
			assert.Equal(t, "hello\n", string(data))
		}
	})

	t.Run("open", func(t *testing.T) {
		f, err := h.Open(testBase + "docs/guide.md")
		require.NoError(t, err)
		defer f.Close()

		data, err := io.ReadAll(f)
		require.NoError(t, err)
		assert.Equal(t, "guide\n", string(data))
	})

	t.Run("stat", func(t *testing.T) {
		info, err := h.Stat(testBase + "docs")
		require.NoError(t, err)
		assert.True(t, info.IsDir())

		info, err = h.Stat(testBase)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})

	t.Run("exists", func(t *testing.T) {
		ok, err := h.Exists(testBase + "readme.md")
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = h.Exists(testBase + "missing.md")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("outside the mount", func(t *testing.T) {
		_, err := h.ReadFile("https://example.com/org/other.git/main/readme.md")
		assert.ErrorIs(t, err, fs.ErrNotExist)

		_, err = h.ReadFile("../../escape")
		assert.Error(t, err)
	})

	t.Run("open for reading", func(t *testing.T) {
		f, err := h.OpenFile("readme.md", os.O_RDONLY, 0)
		require.NoError(t, err)
		assert.NoError(t, f.Close())
	})
}

func TestHandle_HidesGitDirectory(t *testing.T) {
	h, _, _ := mountTestHandle(t)

	entries, err := h.ReadDir(testBase)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{"docs", "readme.md"}, names)

	_, err = h.ReadFile(".git/HEAD")
	assert.ErrorIs(t, err, fs.ErrNotExist)

	ok, err := h.Exists(testBase + ".git")
	require.NoError(t, err)
	assert.False(t, ok)

	statuses, err := h.ListStatus(testBase)
	require.NoError(t, err)
	for _, st := range statuses {
		assert.NotEqual(t, testBase+".git", st.Path)
	}
}

func TestHandle_Walk(t *testing.T) {
	h, _, _ := mountTestHandle(t)

	t.Run("virtual root", func(t *testing.T) {
		var visited []string
		err := h.Walk(testBase, func(p string, _ fs.DirEntry, err error) error {
			require.NoError(t, err)
			visited = append(visited, p)
			return nil
		})
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{
			testBase,
			testBase + "docs",
			testBase + "docs/guide.md",
			testBase + "readme.md",
		}, visited)
	})

	t.Run("relative root", func(t *testing.T) {
		var visited []string
		err := h.Walk("docs", func(p string, _ fs.DirEntry, err error) error {
			require.NoError(t, err)
			visited = append(visited, p)
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"docs", "docs/guide.md"}, visited)
	})
}

func TestHandle_ListStatus(t *testing.T) {
	h, _, cache := mountTestHandle(t)
	root := cache.root

	local := func(name string) string { return path.Join(testLocalDir, name) }
	require.NoError(t, root.Symlink("readme.md", local("relative.md")))
	require.NoError(t, root.Symlink("/"+local("docs/guide.md"), local("absolute.md")))
	require.NoError(t, root.Symlink("../../../outside", local("escape.md")))
	require.NoError(t, root.Symlink("/etc/passwd", local("system.md")))

	t.Run("directory", func(t *testing.T) {
		statuses, err := h.ListStatus(testBase)
		require.NoError(t, err)

		byPath := make(map[string]core.FileStatus)
		for _, st := range statuses {
			byPath[st.Path] = st
		}
		require.Len(t, byPath, 6)

		assert.True(t, byPath[testBase+"docs"].IsDir)
		assert.Equal(t, int64(len("hello\n")), byPath[testBase+"readme.md"].Size)
		assert.Empty(t, byPath[testBase+"readme.md"].Symlink)
		assert.Equal(t, testBase+"readme.md", byPath[testBase+"relative.md"].Symlink)
		assert.Equal(t, testBase+"docs/guide.md", byPath[testBase+"absolute.md"].Symlink)
		assert.Empty(t, byPath[testBase+"escape.md"].Symlink)
		assert.Empty(t, byPath[testBase+"system.md"].Symlink)
	})

	t.Run("file", func(t *testing.T) {
		statuses, err := h.ListStatus(testBase + "docs/guide.md")
		require.NoError(t, err)
		require.Len(t, statuses, 1)
		assert.Equal(t, testBase+"docs/guide.md", statuses[0].Path)
		assert.False(t, statuses[0].IsDir)
	})

	t.Run("file status of a link", func(t *testing.T) {
		st, err := h.FileStatus("relative.md")
		require.NoError(t, err)
		assert.Equal(t, testBase+"relative.md", st.Path)
		assert.NotZero(t, st.Mode&fs.ModeSymlink)
		assert.Equal(t, testBase+"readme.md", st.Symlink)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := h.ListStatus(testBase + "missing")
		assert.ErrorIs(t, err, fs.ErrNotExist)
	})
}

func TestHandle_RejectsWrites(t *testing.T) {
	h, backend, cache := mountTestHandle(t)
	name := testBase + "readme.md"

	mutations := map[string]func() error{
		"Create":              func() error { _, err := h.Create(name); return err },
		"Append":              func() error { _, err := h.Append(name); return err },
		"OpenFileWrite":       func() error { _, err := h.OpenFile(name, os.O_WRONLY|os.O_TRUNC, 0o644); return err },
		"OpenFileCreate":      func() error { _, err := h.OpenFile(testBase+"new.md", os.O_CREATE, 0o644); return err },
		"WriteFile":           func() error { return h.WriteFile(name, []byte("x"), 0o644) },
		"Mkdir":               func() error { return h.Mkdir(testBase+"dir", 0o755) },
		"MkdirAll":            func() error { return h.MkdirAll(testBase+"a/b", 0o755) },
		"Mkdirs":              func() error { return h.Mkdirs(testBase+"a/b", 0o755) },
		"Remove":              func() error { return h.Remove(name) },
		"RemoveAll":           func() error { return h.RemoveAll(testBase) },
		"Delete":              func() error { return h.Delete(name, true) },
		"Rename":              func() error { return h.Rename(name, testBase+"moved.md") },
		"Symlink":             func() error { return h.Symlink(name, testBase+"link.md") },
		"SetWorkingDirectory": func() error { return h.SetWorkingDirectory(testBase + "docs") },
	}

	for op, mutate := range mutations {
		t.Run(op, func(t *testing.T) {
			err := mutate()
			require.Error(t, err)
			assert.Equal(t, errors.CodeReadOnly, errors.GetCode(err))
			assert.ErrorIs(t, err, core.ErrReadOnly)
			assert.True(t, errors.IsReadOnly(err))
		})
	}

	data, err := cache.root.ReadFile(path.Join(testLocalDir, "readme.md"))
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(data))
	ok, err := cache.root.Exists(path.Join(testLocalDir, "new.md"))
	require.NoError(t, err)
	assert.False(t, ok)

	_, fetches, _ := backend.Counts()
	assert.Equal(t, 1, fetches, "rejected writes must not pull")
}

func TestHandle_Touch(t *testing.T) {
	ctx := context.Background()

	t.Run("fresh copy does not pull", func(t *testing.T) {
		h, backend, cache := mountTestHandle(t)
		advance(cache, 5*time.Second)

		require.NoError(t, h.Touch(ctx))
		_, fetches, _ := backend.Counts()
		assert.Equal(t, 1, fetches)
	})

	t.Run("stale copy pulls before serving", func(t *testing.T) {
		h, backend, cache := mountTestHandle(t)
		backend.Advance(commitB)
		advance(cache, 6*time.Second)

		data, err := h.ReadFile("readme.md")
		require.NoError(t, err)
		assert.Equal(t, "hello again\n", string(data))
		assert.Equal(t, commitB, h.Head())
		assert.Equal(t, time.Duration(0), h.SinceFetch())
		assert.Equal(t, time.Duration(0), h.SinceTouch())
	})

	t.Run("transport failure serves stale copy", func(t *testing.T) {
		h, backend, cache := mountTestHandle(t)
		backend.SetFetchErr(errors.New(errors.CodeNetwork, "connection refused"))
		advance(cache, 6*time.Second)

		data, err := h.ReadFile("readme.md")
		require.NoError(t, err)
		assert.Equal(t, "hello\n", string(data))
		assert.Equal(t, StateReady, h.State())
	})

	t.Run("checkout conflict surfaces", func(t *testing.T) {
		h, backend, cache := mountTestHandle(t)
		backend.Advance(commitB)
		backend.SetCheckoutErr(errors.New(errors.CodeConflict, "local changes would be overwritten"))
		advance(cache, 6*time.Second)

		_, err := h.ReadFile("readme.md")
		require.Error(t, err)
		assert.Equal(t, errors.CodeConflict, errors.GetCode(err))
	})
}

func TestHandle_Pull(t *testing.T) {
	ctx := context.Background()

	t.Run("transport failure is retryable", func(t *testing.T) {
		h, backend, _ := mountTestHandle(t)
		backend.SetFetchErr(os.ErrDeadlineExceeded)

		err := h.Pull(ctx)
		require.Error(t, err)
		assert.Equal(t, errors.CodeNetwork, errors.GetCode(err))
		assert.True(t, errors.IsRetryable(err))
		assert.Equal(t, StateReady, h.State())
	})

	t.Run("falls back to advertised HEAD", func(t *testing.T) {
		h, backend, _ := mountTestHandle(t)
		backend.SetRefs([]git.Ref{{Name: plumbing.HEAD, Hash: commitB}})

		require.NoError(t, h.Pull(ctx))
		assert.Equal(t, commitB, h.Head())
	})

	t.Run("no refs is a no-op", func(t *testing.T) {
		h, backend, _ := mountTestHandle(t)
		backend.SetRefs(nil)

		require.NoError(t, h.Pull(ctx))
		assert.Equal(t, commitA, h.Head())
		_, _, checkouts := backend.Counts()
		assert.Equal(t, 1, checkouts)
	})

	t.Run("unknown commit keeps head", func(t *testing.T) {
		h, backend, _ := mountTestHandle(t)
		backend.Advance(plumbing.NewHash("3333333333333333333333333333333333333333"))

		require.NoError(t, h.Pull(ctx))
		assert.Equal(t, commitA, h.Head())
	})
}

func TestHandle_Dismounted(t *testing.T) {
	h, _, cache := mountTestHandle(t)
	require.NoError(t, cache.Remove(context.Background(), testIdentity))

	assert.Equal(t, StateDismounted, h.State())

	_, err := h.ReadFile("readme.md")
	require.Error(t, err)
	assert.Equal(t, errors.CodeUnavailable, errors.GetCode(err))

	err = h.Pull(context.Background())
	assert.Equal(t, errors.CodeUnavailable, errors.GetCode(err))

	err = h.Touch(context.Background())
	assert.Equal(t, errors.CodeUnavailable, errors.GetCode(err))
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "uninitialized", StateUninitialized.String())
	assert.Equal(t, "ready", StateReady.String())
	assert.Equal(t, "refreshing", StateRefreshing.String())
	assert.Equal(t, "dismounted", StateDismounted.String())
	assert.Equal(t, "unknown", State(42).String())
}

func advance(cache *Cache, d time.Duration) {
	cache.Clock().(clockwork.FakeClock).Advance(d)
}
