package gitfs

import (
	"context"
	"io/fs"
	"sort"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmgilman/gitfs/config"
	"github.com/jmgilman/gitfs/errors"
	fsbilly "github.com/jmgilman/gitfs/fs/billy"
	"github.com/jmgilman/gitfs/fs/fstest"
	"github.com/jmgilman/gitfs/mount"
	"github.com/jmgilman/gitfs/mount/mounttest"
)

const (
	testRoot = "example.com/org/repo.git/main"
	testBase = "https://example.com/org/repo.git/main/"
)

func testSettings(t *testing.T, props map[string]string) config.Settings {
	t.Helper()
	settings, err := config.Load(context.Background(), envconfig.MapLookuper(map[string]string{}), props)
	require.NoError(t, err)
	return settings
}

func newTestFS(t *testing.T, opts ...Option) (*FS, *mounttest.Backend) {
	t.Helper()

	backend := mounttest.NewBackend()
	opts = append([]Option{
		WithDataFS(fsbilly.NewMemory()),
		WithBackend(backend),
		WithClock(clockwork.NewFakeClock()),
	}, opts...)

	gfs, err := New(context.Background(), testSettings(t, nil), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = gfs.Close(context.Background()) })
	return gfs, backend
}

func treeA() map[string][]byte {
	files := make(map[string][]byte, len(mounttest.TreeA))
	for name, content := range mounttest.TreeA {
		files[name] = []byte(content)
	}
	return files
}

func TestFS_ReadOnly(t *testing.T) {
	gfs, _ := newTestFS(t)
	fstest.TestReadOnly(t, gfs, testRoot, treeA())
}

func TestFS_ChrootReadOnly(t *testing.T) {
	gfs, _ := newTestFS(t)
	view, err := gfs.Chroot(testRoot)
	require.NoError(t, err)
	fstest.TestReadOnly(t, view, ".", treeA())
}

func TestFS_Names(t *testing.T) {
	gfs, backend := newTestFS(t)

	for _, name := range []string{
		testBase + "readme.md",
		testRoot + "/readme.md",
		"/" + testRoot + "/readme.md",
	} {
		data, err := gfs.ReadFile(name)
		require.NoError(t, err, name)
		assert.Equal(t, "hello\n", string(data))
	}

	assert.Equal(t, 1, gfs.Cache().Len())
	opens, _, _ := backend.Counts()
	assert.Equal(t, 1, opens)
	assert.Equal(t, []string{"https://example.com/org/repo.git"}, backend.Remotes())
}

func TestFS_NoMount(t *testing.T) {
	gfs, backend := newTestFS(t)

	for _, name := range []string{".", "example.com", "example.com/org", "example.com/org/repo.git"} {
		_, err := gfs.Stat(name)
		assert.ErrorIs(t, err, fs.ErrNotExist, name)

		exists, err := gfs.Exists(name)
		require.NoError(t, err, name)
		assert.False(t, exists, name)
	}

	opens, _, _ := backend.Counts()
	assert.Zero(t, opens)
}

func TestFS_GitDirHidden(t *testing.T) {
	gfs, _ := newTestFS(t)

	_, err := gfs.ReadFile(testRoot + "/.git/HEAD")
	assert.ErrorIs(t, err, fs.ErrNotExist)

	entries, err := gfs.ReadDir(testRoot)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotEqual(t, ".git", e.Name())
	}
}

func TestFS_Chroot(t *testing.T) {
	gfs, _ := newTestFS(t)
	assert.Equal(t, RootURI, gfs.URI())
	assert.Equal(t, RootURI, gfs.WorkingDirectory())

	view, err := gfs.Chroot(testBase)
	require.NoError(t, err)
	assert.Equal(t, testBase, view.(*FS).URI())

	data, err := view.ReadFile("docs/guide.md")
	require.NoError(t, err)
	assert.Equal(t, "guide\n", string(data))

	t.Run("cannot climb above the view", func(t *testing.T) {
		data, err := view.ReadFile("../../readme.md")
		require.NoError(t, err)
		assert.Equal(t, "hello\n", string(data))
	})

	t.Run("shares mounts", func(t *testing.T) {
		assert.Equal(t, 1, gfs.Cache().Len())
		_, err := gfs.ReadFile(testRoot + "/readme.md")
		require.NoError(t, err)
		assert.Equal(t, 1, gfs.Cache().Len())
	})

	t.Run("nested", func(t *testing.T) {
		docs, err := view.Chroot("docs")
		require.NoError(t, err)
		data, err := docs.ReadFile("guide.md")
		require.NoError(t, err)
		assert.Equal(t, "guide\n", string(data))
	})
}

func TestFS_Status(t *testing.T) {
	gfs, _ := newTestFS(t)

	statuses, err := gfs.ListStatus(testRoot)
	require.NoError(t, err)

	var paths []string
	for _, st := range statuses {
		paths = append(paths, st.Path)
	}
	sort.Strings(paths)
	assert.Equal(t, []string{testBase + "docs", testBase + "readme.md"}, paths)

	st, err := gfs.FileStatus(testRoot + "/docs/guide.md")
	require.NoError(t, err)
	assert.Equal(t, testBase+"docs/guide.md", st.Path)
	assert.Equal(t, int64(len("guide\n")), st.Size)
}

func TestFS_Walk(t *testing.T) {
	gfs, _ := newTestFS(t)

	tests := []struct {
		name string
		root string
		want []string
	}{
		{
			name: "slash path",
			root: testRoot,
			want: []string{testRoot, testRoot + "/docs", testRoot + "/docs/guide.md", testRoot + "/readme.md"},
		},
		{
			name: "virtual uri",
			root: testBase + "docs",
			want: []string{testBase + "docs", testBase + "docs/guide.md"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			err := gfs.Walk(tt.root, func(p string, _ fs.DirEntry, err error) error {
				require.NoError(t, err)
				got = append(got, p)
				return nil
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("no mount", func(t *testing.T) {
		var calls int
		err := gfs.Walk("example.com", func(_ string, _ fs.DirEntry, err error) error {
			calls++
			return err
		})
		assert.ErrorIs(t, err, fs.ErrNotExist)
		assert.Equal(t, 1, calls)
	})
}

func TestFS_RetriesDismountedHandle(t *testing.T) {
	ctx := context.Background()

	ops := map[string]func(t *testing.T, gfs *FS){
		"ReadFile": func(t *testing.T, gfs *FS) {
			data, err := gfs.ReadFile(testRoot + "/readme.md")
			require.NoError(t, err)
			assert.Equal(t, "hello\n", string(data))
		},
		"Walk": func(t *testing.T, gfs *FS) {
			var got []string
			err := gfs.Walk(testRoot+"/docs", func(p string, _ fs.DirEntry, err error) error {
				require.NoError(t, err)
				got = append(got, p)
				return nil
			})
			require.NoError(t, err)
			assert.Equal(t, []string{testRoot + "/docs", testRoot + "/docs/guide.md"}, got)
		},
	}

	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			gfs, backend := newTestFS(t)

			var lookups int
			gfs.looked = func(h *mount.Handle) {
				lookups++
				if lookups == 1 {
					require.NoError(t, gfs.Cache().Remove(ctx, h.Identity()))
					require.Equal(t, mount.StateDismounted, h.State())
				}
			}

			op(t, gfs)
			assert.Equal(t, 2, lookups)
			opens, _, _ := backend.Counts()
			assert.Equal(t, 2, opens)
		})
	}
}

func TestFS_RejectsWithoutMounting(t *testing.T) {
	gfs, backend := newTestFS(t)
	name := testRoot + "/readme.md"

	ops := map[string]func() error{
		"Create":              func() error { _, err := gfs.Create(name); return err },
		"Append":              func() error { _, err := gfs.Append(name); return err },
		"Delete":              func() error { return gfs.Delete(name, true) },
		"Mkdirs":              func() error { return gfs.Mkdirs(testRoot+"/a/b", 0o755) },
		"SetWorkingDirectory": func() error { return gfs.SetWorkingDirectory(testRoot) },
	}
	for op, fn := range ops {
		t.Run(op, func(t *testing.T) {
			err := fn()
			require.Error(t, err)
			assert.True(t, errors.IsReadOnly(err))
			assert.Equal(t, errors.CodeReadOnly, errors.GetCode(err))
		})
	}

	opens, _, _ := backend.Counts()
	assert.Zero(t, opens)
	assert.Zero(t, gfs.Cache().Len())
}

func TestFS_Close(t *testing.T) {
	ctx := context.Background()
	gfs, _ := newTestFS(t)

	_, err := gfs.ReadFile(testRoot + "/readme.md")
	require.NoError(t, err)

	require.NoError(t, gfs.Close(ctx))
	require.NoError(t, gfs.Close(ctx))
	assert.Zero(t, gfs.Cache().Len())

	_, err = gfs.ReadFile(testRoot + "/readme.md")
	require.Error(t, err)
	assert.Equal(t, errors.CodeUnavailable, errors.GetCode(err))
}

func TestFS_Remount(t *testing.T) {
	ctx := context.Background()
	gfs, backend := newTestFS(t)

	_, err := gfs.ReadFile(testRoot + "/readme.md")
	require.NoError(t, err)
	require.NoError(t, gfs.Cache().Remove(ctx, mount.IdentityOf(testBase)))

	backend.Advance(mounttest.CommitB)
	data, err := gfs.ReadFile(testRoot + "/readme.md")
	require.NoError(t, err)
	assert.Equal(t, "hello again\n", string(data))

	opens, _, _ := backend.Counts()
	assert.Equal(t, 2, opens)
}

func TestNew(t *testing.T) {
	ctx := context.Background()

	t.Run("invalid settings", func(t *testing.T) {
		settings := testSettings(t, nil)
		settings.Backend = "svn"
		_, err := New(ctx, settings, WithDataFS(fsbilly.NewMemory()))
		require.Error(t, err)
		assert.Equal(t, errors.CodeInvalidConfig, errors.GetCode(err))
	})

	t.Run("metrics", func(t *testing.T) {
		reg := prometheus.NewRegistry()
		gfs, _ := newTestFS(t, WithRegisterer(reg))

		_, err := gfs.ReadFile(testRoot + "/readme.md")
		require.NoError(t, err)

		count, err := promtest.GatherAndCount(reg, "gitfs_mounts", "gitfs_pulls_total")
		require.NoError(t, err)
		assert.Equal(t, 2, count)
	})

	t.Run("local data dir", func(t *testing.T) {
		dir := t.TempDir()
		settings := testSettings(t, map[string]string{"datadir": dir, "dismount.delete": "true"})
		gfs, err := New(ctx, settings, WithBackend(mounttest.NewBackend()), WithClock(clockwork.NewFakeClock()))
		require.NoError(t, err)
		defer gfs.Close(ctx)

		data, err := gfs.ReadFile(testBase + "readme.md")
		require.NoError(t, err)
		assert.Equal(t, "hello\n", string(data))

		local := fsbilly.NewLocal(dir)
		exists, err := local.Exists(testRoot + "/readme.md")
		require.NoError(t, err)
		assert.True(t, exists)
	})
}
