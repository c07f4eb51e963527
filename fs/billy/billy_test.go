package billy

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmgilman/gitfs/fs/core"
	"github.com/jmgilman/gitfs/fs/fstest"
)

func TestLocal_Conformance(t *testing.T) {
	fstest.TestSuite(t, func() core.FS { return NewLocal(t.TempDir()) }, fstest.Config{})
}

func TestMemory_Conformance(t *testing.T) {
	fstest.TestSuite(t, func() core.FS { return NewMemory() }, fstest.Config{})
}

func TestType(t *testing.T) {
	assert.Equal(t, core.FSTypeLocal, NewLocal(t.TempDir()).Type())
	assert.Equal(t, core.FSTypeMemory, NewMemory().Type())

	sub, err := NewMemory().Chroot("x")
	require.NoError(t, err)
	assert.Equal(t, core.FSTypeMemory, sub.Type(), "chroot keeps the parent type")
}

func TestUnwrap(t *testing.T) {
	mem := NewMemory()
	require.NotNil(t, mem.Unwrap())

	_, err := mem.Unwrap().Create("direct.txt")
	require.NoError(t, err)
	exists, err := mem.Exists("direct.txt")
	require.NoError(t, err)
	assert.True(t, exists)

	sub, err := mem.Chroot("dir")
	require.NoError(t, err)
	assert.NotNil(t, Unwrap(sub))
	assert.Nil(t, Unwrap(nil))
}

func TestLocal_ChrootCreatesNothing(t *testing.T) {
	root := t.TempDir()
	local := NewLocal(root)

	sub, err := local.Chroot("example.com/org/repo.git/main")
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(root, "example.com"))
	assert.True(t, os.IsNotExist(err))

	require.NoError(t, sub.MkdirAll(".", 0o755))
	require.NoError(t, sub.WriteFile("readme.md", []byte("hi"), 0o644))

	data, err := os.ReadFile(filepath.Join(root, "example.com/org/repo.git/main/readme.md"))
	require.NoError(t, err)
	assert.Equal(t, "hi", string(data))
	assert.Equal(t, filepath.Join(root, "example.com/org/repo.git/main"), Unwrap(sub).Root())
}

func TestLocal_RemoveAllKeepsSymlinkTarget(t *testing.T) {
	root := t.TempDir()
	local := NewLocal(root)

	require.NoError(t, local.MkdirAll("keep", 0o755))
	require.NoError(t, local.WriteFile("keep/data.txt", []byte("data"), 0o644))
	require.NoError(t, local.MkdirAll("gone", 0o755))
	require.NoError(t, local.Symlink("../keep", "gone/link"))

	require.NoError(t, local.RemoveAll("gone"))

	exists, err := local.Exists("gone")
	require.NoError(t, err)
	assert.False(t, exists)

	data, err := local.ReadFile("keep/data.txt")
	require.NoError(t, err)
	assert.Equal(t, "data", string(data))
}

func TestFile_ReadAtAndSeek(t *testing.T) {
	mem := NewMemory()
	require.NoError(t, mem.WriteFile("f.txt", []byte("0123456789"), 0o644))

	f, err := mem.Open("f.txt")
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	ra, ok := f.(io.ReaderAt)
	require.True(t, ok)
	buf := make([]byte, 3)
	n, err := ra.ReadAt(buf, 4)
	require.NoError(t, err)
	assert.Equal(t, "456", string(buf[:n]))

	seeker, ok := f.(io.Seeker)
	require.True(t, ok)
	_, err = seeker.Seek(8, io.SeekStart)
	require.NoError(t, err)
	rest, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "89", string(rest))

	info, err := f.Stat()
	require.NoError(t, err)
	assert.Equal(t, int64(10), info.Size())
	assert.Equal(t, "f.txt", f.(*File).Name())
}

func TestLocal_SymlinksStayInsideRoot(t *testing.T) {
	outside := t.TempDir()
	secret := filepath.Join(outside, "secret.txt")
	require.NoError(t, os.WriteFile(secret, []byte("HOST SECRET\n"), 0o600))

	climb := strings.Repeat("../", 16) + strings.TrimPrefix(filepath.ToSlash(secret), "/")

	root := t.TempDir()
	local := NewLocal(root)
	require.NoError(t, local.Symlink(climb, "leak"))
	require.NoError(t, local.Symlink(strings.Repeat("../", 16)+strings.TrimPrefix(filepath.ToSlash(outside), "/"), "escape"))

	_, err := local.ReadFile("leak")
	assert.Error(t, err)
	_, err = local.ReadFile("escape/secret.txt")
	assert.Error(t, err)

	sub, err := local.Chroot(".")
	require.NoError(t, err)
	_, err = sub.ReadFile("leak")
	assert.Error(t, err, "chroot views stay bound")

	require.NoError(t, local.Remove("leak"))
	require.NoError(t, local.RemoveAll("escape"))
	data, err := os.ReadFile(secret)
	require.NoError(t, err)
	assert.Equal(t, "HOST SECRET\n", string(data))
}

func TestLocal_RenameMovesLink(t *testing.T) {
	root := t.TempDir()
	local := NewLocal(root)

	require.NoError(t, local.WriteFile("target.txt", []byte("data"), 0o644))
	require.NoError(t, local.Symlink("target.txt", "link.txt"))
	require.NoError(t, local.Rename("link.txt", "moved/link.txt"))

	target, err := local.Readlink("moved/link.txt")
	require.NoError(t, err)
	assert.Equal(t, "target.txt", target)

	exists, err := local.Exists("target.txt")
	require.NoError(t, err)
	assert.True(t, exists)
}
