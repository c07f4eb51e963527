package mount

import (
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	fsbilly "github.com/jmgilman/gitfs/fs/billy"
	"github.com/jmgilman/gitfs/git"
	"github.com/jmgilman/gitfs/mount/mounttest"
)

const (
	testURI      = "https://example.com/org/repo.git/main/readme.md"
	testIdentity = Identity("https://example.com/org/repo.git/main/")
	testBase     = "https://example.com/org/repo.git/main/"
	testLocalDir = "example.com/org/repo.git/main"
)

var (
	commitA = mounttest.CommitA
	commitB = mounttest.CommitB
)

// newTestCache returns a cache over an in-memory data directory driven by
// a fake clock.
func newTestCache(t *testing.T, backend git.Backend, opts ...Option) (*Cache, *fsbilly.FS, clockwork.FakeClock) {
	t.Helper()

	root := fsbilly.NewMemory()
	clock := clockwork.NewFakeClock()
	opts = append([]Option{WithBackend(backend), WithClock(clock)}, opts...)

	cache, err := NewCache(root, opts...)
	require.NoError(t, err)
	return cache, root, clock
}
