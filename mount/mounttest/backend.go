// Package mounttest provides a scripted git.Backend for tests of code
// built on mounts. It needs no git binary and no network.
package mounttest

import (
	"context"
	"path"
	"sync"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/jmgilman/gitfs/git"
)

// Commits known to a new Backend.
var (
	CommitA = plumbing.NewHash("1111111111111111111111111111111111111111")
	CommitB = plumbing.NewHash("2222222222222222222222222222222222222222")
)

// Trees of CommitA and CommitB.
var (
	TreeA = map[string]string{"readme.md": "hello\n", "docs/guide.md": "guide\n"}
	TreeB = map[string]string{"readme.md": "hello again\n", "docs/guide.md": "guide\n"}
)

// Backend serves a scripted remote whose branch main and HEAD point at
// CommitA. Checkout writes the tree of the checked-out commit into the
// working copy; OpenOrInit creates a .git directory.
type Backend struct {
	mu sync.Mutex

	refs        []git.Ref
	trees       map[plumbing.Hash]map[string]string
	fetchErr    error
	checkoutErr error
	gate        chan struct{}

	opens      int
	configures int
	fetches    int
	checkouts  int
	remotes    []string
}

// NewBackend returns a Backend with CommitA and CommitB.
func NewBackend() *Backend {
	b := &Backend{
		trees: map[plumbing.Hash]map[string]string{
			CommitA: TreeA,
			CommitB: TreeB,
		},
	}
	b.Advance(CommitA)
	return b
}

// Advance points HEAD and every branch at hash.
func (b *Backend) Advance(hash plumbing.Hash) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refs = []git.Ref{
		{Name: plumbing.HEAD, Hash: hash},
		{Name: plumbing.NewBranchReferenceName("main"), Hash: hash},
		{Name: plumbing.NewBranchReferenceName("develop"), Hash: hash},
	}
}

// SetRefs replaces the advertised refs.
func (b *Backend) SetRefs(refs []git.Ref) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refs = refs
}

// AddCommit makes files the tree of hash.
func (b *Backend) AddCommit(hash plumbing.Hash, files map[string]string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.trees[hash] = files
}

// SetFetchErr makes every fetch fail with err. nil restores fetching.
func (b *Backend) SetFetchErr(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fetchErr = err
}

// SetCheckoutErr makes every checkout fail with err.
func (b *Backend) SetCheckoutErr(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.checkoutErr = err
}

// Hold blocks OpenOrInit until the returned release func is called.
func (b *Backend) Hold() (release func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	gate := make(chan struct{})
	b.gate = gate
	var once sync.Once
	return func() { once.Do(func() { close(gate) }) }
}

// Counts returns how many working copies were opened, fetched and
// checked out.
func (b *Backend) Counts() (opens, fetches, checkouts int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.opens, b.fetches, b.checkouts
}

// Remotes returns every URL a remote was configured with, in order.
func (b *Backend) Remotes() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.remotes...)
}

// OpenOrInit implements git.Backend.
func (b *Backend) OpenOrInit(_ context.Context, fs billy.Filesystem, dir string) (git.WorkingCopy, error) {
	b.mu.Lock()
	gate := b.gate
	b.opens++
	b.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if err := util.WriteFile(fs, path.Join(dir, ".git", "HEAD"), []byte("ref: refs/heads/main\n"), 0o644); err != nil {
		return nil, err
	}
	return &workingCopy{backend: b, fs: fs, dir: dir}, nil
}

type workingCopy struct {
	backend *Backend
	fs      billy.Filesystem
	dir     string
	head    plumbing.Hash
}

func (w *workingCopy) ConfigureRemote(_ context.Context, opts git.RemoteOptions) error {
	w.backend.mu.Lock()
	defer w.backend.mu.Unlock()
	w.backend.configures++
	w.backend.remotes = append(w.backend.remotes, opts.URL)
	return nil
}

func (w *workingCopy) FetchBranch(context.Context, git.FetchOptions) ([]git.Ref, error) {
	w.backend.mu.Lock()
	defer w.backend.mu.Unlock()
	w.backend.fetches++
	if w.backend.fetchErr != nil {
		return nil, w.backend.fetchErr
	}
	return append([]git.Ref(nil), w.backend.refs...), nil
}

func (w *workingCopy) Checkout(_ context.Context, ref git.Ref) (bool, error) {
	w.backend.mu.Lock()
	defer w.backend.mu.Unlock()
	w.backend.checkouts++
	if w.backend.checkoutErr != nil {
		return false, w.backend.checkoutErr
	}
	tree, ok := w.backend.trees[ref.Hash]
	if !ok {
		return false, nil
	}
	for name, content := range tree {
		if err := util.WriteFile(w.fs, path.Join(w.dir, name), []byte(content), 0o644); err != nil {
			return false, err
		}
	}
	w.head = ref.Hash
	return true, nil
}

func (w *workingCopy) Head(context.Context) (plumbing.Hash, error) {
	return w.head, nil
}

var _ git.Backend = (*Backend)(nil)
