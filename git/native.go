package git

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-git/go-billy/v5"
	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/cache"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/storage/filesystem"
	platformerrors "github.com/jmgilman/gitfs/errors"
)

// NativeBackend implements Backend with go-git. It works on any billy
// filesystem, including memfs.
type NativeBackend struct{}

// NewNativeBackend returns a go-git backed Backend.
func NewNativeBackend() *NativeBackend {
	return &NativeBackend{}
}

// OpenOrInit opens the repository at dir, or initializes a standard
// (non-bare) one when dir holds no repository yet. Storage lives in the
// .git subdirectory and the worktree is dir itself.
func (b *NativeBackend) OpenOrInit(_ context.Context, fs billy.Filesystem, dir string) (WorkingCopy, error) {
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, wrapError(err, platformerrors.CodeIO, "failed to create working directory")
	}

	// Create a filesystem scoped to the working directory
	worktreeFs, err := fs.Chroot(dir)
	if err != nil {
		return nil, wrapError(err, platformerrors.CodeIO, "failed to scope filesystem to path")
	}

	dotGitFs, err := worktreeFs.Chroot(gogit.GitDirName)
	if err != nil {
		return nil, wrapError(err, platformerrors.CodeIO, "failed to create .git filesystem")
	}
	storage := filesystem.NewStorage(dotGitFs, cache.NewObjectLRUDefault())

	repo, err := gogit.Open(storage, worktreeFs)
	if errors.Is(err, gogit.ErrRepositoryNotExists) {
		repo, err = gogit.Init(storage, worktreeFs)
		if err != nil {
			return nil, wrapError(err, platformerrors.CodeIO, "failed to initialize repository")
		}
	} else if err != nil {
		return nil, wrapError(err, platformerrors.CodeIO, "failed to open repository")
	}

	return &nativeWorkingCopy{repo: repo}, nil
}

type nativeWorkingCopy struct {
	repo *gogit.Repository
}

// ConfigureRemote writes the remote into the repository config, replacing
// any remote of the same name.
func (w *nativeWorkingCopy) ConfigureRemote(_ context.Context, opts RemoteOptions) error {
	name := opts.Name
	if name == "" {
		name = DefaultRemote
	}

	cfg, err := w.repo.Config()
	if err != nil {
		return wrapError(err, platformerrors.CodeIO, "failed to read repository config")
	}
	if cfg.Remotes == nil {
		cfg.Remotes = make(map[string]*config.RemoteConfig)
	}
	cfg.Remotes[name] = &config.RemoteConfig{
		Name:  name,
		URLs:  []string{opts.URL},
		Fetch: []config.RefSpec{mirrorRefSpec(name)},
	}

	if err := w.repo.SetConfig(cfg); err != nil {
		return wrapError(err, platformerrors.CodeInvalidInput, fmt.Sprintf("failed to configure remote %q", name))
	}
	return nil
}

// FetchBranch lists the remote's refs, then fetches the requested branch.
// When the remote does not have the branch, the branch HEAD points to is
// fetched instead so that callers can fall back to it.
func (w *nativeWorkingCopy) FetchBranch(ctx context.Context, opts FetchOptions) ([]Ref, error) {
	auth, ok := toAuthMethod(opts.Auth)
	if !ok {
		return nil, platformerrors.New(platformerrors.CodeInvalidInput, "unsupported auth type")
	}

	remote, err := w.repo.Remote(DefaultRemote)
	if err != nil {
		return nil, wrapError(err, platformerrors.CodeNotFound, "failed to get remote")
	}

	advertised, err := remote.ListContext(ctx, &gogit.ListOptions{Auth: auth})
	if errors.Is(err, transport.ErrEmptyRemoteRepository) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapError(err, platformerrors.CodeNetwork, "failed to list remote refs")
	}
	refs, headTarget := resolveAdvertised(advertised)

	branch := plumbing.NewBranchReferenceName(opts.Branch)
	var spec config.RefSpec
	switch {
	case hasRef(refs, branch):
		spec = trackingRefSpec(branch)
	case headTarget != "" && hasRef(refs, headTarget):
		spec = trackingRefSpec(headTarget)
	case hasRef(refs, plumbing.HEAD):
		spec = config.RefSpec(fmt.Sprintf("+%s:refs/remotes/%s/%s", plumbing.HEAD, DefaultRemote, plumbing.HEAD))
	default:
		return refs, nil
	}

	err = w.repo.FetchContext(ctx, &gogit.FetchOptions{
		RemoteName: DefaultRemote,
		RefSpecs:   []config.RefSpec{spec},
		Auth:       auth,
		Tags:       gogit.NoTags,
	})
	if err != nil && !errors.Is(err, gogit.NoErrAlreadyUpToDate) {
		return nil, wrapError(err, platformerrors.CodeNetwork, fmt.Sprintf("failed to fetch %s", spec.Src()))
	}

	return refs, nil
}

// Checkout detaches HEAD at ref's commit. Local modifications are never
// overwritten.
func (w *nativeWorkingCopy) Checkout(ctx context.Context, ref Ref) (bool, error) {
	if ref.Hash.IsZero() {
		return false, nil
	}
	if _, err := w.repo.CommitObject(ref.Hash); err != nil {
		if errors.Is(err, plumbing.ErrObjectNotFound) {
			return false, nil
		}
		return false, wrapError(err, platformerrors.CodeIO, "failed to read commit")
	}

	head, err := w.Head(ctx)
	if err != nil {
		return false, err
	}
	if head == ref.Hash {
		return true, nil
	}

	wt, err := w.repo.Worktree()
	if err != nil {
		return false, wrapError(err, platformerrors.CodeIO, "failed to get worktree")
	}
	// Checkout moves HEAD before it inspects the tree, so local changes are
	// checked first to keep HEAD and the tree in step on conflict.
	if err := ensureNoLocalChanges(wt); err != nil {
		return false, err
	}
	if err := wt.Checkout(&gogit.CheckoutOptions{Hash: ref.Hash}); err != nil {
		return false, wrapError(err, platformerrors.CodeIO, fmt.Sprintf("failed to checkout %s", ref.Hash))
	}
	return true, nil
}

// Head returns the checked out commit.
func (w *nativeWorkingCopy) Head(_ context.Context) (plumbing.Hash, error) {
	head, err := w.repo.Head()
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return plumbing.ZeroHash, nil
	}
	if err != nil {
		return plumbing.ZeroHash, wrapError(err, platformerrors.CodeIO, "failed to resolve HEAD")
	}
	return head.Hash(), nil
}

// ensureNoLocalChanges fails with CodeConflict when a tracked file was
// modified or deleted in the working tree. Untracked files do not count.
func ensureNoLocalChanges(wt *gogit.Worktree) error {
	status, err := wt.Status()
	if err != nil {
		return wrapError(err, platformerrors.CodeIO, "failed to read worktree status")
	}
	for name, st := range status {
		if st.Worktree != gogit.Unmodified && st.Worktree != gogit.Untracked {
			return platformerrors.WithContext(
				wrapError(gogit.ErrUnstagedChanges, platformerrors.CodeConflict, "local changes would be overwritten by checkout"),
				"path", name,
			)
		}
	}
	return nil
}

// resolveAdvertised turns the advertised references into hash refs. A
// symbolic HEAD is resolved through the ref it names, which is also
// returned so the caller can fetch it.
func resolveAdvertised(advertised []*plumbing.Reference) ([]Ref, plumbing.ReferenceName) {
	hashes := make(map[plumbing.ReferenceName]plumbing.Hash, len(advertised))
	for _, r := range advertised {
		if r.Type() == plumbing.HashReference {
			hashes[r.Name()] = r.Hash()
		}
	}

	var headTarget plumbing.ReferenceName
	refs := make([]Ref, 0, len(advertised))
	for _, r := range advertised {
		switch r.Type() {
		case plumbing.HashReference:
			refs = append(refs, Ref{Name: r.Name(), Hash: r.Hash()})
		case plumbing.SymbolicReference:
			hash, ok := hashes[r.Target()]
			if !ok {
				continue
			}
			if r.Name() == plumbing.HEAD {
				headTarget = r.Target()
			}
			refs = append(refs, Ref{Name: r.Name(), Hash: hash})
		case plumbing.InvalidReference:
		}
	}
	return refs, headTarget
}

func hasRef(refs []Ref, name plumbing.ReferenceName) bool {
	_, ok := FindRef(refs, name)
	return ok
}

// mirrorRefSpec is the fetch refspec of a configured remote.
func mirrorRefSpec(remote string) config.RefSpec {
	return config.RefSpec(fmt.Sprintf("+refs/heads/*:refs/remotes/%s/*", remote))
}

// trackingRefSpec fetches a single branch into its remote-tracking ref.
func trackingRefSpec(branch plumbing.ReferenceName) config.RefSpec {
	return config.RefSpec(fmt.Sprintf("+%s:refs/remotes/%s/%s", branch, DefaultRemote, branch.Short()))
}
