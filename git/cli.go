package git

import (
	"bufio"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-git/v5/plumbing"
	platformerrors "github.com/jmgilman/gitfs/errors"
	"github.com/jmgilman/gitfs/exec"
)

// CLIBackend implements Backend by running the git binary through the exec
// package. It requires git in PATH and a filesystem backed by the OS; memory
// filesystems are rejected.
type CLIBackend struct {
	executor exec.Executor
}

// NewCLIBackend returns a Backend that shells out to git. If executor is
// nil, a default one inheriting the process environment is used.
func NewCLIBackend(executor exec.Executor) *CLIBackend {
	if executor == nil {
		executor = exec.New(
			exec.WithInheritEnv(),
			exec.WithEnv(map[string]string{"GIT_TERMINAL_PROMPT": "0"}),
		)
	}
	return &CLIBackend{executor: executor}
}

// OpenOrInit runs git init in dir unless it already holds a repository.
func (b *CLIBackend) OpenOrInit(ctx context.Context, fs billy.Filesystem, dir string) (WorkingCopy, error) {
	if isMemoryFilesystem(fs) {
		return nil, platformerrors.New(platformerrors.CodeInvalidInput,
			"git CLI backend requires an OS filesystem, memory filesystem detected")
	}

	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, wrapError(err, platformerrors.CodeIO, "failed to create working directory")
	}

	wc := &cliWorkingCopy{
		executor: b.executor,
		path:     filepath.Join(fs.Root(), filepath.FromSlash(dir)),
	}

	if _, err := fs.Stat(filepath.Join(dir, ".git")); err == nil {
		return wc, nil
	}
	if _, err := wc.git(ctx, nil).Run("init", "--quiet"); err != nil {
		return nil, wrapError(err, platformerrors.CodeIO, "failed to initialize repository")
	}
	return wc, nil
}

type cliWorkingCopy struct {
	executor exec.Executor
	path     string
}

// git returns a wrapper running git inside the working copy. Basic
// credentials travel as an extra HTTP header and are redacted from output.
func (w *cliWorkingCopy) git(ctx context.Context, auth Auth) *cliRun {
	run := &cliRun{
		wrapper: exec.NewWrapper(w.executor.Clone(), "git"),
		dir:     w.path,
		ctx:     ctx,
	}
	if user, pass, ok := basicCredentials(auth); ok {
		token := base64.StdEncoding.EncodeToString([]byte(user + ":" + pass))
		run.prefix = []string{"-c", "http.extraHeader=Authorization: Basic " + token}
		run.secrets = []string{token, pass}
	}
	return run
}

// cliRun applies per-call settings to a fresh wrapper.
type cliRun struct {
	wrapper *exec.CommandWrapper
	dir     string
	ctx     context.Context
	prefix  []string
	secrets []string
}

func (r *cliRun) Run(args ...string) (*exec.Result, error) {
	e := r.wrapper.WithDir(r.dir).WithContext(r.ctx)
	if len(r.secrets) > 0 {
		e = e.WithRedact(r.secrets...)
	}
	return e.Run(append(append([]string(nil), r.prefix...), args...)...)
}

// ConfigureRemote sets the remote URL and its mirror refspec with git config,
// which overwrites an existing remote of the same name.
func (w *cliWorkingCopy) ConfigureRemote(ctx context.Context, opts RemoteOptions) error {
	name := opts.Name
	if name == "" {
		name = DefaultRemote
	}
	if opts.URL == "" {
		return platformerrors.New(platformerrors.CodeInvalidInput, "URL is required")
	}

	if _, err := w.git(ctx, nil).Run("config", fmt.Sprintf("remote.%s.url", name), opts.URL); err != nil {
		return wrapError(err, platformerrors.CodeIO, fmt.Sprintf("failed to configure remote %q", name))
	}
	_, err := w.git(ctx, nil).Run("config", "--replace-all", fmt.Sprintf("remote.%s.fetch", name), mirrorRefSpec(name).String())
	if err != nil {
		return wrapError(err, platformerrors.CodeIO, fmt.Sprintf("failed to configure remote %q", name))
	}
	return nil
}

// FetchBranch runs git ls-remote followed by a single-branch git fetch,
// with the same fallback to HEAD's branch as the native backend.
func (w *cliWorkingCopy) FetchBranch(ctx context.Context, opts FetchOptions) ([]Ref, error) {
	result, err := w.git(ctx, opts.Auth).Run("ls-remote", "--symref", DefaultRemote)
	if err != nil {
		return nil, wrapError(err, platformerrors.CodeNetwork, "failed to list remote refs")
	}
	refs, headTarget := parseLsRemote(result.Stdout)
	if len(refs) == 0 {
		return nil, nil
	}

	branch := plumbing.NewBranchReferenceName(opts.Branch)
	var spec string
	switch {
	case hasRef(refs, branch):
		spec = trackingRefSpec(branch).String()
	case headTarget != "" && hasRef(refs, headTarget):
		spec = trackingRefSpec(headTarget).String()
	case hasRef(refs, plumbing.HEAD):
		spec = fmt.Sprintf("+HEAD:refs/remotes/%s/HEAD", DefaultRemote)
	default:
		return refs, nil
	}

	_, err = w.git(ctx, opts.Auth).Run("fetch", "--quiet", "--no-tags", DefaultRemote, spec)
	if err != nil {
		return nil, wrapError(err, platformerrors.CodeNetwork, "failed to fetch "+spec)
	}
	return refs, nil
}

// Checkout runs git checkout --detach without --force, so git refuses to
// overwrite local modifications.
func (w *cliWorkingCopy) Checkout(ctx context.Context, ref Ref) (bool, error) {
	if ref.Hash.IsZero() {
		return false, nil
	}

	hash := ref.Hash.String()
	if _, err := w.git(ctx, nil).Run("cat-file", "-e", hash+"^{commit}"); err != nil {
		var execErr *exec.ExecError
		if errors.As(err, &execErr) && execErr.ExitCode > 0 {
			return false, nil
		}
		return false, wrapError(err, platformerrors.CodeExecutionFailed, "failed to read commit")
	}

	if _, err := w.git(ctx, nil).Run("checkout", "--quiet", "--detach", hash); err != nil {
		return false, wrapError(err, platformerrors.CodeExecutionFailed, "failed to checkout "+hash)
	}
	return true, nil
}

// Head runs git rev-parse; an unborn HEAD yields the zero hash.
func (w *cliWorkingCopy) Head(ctx context.Context) (plumbing.Hash, error) {
	result, err := w.git(ctx, nil).Run("rev-parse", "--verify", "--quiet", "HEAD")
	if err != nil {
		var execErr *exec.ExecError
		if errors.As(err, &execErr) && execErr.ExitCode == 1 {
			return plumbing.ZeroHash, nil
		}
		return plumbing.ZeroHash, wrapError(err, platformerrors.CodeExecutionFailed, "failed to resolve HEAD")
	}
	return plumbing.NewHash(strings.TrimSpace(result.Stdout)), nil
}

// parseLsRemote parses the output of 'git ls-remote --symref'.
//
// The format looks like:
//
//	ref: refs/heads/main	HEAD
//	abc123...	HEAD
//	abc123...	refs/heads/main
func parseLsRemote(output string) ([]Ref, plumbing.ReferenceName) {
	var refs []Ref
	var headTarget plumbing.ReferenceName

	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		left, name, ok := strings.Cut(strings.TrimSpace(scanner.Text()), "\t")
		if !ok {
			continue
		}
		if target, symbolic := strings.CutPrefix(left, "ref: "); symbolic {
			if name == plumbing.HEAD.String() {
				headTarget = plumbing.ReferenceName(target)
			}
			continue
		}
		if !plumbing.IsHash(left) {
			continue
		}
		refs = append(refs, Ref{Name: plumbing.ReferenceName(name), Hash: plumbing.NewHash(left)})
	}
	return refs, headTarget
}
