package mount

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/jonboulle/clockwork"

	"github.com/jmgilman/gitfs/errors"
	fsbilly "github.com/jmgilman/gitfs/fs/billy"
	"github.com/jmgilman/gitfs/git"
)

// State is the lifecycle state of a Handle.
type State int32

const (
	// StateUninitialized is a handle whose working copy is being prepared.
	StateUninitialized State = iota
	// StateReady is a handle serving reads.
	StateReady
	// StateRefreshing is a handle with a pull in progress. Reads continue.
	StateRefreshing
	// StateDismounted is terminal: the handle is out of the cache and every
	// operation fails with CodeUnavailable.
	StateDismounted
)

// String returns a string representation of the State.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateReady:
		return "ready"
	case StateRefreshing:
		return "refreshing"
	case StateDismounted:
		return "dismounted"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *State) UnmarshalText(text []byte) error {
	for _, candidate := range []State{StateUninitialized, StateReady, StateRefreshing, StateDismounted} {
		if candidate.String() == string(text) {
			*s = candidate
			return nil
		}
	}
	return errors.Newf(errors.CodeInvalidInput, "unknown mount state %q", text)
}

// Handle is one mounted working copy: a repository branch materialized in
// a local directory and kept fresh from its remote.
//
// Reads accept either a virtual URI under URI() or a path relative to the
// repository root. The working copy's .git directory is not visible.
type Handle struct {
	target      Target
	identity    Identity
	remoteURL   string
	virtualBase string
	localBase   string
	localDir    string

	root    *fsbilly.FS
	fs      *fsbilly.FS
	backend git.Backend
	wc      git.WorkingCopy
	auth    git.Auth
	clock   clockwork.Clock
	metrics *Metrics
	policy  Policy

	// base carries the logger of the resolving caller for reads, which
	// take no context. It is never canceled.
	base context.Context

	pullMu sync.Mutex

	mu          sync.RWMutex
	state       State
	created     time.Time
	lastTouch   time.Time
	lastFetch   time.Time
	lastSuccess time.Time
	head        plumbing.Hash
}

type handleConfig struct {
	root    *fsbilly.FS
	backend git.Backend
	auth    git.Auth
	clock   clockwork.Clock
	metrics *Metrics
	policy  Policy
}

func newHandle(ctx context.Context, t Target, cfg handleConfig) (*Handle, error) {
	localDir := t.LocalDir()
	sub, err := cfg.root.Chroot(localDir)
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeIO, "failed to scope data directory to %s", localDir)
	}

	h := &Handle{
		target:      t,
		identity:    t.Identity(),
		remoteURL:   t.RemoteURL(),
		virtualBase: t.VirtualBase(),
		localBase:   filepath.ToSlash(filepath.Join(cfg.root.Root(), filepath.FromSlash(localDir))) + "/",
		localDir:    localDir,
		root:        cfg.root,
		fs:          sub.(*fsbilly.FS),
		backend:     cfg.backend,
		auth:        cfg.auth,
		clock:       cfg.clock,
		metrics:     cfg.metrics,
		policy:      cfg.policy,
		state:       StateUninitialized,
		created:     cfg.clock.Now(),
	}

	logger := clog.FromContext(ctx).With("identity", string(h.identity))
	h.base = context.WithoutCancel(clog.WithLogger(ctx, logger))
	return h, nil
}

// initialize opens or creates the working copy, points origin at the
// remote and performs the initial pull. Any failure is fatal to the handle.
func (h *Handle) initialize(ctx context.Context) error {
	log := clog.FromContext(h.base)
	log.Infof("Git repo: %s", h.target.RepoPath)
	log.Infof("Git branch: %s", h.target.Branch)
	log.Infof("Git file: %s", h.target.FilePath)
	log.Infof("Git url: %s", h.remoteURL)
	log.Infof("Local dir: %s", h.localDir)
	log.Infof("Local base: %s", h.localBase)
	log.Infof("Virtual base: %s", h.virtualBase)
	if user, ok := maskedUser(h.auth); ok {
		log.Infof("Login: %s", user)
	}

	wc, err := h.backend.OpenOrInit(ctx, h.root.Unwrap(), h.localDir)
	if err != nil {
		return errors.WithContext(err, "identity", string(h.identity))
	}
	if err := wc.ConfigureRemote(ctx, git.RemoteOptions{Name: git.DefaultRemote, URL: h.remoteURL}); err != nil {
		return errors.WithContext(err, "identity", string(h.identity))
	}
	h.wc = wc

	if err := h.pull(ctx, triggerInitial, -1); err != nil {
		return err
	}

	h.mu.Lock()
	h.lastTouch = h.clock.Now()
	h.mu.Unlock()
	return nil
}

// Identity returns the cache key of the handle.
func (h *Handle) Identity() Identity { return h.identity }

// Branch returns the mounted branch.
func (h *Handle) Branch() string { return h.target.Branch }

// RemoteURL returns the URL the working copy fetches from.
func (h *Handle) RemoteURL() string { return h.remoteURL }

// LocalDir returns the working copy location relative to the data directory.
func (h *Handle) LocalDir() string { return h.localDir }

// URI returns the virtual base of the mount.
func (h *Handle) URI() string { return h.virtualBase }

// WorkingDirectory returns the virtual base; a mount's working directory
// never changes.
func (h *Handle) WorkingDirectory() string { return h.virtualBase }

// State returns the current lifecycle state.
func (h *Handle) State() State {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.state
}

// Head returns the commit currently checked out, or the zero hash.
func (h *Handle) Head() plumbing.Hash {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.head
}

// SinceFetch returns the time elapsed since the last completed pull.
func (h *Handle) SinceFetch() time.Duration {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.clock.Since(h.lastFetch)
}

// SinceTouch returns the time elapsed since the last access.
func (h *Handle) SinceTouch() time.Duration {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.clock.Since(h.lastTouch)
}

// Touch records an access. When the copy is older than LazyPullPeriod it
// pulls before returning. Transport failures are logged and the stale copy
// stays usable; checkout conflicts and a dismounted handle are returned.
func (h *Handle) Touch(ctx context.Context) error {
	if err := h.checkLive(); err != nil {
		return err
	}

	h.mu.Lock()
	h.lastTouch = h.clock.Now()
	h.mu.Unlock()

	if h.SinceFetch() <= h.policy.LazyPullPeriod {
		return nil
	}

	err := h.pull(ctx, triggerLazy, h.policy.LazyPullPeriod)
	if err == nil || errors.HasCode(err, errors.CodeConflict) || errors.HasCode(err, errors.CodeUnavailable) {
		return err
	}
	clog.FromContext(ctx).Warnf("Lazy pull of %s failed, serving stale copy: %v", h.identity, err)
	return nil
}

// Pull fetches the branch and checks out the result. If the remote does
// not have the branch, the commit of its HEAD is checked out instead; if
// neither resolves the pull changes nothing.
func (h *Handle) Pull(ctx context.Context) error {
	return h.pull(ctx, triggerEager, -1)
}

// pull runs one fetch and checkout under the pull lock. A pull that finds
// the copy younger than maxAge, once it holds the lock, does nothing; a
// negative maxAge always pulls.
func (h *Handle) pull(ctx context.Context, trigger string, maxAge time.Duration) error {
	h.pullMu.Lock()
	defer h.pullMu.Unlock()

	if err := h.checkLive(); err != nil {
		return err
	}
	if maxAge >= 0 && h.SinceFetch() <= maxAge {
		return nil
	}

	previous := h.swapState(StateRefreshing)
	defer h.compareAndSwapState(StateRefreshing, func() State {
		if previous == StateUninitialized {
			return StateReady
		}
		return previous
	}())

	start := h.clock.Now()
	err := h.fetchAndCheckout(ctx)
	h.metrics.observePull(trigger, h.clock.Since(start).Seconds(), err)

	now := h.clock.Now()
	h.mu.Lock()
	h.lastFetch = now
	if err == nil {
		h.lastSuccess = now
	}
	h.mu.Unlock()

	if err != nil {
		return errors.WithContextMap(err, map[string]interface{}{
			"identity": string(h.identity),
			"trigger":  trigger,
		})
	}
	return nil
}

func (h *Handle) fetchAndCheckout(ctx context.Context) error {
	log := clog.FromContext(ctx)

	refs, err := h.wc.FetchBranch(ctx, git.FetchOptions{Branch: h.target.Branch, Auth: h.auth})
	if err != nil {
		code := errors.GetCode(err)
		if code == errors.CodeUnknown {
			code = errors.CodeNetwork
		}
		return errors.Wrapf(err, code, "failed to fetch %s from %s", h.target.Branch, h.remoteURL)
	}
	for _, ref := range refs {
		log.Debugf("%s: %s", ref.Name, ref.Hash)
	}

	ref, ok := git.FindRef(refs, plumbing.NewBranchReferenceName(h.target.Branch))
	if !ok {
		ref, ok = git.FindRef(refs, plumbing.HEAD)
	}
	if !ok {
		log.Infof("Nothing to check out for %s", h.identity)
		return nil
	}

	checkedOut, err := h.wc.Checkout(ctx, ref)
	if err != nil {
		return err
	}
	if checkedOut {
		h.mu.Lock()
		h.head = ref.Hash
		h.mu.Unlock()
	}
	log.Infof("Checked out %s (%s): %t", ref.Hash, ref.Name, checkedOut)
	return nil
}

// dismount marks the handle dismounted and, when the policy says so,
// deletes the working copy. It waits for an in-flight pull to finish so the
// directory is not written to after deletion.
func (h *Handle) dismount(ctx context.Context) error {
	if h.swapState(StateDismounted) == StateDismounted {
		return nil
	}

	if !h.policy.DismountDelete {
		clog.FromContext(ctx).Infof("Dismounted %s", h.identity)
		return nil
	}

	h.pullMu.Lock()
	defer h.pullMu.Unlock()
	if err := h.root.RemoveAll(h.localDir); err != nil {
		return errors.WrapWithContext(err, errors.CodeIO, "failed to delete working copy",
			map[string]interface{}{"identity": string(h.identity), "dir": h.localDir})
	}
	clog.FromContext(ctx).Infof("Dismounted %s and deleted %s", h.identity, h.localDir)
	return nil
}

func (h *Handle) checkLive() error {
	if h.State() == StateDismounted {
		return errors.WithContext(
			errors.Newf(errors.CodeUnavailable, "mount %s is dismounted", h.identity),
			"identity", string(h.identity),
		)
	}
	return nil
}

func (h *Handle) swapState(s State) State {
	h.mu.Lock()
	defer h.mu.Unlock()
	prev := h.state
	if prev != StateDismounted {
		h.state = s
	}
	return prev
}

func (h *Handle) compareAndSwapState(from, to State) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state == from {
		h.state = to
	}
}

// maskedUser renders basic credentials for logging, password masked.
func maskedUser(auth git.Auth) (string, bool) {
	type basic interface{ String() string }
	b, ok := auth.(basic)
	if !ok || auth == nil {
		return "", false
	}
	return b.String(), true
}

// String implements fmt.Stringer.
func (h *Handle) String() string {
	return fmt.Sprintf("%s (%s)", h.identity, h.State())
}
