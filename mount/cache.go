package mount

import (
	"context"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/singleflight"

	"github.com/jmgilman/gitfs/errors"
	fsbilly "github.com/jmgilman/gitfs/fs/billy"
	"github.com/jmgilman/gitfs/git"
)

// Cache maps identities to mounted working copies under one data
// directory. It creates handles on first use and is the only owner of
// them: handles leave the cache only through Remove, Close or the
// Refresher.
type Cache struct {
	root  *fsbilly.FS
	opts  cacheOptions
	index *mountIndex

	// group linearizes construction and removal per identity.
	group singleflight.Group

	mu     sync.RWMutex
	mounts map[Identity]*Handle
	closed bool
}

// MountStats describes one live mount.
type MountStats struct {
	Identity   Identity      `json:"identity"`
	State      State         `json:"state"`
	Head       string        `json:"head,omitempty"`
	LocalDir   string        `json:"localDir"`
	Created    time.Time     `json:"created"`
	SinceTouch time.Duration `json:"sinceTouch"`
	SinceFetch time.Duration `json:"sinceFetch"`
}

// NewCache creates a cache whose working copies live under root, the data
// directory. An index.json in root is loaded when present.
//
// Example:
//
//	cache, err := mount.NewCache(billy.NewLocal("/var/tmp/git"),
//	    mount.WithPolicy(mount.DefaultPolicy()),
//	    mount.WithAuth(git.BasicAuth(user, pass)))
func NewCache(root *fsbilly.FS, opts ...Option) (*Cache, error) {
	options := cacheOptions{
		clock:  clockwork.NewRealClock(),
		policy: DefaultPolicy(),
		scheme: DefaultScheme,
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.backend == nil {
		options.backend = git.NewNativeBackend()
	}

	index, err := loadOrCreateIndex(root, indexFile)
	if err != nil {
		return nil, err
	}

	return &Cache{
		root:   root,
		opts:   options,
		index:  index,
		mounts: make(map[Identity]*Handle),
	}, nil
}

// Policy returns the thresholds new mounts are created with.
func (c *Cache) Policy() Policy {
	return c.opts.policy
}

// Clock returns the clock the cache measures time with.
func (c *Cache) Clock() clockwork.Clock {
	return c.opts.clock
}

// Scheme returns the scheme names without one are read with.
func (c *Cache) Scheme() string {
	return c.opts.scheme
}

// Resolve parses raw with the cache's default scheme.
func (c *Cache) Resolve(raw string) Target {
	return Resolve(raw, c.opts.scheme)
}

// GetOrCreate returns the handle serving raw, mounting it first when no
// live handle exists for its identity. Concurrent calls for the same
// identity construct at most one handle and all receive it. A failed
// construction leaves nothing cached.
func (c *Cache) GetOrCreate(ctx context.Context, raw string) (*Handle, error) {
	t := c.Resolve(raw)
	if err := t.Validate(); err != nil {
		return nil, errors.WithContext(err, "uri", raw)
	}
	id := t.Identity()

	for {
		if h, err := c.live(id); h != nil || err != nil {
			return h, err
		}

		v, err, _ := c.group.Do(string(id), func() (interface{}, error) {
			if h, err := c.live(id); h != nil || err != nil {
				return h, err
			}
			return c.mount(ctx, t)
		})
		if err != nil {
			return nil, err
		}
		if h, ok := v.(*Handle); ok && h != nil {
			return h, nil
		}
		// Joined a removal of the same identity; resolve again.
	}
}

// live returns the cached handle for id unless it is dismounted.
func (c *Cache) live(id Identity) (*Handle, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil, errors.New(errors.CodeUnavailable, "mount cache is closed")
	}
	if h, ok := c.mounts[id]; ok && h.State() != StateDismounted {
		return h, nil
	}
	return nil, nil
}

func (c *Cache) mount(ctx context.Context, t Target) (*Handle, error) {
	h, err := newHandle(ctx, t, handleConfig{
		root:    c.root,
		backend: c.opts.backend,
		auth:    c.opts.auth,
		clock:   c.opts.clock,
		metrics: c.opts.metrics,
		policy:  c.opts.policy,
	})
	if err != nil {
		return nil, err
	}
	if err := h.initialize(ctx); err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		if err := h.dismount(ctx); err != nil {
			clog.FromContext(ctx).Warnf("Failed to discard %s: %v", h.identity, err)
		}
		return nil, errors.New(errors.CodeUnavailable, "mount cache is closed")
	}
	c.mounts[h.identity] = h
	c.mu.Unlock()
	c.opts.metrics.mounted()

	c.index.set(IndexEntry{
		Identity:  h.identity,
		LocalDir:  h.localDir,
		Created:   h.created,
		LastFetch: h.clock.Now(),
	})
	c.saveIndex(ctx)

	clog.FromContext(ctx).Infof("Mounted %s at %s", h.identity, h.localDir)
	return h, nil
}

// Get returns the live handle for id.
func (c *Cache) Get(id Identity) (*Handle, bool) {
	h, _ := c.live(id)
	return h, h != nil
}

// Len returns the number of live mounts.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.mounts)
}

// Identities returns the identities of live mounts in sorted order.
func (c *Cache) Identities() []Identity {
	handles := c.snapshot()
	ids := make([]Identity, len(handles))
	for i, h := range handles {
		ids[i] = h.identity
	}
	return ids
}

// ForEach calls fn for every live mount, in identity order, on a snapshot
// taken before the first call.
func (c *Cache) ForEach(fn func(*Handle)) {
	for _, h := range c.snapshot() {
		fn(h)
	}
}

func (c *Cache) snapshot() []*Handle {
	c.mu.RLock()
	handles := make([]*Handle, 0, len(c.mounts))
	for _, h := range c.mounts {
		handles = append(handles, h)
	}
	c.mu.RUnlock()

	sort.Slice(handles, func(i, j int) bool { return handles[i].identity < handles[j].identity })
	return handles
}

// Stats describes every live mount.
func (c *Cache) Stats() []MountStats {
	handles := c.snapshot()
	stats := make([]MountStats, 0, len(handles))
	for _, h := range handles {
		st := MountStats{
			Identity:   h.identity,
			State:      h.State(),
			LocalDir:   h.localDir,
			Created:    h.created,
			SinceTouch: h.SinceTouch(),
			SinceFetch: h.SinceFetch(),
		}
		if head := h.Head(); !head.IsZero() {
			st.Head = head.String()
		}
		stats = append(stats, st)
	}
	return stats
}

// Remove dismounts the mount for id: the handle is marked dismounted, its
// working copy is deleted when the policy says so, and the entry leaves the
// cache. Removing an identity that is not mounted is a no-op.
func (c *Cache) Remove(ctx context.Context, id Identity) error {
	return c.remove(ctx, id, reasonExplicit)
}

func (c *Cache) remove(ctx context.Context, id Identity, reason string) error {
	_, err, _ := c.group.Do(string(id), func() (interface{}, error) {
		c.mu.RLock()
		h, ok := c.mounts[id]
		c.mu.RUnlock()
		if !ok {
			return nil, nil
		}

		err := h.dismount(ctx)

		c.mu.Lock()
		if c.mounts[id] == h {
			delete(c.mounts, id)
		}
		c.mu.Unlock()
		c.opts.metrics.dismounted(reason)

		// A copy that could not be deleted stays indexed for Sweep.
		if err == nil {
			c.index.delete(id)
			c.saveIndex(ctx)
		}
		return nil, err
	})
	return err
}

// Sweep deletes working copies recorded in the index that have no live
// mount, such as copies left by a crash or a failed delete. It returns the
// local directories removed.
func (c *Cache) Sweep(ctx context.Context) ([]string, error) {
	log := clog.FromContext(ctx)

	var removed []string
	var firstErr error
	for _, entry := range c.index.list() {
		_, err, _ := c.group.Do(string(entry.Identity), func() (interface{}, error) {
			if h, _ := c.live(entry.Identity); h != nil {
				return nil, nil
			}
			if !safeLocalDir(entry.LocalDir) {
				log.Warnf("Dropping index entry %s with unsafe directory %q", entry.Identity, entry.LocalDir)
				c.index.delete(entry.Identity)
				return nil, nil
			}
			if err := c.root.RemoveAll(entry.LocalDir); err != nil {
				return nil, errors.WrapWithContext(err, errors.CodeIO, "failed to sweep working copy",
					map[string]interface{}{"identity": string(entry.Identity), "dir": entry.LocalDir})
			}
			c.index.delete(entry.Identity)
			removed = append(removed, entry.LocalDir)
			log.Infof("Swept %s", entry.LocalDir)
			return nil, nil
		})
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	c.saveIndex(ctx)
	return removed, firstErr
}

// Close dismounts every mount. The cache rejects lookups afterwards.
func (c *Cache) Close(ctx context.Context) error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	var firstErr error
	for _, h := range c.snapshot() {
		if err := c.remove(ctx, h.identity, reasonExplicit); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (c *Cache) saveIndex(ctx context.Context) {
	if err := c.index.save(c.root, indexFile); err != nil {
		clog.FromContext(ctx).Warnf("Failed to save mount index: %v", err)
	}
}

// safeLocalDir reports whether dir stays inside the data directory.
func safeLocalDir(dir string) bool {
	if dir == "" || path.IsAbs(dir) || strings.Contains(dir, "\\") {
		return false
	}
	c := path.Clean(dir)
	return c != "." && c != ".." && !strings.HasPrefix(c, "../")
}
