package mount

import (
	"time"

	"github.com/jmgilman/gitfs/git"
	"github.com/jonboulle/clockwork"
)

// Defaults of the refresh policy.
const (
	DefaultLazyPullPeriod  = 5 * time.Second
	DefaultEagerPullPeriod = 5 * time.Second
	DefaultDismountPeriod  = 60 * time.Second
	DefaultRefreshInterval = time.Second
	DefaultScheme          = "https"
)

// Policy holds the per-mount refresh and eviction thresholds.
type Policy struct {
	// LazyPullPeriod is the staleness after which an access pulls before
	// being served.
	LazyPullPeriod time.Duration
	// EagerPullPeriod is the staleness after which the refresher pulls.
	EagerPullPeriod time.Duration
	// DismountPeriod is the idle time after which the refresher evicts.
	DismountPeriod time.Duration
	// DismountDelete removes the working copy from disk on eviction.
	DismountDelete bool
}

// DefaultPolicy returns the default thresholds.
func DefaultPolicy() Policy {
	return Policy{
		LazyPullPeriod:  DefaultLazyPullPeriod,
		EagerPullPeriod: DefaultEagerPullPeriod,
		DismountPeriod:  DefaultDismountPeriod,
	}
}

type cacheOptions struct {
	backend git.Backend
	auth    git.Auth
	clock   clockwork.Clock
	metrics *Metrics
	policy  Policy
	scheme  string
}

// Option configures a Cache.
type Option func(*cacheOptions)

// WithBackend sets the version-control backend. Default: git.NewNativeBackend().
func WithBackend(backend git.Backend) Option {
	return func(opts *cacheOptions) {
		opts.backend = backend
	}
}

// WithAuth sets the credentials used for every fetch.
func WithAuth(auth git.Auth) Option {
	return func(opts *cacheOptions) {
		opts.auth = auth
	}
}

// WithClock injects the clock all freshness and idleness is measured with.
func WithClock(clock clockwork.Clock) Option {
	return func(opts *cacheOptions) {
		opts.clock = clock
	}
}

// WithMetrics records cache activity into m.
func WithMetrics(m *Metrics) Option {
	return func(opts *cacheOptions) {
		opts.metrics = m
	}
}

// WithPolicy sets the refresh and eviction thresholds of new mounts.
func WithPolicy(p Policy) Option {
	return func(opts *cacheOptions) {
		opts.policy = p
	}
}

// WithDefaultScheme sets the scheme for names given without one.
func WithDefaultScheme(scheme string) Option {
	return func(opts *cacheOptions) {
		opts.scheme = scheme
	}
}
