package gitfs

import (
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"

	fsbilly "github.com/jmgilman/gitfs/fs/billy"
	"github.com/jmgilman/gitfs/git"
)

type options struct {
	dataFS     *fsbilly.FS
	backend    git.Backend
	clock      clockwork.Clock
	registerer prometheus.Registerer
}

// Option configures New.
type Option func(*options)

// WithDataFS stores working copies in fs instead of Settings.DataDir.
func WithDataFS(fs *fsbilly.FS) Option {
	return func(o *options) {
		o.dataFS = fs
	}
}

// WithBackend overrides the backend selected by Settings.Backend.
func WithBackend(backend git.Backend) Option {
	return func(o *options) {
		o.backend = backend
	}
}

// WithClock injects the clock used for freshness and the refresher tick.
func WithClock(clock clockwork.Clock) Option {
	return func(o *options) {
		o.clock = clock
	}
}

// WithRegisterer registers mount metrics with reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.registerer = reg
	}
}
