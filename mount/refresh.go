package mount

import (
	"context"
	"sync"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/jonboulle/clockwork"
)

// Refresher is the single background loop that keeps every mount of a
// Cache fresh and evicts idle ones. It holds no handle state of its own.
type Refresher struct {
	cache    *Cache
	interval time.Duration
	clock    clockwork.Clock

	mu      sync.Mutex
	cancel  context.CancelFunc
	stopped bool
	wg      sync.WaitGroup
}

// NewRefresher creates a refresher that ticks every interval on the
// cache's clock. A non-positive interval uses DefaultRefreshInterval.
func NewRefresher(cache *Cache, interval time.Duration) *Refresher {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	return &Refresher{
		cache:    cache,
		interval: interval,
		clock:    cache.Clock(),
	}
}

// Start launches the loop. It runs until ctx is canceled or Stop is called.
// Calling Start more than once, or after Stop, has no effect.
func (r *Refresher) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil || r.stopped {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	ticker := r.clock.NewTicker(r.interval)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.Chan():
				r.Tick(ctx)
			}
		}
	}()
}

// Stop cancels the loop and waits for an in-progress tick to finish. A
// stopped refresher cannot be started again. It is safe to call more than
// once.
func (r *Refresher) Stop() {
	r.mu.Lock()
	r.stopped = true
	cancel := r.cancel
	r.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	r.wg.Wait()
}

// Tick runs one pass over the cache. A mount staler than its
// EagerPullPeriod is pulled; otherwise one idle longer than its
// DismountPeriod is evicted. At most one of the two happens per mount per
// tick.
func (r *Refresher) Tick(ctx context.Context) {
	log := clog.FromContext(ctx)

	r.cache.ForEach(func(h *Handle) {
		if ctx.Err() != nil {
			return
		}

		switch {
		case h.SinceFetch() > h.policy.EagerPullPeriod:
			if err := h.Pull(ctx); err != nil {
				log.Warnf("Refresh of %s failed: %v", h.identity, err)
			}
		case h.SinceTouch() > h.policy.DismountPeriod:
			log.Infof("Dismounting %s after %s idle", h.identity, h.SinceTouch())
			if err := r.cache.remove(ctx, h.identity, reasonIdle); err != nil {
				log.Warnf("Dismount of %s failed: %v", h.identity, err)
			}
		}
	})
}
