package mount

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the Prometheus collectors a Cache reports into.
type Metrics struct {
	mounts       prometheus.Gauge
	pulls        *prometheus.CounterVec
	pullDuration prometheus.Histogram
	dismounts    *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// creates unregistered collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		mounts: factory.NewGauge(prometheus.GaugeOpts{
			Name: "gitfs_mounts",
			Help: "Number of live mounts",
		}),
		pulls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gitfs_pulls_total",
			Help: "Total number of pulls, by trigger and result",
		}, []string{"trigger", "result"}),
		pullDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "gitfs_pull_duration_seconds",
			Help:    "Duration of fetch and checkout",
			Buckets: prometheus.DefBuckets,
		}),
		dismounts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gitfs_dismounts_total",
			Help: "Total number of dismounts, by reason",
		}, []string{"reason"}),
	}
}

// Pull triggers.
const (
	triggerInitial = "initial"
	triggerLazy    = "lazy"
	triggerEager   = "eager"
)

// Dismount reasons.
const (
	reasonIdle     = "idle"
	reasonExplicit = "explicit"
)

func (m *Metrics) observePull(trigger string, seconds float64, err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.pulls.WithLabelValues(trigger, result).Inc()
	m.pullDuration.Observe(seconds)
}

func (m *Metrics) mounted() {
	if m == nil {
		return
	}
	m.mounts.Inc()
}

func (m *Metrics) dismounted(reason string) {
	if m == nil {
		return
	}
	m.mounts.Dec()
	m.dismounts.WithLabelValues(reason).Inc()
}
