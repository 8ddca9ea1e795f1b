// Package pipelinemetrics exposes prometheus counters/histograms for
// pipeline stage timing, cache behavior, and post-filter drop volume.
// Mirrors the teacher's metrics-collector shape (a package-level
// singleton behind sync.Once, safe to use before Init and a no-op if
// never registered) but talks to prometheus directly rather than through
// an intermediate observability package, since this module has no other
// consumer of that layer.
package pipelinemetrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector records pipeline run metrics. The zero value is usable and
// records nothing; call Init once at process start to wire it to a real
// registry.
type Collector struct {
	stageDuration   *prometheus.HistogramVec
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	clipsEmitted    prometheus.Counter
	filterDropped   *prometheus.CounterVec
	runsTotal       *prometheus.CounterVec
}

var (
	global     *Collector
	globalOnce sync.Once
	mu         sync.RWMutex
)

// Init registers the pipeline's metrics on reg and sets it as the global
// collector. Safe to call more than once; only the first call takes
// effect.
func Init(reg prometheus.Registerer) *Collector {
	globalOnce.Do(func() {
		c := &Collector{
			stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "clipline",
				Subsystem: "pipeline",
				Name:      "stage_duration_seconds",
				Help:      "Wall-clock duration of each pipeline stage.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"stage"}),
			cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "clipline", Subsystem: "feature_cache", Name: "hits_total",
				Help: "Feature cache hits.",
			}),
			cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "clipline", Subsystem: "feature_cache", Name: "misses_total",
				Help: "Feature cache misses.",
			}),
			clipsEmitted: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "clipline", Subsystem: "pipeline", Name: "clips_emitted_total",
				Help: "Final clips emitted across all runs.",
			}),
			filterDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "clipline", Subsystem: "postfilter", Name: "dropped_total",
				Help: "Clips dropped per post-filter pass.",
			}, []string{"pass"}),
			runsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "clipline", Subsystem: "pipeline", Name: "runs_total",
				Help: "Pipeline runs by outcome.",
			}, []string{"outcome"}),
		}
		if reg != nil {
			reg.MustRegister(c.stageDuration, c.cacheHits, c.cacheMisses, c.clipsEmitted, c.filterDropped, c.runsTotal)
		}
		mu.Lock()
		global = c
		mu.Unlock()
	})
	return Get()
}

// Get returns the global collector, or a no-op collector if Init was
// never called.
func Get() *Collector {
	mu.RLock()
	defer mu.RUnlock()
	if global == nil {
		return &Collector{}
	}
	return global
}

// ObserveStage records how long a named pipeline stage took.
func (c *Collector) ObserveStage(stage string, d time.Duration) {
	if c == nil || c.stageDuration == nil {
		return
	}
	c.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (c *Collector) CacheHit() {
	if c == nil || c.cacheHits == nil {
		return
	}
	c.cacheHits.Inc()
}

func (c *Collector) CacheMiss() {
	if c == nil || c.cacheMisses == nil {
		return
	}
	c.cacheMisses.Inc()
}

func (c *Collector) ClipsEmitted(n int) {
	if c == nil || c.clipsEmitted == nil {
		return
	}
	c.clipsEmitted.Add(float64(n))
}

func (c *Collector) FilterDropped(pass string, n int) {
	if c == nil || c.filterDropped == nil {
		return
	}
	c.filterDropped.WithLabelValues(pass).Add(float64(n))
}

func (c *Collector) RunFinished(outcome string) {
	if c == nil || c.runsTotal == nil {
		return
	}
	c.runsTotal.WithLabelValues(outcome).Inc()
}
