// Package observability exposes simulation metrics and health probes over
// HTTP.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tomz197/volley/internal/projectile"
)

// Launch results recorded by RecordLaunch.
const (
	LaunchAccepted = "accepted"
	LaunchRejected = "rejected"
)

// Metrics contains the Prometheus collectors for the projectile simulation.
type Metrics struct {
	ProjectilesActive prometheus.Gauge
	Sessions          prometheus.Gauge
	Launches          *prometheus.CounterVec
	Hits              *prometheus.CounterVec
	Destroys          *prometheus.CounterVec
	PoolInstances     *prometheus.GaugeVec
	TickSeconds       prometheus.Histogram
}

// NewMetrics creates and registers the volley metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ProjectilesActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "volley_projectiles_active",
			Help: "Number of projectiles in flight",
		}),
		Sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "volley_sessions_active",
			Help: "Number of connected client sessions",
		}),
		Launches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "volley_launches_total",
				Help: "Total launch attempts by definition and result",
			},
			[]string{"definition", "result"},
		),
		Hits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "volley_hits_total",
				Help: "Total projectile hits by definition and surface",
			},
			[]string{"definition", "surface"},
		),
		Destroys: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "volley_destroys_total",
				Help: "Total destroyed projectiles by definition and reason",
			},
			[]string{"definition", "reason"},
		),
		PoolInstances: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "volley_pool_instances",
				Help: "Pooled projectile instances by definition and state",
			},
			[]string{"definition", "state"},
		),
		TickSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "volley_tick_seconds",
			Help:    "Duration of one simulation tick",
			Buckets: prometheus.ExponentialBuckets(0.00005, 2, 12),
		}),
	}

	reg.MustRegister(
		m.ProjectilesActive,
		m.Sessions,
		m.Launches,
		m.Hits,
		m.Destroys,
		m.PoolInstances,
		m.TickSeconds,
	)
	return m
}

// RecordLaunch counts one launch attempt.
func (m *Metrics) RecordLaunch(definition string, accepted bool) {
	result := LaunchAccepted
	if !accepted {
		result = LaunchRejected
	}
	m.Launches.WithLabelValues(definition, result).Inc()
}

// ObserveTick records the duration of one tick.
func (m *Metrics) ObserveTick(d time.Duration) {
	m.TickSeconds.Observe(d.Seconds())
}

// ObserveStats publishes manager and pool occupancy. Pools of definitions
// that no longer exist are dropped.
func (m *Metrics) ObserveStats(s projectile.Stats) {
	m.ProjectilesActive.Set(float64(s.Active))
	m.PoolInstances.Reset()
	for id, p := range s.Pools {
		m.PoolInstances.WithLabelValues(id, "available").Set(float64(p.Available))
		m.PoolInstances.WithLabelValues(id, "in_use").Set(float64(p.InUse))
		m.PoolInstances.WithLabelValues(id, "peak").Set(float64(p.Peak))
	}
}

// Instrument subscribes to the manager's hit and destroy events. The
// returned function unsubscribes both.
func (m *Metrics) Instrument(mgr *projectile.Manager) (detach func()) {
	offHit := mgr.OnHit(func(ev projectile.HitEvent) {
		m.Hits.WithLabelValues(ev.Projectile.DefinitionID, ev.Surface.String()).Inc()
	})
	offDestroy := mgr.OnDestroy(func(ev projectile.DestroyEvent) {
		m.Destroys.WithLabelValues(ev.Projectile.DefinitionID, ev.Reason.String()).Inc()
	})
	return func() {
		offHit()
		offDestroy()
	}
}
