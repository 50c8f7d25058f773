package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ReconWorkerMetrics records reconciliation tick outcomes.
type ReconWorkerMetrics struct {
	tickDuration *prometheus.HistogramVec
	successes    *prometheus.CounterVec
	failures     *prometheus.CounterVec
	skipped      prometheus.Counter
}

// NewReconWorkerMetrics registers the worker collectors on the provided registerer.
func NewReconWorkerMetrics(reg prometheus.Registerer) *ReconWorkerMetrics {
	m := &ReconWorkerMetrics{
		tickDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bundlehub_recon_phase_duration_seconds",
			Help:    "Duration of reconciliation worker phases.",
			Buckets: prometheus.DefBuckets,
		}, []string{"phase"}),
		successes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bundlehub_recon_orders_total",
			Help: "Orders processed by the reconciliation worker.",
		}, []string{"phase"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bundlehub_recon_failures_total",
			Help: "Per-order failures inside reconciliation phases.",
		}, []string{"phase"}),
		skipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bundlehub_recon_ticks_skipped_total",
			Help: "Ticks skipped because a previous tick was still running.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.tickDuration, m.successes, m.failures, m.skipped)
	}
	return m
}

func (m *ReconWorkerMetrics) ObservePhase(phase string, d time.Duration) {
	if m == nil {
		return
	}
	m.tickDuration.WithLabelValues(phase).Observe(d.Seconds())
}

func (m *ReconWorkerMetrics) IncProcessed(phase string) {
	if m == nil {
		return
	}
	m.successes.WithLabelValues(phase).Inc()
}

func (m *ReconWorkerMetrics) IncFailure(phase string) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(phase).Inc()
}

func (m *ReconWorkerMetrics) IncSkippedTick() {
	if m == nil {
		return
	}
	m.skipped.Inc()
}
