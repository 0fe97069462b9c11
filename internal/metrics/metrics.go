package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "settlement"

const (
	OutcomeApplied           = "applied"
	OutcomeDuplicate         = "duplicate"
	OutcomeIgnored           = "ignored"
	OutcomeMalformed         = "malformed"
	OutcomeUnauthorized      = "unauthorized"
	OutcomeUnknownReference  = "unknown_reference"
	OutcomeInsufficientFunds = "insufficient_funds"
	OutcomeError             = "error"

	OutcomeInitiated = "initiated"
	OutcomeRejected  = "rejected"
	OutcomeFailed    = "failed"
)

// Metrics is safe to use as a nil pointer; every method is then a no-op.
type Metrics struct {
	webhookEvents   *prometheus.CounterVec
	payouts         *prometheus.CounterVec
	reconcileTiming *prometheus.HistogramVec
	sweptPayouts    prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		webhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_events_total",
			Help:      "Processor callbacks by event type and reconciliation outcome.",
		}, []string{"event", "outcome"}),
		payouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payouts_total",
			Help:      "Payout initiations by source and outcome.",
		}, []string{"source", "outcome"}),
		reconcileTiming: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reconcile_duration_seconds",
			Help:      "Time spent applying a classified event to the ledger.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"event"}),
		sweptPayouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stale_payouts_swept_total",
			Help:      "Pending payouts failed by the sweeper after never reaching the processor.",
		}),
	}

	if reg != nil {
		reg.MustRegister(m.webhookEvents, m.payouts, m.reconcileTiming, m.sweptPayouts)
	}
	return m
}

func (m *Metrics) RecordWebhook(event, outcome string) {
	if m == nil {
		return
	}
	m.webhookEvents.WithLabelValues(event, outcome).Inc()
}

func (m *Metrics) RecordPayout(source, outcome string) {
	if m == nil {
		return
	}
	m.payouts.WithLabelValues(source, outcome).Inc()
}

func (m *Metrics) ObserveReconcile(event string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.reconcileTiming.WithLabelValues(event).Observe(elapsed.Seconds())
}

func (m *Metrics) RecordSweptPayouts(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.sweptPayouts.Add(float64(n))
}
