package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordWebhookCountsByOutcome(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordWebhook("payment.success", OutcomeApplied)
	m.RecordWebhook("payment.success", OutcomeDuplicate)
	m.RecordWebhook("payment.success", OutcomeDuplicate)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.webhookEvents.WithLabelValues("payment.success", OutcomeApplied)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.webhookEvents.WithLabelValues("payment.success", OutcomeDuplicate)))
}

func TestRecordSweptPayoutsIgnoresZero(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordSweptPayouts(0)
	m.RecordSweptPayouts(3)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.sweptPayouts))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.RecordWebhook("payout.success", OutcomeApplied)
		m.RecordPayout("manual", OutcomeInitiated)
		m.ObserveReconcile("payout.success", time.Millisecond)
		m.RecordSweptPayouts(1)
	})
}
