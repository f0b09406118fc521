package syncer

import "github.com/prometheus/client_golang/prometheus"

const (
	labelResult = "result"
	labelAction = "action"

	resultOK    = "ok"
	resultError = "error"
)

// Metrics covers the sync mechanisms themselves; HTTP-level metrics live in
// pkg/kit. A nil *Metrics disables recording, which tests rely on.
type Metrics struct {
	SyncRuns      *prometheus.CounterVec
	WebhookEvents *prometheus.CounterVec
	ItemsNew      prometheus.Counter
	ItemsUpdated  prometheus.Counter
	SnapshotItems prometheus.Gauge
}

func NewMetrics(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		SyncRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catalog_sync_runs_total",
				Help: "Full snapshot refresh runs",
			},
			[]string{labelResult},
		),
		WebhookEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catalog_webhook_events_total",
				Help: "Webhook events by action and result",
			},
			[]string{labelAction, labelResult},
		),
		ItemsNew: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "catalog_incremental_new_items_total",
			Help: "Items appended by the incremental differ",
		}),
		ItemsUpdated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "catalog_incremental_updated_items_total",
			Help: "Items replaced in place by the incremental differ",
		}),
		SnapshotItems: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "catalog_snapshot_items",
			Help: "Item count in the last persisted snapshot",
		}),
	}

	reg.MustRegister(m.SyncRuns, m.WebhookEvents, m.ItemsNew, m.ItemsUpdated, m.SnapshotItems)
	return m
}

func (m *Metrics) syncRun(ok bool) {
	if m == nil {
		return
	}
	m.SyncRuns.WithLabelValues(resultLabel(ok)).Inc()
}

func (m *Metrics) webhookEvent(action Action, ok bool) {
	if m == nil {
		return
	}
	m.WebhookEvents.WithLabelValues(string(action), resultLabel(ok)).Inc()
}

func (m *Metrics) incremental(newCount, updatedCount int) {
	if m == nil {
		return
	}
	m.ItemsNew.Add(float64(newCount))
	m.ItemsUpdated.Add(float64(updatedCount))
}

func (m *Metrics) snapshotSize(n int) {
	if m == nil {
		return
	}
	m.SnapshotItems.Set(float64(n))
}

func resultLabel(ok bool) string {
	if ok {
		return resultOK
	}
	return resultError
}
