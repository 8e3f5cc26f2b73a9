package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hrygo/chatporter/syncer"
)

// Metrics exports sync and export counters in Prometheus format.
type Metrics struct {
	registry *prometheus.Registry

	syncRuns       *prometheus.CounterVec
	pagesFetched   prometheus.Counter
	detailsFetched prometheus.Counter
	detailErrors   prometheus.Counter
	exports        prometheus.Counter
}

// NewMetrics creates a metrics set on its own registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		syncRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chatporter",
			Name:      "sync_runs_total",
			Help:      "Completed sync runs by outcome.",
		}, []string{"outcome"}),
		pagesFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "chatporter",
			Name:      "list_pages_total",
			Help:      "List pages fetched.",
		}),
		detailsFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "chatporter",
			Name:      "detail_fetches_total",
			Help:      "Conversation detail fetches that succeeded.",
		}),
		detailErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "chatporter",
			Name:      "detail_errors_total",
			Help:      "Conversation detail fetches that failed and were skipped.",
		}),
		exports: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "chatporter",
			Name:      "exports_total",
			Help:      "Export documents produced.",
		}),
	}
	m.registry.MustRegister(m.syncRuns, m.pagesFetched, m.detailsFetched, m.detailErrors, m.exports)
	return m
}

// Handler returns the /metrics HTTP handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordRun accounts one finished orchestration run.
func (m *Metrics) RecordRun(report *syncer.Report, err error) {
	outcome := "ok"
	switch {
	case err != nil:
		outcome = "aborted"
	case report != nil && report.Failed > 0:
		outcome = "partial"
	}
	m.syncRuns.WithLabelValues(outcome).Inc()
	if report != nil {
		m.pagesFetched.Add(float64(report.Pages))
		m.detailsFetched.Add(float64(report.Fetched))
		m.detailErrors.Add(float64(report.Failed))
	}
}

// RecordExport accounts one produced export document.
func (m *Metrics) RecordExport() {
	m.exports.Inc()
}
