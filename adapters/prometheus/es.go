package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/RHeactorJS/rheactor-server/core/es"
	"github.com/RHeactorJS/rheactor-server/core/metrics"
)

// esMetrics implements es.ESMetrics using Prometheus.
type esMetrics struct {
	// Store metrics
	storeLoadDuration   *prometheus.HistogramVec
	storeAppendDuration *prometheus.HistogramVec
	eventsAppended      *prometheus.CounterVec

	// Repository metrics
	repoLoadDuration     *prometheus.HistogramVec
	repoSaveDuration     *prometheus.HistogramVec
	concurrencyConflicts *prometheus.CounterVec

	// Secondary index metrics
	indexReservationConflicts *prometheus.CounterVec
}

// NewESMetrics creates a new Prometheus implementation of ESMetrics.
func NewESMetrics(reg prometheus.Registerer) es.ESMetrics {
	m := &esMetrics{
		storeLoadDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rheactor_es_store_load_duration_seconds",
			Help:    "Event store load latency in seconds",
			Buckets: defaultBuckets,
		}, []string{"aggregate_type"}),

		storeAppendDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rheactor_es_store_append_duration_seconds",
			Help:    "Event store append latency in seconds",
			Buckets: defaultBuckets,
		}, []string{"aggregate_type"}),

		eventsAppended: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rheactor_es_events_appended_total",
			Help: "Total number of events appended",
		}, []string{"aggregate_type"}),

		repoLoadDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rheactor_es_repo_load_duration_seconds",
			Help:    "Repository load latency in seconds",
			Buckets: defaultBuckets,
		}, []string{"aggregate_type"}),

		repoSaveDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rheactor_es_repo_save_duration_seconds",
			Help:    "Repository save latency in seconds",
			Buckets: defaultBuckets,
		}, []string{"aggregate_type"}),

		concurrencyConflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rheactor_es_concurrency_conflicts_total",
			Help: "Total number of optimistic lock failures",
		}, []string{"aggregate_type"}),

		indexReservationConflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rheactor_es_index_reservation_conflicts_total",
			Help: "Total number of uniqueness index reservation collisions",
		}, []string{"index"}),
	}

	reg.MustRegister(
		m.storeLoadDuration,
		m.storeAppendDuration,
		m.eventsAppended,
		m.repoLoadDuration,
		m.repoSaveDuration,
		m.concurrencyConflicts,
		m.indexReservationConflicts,
	)

	return m
}

func (m *esMetrics) StoreLoadDuration(aggType string) metrics.Timer {
	return newTimer(m.storeLoadDuration.WithLabelValues(aggType))
}

func (m *esMetrics) StoreAppendDuration(aggType string) metrics.Timer {
	return newTimer(m.storeAppendDuration.WithLabelValues(aggType))
}

func (m *esMetrics) EventsAppended(aggType string, count int) {
	m.eventsAppended.WithLabelValues(aggType).Add(float64(count))
}

func (m *esMetrics) RepoLoadDuration(aggType string) metrics.Timer {
	return newTimer(m.repoLoadDuration.WithLabelValues(aggType))
}

func (m *esMetrics) RepoSaveDuration(aggType string) metrics.Timer {
	return newTimer(m.repoSaveDuration.WithLabelValues(aggType))
}

func (m *esMetrics) ConcurrencyConflict(aggType string) {
	m.concurrencyConflicts.WithLabelValues(aggType).Inc()
}

func (m *esMetrics) IndexReservationConflict(index string) {
	m.indexReservationConflicts.WithLabelValues(index).Inc()
}

var _ es.ESMetrics = (*esMetrics)(nil)
