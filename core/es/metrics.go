package es

import "github.com/RHeactorJS/rheactor-server/core/metrics"

// ESMetrics defines the metrics interface for the event sourcing core.
// All methods return Timer or increment counters; implementations should
// be thread-safe.
type ESMetrics interface {
	// Store operations
	StoreLoadDuration(aggType string) metrics.Timer
	StoreAppendDuration(aggType string) metrics.Timer
	EventsAppended(aggType string, count int)

	// Repository operations
	RepoLoadDuration(aggType string) metrics.Timer
	RepoSaveDuration(aggType string) metrics.Timer
	ConcurrencyConflict(aggType string)

	// Secondary index
	IndexReservationConflict(index string)
}

// nopESMetrics is a no-op implementation of ESMetrics.
type nopESMetrics struct{}

func (nopESMetrics) StoreLoadDuration(string) metrics.Timer   { return metrics.NopTimer() }
func (nopESMetrics) StoreAppendDuration(string) metrics.Timer { return metrics.NopTimer() }
func (nopESMetrics) EventsAppended(string, int)               {}

func (nopESMetrics) RepoLoadDuration(string) metrics.Timer { return metrics.NopTimer() }
func (nopESMetrics) RepoSaveDuration(string) metrics.Timer { return metrics.NopTimer() }
func (nopESMetrics) ConcurrencyConflict(string)            {}

func (nopESMetrics) IndexReservationConflict(string) {}

// NopESMetrics returns a no-op ESMetrics implementation.
func NopESMetrics() ESMetrics { return nopESMetrics{} }

// ESMetricsOption sets the metrics for ES components.
type ESMetricsOption struct{ m ESMetrics }

// WithMetrics sets the metrics implementation for ES components.
func WithMetrics(m ESMetrics) ESMetricsOption { return ESMetricsOption{m: m} }

func (o ESMetricsOption) applyToRepository(r *repoOpts) { r.metrics = o.m }
