package prometheus

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewESMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewESMetrics(reg)

	require.NotNil(t, m)

	// Test store operations
	timer := m.StoreLoadDuration("user")
	assert.NotNil(t, timer)
	timer.ObserveDuration()

	timer = m.StoreAppendDuration("user")
	assert.NotNil(t, timer)
	timer.ObserveDuration()

	m.EventsAppended("user", 5)

	// Test repository operations
	timer = m.RepoLoadDuration("user")
	assert.NotNil(t, timer)
	timer.ObserveDuration()

	timer = m.RepoSaveDuration("user")
	assert.NotNil(t, timer)
	timer.ObserveDuration()

	m.ConcurrencyConflict("user")

	// Test index
	m.IndexReservationConflict("user.email")

	// Verify metrics were registered
	mfs, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, mfs)

	names := make(map[string]bool)
	for _, mf := range mfs {
		names[mf.GetName()] = true
	}

	assert.True(t, names["rheactor_es_store_load_duration_seconds"])
	assert.True(t, names["rheactor_es_repo_load_duration_seconds"])
	assert.True(t, names["rheactor_es_concurrency_conflicts_total"])
	assert.True(t, names["rheactor_es_index_reservation_conflicts_total"])
}
