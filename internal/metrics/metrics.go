package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RefreshRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attacktracker_refresh_runs_total",
			Help: "Refresh job runs by terminal status",
		},
		[]string{"status"},
	)

	SourceFetchFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attacktracker_source_fetch_failures_total",
			Help: "Recovered per-source fetch failures",
		},
		[]string{"source"},
	)

	RecordsFetched = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "attacktracker_records_fetched_total",
			Help: "Raw candidate records fetched across all sources",
		},
	)

	RecordsInserted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "attacktracker_records_inserted_total",
			Help: "Records written through the upsert gateway",
		},
	)
)
