// Package metrics exposes the pipeline's Prometheus counters.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ScanCycles counts alert scan cycles by outcome: enqueued, empty,
	// deduped, suppressed, skipped, error.
	ScanCycles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jobalerts_scan_cycles_total",
		Help: "Alert scan cycles by outcome.",
	}, []string{"outcome"})

	MatchesRecorded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "jobalerts_matches_recorded_total",
		Help: "New job-alert matches written to the dedup ledger.",
	})

	EmailsSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "jobalerts_emails_sent_total",
		Help: "Alert notification emails dispatched successfully.",
	})

	EmailsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "jobalerts_emails_failed_total",
		Help: "Alert notification emails that failed to dispatch.",
	})

	IndexWrites = promauto.NewCounter(prometheus.CounterOpts{
		Name: "jobalerts_index_writes_total",
		Help: "Search index document upserts and deletes.",
	})

	IndexWriteFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "jobalerts_index_write_failures_total",
		Help: "Search index writes that failed and were handed back for retry.",
	})
)
